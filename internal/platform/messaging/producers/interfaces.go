package producers

import (
	"context"

	"github.com/segmentio/kafka-go"

	"github.com/banking-ledger-saga/internal/domain/transaction"
)

// EventPublisher publishes already-serialized domain events
type EventPublisher interface {
	PublishEvent(ctx context.Context, key, eventType string, payload []byte) error
	Close() error
}

// AlertPublisher publishes operator alerts for transfers that need reconciliation
type AlertPublisher interface {
	PublishInconsistency(ctx context.Context, alert transaction.InconsistencyAlert) error
	Close() error
}

// KafkaWriter wraps kafka.Writer methods for testing
type KafkaWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}
