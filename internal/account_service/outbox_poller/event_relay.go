package outbox_poller

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/banking-ledger-saga/internal/domain/outbox"
	"github.com/banking-ledger-saga/internal/platform/messaging/producers"
)

// ErrUndeliverable marks an event the relay parked because no retry can fix it
var ErrUndeliverable = errors.New("balance event cannot be delivered")

// EventRelay delivers one outbox message and records its completion
type EventRelay interface {
	Relay(ctx context.Context, message *outbox.Message) error
}

// KafkaEventRelay publishes balance events keyed by account id
type KafkaEventRelay struct {
	outboxRepo outbox.Repository
	publisher  producers.EventPublisher
	logger     *slog.Logger
}

func NewKafkaEventRelay(outboxRepo outbox.Repository, publisher producers.EventPublisher, logger *slog.Logger) EventRelay {
	return &KafkaEventRelay{
		outboxRepo: outboxRepo,
		publisher:  publisher,
		logger:     logger.With("component", "event_relay"),
	}
}

func (r *KafkaEventRelay) Relay(ctx context.Context, message *outbox.Message) error {
	if message.EventType == outbox.EventTypeBalanceChanged {
		if _, err := message.BalanceChanged(); err != nil {
			cause := fmt.Sprintf("undecodable payload: %v", err)
			if parkErr := r.outboxRepo.Park(ctx, message.ID, cause); parkErr != nil {
				r.logger.Error("Failed to park undecodable balance event", "outbox_id", message.ID, "error", parkErr)
				return fmt.Errorf("failed to park outbox %d: %w", message.ID, parkErr)
			}
			return fmt.Errorf("outbox %d: %w: %s", message.ID, ErrUndeliverable, cause)
		}
	}

	if err := r.publisher.PublishEvent(ctx, message.Key(), message.EventType, message.Payload); err != nil {
		return fmt.Errorf("failed to publish outbox %d: %w", message.ID, err)
	}

	// A publish followed by a failed mark is delivered again on the next tick;
	// consumers dedupe on event_id.
	if err := r.outboxRepo.MarkPublished(ctx, message.ID); err != nil {
		r.logger.Error("Balance event published but not marked", "outbox_id", message.ID, "error", err)
		return fmt.Errorf("outbox %d published but not marked: %w", message.ID, err)
	}
	return nil
}
