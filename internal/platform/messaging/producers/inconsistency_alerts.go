package producers

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/segmentio/kafka-go"

	"github.com/banking-ledger-saga/internal/config"
	"github.com/banking-ledger-saga/internal/domain/transaction"
)

const alertTypeInconsistency = "TRANSFER_UNRECONCILED"

// AlertProducer publishes unreconciled-transfer alerts for operators
type AlertProducer struct {
	logger *slog.Logger
	writer KafkaWriter
	topic  string
}

func NewAlertProducer(ctx context.Context, logger *slog.Logger, cfg *config.KafkaConfig) (*AlertProducer, error) {
	writer, err := newSyncWriter(logger, cfg, cfg.AlertsTopic)
	if err != nil {
		return nil, fmt.Errorf("failed to create alert producer: %w", err)
	}

	return &AlertProducer{
		logger: logger,
		writer: writer,
		topic:  cfg.AlertsTopic,
	}, nil
}

func (p *AlertProducer) PublishInconsistency(ctx context.Context, alert transaction.InconsistencyAlert) error {
	value, err := json.Marshal(alert)
	if err != nil {
		return fmt.Errorf("failed to marshal inconsistency alert: %w", err)
	}

	msg := kafka.Message{
		Key:   []byte(alert.TransactionID.String()),
		Value: value,
		Headers: []kafka.Header{
			{Key: "alert-type", Value: []byte(alertTypeInconsistency)},
		},
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		p.logger.Error("Failed to publish inconsistency alert",
			"topic", p.topic,
			"transaction_id", alert.TransactionID.String(),
			"error", err,
		)
		return fmt.Errorf("failed to publish alert to %s: %w", p.topic, err)
	}

	p.logger.Info("Published inconsistency alert",
		"topic", p.topic,
		"transaction_id", alert.TransactionID.String(),
	)
	return nil
}

func (p *AlertProducer) Close() error {
	p.logger.Info("Closing alert producer", "topic", p.topic)
	if err := p.writer.Close(); err != nil {
		return fmt.Errorf("failed to close kafka writer for topic %s: %w", p.topic, err)
	}
	return nil
}
