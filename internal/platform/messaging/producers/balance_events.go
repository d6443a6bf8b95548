package producers

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/segmentio/kafka-go"

	"github.com/banking-ledger-saga/internal/config"
)

// BalanceEventProducer relays account balance events. Messages are keyed by
// account id so each account's events stay ordered within a partition.
type BalanceEventProducer struct {
	logger *slog.Logger
	writer KafkaWriter
	topic  string
}

func NewBalanceEventProducer(ctx context.Context, logger *slog.Logger, cfg *config.KafkaConfig) (*BalanceEventProducer, error) {
	writer, err := newSyncWriter(logger, cfg, cfg.EventsTopic)
	if err != nil {
		return nil, fmt.Errorf("failed to create balance event producer: %w", err)
	}

	return &BalanceEventProducer{
		logger: logger,
		writer: writer,
		topic:  cfg.EventsTopic,
	}, nil
}

func (p *BalanceEventProducer) PublishEvent(ctx context.Context, key, eventType string, payload []byte) error {
	msg := kafka.Message{
		Key:   []byte(key),
		Value: payload,
		Headers: []kafka.Header{
			{Key: "event-type", Value: []byte(eventType)},
		},
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		p.logger.Error("Failed to publish balance event",
			"topic", p.topic,
			"key", key,
			"event_type", eventType,
			"error", err,
		)
		return fmt.Errorf("failed to publish event to %s: %w", p.topic, err)
	}

	p.logger.Debug("Published balance event",
		"topic", p.topic,
		"key", key,
		"event_type", eventType,
	)
	return nil
}

func (p *BalanceEventProducer) Close() error {
	p.logger.Info("Closing balance event producer", "topic", p.topic)
	if err := p.writer.Close(); err != nil {
		return fmt.Errorf("failed to close kafka writer for topic %s: %w", p.topic, err)
	}
	return nil
}
