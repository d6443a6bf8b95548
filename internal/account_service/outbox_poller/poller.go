package outbox_poller

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/banking-ledger-saga/internal/config"
	"github.com/banking-ledger-saga/internal/domain/outbox"
	"github.com/banking-ledger-saga/internal/platform/metrics"
)

// Poller relays pending balance events from the outbox to the broker.
// It never touches balances or transactions.
type Poller struct {
	outboxRepo       outbox.Repository
	relay            EventRelay
	logger           *slog.Logger
	pollInterval     time.Duration
	batchSize        int
	maxRetryAttempts int
}

func NewPoller(
	cfg *config.OutboxConfig,
	outboxRepo outbox.Repository,
	relay EventRelay,
	logger *slog.Logger,
) *Poller {
	return &Poller{
		outboxRepo:       outboxRepo,
		relay:            relay,
		logger:           logger.With("component", "outbox_poller"),
		pollInterval:     cfg.PollingInterval,
		batchSize:        cfg.BatchSize,
		maxRetryAttempts: cfg.MaxRetryAttempts,
	}
}

// Start polls until ctx is canceled
func (p *Poller) Start(ctx context.Context) {
	p.logger.Info("Starting outbox poller",
		"poll_interval", p.pollInterval.String(),
		"batch_size", p.batchSize,
		"max_retry_attempts", p.maxRetryAttempts,
	)
	ticker := time.NewTicker(p.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			p.logger.Info("Outbox poller stopped")
			return
		case <-ticker.C:
			if err := p.relayPending(ctx); err != nil {
				p.logger.Error("Failed to relay pending outbox messages", "error", err)
			}
		}
	}
}

func (p *Poller) relayPending(ctx context.Context) error {
	messages, err := p.outboxRepo.FetchPending(ctx, p.batchSize)
	if err != nil {
		return fmt.Errorf("failed to fetch pending balance events: %w", err)
	}
	if len(messages) == 0 {
		return nil
	}

	p.logger.Debug("Relaying balance events", "count", len(messages))

	// Events for one account must leave in order, so a failure holds back the
	// rest of that account's batch until the next tick.
	blocked := make(map[uuid.UUID]bool)
	for _, msg := range messages {
		logger := p.logger.With("outbox_id", msg.ID, "account_id", msg.AccountID.String(), "event_id", msg.EventID.String())

		if blocked[msg.AccountID] {
			logger.Debug("Holding balance event behind an undelivered one")
			continue
		}

		err := p.relay.Relay(ctx, msg)
		if err == nil {
			metrics.RecordOutboxRelay(true)
			continue
		}

		metrics.RecordOutboxRelay(false)
		blocked[msg.AccountID] = true
		logger.Error("Failed to relay balance event", "attempts", msg.Attempts+1, "error", err)

		if errors.Is(err, ErrUndeliverable) {
			continue
		}

		parked, errRecord := p.outboxRepo.RecordFailure(ctx, msg.ID, err.Error(), p.maxRetryAttempts)
		if errRecord != nil {
			logger.Error("Failed to record relay failure", "error", errRecord)
			continue
		}
		if parked {
			logger.Warn("Balance event exhausted its attempts and was parked", "max_attempts", p.maxRetryAttempts)
		}
	}
	return nil
}
