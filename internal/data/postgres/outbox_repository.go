package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/banking-ledger-saga/internal/domain/outbox"
	"github.com/banking-ledger-saga/internal/domain/shared"
	"github.com/banking-ledger-saga/internal/platform/persistence"
)

// OutboxRepository stores balance events in account_outbox
type OutboxRepository struct {
	querier persistence.Querier
	logger  *slog.Logger
}

func NewOutboxRepository(logger *slog.Logger, db *persistence.PostgresDB) outbox.Repository {
	return &OutboxRepository{
		querier: db.Pool(),
		logger:  logger,
	}
}

// WithTx binds the repository to a transaction so events commit with the balance change
func (r *OutboxRepository) WithTx(tx pgx.Tx) outbox.Repository {
	return &OutboxRepository{
		querier: tx,
		logger:  r.logger,
	}
}

func (r *OutboxRepository) Create(ctx context.Context, message *outbox.Message) error {
	query := `
		INSERT INTO account_outbox (event_id, account_id, event_type, payload, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id
	`

	err := r.querier.QueryRow(ctx, query,
		message.EventID,
		message.AccountID,
		message.EventType,
		[]byte(message.Payload),
		string(shared.OutboxStatusPending),
		message.CreatedAt,
	).Scan(&message.ID)
	if err != nil {
		r.logger.Error("Failed to store balance event",
			"event_id", message.EventID.String(),
			"account_id", message.AccountID.String(),
			"error", err,
		)
		return fmt.Errorf("failed to store balance event: %w", err)
	}

	message.Status = shared.OutboxStatusPending
	return nil
}

// FetchPending returns the oldest undelivered events, at most limit of them
func (r *OutboxRepository) FetchPending(ctx context.Context, limit int) ([]*outbox.Message, error) {
	query := `
		SELECT id, event_id, account_id, event_type, payload, attempts, COALESCE(last_error, ''), created_at, last_attempt_at
		FROM account_outbox
		WHERE status = $1
		ORDER BY created_at ASC, id ASC
		LIMIT $2
	`

	rows, err := r.querier.Query(ctx, query, string(shared.OutboxStatusPending), limit)
	if err != nil {
		r.logger.Error("Failed to fetch pending balance events", "error", err)
		return nil, fmt.Errorf("failed to fetch pending balance events: %w", err)
	}
	defer rows.Close()

	messages := make([]*outbox.Message, 0, limit)
	for rows.Next() {
		msg := &outbox.Message{Status: shared.OutboxStatusPending}
		var payload []byte
		if err := rows.Scan(
			&msg.ID,
			&msg.EventID,
			&msg.AccountID,
			&msg.EventType,
			&payload,
			&msg.Attempts,
			&msg.LastError,
			&msg.CreatedAt,
			&msg.LastAttemptAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan balance event: %w", err)
		}
		msg.Payload = payload
		messages = append(messages, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read balance events: %w", err)
	}

	return messages, nil
}

// MarkPublished closes out a delivered event. Only pending rows move.
func (r *OutboxRepository) MarkPublished(ctx context.Context, id int64) error {
	query := `
		UPDATE account_outbox
		SET status = $1, published_at = $2, last_attempt_at = $2
		WHERE id = $3 AND status = $4
	`

	result, err := r.querier.Exec(ctx, query,
		string(shared.OutboxStatusProcessed), time.Now().UTC(), id, string(shared.OutboxStatusPending))
	if err != nil {
		r.logger.Error("Failed to mark balance event published", "id", id, "error", err)
		return fmt.Errorf("failed to mark balance event published: %w", err)
	}
	if result.RowsAffected() == 0 {
		return outbox.ErrMessageNotFound{ID: id}
	}
	return nil
}

func (r *OutboxRepository) RecordFailure(ctx context.Context, id int64, cause string, maxAttempts int) (bool, error) {
	query := `
		UPDATE account_outbox
		SET attempts = attempts + 1,
			last_error = $1,
			last_attempt_at = $2,
			status = CASE WHEN attempts + 1 >= $3 THEN $4 ELSE status END
		WHERE id = $5 AND status = $6
		RETURNING status
	`

	var status string
	err := r.querier.QueryRow(ctx, query,
		cause,
		time.Now().UTC(),
		maxAttempts,
		string(shared.OutboxStatusFailedToPublish),
		id,
		string(shared.OutboxStatusPending),
	).Scan(&status)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, outbox.ErrMessageNotFound{ID: id}
	}
	if err != nil {
		r.logger.Error("Failed to record balance event failure", "id", id, "error", err)
		return false, fmt.Errorf("failed to record balance event failure: %w", err)
	}

	return shared.OutboxStatus(status) == shared.OutboxStatusFailedToPublish, nil
}

// Park takes an event out of rotation without counting an attempt
func (r *OutboxRepository) Park(ctx context.Context, id int64, cause string) error {
	query := `
		UPDATE account_outbox
		SET status = $1, last_error = $2, last_attempt_at = $3
		WHERE id = $4 AND status = $5
	`

	result, err := r.querier.Exec(ctx, query,
		string(shared.OutboxStatusFailedToPublish), cause, time.Now().UTC(), id, string(shared.OutboxStatusPending))
	if err != nil {
		r.logger.Error("Failed to park balance event", "id", id, "error", err)
		return fmt.Errorf("failed to park balance event: %w", err)
	}
	if result.RowsAffected() == 0 {
		return outbox.ErrMessageNotFound{ID: id}
	}
	return nil
}
