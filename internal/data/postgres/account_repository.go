// Package postgres provides the PostgreSQL ledger store. Every balance change
// runs under a row lock and writes its outbox event in the same transaction.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/banking-ledger-saga/internal/domain/account"
	"github.com/banking-ledger-saga/internal/domain/money"
	"github.com/banking-ledger-saga/internal/domain/outbox"
	"github.com/banking-ledger-saga/internal/platform/persistence"
)

const uniqueViolationCode = "23505"

const accountColumns = `id, owner_id, account_number, account_type, balance, status, created_at, updated_at`

// AccountRepository implements account.Store for PostgreSQL
type AccountRepository struct {
	querier persistence.Querier
	tx      persistence.TxRunner
	outbox  outbox.Repository // nil disables event capture
	logger  *slog.Logger
}

// NewAccountRepository creates a new PostgreSQL account store
func NewAccountRepository(logger *slog.Logger, db *persistence.PostgresDB, outboxRepo outbox.Repository) account.Store {
	return &AccountRepository{
		querier: db.Pool(),
		tx:      db,
		outbox:  outboxRepo,
		logger:  logger,
	}
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanAccount(row rowScanner) (*account.Account, error) {
	var (
		acc         account.Account
		accountType string
		balance     int64
		status      string
	)
	if err := row.Scan(
		&acc.ID,
		&acc.OwnerID,
		&acc.AccountNumber,
		&accountType,
		&balance,
		&status,
		&acc.CreatedAt,
		&acc.UpdatedAt,
	); err != nil {
		return nil, err
	}
	acc.Type = account.Type(accountType)
	acc.Balance = money.FromCents(balance)
	acc.Status = account.Status(status)
	return &acc, nil
}

// Create stores a new account. A clashing account number returns ErrDuplicateAccountNumber.
func (r *AccountRepository) Create(ctx context.Context, acc *account.Account) error {
	query := `
		INSERT INTO accounts (` + accountColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err := r.querier.Exec(ctx, query,
		acc.ID,
		acc.OwnerID,
		acc.AccountNumber,
		string(acc.Type),
		acc.Balance.Cents(),
		string(acc.Status),
		acc.CreatedAt,
		acc.UpdatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolationCode {
			return account.ErrDuplicateAccountNumber
		}
		r.logger.Error("Failed to create account", "id", acc.ID.String(), "error", err)
		return fmt.Errorf("failed to create account: %w", err)
	}

	return nil
}

// GetByID retrieves an account by its ID
func (r *AccountRepository) GetByID(ctx context.Context, id uuid.UUID) (*account.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE id = $1`

	acc, err := scanAccount(r.querier.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, account.ErrAccountNotFound{AccountID: id}
		}
		r.logger.Error("Failed to get account", "id", id.String(), "error", err)
		return nil, fmt.Errorf("failed to get account: %w", err)
	}

	return acc, nil
}

// ListByOwner returns the owner's accounts, oldest first
func (r *AccountRepository) ListByOwner(ctx context.Context, ownerID string) ([]*account.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE owner_id = $1 ORDER BY created_at ASC`
	return r.list(ctx, "owner_id", ownerID, query, ownerID)
}

// ListAll returns every account, oldest first
func (r *AccountRepository) ListAll(ctx context.Context) ([]*account.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts ORDER BY created_at ASC`
	return r.list(ctx, "scope", "all", query)
}

func (r *AccountRepository) list(ctx context.Context, logKey, logValue, query string, args ...interface{}) ([]*account.Account, error) {
	rows, err := r.querier.Query(ctx, query, args...)
	if err != nil {
		r.logger.Error("Failed to list accounts", logKey, logValue, "error", err)
		return nil, fmt.Errorf("failed to list accounts: %w", err)
	}
	defer rows.Close()

	accounts := make([]*account.Account, 0)
	for rows.Next() {
		acc, err := scanAccount(rows)
		if err != nil {
			r.logger.Error("Failed to scan account", logKey, logValue, "error", err)
			return nil, fmt.Errorf("failed to scan account: %w", err)
		}
		accounts = append(accounts, acc)
	}

	if err := rows.Err(); err != nil {
		r.logger.Error("Error iterating over accounts", logKey, logValue, "error", err)
		return nil, fmt.Errorf("error iterating over accounts: %w", err)
	}

	return accounts, nil
}

// lockForUpdate reads the account holding a row lock until the transaction ends
func (r *AccountRepository) lockForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*account.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE id = $1 FOR UPDATE`

	acc, err := scanAccount(tx.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, account.ErrAccountNotFound{AccountID: id}
		}
		r.logger.Error("Failed to lock account", "id", id.String(), "error", err)
		return nil, fmt.Errorf("failed to lock account: %w", err)
	}
	return acc, nil
}

// UpdateBalance applies a credit or debit under a row lock and records a
// BalanceChanged outbox event in the same transaction
func (r *AccountRepository) UpdateBalance(ctx context.Context, id uuid.UUID, amount money.Amount, op account.Operation) (*account.Account, error) {
	if err := account.ValidateBalanceChange(op, amount); err != nil {
		return nil, err
	}

	var updated *account.Account
	err := r.tx.ExecuteTx(ctx, func(tx pgx.Tx) error {
		acc, err := r.lockForUpdate(ctx, tx, id)
		if err != nil {
			return err
		}

		before, err := acc.ApplyBalanceChange(op, amount)
		if err != nil {
			return err
		}

		query := `UPDATE accounts SET balance = $1, updated_at = $2 WHERE id = $3`
		if _, err := tx.Exec(ctx, query, acc.Balance.Cents(), acc.UpdatedAt, acc.ID); err != nil {
			r.logger.Error("Failed to update account balance", "id", id.String(), "error", err)
			return fmt.Errorf("failed to update account balance: %w", err)
		}

		if r.outbox != nil {
			msg, err := outbox.NewBalanceChangedMessage(acc, op, amount, before)
			if err != nil {
				return fmt.Errorf("failed to build balance event: %w", err)
			}
			if err := r.outbox.WithTx(tx).Create(ctx, msg); err != nil {
				return err
			}
		}

		updated = acc
		return nil
	})
	if err != nil {
		return nil, err
	}

	r.logger.Debug("Balance updated",
		"account_id", id.String(),
		"operation", string(op),
		"amount", amount.String(),
		"balance", updated.Balance.String(),
	)
	return updated, nil
}

// Close marks an active, zero-balance account as closed
func (r *AccountRepository) Close(ctx context.Context, id uuid.UUID) (*account.Account, error) {
	return r.mutate(ctx, id, "close account", func(acc *account.Account) error {
		return acc.Close()
	})
}

// UpdateFields applies an admin update to type and/or status
func (r *AccountRepository) UpdateFields(ctx context.Context, id uuid.UUID, update account.FieldUpdate) (*account.Account, error) {
	return r.mutate(ctx, id, "update account", func(acc *account.Account) error {
		return acc.ApplyUpdate(update)
	})
}

func (r *AccountRepository) mutate(ctx context.Context, id uuid.UUID, action string, apply func(acc *account.Account) error) (*account.Account, error) {
	var updated *account.Account
	err := r.tx.ExecuteTx(ctx, func(tx pgx.Tx) error {
		acc, err := r.lockForUpdate(ctx, tx, id)
		if err != nil {
			return err
		}
		if err := apply(acc); err != nil {
			return err
		}

		query := `UPDATE accounts SET account_type = $1, status = $2, updated_at = $3 WHERE id = $4`
		if _, err := tx.Exec(ctx, query, string(acc.Type), string(acc.Status), acc.UpdatedAt, acc.ID); err != nil {
			r.logger.Error("Failed to "+action, "id", id.String(), "error", err)
			return fmt.Errorf("failed to %s: %w", action, err)
		}

		updated = acc
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// compile-time check
var _ account.Store = (*AccountRepository)(nil)
