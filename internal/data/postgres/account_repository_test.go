package postgres

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banking-ledger-saga/internal/domain/account"
	"github.com/banking-ledger-saga/internal/domain/money"
	"github.com/banking-ledger-saga/internal/platform/persistence"
)

const (
	selectByIDQuery = `SELECT (.+) FROM accounts WHERE id = \$1`
	lockQuery       = `SELECT (.+) FROM accounts WHERE id = \$1 FOR UPDATE`
	balanceUpdate   = `UPDATE accounts SET balance = \$1, updated_at = \$2 WHERE id = \$3`
	fieldsUpdate    = `UPDATE accounts SET account_type = \$1, status = \$2, updated_at = \$3 WHERE id = \$4`
	outboxInsert    = `INSERT INTO account_outbox`
)

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

func newMockStore(t *testing.T) (*AccountRepository, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)

	logger := newTestLogger()
	repo := &AccountRepository{
		querier: mock,
		tx:      persistence.WrapPool(logger, mock),
		outbox:  &OutboxRepository{querier: mock, logger: logger},
		logger:  logger,
	}
	return repo, mock
}

func testAccount(balance money.Amount, status account.Status) *account.Account {
	ts := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	return &account.Account{
		ID:            uuid.New(),
		OwnerID:       "user-1",
		AccountNumber: "ACC0A1B2C3D",
		Type:          account.TypeChecking,
		Balance:       balance,
		Status:        status,
		CreatedAt:     ts,
		UpdatedAt:     ts,
	}
}

func accountRows(accs ...*account.Account) *pgxmock.Rows {
	rows := pgxmock.NewRows([]string{"id", "owner_id", "account_number", "account_type", "balance", "status", "created_at", "updated_at"})
	for _, acc := range accs {
		rows.AddRow(acc.ID, acc.OwnerID, acc.AccountNumber, string(acc.Type), acc.Balance.Cents(), string(acc.Status), acc.CreatedAt, acc.UpdatedAt)
	}
	return rows
}

func TestAccountRepository_Create(t *testing.T) {
	ctx := context.Background()
	acc := testAccount(2500, account.StatusActive)
	insert := `INSERT INTO accounts \((.+)\) VALUES \(\$1, \$2, \$3, \$4, \$5, \$6, \$7, \$8\)`

	t.Run("success", func(t *testing.T) {
		repo, mock := newMockStore(t)
		mock.ExpectExec(insert).
			WithArgs(acc.ID, acc.OwnerID, acc.AccountNumber, "checking", int64(2500), "active", acc.CreatedAt, acc.UpdatedAt).
			WillReturnResult(pgxmock.NewResult("INSERT", 1))

		assert.NoError(t, repo.Create(ctx, acc))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("duplicate account number", func(t *testing.T) {
		repo, mock := newMockStore(t)
		mock.ExpectExec(insert).
			WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
			WillReturnError(&pgconn.PgError{Code: "23505"})

		err := repo.Create(ctx, acc)
		assert.ErrorIs(t, err, account.ErrDuplicateAccountNumber)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("db error", func(t *testing.T) {
		repo, mock := newMockStore(t)
		dbErr := errors.New("db error")
		mock.ExpectExec(insert).
			WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
			WillReturnError(dbErr)

		err := repo.Create(ctx, acc)
		assert.ErrorIs(t, err, dbErr)
		assert.Contains(t, err.Error(), "failed to create account")
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestAccountRepository_GetByID(t *testing.T) {
	ctx := context.Background()
	acc := testAccount(1000, account.StatusActive)

	t.Run("success", func(t *testing.T) {
		repo, mock := newMockStore(t)
		mock.ExpectQuery(selectByIDQuery).WithArgs(acc.ID).WillReturnRows(accountRows(acc))

		got, err := repo.GetByID(ctx, acc.ID)
		require.NoError(t, err)
		assert.Equal(t, acc, got)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("not found", func(t *testing.T) {
		repo, mock := newMockStore(t)
		mock.ExpectQuery(selectByIDQuery).WithArgs(acc.ID).WillReturnError(pgx.ErrNoRows)

		got, err := repo.GetByID(ctx, acc.ID)
		assert.Nil(t, got)
		var notFound account.ErrAccountNotFound
		require.ErrorAs(t, err, &notFound)
		assert.Equal(t, acc.ID, notFound.AccountID)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("db error", func(t *testing.T) {
		repo, mock := newMockStore(t)
		dbErr := errors.New("some db error")
		mock.ExpectQuery(selectByIDQuery).WithArgs(acc.ID).WillReturnError(dbErr)

		_, err := repo.GetByID(ctx, acc.ID)
		assert.ErrorIs(t, err, dbErr)
		assert.Contains(t, err.Error(), "failed to get account")
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestAccountRepository_ListByOwner(t *testing.T) {
	ctx := context.Background()
	first := testAccount(100, account.StatusActive)
	second := testAccount(0, account.StatusClosed)

	t.Run("success", func(t *testing.T) {
		repo, mock := newMockStore(t)
		mock.ExpectQuery(`FROM accounts WHERE owner_id = \$1 ORDER BY created_at ASC`).
			WithArgs("user-1").
			WillReturnRows(accountRows(first, second))

		accounts, err := repo.ListByOwner(ctx, "user-1")
		require.NoError(t, err)
		assert.Equal(t, []*account.Account{first, second}, accounts)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("empty", func(t *testing.T) {
		repo, mock := newMockStore(t)
		mock.ExpectQuery(`FROM accounts WHERE owner_id = \$1`).
			WithArgs("nobody").
			WillReturnRows(accountRows())

		accounts, err := repo.ListByOwner(ctx, "nobody")
		require.NoError(t, err)
		assert.NotNil(t, accounts)
		assert.Empty(t, accounts)
	})
}

func TestAccountRepository_ListAll(t *testing.T) {
	repo, mock := newMockStore(t)
	dbErr := errors.New("connection reset")
	mock.ExpectQuery(`FROM accounts ORDER BY created_at ASC`).WillReturnError(dbErr)

	_, err := repo.ListAll(context.Background())
	assert.ErrorIs(t, err, dbErr)
	assert.Contains(t, err.Error(), "failed to list accounts")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAccountRepository_UpdateBalance(t *testing.T) {
	ctx := context.Background()

	t.Run("debit commits balance and outbox event", func(t *testing.T) {
		repo, mock := newMockStore(t)
		acc := testAccount(10000, account.StatusActive)

		mock.ExpectBegin()
		mock.ExpectQuery(lockQuery).WithArgs(acc.ID).WillReturnRows(accountRows(acc))
		mock.ExpectExec(balanceUpdate).
			WithArgs(int64(7500), pgxmock.AnyArg(), acc.ID).
			WillReturnResult(pgxmock.NewResult("UPDATE", 1))
		mock.ExpectQuery(outboxInsert).
			WithArgs(pgxmock.AnyArg(), acc.ID, "BalanceChanged", pgxmock.AnyArg(), "PENDING", pgxmock.AnyArg()).
			WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(int64(42)))
		mock.ExpectCommit()

		updated, err := repo.UpdateBalance(ctx, acc.ID, 2500, account.OperationDebit)
		require.NoError(t, err)
		assert.Equal(t, money.Amount(7500), updated.Balance)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("credit", func(t *testing.T) {
		repo, mock := newMockStore(t)
		acc := testAccount(0, account.StatusActive)

		mock.ExpectBegin()
		mock.ExpectQuery(lockQuery).WithArgs(acc.ID).WillReturnRows(accountRows(acc))
		mock.ExpectExec(balanceUpdate).
			WithArgs(int64(10000), pgxmock.AnyArg(), acc.ID).
			WillReturnResult(pgxmock.NewResult("UPDATE", 1))
		mock.ExpectQuery(outboxInsert).
			WithArgs(pgxmock.AnyArg(), acc.ID, "BalanceChanged", pgxmock.AnyArg(), "PENDING", pgxmock.AnyArg()).
			WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(int64(1)))
		mock.ExpectCommit()

		updated, err := repo.UpdateBalance(ctx, acc.ID, 10000, account.OperationCredit)
		require.NoError(t, err)
		assert.Equal(t, "100.00", updated.Balance.String())
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("insufficient funds rolls back", func(t *testing.T) {
		repo, mock := newMockStore(t)
		acc := testAccount(10000, account.StatusActive)

		mock.ExpectBegin()
		mock.ExpectQuery(lockQuery).WithArgs(acc.ID).WillReturnRows(accountRows(acc))
		mock.ExpectRollback()

		_, err := repo.UpdateBalance(ctx, acc.ID, 15000, account.OperationDebit)
		assert.ErrorIs(t, err, account.ErrInsufficientFunds{AccountID: acc.ID})
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("closed account rolls back", func(t *testing.T) {
		repo, mock := newMockStore(t)
		acc := testAccount(0, account.StatusClosed)

		mock.ExpectBegin()
		mock.ExpectQuery(lockQuery).WithArgs(acc.ID).WillReturnRows(accountRows(acc))
		mock.ExpectRollback()

		_, err := repo.UpdateBalance(ctx, acc.ID, 100, account.OperationCredit)
		assert.ErrorIs(t, err, account.ErrInactiveAccount{})
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("missing account", func(t *testing.T) {
		repo, mock := newMockStore(t)
		id := uuid.New()

		mock.ExpectBegin()
		mock.ExpectQuery(lockQuery).WithArgs(id).WillReturnError(pgx.ErrNoRows)
		mock.ExpectRollback()

		_, err := repo.UpdateBalance(ctx, id, 100, account.OperationDebit)
		assert.ErrorIs(t, err, account.ErrAccountNotFound{AccountID: id})
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("outbox failure rolls back the balance change", func(t *testing.T) {
		repo, mock := newMockStore(t)
		acc := testAccount(500, account.StatusActive)
		dbErr := errors.New("outbox insert failed")

		mock.ExpectBegin()
		mock.ExpectQuery(lockQuery).WithArgs(acc.ID).WillReturnRows(accountRows(acc))
		mock.ExpectExec(balanceUpdate).
			WithArgs(int64(400), pgxmock.AnyArg(), acc.ID).
			WillReturnResult(pgxmock.NewResult("UPDATE", 1))
		mock.ExpectQuery(outboxInsert).
			WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
			WillReturnError(dbErr)
		mock.ExpectRollback()

		_, err := repo.UpdateBalance(ctx, acc.ID, 100, account.OperationDebit)
		assert.ErrorIs(t, err, dbErr)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("request shape is checked before any query", func(t *testing.T) {
		repo, mock := newMockStore(t)

		_, err := repo.UpdateBalance(ctx, uuid.New(), 0, account.OperationDebit)
		assert.ErrorIs(t, err, account.ErrInvalidAmount)

		_, err = repo.UpdateBalance(ctx, uuid.New(), 100, account.Operation("refund"))
		assert.ErrorIs(t, err, account.ErrInvalidOperation)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestAccountRepository_Close(t *testing.T) {
	ctx := context.Background()

	t.Run("success", func(t *testing.T) {
		repo, mock := newMockStore(t)
		acc := testAccount(0, account.StatusActive)

		mock.ExpectBegin()
		mock.ExpectQuery(lockQuery).WithArgs(acc.ID).WillReturnRows(accountRows(acc))
		mock.ExpectExec(fieldsUpdate).
			WithArgs("checking", "closed", pgxmock.AnyArg(), acc.ID).
			WillReturnResult(pgxmock.NewResult("UPDATE", 1))
		mock.ExpectCommit()

		closed, err := repo.Close(ctx, acc.ID)
		require.NoError(t, err)
		assert.Equal(t, account.StatusClosed, closed.Status)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("non-zero balance", func(t *testing.T) {
		repo, mock := newMockStore(t)
		acc := testAccount(100, account.StatusActive)

		mock.ExpectBegin()
		mock.ExpectQuery(lockQuery).WithArgs(acc.ID).WillReturnRows(accountRows(acc))
		mock.ExpectRollback()

		_, err := repo.Close(ctx, acc.ID)
		assert.ErrorIs(t, err, account.ErrNonZeroBalance{})
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("already closed", func(t *testing.T) {
		repo, mock := newMockStore(t)
		acc := testAccount(0, account.StatusClosed)

		mock.ExpectBegin()
		mock.ExpectQuery(lockQuery).WithArgs(acc.ID).WillReturnRows(accountRows(acc))
		mock.ExpectRollback()

		_, err := repo.Close(ctx, acc.ID)
		assert.ErrorIs(t, err, account.ErrAlreadyClosed{})
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestAccountRepository_UpdateFields(t *testing.T) {
	repo, mock := newMockStore(t)
	acc := testAccount(300, account.StatusActive)
	savings := account.TypeSavings

	mock.ExpectBegin()
	mock.ExpectQuery(lockQuery).WithArgs(acc.ID).WillReturnRows(accountRows(acc))
	mock.ExpectExec(fieldsUpdate).
		WithArgs("savings", "active", pgxmock.AnyArg(), acc.ID).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectCommit()

	updated, err := repo.UpdateFields(context.Background(), acc.ID, account.FieldUpdate{Type: &savings})
	require.NoError(t, err)
	assert.Equal(t, account.TypeSavings, updated.Type)
	assert.Equal(t, money.Amount(300), updated.Balance)
	assert.NoError(t, mock.ExpectationsWereMet())
}
