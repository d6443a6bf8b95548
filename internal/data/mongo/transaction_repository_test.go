package mongo

import (
	"context"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"

	"github.com/banking-ledger-saga/internal/domain/transaction"
)

const testNamespace = "banking.transactions"

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stdout, nil))
}

func toBSON(t *testing.T, doc transactionDocument) bson.D {
	t.Helper()
	raw, err := bson.Marshal(doc)
	require.NoError(t, err)
	var d bson.D
	require.NoError(t, bson.Unmarshal(raw, &d))
	return d
}

func storedTransfer(status transaction.Status) transactionDocument {
	ts := time.Date(2024, 6, 1, 9, 30, 0, 0, time.UTC)
	return transactionDocument{
		ID:            uuid.NewString(),
		Type:          string(transaction.TypeTransfer),
		AmountCents:   5000,
		Description:   "rent",
		Status:        string(status),
		FromAccountID: uuid.NewString(),
		ToAccountID:   uuid.NewString(),
		TransferType:  string(transaction.TransferInternal),
		InitiatedBy:   "user-1",
		Timestamp:     ts,
		UpdatedAt:     ts,
	}
}

func updateResult(matched int) bson.D {
	return mtest.CreateSuccessResponse(
		bson.E{Key: "n", Value: matched},
		bson.E{Key: "nModified", Value: matched},
	)
}

func TestTransactionRepository_Create(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("forces pending", func(mt *mtest.T) {
		repo := NewTransactionRepository(newTestLogger(), mt.DB)
		mt.AddMockResponses(mtest.CreateSuccessResponse())

		txn, err := repo.Create(context.Background(), transaction.Draft{
			Type:      transaction.TypeDeposit,
			Amount:    10000,
			AccountID: uuid.New(),
		})
		require.NoError(mt, err)
		assert.Equal(mt, transaction.StatusPending, txn.Status)
		assert.Equal(mt, "Deposit", txn.Description)
	})

	mt.Run("invalid draft never reaches the database", func(mt *mtest.T) {
		repo := NewTransactionRepository(newTestLogger(), mt.DB)
		_, err := repo.Create(context.Background(), transaction.Draft{Type: transaction.TypeDeposit, Amount: 0, AccountID: uuid.New()})
		assert.ErrorIs(mt, err, transaction.ErrInvalidAmount)
	})

	mt.Run("insert error", func(mt *mtest.T) {
		repo := NewTransactionRepository(newTestLogger(), mt.DB)
		mt.AddMockResponses(mtest.CreateCommandErrorResponse(mtest.CommandError{Code: 1, Message: "boom"}))

		_, err := repo.Create(context.Background(), transaction.Draft{Type: transaction.TypeDeposit, Amount: 1, AccountID: uuid.New()})
		require.Error(mt, err)
		assert.Contains(mt, err.Error(), "failed to create transaction")
	})
}

func TestTransactionRepository_GetByID(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("found", func(mt *mtest.T) {
		repo := NewTransactionRepository(newTestLogger(), mt.DB)
		doc := storedTransfer(transaction.StatusCompleted)
		mt.AddMockResponses(mtest.CreateCursorResponse(0, testNamespace, mtest.FirstBatch, toBSON(mt.T, doc)))

		txn, err := repo.GetByID(context.Background(), uuid.MustParse(doc.ID))
		require.NoError(mt, err)
		assert.Equal(mt, transaction.StatusCompleted, txn.Status)
		assert.Equal(mt, "50.00", txn.Amount.String())
		assert.Equal(mt, uuid.MustParse(doc.FromAccountID), txn.FromAccountID)
		assert.Equal(mt, uuid.Nil, txn.AccountID)
	})

	mt.Run("not found", func(mt *mtest.T) {
		repo := NewTransactionRepository(newTestLogger(), mt.DB)
		mt.AddMockResponses(mtest.CreateCursorResponse(0, testNamespace, mtest.FirstBatch))

		id := uuid.New()
		_, err := repo.GetByID(context.Background(), id)
		assert.ErrorIs(mt, err, transaction.ErrTransactionNotFound{TransactionID: id})
	})
}

func TestTransactionRepository_SetStatus(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("pending transitions", func(mt *mtest.T) {
		repo := NewTransactionRepository(newTestLogger(), mt.DB)
		mt.AddMockResponses(updateResult(1))

		err := repo.SetStatus(context.Background(), uuid.New(), transaction.StatusCompleted, "")
		assert.NoError(mt, err)
	})

	mt.Run("same terminal status is idempotent", func(mt *mtest.T) {
		repo := NewTransactionRepository(newTestLogger(), mt.DB)
		doc := storedTransfer(transaction.StatusFailed)
		mt.AddMockResponses(
			updateResult(0),
			mtest.CreateCursorResponse(0, testNamespace, mtest.FirstBatch, toBSON(mt.T, doc)),
		)

		err := repo.SetStatus(context.Background(), uuid.MustParse(doc.ID), transaction.StatusFailed, transaction.ReasonDebitFailed)
		assert.NoError(mt, err)
	})

	mt.Run("different terminal status conflicts", func(mt *mtest.T) {
		repo := NewTransactionRepository(newTestLogger(), mt.DB)
		doc := storedTransfer(transaction.StatusCompleted)
		mt.AddMockResponses(
			updateResult(0),
			mtest.CreateCursorResponse(0, testNamespace, mtest.FirstBatch, toBSON(mt.T, doc)),
		)

		err := repo.SetStatus(context.Background(), uuid.MustParse(doc.ID), transaction.StatusFailed, "")
		var conflict transaction.ErrStatusConflict
		require.ErrorAs(mt, err, &conflict)
		assert.Equal(mt, transaction.StatusCompleted, conflict.Current)
		assert.Equal(mt, transaction.StatusFailed, conflict.Requested)
	})

	mt.Run("missing", func(mt *mtest.T) {
		repo := NewTransactionRepository(newTestLogger(), mt.DB)
		mt.AddMockResponses(updateResult(0), mtest.CreateCursorResponse(0, testNamespace, mtest.FirstBatch))

		err := repo.SetStatus(context.Background(), uuid.New(), transaction.StatusCompleted, "")
		assert.ErrorIs(mt, err, transaction.ErrTransactionNotFound{})
	})

	mt.Run("pending is rejected", func(mt *mtest.T) {
		repo := NewTransactionRepository(newTestLogger(), mt.DB)
		err := repo.SetStatus(context.Background(), uuid.New(), transaction.StatusPending, "")
		assert.ErrorIs(mt, err, transaction.ErrInvalidStatus)
	})
}

func TestTransactionRepository_FlagInconsistency(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("failed transaction is flagged", func(mt *mtest.T) {
		repo := NewTransactionRepository(newTestLogger(), mt.DB)
		mt.AddMockResponses(updateResult(1))

		assert.NoError(mt, repo.FlagInconsistency(context.Background(), uuid.New(), "source debited, credit and reversal failed"))
	})

	mt.Run("completed transaction cannot be flagged", func(mt *mtest.T) {
		repo := NewTransactionRepository(newTestLogger(), mt.DB)
		doc := storedTransfer(transaction.StatusCompleted)
		mt.AddMockResponses(updateResult(0), mtest.CreateCursorResponse(0, testNamespace, mtest.FirstBatch, toBSON(mt.T, doc)))

		err := repo.FlagInconsistency(context.Background(), uuid.MustParse(doc.ID), "note")
		assert.IsType(mt, transaction.ErrNotFlaggable{}, err)
	})
}

func TestTransactionRepository_Lists(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("by accounts", func(mt *mtest.T) {
		repo := NewTransactionRepository(newTestLogger(), mt.DB)
		newer := storedTransfer(transaction.StatusCompleted)
		older := storedTransfer(transaction.StatusFailed)
		older.Timestamp = newer.Timestamp.Add(-time.Hour)
		mt.AddMockResponses(mtest.CreateCursorResponse(0, testNamespace, mtest.FirstBatch, toBSON(mt.T, newer), toBSON(mt.T, older)))

		txns, err := repo.ListByAccounts(context.Background(), []uuid.UUID{uuid.MustParse(newer.FromAccountID)}, 5)
		require.NoError(mt, err)
		require.Len(mt, txns, 2)
		assert.Equal(mt, newer.ID, txns[0].ID.String())
		assert.Equal(mt, older.ID, txns[1].ID.String())
	})

	mt.Run("no accounts skips the query", func(mt *mtest.T) {
		repo := NewTransactionRepository(newTestLogger(), mt.DB)
		txns, err := repo.ListByAccounts(context.Background(), nil, 0)
		require.NoError(mt, err)
		assert.Empty(mt, txns)
	})

	mt.Run("all", func(mt *mtest.T) {
		repo := NewTransactionRepository(newTestLogger(), mt.DB)
		mt.AddMockResponses(mtest.CreateCursorResponse(0, testNamespace, mtest.FirstBatch, toBSON(mt.T, storedTransfer(transaction.StatusPending))))

		txns, err := repo.ListAll(context.Background(), 0)
		require.NoError(mt, err)
		assert.Len(mt, txns, 1)
	})

	mt.Run("query error", func(mt *mtest.T) {
		repo := NewTransactionRepository(newTestLogger(), mt.DB)
		mt.AddMockResponses(mtest.CreateCommandErrorResponse(mtest.CommandError{Code: 2, Message: "bad query"}))

		_, err := repo.ListByAccount(context.Background(), uuid.New(), 10)
		require.Error(mt, err)
		assert.Contains(mt, err.Error(), "failed to query transactions")
	})
}
