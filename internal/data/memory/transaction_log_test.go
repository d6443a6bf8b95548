package memory

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banking-ledger-saga/internal/domain/transaction"
)

func TestTransactionLog_StatusLifecycle(t *testing.T) {
	ctx := context.Background()
	log := NewTransactionLog(newTestLogger())

	txn, err := log.Create(ctx, transaction.Draft{Type: transaction.TypeDeposit, Amount: 100, AccountID: uuid.New()})
	require.NoError(t, err)
	assert.Equal(t, transaction.StatusPending, txn.Status)

	require.NoError(t, log.SetStatus(ctx, txn.ID, transaction.StatusCompleted, ""))
	assert.NoError(t, log.SetStatus(ctx, txn.ID, transaction.StatusCompleted, ""), "repeat is a no-op")

	err = log.SetStatus(ctx, txn.ID, transaction.StatusFailed, transaction.ReasonDebitFailed)
	assert.ErrorIs(t, err, transaction.ErrStatusConflict{})

	got, err := log.GetByID(ctx, txn.ID)
	require.NoError(t, err)
	assert.Equal(t, transaction.StatusCompleted, got.Status)

	assert.ErrorIs(t, log.SetStatus(ctx, txn.ID, transaction.StatusPending, ""), transaction.ErrInvalidStatus)
	assert.ErrorIs(t, log.SetStatus(ctx, uuid.New(), transaction.StatusFailed, ""), transaction.ErrTransactionNotFound{})
}

func TestTransactionLog_FlagInconsistency(t *testing.T) {
	ctx := context.Background()
	log := NewTransactionLog(newTestLogger())
	txn, err := log.Create(ctx, transaction.Draft{Type: transaction.TypeTransfer, Amount: 5000, FromAccountID: uuid.New(), ToAccountID: uuid.New()})
	require.NoError(t, err)

	assert.IsType(t, transaction.ErrNotFlaggable{}, log.FlagInconsistency(ctx, txn.ID, "note"))

	require.NoError(t, log.SetStatus(ctx, txn.ID, transaction.StatusFailed, transaction.ReasonCreditFailedUnreversed))
	require.NoError(t, log.FlagInconsistency(ctx, txn.ID, "source debited, credit and reversal failed"))

	got, _ := log.GetByID(ctx, txn.ID)
	assert.True(t, got.Inconsistent)
	assert.Equal(t, transaction.ReasonCreditFailedUnreversed, got.FailureReason)
}

func TestTransactionLog_Queries(t *testing.T) {
	ctx := context.Background()
	log := NewTransactionLog(newTestLogger())
	a, b, c := uuid.New(), uuid.New(), uuid.New()

	first, _ := log.Create(ctx, transaction.Draft{Type: transaction.TypeDeposit, Amount: 100, AccountID: a})
	second, _ := log.Create(ctx, transaction.Draft{Type: transaction.TypeTransfer, Amount: 50, FromAccountID: a, ToAccountID: b})
	third, _ := log.Create(ctx, transaction.Draft{Type: transaction.TypeWithdrawal, Amount: 10, AccountID: c})

	byA, err := log.ListByAccount(ctx, a, 0)
	require.NoError(t, err)
	require.Len(t, byA, 2)
	assert.Equal(t, second.ID, byA[0].ID, "newest first")
	assert.Equal(t, first.ID, byA[1].ID)

	byB, _ := log.ListByAccount(ctx, b, 0)
	require.Len(t, byB, 1)
	assert.Equal(t, second.ID, byB[0].ID, "destination leg matches")

	recent, _ := log.ListByAccounts(ctx, []uuid.UUID{a, c}, 2)
	require.Len(t, recent, 2)
	assert.Equal(t, third.ID, recent[0].ID)

	all, _ := log.ListAll(ctx, 0)
	assert.Len(t, all, 3)

	none, _ := log.ListByAccounts(ctx, nil, 0)
	assert.Empty(t, none)
}

func TestTransactionLog_ConcurrentCreatesKeepTimestampOrder(t *testing.T) {
	ctx := context.Background()
	log := NewTransactionLog(newTestLogger())

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := log.Create(ctx, transaction.Draft{Type: transaction.TypeDeposit, Amount: 100, AccountID: uuid.New()})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	all, err := log.ListAll(ctx, 0)
	require.NoError(t, err)
	require.Len(t, all, 50)
	for i := 1; i < len(all); i++ {
		assert.False(t, all[i].Timestamp.After(all[i-1].Timestamp),
			"record %d is newer than the one listed before it", i)
	}
}

func TestTransactionLog_TimestampsNeverGoBackwards(t *testing.T) {
	ctx := context.Background()
	log := NewTransactionLog(newTestLogger())
	future := time.Now().UTC().Add(time.Hour)
	log.last = future

	txn, err := log.Create(ctx, transaction.Draft{Type: transaction.TypeDeposit, Amount: 100, AccountID: uuid.New()})
	require.NoError(t, err)
	assert.Equal(t, future, txn.Timestamp)

	got, err := log.GetByID(ctx, txn.ID)
	require.NoError(t, err)
	assert.Equal(t, future, got.Timestamp)
}
