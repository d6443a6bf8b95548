package memory

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/banking-ledger-saga/internal/domain/transaction"
)

// TransactionLog implements transaction.Log in memory. Records are kept in
// insertion order, which is also timestamp order.
type TransactionLog struct {
	mu     sync.RWMutex
	byID   map[uuid.UUID]*transaction.Transaction
	order  []uuid.UUID
	last   time.Time
	logger *slog.Logger
}

func NewTransactionLog(logger *slog.Logger) *TransactionLog {
	return &TransactionLog{
		byID:   make(map[uuid.UUID]*transaction.Transaction),
		logger: logger,
	}
}

func (l *TransactionLog) Create(ctx context.Context, draft transaction.Draft) (*transaction.Transaction, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	// stamped under the lock so insertion order matches timestamp order
	txn, err := transaction.NewFromDraft(draft)
	if err != nil {
		return nil, err
	}
	// the wall clock can step backwards
	if txn.Timestamp.Before(l.last) {
		txn.Timestamp = l.last
		txn.UpdatedAt = l.last
	}
	l.last = txn.Timestamp

	stored := *txn
	l.byID[txn.ID] = &stored
	l.order = append(l.order, txn.ID)
	return txn, nil
}

func (l *TransactionLog) SetStatus(ctx context.Context, id uuid.UUID, status transaction.Status, reason string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	txn, ok := l.byID[id]
	if !ok {
		return transaction.ErrTransactionNotFound{TransactionID: id}
	}

	if _, err := txn.Transition(status, reason); err != nil {
		if conflict, isConflict := err.(transaction.ErrStatusConflict); isConflict {
			l.logger.Warn("Rejected transaction status overwrite",
				"transaction_id", id.String(),
				"current", string(conflict.Current),
				"requested", string(conflict.Requested))
		}
		return err
	}
	return nil
}

func (l *TransactionLog) FlagInconsistency(ctx context.Context, id uuid.UUID, note string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	txn, ok := l.byID[id]
	if !ok {
		return transaction.ErrTransactionNotFound{TransactionID: id}
	}
	return txn.Flag(note)
}

func (l *TransactionLog) GetByID(ctx context.Context, id uuid.UUID) (*transaction.Transaction, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	txn, ok := l.byID[id]
	if !ok {
		return nil, transaction.ErrTransactionNotFound{TransactionID: id}
	}
	clone := *txn
	return &clone, nil
}

func (l *TransactionLog) ListByAccount(ctx context.Context, accountID uuid.UUID, limit int) ([]*transaction.Transaction, error) {
	return l.ListByAccounts(ctx, []uuid.UUID{accountID}, limit)
}

func (l *TransactionLog) ListByAccounts(ctx context.Context, accountIDs []uuid.UUID, limit int) ([]*transaction.Transaction, error) {
	ids := make(map[uuid.UUID]struct{}, len(accountIDs))
	for _, id := range accountIDs {
		ids[id] = struct{}{}
	}
	return l.newestFirst(limit, func(txn *transaction.Transaction) bool {
		return txn.Touches(ids)
	}), nil
}

func (l *TransactionLog) ListAll(ctx context.Context, limit int) ([]*transaction.Transaction, error) {
	return l.newestFirst(limit, func(*transaction.Transaction) bool { return true }), nil
}

func (l *TransactionLog) newestFirst(limit int, match func(txn *transaction.Transaction) bool) []*transaction.Transaction {
	l.mu.RLock()
	defer l.mu.RUnlock()

	result := make([]*transaction.Transaction, 0)
	for i := len(l.order) - 1; i >= 0; i-- {
		txn := l.byID[l.order[i]]
		if !match(txn) {
			continue
		}
		clone := *txn
		result = append(result, &clone)
		if limit > 0 && len(result) == limit {
			break
		}
	}
	return result
}

var _ transaction.Log = (*TransactionLog)(nil)
