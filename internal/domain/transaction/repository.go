package transaction

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/banking-ledger-saga/internal/domain/shared"
)

// Log is the append-only record of money-movement attempts.
// Records are never deleted and move out of pending exactly once.
type Log interface {
	Create(ctx context.Context, draft Draft) (*Transaction, error)
	SetStatus(ctx context.Context, id uuid.UUID, status Status, reason string) error
	FlagInconsistency(ctx context.Context, id uuid.UUID, note string) error
	GetByID(ctx context.Context, id uuid.UUID) (*Transaction, error)
	// List queries match any leg and are newest first; limit <= 0 is unlimited
	ListByAccount(ctx context.Context, accountID uuid.UUID, limit int) ([]*Transaction, error)
	ListByAccounts(ctx context.Context, accountIDs []uuid.UUID, limit int) ([]*Transaction, error)
	ListAll(ctx context.Context, limit int) ([]*Transaction, error)
}

var (
	ErrInvalidAmount = fmt.Errorf("%w: amount must be positive", shared.ErrInvalidRequest)
	ErrSameAccount   = fmt.Errorf("%w: cannot transfer to the same account", shared.ErrInvalidRequest)
	ErrInvalidStatus = errors.New("status must be completed or failed")
)

// ErrTransactionNotFound indicates missing transaction
type ErrTransactionNotFound struct {
	TransactionID uuid.UUID
}

func (e ErrTransactionNotFound) Error() string {
	return "transaction not found: " + e.TransactionID.String()
}

// Is implements the errors.Is interface for ErrTransactionNotFound
func (e ErrTransactionNotFound) Is(target error) bool {
	t, ok := target.(ErrTransactionNotFound)
	if !ok {
		return false
	}
	// If the target TransactionID is empty, consider it a match for any ErrTransactionNotFound
	if t.TransactionID == uuid.Nil {
		return true
	}
	return e.TransactionID == t.TransactionID
}

// ErrStatusConflict indicates an attempt to overwrite a different terminal status
type ErrStatusConflict struct {
	TransactionID uuid.UUID
	Current       Status
	Requested     Status
}

func (e ErrStatusConflict) Error() string {
	return fmt.Sprintf("transaction %s is already %s, cannot set %s", e.TransactionID, e.Current, e.Requested)
}

func (e ErrStatusConflict) Is(target error) bool {
	t, ok := target.(ErrStatusConflict)
	if !ok {
		return false
	}
	return t.TransactionID == uuid.Nil || e.TransactionID == t.TransactionID
}

// ErrNotFlaggable indicates an inconsistency flag on a transaction that has not failed
type ErrNotFlaggable struct {
	TransactionID uuid.UUID
	Status        Status
}

func (e ErrNotFlaggable) Error() string {
	return fmt.Sprintf("transaction %s is %s, only failed transactions can be flagged", e.TransactionID, e.Status)
}

// ErrInvalidDestination indicates a transfer to an account that is missing or not active
type ErrInvalidDestination struct {
	AccountID uuid.UUID
	Reason    string
}

func (e ErrInvalidDestination) Error() string {
	if e.Reason == "" {
		return "invalid destination account: " + e.AccountID.String()
	}
	return fmt.Sprintf("invalid destination account %s: %s", e.AccountID, e.Reason)
}

func (e ErrInvalidDestination) Is(target error) bool {
	t, ok := target.(ErrInvalidDestination)
	if !ok {
		return false
	}
	return t.AccountID == uuid.Nil || e.AccountID == t.AccountID
}

func (e ErrInvalidDestination) Unwrap() error {
	return shared.ErrInvalidRequest
}

// PartialFailureError reports a transfer whose source was debited while
// neither the credit nor its reversal could be confirmed
type PartialFailureError struct {
	TransactionID   uuid.UUID
	CreditErr       error
	CompensationErr error
}

func (e *PartialFailureError) Error() string {
	return fmt.Sprintf("transfer %s debited but not credited or reversed: credit: %v; reversal: %v",
		e.TransactionID, e.CreditErr, e.CompensationErr)
}

func (e *PartialFailureError) Unwrap() error {
	return shared.ErrPartialFailure
}
