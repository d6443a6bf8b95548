package account

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/banking-ledger-saga/internal/domain/money"
	"github.com/banking-ledger-saga/internal/domain/shared"
)

// Store is the ledger of record for accounts and balances.
// UpdateBalance, Close and UpdateFields are serialized per account.
type Store interface {
	Create(ctx context.Context, account *Account) error
	GetByID(ctx context.Context, id uuid.UUID) (*Account, error)
	ListByOwner(ctx context.Context, ownerID string) ([]*Account, error)
	ListAll(ctx context.Context) ([]*Account, error)
	UpdateBalance(ctx context.Context, id uuid.UUID, amount money.Amount, op Operation) (*Account, error)
	Close(ctx context.Context, id uuid.UUID) (*Account, error)
	UpdateFields(ctx context.Context, id uuid.UUID, update FieldUpdate) (*Account, error)
}

// Validation errors, all of which are invalid requests
var (
	ErrInvalidAmount      = fmt.Errorf("%w: amount must be positive", shared.ErrInvalidRequest)
	ErrInvalidOperation   = fmt.Errorf("%w: operation must be credit or debit", shared.ErrInvalidRequest)
	ErrInvalidAccountType = fmt.Errorf("%w: account type must be checking, savings or fixed_deposit", shared.ErrInvalidRequest)
	ErrInvalidStatus      = fmt.Errorf("%w: status must be active or closed", shared.ErrInvalidRequest)
	ErrEmptyOwner         = fmt.Errorf("%w: owner cannot be empty", shared.ErrInvalidRequest)
)

// ErrDuplicateAccountNumber indicates an account number collision on create
var ErrDuplicateAccountNumber = errors.New("account number already exists")

// ErrAccountNotFound indicates missing account
type ErrAccountNotFound struct {
	AccountID uuid.UUID
}

func (e ErrAccountNotFound) Error() string {
	return "account not found: " + e.AccountID.String()
}

// Is matches any ErrAccountNotFound when the target carries no id
func (e ErrAccountNotFound) Is(target error) bool {
	t, ok := target.(ErrAccountNotFound)
	if !ok {
		return false
	}
	return t.AccountID == uuid.Nil || e.AccountID == t.AccountID
}

// ErrInactiveAccount indicates a mutation against a closed account
type ErrInactiveAccount struct {
	AccountID uuid.UUID
}

func (e ErrInactiveAccount) Error() string {
	return "account is not active: " + e.AccountID.String()
}

func (e ErrInactiveAccount) Is(target error) bool {
	t, ok := target.(ErrInactiveAccount)
	if !ok {
		return false
	}
	return t.AccountID == uuid.Nil || e.AccountID == t.AccountID
}

// ErrInsufficientFunds indicates a debit larger than the balance
type ErrInsufficientFunds struct {
	AccountID uuid.UUID
}

func (e ErrInsufficientFunds) Error() string {
	return "insufficient funds in account: " + e.AccountID.String()
}

func (e ErrInsufficientFunds) Is(target error) bool {
	t, ok := target.(ErrInsufficientFunds)
	if !ok {
		return false
	}
	return t.AccountID == uuid.Nil || e.AccountID == t.AccountID
}

// ErrAlreadyClosed indicates a close or update of a closed account
type ErrAlreadyClosed struct {
	AccountID uuid.UUID
}

func (e ErrAlreadyClosed) Error() string {
	return "account is already closed: " + e.AccountID.String()
}

func (e ErrAlreadyClosed) Is(target error) bool {
	t, ok := target.(ErrAlreadyClosed)
	if !ok {
		return false
	}
	return t.AccountID == uuid.Nil || e.AccountID == t.AccountID
}

// ErrNonZeroBalance indicates a close attempt while funds remain
type ErrNonZeroBalance struct {
	AccountID uuid.UUID
}

func (e ErrNonZeroBalance) Error() string {
	return "account must have zero balance before closing: " + e.AccountID.String()
}

func (e ErrNonZeroBalance) Is(target error) bool {
	t, ok := target.(ErrNonZeroBalance)
	if !ok {
		return false
	}
	return t.AccountID == uuid.Nil || e.AccountID == t.AccountID
}
