package account

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/banking-ledger-saga/internal/domain/money"
	"github.com/banking-ledger-saga/internal/domain/shared"
)

// Type is the product kind of an account
type Type string

const (
	TypeChecking     Type = "checking"
	TypeSavings      Type = "savings"
	TypeFixedDeposit Type = "fixed_deposit"
)

func (t Type) Valid() bool {
	switch t {
	case TypeChecking, TypeSavings, TypeFixedDeposit:
		return true
	}
	return false
}

// Status is the lifecycle state of an account. Closing is one-way.
type Status string

const (
	StatusActive Status = "active"
	StatusClosed Status = "closed"
)

func (s Status) Valid() bool {
	return s == StatusActive || s == StatusClosed
}

// Operation is the direction of a balance change
type Operation string

const (
	OperationCredit Operation = "credit"
	OperationDebit  Operation = "debit"
)

func (o Operation) Valid() bool {
	return o == OperationCredit || o == OperationDebit
}

// Account represents a bank account. Balance never drops below zero.
type Account struct {
	ID            uuid.UUID    `json:"id"`
	OwnerID       string       `json:"owner_id"`
	AccountNumber string       `json:"account_number"`
	Type          Type         `json:"account_type"`
	Balance       money.Amount `json:"balance"`
	Status        Status       `json:"status"`
	CreatedAt     time.Time    `json:"created_at"`
	UpdatedAt     time.Time    `json:"updated_at"`
}

// FieldUpdate carries the admin-editable attributes; nil means unchanged
type FieldUpdate struct {
	Type   *Type
	Status *Status
}

// NewAccount creates an active account funded with the initial deposit
func NewAccount(ownerID string, accountType Type, initialDeposit money.Amount) (*Account, error) {
	if strings.TrimSpace(ownerID) == "" {
		return nil, ErrEmptyOwner
	}
	if !accountType.Valid() {
		return nil, ErrInvalidAccountType
	}
	if initialDeposit < 0 {
		return nil, fmt.Errorf("%w: initial deposit cannot be negative", ErrInvalidAmount)
	}

	now := time.Now().UTC()
	return &Account{
		ID:            uuid.New(),
		OwnerID:       ownerID,
		AccountNumber: NewAccountNumber(),
		Type:          accountType,
		Balance:       initialDeposit,
		Status:        StatusActive,
		CreatedAt:     now,
		UpdatedAt:     now,
	}, nil
}

// NewAccountNumber returns "ACC" followed by eight uppercase hex characters
func NewAccountNumber() string {
	return "ACC" + strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
}

// MaskedNumber hides all but the last four characters of the account number
func (a *Account) MaskedNumber() string {
	n := a.AccountNumber
	if len(n) > 4 {
		n = n[len(n)-4:]
	}
	return "****" + n
}

func (a *Account) IsActive() bool {
	return a.Status == StatusActive
}

// OwnedBy reports whether userID owns the account
func (a *Account) OwnedBy(userID string) bool {
	return userID != "" && a.OwnerID == userID
}

// ValidateBalanceChange checks the request shape before any account lookup
func ValidateBalanceChange(op Operation, amount money.Amount) error {
	if amount <= 0 {
		return ErrInvalidAmount
	}
	if !op.Valid() {
		return ErrInvalidOperation
	}
	return nil
}

// ApplyBalanceChange mutates the balance and returns the balance before the change
func (a *Account) ApplyBalanceChange(op Operation, amount money.Amount) (money.Amount, error) {
	if err := ValidateBalanceChange(op, amount); err != nil {
		return 0, err
	}
	if !a.IsActive() {
		return 0, ErrInactiveAccount{AccountID: a.ID}
	}

	before := a.Balance
	var after money.Amount
	var err error
	switch op {
	case OperationCredit:
		after, err = before.Add(amount)
		if err != nil {
			return 0, fmt.Errorf("%w: balance overflow", ErrInvalidAmount)
		}
	case OperationDebit:
		if before < amount {
			return 0, ErrInsufficientFunds{AccountID: a.ID}
		}
		after = before - amount
	}

	a.Balance = after
	a.UpdatedAt = time.Now().UTC()
	return before, nil
}

// Close moves the account to closed. Only an active, empty account can close.
func (a *Account) Close() error {
	if a.Status == StatusClosed {
		return ErrAlreadyClosed{AccountID: a.ID}
	}
	if a.Balance != 0 {
		return ErrNonZeroBalance{AccountID: a.ID}
	}
	a.Status = StatusClosed
	a.UpdatedAt = time.Now().UTC()
	return nil
}

// ApplyUpdate applies an admin field update. Moving to closed follows Close.
func (a *Account) ApplyUpdate(update FieldUpdate) error {
	if update.Type == nil && update.Status == nil {
		return fmt.Errorf("%w: no fields to update", shared.ErrInvalidRequest)
	}
	if update.Type != nil && !update.Type.Valid() {
		return ErrInvalidAccountType
	}
	if update.Status != nil && !update.Status.Valid() {
		return ErrInvalidStatus
	}
	if a.Status == StatusClosed {
		return ErrAlreadyClosed{AccountID: a.ID}
	}

	if update.Status != nil && *update.Status == StatusClosed {
		if a.Balance != 0 {
			return ErrNonZeroBalance{AccountID: a.ID}
		}
	}

	if update.Type != nil {
		a.Type = *update.Type
	}
	if update.Status != nil {
		a.Status = *update.Status
	}
	a.UpdatedAt = time.Now().UTC()
	return nil
}

// Validation answers whether an account can receive a transfer
type Validation struct {
	Valid   bool
	Message string
	Account *Account
}
