package service

import (
	"context"

	"github.com/google/uuid"

	"github.com/banking-ledger-saga/internal/domain/account"
	"github.com/banking-ledger-saga/internal/domain/money"
	"github.com/banking-ledger-saga/internal/identity"
)

// AccountService is the application layer over the ledger store.
// Principal-scoped calls return ErrAccountNotFound before ErrAccessDenied.
type AccountService interface {
	ListOwn(ctx context.Context, p *identity.Principal) ([]*account.Account, error)
	Create(ctx context.Context, p *identity.Principal, accountType account.Type, initialDeposit money.Amount) (*account.Account, error)
	Details(ctx context.Context, p *identity.Principal, id uuid.UUID) (*account.Account, error)
	Close(ctx context.Context, p *identity.Principal, id uuid.UUID) (*account.Account, error)

	// Admin operations; the caller is expected to have checked the role
	ListAll(ctx context.Context) ([]*account.Account, error)
	ListByUser(ctx context.Context, userID string) ([]*account.Account, error)
	Update(ctx context.Context, id uuid.UUID, update account.FieldUpdate) (*account.Account, error)

	// Service-to-service operations
	UpdateBalance(ctx context.Context, id uuid.UUID, amount money.Amount, op account.Operation) (*account.Account, error)
	Validate(ctx context.Context, id uuid.UUID) (*account.Validation, error)
}
