package coordinator

import (
	"context"

	"github.com/google/uuid"

	"github.com/banking-ledger-saga/internal/domain/account"
	"github.com/banking-ledger-saga/internal/domain/money"
	"github.com/banking-ledger-saga/internal/domain/transaction"
	"github.com/banking-ledger-saga/internal/identity"
)

// AccountGateway is the coordinator's view of the account service
type AccountGateway interface {
	// Details returns the account if the principal may act on it
	Details(ctx context.Context, p *identity.Principal, id uuid.UUID) (*account.Account, error)
	Validate(ctx context.Context, id uuid.UUID) (*account.Validation, error)
	UpdateBalance(ctx context.Context, id uuid.UUID, amount money.Amount, op account.Operation) (*account.Account, error)
}

// Service moves money. On failure the returned transaction, when not nil,
// is the failed record of the attempt.
type Service interface {
	Deposit(ctx context.Context, p *identity.Principal, req MovementRequest) (*transaction.Transaction, error)
	Withdraw(ctx context.Context, p *identity.Principal, req MovementRequest) (*transaction.Transaction, error)
	Transfer(ctx context.Context, p *identity.Principal, req TransferRequest) (*transaction.Transaction, error)
}

// MovementRequest is a deposit into or withdrawal from a single account
type MovementRequest struct {
	AccountID   uuid.UUID
	Amount      money.Amount
	Description string
}

// TransferRequest moves funds between two accounts
type TransferRequest struct {
	FromAccountID uuid.UUID
	ToAccountID   uuid.UUID
	Amount        money.Amount
	TransferType  transaction.TransferType
	Description   string
}
