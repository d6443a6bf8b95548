package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/banking-ledger-saga/internal/domain/account"
	"github.com/banking-ledger-saga/internal/domain/shared"
	"github.com/banking-ledger-saga/internal/domain/transaction"
	"github.com/banking-ledger-saga/internal/identity"
	"github.com/banking-ledger-saga/internal/logger"
)

// DefaultRecentLimit is used when the caller does not ask for a size
const DefaultRecentLimit = 5

// AccountDirectory answers which accounts a principal may read
type AccountDirectory interface {
	Details(ctx context.Context, p *identity.Principal, id uuid.UUID) (*account.Account, error)
	ListOwn(ctx context.Context, p *identity.Principal) ([]*account.Account, error)
}

// QueryService serves read access to the transaction log
type QueryService interface {
	ListOwn(ctx context.Context, p *identity.Principal) ([]*transaction.Transaction, error)
	Recent(ctx context.Context, p *identity.Principal, limit int) ([]*transaction.Transaction, error)
	ByAccount(ctx context.Context, p *identity.Principal, accountID uuid.UUID) ([]*transaction.Transaction, error)
	Details(ctx context.Context, p *identity.Principal, id uuid.UUID) (*transaction.Transaction, error)
	ListAll(ctx context.Context) ([]*transaction.Transaction, error)
}

type QueryServiceImpl struct {
	accounts AccountDirectory
	txLog    transaction.Log
	logger   *slog.Logger
}

func NewQueryService(logger *slog.Logger, accounts AccountDirectory, txLog transaction.Log) *QueryServiceImpl {
	return &QueryServiceImpl{
		accounts: accounts,
		txLog:    txLog,
		logger:   logger,
	}
}

// ListOwn returns every transaction touching one of the caller's accounts
func (s *QueryServiceImpl) ListOwn(ctx context.Context, p *identity.Principal) ([]*transaction.Transaction, error) {
	return s.ownTransactions(ctx, p, 0)
}

// Recent returns the newest transactions touching the caller's accounts
func (s *QueryServiceImpl) Recent(ctx context.Context, p *identity.Principal, limit int) ([]*transaction.Transaction, error) {
	if limit <= 0 {
		limit = DefaultRecentLimit
	}
	return s.ownTransactions(ctx, p, limit)
}

func (s *QueryServiceImpl) ownTransactions(ctx context.Context, p *identity.Principal, limit int) ([]*transaction.Transaction, error) {
	ids, err := s.ownAccountIDs(ctx, p)
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return []*transaction.Transaction{}, nil
	}

	txns, err := s.txLog.ListByAccounts(ctx, ids, limit)
	if err != nil {
		logger.FromContext(ctx, s.logger).Error("Failed to list transactions", "user_id", p.UserID, "error", err)
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}
	return txns, nil
}

// ByAccount lists the transactions of one account the caller may read
func (s *QueryServiceImpl) ByAccount(ctx context.Context, p *identity.Principal, accountID uuid.UUID) ([]*transaction.Transaction, error) {
	if _, err := s.accounts.Details(ctx, p, accountID); err != nil {
		return nil, err
	}

	txns, err := s.txLog.ListByAccount(ctx, accountID, 0)
	if err != nil {
		logger.FromContext(ctx, s.logger).Error("Failed to list account transactions", "account_id", accountID.String(), "error", err)
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}
	return txns, nil
}

// Details returns a transaction if the caller is an admin or owns one of its legs
func (s *QueryServiceImpl) Details(ctx context.Context, p *identity.Principal, id uuid.UUID) (*transaction.Transaction, error) {
	txn, err := s.txLog.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if p.IsAdmin() {
		return txn, nil
	}

	ids, err := s.ownAccountIDs(ctx, p)
	if err != nil {
		return nil, err
	}
	owned := make(map[uuid.UUID]struct{}, len(ids))
	for _, accountID := range ids {
		owned[accountID] = struct{}{}
	}
	if !txn.Touches(owned) {
		return nil, fmt.Errorf("%w: transaction %s", shared.ErrAccessDenied, id)
	}
	return txn, nil
}

func (s *QueryServiceImpl) ListAll(ctx context.Context) ([]*transaction.Transaction, error) {
	txns, err := s.txLog.ListAll(ctx, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}
	return txns, nil
}

func (s *QueryServiceImpl) ownAccountIDs(ctx context.Context, p *identity.Principal) ([]uuid.UUID, error) {
	accounts, err := s.accounts.ListOwn(ctx, p)
	if err != nil {
		return nil, err
	}
	ids := make([]uuid.UUID, 0, len(accounts))
	for _, acc := range accounts {
		ids = append(ids, acc.ID)
	}
	return ids, nil
}
