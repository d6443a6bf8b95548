package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/banking-ledger-saga/internal/domain/account"
	"github.com/banking-ledger-saga/internal/domain/money"
	"github.com/banking-ledger-saga/internal/domain/shared"
	"github.com/banking-ledger-saga/internal/identity"
	"github.com/banking-ledger-saga/internal/logger"
)

// account numbers are random, so a collision is retried with a fresh number
const maxAccountNumberAttempts = 3

// AccountServiceImpl implements AccountService
type AccountServiceImpl struct {
	store  account.Store
	logger *slog.Logger
}

func NewAccountService(logger *slog.Logger, store account.Store) AccountService {
	return &AccountServiceImpl{
		store:  store,
		logger: logger,
	}
}

func (s *AccountServiceImpl) ListOwn(ctx context.Context, p *identity.Principal) ([]*account.Account, error) {
	return s.store.ListByOwner(ctx, p.UserID)
}

func (s *AccountServiceImpl) Create(ctx context.Context, p *identity.Principal, accountType account.Type, initialDeposit money.Amount) (*account.Account, error) {
	log := logger.FromContext(ctx, s.logger)

	for attempt := 1; ; attempt++ {
		acc, err := account.NewAccount(p.UserID, accountType, initialDeposit)
		if err != nil {
			return nil, err
		}

		err = s.store.Create(ctx, acc)
		if err == nil {
			log.Info("Account created", "account_id", acc.ID.String(), "owner_id", acc.OwnerID, "account_type", acc.Type)
			return acc, nil
		}
		if !errors.Is(err, account.ErrDuplicateAccountNumber) || attempt >= maxAccountNumberAttempts {
			return nil, err
		}
		log.Warn("Account number collision, retrying", "attempt", attempt)
	}
}

func (s *AccountServiceImpl) Details(ctx context.Context, p *identity.Principal, id uuid.UUID) (*account.Account, error) {
	acc, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !p.IsAdmin() && !acc.OwnedBy(p.UserID) {
		return nil, fmt.Errorf("%w: account %s", shared.ErrAccessDenied, id)
	}
	return acc, nil
}

func (s *AccountServiceImpl) Close(ctx context.Context, p *identity.Principal, id uuid.UUID) (*account.Account, error) {
	if _, err := s.Details(ctx, p, id); err != nil {
		return nil, err
	}

	acc, err := s.store.Close(ctx, id)
	if err != nil {
		return nil, err
	}
	logger.FromContext(ctx, s.logger).Info("Account closed", "account_id", id.String(), "closed_by", p.UserID)
	return acc, nil
}

func (s *AccountServiceImpl) ListAll(ctx context.Context) ([]*account.Account, error) {
	return s.store.ListAll(ctx)
}

func (s *AccountServiceImpl) ListByUser(ctx context.Context, userID string) ([]*account.Account, error) {
	return s.store.ListByOwner(ctx, userID)
}

func (s *AccountServiceImpl) Update(ctx context.Context, id uuid.UUID, update account.FieldUpdate) (*account.Account, error) {
	acc, err := s.store.UpdateFields(ctx, id, update)
	if err != nil {
		return nil, err
	}
	logger.FromContext(ctx, s.logger).Info("Account updated", "account_id", id.String(), "account_type", acc.Type, "status", acc.Status)
	return acc, nil
}

func (s *AccountServiceImpl) UpdateBalance(ctx context.Context, id uuid.UUID, amount money.Amount, op account.Operation) (*account.Account, error) {
	acc, err := s.store.UpdateBalance(ctx, id, amount, op)
	if err != nil {
		logger.FromContext(ctx, s.logger).Info("Balance update rejected",
			"account_id", id.String(), "operation", op, "amount", amount.String(), "error", err)
		return nil, err
	}
	return acc, nil
}

func (s *AccountServiceImpl) Validate(ctx context.Context, id uuid.UUID) (*account.Validation, error) {
	acc, err := s.store.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, account.ErrAccountNotFound{}) {
			return &account.Validation{Valid: false, Message: "Account not found"}, nil
		}
		return nil, err
	}
	if !acc.IsActive() {
		return &account.Validation{Valid: false, Message: "Account is not active"}, nil
	}
	return &account.Validation{Valid: true, Account: acc}, nil
}
