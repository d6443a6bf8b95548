// Package memory provides in-process stores for local runs and tests.
package memory

import (
	"context"
	"log/slog"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/banking-ledger-saga/internal/domain/account"
	"github.com/banking-ledger-saga/internal/domain/money"
)

// accountEntry serializes every mutation of one account
type accountEntry struct {
	mu  sync.Mutex
	acc account.Account
}

func (e *accountEntry) snapshot() *account.Account {
	e.mu.Lock()
	defer e.mu.Unlock()
	acc := e.acc
	return &acc
}

// AccountStore implements account.Store with a per-account mutex
type AccountStore struct {
	mu       sync.RWMutex
	accounts map[uuid.UUID]*accountEntry
	numbers  map[string]struct{}
	logger   *slog.Logger
}

func NewAccountStore(logger *slog.Logger) *AccountStore {
	return &AccountStore{
		accounts: make(map[uuid.UUID]*accountEntry),
		numbers:  make(map[string]struct{}),
		logger:   logger,
	}
}

func (s *AccountStore) Create(ctx context.Context, acc *account.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.numbers[acc.AccountNumber]; exists {
		return account.ErrDuplicateAccountNumber
	}
	s.accounts[acc.ID] = &accountEntry{acc: *acc}
	s.numbers[acc.AccountNumber] = struct{}{}
	return nil
}

func (s *AccountStore) entry(id uuid.UUID) (*accountEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.accounts[id]
	if !ok {
		return nil, account.ErrAccountNotFound{AccountID: id}
	}
	return e, nil
}

func (s *AccountStore) GetByID(ctx context.Context, id uuid.UUID) (*account.Account, error) {
	e, err := s.entry(id)
	if err != nil {
		return nil, err
	}
	return e.snapshot(), nil
}

func (s *AccountStore) ListByOwner(ctx context.Context, ownerID string) ([]*account.Account, error) {
	return s.list(func(acc *account.Account) bool { return acc.OwnerID == ownerID }), nil
}

func (s *AccountStore) ListAll(ctx context.Context) ([]*account.Account, error) {
	return s.list(func(*account.Account) bool { return true }), nil
}

func (s *AccountStore) list(match func(acc *account.Account) bool) []*account.Account {
	s.mu.RLock()
	entries := make([]*accountEntry, 0, len(s.accounts))
	for _, e := range s.accounts {
		entries = append(entries, e)
	}
	s.mu.RUnlock()

	accounts := make([]*account.Account, 0)
	for _, e := range entries {
		if acc := e.snapshot(); match(acc) {
			accounts = append(accounts, acc)
		}
	}
	sort.Slice(accounts, func(i, j int) bool {
		if accounts[i].CreatedAt.Equal(accounts[j].CreatedAt) {
			return accounts[i].ID.String() < accounts[j].ID.String()
		}
		return accounts[i].CreatedAt.Before(accounts[j].CreatedAt)
	})
	return accounts
}

func (s *AccountStore) UpdateBalance(ctx context.Context, id uuid.UUID, amount money.Amount, op account.Operation) (*account.Account, error) {
	if err := account.ValidateBalanceChange(op, amount); err != nil {
		return nil, err
	}

	return s.mutate(id, func(acc *account.Account) error {
		_, err := acc.ApplyBalanceChange(op, amount)
		return err
	})
}

func (s *AccountStore) Close(ctx context.Context, id uuid.UUID) (*account.Account, error) {
	return s.mutate(id, func(acc *account.Account) error {
		return acc.Close()
	})
}

func (s *AccountStore) UpdateFields(ctx context.Context, id uuid.UUID, update account.FieldUpdate) (*account.Account, error) {
	return s.mutate(id, func(acc *account.Account) error {
		return acc.ApplyUpdate(update)
	})
}

// mutate applies fn to a copy under the account lock and keeps it only on success
func (s *AccountStore) mutate(id uuid.UUID, fn func(acc *account.Account) error) (*account.Account, error) {
	e, err := s.entry(id)
	if err != nil {
		return nil, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	working := e.acc
	if err := fn(&working); err != nil {
		return nil, err
	}
	e.acc = working

	result := working
	return &result, nil
}

var _ account.Store = (*AccountStore)(nil)
