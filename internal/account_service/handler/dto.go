package handler

import (
	"time"

	"github.com/banking-ledger-saga/internal/domain/account"
	"github.com/banking-ledger-saga/internal/domain/money"
)

// CreateAccountRequest represents a request to open an account for the caller
type CreateAccountRequest struct {
	AccountType    string       `json:"account_type" binding:"required"`
	InitialDeposit money.Amount `json:"initial_deposit"`
}

// UpdateAccountRequest carries the admin-editable fields; omitted fields are unchanged
type UpdateAccountRequest struct {
	AccountType *string `json:"account_type"`
	Status      *string `json:"status"`
}

// BalanceUpdateRequest is sent by the transaction service for each ledger leg
type BalanceUpdateRequest struct {
	AccountID string       `json:"account_id" binding:"required,uuid"`
	Amount    money.Amount `json:"amount"`
	Operation string       `json:"operation" binding:"required"`
}

// AccountResponse represents an account in API responses
type AccountResponse struct {
	ID            string       `json:"id"`
	UserID        string       `json:"user_id"`
	AccountNumber string       `json:"account_number"`
	AccountType   string       `json:"account_type"`
	Balance       money.Amount `json:"balance"`
	Status        string       `json:"status"`
	CreatedAt     string       `json:"created_at"`
	UpdatedAt     string       `json:"updated_at"`
}

// AccountListResponse wraps a list of accounts
type AccountListResponse struct {
	Accounts []AccountResponse `json:"accounts"`
}

// AccountMessageResponse pairs a confirmation message with the resulting account
type AccountMessageResponse struct {
	Message string          `json:"message"`
	Account AccountResponse `json:"account"`
}

// ValidatedAccount is the reduced view returned by the open validate endpoint
type ValidatedAccount struct {
	ID            string       `json:"id"`
	AccountNumber string       `json:"account_number"`
	AccountType   string       `json:"account_type"`
	Balance       money.Amount `json:"balance"`
	Status        string       `json:"status"`
}

// ValidationResponse reports whether an account can take part in a transfer
type ValidationResponse struct {
	Valid   bool              `json:"valid"`
	Message string            `json:"message,omitempty"`
	Account *ValidatedAccount `json:"account,omitempty"`
}

func mapAccountToResponse(acc *account.Account) AccountResponse {
	return AccountResponse{
		ID:            acc.ID.String(),
		UserID:        acc.OwnerID,
		AccountNumber: acc.AccountNumber,
		AccountType:   string(acc.Type),
		Balance:       acc.Balance,
		Status:        string(acc.Status),
		CreatedAt:     acc.CreatedAt.Format(time.RFC3339),
		UpdatedAt:     acc.UpdatedAt.Format(time.RFC3339),
	}
}

func mapAccountsToResponse(accounts []*account.Account) AccountListResponse {
	out := AccountListResponse{Accounts: make([]AccountResponse, 0, len(accounts))}
	for _, acc := range accounts {
		out.Accounts = append(out.Accounts, mapAccountToResponse(acc))
	}
	return out
}

func mapValidatedAccount(acc *account.Account) *ValidatedAccount {
	return &ValidatedAccount{
		ID:            acc.ID.String(),
		AccountNumber: acc.MaskedNumber(),
		AccountType:   string(acc.Type),
		Balance:       acc.Balance,
		Status:        string(acc.Status),
	}
}
