package handler

import (
	"time"

	"github.com/banking-ledger-saga/internal/domain/money"
	"github.com/banking-ledger-saga/internal/domain/transaction"
)

// MovementRequest represents a deposit or withdrawal request
type MovementRequest struct {
	AccountID   string       `json:"account_id" binding:"required,uuid"`
	Amount      money.Amount `json:"amount"`
	Description string       `json:"description"`
}

// TransferRequest represents a request to move funds between two accounts
type TransferRequest struct {
	FromAccountID string       `json:"from_account_id" binding:"required,uuid"`
	ToAccountID   string       `json:"to_account_id" binding:"required,uuid"`
	Amount        money.Amount `json:"amount"`
	TransferType  string       `json:"transfer_type"`
	Description   string       `json:"description"`
}

// RecentParams bounds the recent transactions query
type RecentParams struct {
	Limit int `form:"limit" binding:"min=0,max=100"`
}

// TransactionResponse represents a transaction in API responses
type TransactionResponse struct {
	ID                string       `json:"id"`
	TransactionType   string       `json:"transaction_type"`
	Amount            money.Amount `json:"amount"`
	Description       string       `json:"description"`
	Status            string       `json:"status"`
	Timestamp         string       `json:"timestamp"`
	AccountID         string       `json:"account_id,omitempty"`
	FromAccountID     string       `json:"from_account_id,omitempty"`
	ToAccountID       string       `json:"to_account_id,omitempty"`
	TransferType      string       `json:"transfer_type,omitempty"`
	FailureReason     string       `json:"failure_reason,omitempty"`
	Inconsistent      bool         `json:"inconsistent,omitempty"`
	InconsistencyNote string       `json:"inconsistency_note,omitempty"`
}

// TransactionListResponse represents a list of transactions in API responses
type TransactionListResponse struct {
	Transactions []TransactionResponse `json:"transactions"`
}

// TransactionMessageResponse pairs a confirmation message with the resulting transaction
type TransactionMessageResponse struct {
	Message     string              `json:"message"`
	Transaction TransactionResponse `json:"transaction"`
}

func mapTransactionToResponse(txn *transaction.Transaction) TransactionResponse {
	resp := TransactionResponse{
		ID:                txn.ID.String(),
		TransactionType:   string(txn.Type),
		Amount:            txn.Amount,
		Description:       txn.Description,
		Status:            string(txn.Status),
		Timestamp:         txn.Timestamp.Format(time.RFC3339),
		FailureReason:     txn.FailureReason,
		Inconsistent:      txn.Inconsistent,
		InconsistencyNote: txn.InconsistencyNote,
	}

	switch txn.Type {
	case transaction.TypeTransfer:
		resp.FromAccountID = txn.FromAccountID.String()
		resp.ToAccountID = txn.ToAccountID.String()
		resp.TransferType = string(txn.TransferType)
	default:
		resp.AccountID = txn.AccountID.String()
	}

	return resp
}

func mapTransactionsToResponse(txns []*transaction.Transaction) TransactionListResponse {
	out := TransactionListResponse{Transactions: make([]TransactionResponse, 0, len(txns))}
	for _, txn := range txns {
		out.Transactions = append(out.Transactions, mapTransactionToResponse(txn))
	}
	return out
}
