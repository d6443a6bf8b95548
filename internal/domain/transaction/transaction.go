package transaction

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/banking-ledger-saga/internal/domain/money"
	"github.com/banking-ledger-saga/internal/domain/shared"
)

// Type defines possible money movements
type Type string

const (
	TypeDeposit    Type = "deposit"
	TypeWithdrawal Type = "withdrawal"
	TypeTransfer   Type = "transfer"
)

func (t Type) Valid() bool {
	switch t {
	case TypeDeposit, TypeWithdrawal, TypeTransfer:
		return true
	}
	return false
}

// Status defines transaction processing states. Completed and failed are terminal.
type Status string

const (
	StatusPending   Status = "pending"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

func (s Status) Valid() bool {
	return s == StatusPending || s.Terminal()
}

// TransferType distinguishes transfers between a user's own accounts from transfers to others
type TransferType string

const (
	TransferInternal TransferType = "internal"
	TransferExternal TransferType = "external"
)

// Failure reasons recorded on failed transactions
const (
	ReasonInvalidDestination     = "INVALID_DESTINATION"
	ReasonDestinationUnverified  = "DESTINATION_UNVERIFIED"
	ReasonInsufficientFunds      = "INSUFFICIENT_FUNDS"
	ReasonDebitFailed            = "DEBIT_FAILED"
	ReasonDebitUnconfirmed       = "DEBIT_UNCONFIRMED"
	ReasonCreditFailed           = "CREDIT_FAILED"
	ReasonCreditFailedReversed   = "CREDIT_FAILED_REVERSED"
	ReasonCreditFailedUnreversed = "CREDIT_FAILED_UNREVERSED"
)

// Transaction is the durable record of one money-movement attempt
type Transaction struct {
	ID                uuid.UUID    `json:"id"`
	Type              Type         `json:"type"`
	Amount            money.Amount `json:"amount"`
	Description       string       `json:"description"`
	Status            Status       `json:"status"`
	AccountID         uuid.UUID    `json:"account_id"`
	FromAccountID     uuid.UUID    `json:"from_account_id"`
	ToAccountID       uuid.UUID    `json:"to_account_id"`
	TransferType      TransferType `json:"transfer_type,omitempty"`
	InitiatedBy       string       `json:"initiated_by,omitempty"`
	FailureReason     string       `json:"failure_reason,omitempty"`
	Inconsistent      bool         `json:"inconsistent"`
	InconsistencyNote string       `json:"inconsistency_note,omitempty"`
	Timestamp         time.Time    `json:"timestamp"`
	UpdatedAt         time.Time    `json:"updated_at"`
}

// Draft is the caller-supplied part of a new transaction
type Draft struct {
	Type          Type
	Amount        money.Amount
	Description   string
	AccountID     uuid.UUID
	FromAccountID uuid.UUID
	ToAccountID   uuid.UUID
	TransferType  TransferType
	InitiatedBy   string
}

// Normalize fills type-specific defaults
func (d *Draft) Normalize() {
	switch d.Type {
	case TypeDeposit:
		if d.Description == "" {
			d.Description = "Deposit"
		}
	case TypeWithdrawal:
		if d.Description == "" {
			d.Description = "Withdrawal"
		}
	case TypeTransfer:
		if d.TransferType == "" {
			d.TransferType = TransferInternal
		}
	}
}

// Validate checks the draft against the per-type field rules
func (d Draft) Validate() error {
	if d.Amount <= 0 {
		return ErrInvalidAmount
	}
	switch d.Type {
	case TypeDeposit, TypeWithdrawal:
		if d.AccountID == uuid.Nil {
			return fmt.Errorf("%w: account_id is required", shared.ErrInvalidRequest)
		}
	case TypeTransfer:
		if d.FromAccountID == uuid.Nil || d.ToAccountID == uuid.Nil {
			return fmt.Errorf("%w: from_account_id and to_account_id are required", shared.ErrInvalidRequest)
		}
		if d.FromAccountID == d.ToAccountID {
			return ErrSameAccount
		}
		if d.TransferType != TransferInternal && d.TransferType != TransferExternal {
			return fmt.Errorf("%w: transfer_type must be internal or external", shared.ErrInvalidRequest)
		}
	default:
		return fmt.Errorf("%w: unknown transaction type %q", shared.ErrInvalidRequest, d.Type)
	}
	return nil
}

// NewFromDraft validates the draft and returns a pending transaction
func NewFromDraft(d Draft) (*Transaction, error) {
	d.Normalize()
	if err := d.Validate(); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	return &Transaction{
		ID:            uuid.New(),
		Type:          d.Type,
		Amount:        d.Amount,
		Description:   d.Description,
		Status:        StatusPending,
		AccountID:     d.AccountID,
		FromAccountID: d.FromAccountID,
		ToAccountID:   d.ToAccountID,
		TransferType:  d.TransferType,
		InitiatedBy:   d.InitiatedBy,
		Timestamp:     now,
		UpdatedAt:     now,
	}, nil
}

// Transition moves a pending transaction to a terminal status.
// Re-applying the current terminal status reports changed=false.
func (t *Transaction) Transition(status Status, reason string) (bool, error) {
	if !status.Terminal() {
		return false, ErrInvalidStatus
	}
	if t.Status == status {
		return false, nil
	}
	if t.Status != StatusPending {
		return false, ErrStatusConflict{TransactionID: t.ID, Current: t.Status, Requested: status}
	}

	t.Status = status
	if status == StatusFailed {
		t.FailureReason = reason
	}
	t.UpdatedAt = time.Now().UTC()
	return true, nil
}

// Flag marks a failed transaction as needing operator reconciliation
func (t *Transaction) Flag(note string) error {
	if t.Status != StatusFailed {
		return ErrNotFlaggable{TransactionID: t.ID, Status: t.Status}
	}
	t.Inconsistent = true
	t.InconsistencyNote = note
	t.UpdatedAt = time.Now().UTC()
	return nil
}

// Touches reports whether any leg of the transaction references one of the ids
func (t *Transaction) Touches(ids map[uuid.UUID]struct{}) bool {
	for _, id := range t.AccountIDs() {
		if _, ok := ids[id]; ok {
			return true
		}
	}
	return false
}

// AccountIDs returns every account the transaction references
func (t *Transaction) AccountIDs() []uuid.UUID {
	ids := make([]uuid.UUID, 0, 2)
	for _, id := range []uuid.UUID{t.AccountID, t.FromAccountID, t.ToAccountID} {
		if id != uuid.Nil {
			ids = append(ids, id)
		}
	}
	return ids
}
