package transaction

import (
	"time"

	"github.com/google/uuid"

	"github.com/banking-ledger-saga/internal/domain/money"
)

// InconsistencyAlert reports money that may have left an account without
// reaching its destination: a transfer debited but neither credited nor
// reversed, or a debit whose outcome the account service could not confirm.
// Operators reconcile these by hand.
type InconsistencyAlert struct {
	TransactionID     uuid.UUID    `json:"transaction_id"`
	FromAccountID     uuid.UUID    `json:"from_account_id"`
	ToAccountID       uuid.UUID    `json:"to_account_id"`
	Amount            money.Amount `json:"amount"`
	DebitError        string       `json:"debit_error,omitempty"`
	CreditError       string       `json:"credit_error,omitempty"`
	CompensationError string       `json:"compensation_error,omitempty"`
	CorrelationID     string       `json:"correlation_id,omitempty"`
	DetectedAt        time.Time    `json:"detected_at"`
}
