package outbox

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/banking-ledger-saga/internal/domain/account"
	"github.com/banking-ledger-saga/internal/domain/money"
	"github.com/banking-ledger-saga/internal/domain/shared"
)

// EventTypeBalanceChanged is emitted for every applied balance update
const EventTypeBalanceChanged = "BalanceChanged"

// BalanceChangedEvent describes one applied credit or debit
type BalanceChangedEvent struct {
	EventID       uuid.UUID         `json:"event_id"`
	AccountID     uuid.UUID         `json:"account_id"`
	Operation     account.Operation `json:"operation"`
	Amount        money.Amount      `json:"amount"`
	BalanceBefore money.Amount      `json:"balance_before"`
	BalanceAfter  money.Amount      `json:"balance_after"`
	OccurredAt    time.Time         `json:"occurred_at"`
}

// Message stores an event until the poller relays it to the broker
type Message struct {
	ID            int64               `json:"id"`
	EventID       uuid.UUID           `json:"event_id"`
	AccountID     uuid.UUID           `json:"account_id"`
	EventType     string              `json:"event_type"`
	Payload       json.RawMessage     `json:"payload"`
	Status        shared.OutboxStatus `json:"status"`
	Attempts      int                 `json:"attempts"`
	LastError     string              `json:"last_error,omitempty"`
	CreatedAt     time.Time           `json:"created_at"`
	LastAttemptAt *time.Time          `json:"last_attempt_at,omitempty"`
	PublishedAt   *time.Time          `json:"published_at,omitempty"`
}

// NewBalanceChangedMessage wraps the post-update account state in a pending outbox message
func NewBalanceChangedMessage(acc *account.Account, op account.Operation, amount, before money.Amount) (*Message, error) {
	event := BalanceChangedEvent{
		EventID:       uuid.New(),
		AccountID:     acc.ID,
		Operation:     op,
		Amount:        amount,
		BalanceBefore: before,
		BalanceAfter:  acc.Balance,
		OccurredAt:    acc.UpdatedAt,
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return nil, err
	}

	return &Message{
		EventID:   event.EventID,
		AccountID: acc.ID,
		EventType: EventTypeBalanceChanged,
		Payload:   payload,
		Status:    shared.OutboxStatusPending,
		Attempts:  0,
		CreatedAt: time.Now().UTC(),
	}, nil
}

// Key partitions relayed events so each account's changes stay ordered
func (m *Message) Key() string {
	return m.AccountID.String()
}

// BalanceChanged decodes the event carried in the payload
func (m *Message) BalanceChanged() (*BalanceChangedEvent, error) {
	var event BalanceChangedEvent
	if err := json.Unmarshal(m.Payload, &event); err != nil {
		return nil, err
	}
	return &event, nil
}
