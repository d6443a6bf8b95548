package coordinator

import (
	"fmt"
	"strings"
	"time"

	"github.com/banking-ledger-saga/internal/domain/transaction"
)

// State is a step of a money-movement attempt
type State string

const (
	StateValidating           State = "validating"
	StatePending              State = "pending"
	StateDebitingSource       State = "debiting_source"
	StateCreditingDestination State = "crediting_destination"
	StateCompensating         State = "compensating"
	StateCompleted            State = "completed"
	StateFailed               State = "failed"
)

// transitions lists the legal next states. Completed and failed have none.
var transitions = map[State][]State{
	StateValidating:           {StatePending, StateFailed},
	StatePending:              {StateDebitingSource, StateCreditingDestination, StateFailed},
	StateDebitingSource:       {StateCreditingDestination, StateCompleted, StateFailed},
	StateCreditingDestination: {StateCompleted, StateCompensating, StateFailed},
	StateCompensating:         {StateFailed},
}

func (s State) Terminal() bool {
	return s == StateCompleted || s == StateFailed
}

// ErrIllegalTransition reports a move the transition table does not allow
type ErrIllegalTransition struct {
	From State
	To   State
}

func (e ErrIllegalTransition) Error() string {
	return fmt.Sprintf("illegal saga transition from %s to %s", e.From, e.To)
}

// saga tracks one attempt through the state machine
type saga struct {
	operation transaction.Type
	state     State
	history   []State
	started   time.Time

	// recorded is set once a transaction record exists for the attempt
	recorded    bool
	partial     bool
	compensated bool
}

func newSaga(operation transaction.Type) *saga {
	return &saga{
		operation: operation,
		state:     StateValidating,
		history:   []State{StateValidating},
		started:   time.Now(),
	}
}

func (s *saga) advance(next State) error {
	for _, allowed := range transitions[s.state] {
		if allowed == next {
			s.state = next
			s.history = append(s.history, next)
			return nil
		}
	}
	return ErrIllegalTransition{From: s.state, To: next}
}

func (s *saga) State() State {
	return s.state
}

// History returns the states visited so far, oldest first
func (s *saga) History() []State {
	out := make([]State, len(s.history))
	copy(out, s.history)
	return out
}

func (s *saga) path() string {
	parts := make([]string, len(s.history))
	for i, st := range s.history {
		parts[i] = string(st)
	}
	return strings.Join(parts, ">")
}
