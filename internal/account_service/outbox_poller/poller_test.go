package outbox_poller

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/banking-ledger-saga/internal/config"
	"github.com/banking-ledger-saga/internal/domain/outbox"
	"github.com/banking-ledger-saga/internal/domain/shared"
)

func pendingMessage(id int64, attempts int) *outbox.Message {
	return &outbox.Message{
		ID:        id,
		EventID:   uuid.New(),
		AccountID: uuid.New(),
		EventType: outbox.EventTypeBalanceChanged,
		Payload:   []byte(`{"amount":10.00}`),
		Status:    shared.OutboxStatusPending,
		Attempts:  attempts,
		CreatedAt: time.Now(),
	}
}

func TestPoller_RelayPending(t *testing.T) {
	logger := slog.Default()
	cfg := &config.OutboxConfig{
		PollingInterval:  time.Second,
		BatchSize:        10,
		MaxRetryAttempts: 3,
	}

	message1 := pendingMessage(1, 0)
	message2 := pendingMessage(2, 0)
	sameAccount := pendingMessage(3, 0)
	sameAccount.AccountID = message1.AccountID

	tests := []struct {
		name          string
		setupMocks    func(repo *MockOutboxRepo, relay *MockEventRelay)
		expectedError string
	}{
		{
			name: "relays every pending message",
			setupMocks: func(repo *MockOutboxRepo, relay *MockEventRelay) {
				repo.On("FetchPending", mock.Anything, 10).Return([]*outbox.Message{message1, message2}, nil).Once()
				relay.On("Relay", mock.Anything, message1).Return(nil).Once()
				relay.On("Relay", mock.Anything, message2).Return(nil).Once()
			},
		},
		{
			name: "repository error",
			setupMocks: func(repo *MockOutboxRepo, relay *MockEventRelay) {
				repo.On("FetchPending", mock.Anything, 10).Return(nil, errors.New("db error")).Once()
			},
			expectedError: "failed to fetch pending balance events",
		},
		{
			name: "nothing pending",
			setupMocks: func(repo *MockOutboxRepo, relay *MockEventRelay) {
				repo.On("FetchPending", mock.Anything, 10).Return([]*outbox.Message{}, nil).Once()
			},
		},
		{
			name: "failure is recorded and other accounts continue",
			setupMocks: func(repo *MockOutboxRepo, relay *MockEventRelay) {
				repo.On("FetchPending", mock.Anything, 10).Return([]*outbox.Message{message1, message2}, nil).Once()
				relay.On("Relay", mock.Anything, message1).Return(errors.New("broker down")).Once()
				repo.On("RecordFailure", mock.Anything, int64(1), "broker down", 3).Return(false, nil).Once()
				relay.On("Relay", mock.Anything, message2).Return(nil).Once()
			},
		},
		{
			name: "failure holds back later events of the same account",
			setupMocks: func(repo *MockOutboxRepo, relay *MockEventRelay) {
				repo.On("FetchPending", mock.Anything, 10).Return([]*outbox.Message{message1, sameAccount, message2}, nil).Once()
				relay.On("Relay", mock.Anything, message1).Return(errors.New("broker down")).Once()
				repo.On("RecordFailure", mock.Anything, int64(1), "broker down", 3).Return(true, nil).Once()
				relay.On("Relay", mock.Anything, message2).Return(nil).Once()
			},
		},
		{
			name: "undeliverable events are not counted again",
			setupMocks: func(repo *MockOutboxRepo, relay *MockEventRelay) {
				repo.On("FetchPending", mock.Anything, 10).Return([]*outbox.Message{message2}, nil).Once()
				relay.On("Relay", mock.Anything, message2).Return(fmt.Errorf("outbox 2: %w", ErrUndeliverable)).Once()
			},
		},
		{
			name: "record failure error is logged only",
			setupMocks: func(repo *MockOutboxRepo, relay *MockEventRelay) {
				repo.On("FetchPending", mock.Anything, 10).Return([]*outbox.Message{message2}, nil).Once()
				relay.On("Relay", mock.Anything, message2).Return(errors.New("broker down")).Once()
				repo.On("RecordFailure", mock.Anything, int64(2), "broker down", 3).Return(false, errors.New("db error")).Once()
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := &MockOutboxRepo{}
			relay := &MockEventRelay{}
			poller := NewPoller(cfg, repo, relay, logger)
			tt.setupMocks(repo, relay)

			err := poller.relayPending(context.Background())

			if tt.expectedError != "" {
				assert.Error(t, err)
				assert.Contains(t, err.Error(), tt.expectedError)
			} else {
				assert.NoError(t, err)
			}
			repo.AssertExpectations(t)
			relay.AssertExpectations(t)
			relay.AssertNotCalled(t, "Relay", mock.Anything, sameAccount)
		})
	}
}

func TestPoller_StartStopsOnCancel(t *testing.T) {
	repo := &MockOutboxRepo{}
	relay := &MockEventRelay{}
	cfg := &config.OutboxConfig{
		PollingInterval:  5 * time.Millisecond,
		BatchSize:        10,
		MaxRetryAttempts: 3,
	}
	poller := NewPoller(cfg, repo, relay, slog.Default())

	polled := make(chan struct{}, 1)
	repo.On("FetchPending", mock.Anything, 10).Return([]*outbox.Message{}, nil).Run(func(mock.Arguments) {
		select {
		case polled <- struct{}{}:
		default:
		}
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		poller.Start(ctx)
		close(done)
	}()

	select {
	case <-polled:
	case <-time.After(time.Second):
		t.Fatal("poller never polled")
	}

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("poller did not stop after cancel")
	}
}
