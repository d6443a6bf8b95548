package coordinator

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/panjf2000/ants/v2"

	"github.com/banking-ledger-saga/internal/config"
	"github.com/banking-ledger-saga/internal/domain/transaction"
	"github.com/banking-ledger-saga/internal/identity"
	"github.com/banking-ledger-saga/internal/logger"
	"github.com/banking-ledger-saga/internal/platform/messaging/producers"
)

// PooledService bounds how many money movements run at once. Callers still
// block until their own saga finishes.
type PooledService struct {
	base   Service
	pool   *ants.Pool
	logger *slog.Logger
}

type PoolConfig struct {
	Size int
}

type result struct {
	txn *transaction.Transaction
	err error
}

func NewPooledService(base Service, cfg PoolConfig, logger *slog.Logger) (*PooledService, error) {
	pool, err := ants.NewPool(cfg.Size)
	if err != nil {
		return nil, err
	}

	return &PooledService{
		base:   base,
		pool:   pool,
		logger: logger,
	}, nil
}

func (s *PooledService) Deposit(ctx context.Context, p *identity.Principal, req MovementRequest) (*transaction.Transaction, error) {
	return s.run(ctx, transaction.TypeDeposit, func() (*transaction.Transaction, error) {
		return s.base.Deposit(ctx, p, req)
	})
}

func (s *PooledService) Withdraw(ctx context.Context, p *identity.Principal, req MovementRequest) (*transaction.Transaction, error) {
	return s.run(ctx, transaction.TypeWithdrawal, func() (*transaction.Transaction, error) {
		return s.base.Withdraw(ctx, p, req)
	})
}

func (s *PooledService) Transfer(ctx context.Context, p *identity.Principal, req TransferRequest) (*transaction.Transaction, error) {
	return s.run(ctx, transaction.TypeTransfer, func() (*transaction.Transaction, error) {
		return s.base.Transfer(ctx, p, req)
	})
}

// run submits the saga to the pool and waits for its result. Once submitted
// the saga runs to completion even if the caller goes away; the caller stops
// waiting when its context ends.
func (s *PooledService) run(ctx context.Context, op transaction.Type, fn func() (*transaction.Transaction, error)) (*transaction.Transaction, error) {
	resultChan := make(chan result, 1)

	err := s.pool.Submit(func() {
		defer func() {
			if r := recover(); r != nil {
				logger.FromContext(ctx, s.logger).Error("Saga panicked",
					"operation", op,
					"panic", r,
				)
				resultChan <- result{err: fmt.Errorf("saga panicked: %v", r)}
			}
		}()
		txn, err := fn()
		resultChan <- result{txn: txn, err: err}
	})
	if err != nil {
		logger.FromContext(ctx, s.logger).Error("Failed to submit transaction to worker pool",
			"operation", op,
			"error", err,
		)
		return nil, err
	}

	select {
	case r := <-resultChan:
		return r.txn, r.err
	case <-ctx.Done():
		logger.FromContext(ctx, s.logger).Warn("Caller stopped waiting for saga",
			"operation", op,
			"error", ctx.Err(),
		)
		return nil, ctx.Err()
	}
}

// Shutdown releases the pool once running sagas have been handed their workers
func (s *PooledService) Shutdown() {
	s.logger.Info("Shutting down worker pool", "running_workers", s.pool.Running())
	s.pool.Release()
}

func (s *PooledService) Running() int {
	return s.pool.Running()
}

func (s *PooledService) Capacity() int {
	return s.pool.Cap()
}

// NewService builds the coordinator behind a worker pool, falling back to the
// bare coordinator when the pool cannot be created.
func NewService(
	logger *slog.Logger,
	cfg *config.Config,
	accounts AccountGateway,
	txLog transaction.Log,
	alerts producers.AlertPublisher,
) Service {
	base := NewCoordinator(logger.With("component", "coordinator"), accounts, txLog, alerts)

	pooled, err := NewPooledService(base, PoolConfig{Size: cfg.WorkerPool.Size}, logger.With("component", "worker_pool"))
	if err != nil {
		logger.Error("Failed to create worker pool service, falling back to base service", "error", err)
		return base
	}

	logger.Info("Created worker pool transaction service", "pool_size", cfg.WorkerPool.Size)
	return pooled
}
