// Package coordinator runs deposits, withdrawals and transfers against the
// account service, recording every attempt in the transaction log. A transfer
// is a two-leg saga: debit the source, credit the destination, and on a failed
// credit reverse the debit with a compensating credit.
package coordinator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/banking-ledger-saga/internal/domain/account"
	"github.com/banking-ledger-saga/internal/domain/shared"
	"github.com/banking-ledger-saga/internal/domain/transaction"
	"github.com/banking-ledger-saga/internal/identity"
	"github.com/banking-ledger-saga/internal/logger"
	"github.com/banking-ledger-saga/internal/platform/messaging/producers"
	"github.com/banking-ledger-saga/internal/platform/metrics"
)

// ErrStatusNotRecorded means money moved but the terminal status could not be
// written. The transaction stays pending.
var ErrStatusNotRecorded = errors.New("transaction status could not be recorded")

// Coordinator executes each request synchronously on the caller's goroutine
type Coordinator struct {
	accounts AccountGateway
	txLog    transaction.Log
	alerts   producers.AlertPublisher
	logger   *slog.Logger
}

// NewCoordinator wires the coordinator. alerts may be nil, in which case
// unreconciled transfers are only logged, flagged and counted.
func NewCoordinator(
	logger *slog.Logger,
	accounts AccountGateway,
	txLog transaction.Log,
	alerts producers.AlertPublisher,
) *Coordinator {
	return &Coordinator{
		accounts: accounts,
		txLog:    txLog,
		alerts:   alerts,
		logger:   logger,
	}
}

func (c *Coordinator) Deposit(ctx context.Context, p *identity.Principal, req MovementRequest) (*transaction.Transaction, error) {
	s := newSaga(transaction.TypeDeposit)
	txn, err := c.deposit(ctx, s, p, req)
	c.finish(ctx, s, txn, err)
	return txn, err
}

func (c *Coordinator) Withdraw(ctx context.Context, p *identity.Principal, req MovementRequest) (*transaction.Transaction, error) {
	s := newSaga(transaction.TypeWithdrawal)
	txn, err := c.withdraw(ctx, s, p, req)
	c.finish(ctx, s, txn, err)
	return txn, err
}

func (c *Coordinator) Transfer(ctx context.Context, p *identity.Principal, req TransferRequest) (*transaction.Transaction, error) {
	s := newSaga(transaction.TypeTransfer)
	txn, err := c.transfer(ctx, s, p, req)
	c.finish(ctx, s, txn, err)
	return txn, err
}

func (c *Coordinator) deposit(ctx context.Context, s *saga, p *identity.Principal, req MovementRequest) (*transaction.Transaction, error) {
	draft := transaction.Draft{
		Type:        transaction.TypeDeposit,
		Amount:      req.Amount,
		Description: req.Description,
		AccountID:   req.AccountID,
		InitiatedBy: initiator(p),
	}
	if err := c.precheck(ctx, s, &draft); err != nil {
		return nil, err
	}

	if _, err := c.accounts.Details(ctx, p, req.AccountID); err != nil {
		c.step(ctx, s, StateFailed)
		return nil, err
	}

	txn, err := c.begin(ctx, s, draft)
	if err != nil {
		return nil, err
	}

	c.step(ctx, s, StateCreditingDestination)
	if _, err := c.accounts.UpdateBalance(ctx, req.AccountID, req.Amount, account.OperationCredit); err != nil {
		return c.fail(ctx, s, txn, transaction.ReasonCreditFailed, err)
	}

	return c.complete(context.WithoutCancel(ctx), s, txn)
}

func (c *Coordinator) withdraw(ctx context.Context, s *saga, p *identity.Principal, req MovementRequest) (*transaction.Transaction, error) {
	draft := transaction.Draft{
		Type:        transaction.TypeWithdrawal,
		Amount:      req.Amount,
		Description: req.Description,
		AccountID:   req.AccountID,
		InitiatedBy: initiator(p),
	}
	if err := c.precheck(ctx, s, &draft); err != nil {
		return nil, err
	}

	acc, err := c.accounts.Details(ctx, p, req.AccountID)
	if err != nil {
		c.step(ctx, s, StateFailed)
		return nil, err
	}

	// the debit re-checks under the account lock
	if acc.Balance < req.Amount {
		return c.reject(ctx, s, draft, transaction.ReasonInsufficientFunds, account.ErrInsufficientFunds{AccountID: acc.ID})
	}

	txn, err := c.begin(ctx, s, draft)
	if err != nil {
		return nil, err
	}

	c.step(ctx, s, StateDebitingSource)
	if _, err := c.accounts.UpdateBalance(ctx, req.AccountID, req.Amount, account.OperationDebit); err != nil {
		return c.failDebit(ctx, s, txn, req.AccountID, err)
	}

	return c.complete(context.WithoutCancel(ctx), s, txn)
}

func (c *Coordinator) transfer(ctx context.Context, s *saga, p *identity.Principal, req TransferRequest) (*transaction.Transaction, error) {
	draft := transaction.Draft{
		Type:          transaction.TypeTransfer,
		Amount:        req.Amount,
		Description:   req.Description,
		FromAccountID: req.FromAccountID,
		ToAccountID:   req.ToAccountID,
		TransferType:  req.TransferType,
		InitiatedBy:   initiator(p),
	}
	if err := c.precheck(ctx, s, &draft); err != nil {
		return nil, err
	}

	source, err := c.accounts.Details(ctx, p, req.FromAccountID)
	if err != nil {
		c.step(ctx, s, StateFailed)
		return nil, err
	}

	validation, err := c.accounts.Validate(ctx, req.ToAccountID)
	if err != nil {
		return c.reject(ctx, s, draft, transaction.ReasonDestinationUnverified, err)
	}
	if !validation.Valid {
		return c.reject(ctx, s, draft, transaction.ReasonInvalidDestination,
			transaction.ErrInvalidDestination{AccountID: req.ToAccountID, Reason: validation.Message})
	}

	if source.Balance < req.Amount {
		return c.reject(ctx, s, draft, transaction.ReasonInsufficientFunds, account.ErrInsufficientFunds{AccountID: source.ID})
	}

	txn, err := c.begin(ctx, s, draft)
	if err != nil {
		return nil, err
	}

	c.step(ctx, s, StateDebitingSource)
	if _, err := c.accounts.UpdateBalance(ctx, req.FromAccountID, req.Amount, account.OperationDebit); err != nil {
		return c.failDebit(ctx, s, txn, req.FromAccountID, err)
	}

	// the source is debited; nothing after this point follows the caller's cancellation
	detached := context.WithoutCancel(ctx)

	c.step(detached, s, StateCreditingDestination)
	if _, err := c.accounts.UpdateBalance(detached, req.ToAccountID, req.Amount, account.OperationCredit); err != nil {
		return c.compensate(detached, s, txn, err)
	}

	return c.complete(detached, s, txn)
}

// compensate reverses the debit of a transfer whose credit leg failed
func (c *Coordinator) compensate(ctx context.Context, s *saga, txn *transaction.Transaction, creditErr error) (*transaction.Transaction, error) {
	log := logger.FromContext(ctx, c.logger)
	c.step(ctx, s, StateCompensating)

	log.Warn("Credit leg failed, reversing debit",
		"transaction_id", txn.ID.String(),
		"from_account_id", txn.FromAccountID.String(),
		"to_account_id", txn.ToAccountID.String(),
		"error", creditErr,
	)

	_, compErr := c.accounts.UpdateBalance(ctx, txn.FromAccountID, txn.Amount, account.OperationCredit)
	metrics.RecordCompensation(compErr == nil)

	if compErr == nil {
		s.compensated = true
		c.step(ctx, s, StateFailed)
		_ = c.markFailed(ctx, txn, transaction.ReasonCreditFailedReversed)
		return txn, creditErr
	}

	s.partial = true
	c.step(ctx, s, StateFailed)

	if err := c.markFailed(ctx, txn, transaction.ReasonCreditFailedUnreversed); err == nil {
		c.flag(ctx, txn, fmt.Sprintf("debited %s from %s; credit to %s failed: %v; reversal failed: %v",
			txn.Amount, txn.FromAccountID, txn.ToAccountID, creditErr, compErr))
	}

	alert := c.newAlert(ctx, txn)
	alert.CreditError = creditErr.Error()
	alert.CompensationError = compErr.Error()
	c.raiseAlert(ctx, alert)
	metrics.RecordInconsistency()

	log.Error("Transfer debited but neither credited nor reversed",
		"transaction_id", txn.ID.String(),
		"from_account_id", txn.FromAccountID.String(),
		"to_account_id", txn.ToAccountID.String(),
		"amount", txn.Amount.String(),
		"credit_error", creditErr,
		"compensation_error", compErr,
	)

	return txn, &transaction.PartialFailureError{
		TransactionID:   txn.ID,
		CreditErr:       creditErr,
		CompensationErr: compErr,
	}
}

// failDebit records a failed debit leg. When the account service could not
// confirm the debit either way, the transaction is flagged for reconciliation.
func (c *Coordinator) failDebit(ctx context.Context, s *saga, txn *transaction.Transaction, accountID uuid.UUID, cause error) (*transaction.Transaction, error) {
	if !errors.Is(cause, shared.ErrUpstreamUnavailable) {
		return c.fail(ctx, s, txn, debitFailureReason(cause), cause)
	}

	// the debit may have been applied before the failure
	detached := context.WithoutCancel(ctx)
	s.partial = true
	c.step(detached, s, StateFailed)

	if err := c.markFailed(detached, txn, transaction.ReasonDebitUnconfirmed); err == nil {
		c.flag(detached, txn, fmt.Sprintf("debit of %s from %s unconfirmed: %v", txn.Amount, accountID, cause))
	}

	alert := c.newAlert(detached, txn)
	alert.FromAccountID = accountID
	alert.DebitError = cause.Error()
	c.raiseAlert(detached, alert)
	metrics.RecordInconsistency()

	logger.FromContext(ctx, c.logger).Error("Debit outcome unknown",
		"transaction_id", txn.ID.String(),
		"account_id", accountID.String(),
		"amount", txn.Amount.String(),
		"error", cause,
	)
	return txn, cause
}

func (c *Coordinator) flag(ctx context.Context, txn *transaction.Transaction, note string) {
	if err := c.txLog.FlagInconsistency(ctx, txn.ID, note); err != nil {
		logger.FromContext(ctx, c.logger).Error("Failed to flag inconsistent transaction", "transaction_id", txn.ID.String(), "error", err)
		return
	}
	_ = txn.Flag(note)
}

func (c *Coordinator) newAlert(ctx context.Context, txn *transaction.Transaction) transaction.InconsistencyAlert {
	return transaction.InconsistencyAlert{
		TransactionID: txn.ID,
		FromAccountID: txn.FromAccountID,
		ToAccountID:   txn.ToAccountID,
		Amount:        txn.Amount,
		CorrelationID: logger.CorrelationID(ctx),
		DetectedAt:    time.Now().UTC(),
	}
}

func (c *Coordinator) raiseAlert(ctx context.Context, alert transaction.InconsistencyAlert) {
	log := logger.FromContext(ctx, c.logger)
	if c.alerts == nil {
		log.Warn("No alert publisher configured, inconsistency not published", "transaction_id", alert.TransactionID.String())
		return
	}
	if err := c.alerts.PublishInconsistency(ctx, alert); err != nil {
		log.Error("Failed to publish inconsistency alert", "transaction_id", alert.TransactionID.String(), "error", err)
	}
}

// precheck normalizes and validates the request before anything is read or recorded
func (c *Coordinator) precheck(ctx context.Context, s *saga, draft *transaction.Draft) error {
	draft.Normalize()
	if err := draft.Validate(); err != nil {
		c.step(ctx, s, StateFailed)
		return err
	}
	return nil
}

// begin records the pending transaction. No money moves before this succeeds.
func (c *Coordinator) begin(ctx context.Context, s *saga, draft transaction.Draft) (*transaction.Transaction, error) {
	txn, err := c.txLog.Create(ctx, draft)
	if err != nil {
		c.step(ctx, s, StateFailed)
		logger.FromContext(ctx, c.logger).Error("Failed to record transaction", "type", draft.Type, "error", err)
		return nil, fmt.Errorf("failed to record transaction: %w", err)
	}
	s.recorded = true
	c.step(ctx, s, StatePending)
	return txn, nil
}

// reject records a precondition failure as a failed attempt and returns cause.
// A recording failure is logged and does not replace cause.
func (c *Coordinator) reject(ctx context.Context, s *saga, draft transaction.Draft, reason string, cause error) (*transaction.Transaction, error) {
	detached := context.WithoutCancel(ctx)
	c.step(ctx, s, StateFailed)

	txn, err := c.txLog.Create(detached, draft)
	if err != nil {
		logger.FromContext(ctx, c.logger).Error("Failed to record rejected attempt",
			"type", draft.Type,
			"reason", reason,
			"error", err,
		)
		return nil, cause
	}
	s.recorded = true

	_ = c.markFailed(detached, txn, reason)
	return txn, cause
}

func (c *Coordinator) fail(ctx context.Context, s *saga, txn *transaction.Transaction, reason string, cause error) (*transaction.Transaction, error) {
	c.step(ctx, s, StateFailed)
	_ = c.markFailed(ctx, txn, reason)
	return txn, cause
}

func (c *Coordinator) markFailed(ctx context.Context, txn *transaction.Transaction, reason string) error {
	if err := c.txLog.SetStatus(context.WithoutCancel(ctx), txn.ID, transaction.StatusFailed, reason); err != nil {
		logger.FromContext(ctx, c.logger).Error("Failed to mark transaction failed",
			"transaction_id", txn.ID.String(),
			"reason", reason,
			"error", err,
		)
		return err
	}
	_, _ = txn.Transition(transaction.StatusFailed, reason)
	return nil
}

func (c *Coordinator) complete(ctx context.Context, s *saga, txn *transaction.Transaction) (*transaction.Transaction, error) {
	c.step(ctx, s, StateCompleted)
	if err := c.txLog.SetStatus(context.WithoutCancel(ctx), txn.ID, transaction.StatusCompleted, ""); err != nil {
		logger.FromContext(ctx, c.logger).Error("Failed to mark transaction completed",
			"transaction_id", txn.ID.String(),
			"error", err,
		)
		return txn, fmt.Errorf("%w: transaction %s: %v", ErrStatusNotRecorded, txn.ID, err)
	}
	_, _ = txn.Transition(transaction.StatusCompleted, "")
	return txn, nil
}

func (c *Coordinator) step(ctx context.Context, s *saga, next State) {
	if err := s.advance(next); err != nil {
		logger.FromContext(ctx, c.logger).Error("Saga rejected state transition", "operation", s.operation, "error", err)
	}
}

func (c *Coordinator) finish(ctx context.Context, s *saga, txn *transaction.Transaction, err error) {
	outcome := metrics.OutcomeCompleted
	switch {
	case err == nil:
	case s.partial:
		outcome = metrics.OutcomePartial
	case s.recorded:
		outcome = metrics.OutcomeFailed
	default:
		outcome = metrics.OutcomeRejected
	}
	metrics.RecordSaga(string(s.operation), outcome, time.Since(s.started))

	log := logger.FromContext(ctx, c.logger).With(
		"operation", s.operation,
		"outcome", outcome,
		"path", s.path(),
	)
	if txn != nil {
		log = log.With("transaction_id", txn.ID.String())
	}
	if err != nil {
		log.Info("Transaction not completed", "error", err)
		return
	}
	log.Info("Transaction completed", "amount", txn.Amount.String())
}

func debitFailureReason(err error) string {
	if errors.Is(err, account.ErrInsufficientFunds{}) {
		return transaction.ReasonInsufficientFunds
	}
	return transaction.ReasonDebitFailed
}

func initiator(p *identity.Principal) string {
	if p == nil {
		return ""
	}
	return p.UserID
}
