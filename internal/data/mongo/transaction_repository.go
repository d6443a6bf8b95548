// Package mongo provides the MongoDB transaction log.
package mongo

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/banking-ledger-saga/internal/domain/money"
	"github.com/banking-ledger-saga/internal/domain/transaction"
)

const (
	// TransactionCollectionName is the name of the transaction collection in MongoDB
	TransactionCollectionName = "transactions"
)

// transactionDocument is the stored shape; ids are kept as strings for readable queries
type transactionDocument struct {
	ID                string    `bson:"_id"`
	Type              string    `bson:"type"`
	AmountCents       int64     `bson:"amount_cents"`
	Description       string    `bson:"description"`
	Status            string    `bson:"status"`
	AccountID         string    `bson:"account_id,omitempty"`
	FromAccountID     string    `bson:"from_account_id,omitempty"`
	ToAccountID       string    `bson:"to_account_id,omitempty"`
	TransferType      string    `bson:"transfer_type,omitempty"`
	InitiatedBy       string    `bson:"initiated_by,omitempty"`
	FailureReason     string    `bson:"failure_reason,omitempty"`
	Inconsistent      bool      `bson:"inconsistent"`
	InconsistencyNote string    `bson:"inconsistency_note,omitempty"`
	Timestamp         time.Time `bson:"timestamp"`
	UpdatedAt         time.Time `bson:"updated_at"`
}

func optionalID(id uuid.UUID) string {
	if id == uuid.Nil {
		return ""
	}
	return id.String()
}

func parseOptionalID(raw string) (uuid.UUID, error) {
	if raw == "" {
		return uuid.Nil, nil
	}
	return uuid.Parse(raw)
}

func toDocument(t *transaction.Transaction) transactionDocument {
	return transactionDocument{
		ID:                t.ID.String(),
		Type:              string(t.Type),
		AmountCents:       t.Amount.Cents(),
		Description:       t.Description,
		Status:            string(t.Status),
		AccountID:         optionalID(t.AccountID),
		FromAccountID:     optionalID(t.FromAccountID),
		ToAccountID:       optionalID(t.ToAccountID),
		TransferType:      string(t.TransferType),
		InitiatedBy:       t.InitiatedBy,
		FailureReason:     t.FailureReason,
		Inconsistent:      t.Inconsistent,
		InconsistencyNote: t.InconsistencyNote,
		Timestamp:         t.Timestamp,
		UpdatedAt:         t.UpdatedAt,
	}
}

func (d transactionDocument) toDomain() (*transaction.Transaction, error) {
	id, err := uuid.Parse(d.ID)
	if err != nil {
		return nil, fmt.Errorf("invalid transaction id %q: %w", d.ID, err)
	}
	accountID, err := parseOptionalID(d.AccountID)
	if err != nil {
		return nil, fmt.Errorf("invalid account_id on %s: %w", d.ID, err)
	}
	fromID, err := parseOptionalID(d.FromAccountID)
	if err != nil {
		return nil, fmt.Errorf("invalid from_account_id on %s: %w", d.ID, err)
	}
	toID, err := parseOptionalID(d.ToAccountID)
	if err != nil {
		return nil, fmt.Errorf("invalid to_account_id on %s: %w", d.ID, err)
	}

	return &transaction.Transaction{
		ID:                id,
		Type:              transaction.Type(d.Type),
		Amount:            money.FromCents(d.AmountCents),
		Description:       d.Description,
		Status:            transaction.Status(d.Status),
		AccountID:         accountID,
		FromAccountID:     fromID,
		ToAccountID:       toID,
		TransferType:      transaction.TransferType(d.TransferType),
		InitiatedBy:       d.InitiatedBy,
		FailureReason:     d.FailureReason,
		Inconsistent:      d.Inconsistent,
		InconsistencyNote: d.InconsistencyNote,
		Timestamp:         d.Timestamp.UTC(),
		UpdatedAt:         d.UpdatedAt.UTC(),
	}, nil
}

// TransactionRepository implements transaction.Log for MongoDB
type TransactionRepository struct {
	db     *mongo.Database
	logger *slog.Logger
}

// NewTransactionRepository creates a new MongoDB transaction log
func NewTransactionRepository(logger *slog.Logger, db *mongo.Database) *TransactionRepository {
	return &TransactionRepository{
		db:     db,
		logger: logger,
	}
}

func (r *TransactionRepository) collection() *mongo.Collection {
	return r.db.Collection(TransactionCollectionName)
}

// Create records a new pending transaction
func (r *TransactionRepository) Create(ctx context.Context, draft transaction.Draft) (*transaction.Transaction, error) {
	txn, err := transaction.NewFromDraft(draft)
	if err != nil {
		return nil, err
	}

	if _, err := r.collection().InsertOne(ctx, toDocument(txn)); err != nil {
		r.logger.Error("Failed to create transaction",
			"transaction_id", txn.ID.String(),
			"type", string(txn.Type),
			"error", err)
		return nil, fmt.Errorf("failed to create transaction: %w", err)
	}

	return txn, nil
}

// SetStatus moves a pending transaction to a terminal status. The filter on
// status=pending makes the transition atomic; a miss is resolved by re-reading.
func (r *TransactionRepository) SetStatus(ctx context.Context, id uuid.UUID, status transaction.Status, reason string) error {
	if !status.Terminal() {
		return transaction.ErrInvalidStatus
	}

	set := bson.M{
		"status":     string(status),
		"updated_at": time.Now().UTC(),
	}
	if status == transaction.StatusFailed && reason != "" {
		set["failure_reason"] = reason
	}

	filter := bson.M{"_id": id.String(), "status": string(transaction.StatusPending)}
	result, err := r.collection().UpdateOne(ctx, filter, bson.M{"$set": set})
	if err != nil {
		r.logger.Error("Failed to update transaction status",
			"transaction_id", id.String(),
			"status", string(status),
			"error", err)
		return fmt.Errorf("failed to update transaction status: %w", err)
	}
	if result.MatchedCount > 0 {
		return nil
	}

	current, err := r.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if current.Status == status {
		r.logger.Debug("Transaction already in requested status", "transaction_id", id.String(), "status", string(status))
		return nil
	}

	conflict := transaction.ErrStatusConflict{TransactionID: id, Current: current.Status, Requested: status}
	r.logger.Warn("Rejected transaction status overwrite",
		"transaction_id", id.String(),
		"current", string(current.Status),
		"requested", string(status))
	return conflict
}

// FlagInconsistency marks a failed transaction for operator reconciliation
func (r *TransactionRepository) FlagInconsistency(ctx context.Context, id uuid.UUID, note string) error {
	filter := bson.M{"_id": id.String(), "status": string(transaction.StatusFailed)}
	update := bson.M{
		"$set": bson.M{
			"inconsistent":       true,
			"inconsistency_note": note,
			"updated_at":         time.Now().UTC(),
		},
	}

	result, err := r.collection().UpdateOne(ctx, filter, update)
	if err != nil {
		r.logger.Error("Failed to flag transaction", "transaction_id", id.String(), "error", err)
		return fmt.Errorf("failed to flag transaction: %w", err)
	}
	if result.MatchedCount > 0 {
		return nil
	}

	current, err := r.GetByID(ctx, id)
	if err != nil {
		return err
	}
	return transaction.ErrNotFlaggable{TransactionID: id, Status: current.Status}
}

// GetByID retrieves a transaction by its ID.
// Returns ErrTransactionNotFound if no transaction exists.
func (r *TransactionRepository) GetByID(ctx context.Context, id uuid.UUID) (*transaction.Transaction, error) {
	var doc transactionDocument
	err := r.collection().FindOne(ctx, bson.M{"_id": id.String()}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, transaction.ErrTransactionNotFound{TransactionID: id}
		}
		r.logger.Error("Failed to get transaction",
			"transaction_id", id.String(),
			"error", err)
		return nil, fmt.Errorf("failed to get transaction: %w", err)
	}

	return doc.toDomain()
}

// ListByAccount returns transactions touching the account on any leg, newest first
func (r *TransactionRepository) ListByAccount(ctx context.Context, accountID uuid.UUID, limit int) ([]*transaction.Transaction, error) {
	return r.ListByAccounts(ctx, []uuid.UUID{accountID}, limit)
}

// ListByAccounts returns transactions touching any of the accounts, newest first
func (r *TransactionRepository) ListByAccounts(ctx context.Context, accountIDs []uuid.UUID, limit int) ([]*transaction.Transaction, error) {
	if len(accountIDs) == 0 {
		return []*transaction.Transaction{}, nil
	}

	ids := make([]string, 0, len(accountIDs))
	for _, id := range accountIDs {
		ids = append(ids, id.String())
	}
	in := bson.M{"$in": ids}
	filter := bson.M{"$or": bson.A{
		bson.M{"account_id": in},
		bson.M{"from_account_id": in},
		bson.M{"to_account_id": in},
	}}

	return r.find(ctx, filter, limit, "account_count", len(ids))
}

// ListAll returns every transaction, newest first
func (r *TransactionRepository) ListAll(ctx context.Context, limit int) ([]*transaction.Transaction, error) {
	return r.find(ctx, bson.M{}, limit, "scope", "all")
}

func (r *TransactionRepository) find(ctx context.Context, filter bson.M, limit int, logKey string, logValue interface{}) ([]*transaction.Transaction, error) {
	opts := options.Find().SetSort(bson.D{{Key: "timestamp", Value: -1}})
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}

	cursor, err := r.collection().Find(ctx, filter, opts)
	if err != nil {
		r.logger.Error("Failed to query transactions", logKey, logValue, "error", err)
		return nil, fmt.Errorf("failed to query transactions: %w", err)
	}
	defer cursor.Close(ctx)

	var docs []transactionDocument
	if err := cursor.All(ctx, &docs); err != nil {
		r.logger.Error("Failed to decode transactions", logKey, logValue, "error", err)
		return nil, fmt.Errorf("failed to decode transactions: %w", err)
	}

	txns := make([]*transaction.Transaction, 0, len(docs))
	for _, doc := range docs {
		txn, err := doc.toDomain()
		if err != nil {
			r.logger.Error("Skipping malformed transaction document", "error", err)
			continue
		}
		txns = append(txns, txn)
	}
	return txns, nil
}

// EnsureIndexes creates the indexes backing the per-account queries
func (r *TransactionRepository) EnsureIndexes(ctx context.Context) error {
	models := []mongo.IndexModel{
		{Keys: bson.D{{Key: "account_id", Value: 1}, {Key: "timestamp", Value: -1}}},
		{Keys: bson.D{{Key: "from_account_id", Value: 1}, {Key: "timestamp", Value: -1}}},
		{Keys: bson.D{{Key: "to_account_id", Value: 1}, {Key: "timestamp", Value: -1}}},
		{Keys: bson.D{{Key: "timestamp", Value: -1}}},
	}
	if _, err := r.collection().Indexes().CreateMany(ctx, models); err != nil {
		r.logger.Error("Failed to create transaction indexes", "error", err)
		return fmt.Errorf("failed to create transaction indexes: %w", err)
	}
	return nil
}

// compile-time check
var _ transaction.Log = (*TransactionRepository)(nil)
