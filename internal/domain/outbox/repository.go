package outbox

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// Repository keeps balance events until the relay hands them to the broker.
// Create joins the caller's ledger transaction through WithTx; the remaining
// methods are used by the relay only.
type Repository interface {
	Create(ctx context.Context, message *Message) error
	FetchPending(ctx context.Context, limit int) ([]*Message, error)
	MarkPublished(ctx context.Context, id int64) error
	// RecordFailure counts a failed delivery and parks the message once
	// maxAttempts is reached. It reports whether the message was parked.
	RecordFailure(ctx context.Context, id int64, cause string, maxAttempts int) (bool, error)
	Park(ctx context.Context, id int64, cause string) error
	WithTx(tx pgx.Tx) Repository
}

// ErrMessageNotFound is returned when no pending message has the given id
type ErrMessageNotFound struct {
	ID int64
}

func (e ErrMessageNotFound) Error() string {
	return fmt.Sprintf("pending outbox message %d not found", e.ID)
}
