package refunds

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Transaction statuses.
const (
	StatusPending   = "pending"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

// Transaction is the financial record of money returned for one booking.
// Failed rows stay behind as the audit trail for manual reconciliation.
type Transaction struct {
	ID                uuid.UUID
	BookingID         uuid.UUID
	ProviderChargeRef string
	ProviderRefundRef string
	AmountSatang      int64
	Percentage        int
	Reason            string
	Status            string
	FailureMessage    string
	CreatedAt         time.Time
}

type execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// PostgresStore persists refund transactions.
type PostgresStore struct {
	db execer
}

// NewPostgresStore initializes a store backed by pgxpool.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	if pool == nil {
		panic("refunds: pgx pool required")
	}
	return &PostgresStore{db: pool}
}

func newPostgresStoreWithExec(db execer) *PostgresStore {
	return &PostgresStore{db: db}
}

// Insert writes a terminal refund transaction row. The partial unique index on
// booking_id for non-failed rows backs the one-refund-per-cancellation
// invariant at the schema level.
func (s *PostgresStore) Insert(ctx context.Context, txn *Transaction) error {
	query := `
		INSERT INTO refund_transactions
			(id, booking_id, provider_charge_ref, provider_refund_ref,
			 amount_satang, percentage, reason, status, failure_message)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	if _, err := s.db.Exec(ctx, query,
		txn.ID,
		txn.BookingID,
		txn.ProviderChargeRef,
		txn.ProviderRefundRef,
		txn.AmountSatang,
		txn.Percentage,
		txn.Reason,
		txn.Status,
		txn.FailureMessage,
	); err != nil {
		return fmt.Errorf("refunds: insert transaction: %w", err)
	}
	return nil
}
