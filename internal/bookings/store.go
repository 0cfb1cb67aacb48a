package bookings

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrBookingNotFound is returned when no booking matches the given id.
var ErrBookingNotFound = errors.New("bookings: booking not found")

type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresStore persists bookings in the relational database.
type PostgresStore struct {
	db querier
}

// NewPostgresStore initializes a store backed by pgxpool.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	if pool == nil {
		panic("bookings: pgx pool required")
	}
	return &PostgresStore{db: pool}
}

func newPostgresStoreWithQuerier(db querier) *PostgresStore {
	return &PostgresStore{db: db}
}

// GetByID fetches a booking with the customer's contact fields joined in.
func (s *PostgresStore) GetByID(ctx context.Context, id uuid.UUID) (*Booking, error) {
	query := `
		SELECT b.id, b.status, b.booking_date, b.start_time, b.staff_id,
		       b.customer_id, c.name, c.email, b.hotel_id,
		       b.payment_status, COALESCE(b.payment_ref, ''), b.final_price_satang,
		       COALESCE(b.cancellation_reason, ''), b.created_at
		FROM bookings b
		JOIN customers c ON c.id = b.customer_id
		WHERE b.id = $1
	`
	var b Booking
	if err := s.db.QueryRow(ctx, query, id).Scan(
		&b.ID,
		&b.Status,
		&b.Date,
		&b.StartTime,
		&b.StaffID,
		&b.CustomerID,
		&b.CustomerName,
		&b.CustomerEmail,
		&b.HotelID,
		&b.PaymentStatus,
		&b.PaymentRef,
		&b.FinalPriceSatang,
		&b.CancellationReason,
		&b.CreatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrBookingNotFound
		}
		return nil, fmt.Errorf("bookings: select: %w", err)
	}
	return &b, nil
}

// CancelIfActive transitions a booking to cancelled only while it is still
// pending or confirmed. Returns false when the row was already finalized, so
// concurrent cancellation attempts collapse to a single winner.
func (s *PostgresStore) CancelIfActive(ctx context.Context, id uuid.UUID, reason string) (bool, error) {
	query := `
		UPDATE bookings
		SET status = 'cancelled', cancellation_reason = $2, cancelled_at = now(), updated_at = now()
		WHERE id = $1 AND status IN ('pending', 'confirmed')
	`
	ct, err := s.db.Exec(ctx, query, id, reason)
	if err != nil {
		return false, fmt.Errorf("bookings: cancel: %w", err)
	}
	return ct.RowsAffected() > 0, nil
}

// UpdateSchedule moves a booking to a new date/time. When clearStaff is set
// the assignment is released so the staff member re-accepts under the new slot.
func (s *PostgresStore) UpdateSchedule(ctx context.Context, id uuid.UUID, date, startTime string, clearStaff bool) error {
	query := `
		UPDATE bookings
		SET booking_date = $2, start_time = $3,
		    staff_id = CASE WHEN $4 THEN NULL ELSE staff_id END,
		    updated_at = now()
		WHERE id = $1
	`
	ct, err := s.db.Exec(ctx, query, id, date, startTime, clearStaff)
	if err != nil {
		return fmt.Errorf("bookings: update schedule: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return ErrBookingNotFound
	}
	return nil
}

// SetPaymentStatus flips the booking's payment status, e.g. paid -> refunded.
func (s *PostgresStore) SetPaymentStatus(ctx context.Context, id uuid.UUID, status string) error {
	query := `UPDATE bookings SET payment_status = $2, updated_at = now() WHERE id = $1`
	ct, err := s.db.Exec(ctx, query, id, status)
	if err != nil {
		return fmt.Errorf("bookings: set payment status: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return ErrBookingNotFound
	}
	return nil
}

// GetStaffContact loads the LINE and email endpoints for a staff member.
func (s *PostgresStore) GetStaffContact(ctx context.Context, staffID uuid.UUID) (*StaffContact, error) {
	query := `
		SELECT id, name, COALESCE(line_user_id, ''), COALESCE(email, '')
		FROM staff
		WHERE id = $1
	`
	var c StaffContact
	if err := s.db.QueryRow(ctx, query, staffID).Scan(&c.StaffID, &c.Name, &c.LineUserID, &c.Email); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("bookings: staff %s not found", staffID)
		}
		return nil, fmt.Errorf("bookings: staff contact: %w", err)
	}
	return &c, nil
}
