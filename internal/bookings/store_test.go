package bookings

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	pgx "github.com/jackc/pgx/v5"
	pgxmock "github.com/pashagolub/pgxmock/v4"
)

func TestGetByID(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("failed to create pgx mock: %v", err)
	}
	defer mock.Close()

	store := newPostgresStoreWithQuerier(mock)
	id := uuid.New()
	customerID := uuid.New()
	staffID := uuid.New()
	created := time.Now().UTC()

	rows := pgxmock.NewRows([]string{
		"id", "status", "booking_date", "start_time", "staff_id",
		"customer_id", "name", "email", "hotel_id",
		"payment_status", "payment_ref", "final_price_satang",
		"cancellation_reason", "created_at",
	}).AddRow(
		id, "confirmed", "2025-06-10", "14:00", &staffID,
		customerID, "Khun Nok", "nok@example.com", (*uuid.UUID)(nil),
		"paid", "chrg_test_123", int64(100000),
		"", created,
	)
	mock.ExpectQuery("SELECT b.id, b.status").WithArgs(id).WillReturnRows(rows)

	b, err := store.GetByID(context.Background(), id)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if b.Status != "confirmed" || b.PaymentRef != "chrg_test_123" {
		t.Fatalf("unexpected booking %+v", b)
	}
	if b.StaffID == nil || *b.StaffID != staffID {
		t.Fatalf("staff id not mapped")
	}
	if b.HotelID != nil {
		t.Fatalf("expected nil hotel id")
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestGetByIDNotFound(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("failed to create pgx mock: %v", err)
	}
	defer mock.Close()

	store := newPostgresStoreWithQuerier(mock)
	id := uuid.New()
	mock.ExpectQuery("SELECT b.id, b.status").WithArgs(id).WillReturnError(pgx.ErrNoRows)

	if _, err := store.GetByID(context.Background(), id); err != ErrBookingNotFound {
		t.Fatalf("expected ErrBookingNotFound, got %v", err)
	}
}

func TestCancelIfActive(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("failed to create pgx mock: %v", err)
	}
	defer mock.Close()

	store := newPostgresStoreWithQuerier(mock)
	id := uuid.New()

	mock.ExpectExec("UPDATE bookings").WithArgs(id, "customer request").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	ok, err := store.CancelIfActive(context.Background(), id, "customer request")
	if err != nil || !ok {
		t.Fatalf("expected cancellation committed, got ok=%v err=%v", ok, err)
	}

	// Second attempt races a finalized row: zero rows affected.
	mock.ExpectExec("UPDATE bookings").WithArgs(id, "again").
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))
	ok, err = store.CancelIfActive(context.Background(), id, "again")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ok {
		t.Fatal("expected second cancellation to observe zero rows")
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestUpdateSchedule(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("failed to create pgx mock: %v", err)
	}
	defer mock.Close()

	store := newPostgresStoreWithQuerier(mock)
	id := uuid.New()

	mock.ExpectExec("UPDATE bookings").WithArgs(id, "2025-06-12", "09:30", true).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	if err := store.UpdateSchedule(context.Background(), id, "2025-06-12", "09:30", true); err != nil {
		t.Fatalf("UpdateSchedule: %v", err)
	}

	mock.ExpectExec("UPDATE bookings").WithArgs(id, "2025-06-12", "09:30", true).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))
	if err := store.UpdateSchedule(context.Background(), id, "2025-06-12", "09:30", true); err != ErrBookingNotFound {
		t.Fatalf("expected ErrBookingNotFound, got %v", err)
	}
}

func TestStartAt(t *testing.T) {
	loc, err := time.LoadLocation("Asia/Bangkok")
	if err != nil {
		t.Fatalf("load location: %v", err)
	}
	b := Booking{Date: "2025-06-10", StartTime: "14:00"}
	at, err := b.StartAt(loc)
	if err != nil {
		t.Fatalf("StartAt: %v", err)
	}
	if at.Hour() != 14 || at.Location() != loc {
		t.Fatalf("unexpected start time %v", at)
	}

	bad := Booking{Date: "2025-13-40", StartTime: "99:99"}
	if _, err := bad.StartAt(loc); err == nil {
		t.Fatal("expected parse error for malformed schedule")
	}
}
