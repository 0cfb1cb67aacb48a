package documents

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/sabaihome/booking-platform/internal/notify"
	"github.com/sabaihome/booking-platform/internal/refunds"
	"github.com/sabaihome/booking-platform/pkg/logging"
)

// CreditNoteService writes a credit-note ledger row for each completed refund
// and emails the note to the customer. Callers invoke it fire-and-forget; an
// error here never unwinds a refund.
type CreditNoteService struct {
	db     *sql.DB
	email  notify.EmailSender
	logger *logging.Logger
}

// NewCreditNoteService creates the service. email may be nil, in which case
// only the ledger row is written.
func NewCreditNoteService(db *sql.DB, email notify.EmailSender, logger *logging.Logger) *CreditNoteService {
	if db == nil {
		return nil
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &CreditNoteService{db: db, email: email, logger: logger}
}

// GenerateAndEmail records the credit note and sends it to the customer.
func (s *CreditNoteService) GenerateAndEmail(ctx context.Context, txn refunds.Transaction) error {
	noteNumber := creditNoteNumber(txn.ID, time.Now().UTC())

	query := `
		INSERT INTO credit_notes (id, note_number, refund_transaction_id, booking_id, amount_satang, issued_at)
		VALUES ($1, $2, $3, $4, $5, now())
	`
	if _, err := s.db.ExecContext(ctx, query, uuid.New(), noteNumber, txn.ID, txn.BookingID, txn.AmountSatang); err != nil {
		return fmt.Errorf("documents: insert credit note: %w", err)
	}

	email, err := s.customerEmail(ctx, txn.BookingID)
	if err != nil {
		return fmt.Errorf("documents: resolve recipient: %w", err)
	}

	if s.email == nil || email == "" {
		s.logger.Info("credit note recorded without email", "note_number", noteNumber, "booking_id", txn.BookingID)
		return nil
	}

	amountBaht := float64(txn.AmountSatang) / 100
	msg := notify.EmailMessage{
		To:      email,
		Subject: fmt.Sprintf("Credit Note %s - Sabai Home Spa", noteNumber),
		Body: fmt.Sprintf(`Your refund has been processed.

Credit Note: %s
Booking: %s
Amount: ฿%.2f
Reason: %s

The amount will reach your original payment method within 5-10 business days.

— Sabai Home Spa`, noteNumber, txn.BookingID, amountBaht, txn.Reason),
	}
	if err := s.email.Send(ctx, msg); err != nil {
		return fmt.Errorf("documents: email credit note: %w", err)
	}

	s.logger.Info("credit note issued", "note_number", noteNumber, "booking_id", txn.BookingID, "to", email)
	return nil
}

func (s *CreditNoteService) customerEmail(ctx context.Context, bookingID uuid.UUID) (string, error) {
	query := `
		SELECT COALESCE(c.email, '')
		FROM bookings b
		JOIN customers c ON c.id = b.customer_id
		WHERE b.id = $1
	`
	var email string
	if err := s.db.QueryRowContext(ctx, query, bookingID).Scan(&email); err != nil {
		if err == sql.ErrNoRows {
			return "", nil
		}
		return "", err
	}
	return email, nil
}

func creditNoteNumber(txnID uuid.UUID, at time.Time) string {
	short := txnID.String()[:8]
	return fmt.Sprintf("CN-%s-%s", at.Format("200601"), short)
}
