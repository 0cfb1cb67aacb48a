package refunds

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/sabaihome/booking-platform/internal/bookings"
	"github.com/sabaihome/booking-platform/internal/payments"
	"github.com/sabaihome/booking-platform/internal/policy"
	"github.com/sabaihome/booking-platform/pkg/logging"
)

var refundsTracer = otel.Tracer("sabaihome.internal.refunds")

// TransactionStore persists terminal refund transactions.
type TransactionStore interface {
	Insert(ctx context.Context, txn *Transaction) error
}

// PaymentStatusSetter flips a booking's payment status after a refund lands.
type PaymentStatusSetter interface {
	SetPaymentStatus(ctx context.Context, id uuid.UUID, status string) error
}

// CreditNoteGenerator produces and emails the credit-note document for a
// completed refund. Invoked fire-and-forget; failure never fails the refund.
type CreditNoteGenerator interface {
	GenerateAndEmail(ctx context.Context, txn Transaction) error
}

// Outcome reports one refund attempt, independent of whether the surrounding
// cancellation succeeded.
type Outcome struct {
	Success             bool      `json:"success"`
	RefundAmountSatang  int64     `json:"refund_amount_satang"`
	RefundTransactionID uuid.UUID `json:"refund_transaction_id,omitempty"`
	ProviderRefundRef   string    `json:"provider_refund_ref,omitempty"`
	Error               string    `json:"error,omitempty"`
}

// Orchestrator computes refund amounts and drives the provider call plus its
// bookkeeping. Exactly one provider attempt per invocation; retries are the
// caller's business and ride on the idempotency key.
type Orchestrator struct {
	provider payments.Provider
	store    TransactionStore
	bookings PaymentStatusSetter
	guard    *AttemptGuard
	docs     CreditNoteGenerator
	logger   *logging.Logger
	docsWait chan struct{}
}

// NewOrchestrator wires the refund path. guard and docs may be nil.
func NewOrchestrator(provider payments.Provider, store TransactionStore, bookingStore PaymentStatusSetter, guard *AttemptGuard, docs CreditNoteGenerator, logger *logging.Logger) *Orchestrator {
	if provider == nil {
		panic("refunds: payment provider required")
	}
	if store == nil {
		panic("refunds: transaction store required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Orchestrator{
		provider: provider,
		store:    store,
		bookings: bookingStore,
		guard:    guard,
		docs:     docs,
		logger:   logger,
	}
}

// Amount computes the satang to return for a percentage of the final price,
// rounded half-up to stay off float currency math.
func Amount(finalPriceSatang int64, percentage int) int64 {
	if finalPriceSatang <= 0 || percentage <= 0 {
		return 0
	}
	if percentage >= 100 {
		return finalPriceSatang
	}
	return (finalPriceSatang*int64(percentage) + 50) / 100
}

// IdempotencyKey derives the provider key from booking and attempt ids.
func IdempotencyKey(bookingID, attemptID uuid.UUID) string {
	return fmt.Sprintf("refund-%s-%s", bookingID, attemptID)
}

// Process runs one refund attempt for a cancelled booking. A zero percentage
// or an unpaid booking is a no-op success so the workflow proceeds either way.
func (o *Orchestrator) Process(ctx context.Context, booking *bookings.Booking, percentage int, reason string, attemptID uuid.UUID) *Outcome {
	ctx, span := refundsTracer.Start(ctx, "refunds.process")
	defer span.End()
	span.SetAttributes(
		attribute.String("sabaihome.booking_id", booking.ID.String()),
		attribute.Int("sabaihome.refund_percentage", percentage),
	)

	if percentage <= 0 || booking.PaymentStatus != policy.PaymentPaid || booking.PaymentRef == "" {
		return &Outcome{Success: true}
	}

	amount := Amount(booking.FinalPriceSatang, percentage)
	if amount == 0 {
		return &Outcome{Success: true}
	}

	acquired, err := o.guard.Acquire(ctx, booking.ID.String(), attemptID.String())
	if err != nil {
		o.logger.Error("refund guard unavailable, proceeding on provider idempotency",
			"booking_id", booking.ID, "error", err)
	} else if !acquired {
		return &Outcome{
			Success:            false,
			RefundAmountSatang: amount,
			Error:              "another refund attempt is already in flight for this booking",
		}
	}

	txn := &Transaction{
		ID:                uuid.New(),
		BookingID:         booking.ID,
		ProviderChargeRef: booking.PaymentRef,
		AmountSatang:      amount,
		Percentage:        percentage,
		Reason:            reason,
		Status:            StatusPending,
	}

	res, provErr := o.provider.Refund(ctx, payments.RefundRequest{
		ChargeRef:      booking.PaymentRef,
		AmountSatang:   amount,
		IdempotencyKey: IdempotencyKey(booking.ID, attemptID),
		Reason:         reason,
	})
	if provErr != nil {
		txn.Status = StatusFailed
		txn.FailureMessage = provErr.Error()
		if err := o.store.Insert(ctx, txn); err != nil {
			o.logger.Error("failed to record failed refund", "booking_id", booking.ID, "error", err)
		}
		if err := o.guard.Release(ctx, booking.ID.String()); err != nil {
			o.logger.Error("failed to release refund guard", "booking_id", booking.ID, "error", err)
		}
		span.RecordError(provErr)
		o.logger.Error("provider refund failed",
			"booking_id", booking.ID,
			"amount_satang", amount,
			"error", provErr,
		)
		return &Outcome{
			Success:             false,
			RefundAmountSatang:  amount,
			RefundTransactionID: txn.ID,
			Error:               provErr.Error(),
		}
	}

	txn.Status = StatusCompleted
	txn.ProviderRefundRef = res.ProviderRefundRef
	if err := o.store.Insert(ctx, txn); err != nil {
		o.logger.Error("failed to record completed refund", "booking_id", booking.ID, "refund_ref", res.ProviderRefundRef, "error", err)
	}
	if o.bookings != nil {
		if err := o.bookings.SetPaymentStatus(ctx, booking.ID, policy.PaymentRefunded); err != nil {
			o.logger.Error("failed to flip payment status after refund", "booking_id", booking.ID, "error", err)
		}
	}

	o.emitCreditNote(ctx, *txn)

	o.logger.Info("refund completed",
		"booking_id", booking.ID,
		"refund_ref", res.ProviderRefundRef,
		"amount_satang", amount,
		"percentage", percentage,
	)
	return &Outcome{
		Success:             true,
		RefundAmountSatang:  amount,
		RefundTransactionID: txn.ID,
		ProviderRefundRef:   res.ProviderRefundRef,
	}
}

// emitCreditNote kicks off document generation without blocking or failing
// the refund path.
func (o *Orchestrator) emitCreditNote(ctx context.Context, txn Transaction) {
	if o.docs == nil {
		return
	}
	detached := context.WithoutCancel(ctx)
	wait := o.docsWait
	go func() {
		defer func() {
			if r := recover(); r != nil {
				o.logger.Error("credit note generation panicked", "booking_id", txn.BookingID, "panic", r)
			}
			if wait != nil {
				close(wait)
			}
		}()
		genCtx, cancel := context.WithTimeout(detached, 30*time.Second)
		defer cancel()
		if err := o.docs.GenerateAndEmail(genCtx, txn); err != nil {
			o.logger.Error("credit note generation failed", "booking_id", txn.BookingID, "refund_transaction_id", txn.ID, "error", err)
		}
	}()
}
