package cancellation

import (
	"context"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	"github.com/sabaihome/booking-platform/internal/notify"
	"github.com/sabaihome/booking-platform/internal/policy"
	"github.com/sabaihome/booking-platform/internal/refunds"
)

// CancelBooking runs the full cancellation workflow: validate, evaluate,
// commit the status transition, attempt the refund, fan out notifications.
// The conditional status update is the commit point; refund and notification
// failures are reported in the result, never rolled back.
func (s *Service) CancelBooking(ctx context.Context, bookingID uuid.UUID, req CancelRequest) (*CancelResult, error) {
	return s.cancel(ctx, bookingID, req, false)
}

// CancelBookingAdmin is the operator path: it skips the tier eligibility gate
// so support staff can cancel inside the no-cancel window, while the
// conditional update still rejects already-finalized bookings.
func (s *Service) CancelBookingAdmin(ctx context.Context, bookingID uuid.UUID, req CancelRequest) (*CancelResult, error) {
	return s.cancel(ctx, bookingID, req, true)
}

func (s *Service) cancel(ctx context.Context, bookingID uuid.UUID, req CancelRequest, override bool) (*CancelResult, error) {
	started := s.now()
	ctx, span := tracer.Start(ctx, "cancellation.cancel")
	defer span.End()
	span.SetAttributes(
		attribute.String("sabaihome.booking_id", bookingID.String()),
		attribute.String("sabaihome.refund_option", req.RefundOption),
		attribute.Bool("sabaihome.operator_override", override),
	)

	if err := validateCancelRequest(req); err != nil {
		return nil, err
	}
	if !override && req.RefundOption != RefundAuto {
		return nil, validationErrorf("refund_option %q is reserved for operators, use %q", req.RefundOption, RefundAuto)
	}

	b, err := s.store.GetByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	startAt, err := b.StartAt(s.loc)
	if err != nil {
		return nil, err
	}

	decision := policy.Evaluate(s.now(), startAt, b.Status, b.PaymentStatus, s.policy)
	if !decision.CanCancel && !override {
		s.observeWorkflow("cancel", "rejected", started)
		return &CancelResult{
			BookingID: b.ID,
			Status:    b.Status,
			Reason:    decision.Reason,
		}, nil
	}

	committed, err := s.store.CancelIfActive(ctx, b.ID, req.Reason)
	if err != nil {
		return nil, err
	}
	if !committed {
		// A concurrent request won the transition; re-read so the caller
		// sees the terminal status, not the stale pre-read one.
		status := ""
		if cur, err := s.store.GetByID(ctx, b.ID); err == nil {
			status = cur.Status
		}
		s.observeWorkflow("cancel", "rejected", started)
		return &CancelResult{
			BookingID: b.ID,
			Status:    status,
			Reason:    "booking already finalized",
		}, nil
	}

	s.logger.Info("booking cancelled",
		"booking_id", b.ID,
		"reason", req.Reason,
		"refund_option", req.RefundOption,
		"hours_until", decision.HoursUntilBooking,
	)

	pct := resolveRefundPercentage(req, decision)
	var refund *refunds.Outcome
	if pct > 0 && b.PaymentStatus == policy.PaymentPaid && s.refunder != nil {
		refund = s.refunder.Process(ctx, b, pct, req.Reason, uuid.New())
		if s.metrics != nil {
			status := refunds.StatusCompleted
			if !refund.Success {
				status = refunds.StatusFailed
			}
			s.metrics.ObserveRefund(status, refund.RefundAmountSatang)
		}
	}

	cancelled := *b
	cancelled.Status = policy.StatusCancelled
	cancelled.CancellationReason = req.Reason
	evt := notify.Event{
		Type:    notify.EventCancelled,
		Booking: cancelled,
		Reason:  req.Reason,
	}
	if refund != nil {
		evt.RefundAmountSatang = refund.RefundAmountSatang
		evt.RefundFailed = !refund.Success
	}
	notifications := s.notifier.Notify(ctx, evt)

	s.observeWorkflow("cancel", "cancelled", started)
	return &CancelResult{
		BookingID:     b.ID,
		Status:        policy.StatusCancelled,
		Cancelled:     true,
		Refund:        refund,
		Notifications: notifications,
	}, nil
}

func validateCancelRequest(req CancelRequest) error {
	if req.Reason == "" {
		return validationErrorf("reason is required")
	}
	switch req.RefundOption {
	case RefundAuto, RefundNone, RefundFull:
		return nil
	case RefundPartial:
		if req.RefundPercentage == nil {
			return validationErrorf("refund_percentage is required for a partial refund")
		}
		if p := *req.RefundPercentage; p <= 0 || p > 100 {
			return validationErrorf("refund_percentage must be in (0, 100], got %d", p)
		}
		return nil
	case "":
		return validationErrorf("refund_option is required")
	default:
		return validationErrorf("unknown refund_option %q", req.RefundOption)
	}
}

// resolveRefundPercentage applies the caller's override. Auto defers to the
// tier table; none, full and partial bypass it entirely, including above the
// tier's configured percentage.
func resolveRefundPercentage(req CancelRequest, decision policy.Decision) int {
	switch req.RefundOption {
	case RefundNone:
		return 0
	case RefundFull:
		return 100
	case RefundPartial:
		return *req.RefundPercentage
	default:
		return decision.RefundPercentage
	}
}
