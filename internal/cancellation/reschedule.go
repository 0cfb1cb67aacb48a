package cancellation

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	"github.com/sabaihome/booking-platform/internal/notify"
	"github.com/sabaihome/booking-platform/internal/payments"
	"github.com/sabaihome/booking-platform/internal/policy"
)

// RescheduleBooking moves a booking to a new slot. The assigned staff member
// is always released so they re-accept under the new availability. A
// reschedule fee, when the tier defines one, is charged best-effort: a failed
// charge is reported but never blocks the slot change.
func (s *Service) RescheduleBooking(ctx context.Context, bookingID uuid.UUID, req RescheduleRequest) (*RescheduleResult, error) {
	started := s.now()
	ctx, span := tracer.Start(ctx, "cancellation.reschedule")
	defer span.End()
	span.SetAttributes(attribute.String("sabaihome.booking_id", bookingID.String()))

	if err := validateRescheduleRequest(req); err != nil {
		return nil, err
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
	if !decision.CanReschedule {
		s.observeWorkflow("reschedule", "rejected", started)
		return &RescheduleResult{
			BookingID: b.ID,
			Status:    b.Status,
			Reason:    decision.Reason,
		}, nil
	}

	if err := s.store.UpdateSchedule(ctx, b.ID, req.NewDate, req.NewTime, true); err != nil {
		return nil, err
	}

	s.logger.Info("booking rescheduled",
		"booking_id", b.ID,
		"old_date", b.Date, "old_time", b.StartTime,
		"new_date", req.NewDate, "new_time", req.NewTime,
		"released_staff", b.StaffID,
	)

	result := &RescheduleResult{
		BookingID:     b.ID,
		Status:        b.Status,
		Rescheduled:   true,
		NewDate:       req.NewDate,
		NewTime:       req.NewTime,
		StaffReleased: true,
		FeeSatang:     decision.RescheduleFeeSatang,
	}

	if decision.RescheduleFeeSatang > 0 {
		result.FeeCharged, result.FeeError = s.chargeRescheduleFee(ctx, b.ID, b.PaymentRef, req, decision.RescheduleFeeSatang)
	}

	moved := *b
	moved.Date = req.NewDate
	moved.StartTime = req.NewTime
	moved.StaffID = nil
	result.Notifications = s.notifier.Notify(ctx, notify.Event{
		Type:        notify.EventRescheduled,
		Booking:     moved,
		OldDate:     b.Date,
		OldTime:     b.StartTime,
		PrevStaffID: b.StaffID,
	})

	s.observeWorkflow("reschedule", "rescheduled", started)
	return result, nil
}

func (s *Service) chargeRescheduleFee(ctx context.Context, bookingID uuid.UUID, chargeRef string, req RescheduleRequest, amount int64) (bool, string) {
	if s.fees == nil || chargeRef == "" {
		return false, "no payment method on file for the fee"
	}
	_, err := s.fees.ChargeFee(ctx, payments.FeeRequest{
		ChargeRef:    chargeRef,
		AmountSatang: amount,
		// Keyed on the target slot so a retried move collapses at the
		// provider instead of charging twice.
		IdempotencyKey: fmt.Sprintf("reschedule-fee-%s-%s-%s", bookingID, req.NewDate, req.NewTime),
		Description:    "Reschedule fee",
	})
	if err != nil {
		s.logger.Error("reschedule fee charge failed", "booking_id", bookingID, "amount_satang", amount, "error", err)
		return false, err.Error()
	}
	return true, ""
}

func validateRescheduleRequest(req RescheduleRequest) error {
	if req.NewDate == "" {
		return validationErrorf("new_date is required")
	}
	if req.NewTime == "" {
		return validationErrorf("new_time is required")
	}
	if _, err := time.Parse("2006-01-02", req.NewDate); err != nil {
		return validationErrorf("new_date must be YYYY-MM-DD, got %q", req.NewDate)
	}
	if _, err := time.Parse("15:04", req.NewTime); err != nil {
		return validationErrorf("new_time must be HH:MM, got %q", req.NewTime)
	}
	return nil
}
