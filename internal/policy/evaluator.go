package policy

import "time"

// Booking status values the evaluator cares about. The booking store owns the
// full lifecycle; only finalized states change the outcome here.
const (
	StatusPending   = "pending"
	StatusConfirmed = "confirmed"
	StatusCompleted = "completed"
	StatusCancelled = "cancelled"
)

// Payment status values attached to a booking.
const (
	PaymentPending  = "pending"
	PaymentPaid     = "paid"
	PaymentRefunded = "refunded"
)

// Decision is the pure output of evaluating a booking against the tier table
// at a point in time. It is never persisted; both the read-only eligibility
// endpoint and the cancellation workflow recompute it through Evaluate so the
// caller-facing answer always matches what the workflow will do.
type Decision struct {
	CanCancel           bool    `json:"can_cancel"`
	CanReschedule       bool    `json:"can_reschedule"`
	RefundPercentage    int     `json:"refund_percentage"`
	RescheduleFeeSatang int64   `json:"reschedule_fee_satang"`
	HoursUntilBooking   float64 `json:"hours_until_booking"`
	TierLabel           string  `json:"tier_label,omitempty"`
	Reason              string  `json:"reason,omitempty"`
}

// Evaluate maps (now, appointment time, booking status, payment status, tier
// table) to a Decision. Deterministic and side-effect free.
func Evaluate(now, startAt time.Time, bookingStatus, paymentStatus string, p Policy) Decision {
	hours := startAt.Sub(now).Hours()
	d := Decision{HoursUntilBooking: hours}

	if bookingStatus == StatusCancelled || bookingStatus == StatusCompleted {
		d.Reason = "booking already finalized"
		return d
	}

	if hours < 0 {
		d.Reason = "appointment time already passed"
		return d
	}

	tier := p.Match(hours)
	if tier == nil {
		d.Reason = "no applicable cancellation policy for this time window"
		return d
	}

	d.TierLabel = tier.Label
	d.CanCancel = tier.CanCancel
	d.CanReschedule = tier.CanReschedule
	d.RescheduleFeeSatang = tier.RescheduleFeeSatang
	if paymentStatus == PaymentPaid {
		d.RefundPercentage = tier.RefundPercentage
	}
	switch {
	case !d.CanCancel && !d.CanReschedule:
		d.Reason = "cancellation and reschedule window closed for " + tier.Label
	case !d.CanCancel:
		d.Reason = "cancellation window closed for " + tier.Label
	case !d.CanReschedule:
		d.Reason = "reschedule window closed for " + tier.Label
	}
	return d
}
