package cancellation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"

	"github.com/sabaihome/booking-platform/internal/bookings"
	"github.com/sabaihome/booking-platform/internal/notify"
	"github.com/sabaihome/booking-platform/internal/payments"
	"github.com/sabaihome/booking-platform/internal/policy"
	"github.com/sabaihome/booking-platform/internal/refunds"
	"github.com/sabaihome/booking-platform/pkg/logging"
)

var tracer = otel.Tracer("sabaihome.internal.cancellation")

// Refund options accepted on a cancellation request. Auto follows the tier
// table; the rest override the computed percentage.
const (
	RefundAuto    = "auto"
	RefundNone    = "none"
	RefundFull    = "full"
	RefundPartial = "partial"
)

// BookingStore is the persistence boundary the workflows mutate through.
type BookingStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*bookings.Booking, error)
	CancelIfActive(ctx context.Context, id uuid.UUID, reason string) (bool, error)
	UpdateSchedule(ctx context.Context, id uuid.UUID, date, startTime string, clearStaff bool) error
}

// Refunder runs one idempotent refund attempt and reports its outcome.
type Refunder interface {
	Process(ctx context.Context, booking *bookings.Booking, percentage int, reason string, attemptID uuid.UUID) *refunds.Outcome
}

// Notifier fans an event out to stakeholder channels and reports per-channel
// success. It never fails the workflow.
type Notifier interface {
	Notify(ctx context.Context, evt notify.Event) map[string]bool
}

// FeeCharger collects a flat fee as a top-up against the original charge.
type FeeCharger interface {
	ChargeFee(ctx context.Context, req payments.FeeRequest) (*payments.FeeResult, error)
}

// Observer records workflow outcomes for the metrics endpoint.
type Observer interface {
	ObserveWorkflow(operation, outcome string, elapsed time.Duration)
	ObserveRefund(status string, amountSatang int64)
}

// ValidationError marks a request-shape problem the caller can fix. The HTTP
// layer maps it to a 400 before any state is touched.
type ValidationError struct {
	msg string
}

func (e *ValidationError) Error() string { return e.msg }

func validationErrorf(format string, args ...any) *ValidationError {
	return &ValidationError{msg: fmt.Sprintf(format, args...)}
}

// IsValidationError reports whether err is a request-shape rejection.
func IsValidationError(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}

// CancelRequest is the caller's cancellation intent.
type CancelRequest struct {
	Reason           string `json:"reason"`
	RefundOption     string `json:"refund_option"`
	RefundPercentage *int   `json:"refund_percentage,omitempty"`
}

// CancelResult aggregates everything that happened during one cancellation:
// the status transition, the refund attempt if money moved, and the
// per-channel notification outcomes.
type CancelResult struct {
	BookingID     uuid.UUID        `json:"booking_id"`
	Status        string           `json:"status"`
	Cancelled     bool             `json:"cancelled"`
	Reason        string           `json:"reason,omitempty"`
	Refund        *refunds.Outcome `json:"refund"`
	Notifications map[string]bool  `json:"notifications,omitempty"`
}

// RescheduleRequest is the caller's new slot.
type RescheduleRequest struct {
	NewDate string `json:"new_date"`
	NewTime string `json:"new_time"`
}

// RescheduleResult reports the slot change, the fee attempt, and the staff
// notification outcomes.
type RescheduleResult struct {
	BookingID     uuid.UUID       `json:"booking_id"`
	Status        string          `json:"status"`
	Rescheduled   bool            `json:"rescheduled"`
	Reason        string          `json:"reason,omitempty"`
	NewDate       string          `json:"new_date,omitempty"`
	NewTime       string          `json:"new_time,omitempty"`
	StaffReleased bool            `json:"staff_released"`
	FeeSatang     int64           `json:"fee_satang,omitempty"`
	FeeCharged    bool            `json:"fee_charged"`
	FeeError      string          `json:"fee_error,omitempty"`
	Notifications map[string]bool `json:"notifications,omitempty"`
}

// Config wires the workflow service.
type Config struct {
	Store    BookingStore
	Refunder Refunder
	Notifier Notifier
	Fees     FeeCharger
	Policy   policy.Policy
	// Location interprets the booking's stored date and time.
	Location *time.Location
	Logger   *logging.Logger
	Metrics  Observer
}

// Service runs the cancellation and reschedule workflows. Each invocation is
// a single sequential pass; concurrent requests against the same booking are
// serialized by the store's conditional update, not here.
type Service struct {
	store    BookingStore
	refunder Refunder
	notifier Notifier
	fees     FeeCharger
	policy   policy.Policy
	loc      *time.Location
	logger   *logging.Logger
	metrics  Observer
	now      func() time.Time
}

// NewService creates the workflow service.
func NewService(cfg Config) *Service {
	if cfg.Store == nil {
		panic("cancellation: booking store required")
	}
	if cfg.Notifier == nil {
		panic("cancellation: notifier required")
	}
	if len(cfg.Policy.Tiers) == 0 {
		cfg.Policy = policy.Default()
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	if cfg.Logger == nil {
		cfg.Logger = logging.Default()
	}
	return &Service{
		store:    cfg.Store,
		refunder: cfg.Refunder,
		notifier: cfg.Notifier,
		fees:     cfg.Fees,
		policy:   cfg.Policy,
		loc:      cfg.Location,
		logger:   cfg.Logger,
		metrics:  cfg.Metrics,
		now:      time.Now,
	}
}

// CheckEligibility answers the read-only pre-flight probe. It shares Evaluate
// with the mutating workflows so the answer shown to the caller is exactly
// the decision the workflow will make moments later.
func (s *Service) CheckEligibility(ctx context.Context, bookingID uuid.UUID) (*policy.Decision, error) {
	b, err := s.store.GetByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	startAt, err := b.StartAt(s.loc)
	if err != nil {
		return nil, fmt.Errorf("cancellation: booking %s schedule: %w", bookingID, err)
	}
	d := policy.Evaluate(s.now(), startAt, b.Status, b.PaymentStatus, s.policy)
	return &d, nil
}

func (s *Service) observeWorkflow(operation, outcome string, started time.Time) {
	if s.metrics != nil {
		s.metrics.ObserveWorkflow(operation, outcome, time.Since(started))
	}
}
