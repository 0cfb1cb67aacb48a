package notify

import (
	"context"

	"github.com/google/uuid"

	"github.com/sabaihome/booking-platform/internal/bookings"
)

// Event types fanned out by the cancellation and reschedule workflows.
const (
	EventCancelled   = "booking.cancelled"
	EventRescheduled = "booking.rescheduled"
)

// Channel names reported in the outcome map.
const (
	ChannelCustomer   = "customer"
	ChannelStaffLine  = "staff_line"
	ChannelStaffInApp = "staff_in_app"
	ChannelHotel      = "hotel"
	ChannelAdmin      = "admin"
)

// Event carries everything a channel needs to compose its message.
type Event struct {
	Type    string
	Booking bookings.Booking
	Reason  string

	// Refund outcome of the cancellation, zero when no money moved.
	RefundAmountSatang int64
	RefundFailed       bool

	// Reschedule details. PrevStaffID identifies the staff member whose
	// assignment was released; the booking itself no longer references them.
	OldDate     string
	OldTime     string
	PrevStaffID *uuid.UUID
}

// StaffID returns the staff member this event concerns: the released
// assignee for reschedules, otherwise the booking's current assignee.
func (e Event) StaffID() *uuid.UUID {
	if e.PrevStaffID != nil {
		return e.PrevStaffID
	}
	return e.Booking.StaffID
}

// Channel delivers one event to one stakeholder endpoint. Implementations do
// not retry; retry/backoff belongs to the underlying client.
type Channel interface {
	Name() string
	Send(ctx context.Context, evt Event) error
}

// StaffDirectory resolves contact endpoints for assigned staff.
type StaffDirectory interface {
	GetStaffContact(ctx context.Context, staffID uuid.UUID) (*bookings.StaffContact, error)
}
