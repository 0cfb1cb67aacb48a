package bookings

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Booking represents one scheduled home-service appointment. Rows are created
// by the booking wizard; this core only reads them and transitions them to
// cancelled or a new schedule.
type Booking struct {
	ID                 uuid.UUID
	Status             string
	Date               string // YYYY-MM-DD in the booking timezone
	StartTime          string // HH:MM in the booking timezone
	StaffID            *uuid.UUID
	CustomerID         uuid.UUID
	CustomerName       string
	CustomerEmail      string
	HotelID            *uuid.UUID
	PaymentStatus      string
	PaymentRef         string // provider charge reference, empty until paid
	FinalPriceSatang   int64
	CancellationReason string
	CreatedAt          time.Time
}

// StartAt combines the stored date and time strings in the given location.
func (b *Booking) StartAt(loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.UTC
	}
	t, err := time.ParseInLocation("2006-01-02 15:04", b.Date+" "+b.StartTime, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("bookings: parse schedule %q %q: %w", b.Date, b.StartTime, err)
	}
	return t, nil
}

// StaffContact holds the reachable endpoints for an assigned staff member.
type StaffContact struct {
	StaffID    uuid.UUID
	Name       string
	LineUserID string
	Email      string
}
