package notify

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
)

// StaffInAppChannel records an in-app notification row the staff mobile app
// polls for.
type StaffInAppChannel struct {
	db *sql.DB
}

// NewStaffInAppChannel creates the in-app channel.
func NewStaffInAppChannel(db *sql.DB) *StaffInAppChannel {
	if db == nil {
		return nil
	}
	return &StaffInAppChannel{db: db}
}

func (c *StaffInAppChannel) Name() string { return ChannelStaffInApp }

// Send inserts the notification row for the staff member.
func (c *StaffInAppChannel) Send(ctx context.Context, evt Event) error {
	staffID := evt.StaffID()
	if staffID == nil {
		return fmt.Errorf("notify: event has no staff member")
	}

	title, body := inAppContent(evt)
	query := `
		INSERT INTO staff_notifications (id, staff_id, booking_id, event_type, title, body)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	if _, err := c.db.ExecContext(ctx, query, uuid.New(), *staffID, evt.Booking.ID, evt.Type, title, body); err != nil {
		return fmt.Errorf("notify: insert staff notification: %w", err)
	}
	return nil
}

func inAppContent(evt Event) (string, string) {
	b := evt.Booking
	switch evt.Type {
	case EventRescheduled:
		return "Booking rescheduled",
			fmt.Sprintf("Booking %s moved to %s %s. Assignment released.", shortID(b.ID), b.Date, b.StartTime)
	default:
		return "Booking cancelled",
			fmt.Sprintf("Booking %s on %s %s was cancelled.", shortID(b.ID), b.Date, b.StartTime)
	}
}

var _ Channel = (*StaffInAppChannel)(nil)
