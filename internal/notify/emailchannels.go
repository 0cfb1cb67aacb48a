package notify

import (
	"context"
	"fmt"
	"strings"
)

// CustomerEmailChannel emails the customer about their own booking.
type CustomerEmailChannel struct {
	email EmailSender
}

// NewCustomerEmailChannel creates the customer channel.
func NewCustomerEmailChannel(email EmailSender) *CustomerEmailChannel {
	if email == nil {
		return nil
	}
	return &CustomerEmailChannel{email: email}
}

func (c *CustomerEmailChannel) Name() string { return ChannelCustomer }

// Send emails the booking's customer.
func (c *CustomerEmailChannel) Send(ctx context.Context, evt Event) error {
	b := evt.Booking
	if b.CustomerEmail == "" {
		return fmt.Errorf("notify: booking %s has no customer email", b.ID)
	}

	var subject, body string
	switch evt.Type {
	case EventRescheduled:
		subject = "Your booking has been rescheduled - Sabai Home Spa"
		body = fmt.Sprintf(`Hi %s,

Your booking has been moved to %s at %s.

A new therapist will be confirmed for the new time shortly.

— Sabai Home Spa`, customerName(b.CustomerName), b.Date, b.StartTime)
	default:
		subject = "Your booking has been cancelled - Sabai Home Spa"
		refundLine := ""
		if evt.RefundAmountSatang > 0 {
			if evt.RefundFailed {
				refundLine = fmt.Sprintf("\nYour refund of ฿%.2f is being processed manually and our team will contact you shortly.\n", float64(evt.RefundAmountSatang)/100)
			} else {
				refundLine = fmt.Sprintf("\nA refund of ฿%.2f has been issued to your original payment method.\n", float64(evt.RefundAmountSatang)/100)
			}
		}
		body = fmt.Sprintf(`Hi %s,

Your booking on %s at %s has been cancelled.
Reason: %s
%s
We hope to welcome you again soon.

— Sabai Home Spa`, customerName(b.CustomerName), b.Date, b.StartTime, evt.Reason, refundLine)
	}

	return c.email.Send(ctx, EmailMessage{
		To:      b.CustomerEmail,
		ToName:  b.CustomerName,
		Subject: subject,
		Body:    body,
	})
}

// AdminEmailChannel emails the operations inbox about every change.
type AdminEmailChannel struct {
	email      EmailSender
	recipients []string
}

// NewAdminEmailChannel creates the admin channel.
func NewAdminEmailChannel(email EmailSender, recipients []string) *AdminEmailChannel {
	if email == nil || len(recipients) == 0 {
		return nil
	}
	return &AdminEmailChannel{email: email, recipients: recipients}
}

func (c *AdminEmailChannel) Name() string { return ChannelAdmin }

// Send mails every configured admin recipient; one failed recipient fails the
// channel but the rest are still attempted.
func (c *AdminEmailChannel) Send(ctx context.Context, evt Event) error {
	b := evt.Booking
	subject := fmt.Sprintf("Booking %s: %s", shortID(b.ID), eventVerb(evt.Type))
	refundInfo := ""
	if evt.RefundAmountSatang > 0 {
		status := "issued"
		if evt.RefundFailed {
			status = "FAILED - needs manual reconciliation"
		}
		refundInfo = fmt.Sprintf("\nRefund: ฿%.2f (%s)", float64(evt.RefundAmountSatang)/100, status)
	}
	body := fmt.Sprintf(`Booking %s was %s.

Customer: %s
Date: %s %s
Reason: %s%s`, b.ID, eventVerb(evt.Type), b.CustomerName, b.Date, b.StartTime, evt.Reason, refundInfo)

	var failed []string
	for _, recipient := range c.recipients {
		msg := EmailMessage{To: recipient, Subject: subject, Body: body}
		if err := c.email.Send(ctx, msg); err != nil {
			failed = append(failed, recipient)
		}
	}
	if len(failed) > 0 {
		return fmt.Errorf("notify: admin email failed for %s", strings.Join(failed, ", "))
	}
	return nil
}

func eventVerb(eventType string) string {
	if eventType == EventRescheduled {
		return "rescheduled"
	}
	return "cancelled"
}

func customerName(name string) string {
	if name == "" {
		return "there"
	}
	return name
}

func shortID(id fmt.Stringer) string {
	s := id.String()
	if len(s) > 8 {
		return s[:8]
	}
	return s
}

var _ Channel = (*CustomerEmailChannel)(nil)
var _ Channel = (*AdminEmailChannel)(nil)
