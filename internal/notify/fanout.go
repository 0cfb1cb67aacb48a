package notify

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/sabaihome/booking-platform/pkg/logging"
)

// FanoutConfig carries the channel set and delivery bounds.
type FanoutConfig struct {
	Customer   Channel
	StaffLine  Channel
	StaffInApp Channel
	Hotel      Channel
	Admin      Channel
	// Timeout bounds each individual channel send.
	Timeout time.Duration
	Logger  *logging.Logger
	Metrics NotificationObserver
}

// NotificationObserver counts per-channel outcomes.
type NotificationObserver interface {
	ObserveNotification(channel string, ok bool)
}

// Fanout dispatches an event to its stakeholder channels. Channels run
// concurrently, every failure is swallowed into the outcome map, and all
// sends are awaited before returning so the caller can report each channel.
type Fanout struct {
	cfg    FanoutConfig
	logger *logging.Logger
}

// NewFanout creates the fan-out. Nil channels are simply never dispatched.
func NewFanout(cfg FanoutConfig) *Fanout {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Default()
	}
	return &Fanout{cfg: cfg, logger: logger}
}

// Notify sends the event to the channel list that applies to it and returns
// the complete per-channel outcome map. It never returns an error: a channel
// failure is a false entry, nothing more.
func (f *Fanout) Notify(ctx context.Context, evt Event) map[string]bool {
	channels := f.channelsFor(evt)
	results := make(map[string]bool, len(channels))
	if len(channels) == 0 {
		return results
	}

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	for _, ch := range channels {
		g.Go(func() error {
			ok := f.send(gctx, ch, evt)
			mu.Lock()
			results[ch.Name()] = ok
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()
	return results
}

// send runs one channel with its own timeout and panic isolation.
func (f *Fanout) send(ctx context.Context, ch Channel, evt Event) (ok bool) {
	defer func() {
		if r := recover(); r != nil {
			f.logger.Error("notification channel panicked", "channel", ch.Name(), "booking_id", evt.Booking.ID, "panic", r)
			ok = false
			if f.cfg.Metrics != nil {
				f.cfg.Metrics.ObserveNotification(ch.Name(), false)
			}
		}
	}()

	sendCtx, cancel := context.WithTimeout(ctx, f.cfg.Timeout)
	defer cancel()

	if err := ch.Send(sendCtx, evt); err != nil {
		f.logger.Error("notification channel failed", "channel", ch.Name(), "booking_id", evt.Booking.ID, "event", evt.Type, "error", err)
		if f.cfg.Metrics != nil {
			f.cfg.Metrics.ObserveNotification(ch.Name(), false)
		}
		return false
	}
	if f.cfg.Metrics != nil {
		f.cfg.Metrics.ObserveNotification(ch.Name(), true)
	}
	return true
}

// channelsFor builds the fixed, event-specific channel list. Cancellations
// reach every stakeholder; reschedules inform the released staff member over
// both staff channels.
func (f *Fanout) channelsFor(evt Event) []Channel {
	var out []Channel
	add := func(ch Channel) {
		if ch != nil {
			out = append(out, ch)
		}
	}

	switch evt.Type {
	case EventRescheduled:
		if evt.StaffID() != nil {
			add(f.cfg.StaffLine)
			add(f.cfg.StaffInApp)
		}
	default:
		add(f.cfg.Customer)
		if evt.StaffID() != nil {
			add(f.cfg.StaffLine)
		}
		if evt.Booking.HotelID != nil {
			add(f.cfg.Hotel)
		}
		add(f.cfg.Admin)
	}
	return out
}
