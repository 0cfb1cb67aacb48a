package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sabaihome/booking-platform/pkg/logging"
)

// HotelWebhookChannel notifies the hotel partner's system when an in-hotel
// booking changes. Only invoked for bookings carrying a hotel reference.
type HotelWebhookChannel struct {
	webhookURL string
	secret     string
	httpClient *http.Client
	logger     *logging.Logger
}

// NewHotelWebhookChannel creates the hotel partner channel.
func NewHotelWebhookChannel(webhookURL, secret string, timeout time.Duration, logger *logging.Logger) *HotelWebhookChannel {
	if webhookURL == "" {
		return nil
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &HotelWebhookChannel{
		webhookURL: webhookURL,
		secret:     secret,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

func (c *HotelWebhookChannel) Name() string { return ChannelHotel }

// Send posts the event to the partner webhook.
func (c *HotelWebhookChannel) Send(ctx context.Context, evt Event) error {
	b := evt.Booking
	if b.HotelID == nil {
		return fmt.Errorf("notify: booking has no hotel partner")
	}

	payload := map[string]any{
		"event":      evt.Type,
		"booking_id": b.ID,
		"hotel_id":   *b.HotelID,
		"date":       b.Date,
		"time":       b.StartTime,
		"reason":     evt.Reason,
	}
	reqBody, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("notify: hotel marshal: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.webhookURL, bytes.NewReader(reqBody))
	if err != nil {
		return fmt.Errorf("notify: hotel request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.secret != "" {
		httpReq.Header.Set("X-Partner-Secret", c.secret)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("notify: hotel http: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusMultipleChoices {
		respBody, _ := io.ReadAll(resp.Body)
		c.logger.Error("hotel webhook failed", "status", resp.StatusCode, "body", string(respBody))
		return fmt.Errorf("notify: hotel webhook status %d", resp.StatusCode)
	}
	return nil
}

var _ Channel = (*HotelWebhookChannel)(nil)
