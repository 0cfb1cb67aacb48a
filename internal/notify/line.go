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

// LineClient pushes messages to staff through the LINE Messaging API.
type LineClient struct {
	baseURL      string
	channelToken string
	httpClient   *http.Client
	logger       *logging.Logger
}

// NewLineClient creates a LINE push client.
func NewLineClient(baseURL, channelToken string, timeout time.Duration, logger *logging.Logger) *LineClient {
	if baseURL == "" {
		baseURL = "https://api.line.me"
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &LineClient{
		baseURL:      baseURL,
		channelToken: channelToken,
		httpClient:   &http.Client{Timeout: timeout},
		logger:       logger,
	}
}

// Push sends a single text message to a LINE user.
func (c *LineClient) Push(ctx context.Context, lineUserID, text string) error {
	if c.channelToken == "" {
		return fmt.Errorf("notify: LINE channel token not configured")
	}
	if lineUserID == "" {
		return fmt.Errorf("notify: LINE user id required")
	}

	body := map[string]any{
		"to": lineUserID,
		"messages": []map[string]string{
			{"type": "text", "text": text},
		},
	}
	reqBody, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("notify: LINE marshal: %w", err)
	}

	apiURL := c.baseURL + "/v2/bot/message/push"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, apiURL, bytes.NewReader(reqBody))
	if err != nil {
		return fmt.Errorf("notify: LINE request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.channelToken)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("notify: LINE http: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusMultipleChoices {
		respBody, _ := io.ReadAll(resp.Body)
		c.logger.Error("LINE push failed", "status", resp.StatusCode, "body", string(respBody), "to", lineUserID)
		return fmt.Errorf("notify: LINE api status %d", resp.StatusCode)
	}

	c.logger.Info("LINE push sent", "to", lineUserID)
	return nil
}

// StaffLineChannel notifies the assigned staff member over LINE.
type StaffLineChannel struct {
	client *LineClient
	staff  StaffDirectory
}

// NewStaffLineChannel wires the LINE channel.
func NewStaffLineChannel(client *LineClient, staff StaffDirectory) *StaffLineChannel {
	return &StaffLineChannel{client: client, staff: staff}
}

func (c *StaffLineChannel) Name() string { return ChannelStaffLine }

// Send pushes the event text to the staff member's LINE account.
func (c *StaffLineChannel) Send(ctx context.Context, evt Event) error {
	staffID := evt.StaffID()
	if staffID == nil {
		return fmt.Errorf("notify: event has no staff member")
	}
	contact, err := c.staff.GetStaffContact(ctx, *staffID)
	if err != nil {
		return err
	}
	if contact.LineUserID == "" {
		return fmt.Errorf("notify: staff %s has no LINE account", staffID)
	}
	return c.client.Push(ctx, contact.LineUserID, staffLineText(evt))
}

func staffLineText(evt Event) string {
	b := evt.Booking
	switch evt.Type {
	case EventRescheduled:
		return fmt.Sprintf("Booking %s moved from %s %s to %s %s. Your assignment was released; please re-accept if the new slot works for you.",
			shortID(b.ID), evt.OldDate, evt.OldTime, b.Date, b.StartTime)
	default:
		return fmt.Sprintf("Booking %s on %s %s was cancelled (%s). The slot is free again.",
			shortID(b.ID), b.Date, b.StartTime, evt.Reason)
	}
}

var _ Channel = (*StaffLineChannel)(nil)
