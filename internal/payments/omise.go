package payments

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

// OmiseClient talks to the Omise REST API for refunds and top-up charges.
type OmiseClient struct {
	baseURL    string
	secretKey  string
	httpClient *http.Client
	logger     *logging.Logger
}

// NewOmiseClient creates a provider client bound by the given timeout.
func NewOmiseClient(baseURL, secretKey string, timeout time.Duration, logger *logging.Logger) *OmiseClient {
	if baseURL == "" {
		baseURL = "https://api.omise.co"
	}
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &OmiseClient{
		baseURL:    baseURL,
		secretKey:  secretKey,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

// Refund creates a refund against the original charge. One attempt only; the
// Idempotency-Key header lets the provider collapse caller retries.
func (c *OmiseClient) Refund(ctx context.Context, req RefundRequest) (*RefundResult, error) {
	if req.ChargeRef == "" {
		return nil, fmt.Errorf("payments: refund requires a charge reference")
	}

	body := map[string]any{
		"amount": req.AmountSatang,
	}
	if req.Reason != "" {
		body["metadata"] = map[string]string{"reason": req.Reason}
	}

	apiURL := fmt.Sprintf("%s/charges/%s/refunds", c.baseURL, req.ChargeRef)
	var parsed struct {
		ID     string `json:"id"`
		Status string `json:"status"`
	}
	if err := c.post(ctx, apiURL, req.IdempotencyKey, body, &parsed); err != nil {
		return nil, err
	}

	c.logger.Info("provider refund accepted",
		"refund_ref", parsed.ID,
		"charge_ref", req.ChargeRef,
		"amount_satang", req.AmountSatang,
	)
	return &RefundResult{ProviderRefundRef: parsed.ID, Status: parsed.Status}, nil
}

// ChargeFee creates a top-up charge against the customer behind the original
// charge, used for reschedule fees.
func (c *OmiseClient) ChargeFee(ctx context.Context, req FeeRequest) (*FeeResult, error) {
	if req.ChargeRef == "" {
		return nil, fmt.Errorf("payments: fee charge requires a charge reference")
	}

	body := map[string]any{
		"amount":       req.AmountSatang,
		"currency":     "thb",
		"source_charge": req.ChargeRef,
		"description":  req.Description,
	}

	apiURL := fmt.Sprintf("%s/charges", c.baseURL)
	var parsed struct {
		ID     string `json:"id"`
		Status string `json:"status"`
	}
	if err := c.post(ctx, apiURL, req.IdempotencyKey, body, &parsed); err != nil {
		return nil, err
	}

	c.logger.Info("provider fee charge accepted",
		"charge_ref", parsed.ID,
		"amount_satang", req.AmountSatang,
	)
	return &FeeResult{ProviderChargeRef: parsed.ID, Status: parsed.Status}, nil
}

func (c *OmiseClient) post(ctx context.Context, apiURL, idempotencyKey string, body any, out any) error {
	reqBody, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("payments: marshal: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, apiURL, bytes.NewReader(reqBody))
	if err != nil {
		return fmt.Errorf("payments: build request: %w", err)
	}
	httpReq.SetBasicAuth(c.secretKey, "")
	httpReq.Header.Set("Content-Type", "application/json")
	if idempotencyKey != "" {
		httpReq.Header.Set("Idempotency-Key", idempotencyKey)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("payments: http: %w", err)
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(resp.Body)

	if resp.StatusCode >= http.StatusMultipleChoices {
		c.logger.Error("provider call failed",
			"status", resp.StatusCode,
			"body", string(respBody),
			"url", apiURL,
		)
		return fmt.Errorf("payments: provider api status %d: %s", resp.StatusCode, string(respBody))
	}

	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("payments: decode: %w", err)
	}
	return nil
}

var _ Provider = (*OmiseClient)(nil)
