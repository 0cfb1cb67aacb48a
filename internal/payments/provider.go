package payments

import (
	"context"
)

// RefundRequest carries one refund attempt against the payment provider.
type RefundRequest struct {
	// ChargeRef is the provider reference of the original charge.
	ChargeRef string
	// AmountSatang is the amount to return, in satang.
	AmountSatang int64
	// IdempotencyKey makes provider-side retries safe. Stable per
	// booking + cancellation attempt.
	IdempotencyKey string
	Reason         string
}

// RefundResult is the provider's answer to a refund attempt.
type RefundResult struct {
	ProviderRefundRef string
	Status            string
}

// FeeRequest charges a flat fee (e.g. a reschedule fee) as a top-up against
// the customer behind the original charge.
type FeeRequest struct {
	ChargeRef      string
	AmountSatang   int64
	IdempotencyKey string
	Description    string
}

// FeeResult is the provider's answer to a fee charge.
type FeeResult struct {
	ProviderChargeRef string
	Status            string
}

// Provider is the payment processor boundary. Implementations perform exactly
// one attempt per call; retry safety comes from the idempotency key.
type Provider interface {
	Refund(ctx context.Context, req RefundRequest) (*RefundResult, error)
	ChargeFee(ctx context.Context, req FeeRequest) (*FeeResult, error)
}
