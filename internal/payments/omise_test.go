package payments

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestRefundSendsIdempotencyKey(t *testing.T) {
	var gotPath, gotKey string
	var gotBody map[string]any

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotKey = r.Header.Get("Idempotency-Key")
		if _, _, ok := r.BasicAuth(); !ok {
			t.Error("expected basic auth")
		}
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		_ = json.NewEncoder(w).Encode(map[string]string{"id": "rfnd_1", "status": "closed"})
	}))
	defer srv.Close()

	client := NewOmiseClient(srv.URL, "skey_test", 5*time.Second, nil)
	res, err := client.Refund(context.Background(), RefundRequest{
		ChargeRef:      "chrg_9",
		AmountSatang:   50000,
		IdempotencyKey: "refund-bk1-at1",
		Reason:         "customer cancelled",
	})
	if err != nil {
		t.Fatalf("Refund: %v", err)
	}
	if res.ProviderRefundRef != "rfnd_1" || res.Status != "closed" {
		t.Fatalf("unexpected result %+v", res)
	}
	if gotPath != "/charges/chrg_9/refunds" {
		t.Errorf("unexpected path %s", gotPath)
	}
	if gotKey != "refund-bk1-at1" {
		t.Errorf("idempotency key not forwarded, got %q", gotKey)
	}
	if amt, ok := gotBody["amount"].(float64); !ok || int64(amt) != 50000 {
		t.Errorf("unexpected amount in body: %v", gotBody["amount"])
	}
}

func TestRefundAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"object":"error","code":"failed_refund"}`))
	}))
	defer srv.Close()

	client := NewOmiseClient(srv.URL, "skey_test", 5*time.Second, nil)
	_, err := client.Refund(context.Background(), RefundRequest{ChargeRef: "chrg_9", AmountSatang: 100})
	if err == nil {
		t.Fatal("expected error from 400 response")
	}
}

func TestRefundRequiresChargeRef(t *testing.T) {
	client := NewOmiseClient("http://unused", "skey_test", time.Second, nil)
	if _, err := client.Refund(context.Background(), RefundRequest{AmountSatang: 100}); err == nil {
		t.Fatal("expected error for missing charge ref")
	}
}

func TestChargeFee(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/charges" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		_ = json.NewEncoder(w).Encode(map[string]string{"id": "chrg_fee_1", "status": "successful"})
	}))
	defer srv.Close()

	client := NewOmiseClient(srv.URL, "skey_test", 5*time.Second, nil)
	res, err := client.ChargeFee(context.Background(), FeeRequest{
		ChargeRef:      "chrg_9",
		AmountSatang:   20000,
		IdempotencyKey: "fee-bk1-at1",
		Description:    "reschedule fee",
	})
	if err != nil {
		t.Fatalf("ChargeFee: %v", err)
	}
	if res.ProviderChargeRef != "chrg_fee_1" {
		t.Fatalf("unexpected result %+v", res)
	}
}
