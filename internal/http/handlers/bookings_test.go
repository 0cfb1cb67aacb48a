package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sabaihome/booking-platform/internal/bookings"
	"github.com/sabaihome/booking-platform/internal/cancellation"
	"github.com/sabaihome/booking-platform/internal/notify"
	"github.com/sabaihome/booking-platform/internal/policy"
	"github.com/sabaihome/booking-platform/internal/refunds"
)

type stubBookingStore struct {
	booking *bookings.Booking
}

func (s *stubBookingStore) GetByID(ctx context.Context, id uuid.UUID) (*bookings.Booking, error) {
	if s.booking == nil || s.booking.ID != id {
		return nil, bookings.ErrBookingNotFound
	}
	b := *s.booking
	return &b, nil
}

func (s *stubBookingStore) CancelIfActive(ctx context.Context, id uuid.UUID, reason string) (bool, error) {
	return true, nil
}

func (s *stubBookingStore) UpdateSchedule(ctx context.Context, id uuid.UUID, date, startTime string, clearStaff bool) error {
	return nil
}

type stubRefunder struct{}

func (stubRefunder) Process(ctx context.Context, b *bookings.Booking, percentage int, reason string, attemptID uuid.UUID) *refunds.Outcome {
	return &refunds.Outcome{Success: true, RefundAmountSatang: refunds.Amount(b.FinalPriceSatang, percentage)}
}

type stubNotifier struct{}

func (stubNotifier) Notify(ctx context.Context, evt notify.Event) map[string]bool {
	return map[string]bool{notify.ChannelCustomer: true, notify.ChannelAdmin: true}
}

func newTestRouter(t *testing.T, booking *bookings.Booking) *chi.Mux {
	t.Helper()
	svc := cancellation.NewService(cancellation.Config{
		Store:    &stubBookingStore{booking: booking},
		Refunder: stubRefunder{},
		Notifier: stubNotifier{},
		Location: time.UTC,
	})
	h := NewBookingsHandler(svc, nil)

	r := chi.NewRouter()
	r.Post("/bookings/{bookingID}/cancel", h.Cancel)
	r.Post("/bookings/{bookingID}/reschedule", h.Reschedule)
	r.Get("/bookings/{bookingID}/cancellation-check", h.CancellationCheck)
	r.Post("/admin/bookings/{bookingID}/cancel", h.AdminCancel)
	return r
}

func activeBooking(hoursOut time.Duration) *bookings.Booking {
	start := time.Now().UTC().Add(hoursOut)
	return &bookings.Booking{
		ID:               uuid.New(),
		Status:           policy.StatusConfirmed,
		Date:             start.Format("2006-01-02"),
		StartTime:        start.Format("15:04"),
		CustomerID:       uuid.New(),
		PaymentStatus:    policy.PaymentPaid,
		PaymentRef:       "chrg_1",
		FinalPriceSatang: 100000,
	}
}

func TestCancelEndpoint(t *testing.T) {
	b := activeBooking(30 * time.Hour)
	router := newTestRouter(t, b)

	req := httptest.NewRequest(http.MethodPost, "/bookings/"+b.ID.String()+"/cancel",
		strings.NewReader(`{"reason":"plans changed","refund_option":"auto"}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var res cancellation.CancelResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	assert.True(t, res.Cancelled)
	assert.Equal(t, policy.StatusCancelled, res.Status)
	require.NotNil(t, res.Refund)
	assert.Equal(t, int64(100000), res.Refund.RefundAmountSatang)
	assert.True(t, res.Notifications[notify.ChannelCustomer])
}

func TestCancelEndpointRejectionIs200(t *testing.T) {
	b := activeBooking(time.Hour)
	router := newTestRouter(t, b)

	req := httptest.NewRequest(http.MethodPost, "/bookings/"+b.ID.String()+"/cancel",
		strings.NewReader(`{"reason":"too late","refund_option":"auto"}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code, "policy ineligibility is a normal answer, not an error")
	var res cancellation.CancelResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	assert.False(t, res.Cancelled)
	assert.NotEmpty(t, res.Reason)
}

func TestCancelEndpointBadRequests(t *testing.T) {
	b := activeBooking(30 * time.Hour)
	router := newTestRouter(t, b)

	tests := []struct {
		name string
		path string
		body string
	}{
		{"missing reason", "/bookings/" + b.ID.String() + "/cancel", `{"refund_option":"auto"}`},
		{"invalid percentage", "/bookings/" + b.ID.String() + "/cancel", `{"reason":"x","refund_option":"partial","refund_percentage":140}`},
		{"malformed body", "/bookings/" + b.ID.String() + "/cancel", `{`},
		{"bad uuid", "/bookings/not-a-uuid/cancel", `{"reason":"x","refund_option":"auto"}`},
		{"full override without operator auth", "/bookings/" + b.ID.String() + "/cancel", `{"reason":"x","refund_option":"full"}`},
		{"none override without operator auth", "/bookings/" + b.ID.String() + "/cancel", `{"reason":"x","refund_option":"none"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, tt.path, strings.NewReader(tt.body))
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
}

func TestCancelEndpointNotFound(t *testing.T) {
	router := newTestRouter(t, activeBooking(30*time.Hour))

	req := httptest.NewRequest(http.MethodPost, "/bookings/"+uuid.NewString()+"/cancel",
		strings.NewReader(`{"reason":"x","refund_option":"auto"}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRescheduleEndpoint(t *testing.T) {
	b := activeBooking(30 * time.Hour)
	router := newTestRouter(t, b)

	newDate := time.Now().UTC().Add(72 * time.Hour).Format("2006-01-02")
	req := httptest.NewRequest(http.MethodPost, "/bookings/"+b.ID.String()+"/reschedule",
		strings.NewReader(`{"new_date":"`+newDate+`","new_time":"11:00"}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var res cancellation.RescheduleResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	assert.True(t, res.Rescheduled)
	assert.True(t, res.StaffReleased)
	assert.Equal(t, newDate, res.NewDate)
}

func TestRescheduleEndpointMissingFields(t *testing.T) {
	b := activeBooking(30 * time.Hour)
	router := newTestRouter(t, b)

	req := httptest.NewRequest(http.MethodPost, "/bookings/"+b.ID.String()+"/reschedule",
		strings.NewReader(`{"new_time":"11:00"}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCancellationCheckEndpoint(t *testing.T) {
	b := activeBooking(30 * time.Hour)
	router := newTestRouter(t, b)

	req := httptest.NewRequest(http.MethodGet, "/bookings/"+b.ID.String()+"/cancellation-check", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var d policy.Decision
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &d))
	assert.True(t, d.CanCancel)
	assert.Equal(t, 100, d.RefundPercentage)
}

func TestAdminCancelEndpointBypassesWindow(t *testing.T) {
	b := activeBooking(time.Hour)
	router := newTestRouter(t, b)

	req := httptest.NewRequest(http.MethodPost, "/admin/bookings/"+b.ID.String()+"/cancel",
		strings.NewReader(`{"reason":"operator override","refund_option":"full"}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var res cancellation.CancelResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	assert.True(t, res.Cancelled)
}
