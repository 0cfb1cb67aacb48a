package router

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sabaihome/booking-platform/internal/bookings"
	"github.com/sabaihome/booking-platform/internal/cancellation"
	"github.com/sabaihome/booking-platform/internal/http/handlers"
	"github.com/sabaihome/booking-platform/internal/notify"
	"github.com/sabaihome/booking-platform/internal/policy"
)

type routerStubStore struct {
	booking *bookings.Booking
}

func (s *routerStubStore) GetByID(ctx context.Context, id uuid.UUID) (*bookings.Booking, error) {
	if s.booking == nil || s.booking.ID != id {
		return nil, bookings.ErrBookingNotFound
	}
	b := *s.booking
	return &b, nil
}

func (s *routerStubStore) CancelIfActive(ctx context.Context, id uuid.UUID, reason string) (bool, error) {
	return true, nil
}

func (s *routerStubStore) UpdateSchedule(ctx context.Context, id uuid.UUID, date, startTime string, clearStaff bool) error {
	return nil
}

type routerStubNotifier struct{}

func (routerStubNotifier) Notify(ctx context.Context, evt notify.Event) map[string]bool {
	return map[string]bool{notify.ChannelCustomer: true}
}

func newTestConfig(booking *bookings.Booking) *Config {
	svc := cancellation.NewService(cancellation.Config{
		Store:    &routerStubStore{booking: booking},
		Notifier: routerStubNotifier{},
		Location: time.UTC,
	})
	return &Config{
		BookingsHandler: handlers.NewBookingsHandler(svc, nil),
		AdminAuthSecret: "test-secret",
		MetricsHandler:  promhttp.HandlerFor(prometheus.NewRegistry(), promhttp.HandlerOpts{}),
	}
}

func futureBooking() *bookings.Booking {
	start := time.Now().UTC().Add(48 * time.Hour)
	return &bookings.Booking{
		ID:            uuid.New(),
		Status:        policy.StatusConfirmed,
		Date:          start.Format("2006-01-02"),
		StartTime:     start.Format("15:04"),
		CustomerID:    uuid.New(),
		PaymentStatus: policy.PaymentPending,
	}
}

func TestHealthEndpoint(t *testing.T) {
	h := New(newTestConfig(nil))
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "ok")
}

func TestMetricsEndpoint(t *testing.T) {
	h := New(newTestConfig(nil))
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestCancellationCheckRoute(t *testing.T) {
	b := futureBooking()
	h := New(newTestConfig(b))

	req := httptest.NewRequest(http.MethodGet, "/bookings/"+b.ID.String()+"/cancellation-check", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "can_cancel")
}

func TestCancelRoute(t *testing.T) {
	b := futureBooking()
	h := New(newTestConfig(b))

	req := httptest.NewRequest(http.MethodPost, "/bookings/"+b.ID.String()+"/cancel",
		strings.NewReader(`{"reason":"x","refund_option":"auto"}`))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAdminCancelRequiresJWT(t *testing.T) {
	b := futureBooking()
	h := New(newTestConfig(b))

	req := httptest.NewRequest(http.MethodPost, "/admin/bookings/"+b.ID.String()+"/cancel",
		strings.NewReader(`{"reason":"x","refund_option":"none"}`))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	claims := jwt.RegisteredClaims{
		Subject:   "operator",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(5 * time.Minute)),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
	require.NoError(t, err)

	req = httptest.NewRequest(http.MethodPost, "/admin/bookings/"+b.ID.String()+"/cancel",
		strings.NewReader(`{"reason":"x","refund_option":"none"}`))
	req.Header.Set("Authorization", "Bearer "+signed)
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAdminRoutesAbsentWithoutSecret(t *testing.T) {
	cfg := newTestConfig(futureBooking())
	cfg.AdminAuthSecret = ""
	h := New(cfg)

	req := httptest.NewRequest(http.MethodPost, "/admin/bookings/"+uuid.NewString()+"/cancel",
		strings.NewReader(`{"reason":"x","refund_option":"none"}`))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRateLimitOnMutatingRoutes(t *testing.T) {
	b := futureBooking()
	cfg := newTestConfig(b)
	cfg.CancelRatePerSecond = 1
	cfg.CancelRateBurst = 1
	h := New(cfg)

	body := `{"reason":"x","refund_option":"auto"}`
	req := httptest.NewRequest(http.MethodPost, "/bookings/"+b.ID.String()+"/cancel", strings.NewReader(body))
	req.RemoteAddr = "10.0.0.1:1234"
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	req = httptest.NewRequest(http.MethodPost, "/bookings/"+b.ID.String()+"/cancel", strings.NewReader(body))
	req.RemoteAddr = "10.0.0.1:1234"
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
}
