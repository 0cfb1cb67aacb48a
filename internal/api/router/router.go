package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/sabaihome/booking-platform/internal/http/handlers"
	httpmiddleware "github.com/sabaihome/booking-platform/internal/http/middleware"
	"github.com/sabaihome/booking-platform/pkg/logging"
)

// Config holds router configuration.
type Config struct {
	Logger          *logging.Logger
	BookingsHandler *handlers.BookingsHandler

	// AdminAuthSecret enables the operator route group when set.
	AdminAuthSecret string

	MetricsHandler     http.Handler
	CORSAllowedOrigins []string

	// CancelRatePerSecond bounds the mutating booking endpoints per IP.
	// Zero disables the limiter.
	CancelRatePerSecond float64
	CancelRateBurst     int
}

// New creates the chi router with all routes configured.
func New(cfg *Config) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))
	if len(cfg.CORSAllowedOrigins) > 0 {
		r.Use(httpmiddleware.CORS(cfg.CORSAllowedOrigins))
	}
	if cfg.Logger != nil {
		r.Use(httpmiddleware.RequestLogger(cfg.Logger))
	}

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	if cfg.MetricsHandler != nil {
		r.Handle("/metrics", cfg.MetricsHandler)
	}

	r.Route("/bookings/{bookingID}", func(booking chi.Router) {
		booking.Get("/cancellation-check", cfg.BookingsHandler.CancellationCheck)

		booking.Group(func(mutating chi.Router) {
			if cfg.CancelRatePerSecond > 0 {
				mutating.Use(httpmiddleware.RateLimit(cfg.CancelRatePerSecond, cfg.CancelRateBurst))
			}
			mutating.Post("/cancel", cfg.BookingsHandler.Cancel)
			mutating.Post("/reschedule", cfg.BookingsHandler.Reschedule)
		})
	})

	// Operator routes. The override cancel skips the policy window, so it
	// stays behind the admin JWT.
	if cfg.AdminAuthSecret != "" {
		r.Route("/admin", func(admin chi.Router) {
			admin.Use(httpmiddleware.AdminJWT(cfg.AdminAuthSecret))
			admin.Post("/bookings/{bookingID}/cancel", cfg.BookingsHandler.AdminCancel)
		})
	}

	return r
}
