package main

import (
	"context"
	"database/sql"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/sabaihome/booking-platform/internal/api/router"
	"github.com/sabaihome/booking-platform/internal/bookings"
	"github.com/sabaihome/booking-platform/internal/cancellation"
	appconfig "github.com/sabaihome/booking-platform/internal/config"
	"github.com/sabaihome/booking-platform/internal/documents"
	"github.com/sabaihome/booking-platform/internal/http/handlers"
	"github.com/sabaihome/booking-platform/internal/notify"
	"github.com/sabaihome/booking-platform/internal/observability/metrics"
	"github.com/sabaihome/booking-platform/internal/payments"
	"github.com/sabaihome/booking-platform/internal/policy"
	"github.com/sabaihome/booking-platform/internal/refunds"
	"github.com/sabaihome/booking-platform/pkg/logging"
)

func main() {
	_ = godotenv.Load()
	cfg := appconfig.Load()

	logger := logging.New(cfg.LogLevel)
	logger.Info("starting booking-platform API server",
		"env", cfg.Env,
		"port", cfg.Port,
	)

	pol := policy.Default()
	if cfg.CancellationPolicyJSON != "" {
		parsed, err := policy.Parse(cfg.CancellationPolicyJSON)
		if err != nil {
			logger.Error("invalid cancellation policy", "error", err)
			os.Exit(1)
		}
		pol = parsed
	}

	loc, err := time.LoadLocation(cfg.BookingTimezone)
	if err != nil {
		logger.Error("unknown booking timezone, falling back to UTC", "zone", cfg.BookingTimezone, "error", err)
		loc = time.UTC
	}

	ctx := context.Background()

	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Error("failed to create pgx pool", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	// database/sql handle for the document and in-app notification stores.
	sqlDB, err := sql.Open("pgx", cfg.DatabaseURL)
	if err != nil {
		logger.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer func() { _ = sqlDB.Close() }()

	bookingStore := bookings.NewPostgresStore(pool)
	refundStore := refunds.NewPostgresStore(pool)

	var guard *refunds.AttemptGuard
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
		})
		guard = refunds.NewAttemptGuard(rdb, 0)
	}

	emailSender := buildEmailSender(ctx, cfg, logger)
	provider := payments.NewOmiseClient(cfg.PaymentBaseURL, cfg.PaymentSecretKey, cfg.RefundTimeout, logger)
	creditNotes := documents.NewCreditNoteService(sqlDB, emailSender, logger)

	var docs refunds.CreditNoteGenerator
	if creditNotes != nil {
		docs = creditNotes
	}
	orchestrator := refunds.NewOrchestrator(provider, refundStore, bookingStore, guard, docs, logger)

	m := metrics.NewCancellationMetrics(prometheus.DefaultRegisterer)
	fanout := notify.NewFanout(buildFanoutConfig(cfg, bookingStore, sqlDB, emailSender, m, logger))

	svc := cancellation.NewService(cancellation.Config{
		Store:    bookingStore,
		Refunder: orchestrator,
		Notifier: fanout,
		Fees:     provider,
		Policy:   pol,
		Location: loc,
		Logger:   logger,
		Metrics:  m,
	})

	r := router.New(&router.Config{
		Logger:              logger,
		BookingsHandler:     handlers.NewBookingsHandler(svc, logger),
		AdminAuthSecret:     cfg.AdminJWTSecret,
		MetricsHandler:      promhttp.Handler(),
		CORSAllowedOrigins:  cfg.CORSAllowedOrigins,
		CancelRatePerSecond: cfg.CancelRatePerSecond,
		CancelRateBurst:     cfg.CancelRateBurst,
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	logger.Info("server stopped")
}

// buildEmailSender picks the configured provider. May return nil, in which
// case the email channels are simply not wired.
func buildEmailSender(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger) notify.EmailSender {
	switch cfg.EmailProvider {
	case "ses":
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.AWSRegion))
		if err != nil {
			logger.Error("failed to load AWS config, email disabled", "error", err)
			return nil
		}
		sender := notify.NewSESSender(sesv2.NewFromConfig(awsCfg), notify.SESConfig{
			FromEmail: cfg.SESFromEmail,
			FromName:  cfg.SESFromName,
		}, logger)
		if sender == nil {
			return nil
		}
		return sender
	default:
		sender := notify.NewSendGridSender(notify.SendGridConfig{
			APIKey:    cfg.SendGridAPIKey,
			FromEmail: cfg.SendGridFromEmail,
			FromName:  cfg.SendGridFromName,
		}, logger)
		if sender == nil {
			return nil
		}
		return sender
	}
}

// buildFanoutConfig assembles the channel set. Constructors return nil for
// unconfigured channels; the explicit checks below keep typed nils out of the
// interface fields so the fan-out can skip them.
func buildFanoutConfig(cfg *appconfig.Config, staff notify.StaffDirectory, sqlDB *sql.DB, email notify.EmailSender, m *metrics.CancellationMetrics, logger *logging.Logger) notify.FanoutConfig {
	out := notify.FanoutConfig{
		Timeout: cfg.NotifyTimeout,
		Logger:  logger,
		Metrics: m,
	}

	if ch := notify.NewCustomerEmailChannel(email); ch != nil {
		out.Customer = ch
	}
	if cfg.LineChannelToken != "" {
		line := notify.NewLineClient(cfg.LineAPIBaseURL, cfg.LineChannelToken, cfg.NotifyTimeout, logger)
		out.StaffLine = notify.NewStaffLineChannel(line, staff)
	}
	if ch := notify.NewStaffInAppChannel(sqlDB); ch != nil {
		out.StaffInApp = ch
	}
	if ch := notify.NewHotelWebhookChannel(cfg.HotelWebhookURL, cfg.HotelWebhookSecret, cfg.NotifyTimeout, logger); ch != nil {
		out.Hotel = ch
	}
	if ch := notify.NewAdminEmailChannel(email, cfg.AdminEmails); ch != nil {
		out.Admin = ch
	}
	return out
}
