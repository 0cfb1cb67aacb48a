package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds application configuration.
type Config struct {
	Port     string
	Env      string
	LogLevel string

	DatabaseURL string

	RedisAddr     string
	RedisPassword string

	// BookingTimezone is the zone appointment date/time strings are interpreted in.
	BookingTimezone string

	// CancellationPolicyJSON overrides the built-in tier table when set.
	CancellationPolicyJSON string

	PaymentBaseURL   string
	PaymentSecretKey string
	RefundTimeout    time.Duration

	EmailProvider     string
	SendGridAPIKey    string
	SendGridFromEmail string
	SendGridFromName  string
	SESFromEmail      string
	SESFromName       string
	AWSRegion         string

	LineChannelToken string
	LineAPIBaseURL   string

	HotelWebhookURL    string
	HotelWebhookSecret string

	AdminEmails    []string
	AdminJWTSecret string

	NotifyTimeout time.Duration

	CORSAllowedOrigins []string

	// CancelRatePerSecond bounds the mutating booking endpoints per IP.
	CancelRatePerSecond float64
	CancelRateBurst     int
}

// Load reads configuration from environment variables.
func Load() *Config {
	return &Config{
		Port:     getEnv("PORT", "8080"),
		Env:      getEnv("ENV", "development"),
		LogLevel: getEnv("LOG_LEVEL", "info"),

		DatabaseURL: getEnv("DATABASE_URL", ""),

		RedisAddr:     getEnv("REDIS_ADDR", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),

		BookingTimezone: getEnv("BOOKING_TIMEZONE", "Asia/Bangkok"),

		CancellationPolicyJSON: getEnv("CANCELLATION_POLICY_JSON", ""),

		PaymentBaseURL:   getEnv("PAYMENT_BASE_URL", "https://api.omise.co"),
		PaymentSecretKey: getEnv("PAYMENT_SECRET_KEY", ""),
		RefundTimeout:    getEnvAsDuration("REFUND_TIMEOUT", 15*time.Second),

		EmailProvider:     strings.ToLower(strings.TrimSpace(getEnv("EMAIL_PROVIDER", "sendgrid"))),
		SendGridAPIKey:    getEnv("SENDGRID_API_KEY", ""),
		SendGridFromEmail: getEnv("SENDGRID_FROM_EMAIL", ""),
		SendGridFromName:  getEnv("SENDGRID_FROM_NAME", "Sabai Home Spa"),
		SESFromEmail:      getEnv("SES_FROM_EMAIL", ""),
		SESFromName:       getEnv("SES_FROM_NAME", "Sabai Home Spa"),
		AWSRegion:         getEnv("AWS_REGION", "ap-southeast-1"),

		LineChannelToken: getEnv("LINE_CHANNEL_TOKEN", ""),
		LineAPIBaseURL:   getEnv("LINE_API_BASE_URL", "https://api.line.me"),

		HotelWebhookURL:    getEnv("HOTEL_WEBHOOK_URL", ""),
		HotelWebhookSecret: getEnv("HOTEL_WEBHOOK_SECRET", ""),

		AdminEmails:    getEnvAsList("ADMIN_EMAILS"),
		AdminJWTSecret: getEnv("ADMIN_JWT_SECRET", ""),

		NotifyTimeout: getEnvAsDuration("NOTIFY_TIMEOUT", 10*time.Second),

		CORSAllowedOrigins: getEnvAsList("CORS_ALLOWED_ORIGINS"),

		CancelRatePerSecond: getEnvAsFloat("CANCEL_RATE_PER_SECOND", 5),
		CancelRateBurst:     getEnvAsInt("CANCEL_RATE_BURST", 10),
	}
}

// getEnv retrieves an environment variable or returns a default value.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	if value, err := strconv.ParseFloat(valueStr, 64); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsList(key string) []string {
	raw := getEnv(key, "")
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
