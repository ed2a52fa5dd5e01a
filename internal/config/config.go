package config

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration loaded from environment variables.
type Config struct {
	Port        int
	Env         string
	LogLevel    slog.Level
	DatabaseURL string
	JWTSecret   string
	JWTTTL      time.Duration
	CORSOrigins []string

	Payment PaymentConfig

	SweepSchedule string
}

// PaymentConfig holds gateway credentials. KeySecret signs client-return
// callbacks and WebhookSecret signs webhooks; they must differ.
type PaymentConfig struct {
	KeyID          string
	KeySecret      string
	WebhookSecret  string
	BaseURL        string
	Currency       string
	GatewayTimeout time.Duration
}

// Mock reports whether no live gateway credentials are configured.
func (p PaymentConfig) Mock() bool {
	return p.KeyID == ""
}

// IsProduction reports whether the service runs in production mode.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// LoadDotEnv reads a .env file if one exists. Real environment variables win.
func LoadDotEnv(paths ...string) {
	_ = godotenv.Load(paths...)
}

// Load reads configuration from environment variables with sensible defaults.
func Load() (*Config, error) {
	port, err := strconv.Atoi(getEnv("PORT", "9100"))
	if err != nil {
		return nil, fmt.Errorf("PORT must be a number: %w", err)
	}

	dbURL := getEnv("DATABASE_URL", "")
	if dbURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	jwtSecret := getEnv("JWT_SECRET", "")
	if jwtSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}

	jwtTTL, err := time.ParseDuration(getEnv("JWT_TTL", "720h"))
	if err != nil {
		return nil, fmt.Errorf("JWT_TTL is not a duration: %w", err)
	}

	var level slog.Level
	if err := level.UnmarshalText([]byte(getEnv("LOG_LEVEL", "info"))); err != nil {
		return nil, fmt.Errorf("LOG_LEVEL: %w", err)
	}

	env := getEnv("APP_ENV", "development")
	pay, err := loadPayment(env == "production")
	if err != nil {
		return nil, err
	}

	origins := strings.Split(getEnv("CORS_ORIGINS", "http://localhost:3000"), ",")
	for i := range origins {
		origins[i] = strings.TrimSpace(origins[i])
	}

	return &Config{
		Port:          port,
		Env:           env,
		LogLevel:      level,
		DatabaseURL:   dbURL,
		JWTSecret:     jwtSecret,
		JWTTTL:        jwtTTL,
		CORSOrigins:   origins,
		Payment:       pay,
		SweepSchedule: getEnv("SWEEP_SCHEDULE", "@every 1h"),
	}, nil
}

func loadPayment(production bool) (PaymentConfig, error) {
	timeout, err := time.ParseDuration(getEnv("GATEWAY_TIMEOUT", "5s"))
	if err != nil {
		return PaymentConfig{}, fmt.Errorf("GATEWAY_TIMEOUT is not a duration: %w", err)
	}
	if timeout <= 0 {
		return PaymentConfig{}, fmt.Errorf("GATEWAY_TIMEOUT must be positive, got %s", timeout)
	}

	p := PaymentConfig{
		KeyID:          getEnv("RAZORPAY_KEY_ID", ""),
		KeySecret:      getEnv("RAZORPAY_KEY_SECRET", ""),
		WebhookSecret:  getEnv("RAZORPAY_WEBHOOK_SECRET", ""),
		BaseURL:        getEnv("RAZORPAY_BASE_URL", "https://api.razorpay.com/v1"),
		Currency:       strings.ToUpper(getEnv("PAYMENT_CURRENCY", "INR")),
		GatewayTimeout: timeout,
	}

	if p.WebhookSecret == "" {
		return PaymentConfig{}, fmt.Errorf("RAZORPAY_WEBHOOK_SECRET is required")
	}
	if p.KeyID != "" && p.KeySecret == "" {
		return PaymentConfig{}, fmt.Errorf("RAZORPAY_KEY_SECRET is required when RAZORPAY_KEY_ID is set")
	}
	if p.Mock() {
		if production {
			return PaymentConfig{}, fmt.Errorf("RAZORPAY_KEY_ID is required in production")
		}
		// Mock client-return signatures use a per-process secret.
		if p.KeySecret == "" {
			secret, err := randomSecret()
			if err != nil {
				return PaymentConfig{}, err
			}
			p.KeySecret = secret
		}
	}
	if p.KeySecret == p.WebhookSecret {
		return PaymentConfig{}, fmt.Errorf("RAZORPAY_KEY_SECRET and RAZORPAY_WEBHOOK_SECRET must be different")
	}
	return p, nil
}

func randomSecret() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate mock key secret: %w", err)
	}
	return hex.EncodeToString(b), nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
