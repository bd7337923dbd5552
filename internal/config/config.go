package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"
)

const (
	ProviderSandbox  = "sandbox"
	ProviderRazorpay = "razorpay"
)

// Config holds environment-driven configuration shared by the API server and
// the storefront.
type Config struct {
	Addr        string
	DatabaseURL string
	RedisURL    string

	PaymentProvider   string
	RazorpayKeyID     string
	RazorpayKeySecret string
	RazorpayBaseURL   string

	JWTSecret         string
	AdminPasswordHash string

	Currency         string
	StoreName        string
	StoreDescription string
	ThemeColor       string

	BackendURL     string
	HTTPTimeout    time.Duration
	PaymentTimeout time.Duration
	IdempotencyTTL time.Duration

	LogLevel  string
	LogFormat string
}

// Load reads `.env` (or ENV_FILE) when present, then environment variables.
func Load() Config {
	envFile := os.Getenv("ENV_FILE")
	if envFile == "" {
		envFile = ".env"
	}
	if err := godotenv.Load(envFile); err != nil {
		log.Debugf("env file %s not loaded: %v", envFile, err)
	}

	cfg := Config{
		Addr:              getenv("ADDR", ":8001"),
		DatabaseURL:       os.Getenv("DATABASE_URL"),
		RedisURL:          os.Getenv("REDIS_URL"),
		PaymentProvider:   getenv("PAYMENT_PROVIDER", ProviderSandbox),
		RazorpayKeyID:     os.Getenv("RAZORPAY_KEY_ID"),
		RazorpayKeySecret: os.Getenv("RAZORPAY_KEY_SECRET"),
		RazorpayBaseURL:   os.Getenv("RAZORPAY_BASE_URL"),
		JWTSecret:         os.Getenv("JWT_SECRET"),
		AdminPasswordHash: os.Getenv("ADMIN_PASSWORD_HASH"),
		Currency:          getenv("CURRENCY", "INR"),
		StoreName:         getenv("STORE_NAME", "Earthly Liquids"),
		StoreDescription:  getenv("STORE_DESCRIPTION", "Natural home care"),
		ThemeColor:        getenv("THEME_COLOR", "#2F855A"),
		BackendURL:        getenv("BACKEND_URL", "http://localhost:8001"),
		HTTPTimeout:       getduration("HTTP_TIMEOUT", 10*time.Second),
		PaymentTimeout:    getduration("PAYMENT_TIMEOUT", 15*time.Minute),
		IdempotencyTTL:    getduration("IDEMPOTENCY_TTL", 24*time.Hour),
		LogLevel:          getenv("LOG_LEVEL", "info"),
		LogFormat:         getenv("LOG_FORMAT", "text"),
	}
	// only the sandbox has usable default credentials
	if cfg.PaymentProvider == ProviderSandbox {
		if cfg.RazorpayKeyID == "" {
			cfg.RazorpayKeyID = "rzp_test_1234567890"
		}
		if cfg.RazorpayKeySecret == "" {
			cfg.RazorpayKeySecret = "test_secret_key"
		}
	}
	return cfg
}

// Validate reports settings the API server cannot run with.
func (c Config) Validate() error {
	switch c.PaymentProvider {
	case ProviderSandbox:
	case ProviderRazorpay:
		if c.RazorpayKeyID == "" || c.RazorpayKeySecret == "" {
			return errors.New("RAZORPAY_KEY_ID and RAZORPAY_KEY_SECRET are required when PAYMENT_PROVIDER=razorpay")
		}
	default:
		return fmt.Errorf("unknown PAYMENT_PROVIDER %q", c.PaymentProvider)
	}
	return nil
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getduration(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		log.Warnf("invalid %s=%q, using %s", key, v, def)
		return def
	}
	return d
}
