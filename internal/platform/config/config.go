package config

import (
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Addr                 string
	Environment          string
	APIBaseURL           string
	PaymentPublicKey     string
	ImageHostAPIKey      string
	ImageHostURL         string
	SessionSecret        string
	DatabaseURL          string
	FrontendDir          string
	RequestTimeout       time.Duration
	QueryStaleTime       time.Duration
	SessionTTL           time.Duration
	SessionSweepInterval time.Duration
	CookieSecure         bool
	MaxBodyBytes         int64
	RateLimitPerMinute   int
	MetricsEnabled       bool
	RunMigrations        bool
}

// Load reads an optional .env file and then the process environment.
func Load() Config {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		slog.Warn("dotenv load failed", "err", err)
	}
	return FromEnv()
}

func FromEnv() Config {
	return Config{
		Addr:                 getEnv("APP_ADDR", ":8080"),
		Environment:          getEnv("APP_ENV", "development"),
		APIBaseURL:           strings.TrimRight(getEnv("API_BASE_URL", ""), "/"),
		PaymentPublicKey:     getEnv("PAYMENT_PUBLIC_KEY", ""),
		ImageHostAPIKey:      getEnv("IMGBB_API_KEY", ""),
		ImageHostURL:         getEnv("IMGBB_UPLOAD_URL", "https://api.imgbb.com/1/upload"),
		SessionSecret:        getEnv("SESSION_SECRET", ""),
		DatabaseURL:          getEnv("DATABASE_URL", ""),
		FrontendDir:          getEnv("FRONTEND_DIR", "frontend/dist"),
		RequestTimeout:       getEnvDuration("REQUEST_TIMEOUT", 15*time.Second),
		QueryStaleTime:       getEnvDuration("QUERY_STALE_TIME", 30*time.Second),
		SessionTTL:           getEnvDuration("SESSION_TTL", 24*time.Hour),
		SessionSweepInterval: getEnvDuration("SESSION_SWEEP_INTERVAL", 10*time.Minute),
		CookieSecure:         getEnvBool("COOKIE_SECURE", false),
		MaxBodyBytes:         int64(getEnvInt("MAX_BODY_BYTES", 5<<20)),
		RateLimitPerMinute:   getEnvInt("RATE_LIMIT_PER_MINUTE", 120),
		MetricsEnabled:       getEnvBool("METRICS_ENABLED", true),
		RunMigrations:        getEnvBool("RUN_MIGRATIONS", true),
	}
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvInt(key string, fallback int) int {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func (c Config) IsProduction() bool {
	return c.Environment == "production"
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.APIBaseURL) == "" {
		return fmt.Errorf("API_BASE_URL is required")
	}
	parsed, err := url.Parse(c.APIBaseURL)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return fmt.Errorf("API_BASE_URL must be an absolute URL")
	}
	if c.IsProduction() {
		if strings.TrimSpace(c.SessionSecret) == "" {
			return fmt.Errorf("SESSION_SECRET must be set in production")
		}
		if strings.TrimSpace(c.PaymentPublicKey) == "" {
			return fmt.Errorf("PAYMENT_PUBLIC_KEY must be set in production")
		}
		if !c.CookieSecure {
			return fmt.Errorf("COOKIE_SECURE must be enabled in production")
		}
	}
	if c.RequestTimeout <= 0 {
		return fmt.Errorf("REQUEST_TIMEOUT must be positive")
	}
	if c.SessionTTL <= 0 {
		return fmt.Errorf("SESSION_TTL must be positive")
	}
	if c.MaxBodyBytes < 1024 {
		return fmt.Errorf("MAX_BODY_BYTES must be at least 1024")
	}
	if c.RateLimitPerMinute <= 0 {
		return fmt.Errorf("RATE_LIMIT_PER_MINUTE must be positive")
	}
	return nil
}
