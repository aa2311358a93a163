// internal/config/config.go
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Environment string
	Server      ServerConfig
	Database    DatabaseConfig
	JWT         JWTConfig
	Redis       RedisConfig
	AWS         AWSConfig
	Payment     PaymentConfig
	ViewCounter ViewCounterConfig
	Reconciler  ReconcilerConfig
	Email       EmailConfig
	Log         LogConfig
	CORS        CORSConfig
	RateLimit   RateLimitConfig
}

type ServerConfig struct {
	Port         string
	Host         string
	ReadTimeout  int
	WriteTimeout int
	IdleTimeout  int
}

type DatabaseConfig struct {
	// Driver selects the application/ledger store: "postgres" or "memory".
	Driver       string
	Host         string
	Port         string
	User         string
	Password     string
	Database     string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
	MaxLifetime  int
	LogLevel     string
}

type JWTConfig struct {
	SecretKey string
}

type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
}

type AWSConfig struct {
	Region          string
	AccessKeyID     string
	SecretAccessKey string
	S3Bucket        string
	CloudFrontURL   string
}

type PaymentConfig struct {
	StripeSecretKey      string
	StripePublishableKey string
	StripeWebhookSecret  string
	// StripeWebhookIgnoreAPIVersion accepts events rendered for an API version other
	// than the one this build decodes. Only for endpoints mid-upgrade.
	StripeWebhookIgnoreAPIVersion bool
	// StripeAPIURL overrides the Stripe API base URL (stripe-mock, tests).
	StripeAPIURL    string
	DefaultCurrency string
	GatewayTimeout  time.Duration
}

type ViewCounterConfig struct {
	// Driver is "redis", "postgres" or "memory".
	Driver       string
	KeyPrefix    string
	PollInterval time.Duration
}

type ReconcilerConfig struct {
	Enabled     bool
	Interval    time.Duration
	StaleAfter  time.Duration
	Concurrency int
	BatchSize   int
}

type EmailConfig struct {
	SMTPHost     string
	SMTPPort     string
	SMTPUsername string
	SMTPPassword string
	FromEmail    string
	FromName     string
}

type LogConfig struct {
	Level  string
	Format string
}

type CORSConfig struct {
	AllowedOrigins []string
}

// RateLimitConfig is applied per client IP.
type RateLimitConfig struct {
	RequestsPerSecond     int
	Burst                 int
	ViewRequestsPerMinute int
	ViewBurst             int
}

func Load() (*Config, error) {
	// Load .env file if it exists
	godotenv.Load()

	config := &Config{
		Environment: getEnv("ENVIRONMENT", "development"),
		Server: ServerConfig{
			Port:         getEnv("SERVER_PORT", "8080"),
			Host:         getEnv("SERVER_HOST", "localhost"),
			ReadTimeout:  getEnvAsInt("SERVER_READ_TIMEOUT", 15),
			WriteTimeout: getEnvAsInt("SERVER_WRITE_TIMEOUT", 15),
			IdleTimeout:  getEnvAsInt("SERVER_IDLE_TIMEOUT", 60),
		},
		Database: DatabaseConfig{
			Driver:       getEnv("STORE_DRIVER", "postgres"),
			Host:         getEnv("DB_HOST", "localhost"),
			Port:         getEnv("DB_PORT", "5432"),
			User:         getEnv("DB_USER", "postgres"),
			Password:     getEnv("DB_PASSWORD", ""),
			Database:     getEnv("DB_NAME", "insurance_marketplace"),
			SSLMode:      getEnv("DB_SSL_MODE", "disable"),
			MaxOpenConns: getEnvAsInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns: getEnvAsInt("DB_MAX_IDLE_CONNS", 25),
			MaxLifetime:  getEnvAsInt("DB_MAX_LIFETIME", 300),
			LogLevel:     getEnv("DB_LOG_LEVEL", "warn"),
		},
		JWT: JWTConfig{
			SecretKey: getEnv("JWT_SECRET", "your-secret-key-change-in-production"),
		},
		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
		},
		AWS: AWSConfig{
			Region:          getEnv("AWS_REGION", "us-east-1"),
			AccessKeyID:     getEnv("AWS_ACCESS_KEY_ID", ""),
			SecretAccessKey: getEnv("AWS_SECRET_ACCESS_KEY", ""),
			S3Bucket:        getEnv("AWS_S3_BUCKET", "insurance-marketplace-reports"),
			CloudFrontURL:   getEnv("AWS_CLOUDFRONT_URL", ""),
		},
		Payment: PaymentConfig{
			StripeSecretKey:               getEnv("STRIPE_SECRET_KEY", ""),
			StripePublishableKey:          getEnv("STRIPE_PUBLISHABLE_KEY", ""),
			StripeWebhookSecret:           getEnv("STRIPE_WEBHOOK_SECRET", ""),
			StripeWebhookIgnoreAPIVersion: getEnvAsBool("STRIPE_WEBHOOK_IGNORE_API_VERSION", false),
			StripeAPIURL:                  getEnv("STRIPE_API_URL", ""),
			DefaultCurrency:               strings.ToLower(getEnv("PAYMENT_DEFAULT_CURRENCY", "usd")),
			GatewayTimeout:                getEnvAsDuration("PAYMENT_GATEWAY_TIMEOUT", 10*time.Second),
		},
		ViewCounter: ViewCounterConfig{
			Driver:       getEnv("VIEW_COUNTER_DRIVER", "redis"),
			KeyPrefix:    getEnv("VIEW_COUNTER_KEY_PREFIX", "views:"),
			PollInterval: getEnvAsDuration("VIEW_COUNTER_POLL_INTERVAL", 2*time.Second),
		},
		Reconciler: ReconcilerConfig{
			Enabled:     getEnvAsBool("RECONCILE_ENABLED", true),
			Interval:    getEnvAsDuration("RECONCILE_INTERVAL", time.Minute),
			StaleAfter:  getEnvAsDuration("RECONCILE_STALE_AFTER", 15*time.Minute),
			Concurrency: getEnvAsInt("RECONCILE_CONCURRENCY", 4),
			BatchSize:   getEnvAsInt("RECONCILE_BATCH_SIZE", 100),
		},
		Email: EmailConfig{
			SMTPHost:     getEnv("SMTP_HOST", ""),
			SMTPPort:     getEnv("SMTP_PORT", "587"),
			SMTPUsername: getEnv("SMTP_USERNAME", ""),
			SMTPPassword: getEnv("SMTP_PASSWORD", ""),
			FromEmail:    getEnv("FROM_EMAIL", "noreply@insurancemarketplace.com"),
			FromName:     getEnv("FROM_NAME", "Insurance Marketplace"),
		},
		Log: LogConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "text"),
		},
		CORS: CORSConfig{
			AllowedOrigins: getEnvAsSlice("CORS_ALLOWED_ORIGINS", []string{"http://localhost:3000"}),
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond:     getEnvAsInt("RATE_LIMIT_RPS", 10),
			Burst:                 getEnvAsInt("RATE_LIMIT_BURST", 20),
			ViewRequestsPerMinute: getEnvAsInt("RATE_LIMIT_VIEWS_PER_MINUTE", 60),
			ViewBurst:             getEnvAsInt("RATE_LIMIT_VIEWS_BURST", 10),
		},
	}

	return config, config.Validate()
}

func (c *Config) Validate() error {
	if c.JWT.SecretKey == "your-secret-key-change-in-production" && c.Environment == "production" {
		return fmt.Errorf("JWT secret key must be changed in production")
	}

	if c.Database.Password == "" && c.Environment == "production" {
		return fmt.Errorf("database password is required in production")
	}

	if c.Environment == "production" && c.Payment.StripeWebhookSecret == "" {
		return fmt.Errorf("stripe webhook secret is required in production")
	}

	switch c.Database.Driver {
	case "postgres", "memory":
	default:
		return fmt.Errorf("unsupported store driver %q", c.Database.Driver)
	}

	switch c.ViewCounter.Driver {
	case "redis", "postgres", "memory":
	default:
		return fmt.Errorf("unsupported view counter driver %q", c.ViewCounter.Driver)
	}

	if c.ViewCounter.Driver == "postgres" && c.Database.Driver != "postgres" {
		return fmt.Errorf("postgres view counters require STORE_DRIVER=postgres")
	}

	if c.Payment.GatewayTimeout <= 0 {
		return fmt.Errorf("payment gateway timeout must be positive")
	}

	if c.ViewCounter.PollInterval <= 0 {
		return fmt.Errorf("view counter poll interval must be positive")
	}

	return nil
}

// Helper functions
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(strings.ToLower(value)); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func getEnvAsSlice(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
