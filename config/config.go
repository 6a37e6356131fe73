package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	DatabaseURL        string
	Port               string
	GoEnv              string
	LogLevel           string
	CORSAllowedOrigins []string

	Auth0Domain   string
	Auth0Audience string

	AWSRegion          string
	AWSS3Bucket        string
	AWSAccessKeyID     string
	AWSSecretAccessKey string
	UploadDir          string

	// Paystack
	PaystackSecretKey          string
	PaystackBaseURL            string
	PaymentCurrency            string
	PaymentCallbackURL         string
	PaymentFallbackEmailDomain string
	GatewayTimeout             time.Duration
	GatewayMaxAttempts         int

	// Notifications
	NotifyDriver       string // log, http or amqp
	NotifyWebhookURL   string
	NotifySecret       string // shared secret for the dispatch endpoint; empty disables it
	NotifyTimeout      time.Duration
	AMQPURL            string
	AMQPNotifyExchange string

	// Pending payment sweep; empty schedule disables it
	ReconcileSchedule string
	ReconcileAfter    time.Duration

	MenuSeedFile string
}

var appConfig *Config

// Load loads the configuration from environment variables
// It automatically determines which .env file to load based on GO_ENV
func Load() (*Config, error) {
	env := os.Getenv("GO_ENV")
	if env == "" {
		env = "development"
	}

	// Try to load environment-specific file first
	envFile := fmt.Sprintf(".env.%s", env)
	if err := godotenv.Load(envFile); err != nil {
		if err := godotenv.Load(); err != nil {
			// In production environment variables are set directly
			log.Printf("No .env file found, using system environment variables")
		}
	} else {
		log.Printf("Loaded configuration from %s", envFile)
	}

	config := &Config{
		DatabaseURL:        getEnv("DATABASE_URL", ""),
		Port:               getEnv("PORT", "8080"),
		GoEnv:              getEnv("GO_ENV", "development"),
		LogLevel:           getEnv("LOG_LEVEL", "info"),
		CORSAllowedOrigins: getEnvList("CORS_ALLOWED_ORIGINS", []string{"*"}),

		Auth0Domain:   getEnv("AUTH0_DOMAIN", ""),
		Auth0Audience: getEnv("AUTH0_AUDIENCE", ""),

		AWSRegion:          getEnv("AWS_REGION", "us-east-1"),
		AWSS3Bucket:        getEnv("AWS_S3_BUCKET", ""),
		AWSAccessKeyID:     getEnv("AWS_ACCESS_KEY_ID", ""),
		AWSSecretAccessKey: getEnv("AWS_SECRET_ACCESS_KEY", ""),
		UploadDir:          getEnv("UPLOAD_DIR", "./uploads"),

		PaystackSecretKey:          getEnv("PAYSTACK_SECRET_KEY", ""),
		PaystackBaseURL:            getEnv("PAYSTACK_BASE_URL", "https://api.paystack.co"),
		PaymentCurrency:            getEnv("PAYMENT_CURRENCY", "GHS"),
		PaymentCallbackURL:         getEnv("PAYMENT_CALLBACK_URL", ""),
		PaymentFallbackEmailDomain: getEnv("PAYMENT_FALLBACK_EMAIL_DOMAIN", "bitecraft.com"),
		GatewayTimeout:             getEnvDuration("GATEWAY_TIMEOUT", 15*time.Second),
		GatewayMaxAttempts:         getEnvInt("GATEWAY_MAX_ATTEMPTS", 3),

		NotifyDriver:       getEnv("NOTIFY_DRIVER", "log"),
		NotifyWebhookURL:   getEnv("NOTIFY_WEBHOOK_URL", ""),
		NotifySecret:       getEnv("NOTIFY_SECRET", ""),
		NotifyTimeout:      getEnvDuration("NOTIFY_TIMEOUT", 5*time.Second),
		AMQPURL:            getEnv("AMQP_URL", ""),
		AMQPNotifyExchange: getEnv("AMQP_NOTIFY_EXCHANGE", "order_notifications"),

		ReconcileSchedule: getEnv("RECONCILE_SCHEDULE", ""),
		ReconcileAfter:    getEnvDuration("RECONCILE_AFTER", 30*time.Minute),

		MenuSeedFile: getEnv("MENU_SEED_FILE", ""),
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	appConfig = config
	return config, nil
}

// Validate checks that all required configuration values are set
func (c *Config) Validate() error {
	if c.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	if c.IsProduction() && c.PaystackSecretKey == "" {
		return fmt.Errorf("PAYSTACK_SECRET_KEY is required in production")
	}
	switch c.NotifyDriver {
	case "log", "http", "amqp":
	default:
		return fmt.Errorf("NOTIFY_DRIVER must be one of log, http, amqp (got %q)", c.NotifyDriver)
	}
	if c.NotifyDriver == "http" && c.NotifyWebhookURL == "" {
		return fmt.Errorf("NOTIFY_WEBHOOK_URL is required when NOTIFY_DRIVER=http")
	}
	if c.NotifyDriver == "amqp" && c.AMQPURL == "" {
		return fmt.Errorf("AMQP_URL is required when NOTIFY_DRIVER=amqp")
	}
	if c.GatewayMaxAttempts < 1 {
		return fmt.Errorf("GATEWAY_MAX_ATTEMPTS must be at least 1")
	}
	return nil
}

// IsProduction returns true if the application is running in production mode
func (c *Config) IsProduction() bool {
	return c.GoEnv == "production"
}

// IsTest returns true if the application is running in test mode
func (c *Config) IsTest() bool {
	return c.GoEnv == "test"
}

// IsDevelopment returns true if the application is running in development mode
func (c *Config) IsDevelopment() bool {
	return c.GoEnv == "development"
}

// UsesS3 reports whether food images go to S3 rather than local disk
func (c *Config) UsesS3() bool {
	return c.AWSS3Bucket != ""
}

// GetConfig returns the configuration loaded by the last successful Load call
func GetConfig() *Config {
	return appConfig
}

// SetConfig replaces the process-wide configuration (primarily for testing)
func SetConfig(cfg *Config) {
	appConfig = cfg
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
		log.Printf("Invalid integer for %s=%q, using default %d", key, value, defaultValue)
	}
	return defaultValue
}

// getEnvDuration accepts Go duration strings ("15s", "30m")
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil && parsed > 0 {
			return parsed
		}
		log.Printf("Invalid duration for %s=%q, using default %s", key, value, defaultValue)
	}
	return defaultValue
}

func getEnvList(key string, defaultValue []string) []string {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}
