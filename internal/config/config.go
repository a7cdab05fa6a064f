package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// State backends for the pending payment record.
const (
	BackendFile     = "file"
	BackendRedis    = "redis"
	BackendDynamoDB = "dynamodb"
	BackendPostgres = "postgres"
	BackendMemory   = "memory"
)

// Config holds front desk configuration
type Config struct {
	Port               string
	PublicBaseURL      string
	LogLevel           string
	CORSAllowedOrigins []string

	APIBaseURL   string
	APITokenFile string
	APIToken     string

	StateBackend      string
	StateFile         string
	PaymentStateKey   string
	PaymentStateTTL   time.Duration
	PaymentStateTable string
	DatabaseURL       string
	RedisAddr         string
	RedisPassword     string
	RedisTLS          bool

	AWSRegion           string
	AWSAccessKeyID      string
	AWSSecretAccessKey  string
	AWSEndpointOverride string

	PollInterval    time.Duration
	PollMaxAttempts int

	CheckoutMode        string
	CheckoutSDKURL      string
	CheckoutBaseURL     string
	CheckoutOpenBrowser bool
	AllowFakePayments   bool
	AppointmentsURL     string

	// Pricing
	AppointmentFee   int64
	OperationFee     int64
	HospitalFeesJSON string
	PaymentCurrency  string
}

// Load reads configuration from environment variables
func Load() *Config {
	port := getEnv("PORT", "8085")
	mode := strings.ToLower(getEnv("CHECKOUT_MODE", "sandbox"))
	return &Config{
		Port:               port,
		PublicBaseURL:      strings.TrimRight(getEnv("PUBLIC_BASE_URL", "http://localhost:"+port), "/"),
		LogLevel:           getEnv("LOG_LEVEL", "info"),
		CORSAllowedOrigins: splitList(getEnv("CORS_ALLOWED_ORIGINS", "")),

		APIBaseURL:   getEnv("API_BASE_URL", "http://localhost:8000/api"),
		APITokenFile: getEnv("API_TOKEN_FILE", defaultPath("session.token")),
		APIToken:     getEnv("API_TOKEN", ""),

		StateBackend:      strings.ToLower(strings.TrimSpace(getEnv("STATE_BACKEND", BackendFile))),
		StateFile:         getEnv("STATE_FILE", ""),
		PaymentStateKey:   getEnv("PAYMENT_STATE_KEY", "anagha.pendingPayment"),
		PaymentStateTTL:   getEnvAsDuration("PAYMENT_STATE_TTL", 24*time.Hour),
		PaymentStateTable: getEnv("PAYMENT_STATE_TABLE", "frontdesk_pending_payments"),
		DatabaseURL:       getEnv("DATABASE_URL", ""),
		RedisAddr:         getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword:     getEnv("REDIS_PASSWORD", ""),
		RedisTLS:          getEnvAsBool("REDIS_TLS", false),

		AWSRegion:           getEnv("AWS_REGION", "ap-south-1"),
		AWSAccessKeyID:      getEnv("AWS_ACCESS_KEY_ID", ""),
		AWSSecretAccessKey:  getEnv("AWS_SECRET_ACCESS_KEY", ""),
		AWSEndpointOverride: getEnv("AWS_ENDPOINT_OVERRIDE", ""),

		PollInterval:    getEnvAsDuration("POLL_INTERVAL", 10*time.Second),
		PollMaxAttempts: getEnvAsInt("POLL_MAX_ATTEMPTS", 30),

		CheckoutMode:        mode,
		CheckoutSDKURL:      getEnv("CHECKOUT_SDK_URL", "https://sdk.cashfree.com/js/v3/cashfree.js"),
		CheckoutBaseURL:     getEnv("CHECKOUT_BASE_URL", defaultCheckoutURL(mode)),
		CheckoutOpenBrowser: getEnvAsBool("CHECKOUT_OPEN_BROWSER", false),
		AllowFakePayments:   getEnvAsBool("ALLOW_FAKE_PAYMENTS", false),
		AppointmentsURL:     getEnv("APPOINTMENTS_URL", "/appointments"),

		AppointmentFee:   getEnvAsInt64("APPOINTMENT_FEE", 500),
		OperationFee:     getEnvAsInt64("OPERATION_FEE", 0),
		HospitalFeesJSON: getEnv("HOSPITAL_FEES_JSON", ""),
		PaymentCurrency:  getEnv("PAYMENT_CURRENCY", "INR"),
	}
}

// Validate reports settings that would make the front desk unusable.
func (c *Config) Validate() error {
	switch c.StateBackend {
	case BackendFile, BackendMemory:
	case BackendRedis:
		if c.RedisAddr == "" {
			return fmt.Errorf("config: REDIS_ADDR required for redis state backend")
		}
	case BackendDynamoDB:
		if c.PaymentStateTable == "" {
			return fmt.Errorf("config: PAYMENT_STATE_TABLE required for dynamodb state backend")
		}
	case BackendPostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("config: DATABASE_URL required for postgres state backend")
		}
	default:
		return fmt.Errorf("config: unknown STATE_BACKEND %q", c.StateBackend)
	}
	if c.CheckoutMode != "sandbox" && c.CheckoutMode != "production" {
		return fmt.Errorf("config: CHECKOUT_MODE must be sandbox or production, got %q", c.CheckoutMode)
	}
	if c.PollInterval <= 0 || c.PollMaxAttempts <= 0 {
		return fmt.Errorf("config: POLL_INTERVAL and POLL_MAX_ATTEMPTS must be positive")
	}
	if strings.TrimSpace(c.APIBaseURL) == "" {
		return fmt.Errorf("config: API_BASE_URL required")
	}
	return nil
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func defaultCheckoutURL(mode string) string {
	if mode == "production" {
		return "https://api.cashfree.com/pg/view/checkout"
	}
	return "https://sandbox.cashfree.com/pg/view/checkout"
}

func defaultPath(name string) string {
	dir, err := os.UserConfigDir()
	if err != nil {
		dir = os.TempDir()
	}
	return filepath.Join(dir, "anagha-frontdesk", name)
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt retrieves an environment variable as an integer or returns a default value
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsInt64(key string, defaultValue int64) int64 {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseInt(valueStr, 10, 64); err == nil {
		return value
	}
	return defaultValue
}

// getEnvAsBool retrieves an environment variable as a boolean or returns a default value
func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
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
