package config

import (
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	DefaultBaseURL          = "https://app.terraform.io"
	DefaultAPIVersion       = "/api/v2"
	DefaultPageSize         = 100
	DefaultConcurrencyLimit = 100
	DefaultRetryDelay       = 200 * time.Millisecond
	DefaultBreakerTimeout   = 30 * time.Second
)

// Config holds the application configuration
type Config struct {
	// Terraform API
	BaseURL    string
	APIVersion string
	Token      string
	PageSize   int

	// Collection
	ConcurrencyLimit int
	OrgConcurrency   int
	Organizations    []string // empty means every organization the token can see

	// Request policy
	RetryDelay        time.Duration
	MaxRetryDelay     time.Duration
	BackoffMultiplier float64
	RetryJitter       float64
	MaxRetries        int // 0 retries 429 responses forever
	RequestsPerSecond float64
	BreakerThreshold  int // 0 disables the circuit breaker
	BreakerTimeout    time.Duration
	RequestTimeout    time.Duration

	// Local state mode
	StatePath string

	// Logging
	LogLevel  string
	LogFormat string

	// API Server
	APIPort string
	APIHost string

	// CLI
	APIEndpoint string
}

// Load loads the configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists (ignore error if not found)
	_ = godotenv.Load()

	cfg := &Config{
		BaseURL:           getEnv("TF_ADDR", DefaultBaseURL),
		APIVersion:        getEnv("TF_API_VERSION", DefaultAPIVersion),
		Token:             getEnv("TF_TOKEN", ""),
		PageSize:          getEnvInt("TF_PAGE_SIZE", DefaultPageSize),
		ConcurrencyLimit:  getEnvInt("TF_CONCURRENCY", DefaultConcurrencyLimit),
		OrgConcurrency:    getEnvInt("TF_ORG_CONCURRENCY", 1),
		Organizations:     splitList(getEnv("TF_ORG", "")),
		RetryDelay:        getEnvDuration("TF_RETRY_DELAY", DefaultRetryDelay),
		MaxRetryDelay:     getEnvDuration("TF_MAX_RETRY_DELAY", DefaultRetryDelay),
		BackoffMultiplier: getEnvFloat("TF_BACKOFF_MULTIPLIER", 1),
		RetryJitter:       getEnvFloat("TF_RETRY_JITTER", 0),
		MaxRetries:        getEnvInt("TF_MAX_RETRIES", 0),
		RequestsPerSecond: getEnvFloat("TF_REQUESTS_PER_SECOND", 0),
		BreakerThreshold:  getEnvInt("TF_BREAKER_THRESHOLD", 0),
		BreakerTimeout:    getEnvDuration("TF_BREAKER_TIMEOUT", DefaultBreakerTimeout),
		RequestTimeout:    getEnvDuration("TF_REQUEST_TIMEOUT", 30*time.Second),
		StatePath:         getEnv("TF_STATE_PATH", ""),
		LogLevel:          getEnv("LOG_LEVEL", "error"),
		LogFormat:         getEnv("LOG_FORMAT", "console"),
		APIPort:           getEnv("API_PORT", "8080"),
		APIHost:           getEnv("API_HOST", "localhost"),
		APIEndpoint:       getEnv("API_ENDPOINT", "http://localhost:8080"),
	}

	return cfg, nil
}

// ResolveToken fills Token from the Terraform CLI credentials file when it
// was not supplied through the environment or flags
func (c *Config) ResolveToken() error {
	if c.Token != "" {
		return nil
	}
	path, err := DefaultCredentialsPath()
	if err != nil {
		return err
	}
	token, err := TokenFromCredentialsFile(path, c.Host())
	if err != nil {
		return err
	}
	c.Token = token
	return nil
}

// Host returns the host part of BaseURL
func (c *Config) Host() string {
	u, err := url.Parse(c.BaseURL)
	if err != nil {
		return ""
	}
	return u.Host
}

// getEnv returns the value of an environment variable or a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// Validate validates the configuration for API collection
func (c *Config) Validate() error {
	u, err := url.Parse(c.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return &ConfigError{Field: "TF_ADDR", Message: "must be an absolute URL"}
	}
	if c.Token == "" {
		return &ConfigError{Field: "TF_TOKEN", Message: "API token is required"}
	}
	if c.PageSize < 1 {
		return &ConfigError{Field: "TF_PAGE_SIZE", Message: "must be at least 1"}
	}
	if c.ConcurrencyLimit < 1 {
		return &ConfigError{Field: "TF_CONCURRENCY", Message: "must be at least 1"}
	}
	if c.OrgConcurrency < 1 {
		return &ConfigError{Field: "TF_ORG_CONCURRENCY", Message: "must be at least 1"}
	}
	if c.RetryDelay <= 0 {
		return &ConfigError{Field: "TF_RETRY_DELAY", Message: "must be positive"}
	}
	if c.BackoffMultiplier < 1 {
		return &ConfigError{Field: "TF_BACKOFF_MULTIPLIER", Message: "must be at least 1"}
	}
	if c.RetryJitter < 0 || c.RetryJitter >= 1 {
		return &ConfigError{Field: "TF_RETRY_JITTER", Message: "must be in [0, 1)"}
	}
	if c.MaxRetries < 0 {
		return &ConfigError{Field: "TF_MAX_RETRIES", Message: "must not be negative"}
	}
	if c.RequestsPerSecond < 0 {
		return &ConfigError{Field: "TF_REQUESTS_PER_SECOND", Message: "must not be negative"}
	}
	if c.BreakerThreshold < 0 {
		return &ConfigError{Field: "TF_BREAKER_THRESHOLD", Message: "must not be negative"}
	}
	if c.BreakerThreshold > 0 && c.BreakerTimeout <= 0 {
		return &ConfigError{Field: "TF_BREAKER_TIMEOUT", Message: "must be positive"}
	}
	return nil
}

// ConfigError represents a configuration error
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return e.Field + ": " + e.Message
}
