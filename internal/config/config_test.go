package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{"TF_ADDR", "TF_TOKEN", "TF_PAGE_SIZE", "TF_CONCURRENCY", "TF_ORG", "TF_RETRY_DELAY", "TF_MAX_RETRIES"} {
		t.Setenv(key, "")
	}

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, DefaultBaseURL, cfg.BaseURL)
	assert.Equal(t, DefaultAPIVersion, cfg.APIVersion)
	assert.Equal(t, DefaultPageSize, cfg.PageSize)
	assert.Equal(t, DefaultConcurrencyLimit, cfg.ConcurrencyLimit)
	assert.Equal(t, 1, cfg.OrgConcurrency)
	assert.Equal(t, DefaultRetryDelay, cfg.RetryDelay)
	assert.Equal(t, 0, cfg.MaxRetries)
	assert.Empty(t, cfg.Organizations)
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("TF_ADDR", "https://tfe.example.com")
	t.Setenv("TF_TOKEN", "secret")
	t.Setenv("TF_PAGE_SIZE", "20")
	t.Setenv("TF_CONCURRENCY", "8")
	t.Setenv("TF_ORG", "acme, globex,,")
	t.Setenv("TF_RETRY_DELAY", "50ms")
	t.Setenv("TF_MAX_RETRIES", "7")
	t.Setenv("TF_BREAKER_THRESHOLD", "5")
	t.Setenv("TF_BREAKER_TIMEOUT", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "https://tfe.example.com", cfg.BaseURL)
	assert.Equal(t, "tfe.example.com", cfg.Host())
	assert.Equal(t, "secret", cfg.Token)
	assert.Equal(t, 20, cfg.PageSize)
	assert.Equal(t, 8, cfg.ConcurrencyLimit)
	assert.Equal(t, []string{"acme", "globex"}, cfg.Organizations)
	assert.Equal(t, 50*time.Millisecond, cfg.RetryDelay)
	assert.Equal(t, 7, cfg.MaxRetries)
	assert.Equal(t, 5, cfg.BreakerThreshold)
	assert.Equal(t, DefaultBreakerTimeout, cfg.BreakerTimeout)
	require.NoError(t, cfg.Validate())
}

func validConfig() *Config {
	return &Config{
		BaseURL:           "https://app.terraform.io",
		Token:             "token",
		PageSize:          100,
		ConcurrencyLimit:  100,
		OrgConcurrency:    1,
		RetryDelay:        DefaultRetryDelay,
		BackoffMultiplier: 1,
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		field  string
	}{
		{"valid config", func(*Config) {}, ""},
		{"relative url", func(c *Config) { c.BaseURL = "app.terraform.io" }, "TF_ADDR"},
		{"missing token", func(c *Config) { c.Token = "" }, "TF_TOKEN"},
		{"zero page size", func(c *Config) { c.PageSize = 0 }, "TF_PAGE_SIZE"},
		{"zero concurrency", func(c *Config) { c.ConcurrencyLimit = 0 }, "TF_CONCURRENCY"},
		{"zero org concurrency", func(c *Config) { c.OrgConcurrency = 0 }, "TF_ORG_CONCURRENCY"},
		{"zero retry delay", func(c *Config) { c.RetryDelay = 0 }, "TF_RETRY_DELAY"},
		{"shrinking backoff", func(c *Config) { c.BackoffMultiplier = 0.5 }, "TF_BACKOFF_MULTIPLIER"},
		{"jitter out of range", func(c *Config) { c.RetryJitter = 1 }, "TF_RETRY_JITTER"},
		{"negative retries", func(c *Config) { c.MaxRetries = -1 }, "TF_MAX_RETRIES"},
		{"negative breaker threshold", func(c *Config) { c.BreakerThreshold = -1 }, "TF_BREAKER_THRESHOLD"},
		{"breaker without timeout", func(c *Config) { c.BreakerThreshold = 3 }, "TF_BREAKER_TIMEOUT"},
		{"breaker with timeout", func(c *Config) {
			c.BreakerThreshold = 3
			c.BreakerTimeout = time.Second
		}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.field == "" {
				assert.NoError(t, err)
				return
			}
			var cfgErr *ConfigError
			require.ErrorAs(t, err, &cfgErr)
			assert.Equal(t, tt.field, cfgErr.Field)
		})
	}
}

func TestTokenFromCredentialsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "credentials.tfrc.json")
	content := `{"credentials": {
		"tfe.example.com": {"token": "tfe-token"},
		"app.terraform.io": {"token": "cloud-token"}
	}}`
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))

	token, err := TokenFromCredentialsFile(path, "tfe.example.com")
	require.NoError(t, err)
	assert.Equal(t, "tfe-token", token)

	token, err = TokenFromCredentialsFile(path, "other.example.com")
	require.NoError(t, err)
	assert.Equal(t, "cloud-token", token)

	_, err = TokenFromCredentialsFile(filepath.Join(t.TempDir(), "missing.json"), "tfe.example.com")
	assert.Error(t, err)
}

func TestResolveTokenKeepsExplicitToken(t *testing.T) {
	cfg := validConfig()
	cfg.Token = "explicit"
	require.NoError(t, cfg.ResolveToken())
	assert.Equal(t, "explicit", cfg.Token)
}
