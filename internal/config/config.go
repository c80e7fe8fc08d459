// Package config provides configuration management functionality.
package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Provider selection values for OPEN_FINANCE_PROVIDER.
const (
	ProviderSimulated = "simulated"
	ProviderReal      = "real"
)

// Config holds application configuration.
type Config struct {
	Port     int
	LogLevel string

	// BigQuery record store. When GCPProject is empty the API falls back to
	// the in-memory store (local development only).
	GCPProject string
	BQDataset  string

	// GCS bucket for webhook audit archiving. Empty disables archiving.
	AuditBucket string

	// Open Finance integration.
	Provider          string // "simulated" or "real"
	OpenFinanceConfig OpenFinanceConfig

	// Shared secret for webhook HMAC signatures. Empty disables verification.
	WebhookSecret string
}

// OpenFinanceConfig holds the real provider's connection settings.
type OpenFinanceConfig struct {
	BaseURL      string
	ClientID     string
	ClientSecret string
	CertFile     string // optional mTLS client certificate
	KeyFile      string // optional mTLS client key
}

// Load reads configuration from environment variables.
// A .env file in the working directory is honored when present.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Port:        getEnvAsInt("PORT", 8080),
		LogLevel:    getEnv("LOG_LEVEL", "info"),
		GCPProject:  getEnv("GCP_PROJECT", ""),
		BQDataset:   getEnv("BQ_DATASET", "finance"),
		AuditBucket: getEnv("AUDIT_BUCKET", ""),
		Provider:    getEnv("OPEN_FINANCE_PROVIDER", ProviderSimulated),
		OpenFinanceConfig: OpenFinanceConfig{
			BaseURL:      getEnv("OPEN_FINANCE_BASE_URL", ""),
			ClientID:     getEnv("OPEN_FINANCE_CLIENT_ID", ""),
			ClientSecret: getEnv("OPEN_FINANCE_CLIENT_SECRET", ""),
			CertFile:     getEnv("OPEN_FINANCE_CERT_FILE", ""),
			KeyFile:      getEnv("OPEN_FINANCE_KEY_FILE", ""),
		},
		WebhookSecret: getEnv("WEBHOOK_SECRET", ""),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks cross-field consistency. Missing real-provider credentials
// are not an error here: the provider reports a configuration error at fetch
// time so that it never silently falls back to simulated behavior.
func (c *Config) Validate() error {
	if c.Provider != ProviderSimulated && c.Provider != ProviderReal {
		return fmt.Errorf("invalid OPEN_FINANCE_PROVIDER %q (want %q or %q)",
			c.Provider, ProviderSimulated, ProviderReal)
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
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}
