// Package config handles application configuration from environment variables
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	// Server settings
	Port     string
	Env      string // "development", "staging", "production"
	LogLevel string

	// Database
	DatabaseURL string // PostgreSQL connection string (optional, uses in-memory if not set)

	// Policy settings
	LargeAmountThreshold int64 // atomic units; sends at or above require step-up

	// Scope settings. These are embedder-facing knobs: the HTTP service never
	// constructs scopes or sessions itself. The embedding wallet runtime reads
	// them when building its orchestrator (runtime.WithScopeTTL) and sessions
	// (scope.NewSession).
	ScopeTTL   time.Duration // lifetime of an execution scope
	SessionTTL time.Duration // lifetime of an execution session

	// Guardian settings
	ApprovalExpiry time.Duration // how long a pending approval request stays actionable

	// Observability
	OTLPEndpoint string // OTLP gRPC collector endpoint (optional, tracing disabled if not set)
}

// Defaults
const (
	DefaultPort                 = "8080"
	DefaultEnv                  = "development"
	DefaultLogLevel             = "info"
	DefaultLargeAmountThreshold = 10_000_000
	DefaultScopeTTLSeconds      = 60
	DefaultSessionTTLSeconds    = 60
	DefaultApprovalExpiryHours  = 24
)

// Load reads configuration from environment variables
// It loads .env file if present (for local development)
func Load() (*Config, error) {
	// Load .env file if it exists (ignore error if not present)
	_ = godotenv.Load()

	cfg := &Config{
		Port:                 getEnv("PORT", DefaultPort),
		Env:                  getEnv("ENV", DefaultEnv),
		LogLevel:             getEnv("LOG_LEVEL", DefaultLogLevel),
		DatabaseURL:          os.Getenv("DATABASE_URL"), // Optional, uses in-memory if not set
		LargeAmountThreshold: getEnvInt64("LARGE_AMOUNT_THRESHOLD", DefaultLargeAmountThreshold),
		ScopeTTL:             time.Duration(getEnvInt64("SCOPE_TTL_SECONDS", DefaultScopeTTLSeconds)) * time.Second,
		SessionTTL:           time.Duration(getEnvInt64("SESSION_TTL_SECONDS", DefaultSessionTTLSeconds)) * time.Second,
		ApprovalExpiry:       time.Duration(getEnvInt64("APPROVAL_EXPIRY_HOURS", DefaultApprovalExpiryHours)) * time.Hour,
		OTLPEndpoint:         os.Getenv("OTLP_ENDPOINT"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks that all configuration values are usable
func (c *Config) Validate() error {
	if c.LargeAmountThreshold <= 0 {
		return fmt.Errorf("LARGE_AMOUNT_THRESHOLD must be positive")
	}
	if c.ScopeTTL <= 0 {
		return fmt.Errorf("SCOPE_TTL_SECONDS must be positive")
	}
	if c.SessionTTL <= 0 {
		return fmt.Errorf("SESSION_TTL_SECONDS must be positive")
	}
	if c.ApprovalExpiry <= 0 {
		return fmt.Errorf("APPROVAL_EXPIRY_HOURS must be positive")
	}
	return nil
}

// IsDevelopment returns true if running in development mode
func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

// IsProduction returns true if running in production mode
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// Helper functions

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.ParseInt(value, 10, 64); err == nil {
			return i
		}
	}
	return defaultValue
}
