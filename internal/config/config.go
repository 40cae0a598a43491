package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// ConfigError reports a missing or invalid deployment setting. It is fatal
// for the operation that needed the setting and surfaces as a 500 on HTTP
// paths.
type ConfigError struct {
	Key    string
	Reason string
}

func (e *ConfigError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("config: %s %s", e.Key, e.Reason)
	}
	return fmt.Sprintf("config: %s is required", e.Key)
}

// Config holds all runtime settings for the MCP server.
type Config struct {
	Port    int
	BaseURL string

	TodoistClientID     string
	TodoistClientSecret string

	DatabaseURL   string
	SQLitePath    string
	RedisURL      string
	EncryptionKey string

	SubscriptionEnabled bool
	StripeSecretKey     string
	StripeWebhookSecret string
	StripePriceID       string
	StripeProductID     string
	TrialDays           int

	InternalAuthSecret string
	AMQPURL            string

	LogLevel string
	LogJSON  bool
}

// FromEnv reads the full server configuration from the environment.
// OAuth client credentials are not validated here; their absence is reported
// by the OAuth flow at the moment they are needed.
func FromEnv() (*Config, error) {
	cfg := &Config{
		Port:                envInt("PORT", 3000),
		BaseURL:             strings.TrimRight(os.Getenv("BASE_URL"), "/"),
		TodoistClientID:     os.Getenv("TODOIST_CLIENT_ID"),
		TodoistClientSecret: os.Getenv("TODOIST_CLIENT_SECRET"),
		DatabaseURL:         os.Getenv("DATABASE_URL"),
		SQLitePath:          os.Getenv("SQLITE_PATH"),
		RedisURL:            os.Getenv("REDIS_URL"),
		EncryptionKey:       os.Getenv("TOKEN_ENCRYPTION_KEY"),
		SubscriptionEnabled: envBool("SUBSCRIPTION_ENABLED"),
		StripeSecretKey:     os.Getenv("STRIPE_SECRET_KEY"),
		StripeWebhookSecret: os.Getenv("STRIPE_WEBHOOK_SECRET"),
		StripePriceID:       os.Getenv("STRIPE_PRICE_ID"),
		StripeProductID:     os.Getenv("STRIPE_PRODUCT_ID"),
		TrialDays:           envInt("TRIAL_DAYS", 3),
		InternalAuthSecret:  os.Getenv("INTERNAL_AUTH_SECRET"),
		AMQPURL:             os.Getenv("AMQP_URL"),
		LogLevel:            os.Getenv("LOG_LEVEL"),
		LogJSON:             envBool("LOG_JSON"),
	}

	if cfg.DatabaseURL == "" && cfg.SQLitePath == "" {
		cfg.SQLitePath = "data/todoist-mcp.db"
	}
	if cfg.DatabaseURL != "" && cfg.EncryptionKey == "" {
		return nil, &ConfigError{Key: "TOKEN_ENCRYPTION_KEY", Reason: "is required with DATABASE_URL"}
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = fmt.Sprintf("http://localhost:%d", cfg.Port)
	}

	return cfg, nil
}

func envInt(key string, fallback int) int {
	if val := strings.TrimSpace(os.Getenv(key)); val != "" {
		if n, err := strconv.Atoi(val); err == nil {
			return n
		}
	}
	return fallback
}

func envBool(key string) bool {
	return strings.EqualFold(strings.TrimSpace(os.Getenv(key)), "true")
}
