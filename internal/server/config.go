// Package server provides configuration helpers that define runtime
// defaults and validation for the chat service.
package server

import (
	"os"
	"strconv"
	"time"

	"golang.org/x/crypto/bcrypt"
)

// Config holds the server configuration settings.
//
// DatabaseURL may be empty: the server then runs in explicit non-persistent
// mode with in-memory stores. StoreTimeout bounds every credential and
// message store round-trip so an unreachable store degrades the chat
// instead of hanging connections.
type Config struct {
	Port            string
	AllowedOrigins  []string
	MaxMessageSize  int64
	DatabaseURL     string
	HistoryLimit    int
	BcryptCost      int
	StoreTimeout    time.Duration
	ShutdownTimeout time.Duration
}

func defaultConfig() Config {
	return Config{
		Port: ":8080",
		AllowedOrigins: []string{
			"http://localhost:8080",
		},
		MaxMessageSize:  4096,
		HistoryLimit:    50,
		BcryptCost:      bcrypt.DefaultCost,
		StoreTimeout:    3 * time.Second,
		ShutdownTimeout: 10 * time.Second,
	}
}

func sanitizeConfig(cfg Config) Config {
	defaults := defaultConfig()

	if cfg.Port == "" {
		cfg.Port = defaults.Port
	}
	if cfg.MaxMessageSize <= 0 {
		cfg.MaxMessageSize = defaults.MaxMessageSize
	}
	if cfg.HistoryLimit <= 0 {
		cfg.HistoryLimit = defaults.HistoryLimit
	}
	if cfg.BcryptCost < bcrypt.MinCost || cfg.BcryptCost > bcrypt.MaxCost {
		cfg.BcryptCost = defaults.BcryptCost
	}
	if cfg.StoreTimeout <= 0 {
		cfg.StoreTimeout = defaults.StoreTimeout
	}
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = defaults.ShutdownTimeout
	}

	return cfg
}

// NewConfig creates a Config instance populated with default values for all settings.
func NewConfig() *Config {
	cfg := defaultConfig()
	return &cfg
}

// NewConfigFromEnv creates a Config instance from environment variables.
// Falls back to default values if environment variables are not set.
func NewConfigFromEnv() *Config {
	cfg := defaultConfig()

	if port := os.Getenv("SERVER_PORT"); port != "" {
		cfg.Port = port
	}
	if origins := os.Getenv("ALLOWED_ORIGINS"); origins != "" {
		cfg.AllowedOrigins = parseOrigins(origins)
	}
	if maxSize := os.Getenv("MAX_MESSAGE_SIZE"); maxSize != "" {
		cfg.MaxMessageSize = parseInt64Value(maxSize, cfg.MaxMessageSize)
	}
	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	if limit := os.Getenv("HISTORY_LIMIT"); limit != "" {
		cfg.HistoryLimit = parseIntValue(limit, cfg.HistoryLimit)
	}
	if cost := os.Getenv("BCRYPT_COST"); cost != "" {
		cfg.BcryptCost = parseIntValue(cost, cfg.BcryptCost)
	}
	if timeout := os.Getenv("STORE_TIMEOUT"); timeout != "" {
		cfg.StoreTimeout = parseDurationValue(timeout, cfg.StoreTimeout)
	}
	if timeout := os.Getenv("SHUTDOWN_TIMEOUT"); timeout != "" {
		cfg.ShutdownTimeout = parseDurationValue(timeout, cfg.ShutdownTimeout)
	}

	sanitized := sanitizeConfig(cfg)
	return &sanitized
}

func parseInt64Value(value string, defaultValue int64) int64 {
	if parsed, err := strconv.ParseInt(value, 10, 64); err == nil && parsed > 0 {
		return parsed
	}
	return defaultValue
}

func parseIntValue(value string, defaultValue int) int {
	if parsed, err := strconv.Atoi(value); err == nil && parsed > 0 {
		return parsed
	}
	return defaultValue
}

func parseDurationValue(value string, defaultValue time.Duration) time.Duration {
	if parsed, err := time.ParseDuration(value); err == nil && parsed > 0 {
		return parsed
	}
	return defaultValue
}
