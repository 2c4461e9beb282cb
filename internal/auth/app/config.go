package app

import (
	"errors"
	"os"
	"strconv"
	"time"
)

type Config struct {
	Issuer        string // Issuer claim for tokens and the TOTP provisioning label
	AccessSecret  string // Required: HMAC secret for access tokens
	RefreshSecret string // Required: HMAC secret for refresh tokens; must differ from AccessSecret

	AccessTTL    time.Duration // Access token lifetime (default: 15m)
	RefreshTTL   time.Duration // Refresh token lifetime (default: 168h)
	ChallengeTTL time.Duration // 2FA step-up challenge lifetime (default: 5m)
	HashTimeCost int           // Argon2id time cost for password hashing (default: 3)

	DatabaseFile         string        // Path to SQLite database file (default: ./gatehouse.db)
	Env                  string        // Environment (dev, staging, prod) (default: dev)
	LogLevel             string        // Log level (debug, info, warn, error) (default: info)
	LogFormat            string        // Log format (json, text) (default: json)
	Port                 int           // HTTP server port (default: 8080)
	ShutdownGracePeriod  time.Duration // Graceful shutdown timeout (default: 10s)
	HousekeepingInterval time.Duration // Expired-row purge interval (default: 1h)
}

func LoadConfig() Config {
	return Config{
		Issuer:        getEnvOrDefault("AUTH_ISSUER", "gatehouse"),
		AccessSecret:  os.Getenv("AUTH_ACCESS_SECRET"),
		RefreshSecret: os.Getenv("AUTH_REFRESH_SECRET"),

		AccessTTL:    getEnvDurationOrDefault("AUTH_ACCESS_TTL", 15*time.Minute),
		RefreshTTL:   getEnvDurationOrDefault("AUTH_REFRESH_TTL", 7*24*time.Hour),
		ChallengeTTL: getEnvDurationOrDefault("AUTH_CHALLENGE_TTL", 5*time.Minute),
		HashTimeCost: getEnvIntOrDefault("AUTH_HASH_TIME_COST", 0),

		DatabaseFile:         getEnvOrDefault("AUTH_DATABASE_FILE", "gatehouse.db"),
		Env:                  getEnvOrDefault("ENV", "dev"),
		LogLevel:             getEnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:            getEnvOrDefault("LOG_FORMAT", "json"),
		Port:                 getEnvIntOrDefault("PORT", 8080),
		ShutdownGracePeriod:  getEnvDurationOrDefault("SHUTDOWN_GRACE_PERIOD", 10*time.Second),
		HousekeepingInterval: getEnvDurationOrDefault("HOUSEKEEPING_INTERVAL", 1*time.Hour),
	}
}

// Validate rejects configurations that would silently weaken token security.
func (cfg Config) Validate() error {
	if cfg.AccessSecret == "" || cfg.RefreshSecret == "" {
		return errors.New("AUTH_ACCESS_SECRET and AUTH_REFRESH_SECRET must be set")
	}
	if cfg.AccessSecret == cfg.RefreshSecret {
		// Purpose separation relies on the two secrets being distinct.
		return errors.New("AUTH_ACCESS_SECRET and AUTH_REFRESH_SECRET must differ")
	}
	return nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	if intValue, err := strconv.Atoi(value); err == nil {
		return intValue
	}

	return defaultValue
}

func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	if d, err := time.ParseDuration(value); err == nil {
		return d
	}

	return defaultValue
}
