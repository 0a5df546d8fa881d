package app

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/aussiebroadwan/orgauth/pkg/jwtx"
)

type Config struct {
	Issuer       string        // Issuer claim for tokens (default: orgauth)
	TokenSecret  string        // Required: HS256 secret, at least 32 bytes
	SessionTTL   time.Duration // Session token lifetime (default: 15m)
	SelectionTTL time.Duration // Selection token lifetime (default: 5m)

	CookieName   string // Session cookie name (default: access_token)
	CookieSecure bool   // Mark the session cookie Secure (default: true)

	AutoPromoteEnabled bool   // Promote AutoPromoteEmail to OWNER everywhere on sight (default: false)
	AutoPromoteEmail   string // Only this email is ever auto-promoted

	LookupTimeout time.Duration // Bound on per-request store lookups (default: 5s)

	DatabaseDriver string // sqlite or postgres (default: sqlite)
	DatabaseFile   string // SQLite file (default: orgauth.db)
	DatabaseURL    string // Postgres DSN, required for the postgres driver
	RedisURL       string // Optional: selection-token replay guard in Redis
	PepperFile     string // Password pepper, created on first start (default: pepper)

	CORSAllowedOrigins []string // Optional: browser origins allowed to send credentials

	Env                  string        // dev, staging, prod (default: dev)
	LogLevel             string        // debug, info, warn, error (default: info)
	LogFormat            string        // json, text (default: json)
	Port                 int           // HTTP port (default: 8080)
	ShutdownGracePeriod  time.Duration // Graceful shutdown timeout (default: 10s)
	HousekeepingInterval time.Duration // Expired token cleanup interval (default: 1h)
}

func LoadConfig() Config {
	return Config{
		Issuer:       getEnvOrDefault("AUTH_ISSUER", "orgauth"),
		TokenSecret:  os.Getenv("AUTH_TOKEN_SECRET"),
		SessionTTL:   getEnvDurationOrDefault("AUTH_SESSION_TTL", 15*time.Minute),
		SelectionTTL: getEnvDurationOrDefault("AUTH_SELECTION_TTL", 5*time.Minute),

		CookieName:   getEnvOrDefault("AUTH_COOKIE_NAME", "access_token"),
		CookieSecure: getEnvBoolOrDefault("AUTH_COOKIE_SECURE", true),

		AutoPromoteEnabled: getEnvBoolOrDefault("AUTO_PROMOTE_ENABLED", false),
		AutoPromoteEmail:   strings.TrimSpace(os.Getenv("AUTO_PROMOTE_EMAIL")),

		LookupTimeout: getEnvDurationOrDefault("LOOKUP_TIMEOUT", 5*time.Second),

		DatabaseDriver: strings.ToLower(getEnvOrDefault("DATABASE_DRIVER", "sqlite")),
		DatabaseFile:   getEnvOrDefault("DATABASE_FILE", "orgauth.db"),
		DatabaseURL:    os.Getenv("DATABASE_URL"),
		RedisURL:       os.Getenv("REDIS_URL"),
		PepperFile:     getEnvOrDefault("AUTH_PEPPER_FILE", "pepper"),

		CORSAllowedOrigins: splitList(os.Getenv("CORS_ALLOWED_ORIGINS")),

		Env:                  getEnvOrDefault("ENV", "dev"),
		LogLevel:             getEnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:            getEnvOrDefault("LOG_FORMAT", "json"),
		Port:                 getEnvIntOrDefault("PORT", 8080),
		ShutdownGracePeriod:  getEnvDurationOrDefault("SHUTDOWN_GRACE_PERIOD", 10*time.Second),
		HousekeepingInterval: getEnvDurationOrDefault("HOUSEKEEPING_INTERVAL", time.Hour),
	}
}

// Validate reports configuration the service cannot start with.
func (c Config) Validate() error {
	var errs []error

	if len(c.TokenSecret) < jwtx.MinSecretLength {
		errs = append(errs, fmt.Errorf("AUTH_TOKEN_SECRET must be at least %d bytes", jwtx.MinSecretLength))
	}

	switch c.DatabaseDriver {
	case "sqlite":
	case "postgres":
		if c.DatabaseURL == "" {
			errs = append(errs, errors.New("DATABASE_URL is required for the postgres driver"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown DATABASE_DRIVER %q", c.DatabaseDriver))
	}

	if c.AutoPromoteEnabled && c.AutoPromoteEmail == "" {
		errs = append(errs, errors.New("AUTO_PROMOTE_EMAIL is required when AUTO_PROMOTE_ENABLED is set"))
	}

	return errors.Join(errs...)
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

func getEnvBoolOrDefault(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	if b, err := strconv.ParseBool(value); err == nil {
		return b
	}

	return defaultValue
}

func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	if duration, err := time.ParseDuration(value); err == nil {
		return duration
	}

	// Bare integers are minutes.
	if minutes, err := strconv.Atoi(value); err == nil {
		return time.Duration(minutes) * time.Minute
	}

	return defaultValue
}

func splitList(s string) []string {
	var out []string
	for part := range strings.SplitSeq(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
