package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	defaultAppName          = "AuthIntegrate"
	defaultAppEnv           = "development"
	defaultPort             = "5000"
	defaultLogLevel         = "info"
	defaultShutdownDelay    = 10 * time.Second
	defaultIdempotencyTTL   = 10 * time.Minute
	defaultSessionTTL       = 2 * time.Hour
	defaultLoginAttempts    = 5
	defaultRecentLogLimit   = 50
	defaultSerialBaud       = 115200
	idemTTLSecondsEnvVar    = "IDEMPOTENCY_TTL_SECONDS"
	idemTTLDurEnvVar        = "IDEMPOTENCY_TTL"
	shutdownSecondsEnvVar   = "SHUTDOWN_TIMEOUT_SECONDS"
	shutdownDurationEnvVar  = "SHUTDOWN_TIMEOUT"
	sessionTTLEnvVar        = "SESSION_TTL"
	loginAttemptsEnvVar     = "LOGIN_ATTEMPTS_PER_MINUTE"
	recentLogLimitEnvVar    = "RECENT_LOG_LIMIT"
	serialBaudEnvVar        = "SERIAL_BAUD"
	sessionSecretEnvVar     = "SESSION_SECRET"
	databaseURLEnvVar       = "DATABASE_URL"
	productionEnvIdentifier = "production"
)

// Config captures application runtime configuration loaded from environment variables.
type Config struct {
	AppName        string
	AppEnv         string
	Port           string
	LogLevel       string
	DatabaseURL    string
	RedisURL       string
	SessionSecret  string
	SessionTTL     time.Duration
	ShutdownPeriod time.Duration
	IdempotencyTTL time.Duration
	LoginAttempts  int
	RecentLogLimit int
	AdminEmails    []string
	SerialPort     string
	SerialBaud     int
	SentryDSN      string
}

// Load reads configuration values from the environment and populates a Config instance.
func Load() (Config, error) {
	cfg := Config{
		AppName:        getEnv("APP_NAME", defaultAppName),
		AppEnv:         strings.ToLower(getEnv("APP_ENV", defaultAppEnv)),
		Port:           getEnv("PORT", defaultPort),
		LogLevel:       strings.ToLower(getEnv("LOG_LEVEL", defaultLogLevel)),
		DatabaseURL:    os.Getenv(databaseURLEnvVar),
		RedisURL:       os.Getenv("REDIS_URL"),
		SessionSecret:  os.Getenv(sessionSecretEnvVar),
		SessionTTL:     defaultSessionTTL,
		ShutdownPeriod: defaultShutdownDelay,
		IdempotencyTTL: defaultIdempotencyTTL,
		LoginAttempts:  defaultLoginAttempts,
		RecentLogLimit: defaultRecentLogLimit,
		AdminEmails:    parseCSV(os.Getenv("ADMIN_EMAILS")),
		SerialPort:     os.Getenv("SERIAL_PORT"),
		SerialBaud:     defaultSerialBaud,
		SentryDSN:      os.Getenv("SENTRY_DSN"),
	}

	var err error
	if cfg.ShutdownPeriod, err = durationFromEnv(shutdownSecondsEnvVar, shutdownDurationEnvVar, cfg.ShutdownPeriod); err != nil {
		return Config{}, err
	}
	if cfg.IdempotencyTTL, err = durationFromEnv(idemTTLSecondsEnvVar, idemTTLDurEnvVar, cfg.IdempotencyTTL); err != nil {
		return Config{}, err
	}
	if v := os.Getenv(sessionTTLEnvVar); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid %s: %w", sessionTTLEnvVar, err)
		}
		cfg.SessionTTL = d
	}
	if cfg.LoginAttempts, err = intFromEnv(loginAttemptsEnvVar, cfg.LoginAttempts); err != nil {
		return Config{}, err
	}
	if cfg.RecentLogLimit, err = intFromEnv(recentLogLimitEnvVar, cfg.RecentLogLimit); err != nil {
		return Config{}, err
	}
	if cfg.SerialBaud, err = intFromEnv(serialBaudEnvVar, cfg.SerialBaud); err != nil {
		return Config{}, err
	}

	if cfg.SessionSecret == "" {
		return Config{}, fmt.Errorf("%s must be set", sessionSecretEnvVar)
	}

	if cfg.DatabaseURL == "" && !cfg.IsDev() {
		return Config{}, fmt.Errorf("%s must be set when APP_ENV=%s", databaseURLEnvVar, cfg.AppEnv)
	}

	return cfg, nil
}

// Address returns the listen address in the format Fiber expects.
func (c Config) Address() string {
	if strings.HasPrefix(c.Port, ":") {
		return c.Port
	}
	return fmt.Sprintf(":%s", c.Port)
}

// IsDev reports whether the process runs in a local development environment.
func (c Config) IsDev() bool {
	switch c.AppEnv {
	case "dev", "development", "local", "test":
		return true
	default:
		return false
	}
}

// IsProduction reports whether cookies must be marked secure.
func (c Config) IsProduction() bool {
	return c.AppEnv == productionEnvIdentifier
}

// IsAdminEmail reports whether the address is listed in ADMIN_EMAILS.
func (c Config) IsAdminEmail(email string) bool {
	for _, e := range c.AdminEmails {
		if strings.EqualFold(e, email) {
			return true
		}
	}
	return false
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func durationFromEnv(secondsKey, durationKey string, fallback time.Duration) (time.Duration, error) {
	if v := os.Getenv(secondsKey); v != "" {
		seconds, err := strconv.Atoi(v)
		if err != nil {
			return 0, fmt.Errorf("invalid %s: %w", secondsKey, err)
		}
		return time.Duration(seconds) * time.Second, nil
	}
	if v := os.Getenv(durationKey); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return 0, fmt.Errorf("invalid %s: %w", durationKey, err)
		}
		return d, nil
	}
	return fallback, nil
}

func intFromEnv(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}

func parseCSV(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	result := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}
