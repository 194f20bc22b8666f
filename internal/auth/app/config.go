package app

import (
	"errors"
	"os"
	"strconv"
	"time"

	"github.com/stardiary/stardiary/internal/auth/service"
	"github.com/stardiary/stardiary/pkg/jwtx"
)

// MinSecretBytes is the minimum accepted AUTH_SECRET length. HS256 security
// degrades with short keys, so startup refuses anything shorter.
const MinSecretBytes = 32

// ErrSecretRequired reports a missing or too-short AUTH_SECRET.
var ErrSecretRequired = errors.New("AUTH_SECRET is required and must be at least 32 bytes")

type Config struct {
	Secret []byte // Required: HS256 signing secret, at least 32 bytes
	Issuer string // Optional: issuer claim for tokens (default: stardiary-auth)

	DatabaseFile string // Optional: path to SQLite database file (default: ./auth.db)
	Env          string // Environment (dev, staging, prod) (default: dev)
	LogLevel     string // Log level (debug, info, warn, error) (default: info)
	LogFormat    string // Log format (json, text) (default: json)
	Port         int    // HTTP server port (default: 8080)

	AccessTTL  time.Duration // Access token lifetime (default: 15m)
	RefreshTTL time.Duration // Refresh token lifetime (default: 30 days)

	QRTTL         time.Duration // Access grant lifetime (default: 30 days)
	QRLoginWindow time.Duration // QR redemption window from issuance (default: 1h)

	ShutdownGracePeriod  time.Duration // Graceful shutdown timeout (default: 10s)
	HousekeepingInterval time.Duration // Housekeeping interval (default: 1h)
	TokenRetention       time.Duration // Revoked token retention (default: 90 days)
}

// LoadConfig reads configuration from the environment. It fails fast on a
// missing or weak AUTH_SECRET rather than booting a service minting tokens
// nobody should trust.
func LoadConfig() (Config, error) {
	secret := os.Getenv("AUTH_SECRET")
	if len(secret) < MinSecretBytes {
		return Config{}, ErrSecretRequired
	}

	cfg := Config{
		Secret:       []byte(secret),
		Issuer:       getEnvOrDefault("AUTH_ISSUER", "stardiary-auth"),
		DatabaseFile: getEnvOrDefault("AUTH_DATABASE_FILE", "auth.db"),
		Env:          getEnvOrDefault("ENV", "dev"),
		LogLevel:     getEnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:    getEnvOrDefault("LOG_FORMAT", "json"),
		Port:         getEnvIntOrDefault("PORT", 8080),

		AccessTTL:  getEnvDurationOrDefault("AUTH_ACCESS_TTL", jwtx.DefaultAccessTokenTTL),
		RefreshTTL: getEnvDurationOrDefault("AUTH_REFRESH_TTL", jwtx.DefaultRefreshTokenTTL),

		QRTTL:         getEnvDurationOrDefault("AUTH_QR_TTL", service.DefaultQRTTL),
		QRLoginWindow: getEnvDurationOrDefault("AUTH_QR_LOGIN_WINDOW", service.DefaultQRLoginWindow),

		ShutdownGracePeriod:  getEnvDurationOrDefault("SHUTDOWN_GRACE_PERIOD", 10*time.Second),
		HousekeepingInterval: getEnvDurationOrDefault("HOUSEKEEPING_INTERVAL", 1*time.Hour),
		TokenRetention:       getEnvDurationOrDefault("TOKEN_RETENTION", service.DefaultTokenRetention),
	}

	return cfg, nil
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

	// Duration strings like "1h", "30m", "90s"
	if duration, err := time.ParseDuration(value); err == nil {
		return duration
	}

	// Bare integers are read as minutes
	if minutes, err := strconv.Atoi(value); err == nil {
		return time.Duration(minutes) * time.Minute
	}

	return defaultValue
}
