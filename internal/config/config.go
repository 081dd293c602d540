package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	HTTPAddr string
	GRPCAddr string // empty disables the gRPC health listener

	// DB
	Env         string // "dev" | "prod"
	DBDriver    string // "sqlite" | "postgres" | "memory"
	DBPath      string // e.g. "./data/drugbox.db"
	DatabaseURL string // postgres only
	SeedDev     bool

	// Admin API
	AdminJWTSecret string // empty disables /api/v1/admin
	AdminJWTIssuer string

	// Fingerprint lockout
	MaxFingerprintFailures int // 0 = disabled
	LockoutWindow          time.Duration
	RedisAddr              string
	RedisPassword          string

	// Event retention
	EventRetentionDays int // 0 = keep forever
	PruneIntervalHours int

	LogLevel  string
	LogFormat string
}

func FromEnv() Config {
	addr := getenvDefault("DRUGBOX_HTTP_ADDR", ":8080")

	env := strings.ToLower(getenvDefault("DRUGBOX_ENV", "dev"))
	if env != "dev" && env != "prod" {
		// fail-soft: treat unknown as dev
		env = "dev"
	}

	driver := strings.ToLower(getenvDefault("DRUGBOX_DB_DRIVER", "sqlite"))
	switch driver {
	case "sqlite", "postgres", "memory":
	default:
		driver = "sqlite"
	}

	return Config{
		HTTPAddr: addr,
		GRPCAddr: strings.TrimSpace(os.Getenv("DRUGBOX_GRPC_ADDR")),

		Env:         env,
		DBDriver:    driver,
		DBPath:      getenvDefault("DRUGBOX_DB_PATH", "./data/drugbox.db"),
		DatabaseURL: strings.TrimSpace(os.Getenv("DRUGBOX_DATABASE_URL")),
		SeedDev:     getenvBool("DRUGBOX_SEED_DEV", false),

		AdminJWTSecret: os.Getenv("DRUGBOX_ADMIN_JWT_SECRET"),
		AdminJWTIssuer: getenvDefault("DRUGBOX_ADMIN_JWT_ISSUER", "drugbox"),

		MaxFingerprintFailures: getenvInt("DRUGBOX_MAX_FINGERPRINT_FAILURES", 0),
		LockoutWindow:          getenvDuration("DRUGBOX_LOCKOUT_WINDOW", 15*time.Minute),
		RedisAddr:              strings.TrimSpace(os.Getenv("DRUGBOX_REDIS_ADDR")),
		RedisPassword:          os.Getenv("DRUGBOX_REDIS_PASSWORD"),

		EventRetentionDays: getenvInt("DRUGBOX_EVENT_RETENTION_DAYS", 0),
		PruneIntervalHours: getenvInt("DRUGBOX_PRUNE_INTERVAL_HOURS", 6),

		LogLevel:  strings.ToLower(getenvDefault("DRUGBOX_LOG_LEVEL", "info")),
		LogFormat: strings.ToLower(getenvDefault("DRUGBOX_LOG_FORMAT", "text")),
	}
}

// AdminEnabled reports whether the admin API should be mounted.
func (c Config) AdminEnabled() bool {
	return strings.TrimSpace(c.AdminJWTSecret) != ""
}

func getenvDefault(key, def string) string {
	v := os.Getenv(key)
	if strings.TrimSpace(v) == "" {
		return def
	}
	return v
}

func getenvInt(key string, def int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return def
	}
	return n
}

func getenvBool(key string, def bool) bool {
	v := strings.TrimSpace(strings.ToLower(os.Getenv(key)))
	switch v {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return def
	}
}

// getenvDuration accepts Go durations ("90s", "15m") or a bare number of minutes.
func getenvDuration(key string, def time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	if d, err := time.ParseDuration(v); err == nil && d > 0 {
		return d
	}
	if n, err := strconv.Atoi(v); err == nil && n > 0 {
		return time.Duration(n) * time.Minute
	}
	return def
}
