package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all configuration for the application.
type Config struct {
	Port        string
	DatabaseURL string
	RedisURL    string
	NATSURL     string
	NATSSubject string
	WebhookURL  string
	WebhookKey  string
	LogLevel    slog.Level
	HTTPTimeout time.Duration

	// KVBackend selects where cursors and the tenant configuration live:
	// "redis" or "postgres".
	KVBackend  string
	TenantsKey string
	TriggerRef string

	PollInterval       time.Duration
	BatchSize          int
	EventTypeWhitelist []string
	CursorPolicy       string

	TenantRateLimit        int
	TenantRateWindow       time.Duration
	SourceFailureThreshold int
	SourceCooldown         time.Duration
}

// DefaultBatchSize is used when EVENT_BATCH_SIZE is missing or invalid.
const DefaultBatchSize = 30

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	dbURL := getEnv("DATABASE_URL", "")
	redisURL := getEnv("REDIS_URL", "")

	if dbURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	if redisURL == "" {
		return nil, fmt.Errorf("REDIS_URL is required")
	}

	// The whitelist may be empty but must be configured explicitly.
	rawWhitelist, ok := os.LookupEnv("EVENT_TYPE_WHITELIST")
	if !ok {
		return nil, fmt.Errorf("EVENT_TYPE_WHITELIST is required")
	}

	kvBackend := getEnv("KV_BACKEND", "redis")
	if kvBackend != "redis" && kvBackend != "postgres" {
		return nil, fmt.Errorf("KV_BACKEND must be redis or postgres, got %q", kvBackend)
	}

	cursorPolicy := getEnv("CURSOR_POLICY", "fetched")
	if cursorPolicy != "fetched" && cursorPolicy != "dispatched" {
		return nil, fmt.Errorf("CURSOR_POLICY must be fetched or dispatched, got %q", cursorPolicy)
	}

	return &Config{
		Port:        getEnv("PORT", "8080"),
		DatabaseURL: dbURL,
		RedisURL:    redisURL,
		NATSURL:     getEnv("NATS_URL", ""),
		NATSSubject: getEnv("NATS_SUBJECT", "activity"),
		WebhookURL:  getEnv("WEBHOOK_URL", ""),
		WebhookKey:  getEnv("WEBHOOK_SECRET", ""),
		LogLevel:    parseLevel(getEnv("LOG_LEVEL", "info")),
		HTTPTimeout: getEnvDuration("HTTP_TIMEOUT", 30*time.Second),

		KVBackend:  kvBackend,
		TenantsKey: getEnv("TENANTS_KEY", "git-orgs"),
		TriggerRef: getEnv("TRIGGER_REF", "github.activity_sensor"),

		PollInterval:       getEnvDuration("POLL_INTERVAL", 30*time.Second),
		BatchSize:          getEnvInt("EVENT_BATCH_SIZE", DefaultBatchSize),
		EventTypeWhitelist: splitList(rawWhitelist),
		CursorPolicy:       cursorPolicy,

		TenantRateLimit:        getEnvInt("TENANT_RATE_LIMIT", 0),
		TenantRateWindow:       getEnvDuration("TENANT_RATE_WINDOW", time.Hour),
		SourceFailureThreshold: getEnvInt("SOURCE_FAILURE_THRESHOLD", 5),
		SourceCooldown:         getEnvDuration("SOURCE_COOLDOWN", 5*time.Minute),
	}, nil
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

// getEnvInt falls back on missing, non-numeric and non-positive values.
func getEnvInt(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		n, err := strconv.Atoi(strings.TrimSpace(val))
		if err == nil && n > 0 {
			return n
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		d, err := time.ParseDuration(val)
		if err == nil && d > 0 {
			return d
		}
	}
	return fallback
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func parseLevel(s string) slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return slog.LevelInfo
	}
	return level
}
