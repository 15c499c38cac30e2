package config

import (
	"log/slog"
	"os"
	"testing"
	"time"
)

func setRequired(t *testing.T) {
	t.Helper()
	t.Setenv("DATABASE_URL", "postgres://localhost/activity")
	t.Setenv("REDIS_URL", "redis://localhost:6379")
	t.Setenv("EVENT_TYPE_WHITELIST", "PushEvent, IssuesEvent,,")
}

func TestLoad_Defaults(t *testing.T) {
	setRequired(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if cfg.Port != "8080" {
		t.Errorf("Port = %q, want %q", cfg.Port, "8080")
	}
	if cfg.BatchSize != DefaultBatchSize {
		t.Errorf("BatchSize = %d, want %d", cfg.BatchSize, DefaultBatchSize)
	}
	if cfg.PollInterval != 30*time.Second {
		t.Errorf("PollInterval = %v, want 30s", cfg.PollInterval)
	}
	if cfg.KVBackend != "redis" {
		t.Errorf("KVBackend = %q, want redis", cfg.KVBackend)
	}
	if cfg.TenantsKey != "git-orgs" {
		t.Errorf("TenantsKey = %q, want git-orgs", cfg.TenantsKey)
	}
	if cfg.TriggerRef != "github.activity_sensor" {
		t.Errorf("TriggerRef = %q", cfg.TriggerRef)
	}
	if cfg.CursorPolicy != "fetched" {
		t.Errorf("CursorPolicy = %q, want fetched", cfg.CursorPolicy)
	}
	if len(cfg.EventTypeWhitelist) != 2 || cfg.EventTypeWhitelist[0] != "PushEvent" || cfg.EventTypeWhitelist[1] != "IssuesEvent" {
		t.Errorf("EventTypeWhitelist = %v", cfg.EventTypeWhitelist)
	}
	if cfg.LogLevel != slog.LevelInfo {
		t.Errorf("LogLevel = %v, want info", cfg.LogLevel)
	}
}

func TestLoad_BatchSizeFallsBack(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want int
	}{
		{name: "non-numeric", raw: "thirty", want: DefaultBatchSize},
		{name: "zero", raw: "0", want: DefaultBatchSize},
		{name: "negative", raw: "-5", want: DefaultBatchSize},
		{name: "valid", raw: "50", want: 50},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setRequired(t)
			t.Setenv("EVENT_BATCH_SIZE", tt.raw)

			cfg, err := Load()
			if err != nil {
				t.Fatalf("Load() error: %v", err)
			}
			if cfg.BatchSize != tt.want {
				t.Errorf("BatchSize = %d, want %d", cfg.BatchSize, tt.want)
			}
		})
	}
}

func TestLoad_MissingRequired(t *testing.T) {
	tests := []struct {
		name  string
		unset string
	}{
		{name: "database url", unset: "DATABASE_URL"},
		{name: "redis url", unset: "REDIS_URL"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setRequired(t)
			t.Setenv(tt.unset, "")

			if _, err := Load(); err == nil {
				t.Errorf("expected error when %s is empty", tt.unset)
			}
		})
	}
}

func TestLoad_EmptyWhitelistIsAllowed(t *testing.T) {
	setRequired(t)
	t.Setenv("EVENT_TYPE_WHITELIST", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if len(cfg.EventTypeWhitelist) != 0 {
		t.Errorf("expected empty whitelist, got %v", cfg.EventTypeWhitelist)
	}
}

func TestLoad_WhitelistMustBeConfigured(t *testing.T) {
	setRequired(t)
	os.Unsetenv("EVENT_TYPE_WHITELIST")

	if _, err := Load(); err == nil {
		t.Error("expected error when EVENT_TYPE_WHITELIST is not set")
	}
}

func TestLoad_InvalidEnums(t *testing.T) {
	setRequired(t)
	t.Setenv("KV_BACKEND", "etcd")
	if _, err := Load(); err == nil {
		t.Error("expected error for unknown KV_BACKEND")
	}

	setRequired(t)
	t.Setenv("KV_BACKEND", "postgres")
	t.Setenv("CURSOR_POLICY", "newest")
	if _, err := Load(); err == nil {
		t.Error("expected error for unknown CURSOR_POLICY")
	}
}

func TestParseLevel(t *testing.T) {
	if got := parseLevel("debug"); got != slog.LevelDebug {
		t.Errorf("parseLevel(debug) = %v", got)
	}
	if got := parseLevel("nonsense"); got != slog.LevelInfo {
		t.Errorf("parseLevel(nonsense) = %v, want info", got)
	}
}
