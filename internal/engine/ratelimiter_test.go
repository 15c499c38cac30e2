package engine

import (
	"context"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func setupTestRL(t *testing.T) (*RateLimiter, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
	rl := NewRateLimiter(client, logger, time.Minute)
	return rl, mr
}

func TestNewRateLimiter_DefaultWindow(t *testing.T) {
	rl := NewRateLimiter(nil, slog.Default(), 0)
	if rl.window != time.Hour {
		t.Errorf("window = %v, want 1h", rl.window)
	}
}

func TestRateLimiter_AllowsWithinLimit(t *testing.T) {
	rl, _ := setupTestRL(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		if !rl.Allow(ctx, "acme", 5) {
			t.Errorf("fetch %d should be allowed (limit=5)", i+1)
		}
	}
}

func TestRateLimiter_BlocksOverLimit(t *testing.T) {
	rl, _ := setupTestRL(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		rl.Allow(ctx, "acme", 3)
	}

	if rl.Allow(ctx, "acme", 3) {
		t.Error("fetch should be blocked when over the tenant budget")
	}
}

func TestRateLimiter_ZeroLimit_AllowsAll(t *testing.T) {
	rl, _ := setupTestRL(t)
	ctx := context.Background()

	for i := 0; i < 100; i++ {
		if !rl.Allow(ctx, "acme", 0) {
			t.Fatalf("fetch %d should be allowed with limit=0", i+1)
		}
	}
}

func TestRateLimiter_IsolationBetweenTenants(t *testing.T) {
	rl, _ := setupTestRL(t)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		rl.Allow(ctx, "acme", 2)
	}

	if rl.Allow(ctx, "acme", 2) {
		t.Error("acme should be blocked")
	}
	if !rl.Allow(ctx, "globex", 2) {
		t.Error("globex should be allowed, budgets are per tenant")
	}
}

func TestRateLimiter_FailsOpen(t *testing.T) {
	rl, mr := setupTestRL(t)
	mr.Close()

	if !rl.Allow(context.Background(), "acme", 1) {
		t.Error("redis errors should not block polling")
	}
}
