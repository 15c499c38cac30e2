package store

import (
	"context"
	"testing"

	"github.com/Priya8975/activity-poller/internal/domain"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func setupTestRedis(t *testing.T) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewRedisFromClient(client), mr
}

func TestRedisStore_GetValue_Absent(t *testing.T) {
	s, _ := setupTestRedis(t)

	val, ok, err := s.GetValue(context.Background(), "last_id.repo-a")
	if err != nil {
		t.Fatalf("GetValue error: %v", err)
	}
	if ok {
		t.Errorf("expected absent key, got %q", val)
	}
}

func TestRedisStore_SetThenGet(t *testing.T) {
	s, mr := setupTestRedis(t)
	ctx := context.Background()

	if err := s.SetValue(ctx, "last_id.repo-a", "103"); err != nil {
		t.Fatalf("SetValue error: %v", err)
	}

	val, ok, err := s.GetValue(ctx, "last_id.repo-a")
	if err != nil {
		t.Fatalf("GetValue error: %v", err)
	}
	if !ok || val != "103" {
		t.Errorf("GetValue = (%q, %v), want (103, true)", val, ok)
	}

	// Keys are namespaced in Redis.
	if got, _ := mr.Get("kv:last_id.repo-a"); got != "103" {
		t.Errorf("raw redis value = %q, want 103", got)
	}
}

func TestRedisStore_GetValue_Error(t *testing.T) {
	s, mr := setupTestRedis(t)
	mr.Close()

	if _, _, err := s.GetValue(context.Background(), "k"); err == nil {
		t.Error("expected error when redis is down")
	}
}

func TestTenantLoader_Absent(t *testing.T) {
	s, _ := setupTestRedis(t)
	loader := NewTenantLoader(s, "git-orgs")

	tenants, err := loader.Load(context.Background())
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if len(tenants) != 0 {
		t.Errorf("expected empty config, got %v", tenants)
	}
}

func TestTenantLoader_Decode(t *testing.T) {
	s, mr := setupTestRedis(t)
	mr.Set("kv:git-orgs", `{
		"acme": {"token": "t0k", "user": "acme", "type": "online", "repositories": ["api", "web"]},
		"internal": {"token": "", "user": "ops", "type": "server", "url": "https://git.internal/api/v3",
		             "repositories": ["infra"], "event_type_whitelist": []},
		"bare": {"token": "x", "user": "bare", "type": "online"},
		"quiet": {"token": "q", "user": "quiet", "type": "online", "repositories": ["docs"], "event_type_whitelist": null}
	}`)

	tenants, err := NewTenantLoader(s, "git-orgs").Load(context.Background())
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if len(tenants) != 4 {
		t.Fatalf("expected 4 tenants, got %d", len(tenants))
	}

	acme := tenants["acme"]
	if len(acme.Repositories) != 2 {
		t.Errorf("acme repositories = %v", acme.Repositories)
	}
	if acme.EventTypeWhitelist != nil {
		t.Errorf("acme whitelist should be absent, got %v", acme.EventTypeWhitelist)
	}
	if url, ok := acme.Endpoint(); !ok || url != domain.HostedAPIURL {
		t.Errorf("acme endpoint = (%q, %v)", url, ok)
	}

	internal := tenants["internal"]
	if internal.EventTypeWhitelist == nil || len(internal.EventTypeWhitelist) != 0 {
		t.Errorf("internal whitelist should be an explicit empty override, got %#v", internal.EventTypeWhitelist)
	}

	if wl := tenants["quiet"].EventTypeWhitelist; wl == nil || len(wl) != 0 {
		t.Errorf("null whitelist should decode to an empty override, got %#v", wl)
	}

	if tenants["bare"].Repositories != nil {
		t.Errorf("bare tenant should have no repositories key")
	}
}

func TestTenantLoader_DecodeFailure(t *testing.T) {
	s, mr := setupTestRedis(t)
	mr.Set("kv:git-orgs", `{not json`)

	if _, err := NewTenantLoader(s, "git-orgs").Load(context.Background()); err == nil {
		t.Error("expected decode error")
	}
}

func TestTenantLoader_SaveRoundTrip(t *testing.T) {
	s, _ := setupTestRedis(t)
	loader := NewTenantLoader(s, "git-orgs")
	ctx := context.Background()

	in := domain.TenantConfig{
		"acme": {Token: "t", User: "acme", Type: "online", Repositories: []string{"api"}},
	}
	if err := loader.Save(ctx, in); err != nil {
		t.Fatalf("Save error: %v", err)
	}

	out, err := loader.Load(ctx)
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if out["acme"].User != "acme" || len(out["acme"].Repositories) != 1 {
		t.Errorf("round trip mismatch: %+v", out["acme"])
	}
}
