package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Priya8975/activity-poller/internal/activity"
	"github.com/Priya8975/activity-poller/internal/config"
	"github.com/Priya8975/activity-poller/internal/engine"
	"github.com/Priya8975/activity-poller/internal/poller"
	"github.com/Priya8975/activity-poller/internal/store"
	"github.com/Priya8975/activity-poller/internal/trigger"
	ws "github.com/Priya8975/activity-poller/internal/websocket"
	"github.com/nats-io/nats.go"
)

// app holds the wired service.
type app struct {
	cfg     *config.Config
	logger  *slog.Logger
	pg      *store.PostgresStore
	redis   *store.RedisStore
	tenants *store.TenantLoader
	queue   *trigger.RedisQueue
	hub     *ws.Hub
	breaker *engine.CircuitBreaker
	poller  *poller.Poller
	nc      *nats.Conn
}

func newApp(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*app, error) {
	a := &app{cfg: cfg, logger: logger}

	pgStore, err := store.NewPostgres(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}
	a.pg = pgStore
	logger.Info("connected to PostgreSQL")

	if err := pgStore.RunMigrations(ctx, migrationsDir); err != nil {
		a.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}
	logger.Info("database migrations applied")

	redisStore, err := store.NewRedis(ctx, cfg.RedisURL)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.redis = redisStore
	logger.Info("connected to Redis")

	var kv store.KeyValueStore = redisStore
	if cfg.KVBackend == "postgres" {
		kv = pgStore
	}
	a.tenants = store.NewTenantLoader(kv, cfg.TenantsKey)

	a.queue = trigger.NewRedisQueue(redisStore.Client(), logger)
	a.hub = ws.NewHub(logger)

	buses := trigger.Multi{
		a.queue,
		trigger.NewRecorder(pgStore, logger),
		a.hub,
	}
	if cfg.NATSURL != "" {
		nc, err := trigger.DialNATS(cfg.NATSURL, "activity-poller")
		if err != nil {
			a.Close()
			return nil, err
		}
		a.nc = nc
		buses = append(buses, trigger.NewNATSBus(nc, cfg.NATSSubject, logger))
		logger.Info("connected to NATS", "subject", cfg.NATSSubject)
	}
	if cfg.WebhookURL != "" {
		buses = append(buses, trigger.NewWebhookBus(cfg.WebhookURL, cfg.WebhookKey, logger))
		logger.Info("webhook trigger enabled", "url", cfg.WebhookURL)
	}

	policy, err := poller.ParseCursorPolicy(cfg.CursorPolicy)
	if err != nil {
		a.Close()
		return nil, err
	}

	a.breaker = engine.NewCircuitBreaker(redisStore.Client(), logger, cfg.SourceFailureThreshold, cfg.SourceCooldown)
	limiter := engine.NewRateLimiter(redisStore.Client(), logger, cfg.TenantRateWindow)

	connector := activity.NewConnector(
		activity.WithTimeout(cfg.HTTPTimeout),
		activity.WithLogger(logger),
		activity.WithPageSize(cfg.BatchSize),
	)

	a.poller = poller.New(poller.Config{
		TriggerRef:      cfg.TriggerRef,
		BatchSize:       cfg.BatchSize,
		PollInterval:    cfg.PollInterval,
		Whitelist:       cfg.EventTypeWhitelist,
		CursorPolicy:    policy,
		TenantRateLimit: cfg.TenantRateLimit,
	}, a.tenants, connector, poller.NewCursorStore(kv, logger), buses, logger,
		poller.WithBreaker(a.breaker),
		poller.WithLimiter(limiter),
	)

	return a, nil
}

// Close releases every connection that was opened.
func (a *app) Close() {
	if a.nc != nil {
		if err := a.nc.Drain(); err != nil {
			a.logger.Error("failed to drain NATS connection", "error", err)
		}
	}
	if a.redis != nil {
		a.redis.Close()
	}
	if a.pg != nil {
		a.pg.Close()
	}
}
