package poller

import (
	"context"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/Priya8975/activity-poller/internal/domain"
	"github.com/Priya8975/activity-poller/internal/metrics"
	"github.com/Priya8975/activity-poller/internal/trigger"
)

// TenantSource yields the tenant configuration for a cycle. An absent
// configuration is an empty map, not an error.
type TenantSource interface {
	Load(ctx context.Context) (domain.TenantConfig, error)
}

// Breaker guards a single source by its cache key.
type Breaker interface {
	AllowRequest(ctx context.Context, sourceKey string) (string, bool)
	RecordSuccess(ctx context.Context, sourceKey string)
	RecordFailure(ctx context.Context, sourceKey string)
	Reset(ctx context.Context, sourceKey string)
}

// Limiter bounds fetches per tenant.
type Limiter interface {
	Allow(ctx context.Context, tenant string, limit int) bool
}

// Config tunes the poller.
type Config struct {
	TriggerRef   string
	BatchSize    int
	PollInterval time.Duration
	// Whitelist applies to tenants without their own event type whitelist.
	Whitelist    []string
	CursorPolicy CursorPolicy
	// TenantRateLimit is the number of fetches a tenant may make per limiter
	// window. Zero disables the limiter.
	TenantRateLimit int
}

// Stats summarizes one poll cycle.
type Stats struct {
	StartedAt  time.Time     `json:"started_at"`
	Tenants    int           `json:"tenants"`
	Sources    int           `json:"sources"`
	Fetched    int           `json:"fetched"`
	Dispatched int           `json:"dispatched"`
	Filtered   int           `json:"filtered"`
	Skipped    int           `json:"skipped"`
	Failed     int           `json:"failed"`
	Evicted    int           `json:"evicted"`
	Duration   time.Duration `json:"duration_ns"`
}

// Option configures optional Poller dependencies.
type Option func(*Poller)

// WithBreaker skips sources whose breaker is open.
func WithBreaker(b Breaker) Option {
	return func(p *Poller) {
		p.breaker = b
	}
}

// WithLimiter applies the per-tenant fetch limit.
func WithLimiter(l Limiter) Option {
	return func(p *Poller) {
		p.limiter = l
	}
}

// WithHandleCache replaces the handle cache, mainly for tests and the API.
func WithHandleCache(c *HandleCache) Option {
	return func(p *Poller) {
		p.cache = c
	}
}

// Poller runs poll cycles over every configured tenant.
type Poller struct {
	cfg        Config
	tenants    TenantSource
	connector  domain.Connector
	cursors    *CursorStore
	cache      *HandleCache
	classifier *Classifier
	whitelist  Whitelist
	breaker    Breaker
	limiter    Limiter
	logger     *slog.Logger

	// cycleMu serializes cycles between the loop and manual triggers.
	cycleMu sync.Mutex

	statsMu   sync.RWMutex
	lastStats *Stats
}

func New(cfg Config, tenants TenantSource, connector domain.Connector, cursors *CursorStore, bus trigger.Bus, logger *slog.Logger, opts ...Option) *Poller {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultBatchSize
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 30 * time.Second
	}

	p := &Poller{
		cfg:        cfg,
		tenants:    tenants,
		connector:  connector,
		cursors:    cursors,
		cache:      NewHandleCache(),
		classifier: NewClassifier(bus, cfg.TriggerRef, logger),
		whitelist:  NewWhitelist(cfg.Whitelist),
		logger:     logger,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Start runs a cycle immediately and then one per poll interval until ctx
// is cancelled.
func (p *Poller) Start(ctx context.Context) {
	p.logger.Info("poller started", "interval", p.cfg.PollInterval, "batch_size", p.cfg.BatchSize,
		"cursor_policy", p.cfg.CursorPolicy.String())

	ticker := time.NewTicker(p.cfg.PollInterval)
	defer ticker.Stop()

	p.runCycle(ctx)
	for {
		select {
		case <-ctx.Done():
			p.logger.Info("poller stopping")
			return
		case <-ticker.C:
			p.runCycle(ctx)
		}
	}
}

func (p *Poller) runCycle(ctx context.Context) {
	stats, err := p.Poll(ctx)
	if err != nil {
		if ctx.Err() == nil {
			p.logger.Error("poll cycle failed", "error", err)
		}
		return
	}
	p.logger.Info("poll cycle complete",
		"tenants", stats.Tenants,
		"sources", stats.Sources,
		"dispatched", stats.Dispatched,
		"filtered", stats.Filtered,
		"failed", stats.Failed,
		"evicted", stats.Evicted,
		"duration", stats.Duration,
	)
}

// Poll runs one cycle. It returns an error only when the cycle as a whole
// could not run: the tenant configuration failed to load or ctx was
// cancelled. In both cases nothing is evicted from the handle cache, and
// marks left by an interrupted cycle are discarded when the next one
// starts. Per-source failures are logged and counted in Stats.Failed.
func (p *Poller) Poll(ctx context.Context) (Stats, error) {
	p.cycleMu.Lock()
	defer p.cycleMu.Unlock()

	start := time.Now()
	stats := Stats{StartedAt: start.UTC()}
	p.cache.ResetMarks()
	profiles := newActorProfiles(p.logger)

	tenants, err := p.tenants.Load(ctx)
	if err != nil {
		metrics.PollCyclesTotal.WithLabelValues("config_error").Inc()
		return stats, fmt.Errorf("loading tenant configuration: %w", err)
	}
	metrics.TenantsConfigured.Set(float64(len(tenants)))

	for _, name := range slices.Sorted(maps.Keys(tenants)) {
		if ctx.Err() != nil {
			break
		}
		p.pollTenant(ctx, name, tenants[name], profiles, &stats)
	}

	if err := ctx.Err(); err != nil {
		metrics.PollCyclesTotal.WithLabelValues("cancelled").Inc()
		return stats, fmt.Errorf("poll cycle interrupted: %w", err)
	}

	evicted := p.cache.Sweep()
	for _, key := range evicted {
		p.logger.Debug("evicted source handle", "tenant", key.Tenant, "source", key.Source, "endpoint", key.Endpoint)
		if p.breaker != nil {
			p.breaker.Reset(ctx, key.String())
		}
	}
	stats.Evicted = len(evicted)
	stats.Duration = time.Since(start)

	metrics.HandleCacheEvictionsTotal.Add(float64(len(evicted)))
	metrics.HandleCacheSize.Set(float64(p.cache.Len()))
	metrics.PollDuration.Observe(stats.Duration.Seconds())
	metrics.PollCyclesTotal.WithLabelValues("ok").Inc()

	p.statsMu.Lock()
	p.lastStats = &stats
	p.statsMu.Unlock()

	return stats, nil
}

// pollTenant processes every source of one tenant. The principal is
// created lazily, at most once, and only when a source has no cached
// handle.
func (p *Poller) pollTenant(ctx context.Context, name string, tenant domain.Tenant, profiles *actorProfiles, stats *Stats) {
	if tenant.Repositories == nil {
		p.logger.Debug("tenant has no repositories configured", "tenant", name)
		return
	}

	endpoint, ok := tenant.Endpoint()
	if !ok {
		p.logger.Debug("URL is not configured for self-hosted tenant", "tenant", name, "user", tenant.User)
		return
	}
	stats.Tenants++

	whitelist := p.whitelist
	if tenant.EventTypeWhitelist != nil {
		whitelist = NewWhitelist(tenant.EventTypeWhitelist)
	}

	var (
		principal  domain.Principal
		connectErr error
		connected  bool
	)
	connect := func() (domain.Principal, error) {
		if !connected {
			connected = true
			principal, connectErr = p.connector.Connect(ctx, name, tenant, endpoint)
			if connectErr != nil {
				metrics.SourceErrorsTotal.WithLabelValues(metrics.StageConnect).Inc()
				p.logger.Error("failed to connect tenant", "tenant", name, "user", tenant.User, "error", connectErr)
			}
		}
		return principal, connectErr
	}

	for _, source := range tenant.Repositories {
		if ctx.Err() != nil {
			return
		}

		key := CacheKey{Tenant: name, Source: source, Endpoint: endpoint}
		src, created, err := p.cache.GetOrCreate(key, func() (domain.Source, error) {
			pr, err := connect()
			if err != nil {
				return nil, fmt.Errorf("connecting tenant: %w", err)
			}
			src, err := pr.Source(ctx, source)
			if err != nil {
				metrics.SourceErrorsTotal.WithLabelValues(metrics.StageResolve).Inc()
				return nil, fmt.Errorf("resolving source: %w", err)
			}
			return src, nil
		})
		if err != nil {
			stats.Failed++
			// A connect failure was already logged once for the tenant.
			if connectErr == nil {
				p.logger.Error("failed to create source handle", "tenant", name, "source", source, "error", err)
			}
			continue
		}
		if created {
			metrics.HandleCacheCreatesTotal.Inc()
			p.logger.Debug("created source handle", "tenant", name, "source", source, "endpoint", endpoint)
		}

		p.cache.MarkUsed(key)
		stats.Sources++

		if err := p.processSource(ctx, key, src, whitelist, profiles, stats); err != nil {
			stats.Failed++
			p.logger.Error("failed to process source", "tenant", name, "source", source, "error", err)
		}
	}
}

// processSource fetches one batch for a source and dispatches what is new.
func (p *Poller) processSource(ctx context.Context, key CacheKey, src domain.Source, whitelist Whitelist, profiles *actorProfiles, stats *Stats) error {
	if p.breaker != nil {
		if state, ok := p.breaker.AllowRequest(ctx, key.String()); !ok {
			stats.Skipped++
			metrics.SourcesSkippedTotal.WithLabelValues("breaker_open").Inc()
			p.logger.Debug("source skipped, breaker open", "tenant", key.Tenant, "source", key.Source, "state", state)
			return nil
		}
	}
	if p.limiter != nil && p.cfg.TenantRateLimit > 0 {
		if !p.limiter.Allow(ctx, key.Tenant, p.cfg.TenantRateLimit) {
			stats.Skipped++
			metrics.SourcesSkippedTotal.WithLabelValues("rate_limited").Inc()
			p.logger.Debug("source skipped, tenant rate limited", "tenant", key.Tenant, "source", key.Source)
			return nil
		}
	}

	cursor, hasCursor, err := p.cursors.Get(ctx, key.Source)
	if err != nil {
		metrics.SourceErrorsTotal.WithLabelValues(metrics.StageCursor).Inc()
		return err
	}

	batch, err := FetchBatch(ctx, src, p.cfg.BatchSize, p.logger)
	if err != nil {
		metrics.SourceErrorsTotal.WithLabelValues(metrics.StageFetch).Inc()
		if p.breaker != nil {
			p.breaker.RecordFailure(ctx, key.String())
		}
		return fmt.Errorf("fetching events: %w", err)
	}
	if p.breaker != nil {
		p.breaker.RecordSuccess(ctx, key.String())
	}
	stats.Fetched += len(batch)
	metrics.EventsFetchedTotal.Add(float64(len(batch)))

	fresh := SelectNew(batch, cursor, hasCursor)
	metrics.EventsSkippedTotal.WithLabelValues(metrics.SkipSeen).Add(float64(len(batch) - len(fresh)))

	// Once fetched, a batch is dispatched and its cursor saved in full.
	// Cancelling ctx does not split it.
	commit := context.WithoutCancel(ctx)

	var dispatched []Entry
	for _, e := range fresh {
		ev := e.Event
		if whitelist.Allows(ev.Type) {
			ev.Actor = profiles.complete(commit, key.Endpoint, src, ev.Actor)
		}
		if p.classifier.Handle(commit, key.Source, ev, whitelist) {
			dispatched = append(dispatched, e)
		} else {
			stats.Filtered++
		}
	}
	stats.Dispatched += len(dispatched)

	next, ok := p.cfg.CursorPolicy.Next(batch, dispatched)
	if !ok {
		return nil
	}
	if _, err := p.cursors.Advance(commit, key.Source, next); err != nil {
		metrics.SourceErrorsTotal.WithLabelValues(metrics.StagePersist).Inc()
		return err
	}
	return nil
}

// LastStats returns the stats of the last completed cycle.
func (p *Poller) LastStats() (Stats, bool) {
	p.statsMu.RLock()
	defer p.statsMu.RUnlock()
	if p.lastStats == nil {
		return Stats{}, false
	}
	return *p.lastStats, true
}

// Cursors returns the in-process cursors.
func (p *Poller) Cursors() map[string]int64 {
	return p.cursors.Snapshot()
}

// CachedSources returns the keys of the cached source handles.
func (p *Poller) CachedSources() []CacheKey {
	return p.cache.Keys()
}
