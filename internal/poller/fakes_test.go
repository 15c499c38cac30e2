package poller

import (
	"context"
	"errors"
	"io"
	"iter"
	"log/slog"
	"slices"
	"strconv"
	"sync"
	"time"

	"github.com/Priya8975/activity-poller/internal/domain"
	"github.com/Priya8975/activity-poller/internal/trigger"
)

var errBoom = errors.New("boom")

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError}))
}

// memKV is an in-memory key/value store. With honorCtx set, writes on a
// cancelled context fail like a network store's would.
type memKV struct {
	mu       sync.Mutex
	values   map[string]string
	getErr   error
	setErr   error
	sets     int
	honorCtx bool
}

func newMemKV() *memKV {
	return &memKV{values: make(map[string]string)}
}

func (m *memKV) GetValue(_ context.Context, key string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return "", false, m.getErr
	}
	v, ok := m.values[key]
	return v, ok, nil
}

func (m *memKV) SetValue(ctx context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sets++
	if m.setErr != nil {
		return m.setErr
	}
	if m.honorCtx && ctx.Err() != nil {
		return ctx.Err()
	}
	m.values[key] = value
	return nil
}

func (m *memKV) get(key string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.values[key]
}

// event builds an event of the given type and id.
func event(id int, eventType string) domain.Event {
	login := "octo"
	return domain.Event{
		ID:        strconv.Itoa(id),
		Type:      eventType,
		CreatedAt: time.Date(2024, 3, 1, 10, 0, id%60, 0, time.UTC),
		Actor:     &domain.Actor{Login: &login},
	}
}

// newestFirst returns PushEvents for ids from..to, newest first.
func newestFirst(from, to int) []domain.Event {
	var out []domain.Event
	for id := to; id >= from; id-- {
		out = append(out, event(id, "PushEvent"))
	}
	return out
}

// fakeSource streams a fixed newest-first feed and serves actor profiles.
type fakeSource struct {
	mu         sync.Mutex
	events     []domain.Event
	err        error
	pulled     int
	profiles   map[string]*domain.Actor
	profileErr error
	lookups    int
}

func (s *fakeSource) Events(ctx context.Context) iter.Seq2[domain.Event, error] {
	return func(yield func(domain.Event, error) bool) {
		s.mu.Lock()
		events, err := s.events, s.err
		s.mu.Unlock()

		if err != nil {
			yield(domain.Event{}, err)
			return
		}
		for _, ev := range events {
			s.mu.Lock()
			s.pulled++
			s.mu.Unlock()
			if !yield(ev, nil) {
				return
			}
		}
	}
}

func (s *fakeSource) set(events []domain.Event, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events, s.err = events, err
}

func (s *fakeSource) Actor(_ context.Context, login string) (*domain.Actor, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lookups++
	if s.profileErr != nil {
		return nil, s.profileErr
	}
	return s.profiles[login], nil
}

func (s *fakeSource) setProfiles(profiles map[string]*domain.Actor, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.profiles, s.profileErr = profiles, err
}

func (s *fakeSource) lookupCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lookups
}

func (s *fakeSource) pulledCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pulled
}

type fakePrincipal struct {
	conn   *fakeConnector
	tenant string
}

func (p *fakePrincipal) Source(_ context.Context, name string) (domain.Source, error) {
	p.conn.mu.Lock()
	defer p.conn.mu.Unlock()
	p.conn.resolves++
	src, ok := p.conn.sources[p.tenant][name]
	if !ok {
		return nil, errors.New("no such source " + name)
	}
	return src, nil
}

// fakeConnector hands out principals over a fixed set of sources.
type fakeConnector struct {
	mu        sync.Mutex
	sources   map[string]map[string]*fakeSource
	fail      map[string]error
	calls     map[string]int
	endpoints []string
	resolves  int
}

func newFakeConnector() *fakeConnector {
	return &fakeConnector{
		sources: make(map[string]map[string]*fakeSource),
		fail:    make(map[string]error),
		calls:   make(map[string]int),
	}
}

// add registers a source and returns it.
func (c *fakeConnector) add(tenant, name string, events []domain.Event) *fakeSource {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sources[tenant] == nil {
		c.sources[tenant] = make(map[string]*fakeSource)
	}
	src := &fakeSource{events: events}
	c.sources[tenant][name] = src
	return src
}

func (c *fakeConnector) Connect(_ context.Context, tenantName string, _ domain.Tenant, baseURL string) (domain.Principal, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls[tenantName]++
	c.endpoints = append(c.endpoints, baseURL)
	if err := c.fail[tenantName]; err != nil {
		return nil, err
	}
	return &fakePrincipal{conn: c, tenant: tenantName}, nil
}

func (c *fakeConnector) connects(tenant string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls[tenant]
}

// staticTenants serves a mutable tenant configuration.
type staticTenants struct {
	mu  sync.Mutex
	cfg domain.TenantConfig
	err error
}

func (s *staticTenants) Load(context.Context) (domain.TenantConfig, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cfg, s.err
}

func (s *staticTenants) set(cfg domain.TenantConfig, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cfg, s.err = cfg, err
}

type dispatched struct {
	dispatchID string
	triggerRef string
	payload    domain.DispatchPayload
}

// recordingBus keeps every dispatch in order.
type recordingBus struct {
	mu   sync.Mutex
	sent []dispatched
}

func (b *recordingBus) Dispatch(ctx context.Context, triggerRef string, payload domain.DispatchPayload) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.sent = append(b.sent, dispatched{
		dispatchID: trigger.DispatchID(ctx),
		triggerRef: triggerRef,
		payload:    payload,
	})
}

func (b *recordingBus) ids() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []string
	for _, d := range b.sent {
		out = append(out, d.payload.ID)
	}
	return out
}

func (b *recordingBus) reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.sent = nil
}

// cancellingBus records dispatches and, once armed, cancels the cycle
// after the first one. Dispatches on a cancelled context are dropped, as
// the network buses do.
type cancellingBus struct {
	mu        sync.Mutex
	cancel    context.CancelFunc
	delivered []string
}

func (b *cancellingBus) Dispatch(ctx context.Context, _ string, payload domain.DispatchPayload) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if ctx.Err() != nil {
		return
	}
	b.delivered = append(b.delivered, payload.ID)
	if b.cancel != nil {
		b.cancel()
		b.cancel = nil
	}
}

func (b *cancellingBus) arm(cancel context.CancelFunc) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.cancel = cancel
}

func (b *cancellingBus) ids() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return slices.Clone(b.delivered)
}

// stubBreaker is a Breaker with a fixed verdict.
type stubBreaker struct {
	mu        sync.Mutex
	allow     bool
	failures  map[string]int
	successes map[string]int
	resets    []string
}

func newStubBreaker(allow bool) *stubBreaker {
	return &stubBreaker{allow: allow, failures: make(map[string]int), successes: make(map[string]int)}
}

func (b *stubBreaker) AllowRequest(context.Context, string) (string, bool) {
	if b.allow {
		return "closed", true
	}
	return "open", false
}

func (b *stubBreaker) RecordSuccess(_ context.Context, key string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.successes[key]++
}

func (b *stubBreaker) RecordFailure(_ context.Context, key string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failures[key]++
}

func (b *stubBreaker) Reset(_ context.Context, key string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.resets = append(b.resets, key)
}

type stubLimiter struct {
	allowed map[string]bool
}

func (l stubLimiter) Allow(_ context.Context, tenant string, _ int) bool {
	return l.allowed[tenant]
}
