package api

import (
	"context"
	"net/http"

	"github.com/Priya8975/activity-poller/internal/engine"
	"github.com/Priya8975/activity-poller/internal/poller"
	"github.com/go-chi/chi/v5"
)

// PollerService is the part of the poller exposed over HTTP.
type PollerService interface {
	Poll(ctx context.Context) (poller.Stats, error)
	LastStats() (poller.Stats, bool)
	Cursors() map[string]int64
	CachedSources() []poller.CacheKey
}

// BreakerInspector reads per-source breaker state.
type BreakerInspector interface {
	GetState(ctx context.Context, sourceKey string) engine.BreakerState
}

type PollerHandler struct {
	poller  PollerService
	breaker BreakerInspector
}

func NewPollerHandler(p PollerService, cb BreakerInspector) *PollerHandler {
	return &PollerHandler{poller: p, breaker: cb}
}

// Cursors returns the last processed event id per source.
func (h *PollerHandler) Cursors(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.poller.Cursors())
}

type cachedSource struct {
	Key      string `json:"key"`
	Tenant   string `json:"tenant"`
	Source   string `json:"source"`
	Endpoint string `json:"endpoint"`
}

// Cache lists the cached source handles.
func (h *PollerHandler) Cache(w http.ResponseWriter, r *http.Request) {
	keys := h.poller.CachedSources()

	result := make([]cachedSource, 0, len(keys))
	for _, k := range keys {
		result = append(result, cachedSource{
			Key:      k.String(),
			Tenant:   k.Tenant,
			Source:   k.Source,
			Endpoint: k.Endpoint,
		})
	}

	respondJSON(w, http.StatusOK, result)
}

// Poll runs a cycle now. It waits for a running cycle to finish first.
func (h *PollerHandler) Poll(w http.ResponseWriter, r *http.Request) {
	stats, err := h.poller.Poll(r.Context())
	if err != nil {
		respondError(w, http.StatusServiceUnavailable, "poll cycle failed: "+err.Error())
		return
	}

	respondJSON(w, http.StatusOK, stats)
}

// SourceHealth returns breaker state for a tenant's cached source, one
// entry per endpoint it is cached under.
func (h *PollerHandler) SourceHealth(w http.ResponseWriter, r *http.Request) {
	tenant := chi.URLParam(r, "tenant")
	source := chi.URLParam(r, "source")

	type sourceHealth struct {
		cachedSource
		CircuitBreaker engine.BreakerState `json:"circuit_breaker"`
	}

	var result []sourceHealth
	for _, k := range h.poller.CachedSources() {
		if k.Tenant != tenant || k.Source != source {
			continue
		}
		var state engine.BreakerState
		if h.breaker != nil {
			state = h.breaker.GetState(r.Context(), k.String())
		} else {
			state = engine.BreakerState{State: engine.StateClosed}
		}
		result = append(result, sourceHealth{
			cachedSource:   cachedSource{Key: k.String(), Tenant: k.Tenant, Source: k.Source, Endpoint: k.Endpoint},
			CircuitBreaker: state,
		})
	}

	if len(result) == 0 {
		respondError(w, http.StatusNotFound, "source not found")
		return
	}

	respondJSON(w, http.StatusOK, result)
}
