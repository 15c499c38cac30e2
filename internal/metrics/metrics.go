package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Poll cycle metrics
	PollCyclesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "activity_poller_cycles_total",
			Help: "Total number of poll cycles by result",
		},
		[]string{"result"},
	)

	PollDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "activity_poller_cycle_duration_seconds",
			Help:    "Duration of one poll cycle in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	TenantsConfigured = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "activity_poller_tenants_configured",
			Help: "Number of tenants in the last loaded configuration",
		},
	)

	// Event metrics
	EventsFetchedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "activity_poller_events_fetched_total",
			Help: "Total number of events fetched from remote sources",
		},
	)

	EventsDispatchedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "activity_poller_events_dispatched_total",
			Help: "Total number of events dispatched to the trigger bus",
		},
		[]string{"event_type"},
	)

	EventsSkippedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "activity_poller_events_skipped_total",
			Help: "Total number of fetched events not dispatched, by reason",
		},
		[]string{"reason"},
	)

	// Source metrics
	SourceErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "activity_poller_source_errors_total",
			Help: "Total number of per-source failures by stage",
		},
		[]string{"stage"},
	)

	SourcesSkippedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "activity_poller_sources_skipped_total",
			Help: "Total number of sources skipped by a guard",
		},
		[]string{"reason"},
	)

	// Handle cache metrics
	HandleCacheSize = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "activity_poller_handle_cache_size",
			Help: "Number of cached source handles after the last sweep",
		},
	)

	HandleCacheCreatesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "activity_poller_handle_cache_creates_total",
			Help: "Total number of source handles created",
		},
	)

	HandleCacheEvictionsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "activity_poller_handle_cache_evictions_total",
			Help: "Total number of source handles evicted by the sweep",
		},
	)
)

// Skip reasons
const (
	SkipSeen      = "seen"
	SkipWhitelist = "whitelist"
	SkipInvalidID = "invalid_id"
)

// Error stages
const (
	StageConnect = "connect"
	StageResolve = "resolve"
	StageCursor  = "cursor"
	StageFetch   = "fetch"
	StagePersist = "persist"
)
