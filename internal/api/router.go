package api

import (
	"net/http"

	ws "github.com/Priya8975/activity-poller/internal/websocket"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// NewRouter creates and configures the HTTP router.
func NewRouter(p PollerService, log DispatchLog, queue QueueInspector, cb BreakerInspector, hub *ws.Hub) http.Handler {
	r := chi.NewRouter()

	// Middleware stack
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Heartbeat("/ping"))
	r.Use(corsMiddleware)

	pollerHandler := NewPollerHandler(p, cb)
	dispatchHandler := NewDispatchHandler(log, queue, hub, p)

	// Live feed of dispatched payloads
	r.Get("/ws", hub.HandleWebSocket)

	// Prometheus metrics
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", HealthHandler(p))

		r.Get("/cursors", pollerHandler.Cursors)
		r.Get("/cache", pollerHandler.Cache)
		r.Post("/poll", pollerHandler.Poll)
		r.Get("/tenants/{tenant}/sources/{source}/health", pollerHandler.SourceHealth)

		r.Get("/dispatches", dispatchHandler.List)
		r.Get("/stats", dispatchHandler.Stats)
	})

	return r
}

// corsMiddleware adds CORS headers for browser clients of the live feed.
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}
