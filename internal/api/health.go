package api

import (
	"net/http"
	"time"
)

// HealthResponse represents the health check response.
type HealthResponse struct {
	Status     string     `json:"status"`
	Version    string     `json:"version"`
	LastPollAt *time.Time `json:"last_poll_at"`
}

// HealthHandler returns the health check handler. The service is healthy
// once it is serving; LastPollAt is null until the first cycle completes.
func HealthHandler(p PollerService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp := HealthResponse{
			Status:  "healthy",
			Version: "1.0.0",
		}
		if stats, ok := p.LastStats(); ok {
			resp.LastPollAt = &stats.StartedAt
		}

		respondJSON(w, http.StatusOK, resp)
	}
}
