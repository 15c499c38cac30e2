package api

import (
	"context"
	"net/http"
	"strconv"

	"github.com/Priya8975/activity-poller/internal/domain"
	"github.com/Priya8975/activity-poller/internal/poller"
	"github.com/Priya8975/activity-poller/internal/store"
)

// DispatchLog reads the dispatch log.
type DispatchLog interface {
	ListDispatches(ctx context.Context, eventType string, limit int) ([]domain.DispatchRecord, error)
	GetDispatchStats(ctx context.Context) (*store.DispatchStats, error)
}

// QueueInspector reports the depth of the trigger queue.
type QueueInspector interface {
	QueueDepth(ctx context.Context) (int64, error)
}

// ClientCounter reports connected live feed clients.
type ClientCounter interface {
	ClientCount() int
}

type DispatchHandler struct {
	log     DispatchLog
	queue   QueueInspector
	clients ClientCounter
	poller  PollerService
}

func NewDispatchHandler(log DispatchLog, queue QueueInspector, clients ClientCounter, p PollerService) *DispatchHandler {
	return &DispatchHandler{log: log, queue: queue, clients: clients, poller: p}
}

func (h *DispatchHandler) List(w http.ResponseWriter, r *http.Request) {
	eventType := r.URL.Query().Get("type")
	limitStr := r.URL.Query().Get("limit")

	limit := 50
	if limitStr != "" {
		if n, err := strconv.Atoi(limitStr); err == nil && n > 0 {
			limit = n
		}
	}

	records, err := h.log.ListDispatches(r.Context(), eventType, limit)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to list dispatches")
		return
	}

	respondJSON(w, http.StatusOK, records)
}

// Stats returns dispatch totals, the trigger queue depth and the last
// poll cycle.
func (h *DispatchHandler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.log.GetDispatchStats(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to get dispatch stats")
		return
	}

	queueDepth, err := h.queue.QueueDepth(r.Context())
	if err != nil {
		queueDepth = 0
	}

	type statsResponse struct {
		store.DispatchStats
		QueueDepth       int64         `json:"queue_depth"`
		WebSocketClients int           `json:"websocket_clients"`
		LastCycle        *poller.Stats `json:"last_cycle"`
	}

	resp := statsResponse{
		DispatchStats:    *stats,
		QueueDepth:       queueDepth,
		WebSocketClients: h.clients.ClientCount(),
	}
	if last, ok := h.poller.LastStats(); ok {
		resp.LastCycle = &last
	}

	respondJSON(w, http.StatusOK, resp)
}
