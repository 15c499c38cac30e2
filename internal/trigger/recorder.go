package trigger

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/Priya8975/activity-poller/internal/domain"
)

// DispatchRecorder persists dispatch records.
type DispatchRecorder interface {
	RecordDispatch(ctx context.Context, rec domain.DispatchRecord) error
}

// Recorder is a Bus that writes every payload to the dispatch log.
type Recorder struct {
	store  DispatchRecorder
	logger *slog.Logger
}

func NewRecorder(store DispatchRecorder, logger *slog.Logger) *Recorder {
	return &Recorder{store: store, logger: logger}
}

// Dispatch implements Bus.
func (r *Recorder) Dispatch(ctx context.Context, triggerRef string, payload domain.DispatchPayload) {
	data, err := json.Marshal(payload)
	if err != nil {
		r.logger.Error("failed to marshal dispatch record", "error", err, "event_id", payload.ID)
		return
	}

	err = r.store.RecordDispatch(ctx, domain.DispatchRecord{
		ID:         DispatchID(ctx),
		TriggerRef: triggerRef,
		Repository: payload.Repository,
		EventID:    payload.ID,
		EventType:  payload.Type,
		Payload:    data,
	})
	if err != nil {
		r.logger.Error("failed to record dispatch",
			"error", err,
			"repository", payload.Repository,
			"event_id", payload.ID,
		)
	}
}
