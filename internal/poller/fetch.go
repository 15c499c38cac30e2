package poller

import (
	"context"
	"log/slog"
	"slices"

	"github.com/Priya8975/activity-poller/internal/domain"
	"github.com/Priya8975/activity-poller/internal/metrics"
)

// DefaultBatchSize bounds a fetch when no valid batch size is configured.
const DefaultBatchSize = 30

// Entry is a fetched event with its parsed sequence number.
type Entry struct {
	Seq   int64
	Event domain.Event
}

// FetchBatch consumes at most count events from the source's newest-first
// stream and returns them oldest first. The stream is abandoned as soon as
// count events have been read, so no further pages are requested. Events
// whose id is not an integer count towards the budget but are dropped.
func FetchBatch(ctx context.Context, src domain.Source, count int, logger *slog.Logger) ([]Entry, error) {
	if count <= 0 {
		count = DefaultBatchSize
	}

	batch := make([]Entry, 0, count)
	consumed := 0
	for ev, err := range src.Events(ctx) {
		if err != nil {
			return nil, err
		}
		consumed++

		seq, err := ev.Sequence()
		if err != nil {
			logger.Warn("dropping event with invalid id", "event_id", ev.ID, "event_type", ev.Type, "error", err)
			metrics.EventsSkippedTotal.WithLabelValues(metrics.SkipInvalidID).Inc()
		} else {
			batch = append(batch, Entry{Seq: seq, Event: ev})
		}

		if consumed >= count {
			break
		}
	}

	slices.Reverse(batch)
	return batch, nil
}
