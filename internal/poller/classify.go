package poller

import (
	"context"
	"log/slog"

	"github.com/Priya8975/activity-poller/internal/domain"
	"github.com/Priya8975/activity-poller/internal/metrics"
	"github.com/Priya8975/activity-poller/internal/trigger"
	"github.com/google/uuid"
)

// Whitelist is the set of event types that may be dispatched. A nil or
// empty whitelist admits nothing.
type Whitelist map[string]struct{}

func NewWhitelist(types []string) Whitelist {
	w := make(Whitelist, len(types))
	for _, t := range types {
		w[t] = struct{}{}
	}
	return w
}

func (w Whitelist) Allows(eventType string) bool {
	_, ok := w[eventType]
	return ok
}

// Classifier filters events by type and hands the rest to the bus.
type Classifier struct {
	bus        trigger.Bus
	triggerRef string
	logger     *slog.Logger
}

func NewClassifier(bus trigger.Bus, triggerRef string, logger *slog.Logger) *Classifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &Classifier{bus: bus, triggerRef: triggerRef, logger: logger}
}

// Handle dispatches event when its type is whitelisted and reports whether
// it did.
func (c *Classifier) Handle(ctx context.Context, source string, event domain.Event, whitelist Whitelist) bool {
	if !whitelist.Allows(event.Type) {
		c.logger.Debug("skipping event, type not whitelisted",
			"source", source, "event_id", event.ID, "event_type", event.Type)
		metrics.EventsSkippedTotal.WithLabelValues(metrics.SkipWhitelist).Inc()
		return false
	}

	payload := domain.NewDispatchPayload(source, event)
	c.bus.Dispatch(trigger.WithDispatchID(ctx, uuid.NewString()), c.triggerRef, payload)
	metrics.EventsDispatchedTotal.WithLabelValues(event.Type).Inc()
	return true
}
