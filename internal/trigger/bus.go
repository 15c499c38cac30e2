// Package trigger delivers dispatch payloads to downstream consumers.
//
// Every Bus is fire-and-forget: Dispatch returns nothing and failures are
// logged by the implementation. Delivery guarantees are the consumer's job.
package trigger

import (
	"context"

	"github.com/Priya8975/activity-poller/internal/domain"
	"github.com/google/uuid"
)

// Bus accepts dispatched payloads.
type Bus interface {
	Dispatch(ctx context.Context, triggerRef string, payload domain.DispatchPayload)
}

// BusFunc adapts a function to Bus.
type BusFunc func(ctx context.Context, triggerRef string, payload domain.DispatchPayload)

func (f BusFunc) Dispatch(ctx context.Context, triggerRef string, payload domain.DispatchPayload) {
	f(ctx, triggerRef, payload)
}

// Multi dispatches to every bus in order.
type Multi []Bus

func (m Multi) Dispatch(ctx context.Context, triggerRef string, payload domain.DispatchPayload) {
	for _, b := range m {
		b.Dispatch(ctx, triggerRef, payload)
	}
}

type dispatchIDKey struct{}

// WithDispatchID attaches the id shared by every bus for one dispatch.
func WithDispatchID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, dispatchIDKey{}, id)
}

// DispatchID returns the id attached to ctx, or a fresh one.
func DispatchID(ctx context.Context) string {
	if id, ok := ctx.Value(dispatchIDKey{}).(string); ok && id != "" {
		return id
	}
	return uuid.NewString()
}
