package trigger

import (
	"context"
	"log/slog"
	"os"
	"testing"

	"github.com/Priya8975/activity-poller/internal/domain"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

func testPayload() domain.DispatchPayload {
	login := "octo"
	return domain.NewDispatchPayload("widgets", domain.Event{
		ID:      "101",
		Type:    "PushEvent",
		Actor:   &domain.Actor{Login: &login},
		Payload: []byte(`{"ref":"refs/heads/main"}`),
	})
}

func TestMulti_DispatchesInOrder(t *testing.T) {
	var calls []string
	bus := Multi{
		BusFunc(func(ctx context.Context, ref string, p domain.DispatchPayload) { calls = append(calls, "a:"+p.ID) }),
		BusFunc(func(ctx context.Context, ref string, p domain.DispatchPayload) { calls = append(calls, "b:"+ref) }),
	}

	bus.Dispatch(context.Background(), "github.activity_sensor", testPayload())

	if len(calls) != 2 || calls[0] != "a:101" || calls[1] != "b:github.activity_sensor" {
		t.Errorf("unexpected calls %v", calls)
	}
}

func TestDispatchID(t *testing.T) {
	ctx := WithDispatchID(context.Background(), "fixed-id")
	if got := DispatchID(ctx); got != "fixed-id" {
		t.Errorf("DispatchID = %q, want fixed-id", got)
	}

	a := DispatchID(context.Background())
	b := DispatchID(context.Background())
	if a == "" || a == b {
		t.Errorf("expected fresh unique ids, got %q and %q", a, b)
	}
}

type fakeRecorder struct {
	records []domain.DispatchRecord
	err     error
}

func (f *fakeRecorder) RecordDispatch(_ context.Context, rec domain.DispatchRecord) error {
	f.records = append(f.records, rec)
	return f.err
}

func TestRecorder_Dispatch(t *testing.T) {
	store := &fakeRecorder{}
	r := NewRecorder(store, testLogger())

	ctx := WithDispatchID(context.Background(), "d-1")
	r.Dispatch(ctx, "github.activity_sensor", testPayload())

	if len(store.records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(store.records))
	}
	rec := store.records[0]
	if rec.ID != "d-1" || rec.EventID != "101" || rec.EventType != "PushEvent" || rec.Repository != "widgets" {
		t.Errorf("unexpected record %+v", rec)
	}
	if rec.TriggerRef != "github.activity_sensor" {
		t.Errorf("TriggerRef = %q", rec.TriggerRef)
	}
}
