package poller

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"strconv"
	"strings"
	"sync"

	"github.com/Priya8975/activity-poller/internal/store"
)

// ErrInvalidCursor is returned when a persisted cursor is not an integer.
var ErrInvalidCursor = errors.New("invalid persisted cursor")

// CursorStore tracks the last processed event id per source. The
// in-process map is authoritative for the process lifetime; the key/value
// store is written through and read lazily so a restart resumes where the
// previous process stopped.
type CursorStore struct {
	kv     store.KeyValueStore
	logger *slog.Logger

	mu      sync.Mutex
	cursors map[string]int64
}

func NewCursorStore(kv store.KeyValueStore, logger *slog.Logger) *CursorStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &CursorStore{
		kv:      kv,
		logger:  logger,
		cursors: make(map[string]int64),
	}
}

// CursorKey is the persisted key for a source's cursor.
func CursorKey(source string) string {
	return "last_id." + source
}

// Get returns the cursor for source, loading it from the key/value store
// on first use.
func (c *CursorStore) Get(ctx context.Context, source string) (int64, bool, error) {
	c.mu.Lock()
	v, ok := c.cursors[source]
	c.mu.Unlock()
	if ok {
		return v, true, nil
	}

	key := CursorKey(source)
	raw, found, err := c.kv.GetValue(ctx, key)
	if err != nil {
		return 0, false, fmt.Errorf("loading cursor %s: %w", key, err)
	}
	raw = strings.TrimSpace(raw)
	if !found || raw == "" {
		return 0, false, nil
	}

	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, false, fmt.Errorf("%w: %s=%q", ErrInvalidCursor, key, raw)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if cur, ok := c.cursors[source]; ok && cur >= n {
		return cur, true, nil
	}
	c.cursors[source] = n
	c.logger.Debug("cursor loaded", "source", source, "cursor", n)
	return n, true, nil
}

// Advance moves the cursor for source to id. It never moves backwards:
// advanced is false when id is not above the current value. The in-process
// value is updated before the write-through, so a failed write cannot cause
// a second dispatch within this process.
func (c *CursorStore) Advance(ctx context.Context, source string, id int64) (advanced bool, err error) {
	c.mu.Lock()
	if cur, ok := c.cursors[source]; ok && id <= cur {
		c.mu.Unlock()
		return false, nil
	}
	c.cursors[source] = id
	c.mu.Unlock()

	if err := c.kv.SetValue(ctx, CursorKey(source), strconv.FormatInt(id, 10)); err != nil {
		return true, fmt.Errorf("persisting cursor for %s: %w", source, err)
	}
	return true, nil
}

// Snapshot returns a copy of the in-process cursors.
func (c *CursorStore) Snapshot() map[string]int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return maps.Clone(c.cursors)
}
