package trigger

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/Priya8975/activity-poller/internal/domain"
	"github.com/redis/go-redis/v9"
)

const TriggerQueueKey = "trigger_queue"

// QueuedTrigger is one member of the Redis trigger queue.
type QueuedTrigger struct {
	DispatchID string                 `json:"dispatch_id"`
	TriggerRef string                 `json:"trigger_ref"`
	Payload    domain.DispatchPayload `json:"payload"`
}

// RedisQueue appends triggers to a sorted set scored by enqueue time, so
// consumers can pop them in dispatch order. Scores are strictly increasing
// within a process even when dispatches share a microsecond.
type RedisQueue struct {
	client *redis.Client
	logger *slog.Logger

	mu        sync.Mutex
	lastScore int64
}

func NewRedisQueue(client *redis.Client, logger *slog.Logger) *RedisQueue {
	return &RedisQueue{client: client, logger: logger}
}

// Dispatch implements Bus.
func (q *RedisQueue) Dispatch(ctx context.Context, triggerRef string, payload domain.DispatchPayload) {
	item := QueuedTrigger{
		DispatchID: DispatchID(ctx),
		TriggerRef: triggerRef,
		Payload:    payload,
	}

	data, err := json.Marshal(item)
	if err != nil {
		q.logger.Error("failed to marshal trigger", "error", err, "event_id", payload.ID)
		return
	}

	err = q.client.ZAdd(ctx, TriggerQueueKey, redis.Z{
		Score:  float64(q.nextScore()),
		Member: string(data),
	}).Err()
	if err != nil {
		q.logger.Error("failed to queue trigger",
			"error", err,
			"repository", payload.Repository,
			"event_id", payload.ID,
		)
		return
	}

	q.logger.Debug("trigger queued",
		"repository", payload.Repository,
		"event_id", payload.ID,
		"event_type", payload.Type,
	)
}

// QueueDepth returns the number of triggers waiting in the queue.
func (q *RedisQueue) QueueDepth(ctx context.Context) (int64, error) {
	return q.client.ZCard(ctx, TriggerQueueKey).Result()
}

func (q *RedisQueue) nextScore() int64 {
	q.mu.Lock()
	defer q.mu.Unlock()

	score := time.Now().UnixMicro()
	if score <= q.lastScore {
		score = q.lastScore + 1
	}
	q.lastScore = score
	return score
}
