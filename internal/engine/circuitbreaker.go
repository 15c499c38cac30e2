package engine

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// Breaker states
const (
	StateClosed   = "closed"
	StateOpen     = "open"
	StateHalfOpen = "half-open"
)

// CircuitBreaker suspends polling of a source whose fetches keep failing.
// State lives in Redis so it survives restarts:
//
// - Closed: sources are polled; consecutive fetch failures are counted.
// - Open: the source is skipped every cycle until the cooldown elapses.
// - Half-Open: one probing fetch is allowed. Success closes, failure re-opens.
type CircuitBreaker struct {
	redisClient      *redis.Client
	logger           *slog.Logger
	failureThreshold int
	cooldownPeriod   time.Duration
	now              func() time.Time
}

// BreakerState is the current state of one source's breaker.
type BreakerState struct {
	State        string `json:"state"`
	Failures     int    `json:"failures"`
	LastFailedAt string `json:"last_failed_at,omitempty"`
}

// NewCircuitBreaker creates a breaker. Non-positive arguments select the
// defaults of 5 failures and a 5 minute cooldown.
func NewCircuitBreaker(redisClient *redis.Client, logger *slog.Logger, threshold int, cooldown time.Duration) *CircuitBreaker {
	if threshold <= 0 {
		threshold = 5
	}
	if cooldown <= 0 {
		cooldown = 5 * time.Minute
	}
	return &CircuitBreaker{
		redisClient:      redisClient,
		logger:           logger,
		failureThreshold: threshold,
		cooldownPeriod:   cooldown,
		now:              time.Now,
	}
}

func breakerKey(sourceKey string) string {
	return fmt.Sprintf("breaker:%s", sourceKey)
}

// AllowRequest reports whether the source may be fetched this cycle.
// Redis errors fail open.
func (cb *CircuitBreaker) AllowRequest(ctx context.Context, sourceKey string) (string, bool) {
	key := breakerKey(sourceKey)

	data, err := cb.redisClient.HGetAll(ctx, key).Result()
	if err != nil || len(data) == 0 {
		return StateClosed, true
	}

	switch data["state"] {
	case StateOpen:
		lastFailedAt, _ := strconv.ParseInt(data["last_failed_at"], 10, 64)
		if cb.now().Unix()-lastFailedAt < int64(cb.cooldownPeriod.Seconds()) {
			return StateOpen, false
		}
		cb.redisClient.HSet(ctx, key, "state", StateHalfOpen)
		cb.logger.Info("source breaker half-open", "source_key", sourceKey)
		return StateHalfOpen, true

	case StateHalfOpen:
		return StateHalfOpen, true

	default:
		return StateClosed, true
	}
}

// RecordSuccess closes the breaker and clears the failure count.
func (cb *CircuitBreaker) RecordSuccess(ctx context.Context, sourceKey string) {
	key := breakerKey(sourceKey)

	state, _ := cb.redisClient.HGet(ctx, key, "state").Result()
	if state == "" {
		// Nothing recorded yet; keep Redis free of healthy sources.
		return
	}

	cb.redisClient.HSet(ctx, key,
		"state", StateClosed,
		"failures", 0,
	)

	if state != StateClosed {
		cb.logger.Info("source breaker closed (recovered)", "source_key", sourceKey)
	}
}

// RecordFailure counts a failed fetch and opens the breaker at the threshold.
func (cb *CircuitBreaker) RecordFailure(ctx context.Context, sourceKey string) {
	key := breakerKey(sourceKey)

	failures, err := cb.redisClient.HIncrBy(ctx, key, "failures", 1).Result()
	if err != nil {
		cb.logger.Error("failed to record source breaker failure", "error", err, "source_key", sourceKey)
		return
	}

	cb.redisClient.HSet(ctx, key, "last_failed_at", cb.now().Unix())

	state, _ := cb.redisClient.HGet(ctx, key, "state").Result()

	switch {
	case state == StateHalfOpen:
		cb.redisClient.HSet(ctx, key, "state", StateOpen)
		cb.logger.Warn("source breaker re-opened (probe failed)", "source_key", sourceKey)
	case failures >= int64(cb.failureThreshold):
		cb.redisClient.HSet(ctx, key, "state", StateOpen)
		if state != StateOpen {
			cb.logger.Warn("source breaker opened",
				"source_key", sourceKey,
				"failures", failures,
				"threshold", cb.failureThreshold,
			)
		}
	case state == "":
		cb.redisClient.HSet(ctx, key, "state", StateClosed)
	}
}

// GetState returns the breaker state for a source.
func (cb *CircuitBreaker) GetState(ctx context.Context, sourceKey string) BreakerState {
	data, err := cb.redisClient.HGetAll(ctx, breakerKey(sourceKey)).Result()
	if err != nil || len(data) == 0 {
		return BreakerState{State: StateClosed}
	}

	failures, _ := strconv.Atoi(data["failures"])
	state := data["state"]
	if state == "" {
		state = StateClosed
	}

	lastFailed, _ := strconv.ParseInt(data["last_failed_at"], 10, 64)
	if state == StateOpen && cb.now().Unix()-lastFailed >= int64(cb.cooldownPeriod.Seconds()) {
		state = StateHalfOpen
	}

	result := BreakerState{
		State:    state,
		Failures: failures,
	}
	if lastFailed > 0 {
		result.LastFailedAt = time.Unix(lastFailed, 0).UTC().Format(time.RFC3339)
	}

	return result
}

// Reset forgets a source's breaker, used when it leaves the configuration.
func (cb *CircuitBreaker) Reset(ctx context.Context, sourceKey string) {
	if err := cb.redisClient.Del(ctx, breakerKey(sourceKey)).Err(); err != nil {
		cb.logger.Error("failed to reset source breaker", "error", err, "source_key", sourceKey)
	}
}
