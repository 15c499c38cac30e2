package trigger

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/Priya8975/activity-poller/internal/domain"
)

// WebhookBus POSTs each payload to a single endpoint, signed with
// HMAC-SHA256. There is no retry; a failed POST is logged and dropped.
type WebhookBus struct {
	httpClient  *http.Client
	endpointURL string
	secretKey   string
	logger      *slog.Logger
}

// NewWebhookBus creates a webhook bus with a 10 second timeout.
func NewWebhookBus(endpointURL, secretKey string, logger *slog.Logger) *WebhookBus {
	return &WebhookBus{
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		endpointURL: endpointURL,
		secretKey:   secretKey,
		logger:      logger,
	}
}

// Dispatch implements Bus.
func (b *WebhookBus) Dispatch(ctx context.Context, triggerRef string, payload domain.DispatchPayload) {
	start := time.Now()

	body, err := json.Marshal(payload)
	if err != nil {
		b.logger.Error("failed to marshal webhook payload", "error", err, "event_id", payload.ID)
		return
	}

	status, err := b.post(ctx, triggerRef, DispatchID(ctx), payload.Type, body)
	elapsed := time.Since(start).Milliseconds()
	if err != nil {
		b.logger.Warn("webhook trigger failed",
			"error", err,
			"repository", payload.Repository,
			"event_id", payload.ID,
			"status_code", status,
			"response_time_ms", elapsed,
		)
		return
	}

	b.logger.Debug("webhook trigger delivered",
		"repository", payload.Repository,
		"event_id", payload.ID,
		"status_code", status,
		"response_time_ms", elapsed,
	)
}

func (b *WebhookBus) post(ctx context.Context, triggerRef, dispatchID, eventType string, body []byte) (int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.endpointURL, bytes.NewReader(body))
	if err != nil {
		return 0, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Trigger-Ref", triggerRef)
	req.Header.Set("X-Trigger-Signature", computeHMAC(body, b.secretKey))
	req.Header.Set("X-Event-Type", eventType)
	req.Header.Set("X-Dispatch-ID", dispatchID)

	resp, err := b.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	// Drain a bounded amount so the connection can be reused.
	io.Copy(io.Discard, io.LimitReader(resp.Body, 1024))

	if resp.StatusCode >= 400 {
		return resp.StatusCode, fmt.Errorf("endpoint returned %d", resp.StatusCode)
	}
	return resp.StatusCode, nil
}

// computeHMAC generates an HMAC-SHA256 signature for the payload.
func computeHMAC(payload []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}
