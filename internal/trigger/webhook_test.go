package trigger

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/Priya8975/activity-poller/internal/domain"
)

func TestComputeHMAC(t *testing.T) {
	tests := []struct {
		name    string
		payload []byte
		secret  string
	}{
		{
			name:    "basic payload",
			payload: []byte(`{"repository":"widgets","id":"101"}`),
			secret:  "my-secret-key",
		},
		{
			name:    "empty payload",
			payload: []byte(`{}`),
			secret:  "secret",
		},
		{
			name:    "empty secret",
			payload: []byte(`{"test":true}`),
			secret:  "",
		},
		{
			name:    "unicode payload",
			payload: []byte(`{"name":"café","price":"€10"}`),
			secret:  "unicode-key-日本語",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sig := computeHMAC(tt.payload, tt.secret)

			decoded, err := hex.DecodeString(sig)
			if err != nil {
				t.Fatalf("signature is not valid hex: %v", err)
			}
			if len(decoded) != 32 {
				t.Fatalf("expected 32 bytes, got %d", len(decoded))
			}

			mac := hmac.New(sha256.New, []byte(tt.secret))
			mac.Write(tt.payload)
			expected := hex.EncodeToString(mac.Sum(nil))

			if sig != expected {
				t.Errorf("signature mismatch:\n  got:  %s\n  want: %s", sig, expected)
			}
		})
	}
}

func TestComputeHMAC_DifferentSecrets(t *testing.T) {
	payload := []byte(`{"event":"test"}`)

	if computeHMAC(payload, "secret-1") == computeHMAC(payload, "secret-2") {
		t.Error("different secrets should produce different signatures")
	}
}

func TestWebhookBus_Delivers(t *testing.T) {
	var received atomic.Int32
	var headers http.Header
	var body []byte

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		received.Add(1)
		headers = r.Header.Clone()
		body, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusAccepted)
	}))
	defer server.Close()

	bus := NewWebhookBus(server.URL, "hook-secret", testLogger())
	ctx := WithDispatchID(context.Background(), "d-9")
	bus.Dispatch(ctx, "github.activity_sensor", testPayload())

	if received.Load() != 1 {
		t.Fatalf("expected 1 request, got %d", received.Load())
	}
	if headers.Get("X-Trigger-Ref") != "github.activity_sensor" {
		t.Errorf("X-Trigger-Ref = %q", headers.Get("X-Trigger-Ref"))
	}
	if headers.Get("X-Event-Type") != "PushEvent" {
		t.Errorf("X-Event-Type = %q", headers.Get("X-Event-Type"))
	}
	if headers.Get("X-Dispatch-ID") != "d-9" {
		t.Errorf("X-Dispatch-ID = %q", headers.Get("X-Dispatch-ID"))
	}
	if headers.Get("Content-Type") != "application/json" {
		t.Errorf("Content-Type = %q", headers.Get("Content-Type"))
	}
	if headers.Get("X-Trigger-Signature") != computeHMAC(body, "hook-secret") {
		t.Error("signature does not match the delivered body")
	}

	var p domain.DispatchPayload
	if err := json.Unmarshal(body, &p); err != nil {
		t.Fatalf("body is not a DispatchPayload: %v", err)
	}
	if p.ID != "101" || p.Repository != "widgets" {
		t.Errorf("unexpected body %+v", p)
	}
}

func TestWebhookBus_FailureIsNotRetried(t *testing.T) {
	var received atomic.Int32

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		received.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	bus := NewWebhookBus(server.URL, "s", testLogger())
	bus.Dispatch(context.Background(), "ref", testPayload())

	if received.Load() != 1 {
		t.Errorf("expected exactly one attempt, got %d", received.Load())
	}
}

func TestWebhookBus_UnreachableEndpoint(t *testing.T) {
	bus := NewWebhookBus("http://127.0.0.1:0/hook", "s", testLogger())
	bus.Dispatch(context.Background(), "ref", testPayload())
}
