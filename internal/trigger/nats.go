package trigger

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/Priya8975/activity-poller/internal/domain"
	"github.com/nats-io/nats.go"
)

// msgPublisher is the part of *nats.Conn the bus uses.
type msgPublisher interface {
	PublishMsg(msg *nats.Msg) error
}

// NATSBus publishes payloads on "<subject>.<event type>".
type NATSBus struct {
	conn    msgPublisher
	subject string
	logger  *slog.Logger
}

// DialNATS connects to the server at url with reconnect settings suited to
// a long-running poller.
func DialNATS(url, name string) (*nats.Conn, error) {
	conn, err := nats.Connect(url,
		nats.Name(name),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.Timeout(5*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}
	return conn, nil
}

func NewNATSBus(conn *nats.Conn, subject string, logger *slog.Logger) *NATSBus {
	return &NATSBus{conn: conn, subject: subject, logger: logger}
}

// Dispatch implements Bus.
func (b *NATSBus) Dispatch(ctx context.Context, triggerRef string, payload domain.DispatchPayload) {
	if ctx.Err() != nil {
		return
	}

	data, err := json.Marshal(payload)
	if err != nil {
		b.logger.Error("failed to marshal nats payload", "error", err, "event_id", payload.ID)
		return
	}

	msg := nats.NewMsg(b.subjectFor(payload.Type))
	msg.Data = data
	msg.Header.Set("Trigger-Ref", triggerRef)
	msg.Header.Set("Repository", payload.Repository)
	msg.Header.Set(nats.MsgIdHdr, DispatchID(ctx))

	if err := b.conn.PublishMsg(msg); err != nil {
		b.logger.Error("failed to publish trigger",
			"error", err,
			"subject", msg.Subject,
			"event_id", payload.ID,
		)
	}
}

// subjectFor maps an event type to a subject token; NATS reserves '.',
// '*', '>' and whitespace.
func (b *NATSBus) subjectFor(eventType string) string {
	token := strings.Map(func(r rune) rune {
		switch r {
		case '.', '*', '>', ' ', '\t', '\n', '\r':
			return '_'
		}
		return r
	}, eventType)
	if token == "" {
		token = "unknown"
	}
	return b.subject + "." + token
}
