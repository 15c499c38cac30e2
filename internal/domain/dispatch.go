package domain

import (
	"encoding/json"
	"time"
)

// TimestampLayout is the wire format for created_at. No zone offset is emitted.
const TimestampLayout = "2006-01-02 15:04:05"

// DispatchPayload is the canonical envelope handed to the trigger bus.
type DispatchPayload struct {
	Repository string          `json:"repository"`
	ID         string          `json:"id"`
	CreatedAt  *string         `json:"created_at"`
	Type       string          `json:"type"`
	Actor      ActorRecord     `json:"actor"`
	Payload    json.RawMessage `json:"payload"`
}

// ActorRecord is the normalized actor. Absent attributes serialize as null.
type ActorRecord struct {
	ID       *int64  `json:"id"`
	Login    *string `json:"login"`
	Name     *string `json:"name"`
	Email    *string `json:"email"`
	Location *string `json:"location"`
	Bio      *string `json:"bio"`
	URL      *string `json:"url"`
}

// NewDispatchPayload normalizes an event fetched from repository into a payload.
func NewDispatchPayload(repository string, event Event) DispatchPayload {
	p := DispatchPayload{
		Repository: repository,
		ID:         event.ID,
		Type:       event.Type,
		Payload:    event.Payload,
	}

	if !event.CreatedAt.IsZero() {
		ts := event.CreatedAt.UTC().Format(TimestampLayout)
		p.CreatedAt = &ts
	}

	if a := event.Actor; a != nil {
		p.Actor = ActorRecord{
			ID:       a.ID,
			Login:    a.Login,
			Name:     a.Name,
			Email:    a.Email,
			Location: a.Location,
			Bio:      a.Bio,
			URL:      a.URL,
		}
	}

	if len(p.Payload) == 0 || string(p.Payload) == "null" {
		p.Payload = json.RawMessage(`{}`)
	}

	return p
}

// DispatchRecord is a dispatched payload as stored in the dispatch log.
type DispatchRecord struct {
	ID           string          `json:"id"`
	TriggerRef   string          `json:"trigger_ref"`
	Repository   string          `json:"repository"`
	EventID      string          `json:"event_id"`
	EventType    string          `json:"event_type"`
	Payload      json.RawMessage `json:"payload"`
	DispatchedAt time.Time       `json:"dispatched_at"`
}
