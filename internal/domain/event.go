package domain

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"
)

// Event is one record from a source's activity feed.
type Event struct {
	ID        string          `json:"id"`
	Type      string          `json:"type"`
	CreatedAt time.Time       `json:"created_at"`
	Actor     *Actor          `json:"actor,omitempty"`
	Payload   json.RawMessage `json:"payload,omitempty"`
}

// Sequence returns the event id as an integer. Ids arrive as strings but
// increase monotonically in replay order.
func (e Event) Sequence() (int64, error) {
	n, err := strconv.ParseInt(e.ID, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("event id %q is not an integer: %w", e.ID, err)
	}
	return n, nil
}

// Actor is the identity that caused an event. Every field may be absent.
type Actor struct {
	ID       *int64  `json:"id,omitempty"`
	Login    *string `json:"login,omitempty"`
	Name     *string `json:"name,omitempty"`
	Email    *string `json:"email,omitempty"`
	Location *string `json:"location,omitempty"`
	Bio      *string `json:"bio,omitempty"`
	URL      *string `json:"html_url,omitempty"`
}
