package activity

import (
	"encoding/json"
	"time"

	"github.com/Priya8975/activity-poller/internal/domain"
)

type apiUser struct {
	ID    int64  `json:"id"`
	Login string `json:"login"`
}

type apiRepository struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	FullName string `json:"full_name"`
}

type apiEvent struct {
	ID        string          `json:"id"`
	Type      string          `json:"type"`
	Actor     *apiActor       `json:"actor"`
	Payload   json.RawMessage `json:"payload"`
	CreatedAt *time.Time      `json:"created_at"`
}

// apiActor is the abbreviated actor embedded in events.
type apiActor struct {
	ID    *int64  `json:"id"`
	Login *string `json:"login"`
}

// apiProfile is the full user returned by /users/{login}.
type apiProfile struct {
	ID       *int64  `json:"id"`
	Login    *string `json:"login"`
	Name     *string `json:"name"`
	Email    *string `json:"email"`
	Location *string `json:"location"`
	Bio      *string `json:"bio"`
	HTMLURL  *string `json:"html_url"`
}

func (p apiProfile) toDomain() *domain.Actor {
	return &domain.Actor{
		ID:       p.ID,
		Login:    p.Login,
		Name:     p.Name,
		Email:    p.Email,
		Location: p.Location,
		Bio:      p.Bio,
		URL:      p.HTMLURL,
	}
}

func (e apiEvent) toDomain() domain.Event {
	ev := domain.Event{
		ID:      e.ID,
		Type:    e.Type,
		Payload: e.Payload,
	}
	if e.CreatedAt != nil {
		ev.CreatedAt = *e.CreatedAt
	}
	if a := e.Actor; a != nil {
		ev.Actor = &domain.Actor{ID: a.ID, Login: a.Login}
	}
	return ev
}
