package poller

import (
	"context"
	"log/slog"

	"github.com/Priya8975/activity-poller/internal/domain"
)

// actorProfiles completes event actors from the source's user directory.
// Lookups are cached by endpoint and login for one cycle. A failed lookup
// is cached too and leaves the actor as fetched.
type actorProfiles struct {
	logger  *slog.Logger
	entries map[string]*domain.Actor
}

func newActorProfiles(logger *slog.Logger) *actorProfiles {
	return &actorProfiles{logger: logger, entries: make(map[string]*domain.Actor)}
}

func (a *actorProfiles) complete(ctx context.Context, endpoint string, src domain.Source, actor *domain.Actor) *domain.Actor {
	dir, ok := src.(domain.ActorDirectory)
	if !ok || actor == nil || actor.Login == nil {
		return actor
	}

	key := endpoint + "|" + *actor.Login
	profile, seen := a.entries[key]
	if !seen {
		var err error
		profile, err = dir.Actor(ctx, *actor.Login)
		if err != nil {
			a.logger.Warn("failed to look up actor profile", "login", *actor.Login, "endpoint", endpoint, "error", err)
			profile = nil
		}
		a.entries[key] = profile
	}
	if profile == nil {
		return actor
	}
	return mergeActor(actor, profile)
}

// mergeActor fills the fields missing from fetched with those of profile.
func mergeActor(fetched, profile *domain.Actor) *domain.Actor {
	out := *fetched
	if out.ID == nil {
		out.ID = profile.ID
	}
	fill := func(dst **string, src *string) {
		if *dst == nil {
			*dst = src
		}
	}
	fill(&out.Login, profile.Login)
	fill(&out.Name, profile.Name)
	fill(&out.Email, profile.Email)
	fill(&out.Location, profile.Location)
	fill(&out.Bio, profile.Bio)
	fill(&out.URL, profile.URL)
	return &out
}
