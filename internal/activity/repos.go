package activity

import (
	"context"
	"fmt"
	"iter"
	"net/url"
	"strconv"

	"github.com/Priya8975/activity-poller/internal/domain"
)

// User is an authenticated principal.
type User struct {
	ID     int64
	Login  string
	client *Client
}

// User fetches the profile for login. This is the authentication round trip.
func (c *Client) User(ctx context.Context, login string) (*User, error) {
	var u apiUser
	if _, err := c.getJSON(ctx, "/users/"+url.PathEscape(login), &u); err != nil {
		return nil, fmt.Errorf("getting user %s: %w", login, err)
	}
	return &User{ID: u.ID, Login: u.Login, client: c}, nil
}

// Repository is a handle on one repository owned by a User.
type Repository struct {
	ID       int64
	Owner    string
	Name     string
	FullName string
	client   *Client
}

// Repo resolves a repository of the user.
func (u *User) Repo(ctx context.Context, name string) (*Repository, error) {
	var r apiRepository
	path := "/repos/" + url.PathEscape(u.Login) + "/" + url.PathEscape(name)
	if _, err := u.client.getJSON(ctx, path, &r); err != nil {
		return nil, fmt.Errorf("getting repository %s/%s: %w", u.Login, name, err)
	}
	return &Repository{
		ID:       r.ID,
		Owner:    u.Login,
		Name:     r.Name,
		FullName: r.FullName,
		client:   u.client,
	}, nil
}

// Source implements domain.Principal.
func (u *User) Source(ctx context.Context, name string) (domain.Source, error) {
	repo, err := u.Repo(ctx, name)
	if err != nil {
		return nil, err
	}
	return repo, nil
}

// Actor implements domain.ActorDirectory.
func (r *Repository) Actor(ctx context.Context, login string) (*domain.Actor, error) {
	var p apiProfile
	if _, err := r.client.getJSON(ctx, "/users/"+url.PathEscape(login), &p); err != nil {
		return nil, fmt.Errorf("getting profile for %s: %w", login, err)
	}
	return p.toDomain(), nil
}

// Events implements domain.Source. Pages are requested lazily; an error
// ends the sequence.
func (r *Repository) Events(ctx context.Context) iter.Seq2[domain.Event, error] {
	return func(yield func(domain.Event, error) bool) {
		query := url.Values{}
		query.Set("per_page", strconv.Itoa(r.client.pageSize))
		next := "/repos/" + url.PathEscape(r.Owner) + "/" + url.PathEscape(r.Name) + "/events?" + query.Encode()

		for page := 1; next != ""; page++ {
			var events []apiEvent
			header, err := r.client.getJSON(ctx, next, &events)
			if err != nil {
				yield(domain.Event{}, fmt.Errorf("listing events for %s/%s page %d: %w", r.Owner, r.Name, page, err))
				return
			}

			for _, e := range events {
				if !yield(e.toDomain(), nil) {
					return
				}
			}

			if len(events) == 0 {
				return
			}
			next = nextLink(header)
		}
	}
}
