package domain

import (
	"context"
	"encoding/json"
	"iter"
)

// HostedAPIURL is the endpoint used by tenants of type "online".
const HostedAPIURL = "https://api.github.com"

// TenantTypeOnline marks a tenant hosted on the public service.
const TenantTypeOnline = "online"

// Tenant is one organization entry of the tenant configuration value.
// A nil Repositories means the key was absent; a nil EventTypeWhitelist
// means the key was absent and the global whitelist applies. A whitelist
// given as null decodes to an empty override.
type Tenant struct {
	Token              string   `json:"token"`
	User               string   `json:"user"`
	Type               string   `json:"type"`
	URL                string   `json:"url,omitempty"`
	Repositories       []string `json:"repositories"`
	EventTypeWhitelist []string `json:"event_type_whitelist"`
}

func (t *Tenant) UnmarshalJSON(data []byte) error {
	type plain Tenant
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}

	var keys map[string]json.RawMessage
	if err := json.Unmarshal(data, &keys); err != nil {
		return err
	}
	if _, ok := keys["event_type_whitelist"]; ok && p.EventTypeWhitelist == nil {
		p.EventTypeWhitelist = []string{}
	}

	*t = Tenant(p)
	return nil
}

// Endpoint resolves the API base URL for the tenant. ok is false for a
// self-hosted tenant without a configured URL.
func (t Tenant) Endpoint() (url string, ok bool) {
	if t.Type == TenantTypeOnline {
		return HostedAPIURL, true
	}
	if t.URL == "" {
		return "", false
	}
	return t.URL, true
}

// TenantConfig maps tenant name to its entry.
type TenantConfig map[string]Tenant

// Connector authenticates a tenant against an endpoint. It is called at
// most once per tenant per poll cycle.
type Connector interface {
	Connect(ctx context.Context, tenantName string, tenant Tenant, baseURL string) (Principal, error)
}

// Principal is an authenticated identity able to resolve sources.
type Principal interface {
	Source(ctx context.Context, name string) (Source, error)
}

// Source is a handle on one remote repository.
type Source interface {
	// Events yields events newest-first. Consumers may stop early; no
	// further pages are requested once they do.
	Events(ctx context.Context) iter.Seq2[Event, error]
}

// ActorDirectory is implemented by sources that can look up the full
// profile of an event actor.
type ActorDirectory interface {
	Actor(ctx context.Context, login string) (*Actor, error)
}
