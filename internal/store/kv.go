package store

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/Priya8975/activity-poller/internal/domain"
)

// KeyValueStore is the persisted key/value service backing cursors and the
// tenant configuration. GetValue reports ok=false for an absent key.
type KeyValueStore interface {
	GetValue(ctx context.Context, key string) (value string, ok bool, err error)
	SetValue(ctx context.Context, key, value string) error
}

// TenantLoader reads the tenant configuration stored as one JSON value
// under a well-known key.
type TenantLoader struct {
	kv  KeyValueStore
	key string
}

func NewTenantLoader(kv KeyValueStore, key string) *TenantLoader {
	return &TenantLoader{kv: kv, key: key}
}

// Load returns the current tenant configuration. An absent or blank value
// is an empty configuration, not an error.
func (l *TenantLoader) Load(ctx context.Context) (domain.TenantConfig, error) {
	raw, ok, err := l.kv.GetValue(ctx, l.key)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", l.key, err)
	}
	if !ok || raw == "" {
		return domain.TenantConfig{}, nil
	}

	var tenants domain.TenantConfig
	if err := json.Unmarshal([]byte(raw), &tenants); err != nil {
		return nil, fmt.Errorf("decoding %s: %w", l.key, err)
	}
	if tenants == nil {
		tenants = domain.TenantConfig{}
	}
	return tenants, nil
}

// Save encodes and stores the tenant configuration.
func (l *TenantLoader) Save(ctx context.Context, tenants domain.TenantConfig) error {
	data, err := json.Marshal(tenants)
	if err != nil {
		return fmt.Errorf("encoding %s: %w", l.key, err)
	}
	return l.kv.SetValue(ctx, l.key, string(data))
}
