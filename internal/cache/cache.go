// Package cache persists enrichment lookups per registry identifier so a
// figure is fetched at most once per TTL window.
package cache

import (
	"context"
	"strings"
	"time"

	"github.com/rotisserie/eris"
)

// Kind names the figure a cache entry holds.
type Kind string

const (
	KindEmployees Kind = "employees"
	KindRevenue   Kind = "revenue"
)

// DefaultTTL is how long a successful lookup stays fresh.
const DefaultTTL = 24 * time.Hour

// Key identifies one cached figure.
type Key struct {
	Kind       Kind
	RegistryID string
}

// Entry is one cached lookup. A nil Value records that the registry
// answered without reporting the figure.
type Entry struct {
	Key
	Value     *int64
	FetchedAt time.Time
	ExpiresAt time.Time
}

// Expired reports whether the entry is stale at now.
func (e Entry) Expired(now time.Time) bool {
	return !now.Before(e.ExpiresAt)
}

// Stats summarises a store's contents.
type Stats struct {
	Total   int64 `json:"total" yaml:"total"`
	Live    int64 `json:"live" yaml:"live"`
	Expired int64 `json:"expired" yaml:"expired"`
}

// Store is a TTL cache of enrichment figures.
type Store interface {
	// Get returns the live entry for key. ok is false on a miss or when the
	// entry has expired.
	Get(ctx context.Context, key Key) (entry Entry, ok bool, err error)
	// Set inserts or replaces the entry.
	Set(ctx context.Context, entry Entry) error
	// Prune deletes expired entries and returns how many were removed.
	Prune(ctx context.Context) (int64, error)
	Stats(ctx context.Context) (Stats, error)
	Close() error
}

// Config selects and configures a store.
type Config struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	Path        string `yaml:"path" mapstructure:"path"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
}

// Open creates the store named by cfg.Driver ("memory", "sqlite" or
// "postgres") and runs its migration. Persistent stores are fronted by an
// in-process Memory store.
func Open(ctx context.Context, cfg Config) (Store, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Driver)) {
	case "", "memory":
		return NewMemory(), nil
	case "sqlite":
		path := cfg.Path
		if path == "" {
			path = "leadmatch-cache.db"
		}
		s, err := NewSQLite(path)
		if err != nil {
			return nil, err
		}
		if err := s.Migrate(ctx); err != nil {
			_ = s.Close()
			return nil, err
		}
		return NewTiered(NewMemory(), s), nil
	case "postgres":
		if cfg.DatabaseURL == "" {
			return nil, eris.New("cache: postgres driver requires database_url")
		}
		s, err := NewPostgres(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		if err := s.Migrate(ctx); err != nil {
			_ = s.Close()
			return nil, err
		}
		return NewTiered(NewMemory(), s), nil
	default:
		return nil, eris.Errorf("cache: unknown driver %q", cfg.Driver)
	}
}
