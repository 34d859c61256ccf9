package session

import (
	"context"
	"fmt"
)

// Cache is a best-effort read-through layer in front of the Store. It is a
// disposable mirror: losing it, or it being unreachable, must never fail a
// request. Implementations report unavailability as a miss.
//
// The manager's read path consults the cache before the store but never
// populates it on a miss. Population is left to the host (via Put) so a read
// racing a concurrent write cannot repopulate a just-invalidated entry with
// stale data.
type Cache interface {
	// Get returns the cached data blob for the id, or ok=false on a miss.
	Get(ctx context.Context, customerID string) (map[string]any, bool)

	// Put stores a data blob for the id. Never called by the manager's read
	// path; hosts may warm the cache explicitly.
	Put(ctx context.Context, customerID string, data map[string]any) error

	// Invalidate drops the entry for the id. Called before every store write
	// for that id.
	Invalidate(ctx context.Context, customerID string) error

	// FlushAll drops every cached session entry. Called after bulk deletes,
	// which don't know ahead of time which ids they removed.
	FlushAll(ctx context.Context) error
}

// CacheMode is the three-state cache override. The explicit enum avoids the
// ambiguous-null trap of a *bool toggle.
type CacheMode int

const (
	// CacheAuto enables caching when a cache backend is configured.
	CacheAuto CacheMode = iota
	// CacheAlwaysOn requires a cache backend and always consults it.
	CacheAlwaysOn
	// CacheAlwaysOff bypasses the cache even when a backend is configured.
	CacheAlwaysOff
)

// String implements fmt.Stringer.
func (m CacheMode) String() string {
	switch m {
	case CacheAuto:
		return "auto"
	case CacheAlwaysOn:
		return "on"
	case CacheAlwaysOff:
		return "off"
	default:
		return fmt.Sprintf("CacheMode(%d)", int(m))
	}
}

// UnmarshalText parses "auto", "on", or "off", enabling env-based config.
func (m *CacheMode) UnmarshalText(text []byte) error {
	switch string(text) {
	case "auto", "":
		*m = CacheAuto
	case "on", "always_on":
		*m = CacheAlwaysOn
	case "off", "always_off":
		*m = CacheAlwaysOff
	default:
		return fmt.Errorf("unknown cache mode %q", text)
	}
	return nil
}
