package session

import (
	"context"
	"time"
)

// Store defines the persistence contract for session records, keyed by
// customer id. Implementations must be safe for concurrent use: many request
// workers plus the cleanup sweeper share one store.
//
// Per-id writes are last-writer-wins with no version check. Two concurrent
// flushes for the same customer id resolve to whichever lands last at the
// storage layer.
type Store interface {
	// Get returns the data blob for the id, or (nil, nil) when no record
	// exists. A stored blob that fails to deserialize is returned as an empty
	// map, not an error: sessions degrade to fresh rather than failing the
	// request.
	Get(ctx context.Context, customerID string) (map[string]any, error)

	// Upsert inserts or replaces the single record for the id. The data blob
	// is overwritten, never merged.
	Upsert(ctx context.Context, customerID string, expiration time.Time, data map[string]any) error

	// Delete removes the record for the id. Deleting a non-existent id
	// succeeds silently.
	Delete(ctx context.Context, customerID string) error

	// DeleteExpired removes every record whose expiration is before now and
	// returns the number of records deleted.
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)

	// DeleteAll clears the table entirely. Administrative use only.
	DeleteAll(ctx context.Context) error

	// UpdateExpiration updates only the expiration of an existing record,
	// leaving the data blob untouched. Used for transparent soft renewal.
	UpdateExpiration(ctx context.Context, customerID string, expiration time.Time) error

	// Count returns session counts classified by identity kind. When
	// onlyExpired is true, only records with expiration before now are
	// counted.
	Count(ctx context.Context, onlyExpired bool, now time.Time) (Stats, error)
}

// Stats holds session counts broken down by identity kind. A customer id
// consisting solely of digits belongs to an authenticated user; anything else
// is an opaque guest token.
type Stats struct {
	Total int64
	User  int64
	Guest int64
}
