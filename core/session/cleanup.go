package session

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"time"

	"github.com/dmitrymomot/cartsession/core/logger"
)

// Cleaner performs the administrative sweep and count operations. It talks
// only to the store and cache, never to live Session objects, and is safe to
// run concurrently with request traffic: a sweep and a request upsert on the
// same id resolve to whichever write lands last.
type Cleaner struct {
	store Store
	cache Cache
	log   *slog.Logger
	now   func() time.Time
}

// CleanerOption configures a Cleaner.
type CleanerOption func(*Cleaner)

// WithCleanerCache attaches the cache to flush after bulk deletes.
func WithCleanerCache(c Cache) CleanerOption {
	return func(cl *Cleaner) {
		cl.cache = c
	}
}

// WithCleanerLogger sets the logger. Defaults to a discarding logger.
func WithCleanerLogger(log *slog.Logger) CleanerOption {
	return func(cl *Cleaner) {
		if log != nil {
			cl.log = log
		}
	}
}

// WithCleanerClock overrides the time source, for tests.
func WithCleanerClock(now func() time.Time) CleanerOption {
	return func(cl *Cleaner) {
		if now != nil {
			cl.now = now
		}
	}
}

// NewCleaner creates a cleaner over the given store.
func NewCleaner(store Store, opts ...CleanerOption) (*Cleaner, error) {
	if store == nil {
		return nil, errors.New("session: store is required")
	}
	cl := &Cleaner{
		store: store,
		log:   slog.New(slog.NewTextHandler(io.Discard, nil)),
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(cl)
	}
	return cl, nil
}

// Sweep deletes every record expired as of now and, when a cache is attached,
// flushes it entirely: the bulk delete doesn't know which ids it removed.
// Idempotent; safe to run repeatedly and concurrently.
func (cl *Cleaner) Sweep(ctx context.Context, now time.Time) (int64, error) {
	deleted, err := cl.store.DeleteExpired(ctx, now)
	if err != nil {
		return 0, err
	}

	cl.flushCache(ctx)

	if deleted > 0 {
		cl.log.InfoContext(ctx, "expired sessions swept",
			logger.Count(deleted))
	}
	return deleted, nil
}

// DestroyAll clears the whole session table and flushes the cache.
// Irreversible; administrative use only.
func (cl *Cleaner) DestroyAll(ctx context.Context) error {
	if err := cl.store.DeleteAll(ctx); err != nil {
		return err
	}
	cl.flushCache(ctx)
	cl.log.InfoContext(ctx, "all sessions destroyed")
	return nil
}

// Stats returns counts over all stored sessions.
func (cl *Cleaner) Stats(ctx context.Context) (Stats, error) {
	return cl.store.Count(ctx, false, cl.now())
}

// ExpiredStats returns counts over sessions already past expiration.
func (cl *Cleaner) ExpiredStats(ctx context.Context) (Stats, error) {
	return cl.store.Count(ctx, true, cl.now())
}

// Run sweeps on the given interval until ctx is canceled. Intended to be
// launched in its own goroutine by the host application.
func (cl *Cleaner) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := cl.Sweep(ctx, cl.now()); err != nil {
				cl.log.ErrorContext(ctx, "session sweep failed",
					logger.Error(err))
			}
		}
	}
}

// flushCache drops all cached entries, best effort.
func (cl *Cleaner) flushCache(ctx context.Context) {
	if cl.cache == nil {
		return
	}
	if err := cl.cache.FlushAll(ctx); err != nil {
		cl.log.WarnContext(ctx, "session cache flush failed",
			logger.Error(err))
	}
}
