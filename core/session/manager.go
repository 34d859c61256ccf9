package session

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/dmitrymomot/cartsession/core/cookie"
	"github.com/dmitrymomot/cartsession/core/logger"
)

// Manager drives the session lifecycle for each request: hydration at request
// start, cookie emission before the response body, flush at request end, and
// explicit destruction on logout or guest checkout.
//
// The store is injected at construction; the manager holds no global state
// and is safe for concurrent use across request workers.
type Manager struct {
	store   Store
	cache   Cache
	cookies *cookie.Manager
	cfg     Config
	log     *slog.Logger
	now     func() time.Time
}

// NewManager creates a session manager backed by store, with cookies handling
// the identity token.
func NewManager(store Store, cookies *cookie.Manager, opts ...Option) (*Manager, error) {
	if store == nil {
		return nil, errors.New("session: store is required")
	}
	if cookies == nil {
		return nil, errors.New("session: cookie manager is required")
	}

	m := &Manager{
		store:   store,
		cookies: cookies,
		cfg:     defaultConfig(),
		log:     slog.New(slog.NewTextHandler(io.Discard, nil)),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}

	if m.cfg.SoftTTL >= m.cfg.TTL {
		return nil, errors.New("session: soft TTL must be shorter than TTL")
	}
	if m.cfg.CacheMode == CacheAlwaysOn && m.cache == nil {
		return nil, ErrCacheRequired
	}

	return m, nil
}

// Start hydrates the session for a request. A valid cookie token wins over
// authentication state, preserving a guest cart across the session window.
// An absent, malformed, or tampered cookie yields a fresh empty session.
//
// Only storage I/O failures return an error; identity problems never do.
func (m *Manager) Start(ctx context.Context, r *http.Request, auth Auth) (*Session, error) {
	now := m.now()

	tok, err := m.cookies.Read(r)
	if err == nil && now.Before(tok.ExpiresAt) {
		sess := &Session{
			customerID:    tok.CustomerID,
			expiresAt:     tok.ExpiresAt,
			softExpiresAt: tok.SoftExpiresAt,
			hasCookie:     true,
			authenticated: auth.Authenticated,
		}

		data, err := m.load(ctx, tok.CustomerID)
		if err != nil {
			return nil, err
		}
		sess.data = data

		// Renew a session that is close to expiring. A lightweight partial
		// update: the data blob is not rewritten and the session stays clean.
		if len(sess.data) > 0 && now.After(sess.softExpiresAt) {
			sess.expiresAt = now.Add(m.cfg.TTL)
			sess.softExpiresAt = now.Add(m.cfg.SoftTTL)
			if err := m.store.UpdateExpiration(ctx, sess.customerID, sess.expiresAt); err != nil {
				return nil, err
			}
			m.log.DebugContext(ctx, "session expiration renewed",
				logger.CustomerID(sess.customerID),
				slog.Time("expires_at", sess.expiresAt))
		}

		return sess, nil
	}

	customerID, err := resolveIdentity(auth)
	if err != nil {
		return nil, err
	}

	return &Session{
		customerID:    customerID,
		expiresAt:     now.Add(m.cfg.TTL),
		softExpiresAt: now.Add(m.cfg.SoftTTL),
		data:          map[string]any{},
		authenticated: auth.Authenticated,
	}, nil
}

// WriteCookie emits the session cookie for sess and marks the session as
// cookie-backed, making it eligible for flushing. Must be called before any
// response body bytes are sent. Hosts typically call it once the session is
// worth keeping, e.g. after an item lands in the cart.
func (m *Manager) WriteCookie(w http.ResponseWriter, sess *Session) {
	m.cookies.Write(w, cookie.Token{
		CustomerID:    sess.customerID,
		ExpiresAt:     sess.expiresAt,
		SoftExpiresAt: sess.softExpiresAt,
	})
	sess.hasCookie = true
}

// Flush persists the session at end of request. It is a no-op unless the
// session is dirty and has an established identity. The cache entry is
// invalidated before the store write so a racing reader cannot observe stale
// cached data after the write lands.
func (m *Manager) Flush(ctx context.Context, sess *Session) error {
	if !sess.dirty || !sess.HasIdentity() {
		return nil
	}

	m.invalidate(ctx, sess.customerID)

	if err := m.store.Upsert(ctx, sess.customerID, sess.expiresAt, sess.data); err != nil {
		return errors.Join(ErrFlushFailed, err)
	}
	sess.dirty = false
	return nil
}

// Destroy fully resets the session: the store row is deleted, the cache entry
// invalidated, the client cookie cleared, and the in-memory state reset under
// a brand-new guest customer id. Used on logout and, for guests, after
// checkout completion.
func (m *Manager) Destroy(ctx context.Context, w http.ResponseWriter, sess *Session) error {
	m.cookies.Clear(w)

	oldID := sess.customerID
	m.invalidate(ctx, oldID)

	deleteErr := m.store.Delete(ctx, oldID)

	newID, err := newGuestID()
	if err != nil {
		return err
	}

	now := m.now()
	sess.customerID = newID
	sess.expiresAt = now.Add(m.cfg.TTL)
	sess.softExpiresAt = now.Add(m.cfg.SoftTTL)
	sess.data = map[string]any{}
	sess.dirty = false
	sess.hasCookie = false
	sess.authenticated = false

	if deleteErr != nil {
		return errors.Join(ErrDestroyFailed, deleteErr)
	}
	return nil
}

// CacheEnabled reports whether the read path consults the cache, resolving
// the three-state override against the configured backend.
func (m *Manager) CacheEnabled() bool {
	switch m.cfg.CacheMode {
	case CacheAlwaysOff:
		return false
	case CacheAlwaysOn:
		return m.cache != nil
	default:
		return m.cache != nil
	}
}

// load reads session data cache-first. Cache misses and cache failures fall
// through to the store; the read path never writes the result back into the
// cache.
func (m *Manager) load(ctx context.Context, customerID string) (map[string]any, error) {
	if m.CacheEnabled() {
		if data, ok := m.cache.Get(ctx, customerID); ok {
			return data, nil
		}
	}

	data, err := m.store.Get(ctx, customerID)
	if err != nil {
		return nil, err
	}
	if data == nil {
		data = map[string]any{}
	}
	return data, nil
}

// invalidate drops the cache entry for the id. Best effort: cache failures
// are logged, never surfaced.
func (m *Manager) invalidate(ctx context.Context, customerID string) {
	if !m.CacheEnabled() {
		return
	}
	if err := m.cache.Invalidate(ctx, customerID); err != nil {
		m.log.WarnContext(ctx, "session cache invalidation failed",
			logger.CustomerID(customerID),
			logger.Error(err))
	}
}
