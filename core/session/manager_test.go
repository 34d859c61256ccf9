package session_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/cartsession/core/cookie"
	"github.com/dmitrymomot/cartsession/core/session"
)

const testSecret = "test-secret-key-32-characters!!!"

// mockStore implements session.Store for testing.
type mockStore struct {
	mock.Mock
}

func (m *mockStore) Get(ctx context.Context, customerID string) (map[string]any, error) {
	args := m.Called(ctx, customerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[string]any), args.Error(1)
}

func (m *mockStore) Upsert(ctx context.Context, customerID string, expiration time.Time, data map[string]any) error {
	args := m.Called(ctx, customerID, expiration, data)
	return args.Error(0)
}

func (m *mockStore) Delete(ctx context.Context, customerID string) error {
	args := m.Called(ctx, customerID)
	return args.Error(0)
}

func (m *mockStore) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	args := m.Called(ctx, now)
	return args.Get(0).(int64), args.Error(1)
}

func (m *mockStore) DeleteAll(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *mockStore) UpdateExpiration(ctx context.Context, customerID string, expiration time.Time) error {
	args := m.Called(ctx, customerID, expiration)
	return args.Error(0)
}

func (m *mockStore) Count(ctx context.Context, onlyExpired bool, now time.Time) (session.Stats, error) {
	args := m.Called(ctx, onlyExpired, now)
	return args.Get(0).(session.Stats), args.Error(1)
}

// mockCache implements session.Cache for testing.
type mockCache struct {
	mock.Mock
}

func (m *mockCache) Get(ctx context.Context, customerID string) (map[string]any, bool) {
	args := m.Called(ctx, customerID)
	if args.Get(0) == nil {
		return nil, args.Bool(1)
	}
	return args.Get(0).(map[string]any), args.Bool(1)
}

func (m *mockCache) Put(ctx context.Context, customerID string, data map[string]any) error {
	args := m.Called(ctx, customerID, data)
	return args.Error(0)
}

func (m *mockCache) Invalidate(ctx context.Context, customerID string) error {
	args := m.Called(ctx, customerID)
	return args.Error(0)
}

func (m *mockCache) FlushAll(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func newCookieManager(t *testing.T) *cookie.Manager {
	t.Helper()
	cm, err := cookie.New("cart_session", testSecret)
	require.NoError(t, err)
	return cm
}

// requestWithToken builds a request carrying a signed session cookie.
func requestWithToken(t *testing.T, cm *cookie.Manager, tok cookie.Token) *http.Request {
	t.Helper()
	w := httptest.NewRecorder()
	cm.Write(w, tok)

	r := httptest.NewRequest("GET", "/", nil)
	r.Header.Set("Cookie", w.Header().Get("Set-Cookie"))
	return r
}

func TestManager_Start(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("fresh guest gets empty session and no store traffic", func(t *testing.T) {
		t.Parallel()

		store := &mockStore{}
		mgr, err := session.NewManager(store, newCookieManager(t))
		require.NoError(t, err)

		r := httptest.NewRequest("GET", "/", nil)
		sess, err := mgr.Start(ctx, r, session.Auth{})
		require.NoError(t, err)

		assert.Len(t, sess.CustomerID(), 32)
		assert.Equal(t, 0, sess.Len())
		assert.False(t, sess.IsDirty())
		assert.False(t, sess.HasIdentity())
		assert.True(t, session.IsGuestID(sess.CustomerID()))
		store.AssertNotCalled(t, "Get", mock.Anything, mock.Anything)
	})

	t.Run("authenticated user without cookie gets their stable id", func(t *testing.T) {
		t.Parallel()

		store := &mockStore{}
		mgr, err := session.NewManager(store, newCookieManager(t))
		require.NoError(t, err)

		r := httptest.NewRequest("GET", "/", nil)
		sess, err := mgr.Start(ctx, r, session.Auth{Authenticated: true, UserID: "42"})
		require.NoError(t, err)

		assert.Equal(t, "42", sess.CustomerID())
		assert.True(t, sess.HasIdentity())
		assert.Equal(t, 0, sess.Len())
	})

	t.Run("valid cookie wins over authentication", func(t *testing.T) {
		t.Parallel()

		cm := newCookieManager(t)
		store := &mockStore{}
		store.On("Get", mock.Anything, "a1b2c3d4e5f60718293a4b5c6d7e8f90").
			Return(map[string]any{"cart": "kept"}, nil)

		mgr, err := session.NewManager(store, cm)
		require.NoError(t, err)

		r := requestWithToken(t, cm, cookie.Token{
			CustomerID:    "a1b2c3d4e5f60718293a4b5c6d7e8f90",
			ExpiresAt:     time.Now().Add(48 * time.Hour),
			SoftExpiresAt: time.Now().Add(47 * time.Hour),
		})

		sess, err := mgr.Start(ctx, r, session.Auth{Authenticated: true, UserID: "42"})
		require.NoError(t, err)

		// Guest cart survives login within the session window.
		assert.Equal(t, "a1b2c3d4e5f60718293a4b5c6d7e8f90", sess.CustomerID())
		assert.Equal(t, "kept", sess.GetDefault("cart", nil))
		assert.True(t, sess.HasIdentity())
	})

	t.Run("expired cookie token is treated as absent", func(t *testing.T) {
		t.Parallel()

		cm := newCookieManager(t)
		store := &mockStore{}
		mgr, err := session.NewManager(store, cm)
		require.NoError(t, err)

		r := requestWithToken(t, cm, cookie.Token{
			CustomerID:    "a1b2c3d4e5f60718293a4b5c6d7e8f90",
			ExpiresAt:     time.Now().Add(-time.Hour),
			SoftExpiresAt: time.Now().Add(-2 * time.Hour),
		})

		sess, err := mgr.Start(ctx, r, session.Auth{})
		require.NoError(t, err)
		assert.NotEqual(t, "a1b2c3d4e5f60718293a4b5c6d7e8f90", sess.CustomerID())
		store.AssertNotCalled(t, "Get", mock.Anything, mock.Anything)
	})

	t.Run("tampered cookie is treated as absent", func(t *testing.T) {
		t.Parallel()

		cm := newCookieManager(t)
		store := &mockStore{}
		mgr, err := session.NewManager(store, cm)
		require.NoError(t, err)

		r := httptest.NewRequest("GET", "/", nil)
		r.AddCookie(&http.Cookie{Name: "cart_session", Value: "forged||9999999999||9999999000||deadbeef"})

		sess, err := mgr.Start(ctx, r, session.Auth{})
		require.NoError(t, err)
		assert.NotEqual(t, "forged", sess.CustomerID())
		store.AssertNotCalled(t, "Get", mock.Anything, mock.Anything)
	})

	t.Run("storage failure surfaces", func(t *testing.T) {
		t.Parallel()

		cm := newCookieManager(t)
		store := &mockStore{}
		store.On("Get", mock.Anything, mock.Anything).
			Return(nil, errors.Join(session.ErrStorage, errors.New("connection refused")))

		mgr, err := session.NewManager(store, cm)
		require.NoError(t, err)

		r := requestWithToken(t, cm, cookie.Token{
			CustomerID:    "a1b2c3d4e5f60718293a4b5c6d7e8f90",
			ExpiresAt:     time.Now().Add(time.Hour),
			SoftExpiresAt: time.Now().Add(30 * time.Minute),
		})

		_, err = mgr.Start(ctx, r, session.Auth{})
		assert.ErrorIs(t, err, session.ErrStorage)
	})
}

func TestManager_SoftRenewal(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	now := time.Unix(1_700_000_000, 0)
	clock := func() time.Time { return now }

	t.Run("renews past the soft deadline without dirtying", func(t *testing.T) {
		t.Parallel()

		cm := newCookieManager(t)
		store := &mockStore{}
		store.On("Get", mock.Anything, "a1b2c3d4e5f60718293a4b5c6d7e8f90").
			Return(map[string]any{"cart": "x"}, nil)
		store.On("UpdateExpiration", mock.Anything, "a1b2c3d4e5f60718293a4b5c6d7e8f90", now.Add(48*time.Hour)).
			Return(nil)

		mgr, err := session.NewManager(store, cm, session.WithClock(clock))
		require.NoError(t, err)

		r := requestWithToken(t, cm, cookie.Token{
			CustomerID:    "a1b2c3d4e5f60718293a4b5c6d7e8f90",
			ExpiresAt:     now.Add(30 * time.Minute),
			SoftExpiresAt: now.Add(-10 * time.Minute),
		})

		sess, err := mgr.Start(ctx, r, session.Auth{})
		require.NoError(t, err)

		assert.True(t, sess.ExpiresAt().Equal(now.Add(48*time.Hour)))
		assert.True(t, sess.SoftExpiresAt().Equal(now.Add(47*time.Hour)))
		assert.False(t, sess.IsDirty())
		store.AssertExpectations(t)
	})

	t.Run("no renewal before the soft deadline", func(t *testing.T) {
		t.Parallel()

		cm := newCookieManager(t)
		store := &mockStore{}
		store.On("Get", mock.Anything, mock.Anything).Return(map[string]any{"cart": "x"}, nil)

		mgr, err := session.NewManager(store, cm, session.WithClock(clock))
		require.NoError(t, err)

		r := requestWithToken(t, cm, cookie.Token{
			CustomerID:    "a1b2c3d4e5f60718293a4b5c6d7e8f90",
			ExpiresAt:     now.Add(48 * time.Hour),
			SoftExpiresAt: now.Add(47 * time.Hour),
		})

		_, err = mgr.Start(ctx, r, session.Auth{})
		require.NoError(t, err)
		store.AssertNotCalled(t, "UpdateExpiration", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("no renewal for empty sessions", func(t *testing.T) {
		t.Parallel()

		cm := newCookieManager(t)
		store := &mockStore{}
		store.On("Get", mock.Anything, mock.Anything).Return(nil, nil)

		mgr, err := session.NewManager(store, cm, session.WithClock(clock))
		require.NoError(t, err)

		r := requestWithToken(t, cm, cookie.Token{
			CustomerID:    "a1b2c3d4e5f60718293a4b5c6d7e8f90",
			ExpiresAt:     now.Add(30 * time.Minute),
			SoftExpiresAt: now.Add(-10 * time.Minute),
		})

		_, err = mgr.Start(ctx, r, session.Auth{})
		require.NoError(t, err)
		store.AssertNotCalled(t, "UpdateExpiration", mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestManager_Flush(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("clean session is not flushed", func(t *testing.T) {
		t.Parallel()

		store := &mockStore{}
		mgr, err := session.NewManager(store, newCookieManager(t))
		require.NoError(t, err)

		sess, err := mgr.Start(ctx, httptest.NewRequest("GET", "/", nil), session.Auth{Authenticated: true, UserID: "42"})
		require.NoError(t, err)

		require.NoError(t, mgr.Flush(ctx, sess))
		store.AssertNotCalled(t, "Upsert", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("dirty session without identity is discarded", func(t *testing.T) {
		t.Parallel()

		store := &mockStore{}
		mgr, err := session.NewManager(store, newCookieManager(t))
		require.NoError(t, err)

		sess, err := mgr.Start(ctx, httptest.NewRequest("GET", "/", nil), session.Auth{})
		require.NoError(t, err)
		sess.Set("cart", "x")

		require.NoError(t, mgr.Flush(ctx, sess))
		store.AssertNotCalled(t, "Upsert", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("dirty session with cookie flushes once", func(t *testing.T) {
		t.Parallel()

		store := &mockStore{}
		mgr, err := session.NewManager(store, newCookieManager(t))
		require.NoError(t, err)

		sess, err := mgr.Start(ctx, httptest.NewRequest("GET", "/", nil), session.Auth{})
		require.NoError(t, err)

		sess.Set("cart", map[string]any{"product_1": 2})
		mgr.WriteCookie(httptest.NewRecorder(), sess)

		store.On("Upsert", mock.Anything, sess.CustomerID(), sess.ExpiresAt(),
			map[string]any{"cart": map[string]any{"product_1": 2}}).Return(nil).Once()

		require.NoError(t, mgr.Flush(ctx, sess))
		assert.False(t, sess.IsDirty())

		// Second flush has nothing to do.
		require.NoError(t, mgr.Flush(ctx, sess))
		store.AssertExpectations(t)
	})

	t.Run("upsert failure surfaces", func(t *testing.T) {
		t.Parallel()

		store := &mockStore{}
		store.On("Upsert", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
			Return(errors.Join(session.ErrStorage, errors.New("timeout")))

		mgr, err := session.NewManager(store, newCookieManager(t))
		require.NoError(t, err)

		sess, err := mgr.Start(ctx, httptest.NewRequest("GET", "/", nil), session.Auth{Authenticated: true, UserID: "42"})
		require.NoError(t, err)
		sess.Set("cart", "x")

		err = mgr.Flush(ctx, sess)
		assert.ErrorIs(t, err, session.ErrFlushFailed)
		assert.ErrorIs(t, err, session.ErrStorage)
	})
}

func TestManager_CacheBehavior(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	token := func(t *testing.T, cm *cookie.Manager) *http.Request {
		return requestWithToken(t, cm, cookie.Token{
			CustomerID:    "a1b2c3d4e5f60718293a4b5c6d7e8f90",
			ExpiresAt:     time.Now().Add(48 * time.Hour),
			SoftExpiresAt: time.Now().Add(47 * time.Hour),
		})
	}

	t.Run("cache hit skips the store", func(t *testing.T) {
		t.Parallel()

		cm := newCookieManager(t)
		store := &mockStore{}
		cache := &mockCache{}
		cache.On("Get", mock.Anything, "a1b2c3d4e5f60718293a4b5c6d7e8f90").
			Return(map[string]any{"cart": "cached"}, true)

		mgr, err := session.NewManager(store, cm, session.WithCache(cache))
		require.NoError(t, err)

		sess, err := mgr.Start(ctx, token(t, cm), session.Auth{})
		require.NoError(t, err)
		assert.Equal(t, "cached", sess.GetDefault("cart", nil))
		store.AssertNotCalled(t, "Get", mock.Anything, mock.Anything)
	})

	t.Run("cache miss falls through without warming", func(t *testing.T) {
		t.Parallel()

		cm := newCookieManager(t)
		store := &mockStore{}
		store.On("Get", mock.Anything, "a1b2c3d4e5f60718293a4b5c6d7e8f90").
			Return(map[string]any{"cart": "stored"}, nil)
		cache := &mockCache{}
		cache.On("Get", mock.Anything, mock.Anything).Return(nil, false)

		mgr, err := session.NewManager(store, cm, session.WithCache(cache))
		require.NoError(t, err)

		sess, err := mgr.Start(ctx, token(t, cm), session.Auth{})
		require.NoError(t, err)
		assert.Equal(t, "stored", sess.GetDefault("cart", nil))

		// The read path never repopulates the cache.
		cache.AssertNotCalled(t, "Put", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("always-off bypasses a configured cache", func(t *testing.T) {
		t.Parallel()

		cm := newCookieManager(t)
		store := &mockStore{}
		store.On("Get", mock.Anything, mock.Anything).Return(nil, nil)
		cache := &mockCache{}

		mgr, err := session.NewManager(store, cm,
			session.WithCache(cache),
			session.WithCacheMode(session.CacheAlwaysOff))
		require.NoError(t, err)
		assert.False(t, mgr.CacheEnabled())

		_, err = mgr.Start(ctx, token(t, cm), session.Auth{})
		require.NoError(t, err)
		cache.AssertNotCalled(t, "Get", mock.Anything, mock.Anything)
	})

	t.Run("always-on without a backend fails construction", func(t *testing.T) {
		t.Parallel()

		_, err := session.NewManager(&mockStore{}, newCookieManager(t),
			session.WithCacheMode(session.CacheAlwaysOn))
		assert.ErrorIs(t, err, session.ErrCacheRequired)
	})

	t.Run("invalidation strictly precedes the store write", func(t *testing.T) {
		t.Parallel()

		cm := newCookieManager(t)
		store := &mockStore{}
		cache := &mockCache{}

		var mu sync.Mutex
		var calls []string
		record := func(name string) func(mock.Arguments) {
			return func(mock.Arguments) {
				mu.Lock()
				calls = append(calls, name)
				mu.Unlock()
			}
		}

		cache.On("Invalidate", mock.Anything, mock.Anything).Run(record("invalidate")).Return(nil)
		store.On("Upsert", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
			Run(record("upsert")).Return(nil)

		mgr, err := session.NewManager(store, cm, session.WithCache(cache))
		require.NoError(t, err)

		sess, err := mgr.Start(ctx, httptest.NewRequest("GET", "/", nil), session.Auth{Authenticated: true, UserID: "42"})
		require.NoError(t, err)
		sess.Set("cart", "x")

		require.NoError(t, mgr.Flush(ctx, sess))
		assert.Equal(t, []string{"invalidate", "upsert"}, calls)
	})

	t.Run("invalidation happens even when the store write fails", func(t *testing.T) {
		t.Parallel()

		cm := newCookieManager(t)
		store := &mockStore{}
		store.On("Upsert", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
			Return(errors.Join(session.ErrStorage, errors.New("timeout")))
		cache := &mockCache{}
		cache.On("Invalidate", mock.Anything, mock.Anything).Return(nil).Once()

		mgr, err := session.NewManager(store, cm, session.WithCache(cache))
		require.NoError(t, err)

		sess, err := mgr.Start(ctx, httptest.NewRequest("GET", "/", nil), session.Auth{Authenticated: true, UserID: "42"})
		require.NoError(t, err)
		sess.Set("cart", "x")

		err = mgr.Flush(ctx, sess)
		assert.ErrorIs(t, err, session.ErrFlushFailed)

		// The stale entry is gone regardless: a racing reader sees a miss,
		// never outdated cached data.
		cache.AssertExpectations(t)
	})

	t.Run("invalidation failure does not block the flush", func(t *testing.T) {
		t.Parallel()

		cm := newCookieManager(t)
		store := &mockStore{}
		store.On("Upsert", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil)
		cache := &mockCache{}
		cache.On("Invalidate", mock.Anything, mock.Anything).Return(errors.New("redis down"))

		mgr, err := session.NewManager(store, cm, session.WithCache(cache))
		require.NoError(t, err)

		sess, err := mgr.Start(ctx, httptest.NewRequest("GET", "/", nil), session.Auth{Authenticated: true, UserID: "42"})
		require.NoError(t, err)
		sess.Set("cart", "x")

		assert.NoError(t, mgr.Flush(ctx, sess))
		store.AssertExpectations(t)
	})
}

func TestManager_Destroy(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("full reset with fresh guest id", func(t *testing.T) {
		t.Parallel()

		cm := newCookieManager(t)
		store := &mockStore{}
		store.On("Delete", mock.Anything, "42").Return(nil).Once()
		cache := &mockCache{}
		cache.On("Invalidate", mock.Anything, "42").Return(nil).Once()

		mgr, err := session.NewManager(store, cm, session.WithCache(cache))
		require.NoError(t, err)

		sess, err := mgr.Start(ctx, httptest.NewRequest("GET", "/", nil), session.Auth{Authenticated: true, UserID: "42"})
		require.NoError(t, err)
		sess.Set("cart", "x")

		w := httptest.NewRecorder()
		require.NoError(t, mgr.Destroy(ctx, w, sess))

		// Store row gone, cache entry dropped, cookie force-expired.
		store.AssertExpectations(t)
		cache.AssertExpectations(t)

		cookies := w.Result().Cookies()
		require.Len(t, cookies, 1)
		assert.Empty(t, cookies[0].Value)
		assert.Equal(t, -1, cookies[0].MaxAge)

		// In-memory state reset under a brand-new guest id.
		assert.NotEqual(t, "42", sess.CustomerID())
		assert.Len(t, sess.CustomerID(), 32)
		assert.Equal(t, 0, sess.Len())
		assert.False(t, sess.IsDirty())
		assert.False(t, sess.HasIdentity())
	})

	t.Run("delete failure surfaces after reset", func(t *testing.T) {
		t.Parallel()

		cm := newCookieManager(t)
		store := &mockStore{}
		store.On("Delete", mock.Anything, mock.Anything).
			Return(errors.Join(session.ErrStorage, errors.New("timeout")))

		mgr, err := session.NewManager(store, cm)
		require.NoError(t, err)

		sess, err := mgr.Start(ctx, httptest.NewRequest("GET", "/", nil), session.Auth{Authenticated: true, UserID: "42"})
		require.NoError(t, err)

		err = mgr.Destroy(ctx, httptest.NewRecorder(), sess)
		assert.ErrorIs(t, err, session.ErrDestroyFailed)

		// Memory state is reset regardless.
		assert.NotEqual(t, "42", sess.CustomerID())
		assert.Equal(t, 0, sess.Len())
	})
}

// TestManager_GuestCartScenario walks the end-to-end guest flow: first
// request sets a cart item and flushes; the second request presents the
// resulting cookie and rehydrates the same data.
func TestManager_GuestCartScenario(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	cm := newCookieManager(t)
	store := session.NewMemoryStore()
	mgr, err := session.NewManager(store, cm)
	require.NoError(t, err)

	// Request 1: anonymous visitor adds an item.
	sess, err := mgr.Start(ctx, httptest.NewRequest("GET", "/", nil), session.Auth{})
	require.NoError(t, err)

	sess.Set("cart", map[string]any{"product_1": float64(2)})

	w := httptest.NewRecorder()
	mgr.WriteCookie(w, sess)
	require.NoError(t, mgr.Flush(ctx, sess))
	assert.Equal(t, 1, store.Len())

	// Request 2: same browser returns with the issued cookie.
	r2 := httptest.NewRequest("GET", "/", nil)
	r2.Header.Set("Cookie", w.Header().Get("Set-Cookie"))

	sess2, err := mgr.Start(ctx, r2, session.Auth{})
	require.NoError(t, err)

	assert.Equal(t, sess.CustomerID(), sess2.CustomerID())
	assert.Equal(t, map[string]any{"product_1": float64(2)}, sess2.GetDefault("cart", nil))
	assert.True(t, sess2.HasIdentity())
	assert.False(t, sess2.IsDirty())
}
