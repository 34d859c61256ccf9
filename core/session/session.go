package session

import (
	"reflect"
	"sort"
	"time"
)

// Session is the in-memory key/value bag for one request's lifetime. It is
// hydrated once at request start, mutated by handlers, and flushed at most
// once at request end. Sessions are never shared across requests: the next
// request builds a fresh instance from persisted state.
//
// A Session is not safe for concurrent use; it belongs to the single worker
// handling its request.
type Session struct {
	customerID    string
	expiresAt     time.Time
	softExpiresAt time.Time
	data          map[string]any
	dirty         bool
	hasCookie     bool
	authenticated bool
}

// CustomerID returns the customer identifier the session is keyed by.
func (s *Session) CustomerID() string {
	return s.customerID
}

// ExpiresAt returns the hard expiration of the session.
func (s *Session) ExpiresAt() time.Time {
	return s.expiresAt
}

// SoftExpiresAt returns the renewal deadline of the session.
func (s *Session) SoftExpiresAt() time.Time {
	return s.softExpiresAt
}

// HasIdentity reports whether an identity was established this request: a
// valid cookie was presented, a cookie was emitted, or the user is
// authenticated. Sessions without identity are never persisted.
func (s *Session) HasIdentity() bool {
	return s.hasCookie || s.authenticated
}

// IsDirty reports whether in-memory data differs from the last persisted
// state.
func (s *Session) IsDirty() bool {
	return s.dirty
}

// Get returns the value stored under key, with ok reporting presence.
func (s *Session) Get(key string) (any, bool) {
	v, ok := s.data[key]
	return v, ok
}

// GetDefault returns the value stored under key, or def when absent.
func (s *Session) GetDefault(key string, def any) any {
	if v, ok := s.data[key]; ok {
		return v
	}
	return def
}

// Set stores value under key and marks the session dirty. Setting a value
// equal to the current one is a no-op, so redundant writes never trigger a
// flush.
func (s *Session) Set(key string, value any) {
	if current, ok := s.data[key]; ok && reflect.DeepEqual(current, value) {
		return
	}
	s.data[key] = value
	s.dirty = true
}

// Delete removes key from the session. Removing an absent key is a no-op and
// does not dirty the session.
func (s *Session) Delete(key string) {
	if _, ok := s.data[key]; !ok {
		return
	}
	delete(s.data, key)
	s.dirty = true
}

// Keys returns the session's keys in sorted order.
func (s *Session) Keys() []string {
	keys := make([]string, 0, len(s.data))
	for k := range s.data {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Len returns the number of stored keys.
func (s *Session) Len() int {
	return len(s.data)
}
