package session

import "errors"

var (
	// ErrStorage is returned when the backing store fails. Store
	// implementations wrap their driver errors with it so callers can match
	// storage failures without knowing the backend.
	ErrStorage = errors.New("session storage failure")

	// ErrIDGeneration is returned when generating a guest customer id fails.
	ErrIDGeneration = errors.New("failed to generate customer id")

	// ErrCacheRequired is returned when the cache mode forces caching on but
	// no cache backend was provided.
	ErrCacheRequired = errors.New("cache mode is always-on but no cache is configured")

	// ErrFlushFailed is returned when persisting a dirty session fails.
	ErrFlushFailed = errors.New("failed to flush session")

	// ErrDestroyFailed is returned when destroying a session fails.
	ErrDestroyFailed = errors.New("failed to destroy session")
)
