package session

import (
	"log/slog"
	"time"
)

// Config holds session manager configuration.
type Config struct {
	// TTL is the hard session lifetime. A session record expires this long
	// after its last renewal.
	TTL time.Duration `env:"SESSION_TTL" envDefault:"48h"`

	// SoftTTL is the renewal deadline, strictly shorter than TTL. Once a
	// request arrives past it, the record's expiration is extended in place
	// without rewriting the data blob.
	SoftTTL time.Duration `env:"SESSION_SOFT_TTL" envDefault:"47h"`

	// CacheMode is the three-state cache override: auto, on, off.
	CacheMode CacheMode `env:"SESSION_CACHE_MODE" envDefault:"auto"`
}

// defaultConfig mirrors the original deployment's 48h/47h window.
func defaultConfig() Config {
	return Config{
		TTL:       48 * time.Hour,
		SoftTTL:   47 * time.Hour,
		CacheMode: CacheAuto,
	}
}

// Option is a functional option for configuring the session manager.
type Option func(*Manager)

// WithTTL sets the hard session lifetime.
func WithTTL(ttl time.Duration) Option {
	return func(m *Manager) {
		m.cfg.TTL = ttl
	}
}

// WithSoftTTL sets the renewal deadline.
func WithSoftTTL(soft time.Duration) Option {
	return func(m *Manager) {
		m.cfg.SoftTTL = soft
	}
}

// WithCache attaches a cache backend.
func WithCache(c Cache) Option {
	return func(m *Manager) {
		m.cache = c
	}
}

// WithCacheMode sets the cache override.
func WithCacheMode(mode CacheMode) Option {
	return func(m *Manager) {
		m.cfg.CacheMode = mode
	}
}

// WithConfig replaces the whole configuration, typically loaded from the
// environment.
func WithConfig(cfg Config) Option {
	return func(m *Manager) {
		m.cfg = cfg
	}
}

// WithLogger sets the logger. Defaults to a discarding logger.
func WithLogger(log *slog.Logger) Option {
	return func(m *Manager) {
		if log != nil {
			m.log = log
		}
	}
}

// WithClock overrides the time source, for tests.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) {
		if now != nil {
			m.now = now
		}
	}
}
