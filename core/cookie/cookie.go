package cookie

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"
)

const (
	// minSecretLength is the minimum secret length for HMAC keying.
	minSecretLength = 32
	// fieldDelimiter separates the token fields in the cookie value.
	fieldDelimiter = "||"
	// tokenFieldCount is the expected number of delimited fields.
	tokenFieldCount = 4
)

// Token is the decoded content of a session cookie.
type Token struct {
	// CustomerID binds the browser to one persisted session record.
	CustomerID string

	// ExpiresAt is the hard expiration of the session. It doubles as the
	// cookie's own expiry.
	ExpiresAt time.Time

	// SoftExpiresAt is the renewal deadline. Once passed, the session record's
	// expiration is extended transparently on the next request.
	//
	// Note: SoftExpiresAt is not covered by the signature, matching the
	// original wire format. Decode only trusts it as far as the cookie's
	// overall validity window.
	SoftExpiresAt time.Time
}

// Manager encodes, decodes, and emits signed session cookies.
type Manager struct {
	name     string
	secret   []byte
	defaults Options
}

// New creates a cookie manager for the named cookie, signing with secret.
func New(name, secret string, opts ...Option) (*Manager, error) {
	if secret == "" {
		return nil, ErrNoSecret
	}
	if len(secret) < minSecretLength {
		return nil, ErrSecretTooShort
	}

	// Secure defaults
	defaults := Options{
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}
	defaults = applyOptions(defaults, opts)

	return &Manager{
		name:     name,
		secret:   []byte(secret),
		defaults: defaults,
	}, nil
}

// Name returns the cookie name the manager reads and writes.
func (m *Manager) Name() string {
	return m.name
}

// Encode serializes the token into the four-field wire format.
func (m *Manager) Encode(t Token) string {
	exp := strconv.FormatInt(t.ExpiresAt.Unix(), 10)
	soft := strconv.FormatInt(t.SoftExpiresAt.Unix(), 10)
	sig := m.sign(t.CustomerID, t.ExpiresAt.Unix())
	return strings.Join([]string{t.CustomerID, exp, soft, sig}, fieldDelimiter)
}

// Decode parses and verifies a cookie value. Any malformed or tampered value
// returns ErrInvalidToken; the caller treats it the same as no cookie at all.
func (m *Manager) Decode(value string) (Token, error) {
	parts := strings.Split(value, fieldDelimiter)
	if len(parts) != tokenFieldCount {
		return Token{}, ErrInvalidToken
	}

	customerID := parts[0]
	exp, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil {
		return Token{}, ErrInvalidToken
	}
	soft, err := strconv.ParseInt(parts[2], 10, 64)
	if err != nil {
		return Token{}, ErrInvalidToken
	}

	expected := m.sign(customerID, exp)
	if subtle.ConstantTimeCompare([]byte(parts[3]), []byte(expected)) != 1 {
		return Token{}, ErrInvalidToken
	}

	return Token{
		CustomerID:    customerID,
		ExpiresAt:     time.Unix(exp, 0),
		SoftExpiresAt: time.Unix(soft, 0),
	}, nil
}

// Read extracts and verifies the session token from the request.
// Returns ErrCookieNotFound when the cookie is absent.
func (m *Manager) Read(r *http.Request) (Token, error) {
	c, err := r.Cookie(m.name)
	if err != nil {
		if errors.Is(err, http.ErrNoCookie) {
			return Token{}, ErrCookieNotFound
		}
		return Token{}, err
	}
	return m.Decode(c.Value)
}

// Write emits the session cookie with the token's hard expiration as the
// cookie expiry. Must be called before any response body bytes are sent.
func (m *Manager) Write(w http.ResponseWriter, t Token, opts ...Option) {
	options := applyOptions(m.defaults, opts)

	http.SetCookie(w, &http.Cookie{
		Name:     m.name,
		Value:    m.Encode(t),
		Path:     options.Path,
		Domain:   options.Domain,
		Expires:  t.ExpiresAt,
		Secure:   options.Secure,
		HttpOnly: options.HttpOnly,
		SameSite: options.SameSite,
	})
}

// Clear forces client-side removal by emitting an empty value with an
// already-past expiry.
func (m *Manager) Clear(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     m.name,
		Value:    "",
		Path:     m.defaults.Path,
		Domain:   m.defaults.Domain,
		MaxAge:   -1,
		Expires:  time.Unix(0, 0),
		Secure:   m.defaults.Secure,
		HttpOnly: m.defaults.HttpOnly,
		SameSite: m.defaults.SameSite,
	})
}

// sign computes the HMAC-SHA256 signature over customer id and expiration.
// The soft expiry is deliberately outside the signed payload to stay
// wire-compatible with existing cookies.
func (m *Manager) sign(customerID string, expiration int64) string {
	mac := hmac.New(sha256.New, m.secret)
	mac.Write([]byte(customerID))
	mac.Write([]byte(strconv.FormatInt(expiration, 10)))
	return hex.EncodeToString(mac.Sum(nil))
}
