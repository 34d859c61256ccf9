package cookie

import "errors"

var (
	// ErrNoSecret indicates no signing secret was provided to the manager.
	ErrNoSecret = errors.New("no secret provided for cookie manager")

	// ErrSecretTooShort indicates the secret doesn't meet the minimum length
	// requirement for HMAC-SHA256 keying.
	ErrSecretTooShort = errors.New("secret must be at least 32 characters long")

	// ErrInvalidToken indicates the cookie value is malformed or its signature
	// doesn't verify. Callers treat this the same as an absent cookie.
	ErrInvalidToken = errors.New("invalid session token")

	// ErrCookieNotFound indicates the session cookie is absent from the request.
	ErrCookieNotFound = errors.New("session cookie not found in request")
)
