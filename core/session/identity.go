package session

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
)

// guestIDBytes is the entropy of a generated guest id. 16 bytes (128 bits)
// hex-encodes to exactly 32 characters, matching the CHAR(32) column. The
// generator's entropy is the sole collision defense: no uniqueness check is
// made against the store.
const guestIDBytes = 16

// Auth carries the authenticated-user marker for the current request.
// The zero value means anonymous.
type Auth struct {
	// Authenticated reports whether the request belongs to a logged-in user.
	Authenticated bool
	// UserID is the stable id of the authenticated user, normally numeric.
	UserID string
}

// newGuestID generates a cryptographically random 32-character customer id
// for guests.
func newGuestID() (string, error) {
	b := make([]byte, guestIDBytes)
	if _, err := rand.Read(b); err != nil {
		return "", errors.Join(ErrIDGeneration, err)
	}
	return hex.EncodeToString(b), nil
}

// IsGuestID classifies a stored customer id. Authenticated users carry purely
// numeric ids; guests carry opaque 32-character tokens.
func IsGuestID(customerID string) bool {
	if customerID == "" {
		return true
	}
	for _, c := range customerID {
		if c < '0' || c > '9' {
			return true
		}
	}
	return false
}

// resolveIdentity derives the customer id for a request with no valid cookie:
// the authenticated user's stable id when logged in, otherwise a fresh random
// guest id. Pure derivation, no side effects.
func resolveIdentity(auth Auth) (string, error) {
	if auth.Authenticated && auth.UserID != "" {
		return auth.UserID, nil
	}
	return newGuestID()
}
