// Package cookie implements the signed session cookie used to bind a browser
// to its persisted cart session.
//
// The cookie value carries four fields joined by "||":
//
//	customer_id||expiration||soft_expiring_at||signature
//
// The signature is an HMAC-SHA256 over customer_id and expiration, keyed by a
// server-side secret. Decode verifies the signature with a constant-time
// comparison and treats any malformed or tampered value as an invalid token
// rather than an error condition worth surfacing to users.
//
// Basic usage:
//
//	mgr, err := cookie.New("cart_session", secret)
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	// On response, before any body bytes are written:
//	mgr.Write(w, cookie.Token{
//		CustomerID:    id,
//		ExpiresAt:     time.Now().Add(48 * time.Hour),
//		SoftExpiresAt: time.Now().Add(47 * time.Hour),
//	})
//
//	// On the next request:
//	tok, err := mgr.Read(r)
//	if err != nil {
//		// no cookie, or signature mismatch: treat as a new visitor
//	}
package cookie
