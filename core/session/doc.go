// Package session provides persistent per-customer cart session state with
// expiration, dirty tracking, and an optional read-through cache.
//
// Each request gets exactly one Session: a mutable key/value bag hydrated from
// the store at request start and flushed back at request end only when it was
// actually modified and an identity (cookie or authenticated user) exists.
// The store is the durable source of truth; the cache is a disposable,
// invalidation-driven mirror that is never required for correctness.
//
// # Core Components
//
//   - Session: per-request key/value bag with a dirty flag
//   - Manager: request lifecycle (hydrate, cookie emission, flush, destroy)
//   - Store: persistence contract keyed by customer id
//   - Cache: best-effort read-through layer in front of the Store
//   - Cleaner: expiration sweep, destroy-all, and operational counts
//
// # Request Lifecycle
//
//	mgr, _ := session.NewManager(store, cookies)
//
//	func handle(w http.ResponseWriter, r *http.Request) {
//		sess, err := mgr.Start(r.Context(), r, session.Auth{})
//		if err != nil {
//			// storage failure; the session layer never hides these
//		}
//
//		sess.Set("cart", cart)         // marks dirty only on real change
//
//		mgr.WriteCookie(w, sess)       // before any body bytes
//		// ... render response ...
//		_ = mgr.Flush(r.Context(), sess) // after response is produced
//	}
//
// Identity degrades gracefully: an invalid or tampered cookie, or a stored
// blob that fails to deserialize, yields a fresh empty session instead of an
// error. Storage I/O failures, by contrast, always surface to the caller.
package session
