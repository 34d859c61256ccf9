// Package redis provides the Redis-backed read-through session cache.
//
// The cache is strictly best-effort: an unreachable backend, a corrupt entry,
// or any command failure is reported as a miss and never fails the request.
// The store remains the sole source of truth; the cache is populated only by
// explicit Put calls, never by the session read path.
//
// Usage:
//
//	var cfg redis.Config
//	if err := env.Parse(&cfg); err != nil {
//		log.Fatal(err)
//	}
//
//	client, err := redis.Connect(ctx, cfg)
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	cache := redis.NewCache(client)
//	mgr, err := session.NewManager(store, cookies, session.WithCache(cache))
package redis
