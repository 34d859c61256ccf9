// Package pg provides the PostgreSQL-backed session store with connection
// pooling and schema migrations.
//
// The package wraps the pgx driver and applies schema migrations with goose.
// The session table preserves the layout of the original deployment for
// compatibility:
//
//	CREATE TABLE cart_sessions (
//		customer_id CHAR(32) PRIMARY KEY,
//		expiration  INTEGER NOT NULL,
//		data        TEXT NOT NULL DEFAULT '{}'
//	);
//
// Configuration is environment-based:
//
//	var cfg pg.Config
//	if err := env.Parse(&cfg); err != nil {
//		log.Fatal(err)
//	}
//
//	pool, err := pg.Connect(ctx, cfg, log)
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer pool.Close()
//
//	if err := pg.Migrate(ctx, pool, log); err != nil {
//		log.Fatal(err)
//	}
//
//	store := pg.NewStore(pool)
//
// Store operations participate in a caller-provided transaction when one is
// carried in the context via WithTx, which lets a session flush commit
// atomically with checkout writes.
package pg
