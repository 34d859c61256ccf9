// sessionctl is the operational counterpart of the admin page: it reports
// session counts and runs the expired-session sweep or the full clear against
// the live store.
//
// Usage:
//
//	sessionctl stats
//	sessionctl sweep
//	sessionctl clear-all -force
//
// Configuration comes from the environment (optionally via a .env file):
// PG_CONN_URL is required, REDIS_URL enables cache flushing after bulk
// deletes.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"

	"github.com/dmitrymomot/cartsession/core/logger"
	"github.com/dmitrymomot/cartsession/core/session"
	"github.com/dmitrymomot/cartsession/integration/database/pg"
	"github.com/dmitrymomot/cartsession/integration/database/redis"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "sessionctl:", err)
		os.Exit(1)
	}
}

func run() error {
	force := flag.Bool("force", false, "confirm destructive operations")
	timeout := flag.Duration("timeout", 30*time.Second, "operation timeout")
	flag.Usage = usage
	flag.Parse()

	cmd := flag.Arg(0)
	if cmd == "" {
		usage()
		os.Exit(2)
	}

	// Missing .env is fine; real environments set variables directly.
	_ = godotenv.Load()

	log := slog.New(slog.NewTextHandler(os.Stderr, nil))

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	var pgCfg pg.Config
	if err := env.Parse(&pgCfg); err != nil {
		return err
	}

	pool, err := pg.Connect(ctx, pgCfg, log)
	if err != nil {
		return err
	}
	defer pool.Close()

	if err := pg.Migrate(ctx, pool, log); err != nil {
		return err
	}

	store := pg.NewStore(pool, pg.WithStoreLogger(log))

	opts := []session.CleanerOption{session.WithCleanerLogger(log)}
	if url := os.Getenv("REDIS_URL"); url != "" {
		var redisCfg redis.Config
		if err := env.Parse(&redisCfg); err != nil {
			return err
		}
		client, err := redis.Connect(ctx, redisCfg)
		if err != nil {
			return err
		}
		defer client.Close()
		opts = append(opts, session.WithCleanerCache(redis.NewCache(client, redis.WithLogger(log))))
	}

	cleaner, err := session.NewCleaner(store, opts...)
	if err != nil {
		return err
	}

	switch cmd {
	case "stats":
		return printStats(ctx, cleaner)
	case "sweep":
		deleted, err := cleaner.Sweep(ctx, time.Now())
		if err != nil {
			return err
		}
		log.Info("sweep complete", logger.Count(deleted))
		return nil
	case "clear-all":
		if !*force {
			return fmt.Errorf("clear-all empties every active cart; re-run with -force to confirm")
		}
		return cleaner.DestroyAll(ctx)
	default:
		usage()
		return fmt.Errorf("unknown command %q", cmd)
	}
}

func printStats(ctx context.Context, cleaner *session.Cleaner) error {
	all, err := cleaner.Stats(ctx)
	if err != nil {
		return err
	}
	expired, err := cleaner.ExpiredStats(ctx)
	if err != nil {
		return err
	}

	fmt.Printf("Sessions\n")
	fmt.Printf("  Total: %d\n  User:  %d\n  Guest: %d\n", all.Total, all.User, all.Guest)
	fmt.Printf("Expired Sessions\n")
	fmt.Printf("  Total: %d\n  User:  %d\n  Guest: %d\n", expired.Total, expired.User, expired.Guest)
	return nil
}

func usage() {
	fmt.Fprintf(os.Stderr, `Usage: sessionctl [flags] <command>

Commands:
  stats      print session counts (total/user/guest, all and expired-only)
  sweep      delete expired sessions and flush the cache
  clear-all  delete every session (requires -force)

Flags:
`)
	flag.PrintDefaults()
}
