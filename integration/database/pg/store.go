package pg

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dmitrymomot/cartsession/core/logger"
	"github.com/dmitrymomot/cartsession/core/session"
)

// querier is the subset of pgx operations the store needs, satisfied by both
// *pgxpool.Pool and pgx.Tx.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Store implements session.Store on PostgreSQL. All operations run against
// the pool unless the context carries a transaction via WithTx.
type Store struct {
	pool *pgxpool.Pool
	log  *slog.Logger
}

// StoreOption configures a Store.
type StoreOption func(*Store)

// WithStoreLogger sets the logger. Defaults to a discarding logger.
func WithStoreLogger(log *slog.Logger) StoreOption {
	return func(s *Store) {
		if log != nil {
			s.log = log
		}
	}
}

// NewStore creates a PostgreSQL session store over pool.
func NewStore(pool *pgxpool.Pool, opts ...StoreOption) *Store {
	s := &Store{
		pool: pool,
		log:  slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// db returns the transaction carried by ctx, or the pool.
func (s *Store) db(ctx context.Context) querier {
	if tx, ok := txFromContext(ctx); ok {
		return tx
	}
	return s.pool
}

// Get implements session.Store. Absent rows return (nil, nil); a blob that
// fails to deserialize degrades to an empty map, leaving the row in place
// until the next write overwrites it.
func (s *Store) Get(ctx context.Context, customerID string) (map[string]any, error) {
	var blob string
	err := s.db(ctx).QueryRow(ctx,
		`SELECT data FROM cart_sessions WHERE customer_id = $1`,
		customerID,
	).Scan(&blob)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, errors.Join(session.ErrStorage, err)
	}

	var data map[string]any
	if err := json.Unmarshal([]byte(blob), &data); err != nil {
		s.log.DebugContext(ctx, "corrupt session blob, treating as empty",
			logger.CustomerID(customerID), logger.Error(err))
		return map[string]any{}, nil
	}
	if data == nil {
		data = map[string]any{}
	}
	return data, nil
}

// Upsert implements session.Store with insert-or-replace semantics. The data
// blob is overwritten, never merged.
func (s *Store) Upsert(ctx context.Context, customerID string, expiration time.Time, data map[string]any) error {
	blob, err := json.Marshal(data)
	if err != nil {
		return errors.Join(session.ErrStorage, err)
	}

	_, err = s.db(ctx).Exec(ctx,
		`INSERT INTO cart_sessions (customer_id, expiration, data)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (customer_id)
		 DO UPDATE SET expiration = EXCLUDED.expiration, data = EXCLUDED.data`,
		customerID, expiration.Unix(), string(blob),
	)
	if err != nil {
		return errors.Join(session.ErrStorage, err)
	}
	return nil
}

// Delete implements session.Store. Deleting a non-existent id succeeds
// silently.
func (s *Store) Delete(ctx context.Context, customerID string) error {
	_, err := s.db(ctx).Exec(ctx,
		`DELETE FROM cart_sessions WHERE customer_id = $1`, customerID)
	if err != nil {
		return errors.Join(session.ErrStorage, err)
	}
	return nil
}

// DeleteExpired implements session.Store.
func (s *Store) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	ct, err := s.db(ctx).Exec(ctx,
		`DELETE FROM cart_sessions WHERE expiration < $1`, now.Unix())
	if err != nil {
		return 0, errors.Join(session.ErrStorage, err)
	}
	return ct.RowsAffected(), nil
}

// DeleteAll implements session.Store. TRUNCATE for speed; irreversible.
func (s *Store) DeleteAll(ctx context.Context) error {
	_, err := s.db(ctx).Exec(ctx, `TRUNCATE TABLE cart_sessions`)
	if err != nil {
		return errors.Join(session.ErrStorage, err)
	}
	return nil
}

// UpdateExpiration implements session.Store: a partial update touching only
// the expiration column, leaving the data blob as-is.
func (s *Store) UpdateExpiration(ctx context.Context, customerID string, expiration time.Time) error {
	_, err := s.db(ctx).Exec(ctx,
		`UPDATE cart_sessions SET expiration = $2 WHERE customer_id = $1`,
		customerID, expiration.Unix(),
	)
	if err != nil {
		return errors.Join(session.ErrStorage, err)
	}
	return nil
}

// Count implements session.Store. Numeric customer ids belong to
// authenticated users; everything else is an opaque guest token. The btrim
// strips the CHAR(32) blank padding before classifying.
func (s *Store) Count(ctx context.Context, onlyExpired bool, now time.Time) (session.Stats, error) {
	query := `SELECT COUNT(*),
	       COUNT(*) FILTER (WHERE btrim(customer_id) ~ '^[0-9]+$'),
	       COUNT(*) FILTER (WHERE btrim(customer_id) !~ '^[0-9]+$')
	  FROM cart_sessions`
	args := []any{}
	if onlyExpired {
		query += ` WHERE expiration < $1`
		args = append(args, now.Unix())
	}

	var stats session.Stats
	err := s.db(ctx).QueryRow(ctx, query, args...).Scan(&stats.Total, &stats.User, &stats.Guest)
	if err != nil {
		return session.Stats{}, errors.Join(session.ErrStorage, err)
	}
	return stats, nil
}
