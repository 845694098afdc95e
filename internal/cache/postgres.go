package cache

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/sells-group/leadmatch/internal/resilience"
)

// Pool is the subset of pgxpool.Pool the store needs.
type Pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Close()
}

// PostgresStore implements Store using pgxpool, for caches shared between
// machines.
type PostgresStore struct {
	pool    Pool
	nowFunc func() time.Time
}

// NewPostgres creates a PostgresStore with a small connection pool.
func NewPostgres(ctx context.Context, connString string) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}
	pgxCfg.MaxConns = 8
	pgxCfg.MinConns = 1
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := ping(ctx, pool, resilience.DefaultPolicy()); err != nil {
		pool.Close()
		return nil, err
	}
	return newPostgresWithPool(pool), nil
}

// Pinger is implemented by *pgxpool.Pool.
type Pinger interface {
	Ping(ctx context.Context) error
}

// ping checks the connection, retrying transient failures such as a
// refused connection while the database is starting.
func ping(ctx context.Context, p Pinger, policy resilience.Policy) error {
	policy.OnRetry = resilience.RetryLogger("postgres", "ping")
	if err := policy.Do(ctx, p.Ping); err != nil {
		return eris.Wrap(err, "postgres: ping")
	}
	return nil
}

func newPostgresWithPool(pool Pool) *PostgresStore {
	return &PostgresStore{pool: pool, nowFunc: time.Now}
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS enrichment_cache (
	kind        TEXT        NOT NULL,
	registry_id TEXT        NOT NULL,
	value       BIGINT,
	fetched_at  TIMESTAMPTZ NOT NULL,
	expires_at  TIMESTAMPTZ NOT NULL,
	PRIMARY KEY (kind, registry_id)
);

CREATE INDEX IF NOT EXISTS idx_enrichment_cache_expires_at ON enrichment_cache(expires_at);
`

// Migrate creates the cache table.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

func (s *PostgresStore) Get(ctx context.Context, key Key) (Entry, bool, error) {
	e := Entry{Key: key}
	err := s.pool.QueryRow(ctx,
		`SELECT value, fetched_at, expires_at FROM enrichment_cache
		 WHERE kind = $1 AND registry_id = $2 AND expires_at > $3`,
		string(key.Kind), key.RegistryID, s.nowFunc().UTC(),
	).Scan(&e.Value, &e.FetchedAt, &e.ExpiresAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Entry{}, false, nil
	}
	if err != nil {
		return Entry{}, false, eris.Wrapf(err, "postgres: get %s %s", key.Kind, key.RegistryID)
	}
	return e, true, nil
}

func (s *PostgresStore) Set(ctx context.Context, e Entry) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO enrichment_cache (kind, registry_id, value, fetched_at, expires_at)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (kind, registry_id) DO UPDATE SET
		   value = EXCLUDED.value,
		   fetched_at = EXCLUDED.fetched_at,
		   expires_at = EXCLUDED.expires_at`,
		string(e.Kind), e.RegistryID, e.Value, e.FetchedAt.UTC(), e.ExpiresAt.UTC(),
	)
	return eris.Wrapf(err, "postgres: set %s %s", e.Kind, e.RegistryID)
}

func (s *PostgresStore) Prune(ctx context.Context) (int64, error) {
	tag, err := s.pool.Exec(ctx,
		`DELETE FROM enrichment_cache WHERE expires_at <= $1`, s.nowFunc().UTC())
	if err != nil {
		return 0, eris.Wrap(err, "postgres: prune")
	}
	return tag.RowsAffected(), nil
}

func (s *PostgresStore) Stats(ctx context.Context) (Stats, error) {
	var st Stats
	err := s.pool.QueryRow(ctx,
		`SELECT COUNT(*), COUNT(*) FILTER (WHERE expires_at > $1) FROM enrichment_cache`,
		s.nowFunc().UTC(),
	).Scan(&st.Total, &st.Live)
	if err != nil {
		return Stats{}, eris.Wrap(err, "postgres: stats")
	}
	st.Expired = st.Total - st.Live
	return st, nil
}
