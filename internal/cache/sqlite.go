package cache

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db      *sql.DB
	nowFunc func() time.Time
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close() //nolint:errcheck
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db, nowFunc: time.Now}, nil
}

// Timestamps are unix milliseconds so expiry compares as integers.
const sqliteMigration = `
CREATE TABLE IF NOT EXISTS enrichment_cache (
	kind        TEXT    NOT NULL,
	registry_id TEXT    NOT NULL,
	value       INTEGER,
	fetched_at  INTEGER NOT NULL,
	expires_at  INTEGER NOT NULL,
	PRIMARY KEY (kind, registry_id)
);

CREATE INDEX IF NOT EXISTS idx_enrichment_cache_expires_at ON enrichment_cache(expires_at);
`

// Migrate creates the cache table.
func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) Get(ctx context.Context, key Key) (Entry, bool, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT value, fetched_at, expires_at FROM enrichment_cache
		 WHERE kind = ? AND registry_id = ? AND expires_at > ?`,
		string(key.Kind), key.RegistryID, s.nowFunc().UnixMilli(),
	)

	var value sql.NullInt64
	var fetched, expires int64
	err := row.Scan(&value, &fetched, &expires)
	if errors.Is(err, sql.ErrNoRows) {
		return Entry{}, false, nil
	}
	if err != nil {
		return Entry{}, false, eris.Wrapf(err, "sqlite: get %s %s", key.Kind, key.RegistryID)
	}

	e := Entry{
		Key:       key,
		FetchedAt: time.UnixMilli(fetched).UTC(),
		ExpiresAt: time.UnixMilli(expires).UTC(),
	}
	if value.Valid {
		v := value.Int64
		e.Value = &v
	}
	return e, true, nil
}

func (s *SQLiteStore) Set(ctx context.Context, e Entry) error {
	var value sql.NullInt64
	if e.Value != nil {
		value = sql.NullInt64{Int64: *e.Value, Valid: true}
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO enrichment_cache (kind, registry_id, value, fetched_at, expires_at)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT (kind, registry_id) DO UPDATE SET
		   value = excluded.value,
		   fetched_at = excluded.fetched_at,
		   expires_at = excluded.expires_at`,
		string(e.Kind), e.RegistryID, value, e.FetchedAt.UnixMilli(), e.ExpiresAt.UnixMilli(),
	)
	return eris.Wrapf(err, "sqlite: set %s %s", e.Kind, e.RegistryID)
}

func (s *SQLiteStore) Prune(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM enrichment_cache WHERE expires_at <= ?`, s.nowFunc().UnixMilli())
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: prune")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: prune rows affected")
	}
	return n, nil
}

func (s *SQLiteStore) Stats(ctx context.Context) (Stats, error) {
	var st Stats
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*), COALESCE(SUM(CASE WHEN expires_at > ? THEN 1 ELSE 0 END), 0)
		 FROM enrichment_cache`,
		s.nowFunc().UnixMilli(),
	).Scan(&st.Total, &st.Live)
	if err != nil {
		return Stats{}, eris.Wrap(err, "sqlite: stats")
	}
	st.Expired = st.Total - st.Live
	return st, nil
}
