package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/totalaudiopromo/intel-export/internal/model"
)

// Pool is the subset of *pgxpool.Pool the store needs. pgxmock satisfies it.
type Pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    Pool
	closeFn func()
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(4)
	minConns := int32(1)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS exports (
	id           TEXT PRIMARY KEY,
	kind         TEXT NOT NULL,
	format       TEXT NOT NULL DEFAULT '',
	success      BOOLEAN NOT NULL DEFAULT false,
	message      TEXT NOT NULL DEFAULT '',
	item_count   INTEGER NOT NULL DEFAULT 0,
	dropped      INTEGER NOT NULL DEFAULT 0,
	bytes        BIGINT NOT NULL DEFAULT 0,
	download_url TEXT NOT NULL DEFAULT '',
	user_label   TEXT NOT NULL DEFAULT '',
	delivery     TEXT NOT NULL DEFAULT '',
	started_at   TIMESTAMPTZ NOT NULL DEFAULT now(),
	duration_ms  BIGINT NOT NULL DEFAULT 0
);

CREATE INDEX IF NOT EXISTS idx_exports_kind ON exports(kind);
CREATE INDEX IF NOT EXISTS idx_exports_started_at ON exports(started_at DESC);
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

func (s *PostgresStore) RecordExport(ctx context.Context, rec model.JobRecord) error {
	if rec.ID == "" {
		return eris.New("postgres: record export: missing id")
	}
	_, err := s.pool.Exec(ctx,
		`INSERT INTO exports (id, kind, format, success, message, item_count, dropped, bytes,
		 download_url, user_label, delivery, started_at, duration_ms)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		 ON CONFLICT (id) DO NOTHING`,
		rec.ID, string(rec.Kind), string(rec.Format), rec.Success, rec.Message,
		rec.ItemCount, rec.Dropped, int64(rec.Bytes), rec.DownloadURL, rec.User, rec.Delivery,
		rec.StartedAt.UTC(), rec.Duration.Milliseconds(),
	)
	return eris.Wrapf(err, "postgres: insert export %s", rec.ID)
}

func (s *PostgresStore) ListExports(ctx context.Context, filter Filter) ([]model.JobRecord, error) {
	query := `SELECT ` + exportColumns + ` FROM exports WHERE true`
	args := []any{}
	argIdx := 1

	if filter.Kind != "" {
		query += fmt.Sprintf(` AND kind = $%d`, argIdx)
		args = append(args, string(filter.Kind))
		argIdx++
	}
	if !filter.Since.IsZero() {
		query += fmt.Sprintf(` AND started_at >= $%d`, argIdx)
		args = append(args, filter.Since.UTC())
		argIdx++
	}
	query += fmt.Sprintf(` ORDER BY started_at DESC LIMIT $%d`, argIdx)
	args = append(args, filter.limit())

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list exports")
	}
	defer rows.Close()

	var out []model.JobRecord
	for rows.Next() {
		rec, err := scanPostgresExport(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *rec)
	}
	return out, eris.Wrap(rows.Err(), "postgres: list exports iterate")
}

func (s *PostgresStore) GetExport(ctx context.Context, id string) (*model.JobRecord, error) {
	rec, err := scanPostgresExport(s.pool.QueryRow(ctx,
		`SELECT `+exportColumns+` FROM exports WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, eris.Wrapf(ErrNotFound, "postgres: get export %s", id)
	}
	return rec, err
}

func scanPostgresExport(row pgx.Row) (*model.JobRecord, error) {
	var (
		rec              model.JobRecord
		kind, format     string
		itemCount, drops int32
		size, durationMS int64
	)
	err := row.Scan(&rec.ID, &kind, &format, &rec.Success, &rec.Message, &itemCount,
		&drops, &size, &rec.DownloadURL, &rec.User, &rec.Delivery,
		&rec.StartedAt, &durationMS)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, err
	}
	if err != nil {
		return nil, eris.Wrap(err, "postgres: scan export")
	}
	rec.Kind = model.Kind(kind)
	rec.Format = model.Format(format)
	rec.ItemCount = int(itemCount)
	rec.Dropped = int(drops)
	rec.Bytes = int(size)
	rec.Duration = time.Duration(durationMS) * time.Millisecond
	return &rec, nil
}
