package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/totalaudiopromo/intel-export/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
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
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS exports (
	id           TEXT PRIMARY KEY,
	kind         TEXT NOT NULL,
	format       TEXT NOT NULL DEFAULT '',
	success      INTEGER NOT NULL DEFAULT 0,
	message      TEXT NOT NULL DEFAULT '',
	item_count   INTEGER NOT NULL DEFAULT 0,
	dropped      INTEGER NOT NULL DEFAULT 0,
	bytes        INTEGER NOT NULL DEFAULT 0,
	download_url TEXT NOT NULL DEFAULT '',
	user_label   TEXT NOT NULL DEFAULT '',
	delivery     TEXT NOT NULL DEFAULT '',
	started_at   DATETIME NOT NULL,
	duration_ms  INTEGER NOT NULL DEFAULT 0
);

CREATE INDEX IF NOT EXISTS idx_exports_kind ON exports(kind);
CREATE INDEX IF NOT EXISTS idx_exports_started_at ON exports(started_at DESC);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) RecordExport(ctx context.Context, rec model.JobRecord) error {
	if rec.ID == "" {
		return eris.New("sqlite: record export: missing id")
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO exports (id, kind, format, success, message, item_count, dropped, bytes,
		 download_url, user_label, delivery, started_at, duration_ms)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, string(rec.Kind), string(rec.Format), rec.Success, rec.Message,
		rec.ItemCount, rec.Dropped, rec.Bytes, rec.DownloadURL, rec.User, rec.Delivery,
		rec.StartedAt.UTC(), rec.Duration.Milliseconds(),
	)
	return eris.Wrapf(err, "sqlite: insert export %s", rec.ID)
}

const exportColumns = `id, kind, format, success, message, item_count, dropped, bytes, download_url, user_label, delivery, started_at, duration_ms`

func (s *SQLiteStore) ListExports(ctx context.Context, filter Filter) ([]model.JobRecord, error) {
	query := `SELECT ` + exportColumns + ` FROM exports WHERE 1=1`
	var args []any

	if filter.Kind != "" {
		query += ` AND kind = ?`
		args = append(args, string(filter.Kind))
	}
	if !filter.Since.IsZero() {
		query += ` AND started_at >= ?`
		args = append(args, filter.Since.UTC())
	}
	query += ` ORDER BY started_at DESC, rowid DESC LIMIT ?`
	args = append(args, filter.limit())

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list exports")
	}
	defer rows.Close() //nolint:errcheck

	var out []model.JobRecord
	for rows.Next() {
		rec, err := scanExport(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *rec)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: list exports iterate")
}

func (s *SQLiteStore) GetExport(ctx context.Context, id string) (*model.JobRecord, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+exportColumns+` FROM exports WHERE id = ?`, id)
	rec, err := scanExport(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, eris.Wrapf(ErrNotFound, "sqlite: get export %s", id)
	}
	return rec, err
}

type scannable interface {
	Scan(dest ...any) error
}

// scanExport reads one exports row. sql.ErrNoRows is returned unwrapped.
func scanExport(row scannable) (*model.JobRecord, error) {
	var (
		rec          model.JobRecord
		kind, format string
		durationMS   int64
	)
	err := row.Scan(&rec.ID, &kind, &format, &rec.Success, &rec.Message, &rec.ItemCount,
		&rec.Dropped, &rec.Bytes, &rec.DownloadURL, &rec.User, &rec.Delivery,
		&rec.StartedAt, &durationMS)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: scan export")
	}
	rec.Kind = model.Kind(kind)
	rec.Format = model.Format(format)
	rec.Duration = time.Duration(durationMS) * time.Millisecond
	return &rec, nil
}
