package store

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/totalaudiopromo/intel-export/internal/model"
)

// ErrNotFound is returned by GetExport when no job has the requested id.
var ErrNotFound = eris.New("store: export not found")

// Filter specifies criteria for listing recorded exports.
type Filter struct {
	Kind  model.Kind `json:"kind,omitempty"`
	Since time.Time  `json:"since,omitempty"`
	Limit int        `json:"limit,omitempty"`
}

const defaultListLimit = 50

func (f Filter) limit() int {
	if f.Limit <= 0 {
		return defaultListLimit
	}
	return f.Limit
}

// Store defines the persistence interface for export history.
type Store interface {
	RecordExport(ctx context.Context, rec model.JobRecord) error
	ListExports(ctx context.Context, filter Filter) ([]model.JobRecord, error)
	GetExport(ctx context.Context, id string) (*model.JobRecord, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}

// Config selects and tunes the history backend.
type Config struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	MaxConns    int32  `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns    int32  `yaml:"min_conns" mapstructure:"min_conns"`
}

// Open creates and migrates the configured store. Driver "none" (or empty)
// returns a nil Store.
func Open(ctx context.Context, cfg Config) (Store, error) {
	var (
		st  Store
		err error
	)
	switch cfg.Driver {
	case "", "none":
		return nil, nil
	case "sqlite":
		if cfg.DatabaseURL == "" {
			return nil, eris.New("store: sqlite requires database_url")
		}
		st, err = NewSQLite(cfg.DatabaseURL)
	case "postgres":
		if cfg.DatabaseURL == "" {
			return nil, eris.New("store: postgres requires database_url")
		}
		st, err = NewPostgres(ctx, cfg.DatabaseURL, &PoolConfig{MaxConns: cfg.MaxConns, MinConns: cfg.MinConns})
	default:
		return nil, eris.Errorf("store: unknown driver %q", cfg.Driver)
	}
	if err != nil {
		return nil, err
	}
	if err := st.Migrate(ctx); err != nil {
		st.Close() //nolint:errcheck
		return nil, err
	}
	return st, nil
}

// Recorder adapts a Store to the export service's observer hook. Write
// failures are logged; they never affect the export result.
type Recorder struct {
	store Store
}

// NewRecorder wraps st.
func NewRecorder(st Store) *Recorder {
	return &Recorder{store: st}
}

// ObserveExport implements export.Observer.
func (r *Recorder) ObserveExport(ctx context.Context, rec model.JobRecord) {
	if err := r.store.RecordExport(ctx, rec); err != nil {
		zap.L().Warn("store: record export failed",
			zap.String("job_id", rec.ID),
			zap.String("kind", string(rec.Kind)),
			zap.Error(err),
		)
	}
}
