package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/totalaudiopromo/intel-export/internal/model"
)

func newTestSQLiteStore(t *testing.T) *SQLiteStore {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	st, err := NewSQLite(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() }) //nolint:errcheck
	require.NoError(t, st.Migrate(context.Background()))
	return st
}

func sampleRecord(id string, kind model.Kind, started time.Time) model.JobRecord {
	return model.JobRecord{
		ID:          id,
		Kind:        kind,
		Format:      model.FormatCSV,
		Success:     true,
		Message:     "Successfully exported 3 contacts to CSV",
		ItemCount:   3,
		Dropped:     1,
		Bytes:       512,
		DownloadURL: "https://dl.example.com/" + id + "/audio-intel-contacts.csv",
		User:        "Chris",
		Delivery:    model.DeliverySent,
		StartedAt:   started,
		Duration:    1250 * time.Millisecond,
	}
}

func TestSQLite_RecordAndGet(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()
	started := time.Date(2025, 3, 14, 9, 30, 0, 0, time.UTC)

	require.NoError(t, st.RecordExport(ctx, sampleRecord("job-1", model.KindContacts, started)))

	got, err := st.GetExport(ctx, "job-1")
	require.NoError(t, err)
	assert.Equal(t, model.KindContacts, got.Kind)
	assert.Equal(t, model.FormatCSV, got.Format)
	assert.True(t, got.Success)
	assert.Equal(t, 3, got.ItemCount)
	assert.Equal(t, 1, got.Dropped)
	assert.Equal(t, 512, got.Bytes)
	assert.Equal(t, "Chris", got.User)
	assert.Equal(t, model.DeliverySent, got.Delivery)
	assert.True(t, started.Equal(got.StartedAt), "started_at = %s", got.StartedAt)
	assert.Equal(t, 1250*time.Millisecond, got.Duration)
}

func TestSQLite_GetExport_NotFound(t *testing.T) {
	st := newTestSQLiteStore(t)

	_, err := st.GetExport(context.Background(), "missing")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestSQLite_RecordExport_DuplicateID(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()
	rec := sampleRecord("dup", model.KindAnalytics, time.Now())

	require.NoError(t, st.RecordExport(ctx, rec))
	assert.Error(t, st.RecordExport(ctx, rec))
}

func TestSQLite_RecordExport_MissingID(t *testing.T) {
	st := newTestSQLiteStore(t)

	err := st.RecordExport(context.Background(), model.JobRecord{Kind: model.KindContacts})
	assert.Error(t, err)
}

func TestSQLite_ListExports(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()
	base := time.Date(2025, 3, 14, 9, 0, 0, 0, time.UTC)

	require.NoError(t, st.RecordExport(ctx, sampleRecord("a", model.KindContacts, base)))
	require.NoError(t, st.RecordExport(ctx, sampleRecord("b", model.KindAnalytics, base.Add(time.Minute))))
	require.NoError(t, st.RecordExport(ctx, sampleRecord("c", model.KindContacts, base.Add(2*time.Minute))))

	t.Run("newest first", func(t *testing.T) {
		recs, err := st.ListExports(ctx, Filter{})
		require.NoError(t, err)
		require.Len(t, recs, 3)
		assert.Equal(t, []string{"c", "b", "a"}, []string{recs[0].ID, recs[1].ID, recs[2].ID})
	})

	t.Run("kind filter", func(t *testing.T) {
		recs, err := st.ListExports(ctx, Filter{Kind: model.KindContacts})
		require.NoError(t, err)
		require.Len(t, recs, 2)
		for _, r := range recs {
			assert.Equal(t, model.KindContacts, r.Kind)
		}
	})

	t.Run("limit", func(t *testing.T) {
		recs, err := st.ListExports(ctx, Filter{Limit: 1})
		require.NoError(t, err)
		require.Len(t, recs, 1)
		assert.Equal(t, "c", recs[0].ID)
	})

	t.Run("since", func(t *testing.T) {
		recs, err := st.ListExports(ctx, Filter{Since: base.Add(30 * time.Second)})
		require.NoError(t, err)
		require.Len(t, recs, 2)
		assert.Equal(t, "c", recs[0].ID)
		assert.Equal(t, "b", recs[1].ID)
	})

	t.Run("no matches", func(t *testing.T) {
		recs, err := st.ListExports(ctx, Filter{Kind: model.KindAgentReport})
		require.NoError(t, err)
		assert.Empty(t, recs)
	})
}

func TestSQLite_MigrateIdempotent(t *testing.T) {
	st := newTestSQLiteStore(t)
	assert.NoError(t, st.Migrate(context.Background()))
}
