package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/totalaudiopromo/intel-export/internal/model"
)

func TestOpen(t *testing.T) {
	ctx := context.Background()

	t.Run("none", func(t *testing.T) {
		st, err := Open(ctx, Config{Driver: "none"})
		require.NoError(t, err)
		assert.Nil(t, st)
	})

	t.Run("empty driver", func(t *testing.T) {
		st, err := Open(ctx, Config{})
		require.NoError(t, err)
		assert.Nil(t, st)
	})

	t.Run("sqlite migrates", func(t *testing.T) {
		st, err := Open(ctx, Config{Driver: "sqlite", DatabaseURL: filepath.Join(t.TempDir(), "history.db")})
		require.NoError(t, err)
		require.NotNil(t, st)
		defer st.Close() //nolint:errcheck

		recs, err := st.ListExports(ctx, Filter{})
		require.NoError(t, err)
		assert.Empty(t, recs)
	})

	t.Run("sqlite without url", func(t *testing.T) {
		_, err := Open(ctx, Config{Driver: "sqlite"})
		assert.Error(t, err)
	})

	t.Run("postgres without url", func(t *testing.T) {
		_, err := Open(ctx, Config{Driver: "postgres"})
		assert.Error(t, err)
	})

	t.Run("unknown driver", func(t *testing.T) {
		_, err := Open(ctx, Config{Driver: "mongo"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), `unknown driver "mongo"`)
	})
}

type mockStore struct {
	mock.Mock
}

func (m *mockStore) RecordExport(ctx context.Context, rec model.JobRecord) error {
	args := m.Called(ctx, rec)
	return args.Error(0)
}

func (m *mockStore) ListExports(ctx context.Context, filter Filter) ([]model.JobRecord, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).([]model.JobRecord), args.Error(1)
}

func (m *mockStore) GetExport(ctx context.Context, id string) (*model.JobRecord, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(*model.JobRecord), args.Error(1)
}

func (m *mockStore) Migrate(ctx context.Context) error { return m.Called(ctx).Error(0) }
func (m *mockStore) Close() error                      { return m.Called().Error(0) }

func TestRecorder_ObserveExport(t *testing.T) {
	ctx := context.Background()
	rec := sampleRecord("job-1", model.KindContacts, time.Now())

	st := new(mockStore)
	st.On("RecordExport", ctx, rec).Return(nil).Once()
	NewRecorder(st).ObserveExport(ctx, rec)
	st.AssertExpectations(t)
}

func TestRecorder_ObserveExport_ErrorIsSwallowed(t *testing.T) {
	ctx := context.Background()
	rec := sampleRecord("job-2", model.KindAnalytics, time.Now())

	st := new(mockStore)
	st.On("RecordExport", ctx, rec).Return(errors.New("disk full")).Once()
	assert.NotPanics(t, func() { NewRecorder(st).ObserveExport(ctx, rec) })
	st.AssertExpectations(t)
}

func TestFilterLimit(t *testing.T) {
	assert.Equal(t, defaultListLimit, Filter{}.limit())
	assert.Equal(t, defaultListLimit, Filter{Limit: -3}.limit())
	assert.Equal(t, 7, Filter{Limit: 7}.limit())
}
