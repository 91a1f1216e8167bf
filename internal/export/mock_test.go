package export

import (
	"context"
	"sync"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/totalaudiopromo/intel-export/internal/model"
)

// --- ArtifactStore Mock ---

type mockArtifactStore struct {
	mock.Mock
}

func (m *mockArtifactStore) CreateArtifact(ctx context.Context, data []byte, filename, mimeType string) (string, error) {
	args := m.Called(ctx, data, filename, mimeType)
	return args.String(0), args.Error(1)
}

// --- Notifier Mock ---

type mockNotifier struct {
	mock.Mock
}

func (m *mockNotifier) Notify(ctx context.Context, n model.Notification) error {
	args := m.Called(ctx, n)
	return args.Error(0)
}

// --- Observer ---

type recordingObserver struct {
	mu   sync.Mutex
	jobs []model.JobRecord
}

func (o *recordingObserver) ObserveExport(_ context.Context, rec model.JobRecord) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.jobs = append(o.jobs, rec)
}

// --- Progress sink ---

type progressLog struct {
	events []model.ProgressEvent
}

func (p *progressLog) sink(e model.ProgressEvent) {
	p.events = append(p.events, e)
}

func (p *progressLog) stages() []model.Stage {
	out := make([]model.Stage, len(p.events))
	for i, e := range p.events {
		out[i] = e.Stage
	}
	return out
}

func (p *progressLog) percentages() []float64 {
	out := make([]float64, len(p.events))
	for i, e := range p.events {
		out[i] = e.Percentage
	}
	return out
}

var fixedTime = time.Date(2025, 3, 14, 9, 30, 0, 0, time.UTC)

func newTestService(artifacts ArtifactStore, notifier Notifier, opts ...Option) *Service {
	opts = append([]Option{
		WithClock(func() time.Time { return fixedTime }),
		WithIDGenerator(func() string { return "job-1" }),
	}, opts...)
	return NewService(Defaults{
		Product:    "audio-intel",
		WhiteLabel: model.WhiteLabel{CompanyName: "Audio Intel", PrimaryColor: "#1E88E5"},
	}, artifacts, notifier, opts...)
}
