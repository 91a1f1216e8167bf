package export

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/totalaudiopromo/intel-export/internal/model"
)

func TestBatchExport_Aggregation(t *testing.T) {
	t.Parallel()

	store := new(mockArtifactStore)
	store.On("CreateArtifact", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return("u", nil)
	obs := &recordingObserver{}
	svc := newTestService(store, nil, WithObservers(obs))
	snap := sampleSnapshot()
	var p progressLog

	res := svc.BatchExport(context.Background(), model.BatchInput{
		Contacts:  sampleContacts(), // 3 valid, 1 invalid
		Analytics: &snap,
	}, model.Options{Format: "csv"}, "chris", p.sink)

	require.True(t, res.Success, res.Message)
	assert.Equal(t, 2, res.Summary.TotalExports)
	assert.Equal(t, 4, res.Summary.TotalItems)
	assert.Equal(t, res.Summary.TotalExports, res.Summary.SuccessfulExports+res.Summary.FailedExports)
	require.Len(t, res.Results, 2)
	assert.Equal(t, model.KindContacts, res.Results[0].Kind)
	assert.Equal(t, model.KindAnalytics, res.Results[1].Kind)
	assert.Equal(t, "Batch export completed: 2 successful, 0 failed", res.Message)

	// Batch-level events only; sub-jobs stay silent.
	assert.Equal(t, []model.Stage{
		model.StagePreparing, model.StageProcessing, model.StageProcessing, model.StageComplete,
	}, p.stages())
	assert.Equal(t, []float64{0, 0, 50, 100}, p.percentages())

	assert.Len(t, obs.jobs, 2)
}

func TestBatchExport_AllKinds(t *testing.T) {
	t.Parallel()

	snap, set, report := sampleSnapshot(), sampleSearch(), sampleReport()
	res := newTestService(nil, nil).BatchExport(context.Background(), model.BatchInput{
		Contacts:      sampleContacts(),
		Analytics:     &snap,
		SearchResults: &set,
		AgentReport:   &report,
	}, model.Options{Format: "spreadsheet"}, "", nil)

	require.True(t, res.Success)
	assert.Equal(t, 4, res.Summary.TotalExports)
	assert.Equal(t, 3+1+2+1, res.Summary.TotalItems)
	kinds := make([]model.Kind, len(res.Results))
	for i, r := range res.Results {
		kinds[i] = r.Kind
	}
	assert.Equal(t, []model.Kind{model.KindContacts, model.KindAnalytics, model.KindSearchResults, model.KindAgentReport}, kinds)
}

func TestBatchExport_PartialFailure(t *testing.T) {
	t.Parallel()

	empty := model.AgentReport{AgentType: "x"}
	res := newTestService(nil, nil).BatchExport(context.Background(), model.BatchInput{
		Contacts:    sampleContacts(),
		AgentReport: &empty,
	}, model.Options{Format: "csv"}, "", nil)

	assert.False(t, res.Success)
	assert.Equal(t, 1, res.Summary.SuccessfulExports)
	assert.Equal(t, 1, res.Summary.FailedExports)
	assert.True(t, res.Results[0].Success)
	assert.False(t, res.Results[1].Success)
}

func TestBatchExport_SkipsEmptyInputs(t *testing.T) {
	t.Parallel()

	set := model.SearchResultSet{Query: "none"}
	var p progressLog
	res := newTestService(nil, nil).BatchExport(context.Background(), model.BatchInput{
		Contacts:      []model.ContactRecord{},
		SearchResults: &set,
	}, model.Options{Format: "csv"}, "", p.sink)

	assert.False(t, res.Success)
	assert.Equal(t, "No data provided for batch export", res.Message)
	assert.Empty(t, res.Results)
	assert.Zero(t, res.Summary.TotalExports)
	assert.Equal(t, []model.Stage{model.StageComplete}, p.stages())
}

func TestBatchExport_InvalidContactsFailTheirTask(t *testing.T) {
	t.Parallel()

	snap := sampleSnapshot()
	var p progressLog
	res := newTestService(nil, nil).BatchExport(context.Background(), model.BatchInput{
		Contacts:  []model.ContactRecord{{Name: "no email"}, {Name: "also none"}},
		Analytics: &snap,
	}, model.Options{Format: "csv"}, "", p.sink)

	assert.False(t, res.Success)
	assert.Equal(t, 2, res.Summary.TotalExports)
	assert.Equal(t, 1, res.Summary.SuccessfulExports)
	assert.Equal(t, 1, res.Summary.FailedExports)
	assert.Equal(t, 1, res.Summary.TotalItems)
	assert.Equal(t, "Batch export completed: 1 successful, 1 failed", res.Message)

	require.Len(t, res.Results, 2)
	assert.Equal(t, model.KindContacts, res.Results[0].Kind)
	assert.False(t, res.Results[0].Success)
	assert.Equal(t, "No valid contacts found for export", res.Results[0].Message)
	assert.True(t, IsValidation(res.Results[0].Err))
	assert.True(t, res.Results[1].Success)

	assert.Equal(t, []model.Stage{
		model.StagePreparing, model.StageProcessing, model.StageProcessing, model.StageComplete,
	}, p.stages())
}

func TestBatchExport_UnsupportedFormatFailsEveryTask(t *testing.T) {
	t.Parallel()

	snap := sampleSnapshot()
	res := newTestService(nil, nil).BatchExport(context.Background(), model.BatchInput{
		Contacts:  sampleContacts(),
		Analytics: &snap,
	}, model.Options{Format: "json"}, "", nil)

	assert.False(t, res.Success)
	assert.Equal(t, 2, res.Summary.FailedExports)
	for _, r := range res.Results {
		assert.True(t, IsUnsupportedFormat(r.Err))
	}
}
