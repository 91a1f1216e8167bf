package export

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/totalaudiopromo/intel-export/internal/model"
)

type batchTask struct {
	kind  model.Kind
	items int
	run   func(context.Context) model.Result
}

// tasks builds one task per non-empty input, in a fixed order. A contact
// list with no valid record still gets a task so its validation failure
// shows up in the batch result; it contributes no items.
func (s *Service) tasks(in model.BatchInput, opts model.Options, user string) []batchTask {
	var out []batchTask
	if len(in.Contacts) > 0 {
		valid, _ := model.FilterContacts(in.Contacts)
		out = append(out, batchTask{model.KindContacts, len(valid), func(ctx context.Context) model.Result {
			return s.ExportContacts(ctx, in.Contacts, opts, user, nil)
		}})
	}
	if in.Analytics != nil {
		snap := *in.Analytics
		out = append(out, batchTask{model.KindAnalytics, 1, func(ctx context.Context) model.Result {
			return s.ExportAnalytics(ctx, snap, opts, user, nil)
		}})
	}
	if in.SearchResults != nil && len(in.SearchResults.Results) > 0 {
		set := *in.SearchResults
		out = append(out, batchTask{model.KindSearchResults, len(set.Results), func(ctx context.Context) model.Result {
			return s.ExportSearchResults(ctx, set, opts, user, nil)
		}})
	}
	if in.AgentReport != nil {
		r := *in.AgentReport
		out = append(out, batchTask{model.KindAgentReport, 1, func(ctx context.Context) model.Result {
			return s.ExportAgentReport(ctx, r, opts, user, nil)
		}})
	}
	return out
}

// BatchExport runs one export per non-empty input sequentially. Sub-jobs do
// not report to onProgress; the batch emits its own preparing, per-task
// processing and complete events.
func (s *Service) BatchExport(ctx context.Context, in model.BatchInput, opts model.Options, user string, onProgress ProgressFunc) model.BatchResult {
	tasks := s.tasks(in, opts, user)
	n := len(tasks)
	emit := func(current int, stage model.Stage, msg string) {
		if onProgress == nil {
			return
		}
		pct := 100.0
		if n > 0 && stage != model.StageComplete {
			pct = float64(current) / float64(n) * 100
		}
		onProgress(model.ProgressEvent{Current: current, Total: n, Percentage: pct, Stage: stage, Message: msg})
	}

	if n == 0 {
		const msg = "No data provided for batch export"
		emit(0, model.StageComplete, msg)
		return model.BatchResult{Success: false, Message: msg, Results: []model.Result{}}
	}

	emit(0, model.StagePreparing, fmt.Sprintf("Preparing batch export of %d data types...", n))

	res := model.BatchResult{Results: make([]model.Result, 0, n)}
	res.Summary.TotalExports = n
	for i, t := range tasks {
		emit(i, model.StageProcessing, fmt.Sprintf("Processing %s export...", t.kind))
		r := t.run(ctx)
		res.Results = append(res.Results, r)
		res.Summary.TotalItems += t.items
		if r.Success {
			res.Summary.SuccessfulExports++
		} else {
			res.Summary.FailedExports++
		}
	}

	res.Success = res.Summary.FailedExports == 0
	res.Message = fmt.Sprintf("Batch export completed: %d successful, %d failed",
		res.Summary.SuccessfulExports, res.Summary.FailedExports)
	zap.L().Info("export: batch complete",
		zap.Int("exports", n),
		zap.Int("failed", res.Summary.FailedExports),
		zap.Int("items", res.Summary.TotalItems),
	)
	emit(n, model.StageComplete, res.Message)
	return res
}
