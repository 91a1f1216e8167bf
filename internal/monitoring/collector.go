package monitoring

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/totalaudiopromo/intel-export/internal/model"
	"github.com/totalaudiopromo/intel-export/internal/store"
)

// collectLimit caps how many history rows one collection scans.
const collectLimit = 10000

// MetricsSnapshot holds a point-in-time view of export health.
type MetricsSnapshot struct {
	// Export jobs (within lookback window).
	ExportTotal     int                `json:"export_total"`
	ExportSucceeded int                `json:"export_succeeded"`
	ExportFailed    int                `json:"export_failed"`
	ExportFailRate  float64            `json:"export_fail_rate"`
	ItemsExported   int                `json:"items_exported"`
	ItemsDropped    int                `json:"items_dropped"`
	BytesWritten    int64              `json:"bytes_written"`
	AvgDurationMS   int64              `json:"avg_duration_ms"`
	ByKind          map[model.Kind]int `json:"by_kind"`

	// E-mail delivery.
	DeliverySent   int `json:"delivery_sent"`
	DeliveryFailed int `json:"delivery_failed"`

	// Metadata.
	LookbackHours int       `json:"lookback_hours"`
	CollectedAt   time.Time `json:"collected_at"`
}

// HistoryQuerier abstracts the store method needed by the collector.
type HistoryQuerier interface {
	ListExports(ctx context.Context, filter store.Filter) ([]model.JobRecord, error)
}

// Collector gathers metrics from the export history.
type Collector struct {
	history HistoryQuerier
	now     func() time.Time
}

// NewCollector creates a new metrics collector.
func NewCollector(history HistoryQuerier) *Collector {
	return &Collector{history: history, now: time.Now}
}

// Collect gathers a snapshot of export metrics over the given lookback window.
func (c *Collector) Collect(ctx context.Context, lookbackHours int) (*MetricsSnapshot, error) {
	now := c.now().UTC()
	snap := &MetricsSnapshot{
		ByKind:        make(map[model.Kind]int),
		LookbackHours: lookbackHours,
		CollectedAt:   now,
	}

	cutoff := now.Add(-time.Duration(lookbackHours) * time.Hour)
	recs, err := c.history.ListExports(ctx, store.Filter{Since: cutoff, Limit: collectLimit})
	if err != nil {
		return nil, eris.Wrap(err, "monitoring: list exports")
	}

	var totalDuration time.Duration
	for _, r := range recs {
		snap.ExportTotal++
		snap.ByKind[r.Kind]++
		if r.Success {
			snap.ExportSucceeded++
			snap.ItemsExported += r.ItemCount
			snap.BytesWritten += int64(r.Bytes)
		} else {
			snap.ExportFailed++
		}
		snap.ItemsDropped += r.Dropped
		totalDuration += r.Duration

		switch r.Delivery {
		case model.DeliverySent:
			snap.DeliverySent++
		case model.DeliveryFailed:
			snap.DeliveryFailed++
		}
	}

	if snap.ExportTotal > 0 {
		snap.ExportFailRate = float64(snap.ExportFailed) / float64(snap.ExportTotal)
		snap.AvgDurationMS = (totalDuration / time.Duration(snap.ExportTotal)).Milliseconds()
	}

	return snap, nil
}
