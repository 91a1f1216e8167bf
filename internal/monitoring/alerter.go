package monitoring

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/totalaudiopromo/intel-export/internal/config"
)

// AlertType identifies the kind of alert.
type AlertType string

const (
	AlertExportFailureRate AlertType = "export_failure_rate"
	AlertDeliveryFailure   AlertType = "delivery_failure"
)

// minFinishedForRate is the sample size below which the failure rate is
// not evaluated.
const minFinishedForRate = 5

const alertSource = "intel-export"

// Alert is one threshold breach, posted to the webhook as JSON.
type Alert struct {
	Source    string         `json:"source"`
	Type      AlertType      `json:"type"`
	Severity  string         `json:"severity"`
	Message   string         `json:"message"`
	Details   map[string]any `json:"details,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}

// Alerter evaluates a MetricsSnapshot against configured thresholds
// and sends alerts via webhook when thresholds are breached.
type Alerter struct {
	cfg    config.MonitoringConfig
	client *http.Client
}

// NewAlerter creates a new Alerter with the given monitoring config.
func NewAlerter(cfg config.MonitoringConfig) *Alerter {
	return &Alerter{
		cfg:    cfg,
		client: &http.Client{Timeout: 10 * time.Second},
	}
}

// Evaluate checks the snapshot against thresholds and returns any alerts.
func (a *Alerter) Evaluate(snap *MetricsSnapshot) []Alert {
	var alerts []Alert
	now := time.Now().UTC()

	if snap.ExportTotal >= minFinishedForRate && snap.ExportFailRate > a.cfg.FailureRateThreshold {
		alerts = append(alerts, Alert{
			Type:     AlertExportFailureRate,
			Severity: "high",
			Message: fmt.Sprintf(
				"Export failure rate %.1f%% exceeds threshold %.1f%% (%d failed / %d in last %dh)",
				snap.ExportFailRate*100, a.cfg.FailureRateThreshold*100,
				snap.ExportFailed, snap.ExportTotal, snap.LookbackHours,
			),
			Details: map[string]any{
				"failure_rate": snap.ExportFailRate,
				"threshold":    a.cfg.FailureRateThreshold,
				"failed":       snap.ExportFailed,
				"total":        snap.ExportTotal,
			},
			Timestamp: now,
		})
	}

	if a.cfg.DeliveryFailureThreshold > 0 && snap.DeliveryFailed >= a.cfg.DeliveryFailureThreshold {
		alerts = append(alerts, Alert{
			Type:     AlertDeliveryFailure,
			Severity: "medium",
			Message: fmt.Sprintf(
				"%d export e-mail(s) failed to deliver in last %dh",
				snap.DeliveryFailed, snap.LookbackHours,
			),
			Details: map[string]any{
				"failed": snap.DeliveryFailed,
				"sent":   snap.DeliverySent,
			},
			Timestamp: now,
		})
	}

	return alerts
}

// SendAlerts posts each alert to the webhook and reports how many were
// accepted. Failures are logged and skipped.
func (a *Alerter) SendAlerts(ctx context.Context, alerts []Alert) int {
	if a.cfg.WebhookURL == "" || len(alerts) == 0 {
		return 0
	}

	log := zap.L().With(zap.String("component", "monitoring"))
	sent := 0
	for _, alert := range alerts {
		if err := a.post(ctx, alert); err != nil {
			log.Error("monitoring: alert not delivered",
				zap.String("type", string(alert.Type)),
				zap.Error(err),
			)
			continue
		}
		log.Info("monitoring: alert delivered",
			zap.String("type", string(alert.Type)),
			zap.String("severity", alert.Severity),
			zap.String("message", alert.Message),
		)
		sent++
	}
	return sent
}

func (a *Alerter) post(ctx context.Context, alert Alert) error {
	if alert.Source == "" {
		alert.Source = alertSource
	}
	if alert.Timestamp.IsZero() {
		alert.Timestamp = time.Now().UTC()
	}

	body, err := json.Marshal(alert)
	if err != nil {
		return eris.Wrap(err, "monitoring: encode alert")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.cfg.WebhookURL, bytes.NewReader(body))
	if err != nil {
		return eris.Wrap(err, "monitoring: build webhook request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", alertSource+"/1.0")

	resp, err := a.client.Do(req)
	if err != nil {
		return eris.Wrapf(err, "monitoring: post alert %s", alert.Type)
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode/100 != 2 {
		return eris.Errorf("monitoring: webhook answered %d", resp.StatusCode)
	}
	return nil
}
