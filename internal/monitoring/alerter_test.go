package monitoring

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/totalaudiopromo/intel-export/internal/config"
)

func TestAlerter_Evaluate_NoAlerts(t *testing.T) {
	a := NewAlerter(config.MonitoringConfig{
		FailureRateThreshold:     0.10,
		DeliveryFailureThreshold: 5,
	})

	snap := &MetricsSnapshot{
		ExportTotal:    100,
		ExportFailed:   5,
		ExportFailRate: 0.05,
		DeliveryFailed: 1,
		LookbackHours:  24,
	}

	alerts := a.Evaluate(snap)
	assert.Empty(t, alerts)
}

func TestAlerter_Evaluate_ExportFailureRate(t *testing.T) {
	a := NewAlerter(config.MonitoringConfig{
		FailureRateThreshold: 0.10,
	})

	snap := &MetricsSnapshot{
		ExportTotal:    20,
		ExportFailed:   8,
		ExportFailRate: 0.4,
		LookbackHours:  24,
	}

	alerts := a.Evaluate(snap)
	require.Len(t, alerts, 1)
	assert.Equal(t, AlertExportFailureRate, alerts[0].Type)
	assert.Equal(t, "high", alerts[0].Severity)
	assert.Contains(t, alerts[0].Message, "40.0%")
	assert.Contains(t, alerts[0].Message, "8 failed / 20")
}

func TestAlerter_Evaluate_DeliveryFailure(t *testing.T) {
	a := NewAlerter(config.MonitoringConfig{
		FailureRateThreshold:     0.5,
		DeliveryFailureThreshold: 3,
	})

	snap := &MetricsSnapshot{
		ExportTotal:    10,
		DeliverySent:   4,
		DeliveryFailed: 3,
		LookbackHours:  12,
	}

	alerts := a.Evaluate(snap)
	require.Len(t, alerts, 1)
	assert.Equal(t, AlertDeliveryFailure, alerts[0].Type)
	assert.Contains(t, alerts[0].Message, "3 export e-mail(s)")
	assert.Contains(t, alerts[0].Message, "12h")
}

func TestAlerter_Evaluate_MultipleAlerts(t *testing.T) {
	a := NewAlerter(config.MonitoringConfig{
		FailureRateThreshold:     0.10,
		DeliveryFailureThreshold: 1,
	})

	snap := &MetricsSnapshot{
		ExportTotal:    20,
		ExportFailed:   10,
		ExportFailRate: 0.5,
		DeliveryFailed: 2,
		LookbackHours:  24,
	}

	alerts := a.Evaluate(snap)
	require.Len(t, alerts, 2)
	assert.Equal(t, AlertExportFailureRate, alerts[0].Type)
	assert.Equal(t, AlertDeliveryFailure, alerts[1].Type)
}

func TestAlerter_Evaluate_MinimumExportsRequired(t *testing.T) {
	a := NewAlerter(config.MonitoringConfig{
		FailureRateThreshold: 0.10,
	})

	// Only 3 exports, below the minimum for a failure rate alert.
	snap := &MetricsSnapshot{
		ExportTotal:    3,
		ExportFailed:   2,
		ExportFailRate: 0.666,
		LookbackHours:  24,
	}

	alerts := a.Evaluate(snap)
	assert.Empty(t, alerts)
}

func TestAlerter_Evaluate_ZeroDeliveryThreshold(t *testing.T) {
	a := NewAlerter(config.MonitoringConfig{
		FailureRateThreshold:     1,
		DeliveryFailureThreshold: 0, // disabled
	})

	alerts := a.Evaluate(&MetricsSnapshot{DeliveryFailed: 99, LookbackHours: 24})
	assert.Empty(t, alerts)
}

func TestAlerter_SendAlerts_Webhook(t *testing.T) {
	var received atomic.Int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		var alert Alert
		err := json.NewDecoder(r.Body).Decode(&alert)
		require.NoError(t, err)
		assert.NotEmpty(t, alert.Type)
		assert.Equal(t, "intel-export", alert.Source)
		assert.False(t, alert.Timestamp.IsZero())
		assert.Equal(t, "intel-export/1.0", r.Header.Get("User-Agent"))
		received.Add(1)
		w.WriteHeader(http.StatusOK)
	}))
	defer ts.Close()

	a := NewAlerter(config.MonitoringConfig{
		WebhookURL: ts.URL,
	})

	alerts := []Alert{
		{Type: AlertExportFailureRate, Severity: "high", Message: "test alert 1"},
		{Type: AlertDeliveryFailure, Severity: "medium", Message: "test alert 2"},
	}

	sent := a.SendAlerts(context.Background(), alerts)
	assert.Equal(t, 2, sent)
	assert.Equal(t, int32(2), received.Load())
}

func TestAlerter_SendAlerts_EmptyURL(t *testing.T) {
	a := NewAlerter(config.MonitoringConfig{
		WebhookURL: "",
	})

	sent := a.SendAlerts(context.Background(), []Alert{
		{Type: AlertExportFailureRate, Message: "test"},
	})
	assert.Equal(t, 0, sent)
}

func TestAlerter_SendAlerts_EmptyAlerts(t *testing.T) {
	a := NewAlerter(config.MonitoringConfig{
		WebhookURL: "http://example.com",
	})

	sent := a.SendAlerts(context.Background(), nil)
	assert.Equal(t, 0, sent)
}

func TestAlerter_SendAlerts_WebhookError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer ts.Close()

	a := NewAlerter(config.MonitoringConfig{
		WebhookURL: ts.URL,
	})

	sent := a.SendAlerts(context.Background(), []Alert{{Type: AlertExportFailureRate, Message: "test"}})
	assert.Equal(t, 0, sent)
}
