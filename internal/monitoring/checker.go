package monitoring

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/totalaudiopromo/intel-export/internal/config"
)

const defaultCheckInterval = 5 * time.Minute

// Checker evaluates export health on a fixed interval and forwards any
// alerts to the webhook.
type Checker struct {
	collector *Collector
	alerter   *Alerter
	cfg       config.MonitoringConfig
	log       *zap.Logger
}

// NewChecker creates a Checker. A nil logger means zap.L().
func NewChecker(collector *Collector, alerter *Alerter, cfg config.MonitoringConfig, log *zap.Logger) *Checker {
	if log == nil {
		log = zap.L()
	}
	return &Checker{
		collector: collector,
		alerter:   alerter,
		cfg:       cfg,
		log:       log.With(zap.String("component", "monitoring")),
	}
}

// Interval returns the configured check period.
func (c *Checker) Interval() time.Duration {
	if c.cfg.CheckIntervalSecs <= 0 {
		return defaultCheckInterval
	}
	return time.Duration(c.cfg.CheckIntervalSecs) * time.Second
}

// Run checks once immediately and then every Interval until ctx is done.
func (c *Checker) Run(ctx context.Context) {
	interval := c.Interval()
	c.log.Info("monitoring: checker started",
		zap.Duration("interval", interval),
		zap.Int("lookback_hours", c.cfg.LookbackWindowHours),
	)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if _, err := c.Check(ctx); err != nil {
			c.log.Error("monitoring: check failed", zap.Error(err))
		}
		select {
		case <-ctx.Done():
			c.log.Info("monitoring: checker stopped")
			return
		case <-ticker.C:
		}
	}
}

// Check collects one snapshot, evaluates it and sends the resulting alerts.
// It returns the alerts that fired.
func (c *Checker) Check(ctx context.Context) ([]Alert, error) {
	snap, err := c.collector.Collect(ctx, c.cfg.LookbackWindowHours)
	if err != nil {
		return nil, err
	}

	alerts := c.alerter.Evaluate(snap)
	if len(alerts) == 0 {
		c.log.Debug("monitoring: healthy",
			zap.Int("exports", snap.ExportTotal),
			zap.Float64("fail_rate", snap.ExportFailRate),
		)
		return nil, nil
	}

	sent := c.alerter.SendAlerts(ctx, alerts)
	c.log.Info("monitoring: alerts triggered",
		zap.Int("triggered", len(alerts)),
		zap.Int("sent", sent),
	)
	return alerts, nil
}
