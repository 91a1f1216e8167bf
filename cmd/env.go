package main

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/totalaudiopromo/intel-export/internal/delivery"
	"github.com/totalaudiopromo/intel-export/internal/export"
	"github.com/totalaudiopromo/intel-export/internal/metrics"
	"github.com/totalaudiopromo/intel-export/internal/model"
	"github.com/totalaudiopromo/intel-export/internal/store"
)

// exportEnv holds everything the export, batch and serve commands need.
type exportEnv struct {
	Service *export.Service
	Store   store.Store         // nil when history is disabled
	Files   *delivery.FileStore // nil unless the file artifact driver is used
	Metrics *metrics.Metrics    // nil unless withMetrics was requested
}

// Close releases resources held by the environment.
func (e *exportEnv) Close() {
	if e.Store != nil {
		_ = e.Store.Close()
	}
}

// initExportEnv validates cfg for mode and builds the export service with its
// artifact store, notifier and observers. Callers should defer env.Close().
func initExportEnv(ctx context.Context, mode string, withMetrics bool) (*exportEnv, error) {
	if err := cfg.Validate(mode); err != nil {
		return nil, err
	}

	env := &exportEnv{}

	artifacts, files, err := initArtifacts()
	if err != nil {
		return nil, err
	}
	env.Files = files

	st, err := initStore(ctx)
	if err != nil {
		return nil, err
	}
	env.Store = st

	var observers []export.Observer
	if st != nil {
		observers = append(observers, store.NewRecorder(st))
	}
	if withMetrics {
		env.Metrics = metrics.New()
		observers = append(observers, env.Metrics)
	}

	env.Service = export.NewService(serviceDefaults(), artifacts, initNotifier(), export.WithObservers(observers...))
	return env, nil
}

func serviceDefaults() export.Defaults {
	return export.Defaults{
		Product: cfg.Export.Product,
		WhiteLabel: model.WhiteLabel{
			CompanyName:  cfg.Export.CompanyName,
			LogoURL:      cfg.Export.LogoURL,
			PrimaryColor: cfg.Export.PrimaryColor,
		},
		RequireDeliveryConfirmation: cfg.Export.RequireDeliveryConfirmation,
	}
}

// initArtifacts builds the configured artifact store. The FileStore is also
// returned so the HTTP API can serve what it wrote.
func initArtifacts() (export.ArtifactStore, *delivery.FileStore, error) {
	switch cfg.Delivery.Artifacts.Driver {
	case "ftp":
		fs, err := delivery.NewFTPStore(cfg.Delivery.Artifacts.FTPURL, delivery.FTPOptions{
			Timeout: time.Duration(cfg.Delivery.Artifacts.TimeoutSecs) * time.Second,
		})
		if err != nil {
			return nil, nil, eris.Wrap(err, "init ftp artifact store")
		}
		return fs, nil, nil
	default:
		fs, err := delivery.NewFileStore(cfg.Export.OutputDir, cfg.Export.BaseURL)
		if err != nil {
			return nil, nil, err
		}
		return fs, fs, nil
	}
}

func initNotifier() export.Notifier {
	d := cfg.Delivery
	switch d.Driver {
	case "http":
		zap.L().Debug("email delivery via http api", zap.String("url", d.HTTP.URL))
		return delivery.NewHTTPNotifier(delivery.HTTPNotifierConfig{
			URL:        d.HTTP.URL,
			APIKey:     d.HTTP.APIKey,
			From:       d.From,
			RatePerSec: d.HTTP.RatePerSec,
			Timeout:    time.Duration(d.HTTP.TimeoutSecs) * time.Second,
		})
	case "smtp":
		zap.L().Debug("email delivery via smtp", zap.String("host", d.SMTP.Host))
		return delivery.NewSMTPNotifier(delivery.SMTPNotifierConfig{
			Host:     d.SMTP.Host,
			Port:     d.SMTP.Port,
			Username: d.SMTP.Username,
			Password: d.SMTP.Password,
			From:     d.From,
		})
	default:
		return delivery.LogNotifier{}
	}
}

// initStore opens the history store. It returns nil when history is disabled.
func initStore(ctx context.Context) (store.Store, error) {
	st, err := store.Open(ctx, store.Config{
		Driver:      cfg.Store.Driver,
		DatabaseURL: cfg.Store.DatabaseURL,
		MaxConns:    cfg.Store.MaxConns,
		MinConns:    cfg.Store.MinConns,
	})
	if err != nil {
		return nil, eris.Wrap(err, "init history store")
	}
	return st, nil
}
