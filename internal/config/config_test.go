package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func chdirTemp(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) }) //nolint:errcheck
	return dir
}

func TestLoadDefaults(t *testing.T) {
	// Change to temp dir so no config.yaml is found
	chdirTemp(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "audio-intel", cfg.Export.Product)
	assert.Equal(t, "Audio Intel", cfg.Export.CompanyName)
	assert.Equal(t, "#1e88e5", cfg.Export.PrimaryColor)
	assert.Equal(t, "exports", cfg.Export.OutputDir)
	assert.False(t, cfg.Export.RequireDeliveryConfirmation)
	assert.Equal(t, "log", cfg.Delivery.Driver)
	assert.Equal(t, "https://api.resend.com/emails", cfg.Delivery.HTTP.URL)
	assert.InDelta(t, 2.0, cfg.Delivery.HTTP.RatePerSec, 0.001)
	assert.Equal(t, 587, cfg.Delivery.SMTP.Port)
	assert.Equal(t, "file", cfg.Delivery.Artifacts.Driver)
	assert.Equal(t, "sqlite", cfg.Store.Driver)
	assert.Equal(t, "intel-export.db", cfg.Store.DatabaseURL)
	assert.Equal(t, int32(4), cfg.Store.MaxConns)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.InDelta(t, 10.0, cfg.Server.RatePerSec, 0.001)
	assert.Equal(t, 20, cfg.Server.Burst)
	assert.Equal(t, []string{"*"}, cfg.Server.AllowedOrigins)
	assert.False(t, cfg.Monitoring.Enabled)
	assert.Equal(t, 24, cfg.Monitoring.LookbackWindowHours)
	assert.InDelta(t, 0.2, cfg.Monitoring.FailureRateThreshold, 0.001)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
}

func TestLoadFromYAML(t *testing.T) {
	dir := chdirTemp(t)

	yaml := `
export:
  company_name: Label Co
  primary_color: "#ff0010"
  require_delivery_confirmation: true
delivery:
  driver: smtp
  smtp:
    host: smtp.example.com
store:
  driver: postgres
  database_url: postgres://localhost/intel
log:
  level: debug
  format: console
server:
  port: 9090
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644))

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "Label Co", cfg.Export.CompanyName)
	assert.Equal(t, "#ff0010", cfg.Export.PrimaryColor)
	assert.True(t, cfg.Export.RequireDeliveryConfirmation)
	assert.Equal(t, "smtp", cfg.Delivery.Driver)
	assert.Equal(t, "smtp.example.com", cfg.Delivery.SMTP.Host)
	assert.Equal(t, "postgres", cfg.Store.Driver)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "console", cfg.Log.Format)
	assert.Equal(t, 9090, cfg.Server.Port)
	// Defaults still apply for unset values
	assert.Equal(t, 587, cfg.Delivery.SMTP.Port)
	assert.Equal(t, "audio-intel", cfg.Export.Product)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	dir := chdirTemp(t)

	yaml := `
store:
  driver: sqlite
log:
  level: debug
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644))

	t.Setenv("INTEL_EXPORT_STORE_DRIVER", "none")
	t.Setenv("INTEL_EXPORT_LOG_LEVEL", "warn")

	cfg, err := Load()
	require.NoError(t, err)

	// Env overrides file
	assert.Equal(t, "none", cfg.Store.Driver)
	assert.Equal(t, "warn", cfg.Log.Level)
}

func TestLoadEnvOverridesDefaults(t *testing.T) {
	chdirTemp(t)

	t.Setenv("INTEL_EXPORT_SERVER_PORT", "3000")
	t.Setenv("INTEL_EXPORT_EXPORT_COMPANY_NAME", "Radio Desk")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 3000, cfg.Server.Port)
	assert.Equal(t, "Radio Desk", cfg.Export.CompanyName)
}

func TestLoadInvalidYAML(t *testing.T) {
	dir := chdirTemp(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("export: [unclosed"), 0644))

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "config: read file")
}

func TestInitLoggerConsole(t *testing.T) {
	err := InitLogger(LogConfig{Level: "debug", Format: "console"})
	require.NoError(t, err)
	assert.NotNil(t, zap.L())
}

func TestInitLoggerJSON(t *testing.T) {
	err := InitLogger(LogConfig{Level: "info", Format: "json"})
	require.NoError(t, err)
	assert.NotNil(t, zap.L())
}

func TestInitLoggerInvalidLevel(t *testing.T) {
	err := InitLogger(LogConfig{Level: "invalid", Format: "json"})
	assert.Error(t, err)
}

// validDefaults returns a Config with all defaults populated for validation tests.
func validDefaults() *Config {
	cfg := &Config{}
	cfg.Export.OutputDir = "exports"
	cfg.Delivery.Driver = "log"
	cfg.Delivery.Artifacts.Driver = "file"
	cfg.Store.Driver = "sqlite"
	cfg.Store.DatabaseURL = "intel-export.db"
	cfg.Server.Port = 8080
	cfg.Monitoring.FailureRateThreshold = 0.2
	return cfg
}

func TestValidate_Defaults(t *testing.T) {
	cfg := validDefaults()
	for _, mode := range []string{"export", "batch", "history", "serve"} {
		assert.NoError(t, cfg.Validate(mode), mode)
	}
}

func TestValidate_Delivery(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:    "http without url",
			mutate:  func(c *Config) { c.Delivery.Driver = "http" },
			wantErr: "delivery.http.url is required",
		},
		{
			name:    "smtp without host",
			mutate:  func(c *Config) { c.Delivery.Driver = "smtp" },
			wantErr: "delivery.smtp.host is required",
		},
		{
			name:    "unknown driver",
			mutate:  func(c *Config) { c.Delivery.Driver = "pigeon" },
			wantErr: `delivery.driver "pigeon"`,
		},
		{
			name:    "ftp without url",
			mutate:  func(c *Config) { c.Delivery.Artifacts.Driver = "ftp" },
			wantErr: "delivery.artifacts.ftp_url is required",
		},
		{
			name:    "file without output dir",
			mutate:  func(c *Config) { c.Export.OutputDir = "" },
			wantErr: "export.output_dir is required",
		},
		{
			name:    "unknown artifact driver",
			mutate:  func(c *Config) { c.Delivery.Artifacts.Driver = "s3" },
			wantErr: `delivery.artifacts.driver "s3"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validDefaults()
			tt.mutate(cfg)
			err := cfg.Validate("export")
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestValidate_Store(t *testing.T) {
	cfg := validDefaults()
	cfg.Store.Driver = "none"
	assert.NoError(t, cfg.Validate("export"))

	err := cfg.Validate("history")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "store.driver must be sqlite or postgres")

	cfg.Store.Driver = "postgres"
	cfg.Store.DatabaseURL = ""
	err = cfg.Validate("export")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "store.database_url is required")

	cfg.Store.Driver = "mysql"
	err = cfg.Validate("history")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `store.driver "mysql"`)
}

func TestValidateServe(t *testing.T) {
	cfg := validDefaults()
	cfg.Server.Port = 0
	err := cfg.Validate("serve")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "server.port must be > 0")

	cfg = validDefaults()
	cfg.Server.RatePerSec = -1
	err = cfg.Validate("serve")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "server.rate_per_sec must be >= 0")
}

func TestValidateServe_Monitoring(t *testing.T) {
	cfg := validDefaults()
	cfg.Monitoring.Enabled = true
	assert.NoError(t, cfg.Validate("serve"))

	cfg.Monitoring.FailureRateThreshold = 1.5
	err := cfg.Validate("serve")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failure_rate_threshold")

	cfg.Monitoring.FailureRateThreshold = 0.2
	cfg.Store.Driver = "none"
	err = cfg.Validate("serve")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "monitoring requires a history store")
}

func TestValidateUnknownMode(t *testing.T) {
	cfg := validDefaults()
	err := cfg.Validate("unknown")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "unknown mode")
}

func TestLoadFile_Explicit(t *testing.T) {
	chdirTemp(t)
	p := filepath.Join(t.TempDir(), "custom.yaml")
	require.NoError(t, os.WriteFile(p, []byte("server:\n  port: 9191\n"), 0o644))

	cfg, err := LoadFile(p)
	require.NoError(t, err)
	assert.Equal(t, 9191, cfg.Server.Port)
	assert.Equal(t, "audio-intel", cfg.Export.Product)
}

func TestLoadFile_Missing(t *testing.T) {
	_, err := LoadFile(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "config: read file")
}
