package config

import (
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Export     ExportConfig     `yaml:"export" mapstructure:"export"`
	Delivery   DeliveryConfig   `yaml:"delivery" mapstructure:"delivery"`
	Store      StoreConfig      `yaml:"store" mapstructure:"store"`
	Server     ServerConfig     `yaml:"server" mapstructure:"server"`
	Monitoring MonitoringConfig `yaml:"monitoring" mapstructure:"monitoring"`
	Log        LogConfig        `yaml:"log" mapstructure:"log"`
}

// ExportConfig holds the service-wide export defaults, including the
// white-label branding applied when a call does not override it.
type ExportConfig struct {
	Product                     string `yaml:"product" mapstructure:"product"`
	CompanyName                 string `yaml:"company_name" mapstructure:"company_name"`
	LogoURL                     string `yaml:"logo_url" mapstructure:"logo_url"`
	PrimaryColor                string `yaml:"primary_color" mapstructure:"primary_color"`
	OutputDir                   string `yaml:"output_dir" mapstructure:"output_dir"`
	BaseURL                     string `yaml:"base_url" mapstructure:"base_url"`
	RequireDeliveryConfirmation bool   `yaml:"require_delivery_confirmation" mapstructure:"require_delivery_confirmation"`
}

// DeliveryConfig configures e-mail notification and artifact storage.
type DeliveryConfig struct {
	Driver    string          `yaml:"driver" mapstructure:"driver"`
	From      string          `yaml:"from" mapstructure:"from"`
	HTTP      EmailAPIConfig  `yaml:"http" mapstructure:"http"`
	SMTP      SMTPConfig      `yaml:"smtp" mapstructure:"smtp"`
	Artifacts ArtifactsConfig `yaml:"artifacts" mapstructure:"artifacts"`
}

// EmailAPIConfig configures the transactional e-mail API client.
type EmailAPIConfig struct {
	URL         string  `yaml:"url" mapstructure:"url"`
	APIKey      string  `yaml:"api_key" mapstructure:"api_key"`
	RatePerSec  float64 `yaml:"rate_per_sec" mapstructure:"rate_per_sec"`
	TimeoutSecs int     `yaml:"timeout_secs" mapstructure:"timeout_secs"`
}

// SMTPConfig configures the SMTP relay.
type SMTPConfig struct {
	Host     string `yaml:"host" mapstructure:"host"`
	Port     int    `yaml:"port" mapstructure:"port"`
	Username string `yaml:"username" mapstructure:"username"`
	Password string `yaml:"password" mapstructure:"password"`
}

// ArtifactsConfig selects where generated files are stored.
type ArtifactsConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	FTPURL      string `yaml:"ftp_url" mapstructure:"ftp_url"`
	TimeoutSecs int    `yaml:"timeout_secs" mapstructure:"timeout_secs"`
}

// StoreConfig configures the export history store.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	MaxConns    int32  `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns    int32  `yaml:"min_conns" mapstructure:"min_conns"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Port           int      `yaml:"port" mapstructure:"port"`
	RatePerSec     float64  `yaml:"rate_per_sec" mapstructure:"rate_per_sec"`
	Burst          int      `yaml:"burst" mapstructure:"burst"`
	AllowedOrigins []string `yaml:"allowed_origins" mapstructure:"allowed_origins"`
}

// MonitoringConfig configures export health alerting.
type MonitoringConfig struct {
	Enabled                  bool    `yaml:"enabled" mapstructure:"enabled"`
	WebhookURL               string  `yaml:"webhook_url" mapstructure:"webhook_url"`
	CheckIntervalSecs        int     `yaml:"check_interval_secs" mapstructure:"check_interval_secs"`
	LookbackWindowHours      int     `yaml:"lookback_window_hours" mapstructure:"lookback_window_hours"`
	FailureRateThreshold     float64 `yaml:"failure_rate_threshold" mapstructure:"failure_rate_threshold"`
	DeliveryFailureThreshold int     `yaml:"delivery_failure_threshold" mapstructure:"delivery_failure_threshold"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	return LoadFile("")
}

// LoadFile is Load with an explicit config file. An empty path falls back to
// an optional config.yaml in the working directory; a named file must exist.
func LoadFile(path string) (*Config, error) {
	v := viper.New()

	// Config file
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	// Environment
	v.SetEnvPrefix("INTEL_EXPORT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("export.product", "audio-intel")
	v.SetDefault("export.company_name", "Audio Intel")
	v.SetDefault("export.primary_color", "#1e88e5")
	v.SetDefault("export.output_dir", "exports")
	v.SetDefault("export.require_delivery_confirmation", false)
	v.SetDefault("delivery.driver", "log")
	v.SetDefault("delivery.from", "Audio Intel <exports@audiointel.app>")
	v.SetDefault("delivery.http.url", "https://api.resend.com/emails")
	v.SetDefault("delivery.http.rate_per_sec", 2)
	v.SetDefault("delivery.http.timeout_secs", 10)
	v.SetDefault("delivery.smtp.port", 587)
	v.SetDefault("delivery.artifacts.driver", "file")
	v.SetDefault("delivery.artifacts.timeout_secs", 30)
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "intel-export.db")
	v.SetDefault("store.max_conns", 4)
	v.SetDefault("store.min_conns", 1)
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.rate_per_sec", 10)
	v.SetDefault("server.burst", 20)
	v.SetDefault("server.allowed_origins", []string{"*"})
	v.SetDefault("monitoring.enabled", false)
	v.SetDefault("monitoring.check_interval_secs", 300)
	v.SetDefault("monitoring.lookback_window_hours", 24)
	v.SetDefault("monitoring.failure_rate_threshold", 0.2)
	v.SetDefault("monitoring.delivery_failure_threshold", 5)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// Validate checks the settings a command mode depends on. Modes: export,
// batch, history, serve.
func (c *Config) Validate(mode string) error {
	var errs []string

	switch mode {
	case "export", "batch":
		errs = append(errs, c.validateDelivery()...)
		errs = append(errs, c.validateStore(false)...)
	case "history":
		errs = append(errs, c.validateStore(true)...)
	case "serve":
		errs = append(errs, c.validateDelivery()...)
		errs = append(errs, c.validateStore(false)...)
		if c.Server.Port <= 0 {
			errs = append(errs, "server.port must be > 0")
		}
		if c.Server.RatePerSec < 0 {
			errs = append(errs, "server.rate_per_sec must be >= 0")
		}
		if c.Monitoring.Enabled {
			if c.Monitoring.FailureRateThreshold < 0 || c.Monitoring.FailureRateThreshold > 1 {
				errs = append(errs, "monitoring.failure_rate_threshold must be between 0 and 1")
			}
			if c.Store.Driver == "none" || c.Store.Driver == "" {
				errs = append(errs, "monitoring requires a history store")
			}
		}
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	if len(errs) > 0 {
		return eris.New(fmt.Sprintf("config: %s", strings.Join(errs, "; ")))
	}
	return nil
}

func (c *Config) validateDelivery() []string {
	var errs []string
	switch c.Delivery.Driver {
	case "log":
	case "http":
		if c.Delivery.HTTP.URL == "" {
			errs = append(errs, "delivery.http.url is required")
		}
	case "smtp":
		if c.Delivery.SMTP.Host == "" {
			errs = append(errs, "delivery.smtp.host is required")
		}
	default:
		errs = append(errs, fmt.Sprintf("delivery.driver %q must be log, http or smtp", c.Delivery.Driver))
	}

	switch c.Delivery.Artifacts.Driver {
	case "file":
		if c.Export.OutputDir == "" {
			errs = append(errs, "export.output_dir is required")
		}
	case "ftp":
		if c.Delivery.Artifacts.FTPURL == "" {
			errs = append(errs, "delivery.artifacts.ftp_url is required")
		}
	default:
		errs = append(errs, fmt.Sprintf("delivery.artifacts.driver %q must be file or ftp", c.Delivery.Artifacts.Driver))
	}
	return errs
}

func (c *Config) validateStore(required bool) []string {
	switch c.Store.Driver {
	case "none", "":
		if required {
			return []string{"store.driver must be sqlite or postgres"}
		}
		return nil
	case "sqlite", "postgres":
		if c.Store.DatabaseURL == "" {
			return []string{"store.database_url is required"}
		}
		return nil
	default:
		return []string{fmt.Sprintf("store.driver %q must be none, sqlite or postgres", c.Store.Driver)}
	}
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
