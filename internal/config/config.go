package config

import (
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/sells-group/arcgis-admin-cli/internal/resilience"
)

// Config holds the full application configuration.
type Config struct {
	ArcGIS    ArcGISConfig    `yaml:"arcgis" mapstructure:"arcgis"`
	Portal    PortalConfig    `yaml:"portal" mapstructure:"portal"`
	Report    ReportConfig    `yaml:"report" mapstructure:"report"`
	Usage     UsageConfig     `yaml:"usage" mapstructure:"usage"`
	Archive   ArchiveConfig   `yaml:"archive" mapstructure:"archive"`
	RunLog    RunLogConfig    `yaml:"runlog" mapstructure:"runlog"`
	Warehouse WarehouseConfig `yaml:"warehouse" mapstructure:"warehouse"`
	Log       LogConfig       `yaml:"log" mapstructure:"log"`
}

// ArcGISConfig holds ArcGIS Server credentials and transport settings.
type ArcGISConfig struct {
	Username         string   `yaml:"username" mapstructure:"username"`
	Password         string   `yaml:"password" mapstructure:"password"`
	FetchTimeoutSecs int      `yaml:"fetch_timeout_secs" mapstructure:"fetch_timeout_secs"`
	TokenTTLMins     int      `yaml:"token_ttl_mins" mapstructure:"token_ttl_mins"`
	MaxRetries       int      `yaml:"max_retries" mapstructure:"max_retries"`
	RateLimit        float64  `yaml:"rate_limit" mapstructure:"rate_limit"`
	IgnoreFolders    []string `yaml:"ignore_folders" mapstructure:"ignore_folders"`
	BreakerThreshold int      `yaml:"breaker_threshold" mapstructure:"breaker_threshold"`
	BreakerResetSecs int      `yaml:"breaker_reset_secs" mapstructure:"breaker_reset_secs"`
}

// FetchTimeout returns the per-fetch deadline.
func (c ArcGISConfig) FetchTimeout() time.Duration {
	return time.Duration(c.FetchTimeoutSecs) * time.Second
}

// TokenTTL returns how long a token is requested for.
func (c ArcGISConfig) TokenTTL() time.Duration {
	return time.Duration(c.TokenTTLMins) * time.Minute
}

// RetryPolicy returns the retry settings for ArcGIS calls. Unset values keep
// the resilience defaults.
func (c ArcGISConfig) RetryPolicy() resilience.RetryConfig {
	rc := resilience.DefaultRetryConfig()
	if c.MaxRetries > 0 {
		rc.MaxAttempts = c.MaxRetries
	}
	return rc
}

// BreakerPolicy returns the per-site circuit breaker settings.
func (c ArcGISConfig) BreakerPolicy() resilience.BreakerConfig {
	bc := resilience.DefaultBreakerConfig()
	if c.BreakerThreshold > 0 {
		bc.Threshold = c.BreakerThreshold
	}
	if c.BreakerResetSecs > 0 {
		bc.Cooldown = time.Duration(c.BreakerResetSecs) * time.Second
	}
	return bc
}

// PortalConfig points at the Portal for ArcGIS and ArcGIS Online instances
// searched by the items report.
type PortalConfig struct {
	URL      string `yaml:"url" mapstructure:"url"`
	AGOLURL  string `yaml:"agol_url" mapstructure:"agol_url"`
	ItemType string `yaml:"item_type" mapstructure:"item_type"`
	PageSize int    `yaml:"page_size" mapstructure:"page_size"`
}

// ReportConfig controls report output.
type ReportConfig struct {
	OutDir      string `yaml:"out_dir" mapstructure:"out_dir"`
	SitesFile   string `yaml:"sites_file" mapstructure:"sites_file"`
	Concurrency int    `yaml:"concurrency" mapstructure:"concurrency"`
	Format      string `yaml:"format" mapstructure:"format"`
}

// UsageConfig controls usage reports and reconciliation.
type UsageConfig struct {
	ArchiveDir string `yaml:"archive_dir" mapstructure:"archive_dir"`
	Since      string `yaml:"since" mapstructure:"since"`
}

// ArchiveConfig selects where master snapshots are archived before reconcile.
type ArchiveConfig struct {
	Driver string   `yaml:"driver" mapstructure:"driver"` // "local" or "s3"
	S3     S3Config `yaml:"s3" mapstructure:"s3"`
}

// S3Config holds S3-compatible object storage settings.
type S3Config struct {
	Endpoint  string `yaml:"endpoint" mapstructure:"endpoint"`
	Bucket    string `yaml:"bucket" mapstructure:"bucket"`
	Prefix    string `yaml:"prefix" mapstructure:"prefix"`
	AccessKey string `yaml:"access_key" mapstructure:"access_key"`
	SecretKey string `yaml:"secret_key" mapstructure:"secret_key"`
	Region    string `yaml:"region" mapstructure:"region"`
	UseSSL    bool   `yaml:"use_ssl" mapstructure:"use_ssl"`
}

// RunLogConfig locates the SQLite run log. An empty path disables it.
type RunLogConfig struct {
	Path string `yaml:"path" mapstructure:"path"`
}

// WarehouseConfig configures the optional Postgres sink.
type WarehouseConfig struct {
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	Schema      string `yaml:"schema" mapstructure:"schema"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from .env, config.yaml and the environment.
func Load() (*Config, error) {
	// .env is optional; real environment variables win over it.
	_ = godotenv.Load()

	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	v.SetEnvPrefix("GISADMIN")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("arcgis.username", "")
	v.SetDefault("arcgis.password", "")
	v.SetDefault("arcgis.fetch_timeout_secs", 60)
	v.SetDefault("arcgis.token_ttl_mins", 60)
	v.SetDefault("arcgis.max_retries", 3)
	v.SetDefault("arcgis.rate_limit", 10.0)
	v.SetDefault("arcgis.ignore_folders", []string{"System", "Utilities", "/"})
	v.SetDefault("arcgis.breaker_threshold", 5)
	v.SetDefault("arcgis.breaker_reset_secs", 30)
	v.SetDefault("portal.url", "")
	v.SetDefault("portal.agol_url", "https://www.arcgis.com")
	v.SetDefault("portal.item_type", "Web Map")
	v.SetDefault("portal.page_size", 100)
	v.SetDefault("report.out_dir", ".")
	v.SetDefault("report.sites_file", "gis_sites.json")
	v.SetDefault("report.concurrency", 4)
	v.SetDefault("report.format", "csv")
	v.SetDefault("usage.archive_dir", "archive")
	v.SetDefault("usage.since", "LAST_YEAR")
	v.SetDefault("archive.driver", "local")
	v.SetDefault("archive.s3.endpoint", "")
	v.SetDefault("archive.s3.bucket", "")
	v.SetDefault("archive.s3.prefix", "usage-archive")
	v.SetDefault("archive.s3.access_key", "")
	v.SetDefault("archive.s3.secret_key", "")
	v.SetDefault("archive.s3.region", "us-east-1")
	v.SetDefault("archive.s3.use_ssl", true)
	v.SetDefault("runlog.path", "gisadmin.db")
	v.SetDefault("warehouse.database_url", "")
	v.SetDefault("warehouse.schema", "gis_reports")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

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

// Validate checks the settings a command needs. mode is one of "admin"
// (ArcGIS Server reports), "portal" (items report), "reconcile" or "runs".
func (c *Config) Validate(mode string) error {
	var errs []string

	switch mode {
	case "admin":
		if c.ArcGIS.Username == "" {
			errs = append(errs, "arcgis.username is required")
		}
		if c.ArcGIS.Password == "" {
			errs = append(errs, "arcgis.password is required")
		}
	case "portal":
		if c.ArcGIS.Username == "" || c.ArcGIS.Password == "" {
			errs = append(errs, "arcgis.username and arcgis.password are required")
		}
		if c.Portal.URL == "" && c.Portal.AGOLURL == "" {
			errs = append(errs, "portal.url or portal.agol_url is required")
		}
	case "reconcile":
		switch c.Archive.Driver {
		case "local":
		case "s3":
			if c.Archive.S3.Endpoint == "" || c.Archive.S3.Bucket == "" {
				errs = append(errs, "archive.s3.endpoint and archive.s3.bucket are required for the s3 driver")
			}
		default:
			errs = append(errs, "archive.driver must be local or s3")
		}
	case "runs":
		if c.RunLog.Path == "" {
			errs = append(errs, "runlog.path is required")
		}
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	if mode == "admin" || mode == "portal" {
		if c.Report.Concurrency < 1 || c.Report.Concurrency > 32 {
			errs = append(errs, "report.concurrency must be between 1 and 32")
		}
		if c.ArcGIS.FetchTimeoutSecs <= 0 {
			errs = append(errs, "arcgis.fetch_timeout_secs must be > 0")
		}
		if c.Report.Format != "csv" && c.Report.Format != "xlsx" {
			errs = append(errs, "report.format must be csv or xlsx")
		}
	}

	if len(errs) > 0 {
		return eris.Errorf("config: %s", strings.Join(errs, "; "))
	}
	return nil
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
