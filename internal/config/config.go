// Package config loads dealsync configuration from .env, config.yaml and
// DEALSYNC_* environment variables, and builds the global logger.
package config

import (
	"strings"

	"github.com/joho/godotenv"
	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Pipedrive PipedriveConfig `yaml:"pipedrive" mapstructure:"pipedrive"`
	Store     StoreConfig     `yaml:"store" mapstructure:"store"`
	Sheets    SheetsConfig    `yaml:"sheets" mapstructure:"sheets"`
	Reports   ReportsConfig   `yaml:"reports" mapstructure:"reports"`
	Schedule  ScheduleConfig  `yaml:"schedule" mapstructure:"schedule"`
	Server    ServerConfig    `yaml:"server" mapstructure:"server"`
	Log       LogConfig       `yaml:"log" mapstructure:"log"`
}

// PipedriveConfig configures the CRM client, its rate gate and retries.
type PipedriveConfig struct {
	APIToken           string `yaml:"api_token" mapstructure:"api_token"`
	BaseURL            string `yaml:"base_url" mapstructure:"base_url"`
	ListingBaseURL     string `yaml:"listing_base_url" mapstructure:"listing_base_url"`
	PageSize           int    `yaml:"page_size" mapstructure:"page_size"`
	RateLimitRequests  int    `yaml:"rate_limit_requests" mapstructure:"rate_limit_requests"`
	RateLimitWindowSec int    `yaml:"rate_limit_window_secs" mapstructure:"rate_limit_window_secs"`
	TimeoutSecs        int    `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	RetryAttempts      int    `yaml:"retry_attempts" mapstructure:"retry_attempts"`
	RetryDelaySecs     int    `yaml:"retry_delay_secs" mapstructure:"retry_delay_secs"`
}

// StoreConfig configures the record store backend.
type StoreConfig struct {
	Driver        string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL   string `yaml:"database_url" mapstructure:"database_url"`
	PersonsTable  string `yaml:"persons_table" mapstructure:"persons_table"`
	DealsTable    string `yaml:"deals_table" mapstructure:"deals_table"`
	FailuresTable string `yaml:"failures_table" mapstructure:"failures_table"`
}

// SheetsConfig selects the spreadsheet backend and the target spreadsheet.
type SheetsConfig struct {
	Driver          string `yaml:"driver" mapstructure:"driver"`
	CredentialsFile string `yaml:"credentials_file" mapstructure:"credentials_file"`
	SpreadsheetName string `yaml:"spreadsheet_name" mapstructure:"spreadsheet_name"`
	SpreadsheetID   string `yaml:"spreadsheet_id" mapstructure:"spreadsheet_id"`
	XLSXPath        string `yaml:"xlsx_path" mapstructure:"xlsx_path"`
	Timezone        string `yaml:"timezone" mapstructure:"timezone"`
}

// ReportsConfig names the worksheet and ranges of each report.
type ReportsConfig struct {
	Mailers   ReportConfig    `yaml:"mailers" mapstructure:"mailers"`
	Purls     ReportConfig    `yaml:"purls" mapstructure:"purls"`
	Digisheet DigisheetConfig `yaml:"digisheet" mapstructure:"digisheet"`
}

// ReportConfig is a single-range report.
type ReportConfig struct {
	Worksheet string `yaml:"worksheet" mapstructure:"worksheet"`
	Range     string `yaml:"range" mapstructure:"range"`
}

// DigisheetConfig reads an email range and a phone range.
type DigisheetConfig struct {
	Worksheet  string `yaml:"worksheet" mapstructure:"worksheet"`
	EmailRange string `yaml:"email_range" mapstructure:"email_range"`
	PhoneRange string `yaml:"phone_range" mapstructure:"phone_range"`
}

// ScheduleConfig configures the cron runner.
type ScheduleConfig struct {
	Cron string `yaml:"cron" mapstructure:"cron"`
}

// ServerConfig configures the HTTP trigger server.
type ServerConfig struct {
	Port int `yaml:"port" mapstructure:"port"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
	File   string `yaml:"file" mapstructure:"file"`
}

// Load reads configuration from .env, config file and environment.
func Load() (*Config, error) {
	// .env is optional; real environment variables take precedence.
	_ = godotenv.Load()

	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("DEALSYNC")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("pipedrive.api_token", "")
	v.SetDefault("pipedrive.base_url", "https://api.pipedrive.com/v1")
	v.SetDefault("pipedrive.listing_base_url", "")
	v.SetDefault("pipedrive.page_size", 100)
	v.SetDefault("pipedrive.rate_limit_requests", 50)
	v.SetDefault("pipedrive.rate_limit_window_secs", 5)
	v.SetDefault("pipedrive.timeout_secs", 30)
	v.SetDefault("pipedrive.retry_attempts", 3)
	v.SetDefault("pipedrive.retry_delay_secs", 300)
	v.SetDefault("store.driver", "postgres")
	v.SetDefault("store.database_url", "")
	v.SetDefault("store.persons_table", "persons")
	v.SetDefault("store.deals_table", "deals")
	v.SetDefault("store.failures_table", "failures")
	v.SetDefault("sheets.driver", "google")
	v.SetDefault("sheets.credentials_file", "credentials.json")
	v.SetDefault("sheets.spreadsheet_name", "")
	v.SetDefault("sheets.spreadsheet_id", "")
	v.SetDefault("sheets.xlsx_path", "")
	v.SetDefault("sheets.timezone", "America/Los_Angeles")
	v.SetDefault("reports.mailers.worksheet", "Mailers")
	v.SetDefault("reports.mailers.range", "A2:B")
	v.SetDefault("reports.purls.worksheet", "PURLs")
	v.SetDefault("reports.purls.range", "A2:B")
	v.SetDefault("reports.digisheet.worksheet", "Digisheet")
	v.SetDefault("reports.digisheet.email_range", "A2:G")
	v.SetDefault("reports.digisheet.phone_range", "K2:K")
	v.SetDefault("schedule.cron", "0 */6 * * *")
	v.SetDefault("server.port", 8080)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("log.file", "")

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

// Validate checks the settings a command mode needs. Modes: extract,
// reconcile, sync, schedule, serve, migrate.
func (c *Config) Validate(mode string) error {
	var errs []string
	need := func(ok bool, msg string) {
		if !ok {
			errs = append(errs, msg)
		}
	}

	store := func() {
		need(c.Store.Driver == "postgres" || c.Store.Driver == "sqlite", "store.driver must be postgres or sqlite")
		need(c.Store.DatabaseURL != "", "store.database_url is required")
	}
	crm := func() {
		need(c.Pipedrive.APIToken != "", "pipedrive.api_token is required")
		need(c.Pipedrive.PageSize > 0, "pipedrive.page_size must be > 0")
		need(c.Pipedrive.RetryAttempts > 0, "pipedrive.retry_attempts must be > 0")
	}
	sheet := func() {
		switch c.Sheets.Driver {
		case "google":
			need(c.Sheets.CredentialsFile != "", "sheets.credentials_file is required")
			need(c.Sheets.SpreadsheetID != "" || c.Sheets.SpreadsheetName != "", "sheets.spreadsheet_id or sheets.spreadsheet_name is required")
		case "xlsx":
			need(c.Sheets.XLSXPath != "", "sheets.xlsx_path is required")
		default:
			errs = append(errs, "sheets.driver must be google or xlsx")
		}
	}

	switch mode {
	case "migrate":
		store()
	case "extract":
		store()
		crm()
	case "reconcile":
		store()
		sheet()
	case "sync":
		store()
		crm()
		sheet()
	case "schedule":
		store()
		crm()
		sheet()
		need(c.Schedule.Cron != "", "schedule.cron is required")
	case "serve":
		store()
		crm()
		sheet()
		need(c.Server.Port > 0, "server.port must be > 0")
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	if len(errs) > 0 {
		return eris.Errorf("config: %s", strings.Join(errs, "; "))
	}
	return nil
}

// InitLogger initializes the global zap logger. A non-empty File is added
// to the output paths alongside stderr.
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

	if cfg.File != "" {
		zapCfg.OutputPaths = append(zapCfg.OutputPaths, cfg.File)
	}

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
