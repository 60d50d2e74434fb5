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
	// Change to temp dir so no config.yaml or .env is found
	chdirTemp(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "https://api.pipedrive.com/v1", cfg.Pipedrive.BaseURL)
	assert.Equal(t, 100, cfg.Pipedrive.PageSize)
	assert.Equal(t, 50, cfg.Pipedrive.RateLimitRequests)
	assert.Equal(t, 5, cfg.Pipedrive.RateLimitWindowSec)
	assert.Equal(t, 30, cfg.Pipedrive.TimeoutSecs)
	assert.Equal(t, 3, cfg.Pipedrive.RetryAttempts)
	assert.Equal(t, 300, cfg.Pipedrive.RetryDelaySecs)
	assert.Equal(t, "postgres", cfg.Store.Driver)
	assert.Equal(t, "persons", cfg.Store.PersonsTable)
	assert.Equal(t, "deals", cfg.Store.DealsTable)
	assert.Equal(t, "google", cfg.Sheets.Driver)
	assert.Equal(t, "America/Los_Angeles", cfg.Sheets.Timezone)
	assert.Equal(t, "A2:G", cfg.Reports.Digisheet.EmailRange)
	assert.Equal(t, "K2:K", cfg.Reports.Digisheet.PhoneRange)
	assert.Equal(t, "A2:B", cfg.Reports.Mailers.Range)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, 8080, cfg.Server.Port)
}

func TestLoadFromYAML(t *testing.T) {
	dir := chdirTemp(t)

	yaml := `
store:
  driver: sqlite
  database_url: dealsync.db
sheets:
  driver: xlsx
  xlsx_path: lists.xlsx
reports:
  mailers:
    worksheet: Direct Mail
log:
  level: debug
  format: console
server:
  port: 9090
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644))

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "sqlite", cfg.Store.Driver)
	assert.Equal(t, "dealsync.db", cfg.Store.DatabaseURL)
	assert.Equal(t, "xlsx", cfg.Sheets.Driver)
	assert.Equal(t, "Direct Mail", cfg.Reports.Mailers.Worksheet)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "console", cfg.Log.Format)
	assert.Equal(t, 9090, cfg.Server.Port)
	// Defaults still apply for unset values
	assert.Equal(t, "A2:B", cfg.Reports.Mailers.Range)
	assert.Equal(t, 100, cfg.Pipedrive.PageSize)
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

	t.Setenv("DEALSYNC_STORE_DRIVER", "postgres")
	t.Setenv("DEALSYNC_LOG_LEVEL", "warn")

	cfg, err := Load()
	require.NoError(t, err)

	// Env overrides file
	assert.Equal(t, "postgres", cfg.Store.Driver)
	assert.Equal(t, "warn", cfg.Log.Level)
}

func TestLoadEnvOverridesDefaults(t *testing.T) {
	chdirTemp(t)

	t.Setenv("DEALSYNC_SERVER_PORT", "3000")
	t.Setenv("DEALSYNC_PIPEDRIVE_API_TOKEN", "tok")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 3000, cfg.Server.Port)
	assert.Equal(t, "tok", cfg.Pipedrive.APIToken)
}

func TestLoadDotEnv(t *testing.T) {
	dir := chdirTemp(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("DEALSYNC_SHEETS_SPREADSHEET_NAME=Deal Lists\n"), 0644))
	t.Cleanup(func() { os.Unsetenv("DEALSYNC_SHEETS_SPREADSHEET_NAME") }) //nolint:errcheck

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "Deal Lists", cfg.Sheets.SpreadsheetName)
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

func TestInitLoggerFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "extraction.log")
	require.NoError(t, InitLogger(LogConfig{Level: "info", Format: "json", File: path}))
	zap.L().Info("extract: hello")
	_ = zap.L().Sync()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "extract: hello")
}

func TestInitLoggerInvalidLevel(t *testing.T) {
	err := InitLogger(LogConfig{Level: "invalid", Format: "json"})
	assert.Error(t, err)
}

// validDefaults returns a Config that passes every mode.
func validDefaults() *Config {
	cfg := &Config{}
	cfg.Pipedrive.APIToken = "tok"
	cfg.Pipedrive.PageSize = 100
	cfg.Pipedrive.RetryAttempts = 3
	cfg.Store.Driver = "postgres"
	cfg.Store.DatabaseURL = "postgres://localhost/test"
	cfg.Sheets.Driver = "google"
	cfg.Sheets.CredentialsFile = "credentials.json"
	cfg.Sheets.SpreadsheetName = "Deal Lists"
	cfg.Schedule.Cron = "@hourly"
	cfg.Server.Port = 8080
	return cfg
}

func TestValidate_AllModesPass(t *testing.T) {
	cfg := validDefaults()
	for _, mode := range []string{"migrate", "extract", "reconcile", "sync", "schedule", "serve"} {
		assert.NoError(t, cfg.Validate(mode), mode)
	}
}

func TestValidateExtract_MissingFields(t *testing.T) {
	cfg := &Config{}

	err := cfg.Validate("extract")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "store.database_url is required")
	assert.Contains(t, err.Error(), "pipedrive.api_token is required")
	assert.NotContains(t, err.Error(), "sheets")
}

func TestValidateReconcile_XLSX(t *testing.T) {
	cfg := validDefaults()
	cfg.Sheets.Driver = "xlsx"

	err := cfg.Validate("reconcile")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "sheets.xlsx_path is required")

	cfg.Sheets.XLSXPath = "lists.xlsx"
	assert.NoError(t, cfg.Validate("reconcile"))
}

func TestValidateReconcile_NeedsSpreadsheet(t *testing.T) {
	cfg := validDefaults()
	cfg.Sheets.SpreadsheetName = ""

	err := cfg.Validate("reconcile")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "spreadsheet_id or sheets.spreadsheet_name")

	cfg.Sheets.SpreadsheetID = "abc"
	assert.NoError(t, cfg.Validate("reconcile"))
}

func TestValidateServe_InvalidPort(t *testing.T) {
	cfg := validDefaults()
	cfg.Server.Port = 0

	err := cfg.Validate("serve")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "server.port must be > 0")
}

func TestValidateUnknownDriver(t *testing.T) {
	cfg := validDefaults()
	cfg.Store.Driver = "mongo"
	cfg.Sheets.Driver = "csv"

	err := cfg.Validate("sync")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "store.driver must be postgres or sqlite")
	assert.Contains(t, err.Error(), "sheets.driver must be google or xlsx")
}

func TestValidateUnknownMode(t *testing.T) {
	cfg := validDefaults()
	err := cfg.Validate("unknown")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "unknown mode")
}
