package main

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/dealsync/internal/config"
	"github.com/sells-group/dealsync/internal/extract"
	"github.com/sells-group/dealsync/internal/reconcile"
	"github.com/sells-group/dealsync/internal/resilience"
	"github.com/sells-group/dealsync/internal/store"
	"github.com/sells-group/dealsync/pkg/pipedrive"
	"github.com/sells-group/dealsync/pkg/sheets"
)

func storeTables(c *config.Config) store.Tables {
	return store.Tables{
		Persons:  c.Store.PersonsTable,
		Deals:    c.Store.DealsTable,
		Failures: c.Store.FailuresTable,
	}
}

// initStore opens the configured record store and applies its schema.
func initStore(ctx context.Context) (store.Store, error) {
	var (
		st  store.Store
		err error
	)
	switch cfg.Store.Driver {
	case "sqlite":
		dsn := cfg.Store.DatabaseURL
		if dsn == "" {
			dsn = "dealsync.db"
		}
		st, err = store.NewSQLite(dsn, storeTables(cfg))
	case "postgres":
		st, err = store.NewPostgres(ctx, cfg.Store.DatabaseURL, storeTables(cfg), nil)
	default:
		return nil, eris.Errorf("unsupported store driver: %s", cfg.Store.Driver)
	}
	if err != nil {
		return nil, err
	}
	if err := st.Migrate(ctx); err != nil {
		st.Close() //nolint:errcheck
		return nil, err
	}
	return st, nil
}

// initSheets builds the configured spreadsheet backend.
func initSheets(ctx context.Context) (sheets.Store, error) {
	switch cfg.Sheets.Driver {
	case "xlsx":
		return sheets.NewXLSX(cfg.Sheets.XLSXPath), nil
	case "google":
		return sheets.NewGoogleFromCredentials(ctx, cfg.Sheets.CredentialsFile)
	default:
		return nil, eris.Errorf("unsupported sheets driver: %s", cfg.Sheets.Driver)
	}
}

// initPipedrive builds the CRM client behind a shared rate gate.
func initPipedrive() pipedrive.Client {
	p := cfg.Pipedrive
	gate := resilience.NewGate(p.RateLimitRequests, time.Duration(p.RateLimitWindowSec)*time.Second)
	opts := []pipedrive.Option{
		pipedrive.WithGate(gate),
		pipedrive.WithTimeout(time.Duration(p.TimeoutSecs) * time.Second),
	}
	if p.BaseURL != "" {
		opts = append(opts, pipedrive.WithBaseURL(p.BaseURL))
	}
	if p.ListingBaseURL != "" {
		opts = append(opts, pipedrive.WithListingBaseURL(p.ListingBaseURL))
	}
	zap.L().Debug("pipedrive: client configured", zap.Duration("request_interval", gate.Interval()))
	return pipedrive.NewClient(p.APIToken, opts...)
}

func extractConfig(c *config.Config, runID string) extract.Config {
	ec := extract.DefaultConfig()
	ec.PageSize = c.Pipedrive.PageSize
	ec.Retry = resilience.FromRetryConfig(c.Pipedrive.RetryAttempts, c.Pipedrive.RetryDelaySecs)
	ec.RunID = runID
	return ec
}

func reconcileConfig(c *config.Config) reconcile.Config {
	rc := reconcile.Config{
		SpreadsheetID:   c.Sheets.SpreadsheetID,
		SpreadsheetName: c.Sheets.SpreadsheetName,
		Timezone:        c.Sheets.Timezone,
	}
	if c.Sheets.Driver == "xlsx" && rc.SpreadsheetID == "" {
		rc.SpreadsheetID = c.Sheets.XLSXPath
	}
	return rc
}

// variants returns the configured reports in run order.
func variants(c *config.Config) []reconcile.Variant {
	r := c.Reports
	return []reconcile.Variant{
		reconcile.Mailers(r.Mailers.Worksheet, r.Mailers.Range),
		reconcile.Purls(r.Purls.Worksheet, r.Purls.Range),
		reconcile.Digisheet(r.Digisheet.Worksheet, r.Digisheet.EmailRange, r.Digisheet.PhoneRange),
	}
}

func variantByName(c *config.Config, name string) (reconcile.Variant, error) {
	for _, v := range variants(c) {
		if v.Name == name {
			return v, nil
		}
	}
	return reconcile.Variant{}, eris.Errorf("unknown report %q (want one of %v)", name, reconcile.Reports)
}

func newRunID() string {
	return uuid.New().String()
}
