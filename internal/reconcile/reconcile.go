// Package reconcile joins spreadsheet rows against stored contacts and
// writes the match results back to the spreadsheet.
package reconcile

import (
	"context"
	"sync"
	"time"
	_ "time/tzdata" // report timestamps use a fixed IANA zone

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/dealsync/internal/model"
	"github.com/sells-group/dealsync/pkg/sheets"
)

const (
	// NotFound fills every output field of an unmatched row.
	NotFound = "N/A"
	// TimestampLayout formats the leading timestamp column.
	TimestampLayout = "01/02/2006 15:04:05"
	// DefaultTimezone is the zone report timestamps are rendered in.
	DefaultTimezone = "America/Los_Angeles"
)

// ContactSource yields the full contact snapshot. store.Store satisfies it.
type ContactSource interface {
	ListContacts(ctx context.Context) ([]model.Contact, error)
}

// Config locates the spreadsheet and fixes the timestamp zone.
type Config struct {
	SpreadsheetID   string
	SpreadsheetName string // used to look up the id when SpreadsheetID is empty
	Timezone        string
	Now             func() time.Time
}

// Summary reports the outcome of one reconciliation run.
type Summary struct {
	Report  string `json:"report" yaml:"report"`
	Rows    int    `json:"rows" yaml:"rows"`
	Matched int    `json:"matched" yaml:"matched"`
	Written int    `json:"written" yaml:"written"`
}

// Reconciler runs report variants against one spreadsheet.
type Reconciler struct {
	contacts ContactSource
	sheets   sheets.Store
	cfg      Config
	loc      *time.Location

	mu            sync.Mutex
	spreadsheetID string
}

// New creates a Reconciler.
func New(contacts ContactSource, sh sheets.Store, cfg Config) (*Reconciler, error) {
	if cfg.SpreadsheetID == "" && cfg.SpreadsheetName == "" {
		return nil, eris.New("reconcile: spreadsheet id or name is required")
	}
	if cfg.Timezone == "" {
		cfg.Timezone = DefaultTimezone
	}
	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		return nil, eris.Wrapf(err, "reconcile: load timezone %q", cfg.Timezone)
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Reconciler{
		contacts:      contacts,
		sheets:        sh,
		cfg:           cfg,
		loc:           loc,
		spreadsheetID: cfg.SpreadsheetID,
	}, nil
}

// Run loads the store, reads the variant's ranges, joins and writes the
// results back in a single batch.
func (r *Reconciler) Run(ctx context.Context, v Variant) (Summary, error) {
	updates, sum, err := r.Plan(ctx, v)
	if err != nil {
		return sum, err
	}
	n, err := r.write(ctx, v, updates)
	if err != nil {
		return sum, err
	}
	sum.Written = n
	return sum, nil
}

// Plan computes the write batch for a variant without writing it.
func (r *Reconciler) Plan(ctx context.Context, v Variant) ([]sheets.ValueRange, Summary, error) {
	sum := Summary{Report: v.Name}
	log := zap.L().With(zap.String("report", v.Name))

	contacts, err := r.contacts.ListContacts(ctx)
	if err != nil {
		return nil, sum, eris.Wrapf(err, "reconcile: %s: load contacts", v.Name)
	}
	idx := BuildIndex(v, contacts)
	log.Info("reconcile: index loaded", zap.Int("contacts", len(contacts)), zap.Any("keys", idx.Sizes()))

	rows, err := r.ReadRows(ctx, v)
	if err != nil {
		return nil, sum, err
	}
	sum.Rows = len(rows)

	results := Join(v, rows, idx)
	for _, res := range results {
		if res.Matched {
			sum.Matched++
		}
	}
	log.Info("reconcile: joined", zap.Int("rows", sum.Rows), zap.Int("matched", sum.Matched))
	if sum.Rows > 0 && sum.Matched == 0 {
		log.Warn("reconcile: no matches found, check key formats and data consistency")
	}

	return r.Render(v, results), sum, nil
}

// ReadRows batch-reads the variant's ranges, zips them positionally and
// keeps rows that yield at least one key.
func (r *Reconciler) ReadRows(ctx context.Context, v Variant) ([]Row, error) {
	id, err := r.SpreadsheetID(ctx)
	if err != nil {
		return nil, err
	}
	ranges := v.QualifiedRanges()
	first, err := sheets.ParseRange(ranges[0])
	if err != nil {
		return nil, eris.Wrapf(err, "reconcile: %s", v.Name)
	}

	got, err := r.sheets.BatchGet(ctx, id, ranges)
	if err != nil {
		return nil, eris.Wrapf(err, "reconcile: %s: read ranges", v.Name)
	}
	if len(got) < len(ranges) {
		return nil, nil
	}

	n := len(got[0].Values)
	for _, vr := range got[1:] {
		n = min(n, len(vr.Values))
	}

	var rows []Row
	cells := make([][]string, len(got))
	for i := 0; i < n; i++ {
		for j := range got {
			cells[j] = got[j].Values[i]
		}
		keys := v.RowKeys(cells)
		if len(keys) == 0 {
			continue
		}
		rows = append(rows, Row{Number: first.StartRow + i, Keys: keys})
	}
	return rows, nil
}

// Render builds one output range per result, each led by the current time
// in the configured zone.
func (r *Reconciler) Render(v Variant, results []Result) []sheets.ValueRange {
	if len(results) == 0 {
		return nil
	}
	ts := r.cfg.Now().In(r.loc).Format(TimestampLayout)
	out := make([]sheets.ValueRange, 0, len(results))
	for _, res := range results {
		values := make([]string, 0, len(res.Fields)+1)
		values = append(values, ts)
		values = append(values, res.Fields...)
		out = append(out, sheets.ValueRange{
			Range:  sheets.RowRange(v.Worksheet, v.OutFrom, v.OutTo, res.Row),
			Values: [][]string{values},
		})
	}
	return out
}

// WriteBack renders results and writes them in one batch. Zero results is
// a logged no-op.
func (r *Reconciler) WriteBack(ctx context.Context, v Variant, results []Result) (int, error) {
	return r.write(ctx, v, r.Render(v, results))
}

func (r *Reconciler) write(ctx context.Context, v Variant, updates []sheets.ValueRange) (int, error) {
	if len(updates) == 0 {
		zap.L().Info("reconcile: no updates to perform", zap.String("report", v.Name))
		return 0, nil
	}
	id, err := r.SpreadsheetID(ctx)
	if err != nil {
		return 0, err
	}
	if err := r.sheets.BatchUpdate(ctx, id, updates); err != nil {
		return 0, eris.Wrapf(err, "reconcile: %s: write results", v.Name)
	}
	zap.L().Info("reconcile: updated rows", zap.String("report", v.Name), zap.Int("rows", len(updates)))
	return len(updates), nil
}

// SpreadsheetID returns the configured id, looking it up by name once if
// needed.
func (r *Reconciler) SpreadsheetID(ctx context.Context) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.spreadsheetID != "" {
		return r.spreadsheetID, nil
	}
	id, err := r.sheets.FindSpreadsheet(ctx, r.cfg.SpreadsheetName)
	if err != nil {
		return "", eris.Wrap(err, "reconcile: find spreadsheet")
	}
	zap.L().Debug("reconcile: resolved spreadsheet", zap.String("name", r.cfg.SpreadsheetName), zap.String("id", id))
	r.spreadsheetID = id
	return id, nil
}
