// Package sheets reads and writes spreadsheet value ranges. Two backends are
// provided: the Google Sheets REST API (with Drive lookup by name) and a
// local XLSX workbook for offline runs.
package sheets

import (
	"context"

	"github.com/rotisserie/eris"
)

// ErrNotFound is returned when a spreadsheet or worksheet does not exist.
var ErrNotFound = eris.New("sheets: not found")

// ValueRange is a grid of cell values addressed by an A1 range.
type ValueRange struct {
	Range  string     `json:"range" yaml:"range"`
	Values [][]string `json:"values" yaml:"values"`
}

// Store is the spreadsheet service used by reconciliation.
type Store interface {
	// BatchGet reads several ranges in one call. The result has one entry per
	// requested range, in request order; trailing empty rows are omitted.
	BatchGet(ctx context.Context, spreadsheetID string, ranges []string) ([]ValueRange, error)
	// BatchUpdate writes every range in a single call using raw value input.
	BatchUpdate(ctx context.Context, spreadsheetID string, data []ValueRange) error
	// FindSpreadsheet resolves a spreadsheet id by its name.
	FindSpreadsheet(ctx context.Context, name string) (string, error)
}
