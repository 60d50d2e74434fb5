package sheets

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"
)

// XLSXStore implements Store over a local workbook. The spreadsheet id is
// the workbook path; an empty id selects the store's default path.
type XLSXStore struct {
	mu   sync.Mutex
	path string
}

var _ Store = (*XLSXStore)(nil)

// NewXLSX creates a workbook-backed store.
func NewXLSX(path string) *XLSXStore {
	return &XLSXStore{path: path}
}

// FindSpreadsheet returns the path of "<name>.xlsx" next to the default
// workbook, or the default workbook itself when its base name matches.
func (s *XLSXStore) FindSpreadsheet(_ context.Context, name string) (string, error) {
	base := strings.TrimSuffix(filepath.Base(s.path), filepath.Ext(s.path))
	candidate := s.path
	if base != name {
		candidate = filepath.Join(filepath.Dir(s.path), name+".xlsx")
	}
	if _, err := os.Stat(candidate); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", eris.Wrapf(ErrNotFound, "spreadsheet %q", name)
		}
		return "", eris.Wrapf(err, "sheets: stat %s", candidate)
	}
	return candidate, nil
}

// BatchGet implements Store.
func (s *XLSXStore) BatchGet(ctx context.Context, spreadsheetID string, ranges []string) ([]ValueRange, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := xlsx.OpenFile(s.resolve(spreadsheetID))
	if err != nil {
		return nil, eris.Wrap(err, "sheets: open workbook")
	}

	out := make([]ValueRange, 0, len(ranges))
	for _, raw := range ranges {
		if err := ctx.Err(); err != nil {
			return nil, eris.Wrap(err, "sheets: batch get")
		}
		r, err := ParseRange(raw)
		if err != nil {
			return nil, err
		}
		sheet, err := lookupSheet(f, r.Sheet)
		if err != nil {
			return nil, err
		}
		out = append(out, ValueRange{Range: raw, Values: readGrid(sheet, r)})
	}
	return out, nil
}

// BatchUpdate implements Store. Missing worksheets are created; the
// workbook is saved once after every range is applied.
func (s *XLSXStore) BatchUpdate(ctx context.Context, spreadsheetID string, data []ValueRange) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	path := s.resolve(spreadsheetID)
	f, err := xlsx.OpenFile(path)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			return eris.Wrap(err, "sheets: open workbook")
		}
		f = xlsx.NewFile()
	}

	for _, d := range data {
		if err := ctx.Err(); err != nil {
			return eris.Wrap(err, "sheets: batch update")
		}
		r, err := ParseRange(d.Range)
		if err != nil {
			return err
		}
		sheet, err := lookupSheet(f, r.Sheet)
		if eris.Is(err, ErrNotFound) {
			sheet, err = f.AddSheet(r.Sheet)
		}
		if err != nil {
			return eris.Wrapf(err, "sheets: worksheet %q", r.Sheet)
		}
		writeGrid(sheet, r, d.Values)
	}

	if err := f.Save(path); err != nil {
		return eris.Wrap(err, "sheets: save workbook")
	}
	return nil
}

func (s *XLSXStore) resolve(spreadsheetID string) string {
	if spreadsheetID != "" {
		return spreadsheetID
	}
	return s.path
}

func lookupSheet(f *xlsx.File, name string) (*xlsx.Sheet, error) {
	if name == "" {
		if len(f.Sheets) == 0 {
			return nil, eris.Wrap(ErrNotFound, "workbook has no worksheets")
		}
		return f.Sheets[0], nil
	}
	sheet, ok := f.Sheet[name]
	if !ok {
		return nil, eris.Wrapf(ErrNotFound, "worksheet %q", name)
	}
	return sheet, nil
}

// readGrid copies the cells covered by r, dropping trailing empty cells in
// each row and trailing empty rows, as the Sheets API does.
func readGrid(sheet *xlsx.Sheet, r Range) [][]string {
	last := len(sheet.Rows)
	if r.EndRow > 0 && r.EndRow < last {
		last = r.EndRow
	}

	var grid [][]string
	for i := r.StartRow - 1; i < last; i++ {
		row := sheet.Rows[i]
		var cells []string
		if row != nil {
			for c := r.StartCol - 1; c < r.EndCol && c < len(row.Cells); c++ {
				cells = append(cells, row.Cells[c].String())
			}
		}
		grid = append(grid, trimTrailing(cells))
	}
	for len(grid) > 0 && len(grid[len(grid)-1]) == 0 {
		grid = grid[:len(grid)-1]
	}
	return grid
}

func writeGrid(sheet *xlsx.Sheet, r Range, values [][]string) {
	for i, vals := range values {
		rowIdx := r.StartRow - 1 + i
		for len(sheet.Rows) <= rowIdx {
			sheet.AddRow()
		}
		row := sheet.Rows[rowIdx]
		for j, v := range vals {
			colIdx := r.StartCol - 1 + j
			for len(row.Cells) <= colIdx {
				row.AddCell()
			}
			row.Cells[colIdx].SetString(v)
		}
	}
}

func trimTrailing(cells []string) []string {
	n := len(cells)
	for n > 0 && cells[n-1] == "" {
		n--
	}
	return cells[:n]
}
