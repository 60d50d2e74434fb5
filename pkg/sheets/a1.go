package sheets

import (
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"
)

// Range is a parsed A1 range. Columns and rows are 1-based; an EndRow of 0
// means the range is open-ended ("A2:G").
type Range struct {
	Sheet    string
	StartCol int
	StartRow int
	EndCol   int
	EndRow   int
}

// ParseRange parses "'Sheet'!A2:G10", "Sheet!K2:K" or "C5" style ranges.
func ParseRange(s string) (Range, error) {
	var r Range
	ref := s
	if i := strings.LastIndex(s, "!"); i >= 0 {
		r.Sheet = unquoteSheet(s[:i])
		ref = s[i+1:]
	}

	start, end, isSpan := strings.Cut(ref, ":")
	var err error
	r.StartCol, r.StartRow, err = parseCell(start)
	if err != nil {
		return Range{}, eris.Wrapf(err, "sheets: parse range %q", s)
	}
	if r.StartCol == 0 {
		return Range{}, eris.Errorf("sheets: parse range %q: missing start column", s)
	}
	if r.StartRow == 0 {
		r.StartRow = 1
	}
	if !isSpan {
		r.EndCol, r.EndRow = r.StartCol, r.StartRow
		return r, nil
	}

	r.EndCol, r.EndRow, err = parseCell(end)
	if err != nil {
		return Range{}, eris.Wrapf(err, "sheets: parse range %q", s)
	}
	if r.EndCol == 0 {
		return Range{}, eris.Errorf("sheets: parse range %q: missing end column", s)
	}
	if r.EndCol < r.StartCol || (r.EndRow != 0 && r.EndRow < r.StartRow) {
		return Range{}, eris.Errorf("sheets: parse range %q: end before start", s)
	}
	return r, nil
}

// String renders the range in A1 notation with a quoted sheet name.
func (r Range) String() string {
	var b strings.Builder
	if r.Sheet != "" {
		b.WriteString(QuoteSheet(r.Sheet))
		b.WriteByte('!')
	}
	b.WriteString(ColumnName(r.StartCol))
	b.WriteString(strconv.Itoa(r.StartRow))
	if r.EndCol == r.StartCol && r.EndRow == r.StartRow {
		return b.String()
	}
	b.WriteByte(':')
	b.WriteString(ColumnName(r.EndCol))
	if r.EndRow > 0 {
		b.WriteString(strconv.Itoa(r.EndRow))
	}
	return b.String()
}

// RowRange builds the single-row range "'sheet'!<from><row>:<to><row>".
func RowRange(sheet, fromCol, toCol string, row int) string {
	n := strconv.Itoa(row)
	return QuoteSheet(sheet) + "!" + fromCol + n + ":" + toCol + n
}

// QualifyRange prefixes a bare A1 reference with a quoted sheet name.
func QualifyRange(sheet, ref string) string {
	if strings.Contains(ref, "!") {
		return ref
	}
	return QuoteSheet(sheet) + "!" + ref
}

// QuoteSheet quotes a worksheet name for use in a range.
func QuoteSheet(name string) string {
	return "'" + strings.ReplaceAll(name, "'", "''") + "'"
}

func unquoteSheet(s string) string {
	if len(s) >= 2 && s[0] == '\'' && s[len(s)-1] == '\'' {
		return strings.ReplaceAll(s[1:len(s)-1], "''", "'")
	}
	return s
}

// ColumnIndex converts a column name ("A", "AB") to its 1-based index, or 0
// when name is not all letters.
func ColumnIndex(name string) int {
	if name == "" {
		return 0
	}
	for i := 0; i < len(name); i++ {
		if !isLetter(name[i]) {
			return 0
		}
	}
	return xlsx.ColLettersToIndex(strings.ToUpper(name)) + 1
}

// ColumnName converts a 1-based column index to its name.
func ColumnName(idx int) string {
	if idx < 1 {
		return ""
	}
	return xlsx.ColIndexToLetters(idx - 1)
}

// parseCell splits "AB12" into column 28 and row 12. Either part may be
// absent, in which case it is 0.
func parseCell(s string) (col, row int, err error) {
	s = strings.ReplaceAll(s, "$", "")
	i := 0
	for i < len(s) && isLetter(s[i]) {
		i++
	}
	col = ColumnIndex(s[:i])
	if i < len(s) {
		row, err = strconv.Atoi(s[i:])
		if err != nil || row < 1 {
			return 0, 0, eris.Errorf("invalid row in %q", s)
		}
	}
	return col, row, nil
}

func isLetter(c byte) bool {
	return (c >= 'A' && c <= 'Z') || (c >= 'a' && c <= 'z')
}
