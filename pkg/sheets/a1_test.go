package sheets

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRange(t *testing.T) {
	tests := []struct {
		in   string
		want Range
	}{
		{"'Mailers'!C2:J2", Range{Sheet: "Mailers", StartCol: 3, StartRow: 2, EndCol: 10, EndRow: 2}},
		{"Digi!A2:G", Range{Sheet: "Digi", StartCol: 1, StartRow: 2, EndCol: 7}},
		{"K2:K", Range{StartCol: 11, StartRow: 2, EndCol: 11}},
		{"'O''Brien'!B5", Range{Sheet: "O'Brien", StartCol: 2, StartRow: 5, EndCol: 2, EndRow: 5}},
		{"A:B", Range{StartCol: 1, StartRow: 1, EndCol: 2}},
		{"$AA$10:$AB$12", Range{StartCol: 27, StartRow: 10, EndCol: 28, EndRow: 12}},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseRange(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseRange_Invalid(t *testing.T) {
	for _, in := range []string{"", "12", "A0", "C2:A2", "A5:A2", "A2:"} {
		_, err := ParseRange(in)
		assert.Error(t, err, in)
	}
}

func TestRange_String(t *testing.T) {
	assert.Equal(t, "'Mailers'!C2:J2", Range{Sheet: "Mailers", StartCol: 3, StartRow: 2, EndCol: 10, EndRow: 2}.String())
	assert.Equal(t, "A2:G", Range{StartCol: 1, StartRow: 2, EndCol: 7}.String())
	assert.Equal(t, "B5", Range{StartCol: 2, StartRow: 5, EndCol: 2, EndRow: 5}.String())
}

func TestRowRange(t *testing.T) {
	assert.Equal(t, "'Form Responses'!C7:J7", RowRange("Form Responses", "C", "J", 7))
}

func TestQualifyRange(t *testing.T) {
	assert.Equal(t, "'Digi'!A2:G", QualifyRange("Digi", "A2:G"))
	assert.Equal(t, "Other!A1", QualifyRange("Digi", "Other!A1"))
}

func TestColumns(t *testing.T) {
	for name, idx := range map[string]int{"A": 1, "J": 10, "Z": 26, "AA": 27, "AZ": 52, "BA": 53} {
		assert.Equal(t, idx, ColumnIndex(name), name)
		assert.Equal(t, name, ColumnName(idx), name)
	}
	assert.Equal(t, 28, ColumnIndex("ab"))
	assert.Equal(t, 702, ColumnIndex("ZZ"))
	assert.Equal(t, "AAA", ColumnName(703))
	assert.Equal(t, 0, ColumnIndex("A1"))
	assert.Equal(t, 0, ColumnIndex(""))
	assert.Equal(t, "", ColumnName(0))
	assert.Equal(t, "", ColumnName(-3))
}
