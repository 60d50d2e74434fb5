package reconcile

import (
	"github.com/sells-group/dealsync/internal/model"
	"github.com/sells-group/dealsync/internal/normalize"
	"github.com/sells-group/dealsync/pkg/sheets"
)

// Index field names.
const (
	FieldPhone     = "phone"
	FieldEmail     = "email"
	FieldBenefitID = "benefit_id"
)

// KeyFunc derives the index keys of a contact for one field.
type KeyFunc struct {
	Field string
	Keys  func(model.Contact) []string
}

// Variant parameterizes the reconciliation algorithm for one report.
type Variant struct {
	Name      string
	Worksheet string
	// Ranges are read in one batch and zipped row by row. Row numbers
	// follow the first range.
	Ranges []string
	// OutFrom and OutTo bound the output columns, timestamp included.
	OutFrom, OutTo string
	Indexes        []KeyFunc
	KeepNewest     bool
	// RowKeys receives one cell slice per range and returns lookup keys in
	// priority order; no keys drops the row.
	RowKeys func(cells [][]string) []Key
	Columns []string
	Fields  func(model.Contact) []string
}

// QualifiedRanges prefixes every range with the worksheet.
func (v Variant) QualifiedRanges() []string {
	out := make([]string, len(v.Ranges))
	for i, r := range v.Ranges {
		out[i] = sheets.QualifyRange(v.Worksheet, r)
	}
	return out
}

// Header returns the output column names, timestamp first.
func (v Variant) Header() []string {
	return append([]string{"timestamp"}, v.Columns...)
}

// Default report ranges.
const (
	DefaultMailersRange        = "A2:B"
	DefaultPurlsRange          = "A2:B"
	DefaultDigisheetEmailRange = "A2:G"
	DefaultDigisheetPhoneRange = "K2:K"
)

// Report names.
const (
	ReportMailers   = "mailers"
	ReportPurls     = "purls"
	ReportDigisheet = "digisheet"
)

// Reports lists the report names in run order.
var Reports = []string{ReportMailers, ReportPurls, ReportDigisheet}

func stageLabel(c model.Contact) string   { return normalize.Label(c.Stage) }
func outcomeLabel(c model.Contact) string { return normalize.Label(c.Outcome) }

func phoneKeys(c model.Contact) []string { return normalize.Phones(c.Phone) }
func emailKeys(c model.Contact) []string { return normalize.Emails(c.Email) }

// cell returns row[i], or "" when the row is too short.
func cell(row []string, i int) string {
	if i < len(row) {
		return row[i]
	}
	return ""
}

// Mailers matches the phone in the range's second column and writes C:J.
func Mailers(worksheet, rng string) Variant {
	if rng == "" {
		rng = DefaultMailersRange
	}
	return Variant{
		Name:      ReportMailers,
		Worksheet: worksheet,
		Ranges:    []string{rng},
		OutFrom:   "C",
		OutTo:     "J",
		Indexes:   []KeyFunc{{Field: FieldPhone, Keys: phoneKeys}},
		RowKeys: func(cells [][]string) []Key {
			if phone := normalize.Phone(cell(cells[0], 1)); phone != "" {
				return []Key{{Field: FieldPhone, Value: phone}}
			}
			return nil
		},
		Columns: []string{"benefit_id", "stage_status", "won_lost", "assigned_to", "name", "address", "email"},
		Fields: func(c model.Contact) []string {
			return []string{c.BenefitID, stageLabel(c), outcomeLabel(c), c.AssignedTo, c.Name, c.Address, c.Email}
		},
	}
}

// Purls matches the benefit id in the range's second column and writes C:J.
func Purls(worksheet, rng string) Variant {
	if rng == "" {
		rng = DefaultPurlsRange
	}
	return Variant{
		Name:      ReportPurls,
		Worksheet: worksheet,
		Ranges:    []string{rng},
		OutFrom:   "C",
		OutTo:     "J",
		Indexes: []KeyFunc{{Field: FieldBenefitID, Keys: func(c model.Contact) []string {
			return []string{normalize.BenefitID(c.BenefitID)}
		}}},
		RowKeys: func(cells [][]string) []Key {
			if id := normalize.BenefitID(cell(cells[0], 1)); id != "" {
				return []Key{{Field: FieldBenefitID, Value: id}}
			}
			return nil
		},
		Columns: []string{"phone_number", "stage_status", "won_lost", "assigned_to", "name", "address", "email"},
		Fields: func(c model.Contact) []string {
			return []string{c.Phone, stageLabel(c), outcomeLabel(c), c.AssignedTo, c.Name, c.Address, c.Email}
		},
	}
}

// Digisheet matches by email (seventh column of the first range), falling
// back to phone (first column of the second range), keeping the most
// recently updated contact per key. It writes A:D.
func Digisheet(worksheet, emailRange, phoneRange string) Variant {
	if emailRange == "" {
		emailRange = DefaultDigisheetEmailRange
	}
	if phoneRange == "" {
		phoneRange = DefaultDigisheetPhoneRange
	}
	return Variant{
		Name:      ReportDigisheet,
		Worksheet: worksheet,
		Ranges:    []string{emailRange, phoneRange},
		OutFrom:   "A",
		OutTo:     "D",
		Indexes: []KeyFunc{
			{Field: FieldEmail, Keys: emailKeys},
			{Field: FieldPhone, Keys: phoneKeys},
		},
		KeepNewest: true,
		RowKeys: func(cells [][]string) []Key {
			var keys []Key
			if email := normalize.Email(cell(cells[0], 6)); email != "" {
				keys = append(keys, Key{Field: FieldEmail, Value: email})
			}
			if phone := normalize.Phone(cell(cells[1], 0)); phone != "" {
				keys = append(keys, Key{Field: FieldPhone, Value: phone})
			}
			return keys
		},
		Columns: []string{"stage_status", "won_lost", "assigned_to"},
		Fields: func(c model.Contact) []string {
			return []string{stageLabel(c), outcomeLabel(c), c.AssignedTo}
		},
	}
}
