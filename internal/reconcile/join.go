package reconcile

import (
	"time"

	"github.com/sells-group/dealsync/internal/model"
)

// Key is one cleaned lookup value and the index it is looked up in.
type Key struct {
	Field string
	Value string
}

// Row is a spreadsheet row number and its lookup keys in priority order.
type Row struct {
	Number int
	Keys   []Key
}

// Result is the output for one row. Unmatched rows carry NotFound in every
// field.
type Result struct {
	Row     int
	Matched bool
	Fields  []string
}

// Index maps field name to cleaned key to contact.
type Index struct {
	byField map[string]map[string]indexed
}

type indexed struct {
	contact model.Contact
	updated time.Time
}

// BuildIndex keys every contact by the variant's key functions. On a key
// collision the later contact wins, unless the variant keeps the newest by
// updated_at, in which case an older or equal timestamp never replaces.
func BuildIndex(v Variant, contacts []model.Contact) *Index {
	idx := &Index{byField: make(map[string]map[string]indexed, len(v.Indexes))}
	for _, kf := range v.Indexes {
		idx.byField[kf.Field] = make(map[string]indexed)
	}
	for _, c := range contacts {
		updated := c.UpdatedTime()
		for _, kf := range v.Indexes {
			m := idx.byField[kf.Field]
			for _, key := range kf.Keys(c) {
				if key == "" {
					continue
				}
				if prev, ok := m[key]; ok && v.KeepNewest && !updated.After(prev.updated) {
					continue
				}
				m[key] = indexed{contact: c, updated: updated}
			}
		}
	}
	return idx
}

// Lookup returns the contact for the first key that hits.
func (idx *Index) Lookup(keys []Key) (model.Contact, bool) {
	for _, k := range keys {
		if e, ok := idx.byField[k.Field][k.Value]; ok {
			return e.contact, true
		}
	}
	return model.Contact{}, false
}

// Sizes returns the number of keys per field.
func (idx *Index) Sizes() map[string]int {
	out := make(map[string]int, len(idx.byField))
	for f, m := range idx.byField {
		out[f] = len(m)
	}
	return out
}

// Join looks up every row. Misses render every field as NotFound.
func Join(v Variant, rows []Row, idx *Index) []Result {
	results := make([]Result, 0, len(rows))
	for _, row := range rows {
		c, ok := idx.Lookup(row.Keys)
		if !ok {
			fields := make([]string, len(v.Columns))
			for i := range fields {
				fields[i] = NotFound
			}
			results = append(results, Result{Row: row.Number, Fields: fields})
			continue
		}
		results = append(results, Result{Row: row.Number, Matched: true, Fields: v.Fields(c)})
	}
	return results
}
