package pipedrive

import (
	"math"
	"strings"

	"github.com/tidwall/gjson"
)

// RefKind discriminates the shapes a person reference takes in CRM payloads.
type RefKind int

const (
	// RefNone means the reference is absent or null.
	RefNone RefKind = iota
	// RefBare is a bare id, number or string.
	RefBare
	// RefWrapped is an object {"value": id, "name": ...}.
	RefWrapped
)

// PersonRef is a deal's reference to its person.
type PersonRef struct {
	Kind RefKind
	ID   string
	Name string
}

// ParsePersonRef decodes a person_id field.
func ParsePersonRef(res gjson.Result) PersonRef {
	switch {
	case !res.Exists() || res.Type == gjson.Null:
		return PersonRef{Kind: RefNone}
	case res.IsObject():
		return PersonRef{
			Kind: RefWrapped,
			ID:   scalarID(res.Get("value")),
			Name: res.Get("name").String(),
		}
	default:
		return PersonRef{Kind: RefBare, ID: scalarID(res)}
	}
}

// UnmarshalJSON implements json.Unmarshaler.
func (r *PersonRef) UnmarshalJSON(data []byte) error {
	*r = ParsePersonRef(gjson.ParseBytes(data))
	return nil
}

// Resolve returns the referenced person id, or false if there is none.
func (r PersonRef) Resolve() (string, bool) {
	if r.Kind == RefNone || r.ID == "" {
		return "", false
	}
	return r.ID, true
}

// scalarID renders a number or string id; zero, empty and non-scalar values
// resolve to "".
func scalarID(res gjson.Result) string {
	var id string
	switch res.Type {
	case gjson.Number, gjson.String:
		id = strings.TrimSpace(res.String())
	default:
		return ""
	}
	if id == "0" {
		return ""
	}
	return id
}

// DealItem is one record from the deals listing.
type DealItem struct {
	ID         string
	Title      string
	Person     PersonRef
	UpdateTime string
}

func parseDealItem(res gjson.Result) DealItem {
	return DealItem{
		ID:         scalarID(res.Get("id")),
		Title:      res.Get("title").String(),
		Person:     ParsePersonRef(res.Get("person_id")),
		UpdateTime: res.Get("update_time").String(),
	}
}

// PersonDetail is the full person record, including account-specific
// custom fields addressed by their hashed keys.
type PersonDetail struct {
	ID     string
	Name   string
	Phones []string
	Emails []string
	raw    gjson.Result
}

func parsePersonDetail(res gjson.Result) *PersonDetail {
	return &PersonDetail{
		ID:     scalarID(res.Get("id")),
		Name:   res.Get("name").String(),
		Phones: values(res.Get("phone")),
		Emails: values(res.Get("email")),
		raw:    res,
	}
}

// CustomField returns the string value of a custom field, or "" when the
// field is absent or null.
func (p *PersonDetail) CustomField(key string) string {
	if p == nil {
		return ""
	}
	v := p.raw.Get(gjson.Escape(key))
	if !v.Exists() || v.Type == gjson.Null {
		return ""
	}
	return v.String()
}

// values extracts the "value" of every non-null entry in a
// [{"value": ..., "label": ...}] list.
func values(list gjson.Result) []string {
	var out []string
	for _, item := range list.Array() {
		if item.Type == gjson.Null {
			continue
		}
		out = append(out, item.Get("value").String())
	}
	return out
}

// DealDetail is the full deal record.
type DealDetail struct {
	ID         string
	Person     PersonRef
	StageOrder *int // nil when absent or not an integer
	Status     string
	AssignedTo string
	UpdateTime string
}

func parseDealDetail(res gjson.Result) *DealDetail {
	d := &DealDetail{
		ID:         scalarID(res.Get("id")),
		Person:     ParsePersonRef(res.Get("person_id")),
		Status:     res.Get("status").String(),
		AssignedTo: res.Get("user_id.name").String(),
		UpdateTime: res.Get("update_time").String(),
	}
	if st := res.Get("stage_order_nr"); st.Type == gjson.Number && st.Num == math.Trunc(st.Num) {
		n := int(st.Num)
		d.StageOrder = &n
	}
	return d
}
