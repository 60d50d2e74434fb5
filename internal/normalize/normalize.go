// Package normalize turns raw CRM and spreadsheet values into the canonical
// forms used as join keys. Every function is total: malformed input yields
// the empty string, never an error.
package normalize

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/sells-group/dealsync/internal/model"
)

// MinPhoneDigits is the shortest digit string accepted as a phone number.
const MinPhoneDigits = 10

// ListSeparator joins multi-valued phone and email fields.
const ListSeparator = ", "

const benefitIDPrefix = "PURL "

var (
	nonDigit = regexp.MustCompile(`\D`)
	emailRe  = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)
)

// Phone strips every non-digit character and returns the digits, or "" when
// fewer than MinPhoneDigits remain.
func Phone(raw string) string {
	digits := nonDigit.ReplaceAllString(raw, "")
	if len(digits) < MinPhoneDigits {
		return ""
	}
	return digits
}

// Email trims whitespace and returns the address if it looks like
// local@domain.tld, otherwise "".
func Email(raw string) string {
	e := strings.TrimSpace(raw)
	if !emailRe.MatchString(e) {
		return ""
	}
	return e
}

// BenefitID trims whitespace and drops a leading "PURL " prefix.
func BenefitID(raw string) string {
	id := strings.TrimSpace(raw)
	return strings.TrimPrefix(id, benefitIDPrefix)
}

// Phones splits a joined phone field and returns every valid phone in order.
func Phones(joined string) []string {
	return cleanList(joined, Phone)
}

// Emails splits a joined email field and returns every valid address in order.
func Emails(joined string) []string {
	return cleanList(joined, Email)
}

func cleanList(joined string, clean func(string) string) []string {
	if joined == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(joined, ListSeparator) {
		if v := clean(part); v != "" {
			out = append(out, v)
		}
	}
	return out
}

// Label renders an enum-like stored value for a report cell. Structured
// status values yield their description; nil yields "".
func Label(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case *model.StageStatus:
		if v == nil {
			return ""
		}
		return v.Label()
	case model.StageStatus:
		return v.Label()
	case model.Outcome:
		return string(v)
	case map[string]any:
		if d, ok := v["description"]; ok {
			return Label(d)
		}
		return fmt.Sprint(v)
	case fmt.Stringer:
		return v.String()
	default:
		return fmt.Sprint(v)
	}
}
