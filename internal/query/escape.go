package query

import (
	"strings"

	"github.com/derickschaefer/bodacc/internal/util"
)

// freeTextSpecials are the characters with meaning in the free-text
// search grammar. The stricter variant including & and | is always used.
const freeTextSpecials = `+-!(){}[]^"~*?:\/&|`

// booleanKeywords are quoted so a user typing "and" searches for the word.
var booleanKeywords = map[string]bool{"AND": true, "OR": true, "NOT": true}

// EscapeFreeText makes s safe for the `q` parameter. Every special
// character is prefixed with a backslash and bare boolean keywords are
// wrapped in double quotes. Runs of whitespace collapse to one space.
func EscapeFreeText(s string) string {
	tokens := strings.Fields(s)
	if len(tokens) == 0 {
		return ""
	}
	out := make([]string, len(tokens))
	for i, tok := range tokens {
		if booleanKeywords[strings.ToUpper(tok)] {
			out[i] = `"` + tok + `"`
			continue
		}
		var b strings.Builder
		b.Grow(len(tok) * 2)
		for _, r := range tok {
			if strings.ContainsRune(freeTextSpecials, r) {
				b.WriteByte('\\')
			}
			b.WriteRune(r)
		}
		out[i] = b.String()
	}
	return strings.Join(out, " ")
}

// EscapeStructuredValue escapes s for use inside a single-quoted ODSQL
// string literal by doubling single quotes. This is the only dialect the
// builder emits.
func EscapeStructuredValue(s string) string {
	if s == "" {
		return ""
	}
	return strings.ReplaceAll(s, "'", "''")
}

// AssertValidRange fails with *InvalidRangeError when from is after to.
// Equal bounds are a valid single-day range. An empty bound means the
// range is open on that side and always passes.
func AssertValidRange(from, to string) error {
	from, to = strings.TrimSpace(from), strings.TrimSpace(to)
	if from == "" || to == "" {
		return nil
	}
	f, err := util.ParseDate(from)
	if err != nil {
		return &InvalidFiltersError{Field: "dateFrom", Reason: err.Error()}
	}
	t, err := util.ParseDate(to)
	if err != nil {
		return &InvalidFiltersError{Field: "dateTo", Reason: err.Error()}
	}
	if f.After(t) {
		return &InvalidRangeError{From: from, To: to}
	}
	return nil
}
