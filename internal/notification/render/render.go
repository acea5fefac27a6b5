// Package render substitutes variables into notification templates.
package render

import (
	"fmt"
	"sort"
	"strings"

	"github.com/shopspring/decimal"
)

// Rendered is a template pair after substitution.
type Rendered struct {
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

// Render replaces every {{KEY}} and {KEY} token for the keys in vars in both
// subject and body. A key present with a nil value renders as the empty
// string. A key absent from vars is not a variable, so its tokens are left
// as written.
func Render(subject, body string, vars map[string]any) Rendered {
	if len(vars) == 0 {
		return Rendered{Subject: subject, Body: body}
	}

	keys := make([]string, 0, len(vars))
	for key := range vars {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	pairs := make([]string, 0, len(keys)*4)
	for _, key := range keys {
		pairs = append(pairs, "{{"+key+"}}", Stringify(vars[key]))
	}
	for _, key := range keys {
		pairs = append(pairs, "{"+key+"}", Stringify(vars[key]))
	}
	replacer := strings.NewReplacer(pairs...)

	return Rendered{
		Subject: replacer.Replace(subject),
		Body:    replacer.Replace(body),
	}
}

// Stringify coerces a template value to text.
func Stringify(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case decimal.Decimal:
		return v.StringFixed(2)
	case *decimal.Decimal:
		if v == nil {
			return ""
		}
		return v.StringFixed(2)
	case fmt.Stringer:
		return v.String()
	default:
		return fmt.Sprint(v)
	}
}

// Plural picks singular or plural for count.
func Plural(count int, singular, plural string) string {
	if count == 1 {
		return singular
	}
	return plural
}

// PluralVariables returns the count and text keys templates use to describe
// outstanding mail.
func PluralVariables(letters, packages int) map[string]any {
	return map[string]any{
		"LetterCount":  letters,
		"LetterText":   Plural(letters, "letter", "letters"),
		"PackageCount": packages,
		"PackageText":  Plural(packages, "package", "packages"),
		"ItemCount":    letters + packages,
		"ItemText":     Plural(letters+packages, "item", "items"),
	}
}
