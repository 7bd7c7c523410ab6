// Package cleansing implements the named, pure value-transform rules the
// pipeline's CleansingStep applies by name (spec §4.3/§4.5). Every rule is a
// total function from one cell value to another: no I/O, no row context,
// and idempotent (applying a rule twice produces the same result as
// applying it once).
package cleansing

import (
	"strings"
	"unicode"

	"golang.org/x/text/width"
)

// Rule is a single named value transform.
type Rule func(value any) any

var registry = map[string]Rule{
	"trim_whitespace":            trimWhitespace,
	"normalize_company_name":     normalizeCompanyName,
	"standardize_null_values":    standardizeNullValues,
	"remove_currency_symbols":    removeCurrencySymbols,
	"clean_comma_separated_number": cleanCommaSeparatedNumber,
	"normalize_fullwidth":        normalizeFullwidth,
}

// Lookup returns the rule registered under name, or false if unknown. The
// pipeline's CleansingStep checks every configured name with Lookup and
// fails on an unknown one before applying any rule, rather than silently
// skipping it.
func Lookup(name string) (Rule, bool) {
	r, ok := registry[name]
	return r, ok
}

// Apply runs each named rule, in order, over value. Apply itself skips names
// it does not recognize; CleansingStep rejects unknown names through Lookup
// before it calls Apply.
func Apply(value any, ruleNames []string) any {
	for _, name := range ruleNames {
		if r, ok := registry[name]; ok {
			value = r(value)
		}
	}
	return value
}

var nullTokens = map[string]bool{
	"":     true,
	"nan":  true,
	"n/a":  true,
	"na":   true,
	"null": true,
	"none": true,
	"-":    true,
	"--":   true,
}

func asString(value any) (string, bool) {
	s, ok := value.(string)
	return s, ok
}

func trimWhitespace(value any) any {
	s, ok := asString(value)
	if !ok {
		return value
	}
	return strings.TrimSpace(s)
}

// normalizeCompanyName lowercases, collapses internal whitespace, and
// strips the common legal-entity suffixes that otherwise make the same
// company resolve to two different cache keys. Suffixes are stripped until
// none is left, so stacked suffixes go in one application.
func normalizeCompanyName(value any) any {
	s, ok := asString(value)
	if !ok {
		return value
	}
	s = strings.TrimSpace(width.Fold.String(s))
	s = strings.ToLower(s)
	s = strings.Join(strings.Fields(s), " ")
	for trimmed := true; trimmed; {
		trimmed = false
		for _, suffix := range []string{
			"co., ltd.", "co.,ltd.", "co., ltd", "co.,ltd",
			"limited", "corporation", "incorporated", "inc.", "inc",
			"股份有限公司", "有限公司",
		} {
			if strings.HasSuffix(s, suffix) {
				s = strings.TrimSpace(strings.TrimSuffix(s, suffix))
				trimmed = true
			}
		}
	}
	return s
}

// standardizeNullValues maps the common spreadsheet null spellings ("",
// "NaN", "N/A", "-", ...) to Go's nil, so downstream non-null checks don't
// need to special-case spreadsheet conventions.
func standardizeNullValues(value any) any {
	s, ok := asString(value)
	if !ok {
		return value
	}
	if nullTokens[strings.ToLower(strings.TrimSpace(s))] {
		return nil
	}
	return value
}

// removeCurrencySymbols strips common currency markers and thousands
// separators, leaving a numeric-looking string for downstream coercion.
func removeCurrencySymbols(value any) any {
	s, ok := asString(value)
	if !ok {
		return value
	}
	var b strings.Builder
	for _, r := range s {
		switch r {
		case '¥', '$', '€', '£', ',', ' ':
			continue
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

// cleanCommaSeparatedNumber strips thousands-separating commas from a
// numeric string without touching a decimal point, e.g. "1,234.50" ->
// "1234.50".
func cleanCommaSeparatedNumber(value any) any {
	s, ok := asString(value)
	if !ok {
		return value
	}
	var b strings.Builder
	for _, r := range s {
		if r == ',' {
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// normalizeFullwidth converts full-width ASCII and full-width spaces
// (common in Chinese-locale spreadsheet exports) to their half-width
// equivalents, grounded on the same golang.org/x/text/width usage the
// discovery package applies to column headers.
func normalizeFullwidth(value any) any {
	s, ok := asString(value)
	if !ok {
		return value
	}
	var b strings.Builder
	for _, r := range s {
		if r == '　' {
			b.WriteRune(' ')
			continue
		}
		if unicode.Is(unicode.Han, r) {
			b.WriteRune(r)
			continue
		}
		b.WriteRune(width.Narrow.Rune(r))
	}
	return b.String()
}
