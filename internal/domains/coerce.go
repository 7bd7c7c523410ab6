package domains

import (
	"fmt"

	"github.com/linsuisheng034/workdatahub/internal/validation"
)

// coerceString converts a cell's loosely-typed value into a string, since
// RowIn permits absent or string-shaped fields (spec §3).
func coerceString(v any) string {
	if v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprintf("%v", v)
}

// coerceFloat converts a cell's value into a float64, treating an absent
// or non-numeric value as zero — the Gold monetary-column check rejects
// negative values, not absent ones, so zero is a safe, visible default.
func coerceFloat(v any) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case float32:
		return float64(n)
	case int:
		return float64(n)
	case int64:
		return float64(n)
	case string:
		var f float64
		if _, err := fmt.Sscanf(n, "%g", &f); err == nil {
			return f
		}
	}
	return 0
}

// coerceReportMonth parses a loose 月度 value (spec §4.4 shared date parser:
// YYYYMM, YYYY-MM, or Chinese "YYYY年M月") into the canonical YYYY-MM-01
// form the DATE column stores.
func coerceReportMonth(v any) (string, error) {
	s := coerceString(v)
	t, err := validation.ParseReportMonth(s)
	if err != nil {
		return "", err
	}
	return t.Format("2006-01-02"), nil
}
