// Package fkbackfill executes a domain's dependency-ordered foreign-key
// backfill rules: for each rule, collect distinct source-column values not
// already present in the target reference table, aggregate their
// candidate rows into one row per missing key, and insert them (spec
// §4.7).
package fkbackfill

import (
	"sort"

	"github.com/linsuisheng034/workdatahub/internal/models"
)

// Aggregate collapses rows sharing the same key into one projected row per
// BackfillColumn, applying first/max_by/concat_distinct as configured
// (spec §3/§4.7). rows must be non-empty.
func Aggregate(rows []models.Row, columns []models.BackfillColumn) models.Row {
	out := make(models.Row, len(columns))
	for _, col := range columns {
		if col.Aggregation == nil {
			out[col.Target] = rows[0][col.Source]
			continue
		}
		switch col.Aggregation.Type {
		case models.AggFirst:
			out[col.Target] = rows[0][col.Source]
		case models.AggMaxBy:
			out[col.Target] = maxBy(rows, col.Source, col.Aggregation.OrderColumn)
		case models.AggConcatDistinct:
			out[col.Target] = concatDistinct(rows, col.Source, col.Aggregation.Separator, col.Aggregation.Sort)
		default:
			out[col.Target] = rows[0][col.Source]
		}
	}
	return out
}

// maxBy returns the value of sourceCol from the row with the greatest
// orderCol value, breaking ties by first occurrence so the result is
// deterministic across runs (spec §4.7 tie-break rule).
func maxBy(rows []models.Row, sourceCol, orderCol string) any {
	var best any
	var bestOrder any
	found := false
	for _, row := range rows {
		order := row[orderCol]
		if !found || compareValues(order, bestOrder) > 0 {
			best = row[sourceCol]
			bestOrder = order
			found = true
		}
	}
	return best
}

// compareValues orders comparable scalar types (numbers, strings, times)
// for maxBy; equal or incomparable values return 0, which preserves the
// first-seen candidate per maxBy's tie-break rule above.
func compareValues(a, b any) int {
	switch av := a.(type) {
	case float64:
		if bv, ok := b.(float64); ok {
			switch {
			case av > bv:
				return 1
			case av < bv:
				return -1
			default:
				return 0
			}
		}
	case int:
		if bv, ok := b.(int); ok {
			return av - bv
		}
	case string:
		if bv, ok := b.(string); ok {
			switch {
			case av > bv:
				return 1
			case av < bv:
				return -1
			default:
				return 0
			}
		}
	}
	return 0
}

// concatDistinct joins the distinct, non-empty values of sourceCol across
// rows with separator, optionally sorting them first for deterministic
// output regardless of row arrival order.
func concatDistinct(rows []models.Row, sourceCol, separator string, doSort bool) string {
	seen := make(map[string]bool)
	var values []string
	for _, row := range rows {
		v, ok := row[sourceCol]
		if !ok || v == nil {
			continue
		}
		s, ok := v.(string)
		if !ok || s == "" {
			continue
		}
		if !seen[s] {
			seen[s] = true
			values = append(values, s)
		}
	}
	if doSort {
		sort.Strings(values)
	}
	if separator == "" {
		separator = ","
	}
	result := ""
	for i, v := range values {
		if i > 0 {
			result += separator
		}
		result += v
	}
	return result
}
