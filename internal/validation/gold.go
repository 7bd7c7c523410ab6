package validation

import (
	"fmt"

	"github.com/linsuisheng034/workdatahub/internal/errs"
	"github.com/linsuisheng034/workdatahub/internal/models"
)

// GoldSchema checks the invariants a frame must satisfy immediately before
// it is handed to the warehouse loader (spec §4.4 Gold frame schema):
// required columns are non-null, monetary columns are non-negative, and the
// composite primary key has no duplicate rows.
type GoldSchema struct {
	NotNullColumns  []string
	MonetaryColumns []string
	CompositeKey    []string
}

// Validate returns one RejectionRecord per offending row rather than
// failing the whole frame outright — Gold violations are row-scoped, unlike
// Bronze's frame-scoped threshold check. The caller decides whether the
// aggregate rejection count breaches the run's tolerance, except that a
// frame in which every row is rejected also returns a fatal ValidationError.
func (s GoldSchema) Validate(domain string, frame *models.Frame) ([]models.RejectionRecord, error) {
	var rejections []models.RejectionRecord
	seenKeys := make(map[string]int, len(frame.Rows))

	for i, row := range frame.Rows {
		if rec, bad := s.checkNotNull(row); bad {
			rejections = append(rejections, rec)
			continue
		}
		if rec, bad := s.checkMonetary(row); bad {
			rejections = append(rejections, rec)
			continue
		}
		key := compositeKeyValue(row, s.CompositeKey)
		if firstIdx, dup := seenKeys[key]; dup {
			rejections = append(rejections, models.RejectionRecord{
				RowSnapshot:   row,
				ErrorType:     "duplicate_key",
				ErrorField:    fmt.Sprintf("%v", s.CompositeKey),
				ErrorMessage:  fmt.Sprintf("composite key %q duplicates row seen at index %d", key, firstIdx),
				PipelineStage: "gold_validation",
			})
			continue
		}
		seenKeys[key] = i
	}

	if len(frame.Rows) > 0 && len(rejections) == len(frame.Rows) {
		return rejections, errs.NewValidationError(domain, "every row in the frame failed gold validation", len(rejections), len(frame.Rows), true, nil)
	}
	return rejections, nil
}

func (s GoldSchema) checkNotNull(row models.Row) (models.RejectionRecord, bool) {
	for _, col := range s.NotNullColumns {
		v, ok := row[col]
		if !ok || v == nil || v == "" {
			return models.RejectionRecord{
				RowSnapshot:   row,
				ErrorType:     "not_null_violation",
				ErrorField:    col,
				ErrorMessage:  fmt.Sprintf("column %q must not be null", col),
				PipelineStage: "gold_validation",
			}, true
		}
	}
	return models.RejectionRecord{}, false
}

func (s GoldSchema) checkMonetary(row models.Row) (models.RejectionRecord, bool) {
	for _, col := range s.MonetaryColumns {
		v, ok := row[col]
		if !ok || v == nil {
			continue
		}
		f, ok := toFloat(v)
		if !ok {
			return models.RejectionRecord{
				RowSnapshot:   row,
				ErrorType:     "type_violation",
				ErrorField:    col,
				ErrorMessage:  fmt.Sprintf("column %q is not numeric", col),
				PipelineStage: "gold_validation",
			}, true
		}
		if f < 0 {
			return models.RejectionRecord{
				RowSnapshot:   row,
				ErrorType:     "negative_monetary_value",
				ErrorField:    col,
				ErrorMessage:  fmt.Sprintf("column %q must not be negative, got %v", col, v),
				PipelineStage: "gold_validation",
			}, true
		}
	}
	return models.RejectionRecord{}, false
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	default:
		return 0, false
	}
}

func compositeKeyValue(row models.Row, cols []string) string {
	s := ""
	for _, c := range cols {
		s += fmt.Sprintf("%v\x1f", row[c])
	}
	return s
}
