package validation

import (
	"fmt"

	"github.com/linsuisheng034/workdatahub/internal/config"
	"github.com/linsuisheng034/workdatahub/internal/errs"
	"github.com/linsuisheng034/workdatahub/internal/models"
)

// BronzeSchema names the required columns for a domain's raw frame, the
// minimum fraction of non-null values each must carry, and the row-level
// failure threshold below which invalid rows are collected rather than
// aborting the run (spec §4.4 Bronze frame schema). A zero
// NonNullRatioThreshold falls back to config.DefaultNonNullRatioThreshold;
// a zero FailureThreshold falls back to config.DefaultBronzeFailureThreshold.
type BronzeSchema struct {
	RequiredColumns       []string
	NonNullRatioThreshold float64
	FailureThreshold      float64
}

// Validate checks frame against the schema in two stages. First, a
// frame-level check: any required column missing entirely, or whose
// non-null ratio across the whole frame falls below
// NonNullRatioThreshold, rejects the frame outright before any row-level
// processing begins (spec §4.4). Second, a row-level check: a row is
// invalid when any required column is null or empty in that row
// specifically. If the fraction of invalid rows exceeds FailureThreshold,
// the run aborts fatally as a likely systemic issue; otherwise the invalid
// rows are returned as rejections and the caller proceeds with the rest
// (spec §8: "11% bad rows aborts; 9% collects and proceeds").
func (s BronzeSchema) Validate(domain string, frame *models.Frame) ([]models.RejectionRecord, error) {
	nonNullThreshold := s.NonNullRatioThreshold
	if nonNullThreshold == 0 {
		nonNullThreshold = config.DefaultNonNullRatioThreshold
	}
	failureThreshold := s.FailureThreshold
	if failureThreshold == 0 {
		failureThreshold = config.DefaultBronzeFailureThreshold
	}

	present := make(map[string]bool, len(frame.Columns))
	for _, c := range frame.Columns {
		present[c] = true
	}

	total := len(frame.Rows)
	for _, col := range s.RequiredColumns {
		if !present[col] {
			return nil, errs.NewValidationError(domain, fmt.Sprintf("required column %q is missing from the source frame", col), total, total, true, nil)
		}
		if total == 0 {
			continue
		}
		nonNull := 0
		for _, row := range frame.Rows {
			if v, ok := row[col]; ok && v != nil && v != "" {
				nonNull++
			}
		}
		ratio := float64(nonNull) / float64(total)
		if ratio < nonNullThreshold {
			rejected := total - nonNull
			return nil, errs.NewValidationError(domain, fmt.Sprintf("column %q non-null ratio %.2f below threshold %.2f", col, ratio, nonNullThreshold), rejected, total, true, nil)
		}
	}

	if total == 0 {
		return nil, nil
	}

	var rejections []models.RejectionRecord
	for _, row := range frame.Rows {
		if col, bad := s.firstInvalidColumn(row); bad {
			rejections = append(rejections, models.RejectionRecord{
				RowSnapshot:   row,
				ErrorType:     "not_null_violation",
				ErrorField:    col,
				ErrorMessage:  fmt.Sprintf("required column %q is null or empty", col),
				PipelineStage: "bronze_validation",
			})
		}
	}

	failureRatio := float64(len(rejections)) / float64(total)
	if failureRatio > failureThreshold {
		return rejections, errs.NewValidationError(domain,
			fmt.Sprintf("%.0f%% of rows failed bronze validation, exceeding the %.0f%% failure threshold (likely systemic issue)", failureRatio*100, failureThreshold*100),
			len(rejections), total, true, nil)
	}
	return rejections, nil
}

func (s BronzeSchema) firstInvalidColumn(row models.Row) (string, bool) {
	for _, col := range s.RequiredColumns {
		v, ok := row[col]
		if !ok || v == nil || v == "" {
			return col, true
		}
	}
	return "", false
}
