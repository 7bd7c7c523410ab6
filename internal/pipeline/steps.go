package pipeline

import (
	"context"
	"fmt"

	"github.com/linsuisheng034/workdatahub/internal/cleansing"
	"github.com/linsuisheng034/workdatahub/internal/enrichment"
	"github.com/linsuisheng034/workdatahub/internal/models"
)

// The standard step kinds below are a library of reusable Step
// implementations every domain composes into its own sequence (spec §4.5):
// rename columns, substitute values, invoke the cleansing registry, derive
// a calculated field, drop columns, resolve company identity, validate a
// row against its RowOut struct tags, and project down to output columns.
// None of them know which domain they run for — domain-specific behavior
// is supplied entirely via constructor arguments.

// MappingStep renames frame columns per a static old-name→new-name map.
type MappingStep struct {
	Renames map[string]string
}

func (s MappingStep) Name() string { return "mapping" }

func (s MappingStep) Run(ctx context.Context, frame *models.Frame) (*models.Frame, []models.RejectionRecord, error) {
	out := frame.Clone()
	newCols := make([]string, len(out.Columns))
	for i, c := range out.Columns {
		if renamed, ok := s.Renames[c]; ok {
			newCols[i] = renamed
		} else {
			newCols[i] = c
		}
	}
	out.Columns = newCols
	for _, row := range out.Rows {
		for oldName, newName := range s.Renames {
			if oldName == newName {
				continue
			}
			if v, ok := row[oldName]; ok {
				row[newName] = v
				delete(row, oldName)
			}
		}
	}
	return out, nil, nil
}

// ReplacementStep substitutes values in one column per a static
// old-value→new-value map, leaving unmapped values untouched.
type ReplacementStep struct {
	Column       string
	Replacements map[string]string
}

func (s ReplacementStep) Name() string { return "replacement:" + s.Column }

func (s ReplacementStep) Run(ctx context.Context, frame *models.Frame) (*models.Frame, []models.RejectionRecord, error) {
	out := frame.Clone()
	for _, row := range out.Rows {
		v, ok := row[s.Column]
		if !ok {
			continue
		}
		s2, ok := v.(string)
		if !ok {
			continue
		}
		if replacement, ok := s.Replacements[s2]; ok {
			row[s.Column] = replacement
		}
	}
	return out, nil, nil
}

// CleansingStep applies named cleansing.Rules to a set of columns (spec
// §4.3/§4.5: "invokes the registry for a domain's configured fields").
type CleansingStep struct {
	// ColumnRules maps each column to the ordered list of rule names
	// applied to its values.
	ColumnRules map[string][]string
}

func (s CleansingStep) Name() string { return "cleansing" }

func (s CleansingStep) Run(ctx context.Context, frame *models.Frame) (*models.Frame, []models.RejectionRecord, error) {
	for column, rules := range s.ColumnRules {
		for _, name := range rules {
			if _, ok := cleansing.Lookup(name); !ok {
				return nil, nil, fmt.Errorf("cleansing: unknown rule %q for column %q", name, column)
			}
		}
	}
	out := frame.Clone()
	for column, rules := range s.ColumnRules {
		for _, row := range out.Rows {
			if v, ok := row[column]; ok {
				row[column] = cleansing.Apply(v, rules)
			}
		}
	}
	return out, nil, nil
}

// CalculationFunc derives one field's value from the rest of the row.
type CalculationFunc func(row models.Row) (any, error)

// CalculationStep applies a named function to derive one field per row
// (spec §4.5 CalculationStep).
type CalculationStep struct {
	FieldName string
	Fn        CalculationFunc
}

func (s CalculationStep) Name() string { return "calculation:" + s.FieldName }

func (s CalculationStep) Run(ctx context.Context, frame *models.Frame) (*models.Frame, []models.RejectionRecord, error) {
	out := frame.Clone()
	var rejections []models.RejectionRecord
	for _, row := range out.Rows {
		v, err := s.Fn(row)
		if err != nil {
			rejections = append(rejections, models.RejectionRecord{
				RowSnapshot:   row,
				ErrorType:     "calculation_error",
				ErrorField:    s.FieldName,
				ErrorMessage:  err.Error(),
				PipelineStage: s.Name(),
			})
			continue
		}
		row[s.FieldName] = v
	}
	if !containsColumn(out.Columns, s.FieldName) {
		out.Columns = append(out.Columns, s.FieldName)
	}
	return out, rejections, nil
}

// DropStep removes columns from the frame entirely.
type DropStep struct {
	Columns []string
}

func (s DropStep) Name() string { return "drop" }

func (s DropStep) Run(ctx context.Context, frame *models.Frame) (*models.Frame, []models.RejectionRecord, error) {
	out := frame.Clone()
	drop := make(map[string]bool, len(s.Columns))
	for _, c := range s.Columns {
		drop[c] = true
	}
	remaining := out.Columns[:0]
	for _, c := range out.Columns {
		if !drop[c] {
			remaining = append(remaining, c)
		}
	}
	out.Columns = remaining
	for _, row := range out.Rows {
		for _, c := range s.Columns {
			delete(row, c)
		}
	}
	return out, nil, nil
}

// RequestBuilder extracts a models.ResolutionRequest from one row.
type RequestBuilder func(row models.Row) models.ResolutionRequest

// CompanyIdResolutionStep delegates company identity resolution to
// enrichment.Resolver (spec §4.5 CompanyIdResolutionStep → §4.6). It
// resolves the whole frame's rows concurrently via ResolveAll, preserving
// row order, then writes the resolved company_id back into each row.
type CompanyIdResolutionStep struct {
	Resolver    *enrichment.Resolver
	BuildRequest RequestBuilder
	TargetField string
}

func (s CompanyIdResolutionStep) Name() string { return "company_id_resolution" }

func (s CompanyIdResolutionStep) Run(ctx context.Context, frame *models.Frame) (*models.Frame, []models.RejectionRecord, error) {
	out := frame.Clone()
	requests := make([]models.ResolutionRequest, len(out.Rows))
	for i, row := range out.Rows {
		requests[i] = s.BuildRequest(row)
	}
	results, err := s.Resolver.ResolveAll(ctx, requests)
	if err != nil {
		return nil, nil, fmt.Errorf("company_id_resolution: %w", err)
	}
	field := s.TargetField
	if field == "" {
		field = "company_id"
	}
	if !containsColumn(out.Columns, field) {
		out.Columns = append(out.Columns, field)
	}
	for i, row := range out.Rows {
		row[field] = results[i].CompanyID
	}
	return out, nil, nil
}

// SchemaValidationStep runs validation.ValidateRow (a domain's RowOut
// struct-tag constraints) over every row, rejecting rows that fail instead
// of aborting the whole frame (spec §4.5 SchemaValidationStep → §4.4).
type SchemaValidationStep struct {
	// ToRowOut converts a generic Row into the domain's strict RowOut
	// struct so validator tags can run against it.
	ToRowOut func(row models.Row) (interface{}, error)
	Validate func(v interface{}) []string
}

func (s SchemaValidationStep) Name() string { return "schema_validation" }

func (s SchemaValidationStep) Run(ctx context.Context, frame *models.Frame) (*models.Frame, []models.RejectionRecord, error) {
	out := frame.Clone()
	var rejections []models.RejectionRecord
	kept := out.Rows[:0]
	for _, row := range out.Rows {
		rowOut, err := s.ToRowOut(row)
		if err != nil {
			rejections = append(rejections, models.RejectionRecord{
				RowSnapshot: row, ErrorType: "type_violation", ErrorField: "", ErrorMessage: err.Error(), PipelineStage: s.Name(),
			})
			continue
		}
		if msgs := s.Validate(rowOut); len(msgs) > 0 {
			for _, m := range msgs {
				rejections = append(rejections, models.RejectionRecord{
					RowSnapshot: row, ErrorType: "field_validation", ErrorField: "", ErrorMessage: m, PipelineStage: s.Name(),
				})
			}
			continue
		}
		kept = append(kept, row)
	}
	out.Rows = kept
	return out, rejections, nil
}

// GoldProjectionStep projects the frame down to exactly the output columns
// a domain's table expects, in the given order (spec §4.5
// GoldProjectionStep).
type GoldProjectionStep struct {
	OutputColumns []string
}

func (s GoldProjectionStep) Name() string { return "gold_projection" }

func (s GoldProjectionStep) Run(ctx context.Context, frame *models.Frame) (*models.Frame, []models.RejectionRecord, error) {
	rows := make([]models.Row, len(frame.Rows))
	for i, row := range frame.Rows {
		projected := make(models.Row, len(s.OutputColumns))
		for _, c := range s.OutputColumns {
			projected[c] = row[c]
		}
		rows[i] = projected
	}
	return &models.Frame{Columns: append([]string(nil), s.OutputColumns...), Rows: rows}, nil, nil
}

func containsColumn(columns []string, name string) bool {
	for _, c := range columns {
		if c == name {
			return true
		}
	}
	return false
}
