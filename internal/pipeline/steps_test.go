package pipeline

import (
	"context"
	"testing"

	"github.com/linsuisheng034/workdatahub/internal/enrichment"
	"github.com/linsuisheng034/workdatahub/internal/models"
)

func TestMappingStepRenamesColumns(t *testing.T) {
	frame := &models.Frame{
		Columns: []string{"old_name"},
		Rows:    []models.Row{{"old_name": "v1"}},
	}
	step := MappingStep{Renames: map[string]string{"old_name": "new_name"}}

	out, _, err := step.Run(context.Background(), frame)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.Rows[0]["new_name"] != "v1" {
		t.Fatalf("expected renamed value, got %v", out.Rows[0])
	}
	if _, stillPresent := out.Rows[0]["old_name"]; stillPresent {
		t.Fatalf("expected old column removed, got %v", out.Rows[0])
	}
	if frame.Columns[0] != "old_name" {
		t.Fatal("expected original frame's columns untouched (immutability invariant)")
	}
}

func TestReplacementStepSubstitutesKnownValues(t *testing.T) {
	frame := &models.Frame{Columns: []string{"status"}, Rows: []models.Row{{"status": "A"}, {"status": "Z"}}}
	step := ReplacementStep{Column: "status", Replacements: map[string]string{"A": "active"}}

	out, _, _ := step.Run(context.Background(), frame)

	if out.Rows[0]["status"] != "active" {
		t.Fatalf("expected substituted value, got %v", out.Rows[0]["status"])
	}
	if out.Rows[1]["status"] != "Z" {
		t.Fatalf("expected unmapped value untouched, got %v", out.Rows[1]["status"])
	}
}

func TestCleansingStepAppliesNamedRules(t *testing.T) {
	frame := &models.Frame{Columns: []string{"name"}, Rows: []models.Row{{"name": "  Acme  "}}}
	step := CleansingStep{ColumnRules: map[string][]string{"name": {"trim_whitespace"}}}

	out, _, _ := step.Run(context.Background(), frame)

	if out.Rows[0]["name"] != "Acme" {
		t.Fatalf("expected trimmed value, got %q", out.Rows[0]["name"])
	}
}

func TestCalculationStepAddsDerivedField(t *testing.T) {
	frame := &models.Frame{Columns: []string{"a", "b"}, Rows: []models.Row{{"a": 2.0, "b": 3.0}}}
	step := CalculationStep{
		FieldName: "sum",
		Fn: func(row models.Row) (any, error) {
			return row["a"].(float64) + row["b"].(float64), nil
		},
	}

	out, rejections, _ := step.Run(context.Background(), frame)

	if len(rejections) != 0 {
		t.Fatalf("expected no rejections, got %v", rejections)
	}
	if out.Rows[0]["sum"] != 5.0 {
		t.Fatalf("expected derived sum 5.0, got %v", out.Rows[0]["sum"])
	}
	if !containsColumn(out.Columns, "sum") {
		t.Fatal("expected derived column added to schema")
	}
}

func TestDropStepRemovesColumns(t *testing.T) {
	frame := &models.Frame{Columns: []string{"keep", "scratch"}, Rows: []models.Row{{"keep": "v", "scratch": "x"}}}
	step := DropStep{Columns: []string{"scratch"}}

	out, _, _ := step.Run(context.Background(), frame)

	if containsColumn(out.Columns, "scratch") {
		t.Fatal("expected scratch column dropped")
	}
	if _, present := out.Rows[0]["scratch"]; present {
		t.Fatal("expected scratch value dropped from row")
	}
}

func TestGoldProjectionStepProjectsColumnOrder(t *testing.T) {
	frame := &models.Frame{
		Columns: []string{"a", "b", "c"},
		Rows:    []models.Row{{"a": 1, "b": 2, "c": 3}},
	}
	step := GoldProjectionStep{OutputColumns: []string{"c", "a"}}

	out, _, _ := step.Run(context.Background(), frame)

	if len(out.Columns) != 2 || out.Columns[0] != "c" || out.Columns[1] != "a" {
		t.Fatalf("expected projected column order [c a], got %v", out.Columns)
	}
	if _, present := out.Rows[0]["b"]; present {
		t.Fatal("expected column b dropped by projection")
	}
}

func TestCompanyIdResolutionStepFallsBackToTempID(t *testing.T) {
	frame := &models.Frame{Columns: []string{"customer_name"}, Rows: []models.Row{{"customer_name": "新公司XYZ"}}}
	resolver := enrichment.NewResolver(enrichment.Options{Salt: "testsalt"})
	step := CompanyIdResolutionStep{
		Resolver: resolver,
		BuildRequest: func(row models.Row) models.ResolutionRequest {
			return models.ResolutionRequest{CustomerName: row["customer_name"].(string)}
		},
	}

	out, _, err := step.Run(context.Background(), frame)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	id, ok := out.Rows[0]["company_id"].(string)
	if !ok || id == "" {
		t.Fatalf("expected a generated temp company_id, got %v", out.Rows[0]["company_id"])
	}
}

func TestSchemaValidationStepRejectsFailingRows(t *testing.T) {
	frame := &models.Frame{Columns: []string{"amount"}, Rows: []models.Row{{"amount": -1.0}, {"amount": 1.0}}}
	step := SchemaValidationStep{
		ToRowOut: func(row models.Row) (interface{}, error) { return row, nil },
		Validate: func(v interface{}) []string {
			row := v.(models.Row)
			if amt, _ := row["amount"].(float64); amt < 0 {
				return []string{"amount must be non-negative"}
			}
			return nil
		},
	}

	out, rejections, _ := step.Run(context.Background(), frame)

	if len(out.Rows) != 1 {
		t.Fatalf("expected one surviving row, got %d", len(out.Rows))
	}
	if len(rejections) != 1 {
		t.Fatalf("expected one rejection, got %d", len(rejections))
	}
}
