package validation

import (
	"testing"

	"github.com/linsuisheng034/workdatahub/internal/models"
)

func TestBronzeSchemaRejectsMissingColumn(t *testing.T) {
	schema := BronzeSchema{RequiredColumns: []string{"plan_code"}}
	frame := models.NewFrame([]string{"customer_name"}, []models.Row{{"customer_name": "Acme"}})
	if _, err := schema.Validate("annuity_performance", frame); err == nil {
		t.Fatal("expected error when required column is absent")
	}
}

func TestBronzeSchemaRejectsBelowNonNullRatioThreshold(t *testing.T) {
	schema := BronzeSchema{RequiredColumns: []string{"plan_code"}, NonNullRatioThreshold: 0.9}
	rows := []models.Row{
		{"plan_code": "P1"},
		{"plan_code": nil},
		{"plan_code": nil},
	}
	frame := models.NewFrame([]string{"plan_code"}, rows)
	if _, err := schema.Validate("annuity_performance", frame); err == nil {
		t.Fatal("expected error when non-null ratio is below threshold")
	}
}

func TestBronzeSchemaAcceptsHealthyFrame(t *testing.T) {
	schema := BronzeSchema{RequiredColumns: []string{"plan_code"}}
	rows := []models.Row{
		{"plan_code": "P1"},
		{"plan_code": "P2"},
	}
	frame := models.NewFrame([]string{"plan_code"}, rows)
	rejections, err := schema.Validate("annuity_performance", frame)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(rejections) != 0 {
		t.Fatalf("expected no rejections, got %d", len(rejections))
	}
}

func TestBronzeSchemaAbortsWhenRowFailureRatioExceedsThreshold(t *testing.T) {
	schema := BronzeSchema{RequiredColumns: []string{"plan_code"}, NonNullRatioThreshold: 0.5, FailureThreshold: 0.10}
	rows := make([]models.Row, 100)
	for i := range rows {
		if i < 11 {
			rows[i] = models.Row{"plan_code": nil}
		} else {
			rows[i] = models.Row{"plan_code": "P1"}
		}
	}
	frame := models.NewFrame([]string{"plan_code"}, rows)
	rejections, err := schema.Validate("annuity_performance", frame)
	if err == nil {
		t.Fatal("expected error when 11% of rows fail bronze validation, exceeding the 10% threshold")
	}
	if len(rejections) != 11 {
		t.Fatalf("expected 11 rejections reported alongside the abort, got %d", len(rejections))
	}
}

func TestBronzeSchemaCollectsAndProceedsWhenRowFailureRatioAtOrBelowThreshold(t *testing.T) {
	schema := BronzeSchema{RequiredColumns: []string{"plan_code"}, NonNullRatioThreshold: 0.5, FailureThreshold: 0.10}
	rows := make([]models.Row, 100)
	for i := range rows {
		if i < 9 {
			rows[i] = models.Row{"plan_code": nil}
		} else {
			rows[i] = models.Row{"plan_code": "P1"}
		}
	}
	frame := models.NewFrame([]string{"plan_code"}, rows)
	rejections, err := schema.Validate("annuity_performance", frame)
	if err != nil {
		t.Fatalf("expected run to proceed when only 9%% of rows fail, got error: %v", err)
	}
	if len(rejections) != 9 {
		t.Fatalf("expected 9 collected rejections, got %d", len(rejections))
	}
}
