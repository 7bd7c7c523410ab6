package fkbackfill

import (
	"testing"

	"github.com/linsuisheng034/workdatahub/internal/models"
)

func TestAggregateMaxBy(t *testing.T) {
	rows := []models.Row{
		{"company_id": "C1", "account_name": "Old Name", "period": "202401"},
		{"company_id": "C1", "account_name": "New Name", "period": "202403"},
		{"company_id": "C1", "account_name": "Mid Name", "period": "202402"},
	}
	columns := []models.BackfillColumn{
		{Source: "account_name", Target: "account_name", Aggregation: &models.Aggregation{Type: models.AggMaxBy, OrderColumn: "period"}},
	}
	result := Aggregate(rows, columns)
	if result["account_name"] != "New Name" {
		t.Fatalf("expected latest-period name, got %v", result["account_name"])
	}
}

func TestAggregateFirst(t *testing.T) {
	rows := []models.Row{
		{"customer_name": "Acme"},
		{"customer_name": "Beta"},
	}
	columns := []models.BackfillColumn{
		{Source: "customer_name", Target: "customer_name", Aggregation: &models.Aggregation{Type: models.AggFirst}},
	}
	result := Aggregate(rows, columns)
	if result["customer_name"] != "Acme" {
		t.Fatalf("expected first row's value, got %v", result["customer_name"])
	}
}

func TestAggregateConcatDistinctSorted(t *testing.T) {
	rows := []models.Row{
		{"plan_code": "P2"},
		{"plan_code": "P1"},
		{"plan_code": "P2"},
	}
	columns := []models.BackfillColumn{
		{Source: "plan_code", Target: "plan_codes", Aggregation: &models.Aggregation{Type: models.AggConcatDistinct, Separator: ";", Sort: true}},
	}
	result := Aggregate(rows, columns)
	if result["plan_codes"] != "P1;P2" {
		t.Fatalf("expected sorted distinct concat, got %v", result["plan_codes"])
	}
}

func TestGroupByKeySkipsBlank(t *testing.T) {
	rows := []models.Row{
		{"plan_code": "P1"},
		{"plan_code": ""},
		{"plan_code": nil},
	}
	grouped := groupByKey(rows, "plan_code", true)
	if len(grouped) != 1 {
		t.Fatalf("expected only non-blank keys grouped, got %v", grouped)
	}
}
