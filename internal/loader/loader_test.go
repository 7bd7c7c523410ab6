package loader

import (
	"testing"

	"github.com/linsuisheng034/workdatahub/internal/models"
)

func TestProjectColumnsDropsUnknown(t *testing.T) {
	projected, dropped := projectColumns(
		[]string{"plan_code", "company_id", "scratch_col"},
		[]string{"plan_code", "company_id"},
	)
	if len(projected) != 2 || len(dropped) != 1 || dropped[0] != "scratch_col" {
		t.Fatalf("unexpected projection: projected=%v dropped=%v", projected, dropped)
	}
}

func TestPlanLoadComputesBatchesWithoutDB(t *testing.T) {
	frame := &models.Frame{
		Columns: []string{"plan_code", "amount"},
		Rows: []models.Row{
			{"plan_code": "P1", "amount": 1.0},
			{"plan_code": "P2", "amount": 2.0},
			{"plan_code": "P3", "amount": 3.0},
		},
	}
	cfg := models.OutputConfig{Table: "annuity_performance", PK: []string{"plan_code"}}

	plan := PlanLoad(frame, []string{"plan_code", "amount"}, cfg, models.LoadAppend, 2)

	if plan.Table != "annuity_performance" {
		t.Fatalf("expected table name carried through, got %q", plan.Table)
	}
	if plan.RowCount != 3 {
		t.Fatalf("expected row count 3, got %d", plan.RowCount)
	}
	if plan.Batches != 2 {
		t.Fatalf("expected 2 batches for 3 rows at batch size 2, got %d", plan.Batches)
	}
	if len(plan.DroppedColumns) != 0 {
		t.Fatalf("expected no dropped columns, got %v", plan.DroppedColumns)
	}
}

func TestPlanLoadDefaultsBatchSize(t *testing.T) {
	frame := &models.Frame{Columns: []string{"a"}, Rows: []models.Row{{"a": 1}}}
	cfg := models.OutputConfig{Table: "t"}

	plan := PlanLoad(frame, []string{"a"}, cfg, models.LoadAppend, 0)

	if plan.Batches != 1 {
		t.Fatalf("expected 1 batch with default batch size, got %d", plan.Batches)
	}
}

func TestBuildUpsertClauseExcludesPK(t *testing.T) {
	clause := buildUpsertClause([]string{"plan_code"}, []string{"plan_code", "amount", "company_id"})
	want := "ON CONFLICT (plan_code) DO UPDATE SET amount = EXCLUDED.amount, company_id = EXCLUDED.company_id"
	if clause != want {
		t.Fatalf("unexpected upsert clause:\n got: %s\nwant: %s", clause, want)
	}
}

func TestKeyRowsProjectsOnlyPKColumns(t *testing.T) {
	rows := []models.Row{{"plan_code": "P1", "amount": 1.0, "company_id": "C1"}}
	keys := keyRows(rows, []string{"plan_code"})
	if len(keys) != 1 || len(keys[0]) != 1 || keys[0]["plan_code"] != "P1" {
		t.Fatalf("expected key row with only plan_code, got %v", keys)
	}
}
