package reporting

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/linsuisheng034/workdatahub/internal/models"
)

func TestResolvePathsTemplatesDomainAndTimestamp(t *testing.T) {
	at := time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC)
	paths := ResolvePaths("logs", "annuity_performance", at)
	if !strings.Contains(paths.RejectedRows, "failed_rows_annuity_performance_20260101T090000.csv") {
		t.Fatalf("unexpected rejected rows path: %s", paths.RejectedRows)
	}
	if !strings.Contains(paths.Summary, "run_summary_annuity_performance_20260101T090000.json") {
		t.Fatalf("unexpected summary path: %s", paths.Summary)
	}
}

func TestWriteSummaryProducesReadableJSON(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "summary.json")
	summary := &models.RunSummary{RunID: "r1", Domain: "annuity_income", Status: models.RunSucceeded, RowsGoldPassed: 10}

	if err := WriteSummary(path, summary); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read back summary: %v", err)
	}
	if !strings.Contains(string(b), `"rows_gold_passed": 10`) {
		t.Fatalf("expected rows_gold_passed in output, got: %s", b)
	}
}

func TestWriteRejectedRowsSkipsEmptySet(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "rejected.csv")
	if err := WriteRejectedRows(path, nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Fatal("expected no file to be created for an empty rejection set")
	}
}

func TestWriteRejectedRowsWritesOneLinePerRejection(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "rejected.csv")
	rejections := []models.RejectionRecord{
		{RowSnapshot: models.Row{"计划代码": "P1"}, ErrorType: "not_null_violation", ErrorField: "company_id", ErrorMessage: "missing", PipelineStage: "gold_validation"},
	}
	if err := WriteRejectedRows(path, rejections); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read csv: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(b)), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected header + one row, got %d lines", len(lines))
	}
	if !strings.Contains(lines[0], "pipeline_stage") || !strings.Contains(lines[0], "计划代码") {
		t.Fatalf("expected header to include fixed columns and the row snapshot key, got: %s", lines[0])
	}
}

func TestWriteUnknownCompaniesWritesOneColumnPerField(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "unknown.csv")
	rows := []models.Row{{"company_id": "TEMP-abc123", "计划代码": "P1"}}
	if err := WriteUnknownCompanies(path, rows); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read csv: %v", err)
	}
	if !strings.Contains(string(b), "company_id") || !strings.Contains(string(b), "TEMP-abc123") {
		t.Fatalf("expected company_id column and value in output, got: %s", b)
	}
}

func TestSummarizeReportsValidationFailureLine(t *testing.T) {
	summary := &models.RunSummary{
		Domain: "annuity_performance", Period: "202501", Status: models.RunFailed,
		Rejections: []models.RejectionRecord{{ErrorType: "not_null_violation"}},
	}
	line := Summarize(summary, "logs/failed_rows_annuity_performance_20260101T090000.csv")
	if !strings.Contains(line, "validation failed") || !strings.Contains(line, "annuity_performance 202501") {
		t.Fatalf("unexpected summary line: %s", line)
	}
}

func TestSummarizeReportsSuccessLine(t *testing.T) {
	summary := &models.RunSummary{Domain: "annuity_income", Period: "202502", Status: models.RunSucceeded, RowsGoldPassed: 42}
	line := Summarize(summary, "")
	if !strings.Contains(line, "succeeded (42 rows loaded)") {
		t.Fatalf("unexpected summary line: %s", line)
	}
}
