// Package reporting persists the run artifacts spec §6 names: a per-run
// JSON summary, a rejected-rows CSV per validation failure, and an
// unknown-companies CSV when Layer 5 minted any temporary IDs. Paths are
// templated with domain and timestamp, matching spec §6's "paths are
// templated with domain and timestamp."
package reporting

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/linsuisheng034/workdatahub/internal/models"
	"github.com/linsuisheng034/workdatahub/internal/validation"
)

// Paths resolves the three artifact paths for one run, rooted under dir.
type Paths struct {
	Summary          string
	RejectedRows     string
	UnknownCompanies string
}

// ResolvePaths templates the three artifact paths with domain and a
// timestamp shared across all three files in one run.
func ResolvePaths(dir, domain string, at time.Time) Paths {
	stamp := at.UTC().Format("20060102T150405")
	return Paths{
		Summary:          filepath.Join(dir, fmt.Sprintf("run_summary_%s_%s.json", domain, stamp)),
		RejectedRows:     filepath.Join(dir, fmt.Sprintf("failed_rows_%s_%s.csv", domain, stamp)),
		UnknownCompanies: filepath.Join(dir, fmt.Sprintf("unknown_companies_%s_%s.csv", domain, stamp)),
	}
}

// WriteSummary persists summary as indented JSON.
func WriteSummary(path string, summary *models.RunSummary) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("reporting: create summary dir: %w", err)
	}
	b, err := json.MarshalIndent(summary, "", "  ")
	if err != nil {
		return fmt.Errorf("reporting: marshal run summary: %w", err)
	}
	if err := os.WriteFile(path, b, 0o644); err != nil {
		return fmt.Errorf("reporting: write run summary: %w", err)
	}
	return nil
}

// WriteRejectedRows writes one CSV row per rejection, delegating to
// validation.ExportRejections for the fixed-columns-plus-snapshot layout
// (spec §4.4's rejected-row export contract). A no-op when there are no
// rejections, so a clean run doesn't leave an empty file behind.
func WriteRejectedRows(path string, rejections []models.RejectionRecord) error {
	if len(rejections) == 0 {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("reporting: create csv dir: %w", err)
	}
	return validation.ExportRejections(path, rejections)
}

// WriteUnknownCompanies writes one CSV row per row whose company_id is a
// generated temp ID, with one column per field of the row (sorted for a
// stable column set across runs) so the file can be opened directly in a
// spreadsheet rather than carrying a JSON blob per cell. A no-op when rows
// is empty.
func WriteUnknownCompanies(path string, rows []models.Row) error {
	if len(rows) == 0 {
		return nil
	}
	cols := rowColumns(rows)
	return writeCSV(path, cols, func(w *csv.Writer) error {
		for _, row := range rows {
			rec := make([]string, len(cols))
			for i, c := range cols {
				rec[i] = fmt.Sprintf("%v", row[c])
			}
			if err := w.Write(rec); err != nil {
				return err
			}
		}
		return nil
	})
}

// rowColumns collects the sorted union of keys across rows, the same
// stable-column-set approach validation.ExportRejections uses for rejection
// snapshots.
func rowColumns(rows []models.Row) []string {
	seen := make(map[string]bool)
	var cols []string
	for _, row := range rows {
		for k := range row {
			if !seen[k] {
				seen[k] = true
				cols = append(cols, k)
			}
		}
	}
	sort.Strings(cols)
	return cols
}

func writeCSV(path string, header []string, body func(*csv.Writer) error) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("reporting: create csv dir: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("reporting: create %s: %w", path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(header); err != nil {
		return fmt.Errorf("reporting: write csv header: %w", err)
	}
	if err := body(w); err != nil {
		return fmt.Errorf("reporting: write csv body: %w", err)
	}
	w.Flush()
	return w.Error()
}

// Summarize renders the single-line exit summary spec §7 requires, e.g.
// "annuity_performance 202501: validation failed -- see logs/failed_rows_annuity_performance_20260101T090000.csv".
func Summarize(summary *models.RunSummary, rejectedRowsPath string) string {
	if summary.Status == models.RunFailed {
		if len(summary.Rejections) > 0 {
			return fmt.Sprintf("%s %s: validation failed -- see %s", summary.Domain, summary.Period, rejectedRowsPath)
		}
		return fmt.Sprintf("%s %s: run failed (exit %d)", summary.Domain, summary.Period, summary.ExitCode)
	}
	if summary.Status == models.RunSucceededWithWarnings {
		return fmt.Sprintf("%s %s: succeeded with hook failures (%d rows loaded)", summary.Domain, summary.Period, summary.RowsGoldPassed)
	}
	return fmt.Sprintf("%s %s: succeeded (%d rows loaded)", summary.Domain, summary.Period, summary.RowsGoldPassed)
}
