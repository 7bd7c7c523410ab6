package validation

import (
	"encoding/csv"
	"fmt"
	"os"
	"sort"

	"github.com/linsuisheng034/workdatahub/internal/models"
)

// ExportRejections writes records to path as CSV with a fixed column set
// (spec §4.4 rejected-row export contract): the pipeline stage and error
// detail columns first, followed by every key of the row snapshot, sorted
// for reproducibility across runs.
func ExportRejections(path string, records []models.RejectionRecord) error {
	if len(records) == 0 {
		return nil
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create rejected-rows export %s: %w", path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	defer w.Flush()

	cols := snapshotColumns(records)
	header := append([]string{"pipeline_stage", "error_type", "error_field", "error_message"}, cols...)
	if err := w.Write(header); err != nil {
		return err
	}
	for _, r := range records {
		row := []string{r.PipelineStage, r.ErrorType, r.ErrorField, r.ErrorMessage}
		for _, c := range cols {
			row = append(row, fmt.Sprintf("%v", r.RowSnapshot[c]))
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	return w.Error()
}

// snapshotColumns collects the union of row-snapshot keys across records,
// sorted for a stable column set across runs even when different rejection
// reasons touch different columns.
func snapshotColumns(records []models.RejectionRecord) []string {
	seen := make(map[string]bool)
	var cols []string
	for _, r := range records {
		for k := range r.RowSnapshot {
			if !seen[k] {
				seen[k] = true
				cols = append(cols, k)
			}
		}
	}
	sort.Strings(cols)
	return cols
}
