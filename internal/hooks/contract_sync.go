package hooks

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// ContractSyncHook refreshes contract_status on annuity_performance rows
// touched by the run from the contracts reference table, adapted from the
// teacher's SummaryReportHook shape (a thin Querier-bound struct with one
// Run method). It must run before MonthlySnapshotHook (spec §4.9: "order is
// significant, e.g. contract-status sync must precede monthly snapshot
// refresh") since the snapshot reads the status this hook just wrote.
type ContractSyncHook struct {
	DB *sqlx.DB
}

// NewContractSyncHook builds a ContractSyncHook bound to db.
func NewContractSyncHook(db *sqlx.DB) *ContractSyncHook {
	return &ContractSyncHook{DB: db}
}

func (h *ContractSyncHook) Name() string { return "contract_status_sync" }

// Run is idempotent: re-running it for the same period only overwrites
// contract_status with the current reference-table value, never appends.
func (h *ContractSyncHook) Run(ctx context.Context, run RunContext) error {
	_, err := h.DB.ExecContext(ctx, `
		UPDATE annuity_performance AS ap
		SET contract_status = c.status
		FROM contracts AS c
		WHERE ap.contract_number = c.contract_number
		  AND ap.report_month = $1
	`, run.Period)
	if err != nil {
		return fmt.Errorf("contract_status_sync: %w", err)
	}
	return nil
}
