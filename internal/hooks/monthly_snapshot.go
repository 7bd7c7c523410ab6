package hooks

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// MonthlySnapshotHook upserts one summary row per period into
// monthly_snapshot — row counts and the load mode used, so downstream
// reporting can see what happened without replaying the run log. The
// target schema is intentionally minimal (spec §8 Open Question: "the
// monthly snapshot refresh hook uses an upsert semantics on a business
// table not fully specified here"); this implementation picks the
// smallest schema that satisfies "a reader can see what ran and how many
// rows landed," see DESIGN.md.
type MonthlySnapshotHook struct {
	DB *sqlx.DB
}

// NewMonthlySnapshotHook builds a MonthlySnapshotHook bound to db.
func NewMonthlySnapshotHook(db *sqlx.DB) *MonthlySnapshotHook {
	return &MonthlySnapshotHook{DB: db}
}

func (h *MonthlySnapshotHook) Name() string { return "monthly_snapshot_refresh" }

// Run is idempotent via ON CONFLICT DO UPDATE keyed on (domain, period).
func (h *MonthlySnapshotHook) Run(ctx context.Context, run RunContext) error {
	_, err := h.DB.ExecContext(ctx, `
		INSERT INTO monthly_snapshot (domain, period, rows_loaded, load_mode, refreshed_at)
		VALUES ($1, $2, $3, $4, now())
		ON CONFLICT (domain, period) DO UPDATE
		SET rows_loaded = EXCLUDED.rows_loaded,
		    load_mode = EXCLUDED.load_mode,
		    refreshed_at = EXCLUDED.refreshed_at
	`, run.Domain, run.Period, run.RowsGold, string(run.LoadMode))
	if err != nil {
		return fmt.Errorf("monthly_snapshot_refresh: %w", err)
	}
	return nil
}
