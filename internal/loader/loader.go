// Package loader writes a domain's Gold frame to its warehouse table in
// one transaction, in append, upsert, or delete_insert mode (spec §4.8).
package loader

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/linsuisheng034/workdatahub/internal/config"
	"github.com/linsuisheng034/workdatahub/internal/errs"
	"github.com/linsuisheng034/workdatahub/internal/models"
	"github.com/linsuisheng034/workdatahub/internal/observability"
	"github.com/linsuisheng034/workdatahub/internal/store/postgres"
)

// Loader writes frames to the warehouse.
type Loader struct {
	db        *sqlx.DB
	txManager *postgres.TransactionManager
	logger    observability.Logger
	metrics   *observability.Metrics
	batchSize int
}

// Options configures a Loader.
type Options struct {
	DB        *sqlx.DB
	Logger    observability.Logger
	Metrics   *observability.Metrics
	BatchSize int
}

// NewLoader builds a Loader. A zero BatchSize falls back to
// config.DefaultLoadBatchSize.
func NewLoader(opts Options) *Loader {
	logger := opts.Logger
	if logger == nil {
		logger = observability.NoopLogger{}
	}
	batchSize := opts.BatchSize
	if batchSize <= 0 {
		batchSize = config.DefaultLoadBatchSize
	}
	return &Loader{
		db:        opts.DB,
		txManager: postgres.NewTransactionManager(opts.DB),
		logger:    logger,
		metrics:   opts.Metrics,
		batchSize: batchSize,
	}
}

// Plan describes what Load would do without opening a database connection
// or writing anything, for the CLI's --plan-only mode (spec §4.8: "plan_only
// introspects the target table and projects columns, but opens no
// connection and performs no database work").
type Plan struct {
	Table           string
	Mode            models.LoadMode
	ProjectedColumns []string
	DroppedColumns   []string
	RowCount        int
	Batches         int
}

// PlanLoad projects frame's columns against the already-known target
// columns (no DB round trip — callers in --plan-only mode pass a static
// column list rather than introspecting live schema).
func PlanLoad(frame *models.Frame, targetColumns []string, cfg models.OutputConfig, mode models.LoadMode, batchSize int) Plan {
	if batchSize <= 0 {
		batchSize = config.DefaultLoadBatchSize
	}
	projected, dropped := projectColumns(frame.Columns, targetColumns)
	batches := (len(frame.Rows) + batchSize - 1) / batchSize
	return Plan{
		Table:            cfg.Table,
		Mode:             mode,
		ProjectedColumns: projected,
		DroppedColumns:   dropped,
		RowCount:         len(frame.Rows),
		Batches:          batches,
	}
}

func projectColumns(frameColumns, targetColumns []string) (projected, dropped []string) {
	targetSet := make(map[string]bool, len(targetColumns))
	for _, c := range targetColumns {
		targetSet[c] = true
	}
	for _, c := range frameColumns {
		if targetSet[c] {
			projected = append(projected, c)
		} else {
			dropped = append(dropped, c)
		}
	}
	return projected, dropped
}

// Load writes frame to cfg.Table inside one transaction, in the given mode
// (spec §4.8). It introspects the live table first to project away columns
// the frame has but the table doesn't, warning when that drops more than
// config.DefaultColumnDropWarnThreshold columns. deleteKeyColumns scopes the
// delete in delete_insert mode; an empty slice falls back to cfg.PK, since a
// domain's delete scope can be narrower than its full business key (spec
// §3/§4.8: e.g. an annuity fact's PK includes 组合代码 but its configured
// delete scope does not).
func (l *Loader) Load(ctx context.Context, domain string, frame *models.Frame, cfg models.OutputConfig, deleteKeyColumns []string, mode models.LoadMode) (*models.LoadResult, error) {
	start := time.Now()
	var result models.LoadResult

	err := l.txManager.WithTransaction(ctx, "load:"+domain, func(tx *sqlx.Tx) error {
		targetColumns, err := postgres.IntrospectColumns(ctx, tx, cfg.SchemaName, cfg.Table)
		if err != nil {
			return err
		}
		projected, dropped := projectColumns(frame.Columns, targetColumns)
		if len(dropped) > config.DefaultColumnDropWarnThreshold {
			l.logger.Warn(ctx, "loader.columns_dropped", map[string]interface{}{
				"domain": domain, "table": cfg.Table, "dropped_count": len(dropped), "dropped": dropped,
			})
		}

		switch mode {
		case models.LoadDeleteInsert:
			deleteCols := deleteKeyColumns
			if len(deleteCols) == 0 {
				deleteCols = cfg.PK
			}
			deleted, err := postgres.DeleteByKeys(ctx, tx, cfg.SchemaName, cfg.Table, deleteCols, keyRows(frame.Rows, deleteCols))
			if err != nil {
				return err
			}
			result.RowsSkipped = 0
			_ = deleted
			n, err := postgres.BatchInsert(ctx, tx, cfg.SchemaName, cfg.Table, projected, frame.Rows, l.batchSize, "")
			if err != nil {
				return err
			}
			result.RowsInserted = n

		case models.LoadUpsert:
			onConflict := buildUpsertClause(cfg.PK, projected)
			n, err := postgres.BatchInsert(ctx, tx, cfg.SchemaName, cfg.Table, projected, frame.Rows, l.batchSize, onConflict)
			if err != nil {
				return err
			}
			result.RowsUpdated = n

		default: // append
			n, err := postgres.BatchInsert(ctx, tx, cfg.SchemaName, cfg.Table, projected, frame.Rows, l.batchSize, "")
			if err != nil {
				return err
			}
			result.RowsInserted = n
		}

		result.BatchesExecuted = (len(frame.Rows) + l.batchSize - 1) / l.batchSize
		return nil
	})
	if err != nil {
		return nil, errs.NewLoadError(cfg.Table, fmt.Sprintf("load into %s failed", cfg.Table), err)
	}

	result.DurationMS = time.Since(start).Milliseconds()
	if l.metrics != nil {
		l.metrics.LoaderBatches.WithLabelValues(domain, string(mode)).Add(float64(result.BatchesExecuted))
	}
	return &result, nil
}

func keyRows(rows []models.Row, pk []string) []models.Row {
	keys := make([]models.Row, 0, len(rows))
	for _, r := range rows {
		k := make(models.Row, len(pk))
		for _, c := range pk {
			k[c] = r[c]
		}
		keys = append(keys, k)
	}
	return keys
}

func buildUpsertClause(pk, columns []string) string {
	clause := "ON CONFLICT (" + joinCols(pk) + ") DO UPDATE SET "
	first := true
	for _, c := range columns {
		if containsCol(pk, c) {
			continue
		}
		if !first {
			clause += ", "
		}
		clause += c + " = EXCLUDED." + c
		first = false
	}
	return clause
}

func joinCols(cols []string) string {
	s := ""
	for i, c := range cols {
		if i > 0 {
			s += ", "
		}
		s += c
	}
	return s
}

func containsCol(cols []string, c string) bool {
	for _, x := range cols {
		if x == c {
			return true
		}
	}
	return false
}
