package fkbackfill

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/linsuisheng034/workdatahub/internal/errs"
	"github.com/linsuisheng034/workdatahub/internal/models"
	"github.com/linsuisheng034/workdatahub/internal/observability"
	"github.com/linsuisheng034/workdatahub/internal/store/postgres"
)

// Engine executes a domain's foreign-key rules in the dependency order
// config.Store.GetForeignKeys already produced, one rule per transaction
// (spec §4.7: "a failing rule aborts the run before any fact-table load
// begins; rules already committed stay committed").
type Engine struct {
	txManager *postgres.TransactionManager
	logger    observability.Logger
	metrics   *observability.Metrics
}

// NewEngine builds an Engine bound to db.
func NewEngine(db *sqlx.DB, logger observability.Logger, metrics *observability.Metrics) *Engine {
	if logger == nil {
		logger = observability.NoopLogger{}
	}
	return &Engine{txManager: postgres.NewTransactionManager(db), logger: logger, metrics: metrics}
}

// Run executes rules in order against frame, returning one BackfillRuleReport
// per rule. frame supplies the candidate rows each rule aggregates from;
// existing target keys are read fresh within each rule's own transaction so
// later rules see earlier rules' commits.
func (e *Engine) Run(ctx context.Context, domain string, frame *models.Frame, rules []models.ForeignKeyRule) ([]models.BackfillRuleReport, error) {
	reports := make([]models.BackfillRuleReport, 0, len(rules))
	for _, rule := range rules {
		report, err := e.runRule(ctx, domain, frame, rule)
		if err != nil {
			return reports, errs.NewBackfillError(rule.Name, fmt.Sprintf("rule %q failed", rule.Name), err)
		}
		reports = append(reports, report)
		if e.metrics != nil {
			e.metrics.StepRows.WithLabelValues(domain, "fkbackfill:"+rule.Name, "inserted").Add(float64(report.Inserted))
		}
	}
	return reports, nil
}

func (e *Engine) runRule(ctx context.Context, domain string, frame *models.Frame, rule models.ForeignKeyRule) (models.BackfillRuleReport, error) {
	var report models.BackfillRuleReport
	report.RuleName = rule.Name

	err := e.txManager.WithTransaction(ctx, "fkbackfill:"+rule.Name, func(tx *sqlx.Tx) error {
		grouped := groupByKey(frame.Rows, rule.SourceColumn, rule.SkipBlankValues)
		report.Considered = len(grouped)
		if len(grouped) == 0 {
			return nil
		}

		existing, err := existingKeys(ctx, tx, rule, keysOf(grouped))
		if err != nil {
			return err
		}

		var toInsert []models.Row
		columns := []string{rule.TargetKey}
		for _, col := range rule.BackfillColumns {
			columns = append(columns, col.Target)
		}
		for key, rows := range grouped {
			if existing[key] {
				continue
			}
			projected := Aggregate(rows, rule.BackfillColumns)
			projected[rule.TargetKey] = key
			toInsert = append(toInsert, projected)
		}
		if len(toInsert) == 0 {
			return nil
		}

		n, err := postgres.BatchInsert(ctx, tx, rule.TargetSchema, rule.TargetTable, columns, toInsert, 1000, "ON CONFLICT DO NOTHING")
		if err != nil {
			return err
		}
		report.Inserted = n
		e.logger.Info(ctx, "fkbackfill.rule.applied", map[string]interface{}{
			"domain": domain, "rule": rule.Name, "considered": report.Considered, "inserted": report.Inserted,
		})
		return nil
	})
	return report, err
}

// groupByKey buckets rows by their SourceColumn value, skipping blank
// values when skipBlank is set (spec §4.7 skip_blank_values).
func groupByKey(rows []models.Row, sourceColumn string, skipBlank bool) map[string][]models.Row {
	grouped := make(map[string][]models.Row)
	for _, row := range rows {
		v, ok := row[sourceColumn]
		if !ok || v == nil {
			continue
		}
		s, ok := v.(string)
		if !ok {
			s = fmt.Sprintf("%v", v)
		}
		if skipBlank && s == "" {
			continue
		}
		grouped[s] = append(grouped[s], row)
	}
	return grouped
}

func keysOf(grouped map[string][]models.Row) []string {
	keys := make([]string, 0, len(grouped))
	for k := range grouped {
		keys = append(keys, k)
	}
	return keys
}

// existingKeys queries which of keys already exist in rule.TargetTable,
// returned as a membership set.
func existingKeys(ctx context.Context, tx *sqlx.Tx, rule models.ForeignKeyRule, keys []string) (map[string]bool, error) {
	if len(keys) == 0 {
		return nil, nil
	}
	table := rule.TargetTable
	if rule.TargetSchema != "" {
		table = rule.TargetSchema + "." + table
	}
	query, args, err := sqlx.In(fmt.Sprintf("SELECT %s FROM %s WHERE %s IN (?)", rule.TargetKey, table, rule.TargetKey), keys)
	if err != nil {
		return nil, err
	}
	query = tx.Rebind(query)

	rows, err := tx.QueryxContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	existing := make(map[string]bool, len(keys))
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, err
		}
		existing[k] = true
	}
	return existing, rows.Err()
}
