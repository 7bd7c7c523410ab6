package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/linsuisheng034/workdatahub/internal/models"
)

// BatchInsert inserts rows into schema.table in batches of batchSize,
// binding each row's values for columns in column order (spec §4.8: "writes
// are batched, default 1000 rows per statement"). onConflict, when
// non-empty, is appended verbatim (e.g. "ON CONFLICT (id) DO NOTHING" or a
// DO UPDATE upsert clause).
func BatchInsert(ctx context.Context, db Querier, schema, table string, columns []string, rows []models.Row, batchSize int, onConflict string) (int, error) {
	if len(rows) == 0 {
		return 0, nil
	}
	if batchSize <= 0 {
		batchSize = 1000
	}
	qualified := qualifyTable(schema, table)
	total := 0
	for start := 0; start < len(rows); start += batchSize {
		end := start + batchSize
		if end > len(rows) {
			end = len(rows)
		}
		batch := rows[start:end]
		query, args := buildInsert(qualified, columns, batch, onConflict)
		result, err := db.ExecContext(ctx, query, args...)
		if err != nil {
			return total, fmt.Errorf("batch insert into %s (rows %d-%d): %w", qualified, start, end, err)
		}
		n, err := result.RowsAffected()
		if err != nil {
			return total, err
		}
		total += int(n)
	}
	return total, nil
}

func qualifyTable(schema, table string) string {
	if schema == "" {
		return table
	}
	return schema + "." + table
}

func buildInsert(qualifiedTable string, columns []string, rows []models.Row, onConflict string) (string, []interface{}) {
	var sb strings.Builder
	sb.WriteString("INSERT INTO ")
	sb.WriteString(qualifiedTable)
	sb.WriteString(" (")
	sb.WriteString(strings.Join(columns, ", "))
	sb.WriteString(") VALUES ")

	args := make([]interface{}, 0, len(rows)*len(columns))
	placeholder := 1
	for i, row := range rows {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString("(")
		for j, col := range columns {
			if j > 0 {
				sb.WriteString(", ")
			}
			fmt.Fprintf(&sb, "$%d", placeholder)
			placeholder++
			args = append(args, row[col])
		}
		sb.WriteString(")")
	}
	if onConflict != "" {
		sb.WriteString(" ")
		sb.WriteString(onConflict)
	}
	return sb.String(), args
}

// DeleteByKeys deletes every row from schema.table whose composite key
// columns match one of keys, used by the delete_insert load mode to clear
// the target partition before re-inserting it atomically within the same
// transaction (spec §4.8).
func DeleteByKeys(ctx context.Context, db Querier, schema, table string, keyColumns []string, keys []models.Row) (int, error) {
	if len(keys) == 0 {
		return 0, nil
	}
	qualified := qualifyTable(schema, table)
	var sb strings.Builder
	fmt.Fprintf(&sb, "DELETE FROM %s WHERE ", qualified)
	args := make([]interface{}, 0, len(keys)*len(keyColumns))
	placeholder := 1
	for i, key := range keys {
		if i > 0 {
			sb.WriteString(" OR ")
		}
		sb.WriteString("(")
		for j, col := range keyColumns {
			if j > 0 {
				sb.WriteString(" AND ")
			}
			fmt.Fprintf(&sb, "%s = $%d", col, placeholder)
			placeholder++
			args = append(args, key[col])
		}
		sb.WriteString(")")
	}
	result, err := db.ExecContext(ctx, sb.String(), args...)
	if err != nil {
		return 0, fmt.Errorf("delete from %s: %w", qualified, err)
	}
	n, err := result.RowsAffected()
	return int(n), err
}

// IntrospectColumns returns the column names of schema.table, used by the
// loader to project input rows down to columns the target actually has
// (spec §4.8: "unknown input columns are dropped; more than
// config.DefaultColumnDropWarnThreshold dropped columns is logged as a
// warning").
func IntrospectColumns(ctx context.Context, db Querier, schema, table string) ([]string, error) {
	rows, err := db.QueryxContext(ctx, `
		SELECT column_name FROM information_schema.columns
		WHERE table_schema = $1 AND table_name = $2
		ORDER BY ordinal_position
	`, schemaOrPublic(schema), table)
	if err != nil {
		return nil, fmt.Errorf("introspect columns of %s: %w", qualifyTable(schema, table), err)
	}
	defer rows.Close()

	var cols []string
	for rows.Next() {
		var c string
		if err := rows.Scan(&c); err != nil {
			return nil, err
		}
		cols = append(cols, c)
	}
	return cols, rows.Err()
}

func schemaOrPublic(schema string) string {
	if schema == "" {
		return "public"
	}
	return schema
}
