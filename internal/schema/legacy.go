// ABOUTME: Structural rebuild for stores whose entries lack a category link, plus legacy shims.
// ABOUTME: Counter-table and row-count helpers are best effort and only ever log failures.
package schema

import (
	"context"
	"fmt"
)

// rebuild drops the entry and category tables so the fresh path can recreate
// them. Rows are handed to the Salvager first when one is configured. The
// user table is left alone.
func rebuild(ctx context.Context, mc *MigrationContext) (int, error) {
	salvaged := 0
	for _, table := range []string{TableEntry, TableCategory} {
		ok, err := mc.Inspector().HasTable(ctx, table)
		if err != nil {
			return salvaged, fmt.Errorf("%w: %v", ErrStructural, err)
		}
		if !ok {
			continue
		}

		if mc.Salvager != nil {
			rows, err := dumpTable(ctx, mc, table)
			if err != nil {
				return salvaged, fmt.Errorf("%w: read %s: %v", ErrStructural, table, err)
			}
			if len(rows) > 0 {
				if err := mc.Salvager.Salvage(ctx, mc.RunID, table, rows); err != nil {
					return salvaged, fmt.Errorf("%w: salvage %s: %v", ErrStructural, table, err)
				}
				salvaged += len(rows)
				mc.Logger.Info("salvaged rows before rebuild", "table", table, "rows", len(rows))
			}
		}

		if _, err := mc.exec(ctx, "DROP TABLE IF EXISTS "+quoteIdent(table)); err != nil {
			return salvaged, fmt.Errorf("%w: drop %s: %v", ErrStructural, table, err)
		}
		mc.Logger.Warn("dropped table for rebuild", "table", table)
	}
	return salvaged, nil
}

func dumpTable(ctx context.Context, mc *MigrationContext, table string) ([]SalvagedRow, error) {
	rows, err := mc.Conn.QueryContext(ctx, "SELECT * FROM "+quoteIdent(table))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	var out []SalvagedRow
	for rows.Next() {
		values := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}
		row := make(SalvagedRow, len(cols))
		for i, col := range cols {
			if b, ok := values[i].([]byte); ok {
				row[col] = string(b)
				continue
			}
			row[col] = values[i]
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

// readLegacyCounter returns the version recorded by the old counter table, or
// zero when there is none. The counter is informational only.
func readLegacyCounter(ctx context.Context, mc *MigrationContext) int {
	ok, err := mc.Inspector().HasTable(ctx, legacyCounterTable)
	if err != nil || !ok {
		return 0
	}
	var version int
	err = mc.Conn.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(version), 0) FROM `+legacyCounterTable).Scan(&version)
	if err != nil {
		mc.Logger.Warn("could not read legacy schema counter", "error", err)
		return 0
	}
	return version
}

// writeLegacyCounter keeps an existing counter table in step for older tools
// that still read it. It never creates the table.
func writeLegacyCounter(ctx context.Context, mc *MigrationContext) {
	ok, err := mc.Inspector().HasTable(ctx, legacyCounterTable)
	if err != nil || !ok {
		return
	}
	if _, err := mc.exec(ctx, `UPDATE `+legacyCounterTable+` SET version = ?`, CurrentVersion); err != nil {
		mc.Logger.Warn("could not update legacy schema counter", "error", err)
	}
}

func logRowCounts(ctx context.Context, mc *MigrationContext) {
	attrs := []any{}
	for _, table := range ModelTables() {
		n, err := countWhere(ctx, mc.Conn, table, "")
		if err != nil {
			mc.Logger.Warn("row count unavailable", "table", table, "error", err)
			continue
		}
		attrs = append(attrs, table, n)
	}
	mc.Logger.Debug("row counts", attrs...)
}
