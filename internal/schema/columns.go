// ABOUTME: Additive column upgrades with per-column backfill policies.
// ABOUTME: Re-checks presence before each ALTER so racing processes converge instead of failing.
package schema

import (
	"context"
	"fmt"
)

// BackfillPolicy says how existing rows are populated when a column is first added.
type BackfillPolicy int

const (
	// BackfillNone leaves the column at its declared default.
	BackfillNone BackfillPolicy = iota
	// BackfillReps sets reps = 1 on entries whose category is not body mass.
	BackfillReps
	// BackfillLastUsedAt copies created_at into last_used_at.
	BackfillLastUsedAt
	// BackfillOwner assigns every row to ColumnSpec.Owner.
	BackfillOwner
)

func (p BackfillPolicy) String() string {
	switch p {
	case BackfillReps:
		return "reps"
	case BackfillLastUsedAt:
		return "last_used_at"
	case BackfillOwner:
		return "owner"
	default:
		return "none"
	}
}

// ColumnSpec describes one column to add.
type ColumnSpec struct {
	Name     string
	Type     string
	Backfill BackfillPolicy
	// Owner is required for BackfillOwner.
	Owner TenantID
}

// AppliedColumns reports what AddColumns did.
type AppliedColumns struct {
	Added      []string
	Skipped    []string
	Backfilled map[string]int64
}

// AddColumns adds each missing column to table and immediately backfills it.
// Columns that already exist are skipped. Any other DDL or backfill failure
// is returned and aborts the caller's step.
func AddColumns(ctx context.Context, mc *MigrationContext, table string, cols []ColumnSpec) (*AppliedColumns, error) {
	applied := &AppliedColumns{Backfilled: make(map[string]int64)}

	for _, col := range cols {
		present, err := mc.Inspector().ColumnsOf(ctx, table)
		if err != nil {
			return applied, err
		}
		if _, ok := present[col.Name]; ok {
			mc.Logger.Debug("column already present", "table", table, "column", col.Name)
			applied.Skipped = append(applied.Skipped, col.Name)
			continue
		}
		if col.Backfill == BackfillOwner && col.Owner == 0 {
			return applied, fmt.Errorf("add column %s.%s: owner backfill without owner", table, col.Name)
		}

		ddl := fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s %s", quoteIdent(table), quoteIdent(col.Name), col.Type)
		if _, err := mc.exec(ctx, ddl); err != nil {
			if isDuplicateColumn(err) {
				mc.Logger.Info("column added concurrently, skipping", "table", table, "column", col.Name)
				applied.Skipped = append(applied.Skipped, col.Name)
				continue
			}
			return applied, fmt.Errorf("add column %s.%s: %w", table, col.Name, err)
		}
		mc.Logger.Info("added column", "table", table, "column", col.Name, "type", col.Type)
		applied.Added = append(applied.Added, col.Name)

		n, err := backfill(ctx, mc, table, col)
		if err != nil {
			return applied, fmt.Errorf("backfill %s.%s: %w", table, col.Name, err)
		}
		if col.Backfill != BackfillNone {
			applied.Backfilled[col.Name] = n
			mc.Logger.Info("backfilled column", "table", table, "column", col.Name,
				"policy", col.Backfill.String(), "rows", n)
		}
	}

	return applied, nil
}

func backfill(ctx context.Context, mc *MigrationContext, table string, col ColumnSpec) (int64, error) {
	var query string
	var args []any

	switch col.Backfill {
	case BackfillNone:
		return 0, nil
	case BackfillReps:
		// Rows predate rep tracking and are taken as single-rep sets.
		query = fmt.Sprintf(`UPDATE %s SET %s = 1
			WHERE %s IS NULL
			AND category_id IN (SELECT id FROM weight_category WHERE COALESCE(is_body_mass, 0) = 0)`,
			quoteIdent(table), quoteIdent(col.Name), quoteIdent(col.Name))
	case BackfillLastUsedAt:
		query = fmt.Sprintf(`UPDATE %s SET %s = created_at WHERE %s IS NULL`,
			quoteIdent(table), quoteIdent(col.Name), quoteIdent(col.Name))
	case BackfillOwner:
		query = fmt.Sprintf(`UPDATE %s SET %s = ? WHERE %s IS NULL`,
			quoteIdent(table), quoteIdent(col.Name), quoteIdent(col.Name))
		args = append(args, int64(col.Owner))
	default:
		return 0, fmt.Errorf("unknown backfill policy %d", col.Backfill)
	}

	res, err := mc.exec(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
