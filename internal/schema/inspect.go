// ABOUTME: Read-only schema introspection over sqlite_master and pragma_table_info.
// ABOUTME: Snapshots are recomputed on every call because DDL can change them at any time.
package schema

import (
	"context"
	"fmt"
	"strings"
)

// Snapshot is the live catalog at one instant.
type Snapshot struct {
	// Tables maps table name to column name to declared type.
	Tables map[string]map[string]string
	// Indexes holds the names of all non-internal indexes.
	Indexes map[string]bool
	// Triggers maps trigger name to its stored CREATE statement.
	Triggers map[string]string
}

// HasTable reports whether table exists in the snapshot.
func (s *Snapshot) HasTable(table string) bool {
	_, ok := s.Tables[table]
	return ok
}

// HasColumn reports whether table exists and has column.
func (s *Snapshot) HasColumn(table, column string) bool {
	cols, ok := s.Tables[table]
	if !ok {
		return false
	}
	_, ok = cols[column]
	return ok
}

// MissingColumns returns the expected columns of table absent from the snapshot,
// in model order. A missing table reports every expected column.
func (s *Snapshot) MissingColumns(table string) []string {
	var missing []string
	for _, col := range expectedColumns[table] {
		if !s.HasColumn(table, col) {
			missing = append(missing, col)
		}
	}
	return missing
}

// Capabilities are the version flags a step branches on, derived once from a snapshot.
type Capabilities struct {
	HasUserTable      bool
	HasCategoryTable  bool
	HasEntryTable     bool
	HasCategoryLink   bool
	HasReps           bool
	HasNotes          bool
	HasLastUsedAt     bool
	HasBodyWeightFlag bool
	HasCategoryOwner  bool
	HasEntryOwner     bool
}

// Capabilities derives the version flags for this snapshot.
func (s *Snapshot) Capabilities() Capabilities {
	return Capabilities{
		HasUserTable:      s.HasTable(TableUser),
		HasCategoryTable:  s.HasTable(TableCategory),
		HasEntryTable:     s.HasTable(TableEntry),
		HasCategoryLink:   s.HasColumn(TableEntry, ColumnCategoryLink),
		HasReps:           s.HasColumn(TableEntry, "reps"),
		HasNotes:          s.HasColumn(TableEntry, "notes"),
		HasLastUsedAt:     s.HasColumn(TableCategory, "last_used_at"),
		HasBodyWeightFlag: s.HasColumn(TableCategory, "is_body_weight_exercise"),
		HasCategoryOwner:  s.HasColumn(TableCategory, "user_id"),
		HasEntryOwner:     s.HasColumn(TableEntry, "user_id"),
	}
}

// Inspector reads catalog metadata. It never writes.
type Inspector struct {
	q Querier
}

// NewInspector creates an Inspector over q.
func NewInspector(q Querier) *Inspector {
	return &Inspector{q: q}
}

// Snapshot reads every table with its columns, plus index and trigger names.
func (i *Inspector) Snapshot(ctx context.Context) (*Snapshot, error) {
	rows, err := i.q.QueryContext(ctx, `
		SELECT type, name, COALESCE(sql, '')
		FROM sqlite_master
		WHERE type IN ('table', 'index', 'trigger')
		AND name NOT LIKE 'sqlite_%'
	`)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}

	snap := &Snapshot{
		Tables:   make(map[string]map[string]string),
		Indexes:  make(map[string]bool),
		Triggers: make(map[string]string),
	}
	var tables []string
	for rows.Next() {
		var kind, name, ddl string
		if err := rows.Scan(&kind, &name, &ddl); err != nil {
			_ = rows.Close()
			return nil, fmt.Errorf("scan catalog row: %w", err)
		}
		switch kind {
		case "table":
			tables = append(tables, name)
		case "index":
			snap.Indexes[name] = true
		case "trigger":
			snap.Triggers[name] = ddl
		}
	}
	if err := rows.Err(); err != nil {
		_ = rows.Close()
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	_ = rows.Close()

	for _, table := range tables {
		cols, err := i.ColumnsOf(ctx, table)
		if err != nil {
			return nil, err
		}
		snap.Tables[table] = cols
	}

	return snap, nil
}

// HasTable reports whether a table named name exists.
func (i *Inspector) HasTable(ctx context.Context, name string) (bool, error) {
	var count int
	err := i.q.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = ?`, name,
	).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("check table %s: %w", name, err)
	}
	return count > 0, nil
}

// ColumnsOf returns column name to declared type for table.
// A table that does not exist yields an empty map.
func (i *Inspector) ColumnsOf(ctx context.Context, table string) (map[string]string, error) {
	rows, err := i.q.QueryContext(ctx, `SELECT name, type FROM pragma_table_info(?)`, table)
	if err != nil {
		return nil, fmt.Errorf("read columns of %s: %w", table, err)
	}
	defer rows.Close()

	cols := make(map[string]string)
	for rows.Next() {
		var name, typ string
		if err := rows.Scan(&name, &typ); err != nil {
			return nil, fmt.Errorf("scan column of %s: %w", table, err)
		}
		cols[name] = strings.ToUpper(typ)
	}
	return cols, rows.Err()
}

// countWhere runs SELECT COUNT(*) FROM table WHERE cond.
func countWhere(ctx context.Context, q Querier, table, cond string) (int64, error) {
	query := "SELECT COUNT(*) FROM " + quoteIdent(table)
	if cond != "" {
		query += " WHERE " + cond
	}
	var n int64
	if err := q.QueryRowContext(ctx, query).Scan(&n); err != nil {
		return 0, fmt.Errorf("count %s: %w", table, err)
	}
	return n, nil
}
