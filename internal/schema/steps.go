// ABOUTME: The fixed, ordered list of upgrade steps v1 through v10.
// ABOUTME: Each step checks its own precondition against a fresh snapshot and is safe to re-run.
package schema

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Step is one numbered schema revision.
type Step struct {
	Version int
	Name    string
	// Needed reports whether the step's postcondition does not hold yet.
	Needed func(ctx context.Context, mc *MigrationContext, snap *Snapshot) (bool, error)
	// Apply performs the DDL and data changes.
	Apply func(ctx context.Context, mc *MigrationContext, snap *Snapshot) error
}

// Steps returns the upgrade steps in the order they must run.
func Steps() []Step {
	return []Step{
		{Version: 1, Name: "category_table", Needed: needCategoryTable, Apply: createCategoryTable},
		{Version: 2, Name: "uncategorized_entries", Needed: needAdoptEntries, Apply: adoptUncategorizedEntries},
		{Version: 3, Name: "entry_reps", Needed: needColumn(TableEntry, "reps"), Apply: addEntryReps},
		{Version: 4, Name: "entry_notes", Needed: needColumn(TableEntry, "notes"), Apply: addEntryNotes},
		{Version: 5, Name: "category_last_used_at", Needed: needColumn(TableCategory, "last_used_at"), Apply: addCategoryLastUsedAt},
		{Version: 6, Name: "category_body_weight_flag", Needed: needColumn(TableCategory, "is_body_weight_exercise"), Apply: addCategoryBodyWeightFlag},
		{Version: 7, Name: "user_table", Needed: needUserTable, Apply: createUserTable},
		{Version: 8, Name: "entry_indexes", Needed: needEntryIndexes, Apply: createEntryIndexes},
		{Version: 9, Name: "ownership", Needed: needOwnership, Apply: applyOwnership},
		{Version: 10, Name: "category_flag_guards", Needed: needGuards, Apply: applyGuards},
	}
}

// RunResult lists the step versions applied and skipped by RunAll.
type RunResult struct {
	Applied []int
	Skipped []int
}

// RunAll runs every step in order. A failing step stops the run; steps already
// applied stay applied, and a later run resumes from the first unmet precondition.
func RunAll(ctx context.Context, mc *MigrationContext) (*RunResult, error) {
	result := &RunResult{}

	for _, step := range Steps() {
		log := mc.Logger.With("step", fmt.Sprintf("v%d", step.Version), "name", step.Name)

		snap, err := mc.Inspector().Snapshot(ctx)
		if err != nil {
			return result, &StepError{Version: step.Version, Name: step.Name, Err: err}
		}

		needed, err := step.Needed(ctx, mc, snap)
		if err != nil {
			return result, &StepError{Version: step.Version, Name: step.Name, Err: err}
		}
		if !needed {
			log.Debug("step already satisfied")
			result.Skipped = append(result.Skipped, step.Version)
			continue
		}

		log.Info("applying upgrade step")
		if err := step.Apply(ctx, mc, snap); err != nil {
			log.Error("upgrade step failed", "error", err)
			return result, &StepError{Version: step.Version, Name: step.Name, Err: err}
		}
		result.Applied = append(result.Applied, step.Version)
	}

	return result, nil
}

// v1

func needCategoryTable(_ context.Context, _ *MigrationContext, snap *Snapshot) (bool, error) {
	return !snap.HasTable(TableCategory), nil
}

func createCategoryTable(ctx context.Context, mc *MigrationContext, _ *Snapshot) error {
	if _, err := mc.exec(ctx, legacyCategoryDDL); err != nil {
		return fmt.Errorf("create %s: %w", TableCategory, err)
	}
	return nil
}

// v2

func needAdoptEntries(ctx context.Context, mc *MigrationContext, snap *Snapshot) (bool, error) {
	if !snap.HasColumn(TableEntry, ColumnCategoryLink) || !snap.HasTable(TableCategory) {
		return false, nil
	}
	n, err := countWhere(ctx, mc.Conn, TableEntry, "category_id IS NULL")
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// adoptUncategorizedEntries moves entries written before categories existed
// into the default body mass category.
func adoptUncategorizedEntries(ctx context.Context, mc *MigrationContext, snap *Snapshot) error {
	id, err := ensureDefaultCategory(ctx, mc, snap.Capabilities())
	if err != nil {
		return err
	}

	res, err := mc.exec(ctx, `UPDATE weight_entry SET category_id = ? WHERE category_id IS NULL`, id)
	if err != nil {
		return fmt.Errorf("assign uncategorized entries: %w", err)
	}
	n, _ := res.RowsAffected()
	mc.Logger.Info("moved uncategorized entries to default category", "rows", n, "category_id", id)
	return nil
}

// ensureDefaultCategory finds the Body Mass category, creating it with
// whichever columns the current revision has.
func ensureDefaultCategory(ctx context.Context, mc *MigrationContext, caps Capabilities) (int64, error) {
	var id int64
	err := mc.Conn.QueryRowContext(ctx, `
		SELECT id FROM weight_category
		WHERE name = ? OR COALESCE(is_body_mass, 0) != 0
		ORDER BY (name = ?) DESC, COALESCE(is_body_mass, 0) DESC, id
		LIMIT 1
	`, DefaultCategoryName, DefaultCategoryName).Scan(&id)
	if err == nil {
		return id, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("find default category: %w", err)
	}

	now := time.Now().UTC().Format(timestampLayout)
	cols := []string{"name", "is_body_mass", "created_at"}
	args := []any{DefaultCategoryName, 1, now}
	if caps.HasBodyWeightFlag {
		cols = append(cols, "is_body_weight_exercise")
		args = append(args, 0)
	}
	if caps.HasLastUsedAt {
		cols = append(cols, "last_used_at")
		args = append(args, now)
	}
	if caps.HasCategoryOwner {
		owner, err := EnsureDefaultTenant(ctx, mc)
		if err != nil {
			return 0, err
		}
		cols = append(cols, "user_id")
		args = append(args, int64(owner))
	}

	query := fmt.Sprintf(`INSERT INTO weight_category (%s) VALUES (?%s)`,
		strings.Join(cols, ", "), strings.Repeat(", ?", len(cols)-1))
	res, err := mc.exec(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("create default category: %w", err)
	}
	id, err = res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("create default category: %w", err)
	}
	mc.Logger.Info("created default category", "name", DefaultCategoryName, "category_id", id)
	return id, nil
}

// v3 to v6

func needColumn(table, column string) func(context.Context, *MigrationContext, *Snapshot) (bool, error) {
	return func(_ context.Context, _ *MigrationContext, snap *Snapshot) (bool, error) {
		return snap.HasTable(table) && !snap.HasColumn(table, column), nil
	}
}

func addEntryReps(ctx context.Context, mc *MigrationContext, _ *Snapshot) error {
	_, err := AddColumns(ctx, mc, TableEntry, []ColumnSpec{
		{Name: "reps", Type: "INTEGER", Backfill: BackfillReps},
	})
	return err
}

func addEntryNotes(ctx context.Context, mc *MigrationContext, _ *Snapshot) error {
	_, err := AddColumns(ctx, mc, TableEntry, []ColumnSpec{
		{Name: "notes", Type: "TEXT"},
	})
	return err
}

func addCategoryLastUsedAt(ctx context.Context, mc *MigrationContext, _ *Snapshot) error {
	_, err := AddColumns(ctx, mc, TableCategory, []ColumnSpec{
		{Name: "last_used_at", Type: "DATETIME", Backfill: BackfillLastUsedAt},
	})
	return err
}

func addCategoryBodyWeightFlag(ctx context.Context, mc *MigrationContext, _ *Snapshot) error {
	_, err := AddColumns(ctx, mc, TableCategory, []ColumnSpec{
		{Name: "is_body_weight_exercise", Type: "BOOLEAN DEFAULT 0"},
	})
	return err
}

// v7

// userRequiredColumns carry NOT NULL or UNIQUE constraints that ALTER TABLE cannot add.
var userRequiredColumns = []string{"id", "username", "email", "password_hash"}

// userOptionalColumns can be added to an existing user table. reset_token loses
// its UNIQUE constraint on this path.
var userOptionalColumns = []ColumnSpec{
	{Name: "created_at", Type: "DATETIME"},
	{Name: "updated_at", Type: "DATETIME"},
	{Name: "is_active", Type: "BOOLEAN DEFAULT 1"},
	{Name: "last_login", Type: "DATETIME"},
	{Name: "reset_token", Type: "VARCHAR(100)"},
	{Name: "reset_token_expires", Type: "DATETIME"},
}

func needUserTable(_ context.Context, _ *MigrationContext, snap *Snapshot) (bool, error) {
	return len(snap.MissingColumns(TableUser)) > 0, nil
}

func createUserTable(ctx context.Context, mc *MigrationContext, snap *Snapshot) error {
	if !snap.HasTable(TableUser) {
		if _, err := mc.exec(ctx, userTableDDL); err != nil {
			return fmt.Errorf("create user table: %w", err)
		}
		return nil
	}

	var missing []string
	for _, col := range userRequiredColumns {
		if !snap.HasColumn(TableUser, col) {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: %s", ErrUserTableShape, strings.Join(missing, ", "))
	}

	_, err := AddColumns(ctx, mc, TableUser, userOptionalColumns)
	return err
}

// v8

func needEntryIndexes(_ context.Context, _ *MigrationContext, snap *Snapshot) (bool, error) {
	if !snap.HasColumn(TableEntry, ColumnCategoryLink) || !snap.HasColumn(TableEntry, "created_at") {
		return false, nil
	}
	return !snap.Indexes[indexEntryCategory] || !snap.Indexes[indexEntryCreated], nil
}

func createEntryIndexes(ctx context.Context, mc *MigrationContext, _ *Snapshot) error {
	stmts := []string{
		`CREATE INDEX IF NOT EXISTS ` + indexEntryCategory + ` ON weight_entry(category_id)`,
		`CREATE INDEX IF NOT EXISTS ` + indexEntryCreated + ` ON weight_entry(created_at)`,
	}
	for _, stmt := range stmts {
		if _, err := mc.exec(ctx, stmt); err != nil {
			return fmt.Errorf("create entry index: %w", err)
		}
	}
	return nil
}

// v9

func needOwnership(ctx context.Context, mc *MigrationContext, snap *Snapshot) (bool, error) {
	caps := snap.Capabilities()
	if !caps.HasCategoryTable || !caps.HasEntryTable {
		return false, nil
	}
	if !caps.HasCategoryOwner || !caps.HasEntryOwner {
		return true, nil
	}
	if !snap.Indexes[indexCategoryOwner] || !snap.Indexes[indexEntryOwner] {
		return true, nil
	}
	orphans, err := countOrphans(ctx, mc.Conn)
	if err != nil {
		return false, err
	}
	return orphans > 0, nil
}

// applyOwnership introduces per-user ownership. Categories are assigned before
// entries; both go to the default tenant unconditionally.
func applyOwnership(ctx context.Context, mc *MigrationContext, _ *Snapshot) error {
	tenant, err := EnsureDefaultTenant(ctx, mc)
	if err != nil {
		return err
	}

	owner := ColumnSpec{Name: "user_id", Type: `INTEGER REFERENCES "user"(id)`, Backfill: BackfillOwner, Owner: tenant}
	for _, table := range []string{TableCategory, TableEntry} {
		if _, err := AddColumns(ctx, mc, table, []ColumnSpec{owner}); err != nil {
			return err
		}
		if _, err := BackfillOwnership(ctx, mc, table, tenant); err != nil {
			return err
		}
	}

	stmts := []string{
		`CREATE INDEX IF NOT EXISTS ` + indexCategoryOwner + ` ON weight_category(user_id)`,
		`CREATE INDEX IF NOT EXISTS ` + indexEntryOwner + ` ON weight_entry(user_id)`,
	}
	for _, stmt := range stmts {
		if _, err := mc.exec(ctx, stmt); err != nil {
			return fmt.Errorf("create owner index: %w", err)
		}
	}

	// Legacy tables may still carry duplicate names; the unique index is
	// only a best-effort tightening.
	if _, err := mc.exec(ctx, `CREATE UNIQUE INDEX IF NOT EXISTS `+indexCategoryNameUC+
		` ON weight_category(name, user_id)`); err != nil {
		mc.Logger.Warn("could not create per-user unique category name index", "error", err)
	}
	return nil
}

func countOrphans(ctx context.Context, q Querier) (int64, error) {
	var total int64
	for _, table := range []string{TableCategory, TableEntry} {
		n, err := countWhere(ctx, q, table, "user_id IS NULL")
		if err != nil {
			return 0, err
		}
		total += n
	}
	return total, nil
}

// v10

func needGuards(ctx context.Context, mc *MigrationContext, snap *Snapshot) (bool, error) {
	if !snap.HasTable(TableCategory) {
		return false, nil
	}
	if !snap.HasColumn(TableCategory, "is_body_weight_exercise") || !guardsCurrent(snap) {
		return true, nil
	}
	n, err := countFlagViolations(ctx, mc.Conn)
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func applyGuards(ctx context.Context, mc *MigrationContext, _ *Snapshot) error {
	_, err := InstallGuards(ctx, mc)
	return err
}
