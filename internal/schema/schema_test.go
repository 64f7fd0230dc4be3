// ABOUTME: Tests for the migration engine against disposable file-backed SQLite stores.
// ABOUTME: Covers fresh install, legacy rebuild, partial upgrade, idempotency, and flag guards.
package schema

import (
	"context"
	"database/sql"
	"errors"
	"io"
	"log/slog"
	"path/filepath"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	dsn := "file:" + filepath.Join(t.TempDir(), "liftlog.db") +
		"?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
	db, err := sql.Open("sqlite", dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func mustExec(t *testing.T, db *sql.DB, stmts ...string) {
	t.Helper()
	for _, stmt := range stmts {
		_, err := db.Exec(stmt)
		require.NoError(t, err, stmt)
	}
}

func count(t *testing.T, db *sql.DB, query string, args ...any) int {
	t.Helper()
	var n int
	require.NoError(t, db.QueryRow(query, args...).Scan(&n))
	return n
}

func newContext(t *testing.T, db *sql.DB) *MigrationContext {
	t.Helper()
	mc, err := NewMigrationContext(context.Background(), db, WithLogger(quietLogger()))
	require.NoError(t, err)
	t.Cleanup(func() { _ = mc.Close() })
	return mc
}

// seedPartialStore builds a store that has the category link but none of the
// later columns.
func seedPartialStore(t *testing.T, db *sql.DB) {
	t.Helper()
	mustExec(t, db,
		`CREATE TABLE weight_category (
			id INTEGER PRIMARY KEY,
			name VARCHAR(50) NOT NULL UNIQUE,
			is_body_mass BOOLEAN DEFAULT 0,
			created_at DATETIME
		)`,
		`CREATE TABLE weight_entry (
			id INTEGER PRIMARY KEY,
			weight REAL NOT NULL,
			unit VARCHAR(10) NOT NULL,
			category_id INTEGER REFERENCES weight_category(id),
			created_at DATETIME
		)`,
		`INSERT INTO weight_category (id, name, is_body_mass, created_at) VALUES
			(1, 'Body Mass', 1, '2024-01-01 08:00:00'),
			(2, 'Bench Press', 0, '2024-01-02 09:00:00'),
			(3, 'Squats', 0, '2024-01-03 10:00:00')`,
		`INSERT INTO weight_entry (weight, unit, category_id, created_at) VALUES
			(82.5, 'kg', 1, '2024-02-01 07:00:00'),
			(83.0, 'kg', 1, '2024-02-02 07:00:00'),
			(100, 'kg', 2, '2024-02-01 18:00:00'),
			(120, 'kg', 3, '2024-02-03 18:00:00'),
			(125, 'kg', 3, '2024-02-05 18:00:00')`,
	)
}

type snapshotDigest struct {
	Tables   map[string]map[string]string
	Indexes  []string
	Triggers []string
}

func digest(t *testing.T, db *sql.DB) snapshotDigest {
	t.Helper()
	snap, err := NewInspector(db).Snapshot(context.Background())
	require.NoError(t, err)
	d := snapshotDigest{Tables: snap.Tables}
	for name := range snap.Indexes {
		d.Indexes = append(d.Indexes, name)
	}
	for name := range snap.Triggers {
		d.Triggers = append(d.Triggers, name)
	}
	sort.Strings(d.Indexes)
	sort.Strings(d.Triggers)
	return d
}

func TestEnsureSchemaCurrentFreshInstall(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	res, err := EnsureSchemaCurrent(ctx, db, WithLogger(quietLogger()))
	require.NoError(t, err)

	assert.Equal(t, StateUninitialized, res.InitialState)
	assert.Equal(t, StateCurrent, res.FinalState)
	assert.True(t, res.Seeded)
	assert.False(t, res.Rebuilt)
	assert.Equal(t, map[string]bool{TableUser: true, TableCategory: true, TableEntry: true}, res.Report)

	assert.Equal(t, 1, count(t, db, `SELECT COUNT(*) FROM "user"`))
	assert.Equal(t, 1, count(t, db, `SELECT COUNT(*) FROM weight_category`))

	var name string
	var isBodyMass, isBodyWeight bool
	var owner, tenant int64
	require.NoError(t, db.QueryRow(`SELECT id FROM "user" WHERE username = ?`, DefaultTenantUsername).Scan(&tenant))
	require.NoError(t, db.QueryRow(
		`SELECT name, is_body_mass, is_body_weight_exercise, user_id FROM weight_category`,
	).Scan(&name, &isBodyMass, &isBodyWeight, &owner))
	assert.Equal(t, DefaultCategoryName, name)
	assert.True(t, isBodyMass)
	assert.False(t, isBodyWeight)
	assert.Equal(t, tenant, owner)
}

func TestEnsureSchemaCurrentIdempotent(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	seedPartialStore(t, db)

	_, err := EnsureSchemaCurrent(ctx, db, WithLogger(quietLogger()))
	require.NoError(t, err)
	first := digest(t, db)
	categories := count(t, db, `SELECT COUNT(*) FROM weight_category`)
	entries := count(t, db, `SELECT COUNT(*) FROM weight_entry`)
	users := count(t, db, `SELECT COUNT(*) FROM "user"`)

	res, err := EnsureSchemaCurrent(ctx, db, WithLogger(quietLogger()))
	require.NoError(t, err)

	assert.Equal(t, StateCurrent, res.InitialState)
	assert.Empty(t, res.Applied)
	assert.False(t, res.Seeded)
	assert.Equal(t, first, digest(t, db))
	assert.Equal(t, categories, count(t, db, `SELECT COUNT(*) FROM weight_category`))
	assert.Equal(t, entries, count(t, db, `SELECT COUNT(*) FROM weight_entry`))
	assert.Equal(t, users, count(t, db, `SELECT COUNT(*) FROM "user"`))
}

func TestEnsureSchemaCurrentPartialUpgrade(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	seedPartialStore(t, db)

	res, err := EnsureSchemaCurrent(ctx, db, WithLogger(quietLogger()))
	require.NoError(t, err)
	assert.Equal(t, StatePartial, res.InitialState)
	assert.Equal(t, StateCurrent, res.FinalState)
	assert.False(t, res.Rebuilt)
	assert.False(t, res.Seeded)

	cols, err := NewInspector(db).ColumnsOf(ctx, TableEntry)
	require.NoError(t, err)
	assert.Contains(t, cols, "reps")
	assert.Contains(t, cols, "user_id")
	cols, err = NewInspector(db).ColumnsOf(ctx, TableCategory)
	require.NoError(t, err)
	assert.Contains(t, cols, "last_used_at")
	assert.Contains(t, cols, "is_body_weight_exercise")
	assert.Contains(t, cols, "user_id")

	// no rows lost
	assert.Equal(t, 3, count(t, db, `SELECT COUNT(*) FROM weight_category`))
	assert.Equal(t, 5, count(t, db, `SELECT COUNT(*) FROM weight_entry`))

	var tenant int64
	require.NoError(t, db.QueryRow(`SELECT id FROM "user" WHERE username = ?`, DefaultTenantUsername).Scan(&tenant))
	assert.Equal(t, 3, count(t, db, `SELECT COUNT(*) FROM weight_category WHERE user_id = ?`, tenant))
	assert.Equal(t, 5, count(t, db, `SELECT COUNT(*) FROM weight_entry WHERE user_id = ?`, tenant))

	// reps backfilled only for exercises
	assert.Equal(t, 3, count(t, db, `SELECT COUNT(*) FROM weight_entry WHERE reps = 1`))
	assert.Equal(t, 2, count(t, db, `SELECT COUNT(*) FROM weight_entry WHERE category_id = 1 AND reps IS NULL`))

	// last_used_at copied from created_at
	assert.Equal(t, 0, count(t, db, `SELECT COUNT(*) FROM weight_category WHERE last_used_at IS NOT created_at`))
}

func TestEnsureSchemaCurrentLegacyRebuild(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	mustExec(t, db,
		`CREATE TABLE weight_category (
			id INTEGER PRIMARY KEY,
			name VARCHAR(50) NOT NULL,
			is_body_mass BOOLEAN,
			created_at DATETIME
		)`,
		`CREATE TABLE weight_entry (
			id INTEGER PRIMARY KEY,
			weight FLOAT NOT NULL,
			unit VARCHAR(2) NOT NULL,
			created_at DATETIME
		)`,
		`INSERT INTO weight_category (name, is_body_mass, created_at) VALUES ('Body Mass', 1, '2024-01-01 00:00:00')`,
		`INSERT INTO weight_entry (weight, unit, created_at) VALUES (80, 'kg', '2024-01-01 00:00:00'), (81, 'kg', '2024-01-02 00:00:00')`,
	)

	salvager := &recordingSalvager{rows: map[string]int{}}
	res, err := EnsureSchemaCurrent(ctx, db, WithLogger(quietLogger()), WithSalvager(salvager))
	require.NoError(t, err)

	assert.Equal(t, StateLegacy, res.InitialState)
	assert.Equal(t, StateCurrent, res.FinalState)
	assert.True(t, res.Rebuilt)
	assert.True(t, res.Seeded)
	assert.Equal(t, 3, res.Salvaged)
	assert.Equal(t, map[string]int{TableEntry: 2, TableCategory: 1}, salvager.rows)

	state, err := DetectState(ctx, db)
	require.NoError(t, err)
	assert.Equal(t, StateCurrent, state)
	assert.Equal(t, 0, count(t, db, `SELECT COUNT(*) FROM weight_entry`))
	assert.Equal(t, 1, count(t, db, `SELECT COUNT(*) FROM weight_category`))
}

type recordingSalvager struct {
	rows map[string]int
}

func (r *recordingSalvager) Salvage(_ context.Context, _ string, table string, rows []SalvagedRow) error {
	r.rows[table] += len(rows)
	return nil
}

type failingSalvager struct{}

func (failingSalvager) Salvage(context.Context, string, string, []SalvagedRow) error {
	return errors.New("archive unavailable")
}

func TestLegacyRebuildKeepsRowsWhenSalvageFails(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	mustExec(t, db,
		`CREATE TABLE weight_category (id INTEGER PRIMARY KEY, name VARCHAR(50) NOT NULL, is_body_mass BOOLEAN, created_at DATETIME)`,
		`CREATE TABLE weight_entry (id INTEGER PRIMARY KEY, weight FLOAT NOT NULL, unit VARCHAR(2) NOT NULL, created_at DATETIME)`,
		`INSERT INTO weight_category (name, is_body_mass, created_at) VALUES ('Body Mass', 1, '2024-01-01 00:00:00')`,
		`INSERT INTO weight_entry (weight, unit, created_at) VALUES (80, 'kg', '2024-01-01 00:00:00'), (81, 'kg', '2024-01-02 00:00:00')`,
	)

	res, err := EnsureSchemaCurrent(ctx, db, WithLogger(quietLogger()), WithSalvager(failingSalvager{}))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrStructural)
	require.NotNil(t, res)
	assert.False(t, res.Rebuilt)

	assert.Equal(t, 2, count(t, db, `SELECT COUNT(*) FROM weight_entry`))
	assert.Equal(t, 1, count(t, db, `SELECT COUNT(*) FROM weight_category`))
	state, err := DetectState(ctx, db)
	require.NoError(t, err)
	assert.Equal(t, StateLegacy, state)
}

func TestOrphanedCategoryTableIsRebuilt(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	mustExec(t, db,
		`CREATE TABLE weight_category (id INTEGER PRIMARY KEY, name VARCHAR(50) NOT NULL, created_at DATETIME)`,
		`INSERT INTO weight_category (name, created_at) VALUES ('Bench Press', '2024-01-01 00:00:00'), ('Squats', '2024-01-02 00:00:00')`,
	)

	salvager := &recordingSalvager{rows: map[string]int{}}
	res, err := EnsureSchemaCurrent(ctx, db, WithLogger(quietLogger()), WithSalvager(salvager))
	require.NoError(t, err)

	assert.Equal(t, StateLegacy, res.InitialState)
	assert.Equal(t, StateCurrent, res.FinalState)
	assert.True(t, res.Rebuilt)
	assert.True(t, res.Seeded)
	assert.Equal(t, map[string]int{TableCategory: 2}, salvager.rows)
	assert.Equal(t, 1, count(t, db, `SELECT COUNT(*) FROM weight_category WHERE is_body_mass = 1 AND name = ?`, DefaultCategoryName))
	assert.Equal(t, 1, count(t, db, `SELECT COUNT(*) FROM weight_category`))
}

func TestUserTableMissingRequiredColumnsStopsBeforeOwnership(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	seedPartialStore(t, db)
	mustExec(t, db, `CREATE TABLE "user" (id INTEGER PRIMARY KEY, username TEXT)`)

	res, err := EnsureSchemaCurrent(ctx, db, WithLogger(quietLogger()))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrStepFailed)
	assert.ErrorIs(t, err, ErrUserTableShape)
	assert.Contains(t, err.Error(), "email")

	var stepErr *StepError
	require.ErrorAs(t, err, &stepErr)
	assert.Equal(t, 7, stepErr.Version)
	assert.Equal(t, []int{3, 4, 5, 6}, res.Applied)
	assert.NotContains(t, res.Applied, 9)
	assert.NotContains(t, res.Applied, 10)

	snap, err := NewInspector(db).Snapshot(ctx)
	require.NoError(t, err)
	assert.True(t, snap.HasColumn(TableEntry, "reps"))
	assert.False(t, snap.HasColumn(TableEntry, "user_id"))
}

func TestUserTableOptionalColumnsAdded(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	seedPartialStore(t, db)
	mustExec(t, db, `CREATE TABLE "user" (
		id INTEGER PRIMARY KEY,
		username VARCHAR(80) NOT NULL UNIQUE,
		email VARCHAR(120) NOT NULL UNIQUE,
		password_hash VARCHAR(128) NOT NULL
	)`)

	res, err := EnsureSchemaCurrent(ctx, db, WithLogger(quietLogger()))
	require.NoError(t, err)
	assert.Equal(t, StateCurrent, res.FinalState)
	assert.Contains(t, res.Applied, 7)
	assert.True(t, res.Report[TableUser])
	assert.Equal(t, 1, count(t, db, `SELECT COUNT(*) FROM "user" WHERE username = ? AND is_active = 1`, DefaultTenantUsername))
}

func TestDuplicateCategoryNamesStillReachCurrent(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	mustExec(t, db,
		`CREATE TABLE weight_category (id INTEGER PRIMARY KEY, name VARCHAR(50) NOT NULL, is_body_mass BOOLEAN DEFAULT 0, created_at DATETIME)`,
		`CREATE TABLE weight_entry (
			id INTEGER PRIMARY KEY,
			weight REAL NOT NULL,
			unit VARCHAR(10) NOT NULL,
			category_id INTEGER REFERENCES weight_category(id),
			created_at DATETIME
		)`,
		`INSERT INTO weight_category (id, name, is_body_mass, created_at) VALUES
			(1, 'Body Mass', 1, '2024-01-01 08:00:00'),
			(2, 'Bench Press', 0, '2024-01-02 09:00:00'),
			(3, 'Bench Press', 0, '2024-01-03 10:00:00')`,
		`INSERT INTO weight_entry (weight, unit, category_id, created_at) VALUES
			(100, 'kg', 2, '2024-02-01 18:00:00'),
			(105, 'kg', 3, '2024-02-02 18:00:00')`,
	)

	res, err := EnsureSchemaCurrent(ctx, db, WithLogger(quietLogger()))
	require.NoError(t, err)
	assert.Equal(t, StateCurrent, res.FinalState)

	snap, err := NewInspector(db).Snapshot(ctx)
	require.NoError(t, err)
	assert.False(t, snap.Indexes[indexCategoryNameUC])
	assert.True(t, snap.Indexes[indexCategoryOwner])
	assert.Equal(t, 2, count(t, db, `SELECT COUNT(*) FROM weight_category WHERE name = 'Bench Press'`))
	assert.Equal(t, 0, count(t, db, `SELECT COUNT(*) FROM weight_category WHERE user_id IS NULL`))
}

func TestCategoryFlagGuards(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	_, err := EnsureSchemaCurrent(ctx, db, WithLogger(quietLogger()))
	require.NoError(t, err)

	var tenant int64
	require.NoError(t, db.QueryRow(`SELECT id FROM "user"`).Scan(&tenant))

	_, err = db.Exec(`INSERT INTO weight_category (name, is_body_mass, is_body_weight_exercise, user_id)
		VALUES ('Broken', 1, 1, ?)`, tenant)
	require.Error(t, err)
	assert.True(t, IsInvariantViolation(err))

	_, err = db.Exec(`INSERT INTO weight_category (name, is_body_mass, is_body_weight_exercise, user_id)
		VALUES ('Push-ups', 0, 1, ?)`, tenant)
	require.NoError(t, err)

	_, err = db.Exec(`UPDATE weight_category SET is_body_mass = 1 WHERE name = 'Push-ups'`)
	require.Error(t, err)
	assert.True(t, IsInvariantViolation(err))

	_, err = db.Exec(`UPDATE weight_category SET is_body_weight_exercise = 0, is_body_mass = 1 WHERE name = 'Push-ups'`)
	assert.NoError(t, err)
}

func TestInstallGuardsRepairsCorruptedRows(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	seedPartialStore(t, db)
	mustExec(t, db,
		`ALTER TABLE weight_category ADD COLUMN is_body_weight_exercise BOOLEAN DEFAULT 0`,
		`UPDATE weight_category SET is_body_weight_exercise = 1 WHERE name = 'Body Mass'`,
	)

	_, err := EnsureSchemaCurrent(ctx, db, WithLogger(quietLogger()))
	require.NoError(t, err)

	var isBodyMass, isBodyWeight bool
	require.NoError(t, db.QueryRow(
		`SELECT is_body_mass, is_body_weight_exercise FROM weight_category WHERE name = 'Body Mass'`,
	).Scan(&isBodyMass, &isBodyWeight))
	assert.True(t, isBodyMass)
	assert.False(t, isBodyWeight)
}

func TestInstallGuardsIsRepeatable(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	seedPartialStore(t, db)
	mustExec(t, db, `ALTER TABLE weight_category ADD COLUMN is_body_weight_exercise BOOLEAN DEFAULT 0`)
	mc := newContext(t, db)

	for i := 0; i < 2; i++ {
		_, err := InstallGuards(ctx, mc)
		require.NoError(t, err)
	}
	assert.Equal(t, 2, count(t, db, `SELECT COUNT(*) FROM sqlite_master WHERE type = 'trigger' AND name LIKE 'weight_category_flags_%'`))

	snap, err := mc.Inspector().Snapshot(ctx)
	require.NoError(t, err)
	assert.True(t, guardsCurrent(snap))
}

func TestAddColumnsSkipsPresentColumns(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	seedPartialStore(t, db)
	mc := newContext(t, db)

	spec := []ColumnSpec{{Name: "reps", Type: "INTEGER", Backfill: BackfillReps}}
	applied, err := AddColumns(ctx, mc, TableEntry, spec)
	require.NoError(t, err)
	assert.Equal(t, []string{"reps"}, applied.Added)
	assert.Equal(t, int64(3), applied.Backfilled["reps"])

	applied, err = AddColumns(ctx, mc, TableEntry, spec)
	require.NoError(t, err)
	assert.Empty(t, applied.Added)
	assert.Equal(t, []string{"reps"}, applied.Skipped)
}

func TestAddColumnsFailsOnMissingTable(t *testing.T) {
	db := openTestDB(t)
	mc := newContext(t, db)

	_, err := AddColumns(context.Background(), mc, "no_such_table", []ColumnSpec{{Name: "x", Type: "TEXT"}})
	assert.Error(t, err)
}

func TestAddColumnsOwnerRequiresTenant(t *testing.T) {
	db := openTestDB(t)
	seedPartialStore(t, db)
	mc := newContext(t, db)

	_, err := AddColumns(context.Background(), mc, TableCategory,
		[]ColumnSpec{{Name: "user_id", Type: "INTEGER", Backfill: BackfillOwner}})
	assert.Error(t, err)
}

func TestInspectorMissingTable(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	inspector := NewInspector(db)

	ok, err := inspector.HasTable(ctx, TableEntry)
	require.NoError(t, err)
	assert.False(t, ok)

	cols, err := inspector.ColumnsOf(ctx, TableEntry)
	require.NoError(t, err)
	assert.Empty(t, cols)

	snap, err := inspector.Snapshot(ctx)
	require.NoError(t, err)
	assert.Empty(t, snap.Tables)
	assert.Equal(t, ExpectedColumns(TableEntry), snap.MissingColumns(TableEntry))
}

func TestDetectState(t *testing.T) {
	ctx := context.Background()

	t.Run("empty store", func(t *testing.T) {
		state, err := DetectState(ctx, openTestDB(t))
		require.NoError(t, err)
		assert.Equal(t, StateUninitialized, state)
	})

	t.Run("entry without category link", func(t *testing.T) {
		db := openTestDB(t)
		mustExec(t, db, `CREATE TABLE weight_entry (id INTEGER PRIMARY KEY, weight REAL, unit TEXT, created_at DATETIME)`)
		state, err := DetectState(ctx, db)
		require.NoError(t, err)
		assert.Equal(t, StateLegacy, state)
	})

	t.Run("category rows without entries", func(t *testing.T) {
		db := openTestDB(t)
		mustExec(t, db,
			`CREATE TABLE weight_category (id INTEGER PRIMARY KEY, name TEXT)`,
			`INSERT INTO weight_category (name) VALUES ('Bench Press')`,
		)
		state, err := DetectState(ctx, db)
		require.NoError(t, err)
		assert.Equal(t, StateLegacy, state)
	})

	t.Run("empty category table", func(t *testing.T) {
		db := openTestDB(t)
		mustExec(t, db, `CREATE TABLE weight_category (id INTEGER PRIMARY KEY, name TEXT)`)
		state, err := DetectState(ctx, db)
		require.NoError(t, err)
		assert.Equal(t, StateUninitialized, state)
	})

	t.Run("missing later columns", func(t *testing.T) {
		db := openTestDB(t)
		seedPartialStore(t, db)
		state, err := DetectState(ctx, db)
		require.NoError(t, err)
		assert.Equal(t, StatePartial, state)
	})
}

func TestUncategorizedEntriesAdopted(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	mustExec(t, db,
		`CREATE TABLE weight_entry (
			id INTEGER PRIMARY KEY,
			weight REAL NOT NULL,
			unit VARCHAR(10) NOT NULL,
			category_id INTEGER,
			created_at DATETIME
		)`,
		`INSERT INTO weight_entry (weight, unit, created_at) VALUES (80, 'kg', '2024-01-01 00:00:00'), (79, 'kg', '2024-01-08 00:00:00')`,
	)

	res, err := EnsureSchemaCurrent(ctx, db, WithLogger(quietLogger()))
	require.NoError(t, err)
	assert.Contains(t, res.Applied, 1)
	assert.Contains(t, res.Applied, 2)

	var categoryID int64
	require.NoError(t, db.QueryRow(`SELECT id FROM weight_category WHERE name = ?`, DefaultCategoryName).Scan(&categoryID))
	assert.Equal(t, 2, count(t, db, `SELECT COUNT(*) FROM weight_entry WHERE category_id = ?`, categoryID))
	assert.Equal(t, 2, count(t, db, `SELECT COUNT(*) FROM weight_entry WHERE reps IS NULL`))
	assert.Equal(t, 0, count(t, db, `SELECT COUNT(*) FROM weight_entry WHERE user_id IS NULL`))
}

func TestLegacyCounterKeptInStep(t *testing.T) {
	db := openTestDB(t)
	seedPartialStore(t, db)
	mustExec(t, db,
		`CREATE TABLE schema_version (id INTEGER PRIMARY KEY, version INTEGER NOT NULL)`,
		`INSERT INTO schema_version (id, version) VALUES (1, 4)`,
	)

	_, err := EnsureSchemaCurrent(context.Background(), db, WithLogger(quietLogger()))
	require.NoError(t, err)
	assert.Equal(t, CurrentVersion, count(t, db, `SELECT version FROM schema_version WHERE id = 1`))
}

func TestEnsureDefaultTenantOnce(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	mustExec(t, db, userTableDDL)
	mc := newContext(t, db)

	first, err := EnsureDefaultTenant(ctx, mc)
	require.NoError(t, err)
	second, err := EnsureDefaultTenant(ctx, mc)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 1, count(t, db, `SELECT COUNT(*) FROM "user"`))
}

func TestConsistencyReport(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	seedPartialStore(t, db)

	report, err := ConsistencyReport(ctx, db)
	require.NoError(t, err)
	assert.Equal(t, map[string]bool{TableUser: false, TableCategory: false, TableEntry: false}, report)

	_, err = EnsureSchemaCurrent(ctx, db, WithLogger(quietLogger()))
	require.NoError(t, err)

	report, err = ConsistencyReport(ctx, db)
	require.NoError(t, err)
	assert.Equal(t, map[string]bool{TableUser: true, TableCategory: true, TableEntry: true}, report)
}

func TestStepErrorMatchesSentinel(t *testing.T) {
	err := error(&StepError{Version: 3, Name: "entry_reps", Err: sql.ErrConnDone})
	assert.ErrorIs(t, err, ErrStepFailed)
	assert.ErrorIs(t, err, sql.ErrConnDone)
	assert.Equal(t, "step v3 entry_reps: sql: connection is already closed", err.Error())
}

func TestStepsAreOrdered(t *testing.T) {
	steps := Steps()
	require.Len(t, steps, CurrentVersion)
	for i, step := range steps {
		assert.Equal(t, i+1, step.Version)
		assert.NotEmpty(t, step.Name)
	}
}
