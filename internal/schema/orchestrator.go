// ABOUTME: Top-level migration entry point: state detection, fresh install, rebuild, and upgrade.
// ABOUTME: Finishes with a read-only consistency report used for startup diagnostics.
package schema

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// State is where a store sits relative to the current model.
type State int

const (
	// StateUninitialized means the entry table does not exist and no category rows do either.
	StateUninitialized State = iota
	// StateLegacy means the entry table lacks the structurally required category link,
	// or category rows exist without an entry table.
	StateLegacy
	// StatePartial means the store is structurally sound but missing later revisions.
	StatePartial
	// StateCurrent means the store matches the expected model.
	StateCurrent
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateLegacy:
		return "legacy"
	case StatePartial:
		return "partial"
	case StateCurrent:
		return "current"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Result summarises one EnsureSchemaCurrent run.
type Result struct {
	RunID        string
	InitialState State
	FinalState   State
	Rebuilt      bool
	Seeded       bool
	Applied      []int
	Salvaged     int
	Report       map[string]bool
	Duration     time.Duration
}

// DetectState classifies the live store.
func DetectState(ctx context.Context, q Querier) (State, error) {
	snap, err := NewInspector(q).Snapshot(ctx)
	if err != nil {
		return 0, err
	}
	caps := snap.Capabilities()

	if !caps.HasEntryTable {
		if !caps.HasCategoryTable {
			return StateUninitialized, nil
		}
		// Category rows with no entry table are left over from an older layout.
		// An empty category table may be a concurrent fresh install in progress.
		n, err := countWhere(ctx, q, TableCategory, "")
		if err != nil {
			return 0, err
		}
		if n > 0 {
			return StateLegacy, nil
		}
		return StateUninitialized, nil
	}
	if !caps.HasCategoryLink {
		return StateLegacy, nil
	}

	if !caps.HasUserTable || !caps.HasCategoryTable {
		return StatePartial, nil
	}
	for _, table := range []string{TableUser, TableCategory, TableEntry} {
		if len(snap.MissingColumns(table)) > 0 {
			return StatePartial, nil
		}
	}
	if !guardsInstalled(snap) {
		return StatePartial, nil
	}
	orphans, err := countOrphans(ctx, q)
	if err != nil {
		return 0, err
	}
	if orphans > 0 {
		return StatePartial, nil
	}
	return StateCurrent, nil
}

// EnsureSchemaCurrent brings the store behind db up to the current model.
// It blocks until the store is current or returns the error that stopped it.
func EnsureSchemaCurrent(ctx context.Context, db *sql.DB, opts ...Option) (*Result, error) {
	start := time.Now()

	mc, err := NewMigrationContext(ctx, db, opts...)
	if err != nil {
		return nil, err
	}
	defer mc.Close()

	result := &Result{RunID: mc.RunID}
	log := mc.Logger

	legacyVersion := readLegacyCounter(ctx, mc)

	state, err := DetectState(ctx, mc.Conn)
	if err != nil {
		return nil, fmt.Errorf("detect schema state: %w", err)
	}
	result.InitialState = state
	log.Info("checking database schema", "state", state.String(), "legacy_version", legacyVersion)

	fresh := false
	switch state {
	case StateLegacy:
		log.Warn("store predates the category link; rebuilding schema, existing rows will not be preserved")
		n, err := rebuild(ctx, mc)
		if err != nil {
			return result, err
		}
		result.Rebuilt = true
		result.Salvaged = n
		fresh = true
	case StateUninitialized:
		fresh = true
	}

	if fresh {
		if err := createFreshSchema(ctx, mc); err != nil {
			return result, err
		}
	}

	run, err := RunAll(ctx, mc)
	if run != nil {
		result.Applied = run.Applied
	}
	if err != nil {
		return result, err
	}

	if fresh {
		seeded, err := seedFreshInstall(ctx, mc)
		if err != nil {
			return result, err
		}
		result.Seeded = seeded
	}

	final, err := DetectState(ctx, mc.Conn)
	if err != nil {
		return result, fmt.Errorf("detect schema state: %w", err)
	}
	result.FinalState = final
	if final != StateCurrent {
		return result, fmt.Errorf("%w: state is %s", ErrNotCurrent, final)
	}

	writeLegacyCounter(ctx, mc)
	logRowCounts(ctx, mc)

	report, err := consistencyReport(ctx, mc.Conn)
	if err != nil {
		log.Warn("consistency report failed", "error", err)
	} else {
		result.Report = report
		for table, ok := range report {
			if !ok {
				log.Warn("table does not match expected model", "table", table)
			}
		}
	}

	result.Duration = time.Since(start)
	log.Info("database schema is current",
		"applied_steps", len(result.Applied),
		"rebuilt", result.Rebuilt,
		"duration", result.Duration)
	return result, nil
}

// ConsistencyReport compares the expected column set of each model table with
// the live schema. A table is true when every expected column is present.
func ConsistencyReport(ctx context.Context, q Querier) (map[string]bool, error) {
	return consistencyReport(ctx, q)
}

func consistencyReport(ctx context.Context, q Querier) (map[string]bool, error) {
	snap, err := NewInspector(q).Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	report := make(map[string]bool, len(expectedColumns))
	for _, table := range ModelTables() {
		report[table] = snap.HasTable(table) && len(snap.MissingColumns(table)) == 0
	}
	return report, nil
}

func createFreshSchema(ctx context.Context, mc *MigrationContext) error {
	for _, stmt := range freshSchema {
		if _, err := mc.exec(ctx, stmt); err != nil {
			return fmt.Errorf("create schema: %w", err)
		}
	}
	mc.Logger.Info("created schema")
	return nil
}

// seedFreshInstall creates the default tenant and, when no category exists,
// the default body mass category owned by it.
func seedFreshInstall(ctx context.Context, mc *MigrationContext) (bool, error) {
	tenant, err := EnsureDefaultTenant(ctx, mc)
	if err != nil {
		return false, err
	}

	n, err := countWhere(ctx, mc.Conn, TableCategory, "")
	if err != nil {
		return false, err
	}
	if n > 0 {
		return false, nil
	}

	now := time.Now().UTC().Format(timestampLayout)
	_, err = mc.exec(ctx, `
		INSERT INTO weight_category (name, is_body_mass, is_body_weight_exercise, created_at, last_used_at, user_id)
		VALUES (?, 1, 0, ?, ?, ?)
	`, DefaultCategoryName, now, now, int64(tenant))
	if err != nil {
		if isAlreadyExists(err) || isUniqueViolation(err) {
			return false, nil
		}
		return false, fmt.Errorf("seed default category: %w", err)
	}
	mc.Logger.Info("seeded default category", "name", DefaultCategoryName, "user_id", int64(tenant))
	return true, nil
}
