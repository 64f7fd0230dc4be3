// ABOUTME: Per-run migration context holding the single connection and logger.
// ABOUTME: Replaces process-wide engine state so each run is explicit and testable.
package schema

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
)

// Querier is the subset of *sql.DB, *sql.Conn and *sql.Tx the engine needs.
type Querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// SalvagedRow is one row captured before a destructive rebuild, keyed by column name.
type SalvagedRow map[string]any

// Salvager receives rows that the structural rebuild is about to drop.
type Salvager interface {
	Salvage(ctx context.Context, runID, table string, rows []SalvagedRow) error
}

// MigrationContext carries everything a step needs for one run.
// All statements in a run go through Conn.
type MigrationContext struct {
	Conn     *sql.Conn
	Logger   *slog.Logger
	Salvager Salvager
	RunID    string

	inspector *Inspector
}

// Option configures a MigrationContext.
type Option func(*MigrationContext)

// WithLogger sets the logger used for the run.
func WithLogger(logger *slog.Logger) Option {
	return func(mc *MigrationContext) {
		if logger != nil {
			mc.Logger = logger
		}
	}
}

// WithSalvager archives rows dropped by the structural rebuild.
func WithSalvager(s Salvager) Option {
	return func(mc *MigrationContext) {
		mc.Salvager = s
	}
}

// NewMigrationContext pins a single connection from db for the duration of a run.
func NewMigrationContext(ctx context.Context, db *sql.DB, opts ...Option) (*MigrationContext, error) {
	conn, err := db.Conn(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire migration connection: %w", err)
	}

	mc := &MigrationContext{
		Conn:   conn,
		Logger: slog.Default(),
		RunID:  uuid.NewString(),
	}
	for _, opt := range opts {
		opt(mc)
	}
	mc.Logger = mc.Logger.With("component", "schema", "run_id", mc.RunID)
	mc.inspector = NewInspector(conn)

	return mc, nil
}

// Inspector returns the read-only catalog view bound to this run's connection.
func (mc *MigrationContext) Inspector() *Inspector {
	return mc.inspector
}

// Close releases the pinned connection back to the pool.
func (mc *MigrationContext) Close() error {
	if mc.Conn == nil {
		return nil
	}
	return mc.Conn.Close()
}

func (mc *MigrationContext) exec(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return mc.Conn.ExecContext(ctx, query, args...)
}
