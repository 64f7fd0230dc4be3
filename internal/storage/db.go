// ABOUTME: SQLite database connection and lifecycle management.
// ABOUTME: Uses modernc.org/sqlite (pure Go, no CGO) and brings the schema current on open.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/harperreed/liftlog/internal/schema"
	_ "modernc.org/sqlite"
)

// pragmas are applied to every pooled connection through the DSN.
var pragmas = []string{
	"foreign_keys(1)",
	"journal_mode(wal)",
	"busy_timeout(5000)",
	"synchronous(normal)",
}

// DB wraps the SQLite database connection.
type DB struct {
	db        *sql.DB
	dbPath    string
	logger    *slog.Logger
	migration *schema.Result
}

type openOptions struct {
	logger   *slog.Logger
	salvager schema.Salvager
}

// Option configures Open.
type Option func(*openOptions)

// WithLogger sets the logger for storage and migration output.
func WithLogger(logger *slog.Logger) Option {
	return func(o *openOptions) {
		o.logger = logger
	}
}

// WithSalvager archives rows dropped when a legacy store has to be rebuilt.
func WithSalvager(s schema.Salvager) Option {
	return func(o *openOptions) {
		o.salvager = s
	}
}

// Open opens or creates a SQLite database at the given path and brings its
// schema current. It fails if the schema cannot be made current.
func Open(dbPath string, opts ...Option) (*DB, error) {
	o := &openOptions{logger: slog.Default()}
	for _, opt := range opts {
		opt(o)
	}

	// Ensure parent directory exists
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0750); err != nil {
		return nil, fmt.Errorf("create data directory: %w", err)
	}

	db, err := sql.Open("sqlite", DSN(dbPath))
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("open database: %w", err)
	}

	// Set file permissions
	if err := os.Chmod(dbPath, 0600); err != nil && !os.IsNotExist(err) {
		_ = db.Close()
		return nil, fmt.Errorf("set database permissions: %w", err)
	}

	d := &DB{db: db, dbPath: dbPath, logger: o.logger}

	migrateOpts := []schema.Option{schema.WithLogger(o.logger)}
	if o.salvager != nil {
		migrateOpts = append(migrateOpts, schema.WithSalvager(o.salvager))
	}
	res, err := schema.EnsureSchemaCurrent(context.Background(), db, migrateOpts...)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initialize schema: %w", err)
	}
	d.migration = res

	return d, nil
}

// DSN builds the modernc.org/sqlite connection string for path.
func DSN(path string) string {
	return "file:" + path + "?_pragma=" + strings.Join(pragmas, "&_pragma=")
}

// ReadOnlyDSN opens path without write access. It sets no journal pragma, so
// inspecting a store leaves its journal mode alone.
func ReadOnlyDSN(path string) string {
	return "file:" + path + "?mode=ro&_pragma=busy_timeout(5000)"
}

// Path returns the database file path.
func (d *DB) Path() string {
	return d.dbPath
}

// Migration returns the result of the schema run performed by Open.
func (d *DB) Migration() *schema.Result {
	return d.migration
}

// SchemaStatus reports the live schema state and consistency report.
func (d *DB) SchemaStatus(ctx context.Context) (schema.State, map[string]bool, error) {
	state, err := schema.DetectState(ctx, d.db)
	if err != nil {
		return 0, nil, err
	}
	report, err := schema.ConsistencyReport(ctx, d.db)
	if err != nil {
		return 0, nil, err
	}
	return state, report, nil
}

// SchemaSnapshot returns the live tables, columns and triggers.
func (d *DB) SchemaSnapshot(ctx context.Context) (*schema.Snapshot, error) {
	return schema.NewInspector(d.db).Snapshot(ctx)
}

// Close closes the database connection.
func (d *DB) Close() error {
	if d.db != nil {
		return d.db.Close()
	}
	return nil
}

// storedTime is the on-disk timestamp format.
const storedTime = "2006-01-02 15:04:05"

func formatTime(t time.Time) string {
	return t.UTC().Format(storedTime)
}

var parseLayouts = []string{
	storedTime,
	"2006-01-02 15:04:05.999999999",
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02",
}

// parseTime accepts what the driver returns for DATETIME columns: a time.Time
// when it could parse the stored text, or the raw text otherwise.
func parseTime(v any) (time.Time, error) {
	switch t := v.(type) {
	case nil:
		return time.Time{}, nil
	case time.Time:
		return t.UTC(), nil
	case []byte:
		return parseTime(string(t))
	case string:
		for _, layout := range parseLayouts {
			if parsed, err := time.Parse(layout, t); err == nil {
				return parsed.UTC(), nil
			}
		}
		return time.Time{}, fmt.Errorf("unrecognized timestamp %q", t)
	default:
		return time.Time{}, fmt.Errorf("unexpected timestamp type %T", v)
	}
}

func parseNullTime(v any) (*time.Time, error) {
	if v == nil {
		return nil, nil
	}
	t, err := parseTime(v)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// ErrNotFound is returned when a lookup matches no row.
var ErrNotFound = errors.New("not found")
