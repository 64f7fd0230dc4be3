// ABOUTME: Badger-backed archive of rows dropped by a structural schema rebuild.
// ABOUTME: Rows are stored as JSON under salvage/<run-id>/<table>/<seq>.
package archive

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/dgraph-io/badger/v3"
	"github.com/harperreed/liftlog/internal/schema"
)

const keyPrefix = "salvage/"

// Record is one archived row.
type Record struct {
	RunID      string             `json:"run_id"`
	Table      string             `json:"table"`
	Seq        int                `json:"seq"`
	SalvagedAt time.Time          `json:"salvaged_at"`
	Row        schema.SalvagedRow `json:"row"`
}

// Run summarises one salvage run.
type Run struct {
	RunID      string
	SalvagedAt time.Time
	Rows       map[string]int
}

// Archive stores salvaged rows. It implements schema.Salvager.
type Archive struct {
	db *badger.DB
}

var _ schema.Salvager = (*Archive)(nil)

// Open opens or creates an archive in dir.
func Open(dir string, logger *slog.Logger) (*Archive, error) {
	if err := os.MkdirAll(dir, 0750); err != nil {
		return nil, fmt.Errorf("create archive directory: %w", err)
	}
	return open(badger.DefaultOptions(dir), logger)
}

// OpenInMemory opens an archive that lives only as long as the process.
func OpenInMemory(logger *slog.Logger) (*Archive, error) {
	return open(badger.DefaultOptions("").WithInMemory(true), logger)
}

func open(opts badger.Options, logger *slog.Logger) (*Archive, error) {
	if logger == nil {
		logger = slog.Default()
	}
	db, err := badger.Open(opts.WithLogger(badgerLogger{logger.With("component", "archive")}))
	if err != nil {
		return nil, fmt.Errorf("open archive: %w", err)
	}
	return &Archive{db: db}, nil
}

// Close closes the archive.
func (a *Archive) Close() error {
	return a.db.Close()
}

// Salvage stores rows dropped from table during run runID.
func (a *Archive) Salvage(ctx context.Context, runID, table string, rows []schema.SalvagedRow) error {
	wb := a.db.NewWriteBatch()
	defer wb.Cancel()

	now := time.Now().UTC()
	for i, row := range rows {
		if err := ctx.Err(); err != nil {
			return err
		}
		rec := Record{RunID: runID, Table: table, Seq: i, SalvagedAt: now, Row: row}
		val, err := json.Marshal(rec)
		if err != nil {
			return fmt.Errorf("encode %s row %d: %w", table, i, err)
		}
		if err := wb.Set(recordKey(runID, table, i), val); err != nil {
			return fmt.Errorf("archive %s row %d: %w", table, i, err)
		}
	}

	if err := wb.Flush(); err != nil {
		return fmt.Errorf("archive %s: %w", table, err)
	}
	return nil
}

// List returns archived records for runID in key order, or every record when runID is empty.
func (a *Archive) List(runID string) ([]Record, error) {
	prefix := []byte(keyPrefix)
	if runID != "" {
		prefix = []byte(keyPrefix + runID + "/")
	}

	var records []Record
	err := a.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			var rec Record
			err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &rec)
			})
			if err != nil {
				return fmt.Errorf("decode %s: %w", it.Item().Key(), err)
			}
			records = append(records, rec)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list archive: %w", err)
	}
	return records, nil
}

// Runs summarises every salvage run in the archive, newest first.
func (a *Archive) Runs() ([]Run, error) {
	records, err := a.List("")
	if err != nil {
		return nil, err
	}

	byID := make(map[string]*Run)
	for _, rec := range records {
		run, ok := byID[rec.RunID]
		if !ok {
			run = &Run{RunID: rec.RunID, SalvagedAt: rec.SalvagedAt, Rows: make(map[string]int)}
			byID[rec.RunID] = run
		}
		run.Rows[rec.Table]++
	}

	runs := make([]Run, 0, len(byID))
	for _, run := range byID {
		runs = append(runs, *run)
	}
	sort.Slice(runs, func(i, j int) bool {
		return runs[i].SalvagedAt.After(runs[j].SalvagedAt)
	})
	return runs, nil
}

// Rows groups the records of runID by table, in the form storage restores from.
func (a *Archive) Rows(runID string) (map[string][]schema.SalvagedRow, error) {
	if runID == "" {
		return nil, fmt.Errorf("run id is required")
	}
	records, err := a.List(runID)
	if err != nil {
		return nil, err
	}
	out := make(map[string][]schema.SalvagedRow)
	for _, rec := range records {
		out[rec.Table] = append(out[rec.Table], rec.Row)
	}
	return out, nil
}

// recordKey zero-pads seq so keys iterate in insertion order.
func recordKey(runID, table string, seq int) []byte {
	return []byte(fmt.Sprintf("%s%s/%s/%08d", keyPrefix, runID, table, seq))
}

// badgerLogger routes badger's internal logging into slog. Info and debug
// chatter is demoted to debug.
type badgerLogger struct {
	log *slog.Logger
}

func (l badgerLogger) Errorf(format string, args ...interface{}) {
	l.log.Error(strings.TrimSpace(fmt.Sprintf(format, args...)))
}

func (l badgerLogger) Warningf(format string, args ...interface{}) {
	l.log.Warn(strings.TrimSpace(fmt.Sprintf(format, args...)))
}

func (l badgerLogger) Infof(format string, args ...interface{}) {
	l.log.Debug(strings.TrimSpace(fmt.Sprintf(format, args...)))
}

func (l badgerLogger) Debugf(format string, args ...interface{}) {
	l.log.Debug(strings.TrimSpace(fmt.Sprintf(format, args...)))
}
