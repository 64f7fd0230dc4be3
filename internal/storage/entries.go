// ABOUTME: Entry CRUD operations for SQLite storage.
// ABOUTME: Applies the reps rule and keeps the owning category's last-used time current.
package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/harperreed/liftlog/internal/models"
)

const entryColumns = `id, user_id, category_id, weight, unit, reps, notes, created_at`

// CreateEntry stores a new entry and sets its ID. Body mass entries never
// carry reps; other entries default to a single rep.
func (d *DB) CreateEntry(e *models.Entry) error {
	e.Unit = models.NormalizeUnit(e.Unit)
	if err := e.Validate(); err != nil {
		return err
	}

	category, err := d.GetCategory(e.CategoryID)
	if err != nil {
		return fmt.Errorf("create entry: %w", err)
	}
	if category.UserID != e.UserID {
		return fmt.Errorf("create entry: category %d belongs to another user", e.CategoryID)
	}
	applyRepsRule(e, category)
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}

	tx, err := d.db.Begin()
	if err != nil {
		return fmt.Errorf("create entry: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.Exec(`
		INSERT INTO weight_entry (user_id, category_id, weight, unit, reps, notes, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, e.UserID, e.CategoryID, e.Weight, e.Unit, e.Reps, e.Notes, formatTime(e.CreatedAt))
	if err != nil {
		return fmt.Errorf("create entry: %w", err)
	}
	if e.ID, err = res.LastInsertId(); err != nil {
		return fmt.Errorf("create entry: %w", err)
	}

	if category.LastUsedAt == nil || e.CreatedAt.After(*category.LastUsedAt) {
		if err := touchCategory(tx, e.CategoryID, e.CreatedAt); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func applyRepsRule(e *models.Entry, c *models.Category) {
	if c.IsBodyMass {
		e.Reps = nil
		return
	}
	if e.Reps == nil {
		e.WithReps(1)
	}
}

// GetEntry retrieves an entry by ID.
func (d *DB) GetEntry(id int64) (*models.Entry, error) {
	e, err := scanEntry(d.db.QueryRow(`SELECT `+entryColumns+` FROM weight_entry WHERE id = ?`, id))
	if err != nil {
		return nil, fmt.Errorf("get entry %d: %w", id, err)
	}
	return e, nil
}

// ListEntries returns a user's entries, newest first.
func (d *DB) ListEntries(f EntryFilter) ([]*models.Entry, error) {
	query := `SELECT ` + entryColumns + ` FROM weight_entry WHERE user_id = ?`
	args := []any{f.UserID}

	if f.CategoryID != nil {
		query += ` AND category_id = ?`
		args = append(args, *f.CategoryID)
	}
	if since := f.Window.Since(time.Now()); !since.IsZero() {
		query += ` AND created_at >= ?`
		args = append(args, formatTime(since))
	}
	query += ` ORDER BY created_at DESC, id DESC`
	if f.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, f.Limit)
	}

	rows, err := d.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("list entries: %w", err)
	}
	defer rows.Close()

	var entries []*models.Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// DeleteEntry removes an entry by ID.
func (d *DB) DeleteEntry(id int64) error {
	res, err := d.db.Exec(`DELETE FROM weight_entry WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete entry: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete entry: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("delete entry %d: %w", id, ErrNotFound)
	}
	return nil
}

func scanEntry(row rowScanner) (*models.Entry, error) {
	var e models.Entry
	var reps sql.NullInt64
	var notes sql.NullString
	var createdAt any

	err := row.Scan(&e.ID, &e.UserID, &e.CategoryID, &e.Weight, &e.Unit, &reps, &notes, &createdAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("scan entry: %w", err)
	}

	if reps.Valid {
		e.WithReps(int(reps.Int64))
	}
	if notes.Valid {
		e.Notes = &notes.String
	}
	if e.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	return &e, nil
}
