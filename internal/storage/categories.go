// ABOUTME: Category CRUD operations for SQLite storage.
// ABOUTME: Maps flag-guard trigger aborts back to the model's conflicting-flags error.
package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/harperreed/liftlog/internal/models"
	"github.com/harperreed/liftlog/internal/schema"
)

const categoryColumns = `id, user_id, name, COALESCE(is_body_mass, 0), COALESCE(is_body_weight_exercise, 0), created_at, last_used_at`

// CreateCategory stores a new category and sets its ID.
func (d *DB) CreateCategory(c *models.Category) error {
	if err := c.Validate(); err != nil {
		return err
	}

	var lastUsed any
	if c.LastUsedAt != nil {
		lastUsed = formatTime(*c.LastUsedAt)
	}
	res, err := d.db.Exec(`
		INSERT INTO weight_category (user_id, name, is_body_mass, is_body_weight_exercise, created_at, last_used_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, c.UserID, c.Name, c.IsBodyMass, c.IsBodyWeightExercise, formatTime(c.CreatedAt), lastUsed)
	if err != nil {
		return fmt.Errorf("create category: %w", translateWriteError(err, c.Name))
	}

	c.ID, err = res.LastInsertId()
	if err != nil {
		return fmt.Errorf("create category: %w", err)
	}
	return nil
}

// GetCategory retrieves a category by ID.
func (d *DB) GetCategory(id int64) (*models.Category, error) {
	c, err := scanCategory(d.db.QueryRow(`SELECT `+categoryColumns+` FROM weight_category WHERE id = ?`, id))
	if err != nil {
		return nil, fmt.Errorf("get category %d: %w", id, err)
	}
	return c, nil
}

// GetCategoryByName retrieves a user's category by case-insensitive name.
func (d *DB) GetCategoryByName(userID int64, name string) (*models.Category, error) {
	c, err := scanCategory(d.db.QueryRow(`
		SELECT `+categoryColumns+` FROM weight_category
		WHERE user_id = ? AND name = ? COLLATE NOCASE
		ORDER BY id LIMIT 1
	`, userID, strings.TrimSpace(name)))
	if err != nil {
		return nil, fmt.Errorf("get category %q: %w", name, err)
	}
	return c, nil
}

// GetOrCreateCategory returns the named category, creating it when absent.
func (d *DB) GetOrCreateCategory(userID int64, name string, isBodyMass bool) (*models.Category, error) {
	c, err := d.GetCategoryByName(userID, name)
	if err == nil {
		return c, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	c = models.NewCategory(userID, name)
	c.IsBodyMass = isBodyMass
	if err := d.CreateCategory(c); err != nil {
		return nil, err
	}
	return c, nil
}

// ListCategories returns a user's categories, most recently used first.
func (d *DB) ListCategories(userID int64) ([]*models.Category, error) {
	rows, err := d.db.Query(`
		SELECT `+categoryColumns+` FROM weight_category
		WHERE user_id = ?
		ORDER BY last_used_at IS NULL, last_used_at DESC, name
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	defer rows.Close()

	var categories []*models.Category
	for rows.Next() {
		c, err := scanCategory(rows)
		if err != nil {
			return nil, err
		}
		categories = append(categories, c)
	}
	return categories, rows.Err()
}

// TouchCategory records that the category was used at the given time.
func (d *DB) TouchCategory(id int64, at time.Time) error {
	return touchCategory(d.db, id, at)
}

func touchCategory(q execer, id int64, at time.Time) error {
	res, err := q.Exec(`UPDATE weight_category SET last_used_at = ? WHERE id = ?`, formatTime(at), id)
	if err != nil {
		return fmt.Errorf("touch category: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("touch category %d: %w", id, ErrNotFound)
	}
	return nil
}

// SetCategoryFlags updates the body mass and body weight flags.
func (d *DB) SetCategoryFlags(id int64, isBodyMass, isBodyWeightExercise bool) error {
	res, err := d.db.Exec(`
		UPDATE weight_category SET is_body_mass = ?, is_body_weight_exercise = ? WHERE id = ?
	`, isBodyMass, isBodyWeightExercise, id)
	if err != nil {
		return fmt.Errorf("update category flags: %w", translateWriteError(err, ""))
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("update category %d: %w", id, ErrNotFound)
	}
	return nil
}

// DeleteCategory removes a category and its entries.
func (d *DB) DeleteCategory(id int64) error {
	tx, err := d.db.Begin()
	if err != nil {
		return fmt.Errorf("delete category: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	// Upgraded stores may lack ON DELETE CASCADE on the entry link.
	if _, err := tx.Exec(`DELETE FROM weight_entry WHERE category_id = ?`, id); err != nil {
		return fmt.Errorf("delete category entries: %w", err)
	}
	res, err := tx.Exec(`DELETE FROM weight_category WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete category: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("delete category %d: %w", id, ErrNotFound)
	}
	return tx.Commit()
}

type rowScanner interface {
	Scan(dest ...any) error
}

type execer interface {
	Exec(query string, args ...any) (sql.Result, error)
}

func scanCategory(row rowScanner) (*models.Category, error) {
	var c models.Category
	var createdAt, lastUsedAt any

	err := row.Scan(&c.ID, &c.UserID, &c.Name, &c.IsBodyMass, &c.IsBodyWeightExercise, &createdAt, &lastUsedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("scan category: %w", err)
	}

	if c.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if c.LastUsedAt, err = parseNullTime(lastUsedAt); err != nil {
		return nil, err
	}
	return &c, nil
}

// translateWriteError maps constraint failures onto errors callers can test for.
func translateWriteError(err error, name string) error {
	switch {
	case schema.IsInvariantViolation(err):
		return models.ErrConflictingFlags
	case strings.Contains(err.Error(), "UNIQUE constraint failed") && name != "":
		return fmt.Errorf("category %q already exists", name)
	default:
		return err
	}
}
