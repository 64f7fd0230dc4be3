// ABOUTME: Read access to users. Accounts are created by the schema bootstrap, not here.
package storage

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/harperreed/liftlog/internal/models"
	"github.com/harperreed/liftlog/internal/schema"
)

const userColumns = `id, username, email, password_hash, created_at, updated_at, COALESCE(is_active, 1), last_login`

// DefaultUser returns the tenant that owns data created before per-user ownership.
func (d *DB) DefaultUser() (*models.User, error) {
	return d.GetUserByUsername(schema.DefaultTenantUsername)
}

// GetUserByUsername looks up a user by username.
func (d *DB) GetUserByUsername(username string) (*models.User, error) {
	row := d.db.QueryRow(`SELECT `+userColumns+` FROM "user" WHERE username = ?`, username)
	u, err := scanUser(row)
	if err != nil {
		return nil, fmt.Errorf("get user %s: %w", username, err)
	}
	return u, nil
}

// GetUser looks up a user by id.
func (d *DB) GetUser(id int64) (*models.User, error) {
	row := d.db.QueryRow(`SELECT `+userColumns+` FROM "user" WHERE id = ?`, id)
	u, err := scanUser(row)
	if err != nil {
		return nil, fmt.Errorf("get user %d: %w", id, err)
	}
	return u, nil
}

func scanUser(row *sql.Row) (*models.User, error) {
	var u models.User
	var createdAt, updatedAt, lastLogin any

	err := row.Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &createdAt, &updatedAt, &u.IsActive, &lastLogin)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("scan user: %w", err)
	}

	if u.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if u.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, err
	}
	if u.LastLogin, err = parseNullTime(lastLogin); err != nil {
		return nil, err
	}
	return &u, nil
}
