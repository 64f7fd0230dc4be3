// ABOUTME: Default tenant bootstrap and ownership backfill for pre-multi-tenant rows.
// ABOUTME: The default tenant only exists to own legacy data; its credential is a placeholder.
package schema

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"golang.org/x/crypto/bcrypt"
)

// TenantID is a row id in the user table.
type TenantID int64

const (
	DefaultTenantUsername = "default"
	DefaultTenantEmail    = "default@example.com"

	// placeholderPassword is public by construction and must be rotated.
	placeholderPassword = "changeme123"
)

// timestampLayout matches SQLite's CURRENT_TIMESTAMP so values sort as text.
const timestampLayout = "2006-01-02 15:04:05"

// EnsureDefaultTenant returns the id of the default tenant, creating it if absent.
func EnsureDefaultTenant(ctx context.Context, mc *MigrationContext) (TenantID, error) {
	id, err := lookupTenant(ctx, mc, DefaultTenantUsername)
	if err == nil {
		return id, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return 0, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(placeholderPassword), bcrypt.DefaultCost)
	if err != nil {
		return 0, fmt.Errorf("hash placeholder credential: %w", err)
	}

	now := time.Now().UTC().Format(timestampLayout)
	res, err := mc.exec(ctx, `
		INSERT OR IGNORE INTO "user" (username, email, password_hash, created_at, updated_at, is_active)
		VALUES (?, ?, ?, ?, ?, 1)
	`, DefaultTenantUsername, DefaultTenantEmail, string(hash), now, now)
	if err != nil {
		return 0, fmt.Errorf("create default tenant: %w", err)
	}

	id, err = lookupTenant(ctx, mc, DefaultTenantUsername)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, fmt.Errorf("create default tenant: email %s is taken by another user", DefaultTenantEmail)
		}
		return 0, err
	}

	if n, _ := res.RowsAffected(); n > 0 {
		mc.Logger.Warn("created default tenant with INSECURE placeholder credential; rotate it before exposing the service",
			"user_id", int64(id),
			"username", DefaultTenantUsername,
			"password", placeholderPassword)
	}
	return id, nil
}

func lookupTenant(ctx context.Context, mc *MigrationContext, username string) (TenantID, error) {
	var id int64
	err := mc.Conn.QueryRowContext(ctx, `SELECT id FROM "user" WHERE username = ?`, username).Scan(&id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, err
		}
		return 0, fmt.Errorf("look up tenant %s: %w", username, err)
	}
	return TenantID(id), nil
}

// BackfillOwnership assigns tenant to every row of table whose user_id is NULL.
func BackfillOwnership(ctx context.Context, mc *MigrationContext, table string, tenant TenantID) (int64, error) {
	res, err := mc.exec(ctx,
		fmt.Sprintf(`UPDATE %s SET user_id = ? WHERE user_id IS NULL`, quoteIdent(table)),
		int64(tenant))
	if err != nil {
		return 0, fmt.Errorf("backfill owner of %s: %w", table, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("backfill owner of %s: %w", table, err)
	}
	if n > 0 {
		mc.Logger.Info("assigned orphaned rows to default tenant", "table", table, "rows", n, "user_id", int64(tenant))
	}
	return n, nil
}
