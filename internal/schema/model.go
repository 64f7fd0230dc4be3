// ABOUTME: Expected data model: table names, column sets, and fresh-install DDL.
// ABOUTME: The consistency report and state detection compare the live store against this.
package schema

import "strings"

const (
	TableCategory = "weight_category"
	TableEntry    = "weight_entry"
	TableUser     = "user"

	// CurrentVersion is the number of the last upgrade step.
	CurrentVersion = 10

	// DefaultCategoryName is the category seeded on fresh installs and used
	// to adopt entries that predate categories.
	DefaultCategoryName = "Body Mass"

	legacyCounterTable = "schema_version"
)

// ColumnCategoryLink is the one structurally required column. A weight_entry
// table without it cannot be mapped onto categories and is rebuilt.
const ColumnCategoryLink = "category_id"

const (
	triggerFlagsInsert = "weight_category_flags_insert"
	triggerFlagsUpdate = "weight_category_flags_update"

	indexEntryCategory  = "idx_weight_entry_category_id"
	indexEntryCreated   = "idx_weight_entry_created_at"
	indexCategoryOwner  = "idx_weight_category_user_id"
	indexEntryOwner     = "idx_weight_entry_user_id"
	indexCategoryNameUC = "ux_weight_category_name_user"
)

// expectedColumns lists the columns the storage layer reads and writes, per table.
var expectedColumns = map[string][]string{
	TableCategory: {"id", "name", "is_body_mass", "is_body_weight_exercise", "created_at", "last_used_at", "user_id"},
	TableEntry:    {"id", "weight", "unit", "reps", "category_id", "user_id", "created_at", "notes"},
	TableUser: {"id", "username", "email", "password_hash", "created_at", "updated_at",
		"is_active", "last_login", "reset_token", "reset_token_expires"},
}

// ModelTables returns the tables of the expected model in creation order.
func ModelTables() []string {
	return []string{TableUser, TableCategory, TableEntry}
}

// ExpectedColumns returns a copy of the expected column names for table.
func ExpectedColumns(table string) []string {
	cols := expectedColumns[table]
	out := make([]string, len(cols))
	copy(out, cols)
	return out
}

const userTableDDL = `CREATE TABLE IF NOT EXISTS "user" (
	id INTEGER PRIMARY KEY,
	username VARCHAR(80) NOT NULL UNIQUE,
	email VARCHAR(120) NOT NULL UNIQUE,
	password_hash VARCHAR(255) NOT NULL,
	created_at DATETIME,
	updated_at DATETIME,
	is_active BOOLEAN DEFAULT 1,
	last_login DATETIME,
	reset_token VARCHAR(100) UNIQUE,
	reset_token_expires DATETIME
)`

// freshSchema holds the current tables, used when there is nothing to upgrade.
// Indexes are left to the upgrade steps so a pre-existing legacy category
// table never sees an index on a column it does not have yet.
var freshSchema = []string{
	userTableDDL,
	`CREATE TABLE IF NOT EXISTS weight_category (
		id INTEGER PRIMARY KEY,
		name VARCHAR(50) NOT NULL,
		is_body_mass BOOLEAN DEFAULT 0,
		is_body_weight_exercise BOOLEAN DEFAULT 0,
		created_at DATETIME,
		last_used_at DATETIME,
		user_id INTEGER NOT NULL REFERENCES "user"(id)
	)`,
	`CREATE TABLE IF NOT EXISTS weight_entry (
		id INTEGER PRIMARY KEY,
		weight FLOAT NOT NULL,
		unit VARCHAR(10) NOT NULL,
		reps INTEGER,
		category_id INTEGER NOT NULL REFERENCES weight_category(id) ON DELETE CASCADE,
		user_id INTEGER NOT NULL REFERENCES "user"(id),
		created_at DATETIME,
		notes TEXT
	)`,
}

// legacyCategoryDDL is the original single-user category table. Upgrade
// steps add the later columns to it one revision at a time.
const legacyCategoryDDL = `CREATE TABLE IF NOT EXISTS weight_category (
	id INTEGER PRIMARY KEY,
	name VARCHAR(50) NOT NULL,
	is_body_mass BOOLEAN DEFAULT 0,
	created_at DATETIME
)`

func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}
