// ABOUTME: Repository interface for weight tracking storage.
// ABOUTME: Defines contract for users, categories, and entries CRUD operations.
package storage

import (
	"context"
	"time"

	"github.com/harperreed/liftlog/internal/models"
	"github.com/harperreed/liftlog/internal/schema"
)

// EntryFilter narrows ListEntries.
type EntryFilter struct {
	UserID     int64
	CategoryID *int64
	Window     models.Window
	Limit      int
}

// Repository defines the storage interface for weight tracking data.
// This interface allows swapping implementations (e.g., for testing).
type Repository interface {
	// User operations
	DefaultUser() (*models.User, error)
	GetUserByUsername(username string) (*models.User, error)

	// Category operations
	CreateCategory(c *models.Category) error
	GetCategory(id int64) (*models.Category, error)
	GetCategoryByName(userID int64, name string) (*models.Category, error)
	GetOrCreateCategory(userID int64, name string, isBodyMass bool) (*models.Category, error)
	ListCategories(userID int64) ([]*models.Category, error)
	TouchCategory(id int64, at time.Time) error
	DeleteCategory(id int64) error

	// Entry operations
	CreateEntry(e *models.Entry) error
	GetEntry(id int64) (*models.Entry, error)
	ListEntries(f EntryFilter) ([]*models.Entry, error)
	DeleteEntry(id int64) error

	// Export/Import
	GetAllData(userID int64) (*ExportData, error)
	ImportData(userID int64, data *ExportData) (*ImportSummary, error)

	// Schema
	SchemaStatus(ctx context.Context) (schema.State, map[string]bool, error)

	// Lifecycle
	Close() error
}

var _ Repository = (*DB)(nil)
