// ABOUTME: Category model for grouping weight entries by exercise.
// ABOUTME: A category is body mass, a body weight exercise, or a loaded lift, never both flags.
package models

import (
	"errors"
	"strings"
	"time"
)

// ErrConflictingFlags is returned when a category is marked both body mass and body weight exercise.
var ErrConflictingFlags = errors.New("category cannot be both body mass and body weight exercise")

// Category is a named exercise owned by one user.
type Category struct {
	ID                   int64      `json:"id" yaml:"id"`
	UserID               int64      `json:"user_id" yaml:"user_id"`
	Name                 string     `json:"name" yaml:"name"`
	IsBodyMass           bool       `json:"is_body_mass" yaml:"is_body_mass"`
	IsBodyWeightExercise bool       `json:"is_body_weight_exercise" yaml:"is_body_weight_exercise"`
	CreatedAt            time.Time  `json:"created_at" yaml:"created_at"`
	LastUsedAt           *time.Time `json:"last_used_at,omitempty" yaml:"last_used_at,omitempty"`
}

// NewCategory creates a loaded-lift category for userID.
func NewCategory(userID int64, name string) *Category {
	now := time.Now().UTC()
	return &Category{
		UserID:     userID,
		Name:       strings.TrimSpace(name),
		CreatedAt:  now,
		LastUsedAt: &now,
	}
}

// AsBodyMass marks the category as tracking body mass.
func (c *Category) AsBodyMass() *Category {
	c.IsBodyMass = true
	return c
}

// AsBodyWeightExercise marks the category as a body weight exercise.
func (c *Category) AsBodyWeightExercise() *Category {
	c.IsBodyWeightExercise = true
	return c
}

// Validate checks the name and the flag rule.
func (c *Category) Validate() error {
	if strings.TrimSpace(c.Name) == "" {
		return errors.New("category name is required")
	}
	if len(c.Name) > 50 {
		return errors.New("category name must be at most 50 characters")
	}
	if c.IsBodyMass && c.IsBodyWeightExercise {
		return ErrConflictingFlags
	}
	return nil
}

// Kind returns a short label for display.
func (c *Category) Kind() string {
	switch {
	case c.IsBodyMass:
		return "body mass"
	case c.IsBodyWeightExercise:
		return "body weight"
	default:
		return "weighted"
	}
}
