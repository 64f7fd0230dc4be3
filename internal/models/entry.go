// ABOUTME: Entry model for a single recorded weight, with unit conversion and strength estimates.
// ABOUTME: Also defines the time windows used to filter entry listings.
package models

import (
	"fmt"
	"strings"
	"time"
)

// Supported weight units.
const (
	UnitKg = "kg"
	UnitLb = "lb"
)

const kgPerLb = 0.45359237

// Entry is one recorded weight in a category.
type Entry struct {
	ID         int64     `json:"id" yaml:"id"`
	UserID     int64     `json:"user_id" yaml:"user_id"`
	CategoryID int64     `json:"category_id" yaml:"category_id"`
	Weight     float64   `json:"weight" yaml:"weight"`
	Unit       string    `json:"unit" yaml:"unit"`
	Reps       *int      `json:"reps,omitempty" yaml:"reps,omitempty"`
	Notes      *string   `json:"notes,omitempty" yaml:"notes,omitempty"`
	CreatedAt  time.Time `json:"created_at" yaml:"created_at"`
}

// NewEntry creates an entry with the current timestamp.
func NewEntry(userID, categoryID int64, weight float64, unit string) *Entry {
	return &Entry{
		UserID:     userID,
		CategoryID: categoryID,
		Weight:     weight,
		Unit:       NormalizeUnit(unit),
		CreatedAt:  time.Now().UTC(),
	}
}

// WithReps sets the repetition count.
func (e *Entry) WithReps(reps int) *Entry {
	e.Reps = &reps
	return e
}

// WithNotes sets free-form notes.
func (e *Entry) WithNotes(notes string) *Entry {
	e.Notes = &notes
	return e
}

// Validate checks weight, unit and reps.
func (e *Entry) Validate() error {
	if e.Weight <= 0 {
		return fmt.Errorf("weight must be positive, got %g", e.Weight)
	}
	if !IsValidUnit(e.Unit) {
		return fmt.Errorf("unknown unit %q (use kg or lb)", e.Unit)
	}
	if e.Reps != nil && *e.Reps < 1 {
		return fmt.Errorf("reps must be at least 1, got %d", *e.Reps)
	}
	return nil
}

// WeightKg returns the weight in kilograms.
func (e *Entry) WeightKg() float64 {
	return ConvertToKg(e.Weight, e.Unit)
}

// Volume is weight times reps, or zero when reps are not tracked.
func (e *Entry) Volume() float64 {
	if e.Reps == nil {
		return 0
	}
	return e.Weight * float64(*e.Reps)
}

// Estimated1RM uses the Epley formula. It returns nil when reps are missing,
// non-positive, or above 30, where the estimate stops being meaningful.
func (e *Entry) Estimated1RM() *float64 {
	if e.Reps == nil || *e.Reps <= 0 || *e.Reps > 30 {
		return nil
	}
	if *e.Reps == 1 {
		w := e.Weight
		return &w
	}
	est := e.Weight * (1 + float64(*e.Reps)/30)
	return &est
}

// NormalizeUnit lowercases unit and maps common spellings.
func NormalizeUnit(unit string) string {
	switch u := strings.ToLower(strings.TrimSpace(unit)); u {
	case "", "kgs", "kilograms":
		return UnitKg
	case "lbs", "pounds":
		return UnitLb
	default:
		return u
	}
}

// IsValidUnit reports whether unit is kg or lb.
func IsValidUnit(unit string) bool {
	return unit == UnitKg || unit == UnitLb
}

// ConvertToKg converts weight from unit to kilograms.
func ConvertToKg(weight float64, unit string) float64 {
	if NormalizeUnit(unit) == UnitLb {
		return weight * kgPerLb
	}
	return weight
}

// Window is a listing period ending now.
type Window string

const (
	WindowWeek  Window = "week"
	WindowMonth Window = "month"
	WindowYear  Window = "year"
	WindowAll   Window = "all"
)

// ParseWindow validates s as a Window. An empty string means WindowAll.
func ParseWindow(s string) (Window, error) {
	switch w := Window(strings.ToLower(s)); w {
	case "":
		return WindowAll, nil
	case WindowWeek, WindowMonth, WindowYear, WindowAll:
		return w, nil
	default:
		return "", fmt.Errorf("unknown time window %q (use week, month, year, or all)", s)
	}
}

// Since returns the start of the window relative to now, or the zero time for WindowAll.
func (w Window) Since(now time.Time) time.Time {
	switch w {
	case WindowWeek:
		return now.AddDate(0, 0, -7)
	case WindowMonth:
		return now.AddDate(0, -1, 0)
	case WindowYear:
		return now.AddDate(-1, 0, 0)
	default:
		return time.Time{}
	}
}
