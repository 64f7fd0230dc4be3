// ABOUTME: Error taxonomy for the migration engine.
// ABOUTME: Distinguishes fatal step failures from already-applied DDL and runtime guard aborts.
package schema

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrStepFailed wraps any fatal failure inside an upgrade step.
	ErrStepFailed = errors.New("upgrade step failed")

	// ErrStructural marks a failure on the drop-and-recreate path.
	ErrStructural = errors.New("structural rebuild failed")

	// ErrUserTableShape means an existing user table lacks columns that cannot be added in place.
	ErrUserTableShape = errors.New("user table is missing required columns")

	// ErrNotCurrent is returned when a run finished without reaching the current schema.
	ErrNotCurrent = errors.New("schema not current after upgrade")
)

// guardMessage is raised by the category flag triggers.
const guardMessage = "category cannot be both body mass and body weight exercise"

// StepError reports which step failed.
type StepError struct {
	Version int
	Name    string
	Err     error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("step v%d %s: %v", e.Version, e.Name, e.Err)
}

func (e *StepError) Unwrap() error {
	return e.Err
}

// Is lets errors.Is(err, ErrStepFailed) match any StepError.
func (e *StepError) Is(target error) bool {
	return target == ErrStepFailed
}

// IsInvariantViolation reports whether err is a write rejected by the category flag guard.
func IsInvariantViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), guardMessage)
}

// isDuplicateColumn matches SQLite's error for ADD COLUMN on an existing column,
// which happens when another process won the race.
func isDuplicateColumn(err error) bool {
	return err != nil && strings.Contains(strings.ToLower(err.Error()), "duplicate column name")
}

func isAlreadyExists(err error) bool {
	return err != nil && strings.Contains(strings.ToLower(err.Error()), "already exists")
}

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
