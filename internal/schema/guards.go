// ABOUTME: Installs triggers enforcing that a category is never both body mass and body weight exercise.
// ABOUTME: Repairs rows that already violate the rule, keeping is_body_mass as the source of truth.
package schema

import (
	"context"
	"fmt"
	"strings"
)

const flagViolation = `COALESCE(is_body_mass, 0) != 0 AND COALESCE(is_body_weight_exercise, 0) != 0`

var guardTriggers = map[string]string{
	triggerFlagsInsert: guardTriggerDDL(triggerFlagsInsert, "INSERT"),
	triggerFlagsUpdate: guardTriggerDDL(triggerFlagsUpdate, "UPDATE"),
}

func guardTriggerDDL(name, event string) string {
	return `CREATE TRIGGER IF NOT EXISTS ` + name + `
BEFORE ` + event + ` ON weight_category
FOR EACH ROW
WHEN COALESCE(NEW.is_body_mass, 0) != 0 AND COALESCE(NEW.is_body_weight_exercise, 0) != 0
BEGIN
	SELECT RAISE(ABORT, '` + guardMessage + `');
END`
}

// InstallGuards repairs violating rows, then drops and recreates both flag triggers.
// It returns the number of repaired rows.
func InstallGuards(ctx context.Context, mc *MigrationContext) (int64, error) {
	cols, err := mc.Inspector().ColumnsOf(ctx, TableCategory)
	if err != nil {
		return 0, err
	}
	if _, ok := cols["is_body_weight_exercise"]; !ok {
		return 0, fmt.Errorf("install guards: %s has no is_body_weight_exercise column", TableCategory)
	}

	res, err := mc.exec(ctx, `UPDATE weight_category SET is_body_weight_exercise = 0 WHERE `+flagViolation)
	if err != nil {
		return 0, fmt.Errorf("repair category flags: %w", err)
	}
	repaired, _ := res.RowsAffected()
	if repaired > 0 {
		mc.Logger.Warn("cleared body weight exercise flag on body mass categories", "rows", repaired)
	}

	for _, name := range []string{triggerFlagsInsert, triggerFlagsUpdate} {
		if _, err := mc.exec(ctx, `DROP TRIGGER IF EXISTS `+name); err != nil {
			return repaired, fmt.Errorf("drop trigger %s: %w", name, err)
		}
		if _, err := mc.exec(ctx, guardTriggers[name]); err != nil && !isAlreadyExists(err) {
			return repaired, fmt.Errorf("create trigger %s: %w", name, err)
		}
	}
	mc.Logger.Info("installed category flag guards")

	return repaired, nil
}

// guardsInstalled reports whether both triggers exist.
func guardsInstalled(snap *Snapshot) bool {
	for name := range guardTriggers {
		if _, ok := snap.Triggers[name]; !ok {
			return false
		}
	}
	return true
}

// guardsCurrent reports whether both triggers exist with the expected definition.
func guardsCurrent(snap *Snapshot) bool {
	for name, want := range guardTriggers {
		got, ok := snap.Triggers[name]
		if !ok || normalizeSQL(got) != normalizeSQL(want) {
			return false
		}
	}
	return true
}

// normalizeSQL collapses whitespace and drops IF NOT EXISTS, which SQLite does
// not keep consistently in the stored statement.
func normalizeSQL(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	s = strings.Replace(s, "IF NOT EXISTS ", "", 1)
	return strings.ToUpper(s)
}

func countFlagViolations(ctx context.Context, q Querier) (int64, error) {
	return countWhere(ctx, q, TableCategory, flagViolation)
}
