// ABOUTME: Copies rows salvaged from a rebuilt legacy store back into the current schema.
// ABOUTME: Legacy entries had no category link and are restored into the body mass category.
package storage

import (
	"fmt"
	"strconv"

	"github.com/harperreed/liftlog/internal/models"
	"github.com/harperreed/liftlog/internal/schema"
)

// RestoreSalvaged recreates salvaged categories and entries for userID.
// rows is keyed by the table the rows were dropped from.
func (d *DB) RestoreSalvaged(userID int64, rows map[string][]schema.SalvagedRow) (*ImportSummary, error) {
	summary := &ImportSummary{}
	categoryIDs := make(map[int64]int64)

	for _, row := range rows[schema.TableCategory] {
		name := toString(row["name"])
		if name == "" {
			continue
		}
		before, _ := d.GetCategoryByName(userID, name)
		c, err := d.GetOrCreateCategory(userID, name, toBool(row["is_body_mass"]))
		if err != nil {
			return summary, fmt.Errorf("restore category %q: %w", name, err)
		}
		if before == nil {
			summary.Categories++
		}
		if id, ok := toInt64(row["id"]); ok {
			categoryIDs[id] = c.ID
		}
	}

	var fallback *models.Category
	for _, row := range rows[schema.TableEntry] {
		weight, ok := toFloat(row["weight"])
		if !ok || weight <= 0 {
			continue
		}

		categoryID, ok := int64(0), false
		if old, has := toInt64(row["category_id"]); has {
			categoryID, ok = categoryIDs[old]
		}
		if !ok {
			if fallback == nil {
				c, err := d.GetOrCreateCategory(userID, schema.DefaultCategoryName, true)
				if err != nil {
					return summary, fmt.Errorf("restore entries: %w", err)
				}
				fallback = c
			}
			categoryID = fallback.ID
		}

		e := models.NewEntry(userID, categoryID, weight, toString(row["unit"]))
		if created, err := parseTime(row["created_at"]); err == nil && !created.IsZero() {
			e.CreatedAt = created
		}
		if reps, ok := toInt64(row["reps"]); ok && reps > 0 {
			e.WithReps(int(reps))
		}
		if notes := toString(row["notes"]); notes != "" {
			e.WithNotes(notes)
		}
		if err := d.CreateEntry(e); err != nil {
			return summary, fmt.Errorf("restore entry: %w", err)
		}
		summary.Entries++
	}

	return summary, nil
}

func toString(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case []byte:
		return string(t)
	default:
		return fmt.Sprint(t)
	}
}

func toFloat(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case int64:
		return float64(t), true
	case int:
		return float64(t), true
	case string:
		f, err := strconv.ParseFloat(t, 64)
		return f, err == nil
	default:
		return 0, false
	}
}

func toInt64(v any) (int64, bool) {
	switch t := v.(type) {
	case int64:
		return t, true
	case int:
		return int64(t), true
	case float64:
		return int64(t), true
	case string:
		n, err := strconv.ParseInt(t, 10, 64)
		return n, err == nil
	default:
		return 0, false
	}
}

func toBool(v any) bool {
	switch t := v.(type) {
	case bool:
		return t
	case string:
		b, _ := strconv.ParseBool(t)
		return b
	default:
		n, ok := toInt64(v)
		return ok && n != 0
	}
}
