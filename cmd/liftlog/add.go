// ABOUTME: CLI command for logging weight entries.
// ABOUTME: Creates the category on first use and applies the reps rules.
package main

import (
	"fmt"
	"strconv"
	"time"

	"github.com/fatih/color"
	"github.com/harperreed/liftlog/internal/models"
	"github.com/spf13/cobra"
)

var (
	addAt       string
	addNotes    string
	addUnit     string
	addBodyMass bool
)

var addCmd = &cobra.Command{
	Use:     "add <category> <weight> [reps]",
	Aliases: []string{"a"},
	Short:   "Log a weight entry",
	Long: `Log a weight entry against a category. The category is created if it
does not exist yet.

Body mass categories never carry reps. Every other category defaults to
one rep when none is given.

Examples:
  liftlog add "Body Mass" 82.5
  liftlog add Deadlift 140 5 --notes "belt"
  liftlog add Squat 225 3 --unit lb --at "2024-12-14 07:00"
  liftlog add Morning 81.9 --body-mass`,
	Args: cobra.RangeArgs(2, 3),
	RunE: func(cmd *cobra.Command, args []string) error {
		user, err := currentUser()
		if err != nil {
			return err
		}

		weight, err := strconv.ParseFloat(args[1], 64)
		if err != nil {
			return fmt.Errorf("invalid weight: %s", args[1])
		}

		cat, err := store.GetOrCreateCategory(user.ID, args[0], addBodyMass)
		if err != nil {
			return fmt.Errorf("failed to resolve category: %w", err)
		}

		e := models.NewEntry(user.ID, cat.ID, weight, addUnit)
		if len(args) == 3 {
			reps, err := strconv.Atoi(args[2])
			if err != nil {
				return fmt.Errorf("invalid reps: %s", args[2])
			}
			e.WithReps(reps)
		}
		if addAt != "" {
			t, err := parseTime(addAt)
			if err != nil {
				return fmt.Errorf("invalid timestamp: %s", addAt)
			}
			e.CreatedAt = t
		}
		if addNotes != "" {
			e.WithNotes(addNotes)
		}

		if err := store.CreateEntry(e); err != nil {
			return fmt.Errorf("failed to create entry: %w", err)
		}

		color.Green("✓ Added %s", cat.Name)
		fmt.Printf("  %s %s\n", color.New(color.Faint).Sprintf("#%d", e.ID), formatEntry(e))
		return nil
	},
}

// formatEntry renders weight, unit and reps like "80.00 kg x5".
func formatEntry(e *models.Entry) string {
	s := fmt.Sprintf("%.2f %s", e.Weight, e.Unit)
	if e.Reps != nil {
		s += fmt.Sprintf(" x%d", *e.Reps)
	}
	return s
}

func parseTime(s string) (time.Time, error) {
	formats := []string{
		"2006-01-02 15:04",
		"2006-01-02T15:04",
		"2006-01-02",
		time.RFC3339,
	}
	for _, f := range formats {
		if t, err := time.Parse(f, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized time format")
}

func init() {
	addCmd.Flags().StringVar(&addAt, "at", "", "timestamp (YYYY-MM-DD HH:MM)")
	addCmd.Flags().StringVar(&addNotes, "notes", "", "notes for the entry")
	addCmd.Flags().StringVarP(&addUnit, "unit", "u", models.UnitKg, "weight unit (kg or lb)")
	addCmd.Flags().BoolVar(&addBodyMass, "body-mass", false, "create the category as a body mass category")
	rootCmd.AddCommand(addCmd)
}
