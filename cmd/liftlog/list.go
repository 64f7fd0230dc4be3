// ABOUTME: CLI command for listing weight entries.
// ABOUTME: Supports filtering by category and time window.
package main

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/harperreed/liftlog/internal/models"
	"github.com/harperreed/liftlog/internal/storage"
	"github.com/spf13/cobra"
)

var (
	listCategory string
	listWindow   string
	listLimit    int
)

var listCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls", "l"},
	Short:   "List weight entries",
	Long: `List recent weight entries, newest first.

OUTPUT FORMAT:

  Each line shows: ID  TIMESTAMP  CATEGORY  WEIGHT UNIT [xREPS]  (NOTES)

  The ID can be passed to 'liftlog delete'.

WINDOWS:

  week, month, year, all

EXAMPLES:

  liftlog list                         # Last 20 entries
  liftlog list -c Squat                # Only squats
  liftlog list -c "Body Mass" -w month # Body weight over the last month
  liftlog list -n 100                  # Last 100 entries`,
	RunE: func(cmd *cobra.Command, args []string) error {
		user, err := currentUser()
		if err != nil {
			return err
		}

		window, err := models.ParseWindow(listWindow)
		if err != nil {
			return err
		}

		filter := storage.EntryFilter{UserID: user.ID, Window: window, Limit: listLimit}
		if listCategory != "" {
			cat, err := store.GetCategoryByName(user.ID, listCategory)
			if err != nil {
				return fmt.Errorf("unknown category: %s", listCategory)
			}
			filter.CategoryID = &cat.ID
		}

		entries, err := store.ListEntries(filter)
		if err != nil {
			return fmt.Errorf("failed to list entries: %w", err)
		}

		if len(entries) == 0 {
			fmt.Println("No entries found.")
			return nil
		}

		names, err := categoryNames(user.ID)
		if err != nil {
			return err
		}

		faint := color.New(color.Faint)
		for _, e := range entries {
			notes := ""
			if e.Notes != nil && *e.Notes != "" {
				notes = faint.Sprintf(" (%s)", truncate(*e.Notes, 30))
			}
			fmt.Printf("%s %s %s %s%s\n",
				faint.Sprint(padRight(fmt.Sprintf("#%d", e.ID), 6)),
				faint.Sprint(e.CreatedAt.Local().Format("2006-01-02 15:04")),
				padRight(truncate(names[e.CategoryID], 20), 20),
				formatEntry(e),
				notes)
		}

		return nil
	},
}

func categoryNames(userID int64) (map[int64]string, error) {
	cats, err := store.ListCategories(userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list categories: %w", err)
	}
	names := make(map[int64]string, len(cats))
	for _, c := range cats {
		names[c.ID] = c.Name
	}
	return names, nil
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}

func padRight(s string, length int) string {
	if len(s) >= length {
		return s
	}
	return s + strings.Repeat(" ", length-len(s))
}

func init() {
	listCmd.Flags().StringVarP(&listCategory, "category", "c", "", "filter by category name")
	listCmd.Flags().StringVarP(&listWindow, "window", "w", string(models.WindowAll), "time window (week, month, year, all)")
	listCmd.Flags().IntVarP(&listLimit, "limit", "n", 20, "max number of results")
	rootCmd.AddCommand(listCmd)
}
