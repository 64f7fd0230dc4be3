// ABOUTME: CLI commands for the salvage archive of rows kept across legacy rebuilds.
// ABOUTME: Lists salvage runs and restores a run's rows into the current schema.
package main

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
)

var salvageCmd = &cobra.Command{
	Use:   "salvage",
	Short: "Inspect and restore rows salvaged by legacy rebuilds",
	Long: `When liftlog finds a database from before categories existed, it copies
every row into the salvage archive and rebuilds the schema. These commands
read that archive.

EXAMPLES:

  liftlog salvage list                 # One line per rebuild
  liftlog salvage list <run-id>        # Every row from one rebuild
  liftlog salvage restore <run-id>     # Re-import that rebuild's rows`,
}

var salvageListCmd = &cobra.Command{
	Use:         "list [run-id]",
	Aliases:     []string{"ls"},
	Short:       "List salvage runs, or the rows of one run",
	Args:        cobra.MaximumNArgs(1),
	Annotations: map[string]string{skipStorage: "true"},
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := cfg.OpenArchive(logger)
		if err != nil {
			return fmt.Errorf("failed to open salvage archive: %w", err)
		}
		defer func() { _ = a.Close() }()

		if len(args) == 1 {
			records, err := a.List(args[0])
			if err != nil {
				return err
			}
			if len(records) == 0 {
				return fmt.Errorf("no salvaged rows for run %s", args[0])
			}

			table := tablewriter.NewWriter(os.Stdout)
			table.SetHeader([]string{"TABLE", "SEQ", "ROW"})
			for _, rec := range records {
				row, _ := json.Marshal(rec.Row)
				table.Append([]string{rec.Table, strconv.Itoa(rec.Seq), truncate(string(row), 80)})
			}
			table.Render()
			return nil
		}

		runs, err := a.Runs()
		if err != nil {
			return err
		}
		if len(runs) == 0 {
			fmt.Println("No salvage runs.")
			return nil
		}

		table := tablewriter.NewWriter(os.Stdout)
		table.SetHeader([]string{"RUN", "SALVAGED AT", "ROWS"})
		for _, run := range runs {
			tables := make([]string, 0, len(run.Rows))
			for name, n := range run.Rows {
				tables = append(tables, fmt.Sprintf("%s=%d", name, n))
			}
			sort.Strings(tables)
			table.Append([]string{
				run.RunID,
				run.SalvagedAt.Local().Format("2006-01-02 15:04"),
				strings.Join(tables, " "),
			})
		}
		table.Render()
		return nil
	},
}

var salvageRestoreCmd = &cobra.Command{
	Use:   "restore <run-id>",
	Short: "Re-import the rows of a salvage run",
	Long: `Re-import the categories and entries of a salvage run for the current
user. Categories are matched by name; entries whose category was not
salvaged go to the default body mass category.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		user, err := currentUser()
		if err != nil {
			return err
		}

		a, err := cfg.OpenArchive(logger)
		if err != nil {
			return fmt.Errorf("failed to open salvage archive: %w", err)
		}
		rows, err := a.Rows(args[0])
		_ = a.Close()
		if err != nil {
			return err
		}
		if len(rows) == 0 {
			return fmt.Errorf("no salvaged rows for run %s", args[0])
		}

		summary, err := store.RestoreSalvaged(user.ID, rows)
		if err != nil {
			return fmt.Errorf("restore failed: %w", err)
		}

		color.Green("✓ Restored run %s", args[0])
		fmt.Printf("  %d categories, %d entries\n", summary.Categories, summary.Entries)
		return nil
	},
}

func init() {
	salvageCmd.AddCommand(salvageListCmd)
	salvageCmd.AddCommand(salvageRestoreCmd)
	rootCmd.AddCommand(salvageCmd)
}
