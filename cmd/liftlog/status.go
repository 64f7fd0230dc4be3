// ABOUTME: CLI command for the schema consistency report.
// ABOUTME: Renders expected versus live columns per table with tablewriter.
package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/fatih/color"
	"github.com/harperreed/liftlog/internal/schema"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show schema state and consistency report",
	Long: `Show the database location, schema state, and which tables match the
expected column set.

A table marked "missing" lacks columns the current schema expects. That
normally means an upgrade step failed; run with --verbose to see the
migration log.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		state, _, err := store.SchemaStatus(cmd.Context())
		if err != nil {
			return fmt.Errorf("failed to read schema status: %w", err)
		}
		snap, err := store.SchemaSnapshot(cmd.Context())
		if err != nil {
			return fmt.Errorf("failed to inspect schema: %w", err)
		}

		fmt.Printf("Database: %s\n", store.Path())
		fmt.Printf("State:    %s\n", stateColor(state))
		if res := store.Migration(); res != nil && len(res.Applied) > 0 {
			fmt.Printf("Applied:  %s\n", formatVersions(res.Applied))
		}
		fmt.Println()
		renderSchemaTable(snap)
		return nil
	},
}

func renderSchemaTable(snap *schema.Snapshot) {
	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"TABLE", "EXPECTED", "STATUS", "MISSING"})
	for _, name := range schema.ModelTables() {
		expected := strconv.Itoa(len(schema.ExpectedColumns(name)))
		status := color.GreenString("ok")
		missing := snap.MissingColumns(name)
		switch {
		case !snap.HasTable(name):
			status = color.RedString("absent")
			missing = nil
		case len(missing) > 0:
			status = color.YellowString("missing")
		}
		table.Append([]string{name, expected, status, strings.Join(missing, ", ")})
	}
	table.Render()
}

func init() {
	rootCmd.AddCommand(statusCmd)
}
