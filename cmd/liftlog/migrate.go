// ABOUTME: CLI command for bringing the database schema up to date.
// ABOUTME: Reports what the startup migration did, or previews it with --dry-run.
package main

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/harperreed/liftlog/internal/schema"
	"github.com/harperreed/liftlog/internal/storage"
	"github.com/spf13/cobra"
)

var (
	migrateDryRun bool
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Bring the database schema up to date",
	Long: `Bring the database schema up to date.

Every liftlog command already does this when it opens the database. This
command exists to run it explicitly and show what happened.

STATES:

  uninitialized  no tables yet; the full schema is created and seeded
  legacy         entries predate categories; rows are salvaged and the
                 store is rebuilt from scratch
  partial        upgrade steps are applied in order
  current        nothing to do

USAGE:

  liftlog migrate --dry-run   # Detect the state without changing anything
  liftlog migrate             # Perform the migration`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if migrateDryRun {
			return previewMigration(cmd.Context())
		}

		res := store.Migration()
		if res == nil {
			return fmt.Errorf("no migration result recorded")
		}

		if res.InitialState == schema.StateCurrent {
			color.Green("✓ Schema already current")
		} else {
			color.Green("✓ Migrated from %s to %s", res.InitialState, res.FinalState)
		}
		faint := color.New(color.Faint)
		fmt.Printf("  run      %s\n", faint.Sprint(res.RunID))
		fmt.Printf("  database %s\n", store.Path())
		if res.Rebuilt {
			color.Yellow("  rebuilt legacy store, %d rows salvaged", res.Salvaged)
		}
		if res.Seeded {
			fmt.Println("  seeded default user and category")
		}
		if len(res.Applied) > 0 {
			fmt.Printf("  applied  %s\n", formatVersions(res.Applied))
		}
		fmt.Printf("  took     %s\n", res.Duration.Round(time.Millisecond))
		return nil
	},
}

// previewMigration detects the store state through a read-only connection so
// no migration runs and the file is left untouched.
func previewMigration(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	color.Yellow("Dry run mode - no changes will be made")
	fmt.Println()

	path := cfg.GetDBPath()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		fmt.Printf("%s does not exist.\n", path)
		fmt.Println("Would create the full schema and seed the default user and category.")
		return nil
	}

	db, err := sql.Open("sqlite", storage.ReadOnlyDSN(path))
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer func() { _ = db.Close() }()

	state, err := schema.DetectState(ctx, db)
	if err != nil {
		return fmt.Errorf("failed to detect schema state: %w", err)
	}
	snap, err := schema.NewInspector(db).Snapshot(ctx)
	if err != nil {
		return fmt.Errorf("failed to inspect schema: %w", err)
	}

	fmt.Printf("State: %s\n", stateColor(state))
	switch state {
	case schema.StateUninitialized:
		fmt.Println("Would create the full schema and seed the default user and category.")
	case schema.StateLegacy:
		fmt.Println("Would salvage every row, drop the old tables, and rebuild the schema.")
	case schema.StatePartial:
		fmt.Println("Would apply the pending upgrade steps in order.")
	case schema.StateCurrent:
		fmt.Println("Nothing to do.")
	}
	fmt.Println()
	renderSchemaTable(snap)
	return nil
}

func formatVersions(versions []int) string {
	parts := make([]string, len(versions))
	for i, v := range versions {
		parts[i] = fmt.Sprintf("v%d", v)
	}
	return strings.Join(parts, ", ")
}

func stateColor(s schema.State) string {
	switch s {
	case schema.StateCurrent:
		return color.GreenString(s.String())
	case schema.StateLegacy:
		return color.RedString(s.String())
	default:
		return color.YellowString(s.String())
	}
}

func init() {
	migrateCmd.Flags().BoolVar(&migrateDryRun, "dry-run", false, "detect the schema state without making changes")
	rootCmd.AddCommand(migrateCmd)
}
