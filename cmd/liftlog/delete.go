// ABOUTME: CLI command for deleting weight entries.
// ABOUTME: Looks the entry up first so the confirmation names what was removed.
package main

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/fatih/color"
	"github.com/harperreed/liftlog/internal/storage"
	"github.com/spf13/cobra"
)

var deleteCmd = &cobra.Command{
	Use:     "delete <id>",
	Aliases: []string{"del", "rm"},
	Short:   "Delete a weight entry",
	Long: `Delete a weight entry by its numeric ID (shown by 'liftlog list').

Examples:
  liftlog delete 42
  liftlog rm 42`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid entry id: %s", args[0])
		}

		user, err := currentUser()
		if err != nil {
			return err
		}

		e, err := store.GetEntry(id)
		if errors.Is(err, storage.ErrNotFound) || (err == nil && e.UserID != user.ID) {
			return fmt.Errorf("entry #%d not found", id)
		}
		if err != nil {
			return fmt.Errorf("failed to load entry: %w", err)
		}

		if err := store.DeleteEntry(id); err != nil {
			return fmt.Errorf("failed to delete entry: %w", err)
		}

		color.Green("✓ Deleted entry #%d", id)
		fmt.Printf("  %s\n", formatEntry(e))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(deleteCmd)
}
