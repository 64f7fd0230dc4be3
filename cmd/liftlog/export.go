// ABOUTME: CLI commands for exporting and importing liftlog data.
// ABOUTME: Supports JSON, YAML, and Markdown export formats.
package main

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/harperreed/liftlog/internal/models"
	"github.com/spf13/cobra"
)

var (
	exportOutput string
	exportWindow string
)

var exportCmd = &cobra.Command{
	Use:   "export <format>",
	Short: "Export liftlog data",
	Long: `Export your categories and entries.

FORMATS:

  json       Full JSON export (suitable for backup/restore)
  yaml       YAML export grouped by category (human-readable)
  markdown   One table per category (for sharing)

OPTIONS:

  --output, -o   Write to file instead of stdout
  --window, -w   Limit markdown to week, month, year, or all

EXAMPLES:

  liftlog export json -o backup.json
  liftlog export yaml
  liftlog export markdown -w month`,
	Args:      cobra.ExactArgs(1),
	ValidArgs: []string{"json", "yaml", "markdown"},
	RunE: func(cmd *cobra.Command, args []string) error {
		user, err := currentUser()
		if err != nil {
			return err
		}

		var data []byte
		switch args[0] {
		case "json":
			data, err = store.ExportJSON(user.ID)
		case "yaml":
			data, err = store.ExportYAML(user.ID)
		case "markdown", "md":
			window, werr := models.ParseWindow(exportWindow)
			if werr != nil {
				return werr
			}
			var md string
			md, err = store.ExportMarkdown(user.ID, window)
			data = []byte(md)
		default:
			return fmt.Errorf("unknown format: %s (use json, yaml, or markdown)", args[0])
		}
		if err != nil {
			return fmt.Errorf("export failed: %w", err)
		}

		if exportOutput == "" {
			fmt.Print(string(data))
			return nil
		}
		if err := os.WriteFile(exportOutput, data, 0600); err != nil {
			return fmt.Errorf("failed to write file: %w", err)
		}
		color.Green("✓ Exported to %s", exportOutput)
		return nil
	},
}

var importCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Import liftlog data from JSON",
	Long: `Import categories and entries from a JSON backup.

Categories are matched by name, so importing into a database that already
has a "Squat" category adds the entries to it instead of creating a copy.

EXAMPLES:

  liftlog import backup.json`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		user, err := currentUser()
		if err != nil {
			return err
		}

		data, err := os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("failed to read file: %w", err)
		}

		summary, err := store.ImportJSON(user.ID, data)
		if err != nil {
			return fmt.Errorf("import failed: %w", err)
		}

		color.Green("✓ Imported from %s", args[0])
		fmt.Printf("  %d categories, %d entries\n", summary.Categories, summary.Entries)
		return nil
	},
}

func init() {
	exportCmd.Flags().StringVarP(&exportOutput, "output", "o", "", "output file (default: stdout)")
	exportCmd.Flags().StringVarP(&exportWindow, "window", "w", string(models.WindowAll), "time window for markdown (week, month, year, all)")

	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(importCmd)
}
