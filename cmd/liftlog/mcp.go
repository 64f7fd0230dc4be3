// ABOUTME: CLI command for starting MCP server.
// ABOUTME: Runs stdio-based MCP server for Claude integration.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/harperreed/liftlog/internal/mcp"
	"github.com/spf13/cobra"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start MCP server",
	Long: `Start the Model Context Protocol (MCP) server for AI assistant integration.

The server communicates via stdin/stdout and shares the database with the CLI.

CLAUDE DESKTOP CONFIGURATION:

  {
    "mcpServers": {
      "liftlog": {
        "command": "liftlog",
        "args": ["mcp"]
      }
    }
  }

AVAILABLE TOOLS:

  schema_status    Schema state and per-table consistency
  list_categories  Categories, most recently used first
  add_category     Create a category
  add_entry        Log a weight entry
  list_entries     List entries by category and window
  delete_entry     Delete an entry by ID

AVAILABLE RESOURCES:

  liftlog://schema    Schema state and consistency report
  liftlog://recent    Recent entries
  liftlog://summary   Per-category bests and volume`,
	RunE: func(cmd *cobra.Command, args []string) error {
		server, err := mcp.NewServer(store)
		if err != nil {
			return err
		}

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		// Handle shutdown signals
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		go func() {
			<-sigChan
			cancel()
		}()

		return server.Serve(ctx)
	},
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}
