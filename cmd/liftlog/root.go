// ABOUTME: Root Cobra command for liftlog CLI.
// ABOUTME: Loads config and opens the migrated store via PersistentPre/PostRunE.
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/harperreed/liftlog/internal/config"
	"github.com/harperreed/liftlog/internal/models"
	"github.com/harperreed/liftlog/internal/storage"
	"github.com/spf13/cobra"
)

// skipStorage marks commands that run without opening the database.
const skipStorage = "skip-storage"

var (
	cfg    *config.Config
	store  *storage.DB
	logger *slog.Logger

	dbFlag      string
	userFlag    string
	verboseFlag bool
)

var rootCmd = &cobra.Command{
	Use:   "liftlog",
	Short: "Weight and lifting tracker",
	Long: `Liftlog is a CLI tool for logging body weight and lifts.

QUICK START:

  $ liftlog add "Body Mass" 82.5              # Log your body weight
  $ liftlog add "Bench Press" 80 5            # Log a set of 5 at 80kg
  $ liftlog add Pullups 10 8 --unit lb        # Body weight exercise with added load
  $ liftlog list                              # See recent entries
  $ liftlog list -c "Bench Press" -w month    # Filter by category and window

CATEGORIES:

  $ liftlog category add Squat
  $ liftlog category add Pullups --body-weight
  $ liftlog category list

SCHEMA:

  The database is brought up to date every time liftlog opens it. Older
  databases are upgraded in place; rows that cannot be carried across a
  rebuild are kept in the salvage archive.

  $ liftlog status             # Consistency report for every table
  $ liftlog migrate --dry-run  # Show what would happen without changing anything
  $ liftlog salvage list       # Rows kept from earlier rebuilds

MCP INTEGRATION:

  Run 'liftlog mcp' to start the Model Context Protocol server.

  {
    "mcpServers": {
      "liftlog": { "command": "liftlog", "args": ["mcp"] }
    }
  }

DATA STORAGE:

  Data is stored in SQLite at ~/.local/share/liftlog/liftlog.db.
  Configuration lives at ~/.config/liftlog/config.json; every key can be
  overridden with a LIFTLOG_ environment variable.`,
	SilenceUsage: true,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func openStore(cmd *cobra.Command, args []string) error {
	if cmd.Name() == "help" || cmd.Name() == "version" {
		return nil
	}
	if cmd.HasParent() && cmd.Parent().Name() == "completion" {
		return nil
	}
	// A failed RunE skips PersistentPostRunE.
	_ = closeStore(cmd, args)

	var err error
	cfg, err = config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if dbFlag != "" {
		cfg.DBPath = dbFlag
	}

	level, err := cfg.GetLogLevel()
	if err != nil {
		return err
	}
	if cfg.LogLevel == "" {
		level = slog.LevelWarn
	}
	if verboseFlag {
		level = slog.LevelDebug
	}
	logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	if cmd.Annotations[skipStorage] == "true" {
		return nil
	}
	if cmd == migrateCmd && migrateDryRun {
		return nil
	}

	store, err = cfg.OpenStorage(logger)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	return nil
}

func closeStore(cmd *cobra.Command, args []string) error {
	if store == nil {
		return nil
	}
	err := store.Close()
	store = nil
	return err
}

// currentUser resolves --user, defaulting to the default tenant.
func currentUser() (*models.User, error) {
	if userFlag == "" {
		u, err := store.DefaultUser()
		if err != nil {
			return nil, fmt.Errorf("failed to load default user: %w", err)
		}
		return u, nil
	}
	u, err := store.GetUserByUsername(userFlag)
	if err != nil {
		return nil, fmt.Errorf("unknown user %q: %w", userFlag, err)
	}
	return u, nil
}

func init() {
	rootCmd.PersistentPreRunE = openStore
	rootCmd.PersistentPostRunE = closeStore
	rootCmd.PersistentFlags().StringVar(&dbFlag, "db", "", "database path (overrides config)")
	rootCmd.PersistentFlags().StringVar(&userFlag, "user", "", "username to act as (default tenant when empty)")
	rootCmd.PersistentFlags().BoolVarP(&verboseFlag, "verbose", "v", false, "debug logging to stderr")
}
