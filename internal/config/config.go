// ABOUTME: Liftlog configuration management backed by viper.
// ABOUTME: Merges the JSON config file with LIFTLOG_* environment variables and opens storage.

package config

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/harperreed/liftlog/internal/archive"
	"github.com/harperreed/liftlog/internal/storage"
	"github.com/spf13/viper"
)

// EnvPrefix is the prefix of environment variables that override the config file.
const EnvPrefix = "LIFTLOG"

// ArchiveDisabled turns off salvaging when set as archive_dir.
const ArchiveDisabled = "off"

// Config stores liftlog configuration.
type Config struct {
	// DataDir is the root directory for data storage.
	// Supports ~ expansion for home directory. Defaults to ~/.local/share/liftlog.
	DataDir string `json:"data_dir,omitempty"`

	// DBPath overrides the database location. Defaults to <data_dir>/liftlog.db.
	DBPath string `json:"db_path,omitempty"`

	// ArchiveDir holds rows salvaged before a legacy store is rebuilt.
	// Defaults to <data_dir>/salvage; "off" disables salvaging.
	ArchiveDir string `json:"archive_dir,omitempty"`

	// LogLevel is one of debug, info, warn, error. Defaults to info.
	LogLevel string `json:"log_level,omitempty"`
}

// DefaultDataDir returns the default data directory following XDG spec.
func DefaultDataDir() string {
	dataHome := os.Getenv("XDG_DATA_HOME")
	if dataHome == "" {
		home, _ := os.UserHomeDir()
		dataHome = filepath.Join(home, ".local", "share")
	}
	return filepath.Join(dataHome, "liftlog")
}

// GetDataDir returns the configured data directory with ~ expanded,
// defaulting to the standard XDG data directory.
func (c *Config) GetDataDir() string {
	if c.DataDir == "" {
		return DefaultDataDir()
	}
	return ExpandPath(c.DataDir)
}

// GetDBPath returns the database file path.
func (c *Config) GetDBPath() string {
	if c.DBPath == "" {
		return filepath.Join(c.GetDataDir(), "liftlog.db")
	}
	return ExpandPath(c.DBPath)
}

// GetArchiveDir returns the salvage archive directory, or "" when salvaging is disabled.
func (c *Config) GetArchiveDir() string {
	switch {
	case strings.EqualFold(c.ArchiveDir, ArchiveDisabled):
		return ""
	case c.ArchiveDir == "":
		return filepath.Join(c.GetDataDir(), "salvage")
	default:
		return ExpandPath(c.ArchiveDir)
	}
}

// GetLogLevel parses LogLevel, defaulting to info.
func (c *Config) GetLogLevel() (slog.Level, error) {
	var level slog.Level
	if c.LogLevel == "" {
		return slog.LevelInfo, nil
	}
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return slog.LevelInfo, fmt.Errorf("invalid log_level %q: %w", c.LogLevel, err)
	}
	return level, nil
}

// ExpandPath expands a leading ~ to the user's home directory.
func ExpandPath(path string) string {
	if path == "" {
		return ""
	}
	if path == "~" {
		home, _ := os.UserHomeDir()
		return home
	}
	if strings.HasPrefix(path, "~/") {
		home, _ := os.UserHomeDir()
		return filepath.Join(home, path[2:])
	}
	return path
}

// OpenStorage opens the database, bringing its schema current. Rows dropped
// by a legacy rebuild go to the archive unless salvaging is disabled.
func (c *Config) OpenStorage(logger *slog.Logger) (*storage.DB, error) {
	opts := []storage.Option{storage.WithLogger(logger)}
	if dir := c.GetArchiveDir(); dir != "" {
		opts = append(opts, storage.WithSalvager(archive.OnDemand{Dir: dir, Logger: logger}))
	}
	return storage.Open(c.GetDBPath(), opts...)
}

// OpenArchive opens the salvage archive for reading.
func (c *Config) OpenArchive(logger *slog.Logger) (*archive.Archive, error) {
	dir := c.GetArchiveDir()
	if dir == "" {
		return nil, fmt.Errorf("salvage archive is disabled")
	}
	return archive.Open(dir, logger)
}

// GetConfigPath returns the config file path.
func GetConfigPath() string {
	configDir := os.Getenv("XDG_CONFIG_HOME")
	if configDir == "" {
		homeDir, _ := os.UserHomeDir()
		configDir = filepath.Join(homeDir, ".config")
	}
	return filepath.Join(configDir, "liftlog", "config.json")
}

// Load reads config from disk, then applies LIFTLOG_* environment overrides.
func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigType("json")
	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()

	path := GetConfigPath()
	if _, err := os.Stat(path); err == nil {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	} else if !os.IsNotExist(err) {
		return nil, err
	}

	return &Config{
		DataDir:    v.GetString("data_dir"),
		DBPath:     v.GetString("db_path"),
		ArchiveDir: v.GetString("archive_dir"),
		LogLevel:   v.GetString("log_level"),
	}, nil
}

// Save writes config to disk.
func (c *Config) Save() error {
	path := GetConfigPath()
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0750); err != nil {
		return err
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0600)
}
