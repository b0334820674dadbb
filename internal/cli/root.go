// Package cli implements the partkv command.
package cli

import (
	"log/slog"
	"os"

	"github.com/andreyvit/partkv"
	"github.com/spf13/cobra"
)

var (
	configPath string
	dbPath     string
	jsonOutput bool
	verbose    bool
)

var rootCmd = &cobra.Command{
	Use:   "partkv",
	Short: "Inspect and maintain partitioned key-value containers",
	Long: `partkv manages containers stored in a partkv database file.

A container spreads its keys over prime-count partitions of bounded size.
Resizing installs a bigger group of partitions in front of the old one;
condensing moves the remaining keys over.

Environment Variables:
  PARTKV_CONFIG  Path of the YAML config file (overridden by --config)`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "YAML config file (overrides PARTKV_CONFIG)")
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "database file (overrides the config)")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "output JSON instead of human-readable text")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log every storage operation")
}

func loadConfig() (*Config, error) {
	cfg, err := LoadConfig(configPath)
	if err != nil {
		return nil, err
	}
	if dbPath != "" {
		cfg.DB = dbPath
	}
	if verbose {
		cfg.Verbose = true
	}
	return cfg, nil
}

func openDB(cfg *Config) (*partkv.DB, error) {
	level := slog.LevelInfo
	if cfg.Verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	return partkv.Open(cfg.DB, partkv.Options{
		Logger:   logger,
		Verbose:  cfg.Verbose,
		InMemory: cfg.InMemory,
	})
}

// withDB opens the configured database for the duration of f.
func withDB(f func(cfg *Config, db *partkv.DB) error) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	db, err := openDB(cfg)
	if err != nil {
		return err
	}
	defer db.Close()
	return f(cfg, db)
}
