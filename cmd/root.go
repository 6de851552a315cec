package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/abhisek/kidquest/internal/config"
	"github.com/abhisek/kidquest/internal/store"
)

var rootCmd = &cobra.Command{
	Use:   "kidquest",
	Short: "Adaptive exercise engine for kids",
	Long: "KidQuest serves exercises to children, generating new ones with an LLM when the pool runs low,\n" +
		"and tracks mastery, streaks, skill unlocks and spaced-repetition reviews.",
	SilenceUsage: true,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().String("db", "", "Path to SQLite database file (overrides KIDQUEST_DB env var)")
	rootCmd.PersistentFlags().String("config", "", "Path to kidquest.yaml (default: ./kidquest.yaml or ~/.config/kidquest)")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(skillCmd)
	rootCmd.AddCommand(studentCmd)
	rootCmd.AddCommand(progressCmd)
	rootCmd.AddCommand(llmCmd)
	rootCmd.AddCommand(versionCmd)
}

func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}

// resolveDBPath returns the database path using --db flag (highest priority),
// then database.path from config or KIDQUEST_DB, then the default XDG path.
func resolveDBPath(cmd *cobra.Command, cfg *config.Config) (string, error) {
	if p, _ := cmd.Flags().GetString("db"); p != "" {
		return p, store.EnsureDir(p)
	}
	if cfg != nil && cfg.Database.Path != "" {
		return cfg.Database.Path, store.EnsureDir(cfg.Database.Path)
	}
	return store.DefaultDBPath()
}

// openStore loads config and opens the database for one-shot commands.
// The caller closes the store.
func openStore(cmd *cobra.Command) (*store.Store, *config.Config, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, nil, err
	}
	dbPath, err := resolveDBPath(cmd, cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("resolve database path: %w", err)
	}
	s, err := store.Open(dbPath)
	if err != nil {
		return nil, nil, fmt.Errorf("open database: %w", err)
	}
	return s, cfg, nil
}
