package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/insightpilot/insightpilot/internal/config"
	"github.com/insightpilot/insightpilot/internal/confidence"
	"github.com/insightpilot/insightpilot/internal/logger"
	"github.com/insightpilot/insightpilot/internal/store"
)

var (
	version = "0.1.0"
	cfgFile string

	cfg *config.Config
	log *logger.Logger
)

var errNotInitialized = errors.New("insightpilot is not initialized: run 'insightpilot init' first")

var rootCmd = &cobra.Command{
	Use:   "insightpilot",
	Short: "Captures that fill themselves in.",
	Long: `InsightPilot learns how you categorize your life-log captures.

Every saved event, task or note teaches it which categories, skills, goals,
people and places go together. The next time you type "gym with @alex", it
fills in what you always pick and suggests what it is not yet sure of.`,
	Version:      version,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(cfgFile)
		if err != nil {
			return err
		}
		log, err = logger.New(cfg.LogMode)
		if err != nil {
			return err
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if log != nil {
			log.Sync()
		}
	},
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ~/.insightpilot/config.yaml)")

	// Add subcommands
	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(learnCmd)
	rootCmd.AddCommand(suggestCmd)
	rootCmd.AddCommand(acceptCmd)
	rootCmd.AddCommand(rejectCmd)
	rootCmd.AddCommand(patternsCmd)
	rootCmd.AddCommand(pruneCmd)
	rootCmd.AddCommand(daemonCmd)
	rootCmd.AddCommand(mcpCmd)
}

// openStore opens the pattern database of an initialized installation
func openStore() (*store.Store, error) {
	if _, err := os.Stat(cfg.DBPath()); os.IsNotExist(err) {
		return nil, errNotInitialized
	}
	s, err := store.New(cfg.DBPath(), store.WithModel(confidence.New(cfg.Learning)))
	if err != nil {
		return nil, fmt.Errorf("failed to open store: %w", err)
	}
	return s, nil
}

func printJSON(v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(data))
	return nil
}
