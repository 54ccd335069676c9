package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var pruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Remove stale, weak patterns",
	Long: `Remove patterns that have not been updated for a while, never got
confident and were seen only a couple of times.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openStore()
		if err != nil {
			return err
		}
		defer s.Close()

		maxAge, _ := cmd.Flags().GetInt("max-age-days")
		if !cmd.Flags().Changed("max-age-days") {
			maxAge = cfg.Prune.MaxAgeDays
		}

		n, err := s.Prune(cmd.Context(), maxAge)
		if err != nil {
			return fmt.Errorf("prune failed: %w", err)
		}
		fmt.Printf("🧹 Pruned %d patterns older than %d days\n", n, maxAge)
		return nil
	},
}

func init() {
	pruneCmd.Flags().Int("max-age-days", 90, "Only prune patterns untouched for this many days (default from config)")
}
