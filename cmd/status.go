package cmd

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/insightpilot/insightpilot/internal/agent"
	"github.com/insightpilot/insightpilot/internal/confidence"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show InsightPilot status and statistics",
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openStore()
		if err != nil {
			return err
		}
		defer s.Close()

		stats, err := s.GetStats(cmd.Context())
		if err != nil {
			return fmt.Errorf("failed to get stats: %w", err)
		}
		stats.DaemonRunning = agent.Running(cfg.PIDPath())

		// Check if JSON output requested
		jsonOutput, _ := cmd.Flags().GetBool("json")
		if jsonOutput {
			return printJSON(stats)
		}

		// Pretty print
		fmt.Println("🧠 InsightPilot Status")
		fmt.Println("━━━━━━━━━━━━━━━━━━━━━")
		fmt.Printf("   Version:    %s\n", version)
		fmt.Printf("   Daemon:     %s\n", getStatusEmoji(stats.DaemonRunning))
		fmt.Printf("   Database:   %s\n", cfg.DBPath())
		fmt.Println()
		fmt.Println("📊 Pattern Statistics")
		fmt.Println("━━━━━━━━━━━━━━━━━━━━━")
		fmt.Printf("   Total:      %d\n", stats.TotalPatterns)
		for _, t := range sortedKeys(stats.ByType) {
			fmt.Printf("   %-20s %d\n", t+":", stats.ByType[t])
		}
		fmt.Println()
		fmt.Println("🎯 Confidence")
		fmt.Println("━━━━━━━━━━━━━━━━━━━━━")
		fmt.Printf("   Auto-apply: %d\n", stats.ByLevel[confidence.LevelAuto])
		fmt.Printf("   Suggest:    %d\n", stats.ByLevel[confidence.LevelSuggest])
		fmt.Printf("   Learning:   %d\n", stats.ByLevel[confidence.LevelNone])

		return nil
	},
}

func getStatusEmoji(running bool) string {
	if running {
		return "🟢 Running"
	}
	return "🔴 Stopped"
}

func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func init() {
	statusCmd.Flags().Bool("json", false, "Output as JSON")
}
