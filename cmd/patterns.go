package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/insightpilot/insightpilot/internal/confidence"
	"github.com/insightpilot/insightpilot/internal/store"
	"github.com/insightpilot/insightpilot/pkg/models"
)

var patternsCmd = &cobra.Command{
	Use:   "patterns",
	Short: "List learned patterns",
	Long: `List learned patterns, strongest first.

Examples:
  insightpilot patterns
  insightpilot patterns --min-confidence 0 --type location_fill
  insightpilot patterns --source "gym"`,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openStore()
		if err != nil {
			return err
		}
		defer s.Close()

		// Get flags
		minConfidence, _ := cmd.Flags().GetFloat64("min-confidence")
		patternType, _ := cmd.Flags().GetString("type")
		limit, _ := cmd.Flags().GetInt("limit")
		source, _ := cmd.Flags().GetString("source")

		opts := store.ListOpts{
			Type:          models.PatternType(patternType),
			MinConfidence: minConfidence,
			Source:        source,
			Limit:         limit,
		}
		if opts.Type != "" && !opts.Type.Valid() {
			return fmt.Errorf("invalid pattern type %q", patternType)
		}

		patterns, err := s.List(cmd.Context(), opts)
		if err != nil {
			return fmt.Errorf("failed to list patterns: %w", err)
		}

		// Check if JSON output requested
		jsonOutput, _ := cmd.Flags().GetBool("json")
		if jsonOutput {
			if patterns == nil {
				patterns = []models.Pattern{}
			}
			return printJSON(patterns)
		}

		if len(patterns) == 0 {
			fmt.Println("🔍 No patterns found")
			return nil
		}

		model := confidence.New(cfg.Learning)
		fmt.Printf("🧠 %d patterns\n\n", len(patterns))
		for _, p := range patterns {
			fmt.Printf("%s %-6s %s %q -> %s %q\n", levelEmoji(model.Level(p.Confidence)), confidence.FormatPercent(p.Confidence),
				p.SourceType, p.SourceKey, p.TargetType, p.DisplayName())
			fmt.Printf("   %s | seen %d, accepted %d, rejected %d | last %s\n",
				p.ID, p.OccurrenceCount, p.AcceptCount, p.RejectCount, p.LastSeenAt.Format("2006-01-02"))
		}

		return nil
	},
}

func levelEmoji(l confidence.Level) string {
	switch l {
	case confidence.LevelAuto:
		return "✨"
	case confidence.LevelSuggest:
		return "💡"
	default:
		return "🌱"
	}
}

func init() {
	patternsCmd.Flags().Float64P("min-confidence", "m", 0.5, "Minimum confidence")
	patternsCmd.Flags().StringP("type", "t", "", "Filter by pattern type (activity_category|activity_skill|goal_category|person_context|location_fill)")
	patternsCmd.Flags().StringP("source", "S", "", "Only patterns learned from this keyword, person or location")
	patternsCmd.Flags().IntP("limit", "l", 50, "Maximum number of results")
	patternsCmd.Flags().Bool("json", false, "Output as JSON")
}
