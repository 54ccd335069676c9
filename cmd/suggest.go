package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/insightpilot/insightpilot/internal/confidence"
	"github.com/insightpilot/insightpilot/internal/learning"
	"github.com/insightpilot/insightpilot/pkg/models"
)

var suggestCmd = &cobra.Command{
	Use:   "suggest [text]",
	Short: "Fill in a capture from learned habits",
	Long: `Show what InsightPilot would fill in for a capture.

Fields you pass are kept as they are; the rest are filled in when a
learned habit is strong enough, or offered as suggestions.

Examples:
  insightpilot suggest "gym with @alex"
  insightpilot suggest --category Work "coffee at !blue bottle"
  insightpilot suggest --hints "morning run"`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		text := strings.Join(args, " ")

		s, err := openStore()
		if err != nil {
			return err
		}
		defer s.Close()

		engine := learning.NewEngine(s, cfg.Learning, log)

		hintsOnly, _ := cmd.Flags().GetBool("hints")
		if hintsOnly {
			pc, err := engine.Context(cmd.Context(), text)
			if err != nil {
				return fmt.Errorf("failed to build context: %w", err)
			}
			fmt.Print(learning.FormatHints(pc))
			return nil
		}

		res, err := engine.Enrich(cmd.Context(), draftFromFlags(cmd), text)
		if err != nil {
			return fmt.Errorf("enrich failed: %w", err)
		}

		// Check if JSON output requested
		jsonOutput, _ := cmd.Flags().GetBool("json")
		if jsonOutput {
			return printJSON(res)
		}

		// Pretty print
		if len(res.AutoApplied) == 0 && len(res.Suggestions) == 0 {
			fmt.Printf("🔍 Nothing learned yet for: %q\n", text)
			return nil
		}

		if len(res.AutoApplied) > 0 {
			fmt.Println("✨ Filled in")
			for _, a := range res.AutoApplied {
				fmt.Printf("   %-12s %s  (%s, %s)\n", a.Field+":", fieldValue(a.Value, a.Values), confidence.FormatPercent(a.Confidence), a.Source)
			}
		}
		if len(res.Suggestions) > 0 {
			if len(res.AutoApplied) > 0 {
				fmt.Println()
			}
			fmt.Println("💡 Suggestions")
			for _, sg := range res.Suggestions {
				fmt.Printf("   %-12s %s  (%s, %s)\n", sg.Field+":", fieldValue(sg.Value, sg.Values), confidence.FormatPercent(sg.Confidence), sg.Source)
				fmt.Printf("   %-12s insightpilot accept %s\n", "", strings.Join(sg.PatternIDs, " "))
			}
		}

		return nil
	},
}

func draftFromFlags(cmd *cobra.Command) models.Draft {
	var d models.Draft
	if v, _ := cmd.Flags().GetString("category"); v != "" {
		d.Category = models.Some(v)
	}
	if v, _ := cmd.Flags().GetString("subcategory"); v != "" {
		d.Subcategory = models.Some(v)
	}
	if v, _ := cmd.Flags().GetStringSlice("skill"); len(v) > 0 {
		d.Skills = models.Some(v)
	}
	if v, _ := cmd.Flags().GetString("goal"); v != "" {
		d.Goal = models.Some(v)
	}
	if v, _ := cmd.Flags().GetString("location"); v != "" {
		d.Location = models.Some(v)
	}
	return d
}

func fieldValue(value string, values []string) string {
	if len(values) > 0 {
		return strings.Join(values, ", ")
	}
	return value
}

func init() {
	suggestCmd.Flags().StringP("category", "c", "", "Category already chosen")
	suggestCmd.Flags().String("subcategory", "", "Subcategory already chosen")
	suggestCmd.Flags().StringSliceP("skill", "s", []string{}, "Skill already chosen (repeatable)")
	suggestCmd.Flags().StringP("goal", "g", "", "Goal already chosen")
	suggestCmd.Flags().StringP("location", "l", "", "Location already known")
	suggestCmd.Flags().Bool("hints", false, "Print learned habits as parser hints instead")
	suggestCmd.Flags().Bool("json", false, "Output as JSON")
}
