package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/insightpilot/insightpilot/internal/collector"
	"github.com/insightpilot/insightpilot/pkg/models"
)

var learnCmd = &cobra.Command{
	Use:   "learn [text]",
	Short: "Learn from a saved record",
	Long: `Teach InsightPilot from a record you just saved.

Examples:
  insightpilot learn --category Health --subcategory Exercise --skill Fitness "gym workout"
  insightpilot learn --kind task --goal "Run a marathon" "long run"
  insightpilot learn --kind text "coffee with @sam at the office"`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openStore()
		if err != nil {
			return err
		}
		defer s.Close()

		// Get flags
		kind, _ := cmd.Flags().GetString("kind")
		rec := models.Record{
			Kind: models.RecordKind(strings.ToLower(kind)),
			Text: strings.Join(args, " "),
		}
		if !rec.Kind.Valid() {
			return fmt.Errorf("invalid kind %q: use event, task or text", kind)
		}
		rec.Category, _ = cmd.Flags().GetString("category")
		rec.Subcategory, _ = cmd.Flags().GetString("subcategory")
		rec.Skills, _ = cmd.Flags().GetStringSlice("skill")
		rec.Goal, _ = cmd.Flags().GetString("goal")
		rec.People, _ = cmd.Flags().GetStringSlice("person")
		rec.Location, _ = cmd.Flags().GetString("location")

		res := collector.New(s, log).Collect(cmd.Context(), rec)

		// Check if JSON output requested
		jsonOutput, _ := cmd.Flags().GetBool("json")
		if jsonOutput {
			return printJSON(res)
		}

		if res.Derived == 0 {
			fmt.Println("🤷 Nothing to learn: add a category, skill, goal or location")
			return nil
		}
		fmt.Printf("✅ Learned %d of %d patterns\n", res.Recorded, res.Derived)
		if res.Failed > 0 {
			fmt.Printf("   ⚠️  %d failed (see log)\n", res.Failed)
		}
		return nil
	},
}

func init() {
	learnCmd.Flags().StringP("kind", "k", string(models.RecordKindEvent), "Record kind (event|task|text)")
	learnCmd.Flags().StringP("category", "c", "", "Category the record was saved with")
	learnCmd.Flags().String("subcategory", "", "Subcategory the record was saved with")
	learnCmd.Flags().StringSliceP("skill", "s", []string{}, "Skill the record was saved with (repeatable)")
	learnCmd.Flags().StringP("goal", "g", "", "Goal the record was saved with")
	learnCmd.Flags().StringSliceP("person", "p", []string{}, "Person on the record (repeatable)")
	learnCmd.Flags().StringP("location", "l", "", "Location the record was saved with")
	learnCmd.Flags().Bool("json", false, "Output as JSON")
}
