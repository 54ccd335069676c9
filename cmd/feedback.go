package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/insightpilot/insightpilot/internal/confidence"
	"github.com/insightpilot/insightpilot/internal/store"
)

var acceptCmd = &cobra.Command{
	Use:   "accept [pattern-id...]",
	Short: "Accept a suggestion",
	Long:  `Record that you kept a suggested value. Its patterns gain confidence.`,
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return recordFeedback(cmd, args, true)
	},
}

var rejectCmd = &cobra.Command{
	Use:   "reject [pattern-id...]",
	Short: "Reject a suggestion",
	Long:  `Record that you dismissed a suggested value. Its patterns lose confidence.`,
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return recordFeedback(cmd, args, false)
	},
}

func recordFeedback(cmd *cobra.Command, ids []string, accepted bool) error {
	s, err := openStore()
	if err != nil {
		return err
	}
	defer s.Close()

	record := s.RecordReject
	if accepted {
		record = s.RecordAccept
	}

	model := confidence.New(cfg.Learning)
	for _, id := range ids {
		p, err := record(cmd.Context(), id)
		if errors.Is(err, store.ErrNotFound) {
			fmt.Printf("❓ %s: no such pattern\n", id)
			continue
		}
		if err != nil {
			return fmt.Errorf("failed to record feedback for %s: %w", id, err)
		}
		fmt.Printf("✅ %s -> %s now %s (%s)\n", p.SourceKey, p.DisplayName(), confidence.FormatPercent(p.Confidence), model.Level(p.Confidence))
	}
	return nil
}
