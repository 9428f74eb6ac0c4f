package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"supportrag/internal/domain"
)

var (
	statsTenant string
	statsDays   int
	statsJSON   bool
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show edit, confidence and source effectiveness statistics",
	RunE:  runStats,
}

func init() {
	rootCmd.AddCommand(statsCmd)
	statsCmd.Flags().StringVarP(&statsTenant, "tenant", "t", "", "tenant id (required)")
	statsCmd.Flags().IntVar(&statsDays, "days", 30, "window in days; 0 reports all history and the tuning window for effectiveness")
	statsCmd.Flags().BoolVar(&statsJSON, "json", false, "output as JSON")
	statsCmd.MarkFlagRequired("tenant")
}

func runStats(cmd *cobra.Command, args []string) error {
	engine, st, err := openEngine(false)
	if err != nil {
		return err
	}
	defer st.Close()

	ctx := cmd.Context()
	edits, err := engine.Analytics.EditMetrics(ctx, statsTenant, statsDays)
	if err != nil {
		return err
	}
	levels, err := engine.Analytics.ConfidenceAccuracy(ctx, statsTenant, statsDays)
	if err != nil {
		return err
	}
	intents, err := engine.Analytics.IntentPerformance(ctx, statsTenant, statsDays)
	if err != nil {
		return err
	}
	report, err := engine.Tuner.AnalyzeEffectiveness(ctx, statsTenant, statsDays)
	if err != nil {
		return err
	}

	if statsJSON {
		return printJSON(map[string]any{
			"edits":         edits,
			"confidence":    levels,
			"intents":       intents,
			"effectiveness": report,
		})
	}

	fmt.Printf("Approvals: %d (unedited %d, minor edits %d, corrections %d)\n",
		edits.Total, edits.Unedited, edits.MinorEdits, edits.Corrections)
	fmt.Printf("Average similarity: %.3f, unedited rate: %.1f%%\n\n", edits.AvgSimilarity, edits.UneditedRate*100)

	fmt.Println("Confidence accuracy:")
	for _, l := range levels {
		fmt.Printf("  %-9s %4d drafts, %.1f%% unedited\n", l.Level, l.Count, l.UneditedRate*100)
	}

	fmt.Println("\nSource effectiveness:")
	for i, s := range report.Sources {
		fmt.Printf("  %-11s %4d samples, %.1f%% effective, avg score %.3f\n", domain.AllSources[i], s.Total, s.Effectiveness*100, s.AvgScore)
	}

	if len(intents) > 0 {
		fmt.Println("\nIntents:")
		for _, in := range intents {
			fmt.Printf("  %-14s %4d tickets, %.1f%% corrected\n", in.Intent, in.Count, in.CorrectionRate*100)
		}
	}
	return nil
}
