package cli

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"
	"supportrag/internal/domain"
)

var (
	weightsTenant string
	weightsJSON   bool
	weightsWindow int
	weightsSet    domain.SourceWeights
)

var weightsCmd = &cobra.Command{
	Use:   "weights",
	Short: "Inspect and tune per-tenant source weights",
}

var weightsGetCmd = &cobra.Command{
	Use:   "get",
	Short: "Show the tenant's effective weights",
	RunE:  runWeightsGet,
}

var weightsSetCmd = &cobra.Command{
	Use:   "set",
	Short: "Store weights; they are rescaled to sum to 1",
	Long: `Store weights for a tenant. Values that do not sum to 1 are rescaled.

Example:
  supportrag weights set -t acme --global-kb 0.2 --tenant-kb 0.3 --examples 0.35 --corrections 0.15`,
	RunE: runWeightsSet,
}

var weightsRecommendCmd = &cobra.Command{
	Use:   "recommend",
	Short: "Recommend weights from recent approval outcomes",
	RunE:  runWeightsRecommend,
}

var weightsApplyCmd = &cobra.Command{
	Use:   "apply",
	Short: "Apply the recommendation when there is enough data",
	RunE:  runWeightsApply,
}

var weightsPresetCmd = &cobra.Command{
	Use:   "preset <name>",
	Short: "Apply a named weight preset",
	Args:  cobra.ExactArgs(1),
	RunE:  runWeightsPreset,
}

var weightsPresetsCmd = &cobra.Command{
	Use:   "presets",
	Short: "List the weight presets",
	RunE: func(cmd *cobra.Command, args []string) error {
		for _, p := range domain.WeightPresets() {
			fmt.Printf("%-15s %s\n", p.Name, p.Description)
			printWeights(p.Weights)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(weightsCmd)
	weightsCmd.AddCommand(weightsGetCmd, weightsSetCmd, weightsRecommendCmd, weightsApplyCmd, weightsPresetCmd, weightsPresetsCmd)

	for _, c := range []*cobra.Command{weightsGetCmd, weightsSetCmd, weightsRecommendCmd, weightsApplyCmd, weightsPresetCmd} {
		c.Flags().StringVarP(&weightsTenant, "tenant", "t", "", "tenant id (required)")
		c.Flags().BoolVar(&weightsJSON, "json", false, "output as JSON")
		c.MarkFlagRequired("tenant")
	}
	weightsRecommendCmd.Flags().IntVar(&weightsWindow, "window-days", 0, "analysis window in days (default from config)")

	def := domain.DefaultWeights()
	weightsSetCmd.Flags().Float64Var(&weightsSet.GlobalKB, "global-kb", def.GlobalKB, "global KB weight")
	weightsSetCmd.Flags().Float64Var(&weightsSet.TenantKB, "tenant-kb", def.TenantKB, "tenant KB weight")
	weightsSetCmd.Flags().Float64Var(&weightsSet.Examples, "examples", def.Examples, "approved examples weight")
	weightsSetCmd.Flags().Float64Var(&weightsSet.Corrections, "corrections", def.Corrections, "corrections weight")
}

func runWeightsGet(cmd *cobra.Command, args []string) error {
	engine, st, err := openEngine(false)
	if err != nil {
		return err
	}
	defer st.Close()

	w, err := engine.GetWeights(cmd.Context(), weightsTenant)
	if err != nil {
		return err
	}
	if weightsJSON {
		return printJSON(w)
	}
	printWeights(w)
	return nil
}

func runWeightsSet(cmd *cobra.Command, args []string) error {
	engine, st, err := openEngine(false)
	if err != nil {
		return err
	}
	defer st.Close()

	w, err := engine.SetWeights(cmd.Context(), weightsTenant, weightsSet)
	if err != nil {
		return err
	}
	if weightsJSON {
		return printJSON(w)
	}
	fmt.Println("Weights stored:")
	printWeights(w)
	return nil
}

func runWeightsRecommend(cmd *cobra.Command, args []string) error {
	engine, st, err := openEngine(false)
	if err != nil {
		return err
	}
	defer st.Close()

	rec, err := engine.RecommendWeights(cmd.Context(), weightsTenant, weightsWindow)
	if err != nil {
		return err
	}
	if weightsJSON {
		return printJSON(rec)
	}
	printRecommendation(rec)
	return nil
}

func runWeightsApply(cmd *cobra.Command, args []string) error {
	engine, st, err := openEngine(false)
	if err != nil {
		return err
	}
	defer st.Close()

	res, err := engine.ApplyRecommendedWeights(cmd.Context(), weightsTenant)
	if err != nil {
		return err
	}
	if weightsJSON {
		return printJSON(res)
	}
	printRecommendation(res.Recommendation)
	if !res.Applied {
		fmt.Printf("\nNot applied: %s (%v)\n", res.Reason, res.Insufficient)
		return nil
	}
	fmt.Println("\nApplied.")
	return nil
}

func runWeightsPreset(cmd *cobra.Command, args []string) error {
	engine, st, err := openEngine(false)
	if err != nil {
		return err
	}
	defer st.Close()

	p, err := engine.Weights.ApplyPreset(cmd.Context(), weightsTenant, args[0])
	if err != nil {
		return err
	}
	if weightsJSON {
		return printJSON(p)
	}
	fmt.Printf("Preset %s applied:\n", p.Name)
	printWeights(p.Weights)
	return nil
}

func printWeights(w domain.SourceWeights) {
	for _, s := range domain.AllSources {
		fmt.Printf("  %-11s %.2f\n", s, w.Get(s))
	}
}

func printRecommendation(rec domain.WeightRecommendation) {
	fmt.Printf("Recommended weights (confidence %.2f):\n", rec.Confidence)
	printWeights(rec.Weights)
	sources := make([]domain.SourceType, 0, len(rec.Reasoning))
	for s := range rec.Reasoning {
		sources = append(sources, s)
	}
	sort.Slice(sources, func(i, j int) bool { return sources[i] < sources[j] })
	for _, s := range sources {
		fmt.Printf("  %-11s %s\n", s, rec.Reasoning[s])
	}
}
