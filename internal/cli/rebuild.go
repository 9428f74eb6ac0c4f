package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var rebuildTenant string

var rebuildCmd = &cobra.Command{
	Use:   "rebuild",
	Short: "Rebuild a tenant's example and correction indexes from its approvals",
	Long: `Re-derive the example and correction indexes from the full approval
history. Safe to run repeatedly; run it after changing the embedding model.`,
	RunE: runRebuild,
}

func init() {
	rootCmd.AddCommand(rebuildCmd)
	rebuildCmd.Flags().StringVarP(&rebuildTenant, "tenant", "t", "", "tenant id (required)")
	rebuildCmd.MarkFlagRequired("tenant")
}

func runRebuild(cmd *cobra.Command, args []string) error {
	engine, st, err := openEngine(true)
	if err != nil {
		return err
	}
	defer st.Close()

	result, err := engine.RebuildIndex(cmd.Context(), rebuildTenant, newProgress("Rebuilding"))
	if err != nil {
		return fmt.Errorf("rebuild failed: %w", err)
	}
	fmt.Printf("\nRebuild complete:\n")
	fmt.Printf("  Examples:    %d\n", result.Examples)
	fmt.Printf("  Corrections: %d\n", result.Corrections)
	return nil
}
