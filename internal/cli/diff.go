package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"supportrag/internal/editdiff"
)

var diffJSON bool

var diffCmd = &cobra.Command{
	Use:   "diff <draft-file> <final-file>",
	Short: "Classify the edit between a draft and the sent reply",
	Args:  cobra.ExactArgs(2),
	RunE:  runDiff,
}

func init() {
	rootCmd.AddCommand(diffCmd)
	diffCmd.Flags().BoolVar(&diffJSON, "json", false, "output as JSON")
}

func runDiff(cmd *cobra.Command, args []string) error {
	original, err := os.ReadFile(args[0])
	if err != nil {
		return err
	}
	edited, err := os.ReadFile(args[1])
	if err != nil {
		return err
	}

	a := editdiff.Analyze(string(original), string(edited))
	if diffJSON {
		return printJSON(a)
	}

	fmt.Printf("Similarity: %.4f\n", a.SimilarityRatio)
	fmt.Printf("Edited: %v, correction: %v\n", a.WasEdited, a.IsSignificantEdit)
	fmt.Printf("Chars: %+d, words: %+d, additions: %d, deletions: %d\n", a.CharDiff, a.WordDiff, a.Additions, a.Deletions)
	if a.IsSignificantEdit {
		fmt.Printf("Summary: %s\n", editdiff.Summarize(string(original), string(edited), a))
	}
	if len(a.DiffLines) > 0 {
		fmt.Println()
		for _, l := range a.DiffLines {
			fmt.Println(l)
		}
	}
	return nil
}
