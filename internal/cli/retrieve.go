package cli

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"supportrag/internal/domain"
	"supportrag/internal/usecase"
)

var (
	retrieveTenant    string
	retrieveQuery     string
	retrieveTopK      int
	retrieveJSON      bool
	retrieveRerank    bool
	retrieveDiversity bool
)

var retrieveCmd = &cobra.Command{
	Use:   "retrieve",
	Short: "Search all four knowledge sources",
	Long: `Search the global KB, the tenant KB, approved examples and corrections,
then merge the hits by the tenant's source weights.

Examples:
  supportrag retrieve -t acme -q "smtp port"
  supportrag retrieve -t acme -q "ssl renewal" --rerank --diversity --json`,
	RunE: runRetrieve,
}

var scoreCmd = &cobra.Command{
	Use:   "score",
	Short: "Score draft confidence for a query",
	RunE:  runScore,
}

func init() {
	rootCmd.AddCommand(retrieveCmd, scoreCmd)
	for _, c := range []*cobra.Command{retrieveCmd, scoreCmd} {
		c.Flags().StringVarP(&retrieveTenant, "tenant", "t", "", "tenant id (required)")
		c.Flags().StringVarP(&retrieveQuery, "query", "q", "", "search query (required)")
		c.Flags().IntVarP(&retrieveTopK, "top-k", "k", 0, "number of results (default from config)")
		c.Flags().BoolVar(&retrieveJSON, "json", false, "output as JSON")
		c.MarkFlagRequired("tenant")
		c.MarkFlagRequired("query")
	}
	retrieveCmd.Flags().BoolVar(&retrieveRerank, "rerank", false, "rerank the merged results")
	retrieveCmd.Flags().BoolVar(&retrieveDiversity, "diversity", false, "prefer results from different sources when reranking")
}

func retrieveContext(cmd *cobra.Command, engine *usecase.Engine) (*domain.RetrievalContext, error) {
	topK := GetConfig().Retrieve.TopK
	if retrieveTopK > 0 {
		topK = retrieveTopK
	}

	ctx := cmd.Context()
	rc, err := engine.Retrieve(ctx, retrieveTenant, retrieveQuery, topK)
	if err != nil {
		return nil, fmt.Errorf("search failed: %w", err)
	}
	if retrieveRerank && len(rc.Merged) > 0 {
		threshold := GetConfig().Rerank.ScoreThreshold
		if retrieveDiversity {
			rc.Merged, err = engine.RerankWithDiversity(ctx, retrieveQuery, rc.Merged, topK, threshold)
		} else {
			rc.Merged, err = engine.Rerank(ctx, retrieveQuery, rc.Merged, topK, threshold)
		}
		if err != nil {
			return nil, fmt.Errorf("rerank failed: %w", err)
		}
	}
	return rc, nil
}

func runRetrieve(cmd *cobra.Command, args []string) error {
	engine, st, err := openEngine(false)
	if err != nil {
		return err
	}
	defer st.Close()

	rc, err := retrieveContext(cmd, engine)
	if err != nil {
		return err
	}

	if retrieveJSON {
		return printJSON(rc)
	}
	if len(rc.Merged) == 0 {
		fmt.Println("No results found.")
		return nil
	}
	fmt.Printf("Found %d results for: %s\n\n", len(rc.Merged), retrieveQuery)
	for i, r := range rc.Merged {
		fmt.Printf("--- [%d] %s %s (score: %.3f, raw: %.3f) ---\n", i+1, r.SourceType, r.SourceID, r.Score, r.RawScore)
		fmt.Println(truncate(r.Content, 500))
		fmt.Println()
	}
	return nil
}

func runScore(cmd *cobra.Command, args []string) error {
	engine, st, err := openEngine(false)
	if err != nil {
		return err
	}
	defer st.Close()

	rc, err := retrieveContext(cmd, engine)
	if err != nil {
		return err
	}

	res := engine.ScoreConfidence(rc, retrieveQuery)
	if retrieveJSON {
		return printJSON(res)
	}
	printConfidence(res)
	return nil
}

func printConfidence(res domain.ConfidenceResult) {
	b := res.Breakdown
	fmt.Printf("Confidence: %.1f (%s)\n", res.Score, res.Level)
	fmt.Printf("  Intent:             %s (%.2f)\n", b.DetectedIntent, b.IntentCertainty)
	fmt.Printf("  Example similarity: %.2f\n", b.ExampleSimilarity)
	fmt.Printf("  KB similarity:      %.2f\n", b.KBSimilarity)
	fmt.Printf("  Correction safety:  %.2f\n", b.CorrectionSafety)
	if res.ShouldEscalate {
		fmt.Println("  Escalation recommended")
	}
	for _, r := range res.Recommendations {
		fmt.Printf("  - %s\n", r)
	}
}

func printJSON(v any) error {
	output, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(output))
	return nil
}

func truncate(text string, n int) string {
	text = strings.TrimSpace(text)
	if r := []rune(text); len(r) > n {
		return string(r[:n]) + "..."
	}
	return text
}
