package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"supportrag/internal/usecase"
)

var (
	approveTicket    ticketFlags
	approveDraft     string
	approveDraftFile string
	approveFinal     string
	approveFinalFile string
	approveNoContext bool
	approveJSON      bool
)

var approveCmd = &cobra.Command{
	Use:   "approve",
	Short: "Record a human-approved reply and learn from it",
	Long: `Compare the AI draft with the reply that was sent. Replies kept close to
the draft become examples, heavily edited ones become corrections.

The ticket is retrieved again to record which sources fed the draft and its
confidence; --no-context skips that.

Examples:
  supportrag approve -t acme -s "SMTP" -c "Which port?" --draft-file d.txt --final-file f.txt`,
	RunE: runApprove,
}

func init() {
	rootCmd.AddCommand(approveCmd)
	approveTicket.register(approveCmd)
	approveCmd.Flags().StringVar(&approveDraft, "draft", "", "AI draft text")
	approveCmd.Flags().StringVar(&approveDraftFile, "draft-file", "", "read the AI draft from a file")
	approveCmd.Flags().StringVar(&approveFinal, "final", "", "approved reply text")
	approveCmd.Flags().StringVar(&approveFinalFile, "final-file", "", "read the approved reply from a file")
	approveCmd.Flags().BoolVar(&approveNoContext, "no-context", false, "do not record draft context sources")
	approveCmd.Flags().BoolVar(&approveJSON, "json", false, "output as JSON")
	approveCmd.MarkFlagsOneRequired("final", "final-file")
	approveCmd.MarkFlagsMutuallyExclusive("final", "final-file")
	approveCmd.MarkFlagsMutuallyExclusive("draft", "draft-file")
}

func runApprove(cmd *cobra.Command, args []string) error {
	ticket, err := approveTicket.ticket()
	if err != nil {
		return err
	}
	draft, err := textOrFile(approveDraft, approveDraftFile)
	if err != nil {
		return err
	}
	final, err := textOrFile(approveFinal, approveFinalFile)
	if err != nil {
		return err
	}

	engine, st, err := openEngine(false)
	if err != nil {
		return err
	}
	defer st.Close()

	ctx := cmd.Context()
	var opts []usecase.ApproveOption
	if !approveNoContext {
		d, err := engine.PrepareDraft(ctx, approveTicket.tenant, ticket)
		if err != nil {
			return fmt.Errorf("failed to rebuild draft context: %w", err)
		}
		opts = append(opts, usecase.WithContextSources(d.ContextSources), usecase.WithConfidence(d.Confidence))
	}

	res, err := engine.OnApprove(ctx, approveTicket.tenant, ticket, draft, final, opts...)
	if err != nil {
		return fmt.Errorf("approve failed: %w", err)
	}

	if approveJSON {
		return printJSON(res)
	}
	fmt.Printf("Approval %s recorded\n", res.Approval.ID)
	fmt.Printf("  Similarity: %.4f\n", res.Analysis.SimilarityRatio)
	fmt.Printf("  Edited:     %v\n", res.Analysis.WasEdited)
	fmt.Printf("  Indexed as: %s\n", res.IndexedAs)
	if res.Approval.EditSummary != "" {
		fmt.Printf("  Summary:    %s\n", res.Approval.EditSummary)
	}
	return nil
}

func textOrFile(text, path string) (string, error) {
	if path == "" {
		return text, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", path, err)
	}
	return string(data), nil
}
