package cli

import (
	"bytes"
	"embed"
	"fmt"
	"text/template"

	"github.com/spf13/cobra"
	"supportrag/internal/domain"
	"supportrag/internal/usecase"
)

//go:embed templates/*.txt
var promptTemplates embed.FS

var (
	draftTicket ticketFlags
	draftJSON   bool
	draftPrompt bool
)

var draftCmd = &cobra.Command{
	Use:   "draft",
	Short: "Prepare retrieval context and confidence for a ticket",
	Long: `Retrieve context for a ticket and score how far a generated reply can be
trusted. With --prompt the reply-generation prompt is printed instead.

Examples:
  supportrag draft -t acme -s "Email bouncing" -c "Mails to gmail bounce"
  supportrag draft -t acme -s "SSL" --content-file ticket.txt --prompt`,
	RunE: runDraft,
}

func init() {
	rootCmd.AddCommand(draftCmd)
	draftTicket.register(draftCmd)
	draftCmd.Flags().BoolVar(&draftJSON, "json", false, "output as JSON")
	draftCmd.Flags().BoolVar(&draftPrompt, "prompt", false, "print the reply-generation prompt")
}

func runDraft(cmd *cobra.Command, args []string) error {
	ticket, err := draftTicket.ticket()
	if err != nil {
		return err
	}
	engine, st, err := openEngine(false)
	if err != nil {
		return err
	}
	defer st.Close()

	draft, err := engine.PrepareDraft(cmd.Context(), draftTicket.tenant, ticket)
	if err != nil {
		return fmt.Errorf("draft failed: %w", err)
	}

	switch {
	case draftPrompt:
		prompt, err := renderPrompt(ticket, draft)
		if err != nil {
			return err
		}
		fmt.Println(prompt)
	case draftJSON:
		return printJSON(draft)
	default:
		printConfidence(draft.Confidence)
		fmt.Println()
		fmt.Println(draft.PromptContext)
	}
	return nil
}

// PromptData is the input of the reply prompt template.
type PromptData struct {
	Ticket     domain.Ticket
	Context    string
	Confidence domain.ConfidenceResult
}

func renderPrompt(ticket domain.Ticket, draft *usecase.Draft) (string, error) {
	tmplContent, err := promptTemplates.ReadFile("templates/reply_prompt.txt")
	if err != nil {
		return "", fmt.Errorf("template not found: %w", err)
	}
	tmpl, err := template.New("prompt").Parse(string(tmplContent))
	if err != nil {
		return "", fmt.Errorf("failed to parse template: %w", err)
	}

	var buf bytes.Buffer
	data := PromptData{Ticket: ticket, Context: draft.PromptContext, Confidence: draft.Confidence}
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to render template: %w", err)
	}
	return buf.String(), nil
}
