package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"supportrag/internal/domain"
)

// ticketFlags are shared by the commands that take a ticket.
type ticketFlags struct {
	tenant      string
	id          string
	subject     string
	content     string
	contentFile string
	department  string
}

func (f *ticketFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.tenant, "tenant", "t", "", "tenant id (required)")
	cmd.Flags().StringVar(&f.id, "ticket-id", "", "ticket id")
	cmd.Flags().StringVarP(&f.subject, "subject", "s", "", "ticket subject")
	cmd.Flags().StringVarP(&f.content, "content", "c", "", "ticket body")
	cmd.Flags().StringVar(&f.contentFile, "content-file", "", "read the ticket body from a file")
	cmd.Flags().StringVar(&f.department, "department", "", "ticket department")
	cmd.MarkFlagRequired("tenant")
	cmd.MarkFlagsMutuallyExclusive("content", "content-file")
}

func (f *ticketFlags) ticket() (domain.Ticket, error) {
	t := domain.Ticket{ID: f.id, Subject: f.subject, Content: f.content, Department: f.department}
	if f.contentFile != "" {
		data, err := os.ReadFile(f.contentFile)
		if err != nil {
			return t, fmt.Errorf("failed to read ticket body: %w", err)
		}
		t.Content = string(data)
	}
	if t.QueryText() == "" {
		return t, fmt.Errorf("ticket needs a subject or content")
	}
	return t, nil
}
