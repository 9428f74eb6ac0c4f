package retriever

import (
	"strings"

	"supportrag/internal/domain"
)

type promptSection struct {
	source domain.SourceType
	title  string
	limit  int
	sep    string
}

var promptSections = [domain.NumSources]promptSection{
	{domain.SourceGlobalKB, "## Hosting Knowledge", 3, "\n\n"},
	{domain.SourceTenantKB, "## Company Knowledge", 3, "\n\n"},
	{domain.SourceExample, "## Similar Past Tickets (Approved Responses)", 2, "\n\n---\n\n"},
	{domain.SourceCorrection, "## Corrections (Avoid These Mistakes)", 2, "\n\n---\n\n"},
}

// FormatForPrompt renders the per-source results as titled sections in
// fixed priority order. Empty sections are omitted.
func FormatForPrompt(c *domain.RetrievalContext) string {
	var sections []string
	for _, sec := range promptSections {
		results := c.For(sec.source)
		if len(results) == 0 {
			continue
		}
		if len(results) > sec.limit {
			results = results[:sec.limit]
		}
		parts := make([]string, len(results))
		for i, r := range results {
			parts[i] = r.Content
		}
		sections = append(sections, sec.title+"\n"+strings.Join(parts, sec.sep))
	}
	return strings.Join(sections, "\n\n")
}
