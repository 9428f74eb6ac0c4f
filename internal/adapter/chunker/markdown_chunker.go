package chunker

import (
	"iter"
	"maps"
	"regexp"
	"strings"

	"supportrag/internal/domain"
)

var sectionHeader = regexp.MustCompile(`(?m)^#{2,3}[ \t]+([^\n]+)$`)

// MarkdownChunker splits on ## and ### headers and chunks each section
// independently, tagging chunks with their header under "section".
type MarkdownChunker struct {
	text *TextChunker
}

func NewMarkdownChunker(size, overlap int) *MarkdownChunker {
	return &MarkdownChunker{text: NewTextChunker(size, overlap)}
}

type section struct {
	header string
	body   string
}

func splitSections(text string) []section {
	matches := sectionHeader.FindAllStringSubmatchIndex(text, -1)
	if len(matches) == 0 {
		return []section{{body: text}}
	}

	sections := make([]section, 0, len(matches)+1)
	if pre := text[:matches[0][0]]; strings.TrimSpace(pre) != "" {
		sections = append(sections, section{body: pre})
	}
	for i, m := range matches {
		bodyEnd := len(text)
		if i+1 < len(matches) {
			bodyEnd = matches[i+1][0]
		}
		sections = append(sections, section{
			header: strings.TrimSpace(text[m[2]:m[3]]),
			body:   text[m[1]:bodyEnd],
		})
	}
	return sections
}

func (c *MarkdownChunker) Chunk(text string, metadata map[string]string) iter.Seq[domain.Chunk] {
	return func(yield func(domain.Chunk) bool) {
		for _, s := range splitSections(text) {
			meta := maps.Clone(metadata)
			if s.header != "" {
				if meta == nil {
					meta = make(map[string]string, 1)
				}
				meta["section"] = s.header
			}
			for chunk := range c.text.Chunk(s.body, meta) {
				if !yield(chunk) {
					return
				}
			}
		}
	}
}
