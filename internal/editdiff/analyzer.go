// Package editdiff compares an AI draft with the reply a human approved.
package editdiff

import (
	"strings"
	"unicode/utf8"

	"github.com/pmezard/go-difflib/difflib"
	"supportrag/internal/domain"
)

const (
	// EditedThreshold is the similarity below which a reply counts as edited.
	EditedThreshold = 0.99
	// CorrectionThreshold is the similarity below which an edit is treated
	// as a correction of a mistake.
	CorrectionThreshold = 0.7
)

// Analyze compares original with edited character by character.
func Analyze(original, edited string) domain.EditAnalysis {
	m := newMatcher(original, edited)
	ratio := m.Ratio()

	var additions, deletions int
	for _, op := range m.GetOpCodes() {
		switch op.Tag {
		case 'i':
			additions += op.J2 - op.J1
		case 'd':
			deletions += op.I2 - op.I1
		case 'r':
			deletions += op.I2 - op.I1
			additions += op.J2 - op.J1
		}
	}

	return domain.EditAnalysis{
		SimilarityRatio:   ratio,
		WasEdited:         ratio < EditedThreshold,
		IsSignificantEdit: ratio < CorrectionThreshold,
		CharDiff:          utf8.RuneCountInString(edited) - utf8.RuneCountInString(original),
		WordDiff:          len(strings.Fields(edited)) - len(strings.Fields(original)),
		Additions:         additions,
		Deletions:         deletions,
		DiffLines:         UnifiedDiff(original, edited),
	}
}

// Similarity returns only the matching-block ratio of a and b.
func Similarity(a, b string) float64 {
	return newMatcher(a, b).Ratio()
}

// newMatcher disables the popular-element heuristic: in prose most letters
// are popular once a text passes 200 characters, and the ratio must stay 1.0
// for identical texts of any length.
func newMatcher(a, b string) *difflib.SequenceMatcher {
	return difflib.NewMatcherWithJunk(runes(a), runes(b), false, nil)
}

// UnifiedDiff renders a context-free line diff of original and edited.
// Identical texts produce no lines.
func UnifiedDiff(original, edited string) []string {
	text, err := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        lines(original),
		B:        lines(edited),
		FromFile: "AI Draft",
		ToFile:   "Final Reply",
		Context:  0,
	})
	if err != nil || text == "" {
		return nil
	}
	return strings.Split(strings.TrimSuffix(text, "\n"), "\n")
}

func runes(s string) []string {
	out := make([]string, 0, len(s))
	for _, r := range s {
		out = append(out, string(r))
	}
	return out
}

func lines(s string) []string {
	if s == "" {
		return nil
	}
	return difflib.SplitLines(strings.TrimSuffix(s, "\n"))
}
