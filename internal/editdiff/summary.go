package editdiff

import (
	"strings"

	"supportrag/internal/domain"
)

var limitationWords = []string{"unfortunately", "cannot", "unable"}

// Summarize describes what a reviewer changed, from the edit's size and
// similarity and the marker words it introduced. Phrases are joined by "; ".
func Summarize(original, corrected string, a domain.EditAnalysis) string {
	var parts []string

	switch {
	case a.CharDiff > 100:
		parts = append(parts, "Response was expanded with more detail")
	case a.CharDiff < -100:
		parts = append(parts, "Response was shortened/simplified")
	}

	switch {
	case a.SimilarityRatio < 0.3:
		parts = append(parts, "Response was completely rewritten")
	case a.SimilarityRatio < 0.5:
		parts = append(parts, "Major changes to content and approach")
	case a.SimilarityRatio < 0.7:
		parts = append(parts, "Significant corrections to accuracy or tone")
	}

	before := strings.ToLower(original)
	after := strings.ToLower(corrected)

	if introduced(before, after, "sorry") {
		parts = append(parts, "Added apology/empathy")
	}
	if introduced(before, after, "escalat") {
		parts = append(parts, "Added escalation recommendation")
	}
	if introduced(before, after, limitationWords...) {
		parts = append(parts, "Changed to acknowledge limitations")
	}

	if len(parts) == 0 {
		return "Content corrections made"
	}
	return strings.Join(parts, "; ")
}

// introduced reports whether after contains any of words and before none.
func introduced(before, after string, words ...string) bool {
	return containsAny(after, words) && !containsAny(before, words)
}

func containsAny(s string, words []string) bool {
	for _, w := range words {
		if strings.Contains(s, w) {
			return true
		}
	}
	return false
}
