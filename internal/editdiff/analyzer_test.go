package editdiff

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"supportrag/internal/domain"
)

func TestSimilarityBoundaries(t *testing.T) {
	for _, s := range []string{"a", "Thanks for reaching out", "héllo wörld", strings.Repeat("dns ", 80), strings.Repeat("Please clear your browser cache and retry. ", 12)} {
		assert.Equal(t, 1.0, Similarity(s, s), s)
		assert.Equal(t, 0.0, Similarity(s, ""), s)
		assert.Equal(t, 0.0, Similarity("", s), s)
	}
	assert.Equal(t, 1.0, Similarity("", ""))
}

func TestAnalyzeThresholdsAreExact(t *testing.T) {
	base := strings.Repeat("abcdefghij", 10)

	a := Analyze(base, base[:99]+"X")
	assert.Equal(t, 0.99, a.SimilarityRatio)
	assert.False(t, a.WasEdited)

	a = Analyze(base, base[:98]+"XY")
	assert.Less(t, a.SimilarityRatio, 0.99)
	assert.True(t, a.WasEdited)
	assert.False(t, a.IsSignificantEdit)

	a = Analyze("abcdefghij", "abcdefgXYZ")
	assert.Equal(t, 0.7, a.SimilarityRatio)
	assert.True(t, a.WasEdited)
	assert.False(t, a.IsSignificantEdit)
	assert.Equal(t, 3, a.Additions)
	assert.Equal(t, 3, a.Deletions)

	a = Analyze("abcdefghij", "abcdefXYZW")
	assert.InDelta(t, 0.6, a.SimilarityRatio, 1e-12)
	assert.True(t, a.IsSignificantEdit)
}

func TestAnalyzeCounts(t *testing.T) {
	a := Analyze("hello", "hello world")
	assert.Equal(t, 6, a.Additions)
	assert.Zero(t, a.Deletions)
	assert.Equal(t, 6, a.CharDiff)
	assert.Equal(t, 1, a.WordDiff)

	a = Analyze("Your café is open", "Your café")
	assert.Equal(t, -8, a.CharDiff)
	assert.Equal(t, 8, a.Deletions)
	assert.Equal(t, -2, a.WordDiff)
}

func TestUnifiedDiff(t *testing.T) {
	assert.Nil(t, UnifiedDiff("same\ntext", "same\ntext"))

	got := UnifiedDiff("line1\nline2\nline3", "line1\nchanged\nline3")
	assert.Equal(t, []string{
		"--- AI Draft",
		"+++ Final Reply",
		"@@ -2 +2 @@",
		"-line2",
		"+changed",
	}, got)

	a := Analyze("one", "one\ntwo")
	assert.Equal(t, []string{"--- AI Draft", "+++ Final Reply", "@@ -1,0 +2 @@", "+two"}, a.DiffLines)
}

func TestSummarize(t *testing.T) {
	got := Summarize(
		"We can look into it.",
		"Sorry for the trouble. Unfortunately we need to escalate this.",
		domain.EditAnalysis{CharDiff: 150, SimilarityRatio: 0.2},
	)
	assert.Equal(t, "Response was expanded with more detail; Response was completely rewritten; "+
		"Added apology/empathy; Added escalation recommendation; Changed to acknowledge limitations", got)

	assert.Equal(t, "Response was shortened/simplified; Major changes to content and approach",
		Summarize("a", "b", domain.EditAnalysis{CharDiff: -101, SimilarityRatio: 0.45}))
	assert.Equal(t, "Significant corrections to accuracy or tone",
		Summarize("a", "b", domain.EditAnalysis{CharDiff: 100, SimilarityRatio: 0.69}))
	assert.Equal(t, "Content corrections made",
		Summarize("We cannot do that, sorry.", "Sorry, we cannot do that.", domain.EditAnalysis{SimilarityRatio: 0.75}))
}
