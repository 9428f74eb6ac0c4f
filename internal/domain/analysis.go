package domain

// ConfidenceLevel buckets a confidence score.
type ConfidenceLevel string

const (
	LevelHigh    ConfidenceLevel = "high"
	LevelMedium  ConfidenceLevel = "medium"
	LevelLow     ConfidenceLevel = "low"
	LevelVeryLow ConfidenceLevel = "very_low"
)

// LevelFor maps a 0-100 score to its level.
func LevelFor(score float64) ConfidenceLevel {
	switch {
	case score >= 80:
		return LevelHigh
	case score >= 60:
		return LevelMedium
	case score >= 40:
		return LevelLow
	default:
		return LevelVeryLow
	}
}

// ConfidenceBreakdown holds the component scores, each in [0,1].
type ConfidenceBreakdown struct {
	ExampleSimilarity float64 `json:"example_similarity"`
	KBSimilarity      float64 `json:"kb_similarity"`
	IntentCertainty   float64 `json:"intent_certainty"`
	CorrectionSafety  float64 `json:"correction_safety"`
	DetectedIntent    string  `json:"detected_intent"`
}

type ConfidenceResult struct {
	Score           float64             `json:"score"`
	Level           ConfidenceLevel     `json:"level"`
	Breakdown       ConfidenceBreakdown `json:"breakdown"`
	Recommendations []string            `json:"recommendations"`
	ShouldEscalate  bool                `json:"should_escalate"`
}

// EditAnalysis compares an AI draft with the human-approved text.
type EditAnalysis struct {
	SimilarityRatio   float64  `json:"similarity_ratio"`
	WasEdited         bool     `json:"was_edited"`
	IsSignificantEdit bool     `json:"is_significant_edit"`
	CharDiff          int      `json:"char_diff"`
	WordDiff          int      `json:"word_diff"`
	Additions         int      `json:"additions"`
	Deletions         int      `json:"deletions"`
	DiffLines         []string `json:"diff_lines,omitempty"`
}
