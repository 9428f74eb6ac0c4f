// Package confidence scores how far a drafted reply can be trusted, given
// the retrieved context and the ticket text.
package confidence

import (
	"math"

	"supportrag/internal/domain"
)

// Component weights of the final score.
const (
	exampleWeight    = 0.4
	kbWeight         = 0.3
	intentWeight     = 0.2
	correctionWeight = 0.1
)

// Recommendations, reported in this order.
const (
	RecNoExamples       = "No similar past tickets found - review carefully"
	RecLimitedKB        = "Limited knowledge base matches - verify accuracy"
	RecCompanySpecific  = "This topic may require company-specific information"
	RecPastMistakes     = "Similar issues had corrections before - check for past mistakes"
	RecSecurityEscalate = "Security issue - consider escalation to senior staff"
	RecLowConfidence    = "Low confidence - recommend manual review or escalation"
)

const (
	securityIntent     = "malware"
	lowConfidenceScore = 40
	weakComponent      = 0.3
	unsafeCorrections  = 0.7
)

// Engine computes ConfidenceResults. It is stateless and safe for
// concurrent use.
type Engine struct{}

func NewEngine() *Engine {
	return &Engine{}
}

// Score rates a draft built from rc for a ticket with the given text.
// A nil context scores as if nothing was retrieved.
func (e *Engine) Score(rc *domain.RetrievalContext, ticketText string) domain.ConfidenceResult {
	det := DetectIntent(ticketText)

	example := exampleSimilarity(rc)
	kb := kbSimilarity(rc, det.RequiresTenantKB)
	safety := correctionSafety(rc)

	raw := exampleWeight*example + kbWeight*kb + intentWeight*det.Confidence + correctionWeight*safety
	score := round2(raw * 100)

	res := domain.ConfidenceResult{
		Score: score,
		Level: domain.LevelFor(score),
		Breakdown: domain.ConfidenceBreakdown{
			ExampleSimilarity: example,
			KBSimilarity:      kb,
			IntentCertainty:   det.Confidence,
			CorrectionSafety:  safety,
			DetectedIntent:    det.Intent,
		},
		Recommendations: []string{},
	}

	if example < weakComponent {
		res.Recommendations = append(res.Recommendations, RecNoExamples)
	}
	if kb < weakComponent {
		res.Recommendations = append(res.Recommendations, RecLimitedKB)
	}
	if det.RequiresTenantKB && len(rc.For(domain.SourceTenantKB)) == 0 {
		res.Recommendations = append(res.Recommendations, RecCompanySpecific)
	}
	if safety < unsafeCorrections {
		res.Recommendations = append(res.Recommendations, RecPastMistakes)
		res.ShouldEscalate = true
	}
	if det.Intent == securityIntent {
		res.Recommendations = append(res.Recommendations, RecSecurityEscalate)
		res.ShouldEscalate = true
	}
	if score < lowConfidenceScore {
		res.Recommendations = append(res.Recommendations, RecLowConfidence)
		res.ShouldEscalate = true
	}
	return res
}

func exampleSimilarity(rc *domain.RetrievalContext) float64 {
	examples := rc.For(domain.SourceExample)
	if len(examples) == 0 {
		return 0
	}
	best := rc.Best(domain.SourceExample)
	good := 0
	for _, r := range examples {
		if r.RawScore > 0.5 {
			good++
		}
	}
	if good >= 2 {
		best = min(best*1.1, 1.0)
	}
	return best
}

// kbSimilarity favors tenant knowledge. When the intent needs company
// specific knowledge and none scored well, only the global share counts.
func kbSimilarity(rc *domain.RetrievalContext, requiresTenantKB bool) float64 {
	bestGlobal := rc.Best(domain.SourceGlobalKB)
	bestTenant := rc.Best(domain.SourceTenantKB)
	if requiresTenantKB && bestTenant < 0.3 {
		return 0.4 * bestGlobal
	}
	return 0.6*bestTenant + 0.4*bestGlobal
}

func correctionSafety(rc *domain.RetrievalContext) float64 {
	if len(rc.For(domain.SourceCorrection)) == 0 {
		return 1.0
	}
	best := rc.Best(domain.SourceCorrection)
	switch {
	case best > 0.8:
		return 0.4
	case best > 0.6:
		return 0.6
	case best > 0.4:
		return 0.8
	default:
		return 0.95
	}
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
