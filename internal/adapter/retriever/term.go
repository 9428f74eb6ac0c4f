package retriever

import (
	"context"

	"supportrag/internal/adapter/analyzer"
)

// TermOverlapScorer scores candidates by the fraction of stemmed query
// terms they contain. Used when no relevance model is configured.
type TermOverlapScorer struct {
	tokenizer *analyzer.Tokenizer
}

func NewTermOverlapScorer() *TermOverlapScorer {
	return &TermOverlapScorer{tokenizer: analyzer.NewTokenizer(true)}
}

func (s *TermOverlapScorer) Score(_ context.Context, query string, candidates []string) ([]float64, error) {
	queryTerms := s.tokenizer.Terms(query)
	scores := make([]float64, len(candidates))
	if len(queryTerms) == 0 {
		return scores, nil
	}
	for i, doc := range candidates {
		scores[i] = termOverlap(queryTerms, s.tokenizer.Terms(doc))
	}
	return scores, nil
}

func (s *TermOverlapScorer) ModelName() string {
	return "term-overlap"
}

func termOverlap(queryTerms, docTerms map[string]struct{}) float64 {
	if len(docTerms) == 0 {
		return 0
	}
	matches := 0
	for term := range queryTerms {
		if _, ok := docTerms[term]; ok {
			matches++
		}
	}
	return float64(matches) / float64(len(queryTerms))
}
