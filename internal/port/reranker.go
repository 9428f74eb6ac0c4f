package port

import "context"

// RelevanceScorer scores each candidate text against a query.
// Scores are returned in candidate order, higher is more relevant.
type RelevanceScorer interface {
	Score(ctx context.Context, query string, candidates []string) ([]float64, error)
	ModelName() string
}
