package retriever

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/go-resty/resty/v2"
	"supportrag/internal/domain"
)

const (
	defaultCohereBaseURL = "https://api.cohere.ai"
	defaultCohereModel   = "rerank-english-v3.0"
	// Cohere accepts at most 1000 documents per request.
	cohereMaxDocs = 1000
)

// CohereScorer scores (query, candidate) pairs with Cohere's rerank endpoint.
type CohereScorer struct {
	model  string
	client *resty.Client
}

type CohereOptions struct {
	APIKeyEnv string
	Model     string
	BaseURL   string
	Timeout   time.Duration
}

type cohereRerankRequest struct {
	Query     string   `json:"query"`
	Documents []string `json:"documents"`
	Model     string   `json:"model"`
}

type cohereRerankResponse struct {
	Results []cohereRerankResult `json:"results"`
}

type cohereRerankResult struct {
	Index          int     `json:"index"`
	RelevanceScore float64 `json:"relevance_score"`
}

type cohereError struct {
	Message string `json:"message"`
}

func NewCohereScorer(opts CohereOptions) (*CohereScorer, error) {
	if opts.APIKeyEnv == "" {
		opts.APIKeyEnv = "COHERE_API_KEY"
	}
	apiKey := os.Getenv(opts.APIKeyEnv)
	if apiKey == "" {
		return nil, &domain.ConfigurationError{Key: opts.APIKeyEnv, Reason: "API key not found in environment"}
	}
	if opts.Model == "" {
		opts.Model = defaultCohereModel
	}
	if opts.BaseURL == "" {
		opts.BaseURL = defaultCohereBaseURL
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}

	client := resty.New().
		SetBaseURL(opts.BaseURL).
		SetTimeout(opts.Timeout).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json").
		SetAuthToken(apiKey)

	return &CohereScorer{model: opts.Model, client: client}, nil
}

// Score returns one relevance score per candidate, in candidate order.
// Candidates past the request limit score 0.
func (s *CohereScorer) Score(ctx context.Context, query string, candidates []string) ([]float64, error) {
	if len(candidates) == 0 {
		return nil, nil
	}
	docs := candidates
	if len(docs) > cohereMaxDocs {
		docs = docs[:cohereMaxDocs]
	}

	var result cohereRerankResponse
	resp, err := s.client.R().
		SetContext(ctx).
		SetBody(cohereRerankRequest{Query: query, Documents: docs, Model: s.model}).
		SetResult(&result).
		SetError(&cohereError{}).
		Post("/v1/rerank")
	if err != nil {
		return nil, &domain.EmbeddingProviderError{Op: "rerank", Err: err}
	}
	if resp.IsError() {
		msg := resp.String()
		if apiErr, ok := resp.Error().(*cohereError); ok && apiErr.Message != "" {
			msg = apiErr.Message
		}
		return nil, &domain.EmbeddingProviderError{Op: "rerank",
			Err: fmt.Errorf("API returned status %d: %s", resp.StatusCode(), msg)}
	}

	scores := make([]float64, len(candidates))
	for _, r := range result.Results {
		if r.Index >= 0 && r.Index < len(docs) {
			scores[r.Index] = r.RelevanceScore
		}
	}
	return scores, nil
}

func (s *CohereScorer) ModelName() string {
	return s.model
}
