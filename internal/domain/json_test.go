package domain

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApplyResultJSON(t *testing.T) {
	applied := ApplyResult{
		Applied: true,
		Recommendation: WeightRecommendation{
			Weights:    SourceWeights{GlobalKB: 0.1, TenantKB: 0.2, Examples: 0.6, Corrections: 0.1},
			Reasoning:  map[SourceType]string{SourceExample: "Effectiveness: 90.0% based on 40 samples"},
			Confidence: 0.4,
		},
	}
	data, err := json.Marshal(applied)
	require.NoError(t, err)

	var fields map[string]any
	require.NoError(t, json.Unmarshal(data, &fields))
	assert.ElementsMatch(t, []string{"applied", "weights", "reasoning", "confidence"}, keys(fields))
	assert.Equal(t, "Effectiveness: 90.0% based on 40 samples", fields["reasoning"].(map[string]any)["example"])

	var back ApplyResult
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, applied, back)

	refused := ApplyResult{
		Reason:         "Insufficient data for confident recommendation",
		Recommendation: WeightRecommendation{Confidence: 0.05},
		Insufficient:   &InsufficientDataError{Confidence: 0.05, Required: 0.3},
	}
	data, err = json.Marshal(refused)
	require.NoError(t, err)
	fields = nil
	require.NoError(t, json.Unmarshal(data, &fields))
	assert.ElementsMatch(t, []string{"applied", "reason", "current_confidence", "min_required"}, keys(fields))
	assert.Equal(t, false, fields["applied"])
	assert.InDelta(t, 0.3, fields["min_required"], 1e-9)

	back = ApplyResult{}
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, refused, back)
}

func keys(m map[string]any) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}
