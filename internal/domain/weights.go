package domain

import (
	"fmt"
	"math"
)

// WeightTolerance is how far from 1.0 a weight sum may drift before it is rescaled.
const WeightTolerance = 0.01

// SourceWeights are the per-tenant multipliers applied to raw scores in the merge.
type SourceWeights struct {
	GlobalKB    float64 `json:"global_kb" yaml:"global_kb"`
	TenantKB    float64 `json:"tenant_kb" yaml:"tenant_kb"`
	Examples    float64 `json:"examples" yaml:"examples"`
	Corrections float64 `json:"corrections" yaml:"corrections"`
}

// DefaultWeights returns the weights used when a tenant has none persisted.
func DefaultWeights() SourceWeights {
	return SourceWeights{GlobalKB: 0.20, TenantKB: 0.30, Examples: 0.35, Corrections: 0.15}
}

// Get returns the weight of one source.
func (w SourceWeights) Get(s SourceType) float64 {
	switch s {
	case SourceGlobalKB:
		return w.GlobalKB
	case SourceTenantKB:
		return w.TenantKB
	case SourceExample:
		return w.Examples
	case SourceCorrection:
		return w.Corrections
	}
	return 0
}

// With returns a copy of w with the weight of s replaced.
func (w SourceWeights) With(s SourceType, v float64) SourceWeights {
	switch s {
	case SourceGlobalKB:
		w.GlobalKB = v
	case SourceTenantKB:
		w.TenantKB = v
	case SourceExample:
		w.Examples = v
	case SourceCorrection:
		w.Corrections = v
	}
	return w
}

func (w SourceWeights) Sum() float64 {
	return w.GlobalKB + w.TenantKB + w.Examples + w.Corrections
}

// Validate rejects negative, non-finite or all-zero weights.
func (w SourceWeights) Validate() error {
	for _, s := range AllSources {
		v := w.Get(s)
		if v < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: %s=%v", ErrInvalidWeights, s, v)
		}
	}
	if w.Sum() == 0 {
		return fmt.Errorf("%w: all weights are zero", ErrInvalidWeights)
	}
	return nil
}

// Normalized rescales w to sum to 1.0 when it is off by more than WeightTolerance.
func (w SourceWeights) Normalized() SourceWeights {
	sum := w.Sum()
	if sum <= 0 || math.Abs(sum-1) <= WeightTolerance {
		return w
	}
	for _, s := range AllSources {
		w = w.With(s, w.Get(s)/sum)
	}
	return w
}

// WeightPreset is a named weight configuration.
type WeightPreset struct {
	Name        string        `json:"name"`
	Description string        `json:"description"`
	Weights     SourceWeights `json:"weights"`
}

// WeightPresets returns the built-in presets in display order.
func WeightPresets() []WeightPreset {
	return []WeightPreset{
		{Name: "default", Description: "Balanced weights", Weights: DefaultWeights()},
		{Name: "examples_heavy", Description: "Prioritize past successful responses", Weights: SourceWeights{GlobalKB: 0.15, TenantKB: 0.20, Examples: 0.50, Corrections: 0.15}},
		{Name: "kb_heavy", Description: "Prioritize knowledge base articles", Weights: SourceWeights{GlobalKB: 0.25, TenantKB: 0.40, Examples: 0.20, Corrections: 0.15}},
		{Name: "safety_first", Description: "Emphasize learning from corrections", Weights: SourceWeights{GlobalKB: 0.15, TenantKB: 0.25, Examples: 0.30, Corrections: 0.30}},
	}
}

// LookupPreset finds a preset by name.
func LookupPreset(name string) (WeightPreset, error) {
	for _, p := range WeightPresets() {
		if p.Name == name {
			return p, nil
		}
	}
	return WeightPreset{}, fmt.Errorf("%w: %q", ErrUnknownPreset, name)
}

// SourceEffectiveness aggregates approval outcomes for one source type.
type SourceEffectiveness struct {
	Total         int     `json:"total"`
	Unedited      int     `json:"unedited"`
	Effectiveness float64 `json:"effectiveness"`
	AvgScore      float64 `json:"avg_score"`
}

// EffectivenessReport is the per-source outcome summary over a window.
type EffectivenessReport struct {
	WindowDays int                             `json:"window_days"`
	Approvals  int                             `json:"approvals"`
	Sources    [NumSources]SourceEffectiveness `json:"-"`
}

// TotalSamples sums per-source totals. An approval counts once per source
// present in its context.
func (r EffectivenessReport) TotalSamples() int {
	n := 0
	for _, s := range r.Sources {
		n += s.Total
	}
	return n
}

// WeightRecommendation is a proposed weight set with per-source reasoning.
type WeightRecommendation struct {
	Weights    SourceWeights         `json:"weights"`
	Reasoning  map[SourceType]string `json:"reasoning"`
	Confidence float64               `json:"confidence"`
}

// ApplyResult reports whether a recommendation became the tenant's weights.
// Its JSON form is flat: the applied weights with their reasoning and
// confidence, or the refusal reason with the current and required confidence.
type ApplyResult struct {
	Applied        bool
	Recommendation WeightRecommendation
	Reason         string
	Insufficient   *InsufficientDataError
}
