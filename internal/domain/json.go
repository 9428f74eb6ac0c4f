package domain

import "encoding/json"

// MarshalJSON keys the per-source lists by source name.
func (c RetrievalContext) MarshalJSON() ([]byte, error) {
	out := struct {
		Query       string            `json:"query"`
		GlobalKB    []RetrievalResult `json:"global_kb"`
		TenantKB    []RetrievalResult `json:"tenant_kb"`
		Examples    []RetrievalResult `json:"examples"`
		Corrections []RetrievalResult `json:"corrections"`
		Merged      []RetrievalResult `json:"merged"`
	}{
		Query:       c.Query,
		GlobalKB:    c.Sources[SourceGlobalKB],
		TenantKB:    c.Sources[SourceTenantKB],
		Examples:    c.Sources[SourceExample],
		Corrections: c.Sources[SourceCorrection],
		Merged:      c.Merged,
	}
	return json.Marshal(out)
}

func (r EffectivenessReport) MarshalJSON() ([]byte, error) {
	sources := make(map[SourceType]SourceEffectiveness, NumSources)
	for _, s := range AllSources {
		sources[s] = r.Sources[s]
	}
	return json.Marshal(struct {
		WindowDays int                                `json:"window_days"`
		Approvals  int                                `json:"approvals"`
		Sources    map[SourceType]SourceEffectiveness `json:"sources"`
	}{r.WindowDays, r.Approvals, sources})
}

type applyResultJSON struct {
	Applied           bool                  `json:"applied"`
	Weights           *SourceWeights        `json:"weights,omitempty"`
	Reasoning         map[SourceType]string `json:"reasoning,omitempty"`
	Confidence        *float64              `json:"confidence,omitempty"`
	Reason            string                `json:"reason,omitempty"`
	CurrentConfidence *float64              `json:"current_confidence,omitempty"`
	MinRequired       *float64              `json:"min_required,omitempty"`
}

func (r ApplyResult) MarshalJSON() ([]byte, error) {
	out := applyResultJSON{Applied: r.Applied, Reason: r.Reason}
	if r.Applied {
		out.Weights = &r.Recommendation.Weights
		out.Reasoning = r.Recommendation.Reasoning
		out.Confidence = &r.Recommendation.Confidence
	} else if r.Insufficient != nil {
		out.CurrentConfidence = &r.Insufficient.Confidence
		out.MinRequired = &r.Insufficient.Required
	}
	return json.Marshal(out)
}

func (r *ApplyResult) UnmarshalJSON(data []byte) error {
	var in applyResultJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	*r = ApplyResult{Applied: in.Applied, Reason: in.Reason}
	if in.Weights != nil {
		r.Recommendation.Weights = *in.Weights
	}
	r.Recommendation.Reasoning = in.Reasoning
	if in.Confidence != nil {
		r.Recommendation.Confidence = *in.Confidence
	}
	if in.CurrentConfidence != nil || in.MinRequired != nil {
		r.Insufficient = &InsufficientDataError{}
		if in.CurrentConfidence != nil {
			r.Insufficient.Confidence = *in.CurrentConfidence
			r.Recommendation.Confidence = *in.CurrentConfidence
		}
		if in.MinRequired != nil {
			r.Insufficient.Required = *in.MinRequired
		}
	}
	return nil
}
