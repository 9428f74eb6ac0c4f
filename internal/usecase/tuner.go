package usecase

import (
	"context"
	"fmt"
	"math"
	"time"

	"supportrag/internal/domain"
	"supportrag/internal/logger"
	"supportrag/internal/port"
)

const (
	DefaultWindowDays    = 30
	DefaultMinConfidence = 0.3

	// minSourceWeight keeps every source, corrections in particular, audible.
	minSourceWeight = 0.1
	// fullConfidenceSamples is the sample count at which a recommendation is
	// fully trusted.
	fullConfidenceSamples = 100

	reasonNoData       = "Default - no data available"
	reasonInsufficient = "Insufficient data for confident recommendation"
)

// WeightTuner derives source weights from approval outcomes.
//
// Effectiveness credits a source whenever it appeared in a draft's context,
// whatever its rank in the merge. This counts presence, not influence, and
// is kept that way so recommendations stay comparable with earlier history.
type WeightTuner struct {
	approvals     port.ApprovalStore
	weights       *WeightService
	windowDays    int
	minConfidence float64
	log           logger.Logger
	now           func() time.Time
}

type TunerOption func(*WeightTuner)

func WithWindowDays(days int) TunerOption {
	return func(t *WeightTuner) {
		if days > 0 {
			t.windowDays = days
		}
	}
}

func WithMinConfidence(c float64) TunerOption {
	return func(t *WeightTuner) {
		if c > 0 {
			t.minConfidence = c
		}
	}
}

func NewWeightTuner(approvals port.ApprovalStore, weights *WeightService, log logger.Logger, opts ...TunerOption) *WeightTuner {
	if log == nil {
		log = logger.Discard()
	}
	t := &WeightTuner{
		approvals:     approvals,
		weights:       weights,
		windowDays:    DefaultWindowDays,
		minConfidence: DefaultMinConfidence,
		log:           log,
		now:           time.Now,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// WindowDays is the default analysis window.
func (t *WeightTuner) WindowDays() int {
	return t.windowDays
}

// AnalyzeEffectiveness counts, per source, the approvals whose draft context
// contained it and how many of those were approved unedited. A non-positive
// windowDays uses the tuner default.
func (t *WeightTuner) AnalyzeEffectiveness(ctx context.Context, tenantID string, windowDays int) (domain.EffectivenessReport, error) {
	if windowDays <= 0 {
		windowDays = t.windowDays
	}
	report := domain.EffectivenessReport{WindowDays: windowDays}

	since := windowStart(t.now(), windowDays)
	history, err := t.approvals.ListApprovals(ctx, tenantID, since)
	if err != nil {
		return report, &domain.StorageError{Op: "list approvals", Key: tenantID, Err: err}
	}
	report.Approvals = len(history)

	var scoreSum [domain.NumSources]float64
	var scoreCount [domain.NumSources]int
	for _, a := range history {
		var present [domain.NumSources]bool
		for _, cs := range a.ContextSources {
			if !cs.Type.Valid() {
				continue
			}
			present[cs.Type] = true
			scoreSum[cs.Type] += cs.Score
			scoreCount[cs.Type]++
		}
		for _, src := range domain.AllSources {
			if !present[src] {
				continue
			}
			report.Sources[src].Total++
			if !a.WasEdited {
				report.Sources[src].Unedited++
			}
		}
	}

	for _, src := range domain.AllSources {
		s := &report.Sources[src]
		if s.Total > 0 {
			s.Effectiveness = float64(s.Unedited) / float64(s.Total)
		}
		if scoreCount[src] > 0 {
			s.AvgScore = scoreSum[src] / float64(scoreCount[src])
		}
	}
	return report, nil
}

// Recommend proposes weights proportional to effectiveness, floored at 0.1.
func (t *WeightTuner) Recommend(ctx context.Context, tenantID string, windowDays int) (domain.WeightRecommendation, error) {
	report, err := t.AnalyzeEffectiveness(ctx, tenantID, windowDays)
	if err != nil {
		return domain.WeightRecommendation{}, err
	}
	return RecommendFromReport(report), nil
}

// RecommendFromReport is the pure part of Recommend.
func RecommendFromReport(report domain.EffectivenessReport) domain.WeightRecommendation {
	rec := domain.WeightRecommendation{Reasoning: make(map[domain.SourceType]string, domain.NumSources)}
	if report.Approvals == 0 {
		rec.Weights = domain.DefaultWeights()
		for _, src := range domain.AllSources {
			rec.Reasoning[src] = reasonNoData
		}
		return rec
	}

	var raw domain.SourceWeights
	for _, src := range domain.AllSources {
		s := report.Sources[src]
		raw = raw.With(src, math.Max(minSourceWeight, s.Effectiveness))
		rec.Reasoning[src] = fmt.Sprintf("Effectiveness: %.1f%% based on %d samples", s.Effectiveness*100, s.Total)
	}

	if report.Sources[domain.SourceCorrection].Effectiveness < minSourceWeight {
		rec.Reasoning[domain.SourceCorrection] += " (boosted to minimum 10%)"
	}
	if report.Sources[domain.SourceExample].Effectiveness > 0.7 && raw.Examples < 0.3 {
		raw.Examples = 0.35
		rec.Reasoning[domain.SourceExample] += " (boosted due to high effectiveness)"
	}

	total := raw.Sum()
	var w domain.SourceWeights
	for _, src := range domain.AllSources {
		w = w.With(src, round2(raw.Get(src)/total))
	}
	w.Examples = round2(w.Examples + (1 - w.Sum()))

	rec.Weights = w
	rec.Confidence = round2(math.Min(1, float64(report.TotalSamples())/fullConfidenceSamples))
	return rec
}

// Apply stores the recommendation when its confidence reaches the minimum.
// Falling short is reported in the result, not as an error.
func (t *WeightTuner) Apply(ctx context.Context, tenantID string) (domain.ApplyResult, error) {
	rec, err := t.Recommend(ctx, tenantID, t.windowDays)
	if err != nil {
		return domain.ApplyResult{}, err
	}
	result := domain.ApplyResult{Recommendation: rec}

	if rec.Confidence < t.minConfidence {
		result.Reason = reasonInsufficient
		result.Insufficient = &domain.InsufficientDataError{Confidence: rec.Confidence, Required: t.minConfidence}
		t.log.Info("weight recommendation not applied", "tenant", tenantID,
			"confidence", rec.Confidence, "required", t.minConfidence)
		return result, nil
	}

	if _, err := t.weights.SetWeights(ctx, tenantID, rec.Weights); err != nil {
		return domain.ApplyResult{}, err
	}
	result.Applied = true
	t.log.Info("weight recommendation applied", "tenant", tenantID, "confidence", rec.Confidence)
	return result, nil
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
