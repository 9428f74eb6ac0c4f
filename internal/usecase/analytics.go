package usecase

import (
	"context"
	"sort"
	"time"

	"supportrag/internal/domain"
	"supportrag/internal/port"
)

// EditMetrics summarizes how much reviewers changed drafts.
type EditMetrics struct {
	Total         int     `json:"total"`
	Unedited      int     `json:"unedited"`
	MinorEdits    int     `json:"minor_edits"`
	Corrections   int     `json:"corrections"`
	AvgSimilarity float64 `json:"avg_similarity"`
	UneditedRate  float64 `json:"unedited_rate"`
}

// LevelAccuracy is how often drafts of one confidence level went out unedited.
type LevelAccuracy struct {
	Level        domain.ConfidenceLevel `json:"level"`
	Count        int                    `json:"count"`
	Unedited     int                    `json:"unedited"`
	UneditedRate float64                `json:"unedited_rate"`
}

// IntentStats is the correction rate of one detected intent.
type IntentStats struct {
	Intent         string  `json:"intent"`
	Count          int     `json:"count"`
	Corrections    int     `json:"corrections"`
	CorrectionRate float64 `json:"correction_rate"`
}

// Analytics reports on the approval history.
type Analytics struct {
	approvals port.ApprovalStore
	now       func() time.Time
}

func NewAnalytics(approvals port.ApprovalStore) *Analytics {
	return &Analytics{approvals: approvals, now: time.Now}
}

func (a *Analytics) window(ctx context.Context, tenantID string, days int) ([]domain.Approval, error) {
	var since time.Time
	if days > 0 {
		since = windowStart(a.now(), days)
	}
	history, err := a.approvals.ListApprovals(ctx, tenantID, since)
	if err != nil {
		return nil, &domain.StorageError{Op: "list approvals", Key: tenantID, Err: err}
	}
	return history, nil
}

// EditMetrics covers the last days days, or all history when days <= 0.
func (a *Analytics) EditMetrics(ctx context.Context, tenantID string, days int) (EditMetrics, error) {
	history, err := a.window(ctx, tenantID, days)
	if err != nil {
		return EditMetrics{}, err
	}
	var m EditMetrics
	var simSum float64
	for _, ap := range history {
		m.Total++
		simSum += ap.SimilarityRatio
		switch {
		case ap.IsCorrection:
			m.Corrections++
		case ap.WasEdited:
			m.MinorEdits++
		default:
			m.Unedited++
		}
	}
	if m.Total > 0 {
		m.AvgSimilarity = simSum / float64(m.Total)
		m.UneditedRate = float64(m.Unedited) / float64(m.Total)
	}
	return m, nil
}

// ConfidenceAccuracy groups scored approvals by confidence level, from high
// to very low. Approvals recorded without a confidence score are skipped.
func (a *Analytics) ConfidenceAccuracy(ctx context.Context, tenantID string, days int) ([]LevelAccuracy, error) {
	history, err := a.window(ctx, tenantID, days)
	if err != nil {
		return nil, err
	}
	out := []LevelAccuracy{
		{Level: domain.LevelHigh},
		{Level: domain.LevelMedium},
		{Level: domain.LevelLow},
		{Level: domain.LevelVeryLow},
	}
	for _, ap := range history {
		if ap.Intent == "" {
			continue
		}
		level := domain.LevelFor(ap.Confidence)
		for i := range out {
			if out[i].Level != level {
				continue
			}
			out[i].Count++
			if !ap.WasEdited {
				out[i].Unedited++
			}
		}
	}
	for i := range out {
		if out[i].Count > 0 {
			out[i].UneditedRate = float64(out[i].Unedited) / float64(out[i].Count)
		}
	}
	return out, nil
}

// IntentPerformance lists intents by descending volume.
func (a *Analytics) IntentPerformance(ctx context.Context, tenantID string, days int) ([]IntentStats, error) {
	history, err := a.window(ctx, tenantID, days)
	if err != nil {
		return nil, err
	}
	byIntent := make(map[string]*IntentStats)
	for _, ap := range history {
		if ap.Intent == "" {
			continue
		}
		st, ok := byIntent[ap.Intent]
		if !ok {
			st = &IntentStats{Intent: ap.Intent}
			byIntent[ap.Intent] = st
		}
		st.Count++
		if ap.IsCorrection {
			st.Corrections++
		}
	}

	out := make([]IntentStats, 0, len(byIntent))
	for _, st := range byIntent {
		st.CorrectionRate = float64(st.Corrections) / float64(st.Count)
		out = append(out, *st)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Intent < out[j].Intent
	})
	return out, nil
}

// maxWindowDays bounds trailing windows at a century.
const maxWindowDays = 36500

// windowStart returns the cutoff of a trailing window of days days.
func windowStart(now time.Time, days int) time.Time {
	if days > maxWindowDays {
		days = maxWindowDays
	}
	return now.AddDate(0, 0, -days)
}
