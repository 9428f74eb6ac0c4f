package usecase

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"supportrag/internal/adapter/vectorindex"
	"supportrag/internal/domain"
	"supportrag/internal/editdiff"
	"supportrag/internal/logger"
	"supportrag/internal/port"
)

// ApproveOption attaches draft-time information to an approval.
type ApproveOption func(*domain.Approval)

// WithContextSources records which sources fed the draft.
func WithContextSources(sources []domain.ContextSource) ApproveOption {
	return func(a *domain.Approval) { a.ContextSources = sources }
}

// WithConfidence records the draft's confidence score and detected intent.
func WithConfidence(res domain.ConfidenceResult) ApproveOption {
	return func(a *domain.Approval) {
		a.Confidence = res.Score
		a.Intent = res.Breakdown.DetectedIntent
	}
}

// ApprovalResult is the outcome of OnApprove.
type ApprovalResult struct {
	Approval domain.Approval     `json:"approval"`
	Analysis domain.EditAnalysis `json:"analysis"`
	// IndexedAs is SourceExample or SourceCorrection.
	IndexedAs domain.SourceType `json:"indexed_as"`
}

// RebuildResult counts the documents written by Rebuild.
type RebuildResult struct {
	Examples    int `json:"examples"`
	Corrections int `json:"corrections"`
}

// LearningLoop turns human approvals into example and correction documents.
// Per tenant, saving and indexing an approval never interleaves with a
// rebuild reading the history and replacing the indexes.
type LearningLoop struct {
	registry  *vectorindex.Registry
	approvals port.ApprovalStore
	log       logger.Logger
	now       func() time.Time
	newID     func() string
	tenants   tenantLocks
}

type tenantLocks struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// lock blocks until the tenant's lock is held and returns its release.
func (t *tenantLocks) lock(tenantID string) func() {
	t.mu.Lock()
	m, ok := t.locks[tenantID]
	if !ok {
		if t.locks == nil {
			t.locks = make(map[string]*sync.Mutex)
		}
		m = &sync.Mutex{}
		t.locks[tenantID] = m
	}
	t.mu.Unlock()

	m.Lock()
	return m.Unlock
}

func NewLearningLoop(registry *vectorindex.Registry, approvals port.ApprovalStore, log logger.Logger) *LearningLoop {
	if log == nil {
		log = logger.Discard()
	}
	return &LearningLoop{
		registry:  registry,
		approvals: approvals,
		log:       log,
		now:       time.Now,
		newID:     uuid.NewString,
	}
}

// OnApprove records an approval and indexes it. Surrounding whitespace is
// ignored when comparing draft and final text. Significant edits become
// corrections, everything else becomes an example.
func (l *LearningLoop) OnApprove(ctx context.Context, tenantID string, ticket domain.Ticket, draft, final string, opts ...ApproveOption) (*ApprovalResult, error) {
	if tenantID == "" {
		return nil, errors.New("tenant id is required")
	}
	draft = strings.TrimSpace(draft)
	final = strings.TrimSpace(final)
	if final == "" {
		return nil, errors.New("final reply is empty")
	}

	analysis := editdiff.Analyze(draft, final)
	a := domain.Approval{
		ID:              l.newID(),
		TenantID:        tenantID,
		Ticket:          ticket,
		DraftText:       draft,
		FinalText:       final,
		SimilarityRatio: analysis.SimilarityRatio,
		WasEdited:       analysis.WasEdited,
		IsCorrection:    analysis.IsSignificantEdit,
		CreatedAt:       l.now().UTC(),
	}
	for _, opt := range opts {
		opt(&a)
	}
	if a.IsCorrection {
		a.EditSummary = editdiff.Summarize(draft, final, analysis)
	}

	unlock := l.tenants.lock(tenantID)
	defer unlock()

	if err := l.approvals.PutApproval(ctx, a); err != nil {
		return nil, &domain.StorageError{Op: "put approval", Key: a.ID, Err: err}
	}

	target := domain.SourceExample
	text, meta := exampleDocument(a)
	if a.IsCorrection {
		target = domain.SourceCorrection
		text, meta = correctionDocument(a)
	}
	idx, err := l.registry.Get(ctx, tenantID, target)
	if err != nil {
		return nil, err
	}
	if err := idx.Add(ctx, []string{text}, []map[string]string{meta}); err != nil {
		return nil, fmt.Errorf("index approval %s: %w", a.ID, err)
	}

	l.log.Info("approval indexed",
		"tenant", tenantID,
		"approval", a.ID,
		"similarity", analysis.SimilarityRatio,
		"edited", analysis.WasEdited,
		"index", target)
	return &ApprovalResult{Approval: a, Analysis: analysis, IndexedAs: target}, nil
}

// Rebuild re-derives the tenant's example and correction indexes from the
// full approval history. Running it twice yields the same indexes.
func (l *LearningLoop) Rebuild(ctx context.Context, tenantID string, progress ProgressFunc) (*RebuildResult, error) {
	unlock := l.tenants.lock(tenantID)
	defer unlock()

	history, err := l.approvals.ListApprovals(ctx, tenantID, time.Time{})
	if err != nil {
		return nil, &domain.StorageError{Op: "list approvals", Key: tenantID, Err: err}
	}

	var examples, corrections batch
	for _, a := range history {
		if a.IsCorrection {
			corrections.add(correctionDocument(a))
		} else {
			examples.add(exampleDocument(a))
		}
	}

	steps := []struct {
		source domain.SourceType
		docs   batch
	}{
		{domain.SourceExample, examples},
		{domain.SourceCorrection, corrections},
	}
	for i, step := range steps {
		idx, err := l.registry.Get(ctx, tenantID, step.source)
		if err != nil {
			return nil, err
		}
		if err := idx.Replace(ctx, step.docs.texts, step.docs.meta); err != nil {
			return nil, fmt.Errorf("rebuild %s: %w", step.source, err)
		}
		progress.report(i+1, len(steps), step.source.String())
	}

	l.log.Info("learning indexes rebuilt", "tenant", tenantID,
		"examples", len(examples.texts), "corrections", len(corrections.texts))
	return &RebuildResult{Examples: len(examples.texts), Corrections: len(corrections.texts)}, nil
}

// ListCorrections returns the tenant's correction approvals, oldest first.
func (l *LearningLoop) ListCorrections(ctx context.Context, tenantID string, since time.Time) ([]domain.Approval, error) {
	history, err := l.approvals.ListApprovals(ctx, tenantID, since)
	if err != nil {
		return nil, &domain.StorageError{Op: "list approvals", Key: tenantID, Err: err}
	}
	var out []domain.Approval
	for _, a := range history {
		if a.IsCorrection {
			out = append(out, a)
		}
	}
	return out, nil
}

type batch struct {
	texts []string
	meta  []map[string]string
}

func (b *batch) add(text string, meta map[string]string) {
	b.texts = append(b.texts, text)
	b.meta = append(b.meta, meta)
}

func exampleDocument(a domain.Approval) (string, map[string]string) {
	doc := domain.ExampleDocument{Issue: a.Ticket.Issue(), ApprovedResponse: a.FinalText}
	return doc.Text(), map[string]string{
		"source":           "example_" + a.ID,
		"ticket_id":        a.Ticket.ID,
		"subject":          a.Ticket.Subject,
		"department":       a.Ticket.Department,
		"type":             "approved_example",
		"was_edited":       strconv.FormatBool(a.WasEdited),
		"similarity_ratio": strconv.FormatFloat(a.SimilarityRatio, 'f', 4, 64),
	}
}

func correctionDocument(a domain.Approval) (string, map[string]string) {
	summary := a.EditSummary
	if summary == "" {
		summary = editdiff.Summarize(a.DraftText, a.FinalText, editdiff.Analyze(a.DraftText, a.FinalText))
	}
	doc := domain.CorrectionDocument{
		Issue:             a.Ticket.Issue(),
		IncorrectResponse: a.DraftText,
		CorrectResponse:   a.FinalText,
		EditSummary:       summary,
	}
	return doc.Text(), map[string]string{
		"source":              "correction_" + a.ID,
		"ticket_id":           a.Ticket.ID,
		"subject":             a.Ticket.Subject,
		"department":          a.Ticket.Department,
		"type":                "correction",
		"intent":              a.Intent,
		"original_confidence": strconv.FormatFloat(a.Confidence, 'f', 2, 64),
		"edit_summary":        summary,
	}
}
