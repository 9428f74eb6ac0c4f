package domain

import (
	"fmt"
	"strings"
	"time"
)

// SourceType identifies one of the four knowledge sources feeding a draft.
type SourceType uint8

const (
	SourceGlobalKB SourceType = iota
	SourceTenantKB
	SourceExample
	SourceCorrection
)

// NumSources is the number of source types. Per-source data is stored in
// [NumSources]T arrays indexed by SourceType.
const NumSources = 4

// AllSources lists every source type in retrieval priority order.
var AllSources = [NumSources]SourceType{SourceGlobalKB, SourceTenantKB, SourceExample, SourceCorrection}

var sourceNames = [NumSources]string{"global_kb", "tenant_kb", "example", "correction"}

func (s SourceType) String() string {
	if int(s) < NumSources {
		return sourceNames[s]
	}
	return fmt.Sprintf("SourceType(%d)", uint8(s))
}

// Valid reports whether s is one of the declared source types.
func (s SourceType) Valid() bool {
	return int(s) < NumSources
}

// Tenanted reports whether indexes of this source are scoped to a tenant.
func (s SourceType) Tenanted() bool {
	return s != SourceGlobalKB
}

func (s SourceType) MarshalText() ([]byte, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrUnknownSourceType, uint8(s))
	}
	return []byte(sourceNames[s]), nil
}

func (s *SourceType) UnmarshalText(b []byte) error {
	v, err := ParseSourceType(string(b))
	if err != nil {
		return err
	}
	*s = v
	return nil
}

// ParseSourceType accepts the canonical names plus the plural forms used by
// SourceWeights keys ("examples", "corrections").
func ParseSourceType(name string) (SourceType, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "global_kb", "global":
		return SourceGlobalKB, nil
	case "tenant_kb", "kb":
		return SourceTenantKB, nil
	case "example", "examples":
		return SourceExample, nil
	case "correction", "corrections":
		return SourceCorrection, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownSourceType, name)
}

// IndexIdentity keys a VectorIndex. Global KB indexes carry no tenant.
type IndexIdentity struct {
	TenantID string
	Source   SourceType
}

// NewIndexIdentity builds an identity, dropping the tenant for global KB.
func NewIndexIdentity(tenantID string, source SourceType) (IndexIdentity, error) {
	if !source.Valid() {
		return IndexIdentity{}, fmt.Errorf("%w: %d", ErrUnknownSourceType, uint8(source))
	}
	if !source.Tenanted() {
		return IndexIdentity{Source: source}, nil
	}
	if tenantID == "" {
		return IndexIdentity{}, fmt.Errorf("source %s requires a tenant id", source)
	}
	return IndexIdentity{TenantID: tenantID, Source: source}, nil
}

// Key is the storage key for the identity.
func (id IndexIdentity) Key() string {
	if !id.Source.Tenanted() {
		return "global/" + id.Source.String()
	}
	return "tenant/" + id.TenantID + "/" + id.Source.String()
}

func (id IndexIdentity) String() string {
	return id.Key()
}

// IndexEntry is one stored (content, metadata, vector) tuple.
type IndexEntry struct {
	Content  string            `json:"content"`
	Metadata map[string]string `json:"metadata,omitempty"`
	Vector   []float32         `json:"vector"`
}

// Chunk is a piece of a source document ready to be indexed.
type Chunk struct {
	Content  string
	Metadata map[string]string
}

// RetrievalResult is a single hit from one source. Score equals RawScore in
// per-source lists and RawScore × source weight in the merged list.
type RetrievalResult struct {
	Content    string            `json:"content"`
	Score      float64           `json:"score"`
	RawScore   float64           `json:"raw_score"`
	SourceID   string            `json:"source_id"`
	SourceType SourceType        `json:"source_type"`
	Metadata   map[string]string `json:"metadata,omitempty"`
}

// RetrievalContext holds the unweighted per-source lists and the weighted merge.
type RetrievalContext struct {
	Query   string
	Sources [NumSources][]RetrievalResult
	Merged  []RetrievalResult
}

// For returns the unweighted results of one source.
func (c *RetrievalContext) For(s SourceType) []RetrievalResult {
	if c == nil || !s.Valid() {
		return nil
	}
	return c.Sources[s]
}

// Best returns the highest raw score of a source, 0 when it has no results.
func (c *RetrievalContext) Best(s SourceType) float64 {
	best := 0.0
	for _, r := range c.For(s) {
		if r.RawScore > best {
			best = r.RawScore
		}
	}
	return best
}

// ContextSources summarizes the merged list for the approval record.
func (c *RetrievalContext) ContextSources() []ContextSource {
	if c == nil {
		return nil
	}
	out := make([]ContextSource, 0, len(c.Merged))
	for _, r := range c.Merged {
		out = append(out, ContextSource{Type: r.SourceType, Score: r.RawScore})
	}
	return out
}

// ContextSource records that a source type appeared in a draft's context.
type ContextSource struct {
	Type  SourceType `json:"type"`
	Score float64    `json:"score"`
}

// Ticket is the part of a support ticket the engine reads.
type Ticket struct {
	ID         string `json:"id"`
	Subject    string `json:"subject"`
	Content    string `json:"content"`
	Department string `json:"department,omitempty"`
}

// QueryText is the retrieval query for the ticket.
func (t Ticket) QueryText() string {
	return strings.TrimSpace(t.Subject + " " + t.Content)
}

// Issue renders the ticket as it appears in learned documents.
func (t Ticket) Issue() string {
	return "Customer Issue: " + t.Subject + "\n" + t.Content
}

// KBArticle is a tenant knowledge-base article.
type KBArticle struct {
	ID       string   `json:"id" yaml:"id"`
	Title    string   `json:"title" yaml:"title"`
	Content  string   `json:"content" yaml:"content"`
	Category string   `json:"category,omitempty" yaml:"category"`
	Tags     []string `json:"tags,omitempty" yaml:"tags"`
}

// Approval is one human approval event and the outcome history unit.
type Approval struct {
	ID              string          `json:"id"`
	TenantID        string          `json:"tenant_id"`
	Ticket          Ticket          `json:"ticket"`
	DraftText       string          `json:"draft_text"`
	FinalText       string          `json:"final_text"`
	SimilarityRatio float64         `json:"similarity_ratio"`
	WasEdited       bool            `json:"was_edited"`
	IsCorrection    bool            `json:"is_correction"`
	EditSummary     string          `json:"edit_summary,omitempty"`
	ContextSources  []ContextSource `json:"context_sources,omitempty"`
	Confidence      float64         `json:"confidence,omitempty"`
	Intent          string          `json:"intent,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
}

// Has reports whether the source type appeared in the draft's context.
func (a Approval) Has(s SourceType) bool {
	for _, cs := range a.ContextSources {
		if cs.Type == s {
			return true
		}
	}
	return false
}
