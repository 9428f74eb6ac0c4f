package usecase

import (
	"context"
	"fmt"
	"path"
	"strings"

	"supportrag/internal/adapter/vectorindex"
	"supportrag/internal/domain"
	"supportrag/internal/logger"
	"supportrag/internal/port"
)

// IngestResult summarizes a knowledge-base ingestion.
type IngestResult struct {
	Documents int      `json:"documents"`
	Chunks    int      `json:"chunks"`
	Errors    []string `json:"errors,omitempty"`
}

// KBIngestor chunks knowledge-base documents into the global and tenant KB
// indexes. Each ingestion replaces the target index.
type KBIngestor struct {
	registry *vectorindex.Registry
	walker   port.FileWalker
	reader   port.FileReader
	chunker  port.Chunker
	log      logger.Logger
}

func NewKBIngestor(registry *vectorindex.Registry, walker port.FileWalker, reader port.FileReader, chunker port.Chunker, log logger.Logger) *KBIngestor {
	if log == nil {
		log = logger.Discard()
	}
	return &KBIngestor{registry: registry, walker: walker, reader: reader, chunker: chunker, log: log}
}

// IngestGlobalKB indexes every matching file under dir into the global KB.
// Unreadable files are reported and skipped.
func (u *KBIngestor) IngestGlobalKB(ctx context.Context, dir string, progress ProgressFunc) (*IngestResult, error) {
	files, err := u.walker.Walk(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to walk directory: %w", err)
	}

	result := &IngestResult{}
	var docs batch
	for i, f := range files {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		content, err := u.reader.ReadFile(f.Path)
		if err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("failed to read %s: %v", f.RelPath, err))
			progress.report(i+1, len(files), f.RelPath)
			continue
		}
		meta := map[string]string{
			"source":   f.RelPath,
			"category": f.Category,
			"type":     domain.SourceGlobalKB.String(),
		}
		for c := range u.chunker.Chunk(content, meta) {
			docs.add(c.Content, c.Metadata)
		}
		result.Documents++
		progress.report(i+1, len(files), f.RelPath)
	}

	if err := u.replace(ctx, "", domain.SourceGlobalKB, docs); err != nil {
		return nil, err
	}
	result.Chunks = len(docs.texts)
	u.log.Info("global knowledge base ingested", "documents", result.Documents, "chunks", result.Chunks, "errors", len(result.Errors))
	return result, nil
}

// IngestTenantKB indexes a tenant's articles into its tenant KB.
func (u *KBIngestor) IngestTenantKB(ctx context.Context, tenantID string, articles []domain.KBArticle, progress ProgressFunc) (*IngestResult, error) {
	if tenantID == "" {
		return nil, fmt.Errorf("tenant id is required")
	}
	result := &IngestResult{}
	var docs batch
	for i, a := range articles {
		text := "# " + a.Title + "\n\n" + a.Content
		meta := map[string]string{
			"source":   "kb_article_" + a.ID,
			"title":    a.Title,
			"category": a.Category,
			"tags":     strings.Join(a.Tags, ","),
			"type":     domain.SourceTenantKB.String(),
		}
		for c := range u.chunker.Chunk(text, meta) {
			docs.add(c.Content, c.Metadata)
		}
		result.Documents++
		progress.report(i+1, len(articles), a.ID)
	}

	if err := u.replace(ctx, tenantID, domain.SourceTenantKB, docs); err != nil {
		return nil, err
	}
	result.Chunks = len(docs.texts)
	u.log.Info("tenant knowledge base ingested", "tenant", tenantID, "articles", result.Documents, "chunks", result.Chunks)
	return result, nil
}

// ArticlesFromDir reads every matching file under dir as a tenant article.
// The first "# " line is the title; the file name is used without one.
func (u *KBIngestor) ArticlesFromDir(dir string) ([]domain.KBArticle, error) {
	files, err := u.walker.Walk(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to walk directory: %w", err)
	}
	articles := make([]domain.KBArticle, 0, len(files))
	for _, f := range files {
		content, err := u.reader.ReadFile(f.Path)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", f.RelPath, err)
		}
		title, body := splitTitle(content)
		if title == "" {
			title = strings.TrimSuffix(path.Base(f.RelPath), path.Ext(f.RelPath))
		}
		articles = append(articles, domain.KBArticle{
			ID:       strings.TrimSuffix(f.RelPath, path.Ext(f.RelPath)),
			Title:    title,
			Content:  body,
			Category: f.Category,
		})
	}
	return articles, nil
}

func (u *KBIngestor) replace(ctx context.Context, tenantID string, source domain.SourceType, docs batch) error {
	idx, err := u.registry.Get(ctx, tenantID, source)
	if err != nil {
		return err
	}
	if err := idx.Replace(ctx, docs.texts, docs.meta); err != nil {
		return fmt.Errorf("replace %s: %w", source, err)
	}
	return nil
}

func splitTitle(content string) (string, string) {
	trimmed := strings.TrimLeft(content, "\n")
	if !strings.HasPrefix(trimmed, "# ") {
		return "", content
	}
	line, rest, _ := strings.Cut(trimmed, "\n")
	return strings.TrimSpace(strings.TrimPrefix(line, "# ")), strings.TrimLeft(rest, "\n")
}
