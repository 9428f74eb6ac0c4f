//go:build js && wasm

package main

import (
	"context"
	"encoding/json"
	"syscall/js"

	"supportrag/internal/adapter/chunker"
	"supportrag/internal/adapter/embedding"
	"supportrag/internal/adapter/fs"
	"supportrag/internal/adapter/memstore"
	"supportrag/internal/domain"
	"supportrag/internal/usecase"
)

var engine *usecase.Engine

func init() {
	reset()
}

func reset() {
	st := memstore.NewMemoryStore()
	walker := fs.NewWalker(nil, nil)
	e, err := usecase.NewEngine(usecase.EngineDeps{
		Embedder:  embedding.NewHashEmbedder(256),
		Indexes:   st,
		Weights:   st,
		Approvals: st,
		Walker:    walker,
		Reader:    walker,
		Chunker:   chunker.NewMarkdownChunker(500, 50),
	}, usecase.DefaultEngineOptions())
	if err != nil {
		panic(err)
	}
	engine = e
}

func main() {
	c := make(chan struct{})

	js.Global().Set("supportAddArticle", js.FuncOf(addArticle))
	js.Global().Set("supportDraft", js.FuncOf(prepareDraft))
	js.Global().Set("supportApprove", js.FuncOf(approve))
	js.Global().Set("supportDiff", js.FuncOf(analyzeEdit))
	js.Global().Set("supportWeights", js.FuncOf(getWeights))
	js.Global().Set("supportClear", js.FuncOf(clearEngine))

	<-c
}

// addArticle replaces the tenant KB with the articles given as a JSON array.
func addArticle(this js.Value, args []js.Value) interface{} {
	if len(args) < 2 {
		return makeError("usage: supportAddArticle(tenantID, articlesJSON)")
	}

	var articles []domain.KBArticle
	if err := json.Unmarshal([]byte(args[1].String()), &articles); err != nil {
		return makeError("invalid articles: " + err.Error())
	}

	result, err := engine.Ingest.IngestTenantKB(context.Background(), args[0].String(), articles, nil)
	if err != nil {
		return makeError("ingest failed: " + err.Error())
	}
	return makeResult(result)
}

func prepareDraft(this js.Value, args []js.Value) interface{} {
	if len(args) < 3 {
		return makeError("usage: supportDraft(tenantID, subject, content)")
	}

	draft, err := engine.PrepareDraft(context.Background(), args[0].String(), domain.Ticket{
		Subject: args[1].String(),
		Content: args[2].String(),
	})
	if err != nil {
		return makeError("draft failed: " + err.Error())
	}
	return makeResult(draft)
}

func approve(this js.Value, args []js.Value) interface{} {
	if len(args) < 5 {
		return makeError("usage: supportApprove(tenantID, subject, content, draft, final)")
	}

	ctx := context.Background()
	tenantID := args[0].String()
	ticket := domain.Ticket{Subject: args[1].String(), Content: args[2].String()}

	draft, err := engine.PrepareDraft(ctx, tenantID, ticket)
	if err != nil {
		return makeError("draft failed: " + err.Error())
	}
	result, err := engine.OnApprove(ctx, tenantID, ticket, args[3].String(), args[4].String(),
		usecase.WithContextSources(draft.ContextSources),
		usecase.WithConfidence(draft.Confidence),
	)
	if err != nil {
		return makeError("approve failed: " + err.Error())
	}
	return makeResult(result)
}

func analyzeEdit(this js.Value, args []js.Value) interface{} {
	if len(args) < 2 {
		return makeError("usage: supportDiff(draft, final)")
	}
	return makeResult(engine.AnalyzeEdit(args[0].String(), args[1].String()))
}

func getWeights(this js.Value, args []js.Value) interface{} {
	if len(args) < 1 {
		return makeError("usage: supportWeights(tenantID)")
	}
	w, err := engine.GetWeights(context.Background(), args[0].String())
	if err != nil {
		return makeError(err.Error())
	}
	return makeResult(w)
}

func clearEngine(this js.Value, args []js.Value) interface{} {
	reset()
	return makeResult(map[string]interface{}{
		"success": true,
	})
}

func makeError(msg string) interface{} {
	result, _ := json.Marshal(map[string]interface{}{
		"error": msg,
	})
	return string(result)
}

func makeResult(data interface{}) interface{} {
	result, err := json.Marshal(data)
	if err != nil {
		return makeError(err.Error())
	}
	return string(result)
}
