package embedding

import (
	"context"
	"errors"
	"time"

	"github.com/sethvargo/go-retry"
	"supportrag/internal/port"
)

// RetryingEmbedder retries failed Embed calls with exponential backoff.
// The engine itself never retries; callers opt in by wrapping their embedder.
type RetryingEmbedder struct {
	next       port.Embedder
	maxRetries uint64
	base       time.Duration
}

func NewRetryingEmbedder(next port.Embedder, maxRetries int, base time.Duration) *RetryingEmbedder {
	if maxRetries < 0 {
		maxRetries = 0
	}
	if base <= 0 {
		base = 100 * time.Millisecond
	}
	return &RetryingEmbedder{next: next, maxRetries: uint64(maxRetries), base: base}
}

func (e *RetryingEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	var out [][]float32
	backoff := retry.WithMaxRetries(e.maxRetries, retry.NewExponential(e.base))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		v, err := e.next.Embed(ctx, texts)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return err
			}
			return retry.RetryableError(err)
		}
		out = v
		return nil
	})
	return out, err
}

func (e *RetryingEmbedder) Dimension() int {
	return e.next.Dimension()
}

func (e *RetryingEmbedder) ModelName() string {
	return e.next.ModelName()
}
