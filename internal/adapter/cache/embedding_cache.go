package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"supportrag/internal/port"
)

// EmbeddingCache wraps an Embedder and memoizes vectors by text. Vectors are
// a pure function of (model, text), so entries never need invalidation on
// index writes; the TTL only bounds memory held for cold texts.
type EmbeddingCache struct {
	next  port.Embedder
	cache *expirable.LRU[string, []float32]
}

func NewEmbeddingCache(next port.Embedder, maxSize int, ttl time.Duration) *EmbeddingCache {
	if maxSize <= 0 {
		maxSize = 256
	}
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &EmbeddingCache{
		next:  next,
		cache: expirable.NewLRU[string, []float32](maxSize, nil, ttl),
	}
}

func (c *EmbeddingCache) cacheKey(text string) string {
	hash := sha256.Sum256([]byte(c.next.ModelName() + "\x00" + text))
	return hex.EncodeToString(hash[:16])
}

// Embed serves cached vectors and embeds the misses in one call.
func (c *EmbeddingCache) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	var missTexts []string
	var missIdx []int

	for i, text := range texts {
		if v, ok := c.cache.Get(c.cacheKey(text)); ok {
			out[i] = v
			continue
		}
		missTexts = append(missTexts, text)
		missIdx = append(missIdx, i)
	}
	if len(missTexts) == 0 {
		return out, nil
	}

	vecs, err := c.next.Embed(ctx, missTexts)
	if err != nil {
		return nil, err
	}
	if len(vecs) != len(missTexts) {
		return nil, fmt.Errorf("embedding cache: got %d vectors for %d texts", len(vecs), len(missTexts))
	}
	for j, v := range vecs {
		out[missIdx[j]] = v
		c.cache.Add(c.cacheKey(missTexts[j]), v)
	}
	return out, nil
}

func (c *EmbeddingCache) Purge() {
	c.cache.Purge()
}

func (c *EmbeddingCache) Size() int {
	return c.cache.Len()
}

func (c *EmbeddingCache) Dimension() int {
	return c.next.Dimension()
}

func (c *EmbeddingCache) ModelName() string {
	return c.next.ModelName()
}
