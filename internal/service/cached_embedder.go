package service

import (
	"context"
	"fmt"
	"log"

	"github.com/ahmednasr/issue-search/internal/cache"
)

// CachedEmbedder serves corpus embeddings from a SQLite cache and only sends
// cache misses to the wrapped embedder. Query embeddings are not cached.
type CachedEmbedder struct {
	inner Embedder
	cache *cache.SQLite
}

// NewCachedEmbedder wraps inner with cache. Closing the CachedEmbedder
// closes both.
func NewCachedEmbedder(inner Embedder, c *cache.SQLite) *CachedEmbedder {
	return &CachedEmbedder{inner: inner, cache: c}
}

func (c *CachedEmbedder) Model() string { return c.inner.Model() }

func (c *CachedEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	return c.inner.Embed(ctx, text)
}

func (c *CachedEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	model := c.inner.Model()
	out, err := c.cache.Get(ctx, model, texts)
	if err != nil {
		return nil, fmt.Errorf("embedding cache lookup: %w", err)
	}

	var missIdx []int
	var missTexts []string
	for i, vec := range out {
		if vec == nil {
			missIdx = append(missIdx, i)
			missTexts = append(missTexts, texts[i])
		}
	}
	if len(missTexts) == 0 {
		return out, nil
	}

	vecs, err := c.inner.EmbedBatch(ctx, missTexts)
	if err != nil {
		return nil, err
	}
	if len(vecs) != len(missTexts) {
		return nil, fmt.Errorf("embedder returned %d vectors for %d texts", len(vecs), len(missTexts))
	}
	for j, i := range missIdx {
		out[i] = vecs[j]
	}
	if err := c.cache.Put(ctx, model, missTexts, vecs); err != nil {
		// Not fatal: the vectors are returned uncached.
		log.Printf("[EmbeddingCache] store failed: %v", err)
	}
	return out, nil
}

func (c *CachedEmbedder) Close() error {
	err := c.inner.Close()
	if cerr := c.cache.Close(); err == nil {
		err = cerr
	}
	return err
}
