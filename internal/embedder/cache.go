package embedder

import (
	"context"
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/prometheus/client_golang/prometheus"
)

// DefaultCacheSize is the number of query embeddings kept by CachedEmbedder.
const DefaultCacheSize = 1024

// CachedEmbedder keeps recent single-text embeddings in an LRU cache.
// Repeated queries skip the embedding call entirely. Batch calls are
// passed through uncached since they only run at index build time.
type CachedEmbedder struct {
	inner      Embedder
	cache      *lru.Cache[string, []float32]
	cacheTotal *prometheus.CounterVec
}

// NewCachedEmbedder wraps inner with an LRU cache of the given size.
// cacheTotal is an optional counter vec with a single "result" label ("hit"/"miss").
func NewCachedEmbedder(inner Embedder, size int, cacheTotal *prometheus.CounterVec) (*CachedEmbedder, error) {
	if size <= 0 {
		size = DefaultCacheSize
	}

	cache, err := lru.New[string, []float32](size)
	if err != nil {
		return nil, fmt.Errorf("failed to create embedding cache: %w", err)
	}

	return &CachedEmbedder{
		inner:      inner,
		cache:      cache,
		cacheTotal: cacheTotal,
	}, nil
}

// Embed returns a cached vector or calls the inner embedder. Errors are not cached.
func (c *CachedEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if vec, ok := c.cache.Get(text); ok {
		c.inc("hit")
		return append([]float32(nil), vec...), nil
	}
	c.inc("miss")

	vec, err := c.inner.Embed(ctx, text)
	if err != nil {
		return nil, err
	}

	c.cache.Add(text, append([]float32(nil), vec...))
	return vec, nil
}

// EmbedBatch delegates to the inner embedder.
func (c *CachedEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	return c.inner.EmbedBatch(ctx, texts)
}

// Dimension returns the inner embedder's dimension.
func (c *CachedEmbedder) Dimension() int {
	return c.inner.Dimension()
}

// ModelName returns the inner embedder's model name.
func (c *CachedEmbedder) ModelName() string {
	return c.inner.ModelName()
}

// Len returns the number of cached embeddings.
func (c *CachedEmbedder) Len() int {
	return c.cache.Len()
}

func (c *CachedEmbedder) inc(result string) {
	if c.cacheTotal != nil {
		c.cacheTotal.WithLabelValues(result).Inc()
	}
}

var _ Embedder = (*CachedEmbedder)(nil)
