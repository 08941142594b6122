package embedding

import (
	"context"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"bookrec/internal/metrics"
	"bookrec/internal/port"
)

// CachedEncoder memoizes text vectors. Vectors depend only on the text and
// the model, so entries survive snapshot reloads.
type CachedEncoder struct {
	encoder port.TextEncoder
	cache   *expirable.LRU[string, []float32]
}

func NewCachedEncoder(encoder port.TextEncoder, size int, ttl time.Duration) *CachedEncoder {
	if size <= 0 {
		size = 100
	}
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &CachedEncoder{
		encoder: encoder,
		cache:   expirable.NewLRU[string, []float32](size, nil, ttl),
	}
}

func (c *CachedEncoder) Embed(ctx context.Context, text string) ([]float32, error) {
	if vec, ok := c.cache.Get(text); ok {
		metrics.EncoderCacheHits.Inc()
		return clone(vec), nil
	}
	metrics.EncoderCacheMisses.Inc()

	vec, err := c.encoder.Embed(ctx, text)
	if err != nil {
		return nil, err
	}
	c.cache.Add(text, clone(vec))
	return vec, nil
}

// Purge drops every cached vector.
func (c *CachedEncoder) Purge() {
	c.cache.Purge()
}

func (c *CachedEncoder) Len() int {
	return c.cache.Len()
}

func (c *CachedEncoder) Dimension() int {
	return c.encoder.Dimension()
}

func (c *CachedEncoder) ModelName() string {
	return c.encoder.ModelName()
}

func clone(v []float32) []float32 {
	out := make([]float32, len(v))
	copy(out, v)
	return out
}
