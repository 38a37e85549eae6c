package generation

import (
	"context"
	"time"

	"github.com/goodtune/countdown/internal/metrics"
	"github.com/hashicorp/golang-lru/v2/expirable"
)

// Cached wraps a Generator and remembers successful results per prompt.
// Failures are never cached.
type Cached struct {
	next  Generator
	cache *expirable.LRU[string, Content]
}

var _ Generator = (*Cached)(nil)

// NewCached creates a caching generator holding up to size entries for ttl
func NewCached(next Generator, size int, ttl time.Duration) *Cached {
	return &Cached{
		next:  next,
		cache: expirable.NewLRU[string, Content](size, nil, ttl),
	}
}

// Generate returns a cached result for req when one is fresh, otherwise
// delegates and stores the result.
func (c *Cached) Generate(ctx context.Context, req Request) (Content, error) {
	key := BuildPrompt(req)
	if content, ok := c.cache.Get(key); ok {
		metrics.GenerationCacheHits.Inc()
		return content, nil
	}

	content, err := c.next.Generate(ctx, req)
	if err != nil {
		return Content{}, err
	}

	c.cache.Add(key, content)
	return content, nil
}

// Len reports the number of cached entries
func (c *Cached) Len() int {
	return c.cache.Len()
}
