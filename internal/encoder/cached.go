package encoder

import (
	"context"
	"slices"

	"autoreply/embeddings/internal/cache"
)

// Cached memoizes embeddings per (model, text). Only cache misses reach the
// wrapped encoder, in a single batched call; results come back in input order.
type Cached struct {
	next     Encoder
	cache    cache.EmbeddingCache
	observer Observer
}

// NewCached wraps next with the given cache. observer may be nil.
func NewCached(next Encoder, c cache.EmbeddingCache, observer Observer) *Cached {
	return &Cached{next: next, cache: c, observer: observer}
}

// Encode returns cached vectors where available and embeds the rest.
func (c *Cached) Encode(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, ErrEmptyInput
	}

	model := c.next.ModelName()
	vectors := make([][]float32, len(texts))

	var missing []string
	positions := make(map[string][]int)
	hits := 0
	for i, text := range texts {
		if idx, pending := positions[text]; pending {
			positions[text] = append(idx, i)
			continue
		}
		if v, found := c.cache.Get(cache.ComputeKey(model, text)); found {
			vectors[i] = v
			hits++
			continue
		}
		positions[text] = []int{i}
		missing = append(missing, text)
	}

	if c.observer != nil {
		c.observer.ObserveCache(hits, len(missing))
	}

	if len(missing) == 0 {
		return vectors, nil
	}

	fresh, err := c.next.Encode(ctx, missing)
	if err != nil {
		return nil, err
	}

	for j, text := range missing {
		c.cache.Set(cache.ComputeKey(model, text), fresh[j])
		for n, i := range positions[text] {
			if n == 0 {
				vectors[i] = fresh[j]
			} else {
				vectors[i] = slices.Clone(fresh[j])
			}
		}
	}
	return vectors, nil
}

// Dimensions returns the wrapped encoder's dimensions
func (c *Cached) Dimensions() int { return c.next.Dimensions() }

// ModelName returns the wrapped encoder's model name
func (c *Cached) ModelName() string { return c.next.ModelName() }
