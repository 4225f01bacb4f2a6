package cache

import (
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"
)

// EmbeddingCache defines a simple interface for storing and retrieving embeddings.
type EmbeddingCache interface {
	// Get returns the embedding for the given key and whether it was found.
	Get(key string) ([]float32, bool)
	// Set stores the embedding for the given key.
	Set(key string, embedding []float32)
	// Len reports how many embeddings are currently held.
	Len() int
}

// LRUCache is a thread-safe, size-bounded implementation of EmbeddingCache.
// The least recently used embedding is evicted once Size entries are held.
type LRUCache struct {
	store *lru.Cache[string, []float32]
}

// NewLRUCache initializes a cache holding at most size embeddings.
func NewLRUCache(size int) (*LRUCache, error) {
	if size <= 0 {
		return nil, fmt.Errorf("cache size must be positive, got %d", size)
	}
	store, err := lru.New[string, []float32](size)
	if err != nil {
		return nil, fmt.Errorf("failed to create lru cache: %w", err)
	}
	return &LRUCache{store: store}, nil
}

// Get retrieves an embedding from the cache by key.
// It returns a copy of the stored slice to prevent callers from mutating internal state.
func (c *LRUCache) Get(key string) ([]float32, bool) {
	val, found := c.store.Get(key)
	if !found {
		return nil, false
	}

	copied := make([]float32, len(val))
	copy(copied, val)
	return copied, true
}

// Set adds or updates an embedding in the cache.
// It makes an internal copy of the slice to protect against external mutations.
func (c *LRUCache) Set(key string, embedding []float32) {
	copied := make([]float32, len(embedding))
	copy(copied, embedding)
	c.store.Add(key, copied)
}

// Len reports the number of cached embeddings.
func (c *LRUCache) Len() int {
	return c.store.Len()
}
