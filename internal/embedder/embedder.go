package embedder

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"
)

// Common errors
var (
	ErrEmbeddingFailed     = errors.New("embedding failed")
	ErrEmptyText           = errors.New("text cannot be empty")
	ErrEmptyBatch          = errors.New("batch contains no texts")
	ErrUnsupportedProvider = errors.New("unsupported embedding provider")
	ErrNoProviderEnabled   = errors.New("no embedding provider configured")
)

// Embedder produces fixed-dimension float vectors for texts. Batch calls
// are one-to-one and order-preserving; any failure fails the whole batch,
// partial results are never returned.
type Embedder interface {
	// EmbedBatch embeds every text, returning one vector per input in the
	// same order.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)

	// EmbedOne embeds a single text.
	EmbedOne(ctx context.Context, text string) ([]float32, error)

	// Dimension returns the fixed vector dimension.
	Dimension() int

	// Close releases any resources held by the embedder.
	Close() error
}

// Cache provides in-memory LRU caching of embeddings by content hash.
type Cache struct {
	cache *lru.Cache[string, []float32]
}

// NewCache creates an embedding cache with LRU eviction.
func NewCache(maxLen int) *Cache {
	if maxLen <= 0 {
		maxLen = 10000
	}
	cache, err := lru.New[string, []float32](maxLen)
	if err != nil {
		// Only reachable with a non-positive size, which is guarded above.
		panic(fmt.Sprintf("failed to create LRU cache: %v", err))
	}
	return &Cache{cache: cache}
}

// Get retrieves a copy of a cached vector. Returning a copy keeps caller
// mutations from corrupting cached values.
func (c *Cache) Get(hash string) ([]float32, bool) {
	v, ok := c.cache.Get(hash)
	if !ok {
		return nil, false
	}
	out := make([]float32, len(v))
	copy(out, v)
	return out, true
}

// Set stores a vector with automatic LRU eviction.
func (c *Cache) Set(hash string, vector []float32) {
	c.cache.Add(hash, vector)
}

// Size returns the current cache size.
func (c *Cache) Size() int {
	return c.cache.Len()
}

// ComputeHash computes the SHA-256 hex digest of a text for cache keys.
func ComputeHash(text string) string {
	h := sha256.Sum256([]byte(text))
	return hex.EncodeToString(h[:])
}

// validateBatch rejects empty batches and empty texts up front so no
// provider call is wasted on input that can never embed.
func validateBatch(texts []string) error {
	if len(texts) == 0 {
		return ErrEmptyBatch
	}
	for i, text := range texts {
		if text == "" {
			return fmt.Errorf("%w: text at index %d", ErrEmptyText, i)
		}
	}
	return nil
}

// validateVectors checks a provider response for the one-to-one contract
// and the fixed dimension.
func validateVectors(vectors [][]float32, want int, dim int) error {
	if len(vectors) != want {
		return fmt.Errorf("%w: got %d vectors for %d texts", ErrEmbeddingFailed, len(vectors), want)
	}
	for i, v := range vectors {
		if len(v) != dim {
			return fmt.Errorf("%w: vector %d has dimension %d, want %d", ErrEmbeddingFailed, i, len(v), dim)
		}
	}
	return nil
}
