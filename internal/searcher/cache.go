package searcher

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/harborai/docvector-mcp/pkg/types"
)

// queryCacheTTL bounds how stale a cached response may be. The index is
// mutated by background re-index runs, so entries age out quickly.
const queryCacheTTL = 30 * time.Second

// queryCache memoizes full search responses for identical calls.
type queryCache struct {
	lru *expirable.LRU[string, []types.SearchResult]
}

func newQueryCache(maxLen int) *queryCache {
	if maxLen <= 0 {
		return &queryCache{}
	}
	return &queryCache{lru: expirable.NewLRU[string, []types.SearchResult](maxLen, nil, queryCacheTTL)}
}

func (c *queryCache) get(key string) ([]types.SearchResult, bool) {
	if c.lru == nil {
		return nil, false
	}
	v, ok := c.lru.Get(key)
	if !ok {
		return nil, false
	}
	// Copy so callers can't mutate the cached ranking.
	out := make([]types.SearchResult, len(v))
	copy(out, v)
	return out, true
}

func (c *queryCache) set(key string, results []types.SearchResult) {
	if c.lru == nil {
		return
	}
	v := make([]types.SearchResult, len(results))
	copy(v, results)
	c.lru.Add(key, v)
}

// cacheKey fingerprints everything that influences a response.
func cacheKey(query string, docTypes []string, threshold float32, limit int) string {
	raw := fmt.Sprintf("%s|%s|%g|%d", query, strings.Join(docTypes, ","), threshold, limit)
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}
