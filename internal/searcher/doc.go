// Package searcher implements hybrid search over the document vector
// index.
//
// A query runs two candidate legs concurrently: nearest-neighbor vector
// search and BM25 full-text search. The legs are fused into one ranking:
//
//	semantic = clamp(1 - distance, 0, 1)
//	keyword  = 0.8*rankScore + 0.2*titleScore   (when FTS-ranked)
//	         = titleScore                        (otherwise)
//	combined = weight*semantic + (1-weight)*keyword
//
// A failing full-text leg degrades the query to semantic-only ranking
// with a warning instead of failing the call.
//
// Responses are cached in a TTL'd LRU keyed by the query, filters, and
// limit, so agent loops that re-issue the same search within a few
// seconds don't re-embed or re-rank.
package searcher
