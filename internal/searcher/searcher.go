package searcher

import (
	"context"
	"fmt"
	"log"
	"sort"
	"strings"
	"unicode/utf8"

	"golang.org/x/sync/errgroup"

	"github.com/harborai/docvector-mcp/internal/config"
	"github.com/harborai/docvector-mcp/internal/embedder"
	"github.com/harborai/docvector-mcp/internal/indexer"
	"github.com/harborai/docvector-mcp/internal/store"
	"github.com/harborai/docvector-mcp/pkg/types"
)

const highlightChars = 200

// DocumentSearch answers hybrid queries against a populated store.
type DocumentSearch struct {
	store    store.Store
	embedder embedder.Embedder
	cfg      *config.Config
	cache    *queryCache
}

// New creates a DocumentSearch over an already-initialized store.
func New(st store.Store, emb embedder.Embedder, cfg *config.Config) *DocumentSearch {
	return &DocumentSearch{
		store:    st,
		embedder: emb,
		cfg:      cfg,
		cache:    newQueryCache(cfg.QueryCacheSize),
	}
}

// Initialize prepares the full search stack at startup: (re)build the
// full-text index, run one indexing pass over the workspace, and compact
// the store. The store and embedder remain owned by the caller.
func Initialize(ctx context.Context, st store.Store, emb embedder.Embedder, root string, cfg *config.Config) (*DocumentSearch, *types.IndexStats, error) {
	if err := st.CreateIndexes(ctx); err != nil {
		return nil, nil, fmt.Errorf("failed to build indexes: %w", err)
	}

	stats, err := indexer.New(st, emb, cfg).IndexWorkspace(ctx, root)
	if err != nil {
		return nil, nil, fmt.Errorf("initial index pass failed: %w", err)
	}

	if err := st.Optimize(ctx); err != nil {
		log.Printf("searcher: store optimize skipped: %v", err)
	}

	return New(st, emb, cfg), stats, nil
}

// candidate accumulates both ranking signals for one chunk id.
type candidate struct {
	row      store.Row
	semantic float32
	rank     int // 1-based FTS rank, 0 when absent from the lexical leg
}

// Search runs a hybrid query. Empty and whitespace-only queries return
// no results and no error. limit <= 0 falls back to the configured
// maximum.
func (s *DocumentSearch) Search(ctx context.Context, query string, filters *types.SearchFilters, limit int) ([]types.SearchResult, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, nil
	}
	if limit <= 0 {
		limit = s.cfg.MaxResults
	}

	threshold := clamp01(s.cfg.SimilarityThreshold)
	var docTypes []string
	if filters != nil {
		if filters.Threshold != nil {
			threshold = clamp01(*filters.Threshold)
		}
		for _, dt := range filters.DocTypes {
			docTypes = append(docTypes, dt.String())
		}
	}

	key := cacheKey(query, docTypes, threshold, limit)
	if cached, ok := s.cache.get(key); ok {
		return cached, nil
	}

	// Over-fetch candidates so fusion has something to fuse before the
	// final truncation.
	candidateLimit := limit * 4
	if candidateLimit < 20 {
		candidateLimit = 20
	}

	queryVector, err := s.embedder.EmbedOne(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}

	var vecMatches []store.VectorMatch
	var textMatches []store.TextMatch
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		m, err := s.store.VectorSearch(gctx, queryVector, candidateLimit, docTypes)
		if err != nil {
			return fmt.Errorf("vector search failed: %w", err)
		}
		vecMatches = m
		return nil
	})
	g.Go(func() error {
		m, err := s.store.TextSearch(gctx, query, candidateLimit, docTypes)
		if err != nil {
			// Keyword signal is best-effort.
			log.Printf("searcher: keyword search failed, degrading to semantic-only: %v", err)
			return nil
		}
		textMatches = m
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	candidates := s.mergeCandidates(ctx, vecMatches, textMatches)

	results := s.scoreCandidates(candidates, query, docTypes, candidateLimit, threshold)
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})
	if len(results) > limit {
		results = results[:limit]
	}

	s.cache.set(key, results)
	return results, nil
}

// mergeCandidates unions the vector and lexical legs, backfilling row
// metadata for lexical-only hits in one batched fetch.
func (s *DocumentSearch) mergeCandidates(ctx context.Context, vecMatches []store.VectorMatch, textMatches []store.TextMatch) map[string]*candidate {
	candidates := make(map[string]*candidate, len(vecMatches)+len(textMatches))

	for _, m := range vecMatches {
		semantic := clamp01(float32(1 - m.Distance))
		if c, ok := candidates[m.ID]; ok {
			if semantic > c.semantic {
				c.semantic = semantic
			}
			continue
		}
		candidates[m.ID] = &candidate{
			row: store.Row{
				ID:      m.ID,
				Content: m.Content,
				DocType: m.DocType,
				Path:    m.Path,
				Title:   m.Title,
			},
			semantic: semantic,
		}
	}

	var lexicalOnly []string
	for i, m := range textMatches {
		if c, ok := candidates[m.ID]; ok {
			if c.rank == 0 {
				c.rank = i + 1
			}
			continue
		}
		candidates[m.ID] = &candidate{rank: i + 1}
		lexicalOnly = append(lexicalOnly, m.ID)
	}

	if len(lexicalOnly) > 0 {
		rows, err := s.store.FetchByIDs(ctx, lexicalOnly)
		if err != nil {
			log.Printf("searcher: failed to backfill %d lexical hits: %v", len(lexicalOnly), err)
			rows = nil
		}
		for _, id := range lexicalOnly {
			row, ok := rows[id]
			if !ok {
				// Row vanished between the FTS hit and the fetch.
				delete(candidates, id)
				continue
			}
			candidates[id].row = row
		}
	}

	return candidates
}

// scoreCandidates computes the fused score for every candidate and drops
// those below the threshold or outside the doc type filter.
func (s *DocumentSearch) scoreCandidates(candidates map[string]*candidate, query string, docTypes []string, candidateLimit int, threshold float32) []types.SearchResult {
	allowed := make(map[string]bool, len(docTypes))
	for _, dt := range docTypes {
		allowed[dt] = true
	}
	queryWords := strings.Fields(strings.ToLower(query))
	weight := s.cfg.SemanticWeight

	results := make([]types.SearchResult, 0, len(candidates))
	for _, c := range candidates {
		if len(allowed) > 0 && !allowed[c.row.DocType] {
			continue
		}

		titleScore := titleKeywordScore(queryWords, c.row.Title)
		var keyword float32
		if c.rank > 0 {
			keyword = 0.8*rankToScore(c.rank, candidateLimit) + 0.2*titleScore
		} else {
			keyword = titleScore
		}

		combined := weight*c.semantic + (1-weight)*keyword
		if combined < threshold {
			continue
		}

		results = append(results, types.SearchResult{
			ID:            c.row.ID,
			Title:         c.row.Title,
			DocType:       types.ParseDocType(c.row.DocType),
			Path:          c.row.Path,
			Score:         combined,
			SemanticScore: c.semantic,
			KeywordScore:  keyword,
			Highlight:     highlight(c.row.Content),
		})
	}
	return results
}

// rankToScore maps a 1-based FTS rank to a linearly decaying score.
func rankToScore(rank, total int) float32 {
	if total <= 0 {
		return 0
	}
	return clamp01(1 - float32(rank-1)/float32(total))
}

// titleKeywordScore is the fraction of query words literally contained
// in the lower-cased title.
func titleKeywordScore(queryWords []string, title string) float32 {
	if len(queryWords) == 0 {
		return 0
	}
	lowered := strings.ToLower(title)
	hits := 0
	for _, w := range queryWords {
		if strings.Contains(lowered, w) {
			hits++
		}
	}
	return float32(hits) / float32(len(queryWords))
}

// highlight returns the content's first 200 characters, snapped back to
// a rune boundary and ellipsis-suffixed when truncated.
func highlight(content string) string {
	if len(content) <= highlightChars {
		return content
	}
	cut := highlightChars
	for cut > 0 && !utf8.RuneStart(content[cut]) {
		cut--
	}
	return content[:cut] + "..."
}

func clamp01(v float32) float32 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
