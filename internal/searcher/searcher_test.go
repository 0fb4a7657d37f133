package searcher

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harborai/docvector-mcp/internal/config"
	"github.com/harborai/docvector-mcp/internal/embedder"
	"github.com/harborai/docvector-mcp/internal/store"
	"github.com/harborai/docvector-mcp/pkg/types"
)

const testDim = 4

// stubModel returns fixed vectors for known texts so similarity is
// fully under the test's control.
type stubModel struct {
	vectors map[string][]float32
}

func (m stubModel) Embed(texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		if v, ok := m.vectors[t]; ok {
			out[i] = v
		} else {
			out[i] = unitVec(3)
		}
	}
	return out, nil
}

func (m stubModel) Dimension() int { return testDim }

func unitVec(axis int) []float32 {
	v := make([]float32, testDim)
	v[axis] = 1
	return v
}

func testConfig() *config.Config {
	cfg := config.Default()
	cfg.EmbeddingDim = testDim
	return cfg
}

func newTestSearcher(t *testing.T, cfg *config.Config, queryVectors map[string][]float32) (*DocumentSearch, *store.SQLiteStore) {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "index.db"), testDim)
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	emb := embedder.NewGateway(stubModel{vectors: queryVectors}, 1, nil)
	t.Cleanup(func() { _ = emb.Close() })

	return New(st, emb, cfg), st
}

func storeItem(id, content, title, docType string, embedding []float32) store.Item {
	return store.Item{
		ID:          id,
		Content:     content,
		DocType:     docType,
		Path:        "/ws/" + id,
		Title:       title,
		ContentHash: "hash",
		Embedding:   embedding,
	}
}

func TestSearchEmptyQueryReturnsNothing(t *testing.T) {
	s, _ := newTestSearcher(t, testConfig(), nil)

	for _, q := range []string{"", "   ", "\n\t"} {
		results, err := s.Search(context.Background(), q, nil, 10)
		require.NoError(t, err)
		assert.Nil(t, results)
	}
}

func TestPureSemanticRanking(t *testing.T) {
	cfg := testConfig()
	cfg.SemanticWeight = 1.0
	cfg.SimilarityThreshold = 0.5
	s, st := newTestSearcher(t, cfg, map[string][]float32{"database": unitVec(0)})
	ctx := context.Background()

	require.NoError(t, st.StoreBatch(ctx, []store.Item{
		storeItem("doc_a_c0", "exact match content", "A", "docs", unitVec(0)),
		storeItem("doc_b_c0", "orthogonal content", "B", "docs", unitVec(1)),
		storeItem("doc_c_c0", "opposite content", "C", "docs", []float32{-1, 0, 0, 0}),
	}))

	results, err := s.Search(ctx, "database", nil, 10)
	require.NoError(t, err)

	// Only the aligned vector clears a 0.5 threshold under pure
	// semantic weighting.
	require.Len(t, results, 1)
	assert.Equal(t, "doc_a_c0", results[0].ID)
	assert.InDelta(t, 1.0, float64(results[0].SemanticScore), 1e-6)
	assert.InDelta(t, 1.0, float64(results[0].Score), 1e-6)
}

func TestPureKeywordRanking(t *testing.T) {
	cfg := testConfig()
	cfg.SemanticWeight = 0.0
	cfg.SimilarityThreshold = 0.0
	s, st := newTestSearcher(t, cfg, map[string][]float32{"deploy": unitVec(0)})
	ctx := context.Background()

	// The semantically closest row is lexically irrelevant; with weight
	// 0 it must not win.
	require.NoError(t, st.StoreBatch(ctx, []store.Item{
		storeItem("doc_sem_c0", "nothing relevant at all", "Unrelated", "docs", unitVec(0)),
		storeItem("doc_kw_c0", "deploy deploy deploy instructions", "Deploy Guide", "docs", unitVec(1)),
	}))

	results, err := s.Search(ctx, "deploy", nil, 10)
	require.NoError(t, err)
	require.NotEmpty(t, results)

	assert.Equal(t, "doc_kw_c0", results[0].ID)
	assert.Greater(t, results[0].KeywordScore, float32(0.8))
	assert.Equal(t, results[0].KeywordScore, results[0].Score)
}

func TestThresholdOverridePerCall(t *testing.T) {
	cfg := testConfig()
	cfg.SemanticWeight = 1.0
	cfg.SimilarityThreshold = 0.0
	s, st := newTestSearcher(t, cfg, map[string][]float32{"query": {1, 1, 0, 0}})
	ctx := context.Background()

	require.NoError(t, st.StoreBatch(ctx, []store.Item{
		storeItem("doc_close_c0", "close", "Close", "docs", unitVec(0)),  // cos ~0.707
		storeItem("doc_far_c0", "far", "Far", "docs", unitVec(2)),        // cos 0
	}))

	results, err := s.Search(ctx, "query", nil, 10)
	require.NoError(t, err)
	assert.Len(t, results, 2)

	high := float32(0.6)
	results, err = s.Search(ctx, "query", &types.SearchFilters{Threshold: &high}, 10)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "doc_close_c0", results[0].ID)

	// Out-of-range thresholds clamp instead of erroring.
	absurd := float32(7)
	results, err = s.Search(ctx, "query", &types.SearchFilters{Threshold: &absurd}, 10)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestDocTypeFilter(t *testing.T) {
	cfg := testConfig()
	cfg.SemanticWeight = 1.0
	cfg.SimilarityThreshold = 0.0
	s, st := newTestSearcher(t, cfg, map[string][]float32{"query": unitVec(0)})
	ctx := context.Background()

	require.NoError(t, st.StoreBatch(ctx, []store.Item{
		storeItem("doc_a_c0", "a", "A", "skill", unitVec(0)),
		storeItem("doc_b_c0", "b", "B", "plan", unitVec(0)),
	}))

	results, err := s.Search(ctx, "query", &types.SearchFilters{DocTypes: []types.DocType{types.DocTypeSkill}}, 10)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "doc_a_c0", results[0].ID)
	assert.Equal(t, types.DocTypeSkill, results[0].DocType)
}

func TestLexicalOnlyHitsAreBackfilled(t *testing.T) {
	cfg := testConfig()
	cfg.SemanticWeight = 0.2
	cfg.SimilarityThreshold = 0.0
	s, st := newTestSearcher(t, cfg, map[string][]float32{"zanzibar": unitVec(0)})
	ctx := context.Background()

	// 24 filler rows crowd the vector leg's candidate list; the target
	// row is vector-distant and only reachable through the lexical leg.
	items := make([]store.Item, 0, 25)
	for i := 0; i < 24; i++ {
		items = append(items, storeItem(fmt.Sprintf("doc_f%02d_c0", i), "filler content", "Filler", "docs", unitVec(0)))
	}
	items = append(items, storeItem("doc_target_c0", "zanzibar travel notes", "Zanzibar", "docs", []float32{-1, 0, 0, 0}))
	require.NoError(t, st.StoreBatch(ctx, items))

	results, err := s.Search(ctx, "zanzibar", nil, 5)
	require.NoError(t, err)
	require.NotEmpty(t, results)

	assert.Equal(t, "doc_target_c0", results[0].ID)
	assert.Equal(t, "Zanzibar", results[0].Title)
	assert.Equal(t, "/ws/doc_target_c0", results[0].Path)
	assert.Greater(t, results[0].KeywordScore, float32(0.9))
}

func TestLimitTruncatesRanking(t *testing.T) {
	cfg := testConfig()
	cfg.SemanticWeight = 1.0
	cfg.SimilarityThreshold = 0.0
	s, st := newTestSearcher(t, cfg, map[string][]float32{"query": unitVec(0)})
	ctx := context.Background()

	items := make([]store.Item, 10)
	for i := range items {
		items[i] = storeItem(fmt.Sprintf("doc_%02d_c0", i), "content", "T", "docs", unitVec(i%testDim))
	}
	require.NoError(t, st.StoreBatch(ctx, items))

	results, err := s.Search(ctx, "query", nil, 3)
	require.NoError(t, err)
	assert.Len(t, results, 3)
}

func TestSearchResponseIsCached(t *testing.T) {
	cfg := testConfig()
	cfg.SemanticWeight = 1.0
	cfg.SimilarityThreshold = 0.0
	s, st := newTestSearcher(t, cfg, map[string][]float32{"query": unitVec(0)})
	ctx := context.Background()

	require.NoError(t, st.Store(ctx, storeItem("doc_a_c0", "content", "A", "docs", unitVec(0))))

	first, err := s.Search(ctx, "query", nil, 10)
	require.NoError(t, err)
	require.Len(t, first, 1)

	// Emptying the store doesn't affect a cached response.
	require.NoError(t, st.Delete(ctx, []string{"doc_a_c0"}))
	second, err := s.Search(ctx, "query", nil, 10)
	require.NoError(t, err)
	assert.Equal(t, first, second)

	// A different limit is a different cache entry.
	third, err := s.Search(ctx, "query", nil, 5)
	require.NoError(t, err)
	assert.Empty(t, third)
}

func TestHighlight(t *testing.T) {
	short := "short content"
	assert.Equal(t, short, highlight(short))

	long := strings.Repeat("a", 300)
	h := highlight(long)
	assert.Len(t, h, 203)
	assert.True(t, strings.HasSuffix(h, "..."))

	// Multi-byte runes never get cut in half.
	accented := strings.Repeat("é", 150) // 300 bytes
	h = highlight(accented)
	assert.True(t, strings.HasSuffix(h, "..."))
	for _, r := range h {
		assert.NotEqual(t, '�', r)
	}
}

func TestRankToScore(t *testing.T) {
	assert.InDelta(t, 1.0, float64(rankToScore(1, 20)), 1e-6)
	assert.InDelta(t, 0.05, float64(rankToScore(20, 20)), 1e-6)
	assert.InDelta(t, 0.5, float64(rankToScore(11, 20)), 1e-6)
	assert.Equal(t, float32(0), rankToScore(1, 0))
}

func TestTitleKeywordScore(t *testing.T) {
	words := strings.Fields(strings.ToLower("Deploy Kubernetes Guide"))
	assert.InDelta(t, 1.0, float64(titleKeywordScore(words, "Kubernetes Deploy Guide")), 1e-6)
	assert.InDelta(t, 1.0/3, float64(titleKeywordScore(words, "deploy notes")), 1e-6)
	assert.Equal(t, float32(0), titleKeywordScore(words, "unrelated"))
	assert.Equal(t, float32(0), titleKeywordScore(nil, "anything"))
}
