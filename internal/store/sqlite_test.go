package store

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testDim = 4

func openTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "index.db"), testDim)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func testItem(id, content string, embedding []float32) Item {
	return Item{
		ID:          id,
		Content:     content,
		DocType:     "docs",
		Path:        "/ws/" + id + ".md",
		Title:       "Title " + id,
		ContentHash: "hash-" + id,
		Embedding:   embedding,
	}
}

func unitVec(axis int) []float32 {
	v := make([]float32, testDim)
	v[axis] = 1
	return v
}

func TestOpenCreatesSchema(t *testing.T) {
	s := openTestStore(t)

	count, err := s.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(0), count)
	assert.Equal(t, testDim, s.Dimension())
}

func TestOpenRejectsInvalidDimension(t *testing.T) {
	_, err := Open(filepath.Join(t.TempDir(), "index.db"), 0)
	assert.Error(t, err)
}

func TestOpenRecoversFromCorruptFile(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "index.db")
	require.NoError(t, os.WriteFile(dbPath, []byte("this is not a sqlite database"), 0o644))

	s, err := Open(dbPath, testDim)
	require.NoError(t, err)
	defer func() { _ = s.Close() }()

	count, err := s.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(0), count)
}

func TestStoreBatchAndFetch(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	items := []Item{
		testItem("doc_aa_c0", "alpha content", unitVec(0)),
		testItem("doc_aa_c1", "beta content", unitVec(1)),
		testItem("doc_bb_c0", "gamma content", unitVec(2)),
	}
	require.NoError(t, s.StoreBatch(ctx, items))

	count, err := s.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), count)

	rows, err := s.FetchByIDs(ctx, []string{"doc_aa_c0", "doc_bb_c0", "missing"})
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "alpha content", rows["doc_aa_c0"].Content)
	assert.Equal(t, "Title doc_bb_c0", rows["doc_bb_c0"].Title)
	assert.Equal(t, "docs", rows["doc_aa_c0"].DocType)

	hashes, err := s.FetchContentHashes(ctx, []string{"doc_aa_c0", "missing"})
	require.NoError(t, err)
	require.Len(t, hashes, 1)
	assert.Equal(t, "hash-doc_aa_c0", hashes["doc_aa_c0"])

	ids, err := s.ListIDs(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"doc_aa_c0", "doc_aa_c1", "doc_bb_c0"}, ids)
}

func TestStoreBatchRejectsDimensionMismatch(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	items := []Item{
		testItem("doc_aa_c0", "good", unitVec(0)),
		testItem("doc_aa_c1", "bad", []float32{1, 2}),
	}
	err := s.StoreBatch(ctx, items)
	require.ErrorIs(t, err, ErrDimensionMismatch)

	// Nothing from the batch may have landed.
	count, err := s.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(0), count)
}

func TestStoreUpsertsExistingRow(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Store(ctx, testItem("doc_aa_c0", "first", unitVec(0))))
	require.NoError(t, s.Store(ctx, testItem("doc_aa_c0", "second", unitVec(1))))

	count, err := s.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	rows, err := s.FetchByIDs(ctx, []string{"doc_aa_c0"})
	require.NoError(t, err)
	assert.Equal(t, "second", rows["doc_aa_c0"].Content)
}

func TestDelete(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.StoreBatch(ctx, []Item{
		testItem("doc_aa_c0", "a", unitVec(0)),
		testItem("doc_aa_c1", "b", unitVec(1)),
	}))

	require.NoError(t, s.Delete(ctx, []string{"doc_aa_c0", "missing"}))

	ids, err := s.ListIDs(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"doc_aa_c1"}, ids)
}

func TestDeleteByPrefixTreatsUnderscoreLiterally(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	// "docXaa_c0" would match prefix "doc_aa" if the underscore acted
	// as a single-character wildcard.
	require.NoError(t, s.StoreBatch(ctx, []Item{
		testItem("doc_aa_c0", "a", unitVec(0)),
		testItem("doc_aa_c1", "b", unitVec(1)),
		testItem("docXaa_c0", "c", unitVec(2)),
	}))

	n, err := s.DeleteByPrefix(ctx, "doc_aa")
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	ids, err := s.ListIDs(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"docXaa_c0"}, ids)
}

func TestDeleteRawWithPrefixPredicate(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.StoreBatch(ctx, []Item{
		testItem("doc_aa_c0", "a", unitVec(0)),
		testItem("doc_bb_c0", "b", unitVec(1)),
		testItem("doc_cc_c0", "c", unitVec(2)),
	}))

	pred := PrefixPredicate([]string{"doc_aa", "doc_cc"})
	n, err := s.DeleteRaw(ctx, pred)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	ids, err := s.ListIDs(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"doc_bb_c0"}, ids)
}

func TestDeleteRawRejectsEmptyPredicate(t *testing.T) {
	s := openTestStore(t)
	_, err := s.DeleteRaw(context.Background(), "  ")
	assert.Error(t, err)
}

func TestCreateIndexesIsIdempotent(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.CreateIndexes(ctx))
	require.NoError(t, s.CreateIndexes(ctx))
}

func TestOptimize(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Store(ctx, testItem("doc_aa_c0", "content", unitVec(0))))
	require.NoError(t, s.Optimize(ctx))
}

func TestStoreBatchEmptyIsNoop(t *testing.T) {
	s := openTestStore(t)
	require.NoError(t, s.StoreBatch(context.Background(), nil))
}

func TestCountAfterManyBatches(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	for b := 0; b < 3; b++ {
		items := make([]Item, 10)
		for i := range items {
			items[i] = testItem(fmt.Sprintf("doc_%02d_c%d", b, i), "content", unitVec(i%testDim))
		}
		require.NoError(t, s.StoreBatch(ctx, items))
	}

	count, err := s.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(30), count)
}
