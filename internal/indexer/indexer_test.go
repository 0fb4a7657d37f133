package indexer

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harborai/docvector-mcp/internal/config"
	"github.com/harborai/docvector-mcp/internal/embedder"
	"github.com/harborai/docvector-mcp/internal/store"
	"github.com/harborai/docvector-mcp/pkg/types"
)

const testDim = 8

func testConfig() *config.Config {
	cfg := config.Default()
	cfg.EmbeddingDim = testDim
	cfg.BatchSize = 4
	return cfg
}

func newTestIndexer(t *testing.T, cfg *config.Config) (*DocumentIndexer, *store.SQLiteStore) {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "index.db"), cfg.EmbeddingDim)
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	emb := embedder.NewGateway(embedder.NewLocalModel(testDim), 2, nil)
	t.Cleanup(func() { _ = emb.Close() })

	return New(st, emb, cfg), st
}

func writeFile(t *testing.T, root, rel, content string) string {
	t.Helper()
	path := filepath.Join(root, rel)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func seedWorkspace(t *testing.T) string {
	root := t.TempDir()
	writeFile(t, root, "skills/deploy/SKILL.md", "# Deploy Skill\n\nHow to deploy the service safely.")
	writeFile(t, root, "README.md", "# Project\n\nGeneral documentation for the workspace.")
	writeFile(t, root, "notes.txt", "Assorted operational notes.\n\nSecond paragraph of notes.")
	return root
}

func TestIndexWorkspaceFirstRun(t *testing.T) {
	cfg := testConfig()
	idx, st := newTestIndexer(t, cfg)
	root := seedWorkspace(t)
	ctx := context.Background()

	stats, err := idx.IndexWorkspace(ctx, root)
	require.NoError(t, err)

	assert.Equal(t, 3, stats.TotalDiscovered)
	assert.Equal(t, 0, stats.Skipped)
	assert.Equal(t, 0, stats.Failed)
	assert.Equal(t, stats.ChunksCreated, stats.Indexed)
	assert.GreaterOrEqual(t, stats.ChunksCreated, 3)

	count, err := st.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(stats.Indexed), count)
}

func TestReindexUnchangedSkipsEverything(t *testing.T) {
	cfg := testConfig()
	idx, st := newTestIndexer(t, cfg)
	root := seedWorkspace(t)
	ctx := context.Background()

	first, err := idx.IndexWorkspace(ctx, root)
	require.NoError(t, err)

	second, err := idx.IndexWorkspace(ctx, root)
	require.NoError(t, err)

	assert.Equal(t, second.TotalDiscovered, second.Skipped)
	assert.Equal(t, 0, second.Indexed)
	assert.Equal(t, 0, second.ChunksCreated)

	count, err := st.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(first.Indexed), count)
}

func TestModifiedDocumentIsReindexed(t *testing.T) {
	cfg := testConfig()
	idx, st := newTestIndexer(t, cfg)
	root := seedWorkspace(t)
	ctx := context.Background()

	_, err := idx.IndexWorkspace(ctx, root)
	require.NoError(t, err)

	readme := writeFile(t, root, "README.md", "# Project\n\nCompletely rewritten documentation.")

	stats, err := idx.IndexWorkspace(ctx, root)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Skipped)
	assert.GreaterOrEqual(t, stats.Indexed, 1)

	rows, err := st.FetchByIDs(ctx, []string{types.ChunkID(types.BaseID(readme), 0)})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Contains(t, rows[types.ChunkID(types.BaseID(readme), 0)].Content, "Completely rewritten")
}

func TestShrinkingDocumentLeavesNoOrphans(t *testing.T) {
	cfg := testConfig()
	cfg.MaxChunkChars = 120
	cfg.ChunkOverlapChars = 20
	idx, st := newTestIndexer(t, cfg)
	root := t.TempDir()
	ctx := context.Background()

	long := "# Long\n\n"
	for i := 0; i < 20; i++ {
		long += "A paragraph of filler text that pads the document out to several chunks.\n\n"
	}
	path := writeFile(t, root, "README.md", long)

	_, err := idx.IndexWorkspace(ctx, root)
	require.NoError(t, err)
	before, err := st.Count(ctx)
	require.NoError(t, err)
	require.Greater(t, before, int64(1))

	writeFile(t, root, "README.md", "# Long\n\nNow tiny.")
	_, err = idx.IndexWorkspace(ctx, root)
	require.NoError(t, err)

	ids, err := st.ListIDs(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{types.ChunkID(types.BaseID(path), 0)}, ids)
}

func TestRemovedDocumentIsPruned(t *testing.T) {
	cfg := testConfig()
	idx, st := newTestIndexer(t, cfg)
	root := seedWorkspace(t)
	ctx := context.Background()

	notes := filepath.Join(root, "notes.txt")
	_, err := idx.IndexWorkspace(ctx, root)
	require.NoError(t, err)

	hashes, err := st.FetchContentHashes(ctx, []string{types.ChunkID(types.BaseID(notes), 0)})
	require.NoError(t, err)
	require.Len(t, hashes, 1)

	require.NoError(t, os.Remove(notes))
	_, err = idx.IndexWorkspace(ctx, root)
	require.NoError(t, err)

	hashes, err = st.FetchContentHashes(ctx, []string{types.ChunkID(types.BaseID(notes), 0)})
	require.NoError(t, err)
	assert.Empty(t, hashes)
}

type failingModel struct{}

func (failingModel) Embed(texts []string) ([][]float32, error) {
	return nil, errors.New("model offline")
}

func (failingModel) Dimension() int { return testDim }

func TestEmbedderFailureCountsChunksAndContinues(t *testing.T) {
	cfg := testConfig()
	st, err := store.Open(filepath.Join(t.TempDir(), "index.db"), testDim)
	require.NoError(t, err)
	defer func() { _ = st.Close() }()

	emb := embedder.NewGateway(failingModel{}, 1, nil)
	defer func() { _ = emb.Close() }()

	idx := New(st, emb, cfg)
	root := seedWorkspace(t)

	stats, err := idx.IndexWorkspace(context.Background(), root)
	require.NoError(t, err)
	assert.Equal(t, stats.ChunksCreated, stats.Failed)
	assert.Equal(t, 0, stats.Indexed)

	count, err := st.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(0), count)
}

func TestIndexWorkspaceCancelledContext(t *testing.T) {
	cfg := testConfig()
	idx, _ := newTestIndexer(t, cfg)
	root := seedWorkspace(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := idx.IndexWorkspace(ctx, root)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestIndexLock(t *testing.T) {
	var lock IndexLock
	assert.True(t, lock.TryAcquire())
	assert.False(t, lock.TryAcquire())
	lock.Release()
	assert.True(t, lock.TryAcquire())
	lock.Release()
}
