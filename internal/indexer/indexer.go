package indexer

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log"
	"time"

	"github.com/harborai/docvector-mcp/internal/chunker"
	"github.com/harborai/docvector-mcp/internal/config"
	"github.com/harborai/docvector-mcp/internal/crawler"
	"github.com/harborai/docvector-mcp/internal/embedder"
	"github.com/harborai/docvector-mcp/internal/store"
	"github.com/harborai/docvector-mcp/pkg/types"
)

// DocumentIndexer coordinates the indexing pipeline: crawl -> chunk ->
// embed -> store.
type DocumentIndexer struct {
	store    store.Store
	embedder embedder.Embedder
	cfg      *config.Config
}

// New creates a new DocumentIndexer instance.
func New(st store.Store, emb embedder.Embedder, cfg *config.Config) *DocumentIndexer {
	return &DocumentIndexer{store: st, embedder: emb, cfg: cfg}
}

// contentHash fingerprints a whole document for change detection.
func contentHash(content string) string {
	sum := sha256.Sum256([]byte(content))
	return hex.EncodeToString(sum[:])
}

// pendingChunk is a chunk waiting for its embedding in the current batch.
type pendingChunk struct {
	item store.Item
	text string
}

// IndexWorkspace crawls root and brings the vector index up to date with
// it. Per-document and per-batch failures are logged and counted, not
// fatal; only a cancelled context or an unusable store aborts the run.
func (idx *DocumentIndexer) IndexWorkspace(ctx context.Context, root string) (*types.IndexStats, error) {
	start := time.Now()
	stats := &types.IndexStats{}

	docs := crawler.New(root, idx.cfg).DiscoverDocuments()
	stats.TotalDiscovered = len(docs)

	// One batched fetch of every document's stored hash. The hash lives
	// on the first chunk row of each document.
	c0IDs := make([]string, len(docs))
	for i, doc := range docs {
		c0IDs[i] = types.ChunkID(doc.ID, 0)
	}
	storedHashes, err := idx.store.FetchContentHashes(ctx, c0IDs)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch stored hashes: %w", err)
	}

	liveBases := make(map[string]bool, len(docs))
	var pending []pendingChunk

	for _, doc := range docs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		liveBases[doc.ID] = true

		hash := contentHash(doc.Content)
		if stored, ok := storedHashes[types.ChunkID(doc.ID, 0)]; ok && stored == hash {
			stats.Skipped++
			continue
		}

		// Changed or new document: clear its old rows so a shrinking
		// document leaves no orphaned chunks.
		if _, err := idx.store.DeleteByPrefix(ctx, doc.ID); err != nil {
			log.Printf("indexer: failed to clear old chunks for %s: %v", doc.Path, err)
		}

		chunks := chunker.PrepareChunks(doc, idx.cfg.MaxChunkChars, idx.cfg.ChunkOverlapChars)
		stats.ChunksCreated += len(chunks)

		for _, chunk := range chunks {
			pending = append(pending, pendingChunk{
				item: store.Item{
					ID:          types.ChunkID(doc.ID, chunk.Index),
					Content:     chunk.Text,
					DocType:     doc.DocType.String(),
					Path:        doc.Path,
					Title:       doc.Title,
					ContentHash: hash,
				},
				text: chunk.Text,
			})
			if len(pending) >= idx.cfg.BatchSize {
				idx.flush(ctx, pending, stats)
				pending = pending[:0]
			}
		}
	}
	if len(pending) > 0 {
		idx.flush(ctx, pending, stats)
	}

	if err := idx.pruneStale(ctx, liveBases); err != nil {
		log.Printf("indexer: stale pruning failed: %v", err)
	}

	log.Printf("indexer: pass over %s done in %v: %d discovered, %d skipped, %d chunks indexed, %d failed",
		root, time.Since(start).Round(time.Millisecond),
		stats.TotalDiscovered, stats.Skipped, stats.Indexed, stats.Failed)
	return stats, nil
}

// flush embeds and stores one batch. A batch failure marks its chunks
// failed and the run continues.
func (idx *DocumentIndexer) flush(ctx context.Context, batch []pendingChunk, stats *types.IndexStats) {
	texts := make([]string, len(batch))
	for i, p := range batch {
		texts[i] = p.text
	}

	vectors, err := idx.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		log.Printf("indexer: embedding batch of %d failed: %v", len(batch), err)
		stats.Failed += len(batch)
		return
	}

	items := make([]store.Item, len(batch))
	for i, p := range batch {
		p.item.Embedding = vectors[i]
		items[i] = p.item
	}
	if err := idx.store.StoreBatch(ctx, items); err != nil {
		log.Printf("indexer: storing batch of %d failed: %v", len(batch), err)
		stats.Failed += len(batch)
		return
	}
	stats.Indexed += len(batch)
}

// pruneStale removes chunk rows whose document no longer exists in the
// workspace, in a single batched delete.
func (idx *DocumentIndexer) pruneStale(ctx context.Context, liveBases map[string]bool) error {
	ids, err := idx.store.ListIDs(ctx)
	if err != nil {
		return err
	}

	staleSet := make(map[string]bool)
	for _, id := range ids {
		base, ok := types.SplitChunkID(id)
		if !ok {
			continue
		}
		if !liveBases[base] {
			staleSet[base] = true
		}
	}
	if len(staleSet) == 0 {
		return nil
	}

	stale := make([]string, 0, len(staleSet))
	for base := range staleSet {
		stale = append(stale, base)
	}
	n, err := idx.store.DeleteRaw(ctx, store.PrefixPredicate(stale))
	if err != nil {
		return err
	}
	log.Printf("indexer: pruned %d chunks from %d removed documents", n, len(stale))
	return nil
}
