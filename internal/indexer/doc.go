// Package indexer runs the incremental indexing pipeline for workspace
// documents.
//
// One pass executes: crawl -> hash gate -> chunk -> embed -> store.
//
// # Incremental Indexing
//
// Change detection hashes whole documents with SHA-256 and compares
// against the hash stored on the document's first chunk row:
//
//	stored := hashes[types.ChunkID(doc.ID, 0)]
//	if stored == contentHash(doc.Content) {
//	    skip(doc) // unchanged
//	}
//
// A changed document has its old chunk rows prefix-deleted before the
// fresh chunks are written, so a document that shrinks never leaves
// orphaned rows behind.
//
// # Batching
//
// Chunks are accumulated across documents and flushed through the
// embedder and store in batches of Config.BatchSize. A failed batch
// marks only its own chunks failed; the run continues with the next
// batch.
//
// # Stale Pruning
//
// After the pass, chunk rows whose document no longer exists in the
// workspace are removed in a single batched delete.
package indexer
