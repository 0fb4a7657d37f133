// Package embedder generates fixed-dimension vector embeddings for text.
//
// The Embedder interface is async and batch-oriented: one vector per
// input, order preserved, whole-batch failure semantics. Two backends are
// provided:
//
//   - Gateway wraps a blocking, CPU-bound Model (such as LocalModel)
//     behind a fixed worker-goroutine pool so model compute never blocks
//     the caller's scheduler.
//   - OpenAIEmbedder calls an OpenAI-compatible HTTP endpoint with retry
//     and exponential backoff.
//
// Both backends share an LRU cache keyed by the SHA-256 digest of the
// text, so re-indexing unchanged content costs no model calls.
//
//	emb, err := embedder.NewFromEnv(cfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer emb.Close()
//	vectors, err := emb.EmbedBatch(ctx, texts)
package embedder
