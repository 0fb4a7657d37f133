// Package store provides SQLite-backed persistence for document chunk
// vectors and their full-text index.
//
// A single table, document_vectors, holds one row per chunk: the chunk
// text, document metadata, the content hash of the whole source document,
// and the embedding serialized as a little-endian float32 blob. An FTS5
// virtual table shadows it for BM25 keyword search and is kept in sync
// by triggers.
//
// # Basic Usage
//
//	db, err := store.Open("~/.docvector/index.db", 384)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer db.Close()
//
//	err = db.StoreBatch(ctx, items)
//	matches, err := db.VectorSearch(ctx, queryVector, 40, nil)
//
// # Corruption Recovery
//
// Open is self-healing: when the database fails to open or migrate, the
// file and its WAL sidecars are deleted and a fresh database is created.
// The index is a derived artifact and can always be rebuilt from the
// workspace, so losing it is recoverable.
//
// # Build Tags
//
// Two build configurations are supported:
//
// CGO build (sqlite_vec tag) uses github.com/mattn/go-sqlite3 and
// computes cosine distance in SQL via the sqlite-vec extension:
//
//	CGO_ENABLED=1 go build -tags "sqlite_vec,fts5"
//
// Pure Go build uses modernc.org/sqlite and computes distances in Go:
//
//	CGO_ENABLED=0 go build
package store
