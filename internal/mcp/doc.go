// Package mcp exposes the document vector index over the Model Context
// Protocol.
//
// Three tools are registered:
//
//   - index_workspace: crawl a workspace directory and bring the vector
//     index up to date with it. Re-runnable; unchanged documents are
//     skipped. Concurrent runs are rejected, not queued.
//   - search_documents: hybrid semantic + keyword search over the
//     indexed chunks, with optional doc type filtering and a per-call
//     similarity threshold.
//   - workspace_status: index row count, embedding dimension, and build
//     configuration.
//
// The server speaks the protocol on stdout, so all logging goes to
// stderr.
package mcp
