// Package types defines the shared domain types for workspace document
// indexing and search: document classification, crawled documents, text
// chunks prepared for embedding, search results, and indexing statistics.
//
// These types are intentionally free of storage or transport concerns so
// that the crawler, chunker, indexer, store, and searcher packages can all
// share them without import cycles.
package types
