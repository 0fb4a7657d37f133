package store

import (
	"context"
	"errors"
)

var (
	// ErrNotFound is returned when a requested row doesn't exist
	ErrNotFound = errors.New("not found")
	// ErrDimensionMismatch is returned when an embedding's length differs
	// from the dimension the store was opened with
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")
)

// Item is one chunk row ready for persistence.
type Item struct {
	ID          string
	Content     string
	DocType     string
	Path        string
	Title       string
	ContentHash string
	Embedding   []float32
}

// VectorMatch is one nearest-neighbor hit. Distance is cosine distance,
// lower is closer; results are returned in ascending distance order.
type VectorMatch struct {
	ID       string
	Content  string
	DocType  string
	Path     string
	Title    string
	Distance float64
}

// TextMatch is one BM25 full-text hit. Score is the raw bm25() value
// (negative, lower is better); results are returned best-first.
type TextMatch struct {
	ID    string
	Score float64
}

// Row is a stored chunk fetched by ID.
type Row struct {
	ID          string
	Content     string
	DocType     string
	Path        string
	Title       string
	ContentHash string
}

// Store is the persistence boundary for document chunk vectors.
type Store interface {
	// StoreBatch upserts all items in one transaction. Every embedding
	// must match the store's dimension; a bad item fails the whole batch
	// before any row is written.
	StoreBatch(ctx context.Context, items []Item) error

	// Store upserts a single item.
	Store(ctx context.Context, item Item) error

	// Delete removes the rows with the given IDs. Missing IDs are not
	// an error.
	Delete(ctx context.Context, ids []string) error

	// DeleteByPrefix removes every row whose ID starts with prefix and
	// reports how many rows went away. LIKE metacharacters in the prefix
	// are treated literally.
	DeleteByPrefix(ctx context.Context, prefix string) (int64, error)

	// DeleteRaw removes rows matching a caller-built WHERE predicate.
	// Predicates must be assembled with the quoting helpers in this
	// package, never from raw user input.
	DeleteRaw(ctx context.Context, predicate string) (int64, error)

	// FetchByIDs returns the stored rows for the given IDs, keyed by ID.
	// Missing IDs are simply absent from the map.
	FetchByIDs(ctx context.Context, ids []string) (map[string]Row, error)

	// FetchContentHashes returns the content hash for each of the given
	// IDs that exists, keyed by ID.
	FetchContentHashes(ctx context.Context, ids []string) (map[string]string, error)

	// ListIDs returns every chunk ID in the store.
	ListIDs(ctx context.Context) ([]string, error)

	// Count returns the number of chunk rows.
	Count(ctx context.Context) (int64, error)

	// VectorSearch returns up to limit nearest neighbors of queryVector
	// by cosine distance, optionally restricted to the given doc types.
	VectorSearch(ctx context.Context, queryVector []float32, limit int, docTypes []string) ([]VectorMatch, error)

	// TextSearch runs a BM25 full-text query over chunk content and
	// titles, optionally restricted to the given doc types.
	TextSearch(ctx context.Context, query string, limit int, docTypes []string) ([]TextMatch, error)

	// CreateIndexes (re)builds the full-text index. Safe to call on
	// every startup.
	CreateIndexes(ctx context.Context) error

	// Optimize compacts the database. Failures are non-fatal and only
	// logged by callers.
	Optimize(ctx context.Context) error

	// Dimension returns the embedding dimension rows are validated
	// against.
	Dimension() int

	Close() error
}
