package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/pelletier/go-toml/v2"
)

// Config controls the vector indexing and search pipeline. It is loaded
// once at startup and treated as immutable for the life of the process.
type Config struct {
	// EmbeddingDim is the fixed embedding dimension. Every stored vector
	// and every query vector must match it exactly.
	EmbeddingDim int `toml:"embedding_dim"`
	// BatchSize is the number of chunks embedded and stored per batch.
	BatchSize int `toml:"batch_size"`
	// MaxResults is the default maximum number of search results.
	MaxResults int `toml:"max_results"`
	// SimilarityThreshold is the default minimum combined score.
	SimilarityThreshold float32 `toml:"similarity_threshold"`
	// SemanticWeight balances vector vs keyword scoring in hybrid search.
	// 0.0 is pure keyword, 1.0 is pure semantic.
	SemanticWeight float32 `toml:"semantic_weight"`
	// MaxChunkChars bounds the raw text length of a single chunk.
	MaxChunkChars int `toml:"max_chunk_chars"`
	// ChunkOverlapChars bounds the overlap excerpt carried between chunks.
	ChunkOverlapChars int `toml:"chunk_overlap_chars"`
	// MaxFileSize is the largest file the crawler will index, in bytes.
	// Larger files are treated as generated or binary and skipped.
	MaxFileSize int64 `toml:"max_file_size"`
	// IndexableExtensions is the file extension allowlist (no leading dot).
	IndexableExtensions []string `toml:"indexable_extensions"`
	// EmbedCacheSize bounds the LRU cache of computed embeddings.
	EmbedCacheSize int `toml:"embed_cache_size"`
	// QueryCacheSize bounds the LRU cache of search responses.
	QueryCacheSize int `toml:"query_cache_size"`
}

// Default returns the reference deployment configuration.
func Default() *Config {
	return &Config{
		EmbeddingDim:        384,
		BatchSize:           32,
		MaxResults:          10,
		SimilarityThreshold: 0.5,
		SemanticWeight:      0.7,
		MaxChunkChars:       2000,
		ChunkOverlapChars:   200,
		MaxFileSize:         512 * 1024,
		IndexableExtensions: []string{
			"md", "toml", "txt", "json", "yaml", "yml",
			"go", "rs", "ts", "tsx", "js", "jsx", "py", "sh", "css", "html",
		},
		EmbedCacheSize: 10000,
		QueryCacheSize: 1000,
	}
}

// Load reads a TOML config file and merges it over the defaults. A missing
// file is not an error; the defaults are returned unchanged.
func Load(path string) (*Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config in %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks that the configuration is internally consistent.
func (c *Config) Validate() error {
	if c.EmbeddingDim <= 0 {
		return fmt.Errorf("embedding_dim must be positive, got %d", c.EmbeddingDim)
	}
	if c.BatchSize <= 0 {
		return fmt.Errorf("batch_size must be positive, got %d", c.BatchSize)
	}
	if c.MaxResults <= 0 {
		return fmt.Errorf("max_results must be positive, got %d", c.MaxResults)
	}
	if c.SimilarityThreshold < 0 || c.SimilarityThreshold > 1 {
		return fmt.Errorf("similarity_threshold must be in [0,1], got %g", c.SimilarityThreshold)
	}
	if c.SemanticWeight < 0 || c.SemanticWeight > 1 {
		return fmt.Errorf("semantic_weight must be in [0,1], got %g", c.SemanticWeight)
	}
	if c.MaxChunkChars <= 0 {
		return fmt.Errorf("max_chunk_chars must be positive, got %d", c.MaxChunkChars)
	}
	if c.ChunkOverlapChars < 0 || c.ChunkOverlapChars >= c.MaxChunkChars {
		return fmt.Errorf("chunk_overlap_chars must be in [0, max_chunk_chars), got %d", c.ChunkOverlapChars)
	}
	if c.MaxFileSize <= 0 {
		return fmt.Errorf("max_file_size must be positive, got %d", c.MaxFileSize)
	}
	if len(c.IndexableExtensions) == 0 {
		return errors.New("indexable_extensions must not be empty")
	}
	return nil
}

// Indexable reports whether a file extension (without the leading dot) is
// on the allowlist.
func (c *Config) Indexable(ext string) bool {
	for _, e := range c.IndexableExtensions {
		if e == ext {
			return true
		}
	}
	return false
}
