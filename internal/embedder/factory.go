package embedder

import (
	"fmt"
	"os"
	"runtime"
	"strings"

	"github.com/harborai/docvector-mcp/internal/config"
)

// Environment variable names consulted by NewFromEnv.
const (
	EnvProvider  = "DOCVECTOR_EMBEDDING_PROVIDER"
	EnvOpenAIKey = "OPENAI_API_KEY"
	EnvOpenAIURL = "DOCVECTOR_OPENAI_URL"
)

// NewFromEnv creates an embedder based on environment variables.
// Priority:
//  1. DOCVECTOR_EMBEDDING_PROVIDER (openai, local)
//  2. OPENAI_API_KEY present -> openai
//  3. Default to the deterministic local model
func NewFromEnv(cfg *config.Config) (Embedder, error) {
	cache := NewCache(cfg.EmbedCacheSize)

	provider := strings.ToLower(os.Getenv(EnvProvider))
	switch provider {
	case ProviderOpenAI:
		return NewOpenAIEmbedder(os.Getenv(EnvOpenAIKey), os.Getenv(EnvOpenAIURL), cfg.EmbeddingDim, cache)
	case ProviderLocal:
		return newLocalGateway(cfg, cache), nil
	case "":
		// Auto-detect below.
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedProvider, provider)
	}

	if key := os.Getenv(EnvOpenAIKey); key != "" {
		return NewOpenAIEmbedder(key, os.Getenv(EnvOpenAIURL), cfg.EmbeddingDim, cache)
	}
	return newLocalGateway(cfg, cache), nil
}

// newLocalGateway wraps the CPU-bound local model in a worker-pool
// gateway sized to the machine.
func newLocalGateway(cfg *config.Config, cache *Cache) *Gateway {
	workers := runtime.NumCPU()
	if workers > 4 {
		workers = 4
	}
	return NewGateway(NewLocalModel(cfg.EmbeddingDim), workers, cache)
}
