package embedder

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"sort"
	"time"
)

// Provider configuration
const (
	ProviderOpenAI = "openai"
	ProviderLocal  = "local"

	DefaultOpenAIModel = "text-embedding-3-small"
	DefaultOpenAIURL   = "https://api.openai.com/v1/embeddings"

	// Retry configuration
	MaxRetries        = 3
	InitialBackoffMs  = 100
	MaxBackoffMs      = 5000
	BackoffMultiplier = 2.0
)

// LocalModel is a deterministic, dependency-free embedding backend. The
// vector is derived from the SHA-256 digest of the text and normalized to
// unit length, so identical texts always map to identical vectors and
// cosine distances are well behaved. It stands in for a real local model
// and is what tests run against.
type LocalModel struct {
	dimension int
}

// NewLocalModel creates a local model with the given vector dimension.
func NewLocalModel(dimension int) *LocalModel {
	return &LocalModel{dimension: dimension}
}

// Embed generates one deterministic vector per text. The call is
// CPU-bound and safe for concurrent use.
func (m *LocalModel) Embed(texts []string) ([][]float32, error) {
	vectors := make([][]float32, len(texts))
	for i, text := range texts {
		if text == "" {
			return nil, fmt.Errorf("%w: text at index %d", ErrEmptyText, i)
		}
		vectors[i] = m.embedOne(text)
	}
	return vectors, nil
}

func (m *LocalModel) embedOne(text string) []float32 {
	hash := sha256.Sum256([]byte(text))
	vector := make([]float32, m.dimension)
	for i := range vector {
		idx := (i * 4) % (len(hash) - 3)
		val := binary.BigEndian.Uint32(hash[idx : idx+4])
		// Mix in the position so dimensions beyond the digest length still
		// vary, then normalize to [-1, 1].
		val ^= uint32(i) * 0x9e3779b9
		vector[i] = (float32(val)/float32(math.MaxUint32))*2 - 1
	}

	var sum float64
	for _, v := range vector {
		sum += float64(v) * float64(v)
	}
	if sum > 0 {
		inv := float32(1.0 / math.Sqrt(sum))
		for i := range vector {
			vector[i] *= inv
		}
	}
	return vector
}

// Dimension returns the fixed vector dimension.
func (m *LocalModel) Dimension() int {
	return m.dimension
}

// OpenAIEmbedder calls an OpenAI-compatible embeddings endpoint. It is
// I/O-bound, so it implements Embedder directly without a worker pool.
type OpenAIEmbedder struct {
	apiKey     string
	baseURL    string
	model      string
	dimension  int
	httpClient *http.Client
	cache      *Cache
}

// NewOpenAIEmbedder creates an embedder against an OpenAI-compatible
// endpoint. The requested dimension is passed to the API so responses
// always match the configured store dimension.
func NewOpenAIEmbedder(apiKey, baseURL string, dimension int, cache *Cache) (*OpenAIEmbedder, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("%w: OPENAI_API_KEY not set", ErrNoProviderEnabled)
	}
	if baseURL == "" {
		baseURL = DefaultOpenAIURL
	}
	return &OpenAIEmbedder{
		apiKey:    apiKey,
		baseURL:   baseURL,
		model:     DefaultOpenAIModel,
		dimension: dimension,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		cache: cache,
	}, nil
}

// EmbedBatch embeds all texts with retry and exponential backoff. Cached
// texts are served locally; the remainder go out in one API call.
func (e *OpenAIEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if err := validateBatch(texts); err != nil {
		return nil, err
	}

	out := make([][]float32, len(texts))
	var missTexts []string
	var missIdx []int
	for i, text := range texts {
		if e.cache != nil {
			if v, ok := e.cache.Get(ComputeHash(text)); ok {
				out[i] = v
				continue
			}
		}
		missTexts = append(missTexts, text)
		missIdx = append(missIdx, i)
	}
	if len(missTexts) == 0 {
		return out, nil
	}

	cfg := DefaultRetryConfig()
	vectors, err := retryWithBackoff(ctx, cfg, func() ([][]float32, error) {
		return e.callAPI(ctx, missTexts)
	})
	if err != nil {
		return nil, fmt.Errorf("%w after %d attempts: %v", ErrEmbeddingFailed, cfg.MaxRetries, err)
	}
	if err := validateVectors(vectors, len(missTexts), e.dimension); err != nil {
		return nil, err
	}

	for j, i := range missIdx {
		out[i] = vectors[j]
		if e.cache != nil {
			e.cache.Set(ComputeHash(missTexts[j]), vectors[j])
		}
	}
	return out, nil
}

// EmbedOne embeds a single text.
func (e *OpenAIEmbedder) EmbedOne(ctx context.Context, text string) ([]float32, error) {
	vectors, err := e.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

// Dimension returns the fixed vector dimension.
func (e *OpenAIEmbedder) Dimension() int {
	return e.dimension
}

// Close releases resources. The shared http.Client needs no teardown.
func (e *OpenAIEmbedder) Close() error {
	return nil
}

type openAIRequest struct {
	Model      string   `json:"model"`
	Input      []string `json:"input"`
	Dimensions int      `json:"dimensions,omitempty"`
}

type openAIResponse struct {
	Data []struct {
		Index     int       `json:"index"`
		Embedding []float32 `json:"embedding"`
	} `json:"data"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

func (e *OpenAIEmbedder) callAPI(ctx context.Context, texts []string) ([][]float32, error) {
	body, err := json.Marshal(openAIRequest{
		Model:      e.model,
		Input:      texts,
		Dimensions: e.dimension,
	})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.baseURL, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+e.apiKey)

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("embeddings API returned %d: %s", resp.StatusCode, truncateBody(data))
	}

	var parsed openAIResponse
	if err := json.Unmarshal(data, &parsed); err != nil {
		return nil, fmt.Errorf("failed to decode embeddings response: %w", err)
	}
	if parsed.Error != nil {
		return nil, fmt.Errorf("embeddings API error: %s", parsed.Error.Message)
	}

	// The API may return entries out of order; index is authoritative.
	sort.Slice(parsed.Data, func(i, j int) bool {
		return parsed.Data[i].Index < parsed.Data[j].Index
	})
	vectors := make([][]float32, len(parsed.Data))
	for i, d := range parsed.Data {
		vectors[i] = d.Embedding
	}
	return vectors, nil
}

func truncateBody(data []byte) string {
	const max = 256
	if len(data) > max {
		return string(data[:max]) + "..."
	}
	return string(data)
}
