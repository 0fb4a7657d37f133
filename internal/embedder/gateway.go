package embedder

import (
	"context"
	"fmt"
	"sync"
)

// Model is a blocking, CPU-bound embedding backend. Implementations must
// tolerate concurrent Embed calls on a shared handle; the gateway adds no
// serialization of its own.
type Model interface {
	Embed(texts []string) ([][]float32, error)
	Dimension() int
}

// Gateway adapts a blocking Model to the async Embedder interface by
// dispatching calls to a fixed pool of worker goroutines. Callers never
// block the scheduler on model compute: they suspend on a channel until
// a worker finishes or the context is done.
type Gateway struct {
	model   Model
	jobs    chan gatewayJob
	cache   *Cache
	wg      sync.WaitGroup
	closeMu sync.Mutex
	closed  bool
}

type gatewayJob struct {
	texts []string
	reply chan<- gatewayResult
}

type gatewayResult struct {
	vectors [][]float32
	err     error
}

// NewGateway starts workers goroutines serving embedding jobs against the
// shared model handle. cache may be nil to disable caching.
func NewGateway(model Model, workers int, cache *Cache) *Gateway {
	if workers <= 0 {
		workers = 1
	}
	g := &Gateway{
		model: model,
		jobs:  make(chan gatewayJob),
		cache: cache,
	}
	g.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go g.worker()
	}
	return g
}

func (g *Gateway) worker() {
	defer g.wg.Done()
	for job := range g.jobs {
		vectors, err := g.model.Embed(job.texts)
		if err == nil {
			err = validateVectors(vectors, len(job.texts), g.model.Dimension())
		}
		job.reply <- gatewayResult{vectors: vectors, err: err}
	}
}

// EmbedBatch embeds all texts, serving cache hits locally and sending
// only the misses through the worker pool. The batch either fully
// succeeds or fails as a whole.
func (g *Gateway) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if err := validateBatch(texts); err != nil {
		return nil, err
	}

	out := make([][]float32, len(texts))
	var missTexts []string
	var missIdx []int
	for i, text := range texts {
		if g.cache != nil {
			if v, ok := g.cache.Get(ComputeHash(text)); ok {
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

	reply := make(chan gatewayResult, 1)
	select {
	case g.jobs <- gatewayJob{texts: missTexts, reply: reply}:
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	var res gatewayResult
	select {
	case res = <-reply:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	if res.err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEmbeddingFailed, res.err)
	}

	for j, i := range missIdx {
		out[i] = res.vectors[j]
		if g.cache != nil {
			g.cache.Set(ComputeHash(missTexts[j]), res.vectors[j])
		}
	}
	return out, nil
}

// EmbedOne embeds a single text.
func (g *Gateway) EmbedOne(ctx context.Context, text string) ([]float32, error) {
	vectors, err := g.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

// Dimension returns the model's fixed vector dimension.
func (g *Gateway) Dimension() int {
	return g.model.Dimension()
}

// Close stops the worker pool. In-flight jobs complete; subsequent calls
// to EmbedBatch will panic and indicate a caller lifecycle bug.
func (g *Gateway) Close() error {
	g.closeMu.Lock()
	defer g.closeMu.Unlock()
	if !g.closed {
		g.closed = true
		close(g.jobs)
		g.wg.Wait()
	}
	return nil
}
