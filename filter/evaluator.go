package filter

import (
	"context"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/s0up4200/missionctl/transmission"
)

// DefaultBatchSize is the list length below which evaluation stays sequential
const DefaultBatchSize = 256

// EvaluatorOption configures an evaluator
type EvaluatorOption func(*ConcurrentEvaluator)

// WithWorkers sets the number of chunks evaluated at once
func WithWorkers(workers int) EvaluatorOption {
	return func(e *ConcurrentEvaluator) {
		if workers > 0 {
			e.workers = workers
		}
	}
}

// WithBatchSize sets the minimum chunk size
func WithBatchSize(size int) EvaluatorOption {
	return func(e *ConcurrentEvaluator) {
		if size > 0 {
			e.batchSize = size
		}
	}
}

// ConcurrentEvaluator splits large lists into chunks evaluated on an errgroup
type ConcurrentEvaluator struct {
	workers   int
	batchSize int
}

// NewConcurrentEvaluator creates a new concurrent evaluator
func NewConcurrentEvaluator(opts ...EvaluatorOption) *ConcurrentEvaluator {
	e := &ConcurrentEvaluator{
		workers:   runtime.GOMAXPROCS(0),
		batchSize: DefaultBatchSize,
	}

	for _, opt := range opts {
		opt(e)
	}

	return e
}

// Evaluate returns the transfers matching filter, in their original order
func (e *ConcurrentEvaluator) Evaluate(ctx context.Context, filter CompiledFilter, torrents []transmission.Torrent) ([]transmission.Torrent, error) {
	if len(torrents) == 0 {
		return []transmission.Torrent{}, nil
	}

	if len(torrents) < e.batchSize || e.workers == 1 {
		return matchAll(filter, torrents), nil
	}

	chunkSize := max(len(torrents)/e.workers, e.batchSize)
	chunks := make([][]transmission.Torrent, (len(torrents)+chunkSize-1)/chunkSize)

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(e.workers)

	for i := range chunks {
		start := i * chunkSize
		end := min(start+chunkSize, len(torrents))

		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			chunks[i] = matchAll(filter, torrents[start:end])
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	total := 0
	for _, c := range chunks {
		total += len(c)
	}
	matches := make([]transmission.Torrent, 0, total)
	for _, c := range chunks {
		matches = append(matches, c...)
	}
	return matches, nil
}

func matchAll(filter CompiledFilter, torrents []transmission.Torrent) []transmission.Torrent {
	matches := make([]transmission.Torrent, 0, len(torrents))
	for _, t := range torrents {
		if filter.Evaluate(t) {
			matches = append(matches, t)
		}
	}
	return matches
}
