package pipeline

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"
)

// DefaultConcurrency is used when no concurrency is configured.
const DefaultConcurrency = 4

// BatchProcessor runs independent units concurrently.
// It uses errgroup to manage goroutines and respect the concurrency limit.
//
// Design decision: Units report failure through their own results, so the
// unit function returns nothing and one failed unit can never cancel the
// group. Callers index their result slices by unit position, which keeps
// results in input order regardless of completion order.
type BatchProcessor struct {
	// concurrency is the maximum number of units in flight.
	concurrency int

	// logger is used for batch-level logging.
	logger *slog.Logger
}

// BatchOption configures a BatchProcessor.
type BatchOption func(*BatchProcessor)

// WithBatchLogger sets a custom logger for batch processing.
func WithBatchLogger(logger *slog.Logger) BatchOption {
	return func(b *BatchProcessor) {
		b.logger = logger
	}
}

// WithConcurrency sets the maximum number of concurrent units.
// Non-positive values keep the default.
func WithConcurrency(n int) BatchOption {
	return func(b *BatchProcessor) {
		if n > 0 {
			b.concurrency = n
		}
	}
}

// NewBatchProcessor creates a new BatchProcessor.
func NewBatchProcessor(opts ...BatchOption) *BatchProcessor {
	bp := &BatchProcessor{
		concurrency: DefaultConcurrency,
	}

	for _, opt := range opts {
		opt(bp)
	}

	if bp.logger == nil {
		bp.logger = slog.Default()
	}

	return bp
}

// Concurrency returns the configured concurrency limit.
func (bp *BatchProcessor) Concurrency() int {
	return bp.concurrency
}

// Process calls fn once for every index in [0, n), running at most
// Concurrency calls at a time, and waits for all of them.
//
// Every unit is started even when ctx is cancelled: the unit itself turns
// the cancellation into a failed result, so no position is left empty.
// The returned error is ctx.Err() after all units finished.
func (bp *BatchProcessor) Process(ctx context.Context, n int, fn func(ctx context.Context, i int)) error {
	if n == 0 {
		return ctx.Err()
	}

	bp.logger.Debug("starting batch processing",
		"total_units", n,
		"concurrency", bp.concurrency,
	)
	startTime := time.Now()

	var g errgroup.Group
	g.SetLimit(bp.concurrency)

	for i := range n {
		g.Go(func() error {
			fn(ctx, i)
			return nil
		})
	}

	_ = g.Wait() //nolint:errcheck // unit functions never return errors

	bp.logger.Debug("batch processing complete",
		"total_units", n,
		"elapsed", time.Since(startTime),
	)

	return ctx.Err()
}
