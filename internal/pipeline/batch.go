package pipeline

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/seoscan/seoscan/internal/model"
)

// BatchProcessor handles concurrent processing of multiple projects.
// It uses errgroup to manage goroutines and respect concurrency limits.
//
// Design decision: We use a separate BatchProcessor rather than adding
// batch functionality to Pipeline because:
// 1. It keeps the Pipeline focused on single-run execution
// 2. It allows different batch strategies (e.g., rate limiting, retries)
// 3. It provides cleaner separation of concerns
//
// The limit applies across projects only; each project's crawl remains
// one fetch at a time.
type BatchProcessor struct {
	// pipelineFactory creates a new pipeline for each run.
	// A factory ensures each run gets a fresh pipeline instance.
	pipelineFactory func() *Pipeline

	// concurrency is the maximum number of concurrent project runs.
	concurrency int

	// logger is used for batch-level logging.
	logger *slog.Logger

	// results stores completed run states.
	// Access is synchronized via mutex.
	results []*RunState
	mu      sync.Mutex
}

// BatchOption configures a BatchProcessor.
type BatchOption func(*BatchProcessor)

// WithBatchLogger sets a custom logger for batch processing.
func WithBatchLogger(logger *slog.Logger) BatchOption {
	return func(b *BatchProcessor) {
		b.logger = logger
	}
}

// WithConcurrency sets the maximum number of concurrent project runs.
// Default is 4 if not specified.
func WithConcurrency(n int) BatchOption {
	return func(b *BatchProcessor) {
		if n > 0 {
			b.concurrency = n
		}
	}
}

// NewBatchProcessor creates a new BatchProcessor.
//
// The pipelineFactory function is called for each run to create a fresh
// pipeline instance. This ensures that pipeline state doesn't leak
// between runs and allows for per-run customization if needed.
func NewBatchProcessor(pipelineFactory func() *Pipeline, opts ...BatchOption) *BatchProcessor {
	bp := &BatchProcessor{
		pipelineFactory: pipelineFactory,
		concurrency:     4,
		results:         make([]*RunState, 0),
	}

	for _, opt := range opts {
		opt(bp)
	}

	if bp.logger == nil {
		bp.logger = slog.Default()
	}

	return bp
}

// ProcessBatch runs the pipeline for multiple projects concurrently.
// It respects the configured concurrency limit and context
// cancellation.
//
// Design decision: We use errgroup.SetLimit rather than a worker pool
// because it's simpler and errgroup handles the concurrency correctly.
// Each project gets its own goroutine, but only 'concurrency'
// goroutines run simultaneously.
//
// Returns all run states collected, even for projects that failed.
// The error return indicates if the batch was cancelled.
func (bp *BatchProcessor) ProcessBatch(ctx context.Context, projects []*model.Project) ([]*RunState, error) {
	bp.logger.Info("starting batch processing",
		"total_projects", len(projects),
		"concurrency", bp.concurrency,
	)

	startTime := time.Now()

	// Pre-allocate results slice to maintain order
	bp.results = make([]*RunState, len(projects))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(bp.concurrency)

	for i, project := range projects {
		g.Go(func() error {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}

			bp.logger.Info("processing project",
				"project", project.Slug,
				"index", i+1,
				"total", len(projects),
			)

			state := NewRunState(project)
			pipeline := bp.pipelineFactory()
			err := pipeline.Execute(ctx, state)

			// Store the state regardless of error; it carries the
			// failure message when the run failed.
			bp.mu.Lock()
			bp.results[i] = state
			bp.mu.Unlock()

			if err != nil {
				bp.logger.Warn("project run failed",
					"project", project.Slug,
					"error", err,
				)
				// Don't return the error to the errgroup - other
				// projects should still run.
				return nil
			}

			bp.logger.Info("project run completed",
				"project", project.Slug,
				"run_id", state.RunID,
			)

			return nil
		})
	}

	err := g.Wait()

	elapsed := time.Since(startTime)
	bp.logger.Info("batch processing complete",
		"total_projects", len(projects),
		"elapsed", elapsed,
	)

	return bp.results, err
}

// ProcessBatchWithCallback runs the pipeline for multiple projects and
// calls a callback for each completed run. This is useful for streaming
// results.
//
// The callback receives the run state and the index of the project in
// the original slice. It is called from the goroutine that completed
// the run, so it must be thread-safe if it accesses shared state.
func (bp *BatchProcessor) ProcessBatchWithCallback(
	ctx context.Context,
	projects []*model.Project,
	callback func(state *RunState, index int),
) error {
	bp.logger.Info("starting batch processing with callback",
		"total_projects", len(projects),
		"concurrency", bp.concurrency,
	)

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(bp.concurrency)

	for i, project := range projects {
		g.Go(func() error {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}

			state := NewRunState(project)
			pipeline := bp.pipelineFactory()
			_ = pipeline.Execute(ctx, state) //nolint:errcheck // Error is stored in the state

			callback(state, i)

			return nil
		})
	}

	return g.Wait()
}
