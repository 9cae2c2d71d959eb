package pipeline

import (
	"context"
	"log/slog"

	"github.com/seoscan/seoscan/internal/model"
)

// RunState carries the accumulated state of one run through the
// pipeline. Steps read what earlier steps produced and record their own
// results on it.
type RunState struct {
	// Project is the project being processed.
	Project *model.Project

	// RunID identifies the run. Empty until the seed step creates it.
	RunID string

	// Seeded is the number of URLs enqueued at run start.
	Seeded int

	// Processed is the number of queue items handled by the crawl step.
	Processed int

	// Drained reports whether the crawl step emptied the queue.
	Drained bool

	// Audit is the audit record, set by the audit step.
	Audit *model.AuditRecord

	// StepsRun lists the names of executed steps in order.
	StepsRun []string

	// Err is the message of the first step failure, empty on success.
	Err string
}

// NewRunState creates the initial state for one project run.
func NewRunState(project *model.Project) *RunState {
	return &RunState{Project: project}
}

// Step defines the interface that all pipeline steps must implement.
// Steps are executed in sequence, each receiving the accumulated run
// state from previous steps.
//
// Design decision: We use an interface rather than function types because:
// 1. It allows steps to carry configuration state
// 2. It provides a Name() method for logging and debugging
// 3. It's more extensible for future features (e.g., priority, dependencies)
type Step interface {
	// Do executes the pipeline step.
	// It receives the context for cancellation and the run state to
	// modify. Returns an error if the step fails critically;
	// non-critical conditions should be recorded on the state and
	// return nil.
	Do(ctx context.Context, state *RunState) error

	// Name returns the step's name for logging purposes.
	Name() string
}

// Pipeline orchestrates the execution of multiple steps.
// It maintains a list of steps and executes them in order.
type Pipeline struct {
	// steps contains the ordered list of steps to execute.
	steps []Step

	// logger is used for structured logging during execution.
	logger *slog.Logger

	// continueOnError determines whether to continue executing steps
	// after one fails. If false, the pipeline stops on first error.
	continueOnError bool
}

// Option is a function that configures a Pipeline.
// This follows the functional options pattern for clean API design.
type Option func(*Pipeline)

// WithLogger sets a custom logger for the pipeline.
// If not set, the default logger is used.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) {
		p.logger = logger
	}
}

// WithContinueOnError configures the pipeline to continue execution
// even when a step fails. Failed steps are logged and their errors are
// recorded on the run state, but subsequent steps still execute.
//
// The default is to stop on error because early failures usually mean
// later steps have nothing to work with (no run directory, no pages).
func WithContinueOnError(continueOnError bool) Option {
	return func(p *Pipeline) {
		p.continueOnError = continueOnError
	}
}

// New creates a new Pipeline with the given options.
// Steps should be added using AddStep after creation.
func New(opts ...Option) *Pipeline {
	p := &Pipeline{
		steps: make([]Step, 0),
	}

	for _, opt := range opts {
		opt(p)
	}

	if p.logger == nil {
		p.logger = slog.Default()
	}

	return p
}

// AddStep appends a step to the pipeline.
// Steps are executed in the order they are added.
func (p *Pipeline) AddStep(step Step) {
	p.steps = append(p.steps, step)
}

// AddSteps appends multiple steps to the pipeline.
func (p *Pipeline) AddSteps(steps ...Step) {
	p.steps = append(p.steps, steps...)
}

// Execute runs all pipeline steps in sequence.
// It respects context cancellation and logs each step's execution.
//
// Design decision: We check context.Done() before each step rather than
// during, because steps should handle their own timeouts. This allows
// graceful cleanup between steps while still respecting cancellation.
//
// Returns the first error encountered if continueOnError is false, or
// nil if all steps complete (errors are recorded on the state).
func (p *Pipeline) Execute(ctx context.Context, state *RunState) error {
	for _, step := range p.steps {
		select {
		case <-ctx.Done():
			p.logger.Warn("pipeline cancelled",
				"step", step.Name(),
				"reason", ctx.Err(),
			)
			state.Err = ctx.Err().Error()
			return ctx.Err()
		default:
		}

		p.logger.Info("executing step",
			"step", step.Name(),
			"project", state.Project.Slug,
		)

		if err := step.Do(ctx, state); err != nil {
			p.logger.Error("step failed",
				"step", step.Name(),
				"project", state.Project.Slug,
				"error", err,
			)

			if state.Err == "" {
				state.Err = err.Error()
			}

			if !p.continueOnError {
				return err
			}
		} else {
			p.logger.Debug("step completed",
				"step", step.Name(),
				"project", state.Project.Slug,
			)
		}

		state.StepsRun = append(state.StepsRun, step.Name())
	}

	return nil
}

// StepCount returns the number of steps in the pipeline.
func (p *Pipeline) StepCount() int {
	return len(p.steps)
}

// StepNames returns the names of all steps in execution order.
func (p *Pipeline) StepNames() []string {
	names := make([]string, len(p.steps))
	for i, step := range p.steps {
		names[i] = step.Name()
	}
	return names
}
