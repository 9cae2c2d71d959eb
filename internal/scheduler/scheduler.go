package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/seoscan/seoscan/internal/model"
)

// ErrNoSchedule is returned when a project without a cron expression is
// added to the scheduler.
var ErrNoSchedule = errors.New("scheduler: project has no schedule")

// RunFunc executes a full audit run for a project. The scheduler calls
// it once per cron firing; overlapping firings for the same project are
// serialized by cron's per-entry goroutine.
type RunFunc func(ctx context.Context, project *model.Project) error

// Scheduler triggers project runs on their cron schedules.
type Scheduler struct {
	cron   *cron.Cron
	run    RunFunc
	logger *slog.Logger

	mu      sync.Mutex
	entries map[string]cron.EntryID
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithLogger sets a custom logger for the scheduler.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Scheduler) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// New creates a Scheduler that invokes run on each cron firing.
//
// Schedules use the standard five-field cron syntax plus descriptors
// such as "@hourly" and "@every 30m".
func New(run RunFunc, opts ...Option) *Scheduler {
	s := &Scheduler{
		cron:    cron.New(),
		run:     run,
		logger:  slog.Default(),
		entries: make(map[string]cron.EntryID),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Add registers a project's schedule. If the project is already
// registered, the previous entry is replaced.
//
// Returns ErrNoSchedule when the project has no cron expression, or a
// parse error when the expression is invalid.
func (s *Scheduler) Add(project *model.Project) error {
	if project.Schedule == "" {
		return fmt.Errorf("%w: %s", ErrNoSchedule, project.Slug)
	}

	id, err := s.cron.AddFunc(project.Schedule, func() {
		start := time.Now()
		s.logger.Info("scheduled run starting", "project", project.Slug)

		if err := s.run(context.Background(), project); err != nil {
			s.logger.Error("scheduled run failed",
				"project", project.Slug,
				"error", err,
			)
			return
		}

		s.logger.Info("scheduled run completed",
			"project", project.Slug,
			"elapsed", time.Since(start),
		)
	})
	if err != nil {
		return fmt.Errorf("scheduler: invalid schedule %q for project %s: %w",
			project.Schedule, project.Slug, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if old, ok := s.entries[project.Slug]; ok {
		s.cron.Remove(old)
	}
	s.entries[project.Slug] = id

	return nil
}

// AddProjects registers every project that carries a schedule and
// returns the number registered. Projects without a schedule are
// skipped; an invalid expression aborts with an error.
func (s *Scheduler) AddProjects(projects []*model.Project) (int, error) {
	added := 0
	for _, project := range projects {
		err := s.Add(project)
		if errors.Is(err, ErrNoSchedule) {
			s.logger.Debug("project has no schedule, skipping", "project", project.Slug)
			continue
		}
		if err != nil {
			return added, err
		}
		added++
	}
	return added, nil
}

// Remove unregisters a project's schedule. It reports whether the
// project was registered.
func (s *Scheduler) Remove(slug string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	id, ok := s.entries[slug]
	if !ok {
		return false
	}
	s.cron.Remove(id)
	delete(s.entries, slug)
	return true
}

// ProjectCount returns the number of registered projects.
func (s *Scheduler) ProjectCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// Start begins the cron loop in its own goroutine.
func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop stops the cron loop and returns a context that is done when all
// in-flight runs have finished.
func (s *Scheduler) Stop() context.Context {
	return s.cron.Stop()
}

// Run starts the scheduler and blocks until ctx is cancelled, then
// waits for in-flight runs to finish before returning ctx's error.
func (s *Scheduler) Run(ctx context.Context) error {
	s.logger.Info("scheduler started", "projects", s.ProjectCount())
	s.cron.Start()

	<-ctx.Done()

	s.logger.Info("scheduler stopping, waiting for in-flight runs")
	<-s.cron.Stop().Done()

	return ctx.Err()
}

// ValidateSchedule reports whether spec is a valid cron expression.
// It accepts the same syntax as Add.
func ValidateSchedule(spec string) error {
	if _, err := cron.ParseStandard(spec); err != nil {
		return fmt.Errorf("scheduler: invalid schedule %q: %w", spec, err)
	}
	return nil
}
