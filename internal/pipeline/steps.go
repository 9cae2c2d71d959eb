package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/seoscan/seoscan/internal/audit"
	"github.com/seoscan/seoscan/internal/crawler"
	"github.com/seoscan/seoscan/internal/database"
	"github.com/seoscan/seoscan/internal/model"
	"github.com/seoscan/seoscan/internal/queue"
	"github.com/seoscan/seoscan/internal/report"
	"github.com/seoscan/seoscan/internal/storage"
)

// ErrNoAudit is returned by steps that need an audit record when no
// earlier step produced one.
var ErrNoAudit = errors.New("no audit record in run state")

// ErrNoSeeds is returned when queue initialization enqueues zero seed
// URLs, e.g. every seed blank or matching an exclude pattern. A run
// with nothing to crawl fails up front instead of producing an empty
// audit.
var ErrNoSeeds = errors.New("no seed URLs could be enqueued")

// SeedStep creates the run, initializes its queue, and enqueues the
// project's seed URLs.
type SeedStep struct {
	store *storage.Store
	now   func() time.Time
}

// NewSeedStep creates a SeedStep on top of a store.
func NewSeedStep(store *storage.Store) *SeedStep {
	return &SeedStep{
		store: store,
		now:   time.Now,
	}
}

// Name returns the step name.
func (s *SeedStep) Name() string { return "seed" }

// Do creates a run ID when the state has none, prepares the run
// directories, and seeds the queue.
func (s *SeedStep) Do(_ context.Context, state *RunState) error {
	now := s.now().UTC()
	if state.RunID == "" {
		state.RunID = model.NewRunID(now)
	}

	q := queue.New(s.store, state.Project, state.RunID)
	seeded, err := q.Init(state.Project.Seeds(), now)
	if err != nil {
		return fmt.Errorf("failed to seed run %s: %w", state.RunID, err)
	}

	state.Seeded = seeded
	if seeded == 0 {
		return fmt.Errorf("run %s: %w", state.RunID, ErrNoSeeds)
	}
	return nil
}

// CrawlStep drains the run's queue: fetch, analyze, persist, and
// re-enqueue discovered links until the queue is empty or the step
// budget runs out.
type CrawlStep struct {
	store    *storage.Store
	fetcher  *crawler.Fetcher
	maxSteps int
	logger   *slog.Logger
}

// NewCrawlStep creates a CrawlStep. maxSteps caps the number of fetches
// for this invocation; 0 means run until the queue drains.
func NewCrawlStep(store *storage.Store, fetcher *crawler.Fetcher, maxSteps int, logger *slog.Logger) *CrawlStep {
	if logger == nil {
		logger = slog.Default()
	}
	return &CrawlStep{
		store:    store,
		fetcher:  fetcher,
		maxSteps: maxSteps,
		logger:   logger,
	}
}

// Name returns the step name.
func (s *CrawlStep) Name() string { return "crawl" }

// Do processes the run's queue with a single-fetch worker.
func (s *CrawlStep) Do(ctx context.Context, state *RunState) error {
	profile, err := crawler.NewProfile(state.Project.BaseURL)
	if err != nil {
		return fmt.Errorf("failed to build crawl profile: %w", err)
	}

	q := queue.New(s.store, state.Project, state.RunID)
	worker := crawler.NewWorker(
		s.store, q, s.fetcher, profile, state.Project, state.RunID,
		crawler.WithLogger(s.logger),
	)

	processed, drained, err := worker.ProcessQueue(ctx, s.maxSteps)
	state.Processed = processed
	state.Drained = drained
	if err != nil {
		return fmt.Errorf("crawl of run %s failed after %d items: %w", state.RunID, processed, err)
	}

	if !drained {
		s.logger.Info("crawl budget exhausted, queue not drained",
			"project", state.Project.Slug,
			"run_id", state.RunID,
			"processed", processed,
		)
	}
	return nil
}

// AuditStep evaluates the SEO rule set over the run's persisted pages
// and stores the aggregate record.
type AuditStep struct {
	store  *storage.Store
	logger *slog.Logger
}

// NewAuditStep creates an AuditStep on top of a store.
func NewAuditStep(store *storage.Store, logger *slog.Logger) *AuditStep {
	if logger == nil {
		logger = slog.Default()
	}
	return &AuditStep{
		store:  store,
		logger: logger,
	}
}

// Name returns the step name.
func (s *AuditStep) Name() string { return "audit" }

// Do runs the audit and records the result on the state.
func (s *AuditStep) Do(_ context.Context, state *RunState) error {
	runner := audit.NewRunner(s.store, audit.WithLogger(s.logger))
	record, err := runner.Run(state.Project.Slug, state.RunID)
	if err != nil {
		return fmt.Errorf("audit of run %s failed: %w", state.RunID, err)
	}

	state.Audit = record
	return nil
}

// HistoryStep records the audit summary in the history database so runs
// can be listed and compared later.
type HistoryStep struct {
	db *database.HistoryDB
}

// NewHistoryStep creates a HistoryStep on top of an open history
// database.
func NewHistoryStep(db *database.HistoryDB) *HistoryStep {
	return &HistoryStep{db: db}
}

// Name returns the step name.
func (s *HistoryStep) Name() string { return "history" }

// Do saves the audit record produced by an earlier step.
func (s *HistoryStep) Do(ctx context.Context, state *RunState) error {
	if state.Audit == nil {
		return ErrNoAudit
	}
	return s.db.SaveAuditRecord(ctx, state.Audit)
}

// ReportStep renders the audit record with a configured report writer.
type ReportStep struct {
	writer report.Writer
}

// NewReportStep creates a ReportStep with the given writer.
func NewReportStep(writer report.Writer) *ReportStep {
	return &ReportStep{writer: writer}
}

// Name returns the step name.
func (s *ReportStep) Name() string { return "report" }

// Do writes the report for the audit record produced by an earlier
// step.
func (s *ReportStep) Do(_ context.Context, state *RunState) error {
	if state.Audit == nil {
		return ErrNoAudit
	}
	_, err := s.writer.Write(state.Audit)
	return err
}
