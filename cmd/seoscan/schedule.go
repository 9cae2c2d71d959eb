package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/seoscan/seoscan/internal/config"
	"github.com/seoscan/seoscan/internal/database"
	"github.com/seoscan/seoscan/internal/model"
	"github.com/seoscan/seoscan/internal/pipeline"
	"github.com/seoscan/seoscan/internal/scheduler"
	"github.com/seoscan/seoscan/internal/storage"
)

// NewScheduleCmd creates the schedule command.
func NewScheduleCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "schedule",
		Short: "Run scheduled audits until interrupted",
		Long: `Schedule starts a long-running process that executes the full audit
pipeline for every project that carries a cron expression, each on its
own schedule.

The process runs until interrupted (Ctrl-C or SIGTERM); in-flight runs
finish before it exits. Projects without a schedule are ignored.

Examples:
  # Start the cron loop for all scheduled projects
  seoscan schedule

  # With verbose logging
  seoscan schedule -v`,
		Args: cobra.NoArgs,
		RunE: runScheduleCmd,
	}

	cmd.Flags().IntP("max-steps", "n", config.DefaultMaxSteps,
		"Maximum fetches per scheduled crawl (0 = until the queue drains)")
	cmd.Flags().DurationP("timeout", "t", config.DefaultTimeout,
		"Connection timeout for each request")
	cmd.Flags().StringP("user-agent", "A", config.DefaultUserAgent,
		"User-Agent header for HTTP requests")
	cmd.Flags().BoolP("insecure", "k", false,
		"Skip TLS certificate verification")

	return cmd
}

// runScheduleCmd executes the schedule command.
func runScheduleCmd(cmd *cobra.Command, _ []string) error {
	cfg, err := buildConfig(cmd)
	if err != nil {
		return err
	}

	if cfg.Timeout, err = cmd.Flags().GetDuration("timeout"); err != nil {
		return err
	}
	if cfg.UserAgent, err = cmd.Flags().GetString("user-agent"); err != nil {
		return err
	}
	if cfg.InsecureTLS, err = cmd.Flags().GetBool("insecure"); err != nil {
		return err
	}
	if cfg.MaxSteps, err = cmd.Flags().GetInt("max-steps"); err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	logger := setupLogger(cfg)

	store, err := openStore(cfg)
	if err != nil {
		return err
	}

	dbDir := cfg.DBDir
	if dbDir == "" {
		dbDir = config.XDGDataDir()
	}
	db, err := database.Open(dbDir, database.DefaultOptions())
	if err != nil {
		return fmt.Errorf("failed to open history database: %w", err)
	}
	defer db.Close()

	slugs, err := store.ListProjects()
	if err != nil {
		return err
	}

	projects := make([]*model.Project, 0, len(slugs))
	for _, slug := range slugs {
		project, err := store.LoadProject(slug)
		if err != nil {
			return err
		}
		applySiteOverrides(project, siteConfigFor(cfg, project))
		projects = append(projects, project)
	}

	sched := scheduler.New(
		scheduledRunFunc(cfg, store, db, logger),
		scheduler.WithLogger(logger),
	)

	added, err := sched.AddProjects(projects)
	if err != nil {
		return err
	}
	if added == 0 {
		return errors.New("no scheduled projects (set a schedule with 'seoscan init --schedule')")
	}

	fmt.Fprintf(os.Stderr, "Scheduling audits for %d of %d projects. Press Ctrl-C to stop.\n",
		added, len(projects))

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		logger.Info("received shutdown signal, stopping scheduler...")
		cancel()
	}()

	if err := sched.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// scheduledRunFunc builds the pipeline runner invoked on each cron
// firing. Reports are not rendered on scheduled runs; results land in
// the store and the history database for later 'seoscan report' and
// 'seoscan compare'.
func scheduledRunFunc(cfg *config.Config, store *storage.Store, db *database.HistoryDB, logger *slog.Logger) scheduler.RunFunc {
	return func(ctx context.Context, project *model.Project) error {
		fetcher := newFetcher(cfg, siteConfigFor(cfg, project))

		p := pipeline.New(pipeline.WithLogger(logger))
		p.AddSteps(
			pipeline.NewSeedStep(store),
			pipeline.NewCrawlStep(store, fetcher, cfg.MaxSteps, logger),
			pipeline.NewAuditStep(store, logger),
			pipeline.NewHistoryStep(db),
		)

		state := pipeline.NewRunState(project)
		return p.Execute(ctx, state)
	}
}
