package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/seoscan/seoscan/internal/config"
	"github.com/seoscan/seoscan/internal/database"
	"github.com/seoscan/seoscan/internal/model"
	"github.com/seoscan/seoscan/internal/pipeline"
	"github.com/seoscan/seoscan/internal/storage"
)

// NewRunCmd creates the run command.
func NewRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run [slug]",
		Short: "Crawl a project and audit the results",
		Long: `Run executes the full audit pipeline for a project: seed a new run,
crawl until the queue drains (or the step budget runs out), evaluate
the SEO rule set, record the run in the history database, and print a
report.

Examples:
  # Full run of one project
  seoscan run demo-shop

  # Run every registered project concurrently
  seoscan run --all

  # Cap the crawl at 100 fetches (resume later with 'seoscan crawl')
  seoscan run demo-shop --max-steps 100

  # Write a Markdown report to a file
  seoscan run demo-shop --markdown -o report.md`,
		Args: cobra.MaximumNArgs(1),
		RunE: runRunCmd,
	}

	cmd.Flags().BoolP("all", "a", false,
		"Run every registered project")
	cmd.Flags().IntP("batch", "b", config.DefaultBatchSize,
		"Number of concurrent project runs with --all")
	cmd.Flags().IntP("max-steps", "n", config.DefaultMaxSteps,
		"Maximum fetches for this invocation (0 = until the queue drains)")
	cmd.Flags().DurationP("timeout", "t", config.DefaultTimeout,
		"Connection timeout for each request")
	cmd.Flags().StringP("user-agent", "A", config.DefaultUserAgent,
		"User-Agent header for HTTP requests")
	cmd.Flags().BoolP("insecure", "k", false,
		"Skip TLS certificate verification")
	cmd.Flags().BoolP("json", "j", false,
		"Output JSON report (mutually exclusive with --markdown)")
	cmd.Flags().BoolP("markdown", "m", false,
		"Output Markdown report (mutually exclusive with --json)")
	cmd.Flags().StringP("output", "o", "",
		"Write report to specified file path (creates directories if needed)")
	cmd.Flags().Bool("no-db", false,
		"Skip recording the run in the history database")

	return cmd
}

// runRunCmd executes the run command.
func runRunCmd(cmd *cobra.Command, args []string) error {
	cfg, err := buildRunConfig(cmd)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	all, err := cmd.Flags().GetBool("all")
	if err != nil {
		return err
	}
	if !all && len(args) == 0 {
		return errors.New("project slug is required (or use --all)")
	}

	logger := setupLogger(cfg)

	store, err := openStore(cfg)
	if err != nil {
		return err
	}

	var db *database.HistoryDB
	if cfg.SaveToDB {
		db, err = database.Open(cfg.DBDir, database.DefaultOptions())
		if err != nil {
			return fmt.Errorf("failed to open history database: %w", err)
		}
		defer db.Close()
	}

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		logger.Info("received shutdown signal, cancelling...")
		cancel()
	}()

	if all {
		return runAllProjects(ctx, cfg, store, db, logger)
	}
	return runOneProject(ctx, cfg, store, db, logger, args[0])
}

// buildRunConfig reads the run command's flags into a Config.
func buildRunConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := buildConfig(cmd)
	if err != nil {
		return nil, err
	}

	if cfg.Timeout, err = cmd.Flags().GetDuration("timeout"); err != nil {
		return nil, err
	}
	if cfg.UserAgent, err = cmd.Flags().GetString("user-agent"); err != nil {
		return nil, err
	}
	if cfg.InsecureTLS, err = cmd.Flags().GetBool("insecure"); err != nil {
		return nil, err
	}
	if cfg.MaxSteps, err = cmd.Flags().GetInt("max-steps"); err != nil {
		return nil, err
	}
	if cfg.BatchSize, err = cmd.Flags().GetInt("batch"); err != nil {
		return nil, err
	}
	if cfg.JSONReport, err = cmd.Flags().GetBool("json"); err != nil {
		return nil, err
	}
	if cfg.MarkdownReport, err = cmd.Flags().GetBool("markdown"); err != nil {
		return nil, err
	}
	if cfg.ReportFile, err = cmd.Flags().GetString("output"); err != nil {
		return nil, err
	}

	noDB, err := cmd.Flags().GetBool("no-db")
	if err != nil {
		return nil, err
	}
	cfg.SaveToDB = !noDB
	if cfg.DBDir == "" {
		cfg.DBDir = config.XDGDataDir()
	}

	return cfg, nil
}

// newRunPipeline assembles the full pipeline for one project.
func newRunPipeline(cfg *config.Config, store *storage.Store, db *database.HistoryDB, logger *slog.Logger, project *model.Project) (*pipeline.Pipeline, func() error, error) {
	site := siteConfigFor(cfg, project)
	applySiteOverrides(project, site)
	fetcher := newFetcher(cfg, site)

	writer, cleanup, err := newReportWriter(cfg)
	if err != nil {
		return nil, cleanup, err
	}

	p := pipeline.New(pipeline.WithLogger(logger))
	p.AddSteps(
		pipeline.NewSeedStep(store),
		pipeline.NewCrawlStep(store, fetcher, cfg.MaxSteps, logger),
		pipeline.NewAuditStep(store, logger),
	)
	if db != nil {
		p.AddStep(pipeline.NewHistoryStep(db))
	}
	p.AddStep(pipeline.NewReportStep(writer))

	return p, cleanup, nil
}

// runOneProject runs the full pipeline for a single project.
func runOneProject(ctx context.Context, cfg *config.Config, store *storage.Store, db *database.HistoryDB, logger *slog.Logger, slug string) error {
	project, err := store.LoadProject(slug)
	if err != nil {
		return err
	}

	p, cleanup, err := newRunPipeline(cfg, store, db, logger, project)
	if err != nil {
		return err
	}
	defer func() {
		if err := cleanup(); err != nil {
			logger.Error("failed to close report output", "error", err)
		}
	}()

	fmt.Fprintf(os.Stderr, "Auditing %s (%s)...\n", project.Slug, project.BaseURL)
	startTime := time.Now()

	state := pipeline.NewRunState(project)
	if err := p.Execute(ctx, state); err != nil {
		return fmt.Errorf("run failed for %s: %w", slug, err)
	}

	elapsed := time.Since(startTime)
	fmt.Fprintf(os.Stderr, "Run %s completed in %s (%d pages processed)\n",
		state.RunID, elapsed.Round(time.Millisecond), state.Processed)
	if !state.Drained {
		fmt.Fprintf(os.Stderr, "Queue not drained; resume with: seoscan crawl %s\n", slug)
	}

	return nil
}

// runAllProjects runs the pipeline for every registered project using
// the batch processor.
//
// Note: per-site fetch settings still apply because each pipeline step
// resolves its project from the run state, but the report destination
// is shared, so --output is rejected here to avoid interleaved writes.
func runAllProjects(ctx context.Context, cfg *config.Config, store *storage.Store, db *database.HistoryDB, logger *slog.Logger) error {
	if cfg.ReportFile != "" {
		return errors.New("--output cannot be combined with --all (reports would overwrite each other)")
	}

	slugs, err := store.ListProjects()
	if err != nil {
		return err
	}
	if len(slugs) == 0 {
		return errors.New("no projects registered (create one with 'seoscan init')")
	}

	projects := make([]*model.Project, 0, len(slugs))
	for _, slug := range slugs {
		project, err := store.LoadProject(slug)
		if err != nil {
			return err
		}
		site := siteConfigFor(cfg, project)
		applySiteOverrides(project, site)
		projects = append(projects, project)
	}

	fmt.Fprintf(os.Stderr, "Auditing %d projects (concurrency: %d)...\n\n",
		len(projects), cfg.BatchSize)
	startTime := time.Now()

	// Batch mode uses the default site config for fetching; per-site
	// headers would need a per-project fetcher, which the factory
	// cannot see. Excludes and retries were already merged above.
	var defaults config.SiteConfig
	if cfg.SiteConfigs != nil {
		defaults = cfg.SiteConfigs.Defaults
	}
	fetcher := newFetcher(cfg, defaults)

	bp := pipeline.NewBatchProcessor(
		func() *pipeline.Pipeline {
			p := pipeline.New(pipeline.WithLogger(logger))
			p.AddSteps(
				pipeline.NewSeedStep(store),
				pipeline.NewCrawlStep(store, fetcher, cfg.MaxSteps, logger),
				pipeline.NewAuditStep(store, logger),
			)
			if db != nil {
				p.AddStep(pipeline.NewHistoryStep(db))
			}
			return p
		},
		pipeline.WithConcurrency(cfg.BatchSize),
		pipeline.WithBatchLogger(logger),
	)

	var mu sync.Mutex
	err = bp.ProcessBatchWithCallback(ctx, projects, func(state *pipeline.RunState, index int) {
		mu.Lock()
		defer mu.Unlock()

		if state.Err != "" {
			fmt.Fprintf(os.Stderr, "[%d/%d] %s failed: %s\n",
				index+1, len(projects), state.Project.Slug, state.Err)
			return
		}

		issues := 0
		if state.Audit != nil {
			issues = state.Audit.TotalIssues()
		}
		fmt.Fprintf(os.Stderr, "[%d/%d] %s: run %s, %d pages, %d issues\n",
			index+1, len(projects), state.Project.Slug, state.RunID, state.Processed, issues)
	})

	elapsed := time.Since(startTime)
	fmt.Fprintf(os.Stderr, "\nBatch completed in %s\n", elapsed.Round(time.Millisecond))
	fmt.Fprintf(os.Stderr, "View a report with: seoscan report <slug>\n")

	return err
}
