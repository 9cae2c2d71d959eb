package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/seoscan/seoscan/internal/config"
	"github.com/seoscan/seoscan/internal/pipeline"
)

// NewCrawlCmd creates the crawl command.
func NewCrawlCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "crawl <slug>",
		Short: "Crawl a project without auditing",
		Long: `Crawl fetches pages for a project and persists them as JSON
artifacts, without evaluating the SEO rules.

By default a new run is started. With --resume the latest run's queue
is picked up where it left off, which makes a step-capped crawl a
resumable batch job: each invocation processes up to --max-steps URLs
and the queue keeps the rest on disk.

Examples:
  # Crawl a whole site in one go
  seoscan crawl demo-shop

  # Crawl in batches of 50 pages
  seoscan crawl demo-shop --max-steps 50
  seoscan crawl demo-shop --max-steps 50 --resume

  # Resume a specific run
  seoscan crawl demo-shop --resume --run 20260831-120000-abcd1234`,
		Args: cobra.ExactArgs(1),
		RunE: runCrawlCmd,
	}

	cmd.Flags().IntP("max-steps", "n", config.DefaultMaxSteps,
		"Maximum fetches for this invocation (0 = until the queue drains)")
	cmd.Flags().BoolP("resume", "r", false,
		"Continue the project's latest run instead of starting a new one")
	cmd.Flags().String("run", "",
		"Run ID to resume (implies --resume)")
	cmd.Flags().DurationP("timeout", "t", config.DefaultTimeout,
		"Connection timeout for each request")
	cmd.Flags().StringP("user-agent", "A", config.DefaultUserAgent,
		"User-Agent header for HTTP requests")
	cmd.Flags().BoolP("insecure", "k", false,
		"Skip TLS certificate verification")

	return cmd
}

// runCrawlCmd executes the crawl command.
func runCrawlCmd(cmd *cobra.Command, args []string) error {
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

	resume, err := cmd.Flags().GetBool("resume")
	if err != nil {
		return err
	}
	runID, err := cmd.Flags().GetString("run")
	if err != nil {
		return err
	}
	if runID != "" {
		resume = true
	}

	logger := setupLogger(cfg)

	store, err := openStore(cfg)
	if err != nil {
		return err
	}

	slug := args[0]
	project, err := store.LoadProject(slug)
	if err != nil {
		return err
	}

	site := siteConfigFor(cfg, project)
	applySiteOverrides(project, site)
	fetcher := newFetcher(cfg, site)

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		logger.Info("received shutdown signal, cancelling...")
		cancel()
	}()

	p := pipeline.New(pipeline.WithLogger(logger))
	state := pipeline.NewRunState(project)

	if resume {
		if state.RunID, err = resolveRunID(store, slug, runID); err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "Resuming run %s of %s...\n", state.RunID, slug)
	} else {
		p.AddStep(pipeline.NewSeedStep(store))
		fmt.Fprintf(os.Stderr, "Crawling %s (%s)...\n", slug, project.BaseURL)
	}
	p.AddStep(pipeline.NewCrawlStep(store, fetcher, cfg.MaxSteps, logger))

	startTime := time.Now()
	if err := p.Execute(ctx, state); err != nil {
		return fmt.Errorf("crawl failed for %s: %w", slug, err)
	}

	elapsed := time.Since(startTime)
	fmt.Fprintf(os.Stderr, "Processed %d items in %s (run %s)\n",
		state.Processed, elapsed.Round(time.Millisecond), state.RunID)
	if state.Drained {
		fmt.Fprintf(os.Stderr, "Queue drained; audit with: seoscan audit %s\n", slug)
	} else {
		fmt.Fprintf(os.Stderr, "Queue not drained; continue with: seoscan crawl %s --resume\n", slug)
	}

	return nil
}
