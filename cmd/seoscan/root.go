// Package main provides the entry point for the seoscan CLI.
package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/seoscan/seoscan/internal/config"
	"github.com/seoscan/seoscan/internal/crawler"
	"github.com/seoscan/seoscan/internal/log"
	"github.com/seoscan/seoscan/internal/model"
	"github.com/seoscan/seoscan/internal/report"
	"github.com/seoscan/seoscan/internal/storage"
)

// NewRootCmd creates the root command for seoscan.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "seoscan",
		Short: "Technical SEO auditing tool for websites",
		Long: `seoscan crawls a website one page at a time, persists every fetched
page as a JSON artifact, and evaluates a fixed SEO rule set over the
results: titles, meta descriptions, headings, canonical URLs, Open
Graph tags, structured data, and HTTP status health.

Crawls are resumable: the queue lives on disk, so an interrupted run
picks up where it left off.`,
		Version:       getVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Global flags that apply to all commands
	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging")
	cmd.PersistentFlags().StringP("data-dir", "D", "",
		"Root directory of the project store (default: XDG data directory)")
	cmd.PersistentFlags().StringP("config", "c", "",
		"Configuration file path (default: .seoscan in current or home directory)")

	// Add subcommands
	cmd.AddCommand(NewInitCmd())
	cmd.AddCommand(NewCrawlCmd())
	cmd.AddCommand(NewAuditCmd())
	cmd.AddCommand(NewRunCmd())
	cmd.AddCommand(NewReportCmd())
	cmd.AddCommand(NewCompareCmd())
	cmd.AddCommand(NewScheduleCmd())
	cmd.AddCommand(NewVersionCmd())

	return cmd
}

// Execute runs the root command.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// buildConfig creates a Config from the persistent flags and loads the
// optional .seoscan file.
func buildConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.NewConfig()

	verbose, err := cmd.Flags().GetBool("verbose")
	if err != nil {
		return nil, err
	}
	cfg.Verbose = verbose

	dataDir, err := cmd.Flags().GetString("data-dir")
	if err != nil {
		return nil, err
	}
	if dataDir != "" {
		cfg.DataDir = dataDir
	}

	cfg.ConfigFilePath, err = cmd.Flags().GetString("config")
	if err != nil {
		return nil, err
	}

	// If the user explicitly named a config file, its absence is an
	// error. Otherwise a missing .seoscan just means no overrides.
	explicitConfigPath := cfg.ConfigFilePath != ""
	configPath := config.FindConfigFile(cfg.ConfigFilePath)

	if configPath != "" {
		cfg.SiteConfigs, err = config.LoadConfigFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	} else if explicitConfigPath {
		return nil, fmt.Errorf("configuration file not found: %s", cfg.ConfigFilePath)
	} else {
		cfg.SiteConfigs = &config.File{
			Sites: make(map[string]config.SiteConfig),
		}
	}

	return cfg, nil
}

// setupLogger creates the redacting structured logger and installs it
// as the default.
func setupLogger(cfg *config.Config) *slog.Logger {
	logger := log.NewSecureLogger(os.Stderr, cfg.Verbose)
	slog.SetDefault(logger)
	return logger
}

// openStore opens the project store rooted at the configured data
// directory.
func openStore(cfg *config.Config) (*storage.Store, error) {
	store, err := storage.New(cfg.DataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to open store at %s: %w", cfg.DataDir, err)
	}
	return store, nil
}

// siteConfigFor returns the merged site configuration for a project's
// host.
func siteConfigFor(cfg *config.Config, project *model.Project) config.SiteConfig {
	if cfg.SiteConfigs == nil {
		return config.SiteConfig{}
	}
	profile, err := crawler.NewProfile(project.BaseURL)
	if err != nil {
		return cfg.SiteConfigs.Defaults
	}
	return cfg.SiteConfigs.GetSiteConfig(profile.Host())
}

// applySiteOverrides merges per-site settings from the config file into
// the project before a crawl.
func applySiteOverrides(project *model.Project, site config.SiteConfig) {
	if len(site.ExcludePatterns) > 0 {
		project.ExcludeURLs = append(project.ExcludeURLs, site.ExcludePatterns...)
	}
	if site.MaxRetries != 0 {
		project.MaxRetries = site.MaxRetries
	}
}

// newFetcher builds a fetcher from the global config plus per-site
// overrides.
func newFetcher(cfg *config.Config, site config.SiteConfig) *crawler.Fetcher {
	opts := []crawler.FetcherOption{
		crawler.WithTimeout(cfg.Timeout),
		crawler.WithUserAgent(cfg.UserAgent),
		crawler.WithMaxBodySize(cfg.MaxBodySize),
	}
	if cfg.InsecureTLS {
		opts = append(opts, crawler.WithInsecureTLS())
	}
	if site.UserAgent != "" {
		opts = append(opts, crawler.WithUserAgent(site.UserAgent))
	}
	if len(site.Headers) > 0 {
		opts = append(opts, crawler.WithRequestHeaders(site.Headers))
	}
	return crawler.NewFetcher(opts...)
}

// openReportOutput opens the configured report destination: the
// --output file when set, stdout otherwise. The returned cleanup
// function closes the file when one was opened; it is a no-op for
// stdout.
func openReportOutput(cfg *config.Config) (*os.File, func() error, error) {
	noop := func() error { return nil }

	if cfg.ReportFile == "" {
		return os.Stdout, noop, nil
	}

	dir := filepath.Dir(cfg.ReportFile)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return nil, noop, fmt.Errorf("failed to create output directory: %w", err)
		}
	}
	f, err := os.OpenFile(cfg.ReportFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return nil, noop, fmt.Errorf("failed to create output file: %w", err)
	}
	return f, f.Close, nil
}

// newReportWriter selects the report writer for the configured format
// and destination.
func newReportWriter(cfg *config.Config) (report.Writer, func() error, error) {
	output, cleanup, err := openReportOutput(cfg)
	if err != nil {
		return nil, cleanup, err
	}

	switch {
	case cfg.JSONReport:
		return report.NewJSONWriter(output, report.WithPrettyPrint()), cleanup, nil
	case cfg.MarkdownReport:
		return report.NewMarkdownWriter(output), cleanup, nil
	default:
		return report.NewSimpleWriter(output), cleanup, nil
	}
}

// resolveRunID returns the requested run ID, falling back to the
// project's latest run when runID is empty.
func resolveRunID(store *storage.Store, slug, runID string) (string, error) {
	if runID != "" {
		return runID, nil
	}
	return store.LatestRun(slug)
}
