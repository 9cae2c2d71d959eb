package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/seoscan/seoscan/internal/report"
)

// NewReportCmd creates the report command.
func NewReportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "report <slug>",
		Short: "Render the stored audit of a run",
		Long: `Report renders the stored audit record of a run without re-crawling
or re-evaluating anything.

The default output is a human-readable text summary. Use --json for a
machine-readable report or --markdown for a GitHub Flavored Markdown
report with a status piechart.

Examples:
  # Text summary of the latest run
  seoscan report demo-shop

  # Markdown report written to a file
  seoscan report demo-shop --markdown -o report.md

  # Versioned JSON for downstream tooling
  seoscan report demo-shop --json --full`,
		Args: cobra.ExactArgs(1),
		RunE: runReportCmd,
	}

	cmd.Flags().String("run", "",
		"Run ID to report on (default: latest run)")
	cmd.Flags().BoolP("json", "j", false,
		"Output JSON report (mutually exclusive with --markdown)")
	cmd.Flags().BoolP("markdown", "m", false,
		"Output Markdown report (mutually exclusive with --json)")
	cmd.Flags().StringP("output", "o", "",
		"Write report to specified file path (creates directories if needed)")
	cmd.Flags().Bool("full", false,
		"Wrap JSON output in a versioned envelope (requires --json)")
	cmd.Flags().Bool("show-clean", false,
		"Include pages without issues in the text report")

	return cmd
}

// runReportCmd executes the report command.
func runReportCmd(cmd *cobra.Command, args []string) error {
	cfg, err := buildConfig(cmd)
	if err != nil {
		return err
	}

	runID, err := cmd.Flags().GetString("run")
	if err != nil {
		return err
	}
	if cfg.JSONReport, err = cmd.Flags().GetBool("json"); err != nil {
		return err
	}
	if cfg.MarkdownReport, err = cmd.Flags().GetBool("markdown"); err != nil {
		return err
	}
	if cfg.ReportFile, err = cmd.Flags().GetString("output"); err != nil {
		return err
	}
	full, err := cmd.Flags().GetBool("full")
	if err != nil {
		return err
	}
	showClean, err := cmd.Flags().GetBool("show-clean")
	if err != nil {
		return err
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}
	if full && !cfg.JSONReport {
		return fmt.Errorf("--full requires --json")
	}

	setupLogger(cfg)

	store, err := openStore(cfg)
	if err != nil {
		return err
	}

	slug := args[0]
	if _, err := store.LoadProject(slug); err != nil {
		return err
	}
	if runID, err = resolveRunID(store, slug, runID); err != nil {
		return err
	}

	record, err := store.LoadAudit(slug, runID)
	if err != nil {
		return fmt.Errorf("no audit found for run %s (generate one with 'seoscan audit %s'): %w",
			runID, slug, err)
	}

	output, cleanup, err := openReportOutput(cfg)
	if err != nil {
		return err
	}
	defer cleanup() //nolint:errcheck // Best effort close; write errors surface below

	var writer report.Writer
	switch {
	case full:
		writer = report.NewFullJSONWriter(output, getVersion(), report.WithPrettyPrint())
	case cfg.JSONReport:
		writer = report.NewJSONWriter(output, report.WithPrettyPrint())
	case cfg.MarkdownReport:
		writer = report.NewMarkdownWriter(output)
	case showClean:
		writer = report.NewSimpleWriter(output, report.WithShowClean(true))
	default:
		writer = report.NewSimpleWriter(output)
	}

	if _, err := writer.Write(record); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}

	return nil
}
