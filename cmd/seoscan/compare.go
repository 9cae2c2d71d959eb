package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sort"

	"github.com/spf13/cobra"

	"github.com/seoscan/seoscan/internal/config"
	"github.com/seoscan/seoscan/internal/database"
)

// NewCompareCmd creates the compare command.
// This command compares audit results with historical data stored in
// the database.
func NewCompareCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "compare <slug> [base-run] [target-run]",
		Short: "Compare audit runs of a project",
		Long: `Compare shows how a project's audit results changed between two runs:
page count delta, per-issue deltas, and HTTP status bucket deltas.

Without run IDs the latest two recorded runs are compared. The history
comes from the run database, so both runs must have been recorded
('seoscan run' and 'seoscan audit' record automatically).

Examples:
  # Compare the latest two runs
  seoscan compare demo-shop

  # Compare two specific runs
  seoscan compare demo-shop 20260801-060000-aaaa 20260831-060000-bbbb

  # List recorded runs for a project
  seoscan compare demo-shop --list

  # List all projects in the history database
  seoscan compare --list-projects

  # JSON output for downstream tooling
  seoscan compare demo-shop --json`,
		Args: cobra.MaximumNArgs(3),
		RunE: runCompareCmd,
	}

	cmd.Flags().BoolP("list", "l", false,
		"List recorded runs for the project")
	cmd.Flags().BoolP("list-projects", "L", false,
		"List all projects in the history database")
	cmd.Flags().BoolP("json", "j", false,
		"Output comparison result in JSON format")

	return cmd
}

// runCompareCmd executes the compare command.
func runCompareCmd(cmd *cobra.Command, args []string) error {
	cfg, err := buildConfig(cmd)
	if err != nil {
		return err
	}

	listProjects, err := cmd.Flags().GetBool("list-projects")
	if err != nil {
		return err
	}
	list, err := cmd.Flags().GetBool("list")
	if err != nil {
		return err
	}
	asJSON, err := cmd.Flags().GetBool("json")
	if err != nil {
		return err
	}

	if !listProjects && len(args) == 0 {
		return errors.New("project slug is required (use --list-projects to see recorded projects)")
	}

	setupLogger(cfg)

	dbDir := cfg.DBDir
	if dbDir == "" {
		dbDir = config.XDGDataDir()
	}
	opts := database.DefaultOptions()
	opts.CreateIfNotExists = false
	db, err := database.Open(dbDir, opts)
	if err != nil {
		return fmt.Errorf("failed to open history database (no runs recorded yet?): %w", err)
	}
	defer db.Close()

	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	if listProjects {
		return printProjects(ctx, db, out)
	}

	slug := args[0]
	if list {
		return printRunHistory(ctx, db, out, slug)
	}

	baseRunID, targetRunID, err := resolveComparisonRuns(ctx, db, slug, args[1:])
	if err != nil {
		return err
	}

	comparison, err := db.CompareRuns(ctx, slug, baseRunID, targetRunID)
	if err != nil {
		return err
	}

	if asJSON {
		encoder := json.NewEncoder(out)
		encoder.SetIndent("", "  ")
		return encoder.Encode(comparison)
	}
	printComparison(out, comparison)
	return nil
}

// resolveComparisonRuns fills in missing run IDs from the project's
// recorded history: the latest run is the target, the one before it the
// base.
func resolveComparisonRuns(ctx context.Context, db *database.HistoryDB, slug string, args []string) (string, string, error) {
	if len(args) == 2 {
		return args[0], args[1], nil
	}

	history, err := db.GetRunHistory(ctx, slug)
	if err != nil {
		return "", "", err
	}
	if len(history) < 2 {
		return "", "", fmt.Errorf("need at least two recorded runs for %s, have %d", slug, len(history))
	}

	// History is newest-first.
	if len(args) == 1 {
		return args[0], history[0].RunID, nil
	}
	return history[1].RunID, history[0].RunID, nil
}

// printProjects lists every project recorded in the history database.
func printProjects(ctx context.Context, db *database.HistoryDB, out io.Writer) error {
	projects, err := db.ListProjects(ctx)
	if err != nil {
		return err
	}
	if len(projects) == 0 {
		fmt.Fprintln(out, "No recorded runs.")
		return nil
	}
	for _, project := range projects {
		fmt.Fprintln(out, project)
	}
	return nil
}

// printRunHistory lists the recorded runs of a project, newest first.
func printRunHistory(ctx context.Context, db *database.HistoryDB, out io.Writer, slug string) error {
	history, err := db.GetRunHistory(ctx, slug)
	if err != nil {
		return err
	}
	if len(history) == 0 {
		fmt.Fprintf(out, "No recorded runs for %s.\n", slug)
		return nil
	}

	fmt.Fprintf(out, "Recorded runs for %s:\n\n", slug)
	for _, run := range history {
		fmt.Fprintf(out, "  %s  %s  %4d pages  %4d issues\n",
			run.RunID,
			run.GeneratedAt.Format("2006-01-02 15:04"),
			run.TotalPages,
			run.TotalIssues,
		)
	}
	return nil
}

// printComparison renders a comparison in human-readable form.
func printComparison(out io.Writer, c *database.Comparison) {
	fmt.Fprintf(out, "Comparison for %s\n", c.Project)
	fmt.Fprintf(out, "  base:   %s\n", c.BaseRunID)
	fmt.Fprintf(out, "  target: %s\n\n", c.TargetRunID)

	fmt.Fprintf(out, "Pages: %+d\n", c.PageDelta)

	if len(c.BucketDelta) > 0 {
		fmt.Fprintln(out, "\nStatus buckets:")
		for _, key := range sortedKeys(c.BucketDelta) {
			fmt.Fprintf(out, "  %-6s %+d\n", key, c.BucketDelta[key])
		}
	}

	if len(c.IssueDelta) == 0 {
		fmt.Fprintln(out, "\nNo issue changes.")
		return
	}
	fmt.Fprintln(out, "\nIssues:")
	for _, key := range sortedKeys(c.IssueDelta) {
		fmt.Fprintf(out, "  %+d  %s\n", c.IssueDelta[key], key)
	}
}

// sortedKeys returns the map's keys in ascending order.
func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
