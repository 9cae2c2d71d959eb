package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/seoscan/seoscan/internal/audit"
	"github.com/seoscan/seoscan/internal/config"
	"github.com/seoscan/seoscan/internal/database"
)

// NewAuditCmd creates the audit command.
func NewAuditCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "audit <slug>",
		Short: "Evaluate the SEO rules over a crawled run",
		Long: `Audit evaluates the SEO rule set over the persisted pages of an
existing run and stores the aggregate record as audit.json in the run
directory. Re-running the audit over the same pages produces the same
record, so it is safe to regenerate after a resumed crawl finishes.

Examples:
  # Audit the latest run
  seoscan audit demo-shop

  # Audit a specific run
  seoscan audit demo-shop --run 20260831-120000-abcd1234`,
		Args: cobra.ExactArgs(1),
		RunE: runAuditCmd,
	}

	cmd.Flags().String("run", "",
		"Run ID to audit (default: latest run)")
	cmd.Flags().Bool("no-db", false,
		"Skip recording the audit in the history database")

	return cmd
}

// runAuditCmd executes the audit command.
func runAuditCmd(cmd *cobra.Command, args []string) error {
	cfg, err := buildConfig(cmd)
	if err != nil {
		return err
	}

	runID, err := cmd.Flags().GetString("run")
	if err != nil {
		return err
	}
	noDB, err := cmd.Flags().GetBool("no-db")
	if err != nil {
		return err
	}

	logger := setupLogger(cfg)

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

	runner := audit.NewRunner(store, audit.WithLogger(logger))
	record, err := runner.Run(slug, runID)
	if err != nil {
		return fmt.Errorf("audit failed for run %s: %w", runID, err)
	}

	if !noDB {
		dbDir := cfg.DBDir
		if dbDir == "" {
			dbDir = config.XDGDataDir()
		}
		db, err := database.Open(dbDir, database.DefaultOptions())
		if err != nil {
			return fmt.Errorf("failed to open history database: %w", err)
		}
		defer db.Close()

		if err := db.SaveAuditRecord(cmd.Context(), record); err != nil {
			return fmt.Errorf("failed to record audit history: %w", err)
		}
	}

	fmt.Fprintf(os.Stderr, "Audited run %s: %d pages, %d issues\n",
		record.RunID, record.TotalPages, record.TotalIssues())
	fmt.Fprintf(os.Stderr, "View the report with: seoscan report %s --run %s\n", slug, record.RunID)

	return nil
}
