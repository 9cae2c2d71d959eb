package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/seoscan/seoscan/internal/model"
	"github.com/seoscan/seoscan/internal/scheduler"
	"github.com/seoscan/seoscan/internal/storage"
)

// NewInitCmd creates the init command.
func NewInitCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init <slug> <base-url>",
		Short: "Create a new project",
		Long: `Init registers a crawl target as a project in the local store.

The slug names the project directory and must be lowercase alphanumerics
separated by '-' or '_'. The base URL's host defines the crawl scope:
only pages on that host (www and non-www are treated as the same host)
are ever fetched.

Examples:
  # Register a site
  seoscan init demo-shop https://demo-shop.example.com

  # Register with extra seed URLs and exclusions
  seoscan init blog https://blog.example.com \
    --seed https://blog.example.com/archive \
    --exclude '*/tag/*'

  # Register with a weekly schedule (Mondays at 06:00)
  seoscan init blog https://blog.example.com --schedule "0 6 * * 1"`,
		Args: cobra.ExactArgs(2),
		RunE: runInitCmd,
	}

	cmd.Flags().StringArrayP("seed", "s", nil,
		"Additional seed URL (repeatable; base URL is always a seed)")
	cmd.Flags().StringArrayP("exclude", "x", nil,
		"URL pattern to never crawl: exact, substring, or '*' glob (repeatable)")
	cmd.Flags().String("schedule", "",
		"Cron expression for automatic runs (e.g. \"0 6 * * 1\" or \"@daily\")")
	cmd.Flags().Int("max-retries", 0,
		"Times a failed URL may be re-enqueued within a run (0 = never)")
	cmd.Flags().BoolP("force", "f", false,
		"Overwrite an existing project definition")

	return cmd
}

// runInitCmd executes the init command.
func runInitCmd(cmd *cobra.Command, args []string) error {
	cfg, err := buildConfig(cmd)
	if err != nil {
		return err
	}

	project := &model.Project{
		Slug:    args[0],
		BaseURL: args[1],
	}

	if project.SeedURLs, err = cmd.Flags().GetStringArray("seed"); err != nil {
		return err
	}
	if project.ExcludeURLs, err = cmd.Flags().GetStringArray("exclude"); err != nil {
		return err
	}
	if project.Schedule, err = cmd.Flags().GetString("schedule"); err != nil {
		return err
	}
	if project.MaxRetries, err = cmd.Flags().GetInt("max-retries"); err != nil {
		return err
	}

	force, err := cmd.Flags().GetBool("force")
	if err != nil {
		return err
	}

	if err := project.Validate(); err != nil {
		return fmt.Errorf("invalid project: %w", err)
	}
	if project.Schedule != "" {
		if err := scheduler.ValidateSchedule(project.Schedule); err != nil {
			return err
		}
	}

	store, err := openStore(cfg)
	if err != nil {
		return err
	}

	if !force {
		if _, err := store.LoadProject(project.Slug); err == nil {
			return fmt.Errorf("project already exists: %s (use -f to overwrite)", project.Slug)
		} else if !errors.Is(err, storage.ErrProjectNotFound) {
			return err
		}
	}

	if err := store.SaveProject(project); err != nil {
		return fmt.Errorf("failed to save project: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Created project %s (%s)\n", project.Slug, project.BaseURL)
	if project.Schedule != "" {
		fmt.Fprintf(cmd.OutOrStdout(), "Scheduled: %s (start the cron loop with 'seoscan schedule')\n", project.Schedule)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "\nRun an audit with: seoscan run %s\n", project.Slug)

	return nil
}
