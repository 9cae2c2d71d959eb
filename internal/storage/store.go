package storage

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/seoscan/seoscan/internal/model"
)

// Store maps {project, run} pairs to directories and JSON files under a
// single root. All mutation is whole-file writes keyed by URL hash, so
// distinct URLs never contend.
type Store struct {
	// root is the storage root directory. Project trees live under
	// root/projects.
	root string
}

// Subdirectory names within a run.
const (
	queueDirName  = "queue"
	pagesDirName  = "pages"
	imagesDirName = "images"
	errorsDirName = "errors"
	othersDirName = "others"
)

// dirPerm is the permission for created directories.
const dirPerm = 0o750

// filePerm is the permission for written artifact files.
const filePerm = 0o640

// ErrProjectNotFound is returned when a project slug has no config on disk.
var ErrProjectNotFound = errors.New("project not found")

// ErrNoRuns is returned when a project has no recorded runs.
var ErrNoRuns = errors.New("project has no runs")

// New creates a Store rooted at the given directory and ensures the
// projects directory exists.
func New(root string) (*Store, error) {
	if err := os.MkdirAll(filepath.Join(root, "projects"), dirPerm); err != nil {
		return nil, fmt.Errorf("failed to create storage root: %w", err)
	}
	return &Store{root: root}, nil
}

// Root returns the storage root directory.
func (s *Store) Root() string {
	return s.root
}

// ProjectDir returns the directory of a project.
func (s *Store) ProjectDir(slug string) string {
	return filepath.Join(s.root, "projects", slug)
}

// RunDir returns the directory of a run.
func (s *Store) RunDir(slug, runID string) string {
	return filepath.Join(s.ProjectDir(slug), "runs", runID)
}

// QueueDir returns the queue directory of a run.
func (s *Store) QueueDir(slug, runID string) string {
	return filepath.Join(s.RunDir(slug, runID), queueDirName)
}

// PagesDir returns the pages directory of a run.
func (s *Store) PagesDir(slug, runID string) string {
	return filepath.Join(s.RunDir(slug, runID), pagesDirName)
}

// ImagesDir returns the images directory of a run.
func (s *Store) ImagesDir(slug, runID string) string {
	return filepath.Join(s.RunDir(slug, runID), imagesDirName)
}

// ErrorsDir returns the errors directory of a run.
func (s *Store) ErrorsDir(slug, runID string) string {
	return filepath.Join(s.RunDir(slug, runID), errorsDirName)
}

// OthersDir returns the others directory of a run.
func (s *Store) OthersDir(slug, runID string) string {
	return filepath.Join(s.RunDir(slug, runID), othersDirName)
}

// EnsureRunDirs creates the full directory tree for a run.
func (s *Store) EnsureRunDirs(slug, runID string) error {
	for _, dir := range []string{
		s.QueueDir(slug, runID),
		s.PagesDir(slug, runID),
		s.ImagesDir(slug, runID),
		s.ErrorsDir(slug, runID),
		s.OthersDir(slug, runID),
	} {
		if err := os.MkdirAll(dir, dirPerm); err != nil {
			return fmt.Errorf("failed to create run directory %s: %w", dir, err)
		}
	}
	return nil
}

// WriteJSON writes v to path as pretty-printed UTF-8 JSON with HTML
// escaping disabled, so URLs stay readable in the artifacts.
//
// Design decision: We use json.Encoder rather than MarshalIndent because
// only the encoder exposes SetEscapeHTML, and unescaped slashes are part
// of the artifact contract.
func WriteJSON(path string, v any) error {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("failed to encode %s: %w", filepath.Base(path), err)
	}

	if err := os.WriteFile(path, buf.Bytes(), filePerm); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

// ReadJSON reads the JSON file at path into v.
func ReadJSON(path string, v any) error {
	data, err := os.ReadFile(path) //nolint:gosec // paths are store-derived
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return nil
}

// SaveProject writes a project's config.json, creating the project
// directory if needed.
func (s *Store) SaveProject(project *model.Project) error {
	if err := os.MkdirAll(s.ProjectDir(project.Slug), dirPerm); err != nil {
		return fmt.Errorf("failed to create project directory: %w", err)
	}
	return WriteJSON(filepath.Join(s.ProjectDir(project.Slug), "config.json"), project)
}

// LoadProject reads a project's config.json.
func (s *Store) LoadProject(slug string) (*model.Project, error) {
	var project model.Project
	path := filepath.Join(s.ProjectDir(slug), "config.json")
	if err := ReadJSON(path, &project); err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrProjectNotFound, slug)
		}
		return nil, err
	}
	return &project, nil
}

// ListProjects returns the slugs of all projects with a config.json,
// sorted alphabetically.
func (s *Store) ListProjects() ([]string, error) {
	entries, err := os.ReadDir(filepath.Join(s.root, "projects"))
	if err != nil {
		return nil, fmt.Errorf("failed to list projects: %w", err)
	}

	slugs := make([]string, 0, len(entries))
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		config := filepath.Join(s.ProjectDir(entry.Name()), "config.json")
		if _, err := os.Stat(config); err == nil {
			slugs = append(slugs, entry.Name())
		}
	}

	sort.Strings(slugs)
	return slugs, nil
}

// SaveRunMeta writes a run's meta.json.
func (s *Store) SaveRunMeta(meta *model.RunMeta) error {
	return WriteJSON(filepath.Join(s.RunDir(meta.Project, meta.RunID), "meta.json"), meta)
}

// LoadRunMeta reads a run's meta.json.
func (s *Store) LoadRunMeta(slug, runID string) (*model.RunMeta, error) {
	var meta model.RunMeta
	if err := ReadJSON(filepath.Join(s.RunDir(slug, runID), "meta.json"), &meta); err != nil {
		return nil, err
	}
	return &meta, nil
}

// TouchRun updates the run's last_processed_at timestamp and, when
// completed is true and no completion time is recorded yet, marks the
// run complete.
func (s *Store) TouchRun(slug, runID string, now time.Time, completed bool) error {
	meta, err := s.LoadRunMeta(slug, runID)
	if err != nil {
		return err
	}

	meta.LastProcessedAt = &now
	if completed && meta.CompletedAt == nil {
		meta.CompletedAt = &now
	}
	return s.SaveRunMeta(meta)
}

// SetLatestRun records runID as the project's latest run.
func (s *Store) SetLatestRun(slug, runID string) error {
	path := filepath.Join(s.ProjectDir(slug), "latest_run.txt")
	if err := os.WriteFile(path, []byte(runID+"\n"), filePerm); err != nil {
		return fmt.Errorf("failed to write latest run marker: %w", err)
	}
	return nil
}

// LatestRun returns the project's latest run id.
func (s *Store) LatestRun(slug string) (string, error) {
	data, err := os.ReadFile(filepath.Join(s.ProjectDir(slug), "latest_run.txt")) //nolint:gosec // store-derived path
	if err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("%w: %s", ErrNoRuns, slug)
		}
		return "", err
	}

	runID := strings.TrimSpace(string(data))
	if runID == "" {
		return "", fmt.Errorf("%w: %s", ErrNoRuns, slug)
	}
	return runID, nil
}

// ListRuns returns all run ids of a project, sorted ascending. Run ids
// start with a UTC timestamp, so lexical order is chronological order.
func (s *Store) ListRuns(slug string) ([]string, error) {
	entries, err := os.ReadDir(filepath.Join(s.ProjectDir(slug), "runs"))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}

	runs := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			runs = append(runs, entry.Name())
		}
	}
	return runs, nil
}

// SavePageRecord persists a page record keyed by its URL hash.
func (s *Store) SavePageRecord(slug, runID string, record *model.PageRecord) error {
	name := model.URLHash(record.URL) + ".json"
	return WriteJSON(filepath.Join(s.PagesDir(slug, runID), name), record)
}

// SaveImageRecord persists an image record keyed by its URL hash.
func (s *Store) SaveImageRecord(slug, runID string, record *model.ImageRecord) error {
	name := model.URLHash(record.URL) + ".json"
	return WriteJSON(filepath.Join(s.ImagesDir(slug, runID), name), record)
}

// SaveErrorRecord persists an error record keyed by its URL hash.
func (s *Store) SaveErrorRecord(slug, runID string, record *model.ErrorRecord) error {
	name := model.URLHash(record.URL) + ".json"
	return WriteJSON(filepath.Join(s.ErrorsDir(slug, runID), name), record)
}

// SaveOtherRecord persists a PDF/unknown record keyed by its URL hash.
func (s *Store) SaveOtherRecord(slug, runID string, record *model.OtherRecord) error {
	name := model.URLHash(record.URL) + ".json"
	return WriteJSON(filepath.Join(s.OthersDir(slug, runID), name), record)
}

// LoadErrorRecord reads the error record for a URL hash, or returns nil
// when none exists.
func (s *Store) LoadErrorRecord(slug, runID, hash string) (*model.ErrorRecord, error) {
	var record model.ErrorRecord
	err := ReadJSON(filepath.Join(s.ErrorsDir(slug, runID), hash+".json"), &record)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &record, nil
}

// RemoveErrorRecord deletes the error record for a URL hash. Used by the
// retry policy when a failed URL is re-enqueued.
func (s *Store) RemoveErrorRecord(slug, runID, hash string) error {
	err := os.Remove(filepath.Join(s.ErrorsDir(slug, runID), hash+".json"))
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// PageRecords reads every page record of a run in sorted hash-filename
// order. Unreadable or empty files are skipped rather than failing the
// whole scan, so one corrupt artifact cannot block an audit.
func (s *Store) PageRecords(slug, runID string) ([]*model.PageRecord, error) {
	dir := s.PagesDir(slug, runID)
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read pages directory: %w", err)
	}

	records := make([]*model.PageRecord, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}

		var record model.PageRecord
		if err := ReadJSON(filepath.Join(dir, entry.Name()), &record); err != nil {
			continue
		}
		if record.URL == "" {
			continue
		}
		records = append(records, &record)
	}

	return records, nil
}

// SaveAudit writes the run's audit.json, replacing any prior audit.
func (s *Store) SaveAudit(audit *model.AuditRecord) error {
	return WriteJSON(filepath.Join(s.RunDir(audit.Project, audit.RunID), "audit.json"), audit)
}

// LoadAudit reads the run's audit.json.
func (s *Store) LoadAudit(slug, runID string) (*model.AuditRecord, error) {
	var audit model.AuditRecord
	if err := ReadJSON(filepath.Join(s.RunDir(slug, runID), "audit.json"), &audit); err != nil {
		return nil, err
	}
	return &audit, nil
}

// HasTerminalArtifact reports whether any artifact already exists for a
// URL hash within a run: a queue marker (todo or done) or a record in
// pages, images, errors, or others. The existence of any of these makes
// enqueueing a no-op.
func (s *Store) HasTerminalArtifact(slug, runID, hash string) bool {
	candidates := []string{
		filepath.Join(s.QueueDir(slug, runID), hash+".todo"),
		filepath.Join(s.QueueDir(slug, runID), hash+".done"),
		filepath.Join(s.PagesDir(slug, runID), hash+".json"),
		filepath.Join(s.ImagesDir(slug, runID), hash+".json"),
		filepath.Join(s.ErrorsDir(slug, runID), hash+".json"),
		filepath.Join(s.OthersDir(slug, runID), hash+".json"),
	}

	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			return true
		}
	}
	return false
}
