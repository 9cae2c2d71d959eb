package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/seoscan/seoscan/internal/model"
)

// HistoryDB provides SQLite-based storage for audit run summaries.
// It manages connection pooling and provides methods for recording and
// querying audit history.
//
// Design decision: We use a single database file for all projects
// rather than one per project. Cross-project queries (listing every
// audited site, global history) stay simple, and backup is one file.
type HistoryDB struct {
	// db is the underlying SQL database connection.
	db *sql.DB

	// dbPath is the path to the SQLite database file.
	dbPath string
}

// Options configures HistoryDB behavior.
type Options struct {
	// CreateIfNotExists creates the database file if it doesn't exist.
	CreateIfNotExists bool

	// EnableWAL enables Write-Ahead Logging for better concurrent
	// performance. Recommended for most use cases.
	EnableWAL bool
}

// DefaultOptions returns the default database options.
func DefaultOptions() Options {
	return Options{
		CreateIfNotExists: true,
		EnableWAL:         true,
	}
}

// Open opens or creates a HistoryDB at the specified directory.
// If CreateIfNotExists is true, the directory and database file are
// created; if false and the database doesn't exist, an error is
// returned.
func Open(dbDir string, opts Options) (*HistoryDB, error) {
	dbPath := filepath.Join(dbDir, "seoscan.db")

	if !opts.CreateIfNotExists {
		if _, err := os.Stat(dbPath); os.IsNotExist(err) {
			return nil, fmt.Errorf("database not found at %s (use CreateIfNotExists option to create)", dbPath)
		} else if err != nil {
			return nil, fmt.Errorf("failed to check database path: %w", err)
		}
	} else {
		if err := os.MkdirAll(dbDir, 0o750); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	// modernc.org/sqlite connection string: mode=rw prevents creating
	// new files, mode=rwc allows creation.
	var dsn string
	if opts.CreateIfNotExists {
		dsn = dbPath + "?mode=rwc"
	} else {
		dsn = dbPath + "?mode=rw"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite only supports one writer; a single connection avoids
	// SQLITE_BUSY churn.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	hdb := &HistoryDB{
		db:     db,
		dbPath: dbPath,
	}

	if opts.EnableWAL {
		if _, err := db.ExecContext(context.Background(), "PRAGMA journal_mode=WAL"); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
		}
	}

	if err := hdb.createTables(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	return hdb, nil
}

// Close closes the database connection.
func (hdb *HistoryDB) Close() error {
	return hdb.db.Close()
}

// createTables creates the database schema if it doesn't exist.
func (hdb *HistoryDB) createTables() error {
	schema := `
	-- Audit runs store one summary row per completed audit pass
	CREATE TABLE IF NOT EXISTS audit_runs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		project TEXT NOT NULL,
		run_id TEXT NOT NULL,
		generated_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		total_pages INTEGER NOT NULL,
		total_issues INTEGER NOT NULL,
		status_buckets TEXT NOT NULL,
		issue_counts TEXT NOT NULL,
		audit_json TEXT NOT NULL,
		UNIQUE(project, run_id)
	);

	CREATE INDEX IF NOT EXISTS idx_runs_project ON audit_runs(project);
	CREATE INDEX IF NOT EXISTS idx_runs_generated ON audit_runs(generated_at);
	`

	_, err := hdb.db.ExecContext(context.Background(), schema)
	return err
}

// SaveAuditRecord inserts or updates the summary row for one audit run.
// Re-auditing the same run replaces its row, mirroring how audit.json
// is overwritten on disk.
func (hdb *HistoryDB) SaveAuditRecord(ctx context.Context, record *model.AuditRecord) error {
	bucketsJSON, err := json.Marshal(record.StatusBuckets)
	if err != nil {
		return fmt.Errorf("failed to serialize status buckets: %w", err)
	}
	countsJSON, err := json.Marshal(record.IssueCounts)
	if err != nil {
		return fmt.Errorf("failed to serialize issue counts: %w", err)
	}
	auditJSON, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to serialize audit record: %w", err)
	}

	query := `
	INSERT INTO audit_runs (project, run_id, generated_at, total_pages, total_issues, status_buckets, issue_counts, audit_json)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(project, run_id) DO UPDATE SET
		generated_at = excluded.generated_at,
		total_pages = excluded.total_pages,
		total_issues = excluded.total_issues,
		status_buckets = excluded.status_buckets,
		issue_counts = excluded.issue_counts,
		audit_json = excluded.audit_json
	`

	_, err = hdb.db.ExecContext(ctx, query,
		record.Project,
		record.RunID,
		record.GeneratedAt.UTC().Format("2006-01-02 15:04:05"),
		record.TotalPages,
		record.TotalIssues(),
		string(bucketsJSON),
		string(countsJSON),
		string(auditJSON),
	)
	if err != nil {
		return fmt.Errorf("failed to save audit record: %w", err)
	}

	return nil
}

// GetAuditRecord retrieves the full audit record for one run.
// Returns nil without error when the run has no stored audit.
func (hdb *HistoryDB) GetAuditRecord(ctx context.Context, project, runID string) (*model.AuditRecord, error) {
	query := `
	SELECT audit_json FROM audit_runs
	WHERE project = ? AND run_id = ?
	`

	var auditJSON string
	err := hdb.db.QueryRowContext(ctx, query, project, runID).Scan(&auditJSON)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get audit record: %w", err)
	}

	var record model.AuditRecord
	if err := json.Unmarshal([]byte(auditJSON), &record); err != nil {
		return nil, fmt.Errorf("failed to parse audit record: %w", err)
	}

	return &record, nil
}

// GetLatestAuditRecord retrieves the most recent audit record for a
// project. Returns nil without error when the project has no history.
func (hdb *HistoryDB) GetLatestAuditRecord(ctx context.Context, project string) (*model.AuditRecord, error) {
	query := `
	SELECT audit_json FROM audit_runs
	WHERE project = ?
	ORDER BY generated_at DESC, id DESC
	LIMIT 1
	`

	var auditJSON string
	err := hdb.db.QueryRowContext(ctx, query, project).Scan(&auditJSON)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get audit record: %w", err)
	}

	var record model.AuditRecord
	if err := json.Unmarshal([]byte(auditJSON), &record); err != nil {
		return nil, fmt.Errorf("failed to parse audit record: %w", err)
	}

	return &record, nil
}

// ListProjects returns all project slugs with stored audit history.
func (hdb *HistoryDB) ListProjects(ctx context.Context) ([]string, error) {
	query := `
	SELECT DISTINCT project FROM audit_runs
	ORDER BY project
	`

	rows, err := hdb.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list projects: %w", err)
	}
	defer rows.Close()

	var projects []string
	for rows.Next() {
		var project string
		if err := rows.Scan(&project); err != nil {
			return nil, fmt.Errorf("failed to scan project: %w", err)
		}
		projects = append(projects, project)
	}

	return projects, rows.Err()
}

// RunSummary contains the per-run metadata shown in history listings.
// It avoids loading the full audit JSON when only counts are needed.
type RunSummary struct {
	// ID is the row identifier in the database.
	ID int64

	// Project is the audited project slug.
	Project string

	// RunID identifies the audited run.
	RunID string

	// GeneratedAt is when the audit pass ran.
	GeneratedAt time.Time

	// TotalPages is the number of pages that were audited.
	TotalPages int

	// TotalIssues is the sum of all issue occurrences.
	TotalIssues int

	// StatusBuckets maps bucket name to page count.
	StatusBuckets map[string]int

	// IssueCounts maps issue label to occurrence count.
	IssueCounts map[string]int
}

// GetRunHistory retrieves run summaries for a project, newest first.
func (hdb *HistoryDB) GetRunHistory(ctx context.Context, project string) ([]RunSummary, error) {
	query := `
	SELECT id, project, run_id, generated_at, total_pages, total_issues, status_buckets, issue_counts
	FROM audit_runs
	WHERE project = ?
	ORDER BY generated_at DESC, id DESC
	`

	rows, err := hdb.db.QueryContext(ctx, query, project)
	if err != nil {
		return nil, fmt.Errorf("failed to get run history: %w", err)
	}
	defer rows.Close()

	var results []RunSummary
	for rows.Next() {
		var summary RunSummary
		var generatedAt string
		var bucketsJSON, countsJSON string

		if err := rows.Scan(
			&summary.ID,
			&summary.Project,
			&summary.RunID,
			&generatedAt,
			&summary.TotalPages,
			&summary.TotalIssues,
			&bucketsJSON,
			&countsJSON,
		); err != nil {
			return nil, fmt.Errorf("failed to scan run summary: %w", err)
		}

		summary.GeneratedAt = parseTimestamp(generatedAt)
		if err := json.Unmarshal([]byte(bucketsJSON), &summary.StatusBuckets); err != nil {
			summary.StatusBuckets = make(map[string]int)
		}
		if err := json.Unmarshal([]byte(countsJSON), &summary.IssueCounts); err != nil {
			summary.IssueCounts = make(map[string]int)
		}

		results = append(results, summary)
	}

	return results, rows.Err()
}

// Comparison is the delta between two audited runs of one project.
type Comparison struct {
	// Project is the compared project slug.
	Project string

	// BaseRunID and TargetRunID identify the compared runs.
	BaseRunID   string
	TargetRunID string

	// PageDelta is target total pages minus base total pages.
	PageDelta int

	// IssueDelta maps issue label to the change in occurrence count.
	// Labels absent from one run count as zero on that side; zero
	// deltas are omitted.
	IssueDelta map[string]int

	// BucketDelta maps status bucket to the change in page count,
	// omitting zero deltas.
	BucketDelta map[string]int
}

// CompareRuns computes the issue and bucket deltas between two stored
// runs. Both runs must exist in the history.
func (hdb *HistoryDB) CompareRuns(ctx context.Context, project, baseRunID, targetRunID string) (*Comparison, error) {
	base, err := hdb.GetAuditRecord(ctx, project, baseRunID)
	if err != nil {
		return nil, err
	}
	if base == nil {
		return nil, fmt.Errorf("no audit history for run %s of project %s", baseRunID, project)
	}

	target, err := hdb.GetAuditRecord(ctx, project, targetRunID)
	if err != nil {
		return nil, err
	}
	if target == nil {
		return nil, fmt.Errorf("no audit history for run %s of project %s", targetRunID, project)
	}

	return &Comparison{
		Project:     project,
		BaseRunID:   baseRunID,
		TargetRunID: targetRunID,
		PageDelta:   target.TotalPages - base.TotalPages,
		IssueDelta:  diffCounts(base.IssueCounts, target.IssueCounts),
		BucketDelta: diffCounts(base.StatusBuckets, target.StatusBuckets),
	}, nil
}

// diffCounts returns target minus base per key, dropping zero deltas.
func diffCounts(base, target map[string]int) map[string]int {
	delta := make(map[string]int)
	for key, n := range target {
		if d := n - base[key]; d != 0 {
			delta[key] = d
		}
	}
	for key, n := range base {
		if _, seen := target[key]; !seen && n != 0 {
			delta[key] = -n
		}
	}
	return delta
}

// timestampFormats contains the timestamp formats that SQLite may
// return. The order matters: more specific formats come first.
var timestampFormats = []string{
	"2006-01-02 15:04:05",     // SQLite default datetime format
	"2006-01-02T15:04:05Z",    // ISO 8601 with Z suffix
	"2006-01-02T15:04:05",     // ISO 8601 without timezone
	time.RFC3339,              // Full RFC3339 format
	time.RFC3339Nano,          // RFC3339 with nanoseconds
	"2006-01-02 15:04:05.999", // SQLite with milliseconds
}

// parseTimestamp attempts to parse a timestamp string using multiple
// formats. SQLite may return timestamps in different formats depending
// on configuration. If parsing fails with all formats, returns zero
// time.
func parseTimestamp(s string) time.Time {
	for _, format := range timestampFormats {
		if t, err := time.Parse(format, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
