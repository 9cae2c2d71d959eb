package main

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/seoscan/seoscan/internal/storage"
)

// newCmdTestSite starts a small HTML site for command-level tests.
func newCmdTestSite(t *testing.T) *httptest.Server {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			w.WriteHeader(http.StatusNotFound)
			fmt.Fprint(w, "<html><body>gone</body></html>")
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		fmt.Fprint(w, `<html><head><title>Home</title></head>
<body><h1>Welcome</h1><a href="/about">About</a></body></html>`)
	})
	mux.HandleFunc("/about", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		fmt.Fprint(w, `<html><head><title>About the demo shop team</title></head>
<body><h1>About</h1><p>We sell demo goods.</p></body></html>`)
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

// TestRunCommandEndToEnd exercises init + run + report through the CLI.
func TestRunCommandEndToEnd(t *testing.T) {
	t.Parallel()

	srv := newCmdTestSite(t)
	dataDir := t.TempDir()
	reportPath := filepath.Join(t.TempDir(), "report.md")

	if _, err := execSeoscan(t, "--data-dir", dataDir,
		"init", "demo-shop", srv.URL); err != nil {
		t.Fatalf("init failed: %v", err)
	}

	if _, err := execSeoscan(t, "--data-dir", dataDir,
		"run", "demo-shop", "--no-db", "--markdown", "-o", reportPath); err != nil {
		t.Fatalf("run failed: %v", err)
	}

	content, err := os.ReadFile(reportPath)
	if err != nil {
		t.Fatalf("report not written: %v", err)
	}
	if !strings.Contains(string(content), "# SEO Audit: Demo Shop") {
		t.Errorf("report missing heading, got:\n%s", content)
	}

	store, err := storage.New(dataDir)
	if err != nil {
		t.Fatal(err)
	}
	runID, err := store.LatestRun("demo-shop")
	if err != nil {
		t.Fatalf("no latest run recorded: %v", err)
	}
	audit, err := store.LoadAudit("demo-shop", runID)
	if err != nil {
		t.Fatalf("audit not persisted: %v", err)
	}
	if audit.TotalPages != 2 {
		t.Errorf("TotalPages = %d, want 2", audit.TotalPages)
	}
}

// TestCrawlResumeAndAudit exercises the step-capped crawl, resume, and
// standalone audit commands.
func TestCrawlResumeAndAudit(t *testing.T) {
	t.Parallel()

	srv := newCmdTestSite(t)
	dataDir := t.TempDir()

	if _, err := execSeoscan(t, "--data-dir", dataDir,
		"init", "demo-shop", srv.URL); err != nil {
		t.Fatalf("init failed: %v", err)
	}

	// First invocation processes a single URL and leaves the queue
	// non-empty.
	if _, err := execSeoscan(t, "--data-dir", dataDir,
		"crawl", "demo-shop", "--max-steps", "1"); err != nil {
		t.Fatalf("capped crawl failed: %v", err)
	}

	store, err := storage.New(dataDir)
	if err != nil {
		t.Fatal(err)
	}
	runID, err := store.LatestRun("demo-shop")
	if err != nil {
		t.Fatal(err)
	}
	meta, err := store.LoadRunMeta("demo-shop", runID)
	if err != nil {
		t.Fatal(err)
	}
	if meta.CompletedAt != nil {
		t.Error("run marked complete after capped crawl")
	}

	// Resume drains the rest of the queue in the same run.
	if _, err := execSeoscan(t, "--data-dir", dataDir,
		"crawl", "demo-shop", "--resume"); err != nil {
		t.Fatalf("resume crawl failed: %v", err)
	}

	meta, err = store.LoadRunMeta("demo-shop", runID)
	if err != nil {
		t.Fatal(err)
	}
	if meta.CompletedAt == nil {
		t.Error("run not marked complete after resume")
	}

	if _, err := execSeoscan(t, "--data-dir", dataDir,
		"audit", "demo-shop", "--no-db"); err != nil {
		t.Fatalf("audit failed: %v", err)
	}

	audit, err := store.LoadAudit("demo-shop", runID)
	if err != nil {
		t.Fatalf("audit not persisted: %v", err)
	}
	if audit.TotalPages != 2 {
		t.Errorf("TotalPages = %d, want 2", audit.TotalPages)
	}

	reportPath := filepath.Join(t.TempDir(), "report.txt")
	if _, err := execSeoscan(t, "--data-dir", dataDir,
		"report", "demo-shop", "-o", reportPath); err != nil {
		t.Fatalf("report failed: %v", err)
	}
	content, err := os.ReadFile(reportPath)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(content), "SEO AUDIT REPORT") {
		t.Errorf("text report missing header, got:\n%s", content)
	}
}

// TestReportWithoutAudit verifies the error path for a run that was
// crawled but never audited.
func TestReportWithoutAudit(t *testing.T) {
	t.Parallel()

	srv := newCmdTestSite(t)
	dataDir := t.TempDir()

	if _, err := execSeoscan(t, "--data-dir", dataDir,
		"init", "demo-shop", srv.URL); err != nil {
		t.Fatalf("init failed: %v", err)
	}
	if _, err := execSeoscan(t, "--data-dir", dataDir,
		"crawl", "demo-shop"); err != nil {
		t.Fatalf("crawl failed: %v", err)
	}

	_, err := execSeoscan(t, "--data-dir", dataDir, "report", "demo-shop")
	if err == nil {
		t.Fatal("expected error for missing audit")
	}
	if !strings.Contains(err.Error(), "no audit found") {
		t.Errorf("error = %v, want 'no audit found'", err)
	}
}

// TestRunUnknownProject verifies the error path for an unregistered
// slug.
func TestRunUnknownProject(t *testing.T) {
	t.Parallel()

	_, err := execSeoscan(t, "--data-dir", t.TempDir(), "run", "missing", "--no-db")
	if err == nil {
		t.Fatal("expected error for unknown project")
	}
}

// TestRunConflictingFormats verifies the mutual exclusion of report
// formats.
func TestRunConflictingFormats(t *testing.T) {
	t.Parallel()

	_, err := execSeoscan(t, "--data-dir", t.TempDir(),
		"run", "whatever", "--no-db", "--json", "--markdown")
	if err == nil {
		t.Fatal("expected error for conflicting formats")
	}
	if !strings.Contains(err.Error(), "configuration error") {
		t.Errorf("error = %v, want configuration error", err)
	}
}
