package pipeline

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/seoscan/seoscan/internal/crawler"
	"github.com/seoscan/seoscan/internal/database"
	"github.com/seoscan/seoscan/internal/model"
	"github.com/seoscan/seoscan/internal/report"
	"github.com/seoscan/seoscan/internal/storage"
)

// newStepSite serves a two-page site for end-to-end step tests.
func newStepSite(t *testing.T) *httptest.Server {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		fmt.Fprint(w, `<html><head><title>Home</title></head><body><h1>Home</h1><a href="/about">About</a></body></html>`)
	})
	mux.HandleFunc("/about", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		fmt.Fprint(w, `<html><head><title>About</title></head><body><h1>About</h1></body></html>`)
	})

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

func TestPipelineEndToEnd(t *testing.T) {
	t.Parallel()

	server := newStepSite(t)
	store, err := storage.New(t.TempDir())
	if err != nil {
		t.Fatalf("storage.New() error = %v", err)
	}
	hdb, err := database.Open(t.TempDir(), database.DefaultOptions())
	if err != nil {
		t.Fatalf("database.Open() error = %v", err)
	}
	t.Cleanup(func() { _ = hdb.Close() })

	var reportOut bytes.Buffer
	fetcher := crawler.NewFetcher(crawler.WithTimeout(5 * time.Second))

	p := New()
	p.AddSteps(
		NewSeedStep(store),
		NewCrawlStep(store, fetcher, 0, nil),
		NewAuditStep(store, nil),
		NewHistoryStep(hdb),
		NewReportStep(report.NewJSONWriter(&reportOut)),
	)

	project := &model.Project{Slug: "demo", BaseURL: server.URL}
	state := NewRunState(project)
	if err := p.Execute(context.Background(), state); err != nil {
		t.Fatalf("Execute() error = %v", err)
	}

	t.Run("should assign a run ID and seed the queue", func(t *testing.T) {
		t.Parallel()

		if state.RunID == "" {
			t.Error("RunID is empty")
		}
		if state.Seeded != 1 {
			t.Errorf("Seeded = %d, want 1", state.Seeded)
		}
	})

	t.Run("should drain the crawl", func(t *testing.T) {
		t.Parallel()

		if !state.Drained {
			t.Error("Drained = false, want true")
		}
		if state.Processed != 2 {
			t.Errorf("Processed = %d, want 2", state.Processed)
		}
	})

	t.Run("should produce an audit with both pages", func(t *testing.T) {
		t.Parallel()

		if state.Audit == nil {
			t.Fatal("Audit = nil")
		}
		if state.Audit.TotalPages != 2 {
			t.Errorf("TotalPages = %d, want 2", state.Audit.TotalPages)
		}
		if state.Audit.StatusBuckets[model.Bucket2xx] != 2 {
			t.Errorf("2xx = %d, want 2", state.Audit.StatusBuckets[model.Bucket2xx])
		}
	})

	t.Run("should record the run in history", func(t *testing.T) {
		t.Parallel()

		stored, err := hdb.GetAuditRecord(context.Background(), "demo", state.RunID)
		if err != nil {
			t.Fatalf("GetAuditRecord() error = %v", err)
		}
		if stored == nil {
			t.Fatal("no history row for the run")
		}
	})

	t.Run("should emit a report", func(t *testing.T) {
		t.Parallel()

		if reportOut.Len() == 0 {
			t.Error("report output is empty")
		}
	})
}

func TestStepsWithoutAudit(t *testing.T) {
	t.Parallel()

	t.Run("history step requires an audit record", func(t *testing.T) {
		t.Parallel()

		hdb, err := database.Open(t.TempDir(), database.DefaultOptions())
		if err != nil {
			t.Fatalf("database.Open() error = %v", err)
		}
		defer hdb.Close()

		state := NewRunState(&model.Project{Slug: "demo", BaseURL: "https://example.com"})
		if err := NewHistoryStep(hdb).Do(context.Background(), state); !errors.Is(err, ErrNoAudit) {
			t.Errorf("Do() = %v, want ErrNoAudit", err)
		}
	})

	t.Run("report step requires an audit record", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		state := NewRunState(&model.Project{Slug: "demo", BaseURL: "https://example.com"})
		step := NewReportStep(report.NewSimpleWriter(&buf))
		if err := step.Do(context.Background(), state); !errors.Is(err, ErrNoAudit) {
			t.Errorf("Do() = %v, want ErrNoAudit", err)
		}
	})
}

func TestCrawlStepInvalidBaseURL(t *testing.T) {
	t.Parallel()

	store, err := storage.New(t.TempDir())
	if err != nil {
		t.Fatalf("storage.New() error = %v", err)
	}

	step := NewCrawlStep(store, crawler.NewFetcher(), 0, nil)
	state := NewRunState(&model.Project{Slug: "demo", BaseURL: "::not-a-url"})
	state.RunID = "run-1"

	if err := step.Do(context.Background(), state); err == nil {
		t.Error("Do() expected error for invalid base URL")
	}
}

func TestSeedStepZeroSeeds(t *testing.T) {
	t.Parallel()

	store, err := storage.New(t.TempDir())
	if err != nil {
		t.Fatalf("storage.New() error = %v", err)
	}

	// The only seed matches the project's own exclude pattern, so
	// queue initialization enqueues nothing.
	project := &model.Project{
		Slug:        "demo",
		BaseURL:     "https://example.com",
		ExcludeURLs: []string{"*example.com*"},
	}
	state := NewRunState(project)

	if err := NewSeedStep(store).Do(context.Background(), state); !errors.Is(err, ErrNoSeeds) {
		t.Fatalf("Do() error = %v, want ErrNoSeeds", err)
	}
	if state.Seeded != 0 {
		t.Errorf("Seeded = %d, want 0", state.Seeded)
	}
}
