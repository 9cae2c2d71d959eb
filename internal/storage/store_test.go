package storage

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/seoscan/seoscan/internal/model"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()

	store, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return store
}

func TestStoreProjects(t *testing.T) {
	t.Parallel()

	t.Run("should save and load a project", func(t *testing.T) {
		t.Parallel()

		store := newTestStore(t)
		project := &model.Project{
			Slug:        "demo-shop",
			BaseURL:     "https://example.com",
			SeedURLs:    []string{"https://example.com/products"},
			ExcludeURLs: []string{"*/tag/*"},
			MaxRetries:  2,
		}
		if err := store.SaveProject(project); err != nil {
			t.Fatalf("SaveProject() error = %v", err)
		}

		loaded, err := store.LoadProject("demo-shop")
		if err != nil {
			t.Fatalf("LoadProject() error = %v", err)
		}
		if loaded.BaseURL != project.BaseURL {
			t.Errorf("BaseURL = %q, want %q", loaded.BaseURL, project.BaseURL)
		}
		if len(loaded.ExcludeURLs) != 1 || loaded.ExcludeURLs[0] != "*/tag/*" {
			t.Errorf("ExcludeURLs = %v", loaded.ExcludeURLs)
		}
		if loaded.MaxRetries != 2 {
			t.Errorf("MaxRetries = %d, want 2", loaded.MaxRetries)
		}
	})

	t.Run("should return ErrProjectNotFound for an unknown slug", func(t *testing.T) {
		t.Parallel()

		store := newTestStore(t)
		if _, err := store.LoadProject("nope"); !errors.Is(err, ErrProjectNotFound) {
			t.Errorf("LoadProject() error = %v, want ErrProjectNotFound", err)
		}
	})

	t.Run("should list project slugs sorted", func(t *testing.T) {
		t.Parallel()

		store := newTestStore(t)
		for _, slug := range []string{"zeta", "alpha", "mid"} {
			project := &model.Project{Slug: slug, BaseURL: "https://" + slug + ".example"}
			if err := store.SaveProject(project); err != nil {
				t.Fatal(err)
			}
		}

		slugs, err := store.ListProjects()
		if err != nil {
			t.Fatalf("ListProjects() error = %v", err)
		}
		want := []string{"alpha", "mid", "zeta"}
		if len(slugs) != len(want) {
			t.Fatalf("ListProjects() = %v, want %v", slugs, want)
		}
		for i := range want {
			if slugs[i] != want[i] {
				t.Errorf("ListProjects()[%d] = %q, want %q", i, slugs[i], want[i])
			}
		}
	})
}

func TestStoreRunMeta(t *testing.T) {
	t.Parallel()

	t.Run("should round-trip run metadata", func(t *testing.T) {
		t.Parallel()

		store := newTestStore(t)
		if err := store.EnsureRunDirs("demo-shop", "run-1"); err != nil {
			t.Fatal(err)
		}
		started := time.Date(2026, 8, 31, 6, 0, 0, 0, time.UTC)
		meta := &model.RunMeta{
			RunID:     "run-1",
			Project:   "demo-shop",
			StartedAt: started,
			SeedURLs:  []string{"https://example.com"},
		}
		if err := store.SaveRunMeta(meta); err != nil {
			t.Fatalf("SaveRunMeta() error = %v", err)
		}

		loaded, err := store.LoadRunMeta("demo-shop", "run-1")
		if err != nil {
			t.Fatalf("LoadRunMeta() error = %v", err)
		}
		if !loaded.StartedAt.Equal(started) {
			t.Errorf("StartedAt = %v, want %v", loaded.StartedAt, started)
		}
		if loaded.CompletedAt != nil {
			t.Errorf("CompletedAt = %v, want nil", loaded.CompletedAt)
		}
	})

	t.Run("should set CompletedAt only once", func(t *testing.T) {
		t.Parallel()

		store := newTestStore(t)
		if err := store.EnsureRunDirs("demo-shop", "run-1"); err != nil {
			t.Fatal(err)
		}
		meta := &model.RunMeta{RunID: "run-1", Project: "demo-shop", StartedAt: time.Now().UTC()}
		if err := store.SaveRunMeta(meta); err != nil {
			t.Fatal(err)
		}

		first := time.Date(2026, 8, 31, 7, 0, 0, 0, time.UTC)
		if err := store.TouchRun("demo-shop", "run-1", first, true); err != nil {
			t.Fatalf("TouchRun() error = %v", err)
		}
		second := first.Add(time.Hour)
		if err := store.TouchRun("demo-shop", "run-1", second, true); err != nil {
			t.Fatalf("TouchRun() error = %v", err)
		}

		loaded, err := store.LoadRunMeta("demo-shop", "run-1")
		if err != nil {
			t.Fatal(err)
		}
		if loaded.CompletedAt == nil || !loaded.CompletedAt.Equal(first) {
			t.Errorf("CompletedAt = %v, want first completion %v", loaded.CompletedAt, first)
		}
		if loaded.LastProcessedAt == nil || !loaded.LastProcessedAt.Equal(second) {
			t.Errorf("LastProcessedAt = %v, want latest touch %v", loaded.LastProcessedAt, second)
		}
	})

	t.Run("should leave CompletedAt unset for an incomplete touch", func(t *testing.T) {
		t.Parallel()

		store := newTestStore(t)
		if err := store.EnsureRunDirs("demo-shop", "run-1"); err != nil {
			t.Fatal(err)
		}
		meta := &model.RunMeta{RunID: "run-1", Project: "demo-shop", StartedAt: time.Now().UTC()}
		if err := store.SaveRunMeta(meta); err != nil {
			t.Fatal(err)
		}

		now := time.Now().UTC()
		if err := store.TouchRun("demo-shop", "run-1", now, false); err != nil {
			t.Fatal(err)
		}

		loaded, err := store.LoadRunMeta("demo-shop", "run-1")
		if err != nil {
			t.Fatal(err)
		}
		if loaded.CompletedAt != nil {
			t.Errorf("CompletedAt = %v, want nil", loaded.CompletedAt)
		}
		if loaded.LastProcessedAt == nil {
			t.Error("LastProcessedAt not set")
		}
	})
}

func TestStoreLatestRun(t *testing.T) {
	t.Parallel()

	t.Run("should track the latest run pointer", func(t *testing.T) {
		t.Parallel()

		store := newTestStore(t)
		if err := store.EnsureRunDirs("demo-shop", "run-2"); err != nil {
			t.Fatal(err)
		}
		if err := store.SetLatestRun("demo-shop", "run-2"); err != nil {
			t.Fatalf("SetLatestRun() error = %v", err)
		}

		latest, err := store.LatestRun("demo-shop")
		if err != nil {
			t.Fatalf("LatestRun() error = %v", err)
		}
		if latest != "run-2" {
			t.Errorf("LatestRun() = %q, want %q", latest, "run-2")
		}
	})

	t.Run("should return ErrNoRuns when no run exists", func(t *testing.T) {
		t.Parallel()

		store := newTestStore(t)
		if _, err := store.LatestRun("demo-shop"); !errors.Is(err, ErrNoRuns) {
			t.Errorf("LatestRun() error = %v, want ErrNoRuns", err)
		}
	})
}

func TestStoreListRuns(t *testing.T) {
	t.Parallel()

	t.Run("should list runs sorted", func(t *testing.T) {
		t.Parallel()

		store := newTestStore(t)
		for _, runID := range []string{"20260830-120000-b", "20260829-060000-a"} {
			if err := store.EnsureRunDirs("demo-shop", runID); err != nil {
				t.Fatal(err)
			}
		}

		runs, err := store.ListRuns("demo-shop")
		if err != nil {
			t.Fatalf("ListRuns() error = %v", err)
		}
		if len(runs) != 2 {
			t.Fatalf("ListRuns() = %v, want 2 entries", runs)
		}
		if runs[0] != "20260829-060000-a" || runs[1] != "20260830-120000-b" {
			t.Errorf("ListRuns() = %v, want sorted ascending", runs)
		}
	})

	t.Run("should return nothing for a project without runs", func(t *testing.T) {
		t.Parallel()

		store := newTestStore(t)
		runs, err := store.ListRuns("demo-shop")
		if err != nil {
			t.Fatalf("ListRuns() error = %v", err)
		}
		if len(runs) != 0 {
			t.Errorf("ListRuns() = %v, want empty", runs)
		}
	})
}

func TestStoreErrorRecords(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	if err := store.EnsureRunDirs("demo-shop", "run-1"); err != nil {
		t.Fatal(err)
	}

	url := "https://example.com/broken"
	hash := model.URLHash(url)

	t.Run("should return nil for a missing record", func(t *testing.T) {
		record, err := store.LoadErrorRecord("demo-shop", "run-1", hash)
		if err != nil {
			t.Fatalf("LoadErrorRecord() error = %v", err)
		}
		if record != nil {
			t.Errorf("LoadErrorRecord() = %v, want nil", record)
		}
	})

	t.Run("should round-trip an error record", func(t *testing.T) {
		saved := &model.ErrorRecord{
			URL:        url,
			OccurredAt: time.Now().UTC(),
			StatusCode: 503,
			Message:    "service unavailable",
			Attempts:   1,
		}
		if err := store.SaveErrorRecord("demo-shop", "run-1", saved); err != nil {
			t.Fatalf("SaveErrorRecord() error = %v", err)
		}

		loaded, err := store.LoadErrorRecord("demo-shop", "run-1", hash)
		if err != nil {
			t.Fatal(err)
		}
		if loaded == nil {
			t.Fatal("LoadErrorRecord() = nil after save")
		}
		if loaded.StatusCode != 503 || loaded.Attempts != 1 {
			t.Errorf("loaded = %+v", loaded)
		}
	})

	t.Run("should remove a record idempotently", func(t *testing.T) {
		if err := store.RemoveErrorRecord("demo-shop", "run-1", hash); err != nil {
			t.Fatalf("RemoveErrorRecord() error = %v", err)
		}
		if err := store.RemoveErrorRecord("demo-shop", "run-1", hash); err != nil {
			t.Fatalf("RemoveErrorRecord() second call error = %v", err)
		}

		record, err := store.LoadErrorRecord("demo-shop", "run-1", hash)
		if err != nil {
			t.Fatal(err)
		}
		if record != nil {
			t.Error("record still present after removal")
		}
	})
}

func TestStorePageRecords(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	if err := store.EnsureRunDirs("demo-shop", "run-1"); err != nil {
		t.Fatal(err)
	}

	for _, url := range []string{"https://example.com/a", "https://example.com/b"} {
		record := &model.PageRecord{URL: url, StatusCode: 200, ContentType: "text/html"}
		if err := store.SavePageRecord("demo-shop", "run-1", record); err != nil {
			t.Fatal(err)
		}
	}

	// Corrupt and empty-URL files must not break the listing.
	pagesDir := store.PagesDir("demo-shop", "run-1")
	if err := os.WriteFile(filepath.Join(pagesDir, "corrupt.json"), []byte("{not json"), 0o640); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(pagesDir, "empty.json"), []byte("{}"), 0o640); err != nil {
		t.Fatal(err)
	}

	records, err := store.PageRecords("demo-shop", "run-1")
	if err != nil {
		t.Fatalf("PageRecords() error = %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("PageRecords() returned %d records, want 2", len(records))
	}
	for _, record := range records {
		if record.URL == "" {
			t.Error("record with empty URL leaked through")
		}
	}
}

func TestStoreAudit(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	if err := store.EnsureRunDirs("demo-shop", "run-1"); err != nil {
		t.Fatal(err)
	}

	audit := &model.AuditRecord{
		Project:       "demo-shop",
		RunID:         "run-1",
		GeneratedAt:   time.Now().UTC(),
		TotalPages:    3,
		StatusBuckets: map[string]int{model.Bucket2xx: 2, model.Bucket4xx: 1},
		IssueCounts:   map[string]int{model.IssueMissingTitle: 1},
	}
	if err := store.SaveAudit(audit); err != nil {
		t.Fatalf("SaveAudit() error = %v", err)
	}

	loaded, err := store.LoadAudit("demo-shop", "run-1")
	if err != nil {
		t.Fatalf("LoadAudit() error = %v", err)
	}
	if loaded.TotalPages != 3 {
		t.Errorf("TotalPages = %d, want 3", loaded.TotalPages)
	}
	if loaded.TotalIssues() != 1 {
		t.Errorf("TotalIssues() = %d, want 1", loaded.TotalIssues())
	}
}

func TestHasTerminalArtifact(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	if err := store.EnsureRunDirs("demo-shop", "run-1"); err != nil {
		t.Fatal(err)
	}

	url := "https://example.com/seen"
	hash := model.URLHash(url)

	if store.HasTerminalArtifact("demo-shop", "run-1", hash) {
		t.Error("HasTerminalArtifact() = true before any artifact")
	}

	record := &model.PageRecord{URL: url, StatusCode: 200}
	if err := store.SavePageRecord("demo-shop", "run-1", record); err != nil {
		t.Fatal(err)
	}

	if !store.HasTerminalArtifact("demo-shop", "run-1", hash) {
		t.Error("HasTerminalArtifact() = false after page record saved")
	}
}

func TestWriteJSON(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "out.json")
	payload := map[string]string{"url": "https://example.com/?a=1&b=2"}
	if err := WriteJSON(path, payload); err != nil {
		t.Fatalf("WriteJSON() error = %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	text := string(data)

	// HTML escaping must be off so URLs survive readable.
	if strings.Contains(text, `&`) {
		t.Errorf("ampersand escaped in %q", text)
	}
	if !strings.Contains(text, "\n  ") {
		t.Errorf("output not indented: %q", text)
	}
	if !strings.HasSuffix(text, "\n") {
		t.Error("output missing trailing newline")
	}
}
