package report

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/seoscan/seoscan/internal/model"
)

func testRecord() *model.AuditRecord {
	return &model.AuditRecord{
		Project:     "demo-shop",
		RunID:       "20250601-120000-abcd1234",
		GeneratedAt: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
		TotalPages:  3,
		StatusBuckets: map[string]int{
			model.Bucket2xx:   2,
			model.Bucket3xx:   0,
			model.Bucket4xx:   1,
			model.Bucket5xx:   0,
			model.BucketOther: 0,
		},
		IssueCounts: map[string]int{
			model.IssueMissingTitle: 2,
			model.IssueClientError:  1,
		},
		Pages: []model.PageAudit{
			{
				URL:        "https://example.com/",
				StatusCode: 200,
				Issues:     []string{model.IssueMissingTitle},
			},
			{
				URL:        "https://example.com/clean",
				StatusCode: 200,
				Issues:     []string{},
			},
			{
				URL:        "https://example.com/gone",
				StatusCode: 404,
				Issues:     []string{model.IssueClientError, model.IssueMissingTitle},
			},
		},
	}
}

func TestJSONWriter(t *testing.T) {
	t.Parallel()

	t.Run("should write compact parseable JSON", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		n, err := NewJSONWriter(&buf).Write(testRecord())
		if err != nil {
			t.Fatalf("Write() error = %v", err)
		}
		if n != buf.Len() {
			t.Errorf("Write() = %d bytes, buffer has %d", n, buf.Len())
		}

		var decoded model.AuditRecord
		if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
			t.Fatalf("output is not valid JSON: %v", err)
		}
		if decoded.TotalPages != 3 {
			t.Errorf("TotalPages = %d, want 3", decoded.TotalPages)
		}
	})

	t.Run("should pretty print when configured", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewJSONWriter(&buf, WithPrettyPrint()).Write(testRecord()); err != nil {
			t.Fatalf("Write() error = %v", err)
		}
		if !strings.Contains(buf.String(), "\n  ") {
			t.Error("expected indented output")
		}
	})

	t.Run("should wrap the record with version metadata", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewFullJSONWriter(&buf, "1.2.3").Write(testRecord()); err != nil {
			t.Fatalf("Write() error = %v", err)
		}

		var wrapped VersionedReport
		if err := json.Unmarshal(buf.Bytes(), &wrapped); err != nil {
			t.Fatalf("output is not valid JSON: %v", err)
		}
		if wrapped.Version != "1.2.3" {
			t.Errorf("Version = %q, want 1.2.3", wrapped.Version)
		}
		if wrapped.Audit == nil || wrapped.Audit.Project != "demo-shop" {
			t.Errorf("Audit = %+v", wrapped.Audit)
		}
	})
}

func TestMarkdownWriter(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	if _, err := NewMarkdownWriter(&buf).Write(testRecord()); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	out := buf.String()

	t.Run("should title the report after the project", func(t *testing.T) {
		t.Parallel()

		if !strings.Contains(out, "# SEO Audit: Demo Shop") {
			t.Errorf("missing titled header in output:\n%s", out)
		}
	})

	t.Run("should include a mermaid status chart", func(t *testing.T) {
		t.Parallel()

		if !strings.Contains(out, "```mermaid") {
			t.Error("missing mermaid code block")
		}
		if !strings.Contains(out, "pie") {
			t.Error("missing pie chart")
		}
	})

	t.Run("should list issues with counts", func(t *testing.T) {
		t.Parallel()

		if !strings.Contains(out, model.IssueMissingTitle) {
			t.Error("missing issue label in summary")
		}
	})

	t.Run("should warn about client errors", func(t *testing.T) {
		t.Parallel()

		if !strings.Contains(out, "client errors") {
			t.Error("missing client-error alert")
		}
	})

	t.Run("should skip clean pages in the page table", func(t *testing.T) {
		t.Parallel()

		if strings.Contains(out, "https://example.com/clean") {
			t.Error("clean page should not be listed")
		}
		if !strings.Contains(out, "https://example.com/gone") {
			t.Error("page with issues should be listed")
		}
	})
}

func TestSimpleWriter(t *testing.T) {
	t.Parallel()

	t.Run("should render all sections", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewSimpleWriter(&buf).Write(testRecord()); err != nil {
			t.Fatalf("Write() error = %v", err)
		}
		out := buf.String()

		for _, section := range []string{
			"SEO AUDIT REPORT",
			"HTTP STATUS DISTRIBUTION",
			"ISSUE SUMMARY",
			"PAGES",
		} {
			if !strings.Contains(out, section) {
				t.Errorf("missing section %q", section)
			}
		}
		if strings.Contains(out, "https://example.com/clean") {
			t.Error("clean page listed without WithShowClean")
		}
	})

	t.Run("should list clean pages when configured", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewSimpleWriter(&buf, WithShowClean(true)).Write(testRecord()); err != nil {
			t.Fatalf("Write() error = %v", err)
		}
		if !strings.Contains(buf.String(), "https://example.com/clean") {
			t.Error("clean page missing with WithShowClean")
		}
	})

	t.Run("should cap the page listing", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewSimpleWriter(&buf, WithMaxPages(1)).Write(testRecord()); err != nil {
			t.Fatalf("Write() error = %v", err)
		}
		if !strings.Contains(buf.String(), "limit 1 reached") {
			t.Error("missing truncation marker")
		}
	})
}

func TestMultiWriter(t *testing.T) {
	t.Parallel()

	var text, jsonOut bytes.Buffer
	mw := NewMultiWriter(
		NewSimpleWriter(&text),
		NewJSONWriter(&jsonOut),
	)

	n, err := mw.Write(testRecord())
	if err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	if n != text.Len()+jsonOut.Len() {
		t.Errorf("Write() = %d bytes, want %d", n, text.Len()+jsonOut.Len())
	}
	if text.Len() == 0 || jsonOut.Len() == 0 {
		t.Error("one of the writers received no output")
	}
}

func TestSortedIssues(t *testing.T) {
	t.Parallel()

	counts := map[string]int{
		"b issue": 2,
		"a issue": 2,
		"c issue": 5,
	}
	got := sortedIssues(counts)
	want := []issueCount{
		{label: "c issue", count: 5},
		{label: "a issue", count: 2},
		{label: "b issue", count: 2},
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("sortedIssues()[%d] = %+v, want %+v", i, got[i], want[i])
		}
	}
}
