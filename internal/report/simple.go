package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/seoscan/seoscan/internal/model"
)

// SimpleWriter outputs human-readable text reports.
// This format is designed for terminal display with clear section
// formatting.
//
// Design decision: We use plain text with ASCII formatting rather than
// ANSI colors by default because:
// 1. It works in all terminals without compatibility issues
// 2. It's easier to pipe to files or other tools
// 3. Color can be added as an option later if needed
type SimpleWriter struct {
	baseWriter

	// showClean controls whether pages without issues are listed.
	showClean bool

	// maxPages caps the per-page listing; 0 means no cap.
	maxPages int
}

// SimpleWriterOption configures a SimpleWriter.
type SimpleWriterOption func(*SimpleWriter)

// WithShowClean configures the writer to list pages without issues.
func WithShowClean(show bool) SimpleWriterOption {
	return func(w *SimpleWriter) {
		w.showClean = show
	}
}

// WithMaxPages caps how many pages are listed individually.
func WithMaxPages(n int) SimpleWriterOption {
	return func(w *SimpleWriter) {
		w.maxPages = n
	}
}

// NewSimpleWriter creates a SimpleWriter that outputs to the given
// writer.
func NewSimpleWriter(output io.Writer, opts ...SimpleWriterOption) *SimpleWriter {
	w := &SimpleWriter{
		baseWriter: newBaseWriter(output),
	}

	for _, opt := range opts {
		opt(w)
	}

	return w
}

// Write outputs the audit record in human-readable format.
func (w *SimpleWriter) Write(record *model.AuditRecord) (int, error) {
	var sb strings.Builder

	w.writeHeader(&sb, record)
	w.writeBuckets(&sb, record)
	w.writeIssues(&sb, record)
	w.writePages(&sb, record)

	return w.output.Write([]byte(sb.String()))
}

// writeHeader writes the report header with run information.
func (w *SimpleWriter) writeHeader(sb *strings.Builder, record *model.AuditRecord) {
	sb.WriteString("\n")
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n")
	sb.WriteString("                         SEO AUDIT REPORT\n")
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n\n")

	sb.WriteString(fmt.Sprintf("Project:       %s\n", record.Project))
	sb.WriteString(fmt.Sprintf("Run:           %s\n", record.RunID))
	sb.WriteString(fmt.Sprintf("Generated:     %s\n", record.GeneratedAt.Format("2006-01-02 15:04:05 MST")))
	sb.WriteString(fmt.Sprintf("Pages Audited: %d\n", record.TotalPages))
	sb.WriteString(fmt.Sprintf("Total Issues:  %d\n", record.TotalIssues()))
	sb.WriteString("\n")
}

// writeBuckets writes the HTTP status distribution.
func (w *SimpleWriter) writeBuckets(sb *strings.Builder, record *model.AuditRecord) {
	sb.WriteString("HTTP STATUS DISTRIBUTION\n")
	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n")

	for _, bucket := range bucketOrder {
		sb.WriteString(fmt.Sprintf("  %-6s %d\n", bucket, record.StatusBuckets[bucket]))
	}
	sb.WriteString("\n")
}

// writeIssues writes the aggregated issue counts, most frequent first.
func (w *SimpleWriter) writeIssues(sb *strings.Builder, record *model.AuditRecord) {
	sb.WriteString("ISSUE SUMMARY\n")
	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n")

	issues := sortedIssues(record.IssueCounts)
	if len(issues) == 0 {
		sb.WriteString("  No issues detected.\n\n")
		return
	}

	for _, issue := range issues {
		sb.WriteString(fmt.Sprintf("  %4d  %s\n", issue.count, issue.label))
	}
	sb.WriteString("\n")
}

// writePages writes the per-page results.
func (w *SimpleWriter) writePages(sb *strings.Builder, record *model.AuditRecord) {
	sb.WriteString("PAGES\n")
	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n")

	listed := 0
	for _, page := range record.Pages {
		if len(page.Issues) == 0 && !w.showClean {
			continue
		}
		if w.maxPages > 0 && listed >= w.maxPages {
			sb.WriteString(fmt.Sprintf("  ... and more (limit %d reached)\n", w.maxPages))
			break
		}
		listed++

		sb.WriteString(fmt.Sprintf("  [%d] %s\n", page.StatusCode, page.URL))
		for _, issue := range page.Issues {
			sb.WriteString(fmt.Sprintf("        - %s\n", issue))
		}
	}

	if listed == 0 {
		sb.WriteString("  Every audited page is clean.\n")
	}
	sb.WriteString("\n")
}
