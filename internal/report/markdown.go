package report

import (
	"io"
	"strconv"
	"strings"

	"github.com/nao1215/markdown"
	"github.com/nao1215/markdown/mermaid/piechart"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/seoscan/seoscan/internal/model"
)

// maxPagesInMarkdown caps the per-page issue table so reports for large
// sites stay readable. Pages without issues are never listed.
const maxPagesInMarkdown = 100

// MarkdownWriter outputs audit reports in Markdown format.
// This format is designed for documentation and sharing.
//
// Design decision: We use the nao1215/markdown library for fluent
// markdown generation which provides:
// 1. Type-safe markdown generation
// 2. Support for tables, lists, and code blocks
// 3. GitHub-flavored markdown alerts
type MarkdownWriter struct {
	baseWriter

	titleCaser cases.Caser
}

// NewMarkdownWriter creates a MarkdownWriter that outputs to the given
// writer.
func NewMarkdownWriter(output io.Writer) *MarkdownWriter {
	return &MarkdownWriter{
		baseWriter: newBaseWriter(output),
		titleCaser: cases.Title(language.English),
	}
}

// Write outputs the audit record in Markdown format.
func (w *MarkdownWriter) Write(record *model.AuditRecord) (int, error) {
	md := markdown.NewMarkdown(w.output)

	w.writeHeader(md, record)
	w.writeStatusBuckets(md, record)
	w.writeIssueSummary(md, record)
	w.writePages(md, record)
	w.writeFooter(md)

	return len(md.String()), md.Build()
}

// writeHeader writes the report header with run information.
func (w *MarkdownWriter) writeHeader(md *markdown.Markdown, record *model.AuditRecord) {
	md.H1("SEO Audit: " + w.projectName(record.Project))
	md.PlainText("")

	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows: [][]string{
			{"Project", "`" + record.Project + "`"},
			{"Run", "`" + record.RunID + "`"},
			{"Generated", record.GeneratedAt.Format("2006-01-02 15:04:05 MST")},
			{"Pages Audited", strconv.Itoa(record.TotalPages)},
			{"Total Issues", strconv.Itoa(record.TotalIssues())},
		},
	})
	md.PlainText("")
}

// projectName renders a slug as a display name ("my-shop" becomes
// "My Shop").
func (w *MarkdownWriter) projectName(slug string) string {
	name := strings.NewReplacer("-", " ", "_", " ").Replace(slug)
	return w.titleCaser.String(name)
}

// writeStatusBuckets writes the HTTP status distribution with a pie
// chart.
func (w *MarkdownWriter) writeStatusBuckets(md *markdown.Markdown, record *model.AuditRecord) {
	md.H2("HTTP Status Distribution")
	md.PlainText("")

	rows := make([][]string, 0, len(bucketOrder))
	for _, bucket := range bucketOrder {
		rows = append(rows, []string{bucket, strconv.Itoa(record.StatusBuckets[bucket])})
	}
	md.Table(markdown.TableSet{
		Header: []string{"Status", "Pages"},
		Rows:   rows,
	})
	md.PlainText("")

	if record.TotalPages > 0 {
		w.writePieChart(md, record)
	}
}

// writePieChart writes a mermaid pie chart of the status buckets.
func (w *MarkdownWriter) writePieChart(md *markdown.Markdown, record *model.AuditRecord) {
	chart := piechart.NewPieChart(
		io.Discard,
		piechart.WithTitle("HTTP Status Distribution"),
		piechart.WithShowData(true),
	)

	for _, bucket := range bucketOrder {
		if n := record.StatusBuckets[bucket]; n > 0 {
			chart.LabelAndIntValue(bucket, uint64(n))
		}
	}

	md.PlainText("")
	md.CodeBlocks(markdown.SyntaxHighlightMermaid, chart.String())
	md.PlainText("")
}

// writeIssueSummary writes the aggregated issue table and an alert
// matched to the worst finding.
func (w *MarkdownWriter) writeIssueSummary(md *markdown.Markdown, record *model.AuditRecord) {
	md.H2("Issue Summary")
	md.PlainText("")

	issues := sortedIssues(record.IssueCounts)
	if len(issues) == 0 {
		md.PlainText("No issues detected.")
		md.PlainText("")
		return
	}

	rows := make([][]string, len(issues))
	for i, issue := range issues {
		rows[i] = []string{issue.label, strconv.Itoa(issue.count)}
	}
	md.Table(markdown.TableSet{
		Header: []string{"Issue", "Occurrences"},
		Rows:   rows,
	})
	md.PlainText("")

	w.writeAlert(md, record)
}

// writeAlert writes an alert based on the most severe finding.
func (w *MarkdownWriter) writeAlert(md *markdown.Markdown, record *model.AuditRecord) {
	serverErrors := record.IssueCounts[model.IssueServerError]
	clientErrors := record.IssueCounts[model.IssueClientError]

	switch {
	case serverErrors > 0:
		md.Cautionf(
			"%d page(s) returned server errors. Fix availability before addressing content issues.",
			serverErrors,
		)
	case clientErrors > 0:
		md.Warningf(
			"%d page(s) returned client errors. Broken internal links waste crawl budget.",
			clientErrors,
		)
	case record.TotalIssues() > 0:
		md.Note("Only content-level issues detected. See the per-page list below.")
	default:
		md.Tip("No SEO issues detected.")
	}
	md.PlainText("")
}

// writePages writes the per-page issue table.
func (w *MarkdownWriter) writePages(md *markdown.Markdown, record *model.AuditRecord) {
	md.H2("Pages With Issues")
	md.PlainText("")

	rows := make([][]string, 0, len(record.Pages))
	for _, page := range record.Pages {
		if len(page.Issues) == 0 {
			continue
		}
		if len(rows) >= maxPagesInMarkdown {
			break
		}
		rows = append(rows, []string{
			truncateString(page.URL, 60),
			strconv.Itoa(page.StatusCode),
			truncateString(strings.Join(page.Issues, "; "), 80),
		})
	}

	if len(rows) == 0 {
		md.PlainText("Every audited page is clean.")
		md.PlainText("")
		return
	}

	md.Table(markdown.TableSet{
		Header: []string{"URL", "Status", "Issues"},
		Rows:   rows,
	})
	md.PlainText("")
}

// writeFooter writes the report footer.
func (w *MarkdownWriter) writeFooter(md *markdown.Markdown) {
	md.HorizontalRule()
	md.PlainText("")
	md.PlainTextf("*Report generated by [seoscan](https://github.com/seoscan/seoscan)*")
}

// truncateString truncates a string to maxLen characters with ellipsis.
func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return s[:maxLen]
	}
	return s[:maxLen-3] + "..."
}
