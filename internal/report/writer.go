package report

import (
	"io"
	"sort"

	"github.com/seoscan/seoscan/internal/model"
)

// Writer defines the interface for audit report output.
// Implementations render the same audit record in different formats.
//
// Design decision: We use an interface to allow different output
// formats and destinations. This enables writing to files, stdout, or
// network connections with the same API.
type Writer interface {
	// Write outputs the audit report to the configured destination.
	// Returns the number of bytes written and any error encountered.
	Write(record *model.AuditRecord) (int, error)
}

// MultiWriter writes to multiple Writers simultaneously.
// This is useful for outputting to both terminal and file.
//
// Design decision: We implement this as a separate type rather than
// using io.MultiWriter because our Writer interface is different from
// io.Writer - we write reports, not raw bytes.
type MultiWriter struct {
	writers []Writer
}

// NewMultiWriter creates a Writer that writes to all provided Writers.
func NewMultiWriter(writers ...Writer) *MultiWriter {
	return &MultiWriter{writers: writers}
}

// Write outputs the report to all configured Writers.
// Returns the total bytes written across all writers. Stops on the
// first error encountered.
func (m *MultiWriter) Write(record *model.AuditRecord) (int, error) {
	var total int
	for _, w := range m.writers {
		n, err := w.Write(record)
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

// baseWriter provides common functionality for report writers.
type baseWriter struct {
	output io.Writer
}

// newBaseWriter creates a baseWriter with the given output destination.
func newBaseWriter(output io.Writer) baseWriter {
	return baseWriter{output: output}
}

// issueCount pairs an issue label with its occurrence count for
// rendering.
type issueCount struct {
	label string
	count int
}

// sortedIssues returns the issue counts ordered by count descending,
// ties broken by label, so rendered tables are stable between runs.
func sortedIssues(counts map[string]int) []issueCount {
	issues := make([]issueCount, 0, len(counts))
	for label, count := range counts {
		issues = append(issues, issueCount{label: label, count: count})
	}
	sort.Slice(issues, func(i, j int) bool {
		if issues[i].count != issues[j].count {
			return issues[i].count > issues[j].count
		}
		return issues[i].label < issues[j].label
	})
	return issues
}

// bucketOrder is the fixed rendering order for status buckets.
var bucketOrder = []string{
	model.Bucket2xx,
	model.Bucket3xx,
	model.Bucket4xx,
	model.Bucket5xx,
	model.BucketOther,
}
