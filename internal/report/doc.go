// Package report renders audit results for humans and tools.
// It provides plain-text, JSON, and GitHub Flavored Markdown writers
// over the same audit record, so the CLI can target terminals, files,
// and documentation from one code path.
package report
