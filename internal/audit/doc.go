// Package audit evaluates the SEO rule set against a run's persisted
// page records and aggregates the results into the run-level audit
// record.
//
// The audit is a pure derivation: it reads page records, never the
// network, and every pass regenerates audit.json in full. Running it
// twice on unchanged pages produces identical output.
package audit
