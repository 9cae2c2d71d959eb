// Package database provides SQLite-based storage for audit run history.
// The filesystem store under internal/storage remains the source of
// truth for a run's artifacts; the database keeps a queryable summary
// per run so audits can be listed and compared across time.
package database
