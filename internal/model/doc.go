// Package model defines the core data structures shared across seoscan.
//
// This package contains the following main types:
//   - Project: A configured crawl target (slug, base URL, schedule)
//   - RunMeta: Metadata for one crawl run of a project
//   - PageRecord: The persisted extraction result of fetching one URL
//   - AuditRecord: The aggregate issue/status summary for a run
//
// Design decision: We separate models into their own package to avoid
// circular dependencies. Multiple packages (queue, crawler, audit, report)
// need these types, so centralizing them prevents import cycles.
//
// The models double as the on-disk JSON contract: every artifact written
// under a run directory (meta.json, pages/*.json, audit.json, ...) is a
// pretty-printed serialization of a type in this package, so JSON tags
// here are load-bearing for downstream consumers.
package model
