// Package pipeline orchestrates the crawl-audit-report lifecycle of a
// run as a sequence of steps. A Pipeline executes steps for a single
// project; BatchProcessor runs one pipeline per project with bounded
// concurrency.
//
// Within a run, fetching stays strictly sequential: one URL in flight
// per site. Concurrency only exists across projects, so no site is ever
// hit by parallel requests.
package pipeline
