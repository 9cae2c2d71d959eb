// Package scheduler runs project audits on cron schedules.
//
// Each project may carry a cron expression in its configuration. The
// scheduler registers every scheduled project with a single cron runner
// and triggers a full pipeline run when the expression fires. Projects
// without a schedule are simply skipped.
//
// The scheduler is a thin wrapper around robfig/cron; it owns entry
// bookkeeping per project slug and graceful shutdown, while the actual
// run logic is injected as a RunFunc so the package stays independent
// of the pipeline wiring.
package scheduler
