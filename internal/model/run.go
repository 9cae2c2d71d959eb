package model

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// RunMeta is the metadata record for one crawl run, persisted as
// meta.json in the run directory. A run owns a queue and a set of
// page/image/error/other records plus one audit summary. It is complete
// once the queue has no pending markers; after that the artifacts are
// immutable except for audit regeneration.
type RunMeta struct {
	// RunID is the sortable identifier of the run.
	RunID string `json:"run_id"`

	// Project is the slug of the owning project.
	Project string `json:"project"`

	// StartedAt is when the run was initialized.
	StartedAt time.Time `json:"started_at"`

	// SeedURLs are the URLs the queue was seeded with.
	SeedURLs []string `json:"seed_urls"`

	// CompletedAt is set when the queue is first observed empty.
	CompletedAt *time.Time `json:"completed_at,omitempty"`

	// LastProcessedAt is touched after every worker step, completed or
	// failed. It lets an operator spot a stalled run.
	LastProcessedAt *time.Time `json:"last_processed_at,omitempty"`
}

// NewRunID generates a sortable run identifier: a UTC timestamp prefix
// for ordering plus a short random suffix for uniqueness.
//
// Design decision: The timestamp alone would collide when two runs start
// within the same second (e.g., scheduler tick racing a manual run), so
// we append the first segment of a UUID rather than a counter that would
// need its own persistence.
func NewRunID(now time.Time) string {
	suffix := strings.SplitN(uuid.NewString(), "-", 2)[0]
	return now.UTC().Format("20060102-150405") + "-" + suffix
}
