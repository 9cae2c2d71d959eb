package model

import "time"

// Issue labels emitted by the audit rule set. Issues are aggregated by
// exact string match, so these constants are the single source of truth
// for the vocabulary.
const (
	IssueServerError        = "Server error (5xx)"
	IssueClientError        = "Client error (4xx)"
	IssueRedirect           = "Redirect (3xx)"
	IssueMissingStatus      = "Missing status code"
	IssueMissingTitle       = "Missing title tag"
	IssueTitleTooLong       = "Title longer than 70 characters"
	IssueTitleTooShort      = "Title shorter than 30 characters"
	IssueMissingMetaDesc    = "Missing meta description"
	IssueMetaDescTooLong    = "Meta description longer than 160 characters"
	IssueMetaDescTooShort   = "Meta description shorter than 50 characters"
	IssueMissingCanonical   = "Missing canonical URL"
	IssueMissingH1          = "Missing H1 heading"
	IssueMultipleH1         = "Multiple H1 headings"
	IssueContentTooLarge    = "Content size greater than 1MB"
	IssueImagesWithoutAlt   = "Images without ALT text"
	IssueMissingOGTitleDesc = "Missing OG title or description"
	IssueMissingOGImage     = "Missing OG image"
	IssueNoStructuredData   = "No structured data"
)

// Status bucket names used in AuditRecord.StatusBuckets.
const (
	Bucket2xx   = "2xx"
	Bucket3xx   = "3xx"
	Bucket4xx   = "4xx"
	Bucket5xx   = "5xx"
	BucketOther = "other"
)

// StatusBucket classifies an HTTP status into its audit bucket.
// Anything outside [200, 600) lands in the "other" bucket, including
// the 0 status of a failed fetch.
func StatusBucket(status int) string {
	switch {
	case status >= 200 && status < 300:
		return Bucket2xx
	case status >= 300 && status < 400:
		return Bucket3xx
	case status >= 400 && status < 500:
		return Bucket4xx
	case status >= 500 && status < 600:
		return Bucket5xx
	default:
		return BucketOther
	}
}

// AuditRecord is the run-level audit summary, persisted as audit.json.
// It is derived deterministically from the run's page records and is
// fully regenerable at any time; each audit pass overwrites the previous
// record in full.
type AuditRecord struct {
	// Project is the slug of the audited project.
	Project string `json:"project"`

	// RunID identifies the audited run.
	RunID string `json:"run_id"`

	// GeneratedAt is when this audit pass ran.
	GeneratedAt time.Time `json:"generated_at"`

	// TotalPages is the number of page records scanned.
	TotalPages int `json:"total_pages"`

	// StatusBuckets maps bucket name (2xx/3xx/4xx/5xx/other) to page
	// count. The bucket counts always sum to TotalPages.
	StatusBuckets map[string]int `json:"status_buckets"`

	// IssueCounts maps issue label to its occurrence count across all
	// pages.
	IssueCounts map[string]int `json:"issue_counts"`

	// Pages lists the per-page audit results in deterministic
	// (hash-filename) order.
	Pages []PageAudit `json:"pages"`
}

// PageAudit is the audit result for one page.
type PageAudit struct {
	// URL is the audited page URL.
	URL string `json:"url"`

	// StatusCode is the recorded HTTP status.
	StatusCode int `json:"status"`

	// Issues lists the issue labels fired for this page, in rule order.
	Issues []string `json:"issues"`
}

// TotalIssues returns the sum of all issue occurrences.
func (a *AuditRecord) TotalIssues() int {
	total := 0
	for _, n := range a.IssueCounts {
		total += n
	}
	return total
}
