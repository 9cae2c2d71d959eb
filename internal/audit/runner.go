package audit

import (
	"fmt"
	"log/slog"
	"time"
	"unicode/utf8"

	"github.com/seoscan/seoscan/internal/model"
	"github.com/seoscan/seoscan/internal/storage"
)

// Title and description length boundaries. Values exactly on a boundary
// fire nothing.
const (
	titleMinLength = 30
	titleMaxLength = 70

	metaDescMinLength = 50
	metaDescMaxLength = 160

	// contentSizeLimit is the page weight above which a content-size
	// issue fires.
	contentSizeLimit = 1024 * 1024
)

// rule is one entry of the audit rule table. Each rule emits its issue
// label at most once per page.
type rule struct {
	issue   string
	applies func(*model.PageRecord) bool
}

// rules is the fixed, ordered audit rule table. Order is part of the
// contract: per-page issue lists preserve it, and aggregation by exact
// label match depends on the vocabulary staying stable.
//
// Pages without extracted SEO data (failed parses, redirects, empty
// bodies) are evaluated against empty values, so the content rules
// fire for them too. That is intentional: a page that serves no title
// is missing a title whatever the reason.
var rules = []rule{
	{model.IssueServerError, func(p *model.PageRecord) bool {
		return p.StatusCode >= 500
	}},
	{model.IssueClientError, func(p *model.PageRecord) bool {
		return p.StatusCode >= 400 && p.StatusCode < 500
	}},
	{model.IssueRedirect, func(p *model.PageRecord) bool {
		return p.StatusCode >= 300 && p.StatusCode < 400
	}},
	{model.IssueMissingStatus, func(p *model.PageRecord) bool {
		return p.StatusCode == 0
	}},
	{model.IssueMissingTitle, func(p *model.PageRecord) bool {
		return title(p) == ""
	}},
	{model.IssueTitleTooLong, func(p *model.PageRecord) bool {
		return utf8.RuneCountInString(title(p)) > titleMaxLength
	}},
	{model.IssueTitleTooShort, func(p *model.PageRecord) bool {
		n := utf8.RuneCountInString(title(p))
		return n > 0 && n < titleMinLength
	}},
	{model.IssueMissingMetaDesc, func(p *model.PageRecord) bool {
		return metaDescription(p) == ""
	}},
	{model.IssueMetaDescTooLong, func(p *model.PageRecord) bool {
		return utf8.RuneCountInString(metaDescription(p)) > metaDescMaxLength
	}},
	{model.IssueMetaDescTooShort, func(p *model.PageRecord) bool {
		n := utf8.RuneCountInString(metaDescription(p))
		return n > 0 && n < metaDescMinLength
	}},
	{model.IssueMissingCanonical, func(p *model.PageRecord) bool {
		return p.SEO == nil || p.SEO.Canonical == ""
	}},
	{model.IssueMissingH1, func(p *model.PageRecord) bool {
		return h1Count(p) == 0
	}},
	{model.IssueMultipleH1, func(p *model.PageRecord) bool {
		return h1Count(p) > 1
	}},
	{model.IssueContentTooLarge, func(p *model.PageRecord) bool {
		return p.ContentLength > contentSizeLimit
	}},
	{model.IssueImagesWithoutAlt, func(p *model.PageRecord) bool {
		if p.SEO == nil {
			return false
		}
		for _, img := range p.SEO.Images {
			if img.Alt == "" {
				return true
			}
		}
		return false
	}},
	{model.IssueMissingOGTitleDesc, func(p *model.PageRecord) bool {
		return openGraph(p, "og:title") == "" || openGraph(p, "og:description") == ""
	}},
	{model.IssueMissingOGImage, func(p *model.PageRecord) bool {
		return openGraph(p, "og:image") == ""
	}},
	{model.IssueNoStructuredData, func(p *model.PageRecord) bool {
		return p.SEO == nil || len(p.SEO.StructuredData) == 0
	}},
}

func title(p *model.PageRecord) string {
	if p.SEO == nil {
		return ""
	}
	return p.SEO.Title
}

func metaDescription(p *model.PageRecord) string {
	if p.SEO == nil {
		return ""
	}
	return p.SEO.MetaDescription
}

func h1Count(p *model.PageRecord) int {
	if p.SEO == nil {
		return 0
	}
	return p.SEO.H1Count()
}

func openGraph(p *model.PageRecord, key string) string {
	if p.SEO == nil {
		return ""
	}
	return p.SEO.OpenGraph[key]
}

// Runner evaluates the audit rule set for one run and persists the
// aggregate record.
type Runner struct {
	store  *storage.Store
	logger *slog.Logger
	now    func() time.Time
}

// RunnerOption configures a Runner.
type RunnerOption func(*Runner)

// WithLogger sets a custom logger for the runner.
func WithLogger(logger *slog.Logger) RunnerOption {
	return func(r *Runner) {
		r.logger = logger
	}
}

// WithClock overrides the time source, for reproducible output.
func WithClock(now func() time.Time) RunnerOption {
	return func(r *Runner) {
		r.now = now
	}
}

// NewRunner creates a Runner on top of a store.
func NewRunner(store *storage.Store, opts ...RunnerOption) *Runner {
	r := &Runner{
		store:  store,
		logger: slog.Default(),
		now:    time.Now,
	}

	for _, opt := range opts {
		opt(r)
	}

	return r
}

// Run audits every persisted page of a run and writes audit.json.
// Pages are read in stable hash-filename order, so repeated passes over
// the same records produce the same per-page list and the same counts.
func (r *Runner) Run(slug, runID string) (*model.AuditRecord, error) {
	pages, err := r.store.PageRecords(slug, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to read page records: %w", err)
	}

	record := &model.AuditRecord{
		Project:     slug,
		RunID:       runID,
		GeneratedAt: r.now().UTC(),
		TotalPages:  len(pages),
		StatusBuckets: map[string]int{
			model.Bucket2xx:   0,
			model.Bucket3xx:   0,
			model.Bucket4xx:   0,
			model.Bucket5xx:   0,
			model.BucketOther: 0,
		},
		IssueCounts: make(map[string]int),
		Pages:       make([]model.PageAudit, 0, len(pages)),
	}

	for _, page := range pages {
		issues := Evaluate(page)
		record.StatusBuckets[model.StatusBucket(page.StatusCode)]++
		for _, issue := range issues {
			record.IssueCounts[issue]++
		}
		record.Pages = append(record.Pages, model.PageAudit{
			URL:        page.URL,
			StatusCode: page.StatusCode,
			Issues:     issues,
		})
	}

	if err := r.store.SaveAudit(record); err != nil {
		return nil, fmt.Errorf("failed to save audit record: %w", err)
	}

	r.logger.Info("audit complete",
		"project", slug,
		"run_id", runID,
		"pages", record.TotalPages,
		"issues", record.TotalIssues(),
	)
	return record, nil
}

// Evaluate applies the full rule table to one page and returns the
// fired issue labels in rule order. The slice is never nil, so the
// persisted form is always a JSON array.
func Evaluate(page *model.PageRecord) []string {
	issues := make([]string, 0, 4)
	for _, rule := range rules {
		if rule.applies(page) {
			issues = append(issues, rule.issue)
		}
	}
	return issues
}
