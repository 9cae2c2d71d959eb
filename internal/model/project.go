package model

import (
	"crypto/md5" //nolint:gosec // md5 keys the artifact filenames; not used for security
	"encoding/hex"
	"errors"
	"regexp"
	"strings"
)

// Project is a configured crawl target. Its identity is the slug, which
// names the project directory in the store. Projects are created by an
// operator and mutated when the schedule or crawl settings change; they
// are never hard-deleted.
type Project struct {
	// Slug is the unique identifier of the project. It is used as the
	// directory name under the storage root, so it must be filesystem-safe.
	Slug string `json:"slug"`

	// BaseURL is the root URL of the site to crawl. Its host (after
	// normalization) is the sole crawl-scope boundary: URLs on any other
	// host are never fetched.
	BaseURL string `json:"base_url"`

	// SeedURLs are the starting points of each crawl run. If empty,
	// BaseURL is used as the only seed.
	SeedURLs []string `json:"seed_urls"`

	// ExcludeURLs are operator-supplied block patterns. A URL matching
	// any pattern (exact, substring, or glob with '*', case-insensitive)
	// is never enqueued.
	ExcludeURLs []string `json:"exclude_urls,omitempty"`

	// Schedule is an optional cron expression for automatic runs.
	// Empty means the project is only crawled on demand.
	Schedule string `json:"schedule,omitempty"`

	// MaxRetries controls whether a URL whose previous fetch failed may
	// be re-enqueued within the same run. 0 (the default) preserves the
	// historical behavior: an error record is a terminal artifact and
	// permanently blocks the URL for that run.
	MaxRetries int `json:"max_retries,omitempty"`
}

// slugRegex matches valid project slugs: lowercase alphanumerics with
// single hyphen or underscore separators.
var slugRegex = regexp.MustCompile(`^[a-z0-9]+(?:[-_][a-z0-9]+)*$`)

// Project validation errors.
var (
	// ErrInvalidSlug is returned when the project slug is empty or
	// contains characters unsafe for a directory name.
	ErrInvalidSlug = errors.New("invalid project slug: must be lowercase alphanumerics separated by '-' or '_'")

	// ErrMissingBaseURL is returned when the project has no base URL.
	ErrMissingBaseURL = errors.New("missing base URL")
)

// Validate checks that the project is well-formed enough to crawl.
func (p *Project) Validate() error {
	if !slugRegex.MatchString(p.Slug) {
		return ErrInvalidSlug
	}
	if strings.TrimSpace(p.BaseURL) == "" {
		return ErrMissingBaseURL
	}
	return nil
}

// Seeds returns the effective seed URLs for a run, falling back to the
// base URL when no explicit seeds are configured. Blank entries are
// dropped so a sloppy config cannot enqueue empty URLs.
func (p *Project) Seeds() []string {
	src := p.SeedURLs
	if len(src) == 0 {
		src = []string{p.BaseURL}
	}

	seeds := make([]string, 0, len(src))
	for _, s := range src {
		if s = strings.TrimSpace(s); s != "" {
			seeds = append(seeds, s)
		}
	}
	return seeds
}

// URLHash returns the md5 hex digest of a URL. Every artifact belonging
// to a URL (queue marker, page/image/error/other record) is keyed by
// this hash, which is what makes enqueue idempotent.
func URLHash(rawURL string) string {
	sum := md5.Sum([]byte(rawURL)) //nolint:gosec // filename key, not a credential
	return hex.EncodeToString(sum[:])
}
