package model

import (
	"encoding/json"
	"strings"
	"time"
)

// PageRecord is the persisted result of fetching one URL during a run.
// One record equals one fetch attempt: records are created once by the
// worker and never mutated afterward.
//
// Design decision: We store both the raw response envelope and the parsed
// SEO data in one record because:
// 1. The audit runner needs extraction results and status together
// 2. Downstream report synthesis consumes the same file
// 3. One file per URL keeps the artifact layout trivially inspectable
type PageRecord struct {
	// URL is the fetched URL.
	URL string `json:"url"`

	// FetchedAt is when the fetch was performed.
	FetchedAt time.Time `json:"fetched_at"`

	// StatusCode is the HTTP response status. Redirects are recorded as
	// their 3xx status, never followed.
	StatusCode int `json:"status_code"`

	// ContentType is the MIME type from the Content-Type header,
	// without parameters.
	ContentType string `json:"content_type"`

	// ContentLength is the number of body bytes read.
	ContentLength int64 `json:"content_length"`

	// Headers contains the HTTP response headers.
	Headers map[string][]string `json:"headers,omitempty"`

	// SEO holds the extracted feature set for HTML responses.
	// Nil for non-HTML pages.
	SEO *SEOData `json:"seo,omitempty"`

	// Signals are fetch-time observations (transport/envelope anomalies).
	// Raw signal for downstream consumers, separate from audit issues.
	Signals []Signal `json:"signals,omitempty"`
}

// GetHeader returns the first value of the named header, or "".
// Go's http package canonicalizes header names, so lookups use the
// canonical form.
func (p *PageRecord) GetHeader(name string) string {
	if values, ok := p.Headers[name]; ok && len(values) > 0 {
		return values[0]
	}
	return ""
}

// IsHTML reports whether the record holds an HTML response.
func (p *PageRecord) IsHTML() bool {
	return p.ContentType == "text/html" || p.ContentType == "application/xhtml+xml"
}

// SEOData is the feature set extracted from one HTML page. It feeds both
// the audit rule set and downstream report synthesis.
type SEOData struct {
	// Title is the text of the <title> tag.
	Title string `json:"title"`

	// MetaDescription is the content of <meta name="description">.
	MetaDescription string `json:"meta_description"`

	// MetaRobots is the content of <meta name="robots">.
	MetaRobots string `json:"meta_robots,omitempty"`

	// MetaKeywords is the content of <meta name="keywords">.
	MetaKeywords string `json:"meta_keywords,omitempty"`

	// Canonical is the href of <link rel="canonical">.
	Canonical string `json:"canonical"`

	// Hreflang lists <link rel="alternate" hreflang=...> entries.
	Hreflang []HreflangLink `json:"hreflang,omitempty"`

	// PrevLink and NextLink are pagination hints from
	// <link rel="prev"> / <link rel="next">.
	PrevLink string `json:"prev_link,omitempty"`
	NextLink string `json:"next_link,omitempty"`

	// AMPLink is the href of <link rel="amphtml">.
	AMPLink string `json:"amp_link,omitempty"`

	// Headings maps heading level ("h1".."h6") to the heading texts in
	// document order.
	Headings map[string][]string `json:"headings"`

	// Links holds the classified link inventory.
	Links LinkSet `json:"links"`

	// Images is the image inventory of the page.
	Images []ImageRef `json:"images"`

	// Resources counts CSS and script references.
	Resources ResourceCounts `json:"resources"`

	// StructuredData holds the raw JSON-LD blocks found on the page.
	// Malformed blocks are dropped silently; an empty slice means none
	// were found or none parsed.
	StructuredData []json.RawMessage `json:"structured_data"`

	// OpenGraph maps og:* property names to their content.
	OpenGraph map[string]string `json:"open_graph"`

	// TwitterCard maps twitter:* meta names to their content.
	TwitterCard map[string]string `json:"twitter_card,omitempty"`

	// WordCount is the Unicode-aware token count of the visible text.
	WordCount int `json:"word_count"`

	// TextRatio is visible-text length divided by raw HTML byte length,
	// rounded to four decimals.
	TextRatio float64 `json:"text_ratio"`

	// Excerpt is a bounded excerpt of the main content (<=800 chars,
	// cut on sentence/word boundary).
	Excerpt string `json:"excerpt,omitempty"`

	// FirstParagraph is the first paragraph of the main content
	// (<=400 chars).
	FirstParagraph string `json:"first_paragraph,omitempty"`

	// Summary is a free-text, human-readable summary of the page,
	// intended as input to downstream generative-text steps.
	Summary string `json:"summary,omitempty"`

	// SummaryData is the compact structured counterpart to Summary.
	SummaryData *PageSummary `json:"summary_data,omitempty"`
}

// H1Count returns the number of h1 headings on the page.
func (s *SEOData) H1Count() int {
	return len(s.Headings["h1"])
}

// HreflangLink is one alternate-language link entry.
type HreflangLink struct {
	// Lang is the hreflang attribute value.
	Lang string `json:"lang"`

	// Href is the resolved alternate URL.
	Href string `json:"href"`
}

// LinkSet is the classified link inventory of a page. Internal links are
// those whose normalized host matches the project's base host; everything
// else is external.
type LinkSet struct {
	// Internal lists same-host link targets (resolved, deduplicated).
	Internal []string `json:"internal"`

	// External lists off-host link targets.
	External []string `json:"external"`

	// Hygiene counts link-quality markers across all anchors.
	Hygiene LinkHygiene `json:"hygiene"`
}

// LinkHygiene counts link-quality markers observed on a page's anchors.
type LinkHygiene struct {
	// Nofollow counts anchors carrying rel=nofollow.
	Nofollow int `json:"nofollow"`

	// UGC counts anchors carrying rel=ugc.
	UGC int `json:"ugc"`

	// Sponsored counts anchors carrying rel=sponsored.
	Sponsored int `json:"sponsored"`

	// Mailto counts mailto: anchors.
	Mailto int `json:"mailto"`

	// Tel counts tel: anchors.
	Tel int `json:"tel"`

	// Empty counts anchors with a missing or blank href.
	Empty int `json:"empty"`

	// JavaScript counts javascript: anchors.
	JavaScript int `json:"javascript"`
}

// ImageRef is one image reference found on a page.
type ImageRef struct {
	// Source is the resolved image URL, taken from src, or from
	// data-src / data-srcset for lazy-loading markups.
	Source string `json:"source"`

	// Alt is the alt attribute. An empty value on a present attribute
	// and an absent attribute are both recorded as "".
	Alt string `json:"alt"`

	// Loading is the loading attribute ("lazy", "eager", or "").
	Loading string `json:"loading,omitempty"`

	// Width and Height are the raw attribute values, "" when absent.
	Width  string `json:"width,omitempty"`
	Height string `json:"height,omitempty"`

	// Lazy reports whether the source came from a data-src or
	// data-srcset attribute rather than src.
	Lazy bool `json:"lazy,omitempty"`
}

// ResourceCounts tallies CSS and script references on a page.
type ResourceCounts struct {
	// Stylesheets counts <link rel="stylesheet"> elements.
	Stylesheets int `json:"stylesheets"`

	// Scripts counts all <script src=...> elements.
	Scripts int `json:"scripts"`

	// ScriptsAsync counts external scripts with the async attribute.
	ScriptsAsync int `json:"scripts_async"`

	// ScriptsDefer counts external scripts with the defer attribute.
	ScriptsDefer int `json:"scripts_defer"`

	// ScriptsSync counts external scripts with neither async nor defer.
	ScriptsSync int `json:"scripts_sync"`
}

// PageSummary is the compact structured summary of a page, the
// machine-readable sibling of SEOData.Summary.
type PageSummary struct {
	Title            string   `json:"title"`
	Description      string   `json:"description"`
	H1               []string `json:"h1"`
	WordCount        int      `json:"word_count"`
	InternalLinks    int      `json:"internal_links"`
	ExternalLinks    int      `json:"external_links"`
	Images           int      `json:"images"`
	ImagesMissingAlt int      `json:"images_missing_alt"`
}

// ImageRecord is the persisted result of fetching an image URL.
type ImageRecord struct {
	// URL is the fetched URL.
	URL string `json:"url"`

	// FetchedAt is when the fetch was performed.
	FetchedAt time.Time `json:"fetched_at"`

	// StatusCode is the HTTP response status.
	StatusCode int `json:"status_code"`

	// ContentType is the MIME type from the response.
	ContentType string `json:"content_type"`

	// Bytes is the image size in bytes.
	Bytes int64 `json:"bytes"`

	// Format is the detected image format (jpeg, png, gif, webp),
	// from decoding or magic-byte signature fallback. Empty when
	// unrecognized.
	Format string `json:"format,omitempty"`

	// Width and Height are pixel dimensions, 0 when unavailable.
	Width  int `json:"width,omitempty"`
	Height int `json:"height,omitempty"`

	// AspectRatio is Width/Height rounded to four decimals, 0 when
	// dimensions are unavailable.
	AspectRatio float64 `json:"aspect_ratio,omitempty"`

	// EXIF holds extracted EXIF tags (tag name to printable value).
	EXIF map[string]string `json:"exif,omitempty"`

	// Signals are fetch-time observations.
	Signals []Signal `json:"signals,omitempty"`
}

// ErrorRecord captures a transport failure for one URL. Its existence is
// a terminal artifact: the URL will not be re-enqueued within the run
// unless the project's retry policy allows it.
type ErrorRecord struct {
	// URL is the URL whose fetch failed.
	URL string `json:"url"`

	// OccurredAt is when the failure happened.
	OccurredAt time.Time `json:"occurred_at"`

	// StatusCode is the HTTP status if a response envelope was received,
	// 0 for pure transport failures (DNS, connect, timeout).
	StatusCode int `json:"status_code"`

	// Headers are the response headers if any were received.
	Headers map[string][]string `json:"headers,omitempty"`

	// Message is the error text.
	Message string `json:"message"`

	// Attempts counts fetch attempts for this URL within the run.
	// Used by the retry policy to decide whether re-enqueueing is allowed.
	Attempts int `json:"attempts"`
}

// OtherRecord is the raw response envelope stored for PDF and
// unrecognized content types.
type OtherRecord struct {
	// URL is the fetched URL.
	URL string `json:"url"`

	// FetchedAt is when the fetch was performed.
	FetchedAt time.Time `json:"fetched_at"`

	// StatusCode is the HTTP response status.
	StatusCode int `json:"status_code"`

	// ContentType is the MIME type from the response.
	ContentType string `json:"content_type"`

	// ContentLength is the number of body bytes read.
	ContentLength int64 `json:"content_length"`

	// Headers are the HTTP response headers.
	Headers map[string][]string `json:"headers,omitempty"`

	// Kind classifies the record: "pdf" or "unknown".
	Kind string `json:"kind"`

	// PDF holds extracted PDF metadata when Kind is "pdf".
	PDF *PDFInfo `json:"pdf,omitempty"`

	// Signals are fetch-time observations.
	Signals []Signal `json:"signals,omitempty"`
}

// PDFInfo holds metadata extracted from a PDF response.
type PDFInfo struct {
	// Version is the PDF version from the %PDF-x.y header.
	Version string `json:"version,omitempty"`

	// Title is the document Title entry if present.
	Title string `json:"title,omitempty"`

	// Author is the document Author entry if present.
	Author string `json:"author,omitempty"`

	// Bytes is the document size in bytes.
	Bytes int64 `json:"bytes"`
}

// ClassifyContentType maps a Content-Type header value (with optional
// parameters) to one of the worker's analysis classes: "html", "pdf",
// "image", or "unknown". When the header is empty or unhelpful the
// caller should fall back to ClassifyByExtension.
func ClassifyContentType(contentType string) string {
	ct := contentType
	if idx := strings.Index(ct, ";"); idx >= 0 {
		ct = ct[:idx]
	}
	ct = strings.ToLower(strings.TrimSpace(ct))

	switch {
	case ct == "text/html" || ct == "application/xhtml+xml":
		return "html"
	case ct == "application/pdf":
		return "pdf"
	case strings.HasPrefix(ct, "image/"):
		return "image"
	default:
		return "unknown"
	}
}

// ClassifyByExtension guesses the analysis class from a URL's path
// extension. Used as a fallback when the server sends no usable
// Content-Type.
func ClassifyByExtension(rawURL string) string {
	path := rawURL
	if idx := strings.IndexAny(path, "?#"); idx >= 0 {
		path = path[:idx]
	}

	idx := strings.LastIndex(path, ".")
	if idx < 0 || idx == len(path)-1 {
		return "unknown"
	}

	switch strings.ToLower(path[idx+1:]) {
	case "html", "htm", "xhtml":
		return "html"
	case "pdf":
		return "pdf"
	case "jpg", "jpeg", "png", "gif", "webp", "svg", "ico", "bmp", "avif":
		return "image"
	default:
		return "unknown"
	}
}
