package crawler

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html/charset"

	"github.com/seoscan/seoscan/internal/model"
)

// Parser extracts the SEO feature set from one HTML page.
//
// Design decision: We build on goquery rather than walking x/net/html
// nodes by hand because the extraction is selector-shaped throughout:
// meta lookups, heading collection, and especially the main-content
// cascade are all CSS selector queries. goquery tolerates the malformed
// HTML common on real sites and keeps each extraction step one line of
// intent instead of a tree walk.
type Parser struct {
	// base is the URL of the page being parsed, for resolving relative
	// references.
	base *url.URL

	// siteHost is the normalized project host used to split links into
	// internal and external.
	siteHost string
}

// mainContentSelectors is the ranked cascade of containers tried for
// main-content extraction, most specific first. The first selector
// whose text is non-empty wins; <body> is the final fallback.
var mainContentSelectors = []string{
	"article",
	"main",
	"[role=main]",
	"#content",
	".content",
	".main-content",
	".entry-content",
	".post",
}

// boilerplateSelector matches nodes excluded from text extraction.
const boilerplateSelector = "script, style, nav, header, footer, aside, noscript"

// NewParser creates a Parser for a page URL within a site.
// siteHost must already be normalized (see NormalizeHost).
func NewParser(pageURL, siteHost string) (*Parser, error) {
	base, err := url.Parse(pageURL)
	if err != nil {
		return nil, fmt.Errorf("invalid page URL: %w", err)
	}
	return &Parser{base: base, siteHost: siteHost}, nil
}

// Parse extracts the full SEO feature set from raw HTML. It returns the
// extracted data plus the list of discovered same-site URLs (links and
// image sources) for re-enqueueing.
//
// Parse anomalies never fail the page: malformed JSON-LD degrades to an
// empty slice, missing attributes to empty strings. Only unreadable
// HTML returns an error.
func (p *Parser) Parse(rawHTML []byte) (*model.SEOData, []string, error) {
	// Decode legacy encodings (meta charset, BOM) to UTF-8 before
	// parsing; rune-based length checks downstream depend on it.
	reader, err := charset.NewReader(bytes.NewReader(rawHTML), "")
	if err != nil {
		reader = bytes.NewReader(rawHTML)
	}

	doc, err := goquery.NewDocumentFromReader(reader)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to parse HTML: %w", err)
	}

	seo := &model.SEOData{
		Headings:       make(map[string][]string),
		StructuredData: make([]json.RawMessage, 0),
		OpenGraph:      make(map[string]string),
	}

	p.extractHead(doc, seo)
	p.extractHeadings(doc, seo)
	discovered := p.extractLinks(doc, seo)
	discovered = append(discovered, p.extractImages(doc, seo)...)
	p.extractResources(doc, seo)
	p.extractStructuredData(doc, seo)
	p.extractText(doc, seo, len(rawHTML))
	p.summarize(seo)

	return seo, discovered, nil
}

// extractHead pulls title, meta tags, canonical, and the link-relation
// family (hreflang, pagination, AMP) from the document head.
func (p *Parser) extractHead(doc *goquery.Document, seo *model.SEOData) {
	seo.Title = strings.TrimSpace(doc.Find("title").First().Text())

	doc.Find("meta").Each(func(_ int, s *goquery.Selection) {
		content := strings.TrimSpace(s.AttrOr("content", ""))
		name := strings.ToLower(strings.TrimSpace(s.AttrOr("name", "")))
		property := strings.ToLower(strings.TrimSpace(s.AttrOr("property", "")))

		switch name {
		case "description":
			seo.MetaDescription = content
		case "robots":
			seo.MetaRobots = content
		case "keywords":
			seo.MetaKeywords = content
		}

		if strings.HasPrefix(property, "og:") && content != "" {
			seo.OpenGraph[property] = content
		}
		// Twitter cards use name= but some sites emit property=.
		key := name
		if key == "" {
			key = property
		}
		if strings.HasPrefix(key, "twitter:") && content != "" {
			if seo.TwitterCard == nil {
				seo.TwitterCard = make(map[string]string)
			}
			seo.TwitterCard[key] = content
		}
	})

	doc.Find("link[rel]").Each(func(_ int, s *goquery.Selection) {
		rel := strings.ToLower(strings.TrimSpace(s.AttrOr("rel", "")))
		href := p.resolve(s.AttrOr("href", ""))
		if href == "" {
			return
		}

		switch rel {
		case "canonical":
			if seo.Canonical == "" {
				seo.Canonical = href
			}
		case "prev":
			seo.PrevLink = href
		case "next":
			seo.NextLink = href
		case "amphtml":
			seo.AMPLink = href
		case "alternate":
			if lang := strings.TrimSpace(s.AttrOr("hreflang", "")); lang != "" {
				seo.Hreflang = append(seo.Hreflang, model.HreflangLink{Lang: lang, Href: href})
			}
		}
	})
}

// extractHeadings collects heading text per level in document order.
func (p *Parser) extractHeadings(doc *goquery.Document, seo *model.SEOData) {
	for _, level := range []string{"h1", "h2", "h3", "h4", "h5", "h6"} {
		doc.Find(level).Each(func(_ int, s *goquery.Selection) {
			seo.Headings[level] = append(seo.Headings[level], NormalizeWhitespace(s.Text()))
		})
	}
}

// extractLinks classifies every anchor into internal/external and
// tallies hygiene counters. It returns the internal targets for
// re-enqueueing.
func (p *Parser) extractLinks(doc *goquery.Document, seo *model.SEOData) []string {
	seo.Links.Internal = make([]string, 0)
	seo.Links.External = make([]string, 0)
	seenInternal := make(map[string]bool)
	seenExternal := make(map[string]bool)

	doc.Find("a").Each(func(_ int, s *goquery.Selection) {
		href, ok := s.Attr("href")
		href = strings.TrimSpace(href)
		if !ok || href == "" || href == "#" {
			seo.Links.Hygiene.Empty++
			return
		}

		rel := strings.ToLower(s.AttrOr("rel", ""))
		for _, marker := range strings.Fields(rel) {
			switch marker {
			case "nofollow":
				seo.Links.Hygiene.Nofollow++
			case "ugc":
				seo.Links.Hygiene.UGC++
			case "sponsored":
				seo.Links.Hygiene.Sponsored++
			}
		}

		lowered := strings.ToLower(href)
		switch {
		case strings.HasPrefix(lowered, "mailto:"):
			seo.Links.Hygiene.Mailto++
			return
		case strings.HasPrefix(lowered, "tel:"):
			seo.Links.Hygiene.Tel++
			return
		case strings.HasPrefix(lowered, "javascript:"):
			seo.Links.Hygiene.JavaScript++
			return
		case strings.HasPrefix(lowered, "data:"):
			return
		}

		resolved := p.resolve(href)
		if resolved == "" {
			return
		}

		if p.isInternal(resolved) {
			if !seenInternal[resolved] {
				seenInternal[resolved] = true
				seo.Links.Internal = append(seo.Links.Internal, resolved)
			}
		} else {
			if !seenExternal[resolved] {
				seenExternal[resolved] = true
				seo.Links.External = append(seo.Links.External, resolved)
			}
		}
	})

	return append([]string(nil), seo.Links.Internal...)
}

// extractImages builds the image inventory, resolving lazy-loading
// source attributes, and returns internal image URLs for enqueueing.
func (p *Parser) extractImages(doc *goquery.Document, seo *model.SEOData) []string {
	seo.Images = make([]model.ImageRef, 0)
	internal := make([]string, 0)
	seen := make(map[string]bool)

	doc.Find("img").Each(func(_ int, s *goquery.Selection) {
		src := strings.TrimSpace(s.AttrOr("src", ""))
		lazy := false

		// Lazy-loading markups park the real URL in data attributes
		// and leave src empty or pointing at a placeholder.
		if src == "" || strings.HasPrefix(src, "data:") {
			if dataSrc := strings.TrimSpace(s.AttrOr("data-src", "")); dataSrc != "" {
				src = dataSrc
				lazy = true
			} else if srcset := strings.TrimSpace(s.AttrOr("data-srcset", "")); srcset != "" {
				src = firstSrcsetURL(srcset)
				lazy = true
			}
		}
		if src == "" || strings.HasPrefix(src, "data:") {
			return
		}

		resolved := p.resolve(src)
		if resolved == "" {
			return
		}

		seo.Images = append(seo.Images, model.ImageRef{
			Source:  resolved,
			Alt:     strings.TrimSpace(s.AttrOr("alt", "")),
			Loading: strings.ToLower(strings.TrimSpace(s.AttrOr("loading", ""))),
			Width:   strings.TrimSpace(s.AttrOr("width", "")),
			Height:  strings.TrimSpace(s.AttrOr("height", "")),
			Lazy:    lazy,
		})

		if p.isInternal(resolved) && !seen[resolved] {
			seen[resolved] = true
			internal = append(internal, resolved)
		}
	})

	return internal
}

// firstSrcsetURL extracts the first URL from a srcset attribute value.
func firstSrcsetURL(srcset string) string {
	first := strings.SplitN(srcset, ",", 2)[0]
	fields := strings.Fields(first)
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}

// extractResources counts stylesheet and script references.
func (p *Parser) extractResources(doc *goquery.Document, seo *model.SEOData) {
	seo.Resources.Stylesheets = doc.Find(`link[rel="stylesheet"]`).Length()

	doc.Find("script[src]").Each(func(_ int, s *goquery.Selection) {
		seo.Resources.Scripts++
		_, async := s.Attr("async")
		_, deferred := s.Attr("defer")
		switch {
		case async:
			seo.Resources.ScriptsAsync++
		case deferred:
			seo.Resources.ScriptsDefer++
		default:
			seo.Resources.ScriptsSync++
		}
	})
}

// extractStructuredData collects JSON-LD blocks. Malformed blocks are
// dropped silently: absent or invalid structured data degrades to an
// empty slice, never an error.
func (p *Parser) extractStructuredData(doc *goquery.Document, seo *model.SEOData) {
	doc.Find(`script[type="application/ld+json"]`).Each(func(_ int, s *goquery.Selection) {
		raw := strings.TrimSpace(s.Text())
		if raw == "" || !json.Valid([]byte(raw)) {
			return
		}
		seo.StructuredData = append(seo.StructuredData, json.RawMessage(raw))
	})
}

// extractText computes word count, text ratio, the main-content excerpt,
// and the first paragraph.
func (p *Parser) extractText(doc *goquery.Document, seo *model.SEOData, htmlLen int) {
	body := doc.Find("body").First()
	if body.Length() == 0 {
		return
	}

	visible := visibleText(body)
	seo.WordCount = WordCount(visible)
	seo.TextRatio = TextRatio(len(visible), htmlLen)

	main := p.mainContent(doc, body)
	mainText := visibleText(main)
	seo.Excerpt = Excerpt(mainText, ExcerptLimit)

	firstPara := NormalizeWhitespace(main.Find("p").First().Text())
	if firstPara == "" {
		firstPara = mainText
	}
	seo.FirstParagraph = Excerpt(firstPara, FirstParagraphLimit)
}

// mainContent returns the best-effort main-content container: the first
// selector in the cascade with non-empty text, else the whole body.
func (p *Parser) mainContent(doc *goquery.Document, body *goquery.Selection) *goquery.Selection {
	for _, selector := range mainContentSelectors {
		candidate := doc.Find(selector).First()
		if candidate.Length() == 0 {
			continue
		}
		if strings.TrimSpace(visibleText(candidate)) != "" {
			return candidate
		}
	}
	return body
}

// visibleText returns the whitespace-normalized text of a selection with
// boilerplate nodes removed. The selection is cloned first so extraction
// never mutates the document.
func visibleText(sel *goquery.Selection) string {
	clone := sel.Clone()
	clone.Find(boilerplateSelector).Remove()
	return NormalizeWhitespace(clone.Text())
}

// summarize fills the human-readable summary string and its compact
// structured counterpart. Both are inputs to downstream report
// synthesis, not to audit logic.
func (p *Parser) summarize(seo *model.SEOData) {
	missingAlt := 0
	for _, img := range seo.Images {
		if img.Alt == "" {
			missingAlt++
		}
	}

	seo.SummaryData = &model.PageSummary{
		Title:            seo.Title,
		Description:      seo.MetaDescription,
		H1:               seo.Headings["h1"],
		WordCount:        seo.WordCount,
		InternalLinks:    len(seo.Links.Internal),
		ExternalLinks:    len(seo.Links.External),
		Images:           len(seo.Images),
		ImagesMissingAlt: missingAlt,
	}

	var b strings.Builder
	if seo.Title != "" {
		fmt.Fprintf(&b, "%q", seo.Title)
	} else {
		b.WriteString("Untitled page")
	}
	if h1s := seo.Headings["h1"]; len(h1s) > 0 {
		fmt.Fprintf(&b, ", main heading %q", h1s[0])
	}
	fmt.Fprintf(&b, ". Roughly %d words, %d internal and %d external links, %d images",
		seo.WordCount, len(seo.Links.Internal), len(seo.Links.External), len(seo.Images))
	if missingAlt > 0 {
		fmt.Fprintf(&b, " (%d without alt text)", missingAlt)
	}
	b.WriteString(".")
	if seo.MetaDescription != "" {
		fmt.Fprintf(&b, " Description: %s", seo.MetaDescription)
	}
	seo.Summary = b.String()
}

// resolve resolves a possibly-relative reference against the page URL.
// Fragment-only and unparseable references resolve to "".
func (p *Parser) resolve(ref string) string {
	ref = strings.TrimSpace(ref)
	if ref == "" || strings.HasPrefix(ref, "#") {
		return ""
	}

	u, err := url.Parse(ref)
	if err != nil {
		return ""
	}

	resolved := p.base.ResolveReference(u)
	resolved.Fragment = ""
	return resolved.String()
}

// isInternal reports whether a resolved URL belongs to the project's
// site (normalized-host comparison, www-insensitive).
func (p *Parser) isInternal(resolved string) bool {
	u, err := url.Parse(resolved)
	if err != nil {
		return false
	}
	return NormalizeHost(u.Hostname()) == p.siteHost
}
