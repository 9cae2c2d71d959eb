package crawler

import (
	"fmt"
	"net/http"

	"github.com/seoscan/seoscan/internal/model"
)

// LargeFileThreshold is the body size above which a fetch is flagged.
const LargeFileThreshold = 10 * 1024 * 1024 // 10MB

// securityHeaders are the response headers whose absence on an HTML
// page is flagged informationally.
var securityHeaders = []string{
	"X-Frame-Options",
	"X-Content-Type-Options",
	"X-Xss-Protection",
}

// FetchSignals derives the fetch-time heuristics for one response.
// These are raw observations stored with the record; the audit rule set
// computes its own issues independently from persisted pages.
func FetchSignals(resp *Response, class string) []model.Signal {
	signals := make([]model.Signal, 0, 4)
	status := resp.StatusCode

	switch {
	case status >= 500:
		signals = append(signals, model.Signal{
			Type:     "http_error",
			Severity: model.SeverityCritical,
			Detail:   fmt.Sprintf("server error: HTTP %d", status),
		})
	case status >= 400:
		signals = append(signals, model.Signal{
			Type:     "http_error",
			Severity: model.SeverityWarning,
			Detail:   fmt.Sprintf("client error: HTTP %d", status),
		})
	case status >= 300:
		detail := fmt.Sprintf("redirect: HTTP %d", status)
		if loc := resp.Headers.Get("Location"); loc != "" {
			detail += " to " + loc
		}
		signals = append(signals, model.Signal{
			Type:     "redirect",
			Severity: model.SeverityInfo,
			Detail:   detail,
		})
	}

	if status == http.StatusOK && class == "unknown" {
		signals = append(signals, model.Signal{
			Type:     "unknown_content_type",
			Severity: model.SeverityInfo,
			Detail:   fmt.Sprintf("unrecognized content type %q on a 200 response", resp.ContentType),
		})
	}

	if int64(len(resp.Body)) > LargeFileThreshold {
		signals = append(signals, model.Signal{
			Type:     "large_file",
			Severity: model.SeverityWarning,
			Detail:   fmt.Sprintf("body is %d bytes (over %d)", len(resp.Body), LargeFileThreshold),
		})
	}

	if status == http.StatusOK && len(resp.Body) == 0 {
		signals = append(signals, model.Signal{
			Type:     "empty_body",
			Severity: model.SeverityWarning,
			Detail:   "200 response with an empty body",
		})
	}

	if class == "html" {
		for _, header := range securityHeaders {
			if resp.Headers.Get(header) == "" {
				signals = append(signals, model.Signal{
					Type:     "missing_security_header",
					Severity: model.SeverityInfo,
					Detail:   "missing " + header + " header",
				})
			}
		}
	}

	return signals
}
