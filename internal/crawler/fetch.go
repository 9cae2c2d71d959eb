package crawler

import (
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Fetcher performs single-URL HTTP fetches with the crawl's transport
// policy applied: redirects disabled, fixed user agent, bounded body
// reads, and a hard per-request timeout.
//
// Design decision: Redirects are never followed. A 3xx response is
// recorded as data with its status code, because a redirect target may
// leave the project host and following it would bypass the crawl
// profile. The discovered-links path re-enqueues in-scope targets
// instead.
type Fetcher struct {
	// client is the configured HTTP client.
	client *http.Client

	// userAgent is sent with every request.
	userAgent string

	// maxBodySize bounds how many response bytes are read.
	maxBodySize int64

	// headers are extra request headers (per-site cookies, auth).
	headers map[string]string
}

// Default fetch settings.
const (
	// DefaultFetchTimeout is the per-request timeout.
	DefaultFetchTimeout = 20 * time.Second

	// DefaultUserAgent identifies the crawler in HTTP requests.
	DefaultUserAgent = "seoscan/1.0 (+https://github.com/seoscan/seoscan)"

	// DefaultMaxBodySize bounds response body reads. It sits above the
	// large-file signal threshold so oversized bodies are still
	// observed rather than silently truncated below the limit.
	DefaultMaxBodySize = 16 * 1024 * 1024 // 16MB

	// acceptHeader is the fixed Accept header for fetches.
	acceptHeader = "text/html,application/xhtml+xml,application/xml;q=0.9,image/avif,image/webp,*/*;q=0.8"
)

// FetcherOption configures a Fetcher.
type FetcherOption func(*Fetcher)

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) FetcherOption {
	return func(f *Fetcher) {
		f.client.Timeout = d
	}
}

// WithUserAgent sets a custom User-Agent header.
func WithUserAgent(ua string) FetcherOption {
	return func(f *Fetcher) {
		f.userAgent = ua
	}
}

// WithMaxBodySize sets the maximum response body size to read.
func WithMaxBodySize(size int64) FetcherOption {
	return func(f *Fetcher) {
		f.maxBodySize = size
	}
}

// WithInsecureTLS disables TLS certificate verification. Intended for
// staging sites with self-signed certificates.
func WithInsecureTLS() FetcherOption {
	return func(f *Fetcher) {
		transport, ok := f.client.Transport.(*http.Transport)
		if !ok {
			transport = http.DefaultTransport.(*http.Transport).Clone()
		}
		if transport.TLSClientConfig == nil {
			transport.TLSClientConfig = &tls.Config{MinVersion: tls.VersionTLS12}
		}
		transport.TLSClientConfig.InsecureSkipVerify = true
		f.client.Transport = transport
	}
}

// WithRequestHeaders sets extra request headers sent with every fetch
// (site-specific cookies or authorization from the project config).
func WithRequestHeaders(headers map[string]string) FetcherOption {
	return func(f *Fetcher) {
		f.headers = headers
	}
}

// NewFetcher creates a Fetcher with the crawl transport policy applied.
func NewFetcher(opts ...FetcherOption) *Fetcher {
	f := &Fetcher{
		client: &http.Client{
			Timeout: DefaultFetchTimeout,
			CheckRedirect: func(_ *http.Request, _ []*http.Request) error {
				return http.ErrUseLastResponse
			},
			Transport: http.DefaultTransport.(*http.Transport).Clone(),
		},
		userAgent:   DefaultUserAgent,
		maxBodySize: DefaultMaxBodySize,
	}

	for _, opt := range opts {
		opt(f)
	}

	return f
}

// Response is the envelope of one fetch.
type Response struct {
	// StatusCode is the HTTP status.
	StatusCode int

	// Headers are the response headers.
	Headers http.Header

	// ContentType is the media type without parameters.
	ContentType string

	// Body is the response body, bounded by the fetcher's limit.
	Body []byte
}

// Fetch performs one GET request. A non-2xx response is not an error;
// only transport failures (DNS, connect, timeout) return a non-nil
// error, and those are recorded by the caller as error records rather
// than propagated.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (*Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("invalid URL %q: %w", rawURL, err)
	}

	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", acceptHeader)
	for name, value := range f.headers {
		req.Header.Set(name, value)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close() //nolint:errcheck // read side already handled

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBodySize))
	if err != nil {
		return nil, fmt.Errorf("failed to read body of %s: %w", rawURL, err)
	}

	contentType := resp.Header.Get("Content-Type")
	if idx := strings.Index(contentType, ";"); idx >= 0 {
		contentType = contentType[:idx]
	}

	return &Response{
		StatusCode:  resp.StatusCode,
		Headers:     resp.Header,
		ContentType: strings.ToLower(strings.TrimSpace(contentType)),
		Body:        body,
	}, nil
}
