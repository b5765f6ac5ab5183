// Package source acquires the documents a11ywatch audits: a plain HTTP GET
// for static pages and a rod-driven browser snapshot for pages that only
// render with JavaScript. Both paths end in a parsed Page whose open shadow
// roots are declarative templates and whose same-origin frame documents are
// registered in a dom.Frames resolver.
package source

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
)

// MaxBodySize caps the bytes read from a response.
const MaxBodySize = 10 << 20

// DefaultUserAgent identifies the HTTP fetcher.
const DefaultUserAgent = "Mozilla/5.0 (compatible; a11ywatch/1.0)"

// Fetched is the outcome of an HTTP fetch.
type Fetched struct {
	URL        string // final URL after redirects
	StatusCode int
	HTML       []byte
	ETag       string
	LastMod    string
	// Sufficient is false when the body looks like a script-rendered shell
	// that needs a browser to be worth auditing.
	Sufficient bool
}

// Fetcher performs HTTP GETs.
type Fetcher struct {
	client *http.Client
	ua     string
	logger *slog.Logger
}

// FetchOption configures a Fetcher.
type FetchOption func(*Fetcher)

// WithClient sets the HTTP client.
func WithClient(c *http.Client) FetchOption {
	return func(f *Fetcher) { f.client = c }
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) FetchOption {
	return func(f *Fetcher) { f.ua = ua }
}

// WithFetchLogger sets the logger.
func WithFetchLogger(l *slog.Logger) FetchOption {
	return func(f *Fetcher) { f.logger = l }
}

// NewFetcher returns a Fetcher with a 30s client timeout.
func NewFetcher(opts ...FetchOption) *Fetcher {
	f := &Fetcher{
		client: &http.Client{Timeout: 30 * time.Second},
		ua:     DefaultUserAgent,
		logger: slog.Default(),
	}
	for _, o := range opts {
		o(f)
	}
	return f
}

// Fetch GETs pageURL. Non-2xx statuses are returned, not treated as errors.
func (f *Fetcher) Fetch(ctx context.Context, pageURL string) (*Fetched, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("source: new request: %w", err)
	}
	req.Header.Set("User-Agent", f.ua)
	req.Header.Set("Accept", "text/html,application/xhtml+xml;q=0.9,*/*;q=0.5")
	req.Header.Set("Accept-Language", "en-US,en;q=0.5")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("source: get %s: %w", pageURL, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, MaxBodySize))
	if err != nil {
		return nil, fmt.Errorf("source: read body: %w", err)
	}

	out := &Fetched{
		URL:        resp.Request.URL.String(),
		StatusCode: resp.StatusCode,
		HTML:       body,
		ETag:       resp.Header.Get("ETag"),
		LastMod:    resp.Header.Get("Last-Modified"),
		Sufficient: IsSufficient(body),
	}
	f.logger.Debug("source: fetched",
		"url", out.URL, "status", out.StatusCode,
		"size", len(body), "sufficient", out.Sufficient)
	return out, nil
}
