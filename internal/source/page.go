package source

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"

	"github.com/hazyhaar/a11ywatch/dom"
	"github.com/hazyhaar/a11ywatch/report"
	"golang.org/x/net/html"
)

// Via names the path a page was acquired through.
const (
	ViaHTTP    = "http"
	ViaBrowser = "browser"
	ViaFile    = "file"
	ViaInline  = "inline"
)

// ErrNoBrowser is returned when a browser snapshot is required but the
// loader has none.
var ErrNoBrowser = errors.New("source: no browser configured")

// ErrHTTPStatus wraps fetches answered with a 4xx or 5xx status.
var ErrHTTPStatus = errors.New("source: http error status")

// Page is a parsed document ready for an engine pass.
type Page struct {
	URL    string
	Title  string
	HTML   []byte
	Hash   string
	Via    string
	Doc    *html.Node
	Frames *dom.Frames
}

// Parse builds a Page from markup and the frame documents captured with it,
// keyed as in dom.FrameKeyAttr. Frames that fail to parse are skipped and
// later resolve as unavailable.
func Parse(pageURL string, src []byte, frames map[string][]byte) (*Page, error) {
	doc, err := html.Parse(bytes.NewReader(src))
	if err != nil {
		return nil, fmt.Errorf("source: parse %s: %w", pageURL, err)
	}
	fr := dom.NewFrames()
	for key, body := range frames {
		fd, err := html.Parse(bytes.NewReader(body))
		if err != nil {
			continue
		}
		fr.Add(key, fd)
	}
	return &Page{
		URL:    pageURL,
		Title:  dom.Title(doc),
		HTML:   src,
		Hash:   report.HashHTML(src),
		Doc:    doc,
		Frames: fr,
	}, nil
}

// FromCapture parses a browser snapshot.
func FromCapture(c *Capture) (*Page, error) {
	frames := make(map[string][]byte, len(c.Frames))
	for _, f := range c.Frames {
		frames[f.Key] = []byte(f.HTML)
	}
	p, err := Parse(c.URL, []byte(c.HTML), frames)
	if err != nil {
		return nil, err
	}
	p.Via = ViaBrowser
	return p, nil
}

// ReadFile parses a document stored on disk.
func ReadFile(path string) (*Page, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("source: read %s: %w", path, err)
	}
	p, err := Parse("file://"+path, src, nil)
	if err != nil {
		return nil, err
	}
	p.Via = ViaFile
	return p, nil
}

// Mode selects how Load acquires a URL.
type Mode int

const (
	// ModeAuto fetches over HTTP and escalates to the browser when the body
	// looks script-rendered and a browser is available.
	ModeAuto Mode = iota
	ModeHTTP
	ModeBrowser
)

// Snapshotter is the browser side of a Loader.
type Snapshotter interface {
	Snapshot(ctx context.Context, pageURL string) (*Capture, error)
}

// Loader acquires pages over HTTP or through a browser.
type Loader struct {
	fetcher *Fetcher
	browser Snapshotter
	logger  *slog.Logger
}

// NewLoader returns a loader. browser may be nil.
func NewLoader(f *Fetcher, browser Snapshotter, logger *slog.Logger) *Loader {
	if f == nil {
		f = NewFetcher()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Loader{fetcher: f, browser: browser, logger: logger}
}

// HasBrowser reports whether browser snapshots are available.
func (l *Loader) HasBrowser() bool { return l.browser != nil }

// Load acquires and parses pageURL.
func (l *Loader) Load(ctx context.Context, pageURL string, mode Mode) (*Page, error) {
	if mode == ModeBrowser {
		return l.snapshot(ctx, pageURL)
	}

	res, err := l.fetcher.Fetch(ctx, pageURL)
	if err != nil {
		return nil, err
	}
	if res.StatusCode >= http.StatusBadRequest {
		return nil, fmt.Errorf("%w: %s answered %d", ErrHTTPStatus, pageURL, res.StatusCode)
	}
	if mode == ModeAuto && !res.Sufficient {
		if l.browser != nil {
			l.logger.Info("source: escalating to browser", "url", pageURL)
			return l.snapshot(ctx, pageURL)
		}
		l.logger.Debug("source: page looks script-rendered, no browser to escalate", "url", pageURL)
	}

	p, err := Parse(res.URL, res.HTML, nil)
	if err != nil {
		return nil, err
	}
	p.Via = ViaHTTP
	return p, nil
}

func (l *Loader) snapshot(ctx context.Context, pageURL string) (*Page, error) {
	if l.browser == nil {
		return nil, ErrNoBrowser
	}
	c, err := l.browser.Snapshot(ctx, pageURL)
	if err != nil {
		return nil, err
	}
	return FromCapture(c)
}
