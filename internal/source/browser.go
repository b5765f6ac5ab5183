package source

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"
)

// ErrBrowserClosed is returned by Snapshot after Close.
var ErrBrowserClosed = errors.New("source: browser closed")

// BrowserConfig configures the browser source.
type BrowserConfig struct {
	// RemoteURL is the DevTools websocket of an already running Chrome.
	// Empty launches a local headless instance.
	RemoteURL string `yaml:"remote_url"`
	// Stealth applies go-rod/stealth evasions to every tab.
	Stealth bool `yaml:"stealth"`
	// BlockResources lists resource types to refuse while loading:
	// images, fonts, media, stylesheets or any CDP resource type.
	BlockResources []string `yaml:"block_resources"`
	// NavigateTimeout bounds navigation and load. Default: 30s.
	NavigateTimeout time.Duration `yaml:"navigate_timeout"`
	// Settle is an extra wait after load for late rendering. Default: 0.
	Settle time.Duration `yaml:"settle"`
	Logger *slog.Logger  `yaml:"-"`
}

func (c *BrowserConfig) defaults() {
	if c.NavigateTimeout <= 0 {
		c.NavigateTimeout = 30 * time.Second
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

// Capture is a serialised browser document. Open shadow roots appear as
// <template shadowrootmode> children of their hosts. Same-origin frame
// elements carry a data-a11y-frame key naming their entry in Frames.
type Capture struct {
	URL    string         `json:"url"`
	HTML   string         `json:"html"`
	Frames []FrameCapture `json:"frames"`
}

// FrameCapture is the serialised document of one frame.
type FrameCapture struct {
	Key  string `json:"key"`
	HTML string `json:"html"`
}

// Browser takes DOM snapshots with a lazily started Chrome. Snapshots may run
// concurrently; each uses its own tab.
type Browser struct {
	cfg BrowserConfig

	mu      sync.Mutex
	browser *rod.Browser
	lnch    *launcher.Launcher
	closed  bool
}

// NewBrowser returns a browser source. Chrome starts on the first Snapshot.
func NewBrowser(cfg BrowserConfig) *Browser {
	cfg.defaults()
	return &Browser{cfg: cfg}
}

func (b *Browser) connect() (*rod.Browser, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil, ErrBrowserClosed
	}
	if b.browser != nil {
		return b.browser, nil
	}

	log := b.cfg.Logger
	wsURL := b.cfg.RemoteURL
	if wsURL != "" {
		log.Info("source: connecting to remote browser", "url", wsURL)
	} else {
		l := launcher.New().Headless(true).Set("disable-blink-features", "AutomationControlled")
		u, err := l.Launch()
		if err != nil {
			return nil, fmt.Errorf("source: launch browser: %w", err)
		}
		wsURL = u
		b.lnch = l
		log.Info("source: launched local browser", "url", wsURL)
	}

	rb := rod.New().ControlURL(wsURL)
	if err := rb.Connect(); err != nil {
		b.cleanupLocked()
		return nil, fmt.Errorf("source: connect browser: %w", err)
	}
	b.browser = rb
	return rb, nil
}

// Snapshot navigates a fresh tab to pageURL and serialises the rendered DOM.
func (b *Browser) Snapshot(ctx context.Context, pageURL string) (*Capture, error) {
	rb, err := b.connect()
	if err != nil {
		return nil, err
	}

	var page *rod.Page
	if b.cfg.Stealth {
		page, err = stealth.Page(rb)
	} else {
		page, err = rb.Page(proto.TargetCreateTarget{URL: ""})
	}
	if err != nil {
		return nil, fmt.Errorf("source: open tab: %w", err)
	}
	defer page.Close()

	if len(b.cfg.BlockResources) > 0 {
		router := blockResources(page, b.cfg.BlockResources)
		defer router.Stop()
	}

	navCtx, cancel := context.WithTimeout(ctx, b.cfg.NavigateTimeout)
	defer cancel()
	if err := page.Context(navCtx).Navigate(pageURL); err != nil {
		return nil, fmt.Errorf("source: navigate %s: %w", pageURL, err)
	}
	if err := page.Context(navCtx).WaitLoad(); err != nil {
		b.cfg.Logger.Warn("source: wait load", "url", pageURL, "error", err)
	}
	if b.cfg.Settle > 0 {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(b.cfg.Settle):
		}
	}

	res, err := page.Context(ctx).Eval(serializeJS)
	if err != nil {
		return nil, fmt.Errorf("source: serialise DOM: %w", err)
	}
	c, err := decodeCapture(res.Value.Str())
	if err != nil {
		return nil, err
	}
	if info, err := page.Info(); err == nil && info.URL != "" {
		c.URL = info.URL
	} else {
		c.URL = pageURL
	}
	b.cfg.Logger.Debug("source: snapshot", "url", c.URL, "size", len(c.HTML), "frames", len(c.Frames))
	return c, nil
}

// Close shuts the browser down. Snapshot fails afterwards.
func (b *Browser) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	return b.cleanupLocked()
}

func (b *Browser) cleanupLocked() error {
	var err error
	if b.browser != nil {
		err = b.browser.Close()
		b.browser = nil
	}
	if b.lnch != nil {
		b.lnch.Cleanup()
		b.lnch = nil
	}
	return err
}

func decodeCapture(raw string) (*Capture, error) {
	var c Capture
	if err := json.Unmarshal([]byte(raw), &c); err != nil {
		return nil, fmt.Errorf("source: decode snapshot: %w", err)
	}
	if strings.TrimSpace(c.HTML) == "" {
		return nil, fmt.Errorf("source: empty snapshot")
	}
	return &c, nil
}

func blockResources(page *rod.Page, types []string) *rod.HijackRouter {
	block := make(map[string]bool, len(types))
	for _, t := range types {
		block[strings.ToLower(t)] = true
	}
	router := page.HijackRequests()
	router.MustAdd("*", func(h *rod.Hijack) {
		if shouldBlock(block, string(h.Request.Type())) {
			h.Response.Fail(proto.NetworkErrorReasonBlockedByClient)
			return
		}
		h.ContinueRequest(&proto.FetchContinueRequest{})
	})
	go router.Run()
	return router
}

// shouldBlock maps CDP resource types onto configured names. Documents and
// scripts are never blocked since they produce the DOM under audit.
func shouldBlock(block map[string]bool, resType string) bool {
	switch t := strings.ToLower(resType); t {
	case "document", "script":
		return false
	case "image":
		return block["images"] || block[t]
	case "font":
		return block["fonts"] || block[t]
	case "stylesheet":
		return block["stylesheets"] || block[t]
	default:
		return block[t]
	}
}

// serializeJS walks the live DOM and returns JSON {html, frames}. Open shadow
// roots become declarative templates; readable frame documents are
// serialised recursively and keyed on their frame element.
const serializeJS = `() => {
  const voids = new Set(['area','base','br','col','embed','hr','img','input','link','meta','source','track','wbr']);
  const rawText = new Set(['script','style','xmp','iframe','noembed','noframes','plaintext']);
  const frames = [];
  let seq = 0;
  const escText = s => s.replace(/&/g, '&amp;').replace(/</g, '&lt;').replace(/>/g, '&gt;').replace(/\u00a0/g, '&nbsp;');
  const escAttr = s => s.replace(/&/g, '&amp;').replace(/"/g, '&quot;').replace(/\u00a0/g, '&nbsp;');
  const doc = d => (d.doctype ? '<!DOCTYPE html>' : '') + node(d.documentElement);
  const kids = p => { let s = ''; for (const c of p.childNodes) s += node(c); return s; };
  function node(n) {
    switch (n.nodeType) {
    case 1: {
      const tag = n.localName;
      let out = '<' + tag;
      for (const a of n.attributes) out += ' ' + a.name + '="' + escAttr(a.value) + '"';
      if ((tag === 'iframe' || tag === 'frame') && !n.hasAttribute('srcdoc')) {
        try {
          const d = n.contentDocument;
          if (d && d.documentElement) {
            const key = 'frame-' + (++seq);
            out += ' data-a11y-frame="' + key + '"';
            frames.push({key: key, html: doc(d)});
          }
        } catch (e) {}
      }
      out += '>';
      if (voids.has(tag)) return out;
      if (n.shadowRoot) out += '<template shadowrootmode="' + n.shadowRoot.mode + '">' + kids(n.shadowRoot) + '</template>';
      out += kids(tag === 'template' ? n.content : n);
      return out + '</' + tag + '>';
    }
    case 3: {
      const p = n.parentNode;
      return p && p.localName && rawText.has(p.localName) ? n.data : escText(n.data);
    }
    case 8:
      return '<!--' + n.data + '-->';
    }
    return '';
  }
  return JSON.stringify({url: location.href, html: doc(document), frames: frames});
}`
