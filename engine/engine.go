// Package engine drives evaluation passes: it walks a document in visit
// order, offers every element to the registered rules whose applicability
// filters match, runs them with the pass settings and collects the findings
// per element. A rule that panics is isolated to the (element, rule) pair
// that raised it and recorded as a Failure.
package engine

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/hazyhaar/a11ywatch/dom"
	"github.com/hazyhaar/a11ywatch/rule"
	"golang.org/x/net/html"
)

// MaxFrameDepth bounds how deep nested frame documents are followed.
const MaxFrameDepth = 8

// ElementResult holds the findings of every rule for one element, in
// registration order.
type ElementResult struct {
	Element *html.Node
	XPath   string
	Results rule.Findings
}

// Failure records a rule that faulted on an element.
type Failure struct {
	RuleName string
	XPath    string
	Err      error
}

// Result is the outcome of one pass.
type Result struct {
	Elements []ElementResult
	Failures []Failure
	Visited  int
	Duration time.Duration
}

// Findings returns the number of results across all elements.
func (r Result) Findings() int {
	n := 0
	for _, e := range r.Elements {
		n += len(e.Results)
	}
	return n
}

// Engine runs passes against a fixed registry. Passes on one Engine are
// serialised.
type Engine struct {
	mu     sync.Mutex
	reg    *rule.Registry
	logger *slog.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the logger used for pass summaries and rule faults.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// New returns an engine over reg.
func New(reg *rule.Registry, opts ...Option) *Engine {
	e := &Engine{reg: reg, logger: slog.Default()}
	for _, o := range opts {
		o(e)
	}
	return e
}

// Registry returns the rules the engine evaluates.
func (e *Engine) Registry() *rule.Registry { return e.reg }

type passConfig struct {
	frames dom.FrameResolver
	srcdoc bool
}

// PassOption configures a single pass.
type PassOption func(*passConfig)

// WithFrames resolves frame documents so they are audited in the same pass.
func WithFrames(r dom.FrameResolver) PassOption {
	return func(p *passConfig) { p.frames = r }
}

// WithSrcdoc marks the top-level document as a srcdoc frame document.
func WithSrcdoc(srcdoc bool) PassOption {
	return func(p *passConfig) { p.srcdoc = srcdoc }
}

type boundRule struct {
	rule *rule.Rule
	opts rule.Options
}

type pass struct {
	e       *Engine
	rules   []boundRule
	frames  dom.FrameResolver
	res     *Result
	visited map[*html.Node]bool
}

// Run evaluates doc with settings. Rules absent from settings run with their
// default options. The call blocks while another pass is in flight.
func (e *Engine) Run(doc *html.Node, settings rule.Settings, opts ...PassOption) Result {
	e.mu.Lock()
	defer e.mu.Unlock()

	var cfg passConfig
	for _, o := range opts {
		o(&cfg)
	}

	start := time.Now()
	p := &pass{
		e:       e,
		frames:  cfg.frames,
		res:     &Result{},
		visited: make(map[*html.Node]bool),
	}
	for _, r := range e.reg.Rules() {
		o := settings.For(r)
		if o.Enabled {
			p.rules = append(p.rules, boundRule{rule: r, opts: o})
		}
	}

	if doc != nil {
		p.document(doc, cfg.srcdoc, "", 0)
	}

	p.res.Duration = time.Since(start)
	e.logger.Debug("engine: pass complete",
		"elements", p.res.Visited,
		"reported", len(p.res.Elements),
		"findings", p.res.Findings(),
		"failures", len(p.res.Failures),
		"duration", p.res.Duration)
	return *p.res
}

// document opens a Context for doc and walks it. prefix is the XPath of the
// frame element that embeds doc.
func (p *pass) document(doc *html.Node, srcdoc bool, prefix string, depth int) {
	p.visited[doc] = true
	ctx := rule.NewContext(doc,
		rule.WithShadowRoots(dom.ShadowRoots(doc)),
		rule.WithSrcdoc(srcdoc),
		rule.WithFrames(p.frames),
	)
	p.children(doc, ctx, prefix, depth)
}

// children visits the light children of n. The shadow root template of a
// host is reached through the host, and other template contents are inert.
func (p *pass) children(n *html.Node, ctx *rule.Context, prefix string, depth int) {
	if dom.Tag(n) == "template" {
		return
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type != html.ElementNode || dom.IsShadowRoot(c) {
			continue
		}
		p.element(c, ctx, prefix, depth)
	}
}

// element evaluates n, then its shadow tree, then its light children, then
// the document of a frame element.
func (p *pass) element(n *html.Node, ctx *rule.Context, prefix string, depth int) {
	p.res.Visited++
	xp := prefix + dom.XPath(n)

	var found rule.Findings
	for _, b := range p.rules {
		if !b.rule.Applies(n, ctx) {
			continue
		}
		f, err := p.evaluate(b, n, ctx)
		if err != nil {
			p.res.Failures = append(p.res.Failures, Failure{RuleName: b.rule.Name, XPath: xp, Err: err})
			p.e.logger.Warn("engine: rule failed", "rule", b.rule.Name, "xpath", xp, "error", err)
			continue
		}
		found = append(found, f...)
	}
	if len(found) > 0 {
		p.res.Elements = append(p.res.Elements, ElementResult{Element: n, XPath: xp, Results: found})
	}

	if root := dom.ShadowRoot(n); root != nil {
		for c := root.FirstChild; c != nil; c = c.NextSibling {
			if c.Type == html.ElementNode && !dom.IsShadowRoot(c) {
				p.element(c, ctx, prefix, depth)
			}
		}
	}
	p.children(n, ctx, prefix, depth)

	if depth < MaxFrameDepth {
		if fd := dom.ResolveFrameDocument(n, p.frames); fd != nil && !p.visited[fd] {
			p.document(fd, dom.IsSrcdocFrame(n), xp, depth+1)
		}
	}
}

// evaluate runs one rule and converts a panic into an error.
func (p *pass) evaluate(b boundRule, n *html.Node, ctx *rule.Context) (f rule.Findings, err error) {
	defer func() {
		if v := recover(); v != nil {
			cause, ok := v.(error)
			if !ok {
				cause = errors.Newf("%v", v)
			}
			err = errors.Wrapf(cause, "rule %s on <%s>", b.rule.Name, dom.Tag(n))
			f = nil
		}
	}()
	return b.rule.Run(n, b.opts, ctx), nil
}

// String renders a failure for logs and reports.
func (f Failure) String() string {
	return fmt.Sprintf("%s at %s: %v", f.RuleName, f.XPath, f.Err)
}
