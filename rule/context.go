package rule

import (
	"github.com/hazyhaar/a11ywatch/accname"
	"github.com/hazyhaar/a11ywatch/aria"
	"github.com/hazyhaar/a11ywatch/dom"
	"github.com/hazyhaar/a11ywatch/table"
	"golang.org/x/net/html"
)

// TableRecord is the grid of one table, computed once per pass.
type TableRecord struct {
	Element *html.Node
	Rows    int
	Cols    int
}

type roleEntry struct {
	role aria.Role
	ok   bool
}

// Context is the cache of one evaluation pass over one document. It is
// created by the driver, borrowed by every rule invocation of the pass and
// dropped when the pass ends. Lazily computed values depend only on the
// tree, so computing them twice yields the same result. A Context is not
// safe for concurrent use.
type Context struct {
	doc         *html.Node
	shadowRoots []*html.Node
	srcdoc      bool
	frames      dom.FrameResolver
	provider    accname.Provider

	roles    map[*html.Node]roleEntry
	names    map[*html.Node]string
	descs    map[*html.Node]string
	tables   []TableRecord
	tableIdx map[*html.Node]int
	ids      map[*html.Node]map[string]int
}

// ContextOption configures a Context.
type ContextOption func(*Context)

// WithShadowRoots supplies the open shadow roots searched after the document.
func WithShadowRoots(roots []*html.Node) ContextOption {
	return func(c *Context) { c.shadowRoots = roots }
}

// WithSrcdoc marks the document as a srcdoc frame document.
func WithSrcdoc(srcdoc bool) ContextOption {
	return func(c *Context) { c.srcdoc = srcdoc }
}

// WithFrames sets the resolver for frame documents.
func WithFrames(r dom.FrameResolver) ContextOption {
	return func(c *Context) { c.frames = r }
}

// WithNameProvider replaces the default accessible name computation.
func WithNameProvider(p accname.Provider) ContextOption {
	return func(c *Context) { c.provider = p }
}

// NewContext opens a pass over doc.
func NewContext(doc *html.Node, opts ...ContextOption) *Context {
	c := &Context{
		doc:      doc,
		roles:    make(map[*html.Node]roleEntry),
		names:    make(map[*html.Node]string),
		descs:    make(map[*html.Node]string),
		tableIdx: make(map[*html.Node]int),
		ids:      make(map[*html.Node]map[string]int),
	}
	for _, o := range opts {
		o(c)
	}
	if c.provider == nil {
		c.provider = accname.New(
			accname.WithShadowRoots(c.shadowRoots),
			accname.WithRoleFunc(c.Role),
		)
	}
	return c
}

// Document returns the document of the pass.
func (c *Context) Document() *html.Node { return c.doc }

// ShadowRoots returns the shadow roots supplied to the pass.
func (c *Context) ShadowRoots() []*html.Node { return c.shadowRoots }

// Srcdoc reports whether the document comes from an iframe srcdoc.
func (c *Context) Srcdoc() bool { return c.srcdoc }

// Role returns the memoised resolved role of n.
func (c *Context) Role(n *html.Node) (aria.Role, bool) {
	if e, ok := c.roles[n]; ok {
		return e.role, e.ok
	}
	r, ok := aria.Resolve(n)
	c.roles[n] = roleEntry{role: r, ok: ok}
	return r, ok
}

// Name returns the memoised accessible name of n.
func (c *Context) Name(n *html.Node) string {
	if s, ok := c.names[n]; ok {
		return s
	}
	s := c.provider.Name(n)
	c.names[n] = s
	return s
}

// Description returns the memoised accessible description of n.
func (c *Context) Description(n *html.Node) string {
	if s, ok := c.descs[n]; ok {
		return s
	}
	s := c.provider.Description(n)
	c.descs[n] = s
	return s
}

// Table returns the grid of a table element, analysing it on first use.
func (c *Context) Table(n *html.Node) TableRecord {
	if i, ok := c.tableIdx[n]; ok {
		return c.tables[i]
	}
	size := table.Analyze(n)
	rec := TableRecord{Element: n, Rows: size.Rows, Cols: size.Cols}
	c.tableIdx[n] = len(c.tables)
	c.tables = append(c.tables, rec)
	return rec
}

// Tables returns the records analysed so far in first-use order.
func (c *Context) Tables() []TableRecord { return c.tables }

// FindByID searches the document, then the supplied shadow roots.
func (c *Context) FindByID(id string) *html.Node {
	return dom.FindByID(id, c.doc, c.shadowRoots)
}

// FindAll returns the matches of sel in the document, then in the shadow
// roots.
func (c *Context) FindAll(sel dom.Selector) []*html.Node {
	return dom.FindAllMatching(sel, c.doc, c.shadowRoots)
}

// FrameDocument returns the content document of a frame element, or nil.
func (c *Context) FrameDocument(frame *html.Node) *html.Node {
	return dom.ResolveFrameDocument(frame, c.frames)
}

// Frames returns the frame resolver of the pass, possibly nil.
func (c *Context) Frames() dom.FrameResolver { return c.frames }

// IDCount returns how many elements of n's tree carry the given id.
func (c *Context) IDCount(n *html.Node, id string) int {
	root := dom.TreeRoot(n)
	counts, ok := c.ids[root]
	if !ok {
		counts = make(map[string]int)
		dom.Walk(root, func(el *html.Node) bool {
			if v, has := dom.LookupAttr(el, "id"); has && v != "" {
				counts[v]++
			}
			return true
		})
		c.ids[root] = counts
	}
	return counts[id]
}
