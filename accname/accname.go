// Package accname computes accessible names and descriptions for elements
// of an x/net/html tree. It implements the parts of the accessible name
// computation that are decidable without layout: hidden subtrees, ID
// references, aria-label, host language labels, name from content, title and
// placeholder.
package accname

import (
	"strings"

	"github.com/hazyhaar/a11ywatch/aria"
	"github.com/hazyhaar/a11ywatch/dom"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Provider supplies accessible names and descriptions.
type Provider interface {
	Name(n *html.Node) string
	Description(n *html.Node) string
}

// RoleFunc resolves the role of an element.
type RoleFunc func(*html.Node) (aria.Role, bool)

// Computer is the default Provider.
type Computer struct {
	shadowRoots []*html.Node
	role        RoleFunc
}

// Option configures a Computer.
type Option func(*Computer)

// WithShadowRoots makes ID references resolvable inside the given roots
// after the element's own tree.
func WithShadowRoots(roots []*html.Node) Option {
	return func(c *Computer) { c.shadowRoots = roots }
}

// WithRoleFunc replaces aria.Resolve, typically with a memoised resolver.
func WithRoleFunc(fn RoleFunc) Option {
	return func(c *Computer) { c.role = fn }
}

// New returns a Computer.
func New(opts ...Option) *Computer {
	c := &Computer{role: aria.Resolve}
	for _, o := range opts {
		o(c)
	}
	return c
}

type walkState struct {
	visited     map[*html.Node]bool
	inReference bool // traversing an aria-labelledby/aria-describedby target
	inContent   bool // collecting descendant text for an ancestor
}

// Name returns the accessible name of n, or "".
func (c *Computer) Name(n *html.Node) string {
	if !dom.IsElement(n) {
		return ""
	}
	st := &walkState{visited: make(map[*html.Node]bool)}
	return dom.CollapseSpace(c.name(n, st))
}

// Description returns the accessible description of n, or "".
func (c *Computer) Description(n *html.Node) string {
	if !dom.IsElement(n) {
		return ""
	}
	if ids := dom.AttrTokens(n, "aria-describedby"); len(ids) > 0 {
		if d := c.referenced(n, ids); d != "" {
			return d
		}
	}
	if d := dom.CollapseSpace(dom.Attr(n, "aria-description")); d != "" {
		return d
	}
	title := dom.CollapseSpace(dom.Attr(n, "title"))
	if title != "" && c.Name(n) != title {
		return title
	}
	return ""
}

func (c *Computer) referenced(n *html.Node, ids []string) string {
	root := dom.TreeRoot(n)
	parts := make([]string, 0, len(ids))
	for _, id := range ids {
		target := dom.FindByID(id, root, c.shadowRoots)
		if target == nil {
			continue
		}
		st := &walkState{visited: map[*html.Node]bool{n: true}, inReference: true}
		if s := dom.CollapseSpace(c.name(target, st)); s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, " ")
}

func (c *Computer) name(n *html.Node, st *walkState) string {
	if st.visited[n] {
		return ""
	}
	st.visited[n] = true

	if !st.inReference && IsHidden(n) {
		return ""
	}

	if !st.inReference {
		if ids := dom.AttrTokens(n, "aria-labelledby"); len(ids) > 0 {
			if s := c.referencedFrom(n, ids, st); strings.TrimSpace(s) != "" {
				return s
			}
		}
	}

	role, hasRole := c.role(n)

	if st.inContent && isEmbeddedControl(role, hasRole) {
		return embeddedValue(n, role)
	}

	if s := strings.TrimSpace(dom.Attr(n, "aria-label")); s != "" {
		return s
	}

	if role != "presentation" && role != "none" {
		if s := c.native(n, st); s != "" {
			return s
		}
	}

	if st.inReference || st.inContent || (hasRole && aria.NameSource(role) == aria.NameFromContents) {
		if s := c.content(n, st); strings.TrimSpace(s) != "" {
			return s
		}
	}

	if s := strings.TrimSpace(dom.Attr(n, "title")); s != "" {
		return s
	}
	switch dom.Tag(n) {
	case "input", "textarea":
		return strings.TrimSpace(dom.Attr(n, "placeholder"))
	}
	return ""
}

func (c *Computer) referencedFrom(n *html.Node, ids []string, st *walkState) string {
	root := dom.TreeRoot(n)
	var parts []string
	for _, id := range ids {
		target := dom.FindByID(id, root, c.shadowRoots)
		if target == nil {
			continue
		}
		sub := &walkState{visited: st.visited, inReference: true}
		if s := dom.CollapseSpace(c.name(target, sub)); s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, " ")
}

// native returns the name from host language features.
func (c *Computer) native(n *html.Node, st *walkState) string {
	switch n.DataAtom {
	case atom.Input:
		typ := strings.ToLower(strings.TrimSpace(dom.Attr(n, "type")))
		switch typ {
		case "button", "submit", "reset":
			if v, ok := dom.LookupAttr(n, "value"); ok && strings.TrimSpace(v) != "" {
				return v
			}
			switch typ {
			case "submit":
				return "Submit"
			case "reset":
				return "Reset"
			}
			return ""
		case "image":
			if s := strings.TrimSpace(dom.Attr(n, "alt")); s != "" {
				return s
			}
			if s := strings.TrimSpace(dom.Attr(n, "value")); s != "" {
				return s
			}
			if s := strings.TrimSpace(dom.Attr(n, "title")); s != "" {
				return s
			}
			return "Submit"
		}
		return c.labels(n, st)
	case atom.Select, atom.Textarea, atom.Meter, atom.Output, atom.Progress:
		return c.labels(n, st)
	case atom.Button:
		if s := c.labels(n, st); s != "" {
			return s
		}
	case atom.Img, atom.Area:
		return strings.TrimSpace(dom.Attr(n, "alt"))
	case atom.Fieldset:
		return c.firstChildText(n, atom.Legend, st)
	case atom.Figure:
		return c.firstChildText(n, atom.Figcaption, st)
	case atom.Table:
		return c.firstChildText(n, atom.Caption, st)
	case atom.Svg:
		for _, ch := range dom.ChildElements(n) {
			if dom.Tag(ch) == "title" {
				return dom.Text(ch)
			}
		}
	}
	return ""
}

func (c *Computer) firstChildText(n *html.Node, a atom.Atom, st *walkState) string {
	for _, ch := range dom.ChildElements(n) {
		if ch.DataAtom == a {
			sub := &walkState{visited: st.visited, inReference: st.inReference, inContent: true}
			return dom.CollapseSpace(c.content(ch, sub))
		}
	}
	return ""
}

// labels returns the text of the <label> elements associated with a
// labelable control: label[for=id] in the same tree, then a wrapping label.
func (c *Computer) labels(n *html.Node, st *walkState) string {
	var found []*html.Node
	if id := dom.Attr(n, "id"); id != "" {
		dom.Walk(dom.TreeRoot(n), func(l *html.Node) bool {
			if l.DataAtom == atom.Label && dom.Attr(l, "for") == id {
				found = append(found, l)
			}
			return true
		})
	}
	if wrap := dom.Closest(n, func(p *html.Node) bool { return p.DataAtom == atom.Label }); wrap != nil {
		if !dom.HasAttr(wrap, "for") || dom.Attr(wrap, "for") == dom.Attr(n, "id") {
			dup := false
			for _, l := range found {
				dup = dup || l == wrap
			}
			if !dup {
				found = append(found, wrap)
			}
		}
	}
	var parts []string
	for _, l := range found {
		sub := &walkState{visited: st.visited, inReference: st.inReference, inContent: true}
		if s := dom.CollapseSpace(c.content(l, sub)); s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, " ")
}

// content concatenates the names of n's children.
func (c *Computer) content(n *html.Node, st *walkState) string {
	sub := &walkState{visited: st.visited, inReference: st.inReference, inContent: true}
	var sb strings.Builder
	for ch := n.FirstChild; ch != nil; ch = ch.NextSibling {
		switch ch.Type {
		case html.TextNode:
			sb.WriteString(ch.Data)
		case html.ElementNode:
			switch ch.DataAtom {
			case atom.Script, atom.Style, atom.Noscript, atom.Template:
				continue
			}
			if IsHidden(ch) {
				continue
			}
			s := c.name(ch, sub)
			if isBlock(ch) {
				sb.WriteString(" " + s + " ")
			} else {
				sb.WriteString(s)
			}
		}
	}
	if sr := dom.ShadowRoot(n); sr != nil {
		for _, ch := range dom.ChildElements(sr) {
			if !IsHidden(ch) {
				sb.WriteString(" " + c.name(ch, sub) + " ")
			}
		}
	}
	return sb.String()
}

func isEmbeddedControl(r aria.Role, ok bool) bool {
	if !ok {
		return false
	}
	switch r {
	case "textbox", "searchbox", "combobox", "listbox", "slider", "spinbutton":
		return true
	}
	return false
}

func embeddedValue(n *html.Node, r aria.Role) string {
	switch r {
	case "combobox", "listbox":
		if n.DataAtom == atom.Select {
			var first, selected string
			dom.Walk(n, func(o *html.Node) bool {
				if o.DataAtom != atom.Option {
					return true
				}
				if first == "" {
					first = dom.Text(o)
				}
				if dom.HasAttr(o, "selected") {
					selected = dom.Text(o)
					return false
				}
				return true
			})
			if selected != "" {
				return selected
			}
			return first
		}
	case "slider", "spinbutton":
		if v := dom.Attr(n, "aria-valuetext"); v != "" {
			return v
		}
		if v := dom.Attr(n, "aria-valuenow"); v != "" {
			return v
		}
	}
	if n.DataAtom == atom.Textarea {
		return dom.Text(n)
	}
	return dom.Attr(n, "value")
}

// IsHidden reports whether n is excluded from the accessibility tree by
// markup alone: the hidden attribute, aria-hidden="true", an inline
// display:none or visibility:hidden style, or a hidden input.
func IsHidden(n *html.Node) bool {
	if !dom.IsElement(n) {
		return false
	}
	if dom.HasAttr(n, "hidden") {
		return true
	}
	if strings.EqualFold(strings.TrimSpace(dom.Attr(n, "aria-hidden")), "true") {
		return true
	}
	if n.DataAtom == atom.Input && strings.EqualFold(strings.TrimSpace(dom.Attr(n, "type")), "hidden") {
		return true
	}
	style := strings.ToLower(strings.ReplaceAll(dom.Attr(n, "style"), " ", ""))
	return strings.Contains(style, "display:none") || strings.Contains(style, "visibility:hidden")
}

// IsHiddenInTree reports whether n or any ancestor in its tree is hidden.
func IsHiddenInTree(n *html.Node) bool {
	for cur := n; cur != nil; cur = dom.ParentElement(cur) {
		if IsHidden(cur) {
			return true
		}
	}
	return false
}

func isBlock(n *html.Node) bool {
	switch n.DataAtom {
	case atom.Address, atom.Article, atom.Aside, atom.Blockquote, atom.Br, atom.Dd,
		atom.Div, atom.Dl, atom.Dt, atom.Fieldset, atom.Figcaption, atom.Figure,
		atom.Footer, atom.Form, atom.H1, atom.H2, atom.H3, atom.H4, atom.H5, atom.H6,
		atom.Header, atom.Hr, atom.Li, atom.Main, atom.Nav, atom.Ol, atom.P,
		atom.Pre, atom.Section, atom.Table, atom.Td, atom.Th, atom.Tr, atom.Ul:
		return true
	}
	return false
}
