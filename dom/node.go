// Package dom adapts golang.org/x/net/html trees to the needs of the rule
// engine: element accessors, a CSS selector subset, XPath locators, open
// shadow roots, multi-root search and frame document resolution.
//
// A shadow root is represented the way declarative shadow DOM serialises it:
// a <template shadowrootmode="open"> child of its host. Closed roots are
// treated as absent, like in a browser. Nothing in this package mutates a
// tree.
package dom

import (
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// IsElement reports whether n is an element node.
func IsElement(n *html.Node) bool {
	return n != nil && n.Type == html.ElementNode
}

// Tag returns the lower-case local name of an element, or "" for other nodes.
func Tag(n *html.Node) string {
	if !IsElement(n) {
		return ""
	}
	return strings.ToLower(n.Data)
}

// Attr returns the value of an attribute, or "" when absent.
func Attr(n *html.Node, key string) string {
	v, _ := LookupAttr(n, key)
	return v
}

// LookupAttr returns the value of an attribute and whether it is present.
func LookupAttr(n *html.Node, key string) (string, bool) {
	if n == nil {
		return "", false
	}
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val, true
		}
	}
	return "", false
}

// HasAttr reports whether an attribute is present, whatever its value.
func HasAttr(n *html.Node, key string) bool {
	_, ok := LookupAttr(n, key)
	return ok
}

// AttrTokens splits an attribute value on ASCII whitespace.
func AttrTokens(n *html.Node, key string) []string {
	return strings.Fields(Attr(n, key))
}

// ParentElement returns the parent element of n. It returns nil at the top
// of a tree, including at a shadow root boundary: ancestry never leaks from
// a shadow tree into its host's tree.
func ParentElement(n *html.Node) *html.Node {
	if n == nil || n.Parent == nil {
		return nil
	}
	p := n.Parent
	if p.Type != html.ElementNode || IsShadowRoot(p) {
		return nil
	}
	return p
}

// Closest returns the nearest ancestor element (excluding n) for which match
// returns true, staying inside n's tree.
func Closest(n *html.Node, match func(*html.Node) bool) *html.Node {
	for p := ParentElement(n); p != nil; p = ParentElement(p) {
		if match(p) {
			return p
		}
	}
	return nil
}

// ChildElements returns the element children of n in document order.
func ChildElements(n *html.Node) []*html.Node {
	var out []*html.Node
	if n == nil {
		return out
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode {
			out = append(out, c)
		}
	}
	return out
}

// ShadowRoot returns the open shadow root attached to host, or nil.
func ShadowRoot(host *html.Node) *html.Node {
	if !IsElement(host) {
		return nil
	}
	for c := host.FirstChild; c != nil; c = c.NextSibling {
		if c.Type != html.ElementNode || c.DataAtom != atom.Template {
			continue
		}
		mode, ok := LookupAttr(c, "shadowrootmode")
		if !ok {
			continue
		}
		if strings.EqualFold(mode, "open") {
			return c
		}
		// Only the first declarative root attaches.
		return nil
	}
	return nil
}

// IsShadowRoot reports whether n is an open shadow root.
func IsShadowRoot(n *html.Node) bool {
	if !IsElement(n) || n.DataAtom != atom.Template {
		return false
	}
	return ShadowRoot(n.Parent) == n
}

// Host returns the element a shadow root is attached to.
func Host(root *html.Node) *html.Node {
	if !IsShadowRoot(root) {
		return nil
	}
	return root.Parent
}

// TreeRoot returns the root of the tree containing n: the document node, the
// enclosing shadow root, or the topmost ancestor of a detached subtree.
func TreeRoot(n *html.Node) *html.Node {
	cur := n
	for cur != nil && cur.Parent != nil {
		if IsShadowRoot(cur) {
			return cur
		}
		cur = cur.Parent
	}
	return cur
}

// Walk calls visit for every element below root in document order. Template
// contents (and therefore nested shadow roots) are not entered. Walk stops
// early and returns false as soon as visit returns false.
func Walk(root *html.Node, visit func(*html.Node) bool) bool {
	if root == nil {
		return true
	}
	for c := root.FirstChild; c != nil; c = c.NextSibling {
		if !walk(c, visit) {
			return false
		}
	}
	return true
}

func walk(n *html.Node, visit func(*html.Node) bool) bool {
	if n.Type == html.ElementNode {
		if !visit(n) {
			return false
		}
		if n.DataAtom == atom.Template {
			return true
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if !walk(c, visit) {
			return false
		}
	}
	return true
}

// Text returns the whitespace-collapsed text of a subtree, skipping script,
// style, noscript and template content.
func Text(n *html.Node) string {
	var sb strings.Builder
	var f func(*html.Node)
	f = func(n *html.Node) {
		switch n.Type {
		case html.TextNode:
			sb.WriteString(n.Data)
			return
		case html.ElementNode:
			switch n.DataAtom {
			case atom.Script, atom.Style, atom.Noscript, atom.Template:
				return
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			f(c)
		}
	}
	if n != nil {
		f(n)
	}
	return CollapseSpace(sb.String())
}

// CollapseSpace trims s and folds runs of whitespace into single spaces.
func CollapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// Title returns the text of the first <title> element of a document, outside
// svg content.
func Title(doc *html.Node) string {
	var title string
	Walk(doc, func(n *html.Node) bool {
		if n.DataAtom == atom.Title && n.Namespace == "" {
			title = Text(n)
			return false
		}
		return true
	})
	return title
}
