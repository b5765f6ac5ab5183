package dom

import (
	"fmt"
	"strings"

	"golang.org/x/net/html"
)

// XPath returns a positional locator for an element. Sibling indices are
// emitted only when several siblings share the tag; html, head and body are
// never indexed. Crossing into a shadow tree adds a "shadow-root" step after
// the host.
func XPath(n *html.Node) string {
	var steps []string
	for cur := n; cur != nil; cur = cur.Parent {
		if cur.Type != html.ElementNode {
			continue
		}
		if IsShadowRoot(cur) {
			steps = append(steps, "shadow-root")
			continue
		}
		steps = append(steps, step(cur))
	}
	if len(steps) == 0 {
		return ""
	}
	for i, j := 0, len(steps)-1; i < j; i, j = i+1, j-1 {
		steps[i], steps[j] = steps[j], steps[i]
	}
	return "/" + strings.Join(steps, "/")
}

func step(n *html.Node) string {
	name := Tag(n)
	switch name {
	case "html", "head", "body":
		return name
	}
	if n.Parent == nil {
		return name
	}
	idx, total := 0, 0
	for sib := n.Parent.FirstChild; sib != nil; sib = sib.NextSibling {
		if sib.Type != html.ElementNode || Tag(sib) != name {
			continue
		}
		// A declarative shadow root is not a sibling in the composed tree.
		if IsShadowRoot(sib) {
			continue
		}
		total++
		if sib == n {
			idx = total
		}
	}
	if total > 1 {
		return fmt.Sprintf("%s[%d]", name, idx)
	}
	return name
}
