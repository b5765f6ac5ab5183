package dom

import "golang.org/x/net/html"

// FindByID returns the first element whose id equals id, searching the
// primary tree first and then each supplied shadow root in order. Shadow
// roots that were not supplied are never entered.
func FindByID(id string, primary *html.Node, shadowRoots []*html.Node) *html.Node {
	if id == "" {
		return nil
	}
	if n := findID(primary, id); n != nil {
		return n
	}
	for _, sr := range shadowRoots {
		if n := findID(sr, id); n != nil {
			return n
		}
	}
	return nil
}

func findID(root *html.Node, id string) *html.Node {
	var found *html.Node
	Walk(root, func(n *html.Node) bool {
		if Attr(n, "id") == id {
			found = n
			return false
		}
		return true
	})
	return found
}

// FindAllMatching returns the matches of sel inside root in document order,
// followed by the matches inside each shadow root in the order supplied.
func FindAllMatching(sel Selector, root *html.Node, shadowRoots []*html.Node) []*html.Node {
	out := QuerySelectorAll(root, sel)
	for _, sr := range shadowRoots {
		out = append(out, QuerySelectorAll(sr, sel)...)
	}
	return out
}

// ShadowRoots discovers every open shadow root reachable from root, nested
// ones included, in document order. Frame documents are not entered.
func ShadowRoots(root *html.Node) []*html.Node {
	var out []*html.Node
	Walk(root, func(n *html.Node) bool {
		if sr := ShadowRoot(n); sr != nil {
			out = append(out, sr)
			out = append(out, ShadowRoots(sr)...)
		}
		return true
	})
	return out
}
