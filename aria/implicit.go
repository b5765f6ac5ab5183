package aria

import (
	"strconv"
	"strings"

	"github.com/hazyhaar/a11ywatch/dom"
	"golang.org/x/net/html"
)

// Resolve returns the role of an element. The explicit role attribute is
// split on whitespace and the first known token wins (later tokens are
// fallbacks). Without a known explicit token the implicit role is used. The
// second result is false when neither yields a known role.
func Resolve(n *html.Node) (Role, bool) {
	if r, ok := Explicit(n); ok {
		return r, true
	}
	return Implicit(n)
}

// Explicit returns the first known token of the role attribute.
func Explicit(n *html.Node) (Role, bool) {
	for _, tok := range dom.AttrTokens(n, "role") {
		if r, ok := Lookup(tok); ok {
			return r, true
		}
	}
	return "", false
}

var simpleImplicit = map[string]Role{
	"address":    "group",
	"article":    "article",
	"b":          "generic",
	"bdi":        "generic",
	"bdo":        "generic",
	"blockquote": "blockquote",
	"body":       "generic",
	"button":     "button",
	"caption":    "caption",
	"code":       "code",
	"data":       "generic",
	"datalist":   "listbox",
	"dd":         "definition",
	"del":        "deletion",
	"details":    "group",
	"dfn":        "term",
	"dialog":     "dialog",
	"div":        "generic",
	"dt":         "term",
	"em":         "emphasis",
	"fieldset":   "group",
	"figure":     "figure",
	"form":       "form",
	"h1":         "heading",
	"h2":         "heading",
	"h3":         "heading",
	"h4":         "heading",
	"h5":         "heading",
	"h6":         "heading",
	"hgroup":     "group",
	"hr":         "separator",
	"html":       "document",
	"i":          "generic",
	"ins":        "insertion",
	"li":         "listitem",
	"main":       "main",
	"mark":       "mark",
	"math":       "math",
	"menu":       "list",
	"meter":      "meter",
	"nav":        "navigation",
	"ol":         "list",
	"optgroup":   "group",
	"option":     "option",
	"output":     "status",
	"p":          "paragraph",
	"pre":        "generic",
	"progress":   "progressbar",
	"q":          "generic",
	"s":          "deletion",
	"samp":       "generic",
	"search":     "search",
	"small":      "generic",
	"span":       "generic",
	"strong":     "strong",
	"sub":        "subscript",
	"sup":        "superscript",
	"svg":        "graphics-document",
	"table":      "table",
	"tbody":      "rowgroup",
	"textarea":   "textbox",
	"tfoot":      "rowgroup",
	"thead":      "rowgroup",
	"time":       "time",
	"tr":         "row",
	"u":          "generic",
	"ul":         "list",
}

// Implicit returns the role an element has without a role attribute.
func Implicit(n *html.Node) (Role, bool) {
	tag := dom.Tag(n)
	switch tag {
	case "":
		return "", false
	case "a":
		if dom.HasAttr(n, "href") {
			return "link", true
		}
		return "generic", true
	case "area":
		if dom.HasAttr(n, "href") {
			return "link", true
		}
		return "", false
	case "header":
		if inScopedSection(n) {
			return "generic", true
		}
		return "banner", true
	case "footer":
		if inScopedSection(n) {
			return "generic", true
		}
		return "contentinfo", true
	case "aside":
		if inSectioningContent(n) && !hasAuthorName(n) {
			return "generic", true
		}
		return "complementary", true
	case "section":
		if hasAuthorName(n) {
			return "region", true
		}
		return "generic", true
	case "img":
		if v, ok := dom.LookupAttr(n, "alt"); ok && v == "" {
			return "presentation", true
		}
		return "img", true
	case "input":
		return inputRole(n)
	case "select":
		if dom.HasAttr(n, "multiple") {
			return "listbox", true
		}
		if size, err := strconv.Atoi(strings.TrimSpace(dom.Attr(n, "size"))); err == nil && size > 1 {
			return "listbox", true
		}
		return "combobox", true
	case "summary":
		if p := dom.ParentElement(n); p != nil && dom.Tag(p) == "details" {
			return "button", true
		}
		return "", false
	case "td":
		if inGrid(n) {
			return "gridcell", true
		}
		return "cell", true
	case "th":
		return headerCellRole(n), true
	}
	if r, ok := simpleImplicit[tag]; ok {
		return r, true
	}
	return "", false
}

// hasAuthorName reports an author-supplied name source.
func hasAuthorName(n *html.Node) bool {
	return strings.TrimSpace(dom.Attr(n, "aria-label")) != "" ||
		strings.TrimSpace(dom.Attr(n, "aria-labelledby")) != "" ||
		strings.TrimSpace(dom.Attr(n, "title")) != ""
}

// inScopedSection reports an ancestor that scopes header/footer away from
// the page level.
func inScopedSection(n *html.Node) bool {
	return dom.Closest(n, func(p *html.Node) bool {
		switch dom.Tag(p) {
		case "article", "aside", "main", "nav", "section":
			return true
		}
		switch r, _ := Explicit(p); r {
		case "article", "complementary", "main", "navigation", "region":
			return true
		}
		return false
	}) != nil
}

// inSectioningContent reports an enclosing sectioning content element.
func inSectioningContent(n *html.Node) bool {
	return dom.Closest(n, func(p *html.Node) bool {
		switch dom.Tag(p) {
		case "article", "aside", "nav", "section":
			return true
		}
		switch r, _ := Explicit(p); r {
		case "article", "complementary", "navigation", "region":
			return true
		}
		return false
	}) != nil
}

func inputRole(n *html.Node) (Role, bool) {
	typ := strings.ToLower(strings.TrimSpace(dom.Attr(n, "type")))
	hasList := dom.HasAttr(n, "list")
	switch typ {
	case "checkbox":
		return "checkbox", true
	case "radio":
		return "radio", true
	case "range":
		return "slider", true
	case "number":
		return "spinbutton", true
	case "button", "submit", "reset", "image":
		return "button", true
	case "search":
		if hasList {
			return "combobox", true
		}
		return "searchbox", true
	case "password":
		return "textbox", true
	case "hidden", "color", "date", "datetime-local", "file", "month", "time", "week":
		// No ARIA role; see NativeFormControl.
		return "", false
	default:
		// text, email, tel, url and unknown types.
		if hasList {
			return "combobox", true
		}
		return "textbox", true
	}
}

// NativeFormControl reports a non-hidden input, select or textarea. Some
// input types (date, time, color, file, ...) map to no ARIA role but are
// still user-operable controls.
func NativeFormControl(n *html.Node) bool {
	switch dom.Tag(n) {
	case "select", "textarea":
		return true
	case "input":
		return !strings.EqualFold(strings.TrimSpace(dom.Attr(n, "type")), "hidden")
	}
	return false
}

func enclosingTable(n *html.Node) *html.Node {
	return dom.Closest(n, func(p *html.Node) bool { return dom.Tag(p) == "table" })
}

func inGrid(cell *html.Node) bool {
	tbl := enclosingTable(cell)
	if tbl == nil {
		return false
	}
	r, _ := Explicit(tbl)
	return r == "grid" || r == "treegrid"
}

func headerCellRole(th *html.Node) Role {
	switch strings.ToLower(strings.TrimSpace(dom.Attr(th, "scope"))) {
	case "row", "rowgroup":
		return "rowheader"
	case "col", "colgroup":
		return "columnheader"
	}
	row := dom.ParentElement(th)
	if g := dom.ParentElement(row); dom.Tag(g) == "thead" {
		return "columnheader"
	}
	for _, sib := range dom.ChildElements(row) {
		if dom.Tag(sib) == "td" {
			return "rowheader"
		}
	}
	return "columnheader"
}
