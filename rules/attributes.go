package rules

import (
	"strings"

	"github.com/hazyhaar/a11ywatch/aria"
	"github.com/hazyhaar/a11ywatch/dom"
	"github.com/hazyhaar/a11ywatch/rule"
	"golang.org/x/net/html"
)

// AriaAttrs validates every aria-* attribute present on an element: unknown
// names first, then values, then role compatibility. An invalid value is not
// also checked against the role.
var AriaAttrs = &rule.Rule{
	Name:           string(ariaAttrsRule),
	DefaultOptions: enabled,
	Evaluate:       evalAriaAttrs,
}

func evalAriaAttrs(n *html.Node, _ rule.Options, ctx *rule.Context) rule.Findings {
	var out rule.Findings
	for _, a := range n.Attr {
		name := strings.ToLower(a.Key)
		if a.Namespace != "" || !strings.HasPrefix(name, "aria-") {
			continue
		}
		switch {
		case !aria.Known(name):
			out = append(out, ariaAttrsRule.fail(MsgUnknownAttribute, params("attribute", name)))
		case !aria.Validate(name, a.Val):
			out = append(out, ariaAttrsRule.fail(MsgInvalidValue, params("attribute", name, "value", a.Val)))
		default:
			role, ok := ctx.Role(n)
			allowed := aria.IsAllowedForRole(name, role, ok)
			if !ok && aria.NativeFormControl(n) {
				allowed = aria.IsAllowedOnNativeControl(name)
			}
			if !allowed {
				out = append(out, ariaAttrsRule.fail(MsgNotAllowedForRole, params("attribute", name, "role", string(role))))
			}
		}
	}
	if len(out) == 0 {
		return rule.None
	}
	return out
}

// referenceAttrs are the attributes checked by IDReference, in report order.
var referenceAttrs = append(aria.ReferenceAttributes(), "for", "headers", "list")

// IDReference flags ID references that resolve to no element.
var IDReference = &rule.Rule{
	Name:           string(idReferenceRule),
	DefaultOptions: enabled,
	Selectors:      []dom.Selector{referenceSelector()},
	Evaluate:       evalIDReference,
}

func referenceSelector() dom.Selector {
	parts := make([]string, 0, len(referenceAttrs))
	for _, a := range aria.ReferenceAttributes() {
		parts = append(parts, "["+a+"]")
	}
	parts = append(parts, "label[for]", "output[for]", "td[headers]", "th[headers]", "input[list]")
	return dom.MustCompile(strings.Join(parts, ", "))
}

func evalIDReference(n *html.Node, _ rule.Options, ctx *rule.Context) rule.Findings {
	var out rule.Findings
	for _, attr := range referenceAttrs {
		v, ok := dom.LookupAttr(n, attr)
		if !ok || !referenceApplies(n, attr) {
			continue
		}
		for _, id := range strings.Fields(v) {
			if resolveID(n, id, ctx) == nil {
				out = append(out, idReferenceRule.fail(MsgMissingReference, params("attribute", attr, "id", id)))
			}
		}
	}
	if len(out) == 0 {
		return rule.None
	}
	return out
}

func referenceApplies(n *html.Node, attr string) bool {
	switch attr {
	case "for":
		t := dom.Tag(n)
		return t == "label" || t == "output"
	case "headers":
		t := dom.Tag(n)
		return t == "td" || t == "th"
	case "list":
		return dom.Tag(n) == "input"
	}
	return true
}

// resolveID looks in the element's own tree, then across the document and
// the shadow roots of the pass.
func resolveID(n *html.Node, id string, ctx *rule.Context) *html.Node {
	if el := dom.FindByID(id, dom.TreeRoot(n), nil); el != nil {
		return el
	}
	return ctx.FindByID(id)
}

// DuplicateID flags ids used more than once in the same tree.
var DuplicateID = &rule.Rule{
	Name:           string(duplicateIDRule),
	DefaultOptions: enabled,
	Selectors:      []dom.Selector{dom.MustCompile("[id]")},
	Evaluate:       evalDuplicateID,
}

func evalDuplicateID(n *html.Node, _ rule.Options, ctx *rule.Context) rule.Findings {
	id := dom.Attr(n, "id")
	if id == "" || ctx.IDCount(n, id) < 2 {
		return rule.None
	}
	return rule.Findings{duplicateIDRule.fail(MsgDuplicateID, params("id", id))}
}
