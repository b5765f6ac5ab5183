package rules

import (
	"strings"

	"github.com/hazyhaar/a11ywatch/accname"
	"github.com/hazyhaar/a11ywatch/aria"
	"github.com/hazyhaar/a11ywatch/dom"
	"github.com/hazyhaar/a11ywatch/rule"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// nameableRoles are the concrete roles that can carry an accessible name.
var nameableRoles = func() []aria.Role {
	var out []aria.Role
	for _, r := range aria.Roles() {
		if !aria.IsAbstract(r) && aria.CanBeNamed(r) {
			out = append(out, r)
		}
	}
	return out
}()

// controlRoles are the widget roles that must be named.
var controlRoles = []aria.Role{
	"button", "checkbox", "combobox", "listbox", "menuitem", "menuitemcheckbox",
	"menuitemradio", "option", "radio", "searchbox", "slider", "spinbutton",
	"switch", "tab", "textbox", "treeitem",
}

func hasRole(r aria.Role, set []aria.Role) bool {
	for _, s := range set {
		if s == r {
			return true
		}
	}
	return false
}

// AccessibleName reports the accessible name of every element whose role
// can be named.
var AccessibleName = &rule.Rule{
	Name:           string(accessibleNameRule),
	DefaultOptions: enabled,
	Roles:          nameableRoles,
	Evaluate:       evalAccessibleName,
}

func evalAccessibleName(n *html.Node, _ rule.Options, ctx *rule.Context) rule.Findings {
	role, ok := ctx.Role(n)
	if !ok || aria.IsAbstract(role) || !aria.CanBeNamed(role) {
		return rule.None
	}
	name := ctx.Name(n)
	if name == "" {
		return rule.None
	}
	return rule.Findings{accessibleNameRule.finding(rule.TypeName, name, "")}
}

// Description reports accessible descriptions.
var Description = &rule.Rule{
	Name:           string(descriptionRule),
	DefaultOptions: enabled,
	Selectors:      []dom.Selector{dom.MustCompile("[aria-describedby], [aria-description]")},
	Evaluate:       evalDescription,
}

func evalDescription(n *html.Node, _ rule.Options, ctx *rule.Context) rule.Findings {
	d := ctx.Description(n)
	if d == "" {
		return rule.None
	}
	return rule.Findings{descriptionRule.finding(rule.TypeDescription, d, "")}
}

// LinkName flags links without an accessible name.
var LinkName = &rule.Rule{
	Name:           string(linkNameRule),
	DefaultOptions: enabled,
	TagNames:       []string{"a", "area"},
	Roles:          []aria.Role{"link"},
	Evaluate:       evalLinkName,
}

func evalLinkName(n *html.Node, _ rule.Options, ctx *rule.Context) rule.Findings {
	if role, ok := ctx.Role(n); !ok || role != "link" {
		return rule.None
	}
	if accname.IsHiddenInTree(n) || ctx.Name(n) != "" {
		return rule.None
	}
	return rule.Findings{linkNameRule.fail(MsgNoName, nil)}
}

// ImgName flags images without alternative text.
var ImgName = &rule.Rule{
	Name:           string(imgNameRule),
	DefaultOptions: enabled,
	TagNames:       []string{"img"},
	Roles:          []aria.Role{"img"},
	Evaluate:       evalImgName,
}

func evalImgName(n *html.Node, _ rule.Options, ctx *rule.Context) rule.Findings {
	if accname.IsHiddenInTree(n) {
		return rule.None
	}
	role, ok := ctx.Role(n)
	if n.DataAtom == atom.Img && !dom.HasAttr(n, "alt") {
		if ok && (role == "presentation" || role == "none") {
			return rule.None
		}
		if ctx.Name(n) != "" {
			return rule.None
		}
		return rule.Findings{imgNameRule.fail(MsgNoAlt, nil)}
	}
	// An img with whitespace-only alt still resolves to the img role.
	if !ok || role != "img" || ctx.Name(n) != "" {
		return rule.None
	}
	return rule.Findings{imgNameRule.fail(MsgNoName, nil)}
}

// ControlName flags form controls and widgets without an accessible name.
var ControlName = &rule.Rule{
	Name:           string(controlNameRule),
	DefaultOptions: enabled,
	TagNames:       []string{"button", "input", "select", "textarea"},
	Roles:          controlRoles,
	Evaluate:       evalControlName,
}

func evalControlName(n *html.Node, _ rule.Options, ctx *rule.Context) rule.Findings {
	role, ok := ctx.Role(n)
	if ok && !hasRole(role, controlRoles) {
		return rule.None
	}
	if !ok && !aria.NativeFormControl(n) {
		return rule.None
	}
	if accname.IsHiddenInTree(n) || ctx.Name(n) != "" {
		return rule.None
	}
	return rule.Findings{controlNameRule.fail(MsgNoName, nil)}
}

// FrameName flags frames without an accessible name.
var FrameName = &rule.Rule{
	Name:           string(frameNameRule),
	DefaultOptions: enabled,
	TagNames:       []string{"iframe", "frame"},
	Evaluate:       evalFrameName,
}

func evalFrameName(n *html.Node, _ rule.Options, ctx *rule.Context) rule.Findings {
	if role, ok := aria.Explicit(n); ok && (role == "presentation" || role == "none") {
		return rule.None
	}
	if accname.IsHiddenInTree(n) || ctx.Name(n) != "" {
		return rule.None
	}
	return rule.Findings{frameNameRule.fail(MsgNoName, nil)}
}

// Label flags labels that do not label any control. Hidden inputs are not
// labelable, even when the reference resolves.
var Label = &rule.Rule{
	Name:           string(labelRule),
	DefaultOptions: enabled,
	TagNames:       []string{"label"},
	Evaluate:       evalLabel,
}

func evalLabel(n *html.Node, _ rule.Options, _ *rule.Context) rule.Findings {
	if v, ok := dom.LookupAttr(n, "for"); ok {
		target := dom.FindByID(strings.TrimSpace(v), dom.TreeRoot(n), nil)
		if labelable(target) {
			return rule.None
		}
		return rule.Findings{labelRule.fail(MsgLabelNotAssociated, params("for", v))}
	}
	found := false
	dom.Walk(n, func(c *html.Node) bool {
		if labelable(c) {
			found = true
			return false
		}
		return true
	})
	if found {
		return rule.None
	}
	return rule.Findings{labelRule.fail(MsgLabelNotAssociated, nil)}
}

func labelable(n *html.Node) bool {
	switch dom.Tag(n) {
	case "button", "meter", "output", "progress", "select", "textarea":
		return true
	case "input":
		return !strings.EqualFold(strings.TrimSpace(dom.Attr(n, "type")), "hidden")
	}
	return false
}

// RadioName flags radio buttons outside any named group.
var RadioName = &rule.Rule{
	Name:           string(radioNameRule),
	DefaultOptions: enabled,
	TagNames:       []string{"input"},
	Evaluate:       evalRadioName,
}

func evalRadioName(n *html.Node, _ rule.Options, _ *rule.Context) rule.Findings {
	if !strings.EqualFold(strings.TrimSpace(dom.Attr(n, "type")), "radio") {
		return rule.None
	}
	if strings.TrimSpace(dom.Attr(n, "name")) != "" {
		return rule.None
	}
	return rule.Findings{radioNameRule.fail(MsgNoNameAttribute, nil)}
}
