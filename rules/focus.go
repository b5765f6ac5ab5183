package rules

import (
	"strconv"
	"strings"

	"github.com/hazyhaar/a11ywatch/accname"
	"github.com/hazyhaar/a11ywatch/aria"
	"github.com/hazyhaar/a11ywatch/dom"
	"github.com/hazyhaar/a11ywatch/rule"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// focusRoles are the widget roles a keyboard user must be able to reach.
// Items managed by a composite container (option, tab, treeitem, menu
// items) take focus through their container and are not listed.
var focusRoles = []aria.Role{
	"button", "checkbox", "combobox", "link", "listbox", "radio", "searchbox",
	"slider", "spinbutton", "switch", "textbox",
}

// interactiveRoles may not contain one another.
var interactiveRoles = []aria.Role{
	"button", "checkbox", "combobox", "link", "listbox", "menuitem",
	"menuitemcheckbox", "menuitemradio", "option", "radio", "searchbox",
	"slider", "spinbutton", "switch", "tab", "textbox", "treeitem",
}

// containerRoles are interactive roles whose content must not be
// interactive.
var containerRoles = []aria.Role{
	"button", "checkbox", "link", "menuitem", "menuitemcheckbox",
	"menuitemradio", "option", "radio", "switch", "tab",
}

// tabIndex returns the parsed tabindex and whether it is valid.
func tabIndex(n *html.Node) (int, bool) {
	v, ok := dom.LookupAttr(n, "tabindex")
	if !ok {
		return 0, false
	}
	i, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		return 0, false
	}
	return i, true
}

// nativelyFocusable reports elements in the sequential focus order without
// a tabindex.
func nativelyFocusable(n *html.Node) bool {
	switch n.DataAtom {
	case atom.A, atom.Area:
		return dom.HasAttr(n, "href")
	case atom.Button, atom.Select, atom.Textarea, atom.Iframe:
		return true
	case atom.Input:
		return !strings.EqualFold(strings.TrimSpace(dom.Attr(n, "type")), "hidden")
	case atom.Audio, atom.Video:
		return dom.HasAttr(n, "controls")
	case atom.Summary:
		p := dom.ParentElement(n)
		return p != nil && p.DataAtom == atom.Details
	}
	if v, ok := dom.LookupAttr(n, "contenteditable"); ok {
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "", "true", "plaintext-only":
			return true
		}
	}
	return false
}

// focusable reports whether n is in the sequential focus order. A negative
// tabindex removes an element from it.
func focusable(n *html.Node) bool {
	if i, ok := tabIndex(n); ok {
		return i >= 0
	}
	return nativelyFocusable(n)
}

// disabled reports aria-disabled="true" or a native disabled control,
// including controls inside a disabled fieldset.
func disabled(n *html.Node) bool {
	if strings.EqualFold(strings.TrimSpace(dom.Attr(n, "aria-disabled")), "true") {
		return true
	}
	if !formControl(n) {
		return false
	}
	if dom.HasAttr(n, "disabled") {
		return true
	}
	return dom.Closest(n, func(p *html.Node) bool {
		return p.DataAtom == atom.Fieldset && dom.HasAttr(p, "disabled")
	}) != nil
}

func formControl(n *html.Node) bool {
	switch n.DataAtom {
	case atom.Button, atom.Input, atom.Select, atom.Textarea, atom.Optgroup, atom.Option, atom.Fieldset:
		return true
	}
	return false
}

// ControlFocus flags interactive widgets that cannot be reached with the
// keyboard. Disabled controls are exempt.
var ControlFocus = &rule.Rule{
	Name:           string(controlFocusRule),
	DefaultOptions: enabled,
	Roles:          focusRoles,
	Evaluate:       evalControlFocus,
}

func evalControlFocus(n *html.Node, _ rule.Options, ctx *rule.Context) rule.Findings {
	role, ok := ctx.Role(n)
	if !ok || !hasRole(role, focusRoles) {
		return rule.None
	}
	if disabled(n) || accname.IsHiddenInTree(n) || focusable(n) {
		return rule.None
	}
	return rule.Findings{controlFocusRule.fail(MsgNotFocusable, nil)}
}

// HiddenFocus flags focusable elements inside an aria-hidden subtree.
var HiddenFocus = &rule.Rule{
	Name:           string(hiddenFocusRule),
	DefaultOptions: enabled,
	Selectors: []dom.Selector{dom.MustCompile(
		"a[href], area[href], button, input, select, textarea, iframe, summary, audio[controls], video[controls], [tabindex], [contenteditable]",
	)},
	Evaluate: evalHiddenFocus,
}

func evalHiddenFocus(n *html.Node, _ rule.Options, _ *rule.Context) rule.Findings {
	if !focusable(n) || disabled(n) {
		return rule.None
	}
	for cur := n; cur != nil; cur = dom.ParentElement(cur) {
		if strings.EqualFold(strings.TrimSpace(dom.Attr(cur, "aria-hidden")), "true") {
			return rule.Findings{hiddenFocusRule.fail(MsgHiddenFocusable, nil)}
		}
	}
	return rule.None
}

// NestedInteractive flags interactive elements placed inside another
// interactive element.
var NestedInteractive = &rule.Rule{
	Name:           string(nestedInteractiveRule),
	DefaultOptions: enabled,
	Roles:          interactiveRoles,
	Evaluate:       evalNestedInteractive,
}

func evalNestedInteractive(n *html.Node, _ rule.Options, ctx *rule.Context) rule.Findings {
	if role, ok := ctx.Role(n); !ok || !hasRole(role, interactiveRoles) {
		return rule.None
	}
	var outer aria.Role
	anc := dom.Closest(n, func(p *html.Node) bool {
		r, ok := ctx.Role(p)
		if ok && hasRole(r, containerRoles) {
			outer = r
			return true
		}
		return false
	})
	if anc == nil {
		return rule.None
	}
	return rule.Findings{nestedInteractiveRule.fail(MsgNestedInteractive, params("role", string(outer)))}
}
