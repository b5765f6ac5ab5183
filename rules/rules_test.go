package rules

import (
	"strings"
	"testing"

	"github.com/hazyhaar/a11ywatch/dom"
	"github.com/hazyhaar/a11ywatch/rule"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/html"
)

type fixture struct {
	doc *html.Node
	ctx *rule.Context
}

func load(t *testing.T, src string, opts ...rule.ContextOption) fixture {
	t.Helper()
	doc, err := html.Parse(strings.NewReader(src))
	require.NoError(t, err)
	opts = append([]rule.ContextOption{rule.WithShadowRoots(dom.ShadowRoots(doc))}, opts...)
	return fixture{doc: doc, ctx: rule.NewContext(doc, opts...)}
}

// run evaluates r with its default options, forced on, against #id.
func (f fixture) run(t *testing.T, r *rule.Rule, id string) rule.Findings {
	t.Helper()
	opts := r.DefaultOptions
	opts.Enabled = true
	return f.runWith(t, r, id, opts)
}

func (f fixture) runWith(t *testing.T, r *rule.Rule, id string, opts rule.Options) rule.Findings {
	t.Helper()
	n := f.ctx.FindByID(id)
	require.NotNil(t, n, "no element #%s", id)
	return r.Run(n, opts, f.ctx)
}

func errs(name string, messages ...string) rule.Findings {
	out := rule.Findings{}
	for _, m := range messages {
		out = append(out, rule.Result{Type: rule.TypeError, RuleName: name, Message: m})
	}
	return out
}

func messages(f rule.Findings) []string {
	var out []string
	for _, r := range f {
		out = append(out, r.Message)
	}
	return out
}

func TestRegistry(t *testing.T) {
	reg := Registry()
	names := reg.Names()
	assert.Len(t, names, 23)
	assert.Equal(t, "tag-name", names[0])
	assert.Equal(t, "frame-name", names[len(names)-1])
	for _, r := range reg.Rules() {
		if r.Name == "tag-name" {
			assert.False(t, r.DefaultOptions.Enabled)
			continue
		}
		assert.True(t, r.DefaultOptions.Enabled, r.Name)
	}
	assert.Same(t, reg, Registry())
}

const kitchenSink = `<!DOCTYPE html><html id="root"><head><title>t</title></head><body>
<div role="button" aria-hidden="yes" aria-bogus="1" id="x" lang="zz-invalid-tag">x</div>
<nav><a href="/" target="_blank"></a></nav><img src="a.png"><table><tr><td>1</td></tr></table>
<label for="missing">l</label><input type="radio"><iframe src="/f"></iframe><h1></h1>
<p id="x" aria-describedby="nope">dup</p></body></html>`

func TestDisabledRulesNeverReport(t *testing.T) {
	f := load(t, kitchenSink)
	elements := dom.QuerySelectorAll(f.doc, dom.MustCompile("*"))
	require.NotEmpty(t, elements)
	for _, r := range All() {
		for _, n := range elements {
			assert.Nil(t, r.Run(n, rule.Options{Enabled: false}, f.ctx), "%s on <%s>", r.Name, dom.Tag(n))
		}
	}
}

func TestEnabledRulesReportOnKitchenSink(t *testing.T) {
	f := load(t, kitchenSink)
	seen := map[string]bool{}
	for _, n := range dom.QuerySelectorAll(f.doc, dom.MustCompile("*")) {
		for _, r := range All() {
			opts := r.DefaultOptions
			opts.Enabled = true
			if r.Applies(n, f.ctx) && len(r.Run(n, opts, f.ctx)) > 0 {
				seen[r.Name] = true
			}
		}
	}
	for _, name := range []string{"tag-name", "role", "landmark", "heading", "page-title", "lang", "link-target",
		"link-name", "img-name", "control-focus", "aria-attrs", "id-reference", "label", "radio-name",
		"table-size", "table-header", "duplicate-id", "frame-name"} {
		assert.True(t, seen[name], name)
	}
}

func TestControlFocus(t *testing.T) {
	f := load(t, `<div role="button" id="plain">Go</div>
<div role="button" id="tab0" tabindex="0">Go</div>
<div role="button" id="dis" aria-disabled="true">Go</div>
<div role="button" id="neg" tabindex="-1">Go</div>
<button id="native">Go</button>
<fieldset disabled><input id="in-fs"></fieldset>
<span role="checkbox" id="hidden-cb" hidden></span>
<a id="anchor" role="link">x</a>
<div role="option" id="opt">o</div>`)

	assert.Equal(t, errs("control-focus", "Not focusable"), f.run(t, ControlFocus, "plain"))
	assert.Nil(t, f.run(t, ControlFocus, "tab0"))
	assert.Nil(t, f.run(t, ControlFocus, "dis"))
	assert.Equal(t, errs("control-focus", "Not focusable"), f.run(t, ControlFocus, "neg"))
	assert.Nil(t, f.run(t, ControlFocus, "native"))
	assert.Nil(t, f.run(t, ControlFocus, "in-fs"))
	assert.Nil(t, f.run(t, ControlFocus, "hidden-cb"))
	assert.Equal(t, errs("control-focus", "Not focusable"), f.run(t, ControlFocus, "anchor"))
	assert.Nil(t, f.run(t, ControlFocus, "opt"))
}

func TestRole(t *testing.T) {
	f := load(t, `<x-a id="fallback" role="unknown button"></x-a><x-b id="unknown" role="unknown"></x-b>
<div id="abstract" role="widget"></div><div id="empty" role=" "></div>`)

	assert.Equal(t, rule.Findings{{Type: rule.TypeRole, RuleName: "role", Content: "button"}}, f.run(t, Role, "fallback"))
	assert.Equal(t, rule.Findings{{Type: rule.TypeError, RuleName: "role", Message: MsgUnknownRole,
		MessageParams: map[string]string{"role": "unknown"}}}, f.run(t, Role, "unknown"))

	got := f.run(t, Role, "abstract")
	require.Len(t, got, 2)
	assert.Equal(t, "widget", got[0].Content)
	assert.Equal(t, rule.TypeWarning, got[1].Type)
	assert.Equal(t, MsgAbstractRole, got[1].Message)

	assert.Nil(t, f.run(t, Role, "empty"))
}

func TestLandmark(t *testing.T) {
	f := load(t, `<body><nav id="nav"></nav><article><aside id="inner-aside"></aside></article>
<aside id="top-aside" aria-label="Related"></aside><section id="sec"></section>
<section id="region" aria-label="News"></section><form id="form"></form><form id="named-form" title="Login"></form>
<div id="search" role="search"></div><div id="plain"></div></body>`)

	assert.Equal(t, rule.Findings{{Type: rule.TypeLandmark, RuleName: "landmark", Content: "navigation"}}, f.run(t, Landmark, "nav"))
	assert.Nil(t, f.run(t, Landmark, "inner-aside"))
	assert.Equal(t, rule.Findings{{Type: rule.TypeLandmark, RuleName: "landmark", Content: "complementary", ContentLabel: "Related"}}, f.run(t, Landmark, "top-aside"))
	assert.Nil(t, f.run(t, Landmark, "sec"))
	assert.Equal(t, "region", f.run(t, Landmark, "region")[0].Content)
	assert.Nil(t, f.run(t, Landmark, "form"))
	assert.Equal(t, "form", f.run(t, Landmark, "named-form")[0].Content)
	assert.Equal(t, "search", f.run(t, Landmark, "search")[0].Content)
	assert.Nil(t, f.run(t, Landmark, "plain"))
}

func TestHeading(t *testing.T) {
	f := load(t, `<h3 id="h3">Title</h3><div id="aria" role="heading" aria-level="7">Deep</div>
<div id="default" role="heading">Two</div><h2 id="bad" aria-level="x">B</h2><h1 id="empty"></h1>
<h4 id="tab" role="tab">T</h4>`)

	assert.Equal(t, rule.Findings{{Type: rule.TypeHeading, RuleName: "heading", Content: "3", ContentLabel: "Title"}}, f.run(t, Heading, "h3"))
	assert.Equal(t, "7", f.run(t, Heading, "aria")[0].Content)
	assert.Equal(t, "2", f.run(t, Heading, "default")[0].Content)

	bad := f.run(t, Heading, "bad")
	assert.Equal(t, "2", bad[0].Content)
	assert.Equal(t, []string{"", MsgInvalidHeadingLevel}, messages(bad))

	assert.Equal(t, []string{"", MsgNoName}, messages(f.run(t, Heading, "empty")))
	assert.Nil(t, f.run(t, Heading, "tab"))
}

func TestPageTitle(t *testing.T) {
	f := load(t, `<html><head><title>Home</title></head><body id="b"></body></html>`)
	assert.Equal(t, rule.Findings{{Type: rule.TypePageTitle, RuleName: "page-title", Content: "Home"}}, f.run(t, PageTitle, "b"))

	short := rule.Options{Enabled: true, Params: map[string]string{"min_length": "10"}}
	assert.Equal(t, []string{MsgNoTitle}, messages(f.runWith(t, PageTitle, "b", short)))

	f = load(t, `<body id="b"></body>`)
	assert.Equal(t, []string{MsgNoTitle}, messages(f.run(t, PageTitle, "b")))

	f = load(t, `<body id="b"></body>`, rule.WithSrcdoc(true))
	assert.Nil(t, f.run(t, PageTitle, "b"))
}

func TestLang(t *testing.T) {
	f := load(t, `<html id="root"><body><p id="ok" lang="en-GB"></p><p id="bad" lang="not a lang"></p><p id="empty" lang=""></p></body></html>`)
	assert.Equal(t, errs("lang", MsgNoLang), f.run(t, Lang, "root"))
	assert.Equal(t, rule.Findings{{Type: rule.TypeLang, RuleName: "lang", Content: "en-GB"}}, f.run(t, Lang, "ok"))
	assert.Equal(t, []string{MsgInvalidLang}, messages(f.run(t, Lang, "bad")))
	assert.Nil(t, f.run(t, Lang, "empty"))

	f = load(t, `<html id="root"></html>`, rule.WithSrcdoc(true))
	assert.Nil(t, f.run(t, Lang, "root"))

	f = load(t, `<html id="root" lang="fr"></html>`)
	assert.Equal(t, "fr", f.run(t, Lang, "root")[0].Content)
}

func TestLinkTarget(t *testing.T) {
	f := load(t, `<a id="blank" href="/" target="_blank">x</a><a id="self" href="/" target="_self">y</a>`)
	assert.Equal(t, rule.Findings{{Type: rule.TypeLinkTarget, RuleName: "link-target", Content: "_blank"}}, f.run(t, LinkTarget, "blank"))
	assert.Nil(t, f.run(t, LinkTarget, "self"))

	all := rule.Options{Enabled: true, Params: map[string]string{"report": "all"}}
	assert.Equal(t, "_self", f.runWith(t, LinkTarget, "self", all)[0].Content)
}

func TestNames(t *testing.T) {
	f := load(t, `<body>
<button id="btn">Save</button><div id="div">text</div>
<a id="empty-link" href="/"></a><a id="img-link" href="/"><img alt="Home"></a><a id="no-href"></a>
<div aria-hidden="true"><a id="hidden-link" href="/"></a></div>
<img id="no-alt" src="x.png"><img id="empty-alt" alt=""><img id="space-alt" alt="  "><img id="labelled" aria-label="Chart">
<div id="div-img" role="img"></div><svg id="svg-img" role="img"><title>Logo</title></svg>
<input id="unlabelled"><label>Name <input id="wrapped"></label><input id="submit" type="submit"><input id="hidden" type="hidden">
<input id="pw" type="password"><input id="date" type="date"><input id="file" type="file"><input id="color" type="color">
<label>Due <input id="labelled-date" type="date"></label><input id="titled-file" type="file" title="Upload">
<details><summary id="summary">More</summary></details>
<iframe id="untitled" src="/a"></iframe><iframe id="titled" title="Map" src="/b"></iframe><iframe id="pres" role="presentation"></iframe>
<p id="hint">Be brief</p><textarea id="described" aria-describedby="hint" aria-label="Bio"></textarea>
</body>`)

	assert.Equal(t, rule.Findings{{Type: rule.TypeName, RuleName: "accessible-name", Content: "Save"}}, f.run(t, AccessibleName, "btn"))
	assert.Nil(t, f.run(t, AccessibleName, "div"))

	assert.Equal(t, errs("link-name", MsgNoName), f.run(t, LinkName, "empty-link"))
	assert.Nil(t, f.run(t, LinkName, "img-link"))
	assert.Nil(t, f.run(t, LinkName, "no-href"))
	assert.Nil(t, f.run(t, LinkName, "hidden-link"))

	assert.Equal(t, errs("img-name", MsgNoAlt), f.run(t, ImgName, "no-alt"))
	assert.Nil(t, f.run(t, ImgName, "empty-alt"))
	assert.Equal(t, errs("img-name", MsgNoName), f.run(t, ImgName, "space-alt"))
	assert.Nil(t, f.run(t, ImgName, "labelled"))
	assert.Equal(t, errs("img-name", MsgNoName), f.run(t, ImgName, "div-img"))
	assert.Nil(t, f.run(t, ImgName, "svg-img"))

	assert.Equal(t, errs("control-name", MsgNoName), f.run(t, ControlName, "unlabelled"))
	assert.Nil(t, f.run(t, ControlName, "wrapped"))
	assert.Nil(t, f.run(t, ControlName, "submit"))
	assert.Nil(t, f.run(t, ControlName, "hidden"))
	for _, id := range []string{"pw", "date", "file", "color"} {
		assert.Equal(t, errs("control-name", MsgNoName), f.run(t, ControlName, id), id)
	}
	assert.Nil(t, f.run(t, ControlName, "labelled-date"))
	assert.Nil(t, f.run(t, ControlName, "titled-file"))
	assert.Nil(t, f.run(t, ControlName, "summary"))

	assert.Equal(t, errs("frame-name", MsgNoName), f.run(t, FrameName, "untitled"))
	assert.Nil(t, f.run(t, FrameName, "titled"))
	assert.Nil(t, f.run(t, FrameName, "pres"))

	assert.Equal(t, rule.Findings{{Type: rule.TypeDescription, RuleName: "description", Content: "Be brief"}}, f.run(t, Description, "described"))
}

func TestLabel(t *testing.T) {
	f := load(t, `<label id="to-hidden" for="x">Secret</label><input id="x" type="hidden">
<label id="to-text" for="y">Name</label><input id="y">
<label id="to-missing" for="nope">?</label>
<label id="wrapping">Age <select></select></label>
<label id="bare">Nothing</label>
<label id="to-div" for="d">Div</label><div id="d"></div>`)

	assert.Equal(t, rule.Findings{{Type: rule.TypeError, RuleName: "label", Message: MsgLabelNotAssociated,
		MessageParams: map[string]string{"for": "x"}}}, f.run(t, Label, "to-hidden"))
	assert.Nil(t, f.run(t, Label, "to-text"))
	assert.Equal(t, []string{MsgLabelNotAssociated}, messages(f.run(t, Label, "to-missing")))
	assert.Nil(t, f.run(t, Label, "wrapping"))
	assert.Equal(t, errs("label", MsgLabelNotAssociated), f.run(t, Label, "bare"))
	assert.Equal(t, []string{MsgLabelNotAssociated}, messages(f.run(t, Label, "to-div")))
}

func TestRadioName(t *testing.T) {
	f := load(t, `<input id="anon" type="RADIO"><input id="named" type="radio" name="g"><input id="text">`)
	assert.Equal(t, errs("radio-name", MsgNoNameAttribute), f.run(t, RadioName, "anon"))
	assert.Nil(t, f.run(t, RadioName, "named"))
	assert.Nil(t, f.run(t, RadioName, "text"))
}

func TestAriaAttrs(t *testing.T) {
	f := load(t, `<div id="bad-bool" aria-hidden="yes"></div>
<h1 id="level" aria-level="7">x</h1>
<div id="unknown" aria-foo="1"></div>
<button id="checked" aria-checked="true">x</button>
<span id="label-generic" aria-label="x"></span>
<div id="multi" role="checkbox" aria-checked="maybe" aria-pressed="true" aria-describedby="a"></div>
<x-y id="no-role" aria-expanded="true"></x-y>
<input id="pw-req" type="password" aria-required="true">
<input id="date-ro" type="date" aria-readonly="true" aria-invalid="true">
<input id="file-req" type="file" aria-required="true" aria-describedby="x">
<input id="date-checked" type="date" aria-checked="true">
<details><summary id="summary" aria-expanded="true">More</summary></details>`)

	assert.Equal(t, rule.Findings{{Type: rule.TypeError, RuleName: "aria-attrs", Message: MsgInvalidValue,
		MessageParams: map[string]string{"attribute": "aria-hidden", "value": "yes"}}}, f.run(t, AriaAttrs, "bad-bool"))
	assert.Nil(t, f.run(t, AriaAttrs, "level"))
	assert.Equal(t, []string{MsgUnknownAttribute}, messages(f.run(t, AriaAttrs, "unknown")))
	assert.Equal(t, rule.Findings{{Type: rule.TypeError, RuleName: "aria-attrs", Message: MsgNotAllowedForRole,
		MessageParams: map[string]string{"attribute": "aria-checked", "role": "button"}}}, f.run(t, AriaAttrs, "checked"))
	assert.Equal(t, []string{MsgNotAllowedForRole}, messages(f.run(t, AriaAttrs, "label-generic")))
	assert.Equal(t, []string{MsgInvalidValue, MsgNotAllowedForRole}, messages(f.run(t, AriaAttrs, "multi")))
	assert.Equal(t, []string{MsgNotAllowedForRole}, messages(f.run(t, AriaAttrs, "no-role")))

	assert.Nil(t, f.run(t, AriaAttrs, "pw-req"))
	assert.Nil(t, f.run(t, AriaAttrs, "date-ro"))
	assert.Nil(t, f.run(t, AriaAttrs, "file-req"))
	assert.Equal(t, []string{MsgNotAllowedForRole}, messages(f.run(t, AriaAttrs, "date-checked")))
	assert.Nil(t, f.run(t, AriaAttrs, "summary"))
}

func TestIDReference(t *testing.T) {
	f := load(t, `<span id="a">A</span>
<div id="refs" aria-labelledby="a missing" aria-controls="gone"></div>
<label id="lbl" for="nowhere">x</label>
<table><tr><th id="h">H</th><td id="cell" headers="h nope">1</td></tr></table>
<div id="host"><template shadowrootmode="open"><button id="inner" aria-describedby="a">x</button></template></div>
<div id="ok" aria-describedby="a"></div>`)

	got := f.run(t, IDReference, "refs")
	require.Len(t, got, 2)
	assert.Equal(t, map[string]string{"attribute": "aria-controls", "id": "gone"}, got[0].MessageParams)
	assert.Equal(t, map[string]string{"attribute": "aria-labelledby", "id": "missing"}, got[1].MessageParams)

	assert.Equal(t, []string{MsgMissingReference}, messages(f.run(t, IDReference, "lbl")))
	assert.Equal(t, map[string]string{"attribute": "headers", "id": "nope"}, f.run(t, IDReference, "cell")[0].MessageParams)
	assert.Nil(t, f.run(t, IDReference, "inner"))
	assert.Nil(t, f.run(t, IDReference, "ok"))
}

func TestDuplicateID(t *testing.T) {
	f := load(t, `<p id="dup">1</p><p id="dup">2</p><p id="solo">3</p>
<div id="host"><template shadowrootmode="open"><span id="solo">in shadow</span></template></div>`)
	assert.Equal(t, rule.Findings{{Type: rule.TypeError, RuleName: "duplicate-id", Message: MsgDuplicateID,
		MessageParams: map[string]string{"id": "dup"}}}, f.run(t, DuplicateID, "dup"))
	assert.Nil(t, f.run(t, DuplicateID, "solo"), "ids are counted per tree")
}

func TestTables(t *testing.T) {
	f := load(t, `<table id="span"><tr><td rowspan="2">a</td></tr><tr><td>b</td></tr></table>
<table id="headed"><tr><th>h</th></tr><tr><td>1</td></tr></table>
<table id="layout" role="presentation"><tr><td>x</td></tr></table>
<div id="aria" role="table"><div role="row"><span role="cell">1</span><span role="cell" aria-colspan="2">2</span></div><div role="row"><span role="cell">3</span></div></div>
<div id="counted" role="grid" aria-rowcount="100" aria-colcount="4"><div role="row"><div role="gridcell">x</div></div></div>`)

	assert.Equal(t, rule.Findings{{Type: rule.TypeTableSize, RuleName: "table-size", Content: "2×2"}}, f.run(t, TableSize, "span"))
	assert.Equal(t, "2×3", f.run(t, TableSize, "aria")[0].Content)
	assert.Equal(t, "100×4", f.run(t, TableSize, "counted")[0].Content)
	assert.Nil(t, f.run(t, TableSize, "layout"))

	assert.Equal(t, rule.Findings{{Type: rule.TypeWarning, RuleName: "table-header", Message: MsgNoHeaderCells}}, f.run(t, TableHeader, "span"))
	assert.Nil(t, f.run(t, TableHeader, "headed"))
	assert.Nil(t, f.run(t, TableHeader, "layout"))

	require.Len(t, f.ctx.Tables(), 2, "each native table analysed once")
}

func TestNestedInteractive(t *testing.T) {
	f := load(t, `<a href="/"><button id="in-link">x</button></a><button id="alone">y</button>
<div role="listbox"><div id="opt" role="option">o</div></div>`)
	assert.Equal(t, rule.Findings{{Type: rule.TypeError, RuleName: "nested-interactive", Message: MsgNestedInteractive,
		MessageParams: map[string]string{"role": "link"}}}, f.run(t, NestedInteractive, "in-link"))
	assert.Nil(t, f.run(t, NestedInteractive, "alone"))
	assert.Nil(t, f.run(t, NestedInteractive, "opt"))
}

func TestHiddenFocus(t *testing.T) {
	f := load(t, `<div aria-hidden="true"><a id="link" href="/">x</a><button id="neg" tabindex="-1">y</button><button id="dis" disabled>z</button></div>
<a id="visible" href="/">v</a>`)
	assert.Equal(t, errs("hidden-focus", MsgHiddenFocusable), f.run(t, HiddenFocus, "link"))
	assert.Nil(t, f.run(t, HiddenFocus, "neg"))
	assert.Nil(t, f.run(t, HiddenFocus, "dis"))
	assert.Nil(t, f.run(t, HiddenFocus, "visible"))
}

func TestTagName(t *testing.T) {
	f := load(t, `<section id="s"></section>`)
	assert.Nil(t, f.runWith(t, TagName, "s", TagName.DefaultOptions))
	assert.Equal(t, rule.Findings{{Type: rule.TypeTagName, RuleName: "tag-name", Content: "section"}}, f.run(t, TagName, "s"))
}
