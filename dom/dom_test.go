package dom

import (
	"strings"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/html"
)

func parse(t *testing.T, src string) *html.Node {
	t.Helper()
	doc, err := html.Parse(strings.NewReader(src))
	require.NoError(t, err)
	return doc
}

func ids(nodes []*html.Node) []string {
	out := make([]string, 0, len(nodes))
	for _, n := range nodes {
		out = append(out, Attr(n, "id"))
	}
	return out
}

const shadowPage = `<!DOCTYPE html><html><body>
<div id="host"><template shadowrootmode="open"><span id="inner" class="x">in</span>
<b id="nested-host"><template shadowrootmode="open"><i id="deep" class="x">d</i></template></b>
</template><p id="light" class="x">light</p></div>
<section id="closed"><template shadowrootmode="closed"><em id="hidden">h</em></template></section>
<template><span id="inert" class="x"></span></template>
</body></html>`

func TestShadowRoot(t *testing.T) {
	doc := parse(t, shadowPage)
	host := FindByID("host", doc, nil)
	require.NotNil(t, host)

	sr := ShadowRoot(host)
	require.NotNil(t, sr)
	assert.True(t, IsShadowRoot(sr))
	assert.Equal(t, host, Host(sr))

	closed := FindByID("closed", doc, nil)
	require.NotNil(t, closed)
	assert.Nil(t, ShadowRoot(closed), "closed roots are invisible")
}

func TestParentElementStopsAtShadowBoundary(t *testing.T) {
	doc := parse(t, shadowPage)
	inner := FindByID("inner", doc, ShadowRoots(doc))
	require.NotNil(t, inner)
	assert.Nil(t, ParentElement(inner))
	assert.True(t, IsShadowRoot(TreeRoot(inner)))

	light := FindByID("light", doc, nil)
	assert.Equal(t, "div", Tag(ParentElement(light)))
	assert.Equal(t, doc, TreeRoot(light))
}

func TestShadowRootsDiscovery(t *testing.T) {
	doc := parse(t, shadowPage)
	roots := ShadowRoots(doc)
	require.Len(t, roots, 2)
	assert.Equal(t, "host", Attr(Host(roots[0]), "id"))
	assert.Equal(t, "nested-host", Attr(Host(roots[1]), "id"))
}

func TestFindByIDSearchOrder(t *testing.T) {
	doc := parse(t, shadowPage)
	roots := ShadowRoots(doc)

	assert.Nil(t, FindByID("inner", doc, nil), "shadow content needs its root supplied")
	assert.NotNil(t, FindByID("inner", doc, roots[:1]))
	assert.Nil(t, FindByID("deep", doc, roots[:1]), "nested root was not supplied")
	assert.NotNil(t, FindByID("deep", doc, roots))
	assert.Nil(t, FindByID("hidden", doc, roots))
	assert.Nil(t, FindByID("inert", doc, roots))
	assert.Nil(t, FindByID("", doc, roots))
}

func TestFindByIDPrefersPrimary(t *testing.T) {
	doc := parse(t, `<div id="h"><template shadowrootmode="open"><p id="dup">shadow</p></template></div><p id="dup">light</p>`)
	got := FindByID("dup", doc, ShadowRoots(doc))
	require.NotNil(t, got)
	assert.Equal(t, "light", Text(got))
}

func TestFindAllMatchingOrder(t *testing.T) {
	doc := parse(t, shadowPage)
	sel := MustCompile(".x")
	got := FindAllMatching(sel, doc, ShadowRoots(doc))
	assert.Equal(t, []string{"light", "inner", "deep"}, ids(got))
}

func TestSelectorMatching(t *testing.T) {
	doc := parse(t, `<body>
<ul id="list"><li id="a" class="item first"><a id="link" href="/x" target="_blank">x</a></li><li id="b" class="item"></li></ul>
<div id="wrap"><p id="p1" lang="en-GB" data-k="alpha beta"></p><section><p id="p2"></p></section></div>
<input id="r1" type="radio" name="g"><input id="t1" type="text">
<h1 id="h1"></h1><h2 id="h2"></h2>
</body>`)

	cases := []struct {
		sel  string
		want []string
	}{
		{"li", []string{"a", "b"}},
		{"li.item.first", []string{"a"}},
		{"#wrap > p", []string{"p1"}},
		{"#wrap p", []string{"p1", "p2"}},
		{"div>section>p", []string{"p2"}},
		{"ul li a[href][target]", []string{"link"}},
		{"input[type=radio]", []string{"r1"}},
		{`input[type="text"]`, []string{"t1"}},
		{"[data-k~=beta]", []string{"p1"}},
		{"[lang^=en]", []string{"p1"}},
		{"[lang$=GB]", []string{"p1"}},
		{"[href*=x]", []string{"link"}},
		{"h1, h2", []string{"h1", "h2"}},
		{"*[name]", []string{"r1"}},
		{"[missing]", nil},
	}
	for _, tc := range cases {
		t.Run(tc.sel, func(t *testing.T) {
			sel, err := Compile(tc.sel)
			require.NoError(t, err)
			got := QuerySelectorAll(doc, sel)
			if tc.want == nil {
				assert.Empty(t, got)
				return
			}
			assert.Equal(t, tc.want, ids(got))
			assert.Equal(t, tc.sel, sel.String())
		})
	}
}

func TestSelectorChildCombinatorStaysInShadowTree(t *testing.T) {
	doc := parse(t, `<div id="host"><template shadowrootmode="open"><p id="in"></p></template></div>`)
	in := FindByID("in", doc, ShadowRoots(doc))
	require.NotNil(t, in)
	assert.True(t, MustCompile("p").Matches(in))
	assert.False(t, MustCompile("div p").Matches(in))
	assert.False(t, MustCompile("div > p").Matches(in))
}

func TestCompileErrors(t *testing.T) {
	for _, src := range []string{"", "a,", "> a", "a >", "a > > b", "#", ".", "a[", "[=x]", "a!b"} {
		_, err := Compile(src)
		require.Error(t, err, "selector %q", src)
		assert.True(t, errors.Is(err, ErrInvalidSelector), "selector %q: %v", src, err)
	}
	assert.Panics(t, func() { MustCompile("[") })
}

func TestXPath(t *testing.T) {
	doc := parse(t, `<html><head><title>t</title></head><body><div><p>a</p><p id="x">b</p></div>
<div id="host"><template shadowrootmode="open"><span id="s"></span></template></div></body></html>`)

	assert.Equal(t, "/html/body/div[1]/p[2]", XPath(FindByID("x", doc, nil)))
	s := FindByID("s", doc, ShadowRoots(doc))
	require.NotNil(t, s)
	assert.Equal(t, "/html/body/div[2]/shadow-root/span", XPath(s))
	assert.Equal(t, "", XPath(doc))
}

func TestText(t *testing.T) {
	doc := parse(t, `<p id="p">  Hello <script>var x;</script><b>big</b>
	world <style>p{}</style></p>`)
	assert.Equal(t, "Hello big world", Text(FindByID("p", doc, nil)))
}

func TestTitle(t *testing.T) {
	assert.Equal(t, "My page", Title(parse(t, `<title> My   page </title><p>x</p>`)))
	assert.Equal(t, "", Title(parse(t, `<p>x</p>`)))
}

func TestFramesSrcdoc(t *testing.T) {
	doc := parse(t, `<iframe id="a" srcdoc="<p id=in>hi</p>"></iframe>
<iframe id="b" srcdoc="<p>x</p>" sandbox=""></iframe>
<iframe id="c" srcdoc="<p>x</p>" sandbox="allow-scripts allow-same-origin"></iframe>`)
	frames := NewFrames()

	a := FindByID("a", doc, nil)
	inner := ResolveFrameDocument(a, frames)
	require.NotNil(t, inner)
	assert.NotNil(t, FindByID("in", inner, nil))
	assert.Same(t, inner, ResolveFrameDocument(a, frames), "srcdoc documents are cached")
	assert.True(t, IsSrcdocFrame(a))

	_, err := frames.FrameDocument(FindByID("b", doc, nil))
	assert.ErrorIs(t, err, ErrFrameUnavailable)
	assert.Nil(t, ResolveFrameDocument(FindByID("b", doc, nil), frames))

	assert.NotNil(t, ResolveFrameDocument(FindByID("c", doc, nil), frames))
}

func TestFramesByKey(t *testing.T) {
	doc := parse(t, `<iframe id="k" data-a11y-frame="0" src="https://other.example/"></iframe>
<iframe id="s" src="/same.html"></iframe><iframe id="x" src="https://cross.example/"></iframe><div id="d"></div>`)
	captured := parse(t, `<title>inner</title>`)
	same := parse(t, `<title>same</title>`)

	frames := NewFrames()
	frames.Add("0", captured)
	frames.Add("/same.html", same)
	assert.Equal(t, 2, frames.Len())

	assert.Same(t, captured, ResolveFrameDocument(FindByID("k", doc, nil), frames))
	assert.Same(t, same, ResolveFrameDocument(FindByID("s", doc, nil), frames))
	assert.Nil(t, ResolveFrameDocument(FindByID("x", doc, nil), frames))
	assert.Nil(t, ResolveFrameDocument(FindByID("d", doc, nil), frames))
	assert.Nil(t, ResolveFrameDocument(FindByID("k", doc, nil), nil))

	_, err := frames.FrameDocument(FindByID("d", doc, nil))
	assert.ErrorIs(t, err, ErrFrameUnavailable)
}
