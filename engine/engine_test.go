package engine

import (
	"bytes"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/hazyhaar/a11ywatch/dom"
	"github.com/hazyhaar/a11ywatch/rule"
	"github.com/hazyhaar/a11ywatch/rules"
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

// tagRule reports the tag of every element matching tags.
func tagRule(name string, tags ...string) *rule.Rule {
	return &rule.Rule{
		Name:           name,
		DefaultOptions: rule.Options{Enabled: true},
		TagNames:       tags,
		Evaluate: func(n *html.Node, _ rule.Options, _ *rule.Context) rule.Findings {
			return rule.Findings{{Type: rule.TypeTagName, RuleName: name, Content: dom.Tag(n)}}
		},
	}
}

func registry(t *testing.T, rs ...*rule.Rule) *rule.Registry {
	t.Helper()
	reg, err := rule.NewRegistry(rs...)
	require.NoError(t, err)
	return reg
}

func xpaths(res Result) []string {
	var out []string
	for _, e := range res.Elements {
		out = append(out, e.XPath)
	}
	return out
}

func TestRunVisitsShadowTreeBeforeLightChildren(t *testing.T) {
	doc := parse(t, `<body><div id="host"><template shadowrootmode="open"><span>in</span></template><p>light</p></div><em>after</em></body>`)
	e := New(registry(t, tagRule("tags", "div", "span", "p", "em", "template")))

	res := e.Run(doc, nil)

	assert.Equal(t, []string{
		"/html/body/div",
		"/html/body/div/shadow-root/span",
		"/html/body/div/p",
		"/html/body/em",
	}, xpaths(res))
	assert.Empty(t, res.Failures)
	assert.Equal(t, 4, res.Findings())
}

func TestRunKeepsRegistrationOrderPerElement(t *testing.T) {
	doc := parse(t, `<body><p>x</p></body>`)
	e := New(registry(t, tagRule("second", "p"), tagRule("first", "p")))

	res := e.Run(doc, nil)

	require.Len(t, res.Elements, 1)
	var names []string
	for _, r := range res.Elements[0].Results {
		names = append(names, r.RuleName)
	}
	assert.Equal(t, []string{"second", "first"}, names)
}

func TestRunHonoursSettings(t *testing.T) {
	doc := parse(t, `<body><p>x</p></body>`)
	off := tagRule("off", "p")
	off.DefaultOptions.Enabled = false
	e := New(registry(t, tagRule("on", "p"), off))

	res := e.Run(doc, rule.Settings{"on": {Enabled: false}})
	assert.Empty(t, res.Elements)

	res = e.Run(doc, rule.Settings{"off": {Enabled: true}})
	require.Len(t, res.Elements, 1)
	assert.Equal(t, []string{"on", "off"}, []string{res.Elements[0].Results[0].RuleName, res.Elements[0].Results[1].RuleName})
}

func TestRunIsolatesPanics(t *testing.T) {
	doc := parse(t, `<body><p>a</p><p>b</p></body>`)
	bad := &rule.Rule{
		Name:           "bad",
		DefaultOptions: rule.Options{Enabled: true},
		TagNames:       []string{"p"},
		Evaluate: func(*html.Node, rule.Options, *rule.Context) rule.Findings {
			panic("boom")
		},
	}
	var logs bytes.Buffer
	e := New(registry(t, bad, tagRule("good", "p")), WithLogger(slog.New(slog.NewTextHandler(&logs, nil))))

	res := e.Run(doc, nil)

	assert.Equal(t, []string{"/html/body/p[1]", "/html/body/p[2]"}, xpaths(res))
	require.Len(t, res.Failures, 2)
	assert.Equal(t, "bad", res.Failures[0].RuleName)
	assert.Equal(t, "/html/body/p[1]", res.Failures[0].XPath)
	assert.Contains(t, res.Failures[0].Err.Error(), "boom")
	assert.Contains(t, res.Failures[0].String(), "bad at /html/body/p[1]")
	assert.Contains(t, logs.String(), "engine: rule failed")
}

func TestRunWalksFrameDocuments(t *testing.T) {
	doc := parse(t, `<html><head><title>Outer</title></head><body>
<iframe title="inline" srcdoc="<p>inside</p>"></iframe><iframe title="captured" src="/c.html"></iframe><div>after</div></body></html>`)
	frames := dom.NewFrames()
	frames.Add("/c.html", parse(t, `<html lang="de"><body><span>captured</span></body></html>`))

	var srcdocSeen []bool
	probe := &rule.Rule{
		Name:           "probe",
		DefaultOptions: rule.Options{Enabled: true},
		TagNames:       []string{"p", "span", "div"},
		Evaluate: func(n *html.Node, _ rule.Options, ctx *rule.Context) rule.Findings {
			srcdocSeen = append(srcdocSeen, ctx.Srcdoc())
			return rule.Findings{{Type: rule.TypeTagName, RuleName: "probe", Content: dom.Tag(n)}}
		},
	}
	e := New(registry(t, probe))

	res := e.Run(doc, nil, WithFrames(frames))

	assert.Equal(t, []string{
		"/html/body/iframe[1]/html/body/p",
		"/html/body/iframe[2]/html/body/span",
		"/html/body/div",
	}, xpaths(res))
	assert.Equal(t, []bool{true, false, false}, srcdocSeen)

	res = e.Run(doc, nil)
	assert.Equal(t, []string{"/html/body/div"}, xpaths(res), "frames are skipped without a resolver")
}

func TestRunStopsOnFrameCycles(t *testing.T) {
	doc := parse(t, `<body><iframe src="self"></iframe><p>x</p></body>`)
	frames := dom.NewFrames()
	frames.Add("self", doc)
	e := New(registry(t, tagRule("tags", "p")))

	res := e.Run(doc, nil, WithFrames(frames))
	assert.Equal(t, []string{"/html/body/p"}, xpaths(res))
}

func TestRunWithDefaultRules(t *testing.T) {
	doc := parse(t, `<!DOCTYPE html><html lang="en"><head><title>Shop</title></head><body>
<nav aria-label="Main"><a href="/">Home</a></nav>
<main><h1>Products</h1><div role="button">Buy</div><img src="p.png"></main>
<iframe title="promo" srcdoc="<html><body><p>deal</p></body></html>"></iframe>
</body></html>`)
	e := New(rules.Registry())

	res := e.Run(doc, rules.Registry().Defaults(), WithFrames(dom.NewFrames()))

	byPath := map[string]rule.Findings{}
	for _, el := range res.Elements {
		byPath[el.XPath] = el.Results
	}
	require.Contains(t, byPath, "/html/body/main/div")
	assert.Contains(t, byPath["/html/body/main/div"], rule.Result{Type: rule.TypeError, RuleName: "control-focus", Message: rules.MsgNotFocusable})
	assert.Contains(t, byPath["/html/body/main/img"], rule.Result{Type: rule.TypeError, RuleName: "img-name", Message: rules.MsgNoAlt})
	assert.Contains(t, byPath["/html/body/nav"], rule.Result{Type: rule.TypeLandmark, RuleName: "landmark", Content: "navigation", ContentLabel: "Main"})
	assert.Contains(t, byPath["/html"], rule.Result{Type: rule.TypeLang, RuleName: "lang", Content: "en"})
	assert.Contains(t, byPath["/html/body"], rule.Result{Type: rule.TypePageTitle, RuleName: "page-title", Content: "Shop"})

	// The srcdoc document has no lang and no title, and neither is reported.
	for path, fs := range byPath {
		if !strings.HasPrefix(path, "/html/body/iframe/") {
			continue
		}
		for _, r := range fs {
			assert.NotEqual(t, "page-title", r.RuleName, path)
			assert.NotEqual(t, "lang", r.RuleName, path)
		}
	}
	assert.Empty(t, res.Failures)
}

func TestRunSerialisesPasses(t *testing.T) {
	doc := parse(t, `<body><p>a</p><p>b</p><p>c</p></body>`)
	var inflight, peak int32
	slow := &rule.Rule{
		Name:           "slow",
		DefaultOptions: rule.Options{Enabled: true},
		TagNames:       []string{"body"},
		Evaluate: func(*html.Node, rule.Options, *rule.Context) rule.Findings {
			n := atomic.AddInt32(&inflight, 1)
			for {
				p := atomic.LoadInt32(&peak)
				if n <= p || atomic.CompareAndSwapInt32(&peak, p, n) {
					break
				}
			}
			for i := 0; i < 1000; i++ {
				_ = dom.Tag(doc.FirstChild)
			}
			atomic.AddInt32(&inflight, -1)
			return rule.None
		},
	}
	e := New(registry(t, slow))

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			e.Run(doc, nil)
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), atomic.LoadInt32(&peak))
}

func TestRunNilDocument(t *testing.T) {
	e := New(registry(t, tagRule("tags")))
	res := e.Run(nil, nil)
	assert.Empty(t, res.Elements)
	assert.Zero(t, res.Visited)
}
