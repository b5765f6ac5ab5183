package table

import (
	"strings"
	"testing"

	"github.com/hazyhaar/a11ywatch/dom"
	"golang.org/x/net/html"
)

func firstTable(t *testing.T, src string) *html.Node {
	t.Helper()
	doc, err := html.Parse(strings.NewReader(src))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	tables := dom.QuerySelectorAll(doc, dom.MustCompile("table"))
	if len(tables) == 0 {
		t.Fatal("no table in fixture")
	}
	return tables[0]
}

func TestAnalyze(t *testing.T) {
	cases := []struct {
		name string
		src  string
		want Size
	}{
		{"one row two cells", `<table><tr><td>a</td><td>b</td></tr></table>`, Size{1, 2}},
		{"rowspan pushes next row", `<table><tr><td rowspan="2">a</td></tr><tr><td>b</td></tr></table>`, Size{2, 2}},
		{"colspan", `<table><tr><td colspan="3">a</td></tr><tr><td>b</td></tr></table>`, Size{2, 3}},
		{"row groups", `<table><thead><tr><th>h1</th><th>h2</th></tr></thead><tbody><tr><td>1</td><td>2</td></tr></tbody><tfoot><tr><td>f</td></tr></tfoot></table>`, Size{3, 2}},
		{"irregular", `<table>
			<tr><td rowspan="3">a</td><td>b</td><td>c</td></tr>
			<tr><td>d</td></tr>
			<tr><td colspan="2">e</td></tr></table>`, Size{3, 3}},
		{"zero span floors to one", `<table><tr><td colspan="0">a</td><td rowspan="-2">b</td></tr></table>`, Size{1, 2}},
		{"garbage span", `<table><tr><td colspan="wide">a</td><td colspan=" 2 ">b</td></tr></table>`, Size{1, 3}},
		{"colspan above limit", `<table><tr><td colspan="5000">a</td></tr></table>`, Size{1, 1}},
		{"rowspan clipped", `<table><tr><td rowspan="10">a</td></tr></table>`, Size{1, 1}},
		{"nested table excluded", `<table><tr><td><table><tr><td>x</td><td>y</td><td>z</td></tr></table></td></tr></table>`, Size{1, 1}},
		{"empty", `<table></table>`, Size{0, 0}},
		{"span from above widens", `<table><tr><td>a</td><td rowspan="2" colspan="2">b</td></tr><tr></tr></table>`, Size{2, 3}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := Analyze(firstTable(t, tc.src))
			if got != tc.want {
				t.Errorf("Analyze: got %+v, want %+v", got, tc.want)
			}
		})
	}
}

func TestSpan(t *testing.T) {
	cases := map[string]int{"": 1, "2": 2, " 4 ": 4, "0": 1, "-1": 1, "x": 1, "1.5": 1, "1001": 1, "1000": 1000}
	for in, want := range cases {
		if got := Span(in, MaxColspan); got != want {
			t.Errorf("Span(%q): got %d, want %d", in, got, want)
		}
	}
}

func TestHasHeaders(t *testing.T) {
	if !HasHeaders(firstTable(t, `<table><tr><th>h</th></tr></table>`)) {
		t.Error("th not detected")
	}
	if !HasHeaders(firstTable(t, `<table><tr><td role="columnheader">h</td></tr></table>`)) {
		t.Error("columnheader role not detected")
	}
	if HasHeaders(firstTable(t, `<table><tr><td>a</td></tr></table>`)) {
		t.Error("plain table reported headers")
	}
}
