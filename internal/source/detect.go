package source

import (
	"bytes"
	"unicode"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

const (
	minBodyBytes = 256
	minTextBytes = 200
	minTextRatio = 0.10
)

// shellMarkers are empty mount points left by client-rendered apps.
var shellMarkers = [][]byte{
	[]byte(`<div id="root"></div>`),
	[]byte(`<div id="app"></div>`),
	[]byte(`<div id="__next"></div>`),
	[]byte(`<noscript>you need to enable javascript`),
	[]byte(`<noscript>enable javascript`),
}

// IsSufficient reports whether a fetched body carries enough rendered
// content to audit without a browser.
func IsSufficient(src []byte) bool {
	if len(src) < minBodyBytes {
		return false
	}
	text, markup := textMarkupRatio(src)
	if text+markup == 0 {
		return false
	}
	if float64(text)/float64(text+markup) < minTextRatio || text < minTextBytes {
		return false
	}
	lower := bytes.ToLower(src)
	for _, m := range shellMarkers {
		if bytes.Contains(lower, m) {
			return false
		}
	}
	return true
}

// textMarkupRatio counts visible non-space text bytes against everything
// else. Script and style bodies count as markup.
func textMarkupRatio(src []byte) (text, markup int) {
	z := html.NewTokenizer(bytes.NewReader(src))
	raw := 0
	for {
		tt := z.Next()
		switch tt {
		case html.ErrorToken:
			return text, markup
		case html.TextToken:
			b := z.Raw()
			if raw > 0 {
				markup += len(b)
				continue
			}
			for _, r := range string(b) {
				if !unicode.IsSpace(r) {
					text += len(string(r))
				}
			}
		case html.StartTagToken:
			markup += len(z.Raw())
			name, _ := z.TagName()
			if a := atom.Lookup(name); a == atom.Script || a == atom.Style {
				raw++
			}
		case html.EndTagToken:
			markup += len(z.Raw())
			name, _ := z.TagName()
			if a := atom.Lookup(name); (a == atom.Script || a == atom.Style) && raw > 0 {
				raw--
			}
		default:
			markup += len(z.Raw())
		}
	}
}
