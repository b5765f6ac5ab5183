package dom

import (
	"strings"

	"github.com/cockroachdb/errors"
	"golang.org/x/net/html"
)

// ErrInvalidSelector marks selector syntax errors.
var ErrInvalidSelector = errors.New("dom: invalid selector")

// Selector is a compiled CSS selector. Supported subset:
//   - type and universal: "nav", "*"
//   - #id, .class (repeatable), [attr], [attr=val], [attr~=val],
//     [attr^=val], [attr$=val], [attr*=val]
//   - compounds: "input[type=radio].big"
//   - descendant (space) and child (>) combinators
//   - selector lists separated by commas
//
// Matching runs right to left from the candidate element and never crosses
// a shadow root boundary.
type Selector struct {
	src   string
	group []complexSelector
}

type complexSelector struct {
	// parts are ordered left to right; combinators[i] joins parts[i] and
	// parts[i+1].
	parts       []compound
	combinators []byte
}

type compound struct {
	tag     string
	id      string
	classes []string
	attrs   []attrMatcher
}

type attrMatcher struct {
	key string
	op  byte // 0 presence, '=', '~', '^', '$', '*'
	val string
}

// Compile parses a selector list.
func Compile(src string) (Selector, error) {
	s := Selector{src: src}
	for _, g := range splitGroups(src) {
		g = strings.TrimSpace(g)
		if g == "" {
			return Selector{}, errors.Mark(errors.Newf("dom: selector %q: empty group", src), ErrInvalidSelector)
		}
		cs, err := parseComplex(g)
		if err != nil {
			return Selector{}, errors.Mark(errors.Wrapf(err, "dom: selector %q", src), ErrInvalidSelector)
		}
		s.group = append(s.group, cs)
	}
	return s, nil
}

// MustCompile is like Compile but panics on error. Meant for package-level
// rule tables.
func MustCompile(src string) Selector {
	s, err := Compile(src)
	if err != nil {
		panic(err)
	}
	return s
}

// String returns the source text of the selector.
func (s Selector) String() string { return s.src }

// Matches reports whether the element n matches any selector of the list.
func (s Selector) Matches(n *html.Node) bool {
	if !IsElement(n) {
		return false
	}
	for _, cs := range s.group {
		if cs.matchAt(n, len(cs.parts)-1) {
			return true
		}
	}
	return false
}

// QuerySelectorAll returns the elements below root matching s, in document
// order. Template contents are not searched.
func QuerySelectorAll(root *html.Node, s Selector) []*html.Node {
	var out []*html.Node
	Walk(root, func(n *html.Node) bool {
		if s.Matches(n) {
			out = append(out, n)
		}
		return true
	})
	return out
}

func (cs complexSelector) matchAt(n *html.Node, i int) bool {
	if !cs.parts[i].matches(n) {
		return false
	}
	if i == 0 {
		return true
	}
	switch cs.combinators[i-1] {
	case '>':
		p := ParentElement(n)
		return p != nil && cs.matchAt(p, i-1)
	default:
		for p := ParentElement(n); p != nil; p = ParentElement(p) {
			if cs.matchAt(p, i-1) {
				return true
			}
		}
		return false
	}
}

func (c compound) matches(n *html.Node) bool {
	if c.tag != "" && c.tag != "*" && Tag(n) != c.tag {
		return false
	}
	if c.id != "" && Attr(n, "id") != c.id {
		return false
	}
	if len(c.classes) > 0 {
		have := AttrTokens(n, "class")
		for _, want := range c.classes {
			if !contains(have, want) {
				return false
			}
		}
	}
	for _, a := range c.attrs {
		v, ok := LookupAttr(n, a.key)
		if !ok {
			return false
		}
		switch a.op {
		case '=':
			ok = v == a.val
		case '~':
			ok = contains(strings.Fields(v), a.val)
		case '^':
			ok = a.val != "" && strings.HasPrefix(v, a.val)
		case '$':
			ok = a.val != "" && strings.HasSuffix(v, a.val)
		case '*':
			ok = a.val != "" && strings.Contains(v, a.val)
		}
		if !ok {
			return false
		}
	}
	return true
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// splitGroups splits on commas outside brackets and quotes.
func splitGroups(src string) []string {
	var out []string
	var quote byte
	depth, start := 0, 0
	for i := 0; i < len(src); i++ {
		ch := src[i]
		switch {
		case quote != 0:
			if ch == quote {
				quote = 0
			}
		case ch == '"' || ch == '\'':
			quote = ch
		case ch == '[':
			depth++
		case ch == ']':
			depth--
		case ch == ',' && depth == 0:
			out = append(out, src[start:i])
			start = i + 1
		}
	}
	return append(out, src[start:])
}

func parseComplex(s string) (complexSelector, error) {
	var cs complexSelector
	var comb byte
	i := 0
	for {
		sawSpace := false
		for i < len(s) && isSpace(s[i]) {
			i++
			sawSpace = true
		}
		if i >= len(s) {
			break
		}
		if s[i] == '>' {
			if len(cs.parts) == 0 || comb == '>' {
				return cs, errors.Newf("unexpected '>' at %d", i)
			}
			comb = '>'
			i++
			continue
		}
		if len(cs.parts) > 0 {
			if comb == 0 {
				if !sawSpace {
					return cs, errors.Newf("unexpected %q at %d", s[i], i)
				}
				comb = ' '
			}
			cs.combinators = append(cs.combinators, comb)
		}
		c, next, err := parseCompound(s, i)
		if err != nil {
			return cs, err
		}
		cs.parts = append(cs.parts, c)
		comb = 0
		i = next
	}
	if len(cs.parts) == 0 {
		return cs, errors.Newf("empty selector")
	}
	if comb != 0 {
		return cs, errors.Newf("dangling combinator")
	}
	return cs, nil
}

func parseCompound(s string, i int) (compound, int, error) {
	var c compound
	start := i
	if i < len(s) && s[i] == '*' {
		c.tag = "*"
		i++
	} else if i < len(s) && isIdent(s[i]) {
		j := scanIdent(s, i)
		c.tag = strings.ToLower(s[i:j])
		i = j
	}
	for i < len(s) && !isSpace(s[i]) && s[i] != '>' {
		switch s[i] {
		case '#':
			j := scanIdent(s, i+1)
			if j == i+1 {
				return c, i, errors.Newf("empty id at %d", i)
			}
			c.id = s[i+1 : j]
			i = j
		case '.':
			j := scanIdent(s, i+1)
			if j == i+1 {
				return c, i, errors.Newf("empty class at %d", i)
			}
			c.classes = append(c.classes, s[i+1:j])
			i = j
		case '[':
			end := closingBracket(s, i)
			if end < 0 {
				return c, i, errors.Newf("unterminated attribute selector at %d", i)
			}
			a, err := parseAttr(s[i+1 : end])
			if err != nil {
				return c, i, err
			}
			c.attrs = append(c.attrs, a)
			i = end + 1
		default:
			return c, i, errors.Newf("unexpected %q at %d", s[i], i)
		}
	}
	if i == start {
		return c, i, errors.Newf("empty compound at %d", i)
	}
	return c, i, nil
}

func parseAttr(inner string) (attrMatcher, error) {
	inner = strings.TrimSpace(inner)
	eq := strings.IndexByte(inner, '=')
	if eq < 0 {
		if inner == "" {
			return attrMatcher{}, errors.Newf("empty attribute selector")
		}
		return attrMatcher{key: strings.ToLower(inner)}, nil
	}
	a := attrMatcher{op: '='}
	keyEnd := eq
	if eq > 0 && strings.IndexByte("~^$*", inner[eq-1]) >= 0 {
		a.op = inner[eq-1]
		keyEnd = eq - 1
	}
	a.key = strings.ToLower(strings.TrimSpace(inner[:keyEnd]))
	if a.key == "" {
		return attrMatcher{}, errors.Newf("attribute selector %q: missing name", inner)
	}
	val := strings.TrimSpace(inner[eq+1:])
	if len(val) >= 2 && (val[0] == '"' || val[0] == '\'') && val[len(val)-1] == val[0] {
		val = val[1 : len(val)-1]
	}
	a.val = val
	return a, nil
}

func closingBracket(s string, open int) int {
	var quote byte
	for i := open + 1; i < len(s); i++ {
		ch := s[i]
		switch {
		case quote != 0:
			if ch == quote {
				quote = 0
			}
		case ch == '"' || ch == '\'':
			quote = ch
		case ch == ']':
			return i
		}
	}
	return -1
}

func scanIdent(s string, i int) int {
	for i < len(s) && isIdent(s[i]) {
		i++
	}
	return i
}

func isIdent(ch byte) bool {
	return ch == '-' || ch == '_' || ch >= 0x80 ||
		(ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z') || (ch >= '0' && ch <= '9')
}

func isSpace(ch byte) bool {
	return ch == ' ' || ch == '\t' || ch == '\n' || ch == '\r' || ch == '\f'
}
