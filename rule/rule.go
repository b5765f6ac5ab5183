// Package rule defines the contract every accessibility check implements:
// the Rule descriptor with its applicability filters, the Result records a
// rule emits, the Options a rule runs with, the ordered Registry, and the
// per-pass Context that memoises roles, names, descriptions and table
// geometry.
package rule

import (
	"strconv"
	"strings"

	"github.com/hazyhaar/a11ywatch/aria"
	"github.com/hazyhaar/a11ywatch/dom"
	"golang.org/x/net/html"
)

// Type discriminates result records.
type Type string

const (
	TypeError       Type = "error"
	TypeWarning     Type = "warning"
	TypeTagName     Type = "tagName"
	TypeRole        Type = "role"
	TypeLandmark    Type = "landmark"
	TypeLang        Type = "lang"
	TypeLinkTarget  Type = "linkTarget"
	TypeHeading     Type = "heading"
	TypePageTitle   Type = "pageTitle"
	TypeDescription Type = "description"
	TypeTableSize   Type = "tableSize"
	TypeName        Type = "name"
)

// Result is one fact or violation reported for an element.
type Result struct {
	Type          Type              `json:"type"`
	RuleName      string            `json:"ruleName"`
	Message       string            `json:"message,omitempty"`
	MessageParams map[string]string `json:"messageParams,omitempty"`
	Content       string            `json:"content,omitempty"`
	ContentLabel  string            `json:"contentLabel,omitempty"`
}

// IsViolation reports whether the result is an error or a warning.
func (r Result) IsViolation() bool {
	return r.Type == TypeError || r.Type == TypeWarning
}

// Findings is the ordered output of one rule for one element.
type Findings []Result

// None is the "no findings" sentinel. Rules return None rather than an
// empty slice; consumers test len(f) == 0.
var None Findings

// Options are the settings a rule runs with.
type Options struct {
	Enabled bool              `json:"enabled" yaml:"enabled" toml:"enabled"`
	Params  map[string]string `json:"params,omitempty" yaml:"params,omitempty" toml:"params,omitempty"`
}

// Param returns a rule-specific parameter or def when unset.
func (o Options) Param(key, def string) string {
	if v, ok := o.Params[key]; ok {
		return v
	}
	return def
}

// IntParam returns an integer parameter or def when unset or malformed.
func (o Options) IntParam(key string, def int) int {
	v, ok := o.Params[key]
	if !ok {
		return def
	}
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		return def
	}
	return n
}

// Merge overlays o on top of base: Enabled comes from o, parameters from
// base unless o overrides them.
func (o Options) Merge(base Options) Options {
	out := Options{Enabled: o.Enabled}
	if len(base.Params) == 0 && len(o.Params) == 0 {
		return out
	}
	out.Params = make(map[string]string, len(base.Params)+len(o.Params))
	for k, v := range base.Params {
		out.Params[k] = v
	}
	for k, v := range o.Params {
		out.Params[k] = v
	}
	return out
}

// EvaluateFunc is the body of a rule.
type EvaluateFunc func(n *html.Node, opts Options, ctx *Context) Findings

// Rule is an immutable check descriptor. TagNames, Roles and Selectors only
// narrow the elements the driver offers to Evaluate; a rule with none of
// them applies to every element.
type Rule struct {
	Name           string
	DefaultOptions Options
	TagNames       []string
	Roles          []aria.Role
	Selectors      []dom.Selector
	Evaluate       EvaluateFunc
}

// Run evaluates the rule unless it is disabled, in which case it returns
// None without doing any work.
func (r *Rule) Run(n *html.Node, opts Options, ctx *Context) Findings {
	if !opts.Enabled {
		return None
	}
	f := r.Evaluate(n, opts, ctx)
	if len(f) == 0 {
		return None
	}
	return f
}

// Applies reports whether n passes the rule's applicability filters.
func (r *Rule) Applies(n *html.Node, ctx *Context) bool {
	if !dom.IsElement(n) {
		return false
	}
	if len(r.TagNames) == 0 && len(r.Roles) == 0 && len(r.Selectors) == 0 {
		return true
	}
	tag := dom.Tag(n)
	for _, t := range r.TagNames {
		if t == tag {
			return true
		}
	}
	if len(r.Roles) > 0 {
		if role, ok := ctx.Role(n); ok {
			for _, want := range r.Roles {
				if want == role {
					return true
				}
			}
		}
	}
	for _, s := range r.Selectors {
		if s.Matches(n) {
			return true
		}
	}
	return false
}
