package rules

import (
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/hazyhaar/a11ywatch/aria"
	"github.com/hazyhaar/a11ywatch/dom"
	"github.com/hazyhaar/a11ywatch/rule"
	"golang.org/x/net/html"
	"golang.org/x/text/language"
)

// TagName reports the tag of every element. Disabled by default.
var TagName = &rule.Rule{
	Name:     string(tagNameRule),
	Evaluate: evalTagName,
}

func evalTagName(n *html.Node, _ rule.Options, _ *rule.Context) rule.Findings {
	return rule.Findings{tagNameRule.finding(rule.TypeTagName, dom.Tag(n), "")}
}

// Role reports explicit roles, flagging unknown and abstract ones.
var Role = &rule.Rule{
	Name:           string(roleRule),
	DefaultOptions: enabled,
	Selectors:      []dom.Selector{dom.MustCompile("[role]")},
	Evaluate:       evalRole,
}

func evalRole(n *html.Node, _ rule.Options, ctx *rule.Context) rule.Findings {
	value := dom.Attr(n, "role")
	if strings.TrimSpace(value) == "" {
		return rule.None
	}
	var out rule.Findings
	resolved, ok := ctx.Role(n)
	if ok {
		out = append(out, roleRule.finding(rule.TypeRole, string(resolved), ""))
	}
	if _, explicit := aria.Explicit(n); !explicit {
		return append(out, roleRule.fail(MsgUnknownRole, params("role", value)))
	}
	if aria.IsAbstract(resolved) {
		out = append(out, roleRule.warn(MsgAbstractRole, params("role", string(resolved))))
	}
	return out
}

// Landmark reports landmark roles with their names. Regions and forms are
// landmarks only when named.
var Landmark = &rule.Rule{
	Name:           string(landmarkRule),
	DefaultOptions: enabled,
	TagNames:       []string{"aside", "footer", "form", "header", "main", "nav", "search", "section"},
	Selectors:      []dom.Selector{dom.MustCompile("[role]")},
	Evaluate:       evalLandmark,
}

func evalLandmark(n *html.Node, _ rule.Options, ctx *rule.Context) rule.Findings {
	role, ok := ctx.Role(n)
	if !ok || !aria.IsLandmark(role) {
		return rule.None
	}
	name := ctx.Name(n)
	if (role == "region" || role == "form") && name == "" {
		return rule.None
	}
	return rule.Findings{landmarkRule.finding(rule.TypeLandmark, string(role), name)}
}

// Heading reports heading levels.
var Heading = &rule.Rule{
	Name:           string(headingRule),
	DefaultOptions: enabled,
	TagNames:       []string{"h1", "h2", "h3", "h4", "h5", "h6"},
	Roles:          []aria.Role{"heading"},
	Evaluate:       evalHeading,
}

func evalHeading(n *html.Node, _ rule.Options, ctx *rule.Context) rule.Findings {
	if role, ok := ctx.Role(n); !ok || role != "heading" {
		return rule.None
	}
	var out rule.Findings
	level := 2
	tag := dom.Tag(n)
	if len(tag) == 2 && tag[0] == 'h' && tag[1] >= '1' && tag[1] <= '6' {
		level = int(tag[1] - '0')
	}
	if v, ok := dom.LookupAttr(n, "aria-level"); ok {
		lv, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil || lv < 1 {
			out = append(out, headingRule.fail(MsgInvalidHeadingLevel, params("level", v)))
		} else {
			level = lv
		}
	}
	out = append(rule.Findings{headingRule.finding(rule.TypeHeading, strconv.Itoa(level), ctx.Name(n))}, out...)
	if ctx.Name(n) == "" {
		out = append(out, headingRule.fail(MsgNoName, nil))
	}
	return out
}

// PageTitle reports the document title. Frame documents built from srcdoc
// carry no title of their own and are skipped.
var PageTitle = &rule.Rule{
	Name:           string(pageTitleRule),
	DefaultOptions: rule.Options{Enabled: true, Params: map[string]string{"min_length": "1"}},
	TagNames:       []string{"body"},
	Evaluate:       evalPageTitle,
}

func evalPageTitle(n *html.Node, opts rule.Options, ctx *rule.Context) rule.Findings {
	if ctx.Srcdoc() {
		return rule.None
	}
	title := dom.Title(dom.TreeRoot(n))
	if title == "" || utf8.RuneCountInString(title) < opts.IntParam("min_length", 1) {
		return rule.Findings{pageTitleRule.fail(MsgNoTitle, params("title", title))}
	}
	return rule.Findings{pageTitleRule.finding(rule.TypePageTitle, title, "")}
}

// Lang checks the document language and every lang attribute.
var Lang = &rule.Rule{
	Name:           string(langRule),
	DefaultOptions: enabled,
	TagNames:       []string{"html"},
	Selectors:      []dom.Selector{dom.MustCompile("[lang]")},
	Evaluate:       evalLang,
}

func evalLang(n *html.Node, _ rule.Options, ctx *rule.Context) rule.Findings {
	v, ok := dom.LookupAttr(n, "lang")
	if !ok || strings.TrimSpace(v) == "" {
		v, ok = dom.LookupAttr(n, "xml:lang")
	}
	v = strings.TrimSpace(v)
	if dom.Tag(n) == "html" && v == "" {
		if ctx.Srcdoc() {
			return rule.None
		}
		return rule.Findings{langRule.fail(MsgNoLang, nil)}
	}
	if !ok || v == "" {
		return rule.None
	}
	if _, err := language.Parse(v); err != nil {
		return rule.Findings{langRule.fail(MsgInvalidLang, params("lang", v))}
	}
	return rule.Findings{langRule.finding(rule.TypeLang, v, "")}
}

// LinkTarget reports link targets. With the default report=blank only links
// opening a new browsing context are reported; report=all reports every
// target.
var LinkTarget = &rule.Rule{
	Name:           string(linkTargetRule),
	DefaultOptions: rule.Options{Enabled: true, Params: map[string]string{"report": "blank"}},
	Selectors:      []dom.Selector{dom.MustCompile("a[href][target], area[href][target]")},
	Evaluate:       evalLinkTarget,
}

func evalLinkTarget(n *html.Node, opts rule.Options, _ *rule.Context) rule.Findings {
	target := strings.TrimSpace(dom.Attr(n, "target"))
	if target == "" {
		return rule.None
	}
	if opts.Param("report", "blank") != "all" && !strings.EqualFold(target, "_blank") {
		return rule.None
	}
	return rule.Findings{linkTargetRule.finding(rule.TypeLinkTarget, target, "")}
}
