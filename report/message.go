package report

import (
	"strings"

	"github.com/hazyhaar/a11ywatch/rule"
	"github.com/hazyhaar/a11ywatch/rules"
)

// catalog maps rule messages to display templates. Placeholders use the
// {{name}} syntax and are filled from the result's MessageParams.
var catalog = map[string]string{
	rules.MsgUnknownRole:         "Unknown role \"{{role}}\"",
	rules.MsgAbstractRole:        "Abstract role \"{{role}}\" must not be used",
	rules.MsgNoTitle:             "No page title",
	rules.MsgInvalidLang:         "Invalid lang attribute \"{{lang}}\"",
	rules.MsgUnknownAttribute:    "Unknown attribute {{attribute}}",
	rules.MsgInvalidValue:        "Invalid value \"{{value}}\" for {{attribute}}",
	rules.MsgNotAllowedForRole:   "{{attribute}} is not allowed for role \"{{role}}\"",
	rules.MsgMissingReference:    "{{attribute}} references missing ID \"{{id}}\"",
	rules.MsgNestedInteractive:   "Nested inside an interactive element with role \"{{role}}\"",
	rules.MsgDuplicateID:         "Duplicate ID \"{{id}}\"",
	rules.MsgInvalidHeadingLevel: "Invalid heading level \"{{level}}\"",
}

// Template returns the display template of a rule message, or the message
// itself when it has none.
func Template(message string) string {
	if t, ok := catalog[message]; ok {
		return t
	}
	return message
}

// FormatMessage substitutes {{name}} placeholders in tmpl. Whitespace inside
// the braces is ignored. Placeholders without a parameter are left as-is.
func FormatMessage(tmpl string, params map[string]string) string {
	var b strings.Builder
	for {
		open := strings.Index(tmpl, "{{")
		if open < 0 {
			break
		}
		end := strings.Index(tmpl[open+2:], "}}")
		if end < 0 {
			break
		}
		end += open + 2
		name := strings.TrimSpace(tmpl[open+2 : end])
		b.WriteString(tmpl[:open])
		if v, ok := params[name]; ok {
			b.WriteString(v)
		} else {
			b.WriteString(tmpl[open : end+2])
		}
		tmpl = tmpl[end+2:]
	}
	b.WriteString(tmpl)
	return b.String()
}

// Message renders a result for display: the formatted message of a
// violation, or the content of a fact.
func Message(r rule.Result) string {
	if r.Message == "" {
		return r.Content
	}
	return FormatMessage(Template(r.Message), r.MessageParams)
}
