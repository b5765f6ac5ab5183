package rules

import "github.com/hazyhaar/a11ywatch/rule"

// emitter builds results on behalf of the rule it names.
type emitter string

const (
	tagNameRule           emitter = "tag-name"
	roleRule              emitter = "role"
	landmarkRule          emitter = "landmark"
	headingRule           emitter = "heading"
	pageTitleRule         emitter = "page-title"
	langRule              emitter = "lang"
	linkTargetRule        emitter = "link-target"
	accessibleNameRule    emitter = "accessible-name"
	descriptionRule       emitter = "description"
	linkNameRule          emitter = "link-name"
	imgNameRule           emitter = "img-name"
	controlNameRule       emitter = "control-name"
	controlFocusRule      emitter = "control-focus"
	ariaAttrsRule         emitter = "aria-attrs"
	idReferenceRule       emitter = "id-reference"
	labelRule             emitter = "label"
	radioNameRule         emitter = "radio-name"
	tableSizeRule         emitter = "table-size"
	tableHeaderRule       emitter = "table-header"
	nestedInteractiveRule emitter = "nested-interactive"
	hiddenFocusRule       emitter = "hidden-focus"
	duplicateIDRule       emitter = "duplicate-id"
	frameNameRule         emitter = "frame-name"
)

func (e emitter) finding(t rule.Type, content, label string) rule.Result {
	return rule.Result{Type: t, RuleName: string(e), Content: content, ContentLabel: label}
}

func (e emitter) fail(message string, p map[string]string) rule.Result {
	return rule.Result{Type: rule.TypeError, RuleName: string(e), Message: message, MessageParams: p}
}

func (e emitter) warn(message string, p map[string]string) rule.Result {
	return rule.Result{Type: rule.TypeWarning, RuleName: string(e), Message: message, MessageParams: p}
}
