// Package rules is the concrete accessibility rule set. Every rule is a
// plain rule.Rule value; All returns them in registration order, which is
// the order their results appear in for a given element.
package rules

import (
	"sync"

	"github.com/hazyhaar/a11ywatch/rule"
)

// Messages carried by error and warning results. They double as keys into
// the report message catalog.
const (
	MsgNotFocusable        = "Not focusable"
	MsgUnknownRole         = "Unknown role"
	MsgAbstractRole        = "Abstract role"
	MsgNoName              = "No accessible name"
	MsgNoAlt               = "No alt attribute"
	MsgNoTitle             = "No page title"
	MsgNoLang              = "No lang attribute"
	MsgInvalidLang         = "Invalid lang attribute"
	MsgUnknownAttribute    = "Unknown attribute"
	MsgInvalidValue        = "Invalid value"
	MsgNotAllowedForRole   = "Not allowed for role"
	MsgMissingReference    = "Missing ID reference"
	MsgLabelNotAssociated  = "Not associated with any control"
	MsgNoNameAttribute     = "No name attribute"
	MsgNoHeaderCells       = "No header cells"
	MsgNestedInteractive   = "Nested interactive element"
	MsgHiddenFocusable     = "Focusable element is hidden"
	MsgDuplicateID         = "Duplicate ID"
	MsgInvalidHeadingLevel = "Invalid heading level"
)

var enabled = rule.Options{Enabled: true}

// All returns the rule set in registration order.
func All() []*rule.Rule {
	return []*rule.Rule{
		TagName,
		Role,
		Landmark,
		Heading,
		PageTitle,
		Lang,
		LinkTarget,
		AccessibleName,
		Description,
		LinkName,
		ImgName,
		ControlName,
		ControlFocus,
		AriaAttrs,
		IDReference,
		Label,
		RadioName,
		TableSize,
		TableHeader,
		NestedInteractive,
		HiddenFocus,
		DuplicateID,
		FrameName,
	}
}

var (
	defaultOnce sync.Once
	defaultReg  *rule.Registry
)

// Registry returns the shared registry of All. It panics if the rule set is
// inconsistent, which the package tests rule out.
func Registry() *rule.Registry {
	defaultOnce.Do(func() {
		reg, err := rule.NewRegistry(All()...)
		if err != nil {
			panic(err)
		}
		defaultReg = reg
	})
	return defaultReg
}

func params(kv ...string) map[string]string {
	m := make(map[string]string, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		m[kv[i]] = kv[i+1]
	}
	return m
}
