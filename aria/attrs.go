package aria

import (
	"math"
	"sort"
	"strconv"
	"strings"
)

// ValueType is the value domain of an ARIA attribute.
type ValueType int

const (
	Boolean ValueType = iota
	Token
	TokenList
	Integer
	Float
	IDRef
	IDRefs
	String
)

var valueTypeNames = [...]string{"boolean", "token", "token list", "integer", "float", "ID reference", "ID reference list", "string"}

func (t ValueType) String() string {
	if int(t) < len(valueTypeNames) {
		return valueTypeNames[t]
	}
	return "unknown"
}

// Attribute describes one ARIA state or property.
type Attribute struct {
	Name   string
	Type   ValueType
	Values []string // allowed tokens for Token and TokenList
	Global bool
	Roles  []Role // roles (and their subclasses) supporting a non-global attribute
}

var (
	boolTri  = []string{"true", "false", "undefined"}
	boolMix  = []string{"true", "false", "mixed", "undefined"}
	rangeish = []Role{"range", "scrollbar", "separator", "slider", "spinbutton"}
	rowish   = []Role{"cell", "row"}
	setItems = []Role{"article", "listitem", "menuitem", "option", "radio", "row", "tab"}
)

var attrTable = map[string]Attribute{}

func init() {
	for _, at := range []Attribute{
		// Global states and properties.
		{Name: "aria-atomic", Type: Boolean, Global: true},
		{Name: "aria-braillelabel", Type: String, Global: true},
		{Name: "aria-brailleroledescription", Type: String, Global: true},
		{Name: "aria-busy", Type: Boolean, Global: true},
		{Name: "aria-controls", Type: IDRefs, Global: true},
		{Name: "aria-current", Type: Token, Global: true, Values: []string{"page", "step", "location", "date", "time", "true", "false"}},
		{Name: "aria-describedby", Type: IDRefs, Global: true},
		{Name: "aria-description", Type: String, Global: true},
		{Name: "aria-details", Type: IDRef, Global: true},
		{Name: "aria-disabled", Type: Boolean, Global: true},
		{Name: "aria-dropeffect", Type: TokenList, Global: true, Values: []string{"copy", "execute", "link", "move", "none", "popup"}},
		{Name: "aria-errormessage", Type: IDRef, Global: true},
		{Name: "aria-flowto", Type: IDRefs, Global: true},
		{Name: "aria-grabbed", Type: Token, Global: true, Values: boolTri},
		{Name: "aria-haspopup", Type: Token, Global: true, Values: []string{"false", "true", "menu", "listbox", "tree", "grid", "dialog"}},
		{Name: "aria-hidden", Type: Token, Global: true, Values: boolTri},
		{Name: "aria-invalid", Type: Token, Global: true, Values: []string{"grammar", "false", "spelling", "true"}},
		{Name: "aria-keyshortcuts", Type: String, Global: true},
		{Name: "aria-label", Type: String, Global: true},
		{Name: "aria-labelledby", Type: IDRefs, Global: true},
		{Name: "aria-live", Type: Token, Global: true, Values: []string{"assertive", "off", "polite"}},
		{Name: "aria-owns", Type: IDRefs, Global: true},
		{Name: "aria-relevant", Type: TokenList, Global: true, Values: []string{"additions", "all", "removals", "text"}},
		{Name: "aria-roledescription", Type: String, Global: true},

		// Widget, relationship and range attributes.
		{Name: "aria-activedescendant", Type: IDRef, Roles: []Role{"application", "combobox", "composite", "group", "textbox"}},
		{Name: "aria-autocomplete", Type: Token, Values: []string{"inline", "list", "both", "none"}, Roles: []Role{"combobox", "textbox"}},
		{Name: "aria-checked", Type: Token, Values: boolMix, Roles: []Role{"checkbox", "menuitemcheckbox", "menuitemradio", "option", "radio", "switch", "treeitem"}},
		{Name: "aria-colcount", Type: Integer, Roles: []Role{"table"}},
		{Name: "aria-colindex", Type: Integer, Roles: rowish},
		{Name: "aria-colindextext", Type: String, Roles: rowish},
		{Name: "aria-colspan", Type: Integer, Roles: []Role{"cell"}},
		{Name: "aria-expanded", Type: Token, Values: boolTri, Roles: []Role{"application", "button", "checkbox", "combobox", "gridcell", "link", "listbox", "menuitem", "row", "rowheader", "tab", "treeitem"}},
		{Name: "aria-level", Type: Integer, Roles: []Role{"heading", "listitem", "row"}},
		{Name: "aria-modal", Type: Boolean, Roles: []Role{"dialog"}},
		{Name: "aria-multiline", Type: Boolean, Roles: []Role{"textbox"}},
		{Name: "aria-multiselectable", Type: Boolean, Roles: []Role{"grid", "listbox", "tablist", "tree"}},
		{Name: "aria-orientation", Type: Token, Values: []string{"horizontal", "vertical", "undefined"}, Roles: []Role{"scrollbar", "select", "separator", "slider", "tablist", "toolbar"}},
		{Name: "aria-placeholder", Type: String, Roles: []Role{"textbox"}},
		{Name: "aria-posinset", Type: Integer, Roles: setItems},
		{Name: "aria-pressed", Type: Token, Values: boolMix, Roles: []Role{"button"}},
		{Name: "aria-readonly", Type: Boolean, Roles: []Role{"checkbox", "combobox", "grid", "gridcell", "listbox", "radiogroup", "slider", "spinbutton", "textbox"}},
		{Name: "aria-required", Type: Boolean, Roles: []Role{"checkbox", "combobox", "gridcell", "listbox", "radiogroup", "spinbutton", "textbox", "tree"}},
		{Name: "aria-rowcount", Type: Integer, Roles: []Role{"table"}},
		{Name: "aria-rowindex", Type: Integer, Roles: rowish},
		{Name: "aria-rowindextext", Type: String, Roles: rowish},
		{Name: "aria-rowspan", Type: Integer, Roles: []Role{"cell"}},
		{Name: "aria-selected", Type: Token, Values: boolTri, Roles: []Role{"gridcell", "option", "row", "tab"}},
		{Name: "aria-setsize", Type: Integer, Roles: setItems},
		{Name: "aria-sort", Type: Token, Values: []string{"ascending", "descending", "none", "other"}, Roles: []Role{"columnheader", "rowheader"}},
		{Name: "aria-valuemax", Type: Float, Roles: rangeish},
		{Name: "aria-valuemin", Type: Float, Roles: rangeish},
		{Name: "aria-valuenow", Type: Float, Roles: rangeish},
		{Name: "aria-valuetext", Type: String, Roles: rangeish},
	} {
		attrTable[at.Name] = at
	}
}

// LookupAttr returns the table entry for an ARIA attribute name.
func LookupAttr(name string) (Attribute, bool) {
	at, ok := attrTable[strings.ToLower(name)]
	return at, ok
}

// Known reports whether name is a known ARIA attribute.
func Known(name string) bool {
	_, ok := LookupAttr(name)
	return ok
}

// Attributes returns every known attribute sorted by name.
func Attributes() []Attribute {
	out := make([]Attribute, 0, len(attrTable))
	for _, at := range attrTable {
		out = append(out, at)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// ReferenceAttributes returns the names of attributes holding ID
// references, sorted.
func ReferenceAttributes() []string {
	var out []string
	for name, at := range attrTable {
		if at.Type == IDRef || at.Type == IDRefs {
			out = append(out, name)
		}
	}
	sort.Strings(out)
	return out
}

// Validate checks value against the domain of the named attribute. An empty
// value is valid for booleans, tokens and strings (it means "default") and
// invalid for numbers and references. Unknown attributes never validate.
func Validate(name, value string) bool {
	at, ok := LookupAttr(name)
	if !ok {
		return false
	}
	v := strings.ToLower(strings.TrimSpace(value))
	switch at.Type {
	case Boolean:
		return v == "" || v == "true" || v == "false"
	case Token:
		return v == "" || contains(at.Values, v)
	case TokenList:
		for _, tok := range strings.Fields(v) {
			if !contains(at.Values, tok) {
				return false
			}
		}
		return true
	case Integer:
		_, err := strconv.Atoi(v)
		return err == nil
	case Float:
		f, err := strconv.ParseFloat(v, 64)
		return err == nil && !math.IsNaN(f) && !math.IsInf(f, 0)
	case IDRef:
		return v != "" && len(strings.Fields(v)) == 1
	case IDRefs:
		return v != ""
	default:
		return true
	}
}

// IsAllowedForRole reports whether the named attribute may appear on an
// element whose resolved role is role (ok == false when there is none).
// Global attributes are allowed everywhere, except that naming attributes
// are prohibited on roles that cannot be named. Other attributes require the
// role or one of its superclasses to be listed.
func IsAllowedForRole(name string, role Role, ok bool) bool {
	at, known := LookupAttr(name)
	if !known {
		return false
	}
	if at.Global {
		switch at.Name {
		case "aria-label", "aria-labelledby", "aria-braillelabel":
			return !ok || CanBeNamed(role)
		}
		return true
	}
	if !ok {
		return false
	}
	for _, r := range at.Roles {
		if Is(role, r) {
			return true
		}
	}
	return false
}

// nativeControlAttrs are the state attributes HTML-AAM allows on native form
// controls that have no ARIA role.
var nativeControlAttrs = []string{"aria-invalid", "aria-readonly", "aria-required"}

// IsAllowedOnNativeControl reports whether name may be set on a roleless
// native form control (see NativeFormControl).
func IsAllowedOnNativeControl(name string) bool {
	if IsAllowedForRole(name, "", false) {
		return true
	}
	return contains(nativeControlAttrs, name)
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
