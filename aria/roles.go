// Package aria holds the static WAI-ARIA knowledge the rules reason over:
// the closed set of known roles with their superclass hierarchy, the
// implicit role of HTML elements, and the ARIA attribute table with its
// value and role-compatibility checks.
package aria

import (
	"sort"
	"strings"
)

// Role is a WAI-ARIA role name. Only members of the known set are ever
// produced by this package.
type Role string

// NameFrom tells where a role's accessible name may come from.
type NameFrom int

const (
	// NameFromAuthor roles are named by aria-label, aria-labelledby or host
	// language labels only.
	NameFromAuthor NameFrom = iota
	// NameFromContents roles may also be named by their descendants' text.
	NameFromContents
	// NameProhibited roles cannot be named.
	NameProhibited
)

type roleDef struct {
	super    []Role
	abstract bool
	name     NameFrom
}

const (
	byContents = NameFromContents
	prohibited = NameProhibited
)

var roleTable = map[Role]roleDef{
	// Abstract roles.
	"roletype":    {abstract: true},
	"structure":   {super: []Role{"roletype"}, abstract: true},
	"widget":      {super: []Role{"roletype"}, abstract: true},
	"window":      {super: []Role{"roletype"}, abstract: true},
	"command":     {super: []Role{"widget"}, abstract: true},
	"composite":   {super: []Role{"widget"}, abstract: true},
	"input":       {super: []Role{"widget"}, abstract: true},
	"range":       {super: []Role{"structure"}, abstract: true},
	"section":     {super: []Role{"structure"}, abstract: true},
	"sectionhead": {super: []Role{"structure"}, abstract: true, name: byContents},
	"landmark":    {super: []Role{"section"}, abstract: true},
	"select":      {super: []Role{"composite", "group"}, abstract: true},

	// Document structure and widgets.
	"alert":            {super: []Role{"section"}},
	"alertdialog":      {super: []Role{"alert", "dialog"}},
	"application":      {super: []Role{"structure"}},
	"article":          {super: []Role{"document"}},
	"banner":           {super: []Role{"landmark"}},
	"blockquote":       {super: []Role{"section"}},
	"button":           {super: []Role{"command"}, name: byContents},
	"caption":          {super: []Role{"section"}, name: prohibited},
	"cell":             {super: []Role{"section"}, name: byContents},
	"checkbox":         {super: []Role{"input"}, name: byContents},
	"code":             {super: []Role{"section"}, name: prohibited},
	"columnheader":     {super: []Role{"cell", "gridcell", "sectionhead"}, name: byContents},
	"combobox":         {super: []Role{"input"}},
	"comment":          {super: []Role{"article"}, name: byContents},
	"complementary":    {super: []Role{"landmark"}},
	"contentinfo":      {super: []Role{"landmark"}},
	"definition":       {super: []Role{"section"}},
	"deletion":         {super: []Role{"section"}, name: prohibited},
	"dialog":           {super: []Role{"window"}},
	"directory":        {super: []Role{"list"}},
	"document":         {super: []Role{"structure"}},
	"emphasis":         {super: []Role{"section"}, name: prohibited},
	"feed":             {super: []Role{"list"}},
	"figure":           {super: []Role{"section"}},
	"form":             {super: []Role{"landmark"}},
	"generic":          {super: []Role{"structure"}, name: prohibited},
	"grid":             {super: []Role{"composite", "table"}},
	"gridcell":         {super: []Role{"cell", "widget"}, name: byContents},
	"group":            {super: []Role{"section"}},
	"heading":          {super: []Role{"sectionhead"}, name: byContents},
	"img":              {super: []Role{"section"}},
	"insertion":        {super: []Role{"section"}, name: prohibited},
	"link":             {super: []Role{"command"}, name: byContents},
	"list":             {super: []Role{"section"}},
	"listbox":          {super: []Role{"select"}},
	"listitem":         {super: []Role{"section"}},
	"log":              {super: []Role{"section"}},
	"main":             {super: []Role{"landmark"}},
	"mark":             {super: []Role{"section"}, name: prohibited},
	"marquee":          {super: []Role{"section"}},
	"math":             {super: []Role{"section"}},
	"menu":             {super: []Role{"select"}},
	"menubar":          {super: []Role{"menu"}},
	"menuitem":         {super: []Role{"command"}, name: byContents},
	"menuitemcheckbox": {super: []Role{"menuitem"}, name: byContents},
	"menuitemradio":    {super: []Role{"menuitemcheckbox"}, name: byContents},
	"meter":            {super: []Role{"range"}},
	"navigation":       {super: []Role{"landmark"}},
	"none":             {super: []Role{"structure"}, name: prohibited},
	"note":             {super: []Role{"section"}},
	"option":           {super: []Role{"input"}, name: byContents},
	"paragraph":        {super: []Role{"section"}, name: prohibited},
	"presentation":     {super: []Role{"structure"}, name: prohibited},
	"progressbar":      {super: []Role{"range", "widget"}},
	"radio":            {super: []Role{"input"}, name: byContents},
	"radiogroup":       {super: []Role{"select"}},
	"region":           {super: []Role{"landmark"}},
	"row":              {super: []Role{"group", "widget"}, name: byContents},
	"rowgroup":         {super: []Role{"structure"}, name: byContents},
	"rowheader":        {super: []Role{"cell", "gridcell", "sectionhead"}, name: byContents},
	"scrollbar":        {super: []Role{"range", "widget"}},
	"search":           {super: []Role{"landmark"}},
	"searchbox":        {super: []Role{"textbox"}},
	"separator":        {super: []Role{"structure"}},
	"slider":           {super: []Role{"input", "range"}},
	"spinbutton":       {super: []Role{"composite", "input", "range"}},
	"status":           {super: []Role{"section"}},
	"strong":           {super: []Role{"section"}, name: prohibited},
	"subscript":        {super: []Role{"section"}, name: prohibited},
	"suggestion":       {super: []Role{"section"}, name: prohibited},
	"superscript":      {super: []Role{"section"}, name: prohibited},
	"switch":           {super: []Role{"checkbox"}, name: byContents},
	"tab":              {super: []Role{"sectionhead", "widget"}, name: byContents},
	"table":            {super: []Role{"section"}},
	"tablist":          {super: []Role{"composite"}},
	"tabpanel":         {super: []Role{"section"}},
	"term":             {super: []Role{"section"}, name: byContents},
	"textbox":          {super: []Role{"input"}},
	"time":             {super: []Role{"section"}},
	"timer":            {super: []Role{"status"}},
	"toolbar":          {super: []Role{"group"}},
	"tooltip":          {super: []Role{"section"}, name: byContents},
	"tree":             {super: []Role{"select"}},
	"treegrid":         {super: []Role{"grid", "tree"}},
	"treeitem":         {super: []Role{"listitem", "option"}, name: byContents},

	// SVG.
	"graphics-document": {super: []Role{"document"}},
	"graphics-object":   {super: []Role{"group"}, name: byContents},
	"graphics-symbol":   {super: []Role{"img"}},

	// Digital publishing.
	"doc-abstract":        {super: []Role{"section"}},
	"doc-acknowledgments": {super: []Role{"landmark"}},
	"doc-afterword":       {super: []Role{"landmark"}},
	"doc-appendix":        {super: []Role{"landmark"}},
	"doc-backlink":        {super: []Role{"link"}, name: byContents},
	"doc-biblioentry":     {super: []Role{"listitem"}},
	"doc-bibliography":    {super: []Role{"landmark"}},
	"doc-biblioref":       {super: []Role{"link"}, name: byContents},
	"doc-chapter":         {super: []Role{"landmark"}},
	"doc-colophon":        {super: []Role{"section"}},
	"doc-conclusion":      {super: []Role{"landmark"}},
	"doc-cover":           {super: []Role{"img"}},
	"doc-credit":          {super: []Role{"section"}},
	"doc-credits":         {super: []Role{"landmark"}},
	"doc-dedication":      {super: []Role{"section"}},
	"doc-endnote":         {super: []Role{"listitem"}},
	"doc-endnotes":        {super: []Role{"landmark"}},
	"doc-epigraph":        {super: []Role{"section"}},
	"doc-epilogue":        {super: []Role{"landmark"}},
	"doc-errata":          {super: []Role{"landmark"}},
	"doc-example":         {super: []Role{"section"}},
	"doc-footnote":        {super: []Role{"section"}},
	"doc-foreword":        {super: []Role{"landmark"}},
	"doc-glossary":        {super: []Role{"landmark"}},
	"doc-glossref":        {super: []Role{"link"}, name: byContents},
	"doc-index":           {super: []Role{"navigation"}},
	"doc-introduction":    {super: []Role{"landmark"}},
	"doc-noteref":         {super: []Role{"link"}, name: byContents},
	"doc-notice":          {super: []Role{"note"}},
	"doc-pagebreak":       {super: []Role{"separator"}},
	"doc-pagefooter":      {super: []Role{"section"}, name: prohibited},
	"doc-pageheader":      {super: []Role{"section"}, name: prohibited},
	"doc-pagelist":        {super: []Role{"navigation"}},
	"doc-part":            {super: []Role{"landmark"}},
	"doc-preface":         {super: []Role{"landmark"}},
	"doc-prologue":        {super: []Role{"landmark"}},
	"doc-pullquote":       {super: []Role{"section"}},
	"doc-qna":             {super: []Role{"section"}},
	"doc-subtitle":        {super: []Role{"sectionhead"}, name: byContents},
	"doc-tip":             {super: []Role{"note"}},
	"doc-toc":             {super: []Role{"navigation"}},
}

// ancestors is the transitive superclass closure of every role, computed once.
var ancestors = func() map[Role]map[Role]bool {
	out := make(map[Role]map[Role]bool, len(roleTable))
	var collect func(r Role, into map[Role]bool)
	collect = func(r Role, into map[Role]bool) {
		for _, s := range roleTable[r].super {
			if !into[s] {
				into[s] = true
				collect(s, into)
			}
		}
	}
	for r := range roleTable {
		set := make(map[Role]bool)
		collect(r, set)
		out[r] = set
	}
	return out
}()

// Lookup normalises a single role token and reports whether it is known.
func Lookup(token string) (Role, bool) {
	r := Role(strings.ToLower(strings.TrimSpace(token)))
	_, ok := roleTable[r]
	return r, ok
}

// IsKnown reports whether r belongs to the known set.
func IsKnown(r Role) bool {
	_, ok := roleTable[r]
	return ok
}

// IsAbstract reports whether r is an abstract role. Authors must not use
// abstract roles.
func IsAbstract(r Role) bool {
	return roleTable[r].abstract
}

// Is reports whether r is super or inherits from it.
func Is(r, super Role) bool {
	return r == super || ancestors[r][super]
}

// Superclasses returns every role r inherits from, sorted by name.
func Superclasses(r Role) []Role {
	out := make([]Role, 0, len(ancestors[r]))
	for s := range ancestors[r] {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// IsLandmark reports whether r is a concrete landmark role.
func IsLandmark(r Role) bool {
	return !IsAbstract(r) && Is(r, "landmark")
}

// IsWidget reports whether r is a concrete widget role.
func IsWidget(r Role) bool {
	return !IsAbstract(r) && Is(r, "widget")
}

// NameSource returns where names of r come from. Unknown roles behave like
// NameFromAuthor.
func NameSource(r Role) NameFrom {
	if def, ok := roleTable[r]; ok {
		return def.name
	}
	return NameFromAuthor
}

// CanBeNamed reports whether authors may name elements with role r.
func CanBeNamed(r Role) bool {
	return NameSource(r) != NameProhibited
}

// Roles returns the full known set sorted by name.
func Roles() []Role {
	out := make([]Role, 0, len(roleTable))
	for r := range roleTable {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
