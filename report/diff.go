package report

import (
	"sort"
	"strings"
)

// Diff lists the violations that appeared or disappeared between two audits
// of the same page. Violations match on location, rule, message and params.
type Diff struct {
	Added     []Violation `json:"added"`
	Resolved  []Violation `json:"resolved"`
	Unchanged int         `json:"unchanged"`
}

// Regressed reports whether cur introduced violations.
func (d Diff) Regressed() bool { return len(d.Added) > 0 }

// Compare diffs the violations of prev against cur. A nil prev treats every
// violation of cur as added.
func Compare(prev, cur *Report) Diff {
	d := Diff{Added: []Violation{}, Resolved: []Violation{}}
	before := map[string]int{}
	if prev != nil {
		for _, v := range prev.Violations() {
			before[v.key()]++
		}
	}
	for _, v := range cur.Violations() {
		k := v.key()
		if before[k] > 0 {
			before[k]--
			d.Unchanged++
			continue
		}
		d.Added = append(d.Added, v)
	}
	if prev != nil {
		for _, v := range prev.Violations() {
			k := v.key()
			if before[k] > 0 {
				before[k]--
				d.Resolved = append(d.Resolved, v)
			}
		}
	}
	return d
}

func (v Violation) key() string {
	var b strings.Builder
	b.WriteString(v.XPath)
	b.WriteByte('|')
	b.WriteString(v.Result.RuleName)
	b.WriteByte('|')
	b.WriteString(string(v.Result.Type))
	b.WriteByte('|')
	b.WriteString(v.Result.Message)
	keys := make([]string, 0, len(v.Result.MessageParams))
	for k := range v.Result.MessageParams {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		b.WriteByte('|')
		b.WriteString(k)
		b.WriteByte('=')
		b.WriteString(v.Result.MessageParams[k])
	}
	return b.String()
}
