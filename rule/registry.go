package rule

import (
	"github.com/cockroachdb/errors"
)

// Registry is an ordered, immutable set of rules. Registration order is the
// order results appear in for a given element.
type Registry struct {
	rules  []*Rule
	byName map[string]*Rule
}

// NewRegistry validates and indexes rules. Names must be unique and
// non-empty, and every rule needs an Evaluate function.
func NewRegistry(rules ...*Rule) (*Registry, error) {
	reg := &Registry{byName: make(map[string]*Rule, len(rules))}
	for i, r := range rules {
		if r == nil || r.Name == "" {
			return nil, errors.Newf("rule: entry %d has no name", i)
		}
		if r.Evaluate == nil {
			return nil, errors.Newf("rule: %s has no evaluate function", r.Name)
		}
		if _, dup := reg.byName[r.Name]; dup {
			return nil, errors.Newf("rule: duplicate name %q", r.Name)
		}
		reg.byName[r.Name] = r
		reg.rules = append(reg.rules, r)
	}
	return reg, nil
}

// Rules returns the rules in registration order. The slice must not be
// modified.
func (reg *Registry) Rules() []*Rule { return reg.rules }

// Lookup returns the named rule or nil.
func (reg *Registry) Lookup(name string) *Rule { return reg.byName[name] }

// Names returns the rule names in registration order.
func (reg *Registry) Names() []string {
	out := make([]string, len(reg.rules))
	for i, r := range reg.rules {
		out[i] = r.Name
	}
	return out
}

// Defaults returns a Settings holding every rule's default options.
func (reg *Registry) Defaults() Settings {
	s := make(Settings, len(reg.rules))
	for _, r := range reg.rules {
		s[r.Name] = r.DefaultOptions
	}
	return s
}

// Settings maps rule names to the options they run with. Absent entries
// fall back to the rule's DefaultOptions.
type Settings map[string]Options

// For returns the options of r: the stored entry merged over the defaults,
// or the defaults alone.
func (s Settings) For(r *Rule) Options {
	if o, ok := s[r.Name]; ok {
		return o.Merge(r.DefaultOptions)
	}
	return r.DefaultOptions
}

// Clone returns a deep copy of s.
func (s Settings) Clone() Settings {
	out := make(Settings, len(s))
	for k, v := range s {
		out[k] = v.Merge(Options{})
	}
	return out
}
