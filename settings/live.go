package settings

import (
	"sync"
	"sync/atomic"

	"github.com/hazyhaar/a11ywatch/rule"
)

// Live publishes the current settings. Readers take an immutable snapshot
// per pass; writers replace it whole. Safe for concurrent use.
type Live struct {
	cur     atomic.Pointer[rule.Settings]
	version atomic.Int64

	mu   sync.Mutex // serialises writers
	subs []func(rule.Settings)
}

// NewLive returns a holder publishing a copy of initial.
func NewLive(initial rule.Settings) *Live {
	l := &Live{}
	s := initial.Clone()
	l.cur.Store(&s)
	return l
}

// Snapshot returns the current settings. Callers must not modify it.
func (l *Live) Snapshot() rule.Settings {
	return *l.cur.Load()
}

// Version counts the replacements since creation.
func (l *Live) Version() int64 { return l.version.Load() }

// Set replaces the settings with a copy of s.
func (l *Live) Set(s rule.Settings) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.publish(s.Clone())
}

// Update replaces the options of one rule.
func (l *Live) Update(name string, o rule.Options) {
	l.mu.Lock()
	defer l.mu.Unlock()
	next := l.Snapshot().Clone()
	next[name] = o.Merge(rule.Options{})
	l.publish(next)
}

// Remove drops the entry of one rule so it runs with its defaults.
func (l *Live) Remove(name string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	next := l.Snapshot().Clone()
	delete(next, name)
	l.publish(next)
}

// OnChange registers fn to be called with every new snapshot.
func (l *Live) OnChange(fn func(rule.Settings)) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.subs = append(l.subs, fn)
}

func (l *Live) publish(s rule.Settings) {
	l.cur.Store(&s)
	l.version.Add(1)
	for _, fn := range l.subs {
		fn(s)
	}
}
