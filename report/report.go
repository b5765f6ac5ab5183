// Package report turns engine passes into audit reports: flat per-element
// entries with their results, isolated rule failures, and summary counts.
// Reports serialise to JSON and render to HTML and Markdown.
package report

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"sort"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/hazyhaar/a11ywatch/dom"
	"github.com/hazyhaar/a11ywatch/engine"
	"github.com/hazyhaar/a11ywatch/rule"
)

// Entry is one element with every result reported for it.
type Entry struct {
	XPath   string        `json:"xpath"`
	Tag     string        `json:"tag"`
	Results rule.Findings `json:"results"`
}

// Failure is a rule that faulted on an element.
type Failure struct {
	RuleName string `json:"ruleName"`
	XPath    string `json:"xpath"`
	Error    string `json:"error"`
}

// Stats summarises a report.
type Stats struct {
	Elements   int            `json:"elements"`
	Reported   int            `json:"reported"`
	Findings   int            `json:"findings"`
	Errors     int            `json:"errors"`
	Warnings   int            `json:"warnings"`
	ByRule     map[string]int `json:"byRule,omitempty"`
	DurationMS int64          `json:"durationMs"`
}

// Report is the outcome of auditing one page.
type Report struct {
	ID        string    `json:"id"`
	URL       string    `json:"url,omitempty"`
	Title     string    `json:"title,omitempty"`
	HTMLHash  string    `json:"htmlHash,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	Entries   []Entry   `json:"entries"`
	Failures  []Failure `json:"failures,omitempty"`
	Stats     Stats     `json:"stats"`
}

// Meta describes the audited page.
type Meta struct {
	ID        string
	URL       string
	Title     string
	HTMLHash  string
	CreatedAt time.Time
}

// Build converts an engine result into a report.
func Build(res engine.Result, meta Meta) *Report {
	created := meta.CreatedAt
	if created.IsZero() {
		created = time.Now().UTC()
	}
	r := &Report{
		ID:        meta.ID,
		URL:       meta.URL,
		Title:     meta.Title,
		HTMLHash:  meta.HTMLHash,
		CreatedAt: created,
		Entries:   make([]Entry, 0, len(res.Elements)),
	}
	for _, el := range res.Elements {
		r.Entries = append(r.Entries, Entry{XPath: el.XPath, Tag: dom.Tag(el.Element), Results: el.Results})
	}
	for _, f := range res.Failures {
		msg := ""
		if f.Err != nil {
			msg = f.Err.Error()
		}
		r.Failures = append(r.Failures, Failure{RuleName: f.RuleName, XPath: f.XPath, Error: msg})
	}
	r.Stats = computeStats(r.Entries)
	r.Stats.Elements = res.Visited
	r.Stats.DurationMS = res.Duration.Milliseconds()
	return r
}

func computeStats(entries []Entry) Stats {
	s := Stats{Reported: len(entries)}
	for _, e := range entries {
		for _, res := range e.Results {
			s.Findings++
			switch res.Type {
			case rule.TypeError:
				s.Errors++
			case rule.TypeWarning:
				s.Warnings++
			default:
				continue
			}
			if s.ByRule == nil {
				s.ByRule = make(map[string]int)
			}
			s.ByRule[res.RuleName]++
		}
	}
	return s
}

// Violation is one error or warning with its location.
type Violation struct {
	XPath  string
	Tag    string
	Result rule.Result
}

// Violations returns the errors and warnings of the report in entry order.
func (r *Report) Violations() []Violation {
	var out []Violation
	for _, e := range r.Entries {
		for _, res := range e.Results {
			if res.IsViolation() {
				out = append(out, Violation{XPath: e.XPath, Tag: e.Tag, Result: res})
			}
		}
	}
	return out
}

// RuleCount is the number of violations of one rule.
type RuleCount struct {
	RuleName string `json:"ruleName"`
	Count    int    `json:"count"`
}

// TopRules returns per-rule violation counts, highest first, ties by name.
func (s Stats) TopRules() []RuleCount {
	out := make([]RuleCount, 0, len(s.ByRule))
	for name, n := range s.ByRule {
		out = append(out, RuleCount{RuleName: name, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].RuleName < out[j].RuleName
	})
	return out
}

// Marshal encodes a report as indented JSON.
func Marshal(r *Report) ([]byte, error) {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return nil, errors.Wrap(err, "report: marshal")
	}
	return data, nil
}

// Unmarshal decodes a report produced by Marshal.
func Unmarshal(data []byte) (*Report, error) {
	var r Report
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, errors.Wrap(err, "report: unmarshal")
	}
	if r.Entries == nil {
		r.Entries = []Entry{}
	}
	return &r, nil
}

// HashHTML fingerprints the audited markup.
func HashHTML(src []byte) string {
	sum := sha256.Sum256(src)
	return "sha256:" + hex.EncodeToString(sum[:])
}
