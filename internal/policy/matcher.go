package policy

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/gzhole/intentguard/internal/intent"
)

// Matcher evaluates a compiled rule table against requests. It is
// immutable after Compile and safe for concurrent use.
type Matcher struct {
	rules []compiledRule
}

type compiledRule struct {
	Rule
	contains []string
	prefixes []string
	regexes  []*regexp.Regexp
}

// Compile validates the table and orders its rules by ascending priority,
// exclusions first within a tier, declaration order otherwise.
func Compile(t *Table) (*Matcher, error) {
	if t == nil {
		t = DefaultTable()
	}

	seen := make(map[string]bool)
	compiled := make([]compiledRule, 0, len(t.Rules))
	for i, r := range t.Rules {
		if r.ID == "" {
			return nil, fmt.Errorf("rule %d: missing id", i)
		}
		if seen[r.ID] {
			return nil, fmt.Errorf("rule %s: duplicate id", r.ID)
		}
		seen[r.ID] = true
		if r.Match.Empty() {
			return nil, fmt.Errorf("rule %s: empty match", r.ID)
		}
		if !r.Exclude && (r.Category == "" || r.Category == intent.CategoryNone) {
			return nil, fmt.Errorf("rule %s: routing rule needs a category", r.ID)
		}
		if r.Confidence < 0 || r.Confidence > 1 {
			return nil, fmt.Errorf("rule %s: confidence %.2f outside [0,1]", r.ID, r.Confidence)
		}

		cr := compiledRule{Rule: r}
		if cr.Priority == 0 {
			cr.Priority = DefaultPriority
		}
		if cr.Confidence == 0 {
			cr.Confidence = 1.0
		}
		for _, c := range r.Match.Contains {
			cr.contains = append(cr.contains, strings.ToLower(c))
		}
		for _, p := range r.Match.Prefix {
			cr.prefixes = append(cr.prefixes, strings.ToLower(p))
		}
		for _, expr := range r.Match.Regex {
			re, err := regexp.Compile("(?i)" + expr)
			if err != nil {
				return nil, fmt.Errorf("rule %s: invalid regex: %w", r.ID, err)
			}
			cr.regexes = append(cr.regexes, re)
		}
		compiled = append(compiled, cr)
	}

	sort.SliceStable(compiled, func(i, j int) bool {
		if compiled[i].Priority != compiled[j].Priority {
			return compiled[i].Priority < compiled[j].Priority
		}
		return compiled[i].Exclude && !compiled[j].Exclude
	})

	return &Matcher{rules: compiled}, nil
}

// MustCompile is Compile for tables known to be valid, such as DefaultTable.
func MustCompile(t *Table) *Matcher {
	m, err := Compile(t)
	if err != nil {
		panic(err)
	}
	return m
}

// Match returns the result of the first rule whose predicate matches.
// ok is false when no rule matched. A matching exclusion returns a none
// result with ok set, which callers must treat as final.
func (m *Matcher) Match(req intent.Request) (intent.Result, bool) {
	text := strings.TrimSpace(req.MatchText())
	if text == "" {
		return intent.Result{}, false
	}
	lower := strings.ToLower(text)

	for _, r := range m.rules {
		if !r.matches(text, lower) {
			continue
		}
		if r.Exclude {
			res := intent.None()
			res.Source = intent.SourcePattern
			res.RuleID = r.ID
			res.Reason = r.Reason
			return res, true
		}
		return intent.Result{
			Source:     intent.SourcePattern,
			Category:   r.Category,
			Confidence: r.Confidence,
			Target:     r.Target,
			TDD:        r.TDD,
			RuleID:     r.ID,
			Reason:     r.Reason,
		}, true
	}
	return intent.Result{}, false
}

// Rules returns the evaluation order (for inspection and listing).
func (m *Matcher) Rules() []Rule {
	out := make([]Rule, len(m.rules))
	for i, r := range m.rules {
		out[i] = r.Rule
	}
	return out
}

func (r compiledRule) matches(text, lower string) bool {
	for _, c := range r.contains {
		if strings.Contains(lower, c) {
			return true
		}
	}
	for _, p := range r.prefixes {
		if strings.HasPrefix(lower, p) {
			return true
		}
	}
	for _, re := range r.regexes {
		if re.MatchString(text) {
			return true
		}
	}
	return false
}
