package policy

import "github.com/gzhole/intentguard/internal/intent"

// DefaultPriority is assigned to rules that leave priority unset.
const DefaultPriority = 100

// Table is the declarative rule table loaded from YAML.
type Table struct {
	Version string `yaml:"version"`
	Rules   []Rule `yaml:"rules"`
}

// Rule is one intent-matching rule. Lower priority values are evaluated
// first; within a priority tier exclusions run before routing rules.
type Rule struct {
	ID         string          `yaml:"id"`
	Match      Match           `yaml:"match"`
	Category   intent.Category `yaml:"category,omitempty"`
	Target     string          `yaml:"target,omitempty"`
	Priority   int             `yaml:"priority,omitempty"`
	Exclude    bool            `yaml:"exclude,omitempty"`
	TDD        bool            `yaml:"tdd,omitempty"`
	Confidence float64         `yaml:"confidence,omitempty"`
	Reason     string          `yaml:"reason,omitempty"`
}

// Match is the rule predicate. Every non-empty field is an alternative:
// the rule matches when any of them matches the request text.
type Match struct {
	Contains StringOrList `yaml:"contains,omitempty"`
	Prefix   StringOrList `yaml:"prefix,omitempty"`
	Regex    StringOrList `yaml:"regex,omitempty"`
}

// Empty reports whether the predicate has no alternatives.
func (m Match) Empty() bool {
	return len(m.Contains) == 0 && len(m.Prefix) == 0 && len(m.Regex) == 0
}

// StringOrList allows YAML fields to accept either a single string or a list.
// "grep" → ["grep"], ["grep", "rg"] → ["grep", "rg"]
type StringOrList []string

func (s *StringOrList) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var single string
	if err := unmarshal(&single); err == nil {
		*s = []string{single}
		return nil
	}
	var list []string
	if err := unmarshal(&list); err != nil {
		return err
	}
	*s = list
	return nil
}
