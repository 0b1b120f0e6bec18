package policy

import (
	"fmt"
	"os"

	"github.com/gzhole/intentguard/internal/intent"
	"gopkg.in/yaml.v3"
)

// Load reads a rule table from path. A missing file yields DefaultTable.
func Load(path string) (*Table, error) {
	if path == "" {
		return DefaultTable(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultTable(), nil
		}
		return nil, err
	}

	var table Table
	if err := yaml.Unmarshal(data, &table); err != nil {
		return nil, fmt.Errorf("failed to parse rule table %s: %w", path, err)
	}
	if table.Version == "" {
		table.Version = "0.1"
	}
	applyRuleDefaults(table.Rules)

	return &table, nil
}

func applyRuleDefaults(rules []Rule) {
	for i := range rules {
		if rules[i].Priority == 0 {
			rules[i].Priority = DefaultPriority
		}
		if rules[i].Confidence == 0 {
			rules[i].Confidence = 1.0
		}
	}
}

// DefaultTable is the built-in rule table. Exclusions sit in the lowest
// tier so a question-shaped prompt never reaches a routing rule.
func DefaultTable() *Table {
	rules := []Rule{
		// --- Exclusions ---
		{
			ID:       "simple-question",
			Priority: 10,
			Exclude:  true,
			Match: Match{Regex: StringOrList{
				`^(what|who|why|when|where|which|how)('s|\s+(is|are|was|were|does|do|did|should|would|can|could))\b[^.!]*\?\s*$`,
			}},
			Reason: "Looks like a simple question.",
		},
		{
			ID:       "yes-no-question",
			Priority: 10,
			Exclude:  true,
			Match: Match{Regex: StringOrList{
				`^(is|are|does|do|did|can|could|should|would|will)\s+(it|this|that|there|these|those|we|i)\b[^.!]*\?\s*$`,
			}},
			Reason: "Looks like a yes/no question.",
		},
		{
			ID:       "acknowledgement",
			Priority: 10,
			Exclude:  true,
			Match: Match{Regex: StringOrList{
				`^(ok|okay|k|thanks|thank you|thx|yes|yep|no|nope|sure|great|cool|nice|lgtm|sounds good|got it)[.!\s]*$`,
			}},
			Reason: "Conversational acknowledgement.",
		},
		{
			ID:       "explain-request",
			Priority: 10,
			Exclude:  true,
			Match: Match{Regex: StringOrList{
				`^(explain|describe|summari[sz]e|tell me (about|what|why|how))\b`,
			}},
			Reason: "Request for an explanation.",
		},

		// --- Utility agents ---
		{
			ID:       "file-search",
			Priority: 20,
			Category: intent.CategoryFileSearch,
			Target:   "file-search",
			Match: Match{Regex: StringOrList{
				`\b(find|list|locate|show|search for)\s+(me\s+)?(all\s+)?(the\s+)?(\w+\s+)?files?\b`,
				`\bfiles?\s+(matching|named|called|ending in|with (the )?extension)\b`,
			}},
			Reason: "File search request.",
		},
		{
			ID:       "code-search",
			Priority: 20,
			Category: intent.CategoryCodeSearch,
			Target:   "code-search",
			Match: Match{Regex: StringOrList{
				`\b(search|grep)\s+(through\s+|in\s+)?(the\s+)?(code(base)?|repo(sitory)?|project|source)\b`,
				`\bfind\s+(all\s+)?(the\s+)?(usages|references|occurrences|callers|definitions?)\s+(of|for)\b`,
				`\bwhere\s+is\s+\S+\s+(defined|declared|implemented|used|called)\b`,
			}},
			Reason: "Code search request.",
		},
		{
			ID:       "test-run",
			Priority: 20,
			Category: intent.CategoryTestRun,
			Target:   "test-runner",
			Match: Match{Regex: StringOrList{
				`^(please\s+)?(run|execute|rerun|re-run)\s+(all\s+)?(the\s+)?(unit\s+|integration\s+|e2e\s+)?(tests?|test suite|specs?)\b`,
			}},
			Reason: "Test run request.",
		},
		{
			ID:       "dependency-audit",
			Priority: 20,
			Category: intent.CategoryDependency,
			Target:   "dependency-auditor",
			Match: Match{Regex: StringOrList{
				`\b(audit|check|update|upgrade|list)\s+(all\s+)?(the\s+|our\s+|my\s+)?(outdated\s+|vulnerable\s+)?(dependencies|deps|packages)\b`,
			}},
			Reason: "Dependency audit request.",
		},
		{
			ID:       "docs-lookup",
			Priority: 20,
			Category: intent.CategoryDocsLookup,
			Target:   "docs-lookup",
			Match: Match{Regex: StringOrList{
				`\b(look\s*up|find|fetch|check|read|open|pull up)\s+(the\s+)?(official\s+)?(docs|documentation|api reference|man page)\b`,
			}},
			Reason: "Documentation lookup request.",
		},
		{
			ID:       "git-history",
			Priority: 20,
			Category: intent.CategoryGitHistory,
			Target:   "git-historian",
			Match: Match{
				Contains: StringOrList{"git log", "git blame", "commit history"},
				Regex:    StringOrList{`\bwho\s+(last\s+)?(changed|modified|wrote|touched)\b`},
			},
			Reason: "Repository history request.",
		},

		// --- Explicit workflows ---
		{
			ID:       "tdd-workflow",
			Priority: 30,
			Category: intent.CategoryFeature,
			Target:   "tdd-development",
			TDD:      true,
			Match: Match{Regex: StringOrList{
				`\b(using|with|via|follow(ing)?)\s+(tdd|test[- ]driven( development)?)\b`,
				`\btest[- ]first\b`,
			}},
			Reason: "Explicit test-driven development request.",
		},
		{
			ID:         "explicit-debug",
			Priority:   30,
			Category:   intent.CategoryDebug,
			Confidence: 0.9,
			Match: Match{Regex: StringOrList{
				`\b(debug|diagnose|troubleshoot)\s+(this|the|our|my|why)\b`,
			}},
			Reason: "Explicit debugging request.",
		},
		{
			ID:         "explicit-refactor",
			Priority:   30,
			Category:   intent.CategoryRefactor,
			Confidence: 0.9,
			Match:      Match{Prefix: StringOrList{"refactor ", "please refactor "}},
			Reason:     "Explicit refactoring request.",
		},
	}
	applyRuleDefaults(rules)

	return &Table{Version: "0.1", Rules: rules}
}
