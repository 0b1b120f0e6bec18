package router

import (
	"sort"

	"github.com/gzhole/intentguard/internal/intent"
)

// Urgency ranks how much a category is worth interrupting the user for.
type Urgency int

const (
	UrgencyLow Urgency = iota
	UrgencyMedium
	UrgencyHigh
)

func (u Urgency) String() string {
	switch u {
	case UrgencyHigh:
		return "high"
	case UrgencyMedium:
		return "medium"
	default:
		return "low"
	}
}

var urgency = map[intent.Category]Urgency{
	intent.CategoryFileSearch: UrgencyHigh,
	intent.CategoryCodeSearch: UrgencyHigh,
	intent.CategoryTestRun:    UrgencyHigh,
	intent.CategoryDependency: UrgencyHigh,
	intent.CategoryDocsLookup: UrgencyHigh,
	intent.CategoryGitHistory: UrgencyHigh,
	intent.CategoryDebug:      UrgencyHigh,

	intent.CategoryFeature:  UrgencyMedium,
	intent.CategoryRefactor: UrgencyMedium,
	intent.CategoryTest:     UrgencyMedium,

	intent.CategoryReview: UrgencyLow,
	intent.CategoryDocs:   UrgencyLow,
}

// UrgencyOf returns the urgency of a category. Unknown categories are low.
func UrgencyOf(c intent.Category) Urgency {
	return urgency[c]
}

// Target is a routing destination.
type Target struct {
	ID          string       `json:"id" yaml:"id"`
	Type        DecisionType `json:"type" yaml:"type"`
	Description string       `json:"description" yaml:"description"`
}

// TDDTarget is the workflow a feature request is routed to in tdd mode.
var TDDTarget = Target{ID: "tdd-development", Type: TypeWorkflow, Description: "test-first feature development"}

var targets = map[intent.Category]Target{
	intent.CategoryFileSearch: {ID: "file-search", Type: TypeUtility, Description: "locate files by name or glob"},
	intent.CategoryCodeSearch: {ID: "code-search", Type: TypeUtility, Description: "find definitions and usages"},
	intent.CategoryTestRun:    {ID: "test-runner", Type: TypeUtility, Description: "run the test suite and summarize failures"},
	intent.CategoryDependency: {ID: "dependency-auditor", Type: TypeUtility, Description: "audit dependencies for outdated or vulnerable versions"},
	intent.CategoryDocsLookup: {ID: "docs-lookup", Type: TypeUtility, Description: "look up library and API documentation"},
	intent.CategoryGitHistory: {ID: "git-historian", Type: TypeUtility, Description: "answer questions from git history"},

	intent.CategoryFeature:  {ID: "feature-development", Type: TypeWorkflow, Description: "plan, implement and verify a feature"},
	intent.CategoryDebug:    {ID: "debug-investigation", Type: TypeWorkflow, Description: "reproduce, isolate and fix a defect"},
	intent.CategoryRefactor: {ID: "refactor-safely", Type: TypeWorkflow, Description: "restructure code behind passing tests"},
	intent.CategoryReview:   {ID: "code-review", Type: TypeWorkflow, Description: "review a change for defects and style"},
	intent.CategoryTest:     {ID: "test-authoring", Type: TypeWorkflow, Description: "write or extend tests"},
	intent.CategoryDocs:     {ID: "docs-writing", Type: TypeWorkflow, Description: "write or update documentation"},
}

var byID = func() map[string]Target {
	m := make(map[string]Target, len(targets)+1)
	for _, t := range targets {
		m[t.ID] = t
	}
	m[TDDTarget.ID] = TDDTarget
	return m
}()

// Lookup returns the default target for a category.
func Lookup(c intent.Category, tdd bool) (Target, bool) {
	if c == intent.CategoryFeature && tdd {
		return TDDTarget, true
	}
	t, ok := targets[c]
	return t, ok
}

// Known reports whether id names a routing target.
func Known(id string) bool {
	_, ok := byID[id]
	return ok
}

// Targets returns every routing target sorted by type then id.
func Targets() []Target {
	out := make([]Target, 0, len(byID))
	for _, t := range byID {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Type != out[j].Type {
			return out[i].Type > out[j].Type
		}
		return out[i].ID < out[j].ID
	})
	return out
}
