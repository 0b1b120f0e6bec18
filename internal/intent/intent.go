// Package intent holds the value types that flow through the classifier
// stages: the immutable Request and the ClassificationResult each stage
// produces.
package intent

import (
	"strings"
	"time"
)

// Source identifies which stage produced a result.
type Source string

const (
	SourcePattern  Source = "pattern"
	SourceSemantic Source = "semantic"
	SourceScored   Source = "scored"
	SourceNone     Source = "none"
)

// Category is the inferred purpose of a request.
type Category string

const (
	CategoryNone Category = "none"

	// Utility categories route to a single-purpose agent.
	CategoryFileSearch Category = "file_search"
	CategoryCodeSearch Category = "code_search"
	CategoryTestRun    Category = "test_run"
	CategoryDependency Category = "dependency_audit"
	CategoryDocsLookup Category = "docs_lookup"
	CategoryGitHistory Category = "git_history"

	// Workflow categories route to a multi-phase workflow.
	CategoryFeature  Category = "feature"
	CategoryDebug    Category = "debug"
	CategoryRefactor Category = "refactor"
	CategoryReview   Category = "review"
	CategoryTest     Category = "test"
	CategoryDocs     Category = "docs"

	// Never routed.
	CategoryQuestion Category = "question"
	CategoryGeneral  Category = "general"
)

// Known reports whether c is one of the categories above.
func (c Category) Known() bool {
	switch c {
	case CategoryNone,
		CategoryFileSearch, CategoryCodeSearch, CategoryTestRun,
		CategoryDependency, CategoryDocsLookup, CategoryGitHistory,
		CategoryFeature, CategoryDebug, CategoryRefactor,
		CategoryReview, CategoryTest, CategoryDocs,
		CategoryQuestion, CategoryGeneral:
		return true
	}
	return false
}

// Request is a single user turn. It is created once and never mutated.
type Request struct {
	Text      string
	Timestamp time.Time

	// Normalized is the matching form of Text (see normalize.Text).
	// Stages match against it; Text is kept verbatim for logging.
	Normalized string
}

// NewRequest builds a Request for text received now.
func NewRequest(text string) Request {
	return Request{Text: text, Timestamp: time.Now().UTC(), Normalized: text}
}

// MatchText returns the text stages should match against.
func (r Request) MatchText() string {
	if r.Normalized != "" {
		return r.Normalized
	}
	return r.Text
}

// Result is the ClassificationResult produced by exactly one stage.
type Result struct {
	Source     Source   `json:"source"`
	Category   Category `json:"intent_category"`
	Confidence float64  `json:"confidence"`
	Target     string   `json:"recommended_target,omitempty"`
	TDD        bool     `json:"tdd_mode"`
	RuleID     string   `json:"rule_id,omitempty"`
	Reason     string   `json:"reason,omitempty"`
	Signals    []string `json:"signals,omitempty"`
}

// None returns the empty result.
func None() Result {
	return Result{Source: SourceNone, Category: CategoryNone, Confidence: 1.0}
}

// IsNone reports whether the result carries no decision.
func (r Result) IsNone() bool {
	return r.Category == "" || r.Category == CategoryNone
}

// DefaultCommandPrefixes are the reserved routing prefixes. Text starting
// with one of them has already been routed by the user.
var DefaultCommandPrefixes = []string{"/"}

// IsCommand reports whether text begins with a reserved command prefix.
func IsCommand(text string, prefixes []string) bool {
	trimmed := strings.TrimLeft(text, " \t\r\n")
	for _, p := range prefixes {
		if p != "" && strings.HasPrefix(trimmed, p) {
			return true
		}
	}
	return false
}
