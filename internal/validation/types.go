// Package validation runs the configured static-analysis checkers over a
// set of changed files and aggregates their verdicts.
//
// Checkers are external tools invoked as opaque commands. The pipeline
// never decides what a failure means for the user; the caller maps the
// overall status to an exit code according to the validation level.
package validation

import (
	"context"
	"strings"
	"time"
)

// Status is a checker or run verdict.
type Status string

const (
	StatusPass    Status = "pass"
	StatusFail    Status = "fail"
	StatusSkipped Status = "skipped"
)

// Severity ranks a finding reported by a checker.
type Severity int

const (
	SeverityInfo Severity = iota
	SeverityWarning
	SeverityError
)

func (s Severity) String() string {
	switch s {
	case SeverityError:
		return "error"
	case SeverityWarning:
		return "warning"
	default:
		return "info"
	}
}

// ParseSeverity maps tool vocabulary onto a Severity. Unknown words are
// info.
func ParseSeverity(s string) Severity {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "error", "fatal", "high", "critical":
		return SeverityError
	case "warning", "warn", "medium":
		return SeverityWarning
	default:
		return SeverityInfo
	}
}

// Finding is one diagnostic parsed from checker output.
type Finding struct {
	File     string   `json:"file,omitempty"`
	Line     int      `json:"line,omitempty"`
	Severity Severity `json:"-"`
	Level    string   `json:"severity"`
	Message  string   `json:"message"`
}

// Result is the outcome of one checker.
type Result struct {
	Name        string        `json:"name"`
	Status      Status        `json:"status"`
	Diagnostics string        `json:"diagnostics,omitempty"`
	Findings    []Finding     `json:"findings,omitempty"`
	Duration    time.Duration `json:"duration_ns"`
}

// Run is one pass of the pipeline over a file set.
type Run struct {
	ID        string    `json:"id"`
	Files     []string  `json:"files"`
	Iteration int       `json:"iteration"`
	Results   []Result  `json:"results"`
	Overall   Status    `json:"overall"`
	StartedAt time.Time `json:"started_at"`
}

// Failed returns the results with status fail, in pipeline order.
func (r Run) Failed() []Result {
	var out []Result
	for _, res := range r.Results {
		if res.Status == StatusFail {
			out = append(out, res)
		}
	}
	return out
}

// Checker is a single static-analysis tool.
type Checker interface {
	Name() string

	// Available reports whether the tool is installed.
	Available() bool

	// Applies reports whether the checker can inspect file.
	Applies(file string) bool

	// Check inspects files, all of which satisfy Applies.
	Check(ctx context.Context, files []string) Result
}
