// Package guardian drives the bounded validate/repair cycle that runs after
// code changes are produced.
//
// Architecture:
//
//	Loop
//	  ├── Validator  (validation.Pipeline)      runs the checkers once per visit
//	  ├── Repairer   (repair.CommandRepairer)   optional, between visits
//	  └── AuditSink  (logger.AuditLogger)       one record per validating visit
//
// The loop is a small state machine:
//
//	validating ──pass──────────────────────▶ passed
//	    │  ▲
//	  fail │ repaired (iteration+1)
//	    ▼  │
//	repairing ──repair failed──────────────▶ exhausted
//	validating ──fail, no budget/repairer──▶ exhausted
//
// It never runs more than max_iterations validations, and a failing run
// with no repairer configured goes straight to exhausted.
package guardian

import (
	"context"
	"fmt"
	"strings"

	"github.com/gzhole/intentguard/internal/logger"
	"github.com/gzhole/intentguard/internal/repair"
	"github.com/gzhole/intentguard/internal/validation"
)

// State is a guardian state.
type State string

const (
	StateValidating State = "validating"
	StateRepairing  State = "repairing"
	StatePassed     State = "passed"
	StateExhausted  State = "exhausted"
)

// Actions recorded in the audit log.
const (
	ActionPass         = "pass"
	ActionRepair       = "repair"
	ActionExhausted    = "exhausted"
	ActionRepairFailed = "repair_failed"
	ActionCanceled     = "canceled"
)

// Level is the validation level: what an exhausted cycle means for the
// caller.
type Level string

const (
	LevelBlocking Level = "blocking"
	LevelWarning  Level = "warning"
	LevelAdvisory Level = "advisory"
)

// ParseLevel returns the level named by s and whether it was recognized.
func ParseLevel(s string) (Level, bool) {
	switch l := Level(strings.ToLower(strings.TrimSpace(s))); l {
	case LevelBlocking, LevelWarning, LevelAdvisory:
		return l, true
	default:
		return LevelBlocking, false
	}
}

// Validator runs the checkers over a set of files.
type Validator interface {
	Validate(ctx context.Context, files []string) validation.Run
}

// Repairer attempts to fix the failures of a validation run.
type Repairer interface {
	Repair(ctx context.Context, req repair.Request) (repair.Result, error)
}

// AuditSink receives one record per validating visit, plus one when a
// repair fails or the cycle is canceled.
type AuditSink interface {
	Log(event logger.AuditEvent) error
}

// Attempt is one validating visit and the repair that followed it, if any.
type Attempt struct {
	Iteration int            `json:"iteration"`
	Run       validation.Run `json:"run"`
	Repair    *repair.Result `json:"repair,omitempty"`
	RepairErr string         `json:"repair_error,omitempty"`
}

// Outcome is the result of a guardian cycle.
type Outcome struct {
	CycleID  string    `json:"cycle_id"`
	Phase    string    `json:"phase,omitempty"`
	Files    []string  `json:"files"`
	Final    State     `json:"final_state"`
	Level    Level     `json:"validation_level"`
	Attempts []Attempt `json:"attempts"`
}

// Iterations is the number of validating visits.
func (o Outcome) Iterations() int { return len(o.Attempts) }

// Last returns the final validation run.
func (o Outcome) Last() (validation.Run, bool) {
	if len(o.Attempts) == 0 {
		return validation.Run{}, false
	}
	return o.Attempts[len(o.Attempts)-1].Run, true
}

// ExhaustedError is returned when the cycle ends without a passing run.
type ExhaustedError struct {
	Outcome Outcome
}

func (e *ExhaustedError) Error() string {
	var failing []string
	if run, ok := e.Outcome.Last(); ok {
		for _, r := range run.Failed() {
			failing = append(failing, r.Name)
		}
	}
	msg := fmt.Sprintf("validation still failing after %d iteration(s)", e.Outcome.Iterations())
	if len(failing) > 0 {
		msg += ": " + strings.Join(failing, ", ")
	}
	if n := len(e.Outcome.Attempts); n > 0 && e.Outcome.Attempts[n-1].RepairErr != "" {
		msg += " (repair failed: " + e.Outcome.Attempts[n-1].RepairErr + ")"
	}
	return msg
}

// ExitCode maps an outcome to the hook exit code: 0 when passed, and for
// an exhausted cycle 1 when blocking, 2 when warning, 0 when advisory.
func ExitCode(o Outcome, level Level) int {
	if o.Final != StateExhausted {
		return 0
	}
	switch level {
	case LevelWarning:
		return 2
	case LevelAdvisory:
		return 0
	default:
		return 1
	}
}
