package guardian

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/gzhole/intentguard/internal/logger"
	"github.com/gzhole/intentguard/internal/repair"
	"github.com/gzhole/intentguard/internal/validation"
	"go.uber.org/zap"
)

const DefaultMaxIterations = 3

// Loop is the guardian state machine. A Loop holds no per-cycle state and
// may be reused.
type Loop struct {
	validator     Validator
	repairer      Repairer
	audit         AuditSink
	maxIterations int
	level         Level
	phase         string
	log           *zap.Logger
	now           func() time.Time
}

// Option configures a Loop.
type Option func(*Loop)

// WithRepairer sets the repair capability. Without one the loop exhausts on
// the first failing run.
func WithRepairer(r Repairer) Option {
	return func(l *Loop) { l.repairer = r }
}

func WithAudit(a AuditSink) Option {
	return func(l *Loop) { l.audit = a }
}

// WithMaxIterations bounds the number of validating visits. Values below 1
// are treated as 1.
func WithMaxIterations(n int) Option {
	return func(l *Loop) { l.maxIterations = n }
}

func WithLevel(level Level) Option {
	return func(l *Loop) { l.level = level }
}

// WithPhase labels the audit records with the phase that triggered the
// cycle (for example "post_tool_use").
func WithPhase(phase string) Option {
	return func(l *Loop) { l.phase = phase }
}

func WithLogger(log *zap.Logger) Option {
	return func(l *Loop) {
		if log != nil {
			l.log = log
		}
	}
}

// New creates a loop around a validator.
func New(v Validator, opts ...Option) *Loop {
	l := &Loop{
		validator:     v,
		maxIterations: DefaultMaxIterations,
		level:         LevelBlocking,
		log:           zap.NewNop(),
		now:           time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	if l.maxIterations < 1 {
		l.maxIterations = 1
	}
	return l
}

// MaxIterations returns the effective iteration bound.
func (l *Loop) MaxIterations() int { return l.maxIterations }

// Run drives one cycle over files. It returns a nil error when a run
// passes, *ExhaustedError when the cycle gives up, and the context error
// when ctx is canceled. The outcome is populated in every case.
func (l *Loop) Run(ctx context.Context, files []string) (Outcome, error) {
	out := Outcome{
		CycleID: uuid.NewString(),
		Phase:   l.phase,
		Files:   files,
		Final:   StateValidating,
		Level:   l.level,
	}

	// repaired is the result of the repair that led into the current
	// visit. Its changed files go on that visit's record.
	var repaired *repair.Result

	for iteration := 1; ; iteration++ {
		if err := ctx.Err(); err != nil {
			return l.cancel(&out, iteration, StateValidating, nil, repaired, err)
		}

		run := l.validator.Validate(ctx, files)
		run.Iteration = iteration
		out.Attempts = append(out.Attempts, Attempt{Iteration: iteration, Run: run})

		if err := ctx.Err(); err != nil {
			return l.cancel(&out, iteration, StateValidating, &run, repaired, err)
		}

		var next State
		var action string
		switch {
		case run.Overall != validation.StatusFail:
			next, action = StatePassed, ActionPass
		case l.repairer != nil && iteration < l.maxIterations:
			next, action = StateRepairing, ActionRepair
		default:
			next, action = StateExhausted, ActionExhausted
		}

		l.record(out, iteration, StateValidating, next, action, &run, repaired, "")
		l.log.Debug("guardian transition",
			zap.String("cycle_id", out.CycleID),
			zap.Int("iteration", iteration),
			zap.String("to", string(next)))

		switch next {
		case StatePassed:
			out.Final = StatePassed
			return out, nil
		case StateExhausted:
			out.Final = StateExhausted
			return out, &ExhaustedError{Outcome: out}
		}

		res, err := l.repairer.Repair(ctx, repair.NewRequest(run))
		attempt := &out.Attempts[len(out.Attempts)-1]
		attempt.Repair = &res
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return l.cancel(&out, iteration, StateRepairing, nil, &res, ctxErr)
			}
			attempt.RepairErr = err.Error()
			l.record(out, iteration, StateRepairing, StateExhausted, ActionRepairFailed, nil, &res, err.Error())
			out.Final = StateExhausted
			return out, &ExhaustedError{Outcome: out}
		}
		repaired = &res
	}
}

func (l *Loop) cancel(out *Outcome, iteration int, from State, run *validation.Run, res *repair.Result, err error) (Outcome, error) {
	l.record(*out, iteration, from, StateExhausted, ActionCanceled, run, res, err.Error())
	out.Final = StateExhausted
	return *out, err
}

// record appends the audit record for a transition. Audit failures are
// reported but never change the outcome of the cycle.
func (l *Loop) record(out Outcome, iteration int, from, to State, action string, run *validation.Run, res *repair.Result, errMsg string) {
	if l.audit == nil {
		return
	}

	event := logger.AuditEvent{
		Timestamp:       l.now().UTC().Format(time.RFC3339),
		Kind:            logger.KindGuardian,
		RunID:           out.CycleID,
		Iteration:       iteration,
		Phase:           out.Phase,
		FromState:       string(from),
		ToState:         string(to),
		Action:          action,
		ValidationLevel: string(out.Level),
		Files:           out.Files,
		Error:           errMsg,
	}
	if run != nil {
		for _, r := range run.Results {
			event.Checkers = append(event.Checkers, logger.CheckerEntry{
				Name:        r.Name,
				Status:      string(r.Status),
				Diagnostics: r.Diagnostics,
			})
		}
	}
	if res != nil {
		for _, c := range res.ChangedFiles {
			event.ChangedFiles = append(event.ChangedFiles, c.Path)
		}
	}

	if err := l.audit.Log(event); err != nil {
		l.log.Warn("failed to write audit record", zap.Error(err), zap.String("action", action))
	}
}
