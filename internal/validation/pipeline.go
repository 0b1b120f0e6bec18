package validation

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Pipeline runs checkers in a fixed order.
type Pipeline struct {
	checkers []Checker
	parallel bool
	log      *zap.Logger
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithParallel runs checkers concurrently. Results are still reported in
// checker order.
func WithParallel(on bool) Option {
	return func(p *Pipeline) { p.parallel = on }
}

func WithLogger(l *zap.Logger) Option {
	return func(p *Pipeline) {
		if l != nil {
			p.log = l
		}
	}
}

func NewPipeline(checkers []Checker, opts ...Option) *Pipeline {
	p := &Pipeline{checkers: checkers, log: zap.NewNop()}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// FromSpecs builds command checkers from specs, preserving their order.
func FromSpecs(specs []Spec, opts ...Option) (*Pipeline, error) {
	checkers := make([]Checker, 0, len(specs))
	seen := make(map[string]bool, len(specs))
	for _, s := range specs {
		c, err := NewCommandChecker(s)
		if err != nil {
			return nil, err
		}
		if seen[c.Name()] {
			return nil, fmt.Errorf("duplicate checker %q", c.Name())
		}
		seen[c.Name()] = true
		checkers = append(checkers, c)
	}
	return NewPipeline(checkers, opts...), nil
}

// Checkers returns the checkers in run order.
func (p *Pipeline) Checkers() []Checker {
	return p.checkers
}

// Applicable reports whether any checker applies to any of files.
func (p *Pipeline) Applicable(files []string) bool {
	for _, c := range p.checkers {
		if len(applicable(c, files)) > 0 {
			return true
		}
	}
	return false
}

// Validate runs every checker over files. The overall status is fail iff
// any checker failed.
func (p *Pipeline) Validate(ctx context.Context, files []string) Run {
	run := Run{
		ID:        uuid.NewString(),
		Files:     files,
		Results:   make([]Result, len(p.checkers)),
		StartedAt: time.Now().UTC(),
	}

	if p.parallel {
		g, gctx := errgroup.WithContext(ctx)
		for i, c := range p.checkers {
			g.Go(func() error {
				run.Results[i] = p.runOne(gctx, c, files)
				return nil
			})
		}
		_ = g.Wait()
	} else {
		for i, c := range p.checkers {
			run.Results[i] = p.runOne(ctx, c, files)
		}
	}

	run.Overall = StatusPass
	for _, r := range run.Results {
		if r.Status == StatusFail {
			run.Overall = StatusFail
			break
		}
	}
	p.log.Debug("validation finished",
		zap.String("run_id", run.ID),
		zap.Int("files", len(files)),
		zap.String("overall", string(run.Overall)))
	return run
}

func (p *Pipeline) runOne(ctx context.Context, c Checker, files []string) Result {
	if ctx.Err() != nil {
		return Result{Name: c.Name(), Status: StatusSkipped, Diagnostics: "canceled"}
	}
	if !c.Available() {
		p.log.Debug("checker not installed", zap.String("checker", c.Name()))
		return Result{Name: c.Name(), Status: StatusSkipped, Diagnostics: "not installed"}
	}
	targets := applicable(c, files)
	if len(targets) == 0 {
		return Result{Name: c.Name(), Status: StatusSkipped, Diagnostics: "no applicable files"}
	}

	res := c.Check(ctx, targets)
	res.Name = c.Name()
	p.log.Debug("checker finished",
		zap.String("checker", res.Name),
		zap.String("status", string(res.Status)),
		zap.Duration("duration", res.Duration))
	return res
}

func applicable(c Checker, files []string) []string {
	var out []string
	for _, f := range files {
		if c.Applies(f) {
			out = append(out, f)
		}
	}
	return out
}
