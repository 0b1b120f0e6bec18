// Package classifier chains the classification stages. Stages run strictly
// in order, one at a time, and the first decisive stage short-circuits the
// rest.
package classifier

import (
	"context"

	"github.com/gzhole/intentguard/internal/intent"
	"go.uber.org/zap"
)

// Stage is one classifier in the chain.
type Stage interface {
	// Name returns the stage identifier ("pattern", "semantic", "scored").
	Name() string

	// Classify returns the stage's result. decisive is false when the stage
	// declines and the next stage should run.
	Classify(ctx context.Context, req intent.Request) (res intent.Result, decisive bool)
}

// Pipeline is an ordered collection of stages.
type Pipeline struct {
	stages []Stage
	log    *zap.Logger
}

// NewPipeline creates a pipeline running stages in the order provided.
func NewPipeline(log *zap.Logger, stages ...Stage) *Pipeline {
	if log == nil {
		log = zap.NewNop()
	}
	return &Pipeline{stages: stages, log: log}
}

// Run executes stages until one is decisive. With no decisive stage, or
// when ctx is done between stages, the result is none.
func (p *Pipeline) Run(ctx context.Context, req intent.Request) intent.Result {
	for _, s := range p.stages {
		if ctx.Err() != nil {
			p.log.Debug("classification canceled", zap.String("before_stage", s.Name()))
			return intent.None()
		}
		res, decisive := s.Classify(ctx, req)
		if !decisive {
			p.log.Debug("stage declined", zap.String("stage", s.Name()))
			continue
		}
		p.log.Debug("stage decided",
			zap.String("stage", s.Name()),
			zap.String("category", string(res.Category)),
			zap.Float64("confidence", res.Confidence),
			zap.String("rule", res.RuleID))
		return res
	}
	return intent.None()
}
