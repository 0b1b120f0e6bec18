package classifier

import (
	"context"
	"errors"

	"github.com/gzhole/intentguard/internal/intent"
	"github.com/gzhole/intentguard/internal/policy"
	"github.com/gzhole/intentguard/internal/scoring"
	"github.com/gzhole/intentguard/internal/semantic"
	"go.uber.org/zap"
)

// PatternStage adapts the rule table matcher. A matching exclusion is
// decisive and yields none.
type PatternStage struct {
	matcher *policy.Matcher
}

func NewPatternStage(m *policy.Matcher) *PatternStage {
	return &PatternStage{matcher: m}
}

func (s *PatternStage) Name() string { return "pattern" }

func (s *PatternStage) Classify(_ context.Context, req intent.Request) (intent.Result, bool) {
	return s.matcher.Match(req)
}

// SemanticClassifier is the subset of semantic.Adapter the stage needs.
type SemanticClassifier interface {
	Available() bool
	Classify(ctx context.Context, req intent.Request) (*intent.Result, error)
}

// SemanticStage adapts the semantic classifier. It is skipped when
// disabled or unavailable, and adapter errors never leave the stage.
type SemanticStage struct {
	classifier SemanticClassifier
	enabled    bool
	log        *zap.Logger
}

func NewSemanticStage(c SemanticClassifier, enabled bool, log *zap.Logger) *SemanticStage {
	if log == nil {
		log = zap.NewNop()
	}
	return &SemanticStage{classifier: c, enabled: enabled, log: log}
}

func (s *SemanticStage) Name() string { return "semantic" }

func (s *SemanticStage) Classify(ctx context.Context, req intent.Request) (intent.Result, bool) {
	if !s.enabled || s.classifier == nil || !s.classifier.Available() {
		return intent.Result{}, false
	}

	res, err := s.classifier.Classify(ctx, req)
	if err != nil {
		var ae *semantic.AdapterError
		if errors.As(err, &ae) {
			s.log.Debug("semantic classifier fell through", zap.String("kind", string(ae.Kind)), zap.Error(ae.Err))
		} else {
			s.log.Debug("semantic classifier fell through", zap.Error(err))
		}
		return intent.Result{}, false
	}
	if res == nil {
		return intent.Result{}, false
	}
	return *res, true
}

// ScoredStage adapts the scored fallback matcher. It is always decisive.
type ScoredStage struct {
	scorer *scoring.Scorer
}

func NewScoredStage(s *scoring.Scorer) *ScoredStage {
	return &ScoredStage{scorer: s}
}

func (s *ScoredStage) Name() string { return "scored" }

func (s *ScoredStage) Classify(_ context.Context, req intent.Request) (intent.Result, bool) {
	return s.scorer.Score(req), true
}
