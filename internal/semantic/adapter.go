package semantic

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gzhole/intentguard/internal/intent"
	"github.com/gzhole/intentguard/internal/redact"
	"go.uber.org/zap"
)

const (
	DefaultTimeout         = 10 * time.Second
	DefaultConfidenceFloor = 0.60
)

// gateEpsilon absorbs float noise so a confidence equal to the floor is
// always accepted.
const gateEpsilon = 1e-9

const systemPrompt = `You classify a single request sent to an AI coding assistant.
Reply with one JSON object and nothing else:
{"primary_intent": "<intent>", "confidence": <0.0-1.0>, "recommended_agents": ["<agent>"], "tdd_mode": <true|false>}

primary_intent is one of: feature, debug, refactor, review, test, docs,
file_search, code_search, test_run, dependency_audit, docs_lookup, git_history,
question, general.
Use "question" for questions that only need an answer and "general" for
anything else that needs no specialised workflow. Set tdd_mode when the user
asks for tests to be written first.`

// Adapter turns backend output into accepted classification results.
type Adapter struct {
	backend Backend
	timeout time.Duration
	floor   float64
	log     *zap.Logger
}

// Option configures an Adapter.
type Option func(*Adapter)

// WithTimeout sets the hard wall-clock budget for one classification.
func WithTimeout(d time.Duration) Option {
	return func(a *Adapter) {
		if d > 0 {
			a.timeout = d
		}
	}
}

// WithConfidenceFloor sets the minimum accepted confidence.
func WithConfidenceFloor(f float64) Option {
	return func(a *Adapter) {
		if f >= 0 && f <= 1 {
			a.floor = f
		}
	}
}

// WithLogger sets the diagnostic logger.
func WithLogger(l *zap.Logger) Option {
	return func(a *Adapter) {
		if l != nil {
			a.log = l
		}
	}
}

// NewAdapter wraps backend. A nil backend is never available.
func NewAdapter(backend Backend, opts ...Option) *Adapter {
	a := &Adapter{
		backend: backend,
		timeout: DefaultTimeout,
		floor:   DefaultConfidenceFloor,
		log:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Available reports whether the backend can be invoked right now.
func (a *Adapter) Available() bool {
	return a.backend != nil && a.backend.Available()
}

// Classify invokes the backend once under the adapter timeout. It returns
// (nil, nil) when the response was valid but rejected by the confidence
// gate.
func (a *Adapter) Classify(ctx context.Context, req intent.Request) (*intent.Result, error) {
	name := "none"
	if a.backend != nil {
		name = a.backend.Name()
	}
	if !a.Available() {
		return nil, &AdapterError{Kind: KindUnavailable, Backend: name, Err: ErrUnavailable}
	}

	callCtx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	start := time.Now()
	raw, err := a.backend.Complete(callCtx, systemPrompt, buildPrompt(req))
	a.log.Debug("semantic classifier returned",
		zap.String("backend", name),
		zap.Duration("elapsed", time.Since(start)),
		zap.Error(err))
	if err != nil {
		return nil, &AdapterError{Kind: failureKind(ctx, callCtx, err), Backend: name, Err: err}
	}

	resp, err := Parse(raw)
	if err != nil {
		return nil, &AdapterError{Kind: KindMalformed, Backend: name, Err: err}
	}

	if !Gate(resp, a.floor) {
		a.log.Debug("semantic result rejected by confidence gate",
			zap.String("intent", resp.PrimaryIntent),
			zap.Float64("confidence", resp.Confidence),
			zap.Float64("floor", a.floor))
		return nil, nil
	}

	res := resp.Result()
	return &res, nil
}

// Gate applies the confidence gate: question and general intents are always
// rejected, and so is anything below floor. A confidence equal to floor
// passes.
func Gate(resp Response, floor float64) bool {
	switch intent.Category(resp.PrimaryIntent) {
	case intent.CategoryQuestion, intent.CategoryGeneral, intent.CategoryNone, "":
		return false
	}
	return resp.Confidence+gateEpsilon >= floor
}

// Result converts an accepted response to a classification result.
func (r Response) Result() intent.Result {
	res := intent.Result{
		Source:     intent.SourceSemantic,
		Category:   intent.Category(r.PrimaryIntent),
		Confidence: r.Confidence,
		TDD:        r.TDDMode,
		Reason:     r.Reasoning,
	}
	for _, agent := range r.RecommendedAgents {
		if agent = strings.TrimSpace(agent); agent != "" {
			res.Target = agent
			break
		}
	}
	return res
}

// buildPrompt is what leaves the machine, so credentials are scrubbed
// first.
func buildPrompt(req intent.Request) string {
	return fmt.Sprintf("Request:\n%s", redact.Redact(req.Text))
}

func failureKind(parent, call context.Context, err error) Kind {
	switch {
	case errors.Is(parent.Err(), context.Canceled):
		return KindCanceled
	case errors.Is(call.Err(), context.DeadlineExceeded), errors.Is(err, context.DeadlineExceeded):
		return KindTimeout
	case errors.Is(err, ErrUnavailable):
		return KindUnavailable
	default:
		return KindFailed
	}
}
