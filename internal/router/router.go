// Package router turns an accepted classification into a routing decision.
// Routing is a pure function of the result and the settings: no I/O, no
// state, and every input produces a decision (possibly none).
package router

import (
	"github.com/gzhole/intentguard/internal/intent"
)

// DecisionType is the kind of destination a request is routed to.
type DecisionType string

const (
	TypeUtility  DecisionType = "utility_agent"
	TypeWorkflow DecisionType = "workflow"
	TypeNone     DecisionType = "none"
)

// Threshold is the annoyance threshold: how eagerly suggestions surface.
type Threshold string

const (
	ThresholdLow    Threshold = "low"
	ThresholdMedium Threshold = "medium"
	ThresholdHigh   Threshold = "high"
)

// Mode controls how a decision is presented.
type Mode string

const (
	ModeSuggest  Mode = "suggest"
	ModeInject   Mode = "inject"
	ModeDisabled Mode = "disabled"
)

// confidentEnough lets a low-urgency result through the medium threshold.
const confidentEnough = 0.85

// Decision is the RoutingDecision.
type Decision struct {
	Type     DecisionType `json:"type"`
	TargetID string       `json:"target_id,omitempty"`
	Payload  Payload      `json:"payload"`
}

// Payload carries the classification the decision was made from.
type Payload struct {
	Category   intent.Category `json:"intent_category"`
	Source     intent.Source   `json:"source"`
	Confidence float64         `json:"confidence"`
	TDD        bool            `json:"tdd_mode"`
	RuleID     string          `json:"rule_id,omitempty"`
	Reason     string          `json:"reason,omitempty"`
	Filtered   string          `json:"filtered,omitempty"`
}

// IsNone reports whether the decision takes no action.
func (d Decision) IsNone() bool {
	return d.Type == TypeNone || d.Type == ""
}

// Route maps a result to a decision under the given annoyance threshold.
// An unknown threshold behaves like medium.
func Route(res intent.Result, threshold Threshold) Decision {
	payload := Payload{
		Category:   res.Category,
		Source:     res.Source,
		Confidence: res.Confidence,
		TDD:        res.TDD,
		RuleID:     res.RuleID,
		Reason:     res.Reason,
	}
	if res.IsNone() {
		return Decision{Type: TypeNone, Payload: payload}
	}

	target, ok := Lookup(res.Category, res.TDD)
	if !ok {
		payload.Filtered = "unknown category"
		return Decision{Type: TypeNone, Payload: payload}
	}
	if !passes(res, threshold) {
		payload.Filtered = "annoyance threshold " + string(normalizeThreshold(threshold))
		return Decision{Type: TypeNone, Payload: payload}
	}

	// A recommendation naming a known target of the same type wins.
	if res.Target != "" {
		if rec, known := byID[res.Target]; known && rec.Type == target.Type {
			target = rec
		}
	}
	return Decision{Type: target.Type, TargetID: target.ID, Payload: payload}
}

// passes applies the annoyance filter.
func passes(res intent.Result, threshold Threshold) bool {
	u := UrgencyOf(res.Category)
	switch normalizeThreshold(threshold) {
	case ThresholdHigh:
		return true
	case ThresholdLow:
		return u == UrgencyHigh
	default:
		return u >= UrgencyMedium || res.Confidence >= confidentEnough
	}
}

func normalizeThreshold(t Threshold) Threshold {
	switch t {
	case ThresholdLow, ThresholdHigh:
		return t
	default:
		return ThresholdMedium
	}
}
