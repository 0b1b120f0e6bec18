package router

import (
	"fmt"
	"strings"
)

// Directive is the hook output emitted for a routing decision.
type Directive struct {
	SystemMessage  string `json:"systemMessage"`
	SuppressOutput bool   `json:"suppressOutput"`
}

// Render builds the directive for a decision. It returns false for a none
// decision or when mode is disabled, in which case nothing is emitted.
func Render(d Decision, mode Mode) (Directive, bool) {
	if d.IsNone() || mode == ModeDisabled {
		return Directive{}, false
	}

	var b strings.Builder
	kind := "workflow"
	if d.Type == TypeUtility {
		kind = "utility agent"
	}

	if mode == ModeInject {
		fmt.Fprintf(&b, "Route this request to the %s %s.", d.TargetID, kind)
		if d.Payload.TDD {
			b.WriteString(" Write failing tests before any implementation.")
		}
		fmt.Fprintf(&b, " (intent: %s, confidence %.2f, via %s)", d.Payload.Category, d.Payload.Confidence, d.Payload.Source)
		return Directive{SystemMessage: b.String(), SuppressOutput: true}, true
	}

	fmt.Fprintf(&b, "[intentguard] This looks like a %s request. Consider the %s %s", humanize(string(d.Payload.Category)), d.TargetID, kind)
	if t, ok := byID[d.TargetID]; ok && t.Description != "" {
		fmt.Fprintf(&b, " (%s)", t.Description)
	}
	b.WriteString(".")
	if d.Payload.TDD {
		b.WriteString(" Test-driven mode suggested.")
	}
	return Directive{SystemMessage: b.String(), SuppressOutput: false}, true
}

func humanize(s string) string {
	return strings.ReplaceAll(s, "_", " ")
}
