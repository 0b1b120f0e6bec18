package classifier

import (
	"context"
	"strings"

	"github.com/gzhole/intentguard/internal/intent"
	"github.com/gzhole/intentguard/internal/normalize"
	"github.com/gzhole/intentguard/internal/router"
	"go.uber.org/zap"
)

// Settings are the detection knobs taken from the configuration.
type Settings struct {
	Enabled         bool
	Mode            router.Mode
	Threshold       router.Threshold
	CommandPrefixes []string
}

// Detection is the outcome of one Detect call.
type Detection struct {
	Request  intent.Request  `json:"-"`
	Result   intent.Result   `json:"result"`
	Decision router.Decision `json:"decision"`

	// Skipped explains why no stage ran. Empty when the pipeline ran.
	Skipped string `json:"skipped,omitempty"`
}

// Detector is the classifier entry point: guard checks, normalization,
// the stage pipeline and routing.
type Detector struct {
	pipeline *Pipeline
	settings Settings
	log      *zap.Logger
}

// NewDetector creates a detector over an assembled pipeline.
func NewDetector(p *Pipeline, s Settings, log *zap.Logger) *Detector {
	if log == nil {
		log = zap.NewNop()
	}
	if s.CommandPrefixes == nil {
		s.CommandPrefixes = intent.DefaultCommandPrefixes
	}
	return &Detector{pipeline: p, settings: s, log: log}
}

// Detect classifies text and routes the result.
func (d *Detector) Detect(ctx context.Context, text string) Detection {
	req := intent.NewRequest(text)
	skip := func(reason string) Detection {
		d.log.Debug("detection skipped", zap.String("reason", reason))
		return Detection{
			Request:  req,
			Result:   intent.None(),
			Decision: router.Route(intent.None(), d.settings.Threshold),
			Skipped:  reason,
		}
	}

	switch {
	case !d.settings.Enabled || d.settings.Mode == router.ModeDisabled:
		return skip("detection disabled")
	case strings.TrimSpace(text) == "":
		return skip("empty request")
	}

	// The prefix check sees the same text the stages would, so invisible
	// characters cannot hide a command.
	req.Normalized = normalize.Text(text)
	switch {
	case req.Normalized == "":
		return skip("empty request")
	case intent.IsCommand(req.Normalized, d.settings.CommandPrefixes):
		return skip("command prefix")
	}

	res := d.pipeline.Run(ctx, req)
	return Detection{
		Request:  req,
		Result:   res,
		Decision: router.Route(res, d.settings.Threshold),
	}
}

// Directive renders the hook output for a detection under the configured
// mode.
func (d *Detector) Directive(det Detection) (router.Directive, bool) {
	return router.Render(det.Decision, d.settings.Mode)
}
