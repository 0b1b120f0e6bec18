package cli

import (
	"errors"
	"fmt"

	"github.com/gzhole/intentguard/internal/classifier"
	"github.com/gzhole/intentguard/internal/config"
	"github.com/gzhole/intentguard/internal/guardian"
	"github.com/gzhole/intentguard/internal/logger"
	"github.com/gzhole/intentguard/internal/policy"
	"github.com/gzhole/intentguard/internal/repair"
	"github.com/gzhole/intentguard/internal/router"
	"github.com/gzhole/intentguard/internal/scoring"
	"github.com/gzhole/intentguard/internal/semantic"
	"github.com/gzhole/intentguard/internal/validation"
	"go.uber.org/zap"
)

// app is the per-invocation wiring: the loaded configuration, the
// diagnostic logger and the audit sink.
type app struct {
	cfg   *config.Config
	log   *zap.Logger
	audit *logger.AuditLogger // nil until openAudit succeeds
}

// load reads the configuration. Invalid values are reported as warnings
// and replaced by defaults, so load only fails on unusable settings.
func (o *options) load() (*app, error) {
	log := o.logger()

	cfg, err := config.Load(o.configPath)
	if err != nil {
		var cerr *config.ConfigError
		if !errors.As(err, &cerr) {
			return nil, err
		}
		for _, p := range cerr.Problems {
			log.Warn("config problem", zap.String("file", cerr.File), zap.String("problem", p))
		}
	}
	if o.logPath != "" {
		cfg.AuditLog = o.logPath
	}

	return &app{cfg: cfg, log: log}, nil
}

// openAudit opens the audit log for commands that write to it. Without it
// events are dropped with a warning.
func (a *app) openAudit() {
	audit, err := logger.New(a.cfg.AuditLog)
	if err != nil {
		a.log.Warn("audit log unavailable", zap.String("path", a.cfg.AuditLog), zap.Error(err))
		return
	}
	a.audit = audit
}

// rules returns the base rule table merged with the enabled packs.
func (a *app) rules() (*policy.Table, []policy.PackInfo, error) {
	table, err := policy.Load(a.cfg.RulesFile)
	if err != nil {
		return nil, nil, fmt.Errorf("rules: %w", err)
	}
	merged, infos, err := policy.LoadPacks(a.cfg.PacksDir, table)
	if err != nil {
		a.log.Warn("packs load failed", zap.String("dir", a.cfg.PacksDir), zap.Error(err))
		return table, nil, nil
	}
	for _, info := range infos {
		if info.Error != "" {
			a.log.Warn("pack skipped", zap.String("pack", info.Path), zap.String("error", info.Error))
		}
	}
	for _, r := range merged.Rules {
		if r.Target != "" && !router.Known(r.Target) {
			a.log.Warn("rule names an unknown target, the category default is used",
				zap.String("rule", r.ID), zap.String("target", r.Target))
		}
	}
	return merged, infos, nil
}

// semanticAdapter builds the configured semantic classifier.
func (a *app) semanticAdapter() (*semantic.Adapter, error) {
	s := a.cfg.Semantic
	backend, err := semantic.NewBackend(semantic.BackendConfig{
		Backend:   s.Backend,
		Command:   s.Command,
		Model:     s.Model,
		APIKeyEnv: s.APIKeyEnv,
		BaseURL:   s.BaseURL,
	})
	if err != nil {
		return nil, err
	}
	return semantic.NewAdapter(backend,
		semantic.WithTimeout(s.Timeout),
		semantic.WithConfidenceFloor(a.cfg.ConfidenceFloor),
		semantic.WithLogger(a.log),
	), nil
}

// detector assembles the classifier pipeline: pattern, semantic, scored.
func (a *app) detector() (*classifier.Detector, error) {
	table, _, err := a.rules()
	if err != nil {
		return nil, err
	}
	matcher, err := policy.Compile(table)
	if err != nil {
		return nil, fmt.Errorf("rules: %w", err)
	}

	var sem classifier.SemanticClassifier
	if a.cfg.UseSemanticClassifier {
		adapter, err := a.semanticAdapter()
		if err != nil {
			a.log.Warn("semantic classifier disabled", zap.Error(err))
		} else {
			sem = adapter
		}
	}

	scorer := scoring.New(
		scoring.WithMinScore(a.cfg.Scoring.MinScore),
		scoring.WithTDDMinScore(a.cfg.Scoring.TDDMinScore),
	)

	pipeline := classifier.NewPipeline(a.log,
		classifier.NewPatternStage(matcher),
		classifier.NewSemanticStage(sem, a.cfg.UseSemanticClassifier, a.log),
		classifier.NewScoredStage(scorer),
	)
	return classifier.NewDetector(pipeline, classifier.Settings{
		Enabled:         a.cfg.DetectionEnabled,
		Mode:            router.Mode(a.cfg.DetectionMode),
		Threshold:       router.Threshold(a.cfg.AnnoyanceThreshold),
		CommandPrefixes: a.cfg.CommandPrefixes,
	}, a.log), nil
}

// recordDetection appends a detection event to the audit log.
func (a *app) recordDetection(det classifier.Detection) {
	if a.audit == nil || det.Skipped != "" {
		return
	}
	event := logger.AuditEvent{
		Kind:       logger.KindDetection,
		Prompt:     det.Request.Text,
		Category:   string(det.Result.Category),
		Source:     string(det.Result.Source),
		Confidence: det.Result.Confidence,
		Decision:   string(det.Decision.Type),
		Target:     det.Decision.TargetID,
		RuleID:     det.Result.RuleID,
	}
	if err := a.audit.Log(event); err != nil {
		a.log.Warn("audit log failed", zap.Error(err))
	}
}

// guardianSettings override the configuration for one validate call.
type guardianSettings struct {
	level         string
	maxIterations int
	phase         string
	dir           string
}

// guardian builds the validation pipeline and the loop around it.
func (a *app) guardian(s guardianSettings) (*guardian.Loop, *validation.Pipeline, guardian.Level, error) {
	pipeline, err := validation.FromSpecs(a.cfg.Validation.Checkers,
		validation.WithParallel(a.cfg.Validation.Parallel),
		validation.WithLogger(a.log),
	)
	if err != nil {
		return nil, nil, "", fmt.Errorf("checkers: %w", err)
	}

	levelName := a.cfg.ValidationLevel
	if s.level != "" {
		levelName = s.level
	}
	level, ok := guardian.ParseLevel(levelName)
	if !ok {
		return nil, nil, "", fmt.Errorf("unknown validation level %q", levelName)
	}

	maxIterations := a.cfg.MaxIterations
	if s.maxIterations > 0 {
		maxIterations = s.maxIterations
	}

	opts := []guardian.Option{
		guardian.WithMaxIterations(maxIterations),
		guardian.WithLevel(level),
		guardian.WithPhase(s.phase),
		guardian.WithLogger(a.log),
	}
	if r := repair.New(a.cfg.Repair, s.dir); r != nil {
		opts = append(opts, guardian.WithRepairer(r))
	}
	if a.audit != nil {
		opts = append(opts, guardian.WithAudit(a.audit))
	}
	return guardian.New(pipeline, opts...), pipeline, level, nil
}
