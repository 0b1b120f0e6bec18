package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gzhole/intentguard/internal/repair"
	"github.com/gzhole/intentguard/internal/validation"
	"github.com/spf13/viper"
)

const (
	DefaultConfigDir  = ".intentguard"
	DefaultConfigFile = "config.yaml"
	DefaultRulesFile  = "rules.yaml"
	DefaultPacksDir   = "packs"
	DefaultLogFile    = "audit.jsonl"

	EnvPrefix = "INTENTGUARD"
)

type Config struct {
	DetectionEnabled      bool     `mapstructure:"detection_enabled" yaml:"detection_enabled"`
	DetectionMode         string   `mapstructure:"detection_mode" yaml:"detection_mode"`
	AnnoyanceThreshold    string   `mapstructure:"annoyance_threshold" yaml:"annoyance_threshold"`
	UseSemanticClassifier bool     `mapstructure:"use_semantic_classifier" yaml:"use_semantic_classifier"`
	ConfidenceFloor       float64  `mapstructure:"confidence_floor" yaml:"confidence_floor"`
	ValidationLevel       string   `mapstructure:"validation_level" yaml:"validation_level"`
	MaxIterations         int      `mapstructure:"max_iterations" yaml:"max_iterations"`
	CommandPrefixes       []string `mapstructure:"command_prefixes" yaml:"command_prefixes"`

	RulesFile string `mapstructure:"rules_file" yaml:"rules_file,omitempty"`
	PacksDir  string `mapstructure:"packs_dir" yaml:"packs_dir,omitempty"`
	AuditLog  string `mapstructure:"audit_log" yaml:"audit_log,omitempty"`

	Semantic   SemanticConfig   `mapstructure:"semantic" yaml:"semantic"`
	Scoring    ScoringConfig    `mapstructure:"scoring" yaml:"scoring"`
	Validation ValidationConfig `mapstructure:"validation" yaml:"validation"`
	Repair     repair.Spec      `mapstructure:"repair" yaml:"repair"`

	// ConfigDir and ConfigFile record where the configuration came from.
	ConfigDir  string `mapstructure:"-" yaml:"-"`
	ConfigFile string `mapstructure:"-" yaml:"-"`
}

// SemanticConfig selects and tunes the semantic classifier backend.
type SemanticConfig struct {
	Backend   string        `mapstructure:"backend" yaml:"backend"`
	Model     string        `mapstructure:"model" yaml:"model,omitempty"`
	Command   string        `mapstructure:"command" yaml:"command,omitempty"`
	Timeout   time.Duration `mapstructure:"timeout" yaml:"timeout"`
	APIKeyEnv string        `mapstructure:"api_key_env" yaml:"api_key_env,omitempty"`
	BaseURL   string        `mapstructure:"base_url" yaml:"base_url,omitempty"`
}

// ScoringConfig holds the scored fallback matcher thresholds.
type ScoringConfig struct {
	MinScore    int `mapstructure:"min_score" yaml:"min_score"`
	TDDMinScore int `mapstructure:"tdd_min_score" yaml:"tdd_min_score"`
}

// ValidationConfig defines the checkers and how they run.
type ValidationConfig struct {
	Parallel bool              `mapstructure:"parallel" yaml:"parallel"`
	Checkers []validation.Spec `mapstructure:"checkers" yaml:"checkers"`
}

// ConfigError lists the problems found while loading. The configuration
// returned alongside it is still usable: every bad value was replaced by
// its default.
type ConfigError struct {
	File     string
	Problems []string
}

func (e *ConfigError) Error() string {
	src := e.File
	if src == "" {
		src = "configuration"
	}
	return fmt.Sprintf("%s: %s", src, strings.Join(e.Problems, "; "))
}

// Default returns the built-in configuration. Paths are left empty and
// filled in by Load.
func Default() *Config {
	return &Config{
		DetectionEnabled:      true,
		DetectionMode:         "suggest",
		AnnoyanceThreshold:    "medium",
		UseSemanticClassifier: false,
		ConfidenceFloor:       0.60,
		ValidationLevel:       "blocking",
		MaxIterations:         3,
		CommandPrefixes:       []string{"/"},
		Semantic: SemanticConfig{
			Backend: "cli",
			Timeout: 10 * time.Second,
		},
		Scoring: ScoringConfig{
			MinScore:    4,
			TDDMinScore: 3,
		},
		Validation: ValidationConfig{
			Checkers: validation.DefaultSpecs(),
		},
	}
}

// Load reads the configuration file (configPath, or the first of
// ./.intentguard/config.yaml and ~/.intentguard/config.yaml), then applies
// INTENTGUARD_* environment overrides. A missing file is not an error. A
// malformed file or invalid value yields a *ConfigError together with a
// usable configuration.
func Load(configPath string) (*Config, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		homeDir = "."
	}
	configDir := filepath.Join(homeDir, DefaultConfigDir)

	v := viper.New()
	setDefaults(v, configDir)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName(strings.TrimSuffix(DefaultConfigFile, filepath.Ext(DefaultConfigFile)))
		v.SetConfigType("yaml")
		v.AddConfigPath(DefaultConfigDir)
		v.AddConfigPath(configDir)
	}

	cerr := &ConfigError{File: configPath}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		switch {
		case errors.As(err, &notFound):
		case errors.Is(err, os.ErrNotExist):
		default:
			cerr.Problems = append(cerr.Problems, fmt.Sprintf("ignoring malformed config file: %v", err))
		}
	}
	if f := v.ConfigFileUsed(); f != "" {
		cerr.File = f
	}

	// Scalars keep their defaults when a value fails to decode. Lists are
	// cleared so a shorter list from the file replaces the default whole.
	cfg := Default()
	cfg.CommandPrefixes = nil
	cfg.Validation.Checkers = nil
	if err := v.Unmarshal(cfg); err != nil {
		cerr.Problems = append(cerr.Problems, fmt.Sprintf("invalid value: %v", err))
	}
	cfg.ConfigDir = configDir
	cfg.ConfigFile = v.ConfigFileUsed()
	cfg.RulesFile = expandHome(cfg.RulesFile, homeDir)
	cfg.PacksDir = expandHome(cfg.PacksDir, homeDir)
	cfg.AuditLog = expandHome(cfg.AuditLog, homeDir)

	cerr.Problems = append(cerr.Problems, cfg.sanitize()...)
	if len(cerr.Problems) > 0 {
		return cfg, cerr
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper, configDir string) {
	d := Default()
	v.SetDefault("detection_enabled", d.DetectionEnabled)
	v.SetDefault("detection_mode", d.DetectionMode)
	v.SetDefault("annoyance_threshold", d.AnnoyanceThreshold)
	v.SetDefault("use_semantic_classifier", d.UseSemanticClassifier)
	v.SetDefault("confidence_floor", d.ConfidenceFloor)
	v.SetDefault("validation_level", d.ValidationLevel)
	v.SetDefault("max_iterations", d.MaxIterations)
	v.SetDefault("command_prefixes", d.CommandPrefixes)
	v.SetDefault("rules_file", filepath.Join(configDir, DefaultRulesFile))
	v.SetDefault("packs_dir", filepath.Join(configDir, DefaultPacksDir))
	v.SetDefault("audit_log", filepath.Join(configDir, DefaultLogFile))
	v.SetDefault("semantic.backend", d.Semantic.Backend)
	v.SetDefault("semantic.model", d.Semantic.Model)
	v.SetDefault("semantic.command", d.Semantic.Command)
	v.SetDefault("semantic.timeout", d.Semantic.Timeout)
	v.SetDefault("semantic.api_key_env", d.Semantic.APIKeyEnv)
	v.SetDefault("semantic.base_url", d.Semantic.BaseURL)
	v.SetDefault("scoring.min_score", d.Scoring.MinScore)
	v.SetDefault("scoring.tdd_min_score", d.Scoring.TDDMinScore)
	v.SetDefault("validation.parallel", d.Validation.Parallel)
	v.SetDefault("validation.checkers", specMaps(d.Validation.Checkers))
	v.SetDefault("repair.command", "")
	v.SetDefault("repair.args", []string{})
	v.SetDefault("repair.timeout", repair.DefaultTimeout)
}

// specMaps converts checker specs to the generic form viper stores, so a
// file-provided list and the default decode the same way.
func specMaps(specs []validation.Spec) []map[string]any {
	out := make([]map[string]any, 0, len(specs))
	for _, s := range specs {
		m := map[string]any{
			"name":       s.Name,
			"command":    s.Command,
			"args":       s.Args,
			"extensions": s.Extensions,
			"criterion":  string(s.Criterion),
		}
		if s.MinSeverity != "" {
			m["min_severity"] = s.MinSeverity
		}
		if s.Timeout > 0 {
			m["timeout"] = s.Timeout.String()
		}
		out = append(out, m)
	}
	return out
}

// sanitize replaces out-of-range values field by field and reports each
// replacement.
func (c *Config) sanitize() []string {
	d := Default()
	var problems []string
	reset := func(key string, got any, want any) {
		problems = append(problems, fmt.Sprintf("%s=%v is invalid, using %v", key, got, want))
	}

	c.DetectionMode = strings.ToLower(strings.TrimSpace(c.DetectionMode))
	if !oneOf(c.DetectionMode, "suggest", "inject", "disabled") {
		reset("detection_mode", c.DetectionMode, d.DetectionMode)
		c.DetectionMode = d.DetectionMode
	}
	c.AnnoyanceThreshold = strings.ToLower(strings.TrimSpace(c.AnnoyanceThreshold))
	if !oneOf(c.AnnoyanceThreshold, "low", "medium", "high") {
		reset("annoyance_threshold", c.AnnoyanceThreshold, d.AnnoyanceThreshold)
		c.AnnoyanceThreshold = d.AnnoyanceThreshold
	}
	if c.ConfidenceFloor < 0 || c.ConfidenceFloor > 1 {
		reset("confidence_floor", c.ConfidenceFloor, d.ConfidenceFloor)
		c.ConfidenceFloor = d.ConfidenceFloor
	}
	c.ValidationLevel = strings.ToLower(strings.TrimSpace(c.ValidationLevel))
	if !oneOf(c.ValidationLevel, "blocking", "warning", "advisory") {
		reset("validation_level", c.ValidationLevel, d.ValidationLevel)
		c.ValidationLevel = d.ValidationLevel
	}
	if c.MaxIterations < 1 {
		reset("max_iterations", c.MaxIterations, 1)
		c.MaxIterations = 1
	}

	prefixes := c.CommandPrefixes[:0]
	for _, p := range c.CommandPrefixes {
		if p = strings.TrimSpace(p); p != "" {
			prefixes = append(prefixes, p)
		}
	}
	c.CommandPrefixes = prefixes

	c.Semantic.Backend = strings.ToLower(strings.TrimSpace(c.Semantic.Backend))
	if !oneOf(c.Semantic.Backend, "cli", "anthropic", "openai") {
		reset("semantic.backend", c.Semantic.Backend, d.Semantic.Backend)
		c.Semantic.Backend = d.Semantic.Backend
	}
	if c.Semantic.Timeout <= 0 {
		reset("semantic.timeout", c.Semantic.Timeout, d.Semantic.Timeout)
		c.Semantic.Timeout = d.Semantic.Timeout
	}
	if c.Scoring.MinScore < 1 {
		reset("scoring.min_score", c.Scoring.MinScore, d.Scoring.MinScore)
		c.Scoring.MinScore = d.Scoring.MinScore
	}
	if c.Scoring.TDDMinScore < 1 {
		reset("scoring.tdd_min_score", c.Scoring.TDDMinScore, d.Scoring.TDDMinScore)
		c.Scoring.TDDMinScore = d.Scoring.TDDMinScore
	}

	checkers := c.Validation.Checkers[:0]
	for i, s := range c.Validation.Checkers {
		if _, err := validation.NewCommandChecker(s); err != nil {
			problems = append(problems, fmt.Sprintf("validation.checkers[%d] dropped: %v", i, err))
			continue
		}
		checkers = append(checkers, s)
	}
	c.Validation.Checkers = checkers

	return problems
}

// EnsureDir creates the configuration directory if it does not exist.
func (c *Config) EnsureDir() error {
	if c.ConfigDir == "" {
		return nil
	}
	if _, err := os.Stat(c.ConfigDir); os.IsNotExist(err) {
		return os.MkdirAll(c.ConfigDir, 0700)
	}
	return nil
}

func oneOf(s string, options ...string) bool {
	for _, o := range options {
		if s == o {
			return true
		}
	}
	return false
}

func expandHome(path, home string) string {
	if path == "~" {
		return home
	}
	if strings.HasPrefix(path, "~/") {
		return filepath.Join(home, path[2:])
	}
	return path
}
