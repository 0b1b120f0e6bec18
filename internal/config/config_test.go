package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/gzhole/intentguard/internal/validation"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// isolate points HOME and the working directory at empty temp dirs so no
// real configuration leaks into a test.
func isolate(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Chdir(t.TempDir())
	return home
}

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0600))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	home := isolate(t)

	cfg, err := Load("")
	require.NoError(t, err)

	assert.True(t, cfg.DetectionEnabled)
	assert.Equal(t, "suggest", cfg.DetectionMode)
	assert.Equal(t, "medium", cfg.AnnoyanceThreshold)
	assert.False(t, cfg.UseSemanticClassifier)
	assert.InDelta(t, 0.60, cfg.ConfidenceFloor, 1e-9)
	assert.Equal(t, "blocking", cfg.ValidationLevel)
	assert.Equal(t, 3, cfg.MaxIterations)
	assert.Equal(t, []string{"/"}, cfg.CommandPrefixes)
	assert.Equal(t, 10*time.Second, cfg.Semantic.Timeout)
	assert.Equal(t, "cli", cfg.Semantic.Backend)
	assert.Equal(t, 4, cfg.Scoring.MinScore)
	assert.Equal(t, filepath.Join(home, ".intentguard", "audit.jsonl"), cfg.AuditLog)
	assert.Empty(t, cfg.ConfigFile)

	require.Len(t, cfg.Validation.Checkers, 3)
	assert.Equal(t, "typecheck", cfg.Validation.Checkers[0].Name)
	assert.Equal(t, validation.CriterionFindings, cfg.Validation.Checkers[0].Criterion)
	assert.Equal(t, []string{".py"}, cfg.Validation.Checkers[1].Extensions)
}

func TestLoad_File(t *testing.T) {
	isolate(t)
	path := writeConfig(t, `
detection_mode: inject
annoyance_threshold: high
use_semantic_classifier: true
confidence_floor: 0.75
validation_level: warning
max_iterations: 5
command_prefixes: ["/", "!"]
audit_log: ~/logs/guard.jsonl
semantic:
  backend: anthropic
  model: claude-3-5-haiku-latest
  timeout: 3s
validation:
  parallel: true
  checkers:
    - name: vet
      command: go
      args: [vet]
      extensions: [.go]
      timeout: 30s
repair:
  command: ./scripts/autofix.sh
  timeout: 2m
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "inject", cfg.DetectionMode)
	assert.Equal(t, "high", cfg.AnnoyanceThreshold)
	assert.True(t, cfg.UseSemanticClassifier)
	assert.InDelta(t, 0.75, cfg.ConfidenceFloor, 1e-9)
	assert.Equal(t, "warning", cfg.ValidationLevel)
	assert.Equal(t, 5, cfg.MaxIterations)
	assert.Equal(t, []string{"/", "!"}, cfg.CommandPrefixes)
	assert.Equal(t, "anthropic", cfg.Semantic.Backend)
	assert.Equal(t, 3*time.Second, cfg.Semantic.Timeout)
	assert.True(t, cfg.Validation.Parallel)
	assert.Equal(t, "./scripts/autofix.sh", cfg.Repair.Command)
	assert.Equal(t, 2*time.Minute, cfg.Repair.Timeout)
	assert.Equal(t, path, cfg.ConfigFile)
	assert.Equal(t, filepath.Join(os.Getenv("HOME"), "logs", "guard.jsonl"), cfg.AuditLog)

	require.Len(t, cfg.Validation.Checkers, 1, "a configured list replaces the default checkers")
	vet := cfg.Validation.Checkers[0]
	assert.Equal(t, "vet", vet.Name)
	assert.Equal(t, []string{"vet"}, vet.Args)
	assert.Equal(t, 30*time.Second, vet.Timeout)
}

func TestLoad_ProjectDirectory(t *testing.T) {
	isolate(t)
	require.NoError(t, os.MkdirAll(".intentguard", 0700))
	require.NoError(t, os.WriteFile(filepath.Join(".intentguard", "config.yaml"), []byte("max_iterations: 7\n"), 0600))

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 7, cfg.MaxIterations)
}

func TestLoad_EnvOverrides(t *testing.T) {
	isolate(t)
	t.Setenv("INTENTGUARD_DETECTION_MODE", "disabled")
	t.Setenv("INTENTGUARD_USE_SEMANTIC_CLASSIFIER", "true")
	t.Setenv("INTENTGUARD_SEMANTIC_BACKEND", "openai")
	t.Setenv("INTENTGUARD_MAX_ITERATIONS", "2")

	cfg, err := Load(writeConfig(t, "detection_mode: inject\n"))
	require.NoError(t, err)

	assert.Equal(t, "disabled", cfg.DetectionMode, "env wins over file")
	assert.True(t, cfg.UseSemanticClassifier)
	assert.Equal(t, "openai", cfg.Semantic.Backend)
	assert.Equal(t, 2, cfg.MaxIterations)
}

func TestLoad_InvalidValuesFallBackPerField(t *testing.T) {
	isolate(t)
	path := writeConfig(t, `
detection_mode: shout
annoyance_threshold: medium
confidence_floor: 1.5
validation_level: strict
max_iterations: 0
semantic:
  backend: carrier-pigeon
scoring:
  min_score: -1
validation:
  checkers:
    - name: ok
      command: ruff
    - name: broken
`)

	cfg, err := Load(path)
	require.Error(t, err)

	var cerr *ConfigError
	require.True(t, errors.As(err, &cerr))
	assert.Equal(t, path, cerr.File)
	assert.Len(t, cerr.Problems, 7)

	assert.Equal(t, "suggest", cfg.DetectionMode)
	assert.Equal(t, "medium", cfg.AnnoyanceThreshold, "valid fields are kept")
	assert.InDelta(t, 0.60, cfg.ConfidenceFloor, 1e-9)
	assert.Equal(t, "blocking", cfg.ValidationLevel)
	assert.Equal(t, 1, cfg.MaxIterations)
	assert.Equal(t, "cli", cfg.Semantic.Backend)
	assert.Equal(t, 4, cfg.Scoring.MinScore)
	require.Len(t, cfg.Validation.Checkers, 1)
	assert.Equal(t, "ok", cfg.Validation.Checkers[0].Name)
}

func TestLoad_MalformedFile(t *testing.T) {
	isolate(t)
	path := writeConfig(t, "detection_mode: [unclosed\n  : :")

	cfg, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "malformed")
	require.NotNil(t, cfg)
	assert.Equal(t, "suggest", cfg.DetectionMode)
	assert.Equal(t, 3, cfg.MaxIterations)
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	isolate(t)
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "suggest", cfg.DetectionMode)
}

func TestEnsureDir(t *testing.T) {
	isolate(t)
	cfg, err := Load("")
	require.NoError(t, err)
	require.NoError(t, cfg.EnsureDir())

	info, err := os.Stat(cfg.ConfigDir)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
	assert.Equal(t, os.FileMode(0700), info.Mode().Perm())
}
