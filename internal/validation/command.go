package validation

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"
)

const (
	DefaultCheckerTimeout = 120 * time.Second

	// maxDiagnostics caps the output kept per checker.
	maxDiagnostics = 8 * 1024

	waitDelay = 500 * time.Millisecond
)

// Criterion decides how a checker's outcome is judged.
type Criterion string

const (
	// CriterionExitCode passes on a zero exit status.
	CriterionExitCode Criterion = "exit_code"
	// CriterionFindings parses the output and fails on any finding at or
	// above the minimum severity. A non-zero exit with nothing parseable
	// in the output fails too.
	CriterionFindings Criterion = "findings"
)

// Spec describes a command-line checker.
type Spec struct {
	Name        string        `mapstructure:"name" yaml:"name"`
	Command     string        `mapstructure:"command" yaml:"command"`
	Args        []string      `mapstructure:"args" yaml:"args,omitempty"`
	Extensions  []string      `mapstructure:"extensions" yaml:"extensions,omitempty"`
	Criterion   Criterion     `mapstructure:"criterion" yaml:"criterion,omitempty"`
	MinSeverity string        `mapstructure:"min_severity" yaml:"min_severity,omitempty"`
	Timeout     time.Duration `mapstructure:"timeout" yaml:"timeout,omitempty"`
}

// DefaultSpecs are the built-in checkers: a type checker, a linter and a
// security analyzer, in that order.
func DefaultSpecs() []Spec {
	return []Spec{
		{
			Name:        "typecheck",
			Command:     "mypy",
			Args:        []string{"--no-error-summary", "--no-color-output"},
			Extensions:  []string{".py"},
			Criterion:   CriterionFindings,
			MinSeverity: "error",
		},
		{
			Name:       "lint",
			Command:    "ruff",
			Args:       []string{"check", "--quiet"},
			Extensions: []string{".py"},
			Criterion:  CriterionExitCode,
		},
		{
			Name:       "analyze",
			Command:    "bandit",
			Args:       []string{"-q"},
			Extensions: []string{".py"},
			Criterion:  CriterionExitCode,
		},
	}
}

// CommandChecker runs an external tool with the files appended to its
// arguments.
type CommandChecker struct {
	spec     Spec
	minSev   Severity
	lookPath func(string) (string, error)
}

// NewCommandChecker validates spec and applies its defaults.
func NewCommandChecker(spec Spec) (*CommandChecker, error) {
	if spec.Name == "" {
		return nil, errors.New("checker name is required")
	}
	if strings.TrimSpace(spec.Command) == "" {
		return nil, fmt.Errorf("checker %s: command is required", spec.Name)
	}
	name, args, err := SplitCommand(spec.Command, spec.Args)
	if err != nil {
		return nil, fmt.Errorf("checker %s: %w", spec.Name, err)
	}
	spec.Command, spec.Args = name, args
	switch spec.Criterion {
	case "":
		spec.Criterion = CriterionExitCode
	case CriterionExitCode, CriterionFindings:
	default:
		return nil, fmt.Errorf("checker %s: unknown criterion %q", spec.Name, spec.Criterion)
	}
	if spec.Timeout <= 0 {
		spec.Timeout = DefaultCheckerTimeout
	}
	minSev := SeverityError
	if spec.MinSeverity != "" {
		minSev = ParseSeverity(spec.MinSeverity)
	}
	exts := make([]string, 0, len(spec.Extensions))
	for _, e := range spec.Extensions {
		e = strings.ToLower(strings.TrimSpace(e))
		if e == "" {
			continue
		}
		if !strings.HasPrefix(e, ".") {
			e = "." + e
		}
		exts = append(exts, e)
	}
	spec.Extensions = exts

	return &CommandChecker{spec: spec, minSev: minSev, lookPath: exec.LookPath}, nil
}

func (c *CommandChecker) Name() string { return c.spec.Name }

// Spec returns the checker definition after defaults were applied.
func (c *CommandChecker) Spec() Spec { return c.spec }

func (c *CommandChecker) Available() bool {
	_, err := c.lookPath(c.spec.Command)
	return err == nil
}

// Applies matches on file extension. A checker with no extensions applies
// to every file.
func (c *CommandChecker) Applies(file string) bool {
	if len(c.spec.Extensions) == 0 {
		return true
	}
	ext := strings.ToLower(filepath.Ext(file))
	for _, e := range c.spec.Extensions {
		if e == ext {
			return true
		}
	}
	return false
}

func (c *CommandChecker) Check(ctx context.Context, files []string) Result {
	start := time.Now()
	res := Result{Name: c.spec.Name}

	ctx, cancel := context.WithTimeout(ctx, c.spec.Timeout)
	defer cancel()

	args := append(append([]string{}, c.spec.Args...), files...)
	cmd := exec.CommandContext(ctx, c.spec.Command, args...)
	cmd.WaitDelay = waitDelay
	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out

	runErr := cmd.Run()
	res.Duration = time.Since(start)
	combined := strings.TrimSpace(out.String())

	if ctx.Err() != nil {
		res.Status = StatusFail
		res.Diagnostics = truncate(fmt.Sprintf("%s did not finish: %v\n%s", c.spec.Command, ctx.Err(), combined))
		return res
	}

	var exitErr *exec.ExitError
	if runErr != nil && !errors.As(runErr, &exitErr) {
		// The tool could not be started at all.
		res.Status = StatusFail
		res.Diagnostics = truncate(fmt.Sprintf("%s: %v", c.spec.Command, runErr))
		return res
	}

	res.Diagnostics = truncate(combined)
	switch c.spec.Criterion {
	case CriterionFindings:
		res.Findings = ParseFindings(combined)
		res.Status = StatusPass
		if runErr != nil && len(res.Findings) == 0 {
			// Crashed, misconfigured, or output in a format we cannot read.
			res.Status = StatusFail
			if res.Diagnostics == "" {
				res.Diagnostics = runErr.Error()
			}
			break
		}
		for _, f := range res.Findings {
			if f.Severity >= c.minSev {
				res.Status = StatusFail
				break
			}
		}
	default:
		res.Status = StatusPass
		if runErr != nil {
			res.Status = StatusFail
			if res.Diagnostics == "" {
				res.Diagnostics = runErr.Error()
			}
		}
	}
	return res
}

var (
	// path:line[:col]: severity: message (mypy, gcc, eslint unix format)
	lineFinding = regexp.MustCompile(`^(.+?):(\d+)(?::\d+)?:\s*(error|warning|warn|note|info)\b:?\s*(.*)$`)
	// bandit style "Severity: High"
	blockSeverity = regexp.MustCompile(`(?i)\bseverity:\s*(low|medium|high)\b`)
	blockLocation = regexp.MustCompile(`(?i)\blocation:\s*(.+?):(\d+)`)
	blockIssue    = regexp.MustCompile(`^>>\s*Issue:\s*(.*)$`)
)

// ParseFindings extracts findings from tool output. Lines that match no
// known format are ignored.
func ParseFindings(output string) []Finding {
	var findings []Finding
	var pending *Finding

	flush := func() {
		if pending != nil {
			findings = append(findings, *pending)
			pending = nil
		}
	}

	for _, line := range strings.Split(output, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if m := lineFinding.FindStringSubmatch(line); m != nil {
			flush()
			n, _ := strconv.Atoi(m[2])
			sev := ParseSeverity(m[3])
			findings = append(findings, Finding{File: m[1], Line: n, Severity: sev, Level: sev.String(), Message: m[4]})
			continue
		}
		if m := blockIssue.FindStringSubmatch(line); m != nil {
			flush()
			pending = &Finding{Message: m[1], Severity: SeverityInfo, Level: SeverityInfo.String()}
			continue
		}
		if pending == nil {
			continue
		}
		if m := blockSeverity.FindStringSubmatch(line); m != nil {
			pending.Severity = ParseSeverity(m[1])
			pending.Level = pending.Severity.String()
		}
		if m := blockLocation.FindStringSubmatch(line); m != nil {
			pending.File = m[1]
			pending.Line, _ = strconv.Atoi(m[2])
		}
	}
	flush()
	return findings
}

func truncate(s string) string {
	s = strings.TrimSpace(s)
	if len(s) <= maxDiagnostics {
		return s
	}
	return s[:maxDiagnostics] + "\n[output truncated]"
}
