// Package repair invokes an external repair command between validation
// attempts and reports which files it changed.
package repair

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"sort"
	"strings"
	"time"

	"github.com/gzhole/intentguard/internal/validation"
)

const (
	DefaultTimeout = 5 * time.Minute

	maxOutput = 8 * 1024
	waitDelay = 500 * time.Millisecond
)

// Spec configures the repair command.
type Spec struct {
	Command string        `mapstructure:"command" yaml:"command"`
	Args    []string      `mapstructure:"args" yaml:"args,omitempty"`
	Timeout time.Duration `mapstructure:"timeout" yaml:"timeout,omitempty"`
}

// Request is written as JSON to the repair command's stdin.
type Request struct {
	Iteration int       `json:"iteration"`
	Files     []string  `json:"files"`
	Failures  []Failure `json:"failures"`
}

// Failure is one failing checker the repair should address.
type Failure struct {
	Checker     string               `json:"checker"`
	Diagnostics string               `json:"diagnostics"`
	Findings    []validation.Finding `json:"findings,omitempty"`
}

// NewRequest builds a repair request from a failed validation run.
func NewRequest(run validation.Run) Request {
	req := Request{Iteration: run.Iteration, Files: run.Files}
	for _, r := range run.Failed() {
		req.Failures = append(req.Failures, Failure{Checker: r.Name, Diagnostics: r.Diagnostics, Findings: r.Findings})
	}
	return req
}

// Result describes one repair attempt.
type Result struct {
	ChangedFiles []FileChange  `json:"changed_files"`
	DiffSummary  string        `json:"diff_summary"`
	Output       string        `json:"output,omitempty"`
	Duration     time.Duration `json:"duration_ns"`
}

type FileChange struct {
	Path      string `json:"path"`
	Action    string `json:"action"` // "added", "modified", "deleted"
	SizeDelta int64  `json:"size_delta"`
}

// CommandRepairer runs a configured command to fix failing files.
type CommandRepairer struct {
	spec Spec
	dir  string
	err  error // set when the command line could not be parsed
}

// New returns nil when no repair command is configured. The command may
// carry its own arguments ("ruff check --fix").
func New(spec Spec, dir string) *CommandRepairer {
	if strings.TrimSpace(spec.Command) == "" {
		return nil
	}
	if spec.Timeout <= 0 {
		spec.Timeout = DefaultTimeout
	}
	r := &CommandRepairer{spec: spec, dir: dir}
	r.spec.Command, r.spec.Args, r.err = validation.SplitCommand(spec.Command, spec.Args)
	return r
}

// Repair runs the command once. A non-zero exit, a timeout or a failure
// to start is an error; the files it touched are reported either way.
func (r *CommandRepairer) Repair(ctx context.Context, req Request) (Result, error) {
	if r.err != nil {
		return Result{}, fmt.Errorf("repair command could not start: %w", r.err)
	}
	start := time.Now()
	payload, err := json.Marshal(req)
	if err != nil {
		return Result{}, fmt.Errorf("failed to encode repair request: %w", err)
	}

	before := captureState(req.Files)

	ctx, cancel := context.WithTimeout(ctx, r.spec.Timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, r.spec.Command, r.spec.Args...)
	cmd.Dir = r.dir
	cmd.WaitDelay = waitDelay
	cmd.Stdin = bytes.NewReader(payload)
	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out
	cmdErr := cmd.Run()

	changes := computeChanges(before, captureState(req.Files))
	res := Result{
		ChangedFiles: changes,
		DiffSummary:  buildDiffSummary(changes),
		Output:       truncate(out.String()),
		Duration:     time.Since(start),
	}

	if cmdErr != nil {
		if ctx.Err() != nil {
			return res, fmt.Errorf("repair command %s did not finish: %w", r.spec.Command, ctx.Err())
		}
		var exitErr *exec.ExitError
		if errors.As(cmdErr, &exitErr) {
			return res, fmt.Errorf("repair command %s failed: %w", r.spec.Command, cmdErr)
		}
		return res, fmt.Errorf("repair command %s could not start: %w", r.spec.Command, cmdErr)
	}
	return res, nil
}

type fileState struct {
	size    int64
	modTime int64
	exists  bool
}

func captureState(files []string) map[string]fileState {
	state := make(map[string]fileState, len(files))
	for _, f := range files {
		info, err := os.Stat(f)
		if err != nil || info.IsDir() {
			state[f] = fileState{}
			continue
		}
		state[f] = fileState{size: info.Size(), modTime: info.ModTime().UnixNano(), exists: true}
	}
	return state
}

func computeChanges(before, after map[string]fileState) []FileChange {
	changes := []FileChange{}
	for path, a := range after {
		b := before[path]
		switch {
		case a.exists && !b.exists:
			changes = append(changes, FileChange{Path: path, Action: "added", SizeDelta: a.size})
		case !a.exists && b.exists:
			changes = append(changes, FileChange{Path: path, Action: "deleted", SizeDelta: -b.size})
		case a.exists && (a.modTime != b.modTime || a.size != b.size):
			changes = append(changes, FileChange{Path: path, Action: "modified", SizeDelta: a.size - b.size})
		}
	}
	sort.Slice(changes, func(i, j int) bool { return changes[i].Path < changes[j].Path })
	return changes
}

func buildDiffSummary(changes []FileChange) string {
	if len(changes) == 0 {
		return "No files changed."
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%d file(s) changed:\n", len(changes)))
	for _, c := range changes {
		switch c.Action {
		case "added":
			sb.WriteString(fmt.Sprintf("  + %s (new, %d bytes)\n", c.Path, c.SizeDelta))
		case "modified":
			sb.WriteString(fmt.Sprintf("  ~ %s (%+d bytes)\n", c.Path, c.SizeDelta))
		case "deleted":
			sb.WriteString(fmt.Sprintf("  - %s (removed)\n", c.Path))
		}
	}
	return strings.TrimRight(sb.String(), "\n")
}

func truncate(s string) string {
	s = strings.TrimSpace(s)
	if len(s) <= maxOutput {
		return s
	}
	return s[:maxOutput] + "\n[output truncated]"
}
