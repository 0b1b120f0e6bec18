package semantic

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

// waitDelay bounds how long output copying may outlive a killed process.
const waitDelay = 500 * time.Millisecond

// CLIBackend runs a local claude-compatible CLI in print mode.
type CLIBackend struct {
	command string
	model   string
	// lookPath is swapped in tests.
	lookPath func(string) (string, error)
}

// NewCLIBackend returns a backend invoking command (default "claude").
func NewCLIBackend(command, model string) *CLIBackend {
	if command == "" {
		command = "claude"
	}
	if model == "" {
		model = "haiku"
	}
	return &CLIBackend{command: command, model: model, lookPath: exec.LookPath}
}

func (b *CLIBackend) Name() string { return "cli" }

// Available checks the command is on PATH without running it.
func (b *CLIBackend) Available() bool {
	_, err := b.lookPath(b.command)
	return err == nil
}

// Complete runs `<command> -p <prompt> --output-format json --model <model>`
// and returns stdout. The caller's context bounds the process lifetime.
func (b *CLIBackend) Complete(ctx context.Context, system, prompt string) (string, error) {
	combined := prompt
	if strings.TrimSpace(system) != "" {
		combined = fmt.Sprintf("[System Instructions]\n%s\n\n[User Request]\n%s", system, prompt)
	}

	args := []string{
		"-p", combined,
		"--output-format", "json",
		"--model", b.model,
	}
	cmd := exec.CommandContext(ctx, b.command, args...)
	cmd.WaitDelay = waitDelay

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return "", fmt.Errorf("%s timed out: %w", b.command, ctx.Err())
		}
		if errors.Is(ctx.Err(), context.Canceled) {
			return "", fmt.Errorf("%s canceled: %w", b.command, ctx.Err())
		}
		if errors.Is(err, exec.ErrNotFound) {
			return "", fmt.Errorf("%s: %w", b.command, ErrUnavailable)
		}
		return "", fmt.Errorf("%s failed: %w (stderr: %s)", b.command, err, truncateString(strings.TrimSpace(stderr.String()), 300))
	}

	return stdout.String(), nil
}
