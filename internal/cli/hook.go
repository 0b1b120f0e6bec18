package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/gzhole/intentguard/internal/guardian"
	"github.com/gzhole/intentguard/internal/normalize"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/term"
)

// maxHookInput bounds how much of stdin is read.
const maxHookInput = 4 << 20

// PostToolUse payloads are validated under this phase name.
const phasePostToolUse = "post_tool_use"

// hookInput is the JSON object an agent hook sends on stdin.
// Prompt hooks send:     {"hook_event_name": "UserPromptSubmit", "prompt": "...", "cwd": "..."}
// Validation hooks send: {"phase": "...", "files": ["..."]}
// Claude Code sends:     {"hook_event_name": "PostToolUse", "tool_name": "Edit", "tool_input": {"file_path": "..."}}
type hookInput struct {
	HookEventName string    `json:"hook_event_name"`
	SessionID     string    `json:"session_id"`
	Cwd           string    `json:"cwd"`
	Prompt        string    `json:"prompt"`
	Phase         string    `json:"phase"`
	Files         []string  `json:"files"`
	ToolName      string    `json:"tool_name"`
	ToolInput     toolInput `json:"tool_input"`
}

type toolInput struct {
	FilePath string `json:"file_path"`
}

// validationRequest returns the phase and files to validate, if the input
// asks for validation at all.
func (in hookInput) validationRequest() (string, []string, bool) {
	if len(in.Files) > 0 {
		return in.Phase, in.Files, true
	}
	if in.ToolInput.FilePath != "" && (in.HookEventName == "PostToolUse" || in.HookEventName == "") {
		return phasePostToolUse, []string{in.ToolInput.FilePath}, true
	}
	return "", nil, false
}

func newHookCmd(o *options) *cobra.Command {
	return &cobra.Command{
		Use:   "hook",
		Short: "Agent hook handler (prompt classification and post-edit validation)",
		Long: `Reads a hook JSON payload from stdin and handles it.

A payload with "prompt" is classified; a routing directive, if any, is
printed to stdout as {"systemMessage": ..., "suppressOutput": ...}.

A payload with "files" (or a PostToolUse payload with tool_input.file_path)
is validated through the guardian loop. Exit code 0 means passed, 1 a
blocking failure, 2 a warning.

Unreadable input, a terminal on stdin and internal errors all exit 0.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return hookCommand(cmd, o, true)
		},
	}
}

func newDetectCmd(o *options) *cobra.Command {
	return &cobra.Command{
		Use:   "detect",
		Short: "Classify a prompt hook payload from stdin",
		Long: `Same as "hook" but only handles prompt payloads. Validation payloads
are ignored.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return hookCommand(cmd, o, false)
		},
	}
}

func hookCommand(cmd *cobra.Command, o *options, allowValidation bool) error {
	in, ok := readHookInput(cmd.InOrStdin(), o.logger())
	if !ok {
		return nil
	}

	a, err := o.load()
	if err != nil {
		o.logger().Warn("hook skipped", zap.Error(err))
		return nil
	}
	a.openAudit()

	if in.Prompt != "" {
		return runDetection(cmd.Context(), a, in.Prompt, cmd.OutOrStdout())
	}

	phase, files, ok := in.validationRequest()
	if !ok || !allowValidation {
		return nil
	}

	cwd := in.Cwd
	if cwd == "" {
		cwd, _ = os.Getwd()
	}
	code, err := runGuardian(cmd.Context(), a, guardianSettings{phase: phase, dir: cwd},
		normalize.Files(files, cwd), cmd.ErrOrStderr())
	if err != nil {
		a.log.Warn("validation skipped", zap.Error(err))
		return nil
	}
	if code != 0 {
		return &ExitError{Code: code}
	}
	return nil
}

// readHookInput decodes the hook payload. It reports false for a terminal
// on stdin and for unreadable or malformed input.
func readHookInput(r io.Reader, log *zap.Logger) (hookInput, bool) {
	if f, ok := r.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		return hookInput{}, false
	}

	data, err := io.ReadAll(io.LimitReader(r, maxHookInput))
	if err != nil {
		log.Warn("could not read hook input", zap.Error(err))
		return hookInput{}, false
	}
	if strings.TrimSpace(string(data)) == "" {
		return hookInput{}, false
	}

	var in hookInput
	if err := json.Unmarshal(data, &in); err != nil {
		log.Warn("could not parse hook input", zap.Error(err))
		return hookInput{}, false
	}
	return in, true
}

// runDetection classifies prompt and writes the directive, if any, to out.
func runDetection(ctx context.Context, a *app, prompt string, out io.Writer) error {
	detector, err := a.detector()
	if err != nil {
		a.log.Warn("classifier unavailable", zap.Error(err))
		return nil
	}

	det := detector.Detect(ctx, prompt)
	a.recordDetection(det)
	a.log.Debug("detection",
		zap.String("category", string(det.Result.Category)),
		zap.String("source", string(det.Result.Source)),
		zap.Float64("confidence", det.Result.Confidence),
		zap.String("decision", string(det.Decision.Type)),
		zap.String("target", det.Decision.TargetID),
		zap.String("skipped", det.Skipped),
	)

	directive, ok := detector.Directive(det)
	if !ok {
		return nil
	}
	data, err := json.Marshal(directive)
	if err != nil {
		return nil
	}
	_, _ = fmt.Fprintln(out, string(data))
	return nil
}

// runGuardian drives one guardian cycle over files and writes the report
// to report. It returns the exit code for the outcome.
func runGuardian(ctx context.Context, a *app, s guardianSettings, files []string, report io.Writer) (int, error) {
	loop, pipeline, level, err := a.guardian(s)
	if err != nil {
		return 0, err
	}
	if !pipeline.Applicable(files) {
		a.log.Debug("no applicable files", zap.Strings("files", files))
		return 0, nil
	}

	out, err := loop.Run(ctx, files)
	var exhausted *guardian.ExhaustedError
	switch {
	case err == nil:
	case errors.As(err, &exhausted):
		a.log.Debug("guardian exhausted", zap.Error(err))
	default:
		return 0, err
	}

	if werr := guardian.WriteReport(report, out); werr != nil {
		a.log.Warn("report failed", zap.Error(werr))
	}
	return guardian.ExitCode(out, level), nil
}
