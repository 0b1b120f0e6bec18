package cli

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/gzhole/intentguard/internal/logger"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// ExitError carries a process exit code out of a command. The hook and
// validate commands use it for the 1 (blocking) and 2 (warning) outcomes.
type ExitError struct {
	Code int
}

func (e *ExitError) Error() string { return fmt.Sprintf("exit status %d", e.Code) }

// options are the persistent flags shared by every subcommand.
type options struct {
	configPath string
	logPath    string
	verbose    bool

	diag *zap.Logger
}

func (o *options) logger() *zap.Logger {
	if o.diag == nil {
		return zap.NewNop()
	}
	return o.diag
}

// NewRootCommand builds the intentguard command tree.
func NewRootCommand() *cobra.Command {
	o := &options{}

	root := &cobra.Command{
		Use:   "intentguard",
		Short: "intentguard - intent routing and validation hooks for coding agents",
		Long: `intentguard sits in the hook chain of a coding agent. On every user
prompt it classifies the request (rule table, optional semantic classifier,
scored fallback) and suggests or injects the matching utility agent or
workflow. After file edits it runs the configured checkers and, through a
bounded repair loop, keeps broken code from slipping through.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			diag, err := logger.NewDiagnostic(o.verbose)
			if err != nil {
				return fmt.Errorf("diagnostic logger: %w", err)
			}
			o.diag = diag
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if o.diag != nil {
				_ = o.diag.Sync()
			}
		},
	}

	root.PersistentFlags().StringVar(&o.configPath, "config", "", "Path to config file (default: ./.intentguard/config.yaml or ~/.intentguard/config.yaml)")
	root.PersistentFlags().StringVar(&o.logPath, "log", "", "Path to audit log file (default: ~/.intentguard/audit.jsonl)")
	root.PersistentFlags().BoolVarP(&o.verbose, "verbose", "v", false, "Write debug diagnostics to stderr")

	root.AddCommand(
		newHookCmd(o),
		newDetectCmd(o),
		newClassifyCmd(o),
		newValidateCmd(o),
		newLogCmd(o),
		newStatusCmd(o),
		newConfigCmd(o),
		newRulesCmd(o),
		newSetupCmd(),
		newVersionCmd(),
	)
	return root
}

// Execute runs the command line and returns the process exit code.
func Execute(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	root := NewRootCommand()
	root.SetArgs(args)
	root.SetIn(stdin)
	root.SetOut(stdout)
	root.SetErr(stderr)
	return exitCodeFor(root.ExecuteContext(ctx), stderr)
}

func exitCodeFor(err error, stderr io.Writer) int {
	if err == nil {
		return 0
	}
	var ee *ExitError
	if errors.As(err, &ee) {
		return ee.Code
	}
	fmt.Fprintf(stderr, "Error: %v\n", err)
	return 1
}
