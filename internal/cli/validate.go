package cli

import (
	"os"

	"github.com/gzhole/intentguard/internal/normalize"
	"github.com/spf13/cobra"
)

func newValidateCmd(o *options) *cobra.Command {
	var s guardianSettings

	cmd := &cobra.Command{
		Use:   "validate <file>...",
		Short: "Run the checkers and the repair loop over files",
		Long: `Runs the configured checkers over the given files. While a checker
fails and a repair command is configured, the repair command is run and the
files are validated again, up to max_iterations times.

Examples:
  intentguard validate app.py
  intentguard validate --level warning src/*.py
  intentguard validate --max-iterations 1 app.py`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := o.load()
			if err != nil {
				return err
			}
			a.openAudit()
			cwd, err := os.Getwd()
			if err != nil {
				return err
			}
			s.dir = cwd
			code, err := runGuardian(cmd.Context(), a, s, normalize.Files(args, cwd), cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			if code != 0 {
				return &ExitError{Code: code}
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&s.level, "level", "", "Validation level: blocking, warning or advisory (default: from config)")
	cmd.Flags().IntVar(&s.maxIterations, "max-iterations", 0, "Maximum validation passes (default: from config)")
	cmd.Flags().StringVar(&s.phase, "phase", "manual", "Phase recorded in the audit log")
	return cmd
}
