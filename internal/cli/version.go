package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var (
	Version   = "0.1.0-dev"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print intentguard version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "intentguard %s\n", Version)
			fmt.Fprintf(w, "  Commit: %s\n", GitCommit)
			fmt.Fprintf(w, "  Built:  %s\n", BuildDate)
		},
	}
}
