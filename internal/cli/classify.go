package cli

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/gzhole/intentguard/internal/intent"
	"github.com/gzhole/intentguard/internal/router"
	"github.com/spf13/cobra"
)

// classifyOutput is what "classify" prints.
type classifyOutput struct {
	Text       string            `json:"text"`
	Normalized string            `json:"normalized,omitempty"`
	Result     intent.Result     `json:"result"`
	Decision   router.Decision   `json:"decision"`
	Skipped    string            `json:"skipped,omitempty"`
	Directive  *router.Directive `json:"directive,omitempty"`
}

func newClassifyCmd(o *options) *cobra.Command {
	return &cobra.Command{
		Use:   "classify <text>",
		Short: "Classify a request and print the result as JSON",
		Long: `Runs the full classifier pipeline over the text and prints the intent
result, the routing decision and the directive the hook would emit.
Nothing is written to the audit log.

  intentguard classify "find all files matching *.rb"`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := o.load()
			if err != nil {
				return err
			}
			detector, err := a.detector()
			if err != nil {
				return err
			}

			det := detector.Detect(cmd.Context(), strings.Join(args, " "))
			out := classifyOutput{
				Text:       det.Request.Text,
				Normalized: det.Request.Normalized,
				Result:     det.Result,
				Decision:   det.Decision,
				Skipped:    det.Skipped,
			}
			if d, ok := detector.Directive(det); ok {
				out.Directive = &d
			}

			data, err := json.MarshalIndent(out, "", "  ")
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(data))
			return nil
		},
	}
}
