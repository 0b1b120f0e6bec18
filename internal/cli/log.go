package cli

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/gzhole/intentguard/internal/logger"
	"github.com/spf13/cobra"
)

type logFilter struct {
	kind    string
	action  string
	last    int
	summary bool
}

func newLogCmd(o *options) *cobra.Command {
	var f logFilter

	cmd := &cobra.Command{
		Use:   "log",
		Short: "View and filter the audit log",
		Long: `View the intentguard audit log with filtering and summary options.

Examples:
  intentguard log                        # Show all entries
  intentguard log --last 20              # Show last 20 entries
  intentguard log --kind detection       # Show only routing detections
  intentguard log --action exhausted     # Show only cycles that gave up
  intentguard log --summary              # Show summary stats`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := o.load()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}

			events, err := logger.ReadEvents(a.cfg.AuditLog)
			if err != nil {
				return fmt.Errorf("failed to read audit log: %w", err)
			}

			out := cmd.OutOrStdout()
			if len(events) == 0 {
				fmt.Fprintln(out, "No audit log entries found.")
				return nil
			}

			filtered := f.apply(events)
			if f.last > 0 && f.last < len(filtered) {
				filtered = filtered[len(filtered)-f.last:]
			}

			if f.summary {
				printSummary(out, events)
				return nil
			}
			printEvents(out, filtered)
			return nil
		},
	}

	cmd.Flags().StringVar(&f.kind, "kind", "", "Filter by kind (guardian, detection)")
	cmd.Flags().StringVar(&f.action, "action", "", "Filter guardian events by action (pass, repair, exhausted, repair_failed, canceled)")
	cmd.Flags().IntVar(&f.last, "last", 0, "Show last N entries")
	cmd.Flags().BoolVar(&f.summary, "summary", false, "Show summary statistics")
	return cmd
}

func (f logFilter) apply(events []logger.AuditEvent) []logger.AuditEvent {
	if f.kind == "" && f.action == "" {
		return events
	}

	var filtered []logger.AuditEvent
	for _, e := range events {
		if f.kind != "" && !strings.EqualFold(e.Kind, f.kind) {
			continue
		}
		if f.action != "" && !strings.EqualFold(e.Action, f.action) {
			continue
		}
		filtered = append(filtered, e)
	}
	return filtered
}

func printEvents(w io.Writer, events []logger.AuditEvent) {
	for _, e := range events {
		ts := formatTimestamp(e.Timestamp)

		switch e.Kind {
		case logger.KindDetection:
			target := e.Target
			if target == "" {
				target = "(none)"
			}
			fmt.Fprintf(w, "%s %s %s via %s (%.2f) -> %s\n",
				actionIcon(e.Decision), ts, e.Category, e.Source, e.Confidence, target)
			if e.RuleID != "" {
				fmt.Fprintf(w, "     Rule: %s\n", e.RuleID)
			}
			if e.Prompt != "" {
				fmt.Fprintf(w, "     Prompt: %s\n", e.Prompt)
			}
		default:
			fmt.Fprintf(w, "%s %s cycle %s #%d %s -> %s (%s)\n",
				actionIcon(e.Action), ts, shortID(e.RunID), e.Iteration, e.FromState, e.ToState, e.Action)
			if len(e.Files) > 0 {
				fmt.Fprintf(w, "     Files: %s\n", strings.Join(e.Files, ", "))
			}
			for _, c := range e.Checkers {
				fmt.Fprintf(w, "     %s: %s\n", c.Name, c.Status)
			}
			if len(e.ChangedFiles) > 0 {
				fmt.Fprintf(w, "     Repaired: %s\n", strings.Join(e.ChangedFiles, ", "))
			}
		}
		if e.Error != "" {
			fmt.Fprintf(w, "     Error: %s\n", e.Error)
		}
		fmt.Fprintln(w)
	}
}

func printSummary(w io.Writer, all []logger.AuditEvent) {
	actions := map[string]int{}
	categories := map[string]int{}
	cycles := map[string]bool{}
	detections := 0
	routed := 0
	var exhausted []logger.AuditEvent

	for _, e := range all {
		if e.Kind == logger.KindDetection {
			detections++
			categories[e.Category]++
			if e.Target != "" {
				routed++
			}
			continue
		}
		actions[e.Action]++
		if e.RunID != "" {
			cycles[e.RunID] = true
		}
		if e.Action == "exhausted" || e.Action == "repair_failed" {
			exhausted = append(exhausted, e)
		}
	}

	fmt.Fprintln(w, "═══════════════════════════════════════════")
	fmt.Fprintln(w, "  intentguard Audit Summary")
	fmt.Fprintln(w, "═══════════════════════════════════════════")
	fmt.Fprintf(w, "  Total events:    %d\n", len(all))
	fmt.Fprintf(w, "  Detections:      %d (%d routed)\n", detections, routed)
	fmt.Fprintf(w, "  Guardian cycles: %d\n", len(cycles))
	fmt.Fprintf(w, "    pass:          %d\n", actions["pass"])
	fmt.Fprintf(w, "    repair:        %d\n", actions["repair"])
	fmt.Fprintf(w, "    exhausted:     %d\n", actions["exhausted"]+actions["repair_failed"])
	fmt.Fprintf(w, "    canceled:      %d\n", actions["canceled"])
	fmt.Fprintln(w, "═══════════════════════════════════════════")

	fmt.Fprintf(w, "  First event:     %s\n", formatTimestamp(all[0].Timestamp))
	fmt.Fprintf(w, "  Last event:      %s\n", formatTimestamp(all[len(all)-1].Timestamp))

	if len(categories) > 0 {
		names := make([]string, 0, len(categories))
		for c := range categories {
			names = append(names, c)
		}
		sort.Strings(names)
		fmt.Fprintln(w)
		fmt.Fprintln(w, "  Intents:")
		for _, c := range names {
			fmt.Fprintf(w, "    %-20s %d\n", c, categories[c])
		}
	}

	if len(exhausted) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "  Needed manual intervention:")
		limit := len(exhausted)
		if limit > 10 {
			limit = 10
		}
		for _, e := range exhausted[len(exhausted)-limit:] {
			fmt.Fprintf(w, "    %s %s\n", formatTimestamp(e.Timestamp), strings.Join(e.Files, ", "))
		}
	}

	fmt.Fprintln(w)
}

func actionIcon(action string) string {
	switch action {
	case "pass":
		return "\xe2\x9c\x85" // check mark
	case "repair":
		return "\xf0\x9f\x94\xa7" // wrench
	case "exhausted", "repair_failed":
		return "\xf0\x9f\x9b\x91" // stop sign
	case "utility_agent", "workflow":
		return "\xe2\x9e\xa1" // arrow
	case "none":
		return "\xc2\xb7" // middle dot
	default:
		return "\xe2\x9d\x93" // question mark
	}
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func formatTimestamp(ts string) string {
	t, err := time.Parse(time.RFC3339, ts)
	if err != nil {
		return ts
	}
	return t.Local().Format("2006-01-02 15:04:05")
}
