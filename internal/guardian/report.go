package guardian

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/gzhole/intentguard/internal/validation"
)

// maxReportDiagnostics bounds the diagnostics printed per checker.
const maxReportDiagnostics = 2000

type reportStyles struct {
	title lipgloss.Style
	pass  lipgloss.Style
	fail  lipgloss.Style
	skip  lipgloss.Style
	dim   lipgloss.Style
	box   lipgloss.Style
}

func newReportStyles(w io.Writer) reportStyles {
	r := lipgloss.NewRenderer(w)
	return reportStyles{
		title: r.NewStyle().Bold(true).Foreground(lipgloss.Color("9")),
		pass:  r.NewStyle().Foreground(lipgloss.Color("10")),
		fail:  r.NewStyle().Bold(true).Foreground(lipgloss.Color("9")),
		skip:  r.NewStyle().Foreground(lipgloss.Color("11")),
		dim:   r.NewStyle().Faint(true),
		box:   r.NewStyle().PaddingLeft(4),
	}
}

func (s reportStyles) status(st validation.Status) string {
	switch st {
	case validation.StatusPass:
		return s.pass.Render("PASS")
	case validation.StatusFail:
		return s.fail.Render("FAIL")
	default:
		return s.skip.Render("SKIP")
	}
}

// WriteReport renders the manual-intervention report for an outcome:
// the checkers run, which failed, the final diagnostics and the iteration
// history. Colors are used only when w is a terminal.
func WriteReport(w io.Writer, o Outcome) error {
	s := newReportStyles(w)
	var b strings.Builder

	last, ok := o.Last()
	if o.Final == StatePassed {
		fmt.Fprintf(&b, "%s validation passed after %d iteration(s)\n", s.pass.Render("[intentguard]"), o.Iterations())
		_, err := io.WriteString(w, b.String())
		return err
	}

	b.WriteString(s.title.Render("[intentguard] Manual intervention required"))
	b.WriteString("\n")
	fmt.Fprintf(&b, "Validation still failing after %d iteration(s) (level: %s)\n", o.Iterations(), o.Level)
	if len(o.Files) > 0 {
		fmt.Fprintf(&b, "Files: %s\n", strings.Join(o.Files, ", "))
	}

	if ok {
		b.WriteString("\nCheckers:\n")
		for _, r := range last.Results {
			fmt.Fprintf(&b, "  %s  %s", s.status(r.Status), r.Name)
			if r.Status == validation.StatusSkipped && r.Diagnostics != "" {
				b.WriteString(s.dim.Render(" (" + r.Diagnostics + ")"))
			}
			b.WriteString("\n")
		}

		for _, r := range last.Failed() {
			fmt.Fprintf(&b, "\n%s diagnostics:\n", r.Name)
			diag := r.Diagnostics
			if len(diag) > maxReportDiagnostics {
				diag = diag[:maxReportDiagnostics] + "\n..."
			}
			if diag == "" {
				diag = "(no output)"
			}
			b.WriteString(s.box.Render(diag))
			b.WriteString("\n")
		}
	}

	b.WriteString("\nHistory:\n")
	for _, a := range o.Attempts {
		var failing []string
		for _, r := range a.Run.Failed() {
			failing = append(failing, r.Name)
		}
		line := fmt.Sprintf("  #%d %s", a.Iteration, a.Run.Overall)
		if len(failing) > 0 {
			line += " (" + strings.Join(failing, ", ") + ")"
		}
		switch {
		case a.RepairErr != "":
			line += " -> repair failed: " + a.RepairErr
		case a.Repair != nil:
			line += fmt.Sprintf(" -> repaired %d file(s)", len(a.Repair.ChangedFiles))
		}
		b.WriteString(s.dim.Render(line))
		b.WriteString("\n")
	}

	_, err := io.WriteString(w, b.String())
	return err
}
