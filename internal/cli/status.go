package cli

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/gzhole/intentguard/internal/redact"
	"github.com/gzhole/intentguard/internal/validation"
	"github.com/spf13/cobra"
)

// statusEnvVars are the environment variables worth showing in status.
var statusEnvVars = []string{"ANTHROPIC_API_KEY", "OPENAI_API_KEY"}

func newStatusCmd(o *options) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show intentguard status: hooks, classifier, checkers, audit log",
		Long: `Check whether intentguard is active: whether the agent hooks are
installed, how detection is configured, which checkers are installed, and
whether rule and audit files exist.

  intentguard status`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := o.load()
			if err != nil {
				return err
			}
			statusCommand(cmd.OutOrStdout(), a)
			return nil
		},
	}
}

func statusCommand(w io.Writer, a *app) {
	cfg := a.cfg

	fmt.Fprintln(w, "═══════════════════════════════════════════════════════")
	fmt.Fprintln(w, "  intentguard Status")
	fmt.Fprintln(w, "═══════════════════════════════════════════════════════")
	fmt.Fprintln(w)

	binPath, err := os.Executable()
	if err != nil {
		binPath = "unknown"
	}
	fmt.Fprintf(w, "  Binary:    %s (%s)\n", binPath, Version)
	configFile := cfg.ConfigFile
	if configFile == "" {
		configFile = "built-in defaults"
	}
	fmt.Fprintf(w, "  Config:    %s\n", configFile)
	fmt.Fprintln(w)

	fmt.Fprintln(w, "─── Agent Hooks ───────────────────────────────────────")
	checkHook(w, "Claude Code (user)", filepath.Join(os.Getenv("HOME"), ".claude", "settings.json"))
	checkHook(w, "Claude Code (project)", filepath.Join(".claude", "settings.json"))
	fmt.Fprintln(w)

	fmt.Fprintln(w, "─── Detection ─────────────────────────────────────────")
	if !cfg.DetectionEnabled {
		fmt.Fprintln(w, "  ⬚  Detection disabled")
	} else {
		fmt.Fprintf(w, "  ✅ Mode: %s, annoyance threshold: %s\n", cfg.DetectionMode, cfg.AnnoyanceThreshold)
	}
	if cfg.UseSemanticClassifier {
		adapter, err := a.semanticAdapter()
		switch {
		case err != nil:
			fmt.Fprintf(w, "  ⚠  Semantic classifier: %v\n", err)
		case adapter.Available():
			fmt.Fprintf(w, "  ✅ Semantic classifier: %s (floor %.2f)\n", cfg.Semantic.Backend, cfg.ConfidenceFloor)
		default:
			fmt.Fprintf(w, "  ⚠  Semantic classifier: %s not available, scored fallback only\n", cfg.Semantic.Backend)
		}
	} else {
		fmt.Fprintln(w, "  ⬚  Semantic classifier: off")
	}
	var env []string
	for _, name := range statusEnvVars {
		if v, ok := os.LookupEnv(name); ok && v != "" {
			env = append(env, name+"="+v)
		}
	}
	for _, e := range redact.EnvVars(env) {
		fmt.Fprintf(w, "     %s\n", e)
	}

	table, infos, err := a.rules()
	if err != nil {
		fmt.Fprintf(w, "  ⚠  Rules: %v\n", err)
	} else {
		source := cfg.RulesFile
		if _, err := os.Stat(source); err != nil {
			source = "built-in defaults"
		}
		fmt.Fprintf(w, "  ✅ Rules: %d (%s)\n", len(table.Rules), source)
		if len(infos) > 0 {
			enabled := 0
			for _, info := range infos {
				if info.Enabled {
					enabled++
				}
			}
			fmt.Fprintf(w, "  ✅ Rule packs: %d installed, %d enabled\n", len(infos), enabled)
		}
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "─── Validation ────────────────────────────────────────")
	fmt.Fprintf(w, "  Level: %s, max iterations: %d\n", cfg.ValidationLevel, cfg.MaxIterations)
	for _, spec := range cfg.Validation.Checkers {
		c, err := validation.NewCommandChecker(spec)
		if err != nil {
			fmt.Fprintf(w, "  ⚠  %s: %v\n", spec.Name, err)
			continue
		}
		if c.Available() {
			fmt.Fprintf(w, "  ✅ %s: %s\n", spec.Name, spec.Command)
		} else {
			fmt.Fprintf(w, "  ⬚  %s: %s not installed (skipped)\n", spec.Name, spec.Command)
		}
	}
	if strings.TrimSpace(cfg.Repair.Command) == "" {
		fmt.Fprintln(w, "  ⬚  Repair: none configured (failures are reported, not fixed)")
	} else {
		fmt.Fprintf(w, "  ✅ Repair: %s\n", cfg.Repair.Command)
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "─── Audit Log ─────────────────────────────────────────")
	checkAuditLog(w, cfg.AuditLog)
	fmt.Fprintln(w)
}

func checkHook(w io.Writer, name, settingsPath string) {
	data, err := os.ReadFile(settingsPath)
	if err != nil {
		fmt.Fprintf(w, "  ⬚  %s: not configured\n", name)
		return
	}
	if strings.Contains(string(data), "intentguard hook") {
		fmt.Fprintf(w, "  ✅ %s: hook active (%s)\n", name, settingsPath)
	} else {
		fmt.Fprintf(w, "  ⬚  %s: settings exist but no intentguard hook\n", name)
	}
}

func checkAuditLog(w io.Writer, path string) {
	if path == "" {
		fmt.Fprintln(w, "  ⬚  No audit log path configured")
		return
	}

	info, err := os.Stat(path)
	if err != nil {
		fmt.Fprintf(w, "  ⬚  %s (not yet created, starts on first event)\n", path)
		return
	}

	sizeKB := info.Size() / 1024
	if sizeKB == 0 {
		fmt.Fprintf(w, "  ✅ %s (<1 KB)\n", path)
	} else {
		fmt.Fprintf(w, "  ✅ %s (%d KB)\n", path, sizeKB)
	}
}
