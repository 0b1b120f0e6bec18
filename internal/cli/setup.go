package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
)

const hookCommandLine = "intentguard hook"

// hookEvents are the Claude Code events intentguard subscribes to, with
// the tool matcher for each ("" means every prompt).
var hookEvents = []struct {
	event   string
	matcher string
}{
	{"UserPromptSubmit", ""},
	{"PostToolUse", "Edit|MultiEdit|Write"},
}

func newSetupCmd() *cobra.Command {
	var disable, project bool

	cmd := &cobra.Command{
		Use:   "setup",
		Short: "Install or remove the intentguard hooks in Claude Code settings",
		Long: `Adds "intentguard hook" to the UserPromptSubmit and PostToolUse hooks
in ~/.claude/settings.json (or .claude/settings.json with --project).
Other hooks in the file are left untouched.

  intentguard setup              # enable hooks
  intentguard setup --disable    # remove hooks`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			settingsPath := filepath.Join(os.Getenv("HOME"), ".claude", "settings.json")
			if project {
				settingsPath = filepath.Join(".claude", "settings.json")
			}
			if disable {
				return disableHooks(cmd.OutOrStdout(), settingsPath)
			}
			return installHooks(cmd.OutOrStdout(), settingsPath)
		},
	}
	cmd.Flags().BoolVar(&disable, "disable", false, "Remove the intentguard hooks")
	cmd.Flags().BoolVar(&project, "project", false, "Use the project settings in ./.claude instead of the user settings")
	return cmd
}

func installHooks(w io.Writer, settingsPath string) error {
	settings, err := readClaudeSettings(settingsPath)
	if err != nil {
		return err
	}

	hooks := getOrCreateMap(settings, "hooks")
	added := 0
	for _, h := range hookEvents {
		entries := getOrCreateSlice(hooks, h.event)
		if containsHookEntry(entries) {
			continue
		}
		entry := map[string]interface{}{
			"hooks": []interface{}{
				map[string]interface{}{"type": "command", "command": hookCommandLine},
			},
		}
		if h.matcher != "" {
			entry["matcher"] = h.matcher
		}
		hooks[h.event] = append(entries, entry)
		added++
	}

	if added == 0 {
		fmt.Fprintf(w, "✅ intentguard hooks already configured: %s\n", settingsPath)
		return nil
	}
	if err := writeClaudeSettings(settingsPath, settings); err != nil {
		return err
	}

	fmt.Fprintf(w, "✅ intentguard hooks installed: %s\n", settingsPath)
	fmt.Fprintln(w)
	fmt.Fprintln(w, "How it works:")
	fmt.Fprintln(w, "  1. UserPromptSubmit: each prompt is classified and routed")
	fmt.Fprintln(w, "  2. PostToolUse: edited files are validated, and repaired if configured")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "To disable: intentguard setup --disable")
	return nil
}

func disableHooks(w io.Writer, settingsPath string) error {
	if _, err := os.Stat(settingsPath); os.IsNotExist(err) {
		fmt.Fprintln(w, "ℹ  No settings.json found, nothing to disable.")
		return nil
	}

	settings, err := readClaudeSettings(settingsPath)
	if err != nil {
		return err
	}
	hooks, ok := settings["hooks"].(map[string]interface{})
	if !ok {
		fmt.Fprintln(w, "ℹ  settings.json has no hooks, nothing to disable.")
		return nil
	}

	removed := false
	for _, h := range hookEvents {
		entries, _ := hooks[h.event].([]interface{})
		var kept []interface{}
		for _, entry := range entries {
			if isIntentguardHookEntry(entry) {
				removed = true
				continue
			}
			kept = append(kept, entry)
		}
		if len(kept) == 0 {
			delete(hooks, h.event)
		} else {
			hooks[h.event] = kept
		}
	}

	if !removed {
		fmt.Fprintln(w, "ℹ  intentguard hooks not found, nothing to disable.")
		return nil
	}
	if len(hooks) == 0 {
		delete(settings, "hooks")
	}
	if err := writeClaudeSettings(settingsPath, settings); err != nil {
		return err
	}
	fmt.Fprintf(w, "✅ intentguard hooks removed from %s\n", settingsPath)
	return nil
}

func containsHookEntry(entries []interface{}) bool {
	for _, e := range entries {
		if isIntentguardHookEntry(e) {
			return true
		}
	}
	return false
}

// isIntentguardHookEntry reports whether a hook entry runs our command.
func isIntentguardHookEntry(entry interface{}) bool {
	m, ok := entry.(map[string]interface{})
	if !ok {
		return false
	}
	subHooks, _ := m["hooks"].([]interface{})
	for _, h := range subHooks {
		if hm, ok := h.(map[string]interface{}); ok {
			if hm["command"] == hookCommandLine {
				return true
			}
		}
	}
	return false
}

func readClaudeSettings(path string) (map[string]interface{}, error) {
	settings := make(map[string]interface{})
	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	if len(data) > 0 {
		if err := json.Unmarshal(data, &settings); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", path, err)
		}
	}
	return settings, nil
}

func writeClaudeSettings(path string, settings map[string]interface{}) error {
	out, err := json.MarshalIndent(settings, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal settings: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	if err := os.WriteFile(path, out, 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

func getOrCreateMap(parent map[string]interface{}, key string) map[string]interface{} {
	if v, ok := parent[key].(map[string]interface{}); ok {
		return v
	}
	m := make(map[string]interface{})
	parent[key] = m
	return m
}

func getOrCreateSlice(parent map[string]interface{}, key string) []interface{} {
	if v, ok := parent[key].([]interface{}); ok {
		return v
	}
	return nil
}
