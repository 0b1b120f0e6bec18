package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/gzhole/intentguard/internal/policy"
	"github.com/gzhole/intentguard/internal/router"
	"github.com/spf13/cobra"
)

func newRulesCmd(o *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rules",
		Short: "Inspect the rule table and manage rule packs",
		Long: `Inspect the intent rule table and manage rule packs.

Rule packs are YAML rule files stored in ~/.intentguard/packs/ and merged
after the base table at runtime. A pack whose file name starts with "_" is
disabled.

Examples:
  intentguard rules list                 # Rules in evaluation order
  intentguard rules packs                # Installed packs
  intentguard rules enable rails         # Enable a pack
  intentguard rules disable rails        # Disable a pack`,
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List the compiled rules in evaluation order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := o.load()
			if err != nil {
				return err
			}
			table, _, err := a.rules()
			if err != nil {
				return err
			}
			matcher, err := policy.Compile(table)
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			for _, r := range matcher.Rules() {
				action := string(r.Category)
				if r.Exclude {
					action = "exclude"
				} else if r.Target != "" {
					action += " -> " + r.Target
					if !router.Known(r.Target) {
						action += " (unknown target)"
					}
				}
				if r.TDD {
					action += " (tdd)"
				}
				fmt.Fprintf(w, "  %4d  %-28s %s\n", r.Priority, r.ID, action)
			}
			return nil
		},
	}

	packs := &cobra.Command{
		Use:   "packs",
		Short: "List installed rule packs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := o.load()
			if err != nil {
				return err
			}
			dir := a.cfg.PacksDir
			_, infos, err := policy.LoadPacks(dir, policy.DefaultTable())
			if err != nil {
				return fmt.Errorf("failed to load packs: %w", err)
			}

			w := cmd.OutOrStdout()
			if len(infos) == 0 {
				fmt.Fprintln(w, "No rule packs installed.")
				fmt.Fprintf(w, "\nTo install packs, copy YAML files to: %s\n", dir)
				return nil
			}

			fmt.Fprintln(w, "Installed Rule Packs:")
			fmt.Fprintln(w, strings.Repeat("─", 60))
			for _, info := range infos {
				status := "\xe2\x9c\x85" // check mark
				if !info.Enabled {
					status = "\xe2\x9d\x8c" // cross mark
				}
				fmt.Fprintf(w, "  %s  %-25s %s\n", status, info.Name, info.Description)
				if info.Error != "" {
					fmt.Fprintf(w, "       error: %s\n", info.Error)
				} else if info.Version != "" {
					fmt.Fprintf(w, "       v%s by %s  (%d rules)\n", info.Version, info.Author, info.RuleCount)
				}
			}
			fmt.Fprintln(w, strings.Repeat("─", 60))
			fmt.Fprintf(w, "\nPacks directory: %s\n", dir)
			return nil
		},
	}

	enable := &cobra.Command{
		Use:   "enable <pack-name>",
		Short: "Enable a disabled rule pack",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := o.load()
			if err != nil {
				return err
			}
			return renamePack(cmd, a.cfg.PacksDir, args[0], true)
		},
	}

	disable := &cobra.Command{
		Use:   "disable <pack-name>",
		Short: "Disable a rule pack (prefix with underscore)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := o.load()
			if err != nil {
				return err
			}
			return renamePack(cmd, a.cfg.PacksDir, args[0], false)
		},
	}

	cmd.AddCommand(list, packs, enable, disable)
	return cmd
}

// renamePack toggles a pack by adding or removing the "_" file prefix.
func renamePack(cmd *cobra.Command, dir, name string, enable bool) error {
	enabledPath := filepath.Join(dir, name+".yaml")
	disabledPath := filepath.Join(dir, "_"+name+".yaml")

	from, to, verb := enabledPath, disabledPath, "disabled"
	if enable {
		from, to, verb = disabledPath, enabledPath, "enabled"
	}

	if _, err := os.Stat(from); err == nil {
		if err := os.Rename(from, to); err != nil {
			return fmt.Errorf("failed to update pack: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Pack '%s' %s.\n", name, verb)
		return nil
	}

	if _, err := os.Stat(to); err == nil {
		fmt.Fprintf(cmd.OutOrStdout(), "Pack '%s' is already %s.\n", name, verb)
		return nil
	}

	return fmt.Errorf("pack '%s' not found in %s", name, dir)
}
