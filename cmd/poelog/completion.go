package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/poelog/poelog-go/internal/archive"
)

// shellGenerators writes the completion script for each supported shell.
var shellGenerators = map[string]func(root *cobra.Command, w io.Writer) error{
	"bash":       func(root *cobra.Command, w io.Writer) error { return root.GenBashCompletionV2(w, true) },
	"zsh":        func(root *cobra.Command, w io.Writer) error { return root.GenZshCompletion(w) },
	"fish":       func(root *cobra.Command, w io.Writer) error { return root.GenFishCompletion(w, true) },
	"powershell": func(root *cobra.Command, w io.Writer) error { return root.GenPowerShellCompletionWithDesc(w) },
}

var completionCmd = &cobra.Command{
	Use:   "completion <shell>",
	Short: "Print a shell completion script",
	Long: `Print a completion script for bash, zsh, fish or powershell.

Completions cover subcommands, flags, zone type lists (--include-types,
--exclude-types), output formats and archived session IDs.

  bash        source <(poelog completion bash)
  zsh         poelog completion zsh > "${fpath[1]}/_poelog"
  fish        poelog completion fish > ~/.config/fish/completions/poelog.fish
  powershell  poelog completion powershell | Out-String | Invoke-Expression

Write the script into your shell's startup files to keep it across sessions.`,
	DisableFlagsInUseLine: true,
	ValidArgs:             []string{"bash", "zsh", "fish", "powershell"},
	Args:                  cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
	RunE: func(cmd *cobra.Command, args []string) error {
		gen, ok := shellGenerators[args[0]]
		if !ok {
			return fmt.Errorf("unsupported shell %q", args[0])
		}
		return gen(cmd.Root(), cmd.OutOrStdout())
	},
}

func init() {
	rootCmd.AddCommand(completionCmd)
}

// completeZoneTypes returns a completion function for zone type flags.
// It supports comma-separated values and excludes already-selected types.
// Returns full values (prefix + candidate) for reliable cross-shell behavior.
func completeZoneTypes(flagName string) func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	return func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		parts := strings.Split(toComplete, ",")
		prefix := strings.Join(parts[:len(parts)-1], ",")
		if prefix != "" {
			prefix += ","
		}
		current := strings.ToLower(strings.TrimSpace(parts[len(parts)-1]))

		used := make(map[string]struct{})
		addUsed := func(v string) {
			v = strings.ToLower(strings.TrimSpace(v))
			if v != "" {
				used[v] = struct{}{}
			}
		}
		for _, p := range parts[:len(parts)-1] {
			addUsed(p)
		}
		// Values already set on the flag (for repeated flag usage)
		if vals, err := cmd.Flags().GetStringSlice(flagName); err == nil {
			for _, v := range vals {
				addUsed(v)
			}
		}

		var candidates []string
		for _, t := range ValidZoneTypeNames() {
			if _, ok := used[t]; ok {
				continue
			}
			if strings.HasPrefix(t, current) {
				candidates = append(candidates, prefix+t)
			}
		}

		return candidates, cobra.ShellCompDirectiveNoSpace | cobra.ShellCompDirectiveNoFileComp
	}
}

// registerZoneTypeCompletion registers completion for a zone type flag.
func registerZoneTypeCompletion(cmd *cobra.Command, flagName string) {
	_ = cmd.RegisterFlagCompletionFunc(flagName, completeZoneTypes(flagName))
}

// completeFormats completes the --format flag.
func completeFormats(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	return []string{"jsonl", "pretty", "yaml"}, cobra.ShellCompDirectiveNoFileComp
}

// completeSessionIDs offers archived session IDs with their names as
// descriptions. Archive errors yield no candidates.
func completeSessionIDs(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	if len(args) > 0 {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}
	sessions, _ := archive.NewStore(cfg.ArchiveDir).List()

	var candidates []string
	for _, sess := range sessions {
		if strings.HasPrefix(sess.ID, toComplete) {
			candidates = append(candidates, sess.ID+"\t"+sess.Name)
		}
	}
	return candidates, cobra.ShellCompDirectiveNoFileComp
}
