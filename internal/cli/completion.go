package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/billmal071/mangadl/internal/config"
	"github.com/billmal071/mangadl/internal/db"
)

var completionCmd = &cobra.Command{
	Use:   "completion [bash|zsh|fish|powershell]",
	Short: "Generate shell completion scripts",
	Long: `Generate shell completion scripts for mangadl.

To load completions:

Bash:
  $ source <(mangadl completion bash)

  # To load completions for each session, execute once:
  # Linux:
  $ mangadl completion bash > /etc/bash_completion.d/mangadl
  # macOS:
  $ mangadl completion bash > /usr/local/etc/bash_completion.d/mangadl

Zsh:
  # If shell completion is not already enabled in your environment,
  # you will need to enable it.  You can execute the following once:
  $ echo "autoload -U compinit; compinit" >> ~/.zshrc

  # To load completions for each session, execute once:
  $ mangadl completion zsh > "${fpath[1]}/_mangadl"

  # You will need to start a new shell for this setup to take effect.

Fish:
  $ mangadl completion fish | source

  # To load completions for each session, execute once:
  $ mangadl completion fish > ~/.config/fish/completions/mangadl.fish

PowerShell:
  PS> mangadl completion powershell | Out-String | Invoke-Expression

  # To load completions for every new session, run:
  PS> mangadl completion powershell > mangadl.ps1
  # and source this file from your PowerShell profile.`,
	DisableFlagsInUseLine: true,
	ValidArgs:             []string{"bash", "zsh", "fish", "powershell"},
	Args:                  cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
	RunE: func(cmd *cobra.Command, args []string) error {
		switch args[0] {
		case "bash":
			return rootCmd.GenBashCompletion(os.Stdout)
		case "zsh":
			return rootCmd.GenZshCompletion(os.Stdout)
		case "fish":
			return rootCmd.GenFishCompletion(os.Stdout, true)
		case "powershell":
			return rootCmd.GenPowerShellCompletionWithDesc(os.Stdout)
		default:
			return fmt.Errorf("unsupported shell: %s", args[0])
		}
	},
}

func init() {
	// Complete chapter URLs from the download history
	downloadCmd.ValidArgsFunction = completeChapterURLs
	infoCmd.ValidArgsFunction = completeChapterURLs
	verifyCmd.ValidArgsFunction = completeChapterURLs
}

// completeChapterURLs provides dynamic completion from recorded chapters
func completeChapterURLs(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	if len(args) > 0 {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}

	// completion callbacks run without the root pre-run hook
	if db.DB() == nil {
		if err := config.Init(cfgFile); err != nil {
			return nil, cobra.ShellCompDirectiveError
		}
		if err := db.Init(); err != nil {
			return nil, cobra.ShellCompDirectiveError
		}
		defer db.Close()
	}

	chapters, err := db.ListChapters(200)
	if err != nil {
		return nil, cobra.ShellCompDirectiveError
	}

	var completions []string
	for _, c := range chapters {
		if !strings.HasPrefix(c.URL, toComplete) {
			continue
		}
		// Format: "URL\tTitle - Label (Status)"
		desc := truncateTitle(c.Manga+" - "+c.Label, 40)
		completions = append(completions, fmt.Sprintf("%s\t%s (%s)", c.URL, desc, c.Status))
	}

	return completions, cobra.ShellCompDirectiveNoFileComp
}

// truncateTitle truncates a title to at most maxLen runes
func truncateTitle(title string, maxLen int) string {
	r := []rune(title)
	if len(r) <= maxLen {
		return title
	}
	return string(r[:maxLen-3]) + "..."
}
