package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/spf13/cobra"

	"github.com/vanpelt/monorail/internal/config"
	"github.com/vanpelt/monorail/internal/logger"
)

// Version is set at build time.
var Version = "dev"

var rootCmd = &cobra.Command{
	Use:     "monorail",
	Short:   "🚝 Monorail - Automatic session continuity for Claude Code and Codex",
	Version: Version,
	Long: `# 🚝 Monorail

**Automatic session continuity for Claude Code and Codex.**

Monorail watches your AI coding sessions and keeps a running set of notes in
each project's **context/monorail-notes.md**, so the next session can pick up
where the last one left off.

## ✨ Features

- 👀 **Transcript watching** for Claude Code and Codex
- 🧠 **Structured notes** extracted with Gemini or Anthropic
- 🗄️ **Automatic archival** of older sessions into a historical summary
- 📊 **Dashboard** showing what every project is up to

## 🚀 Getting Started

Run **monorail init** to configure an API key, then **monorail start** to
begin watching in the background.`,
	SilenceUsage: true,
}

// Execute runs the CLI.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.CompletionOptions.DisableDefaultCmd = true
	rootCmd.PersistentFlags().Bool("debug", false, "Enable debug logging")

	rootCmd.SetHelpFunc(func(cmd *cobra.Command, args []string) {
		renderMarkdownHelp(cmd)
	})
}

// setupCLI configures quiet console logging and loads the configuration.
func setupCLI(cmd *cobra.Command) (*config.Config, config.Paths, error) {
	level := logger.LevelWarn
	if debug, _ := cmd.Flags().GetBool("debug"); debug {
		level = logger.LevelDebug
	}
	logger.Configure(level, true)

	paths := config.DefaultPaths()
	cfg, err := config.Load(paths.ConfigFile)
	if err != nil {
		return nil, paths, err
	}
	return cfg, paths, nil
}

// renderMarkdownHelp renders command help using glamour for beautiful markdown display
func renderMarkdownHelp(cmd *cobra.Command) {
	var helpContent strings.Builder

	if cmd.Long != "" {
		helpContent.WriteString(cmd.Long)
		helpContent.WriteString("\n\n")
	} else if cmd.Short != "" {
		helpContent.WriteString("# " + cmd.Short)
		helpContent.WriteString("\n\n")
	}

	helpContent.WriteString("## 📖 Usage\n\n")
	helpContent.WriteString("```bash\n")
	helpContent.WriteString(cmd.UseLine())
	helpContent.WriteString("\n```\n\n")

	if cmd.HasAvailableSubCommands() {
		helpContent.WriteString("## 🔧 Available Commands\n\n")
		for _, subCmd := range cmd.Commands() {
			if subCmd.IsAvailableCommand() {
				helpContent.WriteString(fmt.Sprintf("- **%s** - %s\n", subCmd.Name(), subCmd.Short))
			}
		}
		helpContent.WriteString("\n")
	}

	if cmd.HasAvailableLocalFlags() {
		helpContent.WriteString("## ⚙️  Flags\n\n")
		helpContent.WriteString("```\n")
		helpContent.WriteString(cmd.LocalFlags().FlagUsages())
		helpContent.WriteString("```\n\n")
	}

	if cmd.HasParent() && cmd.InheritedFlags().HasFlags() {
		helpContent.WriteString("## 🌐 Global Flags\n\n")
		helpContent.WriteString("```\n")
		helpContent.WriteString(cmd.InheritedFlags().FlagUsages())
		helpContent.WriteString("```\n\n")
	}

	renderer, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(100),
	)
	if err != nil {
		_ = cmd.Usage()
		return
	}

	rendered, err := renderer.Render(helpContent.String())
	if err != nil {
		_ = cmd.Usage()
		return
	}

	fmt.Fprint(cmd.OutOrStdout(), rendered)
}
