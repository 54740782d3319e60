package cmd

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/vanpelt/monorail/internal/config"
	"github.com/vanpelt/monorail/internal/gitutil"
	"github.com/vanpelt/monorail/internal/projects"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "⚙️  Show or change configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print every configuration key",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, paths, err := setupCLI(cmd)
		if err != nil {
			return err
		}
		fmt.Printf("# %s\n", paths.ConfigFile)
		for _, key := range cfg.Keys() {
			value, err := cfg.Get(key)
			if err != nil {
				return err
			}
			if strings.HasSuffix(key, "api_key") && value != "" {
				value = maskSecret(value)
			}
			fmt.Printf("%s: %s\n", key, value)
		}
		return nil
	},
}

var configGetCmd = &cobra.Command{
	Use:   "get <key>",
	Short: "Print one configuration value",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, _, err := setupCLI(cmd)
		if err != nil {
			return err
		}
		value, err := cfg.Get(args[0])
		if err != nil {
			return err
		}
		fmt.Println(value)
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Change one configuration value",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, paths, err := setupCLI(cmd)
		if err != nil {
			return err
		}
		if err := cfg.Set(args[0], args[1]); err != nil {
			return err
		}
		if err := paths.EnsureHome(); err != nil {
			return err
		}
		if err := cfg.Save(paths.ConfigFile); err != nil {
			return err
		}
		fmt.Printf("%s updated; restart the daemon to apply\n", args[0])
		return nil
	},
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "🔧 Create ~/.monorail and configure an API key",
	RunE:  runInit,
}

var initProjectCmd = &cobra.Command{
	Use:   "init-project",
	Short: "📁 Prepare the current directory for session notes",
	RunE:  runInitProject,
}

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configGetCmd)
	configCmd.AddCommand(configSetCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(initProjectCmd)

	initProjectCmd.Flags().Bool("no-gitignore", false, "Don't add context/ to .gitignore (if you want to commit session notes)")
}

func runInit(cmd *cobra.Command, args []string) error {
	cfg, paths, err := setupCLI(cmd)
	if err != nil {
		return err
	}
	if err := prepareHome(paths); err != nil {
		return err
	}

	if !cfg.HasAPIKey() {
		key, err := promptSecret(fmt.Sprintf("%s API key: ", displayProvider(cfg.Provider)))
		if err != nil {
			return err
		}
		if key != "" {
			if cfg.Provider == config.ProviderAnthropic {
				cfg.AnthropicAPIKey = key
			} else {
				cfg.GeminiAPIKey = key
			}
		}
	}
	if err := cfg.Save(paths.ConfigFile); err != nil {
		return err
	}

	fmt.Printf("Created %s\n", paths.Home)
	fmt.Println("Run 'monorail start' to begin watching.")
	return nil
}

func runInitProject(cmd *cobra.Command, args []string) error {
	if _, _, err := setupCLI(cmd); err != nil {
		return err
	}
	cwd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("failed to get current directory: %w", err)
	}
	if root, ok := gitutil.FindGitRoot(cwd); ok {
		cwd = root
	}
	noGitignore, _ := cmd.Flags().GetBool("no-gitignore")

	actions, err := projects.InitProject(cwd, !noGitignore)
	for _, action := range actions {
		fmt.Println(action)
	}
	if err != nil {
		return err
	}
	fmt.Println("Project ready.")
	return nil
}

// promptSecret reads a line without echo when stdin is a terminal.
func promptSecret(prompt string) (string, error) {
	fmt.Print(prompt)
	fd := int(os.Stdin.Fd())
	if term.IsTerminal(fd) {
		data, err := term.ReadPassword(fd)
		fmt.Println()
		if err != nil {
			return "", fmt.Errorf("failed to read input: %w", err)
		}
		return strings.TrimSpace(string(data)), nil
	}
	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil && line == "" {
		return "", nil
	}
	return strings.TrimSpace(line), nil
}

func displayProvider(p config.Provider) string {
	if p == config.ProviderAnthropic {
		return "Anthropic"
	}
	return "Gemini"
}

func maskSecret(s string) string {
	if len(s) <= 8 {
		return "****"
	}
	return s[:4] + "…" + s[len(s)-4:]
}
