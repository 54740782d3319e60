package cmd

import (
	"fmt"
	"os"
	"os/exec"

	"github.com/spf13/cobra"

	"github.com/vanpelt/monorail/internal/config"
	"github.com/vanpelt/monorail/internal/daemon"
	"github.com/vanpelt/monorail/internal/notes"
	"github.com/vanpelt/monorail/internal/projects"
	"github.com/vanpelt/monorail/internal/summarizer"
	"github.com/vanpelt/monorail/internal/tui"
)

var showCmd = &cobra.Command{
	Use:   "show <project>",
	Short: "📝 Show a project's notes",
	Args:  cobra.ExactArgs(1),
	RunE:  runShow,
}

var logCmd = &cobra.Command{
	Use:   "log <project>",
	Short: "✏️  Open a project's notes in $EDITOR",
	Args:  cobra.ExactArgs(1),
	RunE:  runLog,
}

var archiveCmd = &cobra.Command{
	Use:   "archive <project>",
	Short: "🗄️  Archive older sessions of a project",
	Long: `# 🗄️ Archive

Condense all but the most recent sessions of a project into its Historical
Summary. By default this only happens when the notes exceed the configured
ceilings; use **--force** to archive regardless.`,
	Args: cobra.ExactArgs(1),
	RunE: runArchive,
}

func init() {
	rootCmd.AddCommand(showCmd)
	rootCmd.AddCommand(logCmd)
	rootCmd.AddCommand(archiveCmd)

	showCmd.Flags().Bool("raw", false, "Print the markdown without rendering")
	archiveCmd.Flags().Bool("force", false, "Archive even when the notes are under the size ceilings")
}

// findProject resolves a project by name, falling back to a directory path.
func findProject(cfg *config.Config, name string) (string, error) {
	scanner := projects.Scanner{
		ClaudeProjectsDir: cfg.ClaudeProjectsDir,
		CodexSessionsDir:  cfg.CodexSessionsDir,
	}
	if p, ok := scanner.FindByName(name); ok {
		return p.Path, nil
	}
	if info, err := os.Stat(name); err == nil && info.IsDir() {
		return name, nil
	}
	return "", fmt.Errorf("project not found: %s", name)
}

func runShow(cmd *cobra.Command, args []string) error {
	cfg, _, err := setupCLI(cmd)
	if err != nil {
		return err
	}
	projectPath, err := findProject(cfg, args[0])
	if err != nil {
		return err
	}

	store := notes.NewStore(projectPath, notes.ArchiveOptions{})
	if !store.Exists() {
		return fmt.Errorf("no notes yet for %s; run 'monorail init-project' in %s", args[0], projectPath)
	}
	data, err := os.ReadFile(store.Path())
	if err != nil {
		return err
	}

	if raw, _ := cmd.Flags().GetBool("raw"); raw {
		fmt.Print(string(data))
		return nil
	}
	fmt.Print(tui.RenderMarkdown(string(data), 100))
	return nil
}

func runLog(cmd *cobra.Command, args []string) error {
	cfg, _, err := setupCLI(cmd)
	if err != nil {
		return err
	}
	projectPath, err := findProject(cfg, args[0])
	if err != nil {
		return err
	}

	store := notes.NewStore(projectPath, notes.ArchiveOptions{})
	if !store.Exists() {
		return fmt.Errorf("no notes file; run 'monorail init-project' in %s", projectPath)
	}

	editor := os.Getenv("EDITOR")
	if editor == "" {
		editor = "vim"
	}
	c := exec.Command(editor, store.Path())
	c.Stdin = os.Stdin
	c.Stdout = os.Stdout
	c.Stderr = os.Stderr
	return c.Run()
}

func runArchive(cmd *cobra.Command, args []string) error {
	cfg, paths, err := setupCLI(cmd)
	if err != nil {
		return err
	}
	projectPath, err := findProject(cfg, args[0])
	if err != nil {
		return err
	}

	options := daemon.ArchiveOptions(cfg)
	if force, _ := cmd.Flags().GetBool("force"); force {
		options.MaxEntries = 0
		options.MaxLines = 0
	}
	store := notes.NewStore(projectPath, options)
	if !store.Exists() {
		return fmt.Errorf("no notes yet for %s", args[0])
	}

	client, err := summarizer.New(cfg, paths.PromptsDir)
	if err != nil {
		return err
	}
	archived, err := store.ArchiveIfOversized(cmd.Context(), client)
	if err != nil {
		return err
	}
	if !archived {
		fmt.Printf("Nothing to archive for %s\n", args[0])
		return nil
	}
	fmt.Printf("🗄️  Archived older sessions for %s\n", args[0])
	return nil
}
