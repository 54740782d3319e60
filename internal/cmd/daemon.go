package cmd

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/vanpelt/monorail/internal/config"
	"github.com/vanpelt/monorail/internal/daemon"
	"github.com/vanpelt/monorail/internal/logger"
	"github.com/vanpelt/monorail/internal/summarizer"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "👀 Watch transcripts in the foreground",
	Long: `# 👀 Watch

Watch Claude Code and Codex transcripts in the foreground and keep project notes
up to date. Stop with Ctrl+C.

Use **monorail start** to run the same watcher in the background.`,
	RunE: runWatch,
}

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "🚀 Start the background daemon",
	RunE:  runStart,
}

var stopCmd = &cobra.Command{
	Use:   "stop",
	Short: "🛑 Stop the background daemon",
	RunE:  runStop,
}

func init() {
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(startCmd)
	rootCmd.AddCommand(stopCmd)

	watchCmd.Flags().String("log-file", "", "Write JSON logs to this file instead of the console")
}

func runWatch(cmd *cobra.Command, args []string) error {
	cfg, paths, err := setupCLI(cmd)
	if err != nil {
		return err
	}

	level := logger.GetLogLevelFromEnv(false)
	if debug, _ := cmd.Flags().GetBool("debug"); debug {
		level = logger.LevelDebug
	}
	if logFile, _ := cmd.Flags().GetString("log-file"); logFile != "" {
		closer, err := logger.ConfigureFile(level, logFile)
		if err != nil {
			return err
		}
		defer closer.Close()
	} else {
		logger.Configure(level, true)
	}

	if err := prepareHome(paths); err != nil {
		return err
	}
	return daemon.New(cfg, paths).Run(cmd.Context())
}

func runStart(cmd *cobra.Command, args []string) error {
	cfg, paths, err := setupCLI(cmd)
	if err != nil {
		return err
	}
	if pid, running := daemon.ReadPID(paths.PidFile); running {
		fmt.Printf("Daemon already running (pid %d)\n", pid)
		return nil
	}
	if err := prepareHome(paths); err != nil {
		return err
	}
	if !cfg.HasAPIKey() {
		fmt.Printf("⚠️  No %s API key configured. Run 'monorail init' to add one.\n", cfg.Provider)
	}

	executable, err := os.Executable()
	if err != nil {
		return fmt.Errorf("failed to locate executable: %w", err)
	}
	pid, err := daemon.Spawn(executable, []string{"watch", "--log-file", paths.LogFile}, paths.LogFile)
	if err != nil {
		return err
	}

	// Give the child a moment to fail fast on bad configuration.
	time.Sleep(500 * time.Millisecond)
	if !daemon.IsProcessRunning(pid) {
		return fmt.Errorf("daemon exited immediately; see %s", paths.LogFile)
	}
	fmt.Printf("🚀 Daemon started (pid %d)\n", pid)
	fmt.Printf("   Logs: %s\n", paths.LogFile)
	return nil
}

func runStop(cmd *cobra.Command, args []string) error {
	_, paths, err := setupCLI(cmd)
	if err != nil {
		return err
	}
	pid, err := daemon.Stop(paths.PidFile)
	if errors.Is(err, daemon.ErrNotRunning) {
		fmt.Println("Daemon is not running")
		return nil
	}
	if err != nil {
		return err
	}
	fmt.Printf("🛑 Daemon stopped (pid %d)\n", pid)
	return nil
}

// prepareHome creates ~/.monorail and writes any missing prompt templates.
func prepareHome(paths config.Paths) error {
	if err := paths.EnsureHome(); err != nil {
		return fmt.Errorf("failed to create %s: %w", paths.Home, err)
	}
	written, err := summarizer.WriteDefaults(paths.PromptsDir)
	if err != nil {
		return err
	}
	for _, path := range written {
		logger.Debugf("📝 Wrote default prompt %s", path)
	}
	return nil
}
