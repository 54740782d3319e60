package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/vanpelt/monorail/internal/daemon"
	"github.com/vanpelt/monorail/internal/tui"
)

var statusCmd = &cobra.Command{
	Use:   "status [project]",
	Short: "📊 Show daemon status and project activity",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runStatus,
}

var dashboardCmd = &cobra.Command{
	Use:   "dashboard",
	Short: "🖥️  Open the live project dashboard",
	RunE:  runDashboard,
}

func init() {
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(dashboardCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	cfg, paths, err := setupCLI(cmd)
	if err != nil {
		return err
	}
	report := daemon.BuildReport(cfg, paths)
	now := time.Now()

	if len(args) == 0 {
		fmt.Print(tui.RenderStatus(report, now))
		return nil
	}

	for _, p := range report.Projects {
		if p.Name == args[0] || p.Path == args[0] {
			fmt.Print(tui.RenderProject(p, now))
			return nil
		}
	}
	return fmt.Errorf("project not found: %s", args[0])
}

func runDashboard(cmd *cobra.Command, args []string) error {
	cfg, paths, err := setupCLI(cmd)
	if err != nil {
		return err
	}
	return tui.Run(func() daemon.Report {
		return daemon.BuildReport(cfg, paths)
	})
}
