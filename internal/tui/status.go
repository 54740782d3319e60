package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/vanpelt/monorail/internal/daemon"
	"github.com/vanpelt/monorail/internal/models"
	"github.com/vanpelt/monorail/internal/tui/components"
)

// recentEvents bounds the event log lines shown in the status views.
const recentEvents = 5

// vibeEmoji maps the one-word session vibe to its indicator.
var vibeEmoji = map[string]string{
	"focused":   "🟢",
	"smooth":    "🟢",
	"shipping":  "🚀",
	"exploring": "🟣",
	"stuck":     "🟡",
	"wrapping":  "🟠",
}

// VibeIndicator returns the emoji for vibe, or a neutral dot.
func VibeIndicator(vibe string) string {
	if e, ok := vibeEmoji[strings.ToLower(vibe)]; ok {
		return e
	}
	return "⚪"
}

// RenderStatus is the plain status listing printed by the CLI.
func RenderStatus(report daemon.Report, now time.Time) string {
	var b strings.Builder

	b.WriteString(components.HeaderStyle.Render("🚝 monorail"))
	b.WriteString("\n")
	b.WriteString(daemonLine(report))
	b.WriteString("\n")
	if report.PendingNotes > 0 {
		fmt.Fprintf(&b, "📥 %d pending inbox note(s)\n", report.PendingNotes)
	}
	b.WriteString("\n")

	if len(report.Projects) == 0 {
		b.WriteString(components.MutedStyle.Render("No projects with AI sessions found."))
		b.WriteString("\n")
		return b.String()
	}

	b.WriteString(components.SectionHeaderStyle.Render("Projects"))
	b.WriteString("\n")
	for _, p := range report.Projects {
		b.WriteString(RenderProject(p, now))
	}
	b.WriteString(RenderEvents(report.Events, now))
	return b.String()
}

// RenderEvents lists the most recent daemon events, newest first.
func RenderEvents(events []models.ActivityEvent, now time.Time) string {
	if len(events) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString("\n")
	b.WriteString(components.SectionHeaderStyle.Render("Recent events"))
	b.WriteString("\n")
	for i := len(events) - 1; i >= 0 && i >= len(events)-recentEvents; i-- {
		e := events[i]
		fmt.Fprintf(&b, "  %s %s: %s\n",
			components.MutedStyle.Render(FormatTimeAgo(e.At, now)),
			components.ProjectNameStyle.Render(e.Project), e.Message)
	}
	return b.String()
}

// RenderProject is one project block of the status listing.
func RenderProject(p models.ProjectActivity, now time.Time) string {
	var b strings.Builder
	fmt.Fprintf(&b, "  %s %s %s\n",
		VibeIndicator(p.Vibe),
		components.ProjectNameStyle.Render(p.Name),
		components.MutedStyle.Render(fmt.Sprintf("(%s, %s)", p.Tool.DisplayName(), FormatTimeAgo(p.LastActive, now))))

	task := p.CurrentTask
	if task == "" {
		task = components.MutedStyle.Render("no notes yet")
	}
	fmt.Fprintf(&b, "    Task: %s\n", task)
	if p.Status != "" {
		fmt.Fprintf(&b, "    Status: %s\n", p.Status)
	}
	if !p.LastExtraction.IsZero() {
		fmt.Fprintf(&b, "    Notes updated: %s\n", FormatTimeAgo(p.LastExtraction, now))
	}
	for _, thread := range p.LooseThreads {
		fmt.Fprintf(&b, "    %s\n", components.ThreadStyle.Render("• "+thread))
	}
	return b.String()
}

func daemonLine(report daemon.Report) string {
	if report.Running {
		return fmt.Sprintf("Daemon: %s (pid %d, %s)",
			components.StatusRunningStyle.Render("● running"), report.PID, report.Provider)
	}
	return fmt.Sprintf("Daemon: %s", components.StatusStoppedStyle.Render("● stopped"))
}
