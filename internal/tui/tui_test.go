package tui

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vanpelt/monorail/internal/daemon"
	"github.com/vanpelt/monorail/internal/models"
)

func TestFormatTimeAgo(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	tests := []struct {
		ago  time.Duration
		want string
	}{
		{10 * time.Second, "just now"},
		{59 * time.Second, "just now"},
		{time.Minute, "1 min ago"},
		{45 * time.Minute, "45 min ago"},
		{time.Hour, "1 hour ago"},
		{5 * time.Hour, "5 hours ago"},
		{24 * time.Hour, "1 day ago"},
		{72 * time.Hour, "3 days ago"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, FormatTimeAgo(now.Add(-tt.ago), now))
		})
	}
	assert.Equal(t, "never", FormatTimeAgo(time.Time{}, now))
}

func sampleReport(now time.Time) daemon.Report {
	return daemon.Report{
		Running:      true,
		PID:          4242,
		Provider:     "gemini",
		PendingNotes: 2,
		Projects: []models.ProjectActivity{
			{
				Name:         "webapp",
				Path:         "/src/webapp",
				Tool:         models.AgentTypeClaude,
				CurrentTask:  "Add dark mode",
				Status:       "Toggle works, persistence next",
				Vibe:         "focused",
				LastActive:   now.Add(-5 * time.Minute),
				LooseThreads: []string{"Persist the preference"},
			},
			{
				Name:       "cli",
				Path:       "/src/cli",
				Tool:       models.AgentTypeCodex,
				LastActive: now.Add(-3 * time.Hour),
			},
		},
		Events: []models.ActivityEvent{
			{At: now.Add(-10 * time.Minute), Project: "cli", Message: "🏁 session ended (gap)"},
			{At: now.Add(-5 * time.Minute), Project: "webapp", Message: "📝 notes updated"},
		},
	}
}

func TestRenderStatus(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	out := RenderStatus(sampleReport(now), now)

	assert.Contains(t, out, "running")
	assert.Contains(t, out, "pid 4242")
	assert.Contains(t, out, "2 pending inbox note(s)")
	assert.Contains(t, out, "webapp")
	assert.Contains(t, out, "(Claude Code, 5 min ago)")
	assert.Contains(t, out, "Task: Add dark mode")
	assert.Contains(t, out, "• Persist the preference")
	assert.Contains(t, out, "(Codex, 3 hours ago)")
	assert.Contains(t, out, "no notes yet")
	assert.Contains(t, out, "🟢")
	assert.Contains(t, out, "Status: Toggle works, persistence next")

	assert.Contains(t, out, "Recent events")
	updated := strings.Index(out, "notes updated")
	ended := strings.Index(out, "session ended (gap)")
	require.True(t, updated >= 0 && ended >= 0)
	assert.Less(t, updated, ended, "newest event first")
}

func TestVibeIndicator(t *testing.T) {
	assert.Equal(t, "🟢", VibeIndicator("Focused"))
	assert.Equal(t, "🟡", VibeIndicator("stuck"))
	assert.Equal(t, "⚪", VibeIndicator(""))
	assert.Equal(t, "⚪", VibeIndicator("perplexed"))
}

func TestRenderStatusEmpty(t *testing.T) {
	out := RenderStatus(daemon.Report{}, time.Now())
	assert.Contains(t, out, "stopped")
	assert.Contains(t, out, "No projects with AI sessions found.")
}

func newTestModel(report daemon.Report) Model {
	m := NewModel(func() daemon.Report { return report })
	updated, _ := m.Update(reportMsg(report))
	return updated.(Model)
}

func press(m Model, key string) (Model, tea.Cmd) {
	var msg tea.KeyMsg
	switch key {
	case "enter":
		msg = tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		msg = tea.KeyMsg{Type: tea.KeyEsc}
	default:
		msg = tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(key)}
	}
	updated, cmd := m.Update(msg)
	return updated.(Model), cmd
}

func TestDashboardSelection(t *testing.T) {
	now := time.Now()
	m := newTestModel(sampleReport(now))
	assert.Equal(t, 0, m.selected)

	m, _ = press(m, "j")
	assert.Equal(t, 1, m.selected)
	m, _ = press(m, "j")
	assert.Equal(t, 1, m.selected, "selection stops at the last project")
	m, _ = press(m, "k")
	assert.Equal(t, 0, m.selected)

	m, cmd := press(m, "enter")
	assert.Equal(t, NotesView, m.view)
	require.NotNil(t, cmd)

	m, _ = press(m, "esc")
	assert.Equal(t, ProjectsView, m.view)
}

func TestDashboardShrinkingReportClampsSelection(t *testing.T) {
	m := newTestModel(sampleReport(time.Now()))
	m, _ = press(m, "j")

	updated, _ := m.Update(reportMsg(daemon.Report{}))
	m = updated.(Model)
	assert.Equal(t, 0, m.selected)
	assert.Contains(t, m.View(), "No projects with AI sessions found.")
}

func TestDashboardLoadsNotes(t *testing.T) {
	project := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(project, "context"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(project, "context", "monorail-notes.md"),
		[]byte("# monorail notes\n\nremember the migration\n"), 0644))

	msg := fetchNotes(project, 80)()
	notes, ok := msg.(notesMsg)
	require.True(t, ok)
	require.NoError(t, notes.err)
	assert.Contains(t, notes.content, "remember the migration")

	missing := fetchNotes(t.TempDir(), 80)().(notesMsg)
	m := newTestModel(daemon.Report{})
	m.view = NotesView
	updated, _ := m.Update(missing)
	assert.Contains(t, updated.(Model).View(), "No notes yet")
}

func TestDashboardQuit(t *testing.T) {
	m := newTestModel(daemon.Report{})
	_, cmd := press(m, "q")
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())
}
