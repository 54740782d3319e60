package daemon

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vanpelt/monorail/internal/config"
	"github.com/vanpelt/monorail/internal/models"
	"github.com/vanpelt/monorail/internal/paths"
)

func TestBuildReportMergesPublishedActivity(t *testing.T) {
	home := config.PathsAt(t.TempDir())
	claudeDir := t.TempDir()
	project := filepath.Join(t.TempDir(), "webapp")
	require.NoError(t, os.MkdirAll(project, 0755))

	folder := filepath.Join(claudeDir, paths.EncodePathForClaude(project))
	require.NoError(t, os.MkdirAll(folder, 0755))
	transcript := filepath.Join(folder, "cf568042-7147-4fba-a2ca-c6a646581260.jsonl")
	require.NoError(t, os.WriteFile(transcript, []byte("{}\n"), 0644))
	onDisk := time.Now().Add(-time.Hour).Truncate(time.Second)
	require.NoError(t, os.Chtimes(transcript, onDisk, onDisk))

	live := onDisk.Add(30 * time.Minute)
	require.NoError(t, SaveActivity(home.ActivityFile, ActivitySnapshot{
		Projects: []models.ProjectActivity{
			{
				Name:         "webapp",
				Path:         project,
				Tool:         models.AgentTypeClaude,
				CurrentTask:  "Add dark mode",
				Status:       "Toggle works",
				Vibe:         "focused",
				LooseThreads: []string{"Persist the preference"},
				LastActive:   live,
			},
			{Name: "orphan", Path: "/gone/orphan", Tool: models.AgentTypeCodex, LastActive: onDisk},
		},
		Events: []models.ActivityEvent{{At: live, Project: "webapp", Message: "📝 notes updated"}},
	}))

	cfg := config.Default()
	cfg.ClaudeProjectsDir = claudeDir
	cfg.CodexSessionsDir = filepath.Join(t.TempDir(), "none")

	report := BuildReport(cfg, home)
	require.Len(t, report.Projects, 2)

	got := report.Projects[0]
	assert.Equal(t, project, got.Path)
	assert.Equal(t, "focused", got.Vibe)
	assert.Equal(t, "Toggle works", got.Status)
	assert.Equal(t, "Add dark mode", got.CurrentTask)
	assert.Equal(t, []string{"Persist the preference"}, got.LooseThreads)
	assert.True(t, got.LastActive.Equal(live))

	assert.Equal(t, "/gone/orphan", report.Projects[1].Path)
	require.Len(t, report.Events, 1)
	assert.False(t, report.Running)
}

func TestBuildReportWithoutActivityFile(t *testing.T) {
	cfg := config.Default()
	cfg.ClaudeProjectsDir = filepath.Join(t.TempDir(), "none")
	cfg.CodexSessionsDir = filepath.Join(t.TempDir(), "none")

	report := BuildReport(cfg, config.PathsAt(t.TempDir()))
	assert.Empty(t, report.Projects)
	assert.Empty(t, report.Events)
}
