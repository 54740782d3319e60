package daemon

import (
	"sort"

	"github.com/vanpelt/monorail/internal/config"
	"github.com/vanpelt/monorail/internal/inbox"
	"github.com/vanpelt/monorail/internal/logger"
	"github.com/vanpelt/monorail/internal/models"
	"github.com/vanpelt/monorail/internal/notes"
	"github.com/vanpelt/monorail/internal/projects"
)

// statusThreads bounds the loose threads listed per project.
const statusThreads = 3

// Report is everything the status views show.
type Report struct {
	Running      bool
	PID          int
	Provider     string
	Projects     []models.ProjectActivity
	Events       []models.ActivityEvent
	PendingNotes int
}

// BuildReport gathers daemon liveness, per-project notes, the activity the
// daemon last published and the inbox count from disk. It does not need a
// running daemon.
func BuildReport(cfg *config.Config, paths config.Paths) Report {
	pid, running := ReadPID(paths.PidFile)
	report := Report{
		Running:      running,
		PID:          pid,
		Provider:     string(cfg.Provider),
		PendingNotes: inbox.New(paths.InboxFile).Count(),
	}

	scanner := projects.Scanner{
		ClaudeProjectsDir: cfg.ClaudeProjectsDir,
		CodexSessionsDir:  cfg.CodexSessionsDir,
	}
	for _, p := range scanner.Scan() {
		report.Projects = append(report.Projects, projectActivity(p))
	}

	snap, err := LoadActivity(paths.ActivityFile)
	if err != nil {
		logger.Debugf("🔍 Ignoring activity file: %v", err)
	}
	report.Projects = mergeActivity(report.Projects, snap.Projects)
	report.Events = snap.Events
	return report
}

// mergeActivity overlays what the daemon saw live onto the projects found on
// disk. Projects only the daemon knows about are appended.
func mergeActivity(found, live []models.ProjectActivity) []models.ProjectActivity {
	index := make(map[string]int, len(found))
	for i, p := range found {
		index[p.Path] = i
	}
	for _, l := range live {
		i, ok := index[l.Path]
		if !ok {
			found = append(found, l)
			continue
		}
		p := &found[i]
		p.SessionID = l.SessionID
		p.Status = l.Status
		p.Vibe = l.Vibe
		if l.CurrentTask != "" {
			p.CurrentTask = l.CurrentTask
		}
		if len(l.LooseThreads) > 0 {
			p.LooseThreads = l.LooseThreads
		}
		if l.LastActive.After(p.LastActive) {
			p.LastActive = l.LastActive
			p.Tool = l.Tool
		}
		if l.LastExtraction.After(p.LastExtraction) {
			p.LastExtraction = l.LastExtraction
		}
	}
	sort.SliceStable(found, func(i, j int) bool {
		return found[i].LastActive.After(found[j].LastActive)
	})
	return found
}

func projectActivity(p projects.Project) models.ProjectActivity {
	a := models.ProjectActivity{
		Name:        p.Name,
		Path:        p.Path,
		Tool:        p.Tool,
		CurrentTask: p.CurrentTask,
		LastActive:  p.LastActive,
	}
	store := p.NotesStore(notes.ArchiveOptions{})
	if at, ok := store.LastSessionTime(); ok {
		a.LastExtraction = at
	}
	a.LooseThreads = store.LooseThreads(statusThreads)
	return a
}
