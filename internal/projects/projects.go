// Package projects discovers the projects that have AI session transcripts.
package projects

import (
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/vanpelt/monorail/internal/logger"
	"github.com/vanpelt/monorail/internal/models"
	"github.com/vanpelt/monorail/internal/notes"
	"github.com/vanpelt/monorail/internal/paths"
)

// Project is a working directory with at least one transcript.
type Project struct {
	Name        string
	Path        string
	Tool        models.AgentType
	LastActive  time.Time
	CurrentTask string
}

// NotesStore opens the notes of the project.
func (p Project) NotesStore(opts notes.ArchiveOptions) *notes.Store {
	return notes.NewStore(p.Path, opts)
}

// Scanner walks the transcript roots of both backends.
type Scanner struct {
	ClaudeProjectsDir string
	CodexSessionsDir  string
}

// Scan returns every project whose directory still exists, most recently
// active first. Unreadable roots are skipped.
func (s Scanner) Scan() []Project {
	found := map[string]Project{}
	record := func(path string, tool models.AgentType, modTime time.Time) {
		if existing, ok := found[path]; ok && !existing.LastActive.Before(modTime) {
			return
		}
		found[path] = Project{Name: filepath.Base(path), Path: path, Tool: tool, LastActive: modTime}
	}

	s.scanClaude(record)
	s.scanCodex(record)

	list := make([]Project, 0, len(found))
	for _, p := range found {
		p.CurrentTask = notes.NewStore(p.Path, notes.ArchiveOptions{}).CurrentTask()
		list = append(list, p)
	}
	sort.Slice(list, func(i, j int) bool {
		if list[i].LastActive.Equal(list[j].LastActive) {
			return list[i].Name < list[j].Name
		}
		return list[i].LastActive.After(list[j].LastActive)
	})
	return list
}

// FindByName returns the most recently active project with the given name.
func (s Scanner) FindByName(name string) (Project, bool) {
	for _, p := range s.Scan() {
		if p.Name == name || p.Path == name {
			return p, true
		}
	}
	return Project{}, false
}

func (s Scanner) scanClaude(record func(string, models.AgentType, time.Time)) {
	if s.ClaudeProjectsDir == "" {
		return
	}
	entries, err := os.ReadDir(s.ClaudeProjectsDir)
	if err != nil {
		logger.Debugf("🔍 Skipping Claude projects dir %s: %v", s.ClaudeProjectsDir, err)
		return
	}

	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		projectPath, ok := paths.DecodeClaudeProjectPath(entry.Name())
		if !ok {
			continue
		}

		latest, ok := newestTranscript(filepath.Join(s.ClaudeProjectsDir, entry.Name()))
		if !ok {
			continue
		}
		record(projectPath, models.AgentTypeClaude, latest)
	}
}

func (s Scanner) scanCodex(record func(string, models.AgentType, time.Time)) {
	if s.CodexSessionsDir == "" {
		return
	}
	resolver := paths.CodexResolver{}
	_ = filepath.WalkDir(s.CodexSessionsDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() || !strings.HasSuffix(path, ".jsonl") {
			return nil
		}
		projectPath, err := resolver.Resolve(path)
		if err != nil {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return nil
		}
		record(projectPath, models.AgentTypeCodex, info.ModTime())
		return nil
	})
}

func newestTranscript(dir string) (time.Time, bool) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return time.Time{}, false
	}
	var (
		latest time.Time
		found  bool
	)
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".jsonl") {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		if !found || info.ModTime().After(latest) {
			latest = info.ModTime()
			found = true
		}
	}
	return latest, found
}
