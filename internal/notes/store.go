package notes

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/vanpelt/monorail/internal/fsutil"
	"github.com/vanpelt/monorail/internal/logger"
	"github.com/vanpelt/monorail/internal/models"
)

const (
	// FileName is the notes document inside <project>/context.
	FileName = "monorail-notes.md"
	// LegacyFileName is migrated to FileName on first access.
	LegacyFileName = "mm-notes.md"
	// ArchiveDir holds verbatim copies of archived entries.
	ArchiveDir = ".monorail-archive"
)

// Condenser shortens archived session text.
type Condenser interface {
	Summarize(ctx context.Context, text string, maxTokens int) (string, error)
}

// ArchiveOptions are the size ceilings that trigger archival.
type ArchiveOptions struct {
	MaxEntries       int
	MaxLines         int
	KeepRecent       int
	SummaryMaxTokens int
}

// Store reads and atomically rewrites one project's notes document.
type Store struct {
	projectPath string
	options     ArchiveOptions

	// Revision, when set, supplies the source-control revision stamped in
	// the header on every write.
	Revision func() string

	now func() time.Time
}

// NewStore returns the store for a project directory.
func NewStore(projectPath string, options ArchiveOptions) *Store {
	return &Store{
		projectPath: projectPath,
		options:     options,
		now:         time.Now,
	}
}

// Path is the location of the notes document.
func (s *Store) Path() string {
	return filepath.Join(s.projectPath, "context", FileName)
}

// ProjectName is the display name of the project.
func (s *Store) ProjectName() string {
	return filepath.Base(s.projectPath)
}

// Exists reports whether the document has been created.
func (s *Store) Exists() bool {
	s.migrate()
	_, err := os.Stat(s.Path())
	return err == nil
}

// Load parses the document. A missing document yields os.ErrNotExist.
func (s *Store) Load() (*Document, error) {
	s.migrate()
	data, err := os.ReadFile(s.Path())
	if err != nil {
		return nil, err
	}
	return Parse(string(data))
}

// CreateIfAbsent writes the initial document when none exists and returns
// the current one.
func (s *Store) CreateIfAbsent() (*Document, error) {
	doc, err := s.Load()
	if err == nil {
		return doc, nil
	}
	if !errors.Is(err, os.ErrNotExist) {
		return nil, err
	}

	doc = New(s.ProjectName(), s.now())
	if err := s.write(doc); err != nil {
		return nil, err
	}
	logger.Infof("📝 Created notes for %s at %s", s.ProjectName(), s.Path())
	return doc, nil
}

// ApplyExtraction records an extraction as the newest session entry.
func (s *Store) ApplyExtraction(sessionID string, at time.Time, tool string, result *models.ExtractionResult) error {
	doc, err := s.CreateIfAbsent()
	if err != nil {
		return fmt.Errorf("failed to load notes: %w", err)
	}

	doc.ApplyExtraction(sessionID, at, tool, result)
	if err := s.write(doc); err != nil {
		return fmt.Errorf("failed to write notes: %w", err)
	}
	return nil
}

// ArchiveIfOversized condenses all but the most recent entries into the
// Historical Summary once either ceiling is exceeded. It reports whether the
// document changed. A failed summary leaves the document untouched.
func (s *Store) ArchiveIfOversized(ctx context.Context, condenser Condenser) (bool, error) {
	doc, err := s.Load()
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	if len(doc.Entries) <= s.options.MaxEntries && doc.LineCount() <= s.options.MaxLines {
		return false, nil
	}

	keep := s.options.KeepRecent
	if keep < 0 {
		keep = 0
	}
	if len(doc.Entries) <= keep {
		return false, nil
	}
	recent, archived := doc.Entries[:keep], doc.Entries[keep:]

	summary, err := condenser.Summarize(ctx, archiveInput(doc.History, archived), s.options.SummaryMaxTokens)
	if err != nil {
		return false, fmt.Errorf("failed to summarize archived sessions: %w", err)
	}
	summary = block(summary)
	if summary == "" {
		return false, fmt.Errorf("failed to summarize archived sessions: empty summary")
	}

	if err := s.writeArchive(archived); err != nil {
		logger.Warnf("⚠️ Could not keep archived entries for %s: %v", s.ProjectName(), err)
	}

	count := len(archived)
	if doc.History != nil {
		count += doc.History.Archived
	}
	doc.History = &HistoricalSummary{Archived: count, Text: summary}
	doc.Entries = append([]Entry(nil), recent...)
	doc.LastUpdated = s.now().Format(TimestampLayout)

	if err := s.write(doc); err != nil {
		return false, fmt.Errorf("failed to write notes: %w", err)
	}
	logger.Infof("🗄️ Archived %d sessions for %s", len(archived), s.ProjectName())
	return true, nil
}

// archiveInput is the text handed to the summarizer; an existing summary is
// included so it is merged rather than replaced.
func archiveInput(previous *HistoricalSummary, archived []Entry) string {
	var b strings.Builder
	if previous != nil && previous.Text != "" {
		b.WriteString("Existing historical summary:\n")
		b.WriteString(previous.Text)
		b.WriteString("\n\nOlder sessions to fold in:\n\n")
	}
	for _, entry := range archived {
		b.WriteString(entry.Render())
	}
	return b.String()
}

// CurrentTask returns the active task, or "" when no notes exist.
func (s *Store) CurrentTask() string {
	doc, err := s.Load()
	if err != nil {
		return ""
	}
	return doc.Context.CurrentTask
}

// LooseThreads returns up to limit loose threads from recent sessions.
func (s *Store) LooseThreads(limit int) []string {
	doc, err := s.Load()
	if err != nil {
		return nil
	}
	return doc.LooseThreads(limit)
}

// LastSessionTime returns the time of the newest session entry.
func (s *Store) LastSessionTime() (time.Time, bool) {
	doc, err := s.Load()
	if err != nil {
		return time.Time{}, false
	}
	return doc.LastSessionTime()
}

func (s *Store) write(doc *Document) error {
	if s.Revision != nil {
		if rev := s.Revision(); rev != "" {
			doc.Revision = rev
		}
	}
	return fsutil.WriteFileAtomic(s.Path(), []byte(doc.Render()), 0644)
}

func (s *Store) writeArchive(entries []Entry) error {
	dir := filepath.Join(s.projectPath, "context", ArchiveDir)
	var b strings.Builder
	for _, entry := range entries {
		b.WriteString(entry.Render())
	}
	name := fmt.Sprintf("sessions-%s.md", s.now().Format("20060102-150405"))
	return fsutil.WriteFileAtomic(filepath.Join(dir, name), []byte(b.String()), 0644)
}

// migrate renames a legacy mm-notes.md in place.
func (s *Store) migrate() {
	dir := filepath.Join(s.projectPath, "context")
	legacy := filepath.Join(dir, LegacyFileName)
	if _, err := os.Stat(legacy); err != nil {
		return
	}
	if _, err := os.Stat(s.Path()); err == nil {
		return
	}
	if err := os.Rename(legacy, s.Path()); err == nil {
		logger.Infof("📦 Migrated %s to %s", legacy, FileName)
	}
}
