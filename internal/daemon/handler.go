package daemon

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/vanpelt/monorail/internal/gitutil"
	"github.com/vanpelt/monorail/internal/logger"
	"github.com/vanpelt/monorail/internal/models"
	"github.com/vanpelt/monorail/internal/notes"
	"github.com/vanpelt/monorail/internal/session"
	"github.com/vanpelt/monorail/internal/summarizer"
)

// previousThreads bounds how many open loose threads are fed back to the model.
const previousThreads = 5

// Extractor is the summarizer surface the handler needs.
type Extractor interface {
	Extract(ctx context.Context, req summarizer.ExtractRequest) (*models.ExtractionResult, error)
	Summarize(ctx context.Context, text string, maxTokens int) (string, error)
}

// NotesHandler turns hand-offs into notes entries. It implements the
// watcher's Handler.
type NotesHandler struct {
	extractor    Extractor
	archive      notes.ArchiveOptions
	activityFile string

	mu       sync.RWMutex
	activity map[string]*models.ProjectActivity
	events   []models.ActivityEvent
	now      func() time.Time

	persistMu sync.Mutex
}

// NewNotesHandler creates a handler writing through extractor. When
// activityFile is set every change to the activity is published there.
func NewNotesHandler(extractor Extractor, archive notes.ArchiveOptions, activityFile string) *NotesHandler {
	return &NotesHandler{
		extractor:    extractor,
		archive:      archive,
		activityFile: activityFile,
		activity:     make(map[string]*models.ProjectActivity),
		now:          time.Now,
	}
}

// OnNewContent extracts notes from the request text and records them. It
// returns false whenever the text must be kept for a later attempt.
func (h *NotesHandler) OnNewContent(ctx context.Context, req session.Request) bool {
	store := notes.NewStore(req.ProjectPath, h.archive)
	store.Revision = gitutil.RevisionFunc(req.ProjectPath)
	project := store.ProjectName()
	h.touch(req)
	defer h.persist()

	// An unverified decode may name a directory that does not exist.
	if info, err := os.Stat(req.ProjectPath); err != nil || !info.IsDir() {
		logger.Warnf("⚠️ Project directory %s is missing, discarding %d bytes", req.ProjectPath, len(req.Text))
		h.logEvent(project, "⚠️ project directory missing, text discarded")
		return true
	}

	result, err := h.extractor.Extract(ctx, summarizer.ExtractRequest{
		Text:            req.Text,
		Project:         project,
		Tool:            req.Backend.DisplayName(),
		PreviousContext: previousContext(store),
	})
	if errors.Is(err, summarizer.ErrRateLimited) {
		logger.Debugf("⏳ Extraction for %s deferred by rate limit", project)
		h.logEvent(project, "⏳ extraction deferred by rate limit")
		return false
	}
	if err != nil {
		logger.Warnf("⚠️ Extraction for %s failed, keeping %d bytes: %v", project, len(req.Text), err)
		h.logEvent(project, "⚠️ extraction failed, text kept for retry")
		return false
	}

	now := h.now()
	if err := store.ApplyExtraction(req.SessionID, now, req.Backend.DisplayName(), result); err != nil {
		logger.Errorf("❌ Failed to update notes for %s: %v", project, err)
		h.logEvent(project, "❌ failed to update notes")
		return false
	}
	fl := logger.WithFields(map[string]interface{}{
		"project": project,
		"session": req.SessionID,
		"reason":  string(req.Reason),
		"bytes":   len(req.Text),
	})
	fl.Info().Msg("✅ Updated notes")
	h.record(req, result, now)
	h.logEvent(project, fmt.Sprintf("📝 notes updated (%.1f KB, %s)", float64(len(req.Text))/1024, req.Reason))

	// The entry is already persisted; an archive failure only delays archival.
	if _, err := store.ArchiveIfOversized(ctx, h.extractor); err != nil {
		logger.Warnf("⚠️ Archival for %s failed: %v", project, err)
	}
	return true
}

// OnSessionEnd records that a logical session closed.
func (h *NotesHandler) OnSessionEnd(end session.SessionEnd) {
	logger.Infof("🏁 Session %s ended for %s (%s)", end.SessionID, filepath.Base(end.ProjectPath), end.Reason)

	h.mu.Lock()
	if a, ok := h.activity[end.ProjectPath]; ok && a.SessionID == end.SessionID {
		a.Status = "ended"
	}
	h.mu.Unlock()

	h.logEvent(filepath.Base(end.ProjectPath), fmt.Sprintf("🏁 session ended (%s)", end.Reason))
	h.persist()
}

// Activity returns per-project activity, most recent first.
func (h *NotesHandler) Activity() []models.ProjectActivity {
	h.mu.RLock()
	defer h.mu.RUnlock()

	out := make([]models.ProjectActivity, 0, len(h.activity))
	for _, a := range h.activity {
		cp := *a
		cp.LooseThreads = append([]string(nil), a.LooseThreads...)
		out = append(out, cp)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].LastActive.After(out[j].LastActive)
	})
	return out
}

// Events returns the recent event log, oldest first.
func (h *NotesHandler) Events() []models.ActivityEvent {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return append([]models.ActivityEvent(nil), h.events...)
}

func (h *NotesHandler) logEvent(project, message string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.events = append(h.events, models.ActivityEvent{At: h.now(), Project: project, Message: message})
	if len(h.events) > maxActivityEvents {
		h.events = h.events[len(h.events)-maxActivityEvents:]
	}
}

// persist publishes the current activity for the status views.
func (h *NotesHandler) persist() {
	if h.activityFile == "" {
		return
	}
	h.persistMu.Lock()
	defer h.persistMu.Unlock()
	snap := ActivitySnapshot{Projects: h.Activity(), Events: h.Events()}
	if err := SaveActivity(h.activityFile, snap); err != nil {
		logger.Warnf("⚠️ Failed to write activity file %s: %v", h.activityFile, err)
	}
}

func (h *NotesHandler) touch(req session.Request) {
	h.mu.Lock()
	defer h.mu.Unlock()
	a := h.entry(req.ProjectPath)
	a.Tool = req.Backend
	a.SessionID = req.SessionID
	a.LastActive = h.now()
}

func (h *NotesHandler) record(req session.Request, result *models.ExtractionResult, at time.Time) {
	h.mu.Lock()
	defer h.mu.Unlock()
	a := h.entry(req.ProjectPath)
	if result.StatedGoal != "" {
		a.CurrentTask = result.StatedGoal
	}
	a.Status = result.Status
	a.Vibe = result.Vibe
	a.LooseThreads = append([]string(nil), result.LooseThreads...)
	a.LastExtraction = at
}

func (h *NotesHandler) entry(projectPath string) *models.ProjectActivity {
	a, ok := h.activity[projectPath]
	if !ok {
		a = &models.ProjectActivity{Name: filepath.Base(projectPath), Path: projectPath}
		h.activity[projectPath] = a
	}
	return a
}

// previousContext summarizes what the notes already say so the model can
// continue rather than restart the story.
func previousContext(store *notes.Store) string {
	var b strings.Builder
	if task := store.CurrentTask(); task != "" && task != notes.UnsetTask {
		fmt.Fprintf(&b, "Current task: %s\n", task)
	}
	if threads := store.LooseThreads(previousThreads); len(threads) > 0 {
		b.WriteString("Open threads:\n")
		for _, t := range threads {
			fmt.Fprintf(&b, "- %s\n", t)
		}
	}
	return strings.TrimSpace(b.String())
}
