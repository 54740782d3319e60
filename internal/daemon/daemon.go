// Package daemon runs the transcript watcher in the background and writes
// extracted notes into each project's context directory.
package daemon

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/vanpelt/monorail/internal/config"
	"github.com/vanpelt/monorail/internal/logger"
	"github.com/vanpelt/monorail/internal/notes"
	"github.com/vanpelt/monorail/internal/recovery"
	"github.com/vanpelt/monorail/internal/summarizer"
	"github.com/vanpelt/monorail/internal/watcher"
)

// heartbeatInterval is how often the daemon logs a summary line.
const heartbeatInterval = 10 * time.Minute

// ErrAlreadyRunning is returned when another daemon holds the pid file.
var ErrAlreadyRunning = errors.New("daemon is already running")

// ArchiveOptions maps the configuration onto the notes archival ceilings.
func ArchiveOptions(cfg *config.Config) notes.ArchiveOptions {
	return notes.ArchiveOptions{
		MaxEntries:       cfg.MaxSessionsBeforeArchive,
		MaxLines:         cfg.MaxLinesBeforeArchive,
		KeepRecent:       cfg.KeepRecentSessions,
		SummaryMaxTokens: cfg.ArchiveSummaryMaxTokens,
	}
}

// Daemon wires the watcher to the notes handler.
type Daemon struct {
	cfg   *config.Config
	paths config.Paths
}

// New creates a daemon for the given configuration.
func New(cfg *config.Config, paths config.Paths) *Daemon {
	return &Daemon{cfg: cfg, paths: paths}
}

// Run watches transcripts until ctx is cancelled or SIGINT/SIGTERM arrives.
func (d *Daemon) Run(ctx context.Context) error {
	if pid, running := ReadPID(d.paths.PidFile); running && pid != os.Getpid() {
		return fmt.Errorf("%w (pid %d)", ErrAlreadyRunning, pid)
	}
	if err := d.paths.EnsureHome(); err != nil {
		return fmt.Errorf("failed to prepare %s: %w", d.paths.Home, err)
	}
	if err := WritePID(d.paths.PidFile); err != nil {
		return fmt.Errorf("failed to write pid file: %w", err)
	}
	defer RemovePID(d.paths.PidFile)

	client, err := summarizer.New(d.cfg, d.paths.PromptsDir)
	if err != nil {
		return fmt.Errorf("failed to create summarizer: %w", err)
	}
	if !d.cfg.HasAPIKey() {
		logger.Warnf("⚠️ No API key for %s; text will accumulate until one is configured", d.cfg.Provider)
	}

	handler := NewNotesHandler(client, ArchiveOptions(d.cfg), d.paths.ActivityFile)
	w := watcher.New(watcher.OptionsFromConfig(d.cfg), handler)

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Infof("🚀 monorail daemon started (pid %d, %s)", os.Getpid(), client.ProviderName())
	recovery.SafeGo("daemon-heartbeat", func() {
		heartbeat(ctx, w, handler)
	})
	return w.Run(ctx)
}

// heartbeat periodically logs what the watcher is tracking.
func heartbeat(ctx context.Context, w *watcher.Watcher, handler *NotesHandler) {
	ticker := time.NewTicker(heartbeatInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			snap := w.Snapshot()
			hb := logger.WithFields(map[string]interface{}{
				"projects":          snap.Projects,
				"phases":            snap.Phases,
				"resolver_cached":   snap.Resolver.Size,
				"resolver_hit_rate": snap.Resolver.HitRate,
			})
			hb.Info().
				Msgf("💓 Tracking %d sessions, %d hand-offs in flight, %d projects with notes activity",
					snap.Tracked, snap.InFlight, len(handler.Activity()))
		case <-ctx.Done():
			return
		}
	}
}
