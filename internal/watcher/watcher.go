// Package watcher subscribes to transcript directories and drives the session
// machine from a single worker goroutine.
package watcher

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

	"github.com/fsnotify/fsnotify"
	"golang.org/x/sync/errgroup"

	"github.com/vanpelt/monorail/internal/cache"
	"github.com/vanpelt/monorail/internal/config"
	"github.com/vanpelt/monorail/internal/logger"
	"github.com/vanpelt/monorail/internal/models"
	"github.com/vanpelt/monorail/internal/paths"
	"github.com/vanpelt/monorail/internal/recovery"
	"github.com/vanpelt/monorail/internal/session"
)

// Handler receives hand-offs and session ends. OnNewContent returns true when
// the text was extracted and persisted, so the machine may drop it.
type Handler interface {
	OnNewContent(ctx context.Context, req session.Request) bool
	OnSessionEnd(end session.SessionEnd)
}

// Options configures a Watcher.
type Options struct {
	ClaudeProjectsDir string
	CodexSessionsDir  string
	PollInterval      time.Duration
	Session           session.Config
	// QueueSize bounds both the event queue and the hand-off queue.
	QueueSize int
}

const defaultQueueSize = 256

// OptionsFromConfig maps the daemon configuration onto watcher options.
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		ClaudeProjectsDir: cfg.ClaudeProjectsDir,
		CodexSessionsDir:  cfg.CodexSessionsDir,
		PollInterval:      cfg.PollInterval(),
		Session: session.Config{
			MinNewBytes:   cfg.ExtractOn.MinNewBytes,
			IdleThreshold: cfg.IdleThreshold(),
			SessionGap:    cfg.SessionGap(),
			EndPhrases:    cfg.EndPhrases,
		},
	}
}

type eventKind int

const (
	eventChange eventKind = iota
	eventTick
	eventResult
)

type event struct {
	kind     eventKind
	path     string
	backend  models.AgentType
	seq      uint64
	accepted bool
}

// job is a unit of work for the dispatcher: a hand-off or a session end.
type job struct {
	request *session.Request
	end     *session.SessionEnd
}

type root struct {
	dir     string
	backend models.AgentType
}

// Snapshot is a point-in-time view of what the watcher tracks.
type Snapshot struct {
	Roots    []string
	Projects []string
	Tracked  int
	InFlight int
	// Phases counts tracked files per extraction phase.
	Phases map[string]int
	// Resolver reports the project path cache.
	Resolver cache.Stats
}

// Watcher owns the filesystem subscription, the idle ticker and the session
// machine. Only the worker goroutine touches the machine.
type Watcher struct {
	opts     Options
	handler  Handler
	resolver *paths.CachedResolver
	machine  *session.Machine
	roots    []root

	events   chan event
	dispatch chan job
	fsw      *fsnotify.Watcher
	now      func() time.Time

	mu       sync.RWMutex
	snapshot Snapshot
}

// New creates a watcher. Nothing is watched until Run.
func New(opts Options, handler Handler) *Watcher {
	if opts.QueueSize <= 0 {
		opts.QueueSize = defaultQueueSize
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = 30 * time.Second
	}

	var roots []root
	if opts.ClaudeProjectsDir != "" {
		roots = append(roots, root{dir: filepath.Clean(opts.ClaudeProjectsDir), backend: models.AgentTypeClaude})
	}
	if opts.CodexSessionsDir != "" {
		roots = append(roots, root{dir: filepath.Clean(opts.CodexSessionsDir), backend: models.AgentTypeCodex})
	}

	return &Watcher{
		opts:     opts,
		handler:  handler,
		resolver: paths.NewCachedResolver(opts.ClaudeProjectsDir, cache.DefaultConfig()),
		machine:  session.NewMachine(opts.Session),
		roots:    roots,
		events:   make(chan event, opts.QueueSize),
		dispatch: make(chan job, opts.QueueSize),
		now:      time.Now,
	}
}

// Run watches until ctx is cancelled. Pending text that was never handed off
// is not flushed on shutdown.
func (w *Watcher) Run(ctx context.Context) error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	w.fsw = fsw
	defer fsw.Close()

	var watched []string
	for _, r := range w.roots {
		if _, err := os.Stat(r.dir); err != nil {
			logger.Warnf("⚠️ %s transcript directory %s not found, skipping", r.backend.DisplayName(), r.dir)
			continue
		}
		if err := w.addRecursiveWatch(r.dir); err != nil {
			return fmt.Errorf("failed to watch %s: %w", r.dir, err)
		}
		watched = append(watched, r.dir)
		logger.Infof("👀 Watching %s transcripts in %s", r.backend.DisplayName(), r.dir)
	}
	if len(watched) == 0 {
		logger.Warn("⚠️ No transcript directories found; waiting for nothing")
	}
	w.mu.Lock()
	w.snapshot.Roots = watched
	w.mu.Unlock()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return w.pump(gctx) })
	g.Go(func() error { return w.tick(gctx) })
	g.Go(func() error { return w.dispatcher(gctx) })
	g.Go(func() error { return w.worker(gctx) })

	err = g.Wait()
	logger.Info("🛑 Watcher stopped")
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// Snapshot returns the latest view published by the worker.
func (w *Watcher) Snapshot() Snapshot {
	w.mu.RLock()
	defer w.mu.RUnlock()
	s := w.snapshot
	s.Roots = append([]string(nil), s.Roots...)
	s.Projects = append([]string(nil), s.Projects...)
	phases := make(map[string]int, len(s.Phases))
	for k, v := range s.Phases {
		phases[k] = v
	}
	s.Phases = phases
	return s
}

// pump turns fsnotify events into worker events.
func (w *Watcher) pump(ctx context.Context) error {
	for {
		select {
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return nil
			}
			w.handleFileEvent(ctx, ev)

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return nil
			}
			logger.Warnf("⚠️ File watcher error: %v", err)

		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (w *Watcher) handleFileEvent(ctx context.Context, ev fsnotify.Event) {
	if !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Write) {
		return
	}

	if ev.Has(fsnotify.Create) {
		if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
			if err := w.addRecursiveWatch(ev.Name); err != nil {
				logger.Errorf("Failed to watch new directory %s: %v", ev.Name, err)
			}
			// Files may have landed before the watch was in place.
			w.enqueueExisting(ctx, ev.Name)
			return
		}
	}

	backend, ok := w.classify(ev.Name)
	if !ok {
		return
	}
	w.send(ctx, event{kind: eventChange, path: ev.Name, backend: backend})
}

// classify decides whether path is a transcript and for which backend.
func (w *Watcher) classify(path string) (models.AgentType, bool) {
	if !strings.HasSuffix(path, ".jsonl") {
		return "", false
	}
	for _, r := range w.roots {
		rel, err := filepath.Rel(r.dir, path)
		if err != nil || strings.HasPrefix(rel, "..") {
			continue
		}
		if r.backend == models.AgentTypeClaude {
			// Sub-agent transcripts share the project folder but are not
			// conversations of their own.
			name := strings.TrimSuffix(filepath.Base(path), ".jsonl")
			if !paths.IsValidSessionUUID(name) {
				return "", false
			}
		}
		return r.backend, true
	}
	return "", false
}

func (w *Watcher) enqueueExisting(ctx context.Context, dir string) {
	_ = filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil || info.IsDir() {
			return nil
		}
		if backend, ok := w.classify(path); ok {
			w.send(ctx, event{kind: eventChange, path: path, backend: backend})
		}
		return nil
	})
}

func (w *Watcher) send(ctx context.Context, ev event) {
	select {
	case w.events <- ev:
	case <-ctx.Done():
	}
}

// tick feeds the idle check into the same queue as file events.
func (w *Watcher) tick(ctx context.Context) error {
	ticker := time.NewTicker(w.opts.PollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			select {
			case w.events <- event{kind: eventTick}:
			default:
				// A backlog of events already guarantees the worker is awake.
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// worker is the only goroutine that mutates session state.
func (w *Watcher) worker(ctx context.Context) error {
	for {
		select {
		case ev := <-w.events:
			err := recovery.Call("watcher-worker", func() error {
				w.process(ev)
				return nil
			})
			if err != nil {
				logger.Errorf("❌ Dropped event for %s: %v", ev.path, err)
			}
			w.publish()
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (w *Watcher) process(ev event) {
	now := w.now()
	var out session.Outcome

	switch ev.kind {
	case eventChange:
		project, err := w.resolver.Resolve(ev.backend, ev.path)
		if err != nil {
			return
		}
		out = w.machine.HandleChange(session.Change{
			SessionFile: ev.path,
			ProjectPath: project,
			Backend:     ev.backend,
		}, now)
	case eventTick:
		out = w.machine.CheckIdle(now)
	case eventResult:
		out = w.machine.Complete(ev.seq, ev.accepted)
	}
	w.apply(out)
}

// apply queues hand-offs and session ends without ever blocking the worker.
// A full queue counts as an immediate refusal so the text stays pending.
func (w *Watcher) apply(out session.Outcome) {
	if out.Empty() {
		return
	}
	for i := range out.Requests {
		req := out.Requests[i]
		select {
		case w.dispatch <- job{request: &req}:
			logger.Debugf("📤 Queued %s hand-off for %s (%d bytes, %s)", req.Reason, filepath.Base(req.ProjectPath), len(req.Text), req.SessionID)
		default:
			logger.Warnf("⚠️ Hand-off queue full, keeping %d bytes for %s", len(req.Text), req.SessionID)
			w.apply(w.machine.Complete(req.Seq, false))
		}
	}
	for i := range out.Ended {
		end := out.Ended[i]
		select {
		case w.dispatch <- job{end: &end}:
		default:
			logger.Warnf("⚠️ Hand-off queue full, dropping end notice for %s", end.SessionID)
		}
	}
}

// dispatcher runs hand-offs one at a time so summarizer calls never overlap,
// and reports each result back to the worker.
func (w *Watcher) dispatcher(ctx context.Context) error {
	for {
		select {
		case j := <-w.dispatch:
			if j.end != nil {
				_ = recovery.Call("session-end", func() error {
					w.handler.OnSessionEnd(*j.end)
					return nil
				})
				continue
			}

			accepted := false
			err := recovery.Call("hand-off", func() error {
				accepted = w.handler.OnNewContent(ctx, *j.request)
				return nil
			})
			if err != nil {
				accepted = false
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
			w.send(ctx, event{kind: eventResult, seq: j.request.Seq, accepted: accepted})

		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (w *Watcher) publish() {
	seen := map[string]bool{}
	phases := map[string]int{}
	var projects []string
	states := w.machine.States()
	for _, s := range states {
		phases[s.Phase(w.opts.Session.MinNewBytes).String()]++
		if !seen[s.ProjectPath] {
			seen[s.ProjectPath] = true
			projects = append(projects, s.ProjectPath)
		}
	}
	sort.Strings(projects)

	w.mu.Lock()
	w.snapshot.Projects = projects
	w.snapshot.Tracked = len(states)
	w.snapshot.InFlight = w.machine.InFlight()
	w.snapshot.Phases = phases
	w.snapshot.Resolver = w.resolver.Stats()
	w.mu.Unlock()
}

// addRecursiveWatch adds watchers for a directory and all subdirectories
func (w *Watcher) addRecursiveWatch(dir string) error {
	return filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return nil // Skip errors
		}
		if info.IsDir() {
			return w.fsw.Add(path)
		}
		return nil
	})
}
