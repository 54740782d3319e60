package session

import (
	"strings"
	"time"

	"github.com/vanpelt/monorail/internal/logger"
	"github.com/vanpelt/monorail/internal/models"
	"github.com/vanpelt/monorail/internal/tail"
	"github.com/vanpelt/monorail/internal/transcript"
)

// Reason records why a hand-off was requested.
type Reason string

const (
	ReasonThreshold  Reason = "threshold"
	ReasonIdle       Reason = "idle"
	ReasonFileSwitch Reason = "file-switch"
	ReasonGap        Reason = "gap"
	ReasonEndPhrase  Reason = "end-phrase"
	ReasonRetry      Reason = "retry"
)

// Request asks the summarizer to take Text for a session. The machine keeps
// the text until Complete reports the request accepted.
type Request struct {
	Seq         uint64
	ProjectPath string
	SessionID   string
	SessionFile string
	Backend     models.AgentType
	Text        string
	Reason      Reason
}

// SessionEnd announces that a logical session was closed by a boundary.
type SessionEnd struct {
	ProjectPath string
	SessionID   string
	Backend     models.AgentType
	Reason      Reason
}

// Outcome is what a single state transition asks the caller to do.
type Outcome struct {
	Requests []Request
	Ended    []SessionEnd
}

func (o *Outcome) merge(other Outcome) {
	o.Requests = append(o.Requests, other.Requests...)
	o.Ended = append(o.Ended, other.Ended...)
}

// Empty reports whether the outcome carries no work.
func (o Outcome) Empty() bool {
	return len(o.Requests) == 0 && len(o.Ended) == 0
}

// Config holds the thresholds that drive segmentation.
type Config struct {
	MinNewBytes   int
	IdleThreshold time.Duration
	SessionGap    time.Duration
	EndPhrases    []string
}

// Change is a filesystem notification for a transcript whose project has
// already been resolved.
type Change struct {
	SessionFile string
	ProjectPath string
	Backend     models.AgentType
}

type flight struct {
	state *State
	seg   *segment
}

// Machine owns every State. It is not safe for concurrent use; callers drive
// it from a single goroutine and run hand-offs elsewhere.
type Machine struct {
	config Config
	states map[string]*State
	// active maps a project path to the session file currently live for it.
	active   map[string]string
	inflight map[uint64]flight
	seq      uint64

	read  func(path string, offset int64) ([]byte, int64)
	parse func(models.AgentType) transcript.Parser
	newID func(time.Time) string
}

// NewMachine creates a machine reading transcripts from disk.
func NewMachine(cfg Config) *Machine {
	return &Machine{
		config:   cfg,
		states:   make(map[string]*State),
		active:   make(map[string]string),
		inflight: make(map[uint64]flight),
		read:     tail.ReadFrom,
		parse:    transcript.ForBackend,
		newID:    NewSessionID,
	}
}

// State returns the tracked state for a session file.
func (m *Machine) State(sessionFile string) (*State, bool) {
	s, ok := m.states[sessionFile]
	return s, ok
}

// States returns every tracked state.
func (m *Machine) States() []*State {
	out := make([]*State, 0, len(m.states))
	for _, s := range m.states {
		out = append(out, s)
	}
	return out
}

// ActiveSession returns the live session file for a project.
func (m *Machine) ActiveSession(projectPath string) (string, bool) {
	key, ok := m.active[projectPath]
	return key, ok
}

// InFlight is the number of hand-offs awaiting Complete.
func (m *Machine) InFlight() int {
	return len(m.inflight)
}

// HandleChange reads whatever was appended to the file and applies the
// boundary rules in order: file switch, gap, append, end phrase, threshold.
func (m *Machine) HandleChange(ch Change, now time.Time) Outcome {
	state := m.stateFor(ch, now)

	data, offset := m.read(state.SessionFile, state.ReadOffset)
	state.ReadOffset = offset
	if len(data) == 0 {
		return Outcome{}
	}

	var out Outcome
	out.merge(m.switchActive(state, now))

	// A gap of exactly SessionGap already closes the session.
	if state.open.text != "" && now.Sub(state.LastActivity) >= m.config.SessionGap {
		logger.Debugf("⏸️ Gap of %s on %s, closing session %s", now.Sub(state.LastActivity).Round(time.Second), state.SessionFile, state.SessionID)
		out.merge(m.closeSession(state, now, ReasonGap))
	}
	state.LastActivity = now

	lines := m.parse(state.Backend)(state.lines.Push(data))
	if len(lines) == 0 {
		out.merge(m.retryBacklog(state))
		return out
	}
	m.appendText(state, strings.Join(lines, "\n")+"\n")

	if m.endsSession(lines) {
		out.merge(m.closeSession(state, now, ReasonEndPhrase))
		return out
	}

	out.merge(m.checkThreshold(state))
	out.merge(m.retryBacklog(state))
	return out
}

// CheckIdle hands off open sessions that have been quiet for the idle
// threshold and retries closed sessions whose earlier hand-off was refused.
// Session IDs are left alone.
func (m *Machine) CheckIdle(now time.Time) Outcome {
	var out Outcome
	for _, state := range m.states {
		out.merge(m.retryBacklog(state))
		if state.open.text == "" || state.open.inflight != 0 {
			continue
		}
		// Inclusive: idle for exactly IdleThreshold counts.
		if now.Sub(state.LastActivity) >= m.config.IdleThreshold {
			out.Requests = append(out.Requests, m.request(state, state.open, ReasonIdle))
		}
	}
	return out
}

// Complete resolves a hand-off. Accepted text is removed; text appended
// while the request was in flight stays pending. A refusal keeps everything.
func (m *Machine) Complete(seq uint64, accepted bool) Outcome {
	f, ok := m.inflight[seq]
	if !ok {
		return Outcome{}
	}
	delete(m.inflight, seq)

	seg := f.seg
	sent := seg.inflightLen
	seg.inflight = 0
	seg.inflightLen = 0

	if !accepted {
		return Outcome{}
	}

	seg.text = seg.text[sent:]
	if seg != f.state.open {
		if seg.text == "" {
			f.state.dropSegment(seg)
			return Outcome{}
		}
		return Outcome{Requests: []Request{m.request(f.state, seg, ReasonRetry)}}
	}
	return m.checkThreshold(f.state)
}

func (m *Machine) stateFor(ch Change, now time.Time) *State {
	state, ok := m.states[ch.SessionFile]
	if !ok {
		id := m.newID(now)
		state = &State{
			ProjectPath:  ch.ProjectPath,
			SessionFile:  ch.SessionFile,
			Backend:      ch.Backend,
			LastActivity: now,
			SessionID:    id,
			open:         &segment{sessionID: id},
		}
		m.states[ch.SessionFile] = state
		logger.Debugf("🆕 Tracking %s transcript %s for %s", ch.Backend, ch.SessionFile, ch.ProjectPath)
		return state
	}

	if ch.ProjectPath != "" && ch.ProjectPath != state.ProjectPath {
		logger.Debugf("🔄 Project for %s corrected from %s to %s", ch.SessionFile, state.ProjectPath, ch.ProjectPath)
		if m.active[state.ProjectPath] == state.SessionFile {
			delete(m.active, state.ProjectPath)
		}
		state.ProjectPath = ch.ProjectPath
	}
	return state
}

// switchActive makes state the live file for its project, closing the
// previously live file's session first.
func (m *Machine) switchActive(state *State, now time.Time) Outcome {
	var out Outcome
	prevKey, ok := m.active[state.ProjectPath]
	if ok && prevKey != state.SessionFile {
		if prev, exists := m.states[prevKey]; exists && prev.open.text != "" {
			logger.Debugf("🔀 %s switched to %s, closing %s", state.ProjectPath, state.SessionFile, prev.SessionID)
			out = m.closeSession(prev, now, ReasonFileSwitch)
		}
	}
	m.active[state.ProjectPath] = state.SessionFile
	return out
}

// closeSession flushes the open segment regardless of size, announces the
// end, and starts a fresh session.
func (m *Machine) closeSession(state *State, now time.Time, reason Reason) Outcome {
	var out Outcome
	endedID := state.SessionID

	closed := state.closeOpen(m.newID(now))
	if closed != nil && closed.inflight == 0 {
		out.Requests = append(out.Requests, m.request(state, closed, reason))
	}
	out.Ended = append(out.Ended, SessionEnd{
		ProjectPath: state.ProjectPath,
		SessionID:   endedID,
		Backend:     state.Backend,
		Reason:      reason,
	})
	return out
}

func (m *Machine) checkThreshold(state *State) Outcome {
	if state.open.inflight != 0 || state.open.text == "" {
		return Outcome{}
	}
	if len(state.open.text) < m.config.MinNewBytes {
		return Outcome{}
	}
	return Outcome{Requests: []Request{m.request(state, state.open, ReasonThreshold)}}
}

func (m *Machine) retryBacklog(state *State) Outcome {
	var out Outcome
	for _, seg := range state.backlog {
		if seg.inflight == 0 && seg.text != "" {
			out.Requests = append(out.Requests, m.request(state, seg, ReasonRetry))
		}
	}
	return out
}

func (m *Machine) appendText(state *State, text string) {
	state.open.text += text
}

func (m *Machine) request(state *State, seg *segment, reason Reason) Request {
	m.seq++
	seg.inflight = m.seq
	seg.inflightLen = len(seg.text)
	m.inflight[m.seq] = flight{state: state, seg: seg}

	return Request{
		Seq:         m.seq,
		ProjectPath: state.ProjectPath,
		SessionID:   seg.sessionID,
		SessionFile: state.SessionFile,
		Backend:     state.Backend,
		Text:        seg.text,
		Reason:      reason,
	}
}

// endsSession reports whether a user line is one of the configured end
// phrases, typed directly or recorded as a slash command.
func (m *Machine) endsSession(lines []string) bool {
	for _, line := range lines {
		text, ok := strings.CutPrefix(line, "user: ")
		if !ok {
			continue
		}
		text = strings.TrimSpace(text)
		for _, phrase := range m.config.EndPhrases {
			if phrase == "" {
				continue
			}
			if text == phrase || strings.Contains(text, "<command-name>"+phrase+"</command-name>") {
				return true
			}
		}
	}
	return false
}
