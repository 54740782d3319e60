// Package session segments transcript activity into logical sessions and
// decides when accumulated text is ready to be summarized.
package session

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/vanpelt/monorail/internal/models"
	"github.com/vanpelt/monorail/internal/tail"
)

// Phase describes where a session file is in its extraction cycle.
type Phase int

const (
	// PhaseIdle has no pending text.
	PhaseIdle Phase = iota
	// PhaseAccumulating has pending text below the extraction threshold.
	PhaseAccumulating
	// PhaseReadyToExtract has reached the threshold or has a hand-off in flight.
	PhaseReadyToExtract
	// PhaseClosing holds text from a closed session still waiting for a
	// successful hand-off.
	PhaseClosing
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseAccumulating:
		return "accumulating"
	case PhaseReadyToExtract:
		return "ready"
	case PhaseClosing:
		return "closing"
	default:
		return "unknown"
	}
}

// segment is the text of one logical session awaiting hand-off.
type segment struct {
	sessionID string
	text      string

	// inflight is the sequence number of the outstanding hand-off, zero when
	// none. inflightLen is how much of text that hand-off carried.
	inflight    uint64
	inflightLen int
}

// State tracks one transcript file.
type State struct {
	ProjectPath  string
	SessionFile  string
	Backend      models.AgentType
	ReadOffset   int64
	LastActivity time.Time
	SessionID    string

	open    *segment
	backlog []*segment
	lines   tail.LineBuffer
}

// PendingText is the text of the open session not yet handed off.
func (s *State) PendingText() string {
	return s.open.text
}

// PendingPartialLine is the trailing bytes still waiting for a newline.
func (s *State) PendingPartialLine() []byte {
	return s.lines.Pending()
}

// UnflushedText is every byte of text not yet accepted by the summarizer,
// closed sessions first, in arrival order.
func (s *State) UnflushedText() string {
	var b strings.Builder
	for _, seg := range s.backlog {
		b.WriteString(seg.text)
	}
	b.WriteString(s.open.text)
	return b.String()
}

// Phase reports the state's position in the extraction cycle.
func (s *State) Phase(minNewBytes int) Phase {
	switch {
	case len(s.backlog) > 0:
		return PhaseClosing
	case s.open.text == "":
		return PhaseIdle
	case s.open.inflight != 0 || len(s.open.text) >= minNewBytes:
		return PhaseReadyToExtract
	default:
		return PhaseAccumulating
	}
}

// closeOpen moves the open segment to the backlog and starts a new session.
// It returns the closed segment, or nil when there was nothing to close.
func (s *State) closeOpen(newID string) *segment {
	closed := s.open
	s.open = &segment{sessionID: newID}
	s.SessionID = newID
	if closed.text == "" {
		return nil
	}
	s.backlog = append(s.backlog, closed)
	return closed
}

func (s *State) dropSegment(seg *segment) {
	for i, candidate := range s.backlog {
		if candidate == seg {
			s.backlog = append(s.backlog[:i], s.backlog[i+1:]...)
			return
		}
	}
}

// NewSessionID returns an identifier like "a7b3f-20250102-1415".
func NewSessionID(now time.Time) string {
	return uuid.NewString()[:5] + "-" + now.Format("20060102-1504")
}
