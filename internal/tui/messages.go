package tui

import (
	"time"

	"github.com/vanpelt/monorail/internal/daemon"
)

type tickMsg time.Time
type reportMsg daemon.Report
type notesMsg struct {
	path    string
	content string
	err     error
}
