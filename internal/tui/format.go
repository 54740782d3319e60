// Package tui renders daemon status for the terminal and runs the
// interactive dashboard.
package tui

import (
	"fmt"
	"time"

	"github.com/charmbracelet/glamour"
)

// FormatTimeAgo describes how long ago t was, relative to now.
func FormatTimeAgo(t, now time.Time) string {
	if t.IsZero() {
		return "never"
	}
	delta := now.Sub(t)
	switch {
	case delta < time.Minute:
		return "just now"
	case delta < time.Hour:
		return fmt.Sprintf("%d min ago", int(delta/time.Minute))
	case delta < 24*time.Hour:
		return plural(int(delta/time.Hour), "hour")
	default:
		return plural(int(delta/(24*time.Hour)), "day")
	}
}

func plural(n int, unit string) string {
	if n == 1 {
		return fmt.Sprintf("1 %s ago", unit)
	}
	return fmt.Sprintf("%d %ss ago", n, unit)
}

// RenderMarkdown renders notes for the terminal, falling back to the raw text
// when glamour cannot.
func RenderMarkdown(content string, width int) string {
	if width <= 0 {
		width = 100
	}
	renderer, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return content
	}
	rendered, err := renderer.Render(content)
	if err != nil {
		return content
	}
	return rendered
}
