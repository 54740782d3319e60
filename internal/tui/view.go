package tui

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/vanpelt/monorail/internal/tui/components"
)

// View renders the active view.
func (m Model) View() string {
	var body string
	switch m.view {
	case NotesView:
		body = m.renderNotes()
	default:
		body = m.renderProjects()
	}
	return body + "\n" + m.renderFooter()
}

func (m Model) renderProjects() string {
	var b strings.Builder
	b.WriteString(components.HeaderStyle.Render("🚝 monorail dashboard"))
	b.WriteString("\n")
	b.WriteString(daemonLine(m.report))
	b.WriteString("\n\n")

	if len(m.report.Projects) == 0 {
		b.WriteString(components.MutedStyle.Render("No projects with AI sessions found."))
		return components.MainContentStyle.Render(b.String())
	}

	now := m.now()
	for i, p := range m.report.Projects {
		block := RenderProject(p, now)
		if i == m.selected {
			lines := strings.SplitN(block, "\n", 2)
			lines[0] = components.SelectedStyle.Render("▶" + strings.TrimPrefix(lines[0], " "))
			block = strings.Join(lines, "\n")
		}
		b.WriteString(block)
	}
	b.WriteString(RenderEvents(m.report.Events, now))
	return components.MainContentStyle.Render(b.String())
}

func (m Model) renderNotes() string {
	if m.err != nil {
		if errors.Is(m.err, os.ErrNotExist) {
			return components.MutedStyle.Render(fmt.Sprintf("No notes yet at %s", m.notesPath))
		}
		return components.ErrorStyle.Render(fmt.Sprintf("Failed to read notes: %v", m.err))
	}
	return m.viewport.View()
}

func (m Model) renderFooter() string {
	var keys string
	switch m.view {
	case NotesView:
		keys = "↑/↓ scroll • g/G top/bottom • esc back • q quit"
	default:
		keys = "↑/↓ select • enter notes • r refresh • q quit"
	}
	if !m.lastUpdate.IsZero() {
		keys += " • updated " + m.lastUpdate.Format("15:04:05")
	}
	style := components.FooterStyle
	if m.width > 0 {
		style = components.ApplyWidth(style, m.width)
	}
	return style.Render(keys)
}
