package tui

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/vanpelt/monorail/internal/daemon"
	"github.com/vanpelt/monorail/internal/tui/components"
)

// Update routes messages to the active view.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.viewport.Width = msg.Width - 2
		m.viewport.Height = msg.Height - 4
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case tickMsg:
		return m, tea.Batch(m.fetchReport(), tick())

	case reportMsg:
		m.report = daemon.Report(msg)
		m.lastUpdate = m.now()
		if m.selected >= len(m.report.Projects) {
			m.selected = max(len(m.report.Projects)-1, 0)
		}
		return m, nil

	case notesMsg:
		m.notesPath = msg.path
		m.err = msg.err
		if msg.err == nil {
			m.viewport.SetContent(msg.content)
			m.viewport.GotoTop()
		}
		return m, nil
	}

	if m.view == NotesView {
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := msg.String()
	if components.IsQuitKey(key) {
		return m, tea.Quit
	}

	switch m.view {
	case NotesView:
		switch key {
		case components.KeyEscape, components.KeyBackspace:
			m.view = ProjectsView
			m.err = nil
			return m, nil
		case components.KeyVimTop, components.KeyHome:
			m.viewport.GotoTop()
			return m, nil
		case components.KeyVimBottom, components.KeyEnd:
			m.viewport.GotoBottom()
			return m, nil
		}
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		return m, cmd

	default:
		switch {
		case components.IsUpKey(key):
			if m.selected > 0 {
				m.selected--
			}
		case components.IsDownKey(key):
			if m.selected < len(m.report.Projects)-1 {
				m.selected++
			}
		case key == components.KeyRefresh:
			return m, m.fetchReport()
		case key == components.KeyEnter:
			if m.selected < len(m.report.Projects) {
				m.view = NotesView
				m.viewport.SetContent("Loading notes...")
				return m, fetchNotes(m.report.Projects[m.selected].Path, m.viewport.Width)
			}
		}
		return m, nil
	}
}
