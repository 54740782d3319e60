package tui

import (
	"os"
	"time"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/vanpelt/monorail/internal/daemon"
	"github.com/vanpelt/monorail/internal/notes"
)

// refreshInterval is how often the dashboard reloads the report.
const refreshInterval = 5 * time.Second

// ViewType represents the different views in the dashboard
type ViewType int

const (
	// ProjectsView lists every project with its current task
	ProjectsView ViewType = iota
	// NotesView shows the rendered notes of the selected project
	NotesView
)

// Model is the dashboard state.
type Model struct {
	load func() daemon.Report
	now  func() time.Time

	report     daemon.Report
	selected   int
	view       ViewType
	notesPath  string
	viewport   viewport.Model
	width      int
	height     int
	lastUpdate time.Time
	err        error
}

// NewModel creates a dashboard that refreshes from load.
func NewModel(load func() daemon.Report) Model {
	return Model{
		load:     load,
		now:      time.Now,
		viewport: viewport.New(80, 20),
	}
}

// Init starts the first load and the refresh ticker.
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.fetchReport(), tick())
}

func tick() tea.Cmd {
	return tea.Tick(refreshInterval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m Model) fetchReport() tea.Cmd {
	load := m.load
	return func() tea.Msg {
		return reportMsg(load())
	}
}

func fetchNotes(projectPath string, width int) tea.Cmd {
	return func() tea.Msg {
		path := notes.NewStore(projectPath, notes.ArchiveOptions{}).Path()
		data, err := os.ReadFile(path)
		if err != nil {
			return notesMsg{path: path, err: err}
		}
		return notesMsg{path: path, content: RenderMarkdown(string(data), width)}
	}
}

// Run starts the dashboard in the alternate screen.
func Run(load func() daemon.Report) error {
	p := tea.NewProgram(NewModel(load), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
