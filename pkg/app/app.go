package app

import (
	"fmt"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/kerbaras/webtoons/pkg/app/components"
	"github.com/kerbaras/webtoons/pkg/app/styles"
	"github.com/kerbaras/webtoons/pkg/download"
)

// App renders live download progress while a run drains in the
// background. The caller starts the download, hands over the tracker,
// and Run blocks until the run finishes or the user quits.
type App struct {
	title string
	snaps <-chan download.Snapshot
}

// NewApp subscribes to the tracker immediately so snapshots emitted
// before Run are not lost.
func NewApp(title string, tracker *download.Tracker) *App {
	return &App{title: title, snaps: tracker.Observe()}
}

func (a *App) Run() error {
	model := newDownloadModel(a.title, a.snaps)
	p := tea.NewProgram(model)
	_, err := p.Run()
	return err
}

type snapshotMsg download.Snapshot

type streamClosedMsg struct{}

type downloadModel struct {
	title   string
	snaps   <-chan download.Snapshot
	spinner spinner.Model
	panel   *components.ProgressPanel
	done    bool
}

func newDownloadModel(title string, snaps <-chan download.Snapshot) *downloadModel {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = s.Style.Foreground(styles.Primary)

	return &downloadModel{
		title:   title,
		snaps:   snaps,
		spinner: s,
		panel:   components.NewProgressPanel(60),
	}
}

func (m *downloadModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, waitForSnapshot(m.snaps))
}

func (m *downloadModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.panel.SetWidth(msg.Width)
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		}

	case snapshotMsg:
		m.panel.Update(download.Snapshot(msg))
		if m.panel.Done() {
			m.done = true
			return m, tea.Quit
		}
		return m, waitForSnapshot(m.snaps)

	case streamClosedMsg:
		m.done = true
		return m, tea.Quit

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	return m, nil
}

func (m *downloadModel) View() string {
	header := styles.TitleStyle.Render(m.title)
	if !m.done {
		header = fmt.Sprintf("%s %s", m.spinner.View(), header)
	}

	body := m.panel.View()
	help := styles.HelpStyle.Render("q to stop watching, download continues")
	if m.done {
		help = styles.StatusCompleted.Render("Done")
	}

	return fmt.Sprintf("%s\n%s%s\n", header, body, help)
}

// waitForSnapshot blocks on the tracker stream and resolves to the next
// snapshot, or to streamClosedMsg once the tracker is closed.
func waitForSnapshot(snaps <-chan download.Snapshot) tea.Cmd {
	return func() tea.Msg {
		snap, ok := <-snaps
		if !ok {
			return streamClosedMsg{}
		}
		return snapshotMsg(snap)
	}
}
