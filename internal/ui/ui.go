package ui

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/genretime/genretime/internal/formatter"
	"github.com/genretime/genretime/internal/models"
	"github.com/genretime/genretime/internal/tracker"
)

// refreshInterval controls how often the dashboard re-reads genre totals.
const refreshInterval = 2 * time.Second

// GenreLister reads ranked genre totals for the dashboard.
type GenreLister interface {
	TopByListened() ([]models.Genre, error)
}

// ViewState represents the current view in the TUI.
type ViewState int

const (
	DashboardView ViewState = iota
	ErrorView
)

// Model represents the TUI application state.
type Model struct {
	ctx           context.Context
	view          ViewState
	genres        GenreLister
	notifications <-chan tracker.Notification
	width         int
	height        int
	genreList     list.Model
	ready         bool
	nowPlaying    string
	lastNote      string
	noteStyle     ViewNote
	err           error
	help          help.Model
	keys          keyMap
}

// ViewNote classifies the status line so View can pick a style for it.
type ViewNote int

const (
	NoteNone ViewNote = iota
	NoteOK
	NoteDiscovery
	NoteWarn
)

// keyMap defines the key bindings for the TUI.
type keyMap struct {
	up      key.Binding
	down    key.Binding
	refresh key.Binding
	quit    key.Binding
}

func newKeyMap() keyMap {
	return keyMap{
		up: key.NewBinding(
			key.WithKeys("up", "k"),
			key.WithHelp("↑/k", "up"),
		),
		down: key.NewBinding(
			key.WithKeys("down", "j"),
			key.WithHelp("↓/j", "down"),
		),
		refresh: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "refresh"),
		),
		quit: key.NewBinding(
			key.WithKeys("q", "ctrl+c"),
			key.WithHelp("q", "quit"),
		),
	}
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.refresh, k.quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.up, k.down},
		{k.refresh, k.quit},
	}
}

// genreItem wraps [models.Genre] to implement list.Item.
type genreItem struct {
	genre models.Genre
}

func (i genreItem) FilterValue() string { return i.genre.Name }
func (i genreItem) Title() string       { return i.genre.Name }
func (i genreItem) Description() string {
	return formatter.FormatListened(i.genre.ListenedSeconds)
}

type genresFetchedMsg struct {
	genres []models.Genre
	err    error
}

type notificationMsg tracker.Notification

type refreshMsg time.Time

type trackerStoppedMsg struct {
	err error
}

// NewModel creates a new dashboard model fed by the genre store and the
// tracker's notification channel. The tracker itself runs outside the TUI;
// notifications is closed when it stops.
func NewModel(ctx context.Context, genres GenreLister, notifications <-chan tracker.Notification) *Model {
	return &Model{
		ctx:           ctx,
		view:          DashboardView,
		genres:        genres,
		notifications: notifications,
		help:          help.New(),
		keys:          newKeyMap(),
	}
}

// Init loads the initial genre totals and starts listening for tracker events.
func (m *Model) Init() tea.Cmd {
	return tea.Batch(m.fetchGenres(), m.waitForNotification(), m.scheduleRefresh())
}

// Update handles incoming messages and updates the model state.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		if m.ready {
			m.genreList.SetSize(msg.Width-4, msg.Height-8)
		}
		return m, nil

	case tea.KeyMsg:
		return m.handleKeys(msg)

	case genresFetchedMsg:
		if msg.err != nil {
			m.err = msg.err
			m.view = ErrorView
			return m, nil
		}
		items := make([]list.Item, len(msg.genres))
		for i, genre := range msg.genres {
			items[i] = genreItem{genre: genre}
		}
		if !m.ready {
			m.genreList = list.New(items, list.NewDefaultDelegate(), 0, 0)
			m.genreList.Title = "Genre Listening Time"
			m.genreList.SetShowStatusBar(false)
			m.genreList.SetSize(m.width-4, m.height-8)
			m.ready = true
		} else {
			selected := m.genreList.Index()
			m.genreList.SetItems(items)
			if selected < len(items) {
				m.genreList.Select(selected)
			}
		}
		return m, nil

	case notificationMsg:
		m.applyNotification(tracker.Notification(msg))
		return m, m.waitForNotification()

	case refreshMsg:
		return m, tea.Batch(m.fetchGenres(), m.scheduleRefresh())

	case trackerStoppedMsg:
		if msg.err != nil {
			m.err = msg.err
			m.view = ErrorView
			return m, nil
		}
		return m, tea.Quit
	}

	if m.ready {
		var cmd tea.Cmd
		m.genreList, cmd = m.genreList.Update(msg)
		return m, cmd
	}
	return m, nil
}

// View renders the UI based on the current view state.
func (m *Model) View() string {
	if m.view == ErrorView {
		return styles.err.Render(fmt.Sprintf("Error: %v\n\nPress q to quit", m.err))
	}
	if !m.ready {
		return styles.help.Render("Loading genres...")
	}

	status := m.renderStatus()
	helpView := m.help.ShortHelpView(m.keys.ShortHelp())
	return fmt.Sprintf("%s\n%s\n\n%s", m.genreList.View(), status, helpView)
}

func (m *Model) handleKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit
	case "r":
		return m, m.fetchGenres()
	}

	if m.ready {
		var cmd tea.Cmd
		m.genreList, cmd = m.genreList.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m *Model) applyNotification(n tracker.Notification) {
	switch n.Kind {
	case tracker.KindCredit:
		m.nowPlaying = n.Message
		m.noteStyle = NoteOK
	case tracker.KindGenreDiscovered:
		m.lastNote = n.Message
		m.noteStyle = NoteDiscovery
	case tracker.KindError:
		m.lastNote = n.Message
		m.noteStyle = NoteWarn
	}
}

func (m *Model) renderStatus() string {
	var lines string
	if m.nowPlaying != "" {
		lines = styles.ok.Render(m.nowPlaying)
	}
	switch m.noteStyle {
	case NoteDiscovery:
		lines = fmt.Sprintf("%s\n%s", lines, styles.title.Render(m.lastNote))
	case NoteWarn:
		lines = fmt.Sprintf("%s\n%s", lines, styles.warn.Render(m.lastNote))
	}
	return lines
}

func (m *Model) fetchGenres() tea.Cmd {
	return func() tea.Msg {
		genres, err := m.genres.TopByListened()
		return genresFetchedMsg{genres: genres, err: err}
	}
}

func (m *Model) waitForNotification() tea.Cmd {
	return func() tea.Msg {
		select {
		case <-m.ctx.Done():
			return trackerStoppedMsg{}
		case n, ok := <-m.notifications:
			if !ok {
				return trackerStoppedMsg{}
			}
			return notificationMsg(n)
		}
	}
}

func (m *Model) scheduleRefresh() tea.Cmd {
	return tea.Tick(refreshInterval, func(t time.Time) tea.Msg {
		return refreshMsg(t)
	})
}
