// package ui implements the interactive terminal interface for playlist conversion
package ui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"sp2yt/internal/formatter"
	"sp2yt/internal/pipeline"
	"sp2yt/internal/services"
)

// ViewState represents the current view in the TUI.
type ViewState int

const (
	PlaylistListView ViewState = iota
	InputView
	ConvertView
	ResultView
)

// PlaylistLister lists the playlists available to the current credentials.
type PlaylistLister interface {
	UserPlaylists(ctx context.Context) ([]services.Playlist, error)
}

// Model represents the TUI application state.
type Model struct {
	ctx    context.Context
	lister PlaylistLister
	engine *pipeline.Engine

	view   ViewState
	width  int
	height int

	playlistList list.Model
	input        textinput.Model
	progressBar  progress.Model

	progressChan chan pipeline.Update
	latest       pipeline.Update
	lines        []string

	run        *pipeline.Run
	runErr     error
	exportPath string
	exportErr  error

	help help.Model
	keys keyMap
}

// playlistItem wraps [services.Playlist] to implement list.Item.
type playlistItem struct {
	playlist services.Playlist
}

func (i playlistItem) FilterValue() string { return i.playlist.Name }
func (i playlistItem) Title() string       { return i.playlist.Name }
func (i playlistItem) Description() string {
	desc := fmt.Sprintf("%d tracks", i.playlist.Total)
	if i.playlist.Owner != "" {
		desc = fmt.Sprintf("%s • %s", desc, i.playlist.Owner)
	}
	return desc
}

type playlistsFetchedMsg struct {
	playlists []services.Playlist
	err       error
}

type progressMsg pipeline.Update

type convertDoneMsg struct {
	run *pipeline.Run
	err error
}

type exportDoneMsg struct {
	path string
	err  error
}

// NewModel creates a TUI model. lister may be nil when the active credential
// flow cannot list the user's playlists; the model then starts on the manual
// input view.
func NewModel(ctx context.Context, lister PlaylistLister, engine *pipeline.Engine) *Model {
	input := textinput.New()
	input.Placeholder = "https://open.spotify.com/playlist/..."
	input.CharLimit = 200
	input.Width = 60

	m := &Model{
		ctx:         ctx,
		lister:      lister,
		engine:      engine,
		view:        PlaylistListView,
		input:       input,
		progressBar: progress.New(progress.WithDefaultGradient()),
		help:        help.New(),
		keys:        newKeyMap(),
	}

	if lister == nil {
		m.view = InputView
		m.input.Focus()
	}

	return m
}

// Init fetches the user's playlists when a lister is available.
func (m *Model) Init() tea.Cmd {
	if m.lister == nil {
		return textinput.Blink
	}
	return m.fetchPlaylists()
}

// Update handles incoming messages and updates the model state.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		if m.playlistList.Width() == 0 {
			m.playlistList.SetSize(msg.Width-4, msg.Height-8)
		}
		m.progressBar.Width = msg.Width - 8
		return m, nil

	case tea.KeyMsg:
		switch m.view {
		case PlaylistListView:
			return m.handlePlaylistListKeys(msg)
		case InputView:
			return m.handleInputKeys(msg)
		case ConvertView:
			return m.handleConvertKeys(msg)
		case ResultView:
			return m.handleResultKeys(msg)
		}

	case playlistsFetchedMsg:
		if msg.err != nil {
			// Listing needs user credentials; fall back to manual entry.
			m.view = InputView
			m.input.Focus()
			return m, textinput.Blink
		}
		items := make([]list.Item, len(msg.playlists))
		for i, pl := range msg.playlists {
			items[i] = playlistItem{playlist: pl}
		}
		m.playlistList = list.New(items, list.NewDefaultDelegate(), 0, 0)
		m.playlistList.Title = "Spotify Playlists"
		m.playlistList.SetSize(m.width-4, m.height-8)
		return m, nil

	case progressMsg:
		m.latest = pipeline.Update(msg)
		if m.latest.Result != nil {
			m.lines = append(m.lines, renderResultLine(*m.latest.Result))
		}
		return m, m.waitForProgress()

	case convertDoneMsg:
		m.run = msg.run
		m.runErr = msg.err
		m.view = ResultView
		m.progressChan = nil
		return m, nil

	case exportDoneMsg:
		m.exportPath = msg.path
		m.exportErr = msg.err
		return m, nil
	}

	if m.view == PlaylistListView {
		var cmd tea.Cmd
		m.playlistList, cmd = m.playlistList.Update(msg)
		return m, cmd
	}

	return m, nil
}

// View renders the UI based on the current view state.
func (m *Model) View() string {
	switch m.view {
	case PlaylistListView:
		return m.renderPlaylistList()
	case InputView:
		return m.renderInput()
	case ConvertView:
		return m.renderConvert()
	case ResultView:
		return m.renderResult()
	default:
		return ""
	}
}

func (m *Model) handlePlaylistListKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.input):
		m.view = InputView
		m.input.Focus()
		return m, textinput.Blink
	case key.Matches(msg, m.keys.enter):
		if selected, ok := m.playlistList.SelectedItem().(playlistItem); ok {
			return m.startConvert(selected.playlist.ID)
		}
	}

	var cmd tea.Cmd
	m.playlistList, cmd = m.playlistList.Update(msg)
	return m, cmd
}

func (m *Model) handleInputKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c":
		return m, tea.Quit
	case "esc":
		if m.lister != nil {
			m.view = PlaylistListView
			return m, nil
		}
		return m, tea.Quit
	case "enter":
		ref := strings.TrimSpace(m.input.Value())
		if ref == "" {
			return m, nil
		}
		return m.startConvert(ref)
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m *Model) handleConvertKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.String() == "ctrl+c" {
		return m, tea.Quit
	}
	return m, nil
}

func (m *Model) handleResultKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.csv):
		return m, m.export("csv")
	case key.Matches(msg, m.keys.text):
		return m, m.export("txt")
	case key.Matches(msg, m.keys.restart):
		m.run = nil
		m.runErr = nil
		m.lines = nil
		m.latest = pipeline.Update{}
		m.exportPath = ""
		m.exportErr = nil
		m.input.SetValue("")
		if m.lister != nil {
			m.view = PlaylistListView
			return m, nil
		}
		m.view = InputView
		m.input.Focus()
		return m, textinput.Blink
	}
	return m, nil
}

func (m *Model) fetchPlaylists() tea.Cmd {
	return func() tea.Msg {
		playlists, err := m.lister.UserPlaylists(m.ctx)
		return playlistsFetchedMsg{playlists: playlists, err: err}
	}
}

func (m *Model) startConvert(ref string) (tea.Model, tea.Cmd) {
	m.view = ConvertView
	m.lines = nil
	m.latest = pipeline.Update{}
	m.progressChan = make(chan pipeline.Update, 64)

	ch := m.progressChan
	go func() {
		run, err := m.engine.Convert(m.ctx, ch, ref)
		m.run = run
		m.runErr = err
		close(ch)
	}()

	return m, m.waitForProgress()
}

func (m *Model) waitForProgress() tea.Cmd {
	return func() tea.Msg {
		if m.progressChan == nil {
			return convertDoneMsg{run: m.run, err: m.runErr}
		}
		update, ok := <-m.progressChan
		if !ok {
			return convertDoneMsg{run: m.run, err: m.runErr}
		}
		return progressMsg(update)
	}
}

func (m *Model) export(format string) tea.Cmd {
	run := m.run
	return func() tea.Msg {
		if run == nil {
			return exportDoneMsg{err: fmt.Errorf("nothing to export")}
		}

		var data []byte
		var err error
		switch format {
		case "csv":
			data, err = formatter.ExportToCSV(run.Results)
		default:
			data = formatter.ExportToText(run.Results)
		}
		if err != nil {
			return exportDoneMsg{err: err}
		}

		path := formatter.ExportFileName(run.PlaylistName, format)
		if err := formatter.WriteExport(path, data); err != nil {
			return exportDoneMsg{err: err}
		}
		return exportDoneMsg{path: path}
	}
}

func (m *Model) renderPlaylistList() string {
	if len(m.playlistList.Items()) == 0 {
		return fmt.Sprintf("%s\n\n%s",
			styles.title.Render("Loading playlists..."),
			m.help.ShortHelpView([]key.Binding{m.keys.input, m.keys.quit}))
	}
	helpView := m.help.ShortHelpView([]key.Binding{m.keys.enter, m.keys.input, m.keys.quit})
	return fmt.Sprintf("%s\n\n%s", m.playlistList.View(), helpView)
}

func (m *Model) renderInput() string {
	title := styles.title.Render("Paste a Spotify playlist link")
	helpView := m.help.ShortHelpView([]key.Binding{m.keys.enter, m.keys.back, m.keys.quit})
	return fmt.Sprintf("%s\n%s\n\n%s", title, m.input.View(), helpView)
}

func (m *Model) renderConvert() string {
	title := styles.title.Render("Converting Playlist")

	var phase string
	switch m.latest.Phase {
	case pipeline.PhaseFetching:
		phase = "Reading playlist from Spotify..."
	case pipeline.PhaseResolving:
		phase = fmt.Sprintf("Searching YouTube (%d/%d)", m.latest.Completed, m.latest.Total)
	default:
		phase = "Starting..."
	}

	var bar string
	if m.latest.Total > 0 {
		bar = m.progressBar.ViewAs(float64(m.latest.Completed) / float64(m.latest.Total))
	}

	return fmt.Sprintf("%s\n\n%s\n%s\n\n%s", title, phase, bar, m.renderLines(10))
}

func (m *Model) renderResult() string {
	if m.runErr != nil {
		msg := styles.err.Render(fmt.Sprintf("Conversion failed: %v", m.runErr))
		helpView := m.help.ShortHelpView([]key.Binding{m.keys.restart, m.keys.quit})
		return fmt.Sprintf("%s\n\n%s", msg, helpView)
	}

	title := styles.ok.Render("✓ Conversion Complete")
	info := fmt.Sprintf("\nPlaylist: %s\nMatched: %d/%d tracks\n",
		m.run.PlaylistName, m.run.Found(), len(m.run.Results))

	var export string
	if m.exportErr != nil {
		export = styles.err.Render(fmt.Sprintf("\nExport failed: %v", m.exportErr))
	} else if m.exportPath != "" {
		export = styles.ok.Render(fmt.Sprintf("\nSaved to %s", m.exportPath))
	}

	helpView := m.help.ShortHelpView([]key.Binding{m.keys.csv, m.keys.text, m.keys.restart, m.keys.quit})
	return fmt.Sprintf("%s%s\n%s%s\n\n%s", title, info, m.renderLines(15), export, helpView)
}

// renderLines shows the tail of the per-track result log.
func (m *Model) renderLines(max int) string {
	lines := m.lines
	if len(lines) > max {
		lines = lines[len(lines)-max:]
	}
	return strings.Join(lines, "\n")
}

func renderResultLine(result pipeline.MatchResult) string {
	song := result.Track.Title
	if result.Track.Artist != "" {
		song += " • " + result.Track.Artist
	}

	switch result.Status {
	case pipeline.StatusFound:
		return fmt.Sprintf("%s %s", styles.ok.Render("✓"), song)
	case pipeline.StatusNotFound:
		return fmt.Sprintf("%s %s", styles.warn.Render("∅"), song)
	default:
		return fmt.Sprintf("%s %s (%s)", styles.err.Render("✗"), song, result.Reason)
	}
}
