// Package tui is the terminal front end of the chat view.
package tui

import (
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/2207231/chatbot/internal/chatview"
	"github.com/2207231/chatbot/internal/model/catalog"
)

type focusArea int

const (
	focusInput focusArea = iota
	focusHistory
)

// snapshotMsg carries a new chat view state into the program.
type snapshotMsg chatview.Snapshot

// closedMsg reports that the chat view stopped publishing.
type closedMsg struct{}

// Options configures the terminal model.
type Options struct {
	// Models is the list cycled by ctrl+o.
	Models []catalog.Status
	// MarkdownStyle is a glamour standard style name such as "dark".
	MarkdownStyle string
}

// Model is the bubbletea model of the chat screen.
type Model struct {
	view        *chatview.View
	updates     <-chan chatview.Snapshot
	unsubscribe func()
	snap        chatview.Snapshot

	models []catalog.Status
	keys   KeyMap
	help   help.Model

	input    textinput.Model
	viewport viewport.Model
	spinner  spinner.Model
	md       *markdown

	focus    focusArea
	selected int
	width    int
	height   int
	status   string
	ready    bool
}

// New subscribes to view and builds the screen.
func New(view *chatview.View, opts Options) Model {
	ti := textinput.New()
	ti.Prompt = "> "
	ti.Placeholder = "Type a message..."
	ti.CharLimit = 8192
	ti.Focus()

	vp := viewport.New(80, 20)

	sp := spinner.New()
	sp.Spinner = spinner.Dot

	style := opts.MarkdownStyle
	if style == "" {
		style = "dark"
	}

	updates, unsubscribe := view.Subscribe()

	return Model{
		view:        view,
		updates:     updates,
		unsubscribe: unsubscribe,
		snap:        view.Snapshot(),
		models:      opts.Models,
		keys:        DefaultKeyMap(),
		help:        help.New(),
		input:       ti,
		viewport:    vp,
		spinner:     sp,
		md:          newMarkdown(style),
	}
}

// Init starts listening for state changes.
func (m Model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.spinner.Tick, waitForSnapshot(m.updates))
}

func waitForSnapshot(updates <-chan chatview.Snapshot) tea.Cmd {
	return func() tea.Msg {
		snap, ok := <-updates
		if !ok {
			return closedMsg{}
		}
		return snapshotMsg(snap)
	}
}

// Update handles input and chat view updates.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.resize(msg.Width, msg.Height)

	case snapshotMsg:
		m.snap = chatview.Snapshot(msg)
		if m.snap.Err != nil {
			m.status = m.snap.Err.Error()
		}
		m.clampSelection()
		m.refreshConversation()
		cmds = append(cmds, waitForSnapshot(m.updates))

	case closedMsg:
		return m, tea.Quit

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		cmds = append(cmds, cmd)

	case tea.KeyMsg:
		next, cmd, handled := m.handleKey(msg)
		if handled {
			return next, cmd
		}
		m = next
		if m.focus == focusInput {
			var inputCmd tea.Cmd
			m.input, inputCmd = m.input.Update(msg)
			cmds = append(cmds, inputCmd)
		}
	}

	return m, tea.Batch(cmds...)
}

// handleKey applies the global bindings. handled is false when the key
// should reach the focused widget.
func (m Model) handleKey(msg tea.KeyMsg) (Model, tea.Cmd, bool) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		m.unsubscribe()
		return m, tea.Quit, true

	case key.Matches(msg, m.keys.NewChat):
		m.view.NewChat()
		m.status = ""
		m.focusOn(focusInput)
		return m, nil, true

	case key.Matches(msg, m.keys.CycleModel):
		m.cycleModel()
		return m, nil, true

	case key.Matches(msg, m.keys.Focus):
		if m.focus == focusInput {
			m.focusOn(focusHistory)
		} else {
			m.focusOn(focusInput)
		}
		return m, nil, true

	case key.Matches(msg, m.keys.Submit):
		if m.focus == focusHistory {
			m.openSelected()
			return m, nil, true
		}
		m.submit()
		return m, nil, true

	case key.Matches(msg, m.keys.Up):
		if m.focus == focusHistory {
			if m.selected > 0 {
				m.selected--
			}
		} else {
			m.viewport.LineUp(1)
		}
		return m, nil, true

	case key.Matches(msg, m.keys.Down):
		if m.focus == focusHistory {
			if m.selected < len(m.snap.Sessions)-1 {
				m.selected++
			}
		} else {
			m.viewport.LineDown(1)
		}
		return m, nil, true

	case key.Matches(msg, m.keys.Delete):
		if m.focus == focusHistory {
			m.deleteSelected()
			return m, nil, true
		}
	}

	return m, nil, false
}

func (m *Model) submit() {
	err := m.view.Submit(m.input.Value())
	switch {
	case err == nil:
		m.input.Reset()
		m.status = ""
		m.snap = m.view.Snapshot()
		m.refreshConversation()
	case errors.Is(err, chatview.ErrBusy), errors.Is(err, chatview.ErrEmptyInput):
		// 等待回复期间或空输入时忽略回车。
	default:
		m.status = err.Error()
	}
}

func (m *Model) openSelected() {
	if m.selected >= len(m.snap.Sessions) {
		return
	}
	if err := m.view.LoadSession(m.snap.Sessions[m.selected].ID); err != nil {
		m.status = err.Error()
		return
	}
	m.snap = m.view.Snapshot()
	m.refreshConversation()
	m.focusOn(focusInput)
}

func (m *Model) deleteSelected() {
	if m.selected >= len(m.snap.Sessions) {
		return
	}
	if err := m.view.DeleteSession(m.snap.Sessions[m.selected].ID); err != nil {
		m.status = err.Error()
		return
	}
	m.snap = m.view.Snapshot()
	m.clampSelection()
}

func (m *Model) cycleModel() {
	if len(m.models) == 0 {
		return
	}

	next := 0
	for i, item := range m.models {
		if item.ID == m.snap.Model {
			next = (i + 1) % len(m.models)
			break
		}
	}
	chosen := m.models[next]
	m.view.SetModel(chosen.ID)
	m.snap = m.view.Snapshot()

	m.status = fmt.Sprintf("model: %s", chosen.Name)
	if !chosen.Available {
		m.status += " (provider not configured)"
	}
}

func (m *Model) focusOn(area focusArea) {
	m.focus = area
	if area == focusInput {
		m.input.Focus()
		return
	}
	m.input.Blur()
	m.clampSelection()
}

func (m *Model) clampSelection() {
	if m.selected >= len(m.snap.Sessions) {
		m.selected = len(m.snap.Sessions) - 1
	}
	if m.selected < 0 {
		m.selected = 0
	}
}

func (m *Model) resize(width, height int) {
	m.width, m.height = width, height

	chatWidth := max(width-sidebarWidth-3, 20)
	// 标题、输入框、状态栏与帮助各占一行。
	chatHeight := max(height-5, 3)

	m.viewport.Width = chatWidth
	m.viewport.Height = chatHeight
	m.input.Width = chatWidth - 3
	m.md.resize(chatWidth)
	m.ready = true
	m.refreshConversation()
}

func (m *Model) refreshConversation() {
	atBottom := m.viewport.AtBottom()
	m.viewport.SetContent(renderConversation(m.snap, m.md))
	if atBottom || m.snap.State != chatview.StateIdle {
		m.viewport.GotoBottom()
	}
}

// View renders the screen.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}

	header := titleStyle.Render("Chat") + statusStyle.Render("  ·  "+m.modelName())
	if m.snap.State == chatview.StateAwaitingResponse {
		header += " " + m.spinner.View()
	}

	status := m.status
	if status == "" {
		status = m.snap.State.String()
	}

	main := lipgloss.JoinVertical(lipgloss.Left,
		header,
		m.viewport.View(),
		m.input.View(),
		statusStyle.Render(status),
	)
	body := lipgloss.JoinHorizontal(lipgloss.Top,
		renderSidebar(m.snap, m.selected, m.focus == focusHistory, m.height-1),
		" ",
		main,
	)
	return strings.TrimRight(body, "\n") + "\n" + m.help.ShortHelpView(m.keys.ShortHelp())
}

func (m Model) modelName() string {
	for _, item := range m.models {
		if item.ID == m.snap.Model {
			return item.Name
		}
	}
	return m.snap.Model
}
