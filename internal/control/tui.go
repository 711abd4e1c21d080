package control

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/cursor"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/okian/herobans/internal/domain/catalog"
	"github.com/okian/herobans/internal/domain/model"
)

const defaultOpTimeout = 5 * time.Second

var teams = [2]string{model.Team1, model.Team2}

var (
	titleStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#F5A12A"))
	labelStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#E6EDF8"))
	dimStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("#98A7C6"))
	selectedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#47B8E9")).Bold(true)
	cursorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#F5A12A")).Bold(true)
	errorStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF5F67")).Bold(true)
	panelStyle    = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#2C80C4")).
			Padding(0, 1)
	focusPanelStyle = panelStyle.BorderForeground(lipgloss.Color("#F5A12A"))
)

type loadedMsg struct{ err error }

type suggestionsMsg struct {
	team   int
	term   string
	heroes []catalog.Hero
	err    error
}

type selectedMsg struct {
	team int
	name string
	err  error
}

type savedMsg struct {
	action string
	state  model.State
	err    error
}

// UIOption configures the terminal UI.
type UIOption func(*Model)

// WithOverlayBase sets the bridge URL shown in the status line.
func WithOverlayBase(base string) UIOption {
	return func(m *Model) {
		m.overlayBase = strings.TrimRight(base, "/")
	}
}

// WithSuggestionLimit caps the suggestion list. Without it the hero source
// applies its own default.
func WithSuggestionLimit(n int) UIOption {
	return func(m *Model) {
		if n > 0 {
			m.limit = n
		}
	}
}

// WithSyncOnStart writes the loaded selections back once at startup, which
// drops bans that are not catalog heroes.
func WithSyncOnStart(on bool) UIOption {
	return func(m *Model) {
		m.syncOnStart = on
	}
}

// WithOpTimeout bounds each bridge call made by the UI.
func WithOpTimeout(d time.Duration) UIOption {
	return func(m *Model) {
		if d > 0 {
			m.opTimeout = d
		}
	}
}

// Model is the bubbletea model of the control panel.
type Model struct {
	ctx  context.Context
	ctrl *Controller

	inputs      [2]textinput.Model
	focus       int
	suggestions []catalog.Hero
	cursor      int
	showList    bool

	status      string
	err         error
	overlayBase string
	limit       int
	syncOnStart bool
	opTimeout   time.Duration
	quitting    bool
}

// NewModel builds the control panel for ctrl.
func NewModel(ctx context.Context, ctrl *Controller, opts ...UIOption) Model {
	m := Model{
		ctx:       ctx,
		ctrl:      ctrl,
		opTimeout: defaultOpTimeout,
		cursor:    -1,
		status:    "Loading...",
	}
	for i, team := range teams {
		ti := textinput.New()
		ti.Placeholder = "Search hero..."
		ti.CharLimit = 64
		ti.Width = 28
		ti.Prompt = "❯ "
		ti.PromptStyle = cursorStyle
		ti.Cursor.SetMode(cursor.CursorStatic)
		ti.SetValue(ctrl.Selected(team))
		m.inputs[i] = ti
	}
	m.inputs[0].Focus()
	for _, opt := range opts {
		opt(&m)
	}
	return m
}

// Run shows the control panel until the user quits or ctx ends.
func Run(ctx context.Context, ctrl *Controller, opts ...UIOption) error {
	p := tea.NewProgram(NewModel(ctx, ctrl, opts...), tea.WithContext(ctx), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("control panel: %w", err)
	}
	return nil
}

// Init loads the bridge's current bans.
func (m Model) Init() tea.Cmd {
	return m.call(func(ctx context.Context) tea.Msg {
		return loadedMsg{err: m.ctrl.Load(ctx)}
	})
}

// Update handles keys and the results of bridge calls.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case loadedMsg:
		if msg.err != nil {
			m.err = msg.err
			m.status = "Bridge not reachable"
			return m, nil
		}
		for i, team := range teams {
			m.inputs[i].SetValue(m.ctrl.Selected(team))
		}
		m.status = "Ready"
		if m.syncOnStart {
			return m, m.action("update", m.ctrl.Update)
		}
		return m, nil

	case suggestionsMsg:
		// Stale answers for text that has since changed are dropped.
		if msg.team != m.focus || msg.term != m.inputs[m.focus].Value() {
			return m, nil
		}
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.suggestions = msg.heroes
		m.cursor = -1
		m.showList = true
		return m, nil

	case selectedMsg:
		m.inputs[msg.team].SetValue(msg.name)
		m.inputs[msg.team].CursorEnd()
		m.err = msg.err
		return m, nil

	case savedMsg:
		if msg.err != nil {
			m.err = msg.err
			m.status = msg.action + " failed"
			return m, nil
		}
		m.err = nil
		for i, team := range teams {
			m.inputs[i].SetValue(m.ctrl.Selected(team))
		}
		m.status = m.updatedLine(msg.state)
		return m, nil
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c":
		m.quitting = true
		return m, tea.Quit
	case "esc":
		m.showList = false
		m.cursor = -1
		return m, nil
	case "tab", "shift+tab":
		commit := m.commit(m.focus, m.inputs[m.focus].Value())
		m.inputs[m.focus].Blur()
		m.focus = 1 - m.focus
		m.inputs[m.focus].Focus()
		m.showList = false
		m.cursor = -1
		return m, commit
	case "up":
		if m.showList && m.cursor > 0 {
			m.cursor--
		}
		return m, nil
	case "down":
		if !m.showList {
			return m, m.suggest(m.focus, m.inputs[m.focus].Value())
		}
		if m.cursor < len(m.suggestions)-1 {
			m.cursor++
		}
		return m, nil
	case "enter":
		text := m.inputs[m.focus].Value()
		if m.showList && m.cursor >= 0 && m.cursor < len(m.suggestions) {
			text = m.suggestions[m.cursor].Name
		}
		m.showList = false
		m.cursor = -1
		return m, m.commit(m.focus, text)
	case "ctrl+u":
		return m, m.commitAll(m.action("update", m.ctrl.Update))
	case "ctrl+s":
		return m, m.commitAll(m.action("swap", m.ctrl.Swap))
	case "ctrl+r":
		return m, m.action("reset", m.ctrl.Reset)
	case "ctrl+x":
		_ = m.ctrl.Clear(teams[m.focus])
		m.inputs[m.focus].SetValue("")
		m.showList = false
		return m, nil
	}

	before := m.inputs[m.focus].Value()
	var cmd tea.Cmd
	m.inputs[m.focus], cmd = m.inputs[m.focus].Update(msg)
	if after := m.inputs[m.focus].Value(); after != before {
		return m, tea.Batch(cmd, m.suggest(m.focus, after))
	}
	return m, cmd
}

// commit resolves text for team and echoes the resulting selection.
func (m Model) commit(team int, text string) tea.Cmd {
	return m.call(func(ctx context.Context) tea.Msg {
		name, err := m.ctrl.Select(ctx, teams[team], text)
		return selectedMsg{team: team, name: name, err: err}
	})
}

// commitAll settles both inputs before running next. Text that names no
// hero falls back to the team's previous selection.
func (m Model) commitAll(next tea.Cmd) tea.Cmd {
	texts := [2]string{m.inputs[0].Value(), m.inputs[1].Value()}
	return m.call(func(ctx context.Context) tea.Msg {
		for i, team := range teams {
			if _, err := m.ctrl.Select(ctx, team, texts[i]); err != nil {
				return savedMsg{action: "select", err: err}
			}
		}
		return next()
	})
}

func (m Model) suggest(team int, term string) tea.Cmd {
	limit := m.limit
	return m.call(func(ctx context.Context) tea.Msg {
		heroes, err := m.ctrl.Suggest(ctx, term, limit)
		return suggestionsMsg{team: team, term: term, heroes: heroes, err: err}
	})
}

func (m Model) action(name string, fn func(context.Context) (model.State, error)) tea.Cmd {
	return m.call(func(ctx context.Context) tea.Msg {
		st, err := fn(ctx)
		return savedMsg{action: name, state: st, err: err}
	})
}

func (m Model) call(fn func(ctx context.Context) tea.Msg) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(m.ctx, m.opTimeout)
		defer cancel()
		return fn(ctx)
	}
}

func (m Model) updatedLine(st model.State) string {
	at := time.UnixMilli(st.UpdatedAt).Format("15:04:05")
	if m.overlayBase == "" {
		return "Updated " + at
	}
	return fmt.Sprintf("Updated %s | %s/team1.html + /team2.html", at, m.overlayBase)
}

// View renders the panel.
func (m Model) View() string {
	if m.quitting {
		return ""
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render("OW2 Hero Bans"))
	b.WriteString("\n")
	b.WriteString(dimStyle.Render("Terminal control for team bans"))
	b.WriteString("\n\n")

	for i, team := range teams {
		selected := m.ctrl.Selected(team)
		if selected == "" {
			selected = "None"
		}
		body := labelStyle.Render(fmt.Sprintf("Team %d", i+1)) + "  " +
			dimStyle.Render("ban: ") + selectedStyle.Render(selected) + "\n" +
			m.inputs[i].View()
		if i == m.focus && m.showList {
			body += "\n" + m.listView()
		}
		style := panelStyle
		if i == m.focus {
			style = focusPanelStyle
		}
		b.WriteString(style.Render(body))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	if m.err != nil {
		b.WriteString(errorStyle.Render(m.err.Error()))
		b.WriteString("\n")
	}
	b.WriteString(dimStyle.Render(m.status))
	b.WriteString("\n")
	b.WriteString(dimStyle.Render("tab: next team • ↑/↓: choose • enter: select • ctrl+u: update • ctrl+s: swap • ctrl+x: clear • ctrl+r: reset • ctrl+c: quit"))
	return b.String()
}

func (m Model) listView() string {
	if len(m.suggestions) == 0 {
		return dimStyle.Render("  no matches")
	}
	lines := make([]string, len(m.suggestions))
	for i, h := range m.suggestions {
		if i == m.cursor {
			lines[i] = cursorStyle.Render("› " + h.Name)
			continue
		}
		lines[i] = "  " + h.Name
	}
	return strings.Join(lines, "\n")
}
