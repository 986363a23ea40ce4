package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	mdwast "github.com/msto63/mExpr/foundation/expr/ast"
	"github.com/msto63/mExpr/internal/repl"
)

// View represents different views in the TUI
type View int

const (
	ViewSession View = iota
	ViewVariables
	ViewGrammar

	numViews = 3
)

var viewNames = []string{"Session", "Variables", "Grammar"}

// transcriptLine is one processed input with its rendered result
type transcriptLine struct {
	input   string
	output  string
	failed  bool
	command bool
	value   bool
}

// resultMsg carries a processed line back into Update
type resultMsg struct {
	result repl.Result
}

// Model is the main TUI model. It drives a repl.Session.
type Model struct {
	session *repl.Session
	ctx     context.Context

	// State
	view   View
	width  int
	height int
	ready  bool
	busy   bool

	// Components
	input    textinput.Model
	viewport viewport.Model

	// Transcript and input recall
	transcript []transcriptLine
	recall     []string
	recallPos  int
}

// NewModel creates a new TUI model for a session
func NewModel(ctx context.Context, session *repl.Session) Model {
	ti := textinput.New()
	ti.Placeholder = "Expression or :help"
	ti.Prompt = "> "
	ti.CharLimit = 4096
	ti.Focus()

	return Model{
		session: session,
		ctx:     ctx,
		view:    ViewSession,
		input:   ti,
	}
}

// Init initializes the model
func (m Model) Init() tea.Cmd {
	return textinput.Blink
}

// Update handles messages
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "esc":
			return m, tea.Quit

		case "tab":
			// Switch views
			m.view = (m.view + 1) % numViews
			m.updateContent()
			return m, nil

		case "enter":
			line := strings.TrimSpace(m.input.Value())
			if line == "" || m.busy {
				return m, nil
			}
			m.input.Reset()
			m.recall = append(m.recall, line)
			m.recallPos = len(m.recall)
			m.busy = true
			return m, m.process(line)

		case "up":
			if m.recallPos > 0 {
				m.recallPos--
				m.input.SetValue(m.recall[m.recallPos])
				m.input.CursorEnd()
			}
			return m, nil

		case "down":
			if m.recallPos < len(m.recall)-1 {
				m.recallPos++
				m.input.SetValue(m.recall[m.recallPos])
				m.input.CursorEnd()
			} else {
				m.recallPos = len(m.recall)
				m.input.Reset()
			}
			return m, nil

		case "ctrl+l":
			// Clear transcript
			m.transcript = nil
			m.updateContent()
			return m, nil

		case "ctrl+e":
			// Toggle parse and eval mode
			if m.session.Mode() == repl.ModeEval {
				m.session.SetMode(repl.ModeParse)
			} else {
				m.session.SetMode(repl.ModeEval)
			}
			return m, nil

		case "ctrl+f":
			// Cycle output format
			formats := repl.Formats()
			current := m.session.Format()
			for i, f := range formats {
				if f == current {
					m.session.SetFormat(formats[(i+1)%len(formats)])
					break
				}
			}
			return m, nil
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

		contentHeight := msg.Height - 8
		if contentHeight < 1 {
			contentHeight = 1
		}
		if !m.ready {
			m.viewport = viewport.New(msg.Width, contentHeight)
			m.ready = true
		} else {
			m.viewport.Width = msg.Width
			m.viewport.Height = contentHeight
		}
		m.input.Width = msg.Width - 6
		m.updateContent()

	case resultMsg:
		m.busy = false
		r := msg.result
		m.transcript = append(m.transcript, transcriptLine{
			input:   r.Input,
			output:  r.Output,
			failed:  r.Failed(),
			command: r.Command,
			value:   r.Value != nil,
		})
		m.updateContent()
		if r.Quit {
			return m, tea.Quit
		}
	}

	// Update components
	m.input, cmd = m.input.Update(msg)
	cmds = append(cmds, cmd)

	m.viewport, cmd = m.viewport.Update(msg)
	cmds = append(cmds, cmd)

	return m, tea.Batch(cmds...)
}

// process runs a line through the session
func (m *Model) process(line string) tea.Cmd {
	session, ctx := m.session, m.ctx
	return func() tea.Msg {
		return resultMsg{result: session.ProcessContext(ctx, line)}
	}
}

// View renders the UI
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}

	var s strings.Builder

	// Header
	s.WriteString(m.renderHeader())
	s.WriteString("\n")

	// Main content
	s.WriteString(BoxStyle.Width(max(0, m.width-2)).Render(m.viewport.View()))
	s.WriteString("\n")

	if m.view == ViewSession {
		s.WriteString(FocusedInputStyle.Render(m.input.View()))
		s.WriteString("\n")
	}

	// Footer
	s.WriteString(m.renderFooter())

	return s.String()
}

func (m *Model) renderHeader() string {
	var renderedTabs []string

	for i, tab := range viewNames {
		if View(i) == m.view {
			renderedTabs = append(renderedTabs, ActiveTabStyle.Render(tab))
		} else {
			renderedTabs = append(renderedTabs, TabStyle.Render(tab))
		}
	}

	title := RenderTitle("mExpr")
	tabLine := lipgloss.JoinHorizontal(lipgloss.Top, renderedTabs...)

	return lipgloss.JoinHorizontal(lipgloss.Center, title, "  ", tabLine)
}

func (m *Model) renderFooter() string {
	help := "Tab: View • Ctrl+E: Mode • Ctrl+F: Format • Ctrl+L: Clear • Esc: Quit"
	status := fmt.Sprintf("%s | %s", m.session.Mode(), m.session.Format())

	return StatusBarStyle.Width(m.width).Render(
		lipgloss.JoinHorizontal(
			lipgloss.Top,
			help,
			strings.Repeat(" ", max(1, m.width-lipgloss.Width(help)-len(status)-4)),
			status,
		),
	)
}

// updateContent re-renders the viewport for the current view
func (m *Model) updateContent() {
	if !m.ready {
		return
	}

	var content string
	switch m.view {
	case ViewVariables:
		content = m.renderVariables()
	case ViewGrammar:
		content = m.renderGrammar()
	default:
		content = m.renderTranscript()
	}

	m.viewport.SetContent(content)
	if m.view == ViewSession {
		m.viewport.GotoBottom()
	} else {
		m.viewport.GotoTop()
	}
}

func (m *Model) renderTranscript() string {
	if len(m.transcript) == 0 {
		return SubtitleStyle.Render("Enter an expression, e.g. a = 1 + 2 * 3. Type :help for commands.")
	}

	var s strings.Builder
	for _, line := range m.transcript {
		s.WriteString(InputEchoStyle.Render("> " + line.input))
		s.WriteString("\n")

		switch {
		case line.failed:
			s.WriteString(RenderError(line.output))
		case line.command:
			s.WriteString(CommandOutputStyle.Render(line.output))
		case line.value:
			s.WriteString(ValueStyle.Render(line.output))
		default:
			s.WriteString(OutputStyle.Render(line.output))
		}
		s.WriteString("\n\n")
	}
	return s.String()
}

func (m *Model) renderVariables() string {
	vars := m.session.Env().Snapshot()
	if len(vars) == 0 {
		return SubtitleStyle.Render("No variables. Switch to eval mode (Ctrl+E) and assign one, e.g. x = 2.")
	}

	var s strings.Builder
	for _, name := range m.session.Env().Names() {
		value, ok := vars[name]
		if !ok {
			continue
		}
		s.WriteString(fmt.Sprintf("  %-20s %s\n", name, ValueStyle.Render(mdwast.FormatNumber(value))))
	}
	return s.String()
}

func (m *Model) renderGrammar() string {
	r := m.session.Process(":grammar")
	var s strings.Builder
	s.WriteString(SubtitleStyle.Render("Registered parselets"))
	s.WriteString("\n\n")
	s.WriteString(r.Output)
	s.WriteString("\n\n")
	s.WriteString(RenderHelp("Higher precedence binds tighter"))
	return s.String()
}

// Run starts the TUI program
func Run(ctx context.Context, session *repl.Session) error {
	p := tea.NewProgram(NewModel(ctx, session), tea.WithAltScreen(), tea.WithContext(ctx))
	_, err := p.Run()
	return err
}
