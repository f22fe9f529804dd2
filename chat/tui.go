package chat

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/statekit/statekit/store"
)

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("205"))
	userStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("39"))
	botStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	mutedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	errStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	failedStyle = lipgloss.NewStyle().Strikethrough(true).Foreground(lipgloss.Color("241"))
)

// stateMsg carries the next state from the store's subscription into
// the Bubble Tea event loop.
type stateMsg struct {
	state State
}

// stateStreamClosed reports that the store shut down underneath the UI.
type stateStreamClosed struct{}

// Model is the Bubble Tea model for the chat TUI. It is a thin view:
// every state change flows through the store, and the model only
// renders the latest snapshot it received from its subscription.
type Model struct {
	app *App
	sub *store.Subscription[State]

	state State

	input    textinput.Model
	viewport viewport.Model
	spin     spinner.Model

	width  int
	height int
	ready  bool
}

// NewModel subscribes to the app's store and returns the UI model.
func NewModel(app *App) (Model, error) {
	sub, err := app.Store.Subscribe()
	if err != nil {
		return Model{}, fmt.Errorf("failed to subscribe to store: %w", err)
	}

	input := textinput.New()
	input.Placeholder = "Type a message and press enter"
	input.Focus()
	input.CharLimit = 500

	spin := spinner.New()
	spin.Spinner = spinner.Dot
	spin.Style = mutedStyle

	return Model{
		app:   app,
		sub:   sub,
		state: app.Store.State(),
		input: input,
		spin:  spin,
	}, nil
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.spin.Tick, waitForState(m.sub))
}

// waitForState blocks on the subscription and resurfaces each state
// replacement as a message.
func waitForState(sub *store.Subscription[State]) tea.Cmd {
	return func() tea.Msg {
		state, ok := <-sub.States()
		if !ok {
			return stateStreamClosed{}
		}
		return stateMsg{state: state}
	}
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			m.sub.Unsubscribe()
			return m, tea.Quit
		case tea.KeyEnter:
			body := m.input.Value()
			m.input.SetValue("")
			if strings.TrimSpace(body) != "" {
				m.app.SendMessage(body)
			}
			return m, nil
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		vpHeight := m.height - 5 // header, status, input, padding
		if vpHeight < 1 {
			vpHeight = 1
		}
		if !m.ready {
			m.viewport = viewport.New(m.width, vpHeight)
			m.ready = true
		} else {
			m.viewport.Width = m.width
			m.viewport.Height = vpHeight
		}
		m.viewport.SetContent(m.renderTranscript())
		m.viewport.GotoBottom()

	case stateMsg:
		m.state = msg.state
		if m.ready {
			m.viewport.SetContent(m.renderTranscript())
			m.viewport.GotoBottom()
		}
		return m, waitForState(m.sub)

	case stateStreamClosed:
		return m, tea.Quit

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spin, cmd = m.spin.Update(msg)
		return m, cmd
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	cmds = append(cmds, cmd)

	m.viewport, cmd = m.viewport.Update(msg)
	cmds = append(cmds, cmd)

	return m, tea.Batch(cmds...)
}

// View implements tea.Model.
func (m Model) View() string {
	if !m.ready {
		return "starting..."
	}

	var b strings.Builder
	b.WriteString(headerStyle.Render("statekit chat"))
	b.WriteString("\n")
	b.WriteString(m.viewport.View())
	b.WriteString("\n")
	b.WriteString(m.statusLine())
	b.WriteString("\n")
	b.WriteString(m.input.View())
	b.WriteString("\n")
	b.WriteString(mutedStyle.Render("enter to send, esc to quit"))
	return b.String()
}

func (m Model) statusLine() string {
	if m.state.Err != "" {
		return errStyle.Render("error: " + m.state.Err)
	}
	switch m.state.Status {
	case StatusSending:
		return m.spin.View() + mutedStyle.Render(" sending...")
	case StatusTyping:
		return m.spin.View() + mutedStyle.Render(fmt.Sprintf(" %s is typing...", m.app.Config.BotName))
	default:
		return mutedStyle.Render(fmt.Sprintf("%d messages", len(m.state.Messages.IDs)))
	}
}

func (m Model) renderTranscript() string {
	transcript := Transcript(m.state)
	if len(transcript) == 0 {
		return mutedStyle.Render("No messages yet.")
	}

	var b strings.Builder
	for i, msg := range transcript {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString(m.renderMessage(msg))
	}
	return b.String()
}

func (m Model) renderMessage(msg Message) string {
	name := m.app.Config.UserName
	style := userStyle
	if msg.Author == AuthorBot {
		name = m.app.Config.BotName
		style = botStyle
	}

	line := fmt.Sprintf("%s %s  %s",
		mutedStyle.Render(msg.SentAt.Format("15:04:05")),
		style.Render(name+":"),
		msg.Body,
	)

	switch msg.Delivery {
	case DeliverySending:
		return line + mutedStyle.Render("  (sending)")
	case DeliveryFailed:
		return failedStyle.Render(line) + errStyle.Render("  (failed)")
	default:
		return line
	}
}

// Run starts the TUI event loop and blocks until the user quits.
func Run(app *App) error {
	model, err := NewModel(app)
	if err != nil {
		return err
	}

	program := tea.NewProgram(model, tea.WithAltScreen())
	if _, err := program.Run(); err != nil {
		return fmt.Errorf("chat UI failed: %w", err)
	}
	return nil
}
