package frontend

import (
	"context"
	"io"
	"strings"
	"sync"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"linechat/internal/core"
)

// ── Styles ───────────────────────────────────────────────────────────

var (
	titleStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("230")).Background(lipgloss.Color("62")).Bold(true).Padding(0, 1)
	statusStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("252")).Background(lipgloss.Color("238")).Padding(0, 1)
	systemStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	ownStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("42")).Bold(true)
	peerStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("205")).Bold(true)
)

func renderMessage(m core.Message) string {
	label := Label(m)
	switch m.Kind {
	case core.Own:
		return ownStyle.Render(label) + " " + m.Text
	case core.Peer:
		return peerStyle.Render(label) + " " + m.Text
	default:
		return systemStyle.Render(label + " " + m.Text)
	}
}

// ── Messages ─────────────────────────────────────────────────────────

type messageMsg core.Message

type statusMsg string

type dispatchedMsg struct{ quit bool }

// ── TUI ──────────────────────────────────────────────────────────────

// TUI is a full-screen frontend: a scrolling transcript, an input line
// and a status bar.  Notifications that arrive before Run starts are
// held and replayed into the transcript.
type TUI struct {
	title string
	in    io.Reader
	out   io.Writer

	mu      sync.Mutex
	prog    *tea.Program
	pending []tea.Msg
}

// NewTUI returns a TUI titled title.  A nil in or out uses the
// terminal.
func NewTUI(title string, in io.Reader, out io.Writer) *TUI {
	return &TUI{title: title, in: in, out: out}
}

// DisplayMessage appends m to the transcript.
func (t *TUI) DisplayMessage(m core.Message) { t.send(messageMsg(m)) }

// SetStatus replaces the status bar text.
func (t *TUI) SetStatus(status string) { t.send(statusMsg(status)) }

func (t *TUI) send(msg tea.Msg) {
	t.mu.Lock()
	p := t.prog
	if p == nil {
		t.pending = append(t.pending, msg)
		t.mu.Unlock()
		return
	}
	t.mu.Unlock()
	p.Send(msg)
}

// Run owns the terminal until the user quits or ctx is cancelled.  The
// screen stays up after the chat session ends so the user can read the
// final notices.
func (t *TUI) Run(ctx context.Context, client *core.Client) error {
	opts := []tea.ProgramOption{tea.WithContext(ctx), tea.WithAltScreen()}
	if t.in != nil {
		opts = append(opts, tea.WithInput(t.in))
	}
	if t.out != nil {
		opts = append(opts, tea.WithOutput(t.out))
	}

	t.mu.Lock()
	m := newChatModel(client, t, t.title)
	for _, msg := range t.pending {
		m = m.apply(msg)
	}
	t.pending = nil
	p := tea.NewProgram(m, opts...)
	t.prog = p
	t.mu.Unlock()

	_, err := p.Run()

	t.mu.Lock()
	t.prog = nil
	t.mu.Unlock()

	if err != nil && ctx.Err() != nil {
		return nil
	}
	return err
}

// ── Model ────────────────────────────────────────────────────────────

type chatModel struct {
	client   *core.Client
	notifier core.Notifier
	title    string

	viewport viewport.Model
	input    textinput.Model
	lines    []string
	status   string
	width    int
}

func newChatModel(client *core.Client, n core.Notifier, title string) chatModel {
	in := textinput.New()
	in.Placeholder = "message or /help"
	in.Prompt = "> "
	in.CharLimit = 0
	in.Focus()

	return chatModel{
		client:   client,
		notifier: n,
		title:    title,
		viewport: viewport.New(80, 20),
		input:    in,
		status:   "Starting",
		width:    80,
	}
}

func (m chatModel) Init() tea.Cmd {
	return textinput.Blink
}

func (m chatModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.viewport.Width = msg.Width
		m.viewport.Height = max(1, msg.Height-3)
		m.input.Width = max(1, msg.Width-len(m.input.Prompt)-1)
		m.refresh()
		return m, nil

	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			return m, tea.Quit
		case tea.KeyEnter:
			text := m.input.Value()
			m.input.Reset()
			if strings.TrimSpace(text) == "" {
				return m, nil
			}
			return m, m.dispatch(ParseIntent(text))
		case tea.KeyPgUp, tea.KeyPgDown:
			var cmd tea.Cmd
			m.viewport, cmd = m.viewport.Update(msg)
			return m, cmd
		}
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		return m, cmd

	case dispatchedMsg:
		if msg.quit {
			return m, tea.Quit
		}
		return m, nil

	case messageMsg, statusMsg:
		return m.apply(msg), nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// apply folds a notification into the model.
func (m chatModel) apply(msg tea.Msg) chatModel {
	switch msg := msg.(type) {
	case messageMsg:
		m.lines = append(m.lines, renderMessage(core.Message(msg)))
		m.refresh()
	case statusMsg:
		m.status = string(msg)
	}
	return m
}

func (m *chatModel) refresh() {
	m.viewport.SetContent(strings.Join(m.lines, "\n"))
	m.viewport.GotoBottom()
}

// dispatch runs the intent off the update loop: client calls notify
// through Program.Send, which would block inside Update.
func (m chatModel) dispatch(in Intent) tea.Cmd {
	client, n := m.client, m.notifier
	return func() tea.Msg {
		return dispatchedMsg{quit: Dispatch(client, n, in)}
	}
}

func (m chatModel) View() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render(m.title))
	b.WriteString("\n")
	b.WriteString(m.viewport.View())
	b.WriteString("\n")
	b.WriteString(statusStyle.Width(m.width).Render(m.status))
	b.WriteString("\n")
	b.WriteString(m.input.View())
	return b.String()
}
