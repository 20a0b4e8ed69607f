package ui

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/briany/genai-rag-chatbot/internal/answer"
)

const (
	// maxSourcePreview bounds each source excerpt in the transcript.
	maxSourcePreview = 160

	chromeHeight = 6
)

// TUIChat runs the chat as a full-screen bubbletea program.
type TUIChat struct {
	cfg   Config
	model *chatModel
}

// NewTUIChat creates a TUI chat. It fails when output is not a terminal.
func NewTUIChat(asker Asker, cfg Config) (*TUIChat, error) {
	if !IsTTY(cfg.Output) {
		return nil, fmt.Errorf("output is not a TTY")
	}
	model := newChatModel(context.Background(), asker, cfg)
	if cfg.NoColor || DetectNoColor() {
		model.styles = NoColorStyles()
	}
	return &TUIChat{cfg: cfg, model: model}, nil
}

// Run implements Session.
func (c *TUIChat) Run(ctx context.Context) error {
	c.model.ctx = ctx

	opts := []tea.ProgramOption{tea.WithAltScreen(), tea.WithContext(ctx)}
	if f, ok := c.cfg.Output.(*os.File); ok {
		opts = append(opts, tea.WithOutput(f))
	}
	if c.cfg.Input != nil {
		opts = append(opts, tea.WithInput(c.cfg.Input))
	}

	_, err := tea.NewProgram(c.model, opts...).Run()
	if errors.Is(err, tea.ErrProgramKilled) || errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

type role int

const (
	roleUser role = iota
	roleAssistant
	roleError
	roleNotice
)

type turn struct {
	role    role
	text    string
	sources []answer.Source
}

// answerMsg carries a finished Ask call back into the update loop.
type answerMsg struct {
	answer  answer.Answer
	err     error
	elapsed time.Duration
}

// chatModel is the bubbletea model for the chat screen.
type chatModel struct {
	ctx      context.Context
	asker    Asker
	title    string
	turns    []turn
	input    textinput.Model
	viewport viewport.Model
	spinner  spinner.Model
	styles   Styles
	width    int
	height   int
	waiting  bool
	quitting bool
	lastTook time.Duration
}

func newChatModel(ctx context.Context, asker Asker, cfg Config) *chatModel {
	ti := textinput.New()
	ti.Placeholder = "Ask about your documents..."
	ti.Prompt = "> "
	ti.CharLimit = 2000
	ti.Width = 70
	ti.Focus()

	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color(ColorLime))

	m := &chatModel{
		ctx:      ctx,
		asker:    asker,
		title:    cfg.Title,
		input:    ti,
		viewport: viewport.New(80, 24-chromeHeight),
		spinner:  s,
		styles:   DefaultStyles(),
		width:    80,
		height:   24,
	}
	if cfg.MockMode {
		m.turns = append(m.turns, turn{role: roleNotice, text: "No LLM API key configured: answers are generated in mock mode."})
	}
	m.refresh()
	return m
}

// Init implements tea.Model.
func (m *chatModel) Init() tea.Cmd {
	return textinput.Blink
}

// Update implements tea.Model.
func (m *chatModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			m.quitting = true
			return m, tea.Quit
		case tea.KeyEnter:
			return m.submit()
		case tea.KeyPgUp, tea.KeyPgDown:
			var cmd tea.Cmd
			m.viewport, cmd = m.viewport.Update(msg)
			return m, cmd
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.viewport.Width = msg.Width
		m.viewport.Height = max(msg.Height-chromeHeight, 3)
		m.input.Width = max(msg.Width-4, 10)
		m.refresh()
		return m, nil

	case answerMsg:
		m.waiting = false
		m.lastTook = msg.elapsed
		if msg.err != nil {
			m.turns = append(m.turns, turn{role: roleError, text: msg.err.Error()})
		} else {
			m.turns = append(m.turns, turn{role: roleAssistant, text: msg.answer.Text, sources: msg.answer.Sources})
		}
		m.refresh()
		return m, nil

	case spinner.TickMsg:
		if !m.waiting {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// submit handles Enter. Input is ignored while an answer is pending.
func (m *chatModel) submit() (tea.Model, tea.Cmd) {
	line := strings.TrimSpace(m.input.Value())
	if line == "" || m.waiting {
		return m, nil
	}
	m.input.Reset()

	switch parseCommand(line) {
	case cmdQuit:
		m.quitting = true
		return m, tea.Quit
	case cmdClear:
		m.turns = nil
		m.refresh()
		return m, nil
	case cmdHelp:
		m.turns = append(m.turns, turn{role: roleNotice, text: helpText})
		m.refresh()
		return m, nil
	}

	m.turns = append(m.turns, turn{role: roleUser, text: line})
	m.waiting = true
	m.refresh()
	return m, tea.Batch(m.askCmd(line), m.spinner.Tick)
}

func (m *chatModel) askCmd(question string) tea.Cmd {
	ctx, asker := m.ctx, m.asker
	return func() tea.Msg {
		start := time.Now()
		ans, err := asker.Ask(ctx, question)
		return answerMsg{answer: ans, err: err, elapsed: time.Since(start)}
	}
}

func (m *chatModel) refresh() {
	m.viewport.SetContent(m.renderTranscript(max(m.width-2, 20)))
	m.viewport.GotoBottom()
}

// View implements tea.Model.
func (m *chatModel) View() string {
	if m.quitting {
		return "Bye.\n"
	}

	var sb strings.Builder
	sb.WriteString(m.styles.Header.Render(m.title))
	sb.WriteString("\n")
	sb.WriteString(m.styles.Border.Render(strings.Repeat("─", max(m.width, 20))))
	sb.WriteString("\n")
	sb.WriteString(m.viewport.View())
	sb.WriteString("\n")
	sb.WriteString(m.renderStatusBar())
	sb.WriteString("\n")
	sb.WriteString(m.input.View())
	return sb.String()
}

func (m *chatModel) renderTranscript(width int) string {
	if len(m.turns) == 0 {
		return m.styles.Dim.Render(helpText)
	}

	wrap := lipgloss.NewStyle().Width(width)
	blocks := make([]string, 0, len(m.turns))
	for _, t := range m.turns {
		switch t.role {
		case roleUser:
			blocks = append(blocks, m.styles.User.Render("You: ")+wrap.Render(t.text))
		case roleAssistant:
			var sb strings.Builder
			sb.WriteString(m.styles.Assistant.Render("Assistant:"))
			sb.WriteString("\n")
			sb.WriteString(wrap.Render(t.text))
			for i, src := range t.sources {
				sb.WriteString("\n")
				sb.WriteString(m.styles.Source.Render(formatSource(i+1, src)))
			}
			blocks = append(blocks, sb.String())
		case roleError:
			blocks = append(blocks, m.styles.Error.Render("✗ "+t.text))
		case roleNotice:
			blocks = append(blocks, m.styles.Warning.Render(t.text))
		}
	}
	return strings.Join(blocks, "\n\n")
}

func (m *chatModel) renderStatusBar() string {
	if m.waiting {
		return m.spinner.View() + " " + m.styles.Dim.Render("Searching documents...")
	}
	parts := []string{"enter to send", "/help", "esc to quit"}
	if m.lastTook > 0 {
		parts = append([]string{"answered in " + formatDuration(m.lastTook)}, parts...)
	}
	return m.styles.Dim.Render(strings.Join(parts, "  │  "))
}

// formatSource renders one source line, e.g. "[1] rag.txt (0.82): text...".
func formatSource(n int, src answer.Source) string {
	text := strings.Join(strings.Fields(src.ChunkText), " ")
	if r := []rune(text); len(r) > maxSourcePreview {
		text = string(r[:maxSourcePreview]) + "..."
	}
	return fmt.Sprintf("[%d] %s (%.2f): %s", n, src.DocumentName, src.Score, text)
}

// formatDuration formats a duration in a human-friendly way.
func formatDuration(d time.Duration) string {
	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
	if d < time.Minute {
		return fmt.Sprintf("%.1fs", d.Seconds())
	}
	d = d.Round(time.Second)
	return fmt.Sprintf("%dm %ds", int(d.Minutes()), int(d.Seconds())%60)
}

var _ Session = (*TUIChat)(nil)
