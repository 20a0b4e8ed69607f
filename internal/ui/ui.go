// Package ui provides the interactive chat front end: a bubbletea TUI for
// terminals and a line-mode fallback for pipes and CI.
package ui

import (
	"context"
	"io"
	"os"
	"strings"

	"github.com/mattn/go-isatty"

	"github.com/briany/genai-rag-chatbot/internal/answer"
)

// Asker answers a question from the ingested documents.
type Asker interface {
	Ask(ctx context.Context, question string) (answer.Answer, error)
}

// Session is one interactive chat.
type Session interface {
	// Run blocks until the user quits, input ends or ctx is cancelled.
	Run(ctx context.Context) error
}

// Config configures a chat session.
type Config struct {
	Input      io.Reader
	Output     io.Writer
	ForcePlain bool
	NoColor    bool
	// MockMode shows a notice that answers are produced without a model.
	MockMode bool
	Title    string
}

// ConfigOption is a function that modifies Config.
type ConfigOption func(*Config)

// WithForcePlain forces line-mode chat.
func WithForcePlain(force bool) ConfigOption {
	return func(c *Config) {
		c.ForcePlain = force
	}
}

func WithNoColor(noColor bool) ConfigOption {
	return func(c *Config) {
		c.NoColor = noColor
	}
}

func WithMockMode(mock bool) ConfigOption {
	return func(c *Config) {
		c.MockMode = mock
	}
}

// NewConfig creates a Config reading from in and writing to out.
func NewConfig(in io.Reader, out io.Writer, opts ...ConfigOption) Config {
	cfg := Config{
		Input:  in,
		Output: out,
		Title:  "RAG Chat",
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg
}

// NewSession picks the TUI for interactive terminals and line mode
// everywhere else.
func NewSession(asker Asker, cfg Config) Session {
	if cfg.ForcePlain || DetectCI() || !IsTTY(cfg.Output) || !isTerminalReader(cfg.Input) {
		return NewPlainChat(asker, cfg)
	}
	tui, err := NewTUIChat(asker, cfg)
	if err != nil {
		return NewPlainChat(asker, cfg)
	}
	return tui
}

// IsTTY checks if output is a terminal.
func IsTTY(w io.Writer) bool {
	if w == nil {
		return false
	}
	if f, ok := w.(*os.File); ok {
		return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
	}
	return false
}

func isTerminalReader(r io.Reader) bool {
	if f, ok := r.(*os.File); ok {
		return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
	}
	return false
}

// DetectNoColor checks if NO_COLOR environment variable is set.
func DetectNoColor() bool {
	_, exists := os.LookupEnv("NO_COLOR")
	return exists
}

// DetectCI checks if running in a CI environment.
func DetectCI() bool {
	ciVars := []string{"CI", "GITHUB_ACTIONS", "GITLAB_CI", "JENKINS_URL", "TRAVIS"}
	for _, v := range ciVars {
		if _, exists := os.LookupEnv(v); exists {
			return true
		}
	}
	return false
}

// command classifies chat input lines that are not questions.
type command int

const (
	cmdNone command = iota
	cmdQuit
	cmdClear
	cmdHelp
)

const helpText = "Type a question and press Enter. Commands: /clear, /help, /quit"

func parseCommand(line string) command {
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "/quit", "/exit", "quit", "exit":
		return cmdQuit
	case "/clear":
		return cmdClear
	case "/help", "?":
		return cmdHelp
	default:
		return cmdNone
	}
}
