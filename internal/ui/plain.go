package ui

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/briany/genai-rag-chatbot/internal/answer"
	"github.com/briany/genai-rag-chatbot/internal/output"
)

// PlainChat is a line-mode chat for pipes, CI and dumb terminals.
type PlainChat struct {
	asker Asker
	in    io.Reader
	out   io.Writer
	w     *output.Writer
	mock  bool
	title string
}

// NewPlainChat creates a line-mode chat.
func NewPlainChat(asker Asker, cfg Config) *PlainChat {
	return &PlainChat{
		asker: asker,
		in:    cfg.Input,
		out:   cfg.Output,
		w:     output.New(cfg.Output),
		mock:  cfg.MockMode,
		title: cfg.Title,
	}
}

// Run implements Session. Each non-empty line is one question; EOF ends
// the session.
func (c *PlainChat) Run(ctx context.Context) error {
	_, _ = fmt.Fprintf(c.out, "%s (%s)\n", c.title, helpText)
	if c.mock {
		c.w.Warning("No LLM API key configured: answers are generated in mock mode.")
	}

	scanner := bufio.NewScanner(c.in)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for {
		if err := ctx.Err(); err != nil {
			return nil
		}
		_, _ = fmt.Fprint(c.out, "> ")
		if !scanner.Scan() {
			_, _ = fmt.Fprintln(c.out)
			return scanner.Err()
		}

		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		switch parseCommand(line) {
		case cmdQuit:
			return nil
		case cmdClear:
			continue
		case cmdHelp:
			c.w.Status("", helpText)
			continue
		}

		ans, err := c.asker.Ask(ctx, line)
		if err != nil {
			c.w.Error(err.Error())
			continue
		}
		c.printAnswer(ans.Text, ans.Sources)
	}
}

func (c *PlainChat) printAnswer(text string, sources []answer.Source) {
	c.w.Block(text)
	if len(sources) == 0 {
		return
	}
	_, _ = fmt.Fprintln(c.out, "Sources:")
	for i, src := range sources {
		_, _ = fmt.Fprintf(c.out, "  %s\n", formatSource(i+1, src))
	}
	c.w.Newline()
}

var _ Session = (*PlainChat)(nil)
