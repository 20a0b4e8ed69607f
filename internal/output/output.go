// Package output formats ragchat CLI messages: icon-prefixed status lines,
// aligned tables and indented blocks.
package output

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
)

// Writer prints CLI output. Write errors are ignored; the terminal is the
// only consumer.
type Writer struct {
	out io.Writer
}

// New creates a Writer over out.
func New(out io.Writer) *Writer {
	return &Writer{out: out}
}

// Status prints msg prefixed by icon, or indented when icon is empty.
func (w *Writer) Status(icon, msg string) {
	if icon != "" {
		_, _ = fmt.Fprintf(w.out, "%s %s\n", icon, msg)
	} else {
		_, _ = fmt.Fprintf(w.out, "   %s\n", msg)
	}
}

func (w *Writer) Statusf(icon, format string, args ...any) {
	w.Status(icon, fmt.Sprintf(format, args...))
}

func (w *Writer) Success(msg string) { w.Status("✅", msg) }

func (w *Writer) Successf(format string, args ...any) {
	w.Success(fmt.Sprintf(format, args...))
}

func (w *Writer) Warning(msg string) { w.Status("⚠️ ", msg) }

func (w *Writer) Warningf(format string, args ...any) {
	w.Warning(fmt.Sprintf(format, args...))
}

func (w *Writer) Error(msg string) { w.Status("❌", msg) }

func (w *Writer) Errorf(format string, args ...any) {
	w.Error(fmt.Sprintf(format, args...))
}

// Block prints text indented by two spaces between blank lines.
func (w *Writer) Block(text string) {
	_, _ = fmt.Fprintln(w.out)
	for _, line := range strings.Split(text, "\n") {
		_, _ = fmt.Fprintf(w.out, "  %s\n", line)
	}
	_, _ = fmt.Fprintln(w.out)
}

// Table prints rows aligned under headers.
func (w *Writer) Table(headers []string, rows [][]string) {
	tw := tabwriter.NewWriter(w.out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, strings.Join(headers, "\t"))
	for _, row := range rows {
		_, _ = fmt.Fprintln(tw, strings.Join(row, "\t"))
	}
	_ = tw.Flush()
}

func (w *Writer) Newline() {
	_, _ = fmt.Fprintln(w.out)
}
