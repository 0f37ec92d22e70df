// Package output renders command results in one of several modes: styled
// text for terminals, markdown for pipes and scripts, or JSON for machine
// consumers. Mode auto picks text on a TTY and markdown otherwise.
package output

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/jedib0t/go-pretty/v6/table"
	"golang.org/x/term"
)

// Mode selects an output format.
type Mode string

const (
	ModeAuto     Mode = "auto"
	ModeText     Mode = "text"
	ModeMarkdown Mode = "markdown"
	ModeJSON     Mode = "json"
)

var (
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("2")).Bold(true)
	warningStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("3"))
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("1")).Bold(true)
	mutedStyle   = lipgloss.NewStyle().Faint(true)
	headerStyle  = lipgloss.NewStyle().Bold(true)
)

// Renderer writes formatted command output.
type Renderer struct {
	out  io.Writer
	errW io.Writer
	mode Mode
}

// NewRenderer creates a Renderer. ModeAuto resolves at construction time.
func NewRenderer(out, errW io.Writer, mode Mode) *Renderer {
	if mode == "" || mode == ModeAuto {
		mode = detectMode(out)
	}
	return &Renderer{out: out, errW: errW, mode: mode}
}

func detectMode(out io.Writer) Mode {
	if f, ok := out.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		return ModeText
	}
	return ModeMarkdown
}

// EffectiveMode returns the resolved mode.
func (r *Renderer) EffectiveMode() Mode {
	return r.mode
}

// Println writes a plain line.
func (r *Renderer) Println(s string) {
	_, _ = fmt.Fprintln(r.out, s)
}

// Printf writes a plain formatted line.
func (r *Renderer) Printf(format string, args ...any) {
	_, _ = fmt.Fprintf(r.out, format, args...)
}

// Header writes a section heading. level follows markdown semantics.
func (r *Renderer) Header(level int, text string) {
	switch r.mode {
	case ModeMarkdown:
		_, _ = fmt.Fprintf(r.out, "%s %s\n", strings.Repeat("#", level), text)
	default:
		_, _ = fmt.Fprintln(r.out, headerStyle.Render(text))
	}
}

// Success writes a completion line.
func (r *Renderer) Success(s string) {
	switch r.mode {
	case ModeMarkdown:
		_, _ = fmt.Fprintf(r.out, "**%s**\n", s)
	default:
		_, _ = fmt.Fprintln(r.out, successStyle.Render("✓ ")+s)
	}
}

// Warning writes a non-fatal diagnostic to the error stream.
func (r *Renderer) Warning(s string) {
	switch r.mode {
	case ModeMarkdown:
		_, _ = fmt.Fprintf(r.errW, "> warning: %s\n", s)
	default:
		_, _ = fmt.Fprintln(r.errW, warningStyle.Render("! "+s))
	}
}

// Error writes a failure line to the error stream.
func (r *Renderer) Error(s string) {
	switch r.mode {
	case ModeMarkdown:
		_, _ = fmt.Fprintf(r.errW, "> error: %s\n", s)
	default:
		_, _ = fmt.Fprintln(r.errW, errorStyle.Render("✗ "+s))
	}
}

// Muted writes a low-emphasis line.
func (r *Renderer) Muted(s string) {
	switch r.mode {
	case ModeMarkdown:
		_, _ = fmt.Fprintf(r.out, "_%s_\n", s)
	default:
		_, _ = fmt.Fprintln(r.out, mutedStyle.Render(s))
	}
}

// StatusLine writes one step-boundary line: a name, its outcome, and an
// optional detail.
func (r *Renderer) StatusLine(name, status, detail string) {
	suffix := ""
	if detail != "" {
		suffix = " (" + detail + ")"
	}
	switch r.mode {
	case ModeMarkdown:
		_, _ = fmt.Fprintf(r.out, "- %s: %s%s\n", name, status, suffix)
	default:
		mark := successStyle.Render("✓")
		if status != "ok" && status != "success" {
			mark = mutedStyle.Render("-")
		}
		_, _ = fmt.Fprintf(r.out, "  %s %-12s %s%s\n", mark, name, status, suffix)
	}
}

// JSON marshals v to the output stream, regardless of mode.
func (r *Renderer) JSON(v any) error {
	enc := json.NewEncoder(r.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// Table renders a header and rows, as a markdown table in markdown mode and
// a bordered table otherwise.
func (r *Renderer) Table(header []string, rows [][]string) {
	tw := table.NewWriter()
	tw.SetOutputMirror(r.out)

	h := make(table.Row, len(header))
	for i, c := range header {
		h[i] = c
	}
	tw.AppendHeader(h)

	for _, row := range rows {
		tr := make(table.Row, len(row))
		for i, c := range row {
			tr[i] = c
		}
		tw.AppendRow(tr)
	}

	if r.mode == ModeMarkdown {
		tw.RenderMarkdown()
		return
	}
	tw.SetStyle(table.StyleLight)
	tw.Render()
}
