// Package output renders command results as styled text, JSON or YAML.
package output

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"
	"github.com/jedib0t/go-pretty/v6/table"
	"gopkg.in/yaml.v3"
)

// Mode selects how structured results are written.
type Mode string

// Output modes.
const (
	ModeText Mode = "text"
	ModeJSON Mode = "json"
	ModeYAML Mode = "yaml"
)

// Styles holds the lipgloss styles used in text mode.
type Styles struct {
	Header  lipgloss.Style
	Muted   lipgloss.Style
	Error   lipgloss.Style
	Success lipgloss.Style
}

func newStyles(r *lipgloss.Renderer) Styles {
	return Styles{
		Header:  r.NewStyle().Bold(true).Foreground(lipgloss.Color("12")),
		Muted:   r.NewStyle().Foreground(lipgloss.Color("8")),
		Error:   r.NewStyle().Bold(true).Foreground(lipgloss.Color("9")),
		Success: r.NewStyle().Foreground(lipgloss.Color("10")),
	}
}

// Renderer writes command output. Styling is dropped when the writer is not a terminal.
type Renderer struct {
	out    io.Writer
	errOut io.Writer
	mode   Mode
	styles Styles
}

// NewRenderer returns a renderer writing results to out and diagnostics to errOut.
// Unknown modes render as text.
func NewRenderer(out, errOut io.Writer, mode Mode) *Renderer {
	switch mode {
	case ModeJSON, ModeYAML:
	default:
		mode = ModeText
	}
	return &Renderer{
		out:    out,
		errOut: errOut,
		mode:   mode,
		styles: newStyles(lipgloss.NewRenderer(out)),
	}
}

// Mode returns the output mode.
func (r *Renderer) Mode() Mode { return r.mode }

// Writer returns the result writer.
func (r *Renderer) Writer() io.Writer { return r.out }

// Styles returns the text styles.
func (r *Renderer) Styles() Styles { return r.styles }

// Structured reports whether results should be encoded rather than printed.
func (r *Renderer) Structured() bool { return r.mode != ModeText }

// Header prints a section title.
func (r *Renderer) Header(title string) {
	_, _ = fmt.Fprintln(r.out, r.styles.Header.Render(title))
}

// Println prints a plain line.
func (r *Renderer) Println(a ...any) {
	_, _ = fmt.Fprintln(r.out, a...)
}

// Printf prints formatted text.
func (r *Renderer) Printf(format string, a ...any) {
	_, _ = fmt.Fprintf(r.out, format, a...)
}

// Muted prints a dimmed line.
func (r *Renderer) Muted(format string, a ...any) {
	_, _ = fmt.Fprintln(r.out, r.styles.Muted.Render(fmt.Sprintf(format, a...)))
}

// Success prints a confirmation line.
func (r *Renderer) Success(format string, a ...any) {
	_, _ = fmt.Fprintln(r.out, r.styles.Success.Render(fmt.Sprintf(format, a...)))
}

// Error prints err on the diagnostics writer.
func (r *Renderer) Error(err error) {
	_, _ = fmt.Fprintln(r.errOut, r.styles.Error.Render("Error:"), err)
}

// Table renders rows under headers as a box-drawn table.
func (r *Renderer) Table(headers []string, rows [][]string) {
	t := table.NewWriter()
	t.SetOutputMirror(r.out)
	t.SetStyle(table.StyleLight)

	header := make(table.Row, len(headers))
	for i, h := range headers {
		header[i] = h
	}
	t.AppendHeader(header)
	for _, row := range rows {
		cells := make(table.Row, len(row))
		for i, c := range row {
			cells[i] = c
		}
		t.AppendRow(cells)
	}
	t.Render()
}

// Data encodes v as JSON or YAML according to the mode. In text mode it is an error to
// call Data.
func (r *Renderer) Data(v any) error {
	switch r.mode {
	case ModeJSON:
		enc := json.NewEncoder(r.out)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case ModeYAML:
		enc := yaml.NewEncoder(r.out)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	default:
		return fmt.Errorf("cannot encode data in %s mode", r.mode)
	}
}
