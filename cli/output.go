package cli

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"
)

// Printer writes styled human output, or JSON when JSON is set.
type Printer struct {
	out     io.Writer
	JSON    bool
	success lipgloss.Style
	warning lipgloss.Style
	key     lipgloss.Style
	value   lipgloss.Style
	path    lipgloss.Style
}

// NewPrinter creates a printer on out
func NewPrinter(out io.Writer, jsonOutput bool) *Printer {
	return &Printer{
		out:     out,
		JSON:    jsonOutput,
		success: lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Bold(true),
		warning: lipgloss.NewStyle().Foreground(lipgloss.Color("11")),
		key:     lipgloss.NewStyle().Foreground(lipgloss.Color("8")),
		value:   lipgloss.NewStyle().Foreground(lipgloss.Color("14")).Bold(true),
		path:    lipgloss.NewStyle().Foreground(lipgloss.Color("6")).Italic(true),
	}
}

// Success prints a message with a checkmark
func (p *Printer) Success(message string) {
	fmt.Fprintf(p.out, "%s %s\n", p.success.Render("✓"), p.success.Render(message))
}

// Warn prints a warning
func (p *Printer) Warn(message string) {
	fmt.Fprintf(p.out, "%s %s\n", p.warning.Render("⚠"), p.warning.Render(message))
}

// Field prints a key-value pair
func (p *Printer) Field(key string, value interface{}) {
	fmt.Fprintf(p.out, "%s: %s\n", p.key.Render(key), p.value.Render(fmt.Sprint(value)))
}

// Path prints a labelled file path
func (p *Printer) Path(label, path string) {
	fmt.Fprintf(p.out, "%s: %s\n", p.key.Render(label), p.path.Render(path))
}

// Encode writes v as indented JSON
func (p *Printer) Encode(v interface{}) error {
	enc := json.NewEncoder(p.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
