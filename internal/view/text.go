package view

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/muesli/termenv"
)

var textColors = map[Class]lipgloss.Color{
	ClassBugCritical: "1",
	ClassBugFixed:    "2",
	ClassBug:         "6",
	ClassUnknown:     "1",
	ClassEqual:       "2",
	ClassBase:        "2",
	ClassChecked:     "3",
	ClassInTag:       "3",
	ClassDrop:        "5",
}

// TextViewer renders a table as aligned terminal text
type TextViewer struct {
	renderer *lipgloss.Renderer
	color    bool
}

// NewTextViewer creates a viewer writing to w, with ANSI colours when color
// is set
func NewTextViewer(w io.Writer, color bool) *TextViewer {
	r := lipgloss.NewRenderer(w)
	if color {
		r.SetColorProfile(termenv.ANSI)
	} else {
		r.SetColorProfile(termenv.Ascii)
	}
	return &TextViewer{renderer: r, color: color}
}

func (v *TextViewer) span(text string, class Class) string {
	c, ok := textColors[class]
	if !ok || !v.color || text == "" {
		return text
	}
	return v.renderer.NewStyle().Foreground(c).Render(text)
}

func (v *TextViewer) commit(ref CommitRef) string {
	out := v.span(ref.Hash, stateClass(ref.State))
	if ref.InTag != "" {
		out += v.span(" (in "+ref.InTag+")", ClassInTag)
	}
	return out
}

func (v *TextViewer) text(s string) string { return s }
func (v *TextViewer) splitter() string     { return "\n" }

// Render writes the table
func (v *TextViewer) Render(w io.Writer, t Table) error {
	s := v.String(t)
	if s == "" {
		return nil
	}
	if _, err := fmt.Fprintln(w, s); err != nil {
		return fmt.Errorf("failed to write table: %w", err)
	}
	return nil
}

// String renders the table without a trailing newline
func (v *TextViewer) String(t Table) string {
	if len(t.Rows) == 0 && len(t.Header) == 0 {
		return ""
	}

	cell := v.renderer.NewStyle().PaddingRight(1)
	tab := table.New().
		Border(lipgloss.HiddenBorder()).
		BorderStyle(v.renderer.NewStyle()).
		BorderTop(false).
		BorderBottom(false).
		BorderLeft(false).
		BorderRight(false).
		BorderHeader(false).
		BorderColumn(true).
		StyleFunc(func(row, col int) lipgloss.Style { return cell })
	if len(t.Header) > 0 {
		tab = tab.Headers(t.Header...)
	}
	tab = tab.Rows(renderRows(v, t.Rows)...)

	lines := strings.Split(tab.Render(), "\n")
	for i, l := range lines {
		lines[i] = strings.TrimRight(l, " ")
	}
	return strings.Join(lines, "\n")
}
