package view

import (
	"fmt"
	"html"
	"io"
	"strings"
)

var htmlColors = map[Class]string{
	ClassBugCritical: "red",
	ClassBugFixed:    "green",
	ClassBug:         "DarkCyan",
	ClassUnknown:     "red",
	ClassEqual:       "green",
	ClassBase:        "green",
	ClassChecked:     "orange",
	ClassInTag:       "orange",
	ClassDrop:        "magenta",
}

// HTMLViewer renders a table as an HTML <table>
type HTMLViewer struct {
	commitURL string
}

// NewHTMLViewer creates a viewer linking hashes to commitURL. A "{hash}"
// placeholder is replaced by the hash, otherwise the hash is appended. An
// empty template disables links.
func NewHTMLViewer(commitURL string) *HTMLViewer {
	return &HTMLViewer{commitURL: commitURL}
}

func colorAttr(class Class) string {
	if c, ok := htmlColors[class]; ok {
		return fmt.Sprintf(` style="color: %s"`, c)
	}
	return ""
}

func (v *HTMLViewer) span(text string, class Class) string {
	return "<span" + colorAttr(class) + ">" + html.EscapeString(text) + "</span>"
}

func (v *HTMLViewer) commitLink(hash string) string {
	if strings.Contains(v.commitURL, "{hash}") {
		return strings.ReplaceAll(v.commitURL, "{hash}", hash)
	}
	return v.commitURL + hash
}

func (v *HTMLViewer) commit(ref CommitRef) string {
	var out string
	if v.commitURL == "" {
		out = v.span(ref.Hash, stateClass(ref.State))
	} else {
		out = fmt.Sprintf(`<a href="%s"%s>%s</a>`, html.EscapeString(v.commitLink(ref.Hash)),
			colorAttr(stateClass(ref.State)), html.EscapeString(ref.Hash))
	}
	if ref.InTag != "" {
		out += v.span(" (in "+ref.InTag+")", ClassInTag)
	}
	return out
}

func (v *HTMLViewer) text(s string) string {
	return strings.ReplaceAll(html.EscapeString(s), "\n", "<br>")
}

func (v *HTMLViewer) splitter() string { return "" }

// String renders the table
func (v *HTMLViewer) String(t Table) string {
	var sb strings.Builder
	sb.WriteString("<table>")

	var rows []string
	if len(t.Header) > 0 {
		var hdr strings.Builder
		hdr.WriteString("<tr>")
		for _, h := range t.Header {
			hdr.WriteString("<th>" + html.EscapeString(h) + "</th>")
		}
		hdr.WriteString("</tr>")
		rows = append(rows, hdr.String())
	}
	for _, row := range renderRows(v, t.Rows) {
		var tr strings.Builder
		tr.WriteString("<tr>")
		for _, c := range row {
			tr.WriteString("<td>" + c + "</td>")
		}
		tr.WriteString("</tr>")
		rows = append(rows, tr.String())
	}

	sb.WriteString(strings.Join(rows, "\n"))
	sb.WriteString("</table>")
	return sb.String()
}

// Render writes the table followed by a newline
func (v *HTMLViewer) Render(w io.Writer, t Table) error {
	if _, err := fmt.Fprintln(w, v.String(t)); err != nil {
		return fmt.Errorf("failed to write table: %w", err)
	}
	return nil
}

// Viewer is implemented by TextViewer and HTMLViewer
type Viewer interface {
	Render(w io.Writer, t Table) error
	String(t Table) string
}
