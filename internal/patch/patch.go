// Package patch turns raw commit patches into a canonical text form so that
// two rebased copies of the same change compare equal as plain strings.
//
// The normalization is a heuristic: it hides hashes, dates, index lines and
// hunk positions, it does not prove that two patches are semantically equal.
package patch

import (
	"errors"
	"regexp"
	"strings"

	"github.com/ianbruene/go-difflib/difflib"
)

type substitution struct {
	re   *regexp.Regexp
	repl string
}

var numberSubstitutions = []substitution{
	{regexp.MustCompile(`\AFrom .*`), "From <from line>"},
	{regexp.MustCompile(`(?m)^index .*`), "index <some index>"},
	{regexp.MustCompile(`(?m)^commit .*`), "commit <some commit>"},
	{regexp.MustCompile(`(?m)^Date:.*00`), "Date: <some date>"},
	{regexp.MustCompile(`(?m)^@@ .* @@`), "@@ <some lines> @@"},
}

var blankLineSubstitutions = []substitution{
	{regexp.MustCompile(`(?m)^\+\n`), ""},
	{regexp.MustCompile(`(?m)^-\n`), ""},
}

// ErrUnparseableEdit is returned when an edited normalized patch can not be
// mapped back onto the original patch.
var ErrUnparseableEdit = errors.New("unparseable changes in patch")

// Normalize replaces the volatile parts of a patch with fixed placeholders.
// With ignoreBlankLineHunks, lines adding or removing a bare empty line are
// dropped as well.
func Normalize(raw string, ignoreBlankLineHunks bool) string {
	out := raw
	for _, s := range numberSubstitutions {
		out = s.re.ReplaceAllLiteralString(out, s.repl)
	}

	if ignoreBlankLineHunks {
		for _, s := range blankLineSubstitutions {
			out = s.re.ReplaceAllLiteralString(out, s.repl)
		}
	}

	return out
}

func textToLines(text string) []string {
	if text == "" {
		return nil
	}
	text = strings.TrimSuffix(text, "\n")
	return strings.Split(text, "\n")
}

// RestoreEdited rebuilds the patch a user meant when editing the normalized
// form of it. origFiltered must be Normalize(orig, false); every placeholder
// line of the original must survive the edit, in order, and is expanded back
// to the original text.
func RestoreEdited(orig, origFiltered, editedFiltered string) (string, error) {
	origLines := textToLines(orig)
	filteredLines := textToLines(origFiltered)
	editedLines := textToLines(editedFiltered)

	if len(origLines) != len(filteredLines) {
		return "", ErrUnparseableEdit
	}

	var replaced []int
	for i := range origLines {
		if origLines[i] != filteredLines[i] {
			replaced = append(replaced, i)
		}
	}

	next := 0
	restored := make([]string, 0, len(editedLines))
	for _, line := range editedLines {
		if next < len(replaced) && line == filteredLines[replaced[next]] {
			restored = append(restored, origLines[replaced[next]])
			next++
			continue
		}
		restored = append(restored, line)
	}

	if next != len(replaced) {
		return "", ErrUnparseableEdit
	}

	return strings.Join(restored, "\n") + "\n", nil
}

// UnifiedDiff renders a unified diff between two normalized patches
func UnifiedDiff(a, b, nameA, nameB string) (string, error) {
	params := difflib.LineDiffParams{
		A:        difflib.SplitLines(a),
		B:        difflib.SplitLines(b),
		FromFile: nameA,
		ToFile:   nameB,
		Context:  3,
	}
	return difflib.GetUnifiedDiffString(params)
}
