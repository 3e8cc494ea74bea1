package meta

import (
	"fmt"
	"os"
	"slices"
	"strings"

	"github.com/stwalsh4118/git-check-rebase/internal/subject"
)

// UpdateMeta sets the comment of subject and, when pair is non-nil, records
// a new confirmed pair. Existing pairs are kept. The file is rewritten only
// when something changed.
func (s *Store) UpdateMeta(subj, comment string, pair *Pair) error {
	comment = normalizeComment(comment)

	cm, ok := s.Lookup(subj)
	if !ok {
		if comment == "" && pair == nil {
			return nil
		}
		cm = &CommitMeta{Subject: subj}
		s.byKey[subject.Key(subj, nil)] = cm
	}

	if comment == cm.Comment && pair == nil {
		return nil
	}

	cm.Comment = comment
	if pair != nil {
		cm.Checked = append(cm.Checked, *pair)
	}

	if s.path == "" {
		return nil
	}

	data, err := os.ReadFile(s.path)
	if err != nil {
		return fmt.Errorf("failed to read meta file: %w", err)
	}

	updated := setComment(string(data), cm.Subject, comment, pair)
	if err := writeAtomic(s.path, updated); err != nil {
		return fmt.Errorf("failed to update meta file: %w", err)
	}

	s.logger.Info("updated meta", "subject", cm.Subject, "with_pair", pair != nil)
	return nil
}

// normalizeComment drops blank lines and trailing whitespace, which the
// parser would not read back
func normalizeComment(comment string) string {
	var lines []string
	for _, line := range strings.Split(comment, "\n") {
		line = strings.TrimRight(line, " \t\r")
		if line == "" {
			continue
		}
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n")
}

// isSubjectLine reports whether a trimmed line names a commit
func isSubjectLine(line string) bool {
	return line != "" && !strings.ContainsRune("# =", rune(line[0])) && !strings.HasSuffix(line, ":")
}

// setComment rewrites the block of subj: old comment lines are dropped, tag
// and ok: lines stay. The new comment goes right after the subject line and
// the new pair after the last kept line of the block. A missing subject gets
// a new block at the end.
func setComment(content, subj, comment string, pair *Pair) string {
	var head, tail []string
	if comment != "" {
		head = append(head, TextAddIndent(comment, 2)+"\n")
	}
	if pair != nil {
		tail = append(tail, fmt.Sprintf("  ok: %s %s\n", pair.First, pair.Second))
	}

	lines := strings.SplitAfter(content, "\n")
	if len(lines) > 0 && lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}

	var out []string
	current := ""
	// end is the position in out right after the block of subj, -1 until
	// the subject line is seen
	end := -1

	for _, line := range lines {
		if current == subj && strings.HasPrefix(line, "  ") {
			if isTagProperty(strings.TrimRight(line[2:], "\n")) || strings.HasPrefix(line[2:], "ok:") {
				if !strings.HasSuffix(line, "\n") {
					line += "\n"
				}
				out = append(out, line)
				if end >= 0 {
					end = len(out)
				}
			}
			continue
		}

		trimmed := strings.TrimRight(line, " \t\r\n")
		if isSubjectLine(trimmed) {
			current = trimmed
		}

		if current == subj && trimmed == subj && end < 0 {
			if !strings.HasSuffix(line, "\n") {
				line += "\n"
			}
			out = append(out, line)
			out = append(out, head...)
			end = len(out)
			continue
		}
		out = append(out, line)
	}

	if end >= 0 {
		out = slices.Insert(out, end, tail...)
		return strings.Join(out, "")
	}

	if len(head)+len(tail) > 0 {
		if len(out) > 0 && !strings.HasSuffix(out[len(out)-1], "\n") {
			out = append(out, "\n")
		}
		out = append(out, "\n"+subj+"\n")
		out = append(out, head...)
		out = append(out, tail...)
	}

	return strings.Join(out, "")
}

// writeAtomic replaces path through a temporary file and rename
func writeAtomic(path, content string) error {
	mode := os.FileMode(0644)
	if info, err := os.Stat(path); err == nil {
		mode = info.Mode().Perm()
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, []byte(content), mode); err != nil {
		return fmt.Errorf("writing temp meta file: %w", err)
	}

	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("renaming meta file: %w", err)
	}

	return nil
}
