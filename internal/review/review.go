// Package review walks a compared table and lets the reviewer inspect
// every pair of commits that is not known to be equal.
package review

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/stwalsh4118/git-check-rebase/internal/correlation"
	"github.com/stwalsh4118/git-check-rebase/internal/git"
	"github.com/stwalsh4118/git-check-rebase/internal/logging"
	"github.com/stwalsh4118/git-check-rebase/internal/meta"
	"github.com/stwalsh4118/git-check-rebase/internal/patch"
	"github.com/stwalsh4118/git-check-rebase/internal/view"
)

// Source provides what the review reads from the repository
type Source interface {
	EmailPatch(id string) (string, error)
	ShortHash(rev string) (string, error)
}

// Options configures a review session
type Options struct {
	Editor  string    // editor command line, "vim" when empty
	TempDir string    // parent of the per-comparison directory
	In      io.Reader // answers to prompts
	Out     io.Writer // prompts
}

// Session is one interactive pass over a table
type Session struct {
	repo    Source
	mutator git.Mutator
	runner  Runner
	editor  string
	tempDir string
	in      *bufio.Reader
	out     io.Writer
	logger  logging.Logger
}

// Result summarizes a session
type Result struct {
	Reviewed  int
	Confirmed int
	Stopped   bool
	// Rewritten is the new hash of a rewritten commit. The table no longer
	// matches the repository when it is set.
	Rewritten string
}

// NewSession creates a session. mutator may be nil, then edited patches
// cannot be applied.
func NewSession(repo Source, mutator git.Mutator, runner Runner, opts Options, logger logging.Logger) (*Session, error) {
	if logger == nil {
		return nil, fmt.Errorf("logger cannot be nil")
	}
	if repo == nil {
		return nil, fmt.Errorf("repository cannot be nil")
	}
	if runner == nil {
		return nil, fmt.Errorf("runner cannot be nil")
	}

	editor := opts.Editor
	if strings.TrimSpace(editor) == "" {
		editor = "vim"
	}
	in := opts.In
	if in == nil {
		in = os.Stdin
	}
	out := opts.Out
	if out == nil {
		out = os.Stdout
	}

	return &Session{
		repo:    repo,
		mutator: mutator,
		runner:  runner,
		editor:  editor,
		tempDir: opts.TempDir,
		in:      bufio.NewReader(in),
		out:     out,
		logger:  logger.With("component", "review"),
	}, nil
}

type compareResult struct {
	equal   bool
	ok      bool
	stop    bool
	comment string
	newHash string
}

// Run reviews every cell that is neither the base nor already EQUAL or
// CHECKED. Confirmed pairs and comments go to the table's metadata store.
func (s *Session) Run(ctx context.Context, t *correlation.Table) (Result, error) {
	var res Result

	branch := ""
	if s.mutator != nil {
		b, err := s.mutator.CurrentBranch()
		if err != nil {
			return res, fmt.Errorf("failed to get current branch: %w", err)
		}
		branch = b
	}

	store := t.Meta()
	for _, row := range t.Rows {
		bi := row.BaseIndex()
		base := row.Cells[bi]

		for i, c := range row.Cells {
			if c == nil || i == bi || c.State == view.StateEqual || c.State == view.StateChecked {
				continue
			}
			if err := ctx.Err(); err != nil {
				return res, err
			}

			comment := row.Comment()
			cr, err := s.compare(ctx, base.Hash, c.Hash, i, row.Subject, comment, branch)
			if err != nil {
				return res, fmt.Errorf("failed to review %s against %s: %w", c.Hash, base.Hash, err)
			}
			if cr.equal {
				continue
			}
			res.Reviewed++

			var pair *meta.Pair
			if cr.ok {
				pair = &meta.Pair{First: base.Hash, Second: c.Hash}
				c.State = view.StateChecked
				res.Confirmed++
			}
			if err := store.UpdateMeta(row.Subject, cr.comment, pair); err != nil {
				return res, err
			}

			if cr.newHash != "" {
				s.logger.Info("history rewritten, stopping review", "new", cr.newHash)
				res.Rewritten = cr.newHash
				res.Stopped = true
				return res, nil
			}
			if cr.stop {
				res.Stopped = true
				return res, nil
			}
		}
	}

	return res, nil
}

var unsafeFileChars = regexp.MustCompile(`[^A-Za-z0-9._]+`)

// patchFileName mimics git's %f: the subject reduced to a file name
func patchFileName(prefix, hash, subj string) string {
	slug := strings.Trim(unsafeFileChars.ReplaceAllString(subj, "-"), "-.")
	if len(slug) > 52 {
		slug = slug[:52]
	}
	return fmt.Sprintf("%s%s-%s.patch", prefix, hash, slug)
}

// compare shows c1 (left) and c2 (right) in the editor. Only c2 may be
// rewritten, and only on branch.
func (s *Session) compare(ctx context.Context, c1, c2 string, c2Ind int, subj, comment, branch string) (compareResult, error) {
	var res compareResult

	c1Orig, err := s.repo.EmailPatch(c1)
	if err != nil {
		return res, err
	}
	c2Orig, err := s.repo.EmailPatch(c2)
	if err != nil {
		return res, err
	}
	c1Filtered := patch.Normalize(c1Orig, false)
	c2Filtered := patch.Normalize(c2Orig, false)
	if c1Filtered == c2Filtered {
		res.equal = true
		return res, nil
	}

	dir, err := os.MkdirTemp(s.tempDir, "git-check-rebase-")
	if err != nil {
		return res, fmt.Errorf("failed to create temp dir: %w", err)
	}
	defer os.RemoveAll(dir)

	f1 := filepath.Join(dir, patchFileName("", c1, subj))
	f2 := filepath.Join(dir, patchFileName(fmt.Sprintf("[%d]", c2Ind), c2, subj))
	commentPath := filepath.Join(dir, "comment")
	for path, content := range map[string]string{f1: c1Filtered, f2: c2Filtered, commentPath: comment} {
		if err := os.WriteFile(path, []byte(content), 0600); err != nil {
			return res, fmt.Errorf("failed to write %s: %w", filepath.Base(path), err)
		}
	}

	args, err := editorArgs(s.editor, f1, f2, commentPath, strings.TrimSpace(comment) != "")
	if err != nil {
		return res, err
	}

	for {
		code, err := s.runner.Run(ctx, args)
		if err != nil {
			return res, err
		}
		s.logger.Debug("editor exited", "code", code, "c1", c1, "c2", c2)
		res.ok = code == ExitOK
		res.stop = code != ExitContinue && code != ExitOK

		ar, err := s.applyEdit(c1, "", c1Orig, c1Filtered, f1)
		if err != nil {
			return res, err
		}
		if ar.action == ActionRetry {
			continue
		}
		if ar.action == ActionStop {
			res.stop = true
			break
		}

		ar, err = s.applyEdit(c2, branch, c2Orig, c2Filtered, f2)
		if err != nil {
			return res, err
		}
		if ar.action == ActionRetry {
			continue
		}
		if ar.action == ActionStop {
			res.stop = true
			break
		}
		res.newHash = ar.newHash
		break
	}

	data, err := os.ReadFile(commentPath)
	if err != nil {
		return res, fmt.Errorf("failed to read comment: %w", err)
	}
	res.comment = string(data)
	return res, nil
}
