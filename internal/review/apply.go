package review

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/stwalsh4118/git-check-rebase/internal/patch"
)

// Action is the reviewer's choice after a failed patch update
type Action int

const (
	ActionSkip Action = iota + 1
	ActionStop
	ActionRetry
)

type applyResult struct {
	action  Action
	newHash string
}

// triWay explains problem and asks until a valid choice is entered. End of
// input counts as stop.
func (s *Session) triWay(problem string, retry bool, stopHelp string) (applyResult, error) {
	count := "two"
	expected := fmt.Sprintf("%d, %d", ActionSkip, ActionStop)
	if retry {
		count = "three"
		expected += fmt.Sprintf(", %d", ActionRetry)
	}

	fmt.Fprintln(s.out, "You have modified a patch, but we can not update it:", problem)
	fmt.Fprintf(s.out, "You have %s choices:\n", count)
	fmt.Fprintf(s.out, "%d. skip: don't apply the changes, continue interactive process\n", ActionSkip)
	fmt.Fprintf(s.out, "%d. stop: stop the interactive process now. %s\n", ActionStop, stopHelp)
	if retry {
		fmt.Fprintf(s.out, "%d. retry: review same commit again and fix your changes\n", ActionRetry)
	}

	for {
		fmt.Fprintf(s.out, "What to do? [%s]: ", expected)
		line, err := s.in.ReadString('\n')
		if err != nil && err != io.EOF {
			return applyResult{}, fmt.Errorf("failed to read answer: %w", err)
		}

		n, convErr := strconv.Atoi(strings.TrimSpace(line))
		if convErr == nil && (n == int(ActionSkip) || n == int(ActionStop) || (retry && n == int(ActionRetry))) {
			return applyResult{action: Action(n)}, nil
		}
		if err == io.EOF {
			fmt.Fprintln(s.out)
			return applyResult{action: ActionStop}, nil
		}
	}
}

// applyEdit rewrites commit hash on branch when the reviewer edited its
// normalized patch in editedPath
func (s *Session) applyEdit(hash, branch, orig, origFiltered, editedPath string) (applyResult, error) {
	data, err := os.ReadFile(editedPath)
	if err != nil {
		return applyResult{}, fmt.Errorf("failed to read edited patch: %w", err)
	}
	edited := string(data)
	if edited == origFiltered {
		return applyResult{action: ActionSkip}, nil
	}

	if branch == "" || s.mutator == nil {
		return s.triWay("git is unclean or not at branch", false, "")
	}
	current, err := s.mutator.CurrentBranch()
	if err != nil {
		return applyResult{}, err
	}
	clean, err := s.mutator.IsClean()
	if err != nil {
		return applyResult{}, err
	}
	if current != branch || !clean {
		return s.triWay("git is unclean or not at branch", false, "")
	}

	short, err := s.repo.ShortHash(hash)
	if err != nil {
		return applyResult{}, err
	}
	contains, err := s.mutator.Contains(branch, short)
	if err != nil {
		return applyResult{}, err
	}
	if !contains {
		return s.triWay("you are trying to modify commit that is not in the current branch", true, "")
	}

	updated, err := patch.RestoreEdited(orig, origFiltered, edited)
	if errors.Is(err, patch.ErrUnparseableEdit) {
		return s.triWay("unparseable changes in patch", true, "")
	}
	if err != nil {
		return applyResult{}, err
	}

	if err := s.mutator.Checkout(short + "^"); err != nil {
		s.logger.Debug("checkout failed", "error", err)
		return s.triWay("git checkout failed", false, "")
	}

	if err := s.mutator.Am(updated); err != nil {
		s.logger.Debug("am failed", "error", err)
		w, werr := s.triWay("git am failed", true, fmt.Sprintf(
			`You will be left in git-am session. Use "git am --abort", then "git checkout %s" to rollback.`, branch))
		if werr != nil || w.action == ActionStop {
			return w, werr
		}
		if err := s.mutator.AmAbort(); err != nil {
			return applyResult{}, err
		}
		return w, s.mutator.Checkout(branch)
	}

	applied, err := s.repo.ShortHash("HEAD")
	if err != nil {
		return applyResult{}, err
	}
	if err := s.mutator.Checkout(branch); err != nil {
		return applyResult{}, err
	}
	if err := s.mutator.Rebase(applied); err != nil {
		s.logger.Debug("rebase failed", "error", err)
		w, werr := s.triWay("git rebase failed", true,
			`You will probably be in a git rebase conflict. Use "git rebase --abort" to rollback.`)
		if werr != nil || w.action == ActionStop {
			return w, werr
		}
		return w, s.mutator.RebaseAbort()
	}

	s.logger.Info("rewrote commit", "old", short, "new", applied, "branch", branch)
	return applyResult{action: ActionSkip, newHash: applied}, nil
}
