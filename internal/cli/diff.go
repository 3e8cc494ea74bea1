package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"github.com/stwalsh4118/git-check-rebase/internal/equality"
	"github.com/stwalsh4118/git-check-rebase/internal/patch"
)

func newDiffCmd(global *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "diff <commit1> <commit2>",
		Short: "Show how two commits differ after normalization",
		Long: `Compare two commits the way the table does and print the verdict followed by
a unified diff of the normalized code changes and of the commit messages.
Line numbers and blank-line-only hunks are ignored, as in the table.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := global.openEnvironment()
			if err != nil {
				return err
			}
			defer env.Close()

			return env.diffCommits(cmd.OutOrStdout(), args[0], args[1])
		},
	}
}

func (e *environment) diffCommits(out io.Writer, rev1, rev2 string) error {
	c1, err := e.repo.ShortHash(rev1)
	if err != nil {
		return fmt.Errorf("failed to resolve %s: %w", rev1, err)
	}
	c2, err := e.repo.ShortHash(rev2)
	if err != nil {
		return fmt.Errorf("failed to resolve %s: %w", rev2, err)
	}

	verdict, err := e.comparator.Verdict(c1, c2)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "%s %s: %s\n", c1, c2, verdict)
	if verdict == equality.FullEqual {
		return nil
	}

	p1, err := e.repo.Patch(c1)
	if err != nil {
		return fmt.Errorf("failed to get patch of %s: %w", c1, err)
	}
	p2, err := e.repo.Patch(c2)
	if err != nil {
		return fmt.Errorf("failed to get patch of %s: %w", c2, err)
	}
	d, err := patch.UnifiedDiff(patch.Normalize(p1, true), patch.Normalize(p2, true), c1, c2)
	if err != nil {
		return fmt.Errorf("failed to diff patches: %w", err)
	}
	fmt.Fprint(out, d)

	m1, err := e.repo.Message(c1)
	if err != nil {
		return fmt.Errorf("failed to get message of %s: %w", c1, err)
	}
	m2, err := e.repo.Message(c2)
	if err != nil {
		return fmt.Errorf("failed to get message of %s: %w", c2, err)
	}
	d, err = patch.UnifiedDiff(m1, m2, c1+" message", c2+" message")
	if err != nil {
		return fmt.Errorf("failed to diff messages: %w", err)
	}
	fmt.Fprint(out, d)

	return nil
}
