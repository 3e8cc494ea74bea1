package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"github.com/stwalsh4118/git-check-rebase/internal/correlation"
	"github.com/stwalsh4118/git-check-rebase/internal/review"
)

const (
	version = "0.1.0"
)

// NewRootCmd creates and returns the root command for git-check-rebase
func NewRootCmd() *cobra.Command {
	var (
		global      globalOptions
		table       tableOptions
		interactive bool
	)

	rootCmd := &cobra.Command{
		Use:   "git-check-rebase [flags] <range>...",
		Short: "Compare commit ranges across rebases",
		Long: `git-check-rebase finds the commits of several ranges that correspond to each
other by subject and shows, for every subject, which ranges contain it and
whether the commits are equal to the one in the first range.

A range is written as "[name:]expr[,expr...]" where expr is one of
  commit          the single commit
  base..top       git log base..top
  ..top           --default-base..top
  base..          base..HEAD
  rev~N-          rev~N..rev

Review decisions are kept in the --meta file. With --interactive every pair
of commits that is not known to be equal is opened in the editor.`,
		Version:      version,
		Args:         rangeArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCompare(cmd.Context(), cmd.OutOrStdout(), &global, &table, interactive, args)
		},
	}

	global.register(rootCmd)
	table.register(rootCmd)
	rootCmd.Flags().BoolVarP(&interactive, "interactive", "i", false, "Review unconfirmed pairs in the editor before printing the table")

	// Add subcommands
	rootCmd.AddCommand(newConfigCmd(&global))
	rootCmd.AddCommand(newCacheCmd(&global))
	rootCmd.AddCommand(newDiffCmd(&global))
	rootCmd.AddCommand(newWatchCmd(&global))
	rootCmd.AddCommand(newServeCmd(&global))

	return rootCmd
}

func runCompare(ctx context.Context, out io.Writer, global *globalOptions, opts *tableOptions, interactive bool, args []string) error {
	if ctx == nil {
		ctx = context.Background()
	}

	env, err := global.openEnvironment()
	if err != nil {
		return err
	}
	defer env.Close()

	table, err := env.buildTable(ctx, args, opts)
	if err != nil {
		return err
	}

	if interactive {
		res, err := env.review(ctx, table, out)
		if err != nil {
			return err
		}
		if res.Rewritten != "" {
			fmt.Fprintf(out, "History was rewritten (new commit %s), run again to see the updated table\n", res.Rewritten)
			return nil
		}
	}

	return env.writeTable(out, table, opts)
}

// review runs an interactive session over table. Decisions are written to
// the metadata file, so one must be configured.
func (e *environment) review(ctx context.Context, table *correlation.Table, out io.Writer) (review.Result, error) {
	if e.cfg.Meta.Path == "" {
		return review.Result{}, fmt.Errorf("interactive review needs a metadata file (--meta or meta.path)")
	}

	session, err := review.NewSession(e.repo, e.mutator, review.NewExecRunner(), review.Options{
		Editor: e.cfg.Review.Editor,
		Out:    out,
	}, e.logger)
	if err != nil {
		return review.Result{}, fmt.Errorf("failed to create review session: %w", err)
	}

	res, err := session.Run(ctx, table)
	if err != nil {
		return res, fmt.Errorf("review failed: %w", err)
	}

	e.logger.Info("review finished",
		"reviewed", res.Reviewed,
		"confirmed", res.Confirmed,
		"stopped", res.Stopped)
	return res, nil
}
