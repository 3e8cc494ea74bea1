package cli

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"
	"github.com/stwalsh4118/git-check-rebase/internal/watch"
)

const clearScreen = "\x1b[H\x1b[2J"

func newWatchCmd(global *globalOptions) *cobra.Command {
	var (
		table  tableOptions
		settle time.Duration
	)

	cmd := &cobra.Command{
		Use:   "watch [flags] <range>...",
		Short: "Redraw the table whenever the metadata file changes",
		Long: `Print the table and print it again every time the metadata file is written,
for example while editing comments in another window. Stops on SIGINT or
SIGTERM.`,
		Args: rangeArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := watch.WithShutdownSignals(context.Background())
			defer cancel()

			env, err := global.openEnvironment()
			if err != nil {
				return err
			}
			defer env.Close()

			return env.watchTable(ctx, cmd.OutOrStdout(), args, &table, settle)
		},
	}

	table.register(cmd)
	cmd.Flags().DurationVar(&settle, "settle", watch.DefaultSettle, "Wait this long after the last write before redrawing")

	return cmd
}

func (e *environment) watchTable(ctx context.Context, out io.Writer, defs []string, opts *tableOptions, settle time.Duration) error {
	if e.cfg.Meta.Path == "" {
		return fmt.Errorf("watch needs a metadata file (--meta or meta.path)")
	}

	w, err := watch.NewWatcher(e.cfg.Meta.Path, e.logger)
	if err != nil {
		return err
	}
	if err := w.Start(); err != nil {
		return fmt.Errorf("failed to watch %s: %w", e.cfg.Meta.Path, err)
	}
	defer w.Stop()

	clearFirst := isTerminal(out)
	render := func() error {
		table, err := e.buildTable(ctx, defs, opts)
		if err != nil {
			return err
		}
		if clearFirst {
			fmt.Fprint(out, clearScreen)
		}
		return e.writeTable(out, table, opts)
	}

	// a half-written metadata file must not end the session
	return watch.Loop(ctx, w.Events(), settle, true, render, e.logger)
}
