package cli

import (
	"context"
	"fmt"
	"html"
	"io"
	"os"

	"github.com/spf13/cobra"
	"github.com/stwalsh4118/git-check-rebase/internal/correlation"
	"github.com/stwalsh4118/git-check-rebase/internal/filter"
	"github.com/stwalsh4118/git-check-rebase/internal/ranges"
	"github.com/stwalsh4118/git-check-rebase/internal/tracker"
	"github.com/stwalsh4118/git-check-rebase/internal/view"
	"golang.org/x/term"
)

// tableOptions controls how a table is built and shown. They are shared by
// the root, watch and serve commands.
type tableOptions struct {
	defaultBase   string
	issues        []string
	ignoreMessage bool
	format        string
	html          bool
	columns       string
	hideLevel     string
	rowsFilter    string
	legend        bool
	noHeaders     bool
}

func (o *tableOptions) register(cmd *cobra.Command) {
	flags := cmd.Flags()
	flags.StringVar(&o.defaultBase, "default-base", "", "Base for ranges written as ..top")
	flags.StringSliceVar(&o.issues, "issues", nil, "Root tracker issues to search for porting issues")
	flags.BoolVar(&o.ignoreMessage, "ignore-cmsg", false, "Compare code changes only, ignore commit messages")
	flags.StringVar(&o.format, "format", "", "Output format: auto, colored, plain or html")
	flags.BoolVar(&o.html, "html", false, "Shorthand for --format html")
	flags.StringVar(&o.columns, "columns", "", "Comma separated columns (default INDEX,FEATURE,COMMITS,DATE,AUTHOR,MSG_ISSUES,SUBJECT)")
	flags.StringVar(&o.hideLevel, "rows-hide-level", "show_all", "show_all, hide_equal or hide_checked")
	flags.StringVar(&o.rowsFilter, "rows-filter", "", `Row filter, e.g. "feature == 'net' and not all_ok"`)
	flags.BoolVar(&o.legend, "legend", false, "Print legends of named ranges")
	flags.BoolVar(&o.noHeaders, "no-headers", false, "Do not print the header row")
}

// viewOptions parses the textual options
func (o *tableOptions) viewOptions() (correlation.ViewOptions, error) {
	opts := correlation.ViewOptions{Headers: !o.noHeaders}

	if o.columns != "" {
		cols, err := correlation.ParseColumns(o.columns)
		if err != nil {
			return opts, err
		}
		opts.Columns = cols
	}

	level, err := correlation.ParseHideLevel(o.hideLevel)
	if err != nil {
		return opts, err
	}
	opts.HideLevel = level

	expr, err := filter.Parse(o.rowsFilter)
	if err != nil {
		return opts, fmt.Errorf("invalid rows filter: %w", err)
	}
	opts.Filter = expr

	return opts, nil
}

// outputFormat resolves --html, --format and output.format into one of
// colored, plain or html
func (o *tableOptions) outputFormat(configured string, w io.Writer) string {
	format := configured
	if o.format != "" {
		format = o.format
	}
	if o.html {
		format = "html"
	}

	if format == "auto" || format == "" {
		if isTerminal(w) {
			return "colored"
		}
		return "plain"
	}
	return format
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

func newViewer(format, commitURL string, w io.Writer) (view.Viewer, error) {
	switch format {
	case "colored":
		return view.NewTextViewer(w, true), nil
	case "plain":
		return view.NewTextViewer(w, false), nil
	case "html":
		return view.NewHTMLViewer(commitURL), nil
	default:
		return nil, fmt.Errorf("unknown output format %q", format)
	}
}

// buildTable reads the ranges, attaches porting issues and compares every
// row
func (e *environment) buildTable(ctx context.Context, defs []string, o *tableOptions) (*correlation.Table, error) {
	store, err := e.loadMeta()
	if err != nil {
		return nil, err
	}

	defaultBase := e.cfg.Git.DefaultBase
	if o.defaultBase != "" {
		defaultBase = o.defaultBase
	}

	rs := make([]*ranges.MultiRange, 0, len(defs))
	for _, def := range defs {
		r, err := ranges.New(def, e.repo, store, defaultBase)
		if err != nil {
			return nil, err
		}
		e.logger.Debug("range loaded", "name", r.Name, "commits", len(r.Commits))
		rs = append(rs, r)
	}

	table, err := correlation.Build(rs, store, e.repo, e.logger)
	if err != nil {
		return nil, fmt.Errorf("failed to build table: %w", err)
	}

	if len(o.issues) > 0 {
		tr, err := e.newTracker()
		if err != nil {
			return nil, err
		}
		if err := table.AddPortingIssues(ctx, tr, o.issues); err != nil {
			return nil, fmt.Errorf("failed to load porting issues: %w", err)
		}
	}

	if err := table.Compare(e.comparator, o.ignoreMessage); err != nil {
		return nil, fmt.Errorf("failed to compare commits: %w", err)
	}

	return table, nil
}

func (e *environment) newTracker() (tracker.Tracker, error) {
	tc := e.cfg.Tracker
	switch tc.Kind {
	case "jira", "":
		return tracker.NewJira(tc.Server, tc.User, tc.Token, e.logger)
	default:
		return nil, fmt.Errorf("unknown tracker kind %q", tc.Kind)
	}
}

// writeTable renders table in the resolved format, followed by the legends
// of named ranges when requested
func (e *environment) writeTable(w io.Writer, table *correlation.Table, o *tableOptions) error {
	vopts, err := o.viewOptions()
	if err != nil {
		return err
	}
	vt, err := table.View(vopts)
	if err != nil {
		return err
	}

	format := o.outputFormat(e.cfg.Output.Format, w)
	viewer, err := newViewer(format, e.cfg.Output.CommitURL, w)
	if err != nil {
		return err
	}
	if err := viewer.Render(w, vt); err != nil {
		return err
	}

	if !o.legend {
		return nil
	}
	for _, l := range table.Legends() {
		if format == "html" {
			l = html.EscapeString(l) + "<br>"
		}
		if _, err := fmt.Fprintln(w, l); err != nil {
			return fmt.Errorf("failed to write legend: %w", err)
		}
	}
	return nil
}

func rangeArgs(cmd *cobra.Command, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("at least one range is required")
	}
	return nil
}
