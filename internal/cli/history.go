package cli

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/fredkin/internal/logparse"
	"github.com/roach88/fredkin/internal/store"
)

// HistoryOptions holds flags for the history command.
type HistoryOptions struct {
	*RootOptions
	Database string
	RunID    string
	Delete   bool
}

// RunDetail is one archived run with its points.
type RunDetail struct {
	store.Run
	Series logparse.Series `json:"series"`
}

// NewHistoryCommand creates the history command.
func NewHistoryCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &HistoryOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List or show archived runs",
		Long: `List the runs stored by import, oldest first.

With --run, print that run's points instead; with --run and --delete,
remove the run from the archive.

Examples:
  fredkin history --db fredkin.db
  fredkin history --db fredkin.db --run 0192f0c4-... --format json
  fredkin history --db fredkin.db --run 0192f0c4-... --delete`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHistory(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (default from config)")
	cmd.Flags().StringVar(&opts.RunID, "run", "", "show a single run")
	cmd.Flags().BoolVar(&opts.Delete, "delete", false, "delete the run given by --run")

	return cmd
}

func runHistory(opts *HistoryOptions, cmd *cobra.Command) error {
	if opts.Delete && opts.RunID == "" {
		return NewExitError(ExitCommandError, "--delete needs --run")
	}
	dbPath, err := databasePath(opts.RootOptions, opts.Database)
	if err != nil {
		return err
	}

	st, err := store.Open(dbPath)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer st.Close()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	f := formatter(opts.RootOptions, cmd)

	switch {
	case opts.Delete:
		if err := st.DeleteRun(ctx, opts.RunID); err != nil {
			return WrapExitError(ExitCommandError, "failed to delete run", err)
		}
		return f.Render(map[string]string{"deleted": opts.RunID}, func(w io.Writer) error {
			_, err := fmt.Fprintf(w, "deleted run %s\n", opts.RunID)
			return err
		})

	case opts.RunID != "":
		run, err := st.GetRun(ctx, opts.RunID)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to read run", err)
		}
		series, err := st.ReadSeries(ctx, opts.RunID)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to read run", err)
		}
		return f.Render(RunDetail{Run: run, Series: series}, func(w io.Writer) error {
			fmt.Fprintf(w, "run %s from %s (%s, imported %s)\n",
				run.ID, run.Source, run.Encoding, run.ImportedAt.Format(time.RFC3339))
			return writeSeriesTable(w, series)
		})

	default:
		runs, err := st.ListRuns(ctx)
		if err != nil {
			return WrapExitError(ExitFailure, "failed to list runs", err)
		}
		return f.Render(runs, func(w io.Writer) error {
			if len(runs) == 0 {
				_, err := fmt.Fprintln(w, "no runs archived")
				return err
			}
			tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tIMPORTED\tPOINTS\tSKIPPED\tSOURCE")
			for _, r := range runs {
				fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%s\n",
					r.ID, r.ImportedAt.Format(time.RFC3339), r.Points, r.Skipped, r.Source)
			}
			return tw.Flush()
		})
	}
}
