package cli

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/roach88/fredkin/internal/logparse"
)

// SeriesOptions holds flags for the series command.
type SeriesOptions struct {
	*RootOptions
}

// SeriesResult is the parsed content of one log file.
type SeriesResult struct {
	Source string          `json:"source"`
	Stats  logparse.Stats  `json:"stats"`
	Points logparse.Series `json:"points"`
}

// NewSeriesCommand creates the series command.
func NewSeriesCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &SeriesOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "series <log-file>",
		Short: "Print the per-generation statistics of a log file",
		Long: `Parse a log file and print generation, alive and dead counts in file order.

Lines that are not statistics lines, or whose numbers do not parse, are
skipped. Use --verbose to see how many lines were skipped.

Examples:
  fredkin series logs_fredkin.txt
  fredkin series logs_fredkin.txt --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSeries(opts, args[0], cmd)
		},
	}
	return cmd
}

func runSeries(opts *SeriesOptions, path string, cmd *cobra.Command) error {
	f := formatter(opts.RootOptions, cmd)

	series, stats, err := logparse.ParseFile(path)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to parse log file", err)
	}
	f.VerboseLog("%s: %s, %d lines, %d candidates, %d parsed, %d skipped",
		path, stats.Encoding, stats.Lines, stats.Candidates, stats.Parsed, stats.Skipped)

	result := SeriesResult{Source: path, Stats: stats, Points: series}
	return f.Render(result, func(w io.Writer) error {
		return writeSeriesTable(w, series)
	})
}

func writeSeriesTable(w io.Writer, series logparse.Series) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "GENERATION\tALIVE\tDEAD")
	for _, p := range series {
		fmt.Fprintf(tw, "%d\t%d\t%d\n", p.Generation, p.Alive, p.Dead)
	}
	return tw.Flush()
}
