package cli

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/fredkin/internal/logparse"
	"github.com/roach88/fredkin/internal/plot"
	"github.com/roach88/fredkin/internal/store"
)

// PlotOptions holds flags for the plot command.
type PlotOptions struct {
	*RootOptions
	Output   string
	Title    string
	Width    int
	Height   int
	Database string
	RunID    string
}

// PlotResult describes a written chart.
type PlotResult struct {
	Source string `json:"source"`
	Output string `json:"output"`
	Format string `json:"format"`
	Points int    `json:"points"`
}

// NewPlotCommand creates the plot command.
func NewPlotCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &PlotOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "plot [log-file]",
		Short: "Chart alive and dead cells over generations",
		Long: `Draw alive and dead counts against generation as a line chart.

The series comes from a log file, or from an archived run with --db and --run.
The output format follows the file extension: .svg writes SVG, anything else PNG.

Examples:
  fredkin plot logs_fredkin.txt -o chart.png
  fredkin plot --db fredkin.db --run 0192f0c4-... -o chart.svg`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			source := ""
			if len(args) == 1 {
				source = args[0]
			}
			return runPlot(opts, source, cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "chart file to write (required)")
	_ = cmd.MarkFlagRequired("output")
	cmd.Flags().StringVar(&opts.Title, "title", plot.DefaultTitle, "chart title")
	cmd.Flags().IntVar(&opts.Width, "width", 1000, "chart width in pixels")
	cmd.Flags().IntVar(&opts.Height, "height", 600, "chart height in pixels")
	cmd.Flags().StringVar(&opts.Database, "db", "", "archive database (with --run)")
	cmd.Flags().StringVar(&opts.RunID, "run", "", "archived run to plot instead of a log file")

	return cmd
}

func runPlot(opts *PlotOptions, source string, cmd *cobra.Command) error {
	series, source, err := loadPlotSeries(cmd.Context(), opts, source)
	if err != nil {
		return err
	}

	format := plot.FormatFromPath(opts.Output)
	out, err := os.Create(opts.Output)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to create chart file", err)
	}
	err = plot.Render(out, series, plot.Options{
		Format: format,
		Title:  opts.Title,
		Width:  opts.Width,
		Height: opts.Height,
	})
	if cerr := out.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(opts.Output)
		return WrapExitError(ExitFailure, "failed to render chart", err)
	}

	result := PlotResult{Source: source, Output: opts.Output, Format: format, Points: len(series)}
	return formatter(opts.RootOptions, cmd).Render(result, func(w io.Writer) error {
		_, err := fmt.Fprintf(w, "wrote %s chart of %d points to %s\n", result.Format, result.Points, result.Output)
		return err
	})
}

func loadPlotSeries(ctx context.Context, opts *PlotOptions, source string) (logparse.Series, string, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	switch {
	case opts.RunID != "" && source != "":
		return nil, "", NewExitError(ExitCommandError, "give either a log file or --run, not both")
	case opts.RunID != "":
		if opts.Database == "" {
			return nil, "", NewExitError(ExitCommandError, "--run needs --db")
		}
		st, err := store.Open(opts.Database)
		if err != nil {
			return nil, "", WrapExitError(ExitCommandError, "failed to open database", err)
		}
		defer st.Close()
		series, err := st.ReadSeries(ctx, opts.RunID)
		if err != nil {
			return nil, "", WrapExitError(ExitCommandError, "failed to read run", err)
		}
		return series, "run:" + opts.RunID, nil
	case source != "":
		series, _, err := logparse.ParseFile(source)
		if err != nil {
			return nil, "", WrapExitError(ExitCommandError, "failed to parse log file", err)
		}
		return series, source, nil
	default:
		return nil, "", NewExitError(ExitCommandError, "a log file or --run is required")
	}
}
