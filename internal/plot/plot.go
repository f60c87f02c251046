// Package plot renders a parsed series as a line chart of alive and dead
// cell counts per generation.
package plot

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/wcharczuk/go-chart/v2"

	"github.com/roach88/fredkin/internal/logparse"
)

// Output formats.
const (
	FormatPNG = "png"
	FormatSVG = "svg"
)

// DefaultTitle is the chart title used when Options.Title is empty.
const DefaultTitle = "Alive and dead cells over generations (Fredkin)"

// ErrNotEnoughPoints is returned for series that cannot span an axis.
var ErrNotEnoughPoints = errors.New("at least two points are needed to draw a chart")

// Options controls chart rendering.
type Options struct {
	Format string // png (default) or svg
	Title  string
	Width  int
	Height int
}

func (o *Options) applyDefaults() {
	if o.Format == "" {
		o.Format = FormatPNG
	}
	if o.Title == "" {
		o.Title = DefaultTitle
	}
	if o.Width == 0 {
		o.Width = 1000
	}
	if o.Height == 0 {
		o.Height = 600
	}
}

// FormatFromPath guesses the output format from a file extension.
func FormatFromPath(path string) string {
	if strings.HasSuffix(strings.ToLower(path), ".svg") {
		return FormatSVG
	}
	return FormatPNG
}

// Render writes the chart for series to w.
func Render(w io.Writer, series logparse.Series, opts Options) error {
	opts.applyDefaults()
	if len(series) < 2 {
		return ErrNotEnoughPoints
	}

	var provider chart.RendererProvider
	switch opts.Format {
	case FormatPNG:
		provider = chart.PNG
	case FormatSVG:
		provider = chart.SVG
	default:
		return fmt.Errorf("unsupported chart format %q (want png or svg)", opts.Format)
	}

	xs := series.Generations()
	graph := chart.Chart{
		Title:  opts.Title,
		Width:  opts.Width,
		Height: opts.Height,
		Background: chart.Style{
			Padding: chart.Box{Top: 50, Left: 20, Right: 20, Bottom: 20},
		},
		XAxis: chart.XAxis{
			Name: "Generation",
			ValueFormatter: func(v interface{}) string {
				if f, ok := v.(float64); ok {
					return fmt.Sprintf("%d", int(f))
				}
				return ""
			},
		},
		YAxis: chart.YAxis{
			Name: "Cells",
			ValueFormatter: func(v interface{}) string {
				if f, ok := v.(float64); ok {
					return fmt.Sprintf("%d", int(f))
				}
				return ""
			},
		},
		Series: []chart.Series{
			chart.ContinuousSeries{
				Name:    "Alive",
				XValues: xs,
				YValues: series.AliveCounts(),
				Style: chart.Style{
					StrokeColor: chart.ColorBlue,
					StrokeWidth: 2,
					DotColor:    chart.ColorBlue,
					DotWidth:    3,
				},
			},
			chart.ContinuousSeries{
				Name:    "Dead",
				XValues: xs,
				YValues: series.DeadCounts(),
				Style: chart.Style{
					StrokeColor: chart.ColorRed,
					StrokeWidth: 2,
					DotColor:    chart.ColorRed,
					DotWidth:    3,
				},
			},
		},
	}
	graph.Elements = []chart.Renderable{chart.Legend(&graph)}

	if err := graph.Render(provider, w); err != nil {
		return fmt.Errorf("render chart: %w", err)
	}
	return nil
}
