package plot

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/fredkin/internal/logparse"
)

var sample = logparse.Series{
	{Generation: 0, Alive: 10, Dead: 1526},
	{Generation: 1, Alive: 12, Dead: 1524},
	{Generation: 2, Alive: 9, Dead: 1527},
}

func TestRenderPNG(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Render(&buf, sample, Options{}))
	assert.True(t, bytes.HasPrefix(buf.Bytes(), []byte("\x89PNG\r\n\x1a\n")), "output is not a PNG")
}

func TestRenderSVG(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Render(&buf, sample, Options{Format: FormatSVG, Title: "run 1"}))
	out := buf.String()
	assert.Contains(t, out, "<svg")
	assert.Contains(t, out, "Alive")
	assert.Contains(t, out, "Dead")
}

func TestRenderNeedsTwoPoints(t *testing.T) {
	var buf bytes.Buffer
	assert.ErrorIs(t, Render(&buf, sample[:1], Options{}), ErrNotEnoughPoints)
	assert.ErrorIs(t, Render(&buf, nil, Options{}), ErrNotEnoughPoints)
	assert.Zero(t, buf.Len())
}

func TestRenderUnknownFormat(t *testing.T) {
	err := Render(&bytes.Buffer{}, sample, Options{Format: "gif"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported chart format")
}

func TestFormatFromPath(t *testing.T) {
	assert.Equal(t, FormatSVG, FormatFromPath("out/chart.SVG"))
	assert.Equal(t, FormatPNG, FormatFromPath("chart.png"))
	assert.Equal(t, FormatPNG, FormatFromPath("chart"))
}
