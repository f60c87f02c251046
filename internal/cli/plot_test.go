package cli

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/fredkin/internal/logparse"
	"github.com/roach88/fredkin/internal/store"
)

func TestPlotFromLogFile(t *testing.T) {
	tests := []struct {
		name   string
		output string
		magic  string
	}{
		{"png", "chart.png", "\x89PNG"},
		{"svg", "chart.svg", "<svg"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logPath := writeFile(t, "logs.txt", sampleLog)
			out := filepath.Join(t.TempDir(), tt.output)

			buf := &bytes.Buffer{}
			cmd := NewPlotCommand(&RootOptions{Format: "text"})
			cmd.SetOut(buf)
			cmd.SetArgs([]string{logPath, "-o", out})
			require.NoError(t, cmd.Execute())

			data, err := os.ReadFile(out)
			require.NoError(t, err)
			assert.Contains(t, string(data[:min(len(data), 256)]), tt.magic)
			assert.Contains(t, buf.String(), "wrote "+tt.name+" chart of 3 points")
		})
	}
}

func TestPlotFromArchivedRun(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "fredkin.db")
	st, err := store.Open(dbPath, store.WithIDGenerator(store.NewFixedGenerator("run-1")))
	require.NoError(t, err)
	_, err = st.SaveRun(context.Background(), "logs.txt", logparse.Stats{Encoding: "utf-8"}, logparse.Series{
		{Generation: 0, Alive: 1, Dead: 1535},
		{Generation: 1, Alive: 2, Dead: 1534},
	})
	require.NoError(t, err)
	require.NoError(t, st.Close())

	out := filepath.Join(t.TempDir(), "chart.svg")
	cmd := NewPlotCommand(&RootOptions{Format: "text"})
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetArgs([]string{"--db", dbPath, "--run", "run-1", "-o", out})
	require.NoError(t, cmd.Execute())

	_, err = os.Stat(out)
	assert.NoError(t, err)
}

func TestPlotTooFewPoints(t *testing.T) {
	logPath := writeFile(t, "logs.txt", "[2024-01-01 10:00:02] LOG,0,0,GEN:0,ALIVE:10,DEAD:1526\n")
	out := filepath.Join(t.TempDir(), "chart.png")

	cmd := NewPlotCommand(&RootOptions{Format: "text"})
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetArgs([]string{logPath, "-o", out})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, err.Error(), "at least two points")

	_, statErr := os.Stat(out)
	assert.True(t, os.IsNotExist(statErr), "a failed render leaves no file behind")
}

func TestPlotSourceValidation(t *testing.T) {
	out := filepath.Join(t.TempDir(), "chart.png")
	tests := []struct {
		name string
		args []string
		want string
	}{
		{"no source", []string{"-o", out}, "a log file or --run is required"},
		{"both sources", []string{"logs.txt", "--run", "r", "--db", "x.db", "-o", out}, "not both"},
		{"run without db", []string{"--run", "r", "-o", out}, "--run needs --db"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd := NewPlotCommand(&RootOptions{Format: "text"})
			cmd.SetOut(&bytes.Buffer{})
			cmd.SetArgs(tt.args)

			err := cmd.Execute()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
			assert.Equal(t, ExitCommandError, GetExitCode(err))
		})
	}
}

func TestPlotRequiresOutput(t *testing.T) {
	cmd := NewPlotCommand(&RootOptions{Format: "text"})
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"logs.txt"})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "required flag")
}
