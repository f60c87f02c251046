package logsink

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/fredkin/internal/testutil"
)

var epoch = time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)

func newTestSink(t *testing.T) (*Sink, string) {
	t.Helper()
	clock := testutil.NewStepClock(epoch, time.Second)
	return New(WithClock(clock.Now)), filepath.Join(t.TempDir(), "logs_fredkin.txt")
}

func readLines(t *testing.T, path string) []string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return strings.Split(strings.TrimSuffix(string(data), "\n"), "\n")
}

func TestFormatLine(t *testing.T) {
	assert.Equal(t, "[2024-01-01 10:00:00] hello\n", FormatLine(epoch, "hello", true))
	assert.Equal(t, "                      hello\n", FormatLine(epoch, "hello", false))
	assert.Equal(t, 22, PadWidth)
}

func TestPaddedLinesAlignWithTimestamped(t *testing.T) {
	stamped := FormatLine(epoch, "msg", true)
	raw := FormatLine(epoch, "msg", false)
	assert.Equal(t, len(stamped), len(raw))
	assert.Equal(t, strings.Index(stamped, "msg"), strings.Index(raw, "msg"))
}

func TestAppendUnbound(t *testing.T) {
	s := New()
	assert.False(t, s.Bound())
	assert.ErrorIs(t, s.Append("hello", true), ErrNotBound)
}

func TestSelectCreatesFileWithMarker(t *testing.T) {
	s, path := newTestSink(t)

	require.NoError(t, s.Select(path))
	assert.True(t, s.Bound())
	assert.Equal(t, path, s.Path())
	assert.Equal(t, []string{"[2024-01-01 10:00:00] Log file created/opened"}, readLines(t, path))
}

func TestSelectAppendsToExistingFile(t *testing.T) {
	s, path := newTestSink(t)
	require.NoError(t, os.WriteFile(path, []byte("previous session\n"), 0o644))

	require.NoError(t, s.Select(path))
	require.NoError(t, s.Append("LOG,a,b,GEN:0,ALIVE:1,DEAD:2", true))
	require.NoError(t, s.Append("raw", false))

	assert.Equal(t, []string{
		"previous session",
		"[2024-01-01 10:00:00] Log file created/opened",
		"[2024-01-01 10:00:01] LOG,a,b,GEN:0,ALIVE:1,DEAD:2",
		"                      raw",
	}, readLines(t, path))
}

func TestMarkSessionStart(t *testing.T) {
	s, path := newTestSink(t)
	require.NoError(t, s.Select(path))
	require.NoError(t, s.MarkSessionStart())

	lines := readLines(t, path)
	require.Len(t, lines, 2)
	assert.Equal(t, "[2024-01-01 10:00:01] New simulation started", lines[1])
}

func TestSelectFailureKeepsPreviousBinding(t *testing.T) {
	s, path := newTestSink(t)
	require.NoError(t, s.Select(path))

	bad := filepath.Join(t.TempDir(), "missing-dir", "log.txt")
	err := s.Select(bad)
	require.Error(t, err)
	assert.True(t, IsSinkFailure(err))
	assert.Contains(t, err.Error(), "SINK_IO_FAILURE")
	assert.Equal(t, path, s.Path())
}

func TestSelectEmptyPath(t *testing.T) {
	s := New()
	err := s.Select("")
	require.Error(t, err)
	assert.True(t, IsSinkFailure(err))
	assert.False(t, s.Bound())
}

func TestAppendFailureIsReported(t *testing.T) {
	s, path := newTestSink(t)
	require.NoError(t, s.Select(path))

	// Replace the file with a directory so the next open fails.
	require.NoError(t, os.Remove(path))
	require.NoError(t, os.Mkdir(path, 0o755))

	err := s.Append("lost line", true)
	require.Error(t, err)
	assert.True(t, IsSinkFailure(err))
}
