package session

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/fatih/color"
	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/fredkin/internal/config"
	"github.com/roach88/fredkin/internal/grid"
	"github.com/roach88/fredkin/internal/logsink"
	"github.com/roach88/fredkin/internal/protocol"
	"github.com/roach88/fredkin/internal/testutil"
	"github.com/roach88/fredkin/internal/transport"
)

var epoch = time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)

func testConfig() config.Config {
	cfg := config.Default()
	cfg.Port = "fake0"
	cfg.SettleDelay = 0
	cfg.PollInterval = time.Millisecond
	return cfg
}

func plain(t *testing.T) {
	t.Helper()
	prev := color.NoColor
	color.NoColor = true
	t.Cleanup(func() { color.NoColor = prev })
}

// newSession opens a session on a fake port with a step clock for the sink.
func newSession(t *testing.T, cfg config.Config) (*Context, *testutil.FakePort, *bytes.Buffer) {
	t.Helper()
	plain(t)
	fake := testutil.NewFakePort()
	clock := testutil.NewStepClock(epoch, time.Second)
	var out bytes.Buffer

	s := New(context.Background(), cfg, &out,
		WithTransportOptions(transport.WithOpener(func(string, int, time.Duration) (transport.Port, error) {
			return fake, nil
		})),
		WithSinkOptions(logsink.WithClock(clock.Now)),
	)
	t.Cleanup(func() { s.Close() })
	return s, fake, &out
}

func TestNewWithoutPort(t *testing.T) {
	plain(t)
	var out bytes.Buffer
	s := New(context.Background(), testConfig(), &out,
		WithTransportOptions(transport.WithOpener(func(string, int, time.Duration) (transport.Port, error) {
			return nil, errors.New("no such device")
		})),
	)
	defer s.Close()

	assert.Equal(t, transport.Disconnected, s.State())
	assert.True(t, transport.IsPortUnavailable(s.OpenError()))
	assert.ErrorContains(t, s.OpenError(), "no such device")
	// The caller decides how to surface the open error.
	assert.NotContains(t, out.String(), "PORT_UNAVAILABLE")
	assert.Contains(t, out.String(), "● Not connected (fake0)")

	err := s.SendGrid("10")
	assert.True(t, transport.IsPortUnavailable(err))
	err = s.SelectMode("FREDKIN1")
	assert.True(t, transport.IsPortUnavailable(err))

	// Editing still works without a device.
	require.NoError(t, s.Toggle(1, 2))
	assert.True(t, s.Grid().Alive(1, 2))
	assert.False(t, s.Poll())
}

func TestNewBindsConfiguredLogFile(t *testing.T) {
	cfg := testConfig()
	cfg.LogFile = filepath.Join(t.TempDir(), "logs.txt")

	s, _, _ := newSession(t, cfg)

	assert.Equal(t, transport.Connected, s.State())
	assert.Equal(t, cfg.LogFile, s.LogPath())
}

func TestSendGridCheckOrder(t *testing.T) {
	s, fake, _ := newSession(t, testConfig())

	err := s.SendGrid("abc")
	assert.True(t, protocol.IsInvalidInput(err))
	err = s.SendGrid("0")
	assert.True(t, protocol.IsInvalidInput(err))

	err = s.SendGrid("5")
	assert.ErrorIs(t, err, ErrNoLogFile)
	assert.Empty(t, fake.Written(), "nothing may reach the device before all checks pass")
}

func TestSendGridWritesMarkerThenFrame(t *testing.T) {
	s, fake, _ := newSession(t, testConfig())
	path := filepath.Join(t.TempDir(), "logs.txt")
	require.NoError(t, s.SelectLog(path))
	require.NoError(t, s.Toggle(0, 0))

	require.NoError(t, s.SendGrid("7"))

	want, err := protocol.EncodeRun(7, s.Grid())
	require.NoError(t, err)
	assert.Equal(t, want, fake.Written())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t,
		"[2024-01-01 10:00:00] Log file created/opened\n"+
			"[2024-01-01 10:00:01] New simulation started\n",
		string(data))
}

func TestSelectMode(t *testing.T) {
	s, fake, _ := newSession(t, testConfig())

	err := s.SelectMode("FREDKIN3")
	assert.True(t, protocol.IsInvalidInput(err))
	assert.Empty(t, fake.Written())

	require.NoError(t, s.SelectMode("fredkin2"))
	assert.Equal(t, "MODE:FREDKIN2\n", fake.Written())
}

func TestWriteFailureDegrades(t *testing.T) {
	s, fake, out := newSession(t, testConfig())
	fake.FailWrites(errors.New("device unplugged"))

	err := s.SelectMode("FREDKIN1")
	assert.True(t, transport.IsCommunicationFailure(err))
	assert.Equal(t, transport.Degraded, s.State())
	assert.Contains(t, out.String(), "● Disconnected (fake0)")

	// Degraded is terminal; a later send still reaches the (failing) port.
	err = s.SelectMode("FREDKIN1")
	assert.True(t, transport.IsCommunicationFailure(err))
	assert.Equal(t, transport.Degraded, s.State())
}

func TestToggleOutOfBounds(t *testing.T) {
	s, _, _ := newSession(t, testConfig())

	err := s.Toggle(grid.Width, 0)
	assert.True(t, protocol.IsInvalidInput(err))
	err = s.Toggle(0, -1)
	assert.True(t, protocol.IsInvalidInput(err))
	assert.Zero(t, s.Grid().Population())
}

func TestLoadGrid(t *testing.T) {
	s, _, _ := newSession(t, testConfig())
	path := filepath.Join(t.TempDir(), "glider.txt")
	require.NoError(t, os.WriteFile(path, []byte(".#.\n..#\n###\n"), 0o644))

	require.NoError(t, s.LoadGrid(path))
	assert.Equal(t, 5, s.Grid().Population())
	assert.True(t, s.Grid().Alive(1, 0))

	err := s.LoadGrid(filepath.Join(t.TempDir(), "missing.txt"))
	assert.Error(t, err)
	assert.Equal(t, 5, s.Grid().Population(), "a failed load keeps the grid")

	s.Clear()
	assert.Zero(t, s.Grid().Population())
}

func TestRunServesCommandsAndDevice(t *testing.T) {
	s, fake, out := newSession(t, testConfig())
	path := filepath.Join(t.TempDir(), "logs.txt")

	input := make(chan string)
	done := make(chan error, 1)
	go func() { done <- s.Run(context.Background(), input) }()

	input <- "log " + path
	input <- "toggle 3 4"
	input <- "send 3"
	input <- "bogus"

	fake.FeedLines("LOG,0,0,GEN:0,ALIVE:1,DEAD:1535", "GRID done")
	require.Eventually(t, func() bool { return fake.Acks() == 2 }, 2*time.Second, time.Millisecond)

	input <- "quit"
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after quit")
	}

	assert.Equal(t, 1, fake.Closed())
	assert.Contains(t, out.String(), "✓ logging to "+path)
	assert.Contains(t, out.String(), "✓ sent 3 generations")
	assert.Contains(t, out.String(), "unknown command")

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, "session_log", data)
}

func TestRunEndsOnInputClose(t *testing.T) {
	s, fake, _ := newSession(t, testConfig())

	input := make(chan string)
	close(input)

	require.NoError(t, s.Run(context.Background(), input))
	assert.Equal(t, 1, fake.Closed())
}

func TestRunEndsOnCancel(t *testing.T) {
	s, fake, _ := newSession(t, testConfig())
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := s.Run(ctx, nil)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, 1, fake.Closed())
}
