package receiver

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/fredkin/internal/logsink"
	"github.com/roach88/fredkin/internal/testutil"
	"github.com/roach88/fredkin/internal/transport"
)

// scriptedLink yields queued lines synchronously and records writes.
type scriptedLink struct {
	open     bool
	lines    []string
	readErr  error
	writeErr error
	writes   []string
}

func (l *scriptedLink) IsOpen() bool { return l.open }

func (l *scriptedLink) PollRead() (string, bool, error) {
	if l.readErr != nil {
		err := l.readErr
		l.readErr = nil
		return "", false, err
	}
	if len(l.lines) == 0 {
		return "", false, nil
	}
	line := l.lines[0]
	l.lines = l.lines[1:]
	return line, true, nil
}

func (l *scriptedLink) WriteString(s string) error {
	if l.writeErr != nil {
		return l.writeErr
	}
	l.writes = append(l.writes, s)
	return nil
}

// memorySink records appended lines.
type memorySink struct {
	err   error
	lines []appended
}

type appended struct {
	text    string
	stamped bool
}

func (s *memorySink) Append(text string, withTimestamp bool) error {
	if s.err != nil {
		return s.err
	}
	s.lines = append(s.lines, appended{text, withTimestamp})
	return nil
}

func staticLink(l Link) func() Link {
	return func() Link { return l }
}

func TestTickClassifiesAndAcknowledges(t *testing.T) {
	link := &scriptedLink{open: true, lines: []string{"LOG,a,b,GEN:0,ALIVE:100,DEAD:1436", "hello"}}
	sink := &memorySink{}
	r := New(staticLink(link), sink, nil)

	for i := 0; i < 5; i++ {
		r.Tick()
	}

	assert.Equal(t, []appended{
		{"LOG,a,b,GEN:0,ALIVE:100,DEAD:1436", true},
		{"hello", false},
	}, sink.lines)
	assert.Equal(t, []string{"OK\n", "OK\n"}, link.writes)
}

func TestTickWithoutLinkIsNoop(t *testing.T) {
	sink := &memorySink{}
	r := New(func() Link { return nil }, sink, nil)
	assert.False(t, r.Tick())

	closed := &scriptedLink{open: false, lines: []string{"hello"}}
	r = New(staticLink(closed), sink, nil)
	assert.False(t, r.Tick())
	assert.Empty(t, sink.lines)
	assert.Equal(t, []string{"hello"}, closed.lines)
}

func TestTickIgnoresEmptyLines(t *testing.T) {
	link := &scriptedLink{open: true, lines: []string{""}}
	sink := &memorySink{}
	r := New(staticLink(link), sink, nil)

	assert.False(t, r.Tick())
	assert.Empty(t, sink.lines)
	assert.Empty(t, link.writes)
}

func TestTickReportsReadFailureAndContinues(t *testing.T) {
	link := &scriptedLink{open: true, readErr: errors.New("read failed"), lines: []string{"hello"}}
	sink := &memorySink{}
	var reported []error
	r := New(staticLink(link), sink, func(err error) { reported = append(reported, err) })

	assert.False(t, r.Tick())
	assert.True(t, r.Tick())

	require.Len(t, reported, 1)
	assert.EqualError(t, reported[0], "read failed")
	assert.Equal(t, []appended{{"hello", false}}, sink.lines)
}

func TestTickKeepsLineWhenAckFails(t *testing.T) {
	link := &scriptedLink{open: true, lines: []string{"LOG,1"}, writeErr: errors.New("write failed")}
	sink := &memorySink{}
	var reported []error
	r := New(staticLink(link), sink, func(err error) { reported = append(reported, err) })

	assert.True(t, r.Tick())
	assert.Equal(t, []appended{{"LOG,1", true}}, sink.lines)
	require.Len(t, reported, 1)
}

func TestTickAcksWhenSinkFails(t *testing.T) {
	link := &scriptedLink{open: true, lines: []string{"hello"}}
	sinkErr := &logsink.Error{Path: "x", Err: errors.New("disk full")}
	var reported []error
	r := New(staticLink(link), &memorySink{err: sinkErr}, func(err error) { reported = append(reported, err) })

	assert.True(t, r.Tick())
	assert.Equal(t, []string{"OK\n"}, link.writes)
	require.Len(t, reported, 1)
	assert.True(t, logsink.IsSinkFailure(reported[0]))
}

func TestTickUnboundSinkDropsQuietly(t *testing.T) {
	link := &scriptedLink{open: true, lines: []string{"hello"}}
	var reported []error
	r := New(staticLink(link), logsink.New(), func(err error) { reported = append(reported, err) })

	assert.True(t, r.Tick())
	assert.Empty(t, reported)
	assert.Equal(t, []string{"OK\n"}, link.writes)
}

func TestRunStopsOnlyOnContext(t *testing.T) {
	link := &scriptedLink{open: true, readErr: errors.New("read failed")}
	r := New(staticLink(link), &memorySink{}, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	err := r.Run(ctx, time.Millisecond)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestReceiverOverSerialTransport(t *testing.T) {
	clock := testutil.NewStepClock(time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC), time.Second)
	sink := logsink.New(logsink.WithClock(clock.Now))
	path := filepath.Join(t.TempDir(), "logs_fredkin.txt")
	require.NoError(t, sink.Select(path))

	fake := testutil.NewFakePort()
	status := transport.NewStatus(nil)
	tr, err := transport.Open(context.Background(), transport.Config{Port: "fake0"}, status,
		transport.WithOpener(func(string, int, time.Duration) (transport.Port, error) { return fake, nil }))
	require.NoError(t, err)
	defer tr.Close()

	fake.FeedLines(
		"LOG,a,b,GEN:0,ALIVE:100,DEAD:1436",
		"hello",
		"LOG,x,y,GEN:1,ALIVE:98,DEAD:1438",
	)

	r := New(func() Link { return tr }, sink, nil)
	handled := 0
	require.Eventually(t, func() bool {
		if r.Tick() {
			handled++
		}
		return handled == 3
	}, 2*time.Second, time.Millisecond)

	assert.Equal(t, 3, fake.Acks())
	assert.Equal(t, transport.Connected, status.State())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, 4, strings.Count(string(data), "\n"))

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, "receiver_session", data)
}
