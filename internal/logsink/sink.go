// Package logsink appends device output to a user-chosen text file.
//
// Every write reopens the file in append mode and writes one whole line with
// a single write call, so several sessions may append to the same file and a
// reader (the offline parser) always sees a stable prefix. The file is never
// truncated.
//
// Line format:
//
//	[2024-01-01 10:00:01] LOG,x,y,GEN:0,ALIVE:10,DEAD:1526   timestamped
//	                      GRID 0101...                       raw, blank-padded
package logsink

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"
)

// TimestampLayout is the printed timestamp format (YYYY-MM-DD HH:MM:SS).
const TimestampLayout = "2006-01-02 15:04:05"

// PadWidth is the width of "[" + timestamp + "] ", used to align raw lines.
const PadWidth = len(TimestampLayout) + 3

// Marker lines written by the control panel.
const (
	MarkerOpened       = "Log file created/opened"
	MarkerSessionStart = "New simulation started"
)

var padding = strings.Repeat(" ", PadWidth)

// ErrNotBound is returned by Append before any file has been selected.
var ErrNotBound = errors.New("no log file selected")

// ErrCodeSinkIO marks failures to open or write the log file.
const ErrCodeSinkIO = "SINK_IO_FAILURE"

// Error reports a failed sink write. The line it carried is dropped.
type Error struct {
	Path string
	Err  error
}

// Error implements the error interface.
func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s: %v", ErrCodeSinkIO, e.Path, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// IsSinkFailure reports whether err is a sink I/O failure.
func IsSinkFailure(err error) bool {
	var se *Error
	return errors.As(err, &se)
}

// Sink is an append-only log file binding.
// The zero value is unbound; Select binds it.
type Sink struct {
	path string
	now  func() time.Time
}

// Option configures a Sink.
type Option func(*Sink)

// WithClock replaces time.Now for timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Sink) {
		s.now = now
	}
}

// New returns an unbound sink.
func New(opts ...Option) *Sink {
	s := &Sink{now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Path returns the bound path, or "" when unbound.
func (s *Sink) Path() string {
	return s.path
}

// Bound reports whether a file has been selected.
func (s *Sink) Bound() bool {
	return s.path != ""
}

// Select binds the sink to path, creating the file if needed, and records
// the opened marker. The previous binding is kept if the file cannot be written.
func (s *Sink) Select(path string) error {
	if path == "" {
		return &Error{Path: path, Err: errors.New("empty path")}
	}
	if err := s.appendTo(path, FormatLine(s.now(), MarkerOpened, true)); err != nil {
		return err
	}
	s.path = path
	slog.Info("log file selected", "path", path)
	return nil
}

// Append writes one line, timestamped or blank-padded.
func (s *Sink) Append(text string, withTimestamp bool) error {
	if !s.Bound() {
		return ErrNotBound
	}
	return s.appendTo(s.path, FormatLine(s.now(), text, withTimestamp))
}

// MarkSessionStart records the start of a simulation run.
func (s *Sink) MarkSessionStart() error {
	return s.Append(MarkerSessionStart, true)
}

func (s *Sink) appendTo(path, line string) error {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return &Error{Path: path, Err: err}
	}
	_, werr := f.WriteString(line)
	cerr := f.Close()
	if werr != nil {
		return &Error{Path: path, Err: werr}
	}
	if cerr != nil {
		return &Error{Path: path, Err: cerr}
	}
	return nil
}

// FormatLine renders one log line including the trailing newline.
func FormatLine(now time.Time, text string, withTimestamp bool) string {
	if withTimestamp {
		return "[" + now.Format(TimestampLayout) + "] " + text + "\n"
	}
	return padding + text + "\n"
}
