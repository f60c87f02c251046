// Package session is the control panel: one value that owns the grid, the
// connection status, the serial link and the log sink, plus the event loop
// that serves user commands and the receiver poll on a single goroutine.
package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/roach88/fredkin/internal/config"
	"github.com/roach88/fredkin/internal/grid"
	"github.com/roach88/fredkin/internal/logsink"
	"github.com/roach88/fredkin/internal/printer"
	"github.com/roach88/fredkin/internal/protocol"
	"github.com/roach88/fredkin/internal/receiver"
	"github.com/roach88/fredkin/internal/transport"
)

// ErrNoLogFile is returned by SendGrid before a log file has been selected.
var ErrNoLogFile = errors.New("no log file selected, use 'log PATH' first")

// Context is the state of one control-panel session.
//
// All methods must be called from the goroutine running Run (or, before Run
// starts, from the goroutine that created the Context).
type Context struct {
	cfg    config.Config
	grid   *grid.Grid
	status *transport.Status
	link   *transport.Transport
	sink   *logsink.Sink
	recv   *receiver.Receiver
	out    *printer.Printer

	openErr error
}

// Option configures New.
type Option func(*options)

type options struct {
	transportOpts []transport.Option
	sinkOpts      []logsink.Option
}

// WithTransportOptions passes options to transport.Open.
func WithTransportOptions(opts ...transport.Option) Option {
	return func(o *options) {
		o.transportOpts = append(o.transportOpts, opts...)
	}
}

// WithSinkOptions passes options to logsink.New.
func WithSinkOptions(opts ...logsink.Option) Option {
	return func(o *options) {
		o.sinkOpts = append(o.sinkOpts, opts...)
	}
}

// New creates a session and tries to open the configured port.
//
// A port that cannot be opened leaves the session Disconnected: grid editing
// and log selection still work, sends fail with PortUnavailable. The open
// error is kept for the caller (see OpenError) rather than printed here. If
// cfg.LogFile is set the sink is bound to it.
func New(ctx context.Context, cfg config.Config, out io.Writer, opts ...Option) *Context {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	s := &Context{
		cfg:  cfg,
		grid: grid.New(),
		sink: logsink.New(o.sinkOpts...),
		out:  printer.New(out),
	}
	s.status = transport.NewStatus(s.onStateChange)
	s.recv = receiver.New(s.receiverLink, s.sink, s.Report)

	link, err := transport.Open(ctx, cfg.TransportConfig(), s.status, o.transportOpts...)
	if err != nil {
		slog.Warn("serial port unavailable", "port", cfg.Port, "error", err)
		s.openErr = err
		s.out.Status(cfg.Port, s.status.State())
	} else {
		s.link = link
	}

	if cfg.LogFile != "" {
		if err := s.SelectLog(cfg.LogFile); err != nil {
			s.Report(err)
		}
	}
	return s
}

// OpenError returns the error from opening the port, or nil if it opened.
func (s *Context) OpenError() error {
	return s.openErr
}

// Grid returns the session grid.
func (s *Context) Grid() *grid.Grid {
	return s.grid
}

// State returns the connection state.
func (s *Context) State() transport.State {
	return s.status.State()
}

// LogPath returns the bound log file, or "".
func (s *Context) LogPath() string {
	return s.sink.Path()
}

// Printer returns the console printer.
func (s *Context) Printer() *printer.Printer {
	return s.out
}

// Report prints err to the console. It is the receiver's error reporter.
func (s *Context) Report(err error) {
	if err != nil {
		s.out.Error(err)
	}
}

func (s *Context) onStateChange(from, to transport.State) {
	slog.Debug("connection state changed", "from", from, "to", to)
	s.out.Status(s.cfg.Port, to)
}

func (s *Context) receiverLink() receiver.Link {
	if s.link == nil {
		return nil
	}
	return s.link
}

func (s *Context) requireLink() error {
	if !s.link.IsOpen() {
		return transport.Unavailable(s.cfg.Port)
	}
	return nil
}

// SendGrid starts a simulation of the current grid for the typed number of
// generations. Checks run in order: open port, valid count, bound log file.
// The session-start marker is written to the log before the command goes out.
func (s *Context) SendGrid(generations string) error {
	if err := s.requireLink(); err != nil {
		return err
	}
	n, err := protocol.ParseGenerations(generations)
	if err != nil {
		return err
	}
	frame, err := protocol.RunSimulation{Generations: n, Grid: s.grid}.Encode()
	if err != nil {
		return err
	}
	if !s.sink.Bound() {
		return ErrNoLogFile
	}

	if err := s.sink.MarkSessionStart(); err != nil {
		// The command still goes out; only the marker line is lost.
		s.Report(err)
	}
	if err := s.link.WriteString(frame); err != nil {
		return err
	}
	slog.Info("simulation sent", "generations", n, "population", s.grid.Population())
	return nil
}

// SelectMode switches the device's rule variant.
func (s *Context) SelectMode(name string) error {
	if err := s.requireLink(); err != nil {
		return err
	}
	v, err := protocol.ParseVariant(name)
	if err != nil {
		return err
	}
	frame, err := protocol.SelectMode{Variant: v}.Encode()
	if err != nil {
		return err
	}
	if err := s.link.WriteString(frame); err != nil {
		return err
	}
	slog.Info("mode selected", "variant", v)
	return nil
}

// SelectLog binds the log sink to path.
func (s *Context) SelectLog(path string) error {
	return s.sink.Select(path)
}

// Toggle flips one cell. Coordinates outside the grid are rejected.
func (s *Context) Toggle(x, y int) error {
	if !grid.InBounds(x, y) {
		return &protocol.InputError{
			Field:   "cell",
			Value:   fmt.Sprintf("%d %d", x, y),
			Message: fmt.Sprintf("must be within %dx%d", grid.Width, grid.Height),
		}
	}
	s.grid.Toggle(x, y)
	return nil
}

// Clear kills every cell.
func (s *Context) Clear() {
	s.grid.Clear()
}

// LoadGrid replaces the grid with a painted text file.
func (s *Context) LoadGrid(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("load grid: %w", err)
	}
	defer f.Close()

	g, err := grid.Load(f)
	if err != nil {
		return fmt.Errorf("load grid %s: %w", path, err)
	}
	s.grid = g
	return nil
}

// Poll runs one receiver tick.
func (s *Context) Poll() bool {
	return s.recv.Tick()
}

// Close releases the serial port.
func (s *Context) Close() error {
	if s.link == nil {
		return nil
	}
	return s.link.Close()
}

// Run serves input lines and the receiver poll until quit, end of input or
// ctx cancellation, then closes the port. A nil input channel means no user
// commands: the loop only receives.
//
// Command errors are printed and never end the loop.
func (s *Context) Run(ctx context.Context, input <-chan string) error {
	defer s.Close()

	interval := s.cfg.PollInterval
	if interval <= 0 {
		interval = receiver.DefaultInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			s.Poll()
		case line, ok := <-input:
			if !ok {
				slog.Debug("input closed")
				return nil
			}
			quit, err := s.Dispatch(line)
			if err != nil {
				s.Report(err)
			}
			if quit {
				return nil
			}
		}
	}
}
