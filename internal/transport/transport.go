// Package transport owns the serial link to the device.
//
// A Transport wraps one open port. Writes are short and synchronous. Reads
// never block the caller: a reader goroutine performs the timeout-bounded
// port reads and hands raw chunks over a channel, and PollRead assembles
// complete lines from them on the caller's goroutine.
//
// Writes are bounded by the same timeout as reads: a write the device does not
// take within Config.Timeout fails instead of blocking the caller.
//
// Every failure is reflected in the session's Status: an open failure leaves it
// Disconnected, any later read or write failure moves it to Degraded.
package transport

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"
)

// Session constants the firmware is built against.
const (
	DefaultBaudRate    = 115200
	DefaultTimeout     = time.Second
	DefaultSettleDelay = 2 * time.Second
)

// MaxLineLength bounds an inbound line. A longer run of bytes without a
// newline is a framing failure.
const MaxLineLength = 4096

// Port is the subset of a serial port the Transport needs.
// go.bug.st/serial.Port satisfies it.
type Port interface {
	io.ReadWriteCloser
	Drain() error
}

// Opener opens a port. readTimeout bounds every Read call.
type Opener func(name string, baud int, readTimeout time.Duration) (Port, error)

// Config describes the link. Values are environment-specific and never negotiated.
type Config struct {
	Port        string
	BaudRate    int
	Timeout     time.Duration
	SettleDelay time.Duration
}

// Option configures Open.
type Option func(*openOptions)

type openOptions struct {
	opener Opener
}

// WithOpener replaces the serial opener (tests use a fake port).
func WithOpener(o Opener) Option {
	return func(oo *openOptions) {
		oo.opener = o
	}
}

type chunk struct {
	data []byte
	err  error
}

// Transport is an open serial link.
//
// Write and PollRead must be called from a single goroutine.
type Transport struct {
	cfg    Config
	port   Port
	status *Status

	chunks  chan chunk
	pending []byte

	// stalled holds the result of a write that outlived its timeout.
	stalled chan error

	done      chan struct{}
	closeOnce sync.Once
	closed    bool
}

// Open opens the configured port and waits SettleDelay for the device to reset.
//
// On failure status is set to Disconnected and a PortUnavailable error is returned.
func Open(ctx context.Context, cfg Config, status *Status, opts ...Option) (*Transport, error) {
	oo := openOptions{opener: openSerial}
	for _, opt := range opts {
		opt(&oo)
	}
	if cfg.BaudRate == 0 {
		cfg.BaudRate = DefaultBaudRate
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}

	slog.Debug("opening serial port", "port", cfg.Port, "baud", cfg.BaudRate, "timeout", cfg.Timeout)
	port, err := oo.opener(cfg.Port, cfg.BaudRate, cfg.Timeout)
	if err != nil {
		status.disconnected()
		return nil, &Error{Code: ErrCodePortUnavailable, Op: "open", Port: cfg.Port, Err: err}
	}

	if cfg.SettleDelay > 0 {
		timer := time.NewTimer(cfg.SettleDelay)
		select {
		case <-ctx.Done():
			timer.Stop()
			port.Close()
			status.disconnected()
			return nil, &Error{Code: ErrCodePortUnavailable, Op: "open", Port: cfg.Port, Err: ctx.Err()}
		case <-timer.C:
		}
	}

	t := &Transport{
		cfg:    cfg,
		port:   port,
		status: status,
		chunks: make(chan chunk, 64),
		done:   make(chan struct{}),
	}
	go t.readLoop()

	status.connected()
	slog.Info("serial port open", "port", cfg.Port)
	return t, nil
}

// Port returns the configured port name.
func (t *Transport) Port() string {
	return t.cfg.Port
}

// IsOpen reports whether the handle is still held.
func (t *Transport) IsOpen() bool {
	return t != nil && !t.closed
}

// Write sends p and drains the output buffer, giving up after the configured
// timeout. Any failure demotes the status to Degraded. While a timed-out write
// is still stuck in the port, later writes fail at once with ErrWriteStalled.
func (t *Transport) Write(p []byte) error {
	if !t.IsOpen() {
		port := ""
		if t != nil {
			port = t.cfg.Port
		}
		return Unavailable(port)
	}

	if t.stalled != nil {
		select {
		case <-t.stalled:
			t.stalled = nil
		default:
			return t.writeFailed(ErrWriteStalled)
		}
	}

	data := append([]byte(nil), p...)
	result := make(chan error, 1)
	go func() {
		result <- t.writeAndDrain(data)
	}()

	timer := time.NewTimer(t.cfg.Timeout)
	defer timer.Stop()
	select {
	case err := <-result:
		if err != nil {
			return t.writeFailed(err)
		}
		return nil
	case <-timer.C:
		t.stalled = result
		slog.Warn("serial write timed out", "port", t.cfg.Port, "timeout", t.cfg.Timeout)
		return t.writeFailed(fmt.Errorf("write timed out after %s", t.cfg.Timeout))
	}
}

func (t *Transport) writeAndDrain(p []byte) error {
	n, err := t.port.Write(p)
	if err == nil && n < len(p) {
		err = io.ErrShortWrite
	}
	if err == nil {
		err = t.port.Drain()
	}
	return err
}

func (t *Transport) writeFailed(err error) error {
	t.status.degrade()
	return &Error{Code: ErrCodeCommunication, Op: "write", Port: t.cfg.Port, Err: err}
}

// WriteString is Write for protocol frames.
func (t *Transport) WriteString(s string) error {
	return t.Write([]byte(s))
}

// PollRead returns the next complete line, without its terminator, if one is
// buffered. It never waits for data.
func (t *Transport) PollRead() (string, bool, error) {
	if !t.IsOpen() {
		return "", false, nil
	}
	for {
		if line, ok := t.nextLine(); ok {
			return line, true, nil
		}
		if len(t.pending) > MaxLineLength {
			n := len(t.pending)
			t.pending = t.pending[:0]
			t.status.degrade()
			return "", false, &Error{Code: ErrCodeCommunication, Op: "read", Port: t.cfg.Port,
				Err: fmt.Errorf("%d bytes without a line break: %w", n, ErrLineTooLong)}
		}
		if t.chunks == nil {
			return "", false, nil
		}
		select {
		case c, ok := <-t.chunks:
			if !ok {
				t.chunks = nil
				return "", false, nil
			}
			if c.err != nil {
				t.status.degrade()
				return "", false, &Error{Code: ErrCodeCommunication, Op: "read", Port: t.cfg.Port, Err: c.err}
			}
			t.pending = append(t.pending, c.data...)
		default:
			return "", false, nil
		}
	}
}

// nextLine pops one '\n'-terminated line from the pending buffer.
func (t *Transport) nextLine() (string, bool) {
	i := bytes.IndexByte(t.pending, '\n')
	if i < 0 {
		return "", false
	}
	line := bytes.TrimSuffix(t.pending[:i], []byte{'\r'})
	s := string(line)

	rest := t.pending[i+1:]
	if len(rest) == 0 {
		t.pending = t.pending[:0]
	} else {
		t.pending = append(t.pending[:0], rest...)
	}
	return s, true
}

// Close stops the reader and releases the port. Safe to call repeatedly.
func (t *Transport) Close() error {
	if t == nil {
		return nil
	}
	var err error
	t.closeOnce.Do(func() {
		t.closed = true
		close(t.done)
		err = t.port.Close()
		slog.Info("serial port closed", "port", t.cfg.Port)
	})
	return err
}

// readLoop runs on its own goroutine until Close or the first read error.
// Each Read returns within the configured timeout, so done is observed promptly.
func (t *Transport) readLoop() {
	defer close(t.chunks)
	buf := make([]byte, 512)
	for {
		n, err := t.port.Read(buf)
		if n > 0 {
			data := make([]byte, n)
			copy(data, buf[:n])
			select {
			case t.chunks <- chunk{data: data}:
			case <-t.done:
				return
			}
		}
		if err != nil {
			select {
			case <-t.done:
				// Reads fail once the port is closed under us.
			case t.chunks <- chunk{err: fmt.Errorf("read: %w", err)}:
			}
			return
		}
		select {
		case <-t.done:
			return
		default:
		}
	}
}
