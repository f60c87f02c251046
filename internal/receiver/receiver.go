// Package receiver drains device output into the log sink.
//
// The receiver is a fixed-interval poll, not a blocking read loop: each Tick
// handles at most one inbound line and returns immediately when nothing is
// buffered, so it can share a single event loop with user input.
//
// Per line:
//  1. classify: "LOG," prefix is a stats event, anything else is raw output
//  2. append to the sink (stats with a timestamp, raw blank-padded)
//  3. answer the device with "OK\n"
//
// Failures never stop the poll. Read and ack failures demote the link to
// Degraded (the transport does that) and are reported; sink failures are
// reported and the line is dropped. The ack is sent even when the line could
// not be stored, so the device never waits on a full disk.
package receiver

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/roach88/fredkin/internal/logsink"
	"github.com/roach88/fredkin/internal/protocol"
)

// DefaultInterval is the poll period.
const DefaultInterval = 100 * time.Millisecond

// Link is the transport side the receiver reads from and acknowledges on.
// *transport.Transport satisfies it.
type Link interface {
	IsOpen() bool
	PollRead() (string, bool, error)
	WriteString(s string) error
}

// Sink stores received lines. *logsink.Sink satisfies it.
type Sink interface {
	Append(text string, withTimestamp bool) error
}

// Reporter surfaces errors to the user at the moment they happen.
type Reporter func(err error)

// Receiver polls a Link and forwards lines to a Sink.
type Receiver struct {
	link   func() Link
	sink   Sink
	report Reporter
}

// New creates a receiver. link is called on every tick so a session may start
// without a port and the receiver stays a no-op; report may be nil.
func New(link func() Link, sink Sink, report Reporter) *Receiver {
	if report == nil {
		report = func(error) {}
	}
	return &Receiver{link: link, sink: sink, report: report}
}

// Tick performs one poll. It reports whether a line was handled.
func (r *Receiver) Tick() bool {
	link := r.link()
	if link == nil || !link.IsOpen() {
		return false
	}

	line, ok, err := link.PollRead()
	if err != nil {
		slog.Warn("device read failed", "error", err)
		r.report(err)
		return false
	}
	if !ok || line == "" {
		return false
	}

	stats := protocol.IsStats(line)
	if err := r.sink.Append(line, stats); err != nil {
		if errors.Is(err, logsink.ErrNotBound) {
			slog.Debug("no log file selected, dropping line", "line", line)
		} else {
			slog.Error("log write failed, dropping line", "error", err)
			r.report(err)
		}
	}

	if err := link.WriteString(protocol.Ack); err != nil {
		slog.Warn("acknowledgement failed", "error", err)
		r.report(err)
	}
	return true
}

// Run ticks every interval until ctx is done. It never stops on an I/O error.
func (r *Receiver) Run(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		interval = DefaultInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			r.Tick()
		}
	}
}
