package testutil

import (
	"bytes"
	"errors"
	"strings"
	"sync"
	"time"
)

// ErrPortClosed is returned by FakePort reads, and by held writes, after Close.
var ErrPortClosed = errors.New("fake port closed")

// FakePort is an in-memory serial port.
//
// Inbound data is queued with Feed and handed out by Read; an empty queue
// behaves like a read timeout (0 bytes, nil error) after a short pause, the
// way a real port with a read timeout does. Written bytes are recorded.
//
// Thread-safety: safe for one reader goroutine plus one writer goroutine.
type FakePort struct {
	mu       sync.Mutex
	inbound  [][]byte
	written  bytes.Buffer
	writeErr error
	drainErr error
	readErr  error
	closed   int

	gate chan struct{} // non-nil while writes are held
	done chan struct{} // closed by the first Close
}

// NewFakePort creates an empty fake port.
func NewFakePort() *FakePort {
	return &FakePort{done: make(chan struct{})}
}

// Feed queues inbound bytes as a single chunk.
func (p *FakePort) Feed(s string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.inbound = append(p.inbound, []byte(s))
}

// FeedLines queues each line with a trailing '\n'.
func (p *FakePort) FeedLines(lines ...string) {
	for _, l := range lines {
		p.Feed(l + "\n")
	}
}

// FailWrites makes every later Write return err.
func (p *FakePort) FailWrites(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.writeErr = err
}

// FailDrain makes every later Drain return err.
func (p *FakePort) FailDrain(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.drainErr = err
}

// FailReads makes the next Read return err.
func (p *FakePort) FailReads(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.readErr = err
}

// BlockWrites makes later Writes hang, like a wedged device, until
// ReleaseWrites or Close.
func (p *FakePort) BlockWrites() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.gate == nil {
		p.gate = make(chan struct{})
	}
}

// ReleaseWrites lets held and later Writes through.
func (p *FakePort) ReleaseWrites() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.gate != nil {
		close(p.gate)
		p.gate = nil
	}
}

// Read implements io.Reader.
func (p *FakePort) Read(b []byte) (int, error) {
	p.mu.Lock()
	if p.closed > 0 {
		p.mu.Unlock()
		return 0, ErrPortClosed
	}
	if p.readErr != nil {
		err := p.readErr
		p.readErr = nil
		p.mu.Unlock()
		return 0, err
	}
	if len(p.inbound) == 0 {
		p.mu.Unlock()
		time.Sleep(time.Millisecond)
		return 0, nil
	}
	head := p.inbound[0]
	n := copy(b, head)
	if n == len(head) {
		p.inbound = p.inbound[1:]
	} else {
		p.inbound[0] = head[n:]
	}
	p.mu.Unlock()
	return n, nil
}

// Write implements io.Writer.
func (p *FakePort) Write(b []byte) (int, error) {
	p.mu.Lock()
	if gate := p.gate; gate != nil {
		p.mu.Unlock()
		select {
		case <-gate:
		case <-p.done:
			return 0, ErrPortClosed
		}
		p.mu.Lock()
	}
	defer p.mu.Unlock()
	if p.writeErr != nil {
		return 0, p.writeErr
	}
	return p.written.Write(b)
}

// Drain implements transport.Port.
func (p *FakePort) Drain() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.drainErr
}

// Close implements io.Closer. Calls are counted.
func (p *FakePort) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed++
	if p.closed == 1 {
		close(p.done)
	}
	return nil
}

// Written returns everything written so far.
func (p *FakePort) Written() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.written.String()
}

// Acks counts "OK\n" frames written so far.
func (p *FakePort) Acks() int {
	return strings.Count(p.Written(), "OK\n")
}

// Closed returns how many times Close was called.
func (p *FakePort) Closed() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closed
}
