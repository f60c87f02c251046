package transport

import "sync"

// State is the connectivity of the serial link as shown to the user.
type State int

const (
	// Disconnected: no port is open (never opened, or open failed).
	Disconnected State = iota
	// Connected: the port is open and no I/O has failed yet.
	Connected
	// Degraded: a read or write failed mid-session. Terminal until restart.
	Degraded
)

func (s State) String() string {
	switch s {
	case Disconnected:
		return "disconnected"
	case Connected:
		return "connected"
	case Degraded:
		return "degraded"
	default:
		return "unknown"
	}
}

// Label is the text of the status indicator.
func (s State) Label() string {
	switch s {
	case Connected:
		return "Connected"
	case Degraded:
		return "Disconnected"
	default:
		return "Not connected"
	}
}

// Status holds the single ConnectionState of a session.
//
// It is owned by the session context and handed to Open explicitly; there is
// no package-level state. Degraded never reverts: later transitions are ignored.
//
// Thread-safety: Status is read by the session loop and written by the
// Transport from the same loop, but the mutex keeps State() safe for tests and
// status printers running elsewhere.
type Status struct {
	mu       sync.Mutex
	state    State
	onChange func(from, to State)
}

// NewStatus returns a Disconnected status. onChange, if non-nil, is called
// after every effective transition.
func NewStatus(onChange func(from, to State)) *Status {
	return &Status{state: Disconnected, onChange: onChange}
}

// State returns the current state.
func (s *Status) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// set moves to the given state, honouring Degraded as terminal.
func (s *Status) set(to State) {
	s.mu.Lock()
	from := s.state
	if from == to || from == Degraded {
		s.mu.Unlock()
		return
	}
	s.state = to
	hook := s.onChange
	s.mu.Unlock()

	if hook != nil {
		hook(from, to)
	}
}

func (s *Status) connected()    { s.set(Connected) }
func (s *Status) disconnected() { s.set(Disconnected) }

// degrade only applies to a live link; a never-opened link stays Disconnected.
func (s *Status) degrade() {
	if s.State() == Connected {
		s.set(Degraded)
	}
}
