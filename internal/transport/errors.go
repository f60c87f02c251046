package transport

import (
	"errors"
	"fmt"
)

// ErrorCode categorizes transport failures.
type ErrorCode string

const (
	// ErrCodePortUnavailable: the port could not be opened, or no port is open.
	ErrCodePortUnavailable ErrorCode = "PORT_UNAVAILABLE"

	// ErrCodeCommunication: a read or write failed on an open port.
	ErrCodeCommunication ErrorCode = "COMMUNICATION_FAILURE"
)

// Error is returned by every failing Transport operation.
type Error struct {
	Code ErrorCode
	Op   string // "open", "read", "write"
	Port string
	Err  error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s %s: %v", e.Code, e.Op, e.Port, e.Err)
	}
	return fmt.Sprintf("%s: %s %s", e.Code, e.Op, e.Port)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// ErrNotOpen is wrapped by PortUnavailable errors raised when no port is open.
var ErrNotOpen = errors.New("serial port not available")

// ErrWriteStalled is wrapped by CommunicationFailure errors for writes refused
// because an earlier write timed out and has not completed.
var ErrWriteStalled = errors.New("previous write still pending")

// ErrLineTooLong is wrapped by CommunicationFailure errors for inbound lines
// longer than MaxLineLength.
var ErrLineTooLong = errors.New("inbound line too long")

// IsPortUnavailable reports whether err is a PortUnavailable transport error.
func IsPortUnavailable(err error) bool {
	var te *Error
	if errors.As(err, &te) {
		return te.Code == ErrCodePortUnavailable
	}
	return false
}

// IsCommunicationFailure reports whether err is a mid-session I/O failure.
func IsCommunicationFailure(err error) bool {
	var te *Error
	if errors.As(err, &te) {
		return te.Code == ErrCodeCommunication
	}
	return false
}

// Unavailable builds the error used when an operation needs a port and there is none.
func Unavailable(port string) *Error {
	return &Error{Code: ErrCodePortUnavailable, Op: "write", Port: port, Err: ErrNotOpen}
}
