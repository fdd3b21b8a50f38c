package indisocket

import (
	"fmt"
	"io"
	"net"
	"syscall"

	"github.com/pkg/errors"
)

// Errors returned by client operations.
var (
	// ErrNotConnected is returned when Read or Send is called on a client
	// that is not open.
	ErrNotConnected = errors.New("not connected")
	// ErrAlreadyConnected is returned when Connect is called on an open client.
	ErrAlreadyConnected = errors.New("already connected")
	// ErrClientClosed is returned when Connect is called after Disconnect.
	ErrClientClosed = errors.New("client closed")
	// ErrPeerClosed is returned when the daemon has closed its end of the
	// connection: a write accepted zero bytes, or a read after readiness hit EOF.
	ErrPeerClosed = errors.New("peer closed connection")
	// ErrRecordTooLarge is returned when a record exceeds the configured
	// maximum size. The oversized record is discarded.
	ErrRecordTooLarge = errors.New("record too large")
)

// ConnectError reports a failed Connect. The client stays in StateFresh
// and may be connected again.
type ConnectError struct {
	Addr string
	Err  error
}

// Error implements the error interface.
func (e *ConnectError) Error() string {
	return fmt.Sprintf("connect %s: %v", e.Addr, e.Err)
}

// Unwrap returns the underlying cause for errors.Is/As support.
func (e *ConnectError) Unwrap() error {
	return e.Err
}

// IOError reports a socket or selector failure that is neither a peer
// close nor a connect failure.
type IOError struct {
	Op  string
	Err error
}

// Error implements the error interface.
func (e *IOError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

// Unwrap returns the underlying cause for errors.Is/As support.
func (e *IOError) Unwrap() error {
	return e.Err
}

// classifyIOError maps a raw socket error onto the error taxonomy.
func classifyIOError(op string, err error) error {
	switch {
	case errors.Is(err, io.EOF),
		errors.Is(err, syscall.EPIPE),
		errors.Is(err, syscall.ECONNRESET):
		return errors.Wrap(ErrPeerClosed, op)
	case errors.Is(err, net.ErrClosed):
		return ErrNotConnected
	default:
		return &IOError{Op: op, Err: err}
	}
}

// isTimeout reports whether err is a network deadline expiry.
func isTimeout(err error) bool {
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
