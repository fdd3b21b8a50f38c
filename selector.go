package indisocket

import (
	"syscall"
	"time"
)

// Selector waits for a socket to become readable.
//
// Wait blocks for at most timeout and reports whether a read would make
// progress. A hang-up or socket error counts as readable so that the read
// which follows can surface it. Close releases the selector; it does not
// close the socket.
type Selector interface {
	Wait(timeout time.Duration) (ready bool, err error)
	Close() error
}

// SelectorFactory opens a Selector for a connected socket.
type SelectorFactory func(conn syscall.Conn) (Selector, error)

// deadlineSelector reports every wait as ready and leaves the bound on
// blocking to the read deadline the client arms before each read.
type deadlineSelector struct{}

func newDeadlineSelector(syscall.Conn) (Selector, error) {
	return deadlineSelector{}, nil
}

func (deadlineSelector) Wait(time.Duration) (bool, error) {
	return true, nil
}

func (deadlineSelector) Close() error {
	return nil
}
