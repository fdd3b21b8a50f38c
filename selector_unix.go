//go:build unix

package indisocket

import (
	"net"
	"sync/atomic"
	"syscall"
	"time"

	"golang.org/x/sys/unix"
)

var defaultSelectorFactory SelectorFactory = newPollSelector

// pollSelector waits on the socket descriptor with poll(2).
//
// The wait runs inside RawConn.Control, which pins the descriptor, so a
// concurrent Close of the socket completes only once the wait returns.
type pollSelector struct {
	raw    syscall.RawConn
	closed atomic.Bool
}

func newPollSelector(conn syscall.Conn) (Selector, error) {
	raw, err := conn.SyscallConn()
	if err != nil {
		return nil, err
	}
	return &pollSelector{raw: raw}, nil
}

func (s *pollSelector) Wait(timeout time.Duration) (bool, error) {
	if s.closed.Load() {
		return false, net.ErrClosed
	}

	var (
		n       int
		pollErr error
	)
	err := s.raw.Control(func(fd uintptr) {
		fds := []unix.PollFd{{Fd: int32(fd), Events: unix.POLLIN}}
		n, pollErr = unix.Poll(fds, pollMillis(timeout))
	})
	if err != nil {
		return false, err
	}
	if pollErr != nil {
		if pollErr == unix.EINTR {
			return false, nil
		}
		return false, pollErr
	}
	return n > 0, nil
}

func (s *pollSelector) Close() error {
	s.closed.Store(true)
	return nil
}

// pollMillis converts timeout to poll(2) milliseconds, rounding up so that a
// positive timeout never becomes a non-blocking poll.
func pollMillis(timeout time.Duration) int {
	if timeout <= 0 {
		return 0
	}
	return int((timeout + time.Millisecond - 1) / time.Millisecond)
}
