package indisocket

import (
	"errors"
	"io"
	"net"
	"os"
	"syscall"
	"testing"
)

func TestClassifyIOError(t *testing.T) {
	other := errors.New("boom")

	tests := []struct {
		name string
		err  error
		want error
	}{
		{"eof", io.EOF, ErrPeerClosed},
		{"broken pipe", &net.OpError{Op: "write", Err: os.NewSyscallError("write", syscall.EPIPE)}, ErrPeerClosed},
		{"reset", &net.OpError{Op: "read", Err: os.NewSyscallError("read", syscall.ECONNRESET)}, ErrPeerClosed},
		{"closed", &net.OpError{Op: "read", Err: net.ErrClosed}, ErrNotConnected},
		{"other", other, other},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := classifyIOError("read", tt.err); !errors.Is(got, tt.want) {
				t.Errorf("classifyIOError(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}

	var ioErr *IOError
	if err := classifyIOError("select", other); !errors.As(err, &ioErr) || ioErr.Op != "select" {
		t.Errorf("expected *IOError with op select, got %v", err)
	}
	if got := classifyIOError("send", io.EOF).Error(); got != "send: peer closed connection" {
		t.Errorf("Error() = %q", got)
	}
}

func TestConnectError(t *testing.T) {
	err := &ConnectError{Addr: "127.0.0.1:7624", Err: syscall.ECONNREFUSED}

	if err.Error() != "connect 127.0.0.1:7624: connection refused" {
		t.Errorf("Error() = %q", err.Error())
	}
	if !errors.Is(err, syscall.ECONNREFUSED) {
		t.Error("ConnectError should unwrap to its cause")
	}
}

func TestIsTimeout(t *testing.T) {
	if !isTimeout(os.ErrDeadlineExceeded) {
		t.Error("deadline exceeded should be a timeout")
	}
	if isTimeout(io.EOF) {
		t.Error("EOF is not a timeout")
	}
}
