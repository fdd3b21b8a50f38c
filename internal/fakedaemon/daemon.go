// Package fakedaemon is a scripted stand-in for an INDI daemon. It accepts
// TCP connections on loopback and answers them with canned byte streams, so
// the client can be exercised without a real instrument server.
package fakedaemon

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"sync"
	"time"
)

// Handler serves one accepted connection. Handle owns conn and must close it.
// ctx is canceled when the daemon shuts down.
type Handler interface {
	Handle(ctx context.Context, conn *net.TCPConn)
}

// HandlerFunc adapts a function to the Handler interface.
type HandlerFunc func(ctx context.Context, conn *net.TCPConn)

// Handle calls f(ctx, conn).
func (f HandlerFunc) Handle(ctx context.Context, conn *net.TCPConn) {
	f(ctx, conn)
}

// Daemon listens for client connections.
type Daemon struct {
	listener        *net.TCPListener
	logger          *slog.Logger
	shutdownTimeout time.Duration

	mu          sync.Mutex
	shutdown    bool
	shutdownNow chan struct{} // signals immediate shutdown, bypassing timeout
	handlers    sync.WaitGroup
}

// Option configures a Daemon.
type Option func(*Daemon)

// LoggerOption sets the logger for the daemon.
func LoggerOption(logger *slog.Logger) Option {
	return func(d *Daemon) {
		d.logger = logger
	}
}

// ShutdownTimeoutOption sets how long the daemon keeps accepting after its
// context is canceled. Default is 0 (immediate shutdown).
func ShutdownTimeoutOption(timeout time.Duration) Option {
	return func(d *Daemon) {
		d.shutdownTimeout = timeout
	}
}

// New creates a daemon bound to addr. Port 0 picks a free port.
func New(addr string, opts ...Option) (*Daemon, error) {
	tcpAddr, err := net.ResolveTCPAddr("tcp", addr)
	if err != nil {
		return nil, err
	}

	listener, err := net.ListenTCP("tcp", tcpAddr)
	if err != nil {
		return nil, err
	}

	d := &Daemon{
		listener:    listener,
		logger:      slog.Default(),
		shutdownNow: make(chan struct{}),
	}

	for _, opt := range opts {
		opt(d)
	}

	return d, nil
}

// Serve accepts connections and dispatches each to handler in its own
// goroutine. It blocks until ctx is canceled, Close is called or accept
// fails, and waits for running handlers before returning. It returns
// ctx.Err() on shutdown, which is nil after Close.
func (d *Daemon) Serve(ctx context.Context, handler Handler) error {
	d.logger.Info("daemon started", "addr", d.listener.Addr())

	ctx, cancel := context.WithCancel(ctx)
	// handlers are released by cancel before they are waited on
	defer d.handlers.Wait()
	defer cancel()

	go func() {
		<-ctx.Done()

		if d.shutdownTimeout > 0 {
			d.logger.Info("graceful shutdown initiated", "timeout", d.shutdownTimeout)
			select {
			case <-time.After(d.shutdownTimeout):
			case <-d.shutdownNow:
				d.logger.Debug("shutdown timeout bypassed via Close()")
			}
		}

		d.mu.Lock()
		d.shutdown = true
		d.mu.Unlock()
		// unblock Accept
		_ = d.listener.SetDeadline(time.Now())
	}()

	for {
		conn, err := d.listener.AcceptTCP()
		if err != nil {
			d.mu.Lock()
			isShutdown := d.shutdown
			d.mu.Unlock()

			if isShutdown {
				d.logger.Info("daemon stopped", "addr", d.listener.Addr())
				return ctx.Err()
			}

			var netErr net.Error
			if errors.As(err, &netErr) && netErr.Timeout() {
				continue
			}
			d.logger.Error("accept error", "error", err)
			return err
		}

		d.logger.Debug("accepted connection", "remote_addr", conn.RemoteAddr())
		_ = conn.SetNoDelay(true)

		d.handlers.Add(1)
		go func() {
			defer d.handlers.Done()
			handler.Handle(ctx, conn)
		}()
	}
}

// Close stops the daemon by closing the listener, bypassing any remaining
// shutdown timeout.
func (d *Daemon) Close() error {
	d.mu.Lock()
	d.shutdown = true
	d.mu.Unlock()

	select {
	case d.shutdownNow <- struct{}{}:
	default:
	}

	return d.listener.Close()
}

// Addr returns the listener's network address.
func (d *Daemon) Addr() *net.TCPAddr {
	return d.listener.Addr().(*net.TCPAddr)
}

// HostPort returns the listener's host and port as the client expects them.
func (d *Daemon) HostPort() (string, int) {
	addr := d.Addr()
	return addr.IP.String(), addr.Port
}
