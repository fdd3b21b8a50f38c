// Package indisocket provides a line-framed TCP client for INDI-style
// instrument daemons.
//
// A Client connects to the daemon (port 7624 by default), sends opaque
// request strings such as a getProperties discovery request, and returns the
// daemon's reply stream as records: maximal runs of bytes between CR or LF
// delimiters. Records are raw bytes; the client does not parse XML.
//
// Read waits on a readiness selector with a bounded timeout so that another
// goroutine can stop a blocked reader with Terminate. The shutdown order is
// Terminate, wait for the reader to return the empty sentinel, Disconnect.
package indisocket

import (
	"context"
	"net"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"
)

// State is the lifecycle stage of a Client.
type State int

const (
	// StateFresh is a client that has never connected, or whose Connect failed.
	StateFresh State = iota
	// StateOpen is a connected client.
	StateOpen
	// StateTerminating is a connected client after Terminate.
	StateTerminating
	// StateClosed is a client after Disconnect. It cannot be reused.
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateFresh:
		return "fresh"
	case StateOpen:
		return "open"
	case StateTerminating:
		return "terminating"
	case StateClosed:
		return "closed"
	default:
		return "state(" + strconv.Itoa(int(s)) + ")"
	}
}

// Client is one TCP conversation with a daemon.
//
// Read must be called from a single goroutine. Terminate, Disconnect and
// State may be called from any goroutine.
type Client struct {
	opts clientOptions

	mu     sync.Mutex
	conn   *net.TCPConn
	sel    Selector
	logger Logger
	closed bool

	terminating atomic.Bool

	// reader side only
	framer        *Framer
	buf           []byte
	sentinelGiven bool
}

// NewClient creates a Client in StateFresh.
func NewClient(opt ...ClientOption) *Client {
	var opts clientOptions
	for _, o := range opt {
		o(&opts)
	}
	checkClientOptions(&opts)

	return &Client{
		opts:   opts,
		logger: opts.logger,
		framer: NewFramer(opts.maxRecordSize),
		buf:    make([]byte, opts.readChunkSize),
	}
}

// Connect establishes a TCP connection to host:port and registers it with a
// readiness selector.
//
// On failure nothing is kept open, the client stays in StateFresh and
// Connect may be retried. The returned error is a *ConnectError.
func (c *Client) Connect(ctx context.Context, host string, port int) error {
	if err := c.checkConnectable(); err != nil {
		return err
	}

	addr := net.JoinHostPort(host, strconv.Itoa(port))
	logger := withFields(c.opts.logger, "addr", addr)
	logger.Debug("connecting", "timeout", c.opts.connectTimeout)

	dialer := net.Dialer{Timeout: c.opts.connectTimeout}
	raw, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		logger.Debug("connect failed", "error", err)
		return &ConnectError{Addr: addr, Err: err}
	}

	conn := raw.(*net.TCPConn)
	_ = conn.SetNoDelay(true)

	sel, err := c.opts.selectorFactory(conn)
	if err != nil {
		conn.Close()
		return &ConnectError{Addr: addr, Err: errors.Wrap(err, "open selector")}
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	// Disconnect or another Connect may have run while dialing.
	if err := c.connectableLocked(); err != nil {
		sel.Close()
		conn.Close()
		return err
	}

	c.conn = conn
	c.sel = sel
	c.logger = logger
	c.framer.Reset()
	c.opts.metrics.setConnected(true)

	logger.Info("connected", "local_addr", conn.LocalAddr())
	return nil
}

func (c *Client) checkConnectable() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connectableLocked()
}

func (c *Client) connectableLocked() error {
	switch {
	case c.closed:
		return ErrClientClosed
	case c.conn != nil:
		return ErrAlreadyConnected
	default:
		return nil
	}
}

// Send writes text to the daemon, looping until every byte has been handed
// to the kernel. Send is not cancellable.
//
// A write that accepts zero bytes, or a broken pipe, returns ErrPeerClosed.
func (c *Client) Send(text string) error {
	conn, _, logger := c.snapshot()
	if conn == nil || c.terminating.Load() {
		return ErrNotConnected
	}

	b := []byte(text)
	total := 0
	for total < len(b) {
		n, err := conn.Write(b[total:])
		total += n
		c.opts.metrics.addSent(n)
		if err != nil {
			logger.Debug("send failed", "sent", total, "size", len(b), "error", err)
			return classifyIOError("send", err)
		}
		if n == 0 {
			return ErrPeerClosed
		}
	}

	logger.Debug("sent", "bytes", total)
	return nil
}

// Read returns the next record, without its framing byte.
//
// Read blocks until a record is complete or Terminate is observed. Records
// already received are delivered first; after that the first Read to see the
// terminate flag returns the empty record and a nil error, and later calls
// return ErrNotConnected.
//
// A daemon that closes the connection makes Read return ErrPeerClosed.
func (c *Client) Read() (Record, error) {
	if state := c.State(); state == StateFresh || state == StateClosed {
		return nil, ErrNotConnected
	}

	for {
		if r, ok, err := c.framer.Next(); ok {
			if err != nil {
				return nil, err
			}
			c.opts.metrics.incRecords()
			return r, nil
		}

		if c.terminating.Load() {
			if c.sentinelGiven {
				return nil, ErrNotConnected
			}
			c.sentinelGiven = true
			return Record{}, nil
		}

		if err := c.receive(); err != nil {
			if c.terminating.Load() {
				// Disconnect closed the socket under us.
				continue
			}
			return nil, err
		}
	}
}

// receive performs bounded selector waits until one read has been fed to the
// framer, or the terminate flag is set.
func (c *Client) receive() error {
	conn, sel, logger := c.snapshot()
	if conn == nil {
		return ErrNotConnected
	}

	for !c.terminating.Load() {
		c.opts.metrics.incPolls()
		ready, err := sel.Wait(c.opts.pollInterval)
		if err != nil {
			return classifyIOError("select", err)
		}
		if !ready {
			continue
		}

		_ = conn.SetReadDeadline(time.Now().Add(c.opts.pollInterval))
		n, err := conn.Read(c.buf)
		if n > 0 {
			c.opts.metrics.addReceived(n)
			if ferr := c.framer.Feed(c.buf[:n]); ferr != nil {
				c.opts.metrics.incOversized()
				logger.Warn("record dropped", "limit", c.opts.maxRecordSize, "error", ferr)
			}
		}

		switch {
		case err == nil && n > 0:
			return nil
		case err == nil:
			continue
		case isTimeout(err):
			continue
		default:
			logger.Debug("read failed", "error", err)
			return classifyIOError("read", err)
		}
	}
	return nil
}

// Terminate asks a blocked Read to return. It is safe to call from any
// goroutine and does not close the socket.
func (c *Client) Terminate() {
	if !c.terminating.Swap(true) {
		c.currentLogger().Debug("terminate requested")
	}
}

// Disconnect releases the selector and closes the socket. It is idempotent.
//
// Disconnect also sets the terminate flag. Callers that run Read in another
// goroutine should Terminate and wait for the reader first.
func (c *Client) Disconnect() error {
	c.terminating.Store(true)

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil
	}
	c.closed = true

	var err error
	if c.sel != nil {
		err = c.sel.Close()
		c.sel = nil
	}
	if c.conn != nil {
		if cerr := c.conn.Close(); cerr != nil && err == nil {
			err = cerr
		}
		c.conn = nil
		c.opts.metrics.setConnected(false)
		c.logger.Info("disconnected")
	}

	if err != nil {
		return &IOError{Op: "disconnect", Err: err}
	}
	return nil
}

// State returns the client's lifecycle stage.
func (c *Client) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch {
	case c.closed:
		return StateClosed
	case c.conn == nil:
		return StateFresh
	case c.terminating.Load():
		return StateTerminating
	default:
		return StateOpen
	}
}

// RemoteAddr returns the daemon address, or nil when not connected.
func (c *Client) RemoteAddr() net.Addr {
	conn, _, _ := c.snapshot()
	if conn == nil {
		return nil
	}
	return conn.RemoteAddr()
}

// Pending returns the size of the unfinished record held by the reader.
// Call it from the reader goroutine only.
func (c *Client) Pending() int {
	return c.framer.Pending()
}

func (c *Client) snapshot() (*net.TCPConn, Selector, Logger) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn, c.sel, c.logger
}

func (c *Client) currentLogger() Logger {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.logger
}
