package indisocket

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
)

// Errors returned by session operations.
var (
	// ErrInvalidOnRecord is returned when no record handler is provided.
	ErrInvalidOnRecord = errors.New("invalid on record callback")
	// ErrSessionClosed is returned when queueing a request on a closed session.
	ErrSessionClosed = errors.New("session closed")
	// ErrBufferFull is returned when the request queue cannot accept more requests.
	ErrBufferFull = errors.New("send buffer full")
)

// defaultSessionBufferSize is the default size of the request queue.
const defaultSessionBufferSize = 16

// Session drives a connected Client from two goroutines: a reader that hands
// every record to the OnRecord handler, and a writer that sends queued
// requests. It owns the client once Run starts and disconnects it on return.
type Session struct {
	client *Client
	logger Logger
	opts   sessionOptions

	requests chan string
	closed   atomic.Bool

	mu     sync.Mutex
	cancel context.CancelFunc
}

// NewSession wraps a connected client. OnRecordOption is required.
func NewSession(client *Client, opt ...SessionOption) (*Session, error) {
	var opts sessionOptions
	for _, o := range opt {
		o(&opts)
	}

	if err := checkSessionOptions(&opts); err != nil {
		return nil, err
	}

	return &Session{
		client:   client,
		logger:   opts.logger,
		opts:     opts,
		requests: make(chan string, opts.bufferSize),
	}, nil
}

// checkSessionOptions validates and sets default values for session options.
func checkSessionOptions(opts *sessionOptions) error {
	if opts.onRecord == nil {
		return ErrInvalidOnRecord
	}

	if opts.bufferSize <= 0 {
		opts.bufferSize = defaultSessionBufferSize
	}

	if opts.onError == nil {
		opts.onError = defaultOnError
	}

	if opts.logger == nil {
		opts.logger = defaultLogger()
	}

	return nil
}

// Run starts the read and write loops and blocks until the context is
// canceled, the client is terminated, or an unrecoverable error occurs.
// The client is terminated, drained and disconnected before Run returns.
//
// Run returns context.Canceled after a clean shutdown.
func (s *Session) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	s.mu.Lock()
	if s.closed.Load() {
		s.mu.Unlock()
		return ErrSessionClosed
	}
	s.cancel = cancel
	s.mu.Unlock()

	s.logger.Debug("session started", "addr", s.client.RemoteAddr(), "buffer_size", s.opts.bufferSize)

	group, child := errgroup.WithContext(ctx)

	group.Go(func() error {
		return s.readLoop(child, cancel)
	})

	group.Go(func() error {
		return s.writeLoop(child)
	})

	group.Go(func() error {
		<-child.Done()
		s.client.Terminate()
		return nil
	})

	err := group.Wait()
	s.closed.Store(true)
	if derr := s.client.Disconnect(); derr != nil {
		s.logger.Warn("disconnect failed", "error", derr)
	}

	if err != nil && !errors.Is(err, context.Canceled) {
		s.logger.Info("session closed with error", "error", err)
	} else {
		s.logger.Info("session closed")
	}

	return err
}

// Close stops the session. Safe to call multiple times.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed.Swap(true) {
		return nil
	}
	if s.cancel != nil {
		s.cancel()
		return nil
	}
	// never ran: nobody else will release the client
	return s.client.Disconnect()
}

// IsClosed returns true if the session has been closed.
func (s *Session) IsClosed() bool {
	return s.closed.Load()
}

// Send queues a request without blocking.
//
// Returns ErrBufferFull when the queue is full; the request is NOT queued.
func (s *Session) Send(req string) error {
	if s.closed.Load() {
		return ErrSessionClosed
	}

	select {
	case s.requests <- req:
		return nil
	default:
		return ErrBufferFull
	}
}

// SendBlocking queues a request, waiting until there is room or ctx ends.
func (s *Session) SendBlocking(ctx context.Context, req string) error {
	if s.closed.Load() {
		return ErrSessionClosed
	}

	select {
	case s.requests <- req:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// SendTimeout queues a request, waiting at most timeout for room in the queue.
func (s *Session) SendTimeout(req string, timeout time.Duration) error {
	if s.closed.Load() {
		return ErrSessionClosed
	}

	select {
	case s.requests <- req:
		return nil
	case <-time.After(timeout):
		return ErrBufferFull
	}
}

// readLoop hands records to the handler until the client returns the
// shutdown sentinel or fails. A sentinel caused by Terminate on the client
// itself cancels the session so the writer stops too.
func (s *Session) readLoop(ctx context.Context, stop context.CancelFunc) error {
	for {
		record, err := s.client.Read()
		if err != nil {
			s.logger.Debug("read error", "error", err)
			if s.opts.onError(err) == Disconnect || isFatal(err) {
				return err
			}
			continue
		}

		if record.IsSentinel() {
			if err := ctx.Err(); err != nil {
				return err
			}
			stop()
			return nil
		}

		if err := s.opts.onRecord(record); err != nil {
			return err
		}
	}
}

// writeLoop sends queued requests until the session is canceled.
func (s *Session) writeLoop(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case req := <-s.requests:
			if err := s.client.Send(req); err != nil {
				s.logger.Debug("send error", "error", err)
				if s.opts.onError(err) == Disconnect || isFatal(err) {
					return err
				}
			}
		}
	}
}

// defaultOnError skips dropped oversized records and stops on anything else.
func defaultOnError(err error) ErrorAction {
	if errors.Is(err, ErrRecordTooLarge) {
		return Continue
	}
	return Disconnect
}

// isFatal reports whether err leaves the connection unusable.
func isFatal(err error) bool {
	return !errors.Is(err, ErrRecordTooLarge)
}

// Stream runs a Session over client and delivers records on a channel with
// the given buffer size; a negative size means unbuffered. The channel is closed when the session ends; the
// returned function waits for that and reports the session's error.
func Stream(ctx context.Context, client *Client, size int, opt ...SessionOption) (<-chan Record, func() error, error) {
	if size < 0 {
		size = 0
	}
	ch := make(chan Record, size)

	opt = append(opt, OnRecordOption(func(r Record) error {
		select {
		case ch <- r:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}))

	s, err := NewSession(client, opt...)
	if err != nil {
		return nil, nil, err
	}

	var runErr error
	done := make(chan struct{})
	go func() {
		runErr = s.Run(ctx)
		close(ch)
		close(done)
	}()

	return ch, func() error {
		<-done
		return runErr
	}, nil
}
