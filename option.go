package indisocket

import (
	"time"
)

// Default client configuration values.
const (
	// DefaultPollInterval bounds each selector wait, and therefore how long
	// Read takes to notice Terminate on a quiet socket.
	DefaultPollInterval = 500 * time.Millisecond
	// DefaultConnectTimeout bounds the TCP handshake in Connect.
	DefaultConnectTimeout = 10 * time.Second
	// DefaultReadChunkSize is the size of a single socket read.
	DefaultReadChunkSize = 4096
	// DefaultMaxRecordSize is the largest record Read will deliver (1MB).
	DefaultMaxRecordSize = 1024 * 1024
)

// ErrorAction defines the action to take when an error occurs.
type ErrorAction int

const (
	// Disconnect stops the session when an error occurs.
	Disconnect ErrorAction = iota
	// Continue suppresses the error and continues processing.
	Continue
)

// clientOptions holds the configuration for a Client.
type clientOptions struct {
	logger          Logger
	metrics         *Metrics
	selectorFactory SelectorFactory

	pollInterval   time.Duration
	connectTimeout time.Duration
	readChunkSize  int
	maxRecordSize  int // negative disables the limit
}

// ClientOption is a function that configures a Client.
type ClientOption func(*clientOptions)

// checkClientOptions fills unset client options with defaults.
func checkClientOptions(opts *clientOptions) {
	if opts.pollInterval <= 0 {
		opts.pollInterval = DefaultPollInterval
	}

	if opts.connectTimeout <= 0 {
		opts.connectTimeout = DefaultConnectTimeout
	}

	if opts.readChunkSize <= 0 {
		opts.readChunkSize = DefaultReadChunkSize
	}

	if opts.maxRecordSize == 0 {
		opts.maxRecordSize = DefaultMaxRecordSize
	}

	if opts.selectorFactory == nil {
		opts.selectorFactory = defaultSelectorFactory
	}

	if opts.logger == nil {
		opts.logger = defaultLogger()
	}
}

// LoggerOption returns a ClientOption that sets the logger.
// If not set, the default slog logger will be used.
func LoggerOption(logger Logger) ClientOption {
	return func(o *clientOptions) {
		o.logger = logger
	}
}

// MetricsOption returns a ClientOption that records traffic counters into m.
func MetricsOption(m *Metrics) ClientOption {
	return func(o *clientOptions) {
		o.metrics = m
	}
}

// PollIntervalOption returns a ClientOption that sets the bound on each
// selector wait. Terminate is observed at most one interval late.
func PollIntervalOption(d time.Duration) ClientOption {
	return func(o *clientOptions) {
		o.pollInterval = d
	}
}

// ConnectTimeoutOption returns a ClientOption that bounds the TCP handshake.
func ConnectTimeoutOption(d time.Duration) ClientOption {
	return func(o *clientOptions) {
		o.connectTimeout = d
	}
}

// ReadChunkSizeOption returns a ClientOption that sets how many bytes a
// single socket read may return.
func ReadChunkSizeOption(size int) ClientOption {
	return func(o *clientOptions) {
		o.readChunkSize = size
	}
}

// MaxRecordSizeOption returns a ClientOption that caps the size of a record.
// Larger records are dropped and Read returns ErrRecordTooLarge.
// A negative size removes the limit.
func MaxRecordSizeOption(size int) ClientOption {
	return func(o *clientOptions) {
		o.maxRecordSize = size
	}
}

// SelectorFactoryOption returns a ClientOption that replaces the readiness
// selector used by Read.
func SelectorFactoryOption(f SelectorFactory) ClientOption {
	return func(o *clientOptions) {
		o.selectorFactory = f
	}
}

// sessionOptions holds the configuration for a Session.
type sessionOptions struct {
	logger Logger

	onRecord func(record Record) error
	// onError is called when reading or sending fails.
	// Returns Disconnect to stop the session, Continue to suppress the error.
	onError func(error) ErrorAction

	bufferSize int // size of the request channel
}

// SessionOption is a function that configures a Session.
type SessionOption func(*sessionOptions)

// OnRecordOption returns a SessionOption that sets the record handler.
// This callback is required and is invoked for each received record.
func OnRecordOption(cb func(Record) error) SessionOption {
	return func(o *sessionOptions) {
		o.onRecord = cb
	}
}

// OnErrorOption returns a SessionOption that sets the error callback.
// Return Disconnect to stop the session, or Continue to suppress the error.
func OnErrorOption(cb func(error) ErrorAction) SessionOption {
	return func(o *sessionOptions) {
		o.onError = cb
	}
}

// BufferSizeOption returns a SessionOption that sets the size of the
// request channel. A larger buffer allows more requests to be queued.
func BufferSizeOption(size int) SessionOption {
	return func(o *sessionOptions) {
		o.bufferSize = size
	}
}

// SessionLoggerOption returns a SessionOption that sets the logger.
func SessionLoggerOption(logger Logger) SessionOption {
	return func(o *sessionOptions) {
		o.logger = logger
	}
}
