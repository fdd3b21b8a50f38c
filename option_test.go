package indisocket

import (
	"syscall"
	"testing"
	"time"
)

func TestPollIntervalOption(t *testing.T) {
	opt := PollIntervalOption(50 * time.Millisecond)

	var opts clientOptions
	opt(&opts)

	if opts.pollInterval != 50*time.Millisecond {
		t.Errorf("pollInterval = %v, want 50ms", opts.pollInterval)
	}
}

func TestConnectTimeoutOption(t *testing.T) {
	opt := ConnectTimeoutOption(3 * time.Second)

	var opts clientOptions
	opt(&opts)

	if opts.connectTimeout != 3*time.Second {
		t.Errorf("connectTimeout = %v, want 3s", opts.connectTimeout)
	}
}

func TestReadChunkSizeOption(t *testing.T) {
	opt := ReadChunkSizeOption(512)

	var opts clientOptions
	opt(&opts)

	if opts.readChunkSize != 512 {
		t.Errorf("readChunkSize = %d, want 512", opts.readChunkSize)
	}
}

func TestMaxRecordSizeOption(t *testing.T) {
	opt := MaxRecordSizeOption(4096)

	var opts clientOptions
	opt(&opts)

	if opts.maxRecordSize != 4096 {
		t.Errorf("maxRecordSize = %d, want 4096", opts.maxRecordSize)
	}
}

func TestSelectorFactoryOption(t *testing.T) {
	called := false
	factory := func(conn syscall.Conn) (Selector, error) {
		called = true
		return deadlineSelector{}, nil
	}
	opt := SelectorFactoryOption(factory)

	var opts clientOptions
	opt(&opts)

	if opts.selectorFactory == nil {
		t.Fatal("selectorFactory is nil")
	}

	opts.selectorFactory(nil)
	if !called {
		t.Error("selector factory not called")
	}
}

func TestLoggerOption(t *testing.T) {
	logger := &mockLogger{}
	opt := LoggerOption(logger)

	var opts clientOptions
	opt(&opts)

	if opts.logger != logger {
		t.Error("logger not set correctly")
	}
}

func TestMetricsOption(t *testing.T) {
	m := &Metrics{}
	opt := MetricsOption(m)

	var opts clientOptions
	opt(&opts)

	if opts.metrics != m {
		t.Error("metrics not set correctly")
	}
}

func TestCheckClientOptions_DefaultValues(t *testing.T) {
	var opts clientOptions
	checkClientOptions(&opts)

	if opts.pollInterval != DefaultPollInterval {
		t.Errorf("pollInterval = %v, want %v", opts.pollInterval, DefaultPollInterval)
	}
	if opts.connectTimeout != DefaultConnectTimeout {
		t.Errorf("connectTimeout = %v, want %v", opts.connectTimeout, DefaultConnectTimeout)
	}
	if opts.readChunkSize != DefaultReadChunkSize {
		t.Errorf("readChunkSize = %d, want %d", opts.readChunkSize, DefaultReadChunkSize)
	}
	if opts.maxRecordSize != DefaultMaxRecordSize {
		t.Errorf("maxRecordSize = %d, want %d", opts.maxRecordSize, DefaultMaxRecordSize)
	}
	if opts.selectorFactory == nil {
		t.Error("selectorFactory not defaulted")
	}
	if opts.logger == nil {
		t.Error("logger not defaulted")
	}
	if opts.metrics != nil {
		t.Error("metrics should stay nil")
	}
}

func TestCheckClientOptions_Unlimited(t *testing.T) {
	opts := clientOptions{maxRecordSize: -1}
	checkClientOptions(&opts)

	if opts.maxRecordSize != -1 {
		t.Errorf("maxRecordSize = %d, want -1", opts.maxRecordSize)
	}
}

func TestBufferSizeOption(t *testing.T) {
	opt := BufferSizeOption(100)

	var opts sessionOptions
	opt(&opts)

	if opts.bufferSize != 100 {
		t.Errorf("bufferSize = %d, want 100", opts.bufferSize)
	}
}

func TestOnErrorOption(t *testing.T) {
	called := false
	onError := func(err error) ErrorAction {
		called = true
		return Disconnect
	}
	opt := OnErrorOption(onError)

	var opts sessionOptions
	opt(&opts)

	if opts.onError == nil {
		t.Fatal("onError is nil")
	}

	opts.onError(nil)
	if !called {
		t.Error("onError callback not called")
	}
}

func TestOnRecordOption(t *testing.T) {
	called := false
	onRecord := func(r Record) error {
		called = true
		return nil
	}
	opt := OnRecordOption(onRecord)

	var opts sessionOptions
	opt(&opts)

	if opts.onRecord == nil {
		t.Fatal("onRecord is nil")
	}

	opts.onRecord(nil)
	if !called {
		t.Error("onRecord callback not called")
	}
}

func TestSessionOptions_MultipleOptions(t *testing.T) {
	logger := &mockLogger{}
	onRecord := func(r Record) error { return nil }
	onError := func(err error) ErrorAction { return Continue }

	var opts sessionOptions
	options := []SessionOption{
		OnRecordOption(onRecord),
		OnErrorOption(onError),
		BufferSizeOption(50),
		SessionLoggerOption(logger),
	}

	for _, opt := range options {
		opt(&opts)
	}

	if opts.onRecord == nil {
		t.Error("onRecord not set")
	}
	if opts.onError == nil || opts.onError(nil) != Continue {
		t.Error("onError not set")
	}
	if opts.bufferSize != 50 {
		t.Errorf("bufferSize = %d, want 50", opts.bufferSize)
	}
	if opts.logger != logger {
		t.Error("logger not set")
	}
}

func TestErrorAction(t *testing.T) {
	if Disconnect != 0 {
		t.Errorf("Disconnect = %d, want 0", Disconnect)
	}

	if Continue != 1 {
		t.Errorf("Continue = %d, want 1", Continue)
	}
}
