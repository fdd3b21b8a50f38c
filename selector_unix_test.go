//go:build unix

package indisocket

import (
	"errors"
	"net"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestPollSelector_Wait(t *testing.T) {
	client, peer := connectTestPair(t)
	conn, sel, _ := client.snapshot()

	if _, ok := sel.(*pollSelector); !ok {
		t.Fatalf("default selector is %T, want *pollSelector", sel)
	}

	start := time.Now()
	ready, err := sel.Wait(50 * time.Millisecond)
	if err != nil || ready {
		t.Fatalf("Wait on idle socket = %v, %v; want false, nil", ready, err)
	}
	if time.Since(start) < 40*time.Millisecond {
		t.Error("Wait returned before its timeout")
	}

	write(t, peer, "x")
	ready, err = sel.Wait(time.Second)
	if err != nil || !ready {
		t.Errorf("Wait with pending data = %v, %v; want true, nil", ready, err)
	}

	// hang-up counts as readable
	buf := make([]byte, 1)
	conn.Read(buf)
	peer.Close()
	ready, err = sel.Wait(time.Second)
	if err != nil || !ready {
		t.Errorf("Wait after peer close = %v, %v; want true, nil", ready, err)
	}
}

func TestPollSelector_Closed(t *testing.T) {
	client, _ := connectTestPair(t)
	_, sel, _ := client.snapshot()

	if err := sel.Close(); err != nil {
		t.Fatal(err)
	}
	if _, err := sel.Wait(time.Millisecond); !errors.Is(err, net.ErrClosed) {
		t.Errorf("Wait after Close = %v, want net.ErrClosed", err)
	}
}

func TestPollMillis(t *testing.T) {
	tests := map[time.Duration]int{
		0:                       0,
		-time.Second:            0,
		time.Nanosecond:         1,
		500 * time.Microsecond:  1,
		time.Millisecond:        1,
		1500 * time.Microsecond: 2,
		500 * time.Millisecond:  500,
	}
	for timeout, want := range tests {
		if got := pollMillis(timeout); got != want {
			t.Errorf("pollMillis(%v) = %d, want %d", timeout, got, want)
		}
	}
}

func TestClient_SubMillisecondPollDoesNotSpin(t *testing.T) {
	m, err := NewMetrics(nil, "test")
	if err != nil {
		t.Fatal(err)
	}
	client, _ := connectTestPair(t, MetricsOption(m), PollIntervalOption(500*time.Microsecond))

	pending := readAsync(client)
	time.Sleep(100 * time.Millisecond)
	client.Terminate()

	select {
	case res := <-pending:
		if res.err != nil || !res.record.IsSentinel() {
			t.Errorf("Read = %q, %v; want sentinel", res.record, res.err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Read did not observe Terminate")
	}

	// each wait blocks for at least a millisecond
	if polls := testutil.ToFloat64(m.Polls); polls > 300 {
		t.Errorf("polls in 100ms = %v, want at most 300", polls)
	}
}
