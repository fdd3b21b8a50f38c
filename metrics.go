package indisocket

import (
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds Prometheus collectors for client traffic.
// A nil *Metrics records nothing.
type Metrics struct {
	Records       prometheus.Counter
	BytesReceived prometheus.Counter
	BytesSent     prometheus.Counter
	Oversized     prometheus.Counter
	Polls         prometheus.Counter
	Connected     prometheus.Gauge
}

// NewMetrics creates the client collectors under the given namespace and
// registers them with reg. A nil reg skips registration.
func NewMetrics(reg prometheus.Registerer, namespace string) (*Metrics, error) {
	newCounter := func(name, help string) prometheus.Counter {
		return prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "client",
			Name:      name,
			Help:      help,
		})
	}

	m := &Metrics{
		Records:       newCounter("records_total", "Records delivered by Read."),
		BytesReceived: newCounter("bytes_received_total", "Bytes read from the daemon."),
		BytesSent:     newCounter("bytes_sent_total", "Bytes written to the daemon."),
		Oversized:     newCounter("oversized_records_total", "Records dropped for exceeding the size limit."),
		Polls:         newCounter("polls_total", "Selector waits performed by Read."),
		Connected: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "client",
			Name:      "connected",
			Help:      "1 while the client holds an open connection.",
		}),
	}

	if reg != nil {
		for _, c := range m.collectors() {
			if err := reg.Register(c); err != nil {
				return nil, errors.Wrap(err, "register client metrics")
			}
		}
	}
	return m, nil
}

func (m *Metrics) collectors() []prometheus.Collector {
	return []prometheus.Collector{m.Records, m.BytesReceived, m.BytesSent, m.Oversized, m.Polls, m.Connected}
}

func (m *Metrics) addReceived(n int) {
	if m != nil && n > 0 {
		m.BytesReceived.Add(float64(n))
	}
}

func (m *Metrics) addSent(n int) {
	if m != nil && n > 0 {
		m.BytesSent.Add(float64(n))
	}
}

func (m *Metrics) incRecords() {
	if m != nil {
		m.Records.Inc()
	}
}

func (m *Metrics) incOversized() {
	if m != nil {
		m.Oversized.Inc()
	}
}

func (m *Metrics) incPolls() {
	if m != nil {
		m.Polls.Inc()
	}
}

func (m *Metrics) setConnected(up bool) {
	if m == nil {
		return
	}
	if up {
		m.Connected.Set(1)
	} else {
		m.Connected.Set(0)
	}
}
