package zkteco

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// metrics is the transport's optional telemetry surface. A nil *metrics
// (the default, when no prometheus.Registerer is supplied) makes every
// method a no-op, so instrumentation never becomes a required dependency
// for using the client — grounded in the pack's socket-telemetry repos
// (runZeroInc-sockstats, runZeroInc-conniver), the nearest domain analog
// to "count things happening on a raw socket".
type metrics struct {
	commandsTotal      *prometheus.CounterVec
	bytesReceivedTotal prometheus.Counter
	chunkTimeoutsTotal prometheus.Counter
	fallbacksTotal     prometheus.Counter
}

// newMetrics registers the client's counters against reg. Pass nil to
// disable metrics entirely.
func newMetrics(reg prometheus.Registerer) *metrics {
	if reg == nil {
		return nil
	}
	factory := promauto.With(reg)
	return &metrics{
		commandsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "zkteco",
			Name:      "commands_total",
			Help:      "Commands issued to the device, by opcode name.",
		}, []string{"command"}),
		bytesReceivedTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "zkteco",
			Name:      "bytes_received_total",
			Help:      "Payload bytes received from the device across all reads.",
		}),
		chunkTimeoutsTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "zkteco",
			Name:      "chunk_reassembly_timeouts_total",
			Help:      "Chunk-idle timeouts hit while reassembling a bulk transfer.",
		}),
		fallbacksTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "zkteco",
			Name:      "tcp_to_udp_fallbacks_total",
			Help:      "Times the client façade fell back from TCP to UDP at connect time.",
		}),
	}
}

func (m *metrics) commandIssued(cmd uint16) {
	if m == nil {
		return
	}
	m.commandsTotal.WithLabelValues(commandName(cmd)).Inc()
}

func (m *metrics) bytesReceived(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.bytesReceivedTotal.Add(float64(n))
}

func (m *metrics) chunkTimeout() {
	if m == nil {
		return
	}
	m.chunkTimeoutsTotal.Inc()
}

func (m *metrics) fallback() {
	if m == nil {
		return
	}
	m.fallbacksTotal.Inc()
}
