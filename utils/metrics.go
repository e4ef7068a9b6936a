package utils

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus collectors for the chat room and the device engine.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	chatMembers          prometheus.Gauge
	chatMessages         prometheus.Counter
	chatRejections       *prometheus.CounterVec
	deviceDecisions      *prometheus.CounterVec
	fingerprintFallbacks prometheus.Counter
}

// NewMetrics creates and registers all collectors on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		chatMembers: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "subzero_chat_members",
			Help: "Number of connections currently joined to the chat room",
		}),
		chatMessages: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "subzero_chat_messages_total",
			Help: "Total number of chat messages accepted",
		}),
		chatRejections: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "subzero_chat_rejections_total",
			Help: "Chat actions rejected with an error event, by reason",
		}, []string{"reason"}),
		deviceDecisions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "subzero_device_restriction_decisions_total",
			Help: "Device restriction decisions, by outcome",
		}, []string{"outcome"}),
		fingerprintFallbacks: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "subzero_fingerprint_fallbacks_total",
			Help: "Fingerprints computed from the reduced fallback signal set",
		}),
	}
	reg.MustRegister(m.chatMembers, m.chatMessages, m.chatRejections, m.deviceDecisions, m.fingerprintFallbacks)
	return m
}

func (m *Metrics) SetChatMembers(n int) {
	if m == nil {
		return
	}
	m.chatMembers.Set(float64(n))
}

func (m *Metrics) RecordChatMessage() {
	if m == nil {
		return
	}
	m.chatMessages.Inc()
}

func (m *Metrics) RecordChatRejection(reason string) {
	if m == nil {
		return
	}
	m.chatRejections.WithLabelValues(reason).Inc()
}

func (m *Metrics) RecordDeviceDecision(outcome string) {
	if m == nil {
		return
	}
	m.deviceDecisions.WithLabelValues(outcome).Inc()
}

func (m *Metrics) RecordFingerprintFallback() {
	if m == nil {
		return
	}
	m.fingerprintFallbacks.Inc()
}
