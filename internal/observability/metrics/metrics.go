package metrics

import "github.com/prometheus/client_golang/prometheus"

// ConversationMetrics exposes counters/histograms for lead-concierge turns.
type ConversationMetrics struct {
	turnsTotal   *prometheus.CounterVec
	turnLatency  *prometheus.HistogramVec
	llmFallbacks *prometheus.CounterVec
}

func NewConversationMetrics(reg prometheus.Registerer) *ConversationMetrics {
	m := &ConversationMetrics{
		turnsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "rental",
			Subsystem: "conversation",
			Name:      "turns_total",
			Help:      "Total processed conversation turns",
		}, []string{"phase", "status"}),
		turnLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "rental",
			Subsystem: "conversation",
			Name:      "turn_latency_seconds",
			Help:      "Latency of full turn processing",
			Buckets:   prometheus.DefBuckets,
		}, []string{"phase"}),
		llmFallbacks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "rental",
			Subsystem: "conversation",
			Name:      "llm_fallback_total",
			Help:      "Turns where an LLM collaborator failed and canned text was used",
		}, []string{"collaborator"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.turnsTotal, m.turnLatency, m.llmFallbacks)
	return m
}

func (m *ConversationMetrics) ObserveTurn(phase, status string, seconds float64) {
	if m == nil {
		return
	}
	m.turnsTotal.WithLabelValues(phase, status).Inc()
	m.turnLatency.WithLabelValues(phase).Observe(seconds)
}

func (m *ConversationMetrics) ObserveLLMFallback(collaborator string) {
	if m == nil {
		return
	}
	m.llmFallbacks.WithLabelValues(collaborator).Inc()
}

// MessagingMetrics exposes counters for the WhatsApp webhook and sender.
type MessagingMetrics struct {
	inboundTotal  *prometheus.CounterVec
	outboundTotal *prometheus.CounterVec
}

func NewMessagingMetrics(reg prometheus.Registerer) *MessagingMetrics {
	m := &MessagingMetrics{
		inboundTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "rental",
			Subsystem: "messaging",
			Name:      "inbound_webhook_total",
			Help:      "Total inbound WhatsApp webhooks",
		}, []string{"event_type", "status"}),
		outboundTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "rental",
			Subsystem: "messaging",
			Name:      "outbound_total",
			Help:      "Total outbound WhatsApp sends",
		}, []string{"status"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.inboundTotal, m.outboundTotal)
	return m
}

func (m *MessagingMetrics) ObserveInbound(eventType, status string) {
	if m == nil {
		return
	}
	m.inboundTotal.WithLabelValues(eventType, status).Inc()
}

func (m *MessagingMetrics) ObserveOutbound(status string) {
	if m == nil {
		return
	}
	m.outboundTotal.WithLabelValues(status).Inc()
}
