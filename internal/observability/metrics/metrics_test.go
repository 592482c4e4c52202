package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
)

func TestConversationMetricsObserve(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewConversationMetrics(reg)
	m.ObserveTurn("respond", "ok", 0.25)
	m.ObserveLLMFallback("reply")
}

func TestConversationMetricsNilSafe(t *testing.T) {
	var m *ConversationMetrics
	m.ObserveTurn("respond", "ok", 0.25)
	m.ObserveLLMFallback("reply")
}

func TestMessagingMetricsObserve(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMessagingMetrics(reg)
	m.ObserveInbound("message", "ok")
	m.ObserveOutbound("sent")
}

func TestMessagingMetricsNilSafe(t *testing.T) {
	var m *MessagingMetrics
	m.ObserveInbound("message", "ok")
	m.ObserveOutbound("sent")
}
