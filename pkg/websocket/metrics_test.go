package websocket

import (
	"testing"
)

func TestMetrics_Registration(t *testing.T) {
	if ActiveConnections == nil {
		t.Error("ActiveConnections not registered")
	}
	if ReconnectAttemptsTotal == nil {
		t.Error("ReconnectAttemptsTotal not registered")
	}
	if ReconnectFailuresTotal == nil {
		t.Error("ReconnectFailuresTotal not registered")
	}
	if MessagesReceivedTotal == nil {
		t.Error("MessagesReceivedTotal not registered")
	}
	if SubscriptionCount == nil {
		t.Error("SubscriptionCount not registered")
	}
	if MessagesDroppedTotal == nil {
		t.Error("MessagesDroppedTotal not registered")
	}
	if ConnectionDuration == nil {
		t.Error("ConnectionDuration not registered")
	}
}

func TestMetrics_Labels(t *testing.T) {
	MessagesReceivedTotal.WithLabelValues("native:uscrt").Inc()
	MessagesDroppedTotal.WithLabelValues("channel_full").Inc()
	ConnectionDuration.Observe(3600)
}
