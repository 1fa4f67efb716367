package wallet

import (
	"testing"
)

func TestMetrics_Registration(t *testing.T) {
	if MarketBalance == nil {
		t.Error("MarketBalance not registered")
	}
	if UpdateErrorsTotal == nil {
		t.Error("UpdateErrorsTotal not registered")
	}
	if UpdateDuration == nil {
		t.Error("UpdateDuration not registered")
	}
	if LastUpdateTimestamp == nil {
		t.Error("LastUpdateTimestamp not registered")
	}
	if TransfersSubmittedTotal == nil {
		t.Error("TransfersSubmittedTotal not registered")
	}
}

func TestMetrics_Increment(t *testing.T) {
	UpdateErrorsTotal.Inc()
	TransfersSubmittedTotal.WithLabelValues("ok").Inc()
	MarketBalance.WithLabelValues("eth").Set(1)
	UpdateDuration.Observe(0.1)
}
