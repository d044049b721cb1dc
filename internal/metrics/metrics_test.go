package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ObserveGateDecision(true, "trial")
		m.ObserveQuote(true)
		m.ObservePayment("COMPLETED")
		m.ObserveGatewayCall("auth", 200)
	})
}

func TestCountersIncrement(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.ObserveGateDecision(false, "expired")
	m.ObserveGateDecision(false, "expired")
	m.ObserveGateDecision(true, "trial")
	m.ObserveQuote(true)
	m.ObservePayment("FAILED")
	m.ObserveGatewayCall("status", 401)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.GateDecisions.WithLabelValues("false", "expired")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.GateDecisions.WithLabelValues("true", "trial")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.PriceQuotes.WithLabelValues("true")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.PaymentOutcomes.WithLabelValues("FAILED")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.GatewayRequests.WithLabelValues("status", "401")))
}
