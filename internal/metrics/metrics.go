// internal/metrics/metrics.go
package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "duka"

// Metrics groups the collectors of the pricing and billing core. A nil
// *Metrics is valid and records nothing.
type Metrics struct {
	GateDecisions   *prometheus.CounterVec
	PriceQuotes     *prometheus.CounterVec
	PaymentOutcomes *prometheus.CounterVec
	GatewayRequests *prometheus.CounterVec
}

func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		GateDecisions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "entitlement",
			Name:      "decisions_total",
			Help:      "Entitlement gate decisions by outcome and reason.",
		}, []string{"allowed", "reason"}),
		PriceQuotes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pricing",
			Name:      "quotes_total",
			Help:      "Prices computed, split by whether a happy hour discount applied.",
		}, []string{"discounted"}),
		PaymentOutcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "billing",
			Name:      "payment_transitions_total",
			Help:      "Subscription payment status transitions.",
		}, []string{"status"}),
		GatewayRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "gateway",
			Name:      "requests_total",
			Help:      "Payment gateway calls by operation and HTTP status.",
		}, []string{"operation", "code"}),
	}

	if reg != nil {
		reg.MustRegister(m.GateDecisions, m.PriceQuotes, m.PaymentOutcomes, m.GatewayRequests)
	}
	return m
}

func (m *Metrics) ObserveGateDecision(allowed bool, reason string) {
	if m == nil {
		return
	}
	m.GateDecisions.WithLabelValues(strconv.FormatBool(allowed), reason).Inc()
}

func (m *Metrics) ObserveQuote(discounted bool) {
	if m == nil {
		return
	}
	m.PriceQuotes.WithLabelValues(strconv.FormatBool(discounted)).Inc()
}

func (m *Metrics) ObservePayment(status string) {
	if m == nil {
		return
	}
	m.PaymentOutcomes.WithLabelValues(status).Inc()
}

// ObserveGatewayCall records one outbound call. code 0 means no HTTP response.
func (m *Metrics) ObserveGatewayCall(operation string, code int) {
	if m == nil {
		return
	}
	m.GatewayRequests.WithLabelValues(operation, strconv.Itoa(code)).Inc()
}
