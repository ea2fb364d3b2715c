package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
)

// PaymentMetrics counts provider callbacks and reconciliation outcomes.
type PaymentMetrics struct {
	callbacks *prometheus.CounterVec
	outcomes  *prometheus.CounterVec
}

// NewPaymentMetrics registers the payment metrics on the provided registerer.
func NewPaymentMetrics(reg prometheus.Registerer) *PaymentMetrics {
	if reg == nil {
		return &PaymentMetrics{}
	}
	callbacks := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "payment_callbacks_total",
		Help: "Provider callbacks received, by provider and signature validity.",
	}, []string{"provider", "signature_valid"})
	outcomes := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "payment_reconcile_total",
		Help: "Reconciliation calls, by provider and outcome.",
	}, []string{"provider", "outcome"})
	reg.MustRegister(callbacks, outcomes)
	return &PaymentMetrics{callbacks: callbacks, outcomes: outcomes}
}

// IncCallback counts one received provider callback.
func (p *PaymentMetrics) IncCallback(provider string, signatureValid bool) {
	if p == nil || p.callbacks == nil {
		return
	}
	p.callbacks.WithLabelValues(normalizeLabel(provider), strconv.FormatBool(signatureValid)).Inc()
}

// IncReconcile counts one reconciliation call by its outcome.
func (p *PaymentMetrics) IncReconcile(provider, outcome string) {
	if p == nil || p.outcomes == nil {
		return
	}
	p.outcomes.WithLabelValues(normalizeLabel(provider), normalizeLabel(outcome)).Inc()
}
