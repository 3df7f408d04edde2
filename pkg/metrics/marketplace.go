package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// MarketplaceMetrics records outcomes for the application gate and
// payment settlement paths.
type MarketplaceMetrics struct {
	applications *prometheus.CounterVec
	settlements  *prometheus.CounterVec
	applyLatency *prometheus.HistogramVec
}

// NewMarketplaceMetrics registers the marketplace metrics on the provided registerer.
func NewMarketplaceMetrics(reg prometheus.Registerer) *MarketplaceMetrics {
	if reg == nil {
		return &MarketplaceMetrics{}
	}
	applications := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "project_applications_total",
		Help: "Project application attempts by outcome.",
	}, []string{"outcome"})
	settlements := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "payment_settlements_total",
		Help: "Payment settlement deliveries by outcome.",
	}, []string{"outcome"})
	applyLatency := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "project_apply_duration_seconds",
		Help:    "Duration of the apply transaction in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"outcome"})
	reg.MustRegister(applications, settlements, applyLatency)
	return &MarketplaceMetrics{
		applications: applications,
		settlements:  settlements,
		applyLatency: applyLatency,
	}
}

// IncApplication increments the application counter for the given outcome.
func (m *MarketplaceMetrics) IncApplication(outcome string) {
	if m == nil || m.applications == nil {
		return
	}
	m.applications.WithLabelValues(normalizeLabel(outcome)).Inc()
}

// IncSettlement increments the settlement counter for the given outcome.
func (m *MarketplaceMetrics) IncSettlement(outcome string) {
	if m == nil || m.settlements == nil {
		return
	}
	m.settlements.WithLabelValues(normalizeLabel(outcome)).Inc()
}

// ObserveApply records the duration of an apply transaction.
func (m *MarketplaceMetrics) ObserveApply(outcome string, duration time.Duration) {
	if m == nil || m.applyLatency == nil {
		return
	}
	m.applyLatency.WithLabelValues(normalizeLabel(outcome)).Observe(duration.Seconds())
}

func normalizeLabel(outcome string) string {
	if outcome == "" {
		return "unknown"
	}
	return outcome
}
