package obs

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	domainOnce sync.Once

	// CheckoutPreviewTotal counts checkout preview calculations by outcome.
	CheckoutPreviewTotal *prometheus.CounterVec
	// CouponValidationTotal counts coupon validation attempts by outcome.
	CouponValidationTotal *prometheus.CounterVec
	// OrderCommitTotal counts post-payment commit outcomes (stock decrement,
	// coupon redemption).
	OrderCommitTotal *prometheus.CounterVec
	// PricingDuration records pricing engine latency in milliseconds.
	PricingDuration prometheus.Histogram
)

// MustRegisterDomainMetrics initialises and registers domain-specific Prometheus collectors.
func MustRegisterDomainMetrics(namespace string, reg prometheus.Registerer) {
	domainOnce.Do(func() {
		if reg == nil {
			reg = prometheus.DefaultRegisterer
		}
		CheckoutPreviewTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "checkout_preview_total",
			Help:      "Count of checkout preview calculations by outcome.",
		}, []string{"result"})
		CouponValidationTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "coupon_validation_total",
			Help:      "Count of coupon validation attempts by outcome.",
		}, []string{"result"})
		OrderCommitTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "order_commit_total",
			Help:      "Count of order payment commit outcomes.",
		}, []string{"result"})
		PricingDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "pricing_duration_ms",
			Help:      "Pricing engine calculation latency in milliseconds.",
			Buckets:   []float64{1, 2, 5, 10, 25, 50, 100, 250},
		})
		reg.MustRegister(CheckoutPreviewTotal, CouponValidationTotal, OrderCommitTotal, PricingDuration)
	})
}
