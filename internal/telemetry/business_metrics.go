// Package telemetry exposes pipeline-level Prometheus metrics.
package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// BusinessMetrics holds Prometheus metrics for pipeline observability.
type BusinessMetrics struct {
	// Checkout
	CheckoutSessions       *prometheus.CounterVec
	CheckoutSessionsFailed *prometheus.CounterVec

	// Webhooks
	WebhookReceived   *prometheus.CounterVec
	WebhookProcessed  *prometheus.CounterVec
	WebhookFailed     *prometheus.CounterVec
	WebhookDuplicates prometheus.Counter
	WebhookRejected   *prometheus.CounterVec
	WebhookLatency    *prometheus.HistogramVec

	// Orders
	OrdersCreated    prometheus.Counter
	OrderValue       prometheus.Histogram
	RevenueCollected prometheus.Counter

	// Stock decrement (phase 2)
	StockDecrementFailed prometheus.Counter
	StockRetrySucceeded  prometheus.Counter
	StockRetryFailed     prometheus.Counter
}

// NewBusinessMetrics creates and registers all business metrics on the
// given registerer.
func NewBusinessMetrics(reg prometheus.Registerer) *BusinessMetrics {
	factory := promauto.With(reg)

	namespace := "kirana"
	subsystem := "pipeline"

	return &BusinessMetrics{
		CheckoutSessions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "checkout_sessions_total",
				Help:      "Checkout sessions opened with the payment processor",
			},
			[]string{"currency"},
		),
		CheckoutSessionsFailed: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "checkout_sessions_failed_total",
				Help:      "Checkout session attempts rejected or failed",
			},
			[]string{"reason"},
		),
		WebhookReceived: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "webhook_received_total",
				Help:      "Webhook deliveries received, by event type",
			},
			[]string{"event_type"},
		),
		WebhookProcessed: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "webhook_processed_total",
				Help:      "Webhook deliveries fully processed, by event type",
			},
			[]string{"event_type"},
		),
		WebhookFailed: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "webhook_failed_total",
				Help:      "Webhook deliveries that failed processing, by reason",
			},
			[]string{"reason"},
		),
		WebhookDuplicates: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "webhook_duplicates_total",
				Help:      "Duplicate captured-payment deliveries absorbed as no-ops",
			},
		),
		WebhookRejected: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "webhook_rejected_total",
				Help:      "Webhook deliveries rejected before processing (signature, parse)",
			},
			[]string{"reason"},
		),
		WebhookLatency: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "webhook_duration_seconds",
				Help:      "Webhook handling duration in seconds",
				Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
			},
			[]string{"event_type"},
		),
		OrdersCreated: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "orders_created_total",
				Help:      "Orders materialized from captured payments",
			},
		),
		OrderValue: factory.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "order_value_minor_units",
				Help:      "Order totals in minor currency units",
				Buckets:   prometheus.ExponentialBuckets(1000, 4, 8),
			},
		),
		RevenueCollected: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "revenue_minor_units_total",
				Help:      "Captured revenue in minor currency units",
			},
		),
		StockDecrementFailed: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "stock_decrement_failed_total",
				Help:      "Orders left in stock_pending because the decrement failed",
			},
		),
		StockRetrySucceeded: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "stock_retry_succeeded_total",
				Help:      "Compensating stock decrements that succeeded",
			},
		),
		StockRetryFailed: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "stock_retry_failed_total",
				Help:      "Compensating stock decrements that failed and will be retried",
			},
		),
	}
}
