package util

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	CheckoutsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pos_checkouts_total",
		Help: "Total number of completed checkouts",
	})

	CheckoutsRejectedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pos_checkouts_rejected_total",
		Help: "Total number of rejected checkouts",
	}, []string{"reason"})

	StockRejectionsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pos_stock_rejections_total",
		Help: "Total number of operations rejected for insufficient stock",
	})

	PurchaseReceiptsAppliedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pos_purchase_receipts_applied_total",
		Help: "Total number of purchase receipts applied to stock",
	})

	PurchaseReceiptReplaysTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pos_purchase_receipt_replays_total",
		Help: "Total number of purchase receipt saves skipped as already applied",
	})

	ReturnsProcessedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pos_returns_processed_total",
		Help: "Total number of customer returns processed",
	})

	ReturnsRejectedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pos_returns_rejected_total",
		Help: "Total number of rejected returns",
	}, []string{"reason"})

	WriteOffsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pos_write_offs_total",
		Help: "Total number of stock write-offs",
	}, []string{"reason"})

	CheckoutLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "pos_checkout_latency_seconds",
		Help:    "Latency of checkout transactions",
		Buckets: prometheus.DefBuckets,
	})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "HTTP request latency",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})
)
