package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// 扣费
	CreditsConsumedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ledger_credits_consumed_total",
			Help: "Total credits deducted by pool",
		},
		[]string{"pool"}, // monthly, wallet
	)

	DeductionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ledger_deductions_total",
			Help: "Deduction attempts by pool and outcome",
		},
		[]string{"pool", "outcome"}, // ok, insufficient, forbidden, error
	)

	// 周期重置
	ResetsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ledger_resets_total",
			Help: "Periodic allowance resets applied",
		},
		[]string{"period"}, // monthly, weekly
	)

	// 支付对账
	PaymentsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ledger_payments_total",
			Help: "Payment reconciliation results by source and outcome",
		},
		[]string{"source", "outcome"}, // client/webhook; credited, duplicate, rejected, error
	)

	// HTTP
	RequestDurationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ledger_http_request_duration_seconds",
			Help:    "HTTP request latency by route and status",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route", "status"},
	)

	UsageLogDroppedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "ledger_usage_log_dropped_total",
			Help: "Usage log entries that could not be recorded",
		},
	)
)
