package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// HTTP
	RequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total HTTP requests",
		},
		[]string{"route", "method", "status"},
	)

	// Ledger activity
	ExpensesRecorded = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "expenses_recorded_total",
			Help: "Total expenses recorded, by split type",
		},
		[]string{"split_type"},
	)
	SettlementsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "settlements_total",
			Help: "Total completed settlements",
		},
	)
	SettlementsFailed = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "settlements_failed_total",
			Help: "Total rejected settlement attempts",
		},
	)
	OptimizationsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "optimizations_total",
			Help: "Total group optimization runs",
		},
	)

	// Worker queue
	WorkerQueueDepth = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "worker_queue_depth",
			Help: "Current worker queue depth",
		},
	)
)

// Handler serves the /metrics endpoint.
var Handler = promhttp.Handler

func Init() {
	prometheus.MustRegister(RequestsTotal)
	prometheus.MustRegister(ExpensesRecorded)
	prometheus.MustRegister(SettlementsTotal)
	prometheus.MustRegister(SettlementsFailed)
	prometheus.MustRegister(OptimizationsTotal)
	prometheus.MustRegister(WorkerQueueDepth)
}
