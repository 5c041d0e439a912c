package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	BuildInfo = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "merkle_distributor_build_info",
			Help: "Build information of the merkle distributor relayer",
		},
		[]string{"version", "commit", "date"},
	)

	ClaimsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "merkle_distributor_claims_total",
			Help: "Total number of claim state transitions observed by the relayer",
		},
		[]string{"outcome"}, // submitted, confirmed, failed, reconciled
	)

	BatchDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "merkle_distributor_batch_duration_seconds",
			Help:    "Duration of one relayer batch, reconciliation through settlement",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 12), // 0.1s to ~410s
		},
	)

	RPCRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "merkle_distributor_rpc_requests_total",
			Help: "Total number of ledger RPC requests",
		},
		[]string{"method", "status"},
	)

	RunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "merkle_distributor_runs_total",
			Help: "Total number of relayer main-loop passes",
		},
		[]string{"status"},
	)
)
