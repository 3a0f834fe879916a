package ledger

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ledgerRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ledger_requests_total",
		Help: "Total number of ledger GraphQL calls by operation and outcome",
	}, []string{"operation", "outcome"})

	ledgerRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "ledger_request_duration_seconds",
		Help:    "Ledger GraphQL call duration in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation"})
)

const (
	outcomeSuccess   = "success"
	outcomeTransport = "transport_error"
	outcomeProtocol  = "protocol_error"
	outcomeRejected  = "user_errors"
	outcomeInvalid   = "invalid"
)
