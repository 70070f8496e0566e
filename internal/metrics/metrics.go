package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "rfpstack"

var (
	OracleRequestsHistogram = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "oracle_requests",
			Help:      "Time taken by language model calls",
			Buckets:   []float64{.1, .25, .5, 1, 2.5, 5, 10, 15, 30, 60, 120},
		},
		[]string{"operation", "error"},
	)

	OracleFallbackCounter = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "oracle_fallbacks_total",
			Help:      "Number of oracle calls replaced by their fallback result",
		},
		[]string{"operation"},
	)

	IngestionOutcomeCounter = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ingestion_messages_total",
			Help:      "Inbound messages by ingestion outcome",
		},
		[]string{"outcome"},
	)

	PollDurationHistogram = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "mailbox_poll",
			Help:      "Duration of a full mailbox poll",
			Buckets:   []float64{.5, 1, 2.5, 5, 10, 30, 60, 120, 300},
		},
		[]string{"error"},
	)

	DispatchCounter = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rfp_emails_total",
			Help:      "Outbound rfp emails by delivery result",
		},
		[]string{"delivered"},
	)

	HttpRequestsHistogram = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_requests",
			Help:      "Time taken to serve api requests",
			Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60},
		},
		[]string{"method", "route", "status"},
	)
)

func CollectOracleMetric(operation string, err error, start time.Time) {
	OracleRequestsHistogram.
		WithLabelValues(operation, errLabelValue(err)).
		Observe(time.Since(start).Seconds())
}

func CollectOracleFallback(operation string) {
	OracleFallbackCounter.WithLabelValues(operation).Inc()
}

func CollectIngestionOutcome(outcome string) {
	IngestionOutcomeCounter.WithLabelValues(outcome).Inc()
}

func CollectPollMetric(err error, start time.Time) {
	PollDurationHistogram.
		WithLabelValues(errLabelValue(err)).
		Observe(time.Since(start).Seconds())
}

func CollectDispatch(delivered bool) {
	DispatchCounter.WithLabelValues(strconv.FormatBool(delivered)).Inc()
}

func CollectHttpRequest(method, route string, status int, start time.Time) {
	HttpRequestsHistogram.
		WithLabelValues(method, route, strconv.Itoa(status)).
		Observe(time.Since(start).Seconds())
}

func errLabelValue(err error) string {
	if err != nil {
		return "true"
	}
	return "false"
}
