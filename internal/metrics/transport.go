package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	SdkRequestsHistogram = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "sdk_requests",
			Help:      "Time taken by outbound sdk http requests",
			Buckets:   []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 15, 30, 60},
		},
		[]string{"client", "path", "error"},
	)

	RateLimitGauge = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "sdk_ratelimit_remaining",
			Help:      "Last reported number of remaining requests",
		}, []string{"client"},
	)
)

// RequestWatcher is an http.RoundTripper recording latency and the remaining
// rate limit reported by the upstream.
type RequestWatcher struct {
	name string
	next http.RoundTripper
}

func NewRequestWatcher(name string) *RequestWatcher {
	return &RequestWatcher{
		name: name,
		next: http.DefaultTransport,
	}
}

func (m *RequestWatcher) RoundTrip(r *http.Request) (*http.Response, error) {
	var err error
	defer func(start time.Time) {
		SdkRequestsHistogram.
			WithLabelValues(m.name, r.URL.Path, errLabelValue(err)).
			Observe(time.Since(start).Seconds())
	}(time.Now())

	resp, err := m.next.RoundTrip(r)
	if err != nil {
		return nil, err
	}

	if value := resp.Header.Get("X-Ratelimit-Remaining-Requests"); value != "" {
		if remaining, parseErr := strconv.ParseFloat(value, 64); parseErr == nil {
			RateLimitGauge.WithLabelValues(m.name).Set(remaining)
		}
	}

	return resp, nil
}
