// Package metrics records AdGuard Home API request metrics with Prometheus.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Request outcomes.
const (
	OutcomeSuccess          = "success"
	OutcomeApplicationError = "application_error"
	OutcomeConnectionError  = "connection_error"
)

// Collector tracks request latency and outcome. A nil *Collector is valid
// and records nothing.
type Collector struct {
	// RequestDuration tracks AdGuard Home API call latency
	RequestDuration *prometheus.HistogramVec

	// RequestsTotal tracks total AdGuard Home API calls
	RequestsTotal *prometheus.CounterVec
}

// New creates a Collector and registers it with reg.
func New(reg prometheus.Registerer) (*Collector, error) {
	c := &Collector{
		RequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "adguardhome_client_request_duration_seconds",
			Help:    "Duration of AdGuard Home API requests in seconds",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "endpoint"}),
		RequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "adguardhome_client_requests_total",
			Help: "Total number of AdGuard Home API requests",
		}, []string{"method", "endpoint", "outcome"}),
	}

	for _, col := range []prometheus.Collector{c.RequestDuration, c.RequestsTotal} {
		if err := reg.Register(col); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// RecordRequest records an API request with its duration and outcome
func (c *Collector) RecordRequest(method, endpoint string, d time.Duration, outcome string) {
	if c == nil {
		return
	}
	c.RequestDuration.WithLabelValues(method, endpoint).Observe(d.Seconds())
	c.RequestsTotal.WithLabelValues(method, endpoint, outcome).Inc()
}
