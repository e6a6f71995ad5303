package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// PrometheusObserver mirrors recorded samples into Prometheus collectors so
// an autoscaling experiment can be graphed next to the target's own metrics.
type PrometheusObserver struct {
	requests    *prometheus.CounterVec
	failures    *prometheus.CounterVec
	duration    *prometheus.HistogramVec
	activeUsers prometheus.Gauge
}

// NewPrometheusObserver creates the collectors and registers them with reg.
func NewPrometheusObserver(reg prometheus.Registerer) (*PrometheusObserver, error) {
	p := &PrometheusObserver{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "taskswarm",
			Name:      "requests_total",
			Help:      "Requests issued by virtual users.",
		}, []string{"method", "name"}),
		failures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "taskswarm",
			Name:      "request_failures_total",
			Help:      "Requests classified as failures.",
		}, []string{"method", "name"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "taskswarm",
			Name:      "request_duration_seconds",
			Help:      "Request round-trip time.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 12),
		}, []string{"method", "name"}),
		activeUsers: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "taskswarm",
			Name:      "active_users",
			Help:      "Virtual users currently running.",
		}),
	}

	for _, c := range []prometheus.Collector{p.requests, p.failures, p.duration, p.activeUsers} {
		if err := reg.Register(c); err != nil {
			return nil, fmt.Errorf("register prometheus collector: %w", err)
		}
	}
	return p, nil
}

// ObserveRequest implements Observer.
func (p *PrometheusObserver) ObserveRequest(method, name string, duration time.Duration, failed bool) {
	p.requests.WithLabelValues(method, name).Inc()
	p.duration.WithLabelValues(method, name).Observe(duration.Seconds())
	if failed {
		p.failures.WithLabelValues(method, name).Inc()
	}
}

// ObserveActiveUsers implements Observer.
func (p *PrometheusObserver) ObserveActiveUsers(count int) {
	p.activeUsers.Set(float64(count))
}

var _ Observer = (*PrometheusObserver)(nil)
