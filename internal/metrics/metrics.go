// Package metrics records run progress as Prometheus metrics.
//
// Metrics live in a private registry and are written to a textfile at the
// end of a run, for node_exporter's textfile collector. All metrics are
// prefixed with "boardmerge_".
//
// Metrics:
//   - boardmerge_items_total{action,dry_run} - items written to the run log
//   - boardmerge_api_calls_total{operation} - metadata and write calls
//   - boardmerge_api_requests_total{operation,result} - GraphQL requests
//   - boardmerge_api_request_duration_seconds{operation} - request latency
//   - boardmerge_rate_limit_waits_total - rate-limit backoffs
//   - boardmerge_rate_limit_wait_seconds_total - time spent backing off
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/tobiasrohr/FInal-merger/pkg/errors"
	"github.com/tobiasrohr/FInal-merger/pkg/runlog"
)

// Metrics holds the collectors of one run.
type Metrics struct {
	registry *prometheus.Registry

	Items           *prometheus.CounterVec
	APICalls        *prometheus.CounterVec
	Requests        *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
	RateLimitWaits  prometheus.Counter
	RateLimitWait   prometheus.Counter
}

// New creates metrics in a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	f := promauto.With(reg)
	return &Metrics{
		registry: reg,
		Items: f.NewCounterVec(prometheus.CounterOpts{
			Name: "boardmerge_items_total",
			Help: "Items written to the run log by action",
		}, []string{"action", "dry_run"}),
		APICalls: f.NewCounterVec(prometheus.CounterOpts{
			Name: "boardmerge_api_calls_total",
			Help: "Metadata and write calls issued by the executor",
		}, []string{"operation"}),
		Requests: f.NewCounterVec(prometheus.CounterOpts{
			Name: "boardmerge_api_requests_total",
			Help: "GraphQL requests sent to the board API",
		}, []string{"operation", "result"}),
		RequestDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "boardmerge_api_request_duration_seconds",
			Help:    "Latency of GraphQL requests",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 10),
		}, []string{"operation"}),
		RateLimitWaits: f.NewCounter(prometheus.CounterOpts{
			Name: "boardmerge_rate_limit_waits_total",
			Help: "Backoffs caused by rate limiting",
		}),
		RateLimitWait: f.NewCounter(prometheus.CounterOpts{
			Name: "boardmerge_rate_limit_wait_seconds_total",
			Help: "Seconds spent waiting on rate limits",
		}),
	}
}

// Registry returns the registry holding the collectors.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// ItemProcessed counts one logged item.
func (m *Metrics) ItemProcessed(action runlog.Action, dryRun bool) {
	m.Items.WithLabelValues(string(action), strconv.FormatBool(dryRun)).Inc()
}

// APICall counts one metadata or write call.
func (m *Metrics) APICall(operation string) {
	m.APICalls.WithLabelValues(operation).Inc()
}

// RateLimited records one backoff.
func (m *Metrics) RateLimited(wait time.Duration) {
	m.RateLimitWaits.Inc()
	m.RateLimitWait.Add(wait.Seconds())
}

// ObserveRequest records one GraphQL request. Its signature matches
// monday.Observer.
func (m *Metrics) ObserveRequest(operation string, elapsed time.Duration, err error) {
	result := "ok"
	switch {
	case errors.IsRateLimited(err):
		result = "rate_limited"
	case err != nil:
		result = "error"
	}
	m.Requests.WithLabelValues(operation, result).Inc()
	m.RequestDuration.WithLabelValues(operation).Observe(elapsed.Seconds())
}

// WriteFile writes all metrics in the text exposition format.
func (m *Metrics) WriteFile(path string) error {
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return errors.WrapIO("write", path, err)
	}
	return nil
}
