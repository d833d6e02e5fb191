// Package metrics provides the Prometheus registry used by insight-engine.
// All metrics are defined in their respective packages (cache, ratelimit,
// client, dispatch, sweep, api) to maintain modularity and avoid circular
// dependencies.
//
// This package provides documentation and reference for all available metrics.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry is the default Prometheus registry used by insight-engine.
// All metrics are automatically registered via promauto in their respective packages.
var Registry = prometheus.DefaultRegisterer

// Gatherer is the registry side read by the /metrics handler.
var Gatherer = prometheus.DefaultGatherer

// Handler exposes every registered metric in the Prometheus text format.
func Handler() http.Handler {
	return promhttp.HandlerFor(Gatherer, promhttp.HandlerOpts{})
}

// Metrics Documentation
//
// Request Metrics (internal/api):
//   - insight_http_requests_total{analysis_type, outcome} (Counter): Analyze requests by outcome (ok, cached, invalid, rate_limited, error)
//   - insight_http_request_duration_seconds{analysis_type} (Histogram): Analyze request duration
//
// Rate Limit Metrics (pkg/ratelimit):
//   - insight_rate_limit_decisions_total{result, reason} (Counter): Allowed and rejected requests
//   - insight_rate_limit_tracked_keys{kind} (Gauge): Client and session keys with live state
//
// Cache Metrics (pkg/cache):
//   - insight_cache_hits_total{backend} (Counter): Cache hits by backend
//   - insight_cache_misses_total{backend} (Counter): Cache misses by backend
//   - insight_cache_entries{backend="memory"} (Gauge): Entries held in process
//   - insight_cache_evictions_total{reason} (Counter): Expired entries removed on read or sweep
//   - insight_cache_errors_total{operation} (Counter): Cache operation errors
//
// Dispatch Metrics (pkg/dispatch):
//   - insight_provider_calls_total{provider, analysis_type, outcome} (Counter): Adapter calls by outcome
//   - insight_provider_call_duration_seconds{provider, analysis_type} (Histogram): Adapter call duration
//
// Vendor REST Metrics (pkg/client):
//   - insight_vendor_requests_total{target, status} (Counter): REST requests by HTTP status
//   - insight_vendor_request_duration_seconds{target} (Histogram): REST call duration, retries included
//   - insight_vendor_errors_total{target, class} (Counter): Errors by class (client, server, rate_limit, network)
//   - insight_vendor_retries_total{error_class} (Counter): Retry attempts by error class
//   - insight_vendor_retry_backoff_seconds{error_class} (Histogram): Backoff duration by error class
//   - insight_vendor_retry_exhausted_total{error_class} (Counter): Calls that exhausted max retries
//
// Sweep Metrics (internal/sweep):
//   - insight_sweep_runs_total{task, result} (Counter): Sweep task runs, recovered panics included
//   - insight_sweep_removed_total{task} (Counter): Items dropped by sweeps
//
// Example Prometheus Queries:
//
//   # Cache Hit Rate
//   sum(rate(insight_cache_hits_total[5m])) /
//   (sum(rate(insight_cache_hits_total[5m])) + sum(rate(insight_cache_misses_total[5m])))
//
//   # Rejection Rate by Reason
//   sum by (reason) (rate(insight_rate_limit_decisions_total{result="rejected"}[5m]))
//
//   # Provider Failure Ratio
//   sum by (provider) (rate(insight_provider_calls_total{outcome!="success"}[5m])) /
//   sum by (provider) (rate(insight_provider_calls_total[5m]))
//
//   # P95 Provider Latency
//   histogram_quantile(0.95, sum by (le, provider) (rate(insight_provider_call_duration_seconds_bucket[5m])))
