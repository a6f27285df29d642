// Package metrics documents the Prometheus metrics exported by the iCIMS client.
// Metrics are declared with promauto next to the code that updates them (client, auth,
// cache, ratelimit, documents); this package owns the registry and the /metrics handler.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry is the registerer all promauto metrics in this module are attached to.
var Registry = prometheus.DefaultRegisterer

// Handler serves the metrics registered in Registry.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Metrics Documentation
//
// Request Metrics (pkg/client):
//   - icims_requests_total{endpoint, status} (Counter): requests by route and HTTP status
//   - icims_request_duration_seconds{endpoint} (Histogram): request duration by route
//     (endpoint is the path with numeric segments replaced by {id})
//   - icims_errors_total{class} (Counter): errors by class (client, server, rate_limit, network)
//   - icims_retries_total{error_class} (Counter): retry attempts
//   - icims_retry_backoff_seconds{error_class} (Histogram): backoff duration
//   - icims_retry_exhausted_total{error_class} (Counter): requests that used every attempt
//
// Auth Metrics (pkg/auth):
//   - icims_token_refreshes_total{result} (Counter): token exchanges (success, failure, shared)
//
// Cache Metrics (pkg/cache):
//   - icims_cache_hits_total{layer} (Counter): hits by layer (redis, memory)
//   - icims_cache_misses_total{layer} (Counter): misses by layer
//   - icims_cache_errors_total{operation} (Counter): store errors (get, set, delete, compare_delete)
//
// Rate Limit Metrics (pkg/ratelimit):
//   - icims_rate_limit_remaining (Gauge): remaining calls reported by the API
//   - icims_rate_limit_blocks_total (Counter): requests blocked at the critical threshold
//   - icims_rate_limit_throttles_total (Counter): requests delayed in the warning band
//   - icims_rate_limit_reset_waits_total (Counter): critical-band requests held until the reset
//
// Document Metrics (pkg/documents):
//   - icims_documents_written_total{kind} (Counter): files written (document, none, bad)
//
// Example Prometheus Queries:
//
//   # Token exchanges per hour (iCIMS throttles above 500 per 10 minutes)
//   increase(icims_token_refreshes_total{result="success"}[1h])
//
//   # Resumes missing upstream
//   icims_documents_written_total{kind="none"}
//
//   # P95 Request Latency
//   histogram_quantile(0.95, rate(icims_request_duration_seconds_bucket[5m]))
