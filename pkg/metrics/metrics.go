// Package metrics provides the centralized Prometheus metrics registry for
// the crawler. Metrics are defined in their respective packages (anilist,
// ratelimit, crawl) to maintain modularity and avoid circular dependencies.
//
// This package provides documentation and reference for all available
// metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Registry is the default Prometheus registry used by the crawler.
// All metrics are automatically registered via promauto in their respective
// packages.
var Registry = prometheus.DefaultRegisterer

// Metrics Documentation
//
// Rate Limit Metrics (pkg/ratelimit):
//   - anilist_rate_limit_wait_seconds (Histogram): Time spent waiting for the minimum request interval
//   - anilist_rate_limit_acquires_total (Counter): Rate limit acquisitions
//
// Request Metrics (pkg/anilist):
//   - anilist_requests_total{status} (Counter): Requests by HTTP status (or network_error/read_error)
//   - anilist_request_duration_seconds (Histogram): Logical request duration including retries
//   - anilist_errors_total{class} (Counter): Errors by class (private_user, user_not_found, transport)
//
// Retry Metrics (pkg/anilist):
//   - anilist_retries_total (Counter): Retry attempts
//   - anilist_retry_exhausted_total (Counter): Requests that exhausted the attempt budget
//
// Crawl Metrics (pkg/crawl):
//   - crawl_batches_total{result} (Counter): Pipeline batches by result (ok, skipped, error)
//   - crawl_checkpoints_total (Counter): Checkpoint files written
//   - crawl_users_discovered_total (Counter): Unique users found during discovery
//
// Example Prometheus Queries:
//
//   # Share of requests spent retrying
//   rate(anilist_retries_total[15m]) / rate(anilist_requests_total[15m])
//
//   # Skipped batch rate
//   rate(crawl_batches_total{result="skipped"}[15m])
//
//   # P95 logical request latency (dominated by backoff when unhealthy)
//   histogram_quantile(0.95, rate(anilist_request_duration_seconds_bucket[15m]))
