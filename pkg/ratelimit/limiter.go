// Package ratelimit enforces a minimum spacing between outbound requests.
// AniList applies a strict global budget of roughly one request per second
// to anonymous clients, and violations carry a minutes-scale penalty window,
// so every network call must pass through the limiter first.
package ratelimit

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"golang.org/x/time/rate"
)

// Prometheus metrics for rate limit waits.
var (
	rateLimitWaitSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "anilist_rate_limit_wait_seconds",
		Help:    "Time spent waiting for the minimum request interval",
		Buckets: []float64{0.01, 0.1, 0.25, 0.5, 1, 2},
	})

	rateLimitAcquiresTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "anilist_rate_limit_acquires_total",
		Help: "Total number of rate limit acquisitions",
	})
)

// DefaultInterval is the minimum spacing AniList tolerates from an anonymous
// client.
const DefaultInterval = time.Second

// Limiter spaces successive acquisitions at least one interval apart. It is
// scoped to whoever constructs it rather than process-wide, so independent
// crawl runs (and tests) do not interfere with each other.
type Limiter struct {
	limiter  *rate.Limiter
	interval time.Duration
}

// New creates a limiter with the given minimum interval between acquires.
// A non-positive interval disables waiting, which tests rely on.
func New(interval time.Duration) *Limiter {
	if interval <= 0 {
		return &Limiter{
			limiter:  rate.NewLimiter(rate.Inf, 1),
			interval: 0,
		}
	}
	return &Limiter{
		limiter:  rate.NewLimiter(rate.Every(interval), 1),
		interval: interval,
	}
}

// Interval returns the configured minimum spacing.
func (l *Limiter) Interval() time.Duration {
	return l.interval
}

// Acquire blocks until at least the configured interval has elapsed since
// the previous acquire started. It returns early only when ctx is cancelled;
// otherwise it always eventually returns nil.
func (l *Limiter) Acquire(ctx context.Context) error {
	start := time.Now()
	if err := l.limiter.Wait(ctx); err != nil {
		return err
	}
	rateLimitAcquiresTotal.Inc()
	rateLimitWaitSeconds.Observe(time.Since(start).Seconds())
	return nil
}
