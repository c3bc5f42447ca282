package anilist

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus metrics for retry operations.
var (
	anilistRetriesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "anilist_retries_total",
		Help: "Total number of retry attempts",
	})

	anilistRetryExhaustedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "anilist_retry_exhausted_total",
		Help: "Total number of times retry attempts were exhausted",
	})
)

// RetryConfig holds the configuration for retry logic.
type RetryConfig struct {
	// MaxAttempts is the total number of attempts (including the first).
	MaxAttempts int

	// Interval is the base of the linear backoff: the wait before retry
	// attempt n is Interval * n.
	Interval time.Duration
}

// DefaultRetryConfig returns the default retry configuration. The backoff is
// deliberately minutes-scale: AniList's own rate-limit penalty window is
// measured in minutes, so short retries would only burn attempts.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts: 10,
		Interval:    60 * time.Second,
	}
}

// retryWithBackoff executes fn with linear backoff. Terminal classifications
// (private user, user not found) are returned immediately; transient
// failures are retried up to the attempt budget with waits of Interval*1,
// Interval*2, and so on.
func (c *Client) retryWithBackoff(ctx context.Context, fn func() error) error {
	cfg := c.config.Retry

	var lastErr error
	for attempt := 1; attempt <= cfg.MaxAttempts; attempt++ {
		err := fn()
		if err == nil {
			if attempt > 1 {
				c.logger.Info().
					Int("attempt", attempt).
					Msg("Request succeeded after retry")
			}
			return nil
		}

		var apiErr *APIError
		if errors.As(err, &apiErr) && !apiErr.Retryable() {
			anilistErrorsTotal.WithLabelValues(string(apiErr.Class)).Inc()
			return err
		}
		if errors.Is(err, ErrContextCancelled) {
			return err
		}

		lastErr = err
		anilistErrorsTotal.WithLabelValues(string(ErrorClassTransport)).Inc()

		if attempt >= cfg.MaxAttempts {
			break
		}

		anilistRetriesTotal.Inc()
		wait := time.Duration(attempt) * cfg.Interval

		logEvent := c.logger.Warn().
			Err(err).
			Int("attempt", attempt).
			Dur("backoff", wait)
		if errors.As(err, &apiErr) {
			logEvent = logEvent.
				Int("status", apiErr.StatusCode).
				Str("body", apiErr.Body).
				Interface("headers", apiErr.Headers)
		}
		logEvent.Msg("Request failed, retrying after backoff")

		select {
		case <-ctx.Done():
			c.logger.Warn().
				Int("attempt", attempt).
				Msg("Context cancelled during retry backoff")
			return fmt.Errorf("%w: %v", ErrContextCancelled, ctx.Err())
		case <-time.After(wait):
		}
	}

	anilistRetryExhaustedTotal.Inc()

	logEvent := c.logger.Error().
		Err(lastErr).
		Int("max_attempts", cfg.MaxAttempts)
	var apiErr *APIError
	if errors.As(lastErr, &apiErr) {
		logEvent = logEvent.
			Int("status", apiErr.StatusCode).
			Str("body", apiErr.Body).
			Interface("headers", apiErr.Headers)
	}
	logEvent.Msg("Retry attempts exhausted")

	return fmt.Errorf("%w after %d attempts: %v", ErrRetryExhausted, cfg.MaxAttempts, lastErr)
}
