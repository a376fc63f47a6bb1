// Package server throttles inbound events per connection so a single chatty
// client cannot starve the hub.
package server

import (
	"time"

	"golang.org/x/time/rate"
)

// newEventLimiter builds a per-connection limiter from the configured rate
// limit. The bucket starts full with one burst of tokens and refills a full
// burst per interval.
func newEventLimiter(cfg RateLimitConfig) *rate.Limiter {
	burst := cfg.Burst
	if burst <= 0 {
		burst = 1
	}

	interval := cfg.RefillInterval
	if interval <= 0 {
		interval = time.Second
	}

	return rate.NewLimiter(rate.Limit(float64(burst)/interval.Seconds()), burst)
}
