package collector

import (
	"context"
	"math"
	"time"

	"github.com/cenkalti/backoff/v4"
	"golang.org/x/time/rate"
)

// RateLimiter paces outgoing API requests
type RateLimiter interface {
	Wait(ctx context.Context) error
}

// NewRateLimiter creates a limiter allowing rps requests per second across
// every goroutine sharing it. rps <= 0 disables pacing.
func NewRateLimiter(rps float64) RateLimiter {
	if rps <= 0 {
		return rate.NewLimiter(rate.Inf, 0)
	}
	burst := int(math.Ceil(rps))
	return rate.NewLimiter(rate.Limit(rps), burst)
}

// RetryPolicy controls how 429 responses are retried
type RetryPolicy struct {
	// Delay is the first wait after a 429
	Delay time.Duration
	// MaxDelay caps the wait as it grows; values below Delay mean Delay
	MaxDelay time.Duration
	// Multiplier grows the wait after each retry; 1 keeps it fixed
	Multiplier float64
	// Jitter randomizes each wait by +/- the given fraction
	Jitter float64
	// MaxRetries bounds the retries of one request; 0 retries forever
	MaxRetries int
}

// DefaultRetryPolicy sleeps a fixed 200ms between attempts and never gives up
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		Delay:      200 * time.Millisecond,
		MaxDelay:   200 * time.Millisecond,
		Multiplier: 1,
	}
}

func (p RetryPolicy) newBackOff(ctx context.Context) backoff.BackOff {
	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = p.Delay
	eb.MaxInterval = p.MaxDelay
	if eb.MaxInterval < p.Delay {
		eb.MaxInterval = p.Delay
	}
	eb.Multiplier = p.Multiplier
	if eb.Multiplier < 1 {
		eb.Multiplier = 1
	}
	eb.RandomizationFactor = p.Jitter
	eb.MaxElapsedTime = 0
	eb.Reset()

	var b backoff.BackOff = eb
	if p.MaxRetries > 0 {
		b = backoff.WithMaxRetries(b, uint64(p.MaxRetries))
	}
	return backoff.WithContext(b, ctx)
}
