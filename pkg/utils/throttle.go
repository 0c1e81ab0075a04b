package utils

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

// Throttle is waited on after every page request that reached the network.
type Throttle interface {
	Wait(ctx context.Context) error
}

// IntervalThrottle pauses for a fixed duration on every call.
type IntervalThrottle struct {
	Interval time.Duration
}

func NewIntervalThrottle(interval time.Duration) *IntervalThrottle {
	return &IntervalThrottle{Interval: interval}
}

func (t *IntervalThrottle) Wait(ctx context.Context) error {
	return Sleep(ctx, t.Interval)
}

// BucketThrottle is a token bucket: bursts of up to burst requests, refilled
// at one token per interval.
type BucketThrottle struct {
	limiter *rate.Limiter
}

func NewBucketThrottle(interval time.Duration, burst int) *BucketThrottle {
	if burst < 1 {
		burst = 1
	}
	limit := rate.Inf
	if interval > 0 {
		limit = rate.Every(interval)
	}
	return &BucketThrottle{limiter: rate.NewLimiter(limit, burst)}
}

func (t *BucketThrottle) Wait(ctx context.Context) error {
	return t.limiter.Wait(ctx)
}

// NoThrottle never waits.
type NoThrottle struct{}

func (NoThrottle) Wait(ctx context.Context) error { return ctx.Err() }

// Sleep blocks for d or until ctx is done.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
