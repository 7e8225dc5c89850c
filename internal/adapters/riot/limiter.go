package riot

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

// Limiter gates genuine upstream calls. Wait blocks until a call may proceed
// or ctx is done. Implementations must be safe for concurrent use.
type Limiter interface {
	Wait(ctx context.Context) error
}

// NewIntervalLimiter spaces calls at least d apart. The first call is not
// delayed. A non-positive d disables limiting.
func NewIntervalLimiter(d time.Duration) Limiter {
	if d <= 0 {
		return Unlimited()
	}
	return rate.NewLimiter(rate.Every(d), 1)
}

// NewBucketLimiter allows bursts of n calls and refills n tokens per period.
func NewBucketLimiter(n int, per time.Duration) Limiter {
	if n <= 0 || per <= 0 {
		return Unlimited()
	}
	return rate.NewLimiter(rate.Every(per/time.Duration(n)), n)
}

// Unlimited never blocks except on a done context.
func Unlimited() Limiter {
	return rate.NewLimiter(rate.Inf, 0)
}

type chain []Limiter

// Chain returns a limiter that waits on every given limiter in order.
func Chain(limiters ...Limiter) Limiter {
	out := make(chain, 0, len(limiters))
	for _, l := range limiters {
		if l != nil {
			out = append(out, l)
		}
	}
	if len(out) == 1 {
		return out[0]
	}
	return out
}

func (c chain) Wait(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	for _, l := range c {
		if err := l.Wait(ctx); err != nil {
			return err
		}
	}
	return nil
}
