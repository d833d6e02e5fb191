package provider

import (
	"context"

	"golang.org/x/time/rate"
)

// Throttle bounds the outbound request rate of one adapter so a burst of
// cache misses cannot exhaust a vendor quota.
type Throttle struct {
	lim *rate.Limiter
}

// NewThrottle allows rps requests per second with the given burst.
// A non-positive rps disables throttling.
func NewThrottle(rps float64, burst int) *Throttle {
	if rps <= 0 {
		return &Throttle{lim: rate.NewLimiter(rate.Inf, 0)}
	}
	if burst < 1 {
		burst = 1
	}
	return &Throttle{lim: rate.NewLimiter(rate.Limit(rps), burst)}
}

// Wait blocks until a request may be sent or ctx ends.
func (t *Throttle) Wait(ctx context.Context) error {
	if t == nil {
		return nil
	}
	return t.lim.Wait(ctx)
}
