package resilience

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"
)

// Gate bounds the aggregate outbound request rate across every goroutine
// that shares it. It paces requests evenly with no burst, so at most
// `requests` calls start in any `window`.
type Gate struct {
	limiter *rate.Limiter
}

// NewGate creates a gate allowing requests calls per window.
func NewGate(requests int, window time.Duration) *Gate {
	if requests <= 0 || window <= 0 {
		return &Gate{}
	}
	return &Gate{
		limiter: rate.NewLimiter(rate.Every(window/time.Duration(requests)), 1),
	}
}

// Wait blocks until the gate admits one request, or ctx is cancelled.
// A nil or unlimited gate admits immediately.
func (g *Gate) Wait(ctx context.Context) error {
	if g == nil || g.limiter == nil {
		return nil
	}
	if err := g.limiter.Wait(ctx); err != nil {
		return eris.Wrap(err, "resilience: rate gate wait")
	}
	return nil
}

// Interval returns the minimum spacing between admitted requests, or zero
// for an unlimited gate.
func (g *Gate) Interval() time.Duration {
	if g == nil || g.limiter == nil {
		return 0
	}
	return time.Duration(float64(time.Second) / float64(g.limiter.Limit()))
}
