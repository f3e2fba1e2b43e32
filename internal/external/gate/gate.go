package gate

import (
	"context"
	"fmt"

	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"

	"github.com/wonny/futures/backend/pkg/config"
)

// Gate bounds in-flight requests to one exchange.
// ⭐ SSOT: 거래소별 동시 요청 제한은 이 타입에서만
type Gate struct {
	name    string
	sem     *semaphore.Weighted
	limiter *rate.Limiter
	max     int
}

// New creates a gate allowing maxInFlight concurrent calls, paced to rps
// calls per second. rps <= 0 disables pacing.
func New(name string, maxInFlight, rps int) *Gate {
	if maxInFlight <= 0 {
		maxInFlight = 1
	}
	g := &Gate{
		name: name,
		sem:  semaphore.NewWeighted(int64(maxInFlight)),
		max:  maxInFlight,
	}
	if rps > 0 {
		g.limiter = rate.NewLimiter(rate.Limit(rps), rps)
	}
	return g
}

// FromConfig builds a gate from an exchange's configuration
func FromConfig(name string, cfg config.ExchangeConfig) *Gate {
	return New(name, cfg.MaxInFlight, cfg.RequestsPerSec)
}

// Name returns the gate's exchange name
func (g *Gate) Name() string {
	return g.name
}

// Capacity returns the configured in-flight cap
func (g *Gate) Capacity() int {
	return g.max
}

// Do runs fn while holding one slot. fn must finish reading the response
// body before returning; the slot is released on every path.
func (g *Gate) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	if err := g.sem.Acquire(ctx, 1); err != nil {
		return fmt.Errorf("%s gate: %w", g.name, err)
	}
	defer g.sem.Release(1)

	if g.limiter != nil {
		if err := g.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("%s gate: %w", g.name, err)
		}
	}

	return fn(ctx)
}
