package ratelimit

import (
	"context"
	"sync"
	"time"
)

// DefaultInterval is the minimum spacing between bulk download requests.
const DefaultInterval = 100 * time.Millisecond

// Pacer spaces consecutive calls at least Interval apart.
type Pacer struct {
	interval time.Duration

	mu    sync.Mutex
	last  time.Time
	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

// NewPacer returns a Pacer with the given interval. A non-positive interval disables pacing.
func NewPacer(interval time.Duration) *Pacer {
	return &Pacer{
		interval: interval,
		now:      time.Now,
		sleep:    Sleep,
	}
}

// Interval returns the configured spacing.
func (p *Pacer) Interval() time.Duration {
	return p.interval
}

// Wait blocks until at least Interval has passed since the previous Wait returned.
// The first call never blocks.
func (p *Pacer) Wait(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.interval > 0 && !p.last.IsZero() {
		if remaining := p.interval - p.now().Sub(p.last); remaining > 0 {
			if err := p.sleep(ctx, remaining); err != nil {
				return err
			}
		}
	}

	p.last = p.now()
	return ctx.Err()
}
