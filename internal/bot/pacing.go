package bot

import (
	"context"
	"math/rand"
	"time"

	"golang.org/x/time/rate"
)

// pageActionsPerMinute bounds sustained clicks and navigations. LinkedIn
// throttles accounts that fire actions faster than a person could.
const pageActionsPerMinute = 20

// Pacer spaces bot actions out. A token bucket caps the sustained action
// rate while randomized sleeps keep individual gaps from looking mechanical.
type Pacer struct {
	limiter *rate.Limiter
}

// NewPacer creates a pacer with the default action budget.
func NewPacer() *Pacer {
	return &Pacer{
		limiter: rate.NewLimiter(rate.Limit(float64(pageActionsPerMinute)/60.0), 3),
	}
}

// WaitAction blocks until the next page action fits the rate budget.
func (p *Pacer) WaitAction(ctx context.Context) error {
	return p.limiter.Wait(ctx)
}

// Sleep pauses for a random duration between lo and hi, honoring context
// cancellation.
func (p *Pacer) Sleep(ctx context.Context, lo, hi time.Duration) error {
	d := lo
	if hi > lo {
		d = lo + time.Duration(rand.Int63n(int64(hi-lo)))
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

// FormPause is the short gap between filling adjacent form fields.
func (p *Pacer) FormPause(ctx context.Context) error {
	return p.Sleep(ctx, 500*time.Millisecond, 1500*time.Millisecond)
}

// PageSettle gives a page change time to finish rendering.
func (p *Pacer) PageSettle(ctx context.Context) error {
	return p.Sleep(ctx, 2*time.Second, 4*time.Second)
}

// ListingGap is the long pause between processing two listings.
func (p *Pacer) ListingGap(ctx context.Context) error {
	if err := p.WaitAction(ctx); err != nil {
		return err
	}
	return p.Sleep(ctx, 5*time.Second, 10*time.Second)
}
