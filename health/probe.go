package health

import (
	"context"
	"sync/atomic"

	"github.com/keithlinneman/healthili/internal/xerrors"
)

// Fixed returns a check that always reports o.
func Fixed(o Outcome) Check {
	return func(context.Context) (Outcome, error) { return o, nil }
}

// FromProbe adapts an error-only probe: nil passes, an error fails with its message.
func FromProbe(probe func(context.Context) error) Check {
	return func(ctx context.Context) (Outcome, error) {
		if err := probe(ctx); err != nil {
			return nil, err
		}
		return Pass, nil
	}
}

// ShutdownGate forces a check to fail while the service drains, so load
// balancers stop routing to it before the listeners close.
type ShutdownGate struct {
	draining atomic.Bool
	reason   atomic.Value
}

func (g *ShutdownGate) Set(reason string) {
	g.reason.Store(reason)
	g.draining.Store(true)
}

func (g *ShutdownGate) Clear() {
	g.draining.Store(false)
	g.reason.Store("")
}

func (g *ShutdownGate) Draining() bool { return g.draining.Load() }

// Wrap returns a check that fails with the drain reason once Set, and
// otherwise defers to next.
func (g *ShutdownGate) Wrap(next Check) Check {
	return func(ctx context.Context) (Outcome, error) {
		if g.draining.Load() {
			r, _ := g.reason.Load().(string)
			if r == "" {
				r = "draining"
			}
			return nil, xerrors.New(r)
		}
		return Invoke(ctx, next, 0)
	}
}
