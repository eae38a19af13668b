package health

import (
	"context"
	"runtime/debug"
	"time"
)

type result struct {
	out Outcome
	err error
}

// timeoutGuard owns the one timer of a timed invocation.
type timeoutGuard struct {
	t     *time.Timer
	after time.Duration
}

func newTimeoutGuard(d time.Duration) *timeoutGuard {
	return &timeoutGuard{t: time.NewTimer(d), after: d}
}

func (g *timeoutGuard) C() <-chan time.Time { return g.t.C }
func (g *timeoutGuard) err() error          { return &TimeoutError{After: g.after} }
func (g *timeoutGuard) stop()               { g.t.Stop() }

// Invoke runs check once. With timeout > 0 the check races the timeout and
// ctx; the first to finish decides the result and the check's context is
// cancelled. A late result is dropped. Panics come back as *PanicError and
// the check's own errors are returned as is.
func Invoke(ctx context.Context, check Check, timeout time.Duration) (Outcome, error) {
	if check == nil {
		return Pass, nil
	}
	if timeout <= 0 {
		r := call(ctx, check)
		return r.out, r.err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	done := make(chan result, 1)
	go func() { done <- call(ctx, check) }()

	guard := newTimeoutGuard(timeout)
	defer guard.stop()

	select {
	case r := <-done:
		return r.out, r.err
	case <-guard.C():
		return nil, guard.err()
	case <-ctx.Done():
		return nil, context.Cause(ctx)
	}
}

func call(ctx context.Context, check Check) (r result) {
	defer func() {
		if v := recover(); v != nil {
			r = result{err: &PanicError{Value: v, Stack: debug.Stack()}}
		}
	}()
	out, err := check(ctx)
	return result{out: out, err: err}
}
