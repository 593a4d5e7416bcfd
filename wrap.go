package treeprof

import (
	"context"

	"github.com/treeprof/treeprof/internal/timer"
)

// Func is the calling convention profiled functions share.
type Func[T any] func(context.Context) (T, error)

// Name is a bucket-name source: either a fixed string or a function deriving
// the name from the call's context, invoked once per call.
type Name struct {
	fixed  string
	derive func(context.Context) string
}

func Fixed(name string) Name {
	return Name{fixed: name}
}

func Derived(fn func(context.Context) string) Name {
	return Name{derive: fn}
}

func (n Name) resolve(ctx context.Context) string {
	if n.derive != nil {
		return n.derive(ctx)
	}
	return n.fixed
}

// Span starts a measurement for name on the calling logical thread and
// returns the function that ends it, for use with defer around an inline
// block. Outside an enabled, running session it returns a no-op.
//
// The bucket name is pushed onto the thread's call path, the timer is keyed
// by a snapshot of the full path, and the returned closure stops the timer
// (feeding the accumulation table), verifies timer-stack discipline, and pops
// the name. It must be called exactly once, on every exit path.
func (p *Profiler) Span(ctx context.Context, name string) func() {
	if !p.enabled || !p.Running() {
		return func() {}
	}
	ts := p.state(ctx)
	ts.push(name)
	snapshot := ts.currentPath()
	t := timer.New(p.clk, func(ms float64) {
		p.table.Increase(snapshot, ms)
	})
	ts.pushTimer(t)
	t.Start()
	return func() {
		t.Stop()
		if popped := ts.popTimer(); popped != t {
			panic("treeprof: mismatched timer on span exit")
		}
		ts.pop()
	}
}

// Wrap returns a function with the same calling convention as fn that
// measures each invocation under the resolved bucket name, nested in the
// calling logical thread's current path.
//
// Disabled profiler: fn itself is returned, untouched. Enabled but no
// session running at call time: fn runs unmeasured. The measurement
// bookkeeping runs on every exit path, so fn's errors and panics propagate
// unchanged with the stacks balanced.
func Wrap[T any](p *Profiler, name Name, fn Func[T]) Func[T] {
	if !p.enabled {
		return fn
	}
	return func(ctx context.Context) (T, error) {
		if !p.Running() {
			return fn(ctx)
		}
		done := p.Span(ctx, name.resolve(ctx))
		defer done()
		return fn(ctx)
	}
}

// Time profiles one inline invocation of fn under name.
func Time[T any](p *Profiler, ctx context.Context, name string, fn Func[T]) (T, error) {
	return Wrap(p, Fixed(name), fn)(ctx)
}

// Run opens a session, times fn under name, and closes the session, always:
// the report is produced even when fn fails, and fn's error propagates after
// reporting. It returns fn's result together with the rendered report.
func Run[T any](p *Profiler, ctx context.Context, name string, fn Func[T]) (v T, rendered string, err error) {
	p.Start()
	defer func() {
		rendered = p.Stop()
	}()
	v, err = Time(p, ctx, name, fn)
	return v, rendered, err
}
