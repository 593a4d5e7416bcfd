package treeprof

import (
	"context"

	"github.com/treeprof/treeprof/internal/callpath"
	"github.com/treeprof/treeprof/internal/timer"
)

type ctxKey int

const stateKey ctxKey = 0

// threadState is the per-logical-thread side table: the live call-path stack
// plus the stack of active timers. It is owned by exactly one goroutine and
// never synchronized.
type threadState struct {
	path   callpath.Path
	timers []*timer.Timer
}

func (ts *threadState) push(name string) {
	ts.path = append(ts.path, name)
}

func (ts *threadState) pop() {
	if len(ts.path) == 0 {
		panic("treeprof: call-path stack underflow")
	}
	ts.path = ts.path[:len(ts.path)-1]
}

// currentPath snapshots the live stack. The snapshot is what keys the
// accumulation, since the live stack keeps mutating while the timer runs.
func (ts *threadState) currentPath() callpath.Path {
	return ts.path.Clone()
}

func (ts *threadState) pushTimer(t *timer.Timer) {
	ts.timers = append(ts.timers, t)
}

func (ts *threadState) popTimer() *timer.Timer {
	if len(ts.timers) == 0 {
		panic("treeprof: active-timer stack underflow")
	}
	t := ts.timers[len(ts.timers)-1]
	ts.timers = ts.timers[:len(ts.timers)-1]
	return t
}

// Attach binds a fresh logical-thread state to the context. Each goroutine
// that runs profiled code concurrently must carry its own attached context;
// calls whose context has no attached state share the profiler's single
// global stack, which is only safe for sequential top-level use.
func (p *Profiler) Attach(ctx context.Context) context.Context {
	return context.WithValue(ctx, stateKey, &threadState{})
}

func (p *Profiler) state(ctx context.Context) *threadState {
	if ctx != nil {
		if ts, ok := ctx.Value(stateKey).(*threadState); ok {
			return ts
		}
	}
	return p.root
}
