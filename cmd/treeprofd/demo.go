package main

import (
	"context"
	"time"

	"github.com/treeprof/treeprof"
)

// runWorkload exercises the profiler's surface with a synthetic call tree:
// nested wrapped calls, a bucket name derived per call, an inline span, and
// the manual accounting escape hatch.
func runWorkload(p *treeprof.Profiler, ctx context.Context) {
	parse := treeprof.Wrap(p, treeprof.Fixed("parse"), func(ctx context.Context) (struct{}, error) {
		time.Sleep(20 * time.Millisecond)
		return struct{}{}, nil
	})

	load := treeprof.Wrap(p, treeprof.Fixed("load"), func(ctx context.Context) (struct{}, error) {
		time.Sleep(15 * time.Millisecond)
		return parse(ctx)
	})

	render := treeprof.Wrap(p, treeprof.Derived(func(ctx context.Context) string {
		if deadline, ok := ctx.Deadline(); ok && time.Until(deadline) < time.Second {
			return "render (rushed)"
		}
		return "render"
	}), func(ctx context.Context) (struct{}, error) {
		defer p.Span(ctx, "layout")()
		time.Sleep(25 * time.Millisecond)
		return struct{}{}, nil
	})

	_, _ = load(ctx)
	_, _ = render(ctx)
	_, _ = treeprof.Time(p, ctx, "flush", func(ctx context.Context) (struct{}, error) {
		time.Sleep(12 * time.Millisecond)
		return struct{}{}, nil
	})

	// Work measured outside the wrapper convention.
	p.Increase(5, "load", "io wait")
}
