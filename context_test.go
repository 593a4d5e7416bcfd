package treeprof

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/treeprof/treeprof/internal/clock"
)

func TestAttachIsolatesLogicalThreads(t *testing.T) {
	clk := &clock.Manual{}
	p := newTestProfiler(clk)

	p.Start()
	ctxA := p.Attach(context.Background())
	ctxB := p.Attach(context.Background())

	// Interleave two logical threads: each keeps its own call path, so the
	// nested bucket lands under its own root only.
	doneA := p.Span(ctxA, "threadA")
	doneB := p.Span(ctxB, "threadB")
	clk.Advance(10 * time.Millisecond)
	inner := p.Span(ctxA, "nested")
	clk.Advance(20 * time.Millisecond)
	inner()
	doneB()
	doneA()

	got := p.Stop()
	for _, want := range []string{"threadA: 30.0", "  nested: 20.0", "threadB: 30.0"} {
		if !strings.Contains(got, want) {
			t.Fatalf("missing %q in report:\n%s", want, got)
		}
	}
	if strings.Contains(got, "  threadB") {
		t.Fatalf("threadB nested under threadA:\n%s", got)
	}
}

func TestUnattachedContextFallsBackToGlobalState(t *testing.T) {
	clk := &clock.Manual{}
	p := newTestProfiler(clk)

	p.Start()
	done := p.Span(context.Background(), "global")
	if len(p.root.path) != 1 {
		t.Fatalf("span did not use the global fallback stack")
	}
	clk.Advance(15 * time.Millisecond)
	done()
	_ = p.Stop()
}

func TestConcurrentAttachedThreadsSharingPaths(t *testing.T) {
	// Real wall clock here: many goroutines measure the same bucket names
	// concurrently, and every increment must survive into the total.
	p := newProfiler(Config{Enabled: true, MinMS: 0, Clock: ClockWall}, clock.NewWall())

	p.Start()
	var wg sync.WaitGroup
	const workers = 8
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ctx := p.Attach(context.Background())
			for j := 0; j < 50; j++ {
				done := p.Span(ctx, "worker")
				nested := p.Span(ctx, "step")
				nested()
				done()
			}
		}()
	}
	wg.Wait()

	entries := p.table.Snapshot()
	_ = p.Stop()

	if len(entries) != 2 {
		t.Fatalf("expected exactly the two shared paths, got %d", len(entries))
	}
	for _, e := range entries {
		if e.MS < 0 {
			t.Fatalf("negative accumulation for %v", e.Path)
		}
	}
}
