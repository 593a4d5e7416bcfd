package treeprof

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/treeprof/treeprof/internal/clock"
	"github.com/treeprof/treeprof/internal/testutil"
)

func TestWrapDisabledReturnsOriginal(t *testing.T) {
	p := newProfiler(Config{Enabled: false, MinMS: DefaultMinMS}, &clock.Manual{})

	calls := 0
	fn := func(ctx context.Context) (int, error) {
		calls++
		return 42, nil
	}
	wrapped := Wrap(p, Fixed("bucket"), fn)

	v, err := wrapped(context.Background())
	if v != 42 || err != nil || calls != 1 {
		t.Fatalf("wrapped call changed behavior: v=%v err=%v calls=%d", v, err, calls)
	}
	if p.table.Len() != 0 {
		t.Fatalf("disabled wrapper touched the table")
	}
}

func TestWrapOutsideSessionRunsUnmeasured(t *testing.T) {
	p := newTestProfiler(&clock.Manual{})

	wrapped := Wrap(p, Fixed("bucket"), func(ctx context.Context) (int, error) {
		return 7, nil
	})
	v, err := wrapped(context.Background())
	if v != 7 || err != nil {
		t.Fatalf("call outside session changed behavior: v=%v err=%v", v, err)
	}
	if p.table.Len() != 0 {
		t.Fatalf("call outside session was measured")
	}
}

func TestWrapPropagatesError(t *testing.T) {
	clk := &clock.Manual{}
	p := newTestProfiler(clk)
	boom := errors.New("boom")

	wrapped := Wrap(p, Fixed("failing"), func(ctx context.Context) (int, error) {
		clk.Advance(20 * time.Millisecond)
		return 0, boom
	})

	p.Start()
	_, err := wrapped(context.Background())
	if !errors.Is(err, boom) {
		t.Fatalf("error not propagated: %v", err)
	}
	got := p.Stop()
	if !strings.Contains(got, "failing: 20.0") {
		t.Fatalf("failed call was not accounted:\n%s", got)
	}
}

func TestStackBalanceAfterPanic(t *testing.T) {
	clk := &clock.Manual{}
	p := newTestProfiler(clk)
	ctx := context.Background()

	inner := Wrap(p, Fixed("inner"), func(ctx context.Context) (struct{}, error) {
		clk.Advance(15 * time.Millisecond)
		panic("kaboom")
	})
	outer := Wrap(p, Fixed("outer"), func(ctx context.Context) (struct{}, error) {
		clk.Advance(15 * time.Millisecond)
		return inner(ctx)
	})

	p.Start()
	func() {
		defer func() {
			if r := recover(); r != "kaboom" {
				t.Fatalf("panic not propagated: %v", r)
			}
		}()
		_, _ = outer(ctx)
	}()

	if len(p.root.path) != 0 || len(p.root.timers) != 0 {
		t.Fatalf("stacks unbalanced after panic: path=%v timers=%d", p.root.path, len(p.root.timers))
	}
	got := p.Stop()
	for _, want := range []string{"outer: 30.0", "  inner: 15.0", "  other outer: 15.0"} {
		if !strings.Contains(got, want) {
			t.Fatalf("missing %q in report after panic:\n%s", want, got)
		}
	}
}

func TestDerivedName(t *testing.T) {
	clk := &clock.Manual{}
	p := newTestProfiler(clk)

	type key int
	const jobKey key = 0
	wrapped := Wrap(p, Derived(func(ctx context.Context) string {
		return "job " + ctx.Value(jobKey).(string)
	}), func(ctx context.Context) (struct{}, error) {
		clk.Advance(20 * time.Millisecond)
		return struct{}{}, nil
	})

	p.Start()
	for _, job := range []string{"red", "blue", "red"} {
		if _, err := wrapped(context.WithValue(context.Background(), jobKey, job)); err != nil {
			t.Fatal(err)
		}
	}
	got := p.Stop()

	if !strings.Contains(got, "job red: 40.0") || !strings.Contains(got, "job blue: 20.0") {
		t.Fatalf("derived names not resolved per call:\n%s", got)
	}
}

func TestTimeInlineBlock(t *testing.T) {
	clk := &clock.Manual{}
	p := newTestProfiler(clk)

	p.Start()
	v, err := Time(p, context.Background(), "block", func(ctx context.Context) (string, error) {
		clk.Advance(30 * time.Millisecond)
		return "done", nil
	})
	if v != "done" || err != nil {
		t.Fatalf("inline block changed behavior: v=%v err=%v", v, err)
	}
	if got := p.Stop(); !strings.Contains(got, "block: 30.0") {
		t.Fatalf("inline block not accounted:\n%s", got)
	}
}

func TestSpanDefer(t *testing.T) {
	clk := &clock.Manual{}
	p := newTestProfiler(clk)
	ctx := context.Background()

	p.Start()
	func() {
		defer p.Span(ctx, "section")()
		clk.Advance(25 * time.Millisecond)
	}()
	if got := p.Stop(); !strings.Contains(got, "section: 25.0") {
		t.Fatalf("span not accounted:\n%s", got)
	}
}

func TestRunReportsEvenOnError(t *testing.T) {
	clk := &clock.Manual{}
	p := newTestProfiler(clk)
	boom := errors.New("boom")

	v, rendered, err := Run(p, context.Background(), "main", func(ctx context.Context) (int, error) {
		clk.Advance(50 * time.Millisecond)
		return 9, boom
	})
	if v != 9 || !errors.Is(err, boom) {
		t.Fatalf("run changed behavior: v=%v err=%v", v, err)
	}
	if !strings.Contains(rendered, "main: 50.0") {
		t.Fatalf("run did not report:\n%s", rendered)
	}
	if p.Running() {
		t.Fatalf("run left the session open")
	}
}

func TestReentrantSameNameUnderDifferentParents(t *testing.T) {
	clk := &clock.Manual{}
	p := newTestProfiler(clk)
	ctx := context.Background()

	parse := Wrap(p, Fixed("parse"), func(ctx context.Context) (struct{}, error) {
		clk.Advance(30 * time.Millisecond)
		return struct{}{}, nil
	})
	load := Wrap(p, Fixed("load"), func(ctx context.Context) (struct{}, error) {
		clk.Advance(10 * time.Millisecond)
		return parse(ctx)
	})
	save := Wrap(p, Fixed("save"), func(ctx context.Context) (struct{}, error) {
		clk.Advance(15 * time.Millisecond)
		return parse(ctx)
	})

	p.Start()
	if _, err := load(ctx); err != nil {
		t.Fatal(err)
	}
	if _, err := save(ctx); err != nil {
		t.Fatal(err)
	}
	got := strings.Split(strings.TrimRight(p.Stop(), "\n"), "\n")

	want := []string{
		"save: 45.0",
		"  parse: 30.0",
		"  other save: 15.0",
		"load: 40.0",
		"  parse: 30.0",
		"  other load: 10.0",
		"",
		"parse: 60.0",
		"other save: 15.0",
		"other load: 10.0",
		"measured time: 85.0",
	}
	if diff := testutil.Diff(want, got); diff != "" {
		t.Fatalf("report mismatch: %s", diff)
	}
}
