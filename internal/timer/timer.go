// Package timer implements the two measurement primitives the profiler is
// built on: Timer, which delivers a single start/stop interval to a callback,
// and Stopwatch, which accumulates intervals internally.
//
// Misuse (double start, double stop) panics immediately. Continuing past a
// mismatched start/stop pair would silently corrupt the elapsed-time
// accounting downstream, which is worse than crashing.
package timer

import (
	"time"

	"github.com/treeprof/treeprof/internal/clock"
)

// Timer measures one contiguous interval and hands the elapsed fractional
// milliseconds to its completion callback, synchronously, on Stop.
type Timer struct {
	clk       clock.Clock
	done      func(ms float64)
	running   bool
	startedAt time.Duration
}

func New(clk clock.Clock, done func(ms float64)) *Timer {
	return &Timer{clk: clk, done: done}
}

func (t *Timer) Start() {
	if t.running {
		panic("timer: already started")
	}
	t.running = true
	t.startedAt = t.clk.Now()
}

func (t *Timer) Stop() {
	if !t.running {
		panic("timer: not started")
	}
	t.running = false
	ms := float64(t.clk.Now()-t.startedAt) / float64(time.Millisecond)
	if t.done != nil {
		t.done(ms)
	}
}

func (t *Timer) Running() bool {
	return t.running
}

// Stopwatch accumulates elapsed time across repeated start/stop pairs under
// one identity, with a total accessor instead of a callback.
type Stopwatch struct {
	clk       clock.Clock
	running   bool
	startedAt time.Duration
	total     time.Duration
}

func NewStopwatch(clk clock.Clock) *Stopwatch {
	return &Stopwatch{clk: clk}
}

func (s *Stopwatch) Start() {
	if s.running {
		panic("timer: stopwatch already started")
	}
	s.running = true
	s.startedAt = s.clk.Now()
}

func (s *Stopwatch) Stop() {
	if !s.running {
		panic("timer: stopwatch not started")
	}
	s.running = false
	s.total += s.clk.Now() - s.startedAt
}

// TotalMS returns the accumulated time in fractional milliseconds. It only
// accounts for completed start/stop pairs.
func (s *Stopwatch) TotalMS() float64 {
	return float64(s.total) / float64(time.Millisecond)
}

func (s *Stopwatch) Reset() {
	s.running = false
	s.total = 0
}
