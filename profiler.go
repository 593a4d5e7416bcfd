// Package treeprof is an in-process call-tree profiler. Named buckets of
// code are measured, nested by dynamic call structure, accumulated per full
// call path over one session, and rendered as a hierarchical view plus a
// flattened leaf-time view.
//
// The profiler is built to be woven into code and left compiled in: when
// disabled (the default), wrapping is free and wrapped functions are returned
// unchanged.
package treeprof

import (
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/treeprof/treeprof/internal/callpath"
	"github.com/treeprof/treeprof/internal/clock"
	"github.com/treeprof/treeprof/internal/nodetree"
	"github.com/treeprof/treeprof/internal/table"
	"github.com/treeprof/treeprof/internal/timer"
)

// Profiler owns one session at a time. The enable flag is fixed at
// construction; the session cycles Idle -> Start -> Running -> Stop -> Idle.
//
// Session misuse (Start while running, Stop while idle) panics: it is an
// instrumentation bug, and continuing would produce a plausible-looking but
// wrong report.
type Profiler struct {
	enabled bool
	minMS   float64
	clk     clock.Clock

	table *table.Table
	root  *threadState

	sessionID uuid.UUID
	stopwatch *timer.Stopwatch
	running   atomic.Bool
}

// New builds a profiler from the given configuration. When the CPU clock is
// requested but process CPU accounting is unavailable, the profiler falls
// back to the wall clock; it never mixes the two afterwards.
func New(cfg Config) *Profiler {
	var clk clock.Clock
	switch cfg.Clock {
	case ClockCPU:
		c, err := clock.NewCPU()
		if err != nil {
			log.Warn().Err(err).Msg("process cpu clock unavailable, using wall clock")
			clk = clock.NewWall()
		} else {
			clk = c
		}
	default:
		clk = clock.NewWall()
	}
	return newProfiler(cfg, clk)
}

func newProfiler(cfg Config, clk clock.Clock) *Profiler {
	return &Profiler{
		enabled:   cfg.Enabled,
		minMS:     cfg.MinMS,
		clk:       clk,
		table:     table.New(),
		root:      &threadState{},
		stopwatch: timer.NewStopwatch(clk),
	}
}

// FromEnv builds a profiler from the process environment.
func FromEnv() *Profiler {
	return New(LoadConfig())
}

func (p *Profiler) Enabled() bool {
	return p.enabled
}

// Running reports whether a session is active. Wrapped calls outside an
// active session run unmeasured.
func (p *Profiler) Running() bool {
	return p.running.Load()
}

// Start opens a session: the accumulation table is cleared and measurement
// begins. Panics if a session is already running. No-op when disabled.
func (p *Profiler) Start() {
	if !p.enabled {
		return
	}
	if !p.running.CompareAndSwap(false, true) {
		panic("treeprof: profiling session already running")
	}
	p.table.Reset()
	p.sessionID = uuid.New()
	p.stopwatch.Reset()
	p.stopwatch.Start()
	log.Debug().Str("session_id", p.sessionID.String()).Msg("profiling session started")
}

// StopReport closes the session and returns the reconstructed report. Panics
// if no session is running. When disabled it returns an empty report.
func (p *Profiler) StopReport() *Report {
	if !p.enabled {
		return &Report{minMS: p.minMS}
	}
	if !p.running.CompareAndSwap(true, false) {
		panic("treeprof: no profiling session running")
	}
	p.stopwatch.Stop()
	entries := p.table.Snapshot()
	r := &Report{
		SessionID:  p.sessionID,
		DurationMS: p.stopwatch.TotalMS(),
		minMS:      p.minMS,
		roots:      nodetree.Build(entries),
	}
	log.Debug().
		Str("session_id", p.sessionID.String()).
		Float64("duration_ms", r.DurationMS).
		Int("paths", len(entries)).
		Msg("profiling session stopped")
	return r
}

// Stop closes the session and returns both report views rendered as a
// string. Panics if no session is running. Returns "" when disabled.
func (p *Profiler) Stop() string {
	if !p.enabled {
		return ""
	}
	return p.StopReport().String()
}

// Increase adds ms against the given call path directly, bypassing the
// wrapper convention. It is the escape hatch for accounting work measured by
// other means. No-op when disabled.
func (p *Profiler) Increase(ms float64, path ...string) {
	if !p.enabled || len(path) == 0 {
		return
	}
	p.table.Increase(callpath.New(path...), ms)
}
