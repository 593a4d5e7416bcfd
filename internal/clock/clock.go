// Package clock provides the elapsed-time sources the profiler measures
// against. A profiler uses exactly one source for its whole lifetime; wall
// and CPU readings are never mixed.
package clock

import (
	"os"
	"time"

	"github.com/shirou/gopsutil/v4/process"
)

// Clock returns a monotonically non-decreasing reading of elapsed time since
// an arbitrary fixed origin. Two readings of the same clock are comparable;
// readings of different clocks are not.
type Clock interface {
	Now() time.Duration
}

// Wall reads the monotonic wall clock.
type Wall struct {
	base time.Time
}

func NewWall() *Wall {
	return &Wall{base: time.Now()}
}

func (w *Wall) Now() time.Duration {
	return time.Since(w.base)
}

// CPU reads the process CPU time (user + system). Its resolution is bounded
// by the kernel's accounting granularity, which makes it coarser than Wall
// but insensitive to time spent blocked.
type CPU struct {
	proc *process.Process
	last time.Duration
}

func NewCPU() (*CPU, error) {
	proc, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		return nil, err
	}
	c := &CPU{proc: proc}
	// Fail construction, not measurement, if CPU accounting is unreadable.
	if _, err := proc.Times(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *CPU) Now() time.Duration {
	t, err := c.proc.Times()
	if err != nil {
		// A transient read failure must not move time backwards.
		return c.last
	}
	d := time.Duration((t.User + t.System) * float64(time.Second))
	if d > c.last {
		c.last = d
	}
	return c.last
}

// Manual is a hand-advanced clock for deterministic tests.
type Manual struct {
	at time.Duration
}

func (m *Manual) Now() time.Duration {
	return m.at
}

func (m *Manual) Advance(d time.Duration) {
	m.at += d
}
