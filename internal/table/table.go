// Package table holds the per-session accumulation table: the only shared
// mutable state in the profiler.
package table

import (
	"sync"

	"github.com/treeprof/treeprof/internal/callpath"
)

type (
	// Entry is one accumulated call path.
	Entry struct {
		Path callpath.Path
		MS   float64
	}

	// Table maps call paths to cumulative elapsed milliseconds. Increments
	// to the same path from interleaved logical threads are serialized so
	// no update is lost.
	Table struct {
		mu      sync.Mutex
		entries map[string]*Entry
	}
)

func New() *Table {
	return &Table{entries: make(map[string]*Entry)}
}

// Increase adds ms to the cumulative value for path, creating the entry at
// zero if absent. The path is cloned on first insert; callers may keep
// mutating their copy.
func (t *Table) Increase(path callpath.Path, ms float64) {
	key := path.Key()
	t.mu.Lock()
	defer t.mu.Unlock()
	e, ok := t.entries[key]
	if !ok {
		e = &Entry{Path: path.Clone()}
		t.entries[key] = e
	}
	e.MS += ms
}

// Snapshot copies out every entry present in the table.
func (t *Table) Snapshot() []Entry {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]Entry, 0, len(t.entries))
	for _, e := range t.entries {
		out = append(out, Entry{Path: e.Path.Clone(), MS: e.MS})
	}
	return out
}

func (t *Table) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.entries = make(map[string]*Entry)
}

func (t *Table) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.entries)
}
