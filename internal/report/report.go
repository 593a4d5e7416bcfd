// Package report renders the reconstructed call-tree forest as the two
// session views: hierarchical (time per bucket including children) and flat
// (non-overlapping totals per leaf bucket name).
package report

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/treeprof/treeprof/internal/nodetree"
)

// Sink receives rendered report lines in order.
type Sink interface {
	Line(s string)
}

// WriterSink writes each line to an io.Writer, one line per call.
type WriterSink struct {
	w io.Writer
}

func NewWriterSink(w io.Writer) *WriterSink {
	return &WriterSink{w: w}
}

func (s *WriterSink) Line(line string) {
	fmt.Fprintln(s.w, line)
}

// Buffer collects lines in memory for callers that want the report as a
// value rather than as console output.
type Buffer struct {
	lines []string
}

func (b *Buffer) Line(line string) {
	b.lines = append(b.lines, line)
}

func (b *Buffer) Lines() []string {
	return b.lines
}

func (b *Buffer) String() string {
	if len(b.lines) == 0 {
		return ""
	}
	return strings.Join(b.lines, "\n") + "\n"
}

// Renderer writes report views, suppressing entries below MinMS.
type Renderer struct {
	MinMS float64
}

func line(depth int, name string, ms float64) string {
	return fmt.Sprintf("%s%s: %.1f", strings.Repeat("  ", depth), name, ms)
}

// Hierarchical walks the forest pre-order. A sub-threshold leaf prints
// nothing. A sub-threshold parent's own line is suppressed, but its children
// are still walked and judged independently, at the depth they would have
// had. That asymmetry is long-standing operator-visible behavior.
func (r Renderer) Hierarchical(roots []*nodetree.Node, s Sink) {
	for _, n := range roots {
		r.walk(n, 0, s)
	}
}

func (r Renderer) walk(n *nodetree.Node, depth int, s Sink) {
	if n.IsLeaf() {
		if n.MS >= r.MinMS {
			s.Line(line(depth, n.Name, n.MS))
		}
		return
	}
	if n.MS >= r.MinMS {
		s.Line(line(depth, n.Name, n.MS))
	}
	for _, c := range n.Children {
		r.walk(c, depth+1, s)
	}
}

// Flat groups every leaf in the forest by terminal bucket name, sums the
// groups, and prints them in descending order of total, followed by the
// grand total of the printed lines as "measured time". Leaf totals never
// overlap, so the grand total is the whole measured session (minus whatever
// the threshold filtered).
func (r Renderer) Flat(roots []*nodetree.Node, s Sink) {
	totals := make(map[string]float64)
	var order []string
	var collect func(n *nodetree.Node)
	collect = func(n *nodetree.Node) {
		if n.IsLeaf() {
			if _, ok := totals[n.Name]; !ok {
				order = append(order, n.Name)
			}
			totals[n.Name] += n.MS
			return
		}
		for _, c := range n.Children {
			collect(c)
		}
	}
	for _, n := range roots {
		collect(n)
	}

	sort.SliceStable(order, func(i, j int) bool {
		if totals[order[i]] != totals[order[j]] {
			return totals[order[i]] > totals[order[j]]
		}
		return order[i] < order[j]
	})

	grand := 0.0
	for _, name := range order {
		ms := totals[name]
		if ms < r.MinMS {
			continue
		}
		s.Line(line(0, name, ms))
		grand += ms
	}
	s.Line(fmt.Sprintf("measured time: %.1f", grand))
}
