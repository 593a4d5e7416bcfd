package treeprof

import (
	"io"

	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/treeprof/treeprof/internal/nodetree"
	"github.com/treeprof/treeprof/internal/report"
)

// Sink receives rendered report lines in order. Anything with a Line method
// qualifies.
type Sink = report.Sink

// NewWriterSink returns a Sink printing one line per call to w.
func NewWriterSink(w io.Writer) Sink {
	return report.NewWriterSink(w)
}

// Report is the outcome of one profiling session: the reconstructed
// call-tree forest, ready to render.
type Report struct {
	SessionID  uuid.UUID
	DurationMS float64

	minMS float64
	roots []*nodetree.Node
}

// Render writes the hierarchical view followed by the flat leaf view to the
// sink, separated by a blank line. Entries below the configured threshold
// are suppressed from both.
func (r *Report) Render(s Sink) {
	rd := report.Renderer{MinMS: r.minMS}
	rd.Hierarchical(r.roots, s)
	s.Line("")
	rd.Flat(r.roots, s)
}

// String renders both views into one string.
func (r *Report) String() string {
	var buf report.Buffer
	r.Render(&buf)
	return buf.String()
}

// JSON marshals the forest, with per-path fingerprints, for machine
// consumers.
func (r *Report) JSON() ([]byte, error) {
	return json.Marshal(struct {
		SessionID  uuid.UUID        `json:"session_id"`
		DurationMS float64          `json:"duration_ms"`
		Roots      []*nodetree.Node `json:"roots"`
	}{
		SessionID:  r.SessionID,
		DurationMS: r.DurationMS,
		Roots:      r.roots,
	})
}
