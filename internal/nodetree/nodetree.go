// Package nodetree reconstructs the call-tree forest from the flat
// accumulation snapshot taken at session stop.
package nodetree

import (
	"sort"

	"github.com/zeebo/xxh3"

	"github.com/treeprof/treeprof/internal/callpath"
	"github.com/treeprof/treeprof/internal/table"
)

type (
	Node struct {
		Name        string        `json:"name"`
		Path        callpath.Path `json:"path"`
		MS          float64       `json:"duration_ms"`
		Fingerprint uint64        `json:"fingerprint"`
		Synthetic   bool          `json:"synthetic,omitempty"`
		Children    []*Node       `json:"children,omitempty"`
	}
)

// OtherName is the bucket name given to the synthetic child carrying a
// parent's time not accounted for by any measured child.
func OtherName(parent string) string {
	return "other " + parent
}

func newNode(path callpath.Path, ms float64, synthetic bool) *Node {
	return &Node{
		Name:        path.Leaf(),
		Path:        path,
		MS:          ms,
		Fingerprint: xxh3.HashString(path.Key()),
		Synthetic:   synthetic,
	}
}

// IsLeaf reports whether the node has no children in the reconstructed tree.
// Synthetic "other" nodes are always leaves.
func (n *Node) IsLeaf() bool {
	return len(n.Children) == 0
}

// Build derives parent/child structure from the snapshot: a stored path is a
// child of another iff it is exactly one element longer and starts with it.
// Every node with at least one child gets a synthetic trailing "other" child
// holding parent minus the sum of its children. That difference is reported
// as computed, even when measurement overhead drives it negative.
//
// Build must run exactly once per snapshot; feeding its output back in would
// double-inject the synthetic children.
func Build(entries []table.Entry) []*Node {
	index := make(map[string]*Node, len(entries))
	for _, e := range entries {
		index[e.Path.Key()] = newNode(e.Path, e.MS, false)
	}

	var roots []*Node
	for _, e := range entries {
		n := index[e.Path.Key()]
		if parent, ok := index[e.Path.ParentKey()]; ok {
			parent.Children = append(parent.Children, n)
		} else {
			// Depth-1 paths, plus orphans recorded without their parent
			// through the manual escape hatch.
			roots = append(roots, n)
		}
	}

	for _, n := range index {
		if len(n.Children) == 0 {
			continue
		}
		childrenMS := 0.0
		for _, c := range n.Children {
			childrenMS += c.MS
		}
		sortNodes(n.Children)
		other := newNode(n.Path.Child(OtherName(n.Name)), n.MS-childrenMS, true)
		n.Children = append(n.Children, other)
	}

	sortNodes(roots)
	return roots
}

// sortNodes orders measured siblings by duration descending, breaking ties by
// name, for deterministic reports. The synthetic child is appended afterwards
// so it always renders last.
func sortNodes(nodes []*Node) {
	sort.SliceStable(nodes, func(i, j int) bool {
		if nodes[i].MS != nodes[j].MS {
			return nodes[i].MS > nodes[j].MS
		}
		return nodes[i].Name < nodes[j].Name
	})
}
