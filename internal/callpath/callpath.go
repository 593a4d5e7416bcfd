package callpath

import "strings"

// keySep joins path elements into a table key. The unit separator never
// appears in sane bucket names, so two distinct paths never collide on a key.
const keySep = "\x1f"

// Path is an ordered sequence of bucket names from the profiling root down to
// the current nesting depth. Identity is structural: two paths are the same
// accounting key iff they hold the same names in the same order.
type Path []string

func New(names ...string) Path {
	p := make(Path, len(names))
	copy(p, names)
	return p
}

// Key derives the accumulation-table key for the path.
func (p Path) Key() string {
	return strings.Join(p, keySep)
}

// Child returns a new path extended by one trailing name. The receiver is not
// modified and does not share backing storage with the result.
func (p Path) Child(name string) Path {
	c := make(Path, len(p)+1)
	copy(c, p)
	c[len(p)] = name
	return c
}

// Leaf returns the terminal bucket name, or "" for the empty path.
func (p Path) Leaf() string {
	if len(p) == 0 {
		return ""
	}
	return p[len(p)-1]
}

func (p Path) Depth() int {
	return len(p)
}

// ParentKey returns the key of the path one element shorter, or "" for paths
// of depth <= 1.
func (p Path) ParentKey() string {
	if len(p) <= 1 {
		return ""
	}
	return p[:len(p)-1].Key()
}

func (p Path) Clone() Path {
	c := make(Path, len(p))
	copy(c, p)
	return c
}

func (p Path) String() string {
	return strings.Join(p, " > ")
}
