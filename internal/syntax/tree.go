package syntax

import (
	"bytes"
	"math"

	"ddebug/internal/source"
)

// NodeID is a stable, preorder-assigned node identity. The root is always 0.
type NodeID uint32

// NoNode marks the absent parent of the root.
const NoNode NodeID = math.MaxUint32

// Node is one syntax tree node.
type Node struct {
	ID       NodeID
	Kind     Kind
	Type     string // grammar node type, e.g. "let_declaration"
	Parent   NodeID
	Children []NodeID
	Span     source.Span
	Depth    int

	// Name is the identifier the node declares, if any.
	Name string
	// Ref is the identifier the node refers to, if it is a use site.
	Ref string
	// ListElem marks elements of comma-separated lists (parameters, fields,
	// variants, arguments); reconstruct drops the adjoining separator with them.
	ListElem bool
}

// Tree owns every node parsed from one target file.
type Tree struct {
	file        *source.File
	nodes       []Node
	descendants []uint32 // strict descendant count per node
	refs        *References
}

// Root returns the root node id.
func (t *Tree) Root() NodeID { return 0 }

// Len returns the total number of nodes.
func (t *Tree) Len() int { return len(t.nodes) }

// File returns the source file the tree was parsed from.
func (t *Tree) File() *source.File { return t.file }

// Node returns the node with the given id, or nil.
func (t *Tree) Node(id NodeID) *Node {
	if int(id) >= len(t.nodes) {
		return nil
	}
	return &t.nodes[id]
}

// ChildrenOf returns the ordered child ids of id.
func (t *Tree) ChildrenOf(id NodeID) []NodeID {
	n := t.Node(id)
	if n == nil {
		return nil
	}
	return n.Children
}

// Descendants returns the number of strict descendants of id.
func (t *Tree) Descendants(id NodeID) int {
	if int(id) >= len(t.descendants) {
		return 0
	}
	return int(t.descendants[id])
}

// SizeOf measures id with the given metric.
func (t *Tree) SizeOf(id NodeID, metric SizeMetric) int {
	n := t.Node(id)
	if n == nil {
		return 0
	}
	if metric == SizeDescendants {
		return t.Descendants(id) + 1
	}
	return int(n.Span.Len())
}

// IsAncestor reports whether a is b or one of b's ancestors.
func (t *Tree) IsAncestor(a, b NodeID) bool {
	if int(a) >= len(t.nodes) {
		return false
	}
	return b >= a && uint64(b) <= uint64(a)+uint64(t.descendants[a])
}

// Subtree returns id followed by all of its descendants in preorder.
func (t *Tree) Subtree(id NodeID) []NodeID {
	if int(id) >= len(t.nodes) {
		return nil
	}
	out := make([]NodeID, 0, t.descendants[id]+1)
	for i := uint64(id); i <= uint64(id)+uint64(t.descendants[id]); i++ {
		out = append(out, NodeID(i)) // #nosec G115 -- bounded by node count
	}
	return out
}

// Removable returns all removal candidates in preorder.
func (t *Tree) Removable() []NodeID {
	var out []NodeID
	for i := range t.nodes {
		if IsRemovable(t.nodes[i].Kind) {
			out = append(out, t.nodes[i].ID)
		}
	}
	return out
}

// Text returns the original source bytes of id.
func (t *Tree) Text(id NodeID) []byte {
	n := t.Node(id)
	if n == nil {
		return nil
	}
	return t.file.Text(n.Span)
}

// Label is a short single-line description of a node for traces and reports.
func (t *Tree) Label(id NodeID) string {
	n := t.Node(id)
	if n == nil {
		return "<none>"
	}
	text := t.Text(id)
	suffix := ""
	if i := bytes.IndexByte(text, '\n'); i >= 0 {
		text, suffix = text[:i], " ..."
	}
	return n.Kind.String() + " " + string(bytes.TrimSpace(text)) + suffix
}

// References returns the identifier side table.
func (t *Tree) References() *References {
	return t.refs
}
