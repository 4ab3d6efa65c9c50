package syntax

import (
	"errors"
	"fmt"

	"fortio.org/safecast"

	"ddebug/internal/source"
)

// ErrInvariant is wrapped by every span invariant violation reported by Builder.
var ErrInvariant = errors.New("syntax tree invariant violated")

// NodeSpec describes a node to open.
type NodeSpec struct {
	Kind     Kind
	Type     string
	Span     source.Span
	Name     string
	Ref      string
	ListElem bool
}

// Builder assembles a Tree in preorder: Open a node, open its children, Close it.
// The first invariant violation is latched and returned by Finish.
type Builder struct {
	file  *source.File
	nodes []Node
	stack []NodeID
	err   error
}

// NewBuilder starts a tree over file.
func NewBuilder(file *source.File) *Builder {
	return &Builder{
		file:  file,
		nodes: make([]Node, 0, 64),
		stack: make([]NodeID, 0, 16),
	}
}

// Open appends a node as the next child of the currently open node (or as the
// root when nothing is open) and makes it current.
func (b *Builder) Open(spec NodeSpec) NodeID {
	n, err := safecast.Conv[uint32](len(b.nodes))
	if err != nil {
		panic(fmt.Errorf("node count overflow: %w", err))
	}
	id := NodeID(n)
	parent := NoNode
	depth := 0
	if len(b.stack) > 0 {
		parent = b.stack[len(b.stack)-1]
		depth = b.nodes[parent].Depth + 1
		b.check(parent, spec.Span)
	} else if len(b.nodes) > 0 && b.err == nil {
		b.err = fmt.Errorf("%w: second root %q at %v", ErrInvariant, spec.Type, spec.Span)
	}
	if spec.Span.End < spec.Span.Start && b.err == nil {
		b.err = fmt.Errorf("%w: inverted span %v for %q", ErrInvariant, spec.Span, spec.Type)
	}
	if int(spec.Span.End) > len(b.file.Content) && b.err == nil {
		b.err = fmt.Errorf("%w: span %v of %q beyond end of file (%d bytes)", ErrInvariant, spec.Span, spec.Type, len(b.file.Content))
	}

	b.nodes = append(b.nodes, Node{
		ID:       id,
		Kind:     spec.Kind,
		Type:     spec.Type,
		Parent:   parent,
		Span:     spec.Span,
		Depth:    depth,
		Name:     spec.Name,
		Ref:      spec.Ref,
		ListElem: spec.ListElem,
	})
	if parent != NoNode {
		b.nodes[parent].Children = append(b.nodes[parent].Children, id)
	}
	b.stack = append(b.stack, id)
	return id
}

// Close finishes the current node.
func (b *Builder) Close() {
	if len(b.stack) == 0 {
		if b.err == nil {
			b.err = fmt.Errorf("%w: unbalanced Close", ErrInvariant)
		}
		return
	}
	b.stack = b.stack[:len(b.stack)-1]
}

func (b *Builder) check(parent NodeID, sp source.Span) {
	if b.err != nil {
		return
	}
	p := &b.nodes[parent]
	if !p.Span.Contains(sp) {
		b.err = fmt.Errorf("%w: span %v escapes parent %q %v", ErrInvariant, sp, p.Type, p.Span)
		return
	}
	if k := len(p.Children); k > 0 {
		prev := &b.nodes[p.Children[k-1]]
		if sp.Start < prev.Span.End {
			b.err = fmt.Errorf("%w: span %v overlaps or precedes sibling %q %v", ErrInvariant, sp, prev.Type, prev.Span)
		}
	}
}

// Finish validates balance, computes descendant counts and the reference table.
func (b *Builder) Finish() (*Tree, error) {
	if b.err != nil {
		return nil, b.err
	}
	if len(b.stack) != 0 {
		return nil, fmt.Errorf("%w: %d nodes left open", ErrInvariant, len(b.stack))
	}
	if len(b.nodes) == 0 {
		return nil, fmt.Errorf("%w: empty tree", ErrInvariant)
	}

	// Preorder: children always have larger ids, so a reverse sweep accumulates
	// subtree sizes bottom-up without recursion.
	desc := make([]uint32, len(b.nodes))
	for i := len(b.nodes) - 1; i > 0; i-- {
		p := b.nodes[i].Parent
		desc[p] += desc[i] + 1
	}

	t := &Tree{
		file:        b.file,
		nodes:       b.nodes,
		descendants: desc,
	}
	t.refs = buildReferences(t)
	return t, nil
}
