package syntax

import "slices"

// References maps identifiers to the nodes declaring and using them.
type References struct {
	decls map[string][]NodeID
	uses  map[string][]NodeID
}

func buildReferences(t *Tree) *References {
	r := &References{
		decls: make(map[string][]NodeID),
		uses:  make(map[string][]NodeID),
	}
	for i := range t.nodes {
		n := &t.nodes[i]
		if n.Name != "" {
			r.decls[n.Name] = append(r.decls[n.Name], n.ID)
		}
		if n.Ref != "" {
			r.uses[n.Ref] = append(r.uses[n.Ref], n.ID)
		}
	}
	return r
}

// Declarations returns the nodes declaring name, in document order.
func (r *References) Declarations(name string) []NodeID {
	if r == nil {
		return nil
	}
	return r.decls[name]
}

// UsersOf returns the use sites of the name declared by decl that lie outside
// decl's own subtree and are still live according to live.
func (r *References) UsersOf(t *Tree, decl NodeID, live func(NodeID) bool) []NodeID {
	if r == nil {
		return nil
	}
	n := t.Node(decl)
	if n == nil || n.Name == "" {
		return nil
	}
	var out []NodeID
	for _, use := range r.uses[n.Name] {
		if t.IsAncestor(decl, use) {
			continue
		}
		if live != nil && !live(use) {
			continue
		}
		out = append(out, use)
	}
	return slices.Clip(out)
}
