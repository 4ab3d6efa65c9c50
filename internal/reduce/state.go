package reduce

import (
	"slices"

	"ddebug/internal/syntax"
)

// State is the reduction state: the tree, the accepted removal set and the
// per-pass rejections. Only the session goroutine mutates it, between
// windows.
type State struct {
	tree     *syntax.Tree
	accepted []syntax.NodeID // sorted; subtrees are disjoint
	rejected map[syntax.NodeID]struct{}
	pass     int
}

func NewState(tree *syntax.Tree) *State {
	return &State{
		tree:     tree,
		rejected: make(map[syntax.NodeID]struct{}),
	}
}

func (s *State) Tree() *syntax.Tree { return s.tree }

// Pass returns the 1-based number of the current pass, 0 before the first.
func (s *State) Pass() int { return s.pass }

// Accepted returns a copy of the accepted set in id order.
func (s *State) Accepted() []syntax.NodeID {
	return slices.Clone(s.accepted)
}

// AcceptedCount returns the number of accepted removals.
func (s *State) AcceptedCount() int { return len(s.accepted) }

// Accept adds id to the accepted set. Accepted ids inside id's subtree are
// dropped; a node rejected in an earlier pass may be accepted after some of
// its descendants were.
func (s *State) Accept(id syntax.NodeID) {
	if s.Removed(id) {
		return
	}
	s.accepted = withRemoval(s.tree, s.accepted, id)
	delete(s.rejected, id)
}

// withRemoval returns the sorted set base ∪ {id} with the members covered by
// id's subtree folded into id. base is not modified.
func withRemoval(tree *syntax.Tree, base []syntax.NodeID, id syntax.NodeID) []syntax.NodeID {
	out := make([]syntax.NodeID, 0, len(base)+1)
	for _, x := range base {
		if !tree.IsAncestor(id, x) {
			out = append(out, x)
		}
	}
	i, _ := slices.BinarySearch(out, id)
	return slices.Insert(out, i, id)
}

// Reject records that id was tried and kept in the current pass.
func (s *State) Reject(id syntax.NodeID) {
	s.rejected[id] = struct{}{}
}

// Rejected reports whether id was rejected in the current pass.
func (s *State) Rejected(id syntax.NodeID) bool {
	_, ok := s.rejected[id]
	return ok
}

// Removed reports whether id is accepted or lies inside an accepted subtree.
// Accepted subtrees are disjoint, so only the closest accepted id at or
// before id can contain it.
func (s *State) Removed(id syntax.NodeID) bool {
	i, found := slices.BinarySearch(s.accepted, id)
	if found {
		return true
	}
	return i > 0 && s.tree.IsAncestor(s.accepted[i-1], id)
}

// BeginPass starts a new pass and forgets the previous pass's rejections.
func (s *State) BeginPass() {
	s.pass++
	clear(s.rejected)
}

// Text reconstructs the current program.
func (s *State) Text() string {
	return syntax.Reconstruct(s.tree, s.accepted)
}
