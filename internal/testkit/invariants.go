// Package testkit holds helpers shared by package tests: tree invariant
// checks, synthetic trees and fake oracles.
package testkit

import (
	"fmt"
	"testing"

	"fortio.org/safecast"

	"ddebug/internal/syntax"
)

// CheckSpanInvariants verifies the structural invariants of a tree:
//  1. the root is node 0 and covers the whole file
//  2. every child span lies inside its parent span
//  3. siblings are ordered and do not overlap
//  4. ids are preorder: a subtree occupies a contiguous id range
func CheckSpanInvariants(tree *syntax.Tree) error {
	if tree == nil || tree.Len() == 0 {
		return fmt.Errorf("empty tree")
	}
	root := tree.Node(tree.Root())
	lenContent, err := safecast.Conv[uint32](len(tree.File().Content))
	if err != nil {
		return fmt.Errorf("len content overflow: %w", err)
	}
	if root.Parent != syntax.NoNode {
		return fmt.Errorf("root has parent %d", root.Parent)
	}
	if root.Span.Start != 0 || root.Span.End != lenContent {
		return fmt.Errorf("root span %v does not cover file of %d bytes", root.Span, lenContent)
	}

	for i := range tree.Len() {
		id := syntax.NodeID(i) // #nosec G115 -- bounded by tree.Len
		n := tree.Node(id)
		if n.ID != id {
			return fmt.Errorf("node at index %d has id %d", i, n.ID)
		}
		next := id + 1
		for k, c := range n.Children {
			child := tree.Node(c)
			if child == nil {
				return fmt.Errorf("node %d: missing child %d", id, c)
			}
			if child.Parent != id {
				return fmt.Errorf("child %d of %d points to parent %d", c, id, child.Parent)
			}
			if child.Depth != n.Depth+1 {
				return fmt.Errorf("child %d depth %d under parent depth %d", c, child.Depth, n.Depth)
			}
			if !n.Span.Contains(child.Span) {
				return fmt.Errorf("child %d span %v escapes parent %d span %v", c, child.Span, id, n.Span)
			}
			if k > 0 && tree.Node(n.Children[k-1]).Span.End > child.Span.Start {
				return fmt.Errorf("children %d and %d of %d overlap or are unordered", n.Children[k-1], c, id)
			}
			if c != next {
				return fmt.Errorf("child %d of %d breaks preorder (want id %d)", c, id, next)
			}
			next = c + syntax.NodeID(tree.Descendants(c)) + 1 // #nosec G115
		}
		if int(next-id-1) != tree.Descendants(id) {
			return fmt.Errorf("node %d: descendant count %d, children cover %d", id, tree.Descendants(id), next-id-1)
		}
	}
	return nil
}

// CheckTreeInvariants fails the test when CheckSpanInvariants reports an error.
func CheckTreeInvariants(tb testing.TB, tree *syntax.Tree) {
	tb.Helper()
	if err := CheckSpanInvariants(tree); err != nil {
		tb.Fatalf("tree invariants: %v", err)
	}
}
