package syntax

import (
	"slices"
	"strings"
)

// Reconstruct serializes tree back to source with every node in removed, and
// its whole subtree, elided. Removing a node that stands alone on its lines
// removes those lines; removing a list element removes one adjoining comma.
// Ids that are not in the tree, or are the root, are ignored.
func Reconstruct(tree *Tree, removed []NodeID) string {
	roots := removalRoots(tree, removed)
	content := tree.file.Content
	if len(roots) == 0 {
		return string(content)
	}

	isRoot := func(id NodeID) bool {
		_, ok := slices.BinarySearch(roots, id)
		return ok
	}
	cuts := make([]cut, 0, len(roots))
	for _, id := range roots {
		cuts = append(cuts, elisionRange(tree, id, isRoot))
	}
	cuts = mergeCuts(cuts)

	var sb strings.Builder
	sb.Grow(len(content))
	pos := 0
	for _, c := range cuts {
		sb.Write(content[pos:c.start])
		pos = c.end
	}
	sb.Write(content[pos:])
	return sb.String()
}

// removalRoots deduplicates removed and drops ids covered by another removed id.
func removalRoots(tree *Tree, removed []NodeID) []NodeID {
	ids := make([]NodeID, 0, len(removed))
	for _, id := range removed {
		if id == tree.Root() || int(id) >= tree.Len() {
			continue
		}
		ids = append(ids, id)
	}
	slices.Sort(ids)
	ids = slices.Compact(ids)

	roots := ids[:0]
	for _, id := range ids {
		if len(roots) > 0 && tree.IsAncestor(roots[len(roots)-1], id) {
			continue
		}
		roots = append(roots, id)
	}
	return roots
}

type cut struct {
	start, end int
}

func elisionRange(tree *Tree, id NodeID, removed func(NodeID) bool) cut {
	n := tree.Node(id)
	content := tree.file.Content
	c := cut{start: int(n.Span.Start), end: int(n.Span.End)}

	if n.ListElem {
		c = listCut(tree, id, removed)
	}

	// Whole-line elision when only whitespace shares the node's lines.
	ls := c.start
	for ls > 0 && isBlank(content[ls-1]) {
		ls--
	}
	le := skipBlank(content, c.end)
	atLineStart := ls == 0 || content[ls-1] == '\n'
	atLineEnd := le == len(content) || content[le] == '\n'
	if atLineStart && atLineEnd {
		c.start = ls
		c.end = le
		if le < len(content) {
			c.end = le + 1
		}
	}
	return c
}

// listCut widens the cut of a list element to the run of consecutive removed
// siblings it belongs to, taking exactly one separator with the run: the one
// before the next surviving element, else the one after the previous survivor,
// else a trailing comma.
func listCut(tree *Tree, id NodeID, removed func(NodeID) bool) cut {
	content := tree.file.Content
	n := tree.Node(id)
	siblings := tree.ChildrenOf(n.Parent)
	k := slices.Index(siblings, id)
	elem := func(i int) bool {
		return i >= 0 && i < len(siblings) && tree.Node(siblings[i]).ListElem
	}
	i, j := k, k
	for elem(i-1) && removed(siblings[i-1]) {
		i--
	}
	for elem(j+1) && removed(siblings[j+1]) {
		j++
	}
	first, last := tree.Node(siblings[i]), tree.Node(siblings[j])

	switch {
	case elem(j + 1):
		return cut{start: int(first.Span.Start), end: int(tree.Node(siblings[j+1]).Span.Start)}
	case elem(i - 1):
		return cut{start: int(tree.Node(siblings[i-1]).Span.End), end: int(last.Span.End)}
	}
	c := cut{start: int(first.Span.Start), end: int(last.Span.End)}
	if e := skipSpace(content, c.end); e < len(content) && content[e] == ',' {
		c.end = e + 1
	}
	return c
}

func mergeCuts(cuts []cut) []cut {
	slices.SortFunc(cuts, func(a, b cut) int { return a.start - b.start })
	out := cuts[:0]
	for _, c := range cuts {
		if len(out) > 0 && c.start <= out[len(out)-1].end {
			last := &out[len(out)-1]
			last.end = max(last.end, c.end)
			continue
		}
		out = append(out, c)
	}
	return out
}

func isBlank(b byte) bool { return b == ' ' || b == '\t' || b == '\r' }

func isSpace(b byte) bool { return isBlank(b) || b == '\n' }

func skipBlank(content []byte, i int) int {
	for i < len(content) && isBlank(content[i]) {
		i++
	}
	return i
}

func skipSpace(content []byte, i int) int {
	for i < len(content) && isSpace(content[i]) {
		i++
	}
	return i
}

