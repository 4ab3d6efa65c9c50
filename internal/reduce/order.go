package reduce

import (
	"cmp"
	"slices"

	"ddebug/internal/syntax"
)

// orderLevel sorts one level for trial: size descending, then start offset,
// then id. The order is total, so it does not depend on the input order.
func orderLevel(tree *syntax.Tree, ids []syntax.NodeID, metric syntax.SizeMetric) {
	slices.SortFunc(ids, func(a, b syntax.NodeID) int {
		if c := cmp.Compare(tree.SizeOf(b, metric), tree.SizeOf(a, metric)); c != 0 {
			return c
		}
		if c := cmp.Compare(tree.Node(a).Span.Start, tree.Node(b).Span.Start); c != 0 {
			return c
		}
		return cmp.Compare(a, b)
	})
}
