// Package syntax holds the reducer's own syntax tree: a strict ownership tree of
// nodes with preorder-assigned identities, byte spans into the original file and
// a coarse Kind that decides which nodes are removal candidates.
//
// # Model
//
// Trees are produced by a grammar front end (internal/grammar) through Builder,
// which enforces the span invariants while nodes are opened in preorder:
//
//   - every node span lies inside its parent span;
//   - sibling spans are ordered by position and never overlap.
//
// Because identities are preorder, the subtree of node n is exactly the id range
// [n, n+Descendants(n)], which makes ancestor tests and subtree walks O(1)/linear
// without recursion.
//
// # Registry operations
//
// ChildrenOf, SizeOf, IsRemovable and Reconstruct are the only operations the
// search needs. Reconstruct never repairs references: text with dangling uses is
// emitted as is and validity is left to the build oracle.
//
// References is a side table from identifiers to declaring and using nodes. It
// is informational only and is never consulted to block a removal.
package syntax
