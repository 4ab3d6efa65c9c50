// Package reduce implements hierarchical delta debugging over a syntax tree:
// it removes whole syntactic units from the target file while the build still
// reports the signature error, until no single remaining removable node can
// be dropped.
//
// A Session owns the mutable State and runs passes. Each pass walks the tree
// level by level from the root's children; within a level, candidates are
// tried largest first. A candidate is the accepted set plus one node. If the
// oracle says the error reproduces, the node is accepted and its subtree is
// never visited again; otherwise its children join the next level.
//
// With Concurrency > 1, up to N candidates of a level are tried at once
// against the same accepted set. Verdicts are committed in priority order
// and only up to the first acceptance; later verdicts were computed against
// a stale accepted set and are tried again. Every decision therefore matches
// the sequential run.
package reduce
