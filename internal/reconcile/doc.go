// Package reconcile merges the type and usage views of a catalog into one
// canonical product table.
//
// # Algorithm
//
//  1. Items whose name matches the exclusion keywords of their taxonomy are
//     dropped.
//  2. The remaining type and usage items are outer-joined on their name key.
//     A key found on one side only gets the sentinel category on the other
//     side. Name and price come from the side with precedence, falling back
//     to the other side when missing.
//  3. Joined rows are grouped by (name key, price), or by name key alone, and
//     the categories of each group are unioned, sorted and joined with the
//     delimiter.
//
// Output rows keep the order in which each group first appears. Running the
// reconciler twice over the same input produces the same table.
//
// A single-taxonomy variant groups one item set by name key, keeping the
// first price seen.
package reconcile
