// Package reconciler patches a host surface so that it mirrors an editor
// snapshot.
//
// Reconcile compares the previously reconciled snapshot with the next one,
// walking only the subtrees named by the dirty set. Child lists are diffed
// by key: children on the longest increasing subsequence of their previous
// positions stay put, every other surviving child is moved, and new keys are
// created. A node that changes parent is moved, never recreated. Removals run
// after all moves and creations so that a moved subtree is never torn down.
//
// The host is addressed only by node key; what a host element is, and how a
// decorator renders into its container, is up to the Host and Decorator
// implementations.
package reconciler
