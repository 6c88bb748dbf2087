// Package selection provides selection points over the node tree and the
// rules that carry them through structural edits.
//
// A Point addresses either a rune offset inside a text leaf (PointText) or a
// position between the children of an element (PointElement). A Selection
// pairs an anchor with a focus; it is collapsed when both are equal.
//
// The remap functions are pure: they take a point plus a description of an
// edit and return the rebased point. The store calls them while it applies
// each structural operation, so a selection is always valid for the working
// tree of a transaction, not just at commit:
//
//	// "Hello World" split at 4 into "Hell" + "o World"
//	p := selection.TextPoint(key, 7)
//	p = selection.RemapSplit(p, key, []selection.Fragment{
//		{Key: key, Start: 0, End: 4},
//		{Key: tail, Start: 4, End: 11},
//	})
//	// p == TextPoint(tail, 3)
package selection
