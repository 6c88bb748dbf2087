// Package serialize converts editor snapshots to and from JSON.
//
// The document is an object with a format version, the nodes keyed by node
// key in document order, and an optional selection:
//
//	{
//	  "version": 1,
//	  "nodes": {
//	    "root": {"type": "root", "kind": "element", "children": ["a-1"]},
//	    "a-1":  {"type": "paragraph", "kind": "element", "parent": "root", "children": ["a-2"]},
//	    "a-2":  {"type": "text", "kind": "text", "parent": "a-1", "text": "Hi", "format": "bold"}
//	  },
//	  "selection": {
//	    "anchor": {"path": [0, 0], "offset": 1, "type": "text"},
//	    "focus":  {"path": [0, 0], "offset": 1, "type": "text"}
//	  }
//	}
//
// Keys are not preserved by Parse: every node gets a fresh key from the
// caller's generator, and selection points are carried as child-index paths
// so they resolve by position.
package serialize
