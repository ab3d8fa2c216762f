// Package thread represents a comment tree of arbitrary depth as a single
// ordered sequence, the way the rendering layer addresses it: every node
// carries its depth, and all descendants of a node occupy the contiguous
// range immediately following it. All operations are pure functions over
// (sequence, index) and return a fresh sequence.
package thread

import (
	"github.com/gofrs/uuid"

	"blogcomments/pkg/models"
)

// Node wraps a comment with its depth in the flattened sequence.
// RepliesExpanded tracks whether the node's children are currently
// materialized; how many of them are loaded is never stored, it is always
// derived from the structure (replies can be collapsed and re-expanded
// independently of how many exist server-side).
type Node struct {
	Comment         models.Comment
	Depth           int
	RepliesExpanded bool
}

// AppendPage appends a freshly fetched page of top-level comments (depth 0)
// to the end of the sequence.
func AppendPage(nodes []Node, comments []models.Comment) []Node {
	out := make([]Node, 0, len(nodes)+len(comments))
	out = append(out, nodes...)
	for _, c := range comments {
		out = append(out, Node{Comment: c})
	}

	return out
}

// SubtreeEnd returns the index one past the last descendant of nodes[i]:
// the first following index whose depth is not greater than nodes[i].Depth,
// or len(nodes).
func SubtreeEnd(nodes []Node, i int) int {
	end := i + 1
	for end < len(nodes) && nodes[end].Depth > nodes[i].Depth {
		end++
	}

	return end
}

// ParentIndex returns the index of the parent of nodes[i]: the nearest
// preceding node at a shallower depth. Returns -1 for top-level nodes.
func ParentIndex(nodes []Node, i int) int {
	for p := i - 1; p >= 0; p-- {
		if nodes[p].Depth < nodes[i].Depth {
			return p
		}
	}

	return -1
}

// LoadedReplies counts the direct children of nodes[i] materialized in the
// sequence.
func LoadedReplies(nodes []Node, i int) int {
	var n int
	for j := i + 1; j < SubtreeEnd(nodes, i); j++ {
		if nodes[j].Depth == nodes[i].Depth+1 {
			n++
		}
	}

	return n
}

// HasMoreReplies reports whether nodes[i] has children that exist server-side
// but are not materialized yet. This drives the "load more replies"
// affordance.
func HasMoreReplies(nodes []Node, i int) bool {
	return LoadedReplies(nodes, i) < len(nodes[i].Comment.ChildIDs)
}

// InsertReplies inserts a fetched page of replies to nodes[i] as a contiguous
// block at the end of the node's current subtree, one level deeper, and marks
// the node expanded. Placing the page after the already-materialized children
// keeps every earlier child's subtree contiguous and preserves page load
// order.
func InsertReplies(nodes []Node, i int, replies []models.Comment) []Node {
	at := SubtreeEnd(nodes, i)
	depth := nodes[i].Depth + 1

	out := make([]Node, 0, len(nodes)+len(replies))
	out = append(out, nodes[:at]...)
	for _, c := range replies {
		out = append(out, Node{Comment: c, Depth: depth})
	}
	out = append(out, nodes[at:]...)
	out[i].RepliesExpanded = true

	return out
}

// Collapse removes every descendant of nodes[i] from the sequence and clears
// the node's expanded flag.
func Collapse(nodes []Node, i int) []Node {
	end := SubtreeEnd(nodes, i)

	out := make([]Node, 0, len(nodes)-(end-i-1))
	out = append(out, nodes[:i+1]...)
	out = append(out, nodes[end:]...)
	out[i].RepliesExpanded = false

	return out
}

// RemoveSubtree removes the descendants of nodes[i] and, when rootDeletion is
// set, the node itself. A deleted reply is also removed from its parent's
// child list; if it was the parent's last remaining child, the parent is
// marked collapsed. Without rootDeletion this is equivalent to Collapse.
func RemoveSubtree(nodes []Node, i int, rootDeletion bool) []Node {
	out := Collapse(nodes, i)
	if !rootDeletion {
		return out
	}

	parent := ParentIndex(out, i)
	id := out[i].Comment.ID
	out = append(out[:i:i], out[i+1:]...)

	if parent >= 0 {
		kept := make([]uuid.UUID, 0, len(out[parent].Comment.ChildIDs))
		for _, childID := range out[parent].Comment.ChildIDs {
			if childID != id {
				kept = append(kept, childID)
			}
		}
		out[parent].Comment.ChildIDs = kept
		if len(kept) == 0 {
			out[parent].RepliesExpanded = false
		}
	}

	return out
}
