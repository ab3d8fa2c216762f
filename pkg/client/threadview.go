package client

import (
	"context"
	"fmt"

	"github.com/gofrs/uuid"

	"blogcomments/pkg/thread"
)

var ErrBadIndex = fmt.Errorf("node index out of range")

// ThreadView is the per-session comment tree of a single post: the flattened
// node sequence plus the counters that drive the top-level "load more"
// affordance. Fetches happen before any mutation of the sequence, never
// interleaved with it, so the view is always internally consistent.
type ThreadView struct {
	c      *Client
	postID uuid.UUID

	nodes        []thread.Node
	parentLoaded int

	totalComments       int64
	totalParentComments int64
}

func NewThreadView(c *Client, postID uuid.UUID) *ThreadView {
	return &ThreadView{c: c, postID: postID}
}

// Refresh re-reads the post counters from the service. Call once before the
// first LoadMore; concurrent edits by other users are only picked up by the
// next Refresh.
func (tv *ThreadView) Refresh(ctx context.Context) error {
	act, err := tv.c.Activity(ctx, tv.postID)
	if err != nil {
		return err
	}

	tv.totalComments = act.TotalComments
	tv.totalParentComments = act.TotalParentComments

	return nil
}

// Nodes returns the flattened sequence in render order.
func (tv *ThreadView) Nodes() []thread.Node {
	return tv.nodes
}

// HasMore reports whether top-level comments remain to be paged in.
func (tv *ThreadView) HasMore() bool {
	return int64(tv.parentLoaded) < tv.totalParentComments
}

// LoadMore fetches the next page of top-level comments and appends it.
func (tv *ThreadView) LoadMore(ctx context.Context) error {
	page, err := tv.c.Comments(ctx, tv.postID, tv.parentLoaded)
	if err != nil {
		return err
	}

	tv.nodes = thread.AppendPage(tv.nodes, page)
	tv.parentLoaded += len(page)

	return nil
}

// ToggleReplies expands the node's replies (first page) or collapses the
// materialized subtree if it is already expanded. Expanding a node with no
// replies is a no-op.
func (tv *ThreadView) ToggleReplies(ctx context.Context, i int) error {
	if i < 0 || i >= len(tv.nodes) {
		return ErrBadIndex
	}

	if tv.nodes[i].RepliesExpanded {
		tv.nodes = thread.Collapse(tv.nodes, i)
		return nil
	}

	if len(tv.nodes[i].Comment.ChildIDs) == 0 {
		return nil
	}

	replies, err := tv.c.Replies(ctx, tv.nodes[i].Comment.ID, 0)
	if err != nil {
		return err
	}

	tv.nodes = thread.InsertReplies(tv.nodes, i, replies)

	return nil
}

// LoadMoreReplies fetches the next reply page for the parent of nodes[i],
// skipping the children already materialized, and inserts it after them.
// Valid on any node inside the parent's subtree, which is where the
// affordance renders.
func (tv *ThreadView) LoadMoreReplies(ctx context.Context, i int) error {
	if i < 0 || i >= len(tv.nodes) {
		return ErrBadIndex
	}

	parent := thread.ParentIndex(tv.nodes, i)
	if parent < 0 {
		return ErrBadIndex
	}

	skip := thread.LoadedReplies(tv.nodes, parent)
	replies, err := tv.c.Replies(ctx, tv.nodes[parent].Comment.ID, skip)
	if err != nil {
		return err
	}

	tv.nodes = thread.InsertReplies(tv.nodes, parent, replies)

	return nil
}

// Delete cascade-deletes the comment at nodes[i] on the server, then removes
// the node and its materialized subtree locally and adjusts the counters.
func (tv *ThreadView) Delete(ctx context.Context, i int) error {
	if i < 0 || i >= len(tv.nodes) {
		return ErrBadIndex
	}

	if err := tv.c.DeleteComment(ctx, tv.nodes[i].Comment.ID); err != nil {
		return err
	}

	removed := thread.SubtreeEnd(tv.nodes, i) - i
	topLevel := tv.nodes[i].Depth == 0

	tv.nodes = thread.RemoveSubtree(tv.nodes, i, true)
	tv.totalComments -= int64(removed)
	if topLevel {
		tv.parentLoaded--
		tv.totalParentComments--
	}

	return nil
}
