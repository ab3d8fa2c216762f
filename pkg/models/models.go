package models

import (
	"time"

	"github.com/gofrs/uuid"
)

// Notification types. A "like" notification never references a comment,
// but shares the collection with comment/reply notifications.
const (
	NotificationLike    = "like"
	NotificationComment = "comment"
	NotificationReply   = "reply"
)

// Comment is a single comment document. Top-level comments have a Nil ParentID;
// replies carry the parent's ID and IsReply set. ChildIDs lists direct children
// in insertion order and always mirrors the set of surviving replies.
type Comment struct {
	ID           uuid.UUID   `json:"id" bson:"_id"`
	PostID       uuid.UUID   `json:"postId" bson:"post_id"`
	PostAuthorID uuid.UUID   `json:"postAuthorId" bson:"post_author_id"`
	AuthorID     uuid.UUID   `json:"authorId" bson:"author_id"`
	Body         string      `json:"body" bson:"body"`
	ParentID     uuid.UUID   `json:"parentId,omitempty" bson:"parent_id"`
	IsReply      bool        `json:"isReply" bson:"is_reply"`
	ChildIDs     []uuid.UUID `json:"childIds" bson:"child_ids"`
	Published    time.Time   `json:"createdAt" bson:"published"`
}

// Notification is the side record created for every comment, reply and like.
// CommentID points at the triggering comment; ReplyID is set later, when the
// notified user answers from the notifications page.
type Notification struct {
	ID          uuid.UUID `json:"id" bson:"_id"`
	Type        string    `json:"type" bson:"type"`
	PostID      uuid.UUID `json:"postId" bson:"post_id"`
	ForUserID   uuid.UUID `json:"notificationFor" bson:"notification_for"`
	FromUserID  uuid.UUID `json:"user" bson:"user"`
	CommentID   uuid.UUID `json:"comment,omitempty" bson:"comment"`
	ReplyID     uuid.UUID `json:"reply,omitempty" bson:"reply"`
	RepliedOnID uuid.UUID `json:"repliedOnComment,omitempty" bson:"replied_on_comment"`
	Seen        bool      `json:"seen" bson:"seen"`
	CreatedAt   time.Time `json:"createdAt" bson:"created_at"`
}

// Activity holds the denormalized comment counters of a post.
// TotalParentComments counts only surviving top-level comments.
type Activity struct {
	PostID              uuid.UUID `json:"postId" bson:"_id"`
	TotalComments       int64     `json:"totalComments" bson:"total_comments"`
	TotalParentComments int64     `json:"totalParentComments" bson:"total_parent_comments"`
}
