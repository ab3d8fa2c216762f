package storage

import (
	"context"
	"fmt"

	"github.com/gofrs/uuid"

	"blogcomments/pkg/models"
)

var (
	ErrConnectDB       = fmt.Errorf("unable to establish DB connection")
	ErrDBNotResponding = fmt.Errorf("DB not responding")

	ErrPostIDNotProvided     = fmt.Errorf("postID not provided")
	ErrEmptyBody             = fmt.Errorf("comment body is empty")
	ErrCommentNotFound       = fmt.Errorf("comment not found")
	ErrParentCommentNotFound = fmt.Errorf("parent comment not found")
	ErrNotAuthorized         = fmt.Errorf("requester is not allowed to delete this comment")
)

// Storage persists comments, their notifications and per-post comment counters.
type Storage interface {
	// CreateComment inserts a comment or reply and performs the associated
	// bookkeeping: appends the new ID to the parent's child list, bumps the
	// post's counters and creates the comment/reply notification. When
	// notificationID is not Nil, that notification's reply field is pointed
	// at the new comment.
	//
	// Returns ErrEmptyBody for a blank body, ErrPostIDNotProvided for a Nil
	// post ID and ErrParentCommentNotFound when ParentID references nothing.
	CreateComment(ctx context.Context, comment models.Comment, notificationID uuid.UUID) (models.Comment, error)

	// TopLevelComments returns a window of the post's top-level comments,
	// newest first. An empty result is not an error.
	TopLevelComments(ctx context.Context, postID uuid.UUID, skip, limit int) ([]models.Comment, error)

	// Replies returns a window of the comment's direct children, newest
	// first. Returns ErrCommentNotFound if the comment does not exist.
	Replies(ctx context.Context, commentID uuid.UUID, skip, limit int) ([]models.Comment, error)

	// DeleteComment removes the comment and its entire reply subtree, along
	// with notification references and counter adjustments. The requester
	// must be the comment's author or the post's author, otherwise
	// ErrNotAuthorized. Returns ErrCommentNotFound if the comment does not
	// exist.
	DeleteComment(ctx context.Context, commentID, requesterID uuid.UUID) error

	// Activity returns the post's comment counters. Unknown posts report
	// zero counters.
	Activity(ctx context.Context, postID uuid.UUID) (models.Activity, error)

	Ping(ctx context.Context) error
	Close(ctx context.Context)
}
