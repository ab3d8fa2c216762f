package api

import (
	"time"

	"github.com/gofrs/uuid"

	"blogcomments/pkg/models"
)

type AddCommentRequest struct {
	PostID         uuid.UUID `json:"postId"`
	PostAuthorID   uuid.UUID `json:"postAuthorId"`
	Body           string    `json:"body"`
	ParentID       uuid.UUID `json:"parentId,omitempty"`
	NotificationID uuid.UUID `json:"notificationId,omitempty"`
}

type AddCommentResponse struct {
	ID        uuid.UUID   `json:"id"`
	AuthorID  uuid.UUID   `json:"authorId"`
	Comment   string      `json:"comment"`
	CreatedAt time.Time   `json:"createdAt"`
	ChildIDs  []uuid.UUID `json:"childIds"`
}

type BlogCommentsRequest struct {
	PostID uuid.UUID `json:"postId"`
	Skip   int       `json:"skip"`
}

type RepliesRequest struct {
	CommentID uuid.UUID `json:"commentId"`
	Skip      int       `json:"skip"`
}

type RepliesResponse struct {
	Replies []models.Comment `json:"replies"`
}

type DeleteCommentRequest struct {
	CommentID uuid.UUID `json:"commentId"`
}

type LogEntry struct {
	Timestamp  time.Time `json:"timestamp"`
	IP         string    `json:"ip"`
	StatusCode int       `json:"status_code"`
	RequestID  string    `json:"request_id"`
	Method     string    `json:"method"`
	Path       string    `json:"path"`
	Duration   float64   `json:"duration_sec"`
	Service    string    `json:"service"`
}
