package memdb

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/gofrs/uuid"

	"blogcomments/pkg/models"
	"blogcomments/pkg/storage"
)

// Store is an in-memory implementation of storage.Storage. It is used by the
// server in development mode and by tests that should not require a Mongo
// instance. The cascade on delete runs under a single lock, so no partially
// applied state is ever observable.
type Store struct {
	mu            sync.Mutex
	comments      map[uuid.UUID]models.Comment
	notifications map[uuid.UUID]models.Notification
	activity      map[uuid.UUID]models.Activity
}

func New() *Store {
	db := Store{
		comments:      make(map[uuid.UUID]models.Comment),
		notifications: make(map[uuid.UUID]models.Notification),
		activity:      make(map[uuid.UUID]models.Activity),
	}

	return &db
}

func (db *Store) CreateComment(ctx context.Context, comment models.Comment, notificationID uuid.UUID) (models.Comment, error) {
	if comment.PostID == uuid.Nil {
		return models.Comment{}, storage.ErrPostIDNotProvided
	}
	if strings.TrimSpace(comment.Body) == "" {
		return models.Comment{}, storage.ErrEmptyBody
	}

	if comment.ID == uuid.Nil {
		id, err := uuid.NewV4()
		if err != nil {
			return models.Comment{}, err
		}
		comment.ID = id
	}
	if comment.Published.IsZero() {
		comment.Published = time.Now()
	}
	comment.IsReply = comment.ParentID != uuid.Nil
	if comment.ChildIDs == nil {
		comment.ChildIDs = []uuid.UUID{}
	}

	db.mu.Lock()
	defer db.mu.Unlock()

	notification := models.Notification{
		Type:       models.NotificationComment,
		PostID:     comment.PostID,
		ForUserID:  comment.PostAuthorID,
		FromUserID: comment.AuthorID,
		CommentID:  comment.ID,
		CreatedAt:  comment.Published,
	}

	if comment.IsReply {
		parent, ok := db.comments[comment.ParentID]
		if !ok || parent.PostID != comment.PostID {
			return models.Comment{}, storage.ErrParentCommentNotFound
		}
		parent.ChildIDs = append(parent.ChildIDs, comment.ID)
		db.comments[parent.ID] = parent

		notification.Type = models.NotificationReply
		notification.ForUserID = parent.AuthorID
		notification.RepliedOnID = parent.ID

		if notificationID != uuid.Nil {
			if n, ok := db.notifications[notificationID]; ok {
				n.ReplyID = comment.ID
				db.notifications[notificationID] = n
			}
		}
	}

	db.comments[comment.ID] = comment

	nID, err := uuid.NewV4()
	if err != nil {
		return models.Comment{}, err
	}
	notification.ID = nID
	db.notifications[nID] = notification

	act := db.activity[comment.PostID]
	act.PostID = comment.PostID
	act.TotalComments++
	if !comment.IsReply {
		act.TotalParentComments++
	}
	db.activity[comment.PostID] = act

	return comment, nil
}

func (db *Store) TopLevelComments(ctx context.Context, postID uuid.UUID, skip, limit int) ([]models.Comment, error) {
	if postID == uuid.Nil {
		return nil, storage.ErrPostIDNotProvided
	}

	db.mu.Lock()
	var topLevel []models.Comment
	for _, c := range db.comments {
		if c.PostID == postID && !c.IsReply {
			topLevel = append(topLevel, c)
		}
	}
	db.mu.Unlock()

	return window(topLevel, skip, limit), nil
}

func (db *Store) Replies(ctx context.Context, commentID uuid.UUID, skip, limit int) ([]models.Comment, error) {
	db.mu.Lock()
	parent, ok := db.comments[commentID]
	if !ok {
		db.mu.Unlock()
		return nil, storage.ErrCommentNotFound
	}

	replies := make([]models.Comment, 0, len(parent.ChildIDs))
	for _, childID := range parent.ChildIDs {
		if child, ok := db.comments[childID]; ok {
			replies = append(replies, child)
		}
	}
	db.mu.Unlock()

	return window(replies, skip, limit), nil
}

func (db *Store) DeleteComment(ctx context.Context, commentID, requesterID uuid.UUID) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	comment, ok := db.comments[commentID]
	if !ok {
		return storage.ErrCommentNotFound
	}
	if requesterID != comment.AuthorID && requesterID != comment.PostAuthorID {
		return storage.ErrNotAuthorized
	}

	if comment.IsReply {
		if parent, ok := db.comments[comment.ParentID]; ok {
			kept := make([]uuid.UUID, 0, len(parent.ChildIDs))
			for _, id := range parent.ChildIDs {
				if id != commentID {
					kept = append(kept, id)
				}
			}
			parent.ChildIDs = kept
			db.comments[parent.ID] = parent
		}
	}

	db.deleteSubtree(comment)

	return nil
}

// deleteSubtree removes the comment, its descendants and their notification
// references, adjusting the post counters per removed comment. Callers must
// hold db.mu.
func (db *Store) deleteSubtree(comment models.Comment) {
	for _, childID := range comment.ChildIDs {
		if child, ok := db.comments[childID]; ok {
			db.deleteSubtree(child)
		}
	}

	delete(db.comments, comment.ID)

	for id, n := range db.notifications {
		if n.CommentID == comment.ID {
			delete(db.notifications, id)
			continue
		}
		if n.ReplyID == comment.ID {
			n.ReplyID = uuid.Nil
			db.notifications[id] = n
		}
	}

	act := db.activity[comment.PostID]
	act.PostID = comment.PostID
	act.TotalComments--
	if !comment.IsReply {
		act.TotalParentComments--
	}
	db.activity[comment.PostID] = act
}

func (db *Store) Activity(ctx context.Context, postID uuid.UUID) (models.Activity, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	act, ok := db.activity[postID]
	if !ok {
		return models.Activity{PostID: postID}, nil
	}

	return act, nil
}

func (db *Store) Ping(ctx context.Context) error {
	return nil
}

func (db *Store) Close(ctx context.Context) {}

// Notifications returns a snapshot of all notification records.
// Exposed for tests verifying the delete cascade side effects.
func (db *Store) Notifications() []models.Notification {
	db.mu.Lock()
	defer db.mu.Unlock()

	res := make([]models.Notification, 0, len(db.notifications))
	for _, n := range db.notifications {
		res = append(res, n)
	}

	return res
}

// window sorts comments newest first and applies skip/limit.
func window(comments []models.Comment, skip, limit int) []models.Comment {
	sort.Slice(comments, func(i, j int) bool {
		return comments[i].Published.After(comments[j].Published)
	})

	if skip < 0 {
		skip = 0
	}
	if skip >= len(comments) {
		return []models.Comment{}
	}

	end := len(comments)
	if limit > 0 && skip+limit < end {
		end = skip + limit
	}

	return comments[skip:end]
}
