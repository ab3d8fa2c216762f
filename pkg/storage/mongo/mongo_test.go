package mongo

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/gofrs/uuid"
	"go.mongodb.org/mongo-driver/bson"

	"blogcomments/pkg/models"
	"blogcomments/pkg/storage"
)

// testStorage connects to the test Mongo instance, skipping the test when the
// instance is not running, and resets the database on cleanup.
func testStorage(t *testing.T) *Storage {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	db, err := StorageConnect(ctx)
	if err != nil {
		t.Skipf("test mongo instance not available: %v", err)
	}

	if err := RestoreDB(db); err != nil {
		t.Fatalf("failed to restore DB: %v", err)
	}
	t.Cleanup(func() {
		RestoreDB(db)
		db.Close(context.Background())
	})

	return db
}

// New must surface the first collection-setup failure instead of returning a
// storage that every operation then hangs on. With a short server selection
// timeout the whole attempt stays fast, which is what lets the integration
// tests skip promptly when no Mongo instance is running.
func TestNew_FailsFastWithoutServer(t *testing.T) {
	conf := &Config{
		Host:   "localhost",
		Port:   "1",
		DBName: "blogcomments_unreachable",

		ServerSelectionTimeout: 500 * time.Millisecond,
	}

	start := time.Now()
	_, err := New(conf)
	elapsed := time.Since(start)

	if !errors.Is(err, storage.ErrConnectDB) {
		t.Errorf("want error %v for unreachable server, got %v", storage.ErrConnectDB, err)
	}
	if elapsed > 10*time.Second {
		t.Errorf("want failure within the selection timeout, took %v", elapsed)
	}
}

func newUUID(t *testing.T) uuid.UUID {
	t.Helper()

	id, err := uuid.NewV4()
	if err != nil {
		t.Fatalf("failed to generate uuid: %v", err)
	}

	return id
}

func addComment(t *testing.T, db *Storage, postID, postAuthorID, authorID, parentID uuid.UUID, body string) models.Comment {
	t.Helper()

	comment, err := db.CreateComment(context.Background(), models.Comment{
		PostID:       postID,
		PostAuthorID: postAuthorID,
		AuthorID:     authorID,
		Body:         body,
		ParentID:     parentID,
	}, uuid.Nil)
	if err != nil {
		t.Fatalf("unexpected error creating comment: %v", err)
	}

	return comment
}

func TestStorage_CreateComment(t *testing.T) {
	db := testStorage(t)
	ctx := context.Background()

	postID := newUUID(t)
	postAuthorID := newUUID(t)
	userID := newUUID(t)

	parent := addComment(t, db, postID, postAuthorID, userID, uuid.Nil, "first!")
	if parent.ID == uuid.Nil {
		t.Error("want generated comment ID, got zero value")
	}
	if parent.IsReply {
		t.Error("want top-level comment, got reply")
	}
	if parent.Published.IsZero() {
		t.Error("want generated publish time, got zero value")
	}

	reply := addComment(t, db, postID, postAuthorID, userID, parent.ID, "me too")
	if !reply.IsReply {
		t.Error("want reply flag set on child comment")
	}

	var stored models.Comment
	err := db.client.Database(db.dbName).Collection(collComments).
		FindOne(ctx, bson.M{"_id": parent.ID}).Decode(&stored)
	if err != nil {
		t.Fatalf("unexpected error reading parent back: %v", err)
	}
	if len(stored.ChildIDs) != 1 || stored.ChildIDs[0] != reply.ID {
		t.Errorf("want parent child list [%v], got %v", reply.ID, stored.ChildIDs)
	}

	act, err := db.Activity(ctx, postID)
	if err != nil {
		t.Fatalf("unexpected error reading activity: %v", err)
	}
	if act.TotalComments != 2 {
		t.Errorf("want total comments 2, got %d", act.TotalComments)
	}
	if act.TotalParentComments != 1 {
		t.Errorf("want total parent comments 1, got %d", act.TotalParentComments)
	}
}

func TestStorage_CreateCommentValidation(t *testing.T) {
	db := testStorage(t)
	ctx := context.Background()

	postID := newUUID(t)
	userID := newUUID(t)

	tests := []struct {
		name    string
		comment models.Comment
		wantErr error
	}{
		{
			name:    "missing post ID",
			comment: models.Comment{AuthorID: userID, Body: "hello"},
			wantErr: storage.ErrPostIDNotProvided,
		},
		{
			name:    "blank body",
			comment: models.Comment{PostID: postID, AuthorID: userID, Body: "   "},
			wantErr: storage.ErrEmptyBody,
		},
		{
			name:    "unknown parent",
			comment: models.Comment{PostID: postID, AuthorID: userID, Body: "hello", ParentID: newUUID(t)},
			wantErr: storage.ErrParentCommentNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := db.CreateComment(ctx, tt.comment, uuid.Nil)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("want error %v, got %v", tt.wantErr, err)
			}
		})
	}

	act, err := db.Activity(ctx, postID)
	if err != nil {
		t.Fatalf("unexpected error reading activity: %v", err)
	}
	if act.TotalComments != 0 {
		t.Errorf("want counters untouched by rejected comments, got %d", act.TotalComments)
	}
}

func TestStorage_CreateCommentNotifications(t *testing.T) {
	db := testStorage(t)
	ctx := context.Background()

	postID := newUUID(t)
	postAuthorID := newUUID(t)
	commenterID := newUUID(t)
	replierID := newUUID(t)

	parent := addComment(t, db, postID, postAuthorID, commenterID, uuid.Nil, "nice post")

	notifications := db.client.Database(db.dbName).Collection(collNotifications)

	var forPostAuthor models.Notification
	err := notifications.FindOne(ctx, bson.M{"notification_for": postAuthorID}).Decode(&forPostAuthor)
	if err != nil {
		t.Fatalf("unexpected error reading comment notification: %v", err)
	}
	if forPostAuthor.Type != models.NotificationComment {
		t.Errorf("want notification type %q, got %q", models.NotificationComment, forPostAuthor.Type)
	}
	if forPostAuthor.CommentID != parent.ID {
		t.Errorf("want notification for comment %v, got %v", parent.ID, forPostAuthor.CommentID)
	}

	reply := addComment(t, db, postID, postAuthorID, replierID, parent.ID, "agreed")

	var forCommenter models.Notification
	err = notifications.FindOne(ctx, bson.M{"notification_for": commenterID}).Decode(&forCommenter)
	if err != nil {
		t.Fatalf("unexpected error reading reply notification: %v", err)
	}
	if forCommenter.Type != models.NotificationReply {
		t.Errorf("want notification type %q, got %q", models.NotificationReply, forCommenter.Type)
	}
	if forCommenter.RepliedOnID != parent.ID {
		t.Errorf("want replied-on %v, got %v", parent.ID, forCommenter.RepliedOnID)
	}
	if forCommenter.CommentID != reply.ID {
		t.Errorf("want notification for comment %v, got %v", reply.ID, forCommenter.CommentID)
	}
}

func TestStorage_CreateCommentLinksNotification(t *testing.T) {
	db := testStorage(t)
	ctx := context.Background()

	postID := newUUID(t)
	postAuthorID := newUUID(t)
	commenterID := newUUID(t)

	parent := addComment(t, db, postID, postAuthorID, commenterID, uuid.Nil, "nice post")

	notifications := db.client.Database(db.dbName).Collection(collNotifications)

	var original models.Notification
	err := notifications.FindOne(ctx, bson.M{"comment": parent.ID}).Decode(&original)
	if err != nil {
		t.Fatalf("unexpected error reading original notification: %v", err)
	}

	reply, err := db.CreateComment(ctx, models.Comment{
		PostID:       postID,
		PostAuthorID: postAuthorID,
		AuthorID:     postAuthorID,
		Body:         "thanks",
		ParentID:     parent.ID,
	}, original.ID)
	if err != nil {
		t.Fatalf("unexpected error replying from notification: %v", err)
	}

	var linked models.Notification
	err = notifications.FindOne(ctx, bson.M{"_id": original.ID}).Decode(&linked)
	if err != nil {
		t.Fatalf("unexpected error reading linked notification: %v", err)
	}
	if linked.ReplyID != reply.ID {
		t.Errorf("want notification reply link %v, got %v", reply.ID, linked.ReplyID)
	}
}

func TestStorage_TopLevelCommentsPagination(t *testing.T) {
	db := testStorage(t)
	ctx := context.Background()

	postID := newUUID(t)
	postAuthorID := newUUID(t)
	userID := newUUID(t)

	var newest uuid.UUID
	for i := 0; i < 7; i++ {
		comment, err := db.CreateComment(ctx, models.Comment{
			PostID:       postID,
			PostAuthorID: postAuthorID,
			AuthorID:     userID,
			Body:         "comment",
			Published:    time.Date(2025, 6, 1, 12, i, 0, 0, time.UTC),
		}, uuid.Nil)
		if err != nil {
			t.Fatalf("unexpected error creating comment: %v", err)
		}
		newest = comment.ID
	}

	// a reply must not show up among top-level comments
	top, err := db.TopLevelComments(ctx, postID, 0, 5)
	if err != nil {
		t.Fatalf("unexpected error listing comments: %v", err)
	}
	addComment(t, db, postID, postAuthorID, userID, top[0].ID, "a reply")

	first, err := db.TopLevelComments(ctx, postID, 0, 5)
	if err != nil {
		t.Fatalf("unexpected error listing first page: %v", err)
	}
	if len(first) != 5 {
		t.Fatalf("want 5 comments on first page, got %d", len(first))
	}
	if first[0].ID != newest {
		t.Errorf("want newest comment first, got %v", first[0].ID)
	}

	second, err := db.TopLevelComments(ctx, postID, 5, 5)
	if err != nil {
		t.Fatalf("unexpected error listing second page: %v", err)
	}
	if len(second) != 2 {
		t.Errorf("want 2 comments on second page, got %d", len(second))
	}

	third, err := db.TopLevelComments(ctx, postID, 10, 5)
	if err != nil {
		t.Fatalf("unexpected error listing third page: %v", err)
	}
	if len(third) != 0 {
		t.Errorf("want empty third page, got %d comments", len(third))
	}
}

func TestStorage_Replies(t *testing.T) {
	db := testStorage(t)
	ctx := context.Background()

	postID := newUUID(t)
	postAuthorID := newUUID(t)
	userID := newUUID(t)

	parent := addComment(t, db, postID, postAuthorID, userID, uuid.Nil, "parent")
	for i := 0; i < 3; i++ {
		addComment(t, db, postID, postAuthorID, userID, parent.ID, "reply")
	}

	replies, err := db.Replies(ctx, parent.ID, 0, 5)
	if err != nil {
		t.Fatalf("unexpected error listing replies: %v", err)
	}
	if len(replies) != 3 {
		t.Errorf("want 3 replies, got %d", len(replies))
	}

	_, err = db.Replies(ctx, newUUID(t), 0, 5)
	if !errors.Is(err, storage.ErrCommentNotFound) {
		t.Errorf("want error %v for unknown comment, got %v", storage.ErrCommentNotFound, err)
	}
}

func TestStorage_DeleteCommentCascade(t *testing.T) {
	db := testStorage(t)
	ctx := context.Background()

	postID := newUUID(t)
	postAuthorID := newUUID(t)
	userID := newUUID(t)

	c1 := addComment(t, db, postID, postAuthorID, userID, uuid.Nil, "C1")
	r1 := addComment(t, db, postID, postAuthorID, userID, c1.ID, "R1")
	addComment(t, db, postID, postAuthorID, userID, r1.ID, "R2")
	other := addComment(t, db, postID, postAuthorID, userID, uuid.Nil, "other thread")

	if err := db.DeleteComment(ctx, c1.ID, userID); err != nil {
		t.Fatalf("unexpected error deleting comment: %v", err)
	}

	comments := db.client.Database(db.dbName).Collection(collComments)
	cnt, err := comments.CountDocuments(ctx, bson.M{"post_id": postID})
	if err != nil {
		t.Fatalf("unexpected error counting comments: %v", err)
	}
	if cnt != 1 {
		t.Errorf("want only the other thread left, got %d comments", cnt)
	}
	if err := comments.FindOne(ctx, bson.M{"_id": other.ID}).Err(); err != nil {
		t.Errorf("want the other thread untouched, got %v", err)
	}

	act, err := db.Activity(ctx, postID)
	if err != nil {
		t.Fatalf("unexpected error reading activity: %v", err)
	}
	if act.TotalComments != 1 {
		t.Errorf("want total comments 1 after the cascade, got %d", act.TotalComments)
	}
	if act.TotalParentComments != 1 {
		t.Errorf("want total parent comments 1 after the cascade, got %d", act.TotalParentComments)
	}

	notifications := db.client.Database(db.dbName).Collection(collNotifications)
	cnt, err = notifications.CountDocuments(ctx, bson.M{"comment": bson.M{"$in": []uuid.UUID{c1.ID, r1.ID}}})
	if err != nil {
		t.Fatalf("unexpected error counting notifications: %v", err)
	}
	if cnt != 0 {
		t.Errorf("want no notifications left for the deleted subtree, got %d", cnt)
	}
}

func TestStorage_DeleteReplyUnlinksParent(t *testing.T) {
	db := testStorage(t)
	ctx := context.Background()

	postID := newUUID(t)
	postAuthorID := newUUID(t)
	userID := newUUID(t)

	parent := addComment(t, db, postID, postAuthorID, userID, uuid.Nil, "parent")
	reply := addComment(t, db, postID, postAuthorID, userID, parent.ID, "reply")

	if err := db.DeleteComment(ctx, reply.ID, userID); err != nil {
		t.Fatalf("unexpected error deleting reply: %v", err)
	}

	var stored models.Comment
	err := db.client.Database(db.dbName).Collection(collComments).
		FindOne(ctx, bson.M{"_id": parent.ID}).Decode(&stored)
	if err != nil {
		t.Fatalf("unexpected error reading parent back: %v", err)
	}
	if len(stored.ChildIDs) != 0 {
		t.Errorf("want parent child list emptied, got %v", stored.ChildIDs)
	}
}

func TestStorage_DeleteCommentAuthorization(t *testing.T) {
	db := testStorage(t)
	ctx := context.Background()

	postID := newUUID(t)
	postAuthorID := newUUID(t)
	userID := newUUID(t)
	strangerID := newUUID(t)

	comment := addComment(t, db, postID, postAuthorID, userID, uuid.Nil, "mine")

	err := db.DeleteComment(ctx, comment.ID, strangerID)
	if !errors.Is(err, storage.ErrNotAuthorized) {
		t.Errorf("want error %v for stranger, got %v", storage.ErrNotAuthorized, err)
	}

	// the blog author moderates any comment on their post
	if err := db.DeleteComment(ctx, comment.ID, postAuthorID); err != nil {
		t.Errorf("unexpected error deleting as post author: %v", err)
	}

	err = db.DeleteComment(ctx, comment.ID, userID)
	if !errors.Is(err, storage.ErrCommentNotFound) {
		t.Errorf("want error %v for deleted comment, got %v", storage.ErrCommentNotFound, err)
	}
}
