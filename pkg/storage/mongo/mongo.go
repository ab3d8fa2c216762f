package mongo

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gofrs/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"blogcomments/pkg/models"
	"blogcomments/pkg/storage"
)

const (
	collComments      = "comments"
	collNotifications = "notifications"
	collActivity      = "activity"
)

type Storage struct {
	client *mongo.Client
	dbName string
}

func New(conf *Config) (*Storage, error) {
	opt := conf.Options()
	client, err := mongo.Connect(context.Background(), opt)
	if err != nil {
		return nil, err
	}

	s := Storage{client: client, dbName: conf.DBName}
	for _, name := range []string{collComments, collNotifications, collActivity} {
		if err := s.createCollection(name); err != nil {
			client.Disconnect(context.Background())
			return nil, fmt.Errorf("%w: %v", storage.ErrConnectDB, err)
		}
	}

	return &s, nil
}

func (s *Storage) Ping(ctx context.Context) error {
	return s.client.Ping(ctx, nil)
}

func (s *Storage) Close(ctx context.Context) {
	s.client.Disconnect(ctx)
}

// CreateComment inserts a new comment into the database.
//
// Validates that PostID is provided and the body is not blank. If ParentID is
// set, verifies the parent comment exists in the same post, appends the new ID
// to the parent's child list and, when notificationID is given, links that
// notification's reply field to the new comment. Bumps the post's comment
// counters with atomic increments and records the comment/reply notification.
// If the comment's ID or Published timestamp are zero values, they are
// automatically generated here.
func (s *Storage) CreateComment(ctx context.Context, comment models.Comment, notificationID uuid.UUID) (models.Comment, error) {
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

	db := s.client.Database(s.dbName)
	comments := db.Collection(collComments)

	notification := models.Notification{
		Type:       models.NotificationComment,
		PostID:     comment.PostID,
		ForUserID:  comment.PostAuthorID,
		FromUserID: comment.AuthorID,
		CommentID:  comment.ID,
		CreatedAt:  comment.Published,
	}

	if comment.IsReply {
		var parent models.Comment
		err := comments.FindOne(ctx, bson.M{
			"_id":     comment.ParentID,
			"post_id": comment.PostID,
		}).Decode(&parent)
		if errors.Is(err, mongo.ErrNoDocuments) {
			return models.Comment{}, storage.ErrParentCommentNotFound
		}
		if err != nil {
			return models.Comment{}, err
		}

		notification.Type = models.NotificationReply
		notification.ForUserID = parent.AuthorID
		notification.RepliedOnID = parent.ID
	}

	if _, err := comments.InsertOne(ctx, comment); err != nil {
		return models.Comment{}, err
	}

	if comment.IsReply {
		_, err := comments.UpdateOne(ctx,
			bson.M{"_id": comment.ParentID},
			bson.M{"$push": bson.M{"child_ids": comment.ID}},
		)
		if err != nil {
			return models.Comment{}, err
		}

		if notificationID != uuid.Nil {
			_, err := db.Collection(collNotifications).UpdateOne(ctx,
				bson.M{"_id": notificationID},
				bson.M{"$set": bson.M{"reply": comment.ID}},
			)
			if err != nil {
				return models.Comment{}, err
			}
		}
	}

	parentInc := int64(1)
	if comment.IsReply {
		parentInc = 0
	}
	_, err := db.Collection(collActivity).UpdateOne(ctx,
		bson.M{"_id": comment.PostID},
		bson.M{"$inc": bson.M{
			"total_comments":        1,
			"total_parent_comments": parentInc,
		}},
		options.Update().SetUpsert(true),
	)
	if err != nil {
		return models.Comment{}, err
	}

	id, err := uuid.NewV4()
	if err != nil {
		return models.Comment{}, err
	}
	notification.ID = id
	if _, err := db.Collection(collNotifications).InsertOne(ctx, notification); err != nil {
		return models.Comment{}, err
	}

	return comment, nil
}

// TopLevelComments returns a window of the post's top-level comments,
// newest first.
func (s *Storage) TopLevelComments(ctx context.Context, postID uuid.UUID, skip, limit int) ([]models.Comment, error) {
	if postID == uuid.Nil {
		return nil, storage.ErrPostIDNotProvided
	}

	coll := s.client.Database(s.dbName).Collection(collComments)
	opts := options.Find().
		SetSort(bson.D{{Key: "published", Value: -1}}).
		SetSkip(int64(skip)).
		SetLimit(int64(limit))

	cur, err := coll.Find(ctx, bson.M{"post_id": postID, "is_reply": false}, opts)
	if err != nil {
		return nil, err
	}

	comments := []models.Comment{}
	if err := cur.All(ctx, &comments); err != nil {
		return nil, err
	}

	return comments, nil
}

// Replies returns a window of the comment's direct children, newest first.
func (s *Storage) Replies(ctx context.Context, commentID uuid.UUID, skip, limit int) ([]models.Comment, error) {
	coll := s.client.Database(s.dbName).Collection(collComments)

	cnt, err := coll.CountDocuments(ctx, bson.M{"_id": commentID})
	if err != nil {
		return nil, err
	}
	if cnt == 0 {
		return nil, storage.ErrCommentNotFound
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "published", Value: -1}}).
		SetSkip(int64(skip)).
		SetLimit(int64(limit))

	cur, err := coll.Find(ctx, bson.M{"parent_id": commentID}, opts)
	if err != nil {
		return nil, err
	}

	replies := []models.Comment{}
	if err := cur.All(ctx, &replies); err != nil {
		return nil, err
	}

	return replies, nil
}

// DeleteComment removes the comment and its whole reply subtree. The cascade
// runs inside a single session transaction so a crash or concurrent write
// cannot leave half of the subtree behind.
func (s *Storage) DeleteComment(ctx context.Context, commentID, requesterID uuid.UUID) error {
	comments := s.client.Database(s.dbName).Collection(collComments)

	var comment models.Comment
	err := comments.FindOne(ctx, bson.M{"_id": commentID}).Decode(&comment)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return storage.ErrCommentNotFound
	}
	if err != nil {
		return err
	}

	if requesterID != comment.AuthorID && requesterID != comment.PostAuthorID {
		return storage.ErrNotAuthorized
	}

	session, err := s.client.StartSession()
	if err != nil {
		return err
	}
	defer session.EndSession(ctx)

	_, err = session.WithTransaction(ctx, func(sessCtx mongo.SessionContext) (interface{}, error) {
		return nil, s.cascade(sessCtx, comment)
	})
	if transactionsUnsupported(err) {
		// Standalone deployment. The unguarded cascade matches the weaker
		// failure semantics the storage contract allows.
		return s.cascade(ctx, comment)
	}

	return err
}

// cascade unlinks the comment from its parent and removes the subtree.
func (s *Storage) cascade(ctx context.Context, comment models.Comment) error {
	if comment.IsReply {
		comments := s.client.Database(s.dbName).Collection(collComments)
		_, err := comments.UpdateOne(ctx,
			bson.M{"_id": comment.ParentID},
			bson.M{"$pull": bson.M{"child_ids": comment.ID}},
		)
		if err != nil {
			return err
		}
	}

	return s.deleteSubtree(ctx, comment)
}

// transactionsUnsupported reports whether the error means the deployment
// cannot run multi-document transactions (no replica set or mongos).
func transactionsUnsupported(err error) bool {
	if err == nil {
		return false
	}

	var cmdErr mongo.CommandError
	if errors.As(err, &cmdErr) && cmdErr.Code == 20 { // IllegalOperation
		return true
	}

	return strings.Contains(err.Error(), "Transaction numbers are only allowed")
}

// deleteSubtree removes the comment and, depth-first, every descendant.
// For each removed comment it drops notifications triggered by it, clears
// reply references to it and decrements the post counters.
func (s *Storage) deleteSubtree(ctx context.Context, comment models.Comment) error {
	db := s.client.Database(s.dbName)
	comments := db.Collection(collComments)

	for _, childID := range comment.ChildIDs {
		var child models.Comment
		err := comments.FindOne(ctx, bson.M{"_id": childID}).Decode(&child)
		if errors.Is(err, mongo.ErrNoDocuments) {
			continue
		}
		if err != nil {
			return err
		}

		if err := s.deleteSubtree(ctx, child); err != nil {
			return err
		}
	}

	if _, err := comments.DeleteOne(ctx, bson.M{"_id": comment.ID}); err != nil {
		return err
	}

	notifications := db.Collection(collNotifications)
	if _, err := notifications.DeleteMany(ctx, bson.M{"comment": comment.ID}); err != nil {
		return err
	}
	_, err := notifications.UpdateMany(ctx,
		bson.M{"reply": comment.ID},
		bson.M{"$set": bson.M{"reply": uuid.Nil}},
	)
	if err != nil {
		return err
	}

	parentInc := int64(-1)
	if comment.IsReply {
		parentInc = 0
	}
	_, err = db.Collection(collActivity).UpdateOne(ctx,
		bson.M{"_id": comment.PostID},
		bson.M{"$inc": bson.M{
			"total_comments":        -1,
			"total_parent_comments": parentInc,
		}},
	)

	return err
}

// Activity returns the post's comment counters. Unknown posts report zeroes.
func (s *Storage) Activity(ctx context.Context, postID uuid.UUID) (models.Activity, error) {
	coll := s.client.Database(s.dbName).Collection(collActivity)

	var act models.Activity
	err := coll.FindOne(ctx, bson.M{"_id": postID}).Decode(&act)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return models.Activity{PostID: postID}, nil
	}
	if err != nil {
		return models.Activity{}, err
	}

	return act, nil
}

// createCollection creates a collection with the given name in the database if it doesn't already exist.
func (s *Storage) createCollection(collName string) error {
	collExists, err := collectionExists(s.client.Database(s.dbName), collName)
	if err != nil {
		return err
	}

	if !collExists {
		err := s.client.Database(s.dbName).CreateCollection(context.Background(), collName)
		if err != nil {
			return err
		}
	}

	return nil
}

// collectionExists checks if a collection with the given name exists in the database.
func collectionExists(db *mongo.Database, collName string) (bool, error) {
	names, err := db.ListCollectionNames(context.Background(), bson.D{})
	if err != nil {
		return false, fmt.Errorf("failed to list collection names: %w", err)
	}

	for _, name := range names {
		if name == collName {
			return true, nil
		}
	}

	return false, nil
}
