package mongo

import (
	"context"
	"time"

	"github.com/yoockh/recruitlink/internal/models"
	"github.com/yoockh/recruitlink/internal/utils"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const NotificationsCollection = "notifications"

type NotificationRepository interface {
	Insert(ctx context.Context, n *models.Notification) error
	ListByRecipient(ctx context.Context, recipientID string, unreadOnly bool, limit int64) ([]models.Notification, error)
	MarkRead(ctx context.Context, recipientID, id string) error
}

type notificationRepo struct {
	col *mongo.Collection
}

func NewNotificationRepo(db *mongo.Database) NotificationRepository {
	return &notificationRepo{col: db.Collection(NotificationsCollection)}
}

func (r *notificationRepo) Insert(ctx context.Context, n *models.Notification) error {
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now().UTC()
	}
	res, err := r.col.InsertOne(ctx, n)
	if err != nil {
		return err
	}
	if oid, ok := res.InsertedID.(primitive.ObjectID); ok {
		n.ID = oid
	}
	return nil
}

func (r *notificationRepo) ListByRecipient(ctx context.Context, recipientID string, unreadOnly bool, limit int64) ([]models.Notification, error) {
	if limit <= 0 {
		limit = 50
	}

	filter := bson.M{"recipient_id": recipientID}
	if unreadOnly {
		filter["read"] = false
	}

	cur, err := r.col.Find(ctx, filter,
		options.Find().
			SetSort(bson.D{{Key: "created_at", Value: -1}}).
			SetLimit(limit),
	)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var out []models.Notification
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *notificationRepo) MarkRead(ctx context.Context, recipientID, id string) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return utils.ErrNotFound
	}
	res, err := r.col.UpdateOne(ctx,
		bson.M{"_id": oid, "recipient_id": recipientID},
		bson.M{"$set": bson.M{"read": true}},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return utils.ErrNotFound
	}
	return nil
}
