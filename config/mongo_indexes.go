package config

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	mongorepo "github.com/yoockh/recruitlink/internal/repositories/mongo"
)

func EnsureMongoIndexes(dbName string) error {
	if MongoClient == nil {
		return errors.New("MongoClient is nil; call InitMongo() first")
	}
	db := MongoClient.Database(dbName)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	notifications := db.Collection(mongorepo.NotificationsCollection)
	_, err := notifications.Indexes().CreateMany(ctx, []mongo.IndexModel{
		// TTL index: expire at ExpiresAt (must be Date)
		{
			Keys: bson.D{{Key: "expires_at", Value: 1}},
			Options: options.Index().
				SetName("ttl_expires_at").
				SetExpireAfterSeconds(0),
		},
		// inbox listing
		{
			Keys:    bson.D{{Key: "recipient_id", Value: 1}, {Key: "created_at", Value: -1}},
			Options: options.Index().SetName("by_recipient_created"),
		},
		{
			Keys:    bson.D{{Key: "recipient_id", Value: 1}, {Key: "read", Value: 1}},
			Options: options.Index().SetName("by_recipient_read"),
		},
	})
	return err
}
