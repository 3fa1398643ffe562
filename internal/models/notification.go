package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type NotificationType string

const (
	NotifyAccessRequested NotificationType = "access_requested"
	NotifyAccessGranted   NotificationType = "access_granted"
	NotifyCVReady         NotificationType = "cv_ready"
)

type Notification struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	RecipientID string             `bson:"recipient_id" json:"recipient_id"`
	Type        NotificationType   `bson:"type" json:"type"`
	ProposalID  string             `bson:"proposal_id,omitempty" json:"proposal_id,omitempty"`
	ActorID     string             `bson:"actor_id,omitempty" json:"actor_id,omitempty"`
	Message     string             `bson:"message" json:"message"`
	Read        bool               `bson:"read" json:"read"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	ExpiresAt time.Time `bson:"expires_at" json:"-"` // for TTL index
}
