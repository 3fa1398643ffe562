// Package realtime publishes CV status changes and notifications on Redis
// Pub/Sub so WebSocket handlers on any replica can forward them.
package realtime

import (
	"context"
	"encoding/json"

	"github.com/redis/go-redis/v9"
	"github.com/yoockh/recruitlink/internal/models"
)

func CVStatusChannel(proposalID string) string  { return "proposal:" + proposalID + ":cv_status" }
func NotificationChannel(userID string) string { return "user:" + userID + ":notifications" }

type RedisPublisher struct {
	rdb redis.Cmdable
}

func NewRedisPublisher(rdb redis.Cmdable) *RedisPublisher {
	return &RedisPublisher{rdb: rdb}
}

func (p *RedisPublisher) PublishCVStatus(ctx context.Context, ev models.CVStatusEvent) error {
	ev.Type = "cv_status"
	b, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	return p.rdb.Publish(ctx, CVStatusChannel(ev.ProposalID), b).Err()
}

type notificationMessage struct {
	Type         string               `json:"type"` // always "notification"
	Notification *models.Notification `json:"notification"`
}

func (p *RedisPublisher) PublishNotification(ctx context.Context, n *models.Notification) error {
	b, err := json.Marshal(notificationMessage{Type: "notification", Notification: n})
	if err != nil {
		return err
	}
	return p.rdb.Publish(ctx, NotificationChannel(n.RecipientID), b).Err()
}
