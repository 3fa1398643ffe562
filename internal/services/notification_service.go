package services

import (
	"context"
	"errors"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/yoockh/recruitlink/internal/models"
	mongorepo "github.com/yoockh/recruitlink/internal/repositories/mongo"
	"github.com/yoockh/recruitlink/internal/utils"
)

// Notifier delivers a best-effort message to a marketplace user.
type Notifier interface {
	Notify(ctx context.Context, n *models.Notification) error
}

type NotificationPublisher interface {
	PublishNotification(ctx context.Context, n *models.Notification) error
}

type NotificationService interface {
	Notifier
	List(ctx context.Context, userID string, unreadOnly bool, limit int64) ([]models.Notification, error)
	MarkRead(ctx context.Context, userID, id string) error
}

type notificationService struct {
	repo      mongorepo.NotificationRepository
	publisher NotificationPublisher
	ttl       time.Duration
	log       *logrus.Logger
}

func NewNotificationService(repo mongorepo.NotificationRepository, publisher NotificationPublisher, ttl time.Duration, log *logrus.Logger) NotificationService {
	if ttl <= 0 {
		ttl = 30 * 24 * time.Hour
	}
	if log == nil {
		log = logrus.New()
	}
	return &notificationService{repo: repo, publisher: publisher, ttl: ttl, log: log}
}

func (s *notificationService) Notify(ctx context.Context, n *models.Notification) error {
	const op = "NotificationService.Notify"

	if n == nil || n.RecipientID == "" || n.Type == "" {
		return utils.E(utils.CodeInvalidArgument, op, "recipient_id and type are required", nil)
	}

	now := time.Now().UTC()
	n.CreatedAt = now
	n.ExpiresAt = now.Add(s.ttl)
	n.Read = false

	if err := s.repo.Insert(ctx, n); err != nil {
		return utils.E(utils.CodeUnavailable, op, "failed to deliver notification", err)
	}
	if s.publisher != nil {
		if err := s.publisher.PublishNotification(ctx, n); err != nil {
			// stored already; the live feed is best effort
			s.log.WithError(err).WithField("recipient_id", n.RecipientID).Warn("failed to publish notification")
		}
	}
	return nil
}

func (s *notificationService) List(ctx context.Context, userID string, unreadOnly bool, limit int64) ([]models.Notification, error) {
	const op = "NotificationService.List"

	if userID == "" {
		return nil, utils.E(utils.CodeInvalidArgument, op, "user_id is required", nil)
	}
	out, err := s.repo.ListByRecipient(ctx, userID, unreadOnly, limit)
	if err != nil {
		return nil, utils.E(utils.CodeInternal, op, "failed to list notifications", err)
	}
	return out, nil
}

func (s *notificationService) MarkRead(ctx context.Context, userID, id string) error {
	const op = "NotificationService.MarkRead"

	if userID == "" || id == "" {
		return utils.E(utils.CodeInvalidArgument, op, "user_id and id are required", nil)
	}
	if err := s.repo.MarkRead(ctx, userID, id); err != nil {
		if errors.Is(err, utils.ErrNotFound) {
			return utils.E(utils.CodeNotFound, op, "notification not found", err)
		}
		return utils.E(utils.CodeInternal, op, "failed to mark notification read", err)
	}
	return nil
}
