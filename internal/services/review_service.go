package services

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/yoockh/recruitlink/internal/cache"
	"github.com/yoockh/recruitlink/internal/models"
	pgrepo "github.com/yoockh/recruitlink/internal/repositories/postgres"
	"github.com/yoockh/recruitlink/internal/utils"
)

type ReviewService interface {
	Leave(ctx context.Context, viewer models.Viewer, recruiterID string, rating int, comment string) (*models.Review, error)
	Rating(ctx context.Context, recruiterID string) (*models.RatingSummary, error)
	List(ctx context.Context, recruiterID string, limit int) ([]models.Review, error)
}

type reviewService struct {
	reviews pgrepo.ReviewRepository
	cache   cache.Cache
	ttl     time.Duration
	log     *logrus.Logger
}

func NewReviewService(reviews pgrepo.ReviewRepository, c cache.Cache, ttl time.Duration, log *logrus.Logger) ReviewService {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	if log == nil {
		log = logrus.New()
	}
	return &reviewService{reviews: reviews, cache: c, ttl: ttl, log: log}
}

func (s *reviewService) Leave(ctx context.Context, viewer models.Viewer, recruiterID string, rating int, comment string) (*models.Review, error) {
	const op = "ReviewService.Leave"

	if viewer.Role != models.RoleCompany {
		return nil, utils.E(utils.CodeForbidden, op, "only companies can review recruiters", nil)
	}
	if recruiterID == "" {
		return nil, utils.E(utils.CodeInvalidArgument, op, "recruiter_id is required", nil)
	}
	if rating < 1 || rating > 5 {
		return nil, utils.E(utils.CodeInvalidArgument, op, "rating must be between 1 and 5", nil)
	}

	rv := &models.Review{
		ID:          uuid.NewString(),
		CompanyID:   viewer.UserID,
		RecruiterID: recruiterID,
		Rating:      rating,
		Comment:     strings.TrimSpace(comment),
		CreatedAt:   time.Now().UTC(),
	}
	if err := s.reviews.Insert(ctx, rv); err != nil {
		return nil, utils.E(utils.CodeInternal, op, "failed to save review", err)
	}

	if s.cache != nil {
		if err := s.cache.Del(ctx, cache.RatingKey(recruiterID)); err != nil {
			s.log.WithError(err).Warn("rating cache invalidation failed")
		}
	}
	return rv, nil
}

func (s *reviewService) Rating(ctx context.Context, recruiterID string) (*models.RatingSummary, error) {
	const op = "ReviewService.Rating"

	if recruiterID == "" {
		return nil, utils.E(utils.CodeInvalidArgument, op, "recruiter_id is required", nil)
	}

	key := cache.RatingKey(recruiterID)
	if s.cache != nil {
		var cached models.RatingSummary
		if hit, err := s.cache.GetJSON(ctx, key, &cached); err == nil && hit {
			return &cached, nil
		}
	}

	sum, err := s.reviews.Summary(ctx, recruiterID)
	if err != nil {
		return nil, utils.E(utils.CodeInternal, op, "failed to compute rating", err)
	}
	if s.cache != nil {
		_ = s.cache.SetJSON(ctx, key, sum, s.ttl)
	}
	return sum, nil
}

func (s *reviewService) List(ctx context.Context, recruiterID string, limit int) ([]models.Review, error) {
	const op = "ReviewService.List"

	if recruiterID == "" {
		return nil, utils.E(utils.CodeInvalidArgument, op, "recruiter_id is required", nil)
	}
	rows, err := s.reviews.ListByRecruiter(ctx, recruiterID, limit)
	if err != nil {
		return nil, utils.E(utils.CodeInternal, op, "failed to list reviews", err)
	}
	return rows, nil
}
